package services

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"sync"
	"time"

	"rancho-chat/internal/domain/account"
	"rancho-chat/internal/domain/conversation"
	"rancho-chat/internal/domain/invitation"
	"rancho-chat/internal/domain/message"
	"rancho-chat/internal/events"
	rancho_errors "rancho-chat/pkg/errors"
)

var errStorage = errors.New("storage unavailable")

type fakeAccounts struct {
	mu       sync.Mutex
	accounts map[string]*account.Account
	err      error
	seq      int
}

func newFakeAccounts(ids ...string) *fakeAccounts {
	f := &fakeAccounts{accounts: map[string]*account.Account{}}
	for _, id := range ids {
		f.accounts[id] = &account.Account{ID: id, Email: id + "@example.com"}
	}
	return f
}

func (f *fakeAccounts) CheckByID(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	_, ok := f.accounts[id]
	return ok, nil
}

func (f *fakeAccounts) CheckByEmail(ctx context.Context, email string) (bool, error) {
	a, err := f.GetAccountByEmail(ctx, email)
	return a != nil, err
}

func (f *fakeAccounts) GetAccountByEmail(_ context.Context, email string) (*account.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, a := range f.accounts {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeAccounts) AddNewAccount(_ context.Context, a account.Account) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	f.seq++
	a.ID = "acc" + strconv.Itoa(f.seq)
	f.accounts[a.ID] = &a
	return true, nil
}

func (f *fakeAccounts) UpdateAccessToken(_ context.Context, id, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	a, ok := f.accounts[id]
	if !ok {
		return rancho_errors.ErrNotFound
	}
	a.AccessToken = &token
	return nil
}

func (f *fakeAccounts) GetAccountByToken(_ context.Context, token, role string) (*account.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, a := range f.accounts {
		if a.AccessToken == nil || *a.AccessToken != token {
			continue
		}
		if role != "" && !slices.Contains(a.Roles, role) && !slices.Contains(a.Roles, account.RoleAdmin) {
			return nil, nil
		}
		return &account.Account{ID: a.ID}, nil
	}
	return nil, nil
}

type fakeConversations struct {
	mu            sync.Mutex
	conversations map[string]*conversation.Conversation
	err           error
	seq           int
	// rejectSave makes Save return an empty id.
	rejectSave bool
}

func newFakeConversations(cs ...conversation.Conversation) *fakeConversations {
	f := &fakeConversations{conversations: map[string]*conversation.Conversation{}}
	for i := range cs {
		c := cs[i]
		f.conversations[c.ID] = &c
	}
	return f
}

func (f *fakeConversations) CheckByID(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	_, ok := f.conversations[id]
	return ok, nil
}

func (f *fakeConversations) GetByID(_ context.Context, id string) (*conversation.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.conversations[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	cp.MemberUserIDs = slices.Clone(c.MemberUserIDs)
	cp.Messages = slices.Clone(c.Messages)
	return &cp, nil
}

func (f *fakeConversations) Save(_ context.Context, d conversation.Details) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	if f.rejectSave {
		return "", nil
	}
	f.seq++
	id := "conv" + strconv.Itoa(f.seq)
	visibility := d.Visibility
	if visibility == "" {
		visibility = conversation.VisibilityPublic
	}
	f.conversations[id] = &conversation.Conversation{Preview: conversation.Preview{
		ID:            id,
		Name:          d.Name,
		Description:   d.Description,
		OwnerID:       d.OwnerID,
		MemberUserIDs: []string{d.OwnerID},
		Visibility:    visibility,
		CreatedAt:     time.Now(),
	}}
	return id, nil
}

func (f *fakeConversations) Remove(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if _, ok := f.conversations[id]; !ok {
		return false, nil
	}
	delete(f.conversations, id)
	return true, nil
}

func (f *fakeConversations) ListAllConversations(_ context.Context, ownerID string) ([]conversation.Preview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []conversation.Preview
	for _, c := range f.conversations {
		if c.OwnerID == ownerID {
			out = append(out, c.Preview)
		}
	}
	return out, nil
}

func (f *fakeConversations) ListAllMessages(_ context.Context, conversationID string) ([]message.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.conversations[conversationID]
	if !ok {
		return nil, nil
	}
	return slices.Clone(c.Messages), nil
}

func (f *fakeConversations) ListUserIDs(_ context.Context, conversationID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.conversations[conversationID]
	if !ok {
		return []string{}, nil
	}
	return slices.Clone(c.MemberUserIDs), nil
}

func (f *fakeConversations) RemoveUserID(_ context.Context, userID, conversationID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	c, ok := f.conversations[conversationID]
	if !ok || !slices.Contains(c.MemberUserIDs, userID) {
		return false, nil
	}
	c.MemberUserIDs = slices.DeleteFunc(c.MemberUserIDs, func(id string) bool { return id == userID })
	return true, nil
}

func (f *fakeConversations) AddUserID(_ context.Context, userID, conversationID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	c, ok := f.conversations[conversationID]
	if !ok || slices.Contains(c.MemberUserIDs, userID) {
		return false, nil
	}
	c.MemberUserIDs = append(c.MemberUserIDs, userID)
	return true, nil
}

func (f *fakeConversations) SaveMessage(_ context.Context, d message.Draft) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	c, ok := f.conversations[d.ConversationID]
	if !ok {
		return "", nil
	}
	f.seq++
	content := d.Content
	id := "msg" + strconv.Itoa(f.seq)
	c.Messages = append(c.Messages, message.Message{
		ID:             id,
		ConversationID: d.ConversationID,
		SenderID:       d.SenderID,
		Content:        &content,
		Date:           time.Now(),
	})
	return id, nil
}

func (f *fakeConversations) GetMessageByID(_ context.Context, messageID, conversationID string) (*message.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.conversations[conversationID]
	if !ok {
		return nil, nil
	}
	for _, m := range c.Messages {
		if m.ID == messageID {
			cp := m
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeConversations) FindMessage(_ context.Context, messageID string) (*message.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, c := range f.conversations {
		for _, m := range c.Messages {
			if m.ID == messageID {
				cp := m
				return &cp, nil
			}
		}
	}
	return nil, nil
}

func (f *fakeConversations) RemoveMessageContent(_ context.Context, messageID, conversationID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	c, ok := f.conversations[conversationID]
	if !ok {
		return false, nil
	}
	for i := range c.Messages {
		if c.Messages[i].ID == messageID {
			c.Messages[i].Content = nil
			return true, nil
		}
	}
	return false, nil
}

// message looks a stored message up without going through the ports.
func (f *fakeConversations) message(conversationID, messageID string) message.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.conversations[conversationID].Messages {
		if m.ID == messageID {
			return m
		}
	}
	return message.Message{}
}

type fakeInvitations struct {
	mu          sync.Mutex
	invitations map[string]*invitation.Invitation
	order       []string
	err         error
	seq         int
	// saveErr is returned by Save only.
	saveErr error
}

func newFakeInvitations(invs ...invitation.Invitation) *fakeInvitations {
	f := &fakeInvitations{invitations: map[string]*invitation.Invitation{}}
	for i := range invs {
		inv := invs[i]
		f.invitations[inv.ID] = &inv
		f.order = append(f.order, inv.ID)
	}
	return f
}

func (f *fakeInvitations) Save(_ context.Context, inv invitation.Invitation) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	if f.saveErr != nil {
		return "", f.saveErr
	}
	f.seq++
	inv.ID = "inv" + strconv.Itoa(f.seq)
	f.invitations[inv.ID] = &inv
	f.order = append(f.order, inv.ID)
	return inv.ID, nil
}

func (f *fakeInvitations) Remove(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if _, ok := f.invitations[id]; !ok {
		return false, nil
	}
	delete(f.invitations, id)
	f.order = slices.DeleteFunc(f.order, func(o string) bool { return o == id })
	return true, nil
}

func (f *fakeInvitations) CheckByID(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	_, ok := f.invitations[id]
	return ok, nil
}

func (f *fakeInvitations) UpdateStatus(_ context.Context, id, status string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	inv, ok := f.invitations[id]
	if !ok {
		return false, nil
	}
	inv.Status = status
	return true, nil
}

func (f *fakeInvitations) Get(_ context.Context, id string) (*invitation.Invitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	inv, ok := f.invitations[id]
	if !ok {
		return nil, nil
	}
	cp := *inv
	return &cp, nil
}

func (f *fakeInvitations) list(match func(*invitation.Invitation) bool) ([]invitation.Invitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []invitation.Invitation
	for _, id := range f.order {
		if inv := f.invitations[id]; match(inv) {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (f *fakeInvitations) ListUserInvitations(_ context.Context, userID string) ([]invitation.Invitation, error) {
	return f.list(func(inv *invitation.Invitation) bool { return inv.UserID == userID })
}

func (f *fakeInvitations) ListConversationInvitations(_ context.Context, conversationID string) ([]invitation.Invitation, error) {
	return f.list(func(inv *invitation.Invitation) bool { return inv.ConversationID == conversationID })
}

func (f *fakeInvitations) status(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if inv, ok := f.invitations[id]; ok {
		return inv.Status
	}
	return ""
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Envelope
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, env events.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, env)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType)
	}
	return out
}

func conv(id, owner string, members ...string) conversation.Conversation {
	return conversation.Conversation{Preview: conversation.Preview{
		ID:            id,
		Name:          "conversation " + id,
		OwnerID:       owner,
		MemberUserIDs: members,
		Visibility:    conversation.VisibilityPublic,
	}}
}

func strPtr(s string) *string {
	return &s
}
