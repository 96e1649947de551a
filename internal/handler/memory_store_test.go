package handler

import (
	"context"
	"slices"
	"strconv"
	"sync"
	"time"

	"rancho-chat/internal/domain/account"
	"rancho-chat/internal/domain/conversation"
	"rancho-chat/internal/domain/invitation"
	"rancho-chat/internal/domain/message"
	rancho_errors "rancho-chat/pkg/errors"
)

// memoryStore backs the account, conversation and invitation ports in
// handler tests.
type memoryStore struct {
	mu            sync.Mutex
	seq           int
	accounts      map[string]*account.Account
	conversations map[string]*conversation.Conversation
	invitations   map[string]*invitation.Invitation
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		accounts:      map[string]*account.Account{},
		conversations: map[string]*conversation.Conversation{},
		invitations:   map[string]*invitation.Invitation{},
	}
}

func (s *memoryStore) nextID(prefix string) string {
	s.seq++
	return prefix + strconv.Itoa(s.seq)
}

type memoryAccounts struct{ *memoryStore }

func (s memoryAccounts) CheckByID(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.accounts[id]
	return ok, nil
}

func (s memoryAccounts) CheckByEmail(ctx context.Context, email string) (bool, error) {
	a, err := s.GetAccountByEmail(ctx, email)
	return a != nil, err
}

func (s memoryAccounts) GetAccountByEmail(_ context.Context, email string) (*account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (s memoryAccounts) AddNewAccount(_ context.Context, a account.Account) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.accounts {
		if existing.Email == a.Email {
			return false, nil
		}
	}
	a.ID = s.nextID("acc")
	s.accounts[a.ID] = &a
	return true, nil
}

func (s memoryAccounts) UpdateAccessToken(_ context.Context, id, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return rancho_errors.ErrNotFound
	}
	a.AccessToken = &token
	return nil
}

func (s memoryAccounts) GetAccountByToken(_ context.Context, token, _ string) (*account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.AccessToken != nil && *a.AccessToken == token {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

type memoryConversations struct{ *memoryStore }

func (s memoryConversations) CheckByID(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.conversations[id]
	return ok, nil
}

func (s memoryConversations) GetByID(_ context.Context, id string) (*conversation.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	cp.MemberUserIDs = slices.Clone(c.MemberUserIDs)
	cp.Messages = slices.Clone(c.Messages)
	return &cp, nil
}

func (s memoryConversations) Save(_ context.Context, d conversation.Details) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID("conv")
	s.conversations[id] = &conversation.Conversation{Preview: conversation.Preview{
		ID:            id,
		Name:          d.Name,
		Description:   d.Description,
		OwnerID:       d.OwnerID,
		MemberUserIDs: []string{d.OwnerID},
		Visibility:    d.Visibility,
		CreatedAt:     time.Now(),
	}}
	return id, nil
}

func (s memoryConversations) Remove(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[id]; !ok {
		return false, nil
	}
	delete(s.conversations, id)
	return true, nil
}

func (s memoryConversations) ListAllConversations(_ context.Context, ownerID string) ([]conversation.Preview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []conversation.Preview
	for _, c := range s.conversations {
		if c.OwnerID == ownerID {
			out = append(out, c.Preview)
		}
	}
	return out, nil
}

func (s memoryConversations) ListAllMessages(_ context.Context, conversationID string) ([]message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.conversations[conversationID]; ok {
		return slices.Clone(c.Messages), nil
	}
	return nil, nil
}

func (s memoryConversations) ListUserIDs(_ context.Context, conversationID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.conversations[conversationID]; ok {
		return slices.Clone(c.MemberUserIDs), nil
	}
	return []string{}, nil
}

func (s memoryConversations) RemoveUserID(_ context.Context, userID, conversationID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[conversationID]
	if !ok || !slices.Contains(c.MemberUserIDs, userID) {
		return false, nil
	}
	c.MemberUserIDs = slices.DeleteFunc(c.MemberUserIDs, func(id string) bool { return id == userID })
	return true, nil
}

func (s memoryConversations) AddUserID(_ context.Context, userID, conversationID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[conversationID]
	if !ok || slices.Contains(c.MemberUserIDs, userID) {
		return false, nil
	}
	c.MemberUserIDs = append(c.MemberUserIDs, userID)
	return true, nil
}

func (s memoryConversations) SaveMessage(_ context.Context, d message.Draft) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[d.ConversationID]
	if !ok {
		return "", nil
	}
	content := d.Content
	id := s.nextID("msg")
	c.Messages = append(c.Messages, message.Message{ID: id, ConversationID: c.ID, SenderID: d.SenderID, Content: &content, Date: time.Now()})
	return id, nil
}

func (s memoryConversations) GetMessageByID(ctx context.Context, messageID, conversationID string) (*message.Message, error) {
	m, err := s.FindMessage(ctx, messageID)
	if m == nil || m.ConversationID != conversationID {
		return nil, err
	}
	return m, nil
}

func (s memoryConversations) FindMessage(_ context.Context, messageID string) (*message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conversations {
		for _, m := range c.Messages {
			if m.ID == messageID {
				cp := m
				return &cp, nil
			}
		}
	}
	return nil, nil
}

func (s memoryConversations) RemoveMessageContent(_ context.Context, messageID, conversationID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[conversationID]
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

type memoryInvitations struct{ *memoryStore }

func (s memoryInvitations) Save(_ context.Context, inv invitation.Invitation) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.invitations {
		if existing.IsPending() && existing.UserID == inv.UserID && existing.ConversationID == inv.ConversationID {
			return "", rancho_errors.ErrAlreadyExists
		}
	}
	inv.ID = s.nextID("inv")
	s.invitations[inv.ID] = &inv
	return inv.ID, nil
}

func (s memoryInvitations) Remove(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.invitations[id]; !ok {
		return false, nil
	}
	delete(s.invitations, id)
	return true, nil
}

func (s memoryInvitations) CheckByID(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.invitations[id]
	return ok, nil
}

func (s memoryInvitations) UpdateStatus(_ context.Context, id, status string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invitations[id]
	if !ok {
		return false, nil
	}
	inv.Status = status
	return true, nil
}

func (s memoryInvitations) Get(_ context.Context, id string) (*invitation.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invitations[id]
	if !ok {
		return nil, nil
	}
	cp := *inv
	return &cp, nil
}

func (s memoryInvitations) ListUserInvitations(_ context.Context, userID string) ([]invitation.Invitation, error) {
	return s.list(func(inv *invitation.Invitation) bool { return inv.UserID == userID }), nil
}

func (s memoryInvitations) ListConversationInvitations(_ context.Context, conversationID string) ([]invitation.Invitation, error) {
	return s.list(func(inv *invitation.Invitation) bool { return inv.ConversationID == conversationID }), nil
}

func (s memoryInvitations) list(match func(*invitation.Invitation) bool) []invitation.Invitation {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []invitation.Invitation
	for _, inv := range s.invitations {
		if match(inv) {
			out = append(out, *inv)
		}
	}
	slices.SortFunc(out, func(a, b invitation.Invitation) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out
}
