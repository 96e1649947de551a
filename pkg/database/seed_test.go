package database

import (
	"context"
	"strconv"
	"testing"

	"rancho-chat/internal/domain/account"
	"rancho-chat/internal/domain/conversation"
	"rancho-chat/internal/domain/invitation"
	"rancho-chat/internal/domain/message"
	"rancho-chat/internal/repository"
)

type seedAccounts struct {
	repository.AccountRepository
	byEmail map[string]account.Account
}

func (s *seedAccounts) GetAccountByEmail(_ context.Context, email string) (*account.Account, error) {
	a, ok := s.byEmail[email]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (s *seedAccounts) AddNewAccount(_ context.Context, a account.Account) (bool, error) {
	if _, ok := s.byEmail[a.Email]; ok {
		return false, nil
	}
	a.ID = "a" + strconv.Itoa(len(s.byEmail)+1)
	s.byEmail[a.Email] = a
	return true, nil
}

type seedConversations struct {
	repository.ConversationRepository
	saved    []conversation.Details
	messages []message.Draft
}

func (s *seedConversations) Save(_ context.Context, d conversation.Details) (string, error) {
	s.saved = append(s.saved, d)
	return "c" + strconv.Itoa(len(s.saved)), nil
}

func (s *seedConversations) SaveMessage(_ context.Context, d message.Draft) (string, error) {
	s.messages = append(s.messages, d)
	return "m" + strconv.Itoa(len(s.messages)), nil
}

type seedInvitations struct {
	repository.InvitationRepository
	saved []invitation.Invitation
}

func (s *seedInvitations) Save(_ context.Context, inv invitation.Invitation) (string, error) {
	s.saved = append(s.saved, inv)
	return "i" + strconv.Itoa(len(s.saved)), nil
}

type prefixHasher struct{}

func (prefixHasher) Hash(plain string) (string, error) { return "h:" + plain, nil }

func TestSeedDevelopment(t *testing.T) {
	accounts := &seedAccounts{byEmail: map[string]account.Account{}}
	convs := &seedConversations{}
	invs := &seedInvitations{}
	stores := SeedStores{Accounts: accounts, Conversations: convs, Invitations: invs}

	res, err := SeedDevelopment(context.Background(), nil, stores, prefixHasher{}, nil)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if len(accounts.byEmail) != 4 || len(res.ConversationIDs) != 3 || res.Messages != 3 || res.Invitations != 3 {
		t.Fatalf("unexpected result %+v", res)
	}
	admin := accounts.byEmail["admin@rancho.chat"]
	if len(admin.Roles) != 1 || admin.Roles[0] != account.RoleAdmin || admin.PasswordHash != "h:Admin@123!" {
		t.Fatalf("unexpected admin %+v", admin)
	}
	for i, inv := range invs.saved {
		if inv.UserID == convs.saved[i].OwnerID {
			t.Fatalf("owner invited to own conversation: %+v", inv)
		}
	}

	// A second run reuses the accounts.
	if _, err := SeedDevelopment(context.Background(), nil, stores, prefixHasher{}, nil); err != nil {
		t.Fatalf("reseed: %v", err)
	}
	if len(accounts.byEmail) != 4 {
		t.Fatalf("accounts duplicated: %d", len(accounts.byEmail))
	}
}
