package database

import (
	"context"
	"fmt"

	"rancho-chat/internal/domain/account"
	"rancho-chat/internal/domain/conversation"
	"rancho-chat/internal/domain/invitation"
	"rancho-chat/internal/domain/message"
	"rancho-chat/internal/repository"
	"rancho-chat/pkg/logger"
)

// PasswordHasher is satisfied by security.BcryptHasher.
type PasswordHasher interface {
	Hash(plain string) (string, error)
}

// SeedConfig holds configuration for seeding the database
type SeedConfig struct {
	AdminEmail    string
	AdminPassword string
	TestUserCount int
	TestPassword  string
}

// DefaultSeedConfig returns default seed configuration
func DefaultSeedConfig() *SeedConfig {
	return &SeedConfig{
		AdminEmail:    "admin@rancho.chat",
		AdminPassword: "Admin@123!",
		TestUserCount: 3,
		TestPassword:  "Password123!",
	}
}

// SeedStores are the repositories a seed writes through.
type SeedStores struct {
	Accounts      repository.AccountRepository
	Conversations repository.ConversationRepository
	Invitations   repository.InvitationRepository
}

// SeedResult holds the result of the seeding operation
type SeedResult struct {
	AdminEmail      string
	TestEmails      []string
	ConversationIDs []string
	Messages        int
	Invitations     int
}

// SeedDevelopment creates an admin, a few members, one conversation per
// member with a greeting, and a pending join request between neighbours.
// Accounts whose email already exists are left untouched.
func SeedDevelopment(ctx context.Context, cfg *SeedConfig, stores SeedStores, hasher PasswordHasher, l *logger.Logger) (*SeedResult, error) {
	if cfg == nil {
		cfg = DefaultSeedConfig()
	}
	if l == nil {
		l = logger.NewNop()
	}
	result := &SeedResult{AdminEmail: cfg.AdminEmail}

	if _, err := seedAccount(ctx, stores.Accounts, hasher, "System Admin", cfg.AdminEmail, cfg.AdminPassword, account.RoleAdmin); err != nil {
		return nil, err
	}

	members := make([]*account.Account, 0, cfg.TestUserCount)
	for i := 1; i <= cfg.TestUserCount; i++ {
		email := fmt.Sprintf("user%d@rancho.chat", i)
		a, err := seedAccount(ctx, stores.Accounts, hasher, fmt.Sprintf("Test User %d", i), email, cfg.TestPassword)
		if err != nil {
			return nil, err
		}
		members = append(members, a)
		result.TestEmails = append(result.TestEmails, email)
	}

	for i, owner := range members {
		id, err := stores.Conversations.Save(ctx, conversation.Details{
			Name:        fmt.Sprintf("%s's room", owner.Name),
			Description: "seeded conversation",
			OwnerID:     owner.ID,
			Visibility:  conversation.VisibilityPublic,
		})
		if err != nil {
			return nil, fmt.Errorf("seed conversation: %w", err)
		}
		if id == "" {
			continue
		}
		result.ConversationIDs = append(result.ConversationIDs, id)

		if _, err := stores.Conversations.SaveMessage(ctx, message.Draft{ConversationID: id, SenderID: owner.ID, Content: "Welcome!"}); err != nil {
			return nil, fmt.Errorf("seed message: %w", err)
		}
		result.Messages++

		if len(members) < 2 {
			continue
		}
		guest := members[(i+1)%len(members)]
		_, err = stores.Invitations.Save(ctx, invitation.Invitation{UserID: guest.ID, ConversationID: id, Status: invitation.StatusPending})
		if err != nil {
			l.Warnf("seed invitation for %s: %s", guest.Email, err)
			continue
		}
		result.Invitations++
	}

	l.Infof("seeded %d accounts, %d conversations", len(members)+1, len(result.ConversationIDs))
	return result, nil
}

func seedAccount(ctx context.Context, accounts repository.AccountRepository, hasher PasswordHasher, name, email, password string, roles ...string) (*account.Account, error) {
	existing, err := accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", email, err)
	}
	if existing != nil {
		return existing, nil
	}

	hash, err := hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if _, err := accounts.AddNewAccount(ctx, account.Account{Name: name, Email: email, PasswordHash: hash, Roles: roles}); err != nil {
		return nil, fmt.Errorf("add %s: %w", email, err)
	}
	created, err := accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("reload %s: %w", email, err)
	}
	if created == nil {
		return nil, fmt.Errorf("account %s missing after insert", email)
	}
	return created, nil
}
