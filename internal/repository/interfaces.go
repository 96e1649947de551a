package repository

import (
	"context"

	"rancho-chat/internal/domain/account"
	"rancho-chat/internal/domain/conversation"
	"rancho-chat/internal/domain/invitation"
	"rancho-chat/internal/domain/message"
)

// Lookups return a nil entity (or false, or an empty slice) with a nil error
// when nothing matches. Errors are reserved for storage faults.

type AccountChecker interface {
	CheckByID(ctx context.Context, id string) (bool, error)
}

type AccountTokenResolver interface {
	GetAccountByToken(ctx context.Context, token, role string) (*account.Account, error)
}

type AccountRepository interface {
	AccountChecker
	AccountTokenResolver
	CheckByEmail(ctx context.Context, email string) (bool, error)
	GetAccountByEmail(ctx context.Context, email string) (*account.Account, error)
	AddNewAccount(ctx context.Context, a account.Account) (bool, error)
	UpdateAccessToken(ctx context.Context, id, token string) error
}

type ConversationReader interface {
	CheckByID(ctx context.Context, id string) (bool, error)
	GetByID(ctx context.Context, id string) (*conversation.Conversation, error)
}

type MembershipStore interface {
	ListUserIDs(ctx context.Context, conversationID string) ([]string, error)
	RemoveUserID(ctx context.Context, userID, conversationID string) (bool, error)
	AddUserID(ctx context.Context, userID, conversationID string) (bool, error)
}

type MessageStore interface {
	SaveMessage(ctx context.Context, m message.Draft) (string, error)
	GetMessageByID(ctx context.Context, messageID, conversationID string) (*message.Message, error)
	// FindMessage resolves a message by id alone, including its conversation id.
	FindMessage(ctx context.Context, messageID string) (*message.Message, error)
	RemoveMessageContent(ctx context.Context, messageID, conversationID string) (bool, error)
}

type ConversationRepository interface {
	ConversationReader
	MembershipStore
	MessageStore
	Save(ctx context.Context, d conversation.Details) (string, error)
	Remove(ctx context.Context, id string) (bool, error)
	ListAllConversations(ctx context.Context, ownerID string) ([]conversation.Preview, error)
	ListAllMessages(ctx context.Context, conversationID string) ([]message.Message, error)
}

type InvitationRepository interface {
	// Save returns ErrAlreadyExists when a pending invitation for the same
	// user and conversation is already stored.
	Save(ctx context.Context, inv invitation.Invitation) (string, error)
	Remove(ctx context.Context, id string) (bool, error)
	CheckByID(ctx context.Context, id string) (bool, error)
	UpdateStatus(ctx context.Context, id, status string) (bool, error)
	Get(ctx context.Context, id string) (*invitation.Invitation, error)
	ListUserInvitations(ctx context.Context, userID string) ([]invitation.Invitation, error)
	ListConversationInvitations(ctx context.Context, conversationID string) ([]invitation.Invitation, error)
}
