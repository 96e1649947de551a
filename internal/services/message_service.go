package services

import (
	"context"
	"slices"

	"rancho-chat/internal/domain/message"
	"rancho-chat/internal/events"
	"rancho-chat/internal/repository"
	"rancho-chat/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// MessageConversations is the slice of conversation storage messaging needs.
type MessageConversations interface {
	repository.ConversationReader
	repository.MessageStore
	ListUserIDs(ctx context.Context, conversationID string) ([]string, error)
}

type MessageOptions struct {
	// StrictRemoval limits RemoveMessage to the sender and the conversation
	// owner. Off by default, where any existing account may clear a message.
	StrictRemoval bool
}

type MessageService struct {
	accounts      repository.AccountChecker
	conversations MessageConversations
	opts          MessageOptions
	events        eventEmitter
}

func NewMessageService(accounts repository.AccountChecker, conversations MessageConversations, opts MessageOptions, publisher EventPublisher, l *logger.Logger) *MessageService {
	return &MessageService{
		accounts:      accounts,
		conversations: conversations,
		opts:          opts,
		events:        eventEmitter{publisher: publisher, log: l},
	}
}

type messageSentPayload struct {
	MessageID string `json:"message_id"`
	SenderID  string `json:"sender_id"`
	Content   string `json:"content"`
}

// SendMessage appends a message when the sender exists, the conversation
// exists, and the sender is one of its members.
func (s *MessageService) SendMessage(ctx context.Context, senderID, conversationID, content string) (bool, error) {
	var accountExists, conversationExists bool
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ok, err := s.accounts.CheckByID(gctx, senderID)
		accountExists = ok
		return err
	})
	g.Go(func() error {
		ok, err := s.conversations.CheckByID(gctx, conversationID)
		conversationExists = ok
		return err
	})
	if err := g.Wait(); err != nil {
		return false, err
	}
	if !accountExists || !conversationExists {
		return false, nil
	}

	members, err := s.conversations.ListUserIDs(ctx, conversationID)
	if err != nil {
		return false, err
	}
	if !slices.Contains(members, senderID) {
		return false, nil
	}

	id, err := s.conversations.SaveMessage(ctx, message.Draft{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
	})
	if err != nil {
		return false, err
	}
	if id == "" {
		return false, nil
	}

	s.events.emit(ctx, events.EventTypeMessageSent, events.AggregateTypeMessage, id,
		eventTarget{conversationID: conversationID},
		messageSentPayload{MessageID: id, SenderID: senderID, Content: content})
	return true, nil
}

// GetMessage returns a single message to a member or the owner of its
// conversation.
func (s *MessageService) GetMessage(ctx context.Context, requesterID, conversationID, messageID string) (*message.Message, error) {
	c, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if c == nil || (!c.HasMember(requesterID) && c.OwnerID != requesterID) {
		return nil, nil
	}
	return s.conversations.GetMessageByID(ctx, messageID, conversationID)
}

// RemoveMessage clears the content of a message, keeping its id, sender and
// date. Unless StrictRemoval is set the requester only needs an existing
// account.
func (s *MessageService) RemoveMessage(ctx context.Context, requesterID, messageID string) (bool, error) {
	ok, err := s.accounts.CheckByID(ctx, requesterID)
	if err != nil {
		return false, err
	}
	target, err := s.conversations.FindMessage(ctx, messageID)
	if err != nil {
		return false, err
	}
	if !ok || target == nil {
		return false, nil
	}

	if s.opts.StrictRemoval && target.SenderID != requesterID {
		c, err := s.conversations.GetByID(ctx, target.ConversationID)
		if err != nil {
			return false, err
		}
		if c == nil || c.OwnerID != requesterID {
			return false, nil
		}
	}

	removed, err := s.conversations.RemoveMessageContent(ctx, target.ID, target.ConversationID)
	if err != nil {
		return false, err
	}
	if removed {
		s.events.emit(ctx, events.EventTypeMessageRemoved, events.AggregateTypeMessage, target.ID,
			eventTarget{conversationID: target.ConversationID}, nil)
	}
	return removed, nil
}
