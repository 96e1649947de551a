package services

import (
	"context"

	"rancho-chat/internal/domain/conversation"
	"rancho-chat/internal/domain/message"
	"rancho-chat/internal/events"
	"rancho-chat/internal/repository"
	"rancho-chat/pkg/logger"
)

// ConversationService enforces ownership over conversations and their
// member lists. Rejections come back as false, nil or an empty slice;
// only storage faults are returned as errors.
type ConversationService struct {
	accounts      repository.AccountChecker
	conversations repository.ConversationRepository
	events        eventEmitter
}

func NewConversationService(accounts repository.AccountChecker, conversations repository.ConversationRepository, publisher EventPublisher, l *logger.Logger) *ConversationService {
	return &ConversationService{
		accounts:      accounts,
		conversations: conversations,
		events:        eventEmitter{publisher: publisher, log: l},
	}
}

// ListConversations returns the conversations owned by userID.
func (s *ConversationService) ListConversations(ctx context.Context, userID string) ([]conversation.Preview, error) {
	previews, err := s.conversations.ListAllConversations(ctx, userID)
	if err != nil {
		return nil, err
	}
	if previews == nil {
		return []conversation.Preview{}, nil
	}
	return previews, nil
}

// CreateNewConversation stores a conversation owned by userID whatever owner
// the details name, and returns the stored entity.
func (s *ConversationService) CreateNewConversation(ctx context.Context, userID string, details conversation.Details) (*conversation.Conversation, error) {
	ok, err := s.accounts.CheckByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	details.OwnerID = userID
	id, err := s.conversations.Save(ctx, details)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, nil
	}

	created, err := s.conversations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if created != nil {
		s.events.emit(ctx, events.EventTypeConversationCreated, events.AggregateTypeConversation, id,
			eventTarget{userID: userID}, created.Preview)
	}
	return created, nil
}

// ListMessages returns [] both for an unknown conversation and for one with
// no messages.
func (s *ConversationService) ListMessages(ctx context.Context, conversationID string) ([]message.Message, error) {
	ok, err := s.conversations.CheckByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []message.Message{}, nil
	}

	messages, err := s.conversations.ListAllMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		return []message.Message{}, nil
	}
	return messages, nil
}

func (s *ConversationService) RemoveConversation(ctx context.Context, requesterID, conversationID string) (bool, error) {
	c, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return false, err
	}
	if c == nil || c.OwnerID != requesterID {
		return false, nil
	}

	removed, err := s.conversations.Remove(ctx, conversationID)
	if err != nil {
		return false, err
	}
	if removed {
		s.events.emit(ctx, events.EventTypeConversationRemoved, events.AggregateTypeConversation, conversationID,
			eventTarget{conversationID: conversationID}, nil)
	}
	return removed, nil
}

// RemoveParticipant lets the owner drop a current member. The owner can not
// be removed this way.
func (s *ConversationService) RemoveParticipant(ctx context.Context, requesterID, userIDToRemove, conversationID string) (bool, error) {
	c, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return false, err
	}
	if c == nil {
		return false, nil
	}
	if !c.HasMember(userIDToRemove) || requesterID != c.OwnerID {
		return false, nil
	}
	if userIDToRemove == c.OwnerID {
		return false, nil
	}

	removed, err := s.conversations.RemoveUserID(ctx, userIDToRemove, conversationID)
	if err != nil {
		return false, err
	}
	if removed {
		s.events.emit(ctx, events.EventTypeParticipantRemoved, events.AggregateTypeConversation, conversationID,
			eventTarget{conversationID: conversationID, userID: userIDToRemove}, map[string]string{"user_id": userIDToRemove})
	}
	return removed, nil
}
