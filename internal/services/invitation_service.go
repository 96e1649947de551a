package services

import (
	"context"
	"errors"
	"time"

	"rancho-chat/internal/domain/invitation"
	"rancho-chat/internal/events"
	"rancho-chat/internal/repository"
	rancho_errors "rancho-chat/pkg/errors"
	"rancho-chat/pkg/logger"
)

// InvitationConversations is the slice of conversation storage the
// invitation workflow needs.
type InvitationConversations interface {
	repository.ConversationReader
	AddUserID(ctx context.Context, userID, conversationID string) (bool, error)
}

type InvitationOptions struct {
	// AcceptGrantsMembership adds the invitee to the member list when the
	// owner accepts. Off by default, where accept only records the status.
	AcceptGrantsMembership bool
}

// InvitationService runs the join request workflow:
// no invitation -> pending -> accepted | declined, or withdrawn by its subject.
type InvitationService struct {
	conversations InvitationConversations
	invitations   repository.InvitationRepository
	opts          InvitationOptions
	events        eventEmitter
	now           func() time.Time
}

func NewInvitationService(conversations InvitationConversations, invitations repository.InvitationRepository, opts InvitationOptions, publisher EventPublisher, l *logger.Logger) *InvitationService {
	return &InvitationService{
		conversations: conversations,
		invitations:   invitations,
		opts:          opts,
		events:        eventEmitter{publisher: publisher, log: l},
		now:           time.Now,
	}
}

// AskToJoin files a pending request for userID. It is rejected when the
// conversation is unknown, a pending request already exists, or the user is
// already a member.
func (s *InvitationService) AskToJoin(ctx context.Context, userID, conversationID string) (bool, error) {
	c, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return false, err
	}
	if c == nil {
		return false, nil
	}

	existing, err := s.invitations.ListUserInvitations(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, inv := range existing {
		if inv.IsPending() && inv.ConversationID == conversationID {
			return false, nil
		}
	}
	if c.HasMember(userID) {
		return false, nil
	}

	id, err := s.invitations.Save(ctx, invitation.Invitation{
		ConversationID: conversationID,
		UserID:         userID,
		Status:         invitation.StatusPending,
		CreatedAt:      s.now().UTC(),
	})
	if err != nil {
		// a concurrent request won the race
		if errors.Is(err, rancho_errors.ErrAlreadyExists) {
			return false, nil
		}
		return false, err
	}
	if id == "" {
		return false, nil
	}

	s.events.emit(ctx, events.EventTypeInvitationRequested, events.AggregateTypeInvitation, id,
		eventTarget{conversationID: conversationID, userID: userID}, map[string]string{"user_id": userID})
	return true, nil
}

func (s *InvitationService) Accept(ctx context.Context, requesterID, invitationID string) (bool, error) {
	return s.resolve(ctx, requesterID, invitationID, invitation.StatusAccepted)
}

// Decline may be repeated on an already declined invitation.
func (s *InvitationService) Decline(ctx context.Context, requesterID, invitationID string) (bool, error) {
	return s.resolve(ctx, requesterID, invitationID, invitation.StatusDeclined)
}

func (s *InvitationService) resolve(ctx context.Context, requesterID, invitationID, status string) (bool, error) {
	inv, err := s.invitations.Get(ctx, invitationID)
	if err != nil {
		return false, err
	}
	if inv == nil {
		return false, nil
	}

	c, err := s.conversations.GetByID(ctx, inv.ConversationID)
	if err != nil {
		return false, err
	}
	if c == nil || c.OwnerID != requesterID {
		return false, nil
	}

	updated, err := s.invitations.UpdateStatus(ctx, invitationID, status)
	if err != nil {
		return false, err
	}
	if !updated {
		return false, nil
	}

	if status == invitation.StatusAccepted && s.opts.AcceptGrantsMembership {
		added, err := s.conversations.AddUserID(ctx, inv.UserID, inv.ConversationID)
		if err != nil {
			return false, err
		}
		if added {
			s.events.emit(ctx, events.EventTypeParticipantAdded, events.AggregateTypeConversation, inv.ConversationID,
				eventTarget{conversationID: inv.ConversationID}, map[string]string{"user_id": inv.UserID})
		}
	}

	eventType := events.EventTypeInvitationDeclined
	if status == invitation.StatusAccepted {
		eventType = events.EventTypeInvitationAccepted
	}
	s.events.emit(ctx, eventType, events.AggregateTypeInvitation, invitationID,
		eventTarget{conversationID: inv.ConversationID, userID: inv.UserID}, map[string]string{"status": status})
	return true, nil
}

func (s *InvitationService) ListUserInvitations(ctx context.Context, userID string) ([]invitation.Invitation, error) {
	invs, err := s.invitations.ListUserInvitations(ctx, userID)
	if err != nil {
		return nil, err
	}
	if invs == nil {
		return []invitation.Invitation{}, nil
	}
	return invs, nil
}

func (s *InvitationService) ListConversationInvitations(ctx context.Context, conversationID string) ([]invitation.Invitation, error) {
	invs, err := s.invitations.ListConversationInvitations(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if invs == nil {
		return []invitation.Invitation{}, nil
	}
	return invs, nil
}

// RemoveInvitation lets the invitation's own subject withdraw it. The
// conversation owner can not revoke through this path.
func (s *InvitationService) RemoveInvitation(ctx context.Context, requesterID, invitationID string) (bool, error) {
	inv, err := s.invitations.Get(ctx, invitationID)
	if err != nil {
		return false, err
	}
	if inv == nil || inv.UserID != requesterID {
		return false, nil
	}

	removed, err := s.invitations.Remove(ctx, invitationID)
	if err != nil {
		return false, err
	}
	if removed {
		s.events.emit(ctx, events.EventTypeInvitationRemoved, events.AggregateTypeInvitation, invitationID,
			eventTarget{conversationID: inv.ConversationID}, nil)
	}
	return removed, nil
}
