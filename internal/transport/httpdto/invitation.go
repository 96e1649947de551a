package httpdto

import (
	"time"

	"rancho-chat/internal/domain/invitation"
)

type InvitationDTO struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	UserID         string    `json:"userId"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
}

func FromInvitations(invs []invitation.Invitation) []InvitationDTO {
	out := make([]InvitationDTO, 0, len(invs))
	for _, inv := range invs {
		out = append(out, InvitationDTO{
			ID:             inv.ID,
			ConversationID: inv.ConversationID,
			UserID:         inv.UserID,
			Status:         inv.Status,
			CreatedAt:      inv.CreatedAt,
		})
	}
	return out
}
