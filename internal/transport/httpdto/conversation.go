package httpdto

import (
	"time"

	"rancho-chat/internal/domain/conversation"
)

type CreateConversationRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Visibility  string `json:"visibility" binding:"required,oneof=public private"`
}

type ConversationPreviewDTO struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	OwnerID        string    `json:"ownerId"`
	MemberUserIDs  []string  `json:"memberUserIds"`
	Visibility     string    `json:"visibility"`
	InvitationCode int       `json:"invitationCode"`
	CreatedAt      time.Time `json:"createdAt"`
}

type ConversationDTO struct {
	ConversationPreviewDTO
	Messages []MessageDTO `json:"messages"`
}

func FromPreview(p conversation.Preview) ConversationPreviewDTO {
	members := p.MemberUserIDs
	if members == nil {
		members = []string{}
	}
	return ConversationPreviewDTO{
		ID:             p.ID,
		Name:           p.Name,
		Description:    p.Description,
		OwnerID:        p.OwnerID,
		MemberUserIDs:  members,
		Visibility:     p.Visibility,
		InvitationCode: p.InvitationCode,
		CreatedAt:      p.CreatedAt,
	}
}

func FromPreviews(previews []conversation.Preview) []ConversationPreviewDTO {
	out := make([]ConversationPreviewDTO, 0, len(previews))
	for _, p := range previews {
		out = append(out, FromPreview(p))
	}
	return out
}

func FromConversation(c *conversation.Conversation) ConversationDTO {
	return ConversationDTO{
		ConversationPreviewDTO: FromPreview(c.Preview),
		Messages:               FromMessages(c.Messages),
	}
}

type ExportResponse struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}
