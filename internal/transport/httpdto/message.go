package httpdto

import (
	"time"

	"rancho-chat/internal/domain/message"
)

type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// MessageDTO carries a null content for removed messages.
type MessageDTO struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	Content        *string   `json:"content"`
	Date           time.Time `json:"date"`
}

func FromMessage(m message.Message) MessageDTO {
	return MessageDTO{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		Date:           m.Date,
	}
}

func FromMessages(messages []message.Message) []MessageDTO {
	out := make([]MessageDTO, 0, len(messages))
	for _, m := range messages {
		out = append(out, FromMessage(m))
	}
	return out
}
