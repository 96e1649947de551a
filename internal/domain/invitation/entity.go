package invitation

import "time"

const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusDeclined = "declined"
)

// Invitation is a user's request to join a conversation.
type Invitation struct {
	ID             string
	ConversationID string
	UserID         string
	Status         string
	CreatedAt      time.Time
}

func (i Invitation) IsPending() bool {
	return i.Status == StatusPending
}

func ValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusAccepted, StatusDeclined:
		return true
	}
	return false
}
