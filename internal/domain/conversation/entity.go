package conversation

import (
	"slices"
	"time"

	"rancho-chat/internal/domain/message"
)

const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

// Preview is a conversation without its messages.
type Preview struct {
	ID             string
	Name           string
	Description    string
	OwnerID        string
	MemberUserIDs  []string
	Visibility     string
	InvitationCode int
	CreatedAt      time.Time
}

// Conversation represents the conversations table / collection
type Conversation struct {
	Preview
	Messages []message.Message
}

// HasMember reports membership by presence in MemberUserIDs only. The owner
// is not implicitly a member here.
func (p Preview) HasMember(userID string) bool {
	return slices.Contains(p.MemberUserIDs, userID)
}

// Details is the caller supplied part of a new conversation.
type Details struct {
	Name        string
	Description string
	OwnerID     string
	Visibility  string
}
