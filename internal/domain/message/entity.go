package message

import "time"

// Message represents a message embedded in (or addressed through) a conversation.
// A nil Content means the message was removed.
type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	Content        *string
	Date           time.Time
}

func (m Message) Removed() bool {
	return m.Content == nil
}

// Draft is a message before storage assigns its id and date.
type Draft struct {
	ConversationID string
	SenderID       string
	Content        string
}
