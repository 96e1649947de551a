package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"rancho-chat/internal/domain/conversation"
	"rancho-chat/internal/repository"
	rancho_errors "rancho-chat/pkg/errors"
)

// TranscriptStore is the object storage used for exports, e.g. storage.Client.
type TranscriptStore interface {
	PutObject(ctx context.Context, key, contentType string, body []byte) error
	PresignGet(ctx context.Context, key string) (string, time.Time, error)
}

type Transcript struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	OwnerID     string              `json:"ownerId"`
	Members     []string            `json:"members"`
	Visibility  string              `json:"visibility"`
	CreatedAt   time.Time           `json:"createdAt"`
	ExportedAt  time.Time           `json:"exportedAt"`
	Messages    []TranscriptMessage `json:"messages"`
}

type TranscriptMessage struct {
	ID       string    `json:"id"`
	SenderID string    `json:"senderId"`
	Content  *string   `json:"content"`
	Date     time.Time `json:"date"`
}

type ExportResult struct {
	Key       string
	URL       string
	ExpiresAt time.Time
}

type ExportService struct {
	conversations repository.ConversationReader
	store         TranscriptStore
	now           func() time.Time
}

// NewExportService accepts a nil store; every export then fails with
// ErrServiceUnavailable.
func NewExportService(conversations repository.ConversationReader, store TranscriptStore) *ExportService {
	return &ExportService{conversations: conversations, store: store, now: time.Now}
}

// ExportConversation uploads a JSON transcript of the conversation and
// returns a presigned link to it. Only the owner may export; anyone else
// gets a nil result.
func (s *ExportService) ExportConversation(ctx context.Context, requesterID, conversationID string) (*ExportResult, error) {
	if s.store == nil {
		return nil, rancho_errors.ErrServiceUnavailable
	}

	c, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if c == nil || c.OwnerID != requesterID {
		return nil, nil
	}

	exportedAt := s.now().UTC()
	body, err := json.Marshal(buildTranscript(c, exportedAt))
	if err != nil {
		return nil, fmt.Errorf("encode transcript: %w", err)
	}

	key := fmt.Sprintf("transcripts/%s/%d.json", c.ID, exportedAt.Unix())
	if err := s.store.PutObject(ctx, key, "application/json", body); err != nil {
		return nil, fmt.Errorf("upload transcript: %w", err)
	}
	url, expiresAt, err := s.store.PresignGet(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("presign transcript: %w", err)
	}

	return &ExportResult{Key: key, URL: url, ExpiresAt: expiresAt}, nil
}

func buildTranscript(c *conversation.Conversation, exportedAt time.Time) Transcript {
	t := Transcript{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		OwnerID:     c.OwnerID,
		Members:     c.MemberUserIDs,
		Visibility:  c.Visibility,
		CreatedAt:   c.CreatedAt,
		ExportedAt:  exportedAt,
		Messages:    make([]TranscriptMessage, 0, len(c.Messages)),
	}
	if t.Members == nil {
		t.Members = []string{}
	}
	for _, m := range c.Messages {
		t.Messages = append(t.Messages, TranscriptMessage{
			ID:       m.ID,
			SenderID: m.SenderID,
			Content:  m.Content,
			Date:     m.Date,
		})
	}
	return t
}
