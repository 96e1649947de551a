package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"rancho-chat/internal/domain/message"
)

// Messages are stored in their own table but addressed through the
// conversation repository, mirroring the embedded document layout.

const messageColumns = `id, conversation_id, sender_id, content, sent_at`

func (r *PostgresConversationRepository) ListAllMessages(ctx context.Context, conversationID string) ([]message.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE conversation_id = $1
		ORDER BY sent_at, id`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := []message.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

func (r *PostgresConversationRepository) SaveMessage(ctx context.Context, d message.Draft) (string, error) {
	id := newID()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, content, sent_at)
		VALUES ($1, $2, $3, $4, $5)`,
		id, d.ConversationID, d.SenderID, d.Content, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("save message: %w", err)
	}
	return id, nil
}

func (r *PostgresConversationRepository) GetMessageByID(ctx context.Context, messageID, conversationID string) (*message.Message, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE id = $1 AND conversation_id = $2`, messageID, conversationID)
	return getMessage(row)
}

func (r *PostgresConversationRepository) FindMessage(ctx context.Context, messageID string) (*message.Message, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = $1`, messageID)
	return getMessage(row)
}

func (r *PostgresConversationRepository) RemoveMessageContent(ctx context.Context, messageID, conversationID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE messages SET content = NULL WHERE id = $1 AND conversation_id = $2`, messageID, conversationID)
	if err != nil {
		return false, fmt.Errorf("remove message content: %w", err)
	}
	return affectedOne(res)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMessage(row rowScanner) (message.Message, error) {
	var (
		m       message.Message
		content sql.NullString
	)
	if err := row.Scan(&m.ID, &m.ConversationID, &m.SenderID, &content, &m.Date); err != nil {
		return message.Message{}, err
	}
	if content.Valid {
		m.Content = &content.String
	}
	return m, nil
}

func getMessage(row *sql.Row) (*message.Message, error) {
	m, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get message: %w", err)
	}
	return &m, nil
}
