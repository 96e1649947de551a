package repository

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"time"

	"rancho-chat/internal/domain/conversation"
)

type PostgresConversationRepository struct {
	db DBTX
}

func NewConversationRepository(db DBTX) ConversationRepository {
	return &PostgresConversationRepository{db: db}
}

// Save stores a new conversation with its owner as the first member.
func (r *PostgresConversationRepository) Save(ctx context.Context, d conversation.Details) (string, error) {
	id := newID()
	visibility := d.Visibility
	if visibility == "" {
		visibility = conversation.VisibilityPublic
	}
	code, err := newInvitationCode()
	if err != nil {
		return "", err
	}

	err = WithTx(ctx, r.db, func(tx DBTX) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO conversations (id, name, description, owner_id, visibility, invitation_code, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			id, d.Name, d.Description, d.OwnerID, visibility, code, time.Now().UTC()); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO conversation_members (conversation_id, user_id) VALUES ($1, $2)`, id, d.OwnerID)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("save conversation: %w", err)
	}
	return id, nil
}

func (r *PostgresConversationRepository) Remove(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("remove conversation: %w", err)
	}
	return affectedOne(res)
}

func (r *PostgresConversationRepository) CheckByID(ctx context.Context, id string) (bool, error) {
	found, err := exists(ctx, r.db, `SELECT EXISTS (SELECT 1 FROM conversations WHERE id = $1)`, id)
	if err != nil {
		return false, fmt.Errorf("check conversation: %w", err)
	}
	return found, nil
}

func (r *PostgresConversationRepository) GetByID(ctx context.Context, id string) (*conversation.Conversation, error) {
	var p conversation.Preview
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, description, owner_id, visibility, invitation_code, created_at
		FROM conversations WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.OwnerID, &p.Visibility, &p.InvitationCode, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}

	members, err := r.ListUserIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	p.MemberUserIDs = members

	messages, err := r.ListAllMessages(ctx, id)
	if err != nil {
		return nil, err
	}
	return &conversation.Conversation{Preview: p, Messages: messages}, nil
}

func (r *PostgresConversationRepository) ListAllConversations(ctx context.Context, ownerID string) ([]conversation.Preview, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description, owner_id, visibility, invitation_code, created_at
		FROM conversations WHERE owner_id = $1
		ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	previews := []conversation.Preview{}
	index := map[string]int{}
	for rows.Next() {
		var p conversation.Preview
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.OwnerID, &p.Visibility, &p.InvitationCode, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		p.MemberUserIDs = []string{}
		index[p.ID] = len(previews)
		previews = append(previews, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	if len(previews) == 0 {
		return previews, nil
	}

	args := make([]interface{}, len(previews))
	for i, p := range previews {
		args[i] = p.ID
	}
	memberRows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT conversation_id, user_id FROM conversation_members
		WHERE conversation_id IN (%s)
		ORDER BY position`, placeholders(1, len(args))), args...)
	if err != nil {
		return nil, fmt.Errorf("list conversation members: %w", err)
	}
	defer memberRows.Close()

	for memberRows.Next() {
		var conversationID, userID string
		if err := memberRows.Scan(&conversationID, &userID); err != nil {
			return nil, fmt.Errorf("scan conversation member: %w", err)
		}
		if i, ok := index[conversationID]; ok {
			previews[i].MemberUserIDs = append(previews[i].MemberUserIDs, userID)
		}
	}
	if err := memberRows.Err(); err != nil {
		return nil, fmt.Errorf("list conversation members: %w", err)
	}
	return previews, nil
}

func (r *PostgresConversationRepository) ListUserIDs(ctx context.Context, conversationID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id FROM conversation_members
		WHERE conversation_id = $1
		ORDER BY position`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return ids, nil
}

func (r *PostgresConversationRepository) RemoveUserID(ctx context.Context, userID, conversationID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM conversation_members WHERE conversation_id = $1 AND user_id = $2`, conversationID, userID)
	if err != nil {
		return false, fmt.Errorf("remove member: %w", err)
	}
	return affectedOne(res)
}

// AddUserID returns false when the user is already a member.
func (r *PostgresConversationRepository) AddUserID(ctx context.Context, userID, conversationID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO conversation_members (conversation_id, user_id) VALUES ($1, $2)
		ON CONFLICT (conversation_id, user_id) DO NOTHING`, conversationID, userID)
	if err != nil {
		return false, fmt.Errorf("add member: %w", err)
	}
	return affectedOne(res)
}

// newInvitationCode returns a random six digit code.
func newInvitationCode() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return 0, fmt.Errorf("invitation code: %w", err)
	}
	return int(n.Int64()) + 100000, nil
}
