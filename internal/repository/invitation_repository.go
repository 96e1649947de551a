package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"rancho-chat/internal/domain/invitation"
	rancho_errors "rancho-chat/pkg/errors"
)

type PostgresInvitationRepository struct {
	db DBTX
}

func NewInvitationRepository(db DBTX) InvitationRepository {
	return &PostgresInvitationRepository{db: db}
}

const invitationColumns = `id, conversation_id, user_id, status, created_at`

func (r *PostgresInvitationRepository) Save(ctx context.Context, inv invitation.Invitation) (string, error) {
	if inv.ID == "" {
		inv.ID = newID()
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO invitations (id, conversation_id, user_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		inv.ID, inv.ConversationID, inv.UserID, inv.Status, inv.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, pendingInvitationIndex) {
			return "", rancho_errors.ErrAlreadyExists
		}
		return "", fmt.Errorf("save invitation: %w", err)
	}
	return inv.ID, nil
}

func (r *PostgresInvitationRepository) Remove(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM invitations WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("remove invitation: %w", err)
	}
	return affectedOne(res)
}

func (r *PostgresInvitationRepository) CheckByID(ctx context.Context, id string) (bool, error) {
	found, err := exists(ctx, r.db, `SELECT EXISTS (SELECT 1 FROM invitations WHERE id = $1)`, id)
	if err != nil {
		return false, fmt.Errorf("check invitation: %w", err)
	}
	return found, nil
}

func (r *PostgresInvitationRepository) UpdateStatus(ctx context.Context, id, status string) (bool, error) {
	if !invitation.ValidStatus(status) {
		return false, rancho_errors.ErrInvalidInput
	}
	res, err := r.db.ExecContext(ctx, `UPDATE invitations SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return false, fmt.Errorf("update invitation status: %w", err)
	}
	return affectedOne(res)
}

func (r *PostgresInvitationRepository) Get(ctx context.Context, id string) (*invitation.Invitation, error) {
	var inv invitation.Invitation
	err := r.db.QueryRowContext(ctx, `SELECT `+invitationColumns+` FROM invitations WHERE id = $1`, id).
		Scan(&inv.ID, &inv.ConversationID, &inv.UserID, &inv.Status, &inv.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invitation: %w", err)
	}
	return &inv, nil
}

func (r *PostgresInvitationRepository) ListUserInvitations(ctx context.Context, userID string) ([]invitation.Invitation, error) {
	return r.list(ctx, `SELECT `+invitationColumns+` FROM invitations WHERE user_id = $1 ORDER BY created_at`, userID)
}

func (r *PostgresInvitationRepository) ListConversationInvitations(ctx context.Context, conversationID string) ([]invitation.Invitation, error) {
	return r.list(ctx, `SELECT `+invitationColumns+` FROM invitations WHERE conversation_id = $1 ORDER BY created_at`, conversationID)
}

func (r *PostgresInvitationRepository) list(ctx context.Context, query string, arg string) ([]invitation.Invitation, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	defer rows.Close()

	invitations := []invitation.Invitation{}
	for rows.Next() {
		var inv invitation.Invitation
		if err := rows.Scan(&inv.ID, &inv.ConversationID, &inv.UserID, &inv.Status, &inv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan invitation: %w", err)
		}
		invitations = append(invitations, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	return invitations, nil
}
