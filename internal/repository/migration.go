package repository

import (
	"context"
	"fmt"
)

// Constraint names the repositories turn into policy outcomes.
const (
	accountEmailConstraint = "accounts_email_key"
	pendingInvitationIndex = "uq_invitations_pending"
)

// schemaStatements are idempotent and applied in order.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		email         TEXT NOT NULL CONSTRAINT accounts_email_key UNIQUE,
		password_hash TEXT NOT NULL,
		access_token  TEXT,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_accounts_access_token ON accounts (access_token)`,
	`CREATE TABLE IF NOT EXISTS account_roles (
		account_id TEXT NOT NULL REFERENCES accounts (id) ON DELETE CASCADE,
		role       TEXT NOT NULL,
		PRIMARY KEY (account_id, role)
	)`,
	`CREATE TABLE IF NOT EXISTS conversations (
		id              TEXT PRIMARY KEY,
		name            TEXT NOT NULL,
		description     TEXT NOT NULL DEFAULT '',
		owner_id        TEXT NOT NULL,
		visibility      TEXT NOT NULL DEFAULT 'public' CHECK (visibility IN ('public', 'private')),
		invitation_code INTEGER NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_conversations_owner ON conversations (owner_id)`,
	`CREATE TABLE IF NOT EXISTS conversation_members (
		conversation_id TEXT NOT NULL REFERENCES conversations (id) ON DELETE CASCADE,
		user_id         TEXT NOT NULL,
		position        BIGSERIAL,
		PRIMARY KEY (conversation_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id              TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL REFERENCES conversations (id) ON DELETE CASCADE,
		sender_id       TEXT NOT NULL,
		content         TEXT,
		sent_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages (conversation_id, sent_at)`,
	`CREATE TABLE IF NOT EXISTS invitations (
		id              TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL REFERENCES conversations (id) ON DELETE CASCADE,
		user_id         TEXT NOT NULL,
		status          TEXT NOT NULL CHECK (status IN ('pending', 'accepted', 'declined')),
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_invitations_user ON invitations (user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_invitations_conversation ON invitations (conversation_id)`,
	// At most one pending request per user and conversation.
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_invitations_pending
		ON invitations (user_id, conversation_id) WHERE status = 'pending'`,
}

// Tables lists the tables created by InitSchema.
var Tables = []string{"accounts", "account_roles", "conversations", "conversation_members", "messages", "invitations"}

// InitSchema creates the relational schema used by the Postgres repositories.
func InitSchema(ctx context.Context, db DBTX) error {
	return WithTx(ctx, db, func(tx DBTX) error {
		for i, stmt := range schemaStatements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("schema statement %d: %w", i+1, err)
			}
		}
		return nil
	})
}
