package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"rancho-chat/internal/domain/account"
)

type PostgresAccountRepository struct {
	db DBTX
}

func NewAccountRepository(db DBTX) AccountRepository {
	return &PostgresAccountRepository{db: db}
}

func (r *PostgresAccountRepository) CheckByID(ctx context.Context, id string) (bool, error) {
	found, err := exists(ctx, r.db, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, id)
	if err != nil {
		return false, fmt.Errorf("check account: %w", err)
	}
	return found, nil
}

func (r *PostgresAccountRepository) CheckByEmail(ctx context.Context, email string) (bool, error) {
	found, err := exists(ctx, r.db, `SELECT EXISTS (SELECT 1 FROM accounts WHERE email = $1)`, email)
	if err != nil {
		return false, fmt.Errorf("check account email: %w", err)
	}
	return found, nil
}

func (r *PostgresAccountRepository) GetAccountByEmail(ctx context.Context, email string) (*account.Account, error) {
	var (
		a     account.Account
		token sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, access_token, created_at
		FROM accounts WHERE email = $1`, email).
		Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &token, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account by email: %w", err)
	}
	if token.Valid {
		a.AccessToken = &token.String
	}
	return &a, nil
}

// AddNewAccount returns false when the email is already taken.
func (r *PostgresAccountRepository) AddNewAccount(ctx context.Context, a account.Account) (bool, error) {
	if a.ID == "" {
		a.ID = newID()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	err := WithTx(ctx, r.db, func(tx DBTX) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO accounts (id, name, email, password_hash, created_at)
			VALUES ($1, $2, $3, $4, $5)`,
			a.ID, a.Name, a.Email, a.PasswordHash, a.CreatedAt); err != nil {
			return err
		}
		for _, role := range a.Roles {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO account_roles (account_id, role) VALUES ($1, $2)`, a.ID, role); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err, accountEmailConstraint) {
			return false, nil
		}
		return false, fmt.Errorf("add account: %w", err)
	}
	return true, nil
}

func (r *PostgresAccountRepository) UpdateAccessToken(ctx context.Context, id, token string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE accounts SET access_token = $2 WHERE id = $1`, id, token); err != nil {
		return fmt.Errorf("update access token: %w", err)
	}
	return nil
}

// GetAccountByToken matches the stored token. A non-empty role must be held
// by the account, or the account must be an admin.
func (r *PostgresAccountRepository) GetAccountByToken(ctx context.Context, token, role string) (*account.Account, error) {
	var a account.Account
	err := r.db.QueryRowContext(ctx, `
		SELECT a.id, a.name, a.email
		FROM accounts a
		WHERE a.access_token = $1
		  AND ($2 = '' OR EXISTS (
			SELECT 1 FROM account_roles ar
			WHERE ar.account_id = a.id AND ar.role IN ($2, $3)))`,
		token, role, account.RoleAdmin).
		Scan(&a.ID, &a.Name, &a.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account by token: %w", err)
	}
	return &a, nil
}
