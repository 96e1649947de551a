package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX abstracts *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

const pgUniqueViolation = "23505"

// isUniqueViolation matches a unique constraint hit, optionally on one named
// constraint only.
func isUniqueViolation(err error, constraint ...string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return false
	}
	return len(constraint) == 0 || slices.Contains(constraint, pgErr.ConstraintName)
}

// placeholders renders "$start,...,$start+count-1".
func placeholders(start, count int) string {
	var b strings.Builder
	for i := range count {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString("$" + strconv.Itoa(start+i))
	}
	return b.String()
}

// affectedOne reports whether exactly one row was touched.
func affectedOne(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func exists(ctx context.Context, db DBTX, query string, args ...interface{}) (bool, error) {
	var found bool
	if err := db.QueryRowContext(ctx, query, args...).Scan(&found); err != nil {
		return false, err
	}
	return found, nil
}

func newID() string {
	return uuid.NewString()
}

// WithTx runs fn in a transaction. Nested calls join the caller's *sql.Tx.
func WithTx(ctx context.Context, db DBTX, fn func(DBTX) error) error {
	switch conn := db.(type) {
	case *sql.Tx:
		return fn(conn)
	case *sql.DB:
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		if err := fn(tx); err != nil {
			return errors.Join(err, ignoreDone(tx.Rollback()))
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		return nil
	case nil:
		return errors.New("database not initialized")
	default:
		return fmt.Errorf("unsupported db type %T", db)
	}
}

func ignoreDone(err error) error {
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}
