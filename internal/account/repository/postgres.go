package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"medportal/backend/internal/account/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an account repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const accountColumns = `id, email, name, password_hash, is_suspended, suspended_at, suspension_reason, created_at, updated_at`

// GetByID returns the account for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

// GetByEmail returns the account for email, or nil if not found.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
	return scanAccount(row)
}

// Create persists the account to the database. The account must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.Account) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (id, email, name, password_hash, is_suspended, suspended_at, suspension_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.Email, a.Name, a.PasswordHash, a.IsSuspended,
		timeToNullTime(a.SuspendedAt),
		sql.NullString{String: a.SuspensionReason, Valid: a.SuspensionReason != ""},
		a.CreatedAt, a.UpdatedAt,
	)
	return err
}

// MarkSuspendedTx flags the account suspended inside tx. When the account is
// already suspended the original timestamp and reason are kept, so a repeated
// suspension is a no-op here while the caller still revokes sessions.
func (r *PostgresRepository) MarkSuspendedTx(ctx context.Context, tx *sql.Tx, id, reason string, at time.Time) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET is_suspended = TRUE,
		    suspended_at = COALESCE(suspended_at, $2),
		    suspension_reason = COALESCE(suspension_reason, $3),
		    updated_at = $2
		WHERE id = $1`,
		id, at, reason,
	)
	return err
}

func scanAccount(row *sql.Row) (*domain.Account, error) {
	var a domain.Account
	var suspendedAt sql.NullTime
	var reason sql.NullString
	err := row.Scan(&a.ID, &a.Email, &a.Name, &a.PasswordHash, &a.IsSuspended, &suspendedAt, &reason, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if suspendedAt.Valid {
		a.SuspendedAt = &suspendedAt.Time
	}
	if reason.Valid {
		a.SuspensionReason = reason.String
	}
	return &a, nil
}

func timeToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
