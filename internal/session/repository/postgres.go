package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"medportal/backend/internal/device"
	"medportal/backend/internal/session/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const sessionColumns = `id, account_id, device_class, ip_address, user_agent, fingerprint, is_active, created_at, last_activity_at, updated_at`

// GetByID returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	s, err := scanSession(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// ListActiveByAccount returns the account's active sessions, least recently
// active first. Returns (nil, error) only on database errors.
func (r *PostgresRepository) ListActiveByAccount(ctx context.Context, accountID string) ([]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE account_id = $1 AND is_active
		ORDER BY last_activity_at ASC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Create persists the session to the database. The session must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, account_id, device_class, ip_address, user_agent, fingerprint, is_active, created_at, last_activity_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		s.ID, s.AccountID, string(s.DeviceClass), s.IPAddress, s.UserAgent, s.Fingerprint,
		s.IsActive, s.CreatedAt, s.LastActivityAt, s.UpdatedAt,
	)
	return err
}

// Deactivate marks the session inactive. Returns an error if the update fails.
func (r *PostgresRepository) Deactivate(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET is_active = FALSE, updated_at = $2 WHERE id = $1`, id, at)
	return err
}

// DeactivateAllForAccount marks every active session for the account inactive.
func (r *PostgresRepository) DeactivateAllForAccount(ctx context.Context, accountID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET is_active = FALSE, updated_at = $2 WHERE account_id = $1 AND is_active`, accountID, at)
	return err
}

// DeactivateAllForAccountTx is DeactivateAllForAccount inside the caller's transaction.
func (r *PostgresRepository) DeactivateAllForAccountTx(ctx context.Context, tx *sql.Tx, accountID string, at time.Time) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE sessions SET is_active = FALSE, updated_at = $2 WHERE account_id = $1 AND is_active`, accountID, at)
	return err
}

// UpdateLastActivity sets the session's last-activity timestamp for the given id.
func (r *PostgresRepository) UpdateLastActivity(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET last_activity_at = $2, updated_at = $2 WHERE id = $1`, id, at)
	return err
}

func scanSession(scan func(dest ...any) error) (*domain.Session, error) {
	var s domain.Session
	var class string
	if err := scan(&s.ID, &s.AccountID, &class, &s.IPAddress, &s.UserAgent, &s.Fingerprint,
		&s.IsActive, &s.CreatedAt, &s.LastActivityAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.DeviceClass = device.Class(class)
	return &s, nil
}
