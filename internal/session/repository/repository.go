package repository

import (
	"context"
	"database/sql"
	"time"

	"medportal/backend/internal/session/domain"
)

// Repository defines persistence for sessions.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	// ListActiveByAccount returns active sessions for the account ordered by
	// last_activity_at ascending, so index 0 is the eviction candidate.
	ListActiveByAccount(ctx context.Context, accountID string) ([]*domain.Session, error)
	Create(ctx context.Context, s *domain.Session) error
	Deactivate(ctx context.Context, id string, at time.Time) error
	DeactivateAllForAccount(ctx context.Context, accountID string, at time.Time) error
	// DeactivateAllForAccountTx is the transactional variant used by the
	// suspension service so the revoke commits with the suspended flag.
	DeactivateAllForAccountTx(ctx context.Context, tx *sql.Tx, accountID string, at time.Time) error
	UpdateLastActivity(ctx context.Context, id string, at time.Time) error
}
