package repository

import (
	"context"
	"database/sql"
	"time"

	"medportal/backend/internal/account/domain"
)

// Repository defines persistence for accounts.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	Create(ctx context.Context, a *domain.Account) error
	// MarkSuspendedTx flags the account suspended inside the caller's transaction.
	// Keeps the first suspension timestamp and reason when already suspended.
	MarkSuspendedTx(ctx context.Context, tx *sql.Tx, id, reason string, at time.Time) error
}
