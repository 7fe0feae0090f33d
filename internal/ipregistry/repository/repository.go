package repository

import (
	"context"
	"time"

	"medportal/backend/internal/device"
	"medportal/backend/internal/ipregistry/domain"
)

// Repository defines persistence for per-account known IPs.
type Repository interface {
	// Record upserts the (accountID, ip) row: inserts with login_count 1 or
	// increments login_count and refreshes last_seen, device_class and
	// user_agent. Returns whether the row was newly inserted.
	Record(ctx context.Context, accountID, ip string, class device.Class, userAgent string, at time.Time) (isNew bool, err error)
	// CountDistinct returns the number of distinct IPs recorded for the account.
	CountDistinct(ctx context.Context, accountID string) (int, error)
	// ListByAccount returns the account's known IPs, most recently seen first.
	ListByAccount(ctx context.Context, accountID string) ([]*domain.KnownIP, error)
}
