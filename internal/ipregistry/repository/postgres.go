package repository

import (
	"context"
	"database/sql"
	"time"

	"medportal/backend/internal/device"
	"medportal/backend/internal/ipregistry/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a known-IP repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Record upserts the (accountID, ip) row in a single statement. The returned
// login_count is 1 only for a fresh insert, since the conflict branch always
// increments past 1.
func (r *PostgresRepository) Record(ctx context.Context, accountID, ip string, class device.Class, userAgent string, at time.Time) (bool, error) {
	var loginCount int
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO known_ips (account_id, ip_address, device_class, user_agent, login_count, first_seen, last_seen)
		VALUES ($1, $2, $3, $4, 1, $5, $5)
		ON CONFLICT (account_id, ip_address) DO UPDATE SET
			login_count  = known_ips.login_count + 1,
			last_seen    = EXCLUDED.last_seen,
			device_class = EXCLUDED.device_class,
			user_agent   = EXCLUDED.user_agent
		RETURNING login_count`,
		accountID, ip, string(class), userAgent, at,
	).Scan(&loginCount)
	if err != nil {
		return false, err
	}
	return loginCount == 1, nil
}

// CountDistinct returns the number of distinct IPs recorded for the account.
func (r *PostgresRepository) CountDistinct(ctx context.Context, accountID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM known_ips WHERE account_id = $1`, accountID).Scan(&n)
	return n, err
}

// ListByAccount returns the account's known IPs, most recently seen first.
func (r *PostgresRepository) ListByAccount(ctx context.Context, accountID string) ([]*domain.KnownIP, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT account_id, ip_address, device_class, user_agent, login_count, first_seen, last_seen
		FROM known_ips
		WHERE account_id = $1
		ORDER BY last_seen DESC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.KnownIP
	for rows.Next() {
		var k domain.KnownIP
		var class string
		if err := rows.Scan(&k.AccountID, &k.IPAddress, &class, &k.UserAgent, &k.LoginCount, &k.FirstSeen, &k.LastSeen); err != nil {
			return nil, err
		}
		k.DeviceClass = device.Class(class)
		out = append(out, &k)
	}
	return out, rows.Err()
}
