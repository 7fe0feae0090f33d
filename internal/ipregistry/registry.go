// Package ipregistry tracks the distinct IP addresses each account has logged
// in from and reports when a login crosses the account's new-IP count.
package ipregistry

import (
	"context"
	"fmt"
	"time"

	"medportal/backend/internal/device"
	"medportal/backend/internal/ipregistry/repository"
)

// LoginRecord is the outcome of registering one login IP.
type LoginRecord struct {
	// IsNewIP is true when this login is the first from its IP for the account.
	IsNewIP bool
	// DistinctIPs is the account's distinct-IP count including this login.
	DistinctIPs int
}

// Registry records login IPs per account.
type Registry struct {
	repo repository.Repository
	nowF func() time.Time
}

// NewRegistry returns a Registry persisting through repo.
func NewRegistry(repo repository.Repository) *Registry {
	return &Registry{
		repo: repo,
		nowF: func() time.Time { return time.Now().UTC() },
	}
}

// RegisterLogin upserts the (accountID, ip) record and returns whether the IP
// is new for the account along with the resulting distinct-IP count. Storage
// errors propagate; nothing is swallowed here.
func (r *Registry) RegisterLogin(ctx context.Context, accountID, ip string, class device.Class, userAgent string) (*LoginRecord, error) {
	isNew, err := r.repo.Record(ctx, accountID, ip, class, userAgent, r.nowF())
	if err != nil {
		return nil, fmt.Errorf("ipregistry: record %s for %s: %w", ip, accountID, err)
	}
	n, err := r.repo.CountDistinct(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("ipregistry: count for %s: %w", accountID, err)
	}
	return &LoginRecord{IsNewIP: isNew, DistinctIPs: n}, nil
}
