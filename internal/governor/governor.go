// Package governor decides, on each login, whether the session may be
// created, which existing sessions to evict, or whether the account must be
// suspended outright. Per account it allows at most one mobile-class session
// (mobile or tablet) and one desktop session, and suspends accounts whose
// distinct login-IP count crosses the configured threshold.
package governor

import (
	"context"
	"errors"
	"fmt"
	"time"

	accountdomain "medportal/backend/internal/account/domain"
	"medportal/backend/internal/audit"
	"medportal/backend/internal/device"
	"medportal/backend/internal/ipregistry"
	sessiondomain "medportal/backend/internal/session/domain"
)

// Sentinel errors for login decisions; the handler maps them to HTTP statuses.
var (
	// ErrAccountSuspended denies the login terminally; the user must contact support.
	ErrAccountSuspended = errors.New("account suspended")
	// ErrTooManyDevices denies the login and reports that every session for the
	// account was revoked; the user must authenticate again from scratch.
	ErrTooManyDevices = errors.New("too many devices; all sessions logged out")
	// ErrAccountNotFound is returned when the account id does not resolve.
	ErrAccountNotFound = errors.New("account not found")
)

// Per-bucket caps. Tablet shares the mobile bucket.
const (
	maxMobileSessions  = 1
	maxDesktopSessions = 1
)

// DefaultMaxUniqueIPs is the distinct-IP threshold above which an account is
// auto-suspended.
const DefaultMaxUniqueIPs = 3

// AccountRepo is the minimal account repository needed by the governor.
type AccountRepo interface {
	GetByID(ctx context.Context, id string) (*accountdomain.Account, error)
}

// SessionRepo is the minimal session repository needed by the governor.
type SessionRepo interface {
	ListActiveByAccount(ctx context.Context, accountID string) ([]*sessiondomain.Session, error)
	Deactivate(ctx context.Context, id string, at time.Time) error
	DeactivateAllForAccount(ctx context.Context, accountID string, at time.Time) error
}

// IPRegistry registers login IPs and reports the distinct count.
type IPRegistry interface {
	RegisterLogin(ctx context.Context, accountID, ip string, class device.Class, userAgent string) (*ipregistry.LoginRecord, error)
}

// Suspender atomically suspends an account and revokes its sessions.
type Suspender interface {
	Suspend(ctx context.Context, accountID, reason string) error
}

// Decision is the outcome of an allowed login. The caller creates the session
// after receiving it; the governor only authorizes and evicts.
type Decision struct {
	DeviceClass   device.Class
	IP            string
	UniqueIPs     int
	ActiveMobile  int // active mobile-class sessions after any eviction
	ActiveDesktop int // active desktop sessions after any eviction
	// EvictedSessionID is the session deactivated to make room, if any.
	EvictedSessionID string
}

// Governor evaluates login attempts against the account's active sessions and
// IP history.
type Governor struct {
	accounts     AccountRepo
	sessions     SessionRepo
	registry     IPRegistry
	suspender    Suspender
	auditLog     audit.AuditLogger
	maxUniqueIPs int
	locks        *keyedMutex
	nowF         func() time.Time
}

// NewGovernor returns a Governor. maxUniqueIPs <= 0 selects
// DefaultMaxUniqueIPs. auditLog may be nil; then decisions are not audited.
func NewGovernor(accounts AccountRepo, sessions SessionRepo, registry IPRegistry, suspender Suspender, auditLog audit.AuditLogger, maxUniqueIPs int) *Governor {
	if maxUniqueIPs <= 0 {
		maxUniqueIPs = DefaultMaxUniqueIPs
	}
	return &Governor{
		accounts:     accounts,
		sessions:     sessions,
		registry:     registry,
		suspender:    suspender,
		auditLog:     auditLog,
		maxUniqueIPs: maxUniqueIPs,
		locks:        newKeyedMutex(),
		nowF:         func() time.Time { return time.Now().UTC() },
	}
}

// EvaluateLogin runs the login policy for the account. currentSessionID is the
// id the caller intends to create or claim; an existing active session with
// that id is not counted against the caps.
//
// Order matters: the suspension check runs before any write, the IP is
// registered before the threshold suspension fires (an over-threshold IP stays
// recorded as known), and only then are the device buckets inspected.
func (g *Governor) EvaluateLogin(ctx context.Context, accountID, ip, userAgent, currentSessionID string) (*Decision, error) {
	acc, err := g.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("governor: load account %s: %w", accountID, err)
	}
	if acc == nil {
		return nil, ErrAccountNotFound
	}
	if acc.IsSuspended {
		return nil, fmt.Errorf("%w: %s", ErrAccountSuspended, acc.SuspensionReason)
	}

	class := device.Classify(userAgent)

	rec, err := g.registry.RegisterLogin(ctx, accountID, ip, class, userAgent)
	if err != nil {
		return nil, err
	}
	if rec.DistinctIPs > g.maxUniqueIPs {
		reason := fmt.Sprintf("exceeded %d unique IP threshold", g.maxUniqueIPs)
		if err := g.suspender.Suspend(ctx, accountID, reason); err != nil {
			return nil, err
		}
		if g.auditLog != nil {
			g.auditLog.LogEvent(ctx, accountID, "account.auto_suspend", "login",
				fmt.Sprintf("ip=%s distinct=%d", ip, rec.DistinctIPs))
		}
		return nil, fmt.Errorf("%w: %s", ErrAccountSuspended, reason)
	}

	// The read-decide-write below is serialized per account so two concurrent
	// logins cannot both pass the bucket check.
	unlock := g.locks.lock(accountID)
	defer unlock()

	active, err := g.sessions.ListActiveByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("governor: list sessions for %s: %w", accountID, err)
	}

	var sameBucket, otherBucket []*sessiondomain.Session
	for _, s := range active {
		if s.ID == currentSessionID {
			continue
		}
		if s.DeviceClass.MobileBucket() == class.MobileBucket() {
			sameBucket = append(sameBucket, s)
		} else {
			otherBucket = append(otherBucket, s)
		}
	}

	sameCap, otherCap := maxDesktopSessions, maxMobileSessions
	if class.MobileBucket() {
		sameCap, otherCap = maxMobileSessions, maxDesktopSessions
	}

	now := g.nowF()

	if len(sameBucket) >= sameCap && len(otherBucket) >= otherCap {
		// Both slots full and a further device is pressing in: wipe everything.
		if err := g.sessions.DeactivateAllForAccount(ctx, accountID, now); err != nil {
			return nil, fmt.Errorf("governor: mass logout for %s: %w", accountID, err)
		}
		if g.auditLog != nil {
			g.auditLog.LogEvent(ctx, accountID, "session.mass_logout", "login",
				fmt.Sprintf("ip=%s class=%s", ip, class))
		}
		return nil, ErrTooManyDevices
	}

	evicted := ""
	if len(sameBucket) >= sameCap {
		// ListActiveByAccount orders by last_activity_at ascending, so the
		// head of the bucket is the least recently active session.
		victim := sameBucket[0]
		for _, s := range sameBucket[1:] {
			if s.LastActivityAt.Before(victim.LastActivityAt) {
				victim = s
			}
		}
		if err := g.sessions.Deactivate(ctx, victim.ID, now); err != nil {
			return nil, fmt.Errorf("governor: evict session %s: %w", victim.ID, err)
		}
		evicted = victim.ID
		if g.auditLog != nil {
			g.auditLog.LogEvent(ctx, accountID, "session.evict", "login",
				fmt.Sprintf("evicted=%s class=%s", victim.ID, victim.DeviceClass))
		}
	}

	d := &Decision{
		DeviceClass:      class,
		IP:               ip,
		UniqueIPs:        rec.DistinctIPs,
		EvictedSessionID: evicted,
	}
	for _, s := range append(sameBucket, otherBucket...) {
		if s.ID == evicted {
			continue
		}
		if s.DeviceClass.MobileBucket() {
			d.ActiveMobile++
		} else {
			d.ActiveDesktop++
		}
	}
	return d, nil
}
