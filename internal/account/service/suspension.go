// Package service holds the account suspension service: the single writer of
// the suspended flag, always paired with a mass session revoke.
package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"medportal/backend/internal/audit"
	"medportal/backend/internal/db"
)

// AccountRepo is the minimal account repository needed by the suspension service.
type AccountRepo interface {
	MarkSuspendedTx(ctx context.Context, tx *sql.Tx, id, reason string, at time.Time) error
}

// SessionRepo is the minimal session repository needed by the suspension service.
type SessionRepo interface {
	DeactivateAllForAccountTx(ctx context.Context, tx *sql.Tx, accountID string, at time.Time) error
}

// SuspensionService marks an account suspended and revokes all its sessions in
// one transaction. Suspending an already-suspended account keeps the original
// reason and timestamp but still revokes any sessions created since.
type SuspensionService struct {
	runTx    func(ctx context.Context, fn func(tx *sql.Tx) error) error
	accounts AccountRepo
	sessions SessionRepo
	auditLog audit.AuditLogger
	nowF     func() time.Time
}

// NewSuspensionService returns a SuspensionService writing through dbh.
// auditLog may be nil; then suspensions are not audited.
func NewSuspensionService(dbh *sql.DB, accounts AccountRepo, sessions SessionRepo, auditLog audit.AuditLogger) *SuspensionService {
	return &SuspensionService{
		runTx: func(ctx context.Context, fn func(tx *sql.Tx) error) error {
			return db.WithTx(ctx, dbh, fn)
		},
		accounts: accounts,
		sessions: sessions,
		auditLog: auditLog,
		nowF:     func() time.Time { return time.Now().UTC() },
	}
}

// Suspend flags the account suspended with reason and deactivates every active
// session for it. Both writes commit together or not at all; on failure the
// error propagates and the operation is safe to retry.
func (s *SuspensionService) Suspend(ctx context.Context, accountID, reason string) error {
	now := s.nowF()
	err := s.runTx(ctx, func(tx *sql.Tx) error {
		if err := s.accounts.MarkSuspendedTx(ctx, tx, accountID, reason, now); err != nil {
			return fmt.Errorf("suspend account %s: %w", accountID, err)
		}
		if err := s.sessions.DeactivateAllForAccountTx(ctx, tx, accountID, now); err != nil {
			return fmt.Errorf("revoke sessions for %s: %w", accountID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if s.auditLog != nil {
		s.auditLog.LogEvent(ctx, accountID, "account.suspend", "account", reason)
	}
	return nil
}
