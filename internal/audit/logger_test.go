package audit

import (
	"context"
	"testing"

	"medportal/backend/internal/audit/domain"
)

type memAuditRepo struct {
	entries []*domain.AuditLog
	failErr error
}

func (m *memAuditRepo) GetByID(ctx context.Context, id string) (*domain.AuditLog, error) {
	for _, e := range m.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, nil
}

func (m *memAuditRepo) ListByAccount(ctx context.Context, accountID string, limit, offset int32) ([]*domain.AuditLog, error) {
	var out []*domain.AuditLog
	for _, e := range m.entries {
		if e.AccountID == accountID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memAuditRepo) Create(ctx context.Context, a *domain.AuditLog) error {
	if m.failErr != nil {
		return m.failErr
	}
	m.entries = append(m.entries, a)
	return nil
}

func TestLogEvent_PersistsEntry(t *testing.T) {
	repo := &memAuditRepo{}
	logger := NewLogger(repo, func(context.Context) string { return "203.0.113.9" })

	logger.LogEvent(context.Background(), "acct-1", "session.evict", "login", "evicted=s1")

	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	e := repo.entries[0]
	if e.AccountID != "acct-1" || e.Action != "session.evict" || e.Resource != "login" {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if e.IP != "203.0.113.9" {
		t.Fatalf("expected extracted IP, got %q", e.IP)
	}
	if e.ID == "" || e.CreatedAt.IsZero() {
		t.Fatal("expected ID and CreatedAt to be set")
	}
}

func TestLogEvent_NilExtractorRecordsUnknownIP(t *testing.T) {
	repo := &memAuditRepo{}
	logger := NewLogger(repo, nil)

	logger.LogEvent(context.Background(), "acct-1", "account.suspend", "account", "")

	if got := repo.entries[0].IP; got != "unknown" {
		t.Fatalf("expected unknown IP, got %q", got)
	}
}

func TestLogEvent_EmptyAccountUsesSentinel(t *testing.T) {
	repo := &memAuditRepo{}
	logger := NewLogger(repo, nil)

	logger.LogEvent(context.Background(), "", "auth.login_failure", "auth", "email=x@y.z")

	if got := repo.entries[0].AccountID; got != SentinelAccountID {
		t.Fatalf("expected sentinel account id, got %q", got)
	}
}

func TestLogEvent_RepoFailureDoesNotPanic(t *testing.T) {
	repo := &memAuditRepo{failErr: context.DeadlineExceeded}
	logger := NewLogger(repo, nil)

	logger.LogEvent(context.Background(), "acct-1", "session.mass_logout", "login", "")

	if len(repo.entries) != 0 {
		t.Fatalf("expected no persisted entries, got %d", len(repo.entries))
	}
}
