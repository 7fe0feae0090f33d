package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	accountdomain "medportal/backend/internal/account/domain"
	"medportal/backend/internal/device"
	"medportal/backend/internal/governor"
	"medportal/backend/internal/security"
	sessiondomain "medportal/backend/internal/session/domain"
)

const (
	uaIPhone  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 Mobile/15E148"
	uaChrome  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120.0 Safari/537.36"
	goodPass  = "Str0ng!Password"
	wrongPass = "Wr0ng!Password9"
)

type memAuthAccountRepo struct {
	byEmail map[string]*accountdomain.Account
}

func newMemAuthAccountRepo() *memAuthAccountRepo {
	return &memAuthAccountRepo{byEmail: map[string]*accountdomain.Account{}}
}

func (m *memAuthAccountRepo) GetByEmail(ctx context.Context, email string) (*accountdomain.Account, error) {
	return m.byEmail[email], nil
}

func (m *memAuthAccountRepo) Create(ctx context.Context, a *accountdomain.Account) error {
	m.byEmail[a.Email] = a
	return nil
}

type memAuthSessionRepo struct {
	sessions map[string]*sessiondomain.Session
}

func newMemAuthSessionRepo() *memAuthSessionRepo {
	return &memAuthSessionRepo{sessions: map[string]*sessiondomain.Session{}}
}

func (m *memAuthSessionRepo) GetByID(ctx context.Context, id string) (*sessiondomain.Session, error) {
	return m.sessions[id], nil
}

func (m *memAuthSessionRepo) ListActiveByAccount(ctx context.Context, accountID string) ([]*sessiondomain.Session, error) {
	var out []*sessiondomain.Session
	for _, s := range m.sessions {
		if s.AccountID == accountID && s.IsActive {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memAuthSessionRepo) Create(ctx context.Context, s *sessiondomain.Session) error {
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *memAuthSessionRepo) Deactivate(ctx context.Context, id string, at time.Time) error {
	if s, ok := m.sessions[id]; ok {
		s.IsActive = false
		s.UpdatedAt = at
	}
	return nil
}

func (m *memAuthSessionRepo) UpdateLastActivity(ctx context.Context, id string, at time.Time) error {
	s, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("session %s not found", id)
	}
	s.LastActivityAt = at
	return nil
}

// stubGovernor returns a fixed decision or error, recording the last call.
type stubGovernor struct {
	decision *governor.Decision
	err      error

	gotAccountID string
	gotIP        string
	gotUserAgent string
}

func (g *stubGovernor) EvaluateLogin(ctx context.Context, accountID, ip, userAgent, currentSessionID string) (*governor.Decision, error) {
	g.gotAccountID = accountID
	g.gotIP = ip
	g.gotUserAgent = userAgent
	if g.err != nil {
		return nil, g.err
	}
	if g.decision != nil {
		return g.decision, nil
	}
	return &governor.Decision{DeviceClass: device.Classify(userAgent), IP: ip}, nil
}

func newTestAuthService(t *testing.T) (*AuthService, *memAuthAccountRepo, *memAuthSessionRepo, *stubGovernor) {
	t.Helper()
	accounts := newMemAuthAccountRepo()
	sessions := newMemAuthSessionRepo()
	gov := &stubGovernor{}
	hasher := security.NewHasher(4)
	tokens := security.NewTokenProvider([]byte("test-secret"), "medportal", "medportal-api", 15*time.Minute)
	return NewAuthService(accounts, sessions, gov, hasher, tokens, nil), accounts, sessions, gov
}

func TestRegister_CreatesAccount(t *testing.T) {
	svc, accounts, _, _ := newTestAuthService(t)

	res, err := svc.Register(context.Background(), "Ana@Example.COM", goodPass, "Ana")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if res.AccountID == "" {
		t.Fatal("expected account id")
	}
	acc := accounts.byEmail["ana@example.com"]
	if acc == nil {
		t.Fatal("expected account stored under normalized email")
	}
	if acc.PasswordHash == goodPass || acc.PasswordHash == "" {
		t.Fatal("expected password to be hashed")
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _, _, _ := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "ana@example.com", goodPass, "Ana"); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	_, err := svc.Register(ctx, "ana@example.com", goodPass, "Ana")
	if !errors.Is(err, ErrEmailAlreadyRegistered) {
		t.Fatalf("expected ErrEmailAlreadyRegistered, got %v", err)
	}
}

func TestRegister_RejectsWeakPassword(t *testing.T) {
	svc, _, _, _ := newTestAuthService(t)
	for _, pass := range []string{"short", "alllowercase1!aaa", "ALLUPPERCASE1!AAA", "NoNumbersHere!!", "NoSymbolsHere123"} {
		if _, err := svc.Register(context.Background(), "ana@example.com", pass, "Ana"); err == nil {
			t.Fatalf("expected rejection for password %q", pass)
		}
	}
}

func TestRegister_RejectsBadEmail(t *testing.T) {
	svc, _, _, _ := newTestAuthService(t)
	for _, email := range []string{"", "not-an-email", "missing@tld", "@example.com"} {
		if _, err := svc.Register(context.Background(), email, goodPass, "Ana"); err == nil {
			t.Fatalf("expected rejection for email %q", email)
		}
	}
}

func TestLogin_CreatesSessionAndToken(t *testing.T) {
	svc, _, sessions, gov := newTestAuthService(t)
	ctx := context.Background()
	reg, err := svc.Register(ctx, "ana@example.com", goodPass, "Ana")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	res, err := svc.Login(ctx, "ana@example.com", goodPass, "10.0.0.1", uaIPhone, "text/html")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.AccessToken == "" || res.SessionID == "" {
		t.Fatal("expected token and session id")
	}
	if res.AccountID != reg.AccountID {
		t.Fatalf("account id mismatch: %s vs %s", res.AccountID, reg.AccountID)
	}
	if res.DeviceClass != device.ClassMobile {
		t.Fatalf("expected mobile class, got %s", res.DeviceClass)
	}
	if gov.gotAccountID != reg.AccountID || gov.gotIP != "10.0.0.1" {
		t.Fatalf("governor saw account=%s ip=%s", gov.gotAccountID, gov.gotIP)
	}
	sess := sessions.sessions[res.SessionID]
	if sess == nil || !sess.IsActive {
		t.Fatal("expected active stored session")
	}
	if sess.Fingerprint == "" {
		t.Fatal("expected session fingerprint")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, _, _, _ := newTestAuthService(t)
	ctx := context.Background()
	if _, err := svc.Register(ctx, "ana@example.com", goodPass, "Ana"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, err := svc.Login(ctx, "ana@example.com", wrongPass, "10.0.0.1", uaChrome, "")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	svc, _, _, _ := newTestAuthService(t)

	_, err := svc.Login(context.Background(), "nobody@example.com", goodPass, "10.0.0.1", uaChrome, "")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin_PropagatesGovernorDenials(t *testing.T) {
	svc, _, sessions, gov := newTestAuthService(t)
	ctx := context.Background()
	if _, err := svc.Register(ctx, "ana@example.com", goodPass, "Ana"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	for _, want := range []error{governor.ErrAccountSuspended, governor.ErrTooManyDevices} {
		gov.err = want
		_, err := svc.Login(ctx, "ana@example.com", goodPass, "10.0.0.1", uaChrome, "")
		if !errors.Is(err, want) {
			t.Fatalf("expected %v, got %v", want, err)
		}
	}
	if len(sessions.sessions) != 0 {
		t.Fatal("expected no session created on denial")
	}
}

func TestLogout_DeactivatesSession(t *testing.T) {
	svc, _, sessions, _ := newTestAuthService(t)
	ctx := context.Background()
	if _, err := svc.Register(ctx, "ana@example.com", goodPass, "Ana"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	res, err := svc.Login(ctx, "ana@example.com", goodPass, "10.0.0.1", uaIPhone, "")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := svc.Logout(ctx, res.SessionID); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if sessions.sessions[res.SessionID].IsActive {
		t.Fatal("expected session deactivated")
	}
	if err := svc.Logout(ctx, res.SessionID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound on second logout, got %v", err)
	}
}

func TestHeartbeat_UpdatesLastActivity(t *testing.T) {
	svc, _, sessions, _ := newTestAuthService(t)
	ctx := context.Background()
	if _, err := svc.Register(ctx, "ana@example.com", goodPass, "Ana"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	res, err := svc.Login(ctx, "ana@example.com", goodPass, "10.0.0.1", uaIPhone, "")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	later := time.Now().UTC().Add(time.Hour)
	svc.nowF = func() time.Time { return later }

	svc.Heartbeat(ctx, res.SessionID)
	if got := sessions.sessions[res.SessionID].LastActivityAt; !got.Equal(later) {
		t.Fatalf("expected last activity %v, got %v", later, got)
	}

	// unknown session must not panic
	svc.Heartbeat(ctx, "missing")
}
