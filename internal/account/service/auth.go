package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	accountdomain "medportal/backend/internal/account/domain"
	"medportal/backend/internal/audit"
	"medportal/backend/internal/device"
	"medportal/backend/internal/governor"
	"medportal/backend/internal/security"
	sessiondomain "medportal/backend/internal/session/domain"
)

// Sentinel errors for the auth service; the handler maps them to HTTP codes.
var (
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrSessionNotFound        = errors.New("session not found or inactive")
)

// AuthResult holds the outcome of Register (account_id only) or Login.
type AuthResult struct {
	AccessToken string
	ExpiresAt   time.Time
	AccountID   string
	SessionID   string
	DeviceClass device.Class
}

// AuthAccountRepo is the minimal account repository needed by the auth service.
type AuthAccountRepo interface {
	GetByEmail(ctx context.Context, email string) (*accountdomain.Account, error)
	Create(ctx context.Context, a *accountdomain.Account) error
}

// AuthSessionRepo is the minimal session repository needed by the auth service.
type AuthSessionRepo interface {
	GetByID(ctx context.Context, id string) (*sessiondomain.Session, error)
	ListActiveByAccount(ctx context.Context, accountID string) ([]*sessiondomain.Session, error)
	Create(ctx context.Context, s *sessiondomain.Session) error
	Deactivate(ctx context.Context, id string, at time.Time) error
	UpdateLastActivity(ctx context.Context, id string, at time.Time) error
}

// LoginGovernor decides whether a login may proceed and which session, if
// any, must be evicted first.
type LoginGovernor interface {
	EvaluateLogin(ctx context.Context, accountID, ip, userAgent, currentSessionID string) (*governor.Decision, error)
}

// AuthService implements password register, login, logout, and session listing.
type AuthService struct {
	accounts AuthAccountRepo
	sessions AuthSessionRepo
	governor LoginGovernor
	hasher   *security.Hasher
	tokens   *security.TokenProvider
	auditLog audit.AuditLogger
	nowF     func() time.Time
}

// NewAuthService returns an AuthService with the given dependencies.
// auditLog may be nil; then auth events are not audited.
func NewAuthService(
	accounts AuthAccountRepo,
	sessions AuthSessionRepo,
	gov LoginGovernor,
	hasher *security.Hasher,
	tokens *security.TokenProvider,
	auditLog audit.AuditLogger,
) *AuthService {
	return &AuthService{
		accounts: accounts,
		sessions: sessions,
		governor: gov,
		hasher:   hasher,
		tokens:   tokens,
		auditLog: auditLog,
		nowF:     func() time.Time { return time.Now().UTC() },
	}
}

// Register creates an account with the given email and password.
// Returns AuthResult with AccountID only; the caller must Login to get a token.
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*AuthResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	existing, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailAlreadyRegistered
	}
	hashed, err := s.hasher.Hash([]byte(password))
	if err != nil {
		return nil, err
	}
	now := s.nowF()
	acc := &accountdomain.Account{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hashed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := acc.Validate(); err != nil {
		return nil, err
	}
	if err := s.accounts.Create(ctx, acc); err != nil {
		return nil, err
	}
	if s.auditLog != nil {
		s.auditLog.LogEvent(ctx, acc.ID, "auth.register", "account", "email="+email)
	}
	return &AuthResult{AccountID: acc.ID}, nil
}

// Login authenticates with email/password, runs the login decision for the
// client's IP and user agent, creates a session, and returns an access token.
// Propagates governor.ErrAccountSuspended and governor.ErrTooManyDevices
// unwrapped so the handler can map them.
func (s *AuthService) Login(ctx context.Context, email, password, ip, userAgent, accept string) (*AuthResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	acc, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if acc == nil || acc.PasswordHash == "" {
		s.auditFailure(ctx, "", email, ip)
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(acc.PasswordHash, []byte(password)); err != nil {
		s.auditFailure(ctx, acc.ID, email, ip)
		return nil, ErrInvalidCredentials
	}

	decision, err := s.governor.EvaluateLogin(ctx, acc.ID, ip, userAgent, "")
	if err != nil {
		return nil, err
	}

	now := s.nowF()
	sess := &sessiondomain.Session{
		ID:             uuid.New().String(),
		AccountID:      acc.ID,
		DeviceClass:    decision.DeviceClass,
		IPAddress:      ip,
		UserAgent:      userAgent,
		Fingerprint:    device.Fingerprint(userAgent, accept),
		IsActive:       true,
		CreatedAt:      now,
		LastActivityAt: now,
		UpdatedAt:      now,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}
	token, expiresAt, err := s.tokens.IssueAccess(sess.ID, acc.ID)
	if err != nil {
		return nil, err
	}
	if s.auditLog != nil {
		s.auditLog.LogEvent(ctx, acc.ID, "auth.login", "session",
			fmt.Sprintf("session=%s class=%s", sess.ID, decision.DeviceClass))
	}
	return &AuthResult{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		AccountID:   acc.ID,
		SessionID:   sess.ID,
		DeviceClass: decision.DeviceClass,
	}, nil
}

// Logout deactivates the session. Logging out an already-inactive or unknown
// session returns ErrSessionNotFound.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess == nil || !sess.IsActive {
		return ErrSessionNotFound
	}
	if err := s.sessions.Deactivate(ctx, sessionID, s.nowF()); err != nil {
		return err
	}
	if s.auditLog != nil {
		s.auditLog.LogEvent(ctx, sess.AccountID, "auth.logout", "session", "session="+sessionID)
	}
	return nil
}

// ActiveSessions lists the account's active sessions, least recently active first.
func (s *AuthService) ActiveSessions(ctx context.Context, accountID string) ([]*sessiondomain.Session, error) {
	return s.sessions.ListActiveByAccount(ctx, accountID)
}

// Heartbeat bumps the session's last activity timestamp. Best-effort: failures
// are logged and not returned, a stale timestamp only skews eviction order.
func (s *AuthService) Heartbeat(ctx context.Context, sessionID string) {
	if err := s.sessions.UpdateLastActivity(ctx, sessionID, s.nowF()); err != nil {
		log.Printf("auth: heartbeat for session %s: %v", sessionID, err)
	}
}

func (s *AuthService) auditFailure(ctx context.Context, accountID, email, ip string) {
	if s.auditLog == nil {
		return
	}
	s.auditLog.LogEvent(ctx, accountID, "auth.login_failure", "auth",
		fmt.Sprintf("email=%s ip=%s", email, ip))
}

func validateEmail(email string) error {
	if email == "" {
		return errors.New("email is required")
	}
	const simpleEmail = `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
	ok, _ := regexp.MatchString(simpleEmail, email)
	if !ok {
		return errors.New("invalid email format")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 12 {
		return errors.New("password must be at least 12 characters")
	}
	var hasUpper, hasLower, hasNumber, hasSymbol bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasNumber = true
		case r < '0' || (r > '9' && r < 'A') || (r > 'Z' && r < 'a') || r > 'z':
			hasSymbol = true
		}
	}
	if !hasUpper {
		return errors.New("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return errors.New("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return errors.New("password must contain at least one number")
	}
	if !hasSymbol {
		return errors.New("password must contain at least one symbol")
	}
	return nil
}
