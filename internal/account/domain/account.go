package domain

import (
	"errors"
	"time"
)

// Account is the core account entity. Accounts are created at registration
// and are never deleted; suspension is the only lifecycle transition owned
// by this service.
type Account struct {
	ID               string
	Email            string
	Name             string
	PasswordHash     string
	IsSuspended      bool
	SuspendedAt      *time.Time // nil when not suspended
	SuspensionReason string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Validate validates the account for persistence. Returns an error describing the first validation failure.
func (a *Account) Validate() error {
	if a.Email == "" {
		return errors.New("email is required")
	}
	if a.PasswordHash == "" {
		return errors.New("password hash is required")
	}
	return nil
}
