package domain

import (
	"time"

	"medportal/backend/internal/device"
)

// Session represents one logged-in device for an account. Sessions are
// deactivated, never deleted, on logout, eviction, or mass revoke.
type Session struct {
	ID             string
	AccountID      string
	DeviceClass    device.Class
	IPAddress      string
	UserAgent      string
	Fingerprint    string // non-cryptographic client fingerprint (UA + Accept)
	IsActive       bool
	CreatedAt      time.Time
	LastActivityAt time.Time
	UpdatedAt      time.Time
}
