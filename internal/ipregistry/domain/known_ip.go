package domain

import (
	"time"

	"medportal/backend/internal/device"
)

// KnownIP is one distinct login IP seen for an account. Rows are unique per
// (AccountID, IPAddress), created on first login from the IP and updated on
// every repeat; they are never deleted automatically.
type KnownIP struct {
	AccountID   string
	IPAddress   string
	DeviceClass device.Class // last seen
	UserAgent   string       // last seen
	LoginCount  int
	FirstSeen   time.Time
	LastSeen    time.Time
}
