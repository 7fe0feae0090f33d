// Package device classifies the requesting client from its User-Agent.
// Mobile and tablet share one capacity bucket for session limits; desktop has
// its own.
package device

import "strings"

// Class is the device class derived from a User-Agent string.
type Class string

const (
	ClassMobile  Class = "mobile"
	ClassTablet  Class = "tablet"
	ClassDesktop Class = "desktop"
)

// MobileBucket reports whether the class counts against the mobile-class
// session slot (mobile and tablet) rather than the desktop slot.
func (c Class) MobileBucket() bool {
	return c == ClassMobile || c == ClassTablet
}

// Classify maps a User-Agent string to a device class. Pure and total: an
// empty or unrecognized User-Agent is desktop. Tablets are matched before
// phones so an iPad or a non-Mobile Android does not land in the mobile class.
func Classify(userAgent string) Class {
	ua := strings.ToLower(userAgent)
	if ua == "" {
		return ClassDesktop
	}
	switch {
	case strings.Contains(ua, "ipad"),
		strings.Contains(ua, "tablet"),
		strings.Contains(ua, "kindle"),
		strings.Contains(ua, "silk"),
		strings.Contains(ua, "playbook"),
		strings.Contains(ua, "android") && !strings.Contains(ua, "mobile"):
		return ClassTablet
	case strings.Contains(ua, "mobile"),
		strings.Contains(ua, "iphone"),
		strings.Contains(ua, "ipod"),
		strings.Contains(ua, "android"),
		strings.Contains(ua, "blackberry"),
		strings.Contains(ua, "windows phone"),
		strings.Contains(ua, "opera mini"),
		strings.Contains(ua, "iemobile"):
		return ClassMobile
	default:
		return ClassDesktop
	}
}
