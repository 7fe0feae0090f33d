package device

import (
	"fmt"
	"hash/fnv"
)

// Fingerprint derives a stable, non-cryptographic client fingerprint from the
// User-Agent and Accept headers. It identifies a browser profile for session
// bookkeeping only and must not be used for authentication.
func Fingerprint(userAgent, accept string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(userAgent))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(accept))
	return fmt.Sprintf("%016x", h.Sum64())
}
