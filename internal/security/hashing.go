package security

import (
	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt cost used when none is configured; it matches the
// BCRYPT_COST config default.
const DefaultCost = 12

// Hasher hashes and verifies account passwords with bcrypt. Callers must not
// log or persist plaintext passwords.
type Hasher struct {
	Cost int
}

// NewHasher returns a Hasher with the given bcrypt cost, normally
// cfg.BcryptCost. Non-positive selects DefaultCost; out-of-range values are
// clamped to bcrypt's limits.
func NewHasher(cost int) *Hasher {
	if cost <= 0 {
		cost = DefaultCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{Cost: cost}
}

// Hash produces a bcrypt hash of password, suitable for the accounts
// password_hash column.
func (h *Hasher) Hash(password []byte) (string, error) {
	b, err := bcrypt.GenerateFromPassword(password, h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare verifies password against the stored hash in constant time.
// Returns nil on a match, bcrypt.ErrMismatchedHashAndPassword otherwise.
func (h *Hasher) Compare(hash string, password []byte) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), password)
}
