// Package ratelimit provides named, keyed request limiters with fixed windows
// and an extended block once a window is exhausted. State lives in a pluggable
// store: in-process for single-node deployments, Redis for multi-node.
package ratelimit

import (
	"context"
	"time"
)

// Config holds the tunables of one limiter instance.
type Config struct {
	// Points is how many consumes succeed per window.
	Points int
	// Window is the counting window.
	Window time.Duration
	// BlockDuration is how long a key stays rejected after exhausting the window.
	BlockDuration time.Duration
}

// Result is the outcome of one Consume call.
type Result struct {
	Allowed   bool
	Remaining int
	// RetryAfter is how long the caller should wait before retrying; zero when
	// allowed. Surfaced to clients as a countdown.
	RetryAfter time.Duration
}

// Store tracks per-key consumption for limiter instances.
type Store interface {
	// Take consumes one point for key under the named instance. Returns the
	// remaining points, or a non-zero retryAfter when the key is exhausted or
	// blocked.
	Take(ctx context.Context, name, key string, cfg Config, now time.Time) (remaining int, retryAfter time.Duration, err error)
}

// Limiter is one named limiter instance.
type Limiter struct {
	name  string
	cfg   Config
	store Store
	nowF  func() time.Time
}

// New returns a limiter with the given name and config backed by store.
func New(name string, cfg Config, store Store) *Limiter {
	return &Limiter{
		name:  name,
		cfg:   cfg,
		store: store,
		nowF:  func() time.Time { return time.Now().UTC() },
	}
}

// Preconfigured instances. Auth guards credential endpoints, quiz and progress
// guard the corresponding submission routes, API is the generic backstop.
func NewAuth(store Store) *Limiter {
	return New("auth", Config{Points: 5, Window: 15 * time.Minute, BlockDuration: 30 * time.Minute}, store)
}

func NewAPI(store Store) *Limiter {
	return New("api", Config{Points: 100, Window: time.Minute, BlockDuration: time.Minute}, store)
}

func NewQuizSubmit(store Store) *Limiter {
	return New("quiz", Config{Points: 10, Window: time.Minute, BlockDuration: 2 * time.Minute}, store)
}

func NewProgress(store Store) *Limiter {
	return New("progress", Config{Points: 200, Window: time.Minute, BlockDuration: 30 * time.Second}, store)
}

// Name returns the instance name (used in store keys and logs).
func (l *Limiter) Name() string { return l.name }

// Consume takes one point for key. A rejected result carries the retry-after
// delay; rejection is not an error and not a security escalation by itself.
func (l *Limiter) Consume(ctx context.Context, key string) (*Result, error) {
	remaining, retryAfter, err := l.store.Take(ctx, l.name, key, l.cfg, l.nowF())
	if err != nil {
		return nil, err
	}
	if retryAfter > 0 {
		return &Result{Allowed: false, RetryAfter: retryAfter}, nil
	}
	return &Result{Allowed: true, Remaining: remaining}, nil
}
