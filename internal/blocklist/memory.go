package blocklist

import (
	"context"
	"sync"
	"time"
)

type blockEntry struct {
	reason    string
	blockedAt time.Time
	expiresAt time.Time
}

type counterEntry struct {
	count       int
	firstSeenAt time.Time
	lastSeenAt  time.Time
}

// MemoryStore is an in-process Store. Single-node deployments only.
type MemoryStore struct {
	mu       sync.Mutex
	blocked  map[string]blockEntry
	counters map[string]counterEntry
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		blocked:  make(map[string]blockEntry),
		counters: make(map[string]counterEntry),
	}
}

// GetBlock returns the active block for ip, deleting it on read when expired.
func (s *MemoryStore) GetBlock(ctx context.Context, ip string, now time.Time) (string, time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.blocked[ip]
	if !ok {
		return "", time.Time{}, false, nil
	}
	if !e.expiresAt.After(now) {
		delete(s.blocked, ip)
		return "", time.Time{}, false, nil
	}
	return e.reason, e.expiresAt, true, nil
}

// PutBlock inserts or overwrites the block for ip.
func (s *MemoryStore) PutBlock(ctx context.Context, ip, reason string, blockedAt, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocked[ip] = blockEntry{reason: reason, blockedAt: blockedAt, expiresAt: expiresAt}
	return nil
}

// IncrSuspicious bumps the counter for ip; a counter idle past counterMaxIdle
// restarts at 1.
func (s *MemoryStore) IncrSuspicious(ctx context.Context, ip string, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.counters[ip]
	if !ok || now.Sub(e.lastSeenAt) > counterMaxIdle {
		e = counterEntry{firstSeenAt: now}
	}
	e.count++
	e.lastSeenAt = now
	s.counters[ip] = e
	return e.count, nil
}

// Sweep purges expired blocks and counters idle past counterMaxIdle.
func (s *MemoryStore) Sweep(ctx context.Context, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ip, e := range s.blocked {
		if !e.expiresAt.After(now) {
			delete(s.blocked, ip)
		}
	}
	for ip, e := range s.counters {
		if now.Sub(e.lastSeenAt) > counterMaxIdle {
			delete(s.counters, ip)
		}
	}
	return nil
}
