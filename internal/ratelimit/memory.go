package ratelimit

import (
	"context"
	"sync"
	"time"
)

type bucket struct {
	count        int
	windowEnd    time.Time
	blockedUntil time.Time
	lastSeen     time.Time
}

// MemoryStore is an in-process Store. Correct for single-node deployments
// only; multi-node deployments need the Redis store for global counts.
type MemoryStore struct {
	mu            sync.Mutex
	m             map[string]*bucket
	opCount       int
	cleanupEveryN int
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		m:             make(map[string]*bucket),
		cleanupEveryN: 256,
	}
}

// Take consumes one point for key under the named instance.
func (s *MemoryStore) Take(ctx context.Context, name, key string, cfg Config, now time.Time) (int, time.Duration, error) {
	k := name + ":" + key

	s.mu.Lock()
	defer s.mu.Unlock()

	s.maybeCleanupLocked(now)

	b := s.m[k]
	if b == nil {
		b = &bucket{}
		s.m[k] = b
	}
	b.lastSeen = now

	if b.blockedUntil.After(now) {
		return 0, b.blockedUntil.Sub(now), nil
	}
	if !now.Before(b.windowEnd) {
		b.count = 0
		b.windowEnd = now.Add(cfg.Window)
	}
	b.count++
	if b.count > cfg.Points {
		b.blockedUntil = now.Add(cfg.BlockDuration)
		return 0, cfg.BlockDuration, nil
	}
	return cfg.Points - b.count, 0, nil
}

// maybeCleanupLocked drops buckets idle past their window and block. Runs
// every cleanupEveryN ops so hot paths stay cheap.
func (s *MemoryStore) maybeCleanupLocked(now time.Time) {
	s.opCount++
	if s.opCount%s.cleanupEveryN != 0 {
		return
	}
	for k, b := range s.m {
		if b.blockedUntil.Before(now) && b.windowEnd.Before(now) && now.Sub(b.lastSeen) > time.Hour {
			delete(s.m, k)
		}
	}
}
