// Package blocklist temporarily blocks abusive client IPs. Suspicious
// activity accumulates per IP and crosses into a timed block at a threshold;
// blocks expire lazily on lookup and eagerly via a periodic sweep.
package blocklist

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// Defaults match the production tuning: 5 flagged events block an IP for an
// hour, counters reset after a day of quiet, sweep every 10 minutes.
const (
	DefaultThreshold     = 5
	DefaultBlockDuration = time.Hour
	DefaultSweepInterval = 10 * time.Minute
	counterMaxIdle       = 24 * time.Hour
)

// Store persists block and suspicious-counter state.
type Store interface {
	// GetBlock returns the active block for ip, if any. Implementations delete
	// expired entries on read.
	GetBlock(ctx context.Context, ip string, now time.Time) (reason string, expiresAt time.Time, ok bool, err error)
	// PutBlock inserts or overwrites the block for ip.
	PutBlock(ctx context.Context, ip, reason string, blockedAt, expiresAt time.Time) error
	// IncrSuspicious bumps the suspicious counter for ip and returns the new
	// count. A counter idle past counterMaxIdle restarts at 1.
	IncrSuspicious(ctx context.Context, ip string, now time.Time) (int, error)
	// Sweep purges expired blocks and stale counters. May be a no-op where the
	// backend expires keys natively.
	Sweep(ctx context.Context, now time.Time) error
}

// Blocklist is the escalation layer consulted before any other request
// processing. Construct with New, then Start to run the background sweep and
// Stop for clean shutdown.
type Blocklist struct {
	store         Store
	threshold     int
	blockDuration time.Duration
	sweepInterval time.Duration
	nowF          func() time.Time

	mu      sync.Mutex
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
}

// New returns a Blocklist over store. Non-positive tunables select the defaults.
func New(store Store, threshold int, blockDuration, sweepInterval time.Duration) *Blocklist {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if blockDuration <= 0 {
		blockDuration = DefaultBlockDuration
	}
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}
	return &Blocklist{
		store:         store,
		threshold:     threshold,
		blockDuration: blockDuration,
		sweepInterval: sweepInterval,
		nowF:          func() time.Time { return time.Now().UTC() },
	}
}

// IsBlocked reports whether ip is currently blocked and, if so, for how much
// longer. Expired entries are treated as absent.
func (b *Blocklist) IsBlocked(ctx context.Context, ip string) (bool, time.Duration, error) {
	now := b.nowF()
	_, expiresAt, ok, err := b.store.GetBlock(ctx, ip, now)
	if err != nil {
		return false, 0, fmt.Errorf("blocklist: get %s: %w", ip, err)
	}
	if !ok {
		return false, 0, nil
	}
	return true, expiresAt.Sub(now), nil
}

// Block unconditionally blocks ip for duration (the default when non-positive),
// overwriting any existing entry.
func (b *Blocklist) Block(ctx context.Context, ip, reason string, duration time.Duration) error {
	if duration <= 0 {
		duration = b.blockDuration
	}
	now := b.nowF()
	if err := b.store.PutBlock(ctx, ip, reason, now, now.Add(duration)); err != nil {
		return fmt.Errorf("blocklist: block %s: %w", ip, err)
	}
	return nil
}

// ReportSuspicious counts one flagged event for ip. Crossing the threshold
// blocks the IP with a reason embedding the count; the counter entry is left
// to age out since the block takes precedence on lookup.
func (b *Blocklist) ReportSuspicious(ctx context.Context, ip string) error {
	n, err := b.store.IncrSuspicious(ctx, ip, b.nowF())
	if err != nil {
		return fmt.Errorf("blocklist: report %s: %w", ip, err)
	}
	if n >= b.threshold {
		return b.Block(ctx, ip, fmt.Sprintf("suspicious activity (%d events)", n), b.blockDuration)
	}
	return nil
}

// Start launches the periodic sweep. Safe to call once; Stop undoes it.
func (b *Blocklist) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return
	}
	b.started = true
	b.stopCh = make(chan struct{})
	b.doneCh = make(chan struct{})
	go b.sweepLoop(b.stopCh, b.doneCh)
}

// Stop halts the sweep and waits for it to exit. Lazy expiry on lookup keeps
// the blocklist correct even when the sweep is stopped or delayed.
func (b *Blocklist) Stop() {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return
	}
	b.started = false
	close(b.stopCh)
	done := b.doneCh
	b.mu.Unlock()
	<-done
}

func (b *Blocklist) sweepLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	t := time.NewTicker(b.sweepInterval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := b.store.Sweep(ctx, b.nowF()); err != nil {
				log.Printf("blocklist: sweep failed: %v", err)
			}
			cancel()
		}
	}
}
