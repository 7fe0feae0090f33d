package blocklist

import (
	"context"
	"strings"
	"testing"
	"time"
)

func newTestBlocklist() (*Blocklist, *time.Time) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b := New(NewMemoryStore(), DefaultThreshold, DefaultBlockDuration, DefaultSweepInterval)
	b.nowF = func() time.Time { return now }
	return b, &now
}

// Four reports leave the IP clean; the fifth blocks it until expiry.
func TestReportSuspicious_Escalates(t *testing.T) {
	b, now := newTestBlocklist()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if err := b.ReportSuspicious(ctx, "1.2.3.4"); err != nil {
			t.Fatalf("report %d: %v", i+1, err)
		}
		blocked, _, err := b.IsBlocked(ctx, "1.2.3.4")
		if err != nil {
			t.Fatal(err)
		}
		if blocked {
			t.Fatalf("blocked after %d reports, threshold is 5", i+1)
		}
	}

	if err := b.ReportSuspicious(ctx, "1.2.3.4"); err != nil {
		t.Fatal(err)
	}
	blocked, retryAfter, err := b.IsBlocked(ctx, "1.2.3.4")
	if err != nil {
		t.Fatal(err)
	}
	if !blocked {
		t.Fatal("5th report should block")
	}
	if retryAfter <= 0 || retryAfter > DefaultBlockDuration {
		t.Errorf("retryAfter = %v, want in (0, 1h]", retryAfter)
	}

	// The block clears by itself once the hour passes.
	*now = now.Add(DefaultBlockDuration + time.Second)
	blocked, _, err = b.IsBlocked(ctx, "1.2.3.4")
	if err != nil {
		t.Fatal(err)
	}
	if blocked {
		t.Error("block should have expired")
	}
}

func TestReportSuspicious_ReasonCarriesCount(t *testing.T) {
	store := NewMemoryStore()
	b := New(store, 2, time.Hour, time.Minute)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b.nowF = func() time.Time { return now }
	ctx := context.Background()

	_ = b.ReportSuspicious(ctx, "9.9.9.9")
	_ = b.ReportSuspicious(ctx, "9.9.9.9")

	reason, _, ok, err := store.GetBlock(ctx, "9.9.9.9", now)
	if err != nil || !ok {
		t.Fatalf("expected block, ok=%v err=%v", ok, err)
	}
	if !strings.Contains(reason, "2") {
		t.Errorf("reason %q should embed the count", reason)
	}
}

func TestBlock_Unconditional(t *testing.T) {
	b, _ := newTestBlocklist()
	ctx := context.Background()

	if err := b.Block(ctx, "5.6.7.8", "manual", 0); err != nil {
		t.Fatal(err)
	}
	blocked, retryAfter, _ := b.IsBlocked(ctx, "5.6.7.8")
	if !blocked {
		t.Fatal("explicit block should take effect")
	}
	if retryAfter != DefaultBlockDuration {
		t.Errorf("retryAfter = %v, want default 1h", retryAfter)
	}

	// Overwrite extends the block.
	if err := b.Block(ctx, "5.6.7.8", "manual again", 2*time.Hour); err != nil {
		t.Fatal(err)
	}
	_, retryAfter, _ = b.IsBlocked(ctx, "5.6.7.8")
	if retryAfter != 2*time.Hour {
		t.Errorf("retryAfter after overwrite = %v, want 2h", retryAfter)
	}
}

func TestCounter_ResetsAfterIdleDay(t *testing.T) {
	b, now := newTestBlocklist()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_ = b.ReportSuspicious(ctx, "1.2.3.4")
	}
	*now = now.Add(counterMaxIdle + time.Minute)

	// The stale counter restarts, so this report counts as the first.
	_ = b.ReportSuspicious(ctx, "1.2.3.4")
	blocked, _, _ := b.IsBlocked(ctx, "1.2.3.4")
	if blocked {
		t.Error("counter should have reset after a day idle")
	}
}

func TestCounter_AccumulatesAfterBlockExpiry(t *testing.T) {
	store := NewMemoryStore()
	b := New(store, 2, time.Minute, time.Minute)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b.nowF = func() time.Time { return now }
	ctx := context.Background()

	_ = b.ReportSuspicious(ctx, "1.2.3.4")
	_ = b.ReportSuspicious(ctx, "1.2.3.4")
	if blocked, _, _ := b.IsBlocked(ctx, "1.2.3.4"); !blocked {
		t.Fatal("should be blocked at threshold")
	}

	now = now.Add(2 * time.Minute)
	b.nowF = func() time.Time { return now }
	if blocked, _, _ := b.IsBlocked(ctx, "1.2.3.4"); blocked {
		t.Fatal("block should have expired")
	}
	// Fresh events can escalate again.
	_ = b.ReportSuspicious(ctx, "1.2.3.4")
	_ = b.ReportSuspicious(ctx, "1.2.3.4")
	if blocked, _, _ := b.IsBlocked(ctx, "1.2.3.4"); !blocked {
		t.Error("re-escalation after expiry should block again")
	}
}

func TestMemoryStore_Sweep(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	_ = s.PutBlock(ctx, "a", "r", base, base.Add(time.Minute))
	_, _ = s.IncrSuspicious(ctx, "b", base)

	if err := s.Sweep(ctx, base.Add(counterMaxIdle+time.Hour)); err != nil {
		t.Fatal(err)
	}
	s.mu.Lock()
	nBlocked, nCounters := len(s.blocked), len(s.counters)
	s.mu.Unlock()
	if nBlocked != 0 || nCounters != 0 {
		t.Errorf("after sweep: %d blocks, %d counters, want 0/0", nBlocked, nCounters)
	}
}

func TestStartStop(t *testing.T) {
	b := New(NewMemoryStore(), 5, time.Hour, time.Millisecond)
	b.Start()
	b.Start() // idempotent
	time.Sleep(5 * time.Millisecond)
	b.Stop()
	b.Stop() // idempotent
}
