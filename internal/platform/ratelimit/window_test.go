package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeClock advances its time by whatever the limiter asks to sleep, so
// Acquire runs instantly in tests.
type fakeClock struct {
	now    time.Time
	slept  []time.Duration
	cancel bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if c.cancel {
		return context.Canceled
	}
	c.slept = append(c.slept, d)
	c.now = c.now.Add(d)
	return ctx.Err()
}

func TestWindow_AcquireWithinLimit(t *testing.T) {
	clock := newFakeClock()
	w := NewWindow(time.Minute, 3).WithClock(clock.Now, clock.Sleep)

	for i := 0; i < 3; i++ {
		if err := w.Acquire(context.Background()); err != nil {
			t.Fatalf("acquire %d failed: %v", i, err)
		}
	}
	if len(clock.slept) != 0 {
		t.Fatalf("acquires within limit must not sleep, slept %v", clock.slept)
	}
}

func TestWindow_AcquireBlocksUntilWindowRolls(t *testing.T) {
	clock := newFakeClock()
	w := NewWindow(time.Minute, 1).WithClock(clock.Now, clock.Sleep)

	if err := w.Acquire(context.Background()); err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}

	before := clock.now
	if err := w.Acquire(context.Background()); err != nil {
		t.Fatalf("second acquire failed: %v", err)
	}
	if waited := clock.now.Sub(before); waited < time.Minute {
		t.Fatalf("expected second acquire to wait out the window, waited %v", waited)
	}

	state := w.Snapshot()
	if state.CountInWindow != 1 {
		t.Fatalf("expected one slot consumed in the fresh window, got %d", state.CountInWindow)
	}
}

func TestWindow_CooldownDelaysAcquire(t *testing.T) {
	clock := newFakeClock()
	w := NewWindow(time.Minute, 10).WithClock(clock.Now, clock.Sleep)

	w.Cooldown(32 * time.Second)
	if remaining := w.CooldownRemaining(); remaining != 32*time.Second {
		t.Fatalf("expected 32s cooldown, got %v", remaining)
	}

	before := clock.now
	if err := w.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if waited := clock.now.Sub(before); waited < 32*time.Second {
		t.Fatalf("expected acquire to wait out the cooldown, waited %v", waited)
	}
}

func TestWindow_CooldownNeverShortens(t *testing.T) {
	clock := newFakeClock()
	w := NewWindow(time.Minute, 10).WithClock(clock.Now, clock.Sleep)

	w.Cooldown(30 * time.Second)
	w.Cooldown(5 * time.Second)

	if remaining := w.CooldownRemaining(); remaining != 30*time.Second {
		t.Fatalf("later shorter cooldown must not win, got %v", remaining)
	}
}

func TestWindow_AcquireHonorsContext(t *testing.T) {
	clock := newFakeClock()
	clock.cancel = true
	w := NewWindow(time.Minute, 1).WithClock(clock.Now, clock.Sleep)

	if err := w.Acquire(context.Background()); err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}
	if err := w.Acquire(context.Background()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled error while waiting, got %v", err)
	}
}
