package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Window enforces a fixed-size request window with a per-window ceiling plus
// a provider-imposed cooldown. Acquire blocks until a slot frees up instead
// of rejecting, so callers queue behind the upstream quota rather than fail.
// One Window instance is shared by every caller of the reasoning service;
// that contention is the intended choke point.
type Window struct {
	mu            sync.Mutex
	window        time.Duration
	limit         int
	windowStart   time.Time
	countInWindow int
	cooldownUntil time.Time

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// State is a point-in-time view of the limiter, used for logging and tests.
type State struct {
	WindowStart   time.Time
	CountInWindow int
	CooldownUntil time.Time
}

func NewWindow(window time.Duration, limit int) *Window {
	if window <= 0 {
		window = time.Minute
	}
	if limit < 1 {
		limit = 1
	}
	return &Window{
		window: window,
		limit:  limit,
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// WithClock overrides the limiter's clock and sleep function. Test hook.
func (w *Window) WithClock(now func() time.Time, sleep func(context.Context, time.Duration) error) *Window {
	if now != nil {
		w.now = now
	}
	if sleep != nil {
		w.sleep = sleep
	}
	return w
}

// Acquire blocks through any active cooldown and any exhausted window, then
// consumes one request slot. It returns early only when ctx is done.
func (w *Window) Acquire(ctx context.Context) error {
	for {
		w.mu.Lock()
		now := w.now()

		if now.Before(w.cooldownUntil) {
			wait := w.cooldownUntil.Sub(now)
			w.mu.Unlock()
			if err := w.sleep(ctx, wait); err != nil {
				return err
			}
			continue
		}

		if w.windowStart.IsZero() || now.Sub(w.windowStart) >= w.window {
			w.windowStart = now
			w.countInWindow = 0
		}

		if w.countInWindow < w.limit {
			w.countInWindow++
			w.mu.Unlock()
			return nil
		}

		wait := w.window - now.Sub(w.windowStart)
		w.mu.Unlock()
		if err := w.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Cooldown pushes the earliest permitted dispatch time to now+d. It never
// shortens an already-longer cooldown.
func (w *Window) Cooldown(d time.Duration) {
	if d <= 0 {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	until := w.now().Add(d)
	if until.After(w.cooldownUntil) {
		w.cooldownUntil = until
	}
}

func (w *Window) CooldownRemaining() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()

	remaining := w.cooldownUntil.Sub(w.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (w *Window) Snapshot() State {
	w.mu.Lock()
	defer w.mu.Unlock()

	return State{
		WindowStart:   w.windowStart,
		CountInWindow: w.countInWindow,
		CooldownUntil: w.cooldownUntil,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
