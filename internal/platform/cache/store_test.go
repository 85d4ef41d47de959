package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

var errUnexpectedValue = errors.New("unexpected value")

func TestStore_TTLExpiry(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	store := NewStore(time.Minute, 10).WithClock(func() time.Time { return now })
	ctx := context.Background()

	store.Set(ctx, "k", "v")
	if v, ok := store.Get(ctx, "k"); !ok || v != "v" {
		t.Fatalf("expected fresh entry, got %v ok=%v", v, ok)
	}

	now = now.Add(time.Minute)
	if _, ok := store.Get(ctx, "k"); ok {
		t.Fatal("expected entry to expire at TTL")
	}
	if store.Len() != 0 {
		t.Fatalf("expected expired entry to be removed, len=%d", store.Len())
	}
}

func TestStore_EvictsOldestWhenFull(t *testing.T) {
	store := NewStore(time.Hour, 2)
	ctx := context.Background()

	store.Set(ctx, "a", 1)
	store.Set(ctx, "b", 2)
	store.Set(ctx, "c", 3)

	if _, ok := store.Get(ctx, "a"); ok {
		t.Fatal("oldest insertion should have been evicted")
	}
	if _, ok := store.Get(ctx, "b"); !ok {
		t.Fatal("second insertion should survive")
	}
	if _, ok := store.Get(ctx, "c"); !ok {
		t.Fatal("newest insertion should survive")
	}
	if store.Len() != 2 {
		t.Fatalf("expected bounded size 2, got %d", store.Len())
	}
}

func TestStore_GetOrLoad_UsesSingleFlight(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute, 10)
	var calls atomic.Int32

	loader := func(context.Context) (any, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return "value", nil
	}

	const workers = 32
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)
	errCh := make(chan error, workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			v, err := store.GetOrLoad(context.Background(), "same-key", loader)
			if err != nil {
				errCh <- err
				return
			}
			if got, _ := v.(string); got != "value" {
				errCh <- errUnexpectedValue
			}
		}()
	}

	close(start)
	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if got := calls.Load(); got != 1 {
		t.Fatalf("loader called %d times, want 1", got)
	}
}

func TestStore_GetOrLoad_DoesNotCacheErrors(t *testing.T) {
	store := NewStore(time.Minute, 10)
	var calls atomic.Int32
	boom := errors.New("boom")

	loader := func(context.Context) (any, error) {
		calls.Add(1)
		return nil, boom
	}

	if _, err := store.GetOrLoad(context.Background(), "k", loader); !errors.Is(err, boom) {
		t.Fatalf("expected loader error, got %v", err)
	}
	if _, err := store.GetOrLoad(context.Background(), "k", loader); !errors.Is(err, boom) {
		t.Fatalf("expected loader error on retry, got %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("failed loads must not be cached, loader ran %d times", got)
	}
}
