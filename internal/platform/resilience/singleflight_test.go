package resilience

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSingleFlight_Do(t *testing.T) {
	var g SingleFlight
	var counter int32

	const workers = 20
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)

	var sharedCount atomic.Int32
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			v, err, shared := g.Do("slate-key", func() (any, error) {
				atomic.AddInt32(&counter, 1)
				time.Sleep(20 * time.Millisecond)
				return "ok", nil
			})
			if err != nil {
				t.Errorf("singleflight call failed: %v", err)
			}
			if got, _ := v.(string); got != "ok" {
				t.Errorf("unexpected value %v", v)
			}
			if shared {
				sharedCount.Add(1)
			}
		}()
	}

	close(start)
	wg.Wait()

	if got := atomic.LoadInt32(&counter); got != 1 {
		t.Fatalf("expected function to run once, got %d", got)
	}
	if got := sharedCount.Load(); got < 1 {
		t.Fatalf("expected at least one joined caller, got %d", got)
	}
}

func TestSingleFlight_KeyReleasedAfterPanic(t *testing.T) {
	var g SingleFlight

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected the panic to propagate")
			}
		}()
		g.Do("k", func() (any, error) { panic("boom") })
	}()

	if g.InFlight("k") {
		t.Fatal("key must be released after a panicked call")
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err, _ := g.Do("k", func() (any, error) { return nil, nil }); err != nil {
			t.Errorf("follow-up call failed: %v", err)
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("follow-up call for the same key blocked")
	}
}

func TestSingleFlight_KeyReleasedAfterCompletion(t *testing.T) {
	var g SingleFlight
	var counter int32

	for i := 0; i < 3; i++ {
		_, err, shared := g.Do("k", func() (any, error) {
			atomic.AddInt32(&counter, 1)
			return nil, nil
		})
		if err != nil {
			t.Fatalf("call %d failed: %v", i, err)
		}
		if shared {
			t.Fatalf("sequential call %d should not be shared", i)
		}
	}

	if got := atomic.LoadInt32(&counter); got != 3 {
		t.Fatalf("expected sequential calls to run each time, got %d", got)
	}
	if g.InFlight("k") {
		t.Fatal("key should be released after completion")
	}
}
