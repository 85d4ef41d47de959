package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/courtedge/courtedge/internal/platform/resilience"
)

type entry struct {
	value    any
	storedAt time.Time
}

// Store is a bounded in-memory TTL cache. When the entry count reaches
// maxEntries the oldest insertion is evicted first. The clock is injectable
// so tests can expire entries without sleeping.
type Store struct {
	mu         sync.RWMutex
	entries    map[string]entry
	order      []string
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
	flight     resilience.SingleFlight
}

func NewStore(ttl time.Duration, maxEntries int) *Store {
	return &Store{
		entries:    make(map[string]entry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// WithClock overrides the store's clock. Test hook.
func (s *Store) WithClock(now func() time.Time) *Store {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *Store) Get(_ context.Context, key string) (any, bool) {
	if key == "" {
		return nil, false
	}

	now := s.now()
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if s.ttl > 0 && now.Sub(e.storedAt) >= s.ttl {
		s.mu.Lock()
		s.removeLocked(key)
		s.mu.Unlock()
		return nil, false
	}

	return e.value, true
}

func (s *Store) Set(_ context.Context, key string, value any) {
	if key == "" {
		return
	}

	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; exists {
		s.entries[key] = entry{value: value, storedAt: now}
		return
	}

	if s.maxEntries > 0 && len(s.entries) >= s.maxEntries {
		s.evictExpiredLocked(now)
		for s.maxEntries > 0 && len(s.entries) >= s.maxEntries && len(s.order) > 0 {
			s.removeLocked(s.order[0])
		}
	}

	s.entries[key] = entry{value: value, storedAt: now}
	s.order = append(s.order, key)
}

func (s *Store) Delete(_ context.Context, key string) {
	if key == "" {
		return
	}

	s.mu.Lock()
	s.removeLocked(key)
	s.mu.Unlock()
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// GetOrLoad returns the cached value for key or loads it once, deduplicating
// concurrent loads for the same key.
func (s *Store) GetOrLoad(ctx context.Context, key string, loader func(context.Context) (any, error)) (any, error) {
	if loader == nil {
		return nil, fmt.Errorf("loader is required")
	}
	if key == "" {
		return loader(ctx)
	}

	if value, ok := s.Get(ctx, key); ok {
		return value, nil
	}

	value, err, _ := s.flight.Do(key, func() (any, error) {
		if cached, ok := s.Get(ctx, key); ok {
			return cached, nil
		}

		loaded, loadErr := loader(ctx)
		if loadErr != nil {
			return nil, loadErr
		}
		s.Set(ctx, key, loaded)
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}

	return value, nil
}

func (s *Store) removeLocked(key string) {
	if _, ok := s.entries[key]; !ok {
		return
	}
	delete(s.entries, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *Store) evictExpiredLocked(now time.Time) {
	if s.ttl <= 0 {
		return
	}
	kept := s.order[:0]
	for _, key := range s.order {
		e, ok := s.entries[key]
		if !ok {
			continue
		}
		if now.Sub(e.storedAt) >= s.ttl {
			delete(s.entries, key)
			continue
		}
		kept = append(kept, key)
	}
	s.order = kept
}
