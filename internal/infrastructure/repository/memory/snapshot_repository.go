package memory

import (
	"context"
	"sync"

	"github.com/courtedge/courtedge/internal/domain/analysis"
)

// SnapshotRepository holds the latest completed snapshot. Replace swaps the
// whole value under the write lock, so readers either see the previous cycle
// or the new one, never a mix.
type SnapshotRepository struct {
	mu      sync.RWMutex
	current analysis.Snapshot
	loaded  bool
	byEvent map[string]int
}

func NewSnapshotRepository() *SnapshotRepository {
	return &SnapshotRepository{}
}

func (r *SnapshotRepository) Replace(_ context.Context, snap analysis.Snapshot) error {
	byEvent := make(map[string]int, len(snap.Analyses))
	for i, a := range snap.Analyses {
		byEvent[a.Event.ID] = i
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.current = snap
	r.byEvent = byEvent
	r.loaded = true
	return nil
}

func (r *SnapshotRepository) Current(_ context.Context) (analysis.Snapshot, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.loaded {
		return analysis.Snapshot{}, false, nil
	}
	return r.current, true, nil
}

func (r *SnapshotRepository) FindAnalysis(_ context.Context, eventID string) (analysis.MatchupAnalysis, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, ok := r.byEvent[eventID]
	if !ok {
		return analysis.MatchupAnalysis{}, false, nil
	}
	return r.current.Analyses[idx], true, nil
}
