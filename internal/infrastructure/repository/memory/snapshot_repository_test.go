package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtedge/courtedge/internal/domain/analysis"
	"github.com/courtedge/courtedge/internal/domain/event"
)

func snapshotFor(slate string, eventIDs ...string) analysis.Snapshot {
	snap := analysis.Snapshot{SlateDate: slate, CompletedAt: time.Now()}
	for _, id := range eventIDs {
		snap.Analyses = append(snap.Analyses, analysis.MatchupAnalysis{
			Event: event.Event{ID: id},
		})
	}
	return snap
}

func TestSnapshotRepositoryEmpty(t *testing.T) {
	repo := NewSnapshotRepository()

	_, ok, err := repo.Current(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = repo.FindAnalysis(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSnapshotRepositoryReplaceSwapsWhole(t *testing.T) {
	ctx := context.Background()
	repo := NewSnapshotRepository()

	require.NoError(t, repo.Replace(ctx, snapshotFor("2026-01-15", "evt-1", "evt-2")))

	snap, ok, err := repo.Current(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2026-01-15", snap.SlateDate)
	assert.Len(t, snap.Analyses, 2)

	require.NoError(t, repo.Replace(ctx, snapshotFor("2026-01-16", "evt-3")))

	snap, ok, err = repo.Current(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2026-01-16", snap.SlateDate)

	_, ok, err = repo.FindAnalysis(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, ok, "previous slate entries must not survive a replace")

	found, ok, err := repo.FindAnalysis(ctx, "evt-3")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "evt-3", found.Event.ID)
}
