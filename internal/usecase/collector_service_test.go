package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtedge/courtedge/internal/domain/event"
	"github.com/courtedge/courtedge/internal/platform/logging"
)

type fakeStatsSource struct {
	payload event.StatsPayload
	err     error
}

func (f *fakeStatsSource) FetchStats(context.Context, event.Event) (event.StatsPayload, error) {
	return f.payload, f.err
}

type fakeScheduleSource struct {
	payload event.SchedulePayload
	err     error
}

func (f *fakeScheduleSource) FetchSchedule(context.Context, event.Event) (event.SchedulePayload, error) {
	return f.payload, f.err
}

type fakeOddsSource struct {
	payload event.OddsPayload
	err     error
}

func (f *fakeOddsSource) FetchOdds(context.Context, event.Event) (event.OddsPayload, error) {
	return f.payload, f.err
}

func slateEvents(ids ...string) []event.Event {
	out := make([]event.Event, 0, len(ids))
	for _, id := range ids {
		out = append(out, event.Event{
			ID:       id,
			Home:     event.Participant{Name: "Boston", Abbr: "BOS"},
			Away:     event.Participant{Name: "Miami", Abbr: "MIA"},
			StartsAt: time.Date(2026, 1, 15, 0, 30, 0, 0, time.UTC),
		})
	}
	return out
}

func TestCollectAllSourcesPresent(t *testing.T) {
	collector := NewCollectorService(
		&fakeStatsSource{payload: event.StatsPayload{Home: event.TeamStats{Pace: 101}}},
		&fakeScheduleSource{payload: event.SchedulePayload{HomeRestDays: 2}},
		&fakeOddsSource{payload: event.OddsPayload{CurrentSpread: -5.5}},
		4, logging.NewNop(),
	)

	records, err := collector.Collect(context.Background(), slateEvents("evt-1", "evt-2"))
	require.NoError(t, err)
	require.Len(t, records, 2)

	for _, id := range []string{"evt-1", "evt-2"} {
		rows := records[id]
		require.Len(t, rows, 3)
		assert.Equal(t, event.SourceStats, rows[0].Source)
		assert.Equal(t, event.SourceSchedule, rows[1].Source)
		assert.Equal(t, event.SourceOdds, rows[2].Source)
		for _, row := range rows {
			assert.True(t, row.Present, row.Source)
			assert.False(t, row.FetchedAt.IsZero())
		}
	}
}

func TestCollectSettlesFailuresAsAbsent(t *testing.T) {
	collector := NewCollectorService(
		&fakeStatsSource{payload: event.StatsPayload{}},
		&fakeScheduleSource{err: errors.New("feed timeout")},
		&fakeOddsSource{err: errors.New("upstream 503")},
		4, logging.NewNop(),
	)

	records, err := collector.Collect(context.Background(), slateEvents("evt-1"))
	require.NoError(t, err, "source failures must not fail the collection")

	rows := records["evt-1"]
	require.Len(t, rows, 3)

	assert.True(t, rows[0].Present)
	assert.False(t, rows[1].Present)
	assert.Contains(t, rows[1].Reason, "feed timeout")
	assert.False(t, rows[2].Present)
	assert.Contains(t, rows[2].Reason, "upstream 503")
}

func TestCollectEmptySlate(t *testing.T) {
	collector := NewCollectorService(&fakeStatsSource{}, &fakeScheduleSource{}, &fakeOddsSource{}, 2, logging.NewNop())

	records, err := collector.Collect(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, records)
}
