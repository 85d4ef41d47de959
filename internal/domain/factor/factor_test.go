package factor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtedge/courtedge/internal/domain/event"
)

func sampleEvent() event.Event {
	return event.Event{
		ID:       "evt-1",
		Home:     event.Participant{Name: "Boston", Abbr: "BOS", Record: "40-12"},
		Away:     event.Participant{Name: "Miami", Abbr: "MIA", Record: "28-24"},
		StartsAt: time.Date(2026, 1, 15, 0, 30, 0, 0, time.UTC),
	}
}

func fullInputs() Inputs {
	return Inputs{
		Stats: &event.StatsPayload{
			Home:       event.TeamStats{Pace: 101.2, OffensiveRating: 118.0, DefensiveRating: 110.5, FormWins: 8, FormLosses: 2},
			Away:       event.TeamStats{Pace: 97.8, OffensiveRating: 113.2, DefensiveRating: 112.1, FormWins: 5, FormLosses: 5},
			HeadToHead: event.HeadToHead{HomeWins: 2, AwayWins: 1},
		},
		Schedule: &event.SchedulePayload{HomeRestDays: 2, AwayRestDays: 0, AwayBackToBack: true},
		Odds:     &event.OddsPayload{OpeningSpread: -4.5, CurrentSpread: -6.0, HomePublicBetsPct: 68},
	}
}

func TestComputeFullInputs(t *testing.T) {
	factors := Compute(sampleEvent(), fullInputs())
	require.Len(t, factors, CatalogSize())

	byName := make(map[string]Factor, len(factors))
	for _, f := range factors {
		byName[f.Name] = f
	}

	// Referee and standings factors have no wired source and must stay
	// unavailable even on a fully populated cycle.
	assert.False(t, byName[NameReferee].Available)
	assert.False(t, byName[NameMotivation].Available)

	assert.Equal(t, AdvantageHome, byName[NameHeadToHead].Advantage)
	assert.Equal(t, AdvantageHome, byName[NameRecentForm].Advantage)
	assert.Equal(t, AdvantageHome, byName[NameEfficiency].Advantage)
	assert.Equal(t, AdvantageHome, byName[NameRestAdvantage].Advantage)
	assert.Equal(t, AdvantageHome, byName[NameBackToBack].Advantage)
	assert.Equal(t, AdvantageHome, byName[NameHomeCourt].Advantage)
	assert.Equal(t, AdvantageHome, byName[NameLineMovement].Advantage)
	assert.Equal(t, AdvantageHome, byName[NameSentiment].Advantage)
}

func TestComputeMissingSourcesDegrade(t *testing.T) {
	factors := Compute(sampleEvent(), Inputs{})
	require.Len(t, factors, CatalogSize())

	for _, f := range factors {
		if f.Name == NameHomeCourt {
			assert.True(t, f.Available, "home court is derived from the event itself")
			continue
		}
		assert.False(t, f.Available, f.Name)
	}
}

func TestUnavailablePlaceholderInvariant(t *testing.T) {
	factors := Compute(sampleEvent(), Inputs{})
	for _, f := range factors {
		if f.Available {
			continue
		}
		assert.Equal(t, AdvantageNeutral, f.Advantage, f.Name)
		assert.Zero(t, f.Impact, f.Name)
		assert.Zero(t, f.ProbAdjustment, f.Name)
		assert.NotEmpty(t, f.Insight, f.Name)
	}
}

func TestBuildInputsSkipsAbsentAndUnknown(t *testing.T) {
	now := time.Now()
	in := BuildInputs([]event.SourceRecord{
		event.PresentRecord(event.SourceStats, event.StatsPayload{Home: event.TeamStats{Pace: 99}}, now),
		event.AbsentRecord(event.SourceSchedule, "timeout", now),
		event.PresentRecord(event.SourceOdds, "not a payload", now),
	})

	require.NotNil(t, in.Stats)
	assert.Equal(t, 99.0, in.Stats.Home.Pace)
	assert.Nil(t, in.Schedule)
	assert.Nil(t, in.Odds)
}

func TestAggregateDeadband(t *testing.T) {
	homeFactors := func(home, away int) []Factor {
		var out []Factor
		for i := 0; i < home; i++ {
			out = append(out, available("h", 0.1, AdvantageHome, 3, 1, ""))
		}
		for i := 0; i < away; i++ {
			out = append(out, available("a", 0.1, AdvantageAway, 3, -1, ""))
		}
		return out
	}

	assert.Equal(t, AdvantageHome, Aggregate(homeFactors(5, 2)).OverallAdvantage)
	assert.Equal(t, AdvantageNeutral, Aggregate(homeFactors(5, 4)).OverallAdvantage)
	assert.Equal(t, AdvantageNeutral, Aggregate(homeFactors(5, 3)).OverallAdvantage)
	assert.Equal(t, AdvantageAway, Aggregate(homeFactors(1, 4)).OverallAdvantage)
}

func TestAggregateDataStatus(t *testing.T) {
	factors := Compute(sampleEvent(), fullInputs())
	v := Aggregate(factors)
	assert.Equal(t, DataPartial, v.DataStatus)
	assert.Equal(t, 9, v.ActiveFactors)
	assert.Equal(t, 2, v.UnavailableFactors)

	limited := Aggregate(Compute(sampleEvent(), Inputs{}))
	assert.Equal(t, DataLimited, limited.DataStatus)

	var complete []Factor
	for i := 0; i < CatalogSize(); i++ {
		complete = append(complete, available("f", 0.1, AdvantageNeutral, 0, 0, ""))
	}
	assert.Equal(t, DataComplete, Aggregate(complete).DataStatus)
}

func TestAggregateConfidenceMonotone(t *testing.T) {
	build := func(unavailableCount int) []Factor {
		out := make([]Factor, 0, CatalogSize())
		for i := 0; i < CatalogSize()-unavailableCount; i++ {
			out = append(out, available("f", 0.1, AdvantageHome, 3, 1, ""))
		}
		for i := 0; i < unavailableCount; i++ {
			out = append(out, unavailable("u", 0.1, "gone"))
		}
		return out
	}

	prev := Aggregate(build(0)).Confidence
	for n := 1; n <= CatalogSize(); n++ {
		cur := Aggregate(build(n)).Confidence
		assert.Lessf(t, cur, prev, "confidence must drop with %d unavailable", n)
		prev = cur
	}
	assert.Zero(t, prev)
}

func TestAggregateProbAdjustmentSum(t *testing.T) {
	// The total is the plain sum over active factors; weights are catalog
	// metadata and never scale the adjustment.
	v := Aggregate([]Factor{
		available("a", 0.5, AdvantageHome, 5, 4, ""),
		available("b", 0.25, AdvantageAway, 5, -2, ""),
		unavailable("c", 0.25, "gone"),
	})
	assert.InDelta(t, 2.0, v.TotalProbAdjustment, 1e-9)
}
