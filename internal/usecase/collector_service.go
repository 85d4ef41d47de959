package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/courtedge/courtedge/internal/domain/event"
	"github.com/courtedge/courtedge/internal/platform/logging"
	"github.com/courtedge/courtedge/internal/platform/metrics"
)

// EventLister returns the slate of events for one UTC date (YYYY-MM-DD).
type EventLister interface {
	ListEvents(ctx context.Context, date string) ([]event.Event, error)
}

// StatsSource fetches season statistics for one matchup.
type StatsSource interface {
	FetchStats(ctx context.Context, ev event.Event) (event.StatsPayload, error)
}

// ScheduleSource fetches rest and back-to-back context for one matchup.
type ScheduleSource interface {
	FetchSchedule(ctx context.Context, ev event.Event) (event.SchedulePayload, error)
}

// OddsSource fetches line and public betting data for one matchup.
type OddsSource interface {
	FetchOdds(ctx context.Context, ev event.Event) (event.OddsPayload, error)
}

// CollectorService fans out one fetch per (event, source) pair over a bounded
// worker pool and settles every task. A failed fetch becomes an Absent record
// with the failure reason; errors never cross the collector boundary, so one
// dead source cannot sink a cycle.
type CollectorService struct {
	stats      StatsSource
	schedule   ScheduleSource
	odds       OddsSource
	maxWorkers int
	logger     *logging.Logger
	now        func() time.Time
}

func NewCollectorService(stats StatsSource, schedule ScheduleSource, odds OddsSource, maxWorkers int, logger *logging.Logger) *CollectorService {
	if logger == nil {
		logger = logging.Default()
	}
	if maxWorkers < 1 {
		maxWorkers = 8
	}
	return &CollectorService{
		stats:      stats,
		schedule:   schedule,
		odds:       odds,
		maxWorkers: maxWorkers,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock overrides the collector's clock. Test hook.
func (s *CollectorService) WithClock(now func() time.Time) *CollectorService {
	if now != nil {
		s.now = now
	}
	return s
}

type fetchTask struct {
	ev     event.Event
	source string
}

type fetchResult struct {
	eventID string
	record  event.SourceRecord
}

// Collect fetches all three sources for every event. The returned map holds
// exactly three records per event, in stats/schedule/odds order, mixing
// Present and Absent as each fetch settled.
func (s *CollectorService) Collect(ctx context.Context, events []event.Event) (map[string][]event.SourceRecord, error) {
	ctx, span := startUsecaseSpan(ctx, "collector.collect")
	defer span.End()

	sources := []string{event.SourceStats, event.SourceSchedule, event.SourceOdds}
	tasks := make([]fetchTask, 0, len(events)*len(sources))
	for _, ev := range events {
		for _, source := range sources {
			tasks = append(tasks, fetchTask{ev: ev, source: source})
		}
	}

	pool, err := ants.NewPool(s.maxWorkers)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	results := make(chan fetchResult, len(tasks))

	var workers sync.WaitGroup
	for _, task := range tasks {
		task := task
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()
			results <- fetchResult{eventID: task.ev.ID, record: s.fetchOne(ctx, task)}
		}); err != nil {
			workers.Done()
			return nil, fmt.Errorf("submit fetch to worker pool: %w", err)
		}
	}

	workers.Wait()
	close(results)

	index := make(map[string]int, len(sources))
	for i, source := range sources {
		index[source] = i
	}

	out := make(map[string][]event.SourceRecord, len(events))
	for _, ev := range events {
		out[ev.ID] = make([]event.SourceRecord, len(sources))
	}
	for row := range results {
		out[row.eventID][index[row.record.Source]] = row.record
	}
	return out, nil
}

func (s *CollectorService) fetchOne(ctx context.Context, task fetchTask) event.SourceRecord {
	var payload any
	var err error

	switch task.source {
	case event.SourceStats:
		payload, err = s.stats.FetchStats(ctx, task.ev)
	case event.SourceSchedule:
		payload, err = s.schedule.FetchSchedule(ctx, task.ev)
	case event.SourceOdds:
		payload, err = s.odds.FetchOdds(ctx, task.ev)
	default:
		err = fmt.Errorf("%w: unknown source %q", ErrInvalidInput, task.source)
	}

	fetchedAt := s.now().UTC()
	if err != nil {
		metrics.SourceFetchesTotal.WithLabelValues(task.source, "absent").Inc()
		s.logger.WarnContext(ctx, "source fetch settled absent",
			"source", task.source, "event_id", task.ev.ID, "error", err)
		return event.AbsentRecord(task.source, err.Error(), fetchedAt)
	}

	metrics.SourceFetchesTotal.WithLabelValues(task.source, "present").Inc()
	return event.PresentRecord(task.source, payload, fetchedAt)
}
