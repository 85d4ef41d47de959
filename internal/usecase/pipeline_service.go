package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/courtedge/courtedge/internal/domain/analysis"
	"github.com/courtedge/courtedge/internal/domain/event"
	"github.com/courtedge/courtedge/internal/domain/factor"
	"github.com/courtedge/courtedge/internal/platform/id"
	"github.com/courtedge/courtedge/internal/platform/logging"
	"github.com/courtedge/courtedge/internal/platform/metrics"
	"github.com/courtedge/courtedge/internal/platform/resilience"
)

// InsightGenerator produces structured model output for one prompt. A false
// return means the model could not answer; the pipeline degrades rather than
// fails.
type InsightGenerator interface {
	GenerateStructured(ctx context.Context, prompt string, target any) bool
}

// CycleState reports where the current cycle is in its lifecycle. Readers get
// a point-in-time value; only the running cycle mutates it.
type CycleState string

const (
	StateIdle        CycleState = "idle"
	StateCollecting  CycleState = "collecting"
	StateReasoning   CycleState = "reasoning"
	StateAggregating CycleState = "aggregating"
	StateMerged      CycleState = "merged"
)

// CycleResult summarizes one pipeline run.
type CycleResult struct {
	CycleID    string    `json:"cycle_id"`
	SlateDate  string    `json:"slate_date"`
	Events     int       `json:"events"`
	Insights   int       `json:"insights"`
	Shared     bool      `json:"shared"`
	StartedAt  time.Time `json:"started_at"`
	DurationMs int64     `json:"duration_ms"`
}

// PipelineService runs the full collect/reason/aggregate cycle and swaps the
// result into the snapshot repository. Concurrent triggers for the same slate
// date join the in-flight cycle instead of starting another.
type PipelineService struct {
	lister    EventLister
	collector *CollectorService
	reasoner  InsightGenerator
	repo      analysis.Repository
	logger    *logging.Logger
	ids       id.Generator
	flight    resilience.SingleFlight
	now       func() time.Time
	state     atomic.Value
}

func NewPipelineService(lister EventLister, collector *CollectorService, reasoner InsightGenerator, repo analysis.Repository, logger *logging.Logger) *PipelineService {
	if logger == nil {
		logger = logging.Default()
	}
	s := &PipelineService{
		lister:    lister,
		collector: collector,
		reasoner:  reasoner,
		repo:      repo,
		logger:    logger,
		ids:       id.NewUUIDGenerator(),
		now:       time.Now,
	}
	s.state.Store(StateIdle)
	return s
}

// State returns the current cycle lifecycle state.
func (s *PipelineService) State() CycleState {
	state, ok := s.state.Load().(CycleState)
	if !ok {
		return StateIdle
	}
	return state
}

func (s *PipelineService) setState(state CycleState) {
	s.state.Store(state)
}

// WithClock overrides the pipeline's clock. Test hook.
func (s *PipelineService) WithClock(now func() time.Time) *PipelineService {
	if now != nil {
		s.now = now
	}
	return s
}

// RunCycle executes one cycle for today's UTC slate. When a cycle for the
// same date is already running, the call blocks on it and returns its result
// with Shared set.
func (s *PipelineService) RunCycle(ctx context.Context) (CycleResult, error) {
	date := s.now().UTC().Format("2006-01-02")

	out, err, shared := s.flight.Do("cycle:"+date, func() (any, error) {
		return s.runCycle(ctx, date)
	})
	if err != nil {
		return CycleResult{}, err
	}

	result, ok := out.(CycleResult)
	if !ok {
		return CycleResult{}, fmt.Errorf("unexpected cycle result type %T", out)
	}
	result.Shared = shared
	return result, nil
}

func (s *PipelineService) runCycle(ctx context.Context, date string) (result CycleResult, err error) {
	ctx, span := startUsecaseSpan(ctx, "pipeline.run_cycle")
	defer span.End()

	// A panic anywhere in the cycle (conc.WaitGroup re-raises worker panics)
	// must surface as a cycle failure, not unwind past the flight guard.
	defer func() {
		if r := recover(); r != nil {
			metrics.CyclesTotal.WithLabelValues("failure").Inc()
			s.logger.ErrorContext(ctx, "pipeline cycle panicked, previous snapshot retained",
				"slate_date", date, "panic", r)
			result = CycleResult{}
			err = fmt.Errorf("%w: cycle panic: %v", ErrCycleFailure, r)
		}
	}()

	startedAt := s.now()
	cycleID := s.ids.NewID()
	s.logger.InfoContext(ctx, "pipeline cycle started", "cycle_id", cycleID, "slate_date", date)

	s.setState(StateCollecting)
	defer s.setState(StateIdle)

	events, err := s.lister.ListEvents(ctx, date)
	if err != nil {
		metrics.CyclesTotal.WithLabelValues("failure").Inc()
		s.logger.ErrorContext(ctx, "pipeline cycle failed, previous snapshot retained",
			"slate_date", date, "error", err)
		return CycleResult{}, fmt.Errorf("%w: list slate events: %v", ErrCycleFailure, err)
	}

	if len(events) == 0 {
		if err := s.repo.Replace(ctx, analysis.Snapshot{SlateDate: date, CompletedAt: s.now().UTC()}); err != nil {
			metrics.CyclesTotal.WithLabelValues("failure").Inc()
			return CycleResult{}, fmt.Errorf("%w: store empty snapshot: %v", ErrCycleFailure, err)
		}
		s.setState(StateMerged)
		metrics.CyclesTotal.WithLabelValues("success").Inc()
		s.logger.InfoContext(ctx, "pipeline cycle completed with empty slate", "cycle_id", cycleID, "slate_date", date)
		return CycleResult{CycleID: cycleID, SlateDate: date, StartedAt: startedAt, DurationMs: time.Since(startedAt).Milliseconds()}, nil
	}

	records, err := s.collector.Collect(ctx, events)
	if err != nil {
		metrics.CyclesTotal.WithLabelValues("failure").Inc()
		s.logger.ErrorContext(ctx, "pipeline cycle failed, previous snapshot retained",
			"slate_date", date, "error", err)
		return CycleResult{}, fmt.Errorf("%w: collect sources: %v", ErrCycleFailure, err)
	}

	s.setState(StateReasoning)
	analyses := make([]analysis.MatchupAnalysis, len(events))
	var wg conc.WaitGroup
	for i, ev := range events {
		i, ev := i, ev
		wg.Go(func() {
			analyses[i] = s.analyzeEvent(ctx, ev, records[ev.ID])
		})
	}
	wg.Wait()

	s.setState(StateAggregating)
	snapshot := analysis.Snapshot{
		SlateDate:   date,
		Analyses:    analyses,
		CompletedAt: s.now().UTC(),
	}
	if err := s.repo.Replace(ctx, snapshot); err != nil {
		metrics.CyclesTotal.WithLabelValues("failure").Inc()
		return CycleResult{}, fmt.Errorf("%w: store snapshot: %v", ErrCycleFailure, err)
	}
	s.setState(StateMerged)

	insights := 0
	unavailableFactors := 0
	for _, a := range analyses {
		if a.Insight.Available {
			insights++
		}
		unavailableFactors += a.Verdict.UnavailableFactors
	}
	metrics.FactorsUnavailable.Set(float64(unavailableFactors))
	metrics.CyclesTotal.WithLabelValues("success").Inc()
	metrics.CycleDuration.Observe(time.Since(startedAt).Seconds())

	s.logger.InfoContext(ctx, "pipeline cycle completed",
		"cycle_id", cycleID, "slate_date", date, "events", len(events), "insights", insights,
		"duration_ms", time.Since(startedAt).Milliseconds())

	return CycleResult{
		CycleID:    cycleID,
		SlateDate:  date,
		Events:     len(events),
		Insights:   insights,
		StartedAt:  startedAt,
		DurationMs: time.Since(startedAt).Milliseconds(),
	}, nil
}

func (s *PipelineService) analyzeEvent(ctx context.Context, ev event.Event, records []event.SourceRecord) analysis.MatchupAnalysis {
	inputs := factor.BuildInputs(records)
	factors := factor.Compute(ev, inputs)
	verdict := factor.Aggregate(factors)
	insight := s.generateInsight(ctx, ev, factors, verdict)

	return analysis.MatchupAnalysis{
		Event:       ev,
		Records:     records,
		Factors:     factors,
		Verdict:     verdict,
		Insight:     insight,
		Confidence:  blendConfidence(verdict.Confidence, insight),
		GeneratedAt: s.now().UTC(),
	}
}

type insightPayload struct {
	Narrative      string   `json:"narrative" validate:"required"`
	Confidence     int      `json:"confidence" validate:"min=0,max=100"`
	KeyInsights    []string `json:"key_insights"`
	RecommendedBet string   `json:"recommended_bet"`
}

func (s *PipelineService) generateInsight(ctx context.Context, ev event.Event, factors []factor.Factor, verdict factor.Verdict) analysis.Insight {
	var payload insightPayload
	if !s.reasoner.GenerateStructured(ctx, buildPrompt(ev, factors, verdict), &payload) {
		s.logger.WarnContext(ctx, "insight unavailable for event", "event_id", ev.ID)
		return analysis.Insight{}
	}

	return analysis.Insight{
		Available:      true,
		Narrative:      payload.Narrative,
		Confidence:     payload.Confidence,
		KeyInsights:    payload.KeyInsights,
		RecommendedBet: payload.RecommendedBet,
	}
}

// blendConfidence averages the factor-derived confidence with the model's own
// rating when an insight is present. The factor value is a hard ceiling: a
// confident narrative can never raise confidence above what the available
// data supports.
func blendConfidence(factorConfidence float64, insight analysis.Insight) float64 {
	if !insight.Available {
		return factorConfidence
	}
	blended := (factorConfidence + float64(insight.Confidence)/100) / 2
	if blended > factorConfidence {
		return factorConfidence
	}
	return blended
}

func buildPrompt(ev event.Event, factors []factor.Factor, verdict factor.Verdict) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an NBA betting analyst. Analyze %s (%s) at %s (%s), tip-off %s.\n",
		ev.Away.Name, ev.Away.Record, ev.Home.Name, ev.Home.Record,
		ev.StartsAt.UTC().Format(time.RFC3339))

	if homePct, homeOK := winPct(ev.Home.Record); homeOK {
		if awayPct, awayOK := winPct(ev.Away.Record); awayOK {
			fmt.Fprintf(&b, "Win percentage: %s %.3f, %s %.3f.\n",
				ev.Home.Abbr, homePct, ev.Away.Abbr, awayPct)
		}
	}

	b.WriteString("Computed factors:\n")
	for _, f := range factors {
		if !f.Available {
			fmt.Fprintf(&b, "- %s: unavailable (%s)\n", f.Name, f.Insight)
			continue
		}
		fmt.Fprintf(&b, "- %s: advantage=%s impact=%d note=%s\n", f.Name, f.Advantage, f.Impact, f.Insight)
	}
	fmt.Fprintf(&b, "Aggregate: advantage=%s home_edges=%d away_edges=%d data=%s.\n",
		verdict.OverallAdvantage, verdict.HomeAdvantages, verdict.AwayAdvantages, verdict.DataStatus)

	b.WriteString("Respond with a JSON object only: ")
	b.WriteString(`{"narrative":"...","confidence":0-100,"key_insights":["..."],"recommended_bet":"..."}`)
	return b.String()
}

func winPct(record string) (float64, bool) {
	wins, losses, ok := event.ParseRecord(record)
	if !ok || wins+losses == 0 {
		return 0, false
	}
	return float64(wins) / float64(wins+losses), true
}
