package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/courtedge/courtedge/internal/domain/analysis"
	"github.com/courtedge/courtedge/internal/platform/logging"
	"github.com/courtedge/courtedge/internal/usecase"
)

// MatchupReader answers read queries against the latest snapshot.
type MatchupReader interface {
	Snapshot(ctx context.Context) (analysis.Snapshot, error)
	Matchup(ctx context.Context, eventID string) (analysis.MatchupAnalysis, error)
}

// CycleRunner triggers one pipeline cycle and reports its lifecycle state.
type CycleRunner interface {
	RunCycle(ctx context.Context) (usecase.CycleResult, error)
	State() usecase.CycleState
}

type Handler struct {
	matchups          MatchupReader
	pipeline          CycleRunner
	reasoningCooldown func() time.Duration
	logger            *logging.Logger
	serviceName       string
	serviceVersion    string
	startedAt         time.Time
}

func NewHandler(matchups MatchupReader, pipeline CycleRunner, reasoningCooldown func() time.Duration, logger *logging.Logger, serviceName, serviceVersion string) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if reasoningCooldown == nil {
		reasoningCooldown = func() time.Duration { return 0 }
	}
	return &Handler{
		matchups:          matchups,
		pipeline:          pipeline,
		reasoningCooldown: reasoningCooldown,
		logger:            logger,
		serviceName:       serviceName,
		serviceVersion:    serviceVersion,
		startedAt:         time.Now(),
	}
}

type healthResponse struct {
	Status                   string  `json:"status"`
	Service                  string  `json:"service"`
	Version                  string  `json:"version"`
	UptimeSeconds            int64   `json:"uptime_seconds"`
	PipelineState            string  `json:"pipeline_state"`
	SnapshotSlateDate        string  `json:"snapshot_slate_date,omitempty"`
	ReasoningCooldownSeconds float64 `json:"reasoning_cooldown_seconds"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	out := healthResponse{
		Status:                   "ok",
		Service:                  h.serviceName,
		Version:                  h.serviceVersion,
		UptimeSeconds:            int64(time.Since(h.startedAt).Seconds()),
		PipelineState:            string(h.pipeline.State()),
		ReasoningCooldownSeconds: h.reasoningCooldown().Seconds(),
	}
	if snap, err := h.matchups.Snapshot(ctx); err == nil {
		out.SnapshotSlateDate = snap.SlateDate
	}

	writeJSON(ctx, w, http.StatusOK, out)
}

func (h *Handler) ListMatchups(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListMatchups")
	defer span.End()

	snap, err := h.matchups.Snapshot(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, snap)
}

func (h *Handler) GetMatchup(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetMatchup")
	defer span.End()

	found, err := h.matchups.Matchup(ctx, r.PathValue("id"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, found)
}

type runCycleResponse struct {
	Cycle    usecase.CycleResult `json:"cycle"`
	Snapshot *analysis.Snapshot  `json:"snapshot,omitempty"`
}

// RunCycle triggers one pipeline cycle. The response always carries the
// freshest snapshot the store has: the one this cycle just merged on success,
// or the last known good one when the cycle fails.
func (h *Handler) RunCycle(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunCycle")
	defer span.End()

	result, runErr := h.pipeline.RunCycle(ctx)

	out := runCycleResponse{Cycle: result}
	if snap, err := h.matchups.Snapshot(ctx); err == nil {
		out.Snapshot = &snap
	}

	if runErr != nil {
		if out.Snapshot == nil {
			writeError(ctx, w, runErr)
			return
		}
		writeErrorWithData(ctx, w, runErr, out)
		return
	}

	status := http.StatusOK
	if !result.Shared {
		status = http.StatusCreated
	}
	writeSuccess(ctx, w, status, out)
}
