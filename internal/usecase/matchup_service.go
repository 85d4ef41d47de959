package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/courtedge/courtedge/internal/domain/analysis"
	"github.com/courtedge/courtedge/internal/platform/logging"
)

// MatchupService answers read queries against the latest snapshot.
type MatchupService struct {
	repo   analysis.Repository
	logger *logging.Logger
}

func NewMatchupService(repo analysis.Repository, logger *logging.Logger) *MatchupService {
	if logger == nil {
		logger = logging.Default()
	}
	return &MatchupService{repo: repo, logger: logger}
}

// Snapshot returns the latest completed snapshot, or ErrNotFound when no
// cycle has completed yet.
func (s *MatchupService) Snapshot(ctx context.Context) (analysis.Snapshot, error) {
	ctx, span := startUsecaseSpan(ctx, "matchup.snapshot")
	defer span.End()

	snap, ok, err := s.repo.Current(ctx)
	if err != nil {
		return analysis.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	if !ok {
		return analysis.Snapshot{}, fmt.Errorf("%w: no completed cycle yet", ErrNotFound)
	}
	return snap, nil
}

// Matchup returns the analysis for one event from the latest snapshot.
func (s *MatchupService) Matchup(ctx context.Context, eventID string) (analysis.MatchupAnalysis, error) {
	ctx, span := startUsecaseSpan(ctx, "matchup.get")
	defer span.End()

	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return analysis.MatchupAnalysis{}, fmt.Errorf("%w: event id is required", ErrInvalidInput)
	}

	found, ok, err := s.repo.FindAnalysis(ctx, eventID)
	if err != nil {
		return analysis.MatchupAnalysis{}, fmt.Errorf("load analysis event_id=%s: %w", eventID, err)
	}
	if !ok {
		return analysis.MatchupAnalysis{}, fmt.Errorf("%w: matchup %s", ErrNotFound, eventID)
	}
	return found, nil
}
