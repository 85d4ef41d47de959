package analysis

import "context"

// Repository describes snapshot storage needs from use cases. Replace swaps
// the entire snapshot atomically; there is no partial update path.
type Repository interface {
	Replace(ctx context.Context, snap Snapshot) error
	Current(ctx context.Context) (Snapshot, bool, error)
	FindAnalysis(ctx context.Context, eventID string) (MatchupAnalysis, bool, error)
}
