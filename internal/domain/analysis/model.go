package analysis

import (
	"time"

	"github.com/courtedge/courtedge/internal/domain/event"
	"github.com/courtedge/courtedge/internal/domain/factor"
)

// Insight is the language-model portion of an analysis. Unavailable insights
// carry empty fields; the caller must treat them as absent, never as neutral
// model output. Confidence is the model's own 0-100 rating of its narrative.
type Insight struct {
	Available      bool     `json:"available"`
	Narrative      string   `json:"narrative,omitempty"`
	Confidence     int      `json:"confidence,omitempty"`
	KeyInsights    []string `json:"key_insights,omitempty"`
	RecommendedBet string   `json:"recommended_bet,omitempty"`
}

// MatchupAnalysis is the full per-event output of one pipeline cycle.
// Confidence blends the verdict's data-driven confidence with the model's
// rating; it never exceeds the verdict's value.
type MatchupAnalysis struct {
	Event       event.Event          `json:"event"`
	Records     []event.SourceRecord `json:"records"`
	Factors     []factor.Factor      `json:"factors"`
	Verdict     factor.Verdict       `json:"verdict"`
	Insight     Insight              `json:"insight"`
	Confidence  float64              `json:"confidence"`
	GeneratedAt time.Time            `json:"generated_at"`
}

// Snapshot is the immutable result of one completed cycle. Readers always see
// a whole snapshot; partially merged cycles are never observable.
type Snapshot struct {
	SlateDate   string            `json:"slate_date"`
	Analyses    []MatchupAnalysis `json:"analyses"`
	CompletedAt time.Time         `json:"completed_at"`
}
