package event

import "time"

// Source names used across the pipeline.
const (
	SourceStats    = "stats"
	SourceSchedule = "schedule"
	SourceOdds     = "odds"
)

// SourceRecord is the outcome of fetching one source for one event. Absence
// is a first-class value: a failed fetch yields an Absent record with a
// reason, never an error that crosses the collector boundary.
type SourceRecord struct {
	Source    string    `json:"source"`
	Present   bool      `json:"present"`
	Payload   any       `json:"payload,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

func PresentRecord(source string, payload any, at time.Time) SourceRecord {
	return SourceRecord{
		Source:    source,
		Present:   true,
		Payload:   payload,
		FetchedAt: at,
	}
}

func AbsentRecord(source, reason string, at time.Time) SourceRecord {
	return SourceRecord{
		Source:    source,
		Reason:    reason,
		FetchedAt: at,
	}
}
