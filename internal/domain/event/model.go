package event

import (
	"strconv"
	"strings"
	"time"
)

// Participant is one side of a matchup.
type Participant struct {
	Name   string `json:"name"`
	Abbr   string `json:"abbr"`
	Record string `json:"record"`
}

// Event is one scheduled matchup. Events are immutable once fetched; a new
// collection cycle produces fresh Event values instead of mutating old ones.
type Event struct {
	ID       string      `json:"id"`
	Home     Participant `json:"home"`
	Away     Participant `json:"away"`
	StartsAt time.Time   `json:"starts_at"`
	Venue    string      `json:"venue,omitempty"`
}

// ParseRecord splits a "W-L" record string. ok is false when the string does
// not carry two numeric parts.
func ParseRecord(record string) (wins, losses int, ok bool) {
	parts := strings.SplitN(strings.TrimSpace(record), "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	wins, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}
	losses, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, false
	}
	return wins, losses, true
}
