package event

// TeamStats carries season-to-date numbers for one team as reported by the
// stats provider.
type TeamStats struct {
	Pace            float64 `json:"pace"`
	OffensiveRating float64 `json:"offensive_rating"`
	DefensiveRating float64 `json:"defensive_rating"`
	FormWins        int     `json:"form_wins"`
	FormLosses      int     `json:"form_losses"`
}

// HeadToHead summarizes prior meetings between the two participants this
// season.
type HeadToHead struct {
	HomeWins int `json:"home_wins"`
	AwayWins int `json:"away_wins"`
}

// StatsPayload is the stats source record payload for one event.
type StatsPayload struct {
	Home       TeamStats  `json:"home"`
	Away       TeamStats  `json:"away"`
	HeadToHead HeadToHead `json:"head_to_head"`
}

// SchedulePayload is the schedule source record payload for one event.
type SchedulePayload struct {
	HomeRestDays   int  `json:"home_rest_days"`
	AwayRestDays   int  `json:"away_rest_days"`
	HomeBackToBack bool `json:"home_back_to_back"`
	AwayBackToBack bool `json:"away_back_to_back"`
}

// OddsPayload is the odds source record payload for one event. Spreads use
// the home-team convention: negative numbers mean the home side is favored.
type OddsPayload struct {
	OpeningSpread     float64 `json:"opening_spread"`
	CurrentSpread     float64 `json:"current_spread"`
	OpeningTotal      float64 `json:"opening_total"`
	CurrentTotal      float64 `json:"current_total"`
	HomePublicBetsPct float64 `json:"home_public_bets_pct"`
}
