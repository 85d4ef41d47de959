package factor

// Advantage is the side a factor (or the aggregate) favors.
type Advantage string

const (
	AdvantageHome    Advantage = "home"
	AdvantageAway    Advantage = "away"
	AdvantageOver    Advantage = "over"
	AdvantageUnder   Advantage = "under"
	AdvantageNeutral Advantage = "neutral"
)

// Factor is one independently computed signal. An unavailable factor is the
// standardized placeholder: neutral advantage, zero impact, zero adjustment.
// ProbAdjustment is signed: positive values lean home/over, negative lean
// away/under.
type Factor struct {
	Name           string    `json:"name"`
	Weight         float64   `json:"weight"`
	Advantage      Advantage `json:"advantage"`
	Impact         int       `json:"impact"`
	Available      bool      `json:"available"`
	Insight        string    `json:"insight,omitempty"`
	ProbAdjustment float64   `json:"prob_adjustment"`
}

// Available builds an available factor, clamping impact into [0, 10].
func available(name string, weight float64, adv Advantage, impact int, probAdjustment float64, insight string) Factor {
	if impact < 0 {
		impact = 0
	}
	if impact > 10 {
		impact = 10
	}
	return Factor{
		Name:           name,
		Weight:         weight,
		Advantage:      adv,
		Impact:         impact,
		Available:      true,
		Insight:        insight,
		ProbAdjustment: probAdjustment,
	}
}

// unavailable builds the placeholder for a factor that cannot be computed.
func unavailable(name string, weight float64, reason string) Factor {
	return Factor{
		Name:      name,
		Weight:    weight,
		Advantage: AdvantageNeutral,
		Insight:   reason,
	}
}

func clampFloat(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
