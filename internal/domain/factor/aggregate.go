package factor

// DataStatus describes how much of the catalog was computable this cycle.
type DataStatus string

const (
	DataComplete DataStatus = "complete"
	DataPartial  DataStatus = "partial"
	DataLimited  DataStatus = "limited"
)

// advantageDeadband is how many factors one side must lead by before the
// verdict leaves neutral.
const advantageDeadband = 2

// partialThreshold is the minimum number of available factors for a verdict
// to be considered partial rather than limited.
const partialThreshold = 6

// Verdict is the aggregate over one event's factor slice.
type Verdict struct {
	OverallAdvantage    Advantage  `json:"overall_advantage"`
	TotalProbAdjustment float64    `json:"total_prob_adjustment"`
	HomeAdvantages      int        `json:"home_advantages"`
	AwayAdvantages      int        `json:"away_advantages"`
	ActiveFactors       int        `json:"active_factors"`
	UnavailableFactors  int        `json:"unavailable_factors"`
	DataStatus          DataStatus `json:"data_status"`
	Confidence          float64    `json:"confidence"`
}

// Aggregate folds a factor slice into a verdict. Unavailable factors count
// against confidence and data status but contribute nothing to the advantage
// tally or the probability total.
func Aggregate(factors []Factor) Verdict {
	var v Verdict
	for _, f := range factors {
		if !f.Available {
			v.UnavailableFactors++
			continue
		}
		v.ActiveFactors++
		v.TotalProbAdjustment += f.ProbAdjustment
		switch f.Advantage {
		case AdvantageHome:
			v.HomeAdvantages++
		case AdvantageAway:
			v.AwayAdvantages++
		}
	}

	v.OverallAdvantage = AdvantageNeutral
	switch {
	case v.HomeAdvantages > v.AwayAdvantages+advantageDeadband:
		v.OverallAdvantage = AdvantageHome
	case v.AwayAdvantages > v.HomeAdvantages+advantageDeadband:
		v.OverallAdvantage = AdvantageAway
	}

	switch {
	case v.UnavailableFactors == 0:
		v.DataStatus = DataComplete
	case v.ActiveFactors >= partialThreshold:
		v.DataStatus = DataPartial
	default:
		v.DataStatus = DataLimited
	}

	v.Confidence = confidence(len(factors), v.UnavailableFactors)
	return v
}

// confidence starts at 1.0 with a full catalog and decreases strictly with
// every unavailable factor.
func confidence(total, unavailable int) float64 {
	if total == 0 {
		return 0
	}
	c := 1.0 - float64(unavailable)/float64(total)
	if c < 0 {
		return 0
	}
	return c
}
