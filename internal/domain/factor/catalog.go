package factor

import (
	"fmt"

	"github.com/courtedge/courtedge/internal/domain/event"
)

// Catalog factor names. Weights are fixed per factor type; they are part of
// the catalog, never computed.
const (
	NameHeadToHead    = "head_to_head"
	NameRecentForm    = "recent_form"
	NamePace          = "pace_differential"
	NameEfficiency    = "efficiency_differential"
	NameRestAdvantage = "rest_advantage"
	NameBackToBack    = "back_to_back_fatigue"
	NameHomeCourt     = "home_court_edge"
	NameLineMovement  = "line_movement"
	NameSentiment     = "public_sentiment"
	NameReferee       = "referee_tendency"
	NameMotivation    = "standings_motivation"
)

const leagueAveragePace = 100.0

type catalogEntry struct {
	name    string
	weight  float64
	compute func(ev event.Event, in Inputs, weight float64) Factor
}

var catalog = []catalogEntry{
	{NameHeadToHead, 0.12, computeHeadToHead},
	{NameRecentForm, 0.12, computeRecentForm},
	{NamePace, 0.08, computePace},
	{NameEfficiency, 0.15, computeEfficiency},
	{NameRestAdvantage, 0.10, computeRestAdvantage},
	{NameBackToBack, 0.08, computeBackToBack},
	{NameHomeCourt, 0.10, computeHomeCourt},
	{NameLineMovement, 0.10, computeLineMovement},
	{NameSentiment, 0.05, computeSentiment},
	{NameReferee, 0.05, computeReferee},
	{NameMotivation, 0.05, computeMotivation},
}

// CatalogSize is the number of factors every computation returns,
// available or not.
func CatalogSize() int {
	return len(catalog)
}

// Inputs holds the typed payloads extracted from the Present source records
// of one event. A nil field means the source was absent this cycle.
type Inputs struct {
	Stats    *event.StatsPayload
	Schedule *event.SchedulePayload
	Odds     *event.OddsPayload
}

// BuildInputs extracts typed payloads from collected records. Absent records
// and unknown payload shapes are skipped.
func BuildInputs(records []event.SourceRecord) Inputs {
	var in Inputs
	for _, record := range records {
		if !record.Present {
			continue
		}
		switch payload := record.Payload.(type) {
		case event.StatsPayload:
			p := payload
			in.Stats = &p
		case *event.StatsPayload:
			in.Stats = payload
		case event.SchedulePayload:
			p := payload
			in.Schedule = &p
		case *event.SchedulePayload:
			in.Schedule = payload
		case event.OddsPayload:
			p := payload
			in.Odds = &p
		case *event.OddsPayload:
			in.Odds = payload
		}
	}
	return in
}

// Compute runs every catalogued factor independently over the event and its
// collected inputs. The slice always has CatalogSize entries in catalog
// order; factors whose inputs are missing come back unavailable.
func Compute(ev event.Event, in Inputs) []Factor {
	out := make([]Factor, 0, len(catalog))
	for _, entry := range catalog {
		out = append(out, entry.compute(ev, in, entry.weight))
	}
	return out
}

func computeHeadToHead(ev event.Event, in Inputs, weight float64) Factor {
	if in.Stats == nil {
		return unavailable(NameHeadToHead, weight, "stats source absent")
	}

	h2h := in.Stats.HeadToHead
	meetings := h2h.HomeWins + h2h.AwayWins
	if meetings == 0 {
		return available(NameHeadToHead, weight, AdvantageNeutral, 0, 0,
			"no prior meetings this season")
	}

	diff := h2h.HomeWins - h2h.AwayWins
	adv := AdvantageNeutral
	switch {
	case diff > 0:
		adv = AdvantageHome
	case diff < 0:
		adv = AdvantageAway
	}
	impact := diff
	if impact < 0 {
		impact = -impact
	}
	return available(NameHeadToHead, weight, adv, impact*2,
		clampFloat(float64(diff)*1.5, 6),
		fmt.Sprintf("season series %d-%d (%s first)", h2h.HomeWins, h2h.AwayWins, ev.Home.Abbr))
}

func computeRecentForm(ev event.Event, in Inputs, weight float64) Factor {
	if in.Stats == nil {
		return unavailable(NameRecentForm, weight, "stats source absent")
	}

	diff := in.Stats.Home.FormWins - in.Stats.Away.FormWins
	adv := AdvantageNeutral
	switch {
	case diff > 0:
		adv = AdvantageHome
	case diff < 0:
		adv = AdvantageAway
	}
	impact := diff
	if impact < 0 {
		impact = -impact
	}
	return available(NameRecentForm, weight, adv, impact,
		clampFloat(float64(diff)*0.8, 5),
		fmt.Sprintf("last ten: %s %d wins, %s %d wins",
			ev.Home.Abbr, in.Stats.Home.FormWins, ev.Away.Abbr, in.Stats.Away.FormWins))
}

func computePace(ev event.Event, in Inputs, weight float64) Factor {
	if in.Stats == nil {
		return unavailable(NamePace, weight, "stats source absent")
	}

	combined := (in.Stats.Home.Pace + in.Stats.Away.Pace) / 2
	delta := combined - leagueAveragePace
	adv := AdvantageNeutral
	switch {
	case delta > 0.5:
		adv = AdvantageOver
	case delta < -0.5:
		adv = AdvantageUnder
	}
	impact := int(absFloat(delta))
	return available(NamePace, weight, adv, impact,
		clampFloat(delta*0.5, 4),
		fmt.Sprintf("combined pace %.1f vs league average %.1f", combined, leagueAveragePace))
}

func computeEfficiency(ev event.Event, in Inputs, weight float64) Factor {
	if in.Stats == nil {
		return unavailable(NameEfficiency, weight, "stats source absent")
	}

	homeNet := in.Stats.Home.OffensiveRating - in.Stats.Home.DefensiveRating
	awayNet := in.Stats.Away.OffensiveRating - in.Stats.Away.DefensiveRating
	diff := homeNet - awayNet
	adv := AdvantageNeutral
	switch {
	case diff > 0.5:
		adv = AdvantageHome
	case diff < -0.5:
		adv = AdvantageAway
	}
	return available(NameEfficiency, weight, adv, int(absFloat(diff)),
		clampFloat(diff*0.7, 7),
		fmt.Sprintf("net rating %s %+.1f vs %s %+.1f", ev.Home.Abbr, homeNet, ev.Away.Abbr, awayNet))
}

func computeRestAdvantage(ev event.Event, in Inputs, weight float64) Factor {
	if in.Schedule == nil {
		return unavailable(NameRestAdvantage, weight, "schedule source absent")
	}

	diff := in.Schedule.HomeRestDays - in.Schedule.AwayRestDays
	adv := AdvantageNeutral
	switch {
	case diff > 0:
		adv = AdvantageHome
	case diff < 0:
		adv = AdvantageAway
	}
	impact := diff * 2
	if impact < 0 {
		impact = -impact
	}
	return available(NameRestAdvantage, weight, adv, impact,
		clampFloat(float64(diff), 3),
		fmt.Sprintf("rest days %s %d vs %s %d",
			ev.Home.Abbr, in.Schedule.HomeRestDays, ev.Away.Abbr, in.Schedule.AwayRestDays))
}

func computeBackToBack(ev event.Event, in Inputs, weight float64) Factor {
	if in.Schedule == nil {
		return unavailable(NameBackToBack, weight, "schedule source absent")
	}

	home, away := in.Schedule.HomeBackToBack, in.Schedule.AwayBackToBack
	switch {
	case home && !away:
		return available(NameBackToBack, weight, AdvantageAway, 6, -2.5,
			ev.Home.Abbr+" on the second night of a back-to-back")
	case away && !home:
		return available(NameBackToBack, weight, AdvantageHome, 6, 2.5,
			ev.Away.Abbr+" on the second night of a back-to-back")
	case home && away:
		return available(NameBackToBack, weight, AdvantageNeutral, 0, 0,
			"both teams on a back-to-back")
	default:
		return available(NameBackToBack, weight, AdvantageNeutral, 0, 0,
			"neither team on a back-to-back")
	}
}

func computeHomeCourt(ev event.Event, _ Inputs, weight float64) Factor {
	// Derived from the event itself; the only factor that never goes
	// unavailable.
	return available(NameHomeCourt, weight, AdvantageHome, 5, 2.0,
		ev.Home.Name+" at home")
}

func computeLineMovement(ev event.Event, in Inputs, weight float64) Factor {
	if in.Odds == nil {
		return unavailable(NameLineMovement, weight, "odds source absent")
	}

	// Home-negative spreads: a drop means the market moved toward home.
	move := in.Odds.OpeningSpread - in.Odds.CurrentSpread
	adv := AdvantageNeutral
	switch {
	case move > 0.25:
		adv = AdvantageHome
	case move < -0.25:
		adv = AdvantageAway
	}
	return available(NameLineMovement, weight, adv, int(absFloat(move)*2),
		clampFloat(move*0.9, 4),
		fmt.Sprintf("spread moved %.1f to %.1f", in.Odds.OpeningSpread, in.Odds.CurrentSpread))
}

func computeSentiment(ev event.Event, in Inputs, weight float64) Factor {
	if in.Odds == nil {
		return unavailable(NameSentiment, weight, "odds source absent")
	}

	pct := in.Odds.HomePublicBetsPct
	adv := AdvantageNeutral
	switch {
	case pct > 55:
		adv = AdvantageHome
	case pct < 45:
		adv = AdvantageAway
	}
	return available(NameSentiment, weight, adv, int(absFloat(pct-50)/5),
		clampFloat((pct-50)/10, 2),
		fmt.Sprintf("%.0f%% of public bets on %s", pct, ev.Home.Abbr))
}

func computeReferee(_ event.Event, _ Inputs, weight float64) Factor {
	// No referee assignment feed is wired; reported unavailable rather than
	// synthesized.
	return unavailable(NameReferee, weight, "no referee assignment source")
}

func computeMotivation(_ event.Event, _ Inputs, weight float64) Factor {
	// No live standings source is wired; reported unavailable rather than
	// synthesized.
	return unavailable(NameMotivation, weight, "no standings source")
}
