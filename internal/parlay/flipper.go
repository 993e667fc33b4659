// Package parlay implements the selection, correlation, probability, and
// coverage engine for multi-leg wagers.
package parlay

import (
	"fmt"
	"strings"

	"github.com/Fawl3r/parlay-gorilla/internal/models"
	"github.com/Fawl3r/parlay-gorilla/internal/odds"
)

// Flipper deterministically transforms a leg to its opposite outcome.
// The flipped leg carries the complement probabilities and the fair odds
// implied by them, so flipping twice returns the original leg whenever the
// original odds were consistent with its implied probability.
type Flipper struct{}

// NewFlipper creates a Flipper.
func NewFlipper() *Flipper {
	return &Flipper{}
}

// Flip returns the opposite-outcome leg for a supported market type.
func (f *Flipper) Flip(leg models.Leg) (models.Leg, error) {
	out := leg.Clone()

	switch leg.MarketType {
	case models.MarketMoneyline:
		flipped, err := flipSide(leg)
		if err != nil {
			return models.Leg{}, err
		}
		out.Outcome = flipped

	case models.MarketSpread:
		flipped, err := flipSide(leg)
		if err != nil {
			return models.Leg{}, err
		}
		if leg.Point == nil {
			return models.Leg{}, models.NewValidationError("point", "spread leg has no point line")
		}
		out.Outcome = flipped
		negated := -*leg.Point
		if negated == 0 {
			negated = 0 // avoid -0.0
		}
		out.Point = &negated

	case models.MarketTotal:
		switch strings.ToLower(strings.TrimSpace(leg.Outcome)) {
		case "over":
			out.Outcome = models.OutcomeUnder
		case "under":
			out.Outcome = models.OutcomeOver
		default:
			return models.Leg{}, models.NewValidationError("outcome",
				fmt.Sprintf("totals pick %q is neither over nor under", leg.Outcome))
		}

	default:
		return models.Leg{}, models.NewValidationError("market_type",
			fmt.Sprintf("cannot flip unsupported market type %q", leg.MarketType))
	}

	out.ImpliedProbability = 1.0 - leg.ImpliedProbability
	out.ModelProbability = 1.0 - leg.ModelProbability

	american, err := odds.FromProbability(out.ImpliedProbability)
	if err != nil {
		return models.Leg{}, models.NewValidationError("implied_probability", err.Error())
	}
	out.OddsAmerican = odds.FormatAmerican(american)
	out.OddsDecimal = round6(1.0 / out.ImpliedProbability)

	return out, nil
}

// flipSide resolves the opposite side of a moneyline or spread pick.
func flipSide(leg models.Leg) (string, error) {
	o := strings.ToLower(strings.TrimSpace(leg.Outcome))
	switch {
	case o == "home":
		return "away", nil
	case o == "away":
		return "home", nil
	case o == strings.ToLower(leg.HomeTeam):
		return leg.AwayTeam, nil
	case o == strings.ToLower(leg.AwayTeam):
		return leg.HomeTeam, nil
	default:
		return "", models.NewValidationError("outcome",
			fmt.Sprintf("pick %q is neither a recognized team nor home/away", leg.Outcome))
	}
}

func round6(v float64) float64 {
	return float64(int64(v*1e6+0.5)) / 1e6
}
