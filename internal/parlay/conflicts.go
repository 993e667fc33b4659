package parlay

import (
	"strings"

	"github.com/Fawl3r/parlay-gorilla/internal/models"
)

// MarketConflict reports whether two legs on the same game bet against each
// other: opposite moneyline/spread sides, or over vs under on the totals
// market. Such pairs can never both win and are excluded from selections.
func MarketConflict(a, b *models.Leg) bool {
	if a.GameID != b.GameID {
		return false
	}

	aSided := a.MarketType == models.MarketMoneyline || a.MarketType == models.MarketSpread
	bSided := b.MarketType == models.MarketMoneyline || b.MarketType == models.MarketSpread
	if aSided && bSided {
		if (a.PicksHome() && b.PicksAway()) || (a.PicksAway() && b.PicksHome()) {
			return true
		}
	}

	if a.MarketType == models.MarketTotal && b.MarketType == models.MarketTotal {
		ao := strings.ToLower(strings.TrimSpace(a.Outcome))
		bo := strings.ToLower(strings.TrimSpace(b.Outcome))
		if (ao == "over" && bo == "under") || (ao == "under" && bo == "over") {
			return true
		}
	}

	return false
}

// SameSelection reports whether two legs share the (game, market, outcome)
// identity; a valid selection never contains such a pair.
func SameSelection(a, b *models.Leg) bool {
	return a.GameID == b.GameID &&
		a.MarketType == b.MarketType &&
		strings.EqualFold(a.Outcome, b.Outcome)
}
