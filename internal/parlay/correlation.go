package parlay

import (
	"strings"

	"github.com/Fawl3r/parlay-gorilla/internal/models"
)

// CorrelationModel estimates how strongly legs move together. It carries two
// distinct notions: a coarse pairwise heuristic used to diversify selections,
// and a distortion factor used by the probability calculator to adjust the
// joint probability of same-game leg groups. The two are never mixed.
type CorrelationModel struct{}

// NewCorrelationModel creates a CorrelationModel.
func NewCorrelationModel() *CorrelationModel {
	return &CorrelationModel{}
}

// PairwiseScore is the coarse diversification heuristic: legs in different
// games are uncorrelated; same-game legs start at 0.5, with increments for
// sharing a market type and an outcome, capped at 1.0.
func (m *CorrelationModel) PairwiseScore(a, b *models.Leg) float64 {
	if a.GameID != b.GameID {
		return 0.0
	}
	score := 0.5
	if a.MarketType == b.MarketType {
		score += 0.3
	}
	if strings.EqualFold(a.Outcome, b.Outcome) {
		score += 0.2
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// OutcomeSimilarity grades how alike two same-game outcomes are for the
// distortion model: identical picks, same market, or merely same game.
func (m *CorrelationModel) OutcomeSimilarity(a, b *models.Leg) float64 {
	if strings.EqualFold(a.Outcome, b.Outcome) {
		return 1.0
	}
	if a.MarketType == b.MarketType {
		return 0.6
	}
	return 0.3
}

// GroupSimilarity averages pairwise outcome similarity over a same-game group.
func (m *CorrelationModel) GroupSimilarity(legs []*models.Leg) float64 {
	if len(legs) < 2 {
		return 0.0
	}
	sum := 0.0
	pairs := 0
	for i := 0; i < len(legs); i++ {
		for j := i + 1; j < len(legs); j++ {
			sum += m.OutcomeSimilarity(legs[i], legs[j])
			pairs++
		}
	}
	return sum / float64(pairs)
}

// DistortionWeight is the blend weight pulling a same-game group's naive
// product toward its weakest leg probability. Zero for a single leg, growing
// with group size and outcome similarity, capped at 0.6 so the joint never
// reaches the weakest leg's own probability.
func (m *CorrelationModel) DistortionWeight(groupSize int, similarity float64) float64 {
	if groupSize < 2 {
		return 0.0
	}
	w := 0.15 * float64(groupSize-1) * (0.5 + 0.5*similarity)
	if w > 0.6 {
		w = 0.6
	}
	return w
}
