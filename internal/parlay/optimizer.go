package parlay

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/Fawl3r/parlay-gorilla/internal/models"
)

// Selection limits.
const (
	MinParlayLegs   = 1
	MaxParlayLegs   = 20
	maxLegsPerGame  = 2
	confidenceRelax = 0.8
)

// profileParams are the per-profile filter thresholds and the base
// correlation ceiling for the first relaxation stage.
type profileParams struct {
	minEdge        float64
	minConfidence  float64
	baseCorrCeiling float64
}

func paramsFor(profile models.RiskProfile) profileParams {
	switch profile {
	case models.ProfileConservative:
		return profileParams{minEdge: 0.02, minConfidence: 70, baseCorrCeiling: 0.49}
	case models.ProfileDegen:
		return profileParams{minEdge: 0.0, minConfidence: 40, baseCorrCeiling: 0.75}
	default:
		return profileParams{minEdge: 0.01, minConfidence: 55, baseCorrCeiling: 0.60}
	}
}

// Optimizer selects an optimal, non-conflicting, correlation-bounded subset
// of candidate legs.
type Optimizer struct {
	correlation *CorrelationModel
	logger      *logrus.Logger
}

// NewOptimizer creates an Optimizer.
func NewOptimizer(correlation *CorrelationModel, logger *logrus.Logger) *Optimizer {
	return &Optimizer{correlation: correlation, logger: logger}
}

// scoredLeg pairs a candidate with its selection score.
type scoredLeg struct {
	leg   models.Leg
	score float64
}

// Score ranks a leg for selection: expected value weighted by confidence,
// plus edge, with line movement as a tiebreak.
func Score(leg *models.Leg) float64 {
	ev := leg.ExpectedValue()
	confNorm := leg.ConfidenceScore / 100.0
	return ev*(0.7+0.3*confNorm) + leg.Edge()*0.5 + leg.LineMovement*0.08
}

// Select picks up to numLegs legs from the candidate pool under the
// profile's constraints, progressively relaxing dedup keys, filters, and
// correlation ceilings. An empty pool is an InsufficientCandidatesError;
// otherwise a shorter-than-requested selection is returned best-effort.
func (o *Optimizer) Select(candidates []models.Leg, numLegs int, profile models.RiskProfile) ([]models.Leg, error) {
	if numLegs < MinParlayLegs || numLegs > MaxParlayLegs {
		return nil, models.NewValidationError("num_legs",
			fmt.Sprintf("must be between %d and %d, got %d", MinParlayLegs, MaxParlayLegs, numLegs))
	}
	if len(candidates) == 0 {
		return nil, models.NewInsufficientCandidatesError(numLegs, 0, "candidate pool is empty")
	}

	params := paramsFor(profile)

	pool := o.deduplicate(candidates, numLegs)
	pool = o.filterByEdge(pool, params.minEdge, numLegs)
	pool = o.filterByConfidence(pool, params.minConfidence, numLegs)

	scored := make([]scoredLeg, 0, len(pool))
	for i := range pool {
		scored = append(scored, scoredLeg{leg: pool[i], score: Score(&pool[i])})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	ceilings := []float64{params.baseCorrCeiling, 0.85, 0.99}
	var best []models.Leg
	for _, ceiling := range ceilings {
		selection := o.selectUnderCeiling(scored, numLegs, ceiling)
		if len(selection) > len(best) {
			best = selection
		}
		if len(best) >= numLegs {
			break
		}
	}

	if o.logger != nil && len(best) < numLegs {
		o.logger.WithFields(logrus.Fields{
			"requested": numLegs,
			"selected":  len(best),
			"pool_size": len(pool),
			"profile":   profile,
		}).Warn("Selection fell short of requested legs after full relaxation")
	}

	return best, nil
}

// selectUnderCeiling greedily fills a selection from score-ordered candidates
// while enforcing identity uniqueness, the per-game cap, the pairwise
// correlation ceiling, and market-conflict exclusion.
func (o *Optimizer) selectUnderCeiling(scored []scoredLeg, numLegs int, ceiling float64) []models.Leg {
	selection := make([]models.Leg, 0, numLegs)
	perGame := make(map[string]int)

	for i := range scored {
		cand := &scored[i].leg
		if perGame[cand.GameID] >= maxLegsPerGame {
			continue
		}
		if !o.compatible(cand, selection, ceiling) {
			continue
		}
		selection = append(selection, *cand)
		perGame[cand.GameID]++
		if len(selection) == numLegs {
			break
		}
	}

	return selection
}

func (o *Optimizer) compatible(cand *models.Leg, selection []models.Leg, ceiling float64) bool {
	for i := range selection {
		held := &selection[i]
		if SameSelection(cand, held) {
			return false
		}
		if MarketConflict(cand, held) {
			return false
		}
		if o.correlation.PairwiseScore(cand, held) > ceiling {
			return false
		}
	}
	return true
}

// deduplicate collapses duplicate candidates keeping the highest-confidence
// leg per key, widening the key when a coarse dedup leaves fewer legs than
// requested: first game+outcome, then the full identity key, then exact
// duplicates only.
func (o *Optimizer) deduplicate(candidates []models.Leg, numLegs int) []models.Leg {
	keyFns := []func(*models.Leg) string{
		func(l *models.Leg) string { return l.OutcomeKey() },
		func(l *models.Leg) string { return l.IdentityKey() },
		func(l *models.Leg) string {
			return l.IdentityKey() + "|" + l.OddsAmerican
		},
	}

	var result []models.Leg
	for _, keyFn := range keyFns {
		result = dedupeBy(candidates, keyFn)
		if len(result) >= numLegs {
			return result
		}
	}
	return result
}

func dedupeBy(candidates []models.Leg, keyFn func(*models.Leg) string) []models.Leg {
	best := make(map[string]int)
	order := make([]string, 0, len(candidates))
	for i := range candidates {
		key := keyFn(&candidates[i])
		if held, seen := best[key]; seen {
			if candidates[i].ConfidenceScore > candidates[held].ConfidenceScore {
				best[key] = i
			}
			continue
		}
		best[key] = i
		order = append(order, key)
	}

	result := make([]models.Leg, 0, len(order))
	for _, key := range order {
		result = append(result, candidates[best[key]])
	}
	return result
}

// filterByEdge keeps legs whose edge clears the profile minimum, falling
// back to the unfiltered pool when too few remain.
func (o *Optimizer) filterByEdge(pool []models.Leg, minEdge float64, numLegs int) []models.Leg {
	filtered := make([]models.Leg, 0, len(pool))
	for i := range pool {
		if pool[i].Edge() > 0 && pool[i].Edge() >= minEdge {
			filtered = append(filtered, pool[i])
		}
	}
	if len(filtered) < numLegs {
		return pool
	}
	return filtered
}

// filterByConfidence keeps legs above the profile confidence threshold,
// relaxing to 80% of the threshold and then to no filter when the pool
// would fall short.
func (o *Optimizer) filterByConfidence(pool []models.Leg, minConfidence float64, numLegs int) []models.Leg {
	for _, threshold := range []float64{minConfidence, minConfidence * confidenceRelax} {
		filtered := make([]models.Leg, 0, len(pool))
		for i := range pool {
			if pool[i].ConfidenceScore >= threshold {
				filtered = append(filtered, pool[i])
			}
		}
		if len(filtered) >= numLegs {
			return filtered
		}
	}
	return pool
}
