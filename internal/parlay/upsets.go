package parlay

import (
	"fmt"
	"sort"

	"github.com/Fawl3r/parlay-gorilla/internal/models"
	"github.com/Fawl3r/parlay-gorilla/internal/odds"
)

// TierBand maps a (minimum probability, maximum odds) band onto a risk tier.
// Bands are checked in order; a candidate matching none defaults to high.
type TierBand struct {
	Tier     models.RiskTier
	MinProb  float64
	MaxOdds  int
}

// DefaultTierBands are the standard underdog tier thresholds.
func DefaultTierBands() []TierBand {
	return []TierBand{
		{Tier: models.TierLow, MinProb: 0.40, MaxOdds: 150},
		{Tier: models.TierMedium, MinProb: 0.30, MaxOdds: 250},
		{Tier: models.TierHigh, MinProb: 0.0, MaxOdds: 10000},
	}
}

// UpsetFinderConfig controls filtering and output size.
type UpsetFinderConfig struct {
	MinEdge    float64
	MaxResults int
	TierBands  []TierBand
}

// DefaultUpsetFinderConfig returns the standard finder configuration.
func DefaultUpsetFinderConfig() UpsetFinderConfig {
	return UpsetFinderConfig{
		MinEdge:    0.03,
		MaxResults: 10,
		TierBands:  DefaultTierBands(),
	}
}

// UpsetFinder ranks positive-EV underdog legs into risk tiers.
type UpsetFinder struct {
	cfg UpsetFinderConfig
}

// NewUpsetFinder creates an UpsetFinder.
func NewUpsetFinder(cfg UpsetFinderConfig) *UpsetFinder {
	if len(cfg.TierBands) == 0 {
		cfg.TierBands = DefaultTierBands()
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 10
	}
	return &UpsetFinder{cfg: cfg}
}

// Find filters candidates to positive-EV plus-money underdogs clearing
// minEdge, tiers them, and returns them sorted by EV descending.
func (f *UpsetFinder) Find(candidates []models.Leg, minEdge float64, maxResults int) []models.UpsetCandidate {
	if minEdge <= 0 {
		minEdge = f.cfg.MinEdge
	}
	if maxResults <= 0 {
		maxResults = f.cfg.MaxResults
	}

	results := make([]models.UpsetCandidate, 0, len(candidates))
	for i := range candidates {
		leg := &candidates[i]
		if !leg.IsUnderdog() {
			continue
		}
		if leg.Edge() < minEdge {
			continue
		}
		american, err := odds.ParseAmerican(leg.OddsAmerican)
		if err != nil || american <= 0 {
			continue
		}
		ev := odds.ExpectedValue(leg.ModelProbability, american)
		if ev <= 0 {
			continue
		}

		tier := f.assignTier(leg.ModelProbability, american)
		results = append(results, models.UpsetCandidate{
			Leg:           *leg,
			ExpectedValue: ev,
			Payout:        odds.PayoutPer100(american),
			RiskTier:      tier,
			Reasoning: fmt.Sprintf("model %.0f%% vs implied %.0f%% at %s (edge %.3f, EV %.3f)",
				leg.ModelProbability*100, leg.ImpliedProbability*100, leg.OddsAmerican, leg.Edge(), ev),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].ExpectedValue > results[j].ExpectedValue
	})
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results
}

// FindForParlayType adjusts edge floor, tier filter, and ordering per the
// parlay construction style.
func (f *UpsetFinder) FindForParlayType(candidates []models.Leg, parlayType models.RiskProfile, maxResults int) []models.UpsetCandidate {
	switch parlayType {
	case models.ProfileConservative:
		found := f.Find(candidates, 0.08, len(candidates))
		safe := make([]models.UpsetCandidate, 0, len(found))
		for _, c := range found {
			if c.RiskTier == models.TierLow {
				safe = append(safe, c)
			}
		}
		return truncate(safe, maxResults)

	case models.ProfileDegen:
		found := f.Find(candidates, 0.03, len(candidates))
		sort.SliceStable(found, func(i, j int) bool {
			return found[i].Payout > found[j].Payout
		})
		return truncate(found, maxResults)

	default:
		return truncate(f.Find(candidates, 0.05, len(candidates)), maxResults)
	}
}

func (f *UpsetFinder) assignTier(modelProb float64, american int) models.RiskTier {
	for _, band := range f.cfg.TierBands {
		if modelProb >= band.MinProb && american <= band.MaxOdds {
			return band.Tier
		}
	}
	return models.TierHigh
}

func truncate(results []models.UpsetCandidate, max int) []models.UpsetCandidate {
	if max > 0 && len(results) > max {
		return results[:max]
	}
	return results
}
