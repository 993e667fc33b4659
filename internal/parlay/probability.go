package parlay

import (
	"github.com/Fawl3r/parlay-gorilla/internal/models"
)

const probabilityEpsilon = 1e-6

// ProbabilityCalculator composes leg probabilities into a joint parlay
// probability. Legs in different games multiply independently; legs sharing a
// game are adjusted by the correlation distortion model, pulling the group's
// naive product toward its weakest leg in proportion to group size and
// outcome similarity.
type ProbabilityCalculator struct {
	correlation *CorrelationModel
}

// NewProbabilityCalculator creates a calculator backed by the given model.
func NewProbabilityCalculator(correlation *CorrelationModel) *ProbabilityCalculator {
	return &ProbabilityCalculator{correlation: correlation}
}

// profileDistortionScale dampens the same-game adjustment per risk profile:
// conservative reporting stays closest to the naive product.
func profileDistortionScale(profile models.RiskProfile) float64 {
	switch profile {
	case models.ProfileConservative:
		return 0.5
	case models.ProfileDegen:
		return 1.0
	default:
		return 0.75
	}
}

// Calculate returns the correlation-adjusted joint probability of the legs,
// bounded to (0, 1). With no same-game legs it equals the naive product.
func (c *ProbabilityCalculator) Calculate(legs []models.Leg, profile models.RiskProfile) float64 {
	if len(legs) == 0 {
		return 0.0
	}

	groups := make(map[string][]*models.Leg)
	order := make([]string, 0, len(legs))
	for i := range legs {
		id := legs[i].GameID
		if _, seen := groups[id]; !seen {
			order = append(order, id)
		}
		groups[id] = append(groups[id], &legs[i])
	}

	scale := profileDistortionScale(profile)
	joint := 1.0
	for _, id := range order {
		joint *= c.groupProbability(groups[id], scale)
	}

	return boundProbability(joint)
}

// groupProbability computes the joint probability of all legs in one game.
func (c *ProbabilityCalculator) groupProbability(group []*models.Leg, scale float64) float64 {
	naive := 1.0
	weakest := 1.0
	for _, leg := range group {
		naive *= leg.ModelProbability
		if leg.ModelProbability < weakest {
			weakest = leg.ModelProbability
		}
	}
	if len(group) < 2 {
		return naive
	}

	sim := c.correlation.GroupSimilarity(group)
	w := c.correlation.DistortionWeight(len(group), sim) * scale
	return naive + (weakest-naive)*w
}

func boundProbability(p float64) float64 {
	if p < probabilityEpsilon {
		return probabilityEpsilon
	}
	if p > 1.0-probabilityEpsilon {
		return 1.0 - probabilityEpsilon
	}
	return p
}
