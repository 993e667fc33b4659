package models

import (
	"strings"
	"time"
)

// Parlay is a fully analyzed multi-leg wager.
type Parlay struct {
	Legs                        []Leg       `json:"legs"`
	RiskProfile                 RiskProfile `json:"risk_profile"`
	CombinedImpliedProbability  float64     `json:"combined_implied_probability"`
	CombinedModelProbability    float64     `json:"combined_model_probability"`
	CalibratedProbability       float64     `json:"calibrated_probability"`
	CombinedDecimalOdds         float64     `json:"combined_decimal_odds"`
	ExpectedValue               float64     `json:"expected_value"`
	OverallConfidence           float64     `json:"overall_confidence"`
	UpsetCount                  int         `json:"upset_count"`
	GeneratedAt                 time.Time   `json:"generated_at"`
}

// NumLegs returns the leg count.
func (p *Parlay) NumLegs() int {
	return len(p.Legs)
}

// CountUpsets counts plus-money legs in a selection.
func CountUpsets(legs []Leg) int {
	n := 0
	for i := range legs {
		if strings.HasPrefix(legs[i].OddsAmerican, "+") {
			n++
		}
	}
	return n
}

// CombinedImplied multiplies the market-implied probabilities of the legs.
func CombinedImplied(legs []Leg) float64 {
	p := 1.0
	for i := range legs {
		p *= legs[i].ImpliedProbability
	}
	return p
}

// CombinedDecimal multiplies the decimal odds of the legs.
func CombinedDecimal(legs []Leg) float64 {
	d := 1.0
	for i := range legs {
		d *= legs[i].OddsDecimal
	}
	return d
}

// AverageConfidence averages leg confidence scores, 0 for an empty list.
func AverageConfidence(legs []Leg) float64 {
	if len(legs) == 0 {
		return 0
	}
	sum := 0.0
	for i := range legs {
		sum += legs[i].ConfidenceScore
	}
	return sum / float64(len(legs))
}
