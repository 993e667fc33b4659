package parlay

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Fawl3r/parlay-gorilla/internal/models"
)

func legIn(gameID string, market models.MarketType, outcome string, prob float64) models.Leg {
	return models.Leg{
		GameID:             gameID,
		Sport:              "americanfootball_nfl",
		HomeTeam:           "Home " + gameID,
		AwayTeam:           "Away " + gameID,
		MarketType:         market,
		Outcome:            outcome,
		OddsAmerican:       "-110",
		OddsDecimal:        1.909091,
		ImpliedProbability: 0.5238,
		ModelProbability:   prob,
		ConfidenceScore:    60,
	}
}

func TestCalculateIndependentLegsMultiply(t *testing.T) {
	calc := NewProbabilityCalculator(NewCorrelationModel())

	legs := []models.Leg{
		legIn("g1", models.MarketMoneyline, "Home g1", 0.8),
		legIn("g2", models.MarketMoneyline, "Home g2", 0.65),
		legIn("g3", models.MarketMoneyline, "Home g3", 0.6),
	}

	got := calc.Calculate(legs, models.ProfileBalanced)
	assert.InDelta(t, 0.8*0.65*0.6, got, 1e-9)
}

func TestCalculateSameGameBetweenNaiveAndWeakest(t *testing.T) {
	calc := NewProbabilityCalculator(NewCorrelationModel())

	legs := []models.Leg{
		legIn("g1", models.MarketMoneyline, "Home g1", 0.7),
		legIn("g1", models.MarketTotal, models.OutcomeOver, 0.55),
	}
	naive := 0.7 * 0.55
	weakest := 0.55

	for _, profile := range []models.RiskProfile{
		models.ProfileConservative, models.ProfileBalanced, models.ProfileDegen,
	} {
		got := calc.Calculate(legs, profile)
		assert.Greater(t, got, naive, "profile %s", profile)
		assert.Less(t, got, weakest, "profile %s", profile)
	}
}

func TestCalculateDistortionOrderedByProfile(t *testing.T) {
	calc := NewProbabilityCalculator(NewCorrelationModel())

	legs := []models.Leg{
		legIn("g1", models.MarketMoneyline, "Home g1", 0.7),
		legIn("g1", models.MarketSpread, "Home g1", 0.6),
	}

	conservative := calc.Calculate(legs, models.ProfileConservative)
	balanced := calc.Calculate(legs, models.ProfileBalanced)
	degen := calc.Calculate(legs, models.ProfileDegen)

	// Stronger distortion pulls further toward the weakest leg, i.e. upward.
	assert.Less(t, conservative, balanced)
	assert.Less(t, balanced, degen)
}

func TestCalculateEmptyAndSingle(t *testing.T) {
	calc := NewProbabilityCalculator(NewCorrelationModel())

	assert.Equal(t, 0.0, calc.Calculate(nil, models.ProfileBalanced))

	single := []models.Leg{legIn("g1", models.MarketMoneyline, "Home g1", 0.42)}
	assert.InDelta(t, 0.42, calc.Calculate(single, models.ProfileBalanced), 1e-9)
}

func TestCalculateBoundedAwayFromZeroAndOne(t *testing.T) {
	calc := NewProbabilityCalculator(NewCorrelationModel())

	legs := make([]models.Leg, 0, 20)
	for i := 0; i < 20; i++ {
		legs = append(legs, legIn(string(rune('a'+i)), models.MarketMoneyline, "Home", 0.05))
	}

	got := calc.Calculate(legs, models.ProfileBalanced)
	assert.Greater(t, got, 0.0)
	assert.GreaterOrEqual(t, got, probabilityEpsilon)
	assert.Less(t, got, 1.0)
}

func TestPairwiseScore(t *testing.T) {
	m := NewCorrelationModel()

	tests := []struct {
		name string
		a, b models.Leg
		want float64
	}{
		{
			name: "different games",
			a:    legIn("g1", models.MarketMoneyline, "Home g1", 0.6),
			b:    legIn("g2", models.MarketMoneyline, "Home g2", 0.6),
			want: 0.0,
		},
		{
			name: "same game different markets",
			a:    legIn("g1", models.MarketMoneyline, "Home g1", 0.6),
			b:    legIn("g1", models.MarketTotal, models.OutcomeOver, 0.55),
			want: 0.5,
		},
		{
			name: "same game same market",
			a:    legIn("g1", models.MarketTotal, models.OutcomeOver, 0.55),
			b:    legIn("g1", models.MarketTotal, models.OutcomeUnder, 0.5),
			want: 0.8,
		},
		{
			name: "same game same market same outcome",
			a:    legIn("g1", models.MarketMoneyline, "Home g1", 0.6),
			b:    legIn("g1", models.MarketMoneyline, "Home g1", 0.62),
			want: 1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, m.PairwiseScore(&tt.a, &tt.b), 1e-9)
		})
	}
}

func TestDistortionWeightCapped(t *testing.T) {
	m := NewCorrelationModel()

	assert.Equal(t, 0.0, m.DistortionWeight(1, 1.0))
	assert.InDelta(t, 0.15, m.DistortionWeight(2, 1.0), 1e-9)
	assert.InDelta(t, 0.6, m.DistortionWeight(10, 1.0), 1e-9)
}
