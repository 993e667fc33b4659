package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMarketType(t *testing.T) {
	tests := []struct {
		in      string
		want    MarketType
		wantErr bool
	}{
		{in: "h2h", want: MarketMoneyline},
		{in: "Moneyline", want: MarketMoneyline},
		{in: "ml", want: MarketMoneyline},
		{in: "spreads", want: MarketSpread},
		{in: " ATS ", want: MarketSpread},
		{in: "totals", want: MarketTotal},
		{in: "over_under", want: MarketTotal},
		{in: "player_props", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMarketType(tt.in)
			if tt.wantErr {
				assert.True(t, IsValidationError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRiskProfile(t *testing.T) {
	got, err := ParseRiskProfile("")
	require.NoError(t, err)
	assert.Equal(t, ProfileBalanced, got, "empty profile defaults to balanced")

	got, err = ParseRiskProfile(" DEGEN ")
	require.NoError(t, err)
	assert.Equal(t, ProfileDegen, got)

	_, err = ParseRiskProfile("reckless")
	assert.True(t, IsValidationError(err))
}

func TestClampModelProbability(t *testing.T) {
	assert.Equal(t, MinModelProbability, ClampModelProbability(0.0001))
	assert.Equal(t, MaxModelProbability, ClampModelProbability(0.999))
	assert.Equal(t, 0.42, ClampModelProbability(0.42))
}

func TestLegKeys(t *testing.T) {
	point := -3.5
	leg := Leg{
		GameID:     "evt-1",
		MarketType: MarketSpread,
		Outcome:    "Chiefs",
		Point:      &point,
	}

	assert.Equal(t, "evt-1|spreads|chiefs|-3.5", leg.IdentityKey())
	assert.Equal(t, "evt-1|chiefs", leg.OutcomeKey())
	assert.Equal(t, "evt-1|spreads", leg.MarketKey())

	leg.Point = nil
	assert.Equal(t, "evt-1|spreads|chiefs|-", leg.IdentityKey())
}

func TestLegEdgeAndEV(t *testing.T) {
	leg := Leg{
		ImpliedProbability: 0.50,
		ModelProbability:   0.58,
		OddsDecimal:        2.0,
	}

	assert.InDelta(t, 0.08, leg.Edge(), 1e-9)
	assert.InDelta(t, 0.16, leg.ExpectedValue(), 1e-9)
}

func TestLegIsUnderdog(t *testing.T) {
	dog := Leg{OddsAmerican: "+150", ImpliedProbability: 0.40}
	assert.True(t, dog.IsUnderdog())

	favorite := Leg{OddsAmerican: "-150", ImpliedProbability: 0.60}
	assert.False(t, favorite.IsUnderdog())
}

func TestLegPicksHomeAway(t *testing.T) {
	leg := Leg{HomeTeam: "Chiefs", AwayTeam: "Bills", Outcome: "chiefs"}
	assert.True(t, leg.PicksHome())
	assert.False(t, leg.PicksAway())

	leg.Outcome = "away"
	assert.True(t, leg.PicksAway())

	leg.Outcome = "Over"
	assert.False(t, leg.PicksHome())
	assert.False(t, leg.PicksAway())
}

func TestLegClone(t *testing.T) {
	point := 47.5
	leg := Leg{GameID: "evt-1", Point: &point}

	clone := leg.Clone()
	*clone.Point = 50.5

	assert.InDelta(t, 47.5, *leg.Point, 1e-9)
}

func TestParlayAggregates(t *testing.T) {
	legs := []Leg{
		{OddsAmerican: "-150", OddsDecimal: 1.666667, ImpliedProbability: 0.6, ConfidenceScore: 80},
		{OddsAmerican: "+120", OddsDecimal: 2.2, ImpliedProbability: 0.4545, ConfidenceScore: 60},
	}

	assert.Equal(t, 1, CountUpsets(legs))
	assert.InDelta(t, 0.6*0.4545, CombinedImplied(legs), 1e-9)
	assert.InDelta(t, 1.666667*2.2, CombinedDecimal(legs), 1e-9)
	assert.InDelta(t, 70.0, AverageConfidence(legs), 1e-9)
	assert.Equal(t, 0.0, AverageConfidence(nil))
}
