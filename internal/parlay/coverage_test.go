package parlay

import (
	"math/bits"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fawl3r/parlay-gorilla/internal/models"
)

func newTestCoverageBuilder() *CoverageBuilder {
	calc := NewProbabilityCalculator(NewCorrelationModel())
	return NewCoverageBuilder(NewFlipper(), calc)
}

func coverageLegs(n int) []models.Leg {
	probs := []float64{0.70, 0.65, 0.60, 0.58, 0.55, 0.72, 0.63, 0.57}
	legs := make([]models.Leg, 0, n)
	for i := 0; i < n; i++ {
		leg := moneylineLeg("Chiefs", 0.6, probs[i%len(probs)])
		leg.GameID = "game-" + string(rune('a'+i))
		leg.HomeTeam = "Home " + leg.GameID
		leg.AwayTeam = "Away " + leg.GameID
		leg.Outcome = leg.HomeTeam
		legs = append(legs, leg)
	}
	return legs
}

func TestBuildValidatesLegCount(t *testing.T) {
	b := newTestCoverageBuilder()

	_, err := b.Build(nil, 10, 2, 10)
	assert.True(t, models.IsValidationError(err))

	_, err = b.Build(coverageLegs(MaxCoverageLegs+1), 10, 2, 10)
	assert.True(t, models.IsValidationError(err))
}

func TestBuildScenarioCounts(t *testing.T) {
	b := newTestCoverageBuilder()

	n := 4
	pack, err := b.Build(coverageLegs(n), 100, 2, 100)
	require.NoError(t, err)

	assert.Equal(t, uint64(1<<n), pack.TotalScenarios)
	assert.Len(t, pack.ScenarioTickets, 1<<n)

	// C(n, k) counts sum to 2^n.
	require.Len(t, pack.ByUpsetCount, n+1)
	var sum uint64
	for _, c := range pack.ByUpsetCount {
		sum += c
	}
	assert.Equal(t, pack.TotalScenarios, sum)
	assert.Equal(t, []uint64{1, 4, 6, 4, 1}, pack.ByUpsetCount)
}

func TestBuildTopKBoundsOutput(t *testing.T) {
	b := newTestCoverageBuilder()

	pack, err := b.Build(coverageLegs(6), 5, 3, 4)
	require.NoError(t, err)

	assert.Len(t, pack.ScenarioTickets, 5)
	assert.Len(t, pack.RoundRobinTickets, 4)
	assert.Equal(t, uint64(64), pack.TotalScenarios)
}

func TestBuildScenarioTicketsOrderedByProbability(t *testing.T) {
	b := newTestCoverageBuilder()

	pack, err := b.Build(coverageLegs(4), 8, 2, 8)
	require.NoError(t, err)
	require.NotEmpty(t, pack.ScenarioTickets)

	for i := 1; i < len(pack.ScenarioTickets); i++ {
		assert.GreaterOrEqual(t,
			pack.ScenarioTickets[i-1].CombinedProbability,
			pack.ScenarioTickets[i].CombinedProbability)
	}

	// The most likely scenario is the all-favorites ticket when every leg
	// clears 50%.
	assert.Equal(t, uint32(0), pack.ScenarioTickets[0].FlippedMask)
	assert.Equal(t, 0, pack.ScenarioTickets[0].FlippedCount)
}

func TestBuildFlippedCountMatchesMask(t *testing.T) {
	b := newTestCoverageBuilder()

	pack, err := b.Build(coverageLegs(3), 8, 2, 8)
	require.NoError(t, err)

	for _, ticket := range pack.ScenarioTickets {
		assert.Equal(t, bits.OnesCount32(ticket.FlippedMask), ticket.FlippedCount)
	}
}

func TestBuildRoundRobinSubsetSize(t *testing.T) {
	b := newTestCoverageBuilder()

	pack, err := b.Build(coverageLegs(5), 4, 3, 20)
	require.NoError(t, err)

	// C(5,3) = 10 subsets
	assert.Len(t, pack.RoundRobinTickets, 10)
	for _, ticket := range pack.RoundRobinTickets {
		assert.Len(t, ticket.Legs, 3)
	}
}

func TestBuildDefaultRoundRobinSize(t *testing.T) {
	b := newTestCoverageBuilder()

	// Invalid size falls back to n-1.
	pack, err := b.Build(coverageLegs(4), 4, 0, 20)
	require.NoError(t, err)

	for _, ticket := range pack.RoundRobinTickets {
		assert.Len(t, ticket.Legs, 3)
	}
}

func TestAnalyzeTicketWeakestStrongest(t *testing.T) {
	b := newTestCoverageBuilder()

	legs := coverageLegs(3) // probs 0.70, 0.65, 0.60
	ticket := b.analyzeTicket(legs)

	require.NotNil(t, ticket.WeakestLeg)
	require.NotNil(t, ticket.StrongestLeg)
	assert.InDelta(t, 0.60, ticket.WeakestLeg.ModelProbability, 1e-9)
	assert.InDelta(t, 0.70, ticket.StrongestLeg.ModelProbability, 1e-9)
}

func TestTopKKeepsLargest(t *testing.T) {
	top := newTopK(3)
	for i, p := range []float64{0.1, 0.9, 0.4, 0.7, 0.2, 0.8} {
		top.offer(rankedMask{mask: uint32(i), prob: p})
	}

	ranked := top.drain()
	require.Len(t, ranked, 3)
	assert.InDelta(t, 0.9, ranked[0].prob, 1e-9)
	assert.InDelta(t, 0.8, ranked[1].prob, 1e-9)
	assert.InDelta(t, 0.7, ranked[2].prob, 1e-9)
}
