package tracking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fawl3r/parlay-gorilla/internal/models"
	"github.com/Fawl3r/parlay-gorilla/internal/repository"
)

type fakeCalibrationRepo struct {
	rows map[string]*models.TeamCalibration
}

func newFakeCalibrationRepo() *fakeCalibrationRepo {
	return &fakeCalibrationRepo{rows: make(map[string]*models.TeamCalibration)}
}

func (f *fakeCalibrationRepo) Upsert(ctx context.Context, tc *models.TeamCalibration) error {
	cp := *tc
	f.rows[tc.Team] = &cp
	return nil
}

func (f *fakeCalibrationRepo) GetByTeam(ctx context.Context, sport, team string) (*models.TeamCalibration, error) {
	if tc, ok := f.rows[team]; ok {
		cp := *tc
		return &cp, nil
	}
	return nil, models.ErrNotFound
}

func (f *fakeCalibrationRepo) ListTeamCalibrations(ctx context.Context, sport string) ([]models.TeamCalibration, error) {
	out := make([]models.TeamCalibration, 0, len(f.rows))
	for _, tc := range f.rows {
		out = append(out, *tc)
	}
	return out, nil
}

type fakeInvalidator struct {
	sports []string
}

func (f *fakeInvalidator) Invalidate(sport string) {
	f.sports = append(f.sports, sport)
}

// resolvedPick builds a settled prediction with the outcome the tracker would
// have written for that resolution.
func resolvedPick(side string, prob, edge float64, resolution models.Resolution) repository.ResolvedPrediction {
	p := models.Prediction{
		ID:            uuid.New(),
		Sport:         "americanfootball_nfl",
		EventID:       "evt-" + uuid.NewString(),
		MarketType:    models.MarketMoneyline,
		Side:          side,
		PredictedProb: prob,
		ImpliedProb:   prob - edge,
		Edge:          edge,
		Resolution:    resolution,
	}
	outcome := buildOutcome(&p, resolution, time.Now().UTC())
	return repository.ResolvedPrediction{Prediction: p, Outcome: *outcome}
}

func newTestStatsService() (*StatsService, *fakePredictionRepo, *fakeCalibrationRepo, *fakeInvalidator) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	predictions := newFakePredictionRepo()
	calibrations := newFakeCalibrationRepo()
	invalidator := &fakeInvalidator{}
	return NewStatsService(predictions, calibrations, invalidator, logger), predictions, calibrations, invalidator
}

func TestGetAccuracyStatsAggregates(t *testing.T) {
	svc, predictions, _, _ := newTestStatsService()

	// Eight copies of the mix clear the reporting floor without moving any
	// of the averages.
	for i := 0; i < 8; i++ {
		predictions.resolved = append(predictions.resolved,
			resolvedPick("Chiefs", 0.60, 0.10, models.ResolutionWin),
			resolvedPick("Bills", 0.70, -0.02, models.ResolutionWin),
			resolvedPick("Jets", 0.55, 0.05, models.ResolutionLoss),
			resolvedPick("Eagles", 0.50, 0.20, models.ResolutionPush),
		)
	}

	stats, err := svc.GetAccuracyStats(context.Background(), "americanfootball_nfl", time.Now().AddDate(0, 0, -30))
	require.NoError(t, err)

	assert.Equal(t, 32, stats.TotalResolved)
	assert.Equal(t, 16, stats.Wins)
	assert.Equal(t, 8, stats.Losses)
	assert.Equal(t, 8, stats.Pushes)
	assert.True(t, stats.Sufficient)

	// Pushes are excluded from the decided set.
	assert.InDelta(t, 2.0/3.0, stats.Accuracy, 1e-9)

	brier := (0.16 + 0.09 + 0.3025) / 3.0
	assert.InDelta(t, brier, stats.BrierScore, 1e-9)

	// Signed errors: -0.40, -0.30, +0.55 over the decided set.
	assert.InDelta(t, 0.05, stats.CalibrationError, 1e-9)

	// Edge averages over every resolved row, pushes included.
	assert.InDelta(t, 0.0825, stats.AvgEdge, 1e-9)

	// Two decided picks carried positive edge; one won.
	assert.InDelta(t, 0.5, stats.PositiveEdgeWinRate, 1e-9)
}

func TestGetAccuracyStatsThinSampleReportsCountsOnly(t *testing.T) {
	svc, predictions, _, _ := newTestStatsService()

	predictions.resolved = []repository.ResolvedPrediction{
		resolvedPick("Chiefs", 0.60, 0.10, models.ResolutionWin),
		resolvedPick("Bills", 0.70, -0.02, models.ResolutionWin),
		resolvedPick("Jets", 0.55, 0.05, models.ResolutionLoss),
		resolvedPick("Eagles", 0.50, 0.20, models.ResolutionPush),
	}

	stats, err := svc.GetAccuracyStats(context.Background(), "americanfootball_nfl", time.Time{})
	require.NoError(t, err)

	assert.Equal(t, 4, stats.TotalResolved)
	assert.Equal(t, 2, stats.Wins)
	assert.Equal(t, 1, stats.Losses)
	assert.Equal(t, 1, stats.Pushes)
	assert.False(t, stats.Sufficient)

	// Below the floor the derived metrics stay zero rather than reporting
	// numbers a handful of games cannot support.
	assert.Zero(t, stats.Accuracy)
	assert.Zero(t, stats.BrierScore)
	assert.Zero(t, stats.CalibrationError)
	assert.Zero(t, stats.AvgEdge)
	assert.Zero(t, stats.AvgExpectedValue)
	assert.Zero(t, stats.PositiveEdgeWinRate)
}

func TestGetAccuracyStatsSufficientThreshold(t *testing.T) {
	svc, predictions, _, _ := newTestStatsService()

	for i := 0; i < MinResolvedForStats; i++ {
		predictions.resolved = append(predictions.resolved,
			resolvedPick("Chiefs", 0.60, 0.05, models.ResolutionWin))
	}

	stats, err := svc.GetAccuracyStats(context.Background(), "americanfootball_nfl", time.Time{})
	require.NoError(t, err)
	assert.True(t, stats.Sufficient)
	assert.Equal(t, 1.0, stats.Accuracy)
}

func TestGetAccuracyStatsEmpty(t *testing.T) {
	svc, _, _, _ := newTestStatsService()

	stats, err := svc.GetAccuracyStats(context.Background(), "americanfootball_nfl", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalResolved)
	assert.Equal(t, 0.0, stats.Accuracy)
}

func TestCalculateTeamBias(t *testing.T) {
	svc, predictions, _, _ := newTestStatsService()

	rows := make([]repository.ResolvedPrediction, 0, 13)
	for i := 0; i < 6; i++ {
		rows = append(rows, resolvedPick("Chiefs", 0.70, 0.05, models.ResolutionWin))
	}
	for i := 0; i < 4; i++ {
		rows = append(rows, resolvedPick("Chiefs", 0.70, 0.05, models.ResolutionLoss))
	}
	// Pushes carry no signal; an opponent pick contributes from the Chiefs'
	// side of the game with probability and error inverted.
	rows = append(rows, resolvedPick("Chiefs", 0.70, 0.05, models.ResolutionPush))
	rows = append(rows, resolvedPick("Bills", 0.60, 0.05, models.ResolutionWin))
	predictions.teamResolved["Chiefs"] = rows

	tc, err := svc.CalculateTeamBias(context.Background(), "americanfootball_nfl", "Chiefs", time.Time{})
	require.NoError(t, err)
	require.NotNil(t, tc)

	assert.Equal(t, "Chiefs", tc.Team)
	assert.Equal(t, 11, tc.SampleSize)
	assert.InDelta(t, 6.0/11.0, tc.Accuracy, 1e-9)

	// Signed errors: 6 * (0.7-1) + 4 * 0.7 = 1.0 from the Chiefs picks, plus
	// the inverted Bills win at -(0.6-1) = +0.40. The model ran hot on this
	// team; the correction clamps at the bound.
	assert.InDelta(t, 1.40/11.0, tc.AvgSignedError, 1e-9)
	assert.InDelta(t, -models.BiasAdjustmentClamp, tc.BiasAdjustment, 1e-9)
}

func TestCalculateTeamBiasCountsOpponentPicks(t *testing.T) {
	svc, predictions, _, _ := newTestStatsService()

	// Every pick backed the Bills, but each game still grades the Chiefs
	// from their side: a Bills win is a Chiefs loss at 1 - 0.52.
	rows := make([]repository.ResolvedPrediction, 0, 10)
	for i := 0; i < 5; i++ {
		rows = append(rows, resolvedPick("Bills", 0.52, 0.02, models.ResolutionWin))
	}
	for i := 0; i < 5; i++ {
		rows = append(rows, resolvedPick("Bills", 0.52, 0.02, models.ResolutionLoss))
	}
	predictions.teamResolved["Chiefs"] = rows

	tc, err := svc.CalculateTeamBias(context.Background(), "americanfootball_nfl", "Chiefs", time.Time{})
	require.NoError(t, err)
	require.NotNil(t, tc)

	assert.Equal(t, 10, tc.SampleSize)
	assert.InDelta(t, 0.5, tc.Accuracy, 1e-9)

	// Bills wins invert to +0.48, Bills losses to -0.52: the model ran
	// slightly cold on the Chiefs, so the adjustment nudges them up.
	assert.InDelta(t, -0.02, tc.AvgSignedError, 1e-9)
	assert.InDelta(t, 0.02, tc.BiasAdjustment, 1e-9)
}

func TestCalculateTeamBiasBelowFloor(t *testing.T) {
	svc, predictions, _, _ := newTestStatsService()

	rows := make([]repository.ResolvedPrediction, 0, MinGamesForBias-1)
	for i := 0; i < MinGamesForBias-1; i++ {
		rows = append(rows, resolvedPick("Jets", 0.55, 0.02, models.ResolutionLoss))
	}
	predictions.teamResolved["Jets"] = rows

	tc, err := svc.CalculateTeamBias(context.Background(), "americanfootball_nfl", "Jets", time.Time{})
	require.NoError(t, err)
	assert.Nil(t, tc)
}

func TestUpdateTeamCalibrations(t *testing.T) {
	svc, predictions, calibrations, invalidator := newTestStatsService()

	predictions.teams = []string{"Chiefs", "Jets"}

	chiefs := make([]repository.ResolvedPrediction, 0, MinGamesForBias)
	for i := 0; i < MinGamesForBias; i++ {
		chiefs = append(chiefs, resolvedPick("Chiefs", 0.65, 0.05, models.ResolutionWin))
	}
	predictions.teamResolved["Chiefs"] = chiefs
	predictions.teamResolved["Jets"] = []repository.ResolvedPrediction{
		resolvedPick("Jets", 0.55, 0.02, models.ResolutionLoss),
	}

	updated, err := svc.UpdateTeamCalibrations(context.Background(), "americanfootball_nfl", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	require.Contains(t, calibrations.rows, "Chiefs")
	assert.NotContains(t, calibrations.rows, "Jets")
	assert.Equal(t, []string{"americanfootball_nfl"}, invalidator.sports)
}
