package tracking

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Fawl3r/parlay-gorilla/internal/logger"
	"github.com/Fawl3r/parlay-gorilla/internal/metrics"
	"github.com/Fawl3r/parlay-gorilla/internal/models"
	"github.com/Fawl3r/parlay-gorilla/internal/repository"
)

const (
	// MinResolvedForStats is the floor below which only the raw win/loss/push
	// counts are reported; the derived metrics stay zero.
	MinResolvedForStats = 30

	// MinGamesForBias is the floor below which a team gets no bias row.
	MinGamesForBias = 10
)

// AccuracyStats summarizes resolved prediction performance for a sport.
type AccuracyStats struct {
	Sport               string    `json:"sport"`
	Since               time.Time `json:"since"`
	TotalResolved       int       `json:"total_resolved"`
	Wins                int       `json:"wins"`
	Losses              int       `json:"losses"`
	Pushes              int       `json:"pushes"`
	Sufficient          bool      `json:"sufficient"`
	Accuracy            float64   `json:"accuracy"`
	BrierScore          float64   `json:"brier_score"`
	CalibrationError    float64   `json:"calibration_error"`
	AvgEdge             float64   `json:"avg_edge"`
	AvgExpectedValue    float64   `json:"avg_expected_value"`
	PositiveEdgeWinRate float64   `json:"positive_edge_win_rate"`
}

// TeamCalibrationInvalidator drops a sport's cached calibration map after a
// recalibration pass rewrites the rows.
type TeamCalibrationInvalidator interface {
	Invalidate(sport string)
}

// StatsService computes accuracy aggregates and team bias corrections from
// resolved predictions.
type StatsService struct {
	predictions  repository.PredictionRepository
	calibrations repository.TeamCalibrationRepository
	invalidator  TeamCalibrationInvalidator
	logger       *logrus.Logger
	engineLog    *logger.EngineLogger
}

// NewStatsService creates a stats service. invalidator may be nil when no
// cache sits in front of the calibration rows.
func NewStatsService(
	predictions repository.PredictionRepository,
	calibrations repository.TeamCalibrationRepository,
	invalidator TeamCalibrationInvalidator,
	log *logrus.Logger,
) *StatsService {
	return &StatsService{
		predictions:  predictions,
		calibrations: calibrations,
		invalidator:  invalidator,
		logger:       log,
		engineLog:    logger.NewEngineLogger(log),
	}
}

// GetAccuracyStats aggregates resolved predictions for a sport since a cutoff.
// Pushes count toward volume but are excluded from accuracy and Brier score.
// Below MinResolvedForStats the result carries only the raw counts.
func (s *StatsService) GetAccuracyStats(ctx context.Context, sport string, since time.Time) (*AccuracyStats, error) {
	resolved, err := s.predictions.GetResolvedWithOutcomes(ctx, sport, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load resolved predictions: %w", err)
	}

	stats := &AccuracyStats{Sport: sport, Since: since, TotalResolved: len(resolved)}
	stats.Sufficient = len(resolved) >= MinResolvedForStats

	var (
		decided          int
		brierSum         float64
		signedErrSum     float64
		edgeSum          float64
		evSum            float64
		positiveEdge     int
		positiveEdgeWins int
	)

	for _, rp := range resolved {
		p := &rp.Prediction
		edgeSum += p.Edge
		evSum += expectedValue(p)

		switch p.Resolution {
		case models.ResolutionPush:
			stats.Pushes++
			continue
		case models.ResolutionWin:
			stats.Wins++
		case models.ResolutionLoss:
			stats.Losses++
		}

		decided++
		actual := 0.0
		if rp.Outcome.WasCorrect {
			actual = 1.0
		}
		brierSum += (p.PredictedProb - actual) * (p.PredictedProb - actual)
		signedErrSum += rp.Outcome.SignedError

		if p.Edge > 0 {
			positiveEdge++
			if rp.Outcome.WasCorrect {
				positiveEdgeWins++
			}
		}
	}

	// A thin sample produces statistically meaningless metrics, not noisy
	// ones; the counts alone go out until the floor is met.
	if !stats.Sufficient {
		return stats, nil
	}

	stats.AvgEdge = edgeSum / float64(len(resolved))
	stats.AvgExpectedValue = evSum / float64(len(resolved))
	if decided > 0 {
		stats.Accuracy = float64(stats.Wins) / float64(decided)
		stats.BrierScore = brierSum / float64(decided)
		stats.CalibrationError = math.Abs(signedErrSum / float64(decided))
	}
	if positiveEdge > 0 {
		stats.PositiveEdgeWinRate = float64(positiveEdgeWins) / float64(positiveEdge)
	}

	return stats, nil
}

// CalculateTeamBias derives the bias correction for one team from resolved
// predictions made for or against it. Opponent picks contribute from the
// team's side of the game, so probability, correctness, and signed error all
// invert. Returns nil without error when the team lacks enough settled games.
func (s *StatsService) CalculateTeamBias(ctx context.Context, sport, team string, since time.Time) (*models.TeamCalibration, error) {
	resolved, err := s.predictions.GetResolvedInvolvingTeam(ctx, sport, team, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load predictions for team: %w", err)
	}

	var (
		games        int
		wins         int
		signedErrSum float64
		brierSum     float64
	)

	for _, rp := range resolved {
		p := &rp.Prediction
		if p.Resolution == models.ResolutionPush {
			continue
		}
		picked, ok := pickedTeamName(p)
		if !ok {
			// Totals rows take no side of the matchup.
			continue
		}

		prob := p.PredictedProb
		correct := rp.Outcome.WasCorrect
		signed := rp.Outcome.SignedError
		if !strings.EqualFold(picked, team) {
			prob = 1 - prob
			correct = !correct
			signed = -signed
		}

		games++
		signedErrSum += signed
		actual := 0.0
		if correct {
			actual = 1.0
			wins++
		}
		brierSum += (prob - actual) * (prob - actual)
	}

	if games < MinGamesForBias {
		return nil, nil
	}

	avgSignedError := signedErrSum / float64(games)

	return &models.TeamCalibration{
		ID:             uuid.New(),
		Team:           team,
		Sport:          sport,
		BiasAdjustment: models.ClampBias(-avgSignedError),
		AvgSignedError: avgSignedError,
		SampleSize:     games,
		Accuracy:       float64(wins) / float64(games),
		BrierScore:     brierSum / float64(games),
		UpdatedAt:      time.Now().UTC(),
	}, nil
}

// UpdateTeamCalibrations recomputes and upserts bias rows for every team with
// resolved predictions, then drops the cached map. The pass is idempotent:
// rerunning it against the same resolved set rewrites identical rows.
func (s *StatsService) UpdateTeamCalibrations(ctx context.Context, sport string, since time.Time) (int, error) {
	start := time.Now()

	teams, err := s.predictions.ListTeams(ctx, sport, since)
	if err != nil {
		return 0, fmt.Errorf("failed to list teams: %w", err)
	}

	updated := 0
	for _, team := range teams {
		tc, err := s.CalculateTeamBias(ctx, sport, team, since)
		if err != nil {
			s.logger.WithError(err).WithField("team", team).Warn("Failed to compute team bias")
			continue
		}
		if tc == nil {
			continue
		}

		if err := s.calibrations.Upsert(ctx, tc); err != nil {
			s.logger.WithError(err).WithField("team", team).Warn("Failed to upsert team calibration")
			continue
		}

		updated++
		metrics.TeamCalibrationsUpdatedTotal.Inc()
	}

	if s.invalidator != nil {
		s.invalidator.Invalidate(sport)
	}

	s.engineLog.LogRecalibration(sport, len(teams), updated, float64(time.Since(start).Milliseconds()))

	return updated, nil
}

// expectedValue reconstructs the per-unit EV from the stored snapshot odds,
// falling back to fair odds from the implied probability.
func expectedValue(p *models.Prediction) float64 {
	decimalOdds := p.SnapshotFloat("odds_decimal", 0)
	if decimalOdds <= 1 {
		if p.ImpliedProb <= 0 {
			return 0
		}
		decimalOdds = 1 / p.ImpliedProb
	}
	return p.PredictedProb*decimalOdds - 1
}

// pickedTeamName resolves the team a prediction backed, dereferencing the
// home/away aliases through the feature snapshot.
func pickedTeamName(p *models.Prediction) (string, bool) {
	if p.MarketType == models.MarketTotal {
		return "", false
	}

	side := strings.TrimSpace(p.Side)
	switch strings.ToLower(side) {
	case "":
		return "", false
	case "home":
		home := p.SnapshotString("home_team")
		return home, home != ""
	case "away":
		away := p.SnapshotString("away_team")
		return away, away != ""
	default:
		return side, true
	}
}
