// Package tracking persists predictions at build time and settles them
// against final scores, feeding the calibration loop.
package tracking

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Fawl3r/parlay-gorilla/internal/logger"
	"github.com/Fawl3r/parlay-gorilla/internal/metrics"
	"github.com/Fawl3r/parlay-gorilla/internal/models"
	"github.com/Fawl3r/parlay-gorilla/internal/repository"
)

// DefaultTotalLine is assumed when a totals prediction carries no stored line.
const DefaultTotalLine = 45.0

// GameResult is the final score used to settle every unresolved prediction
// on an event.
type GameResult struct {
	EventID   string    `json:"event_id" validate:"required"`
	Sport     string    `json:"sport"`
	HomeTeam  string    `json:"home_team" validate:"required"`
	AwayTeam  string    `json:"away_team" validate:"required"`
	HomeScore int       `json:"home_score" validate:"gte=0"`
	AwayScore int       `json:"away_score" validate:"gte=0"`
	Completed time.Time `json:"completed"`
}

// ResolveSummary reports what a settlement pass did for one event.
type ResolveSummary struct {
	EventID  string
	Resolved int
	Wins     int
	Losses   int
	Pushes   int
	Skipped  int
}

// TxRunner runs a function inside one storage transaction. database.DB
// satisfies it.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Tracker writes prediction rows and settles them when results arrive.
type Tracker struct {
	predictions repository.PredictionRepository
	outcomes    repository.OutcomeRepository
	tx          TxRunner
	validate    *validator.Validate
	logger      *logrus.Logger
	engineLog   *logger.EngineLogger
}

// NewTracker creates a prediction tracker. tx may be nil when the backing
// repositories are not transactional.
func NewTracker(predictions repository.PredictionRepository, outcomes repository.OutcomeRepository, tx TxRunner, log *logrus.Logger) *Tracker {
	return &Tracker{
		predictions: predictions,
		outcomes:    outcomes,
		tx:          tx,
		validate:    validator.New(),
		logger:      log,
		engineLog:   logger.NewEngineLogger(log),
	}
}

// IdempotencyKey hashes the natural key of a logical prediction. The day
// component means re-running a build on the same day dedups, while the same
// pick on a later day is a fresh prediction.
func IdempotencyKey(sport, eventID string, market models.MarketType, side, modelVersion string, day time.Time) string {
	raw := fmt.Sprintf("%s|%s|%s|%s|%s|%s",
		strings.ToLower(sport), eventID, market, strings.ToLower(side),
		modelVersion, day.UTC().Format("2006-01-02"))
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// SavePrediction persists one prediction per leg. Saving the same logical
// pick twice on the same day returns the existing row with saved=false; the
// unique index on the idempotency key closes the check-then-insert race.
func (t *Tracker) SavePrediction(ctx context.Context, leg *models.Leg, modelVersion string) (*models.Prediction, bool, error) {
	now := time.Now().UTC()
	key := IdempotencyKey(leg.Sport, leg.GameID, leg.MarketType, leg.Outcome, modelVersion, now)

	if existing, err := t.predictions.GetByIdempotencyKey(ctx, key); err == nil {
		metrics.PredictionsDedupedTotal.Inc()
		return existing, false, nil
	} else if err != models.ErrNotFound {
		return nil, false, fmt.Errorf("failed to check existing prediction: %w", err)
	}

	snapshot, err := buildSnapshot(leg)
	if err != nil {
		return nil, false, fmt.Errorf("failed to build feature snapshot: %w", err)
	}

	p := &models.Prediction{
		ID:              uuid.New(),
		IdempotencyKey:  key,
		Sport:           leg.Sport,
		EventID:         leg.GameID,
		MarketType:      leg.MarketType,
		Side:            leg.Outcome,
		ModelVersion:    modelVersion,
		PredictedProb:   leg.ModelProbability,
		ImpliedProb:     leg.ImpliedProbability,
		Edge:            leg.Edge(),
		Confidence:      leg.ConfidenceScore,
		FeatureSnapshot: snapshot,
		Resolution:      models.ResolutionUnresolved,
		PredictedAt:     now,
	}

	if err := t.validate.Struct(p); err != nil {
		return nil, false, models.NewValidationError("prediction", err.Error())
	}

	if err := t.predictions.Create(ctx, p); err != nil {
		if err == models.ErrDuplicateKey {
			// A concurrent save won the insert; return its row.
			existing, fetchErr := t.predictions.GetByIdempotencyKey(ctx, key)
			if fetchErr != nil {
				return nil, false, fmt.Errorf("duplicate prediction but fetch failed: %w", fetchErr)
			}
			metrics.PredictionsDedupedTotal.Inc()
			return existing, false, nil
		}
		return nil, false, err
	}

	metrics.PredictionsSavedTotal.Inc()
	t.logger.WithFields(logrus.Fields{
		"event_id": leg.GameID,
		"market":   leg.MarketType,
		"side":     leg.Outcome,
	}).Debug("Prediction saved")

	return p, true, nil
}

// SaveParlayPredictions persists a prediction row per leg, best-effort: a
// failed leg is logged and skipped so one bad row never loses the others.
func (t *Tracker) SaveParlayPredictions(ctx context.Context, legs []models.Leg, modelVersion string) int {
	saved := 0
	for i := range legs {
		if _, created, err := t.SavePrediction(ctx, &legs[i], modelVersion); err != nil {
			t.logger.WithError(err).WithFields(logrus.Fields{
				"event_id": legs[i].GameID,
				"market":   legs[i].MarketType,
			}).Warn("Failed to save prediction for leg")
		} else if created {
			saved++
		}
	}
	return saved
}

// ResolveGame settles every unresolved prediction on the event against the
// final score. Individual failures are logged and skipped.
func (t *Tracker) ResolveGame(ctx context.Context, result GameResult) (*ResolveSummary, error) {
	if err := t.validate.Struct(&result); err != nil {
		return nil, models.NewValidationError("game_result", err.Error())
	}

	pending, err := t.predictions.GetUnresolvedByEvent(ctx, result.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load unresolved predictions: %w", err)
	}

	resolvedAt := result.Completed
	if resolvedAt.IsZero() {
		resolvedAt = time.Now().UTC()
	}

	summary := &ResolveSummary{EventID: result.EventID}
	for _, p := range pending {
		resolution, err := t.resolvePrediction(p, result)
		if err != nil {
			summary.Skipped++
			t.logger.WithError(err).WithFields(logrus.Fields{
				"prediction_id": p.ID,
				"market":        p.MarketType,
				"side":          p.Side,
			}).Warn("Skipping unresolvable prediction")
			continue
		}

		if err := t.recordResolution(ctx, p, resolution, resolvedAt); err != nil {
			summary.Skipped++
			t.logger.WithError(err).WithField("prediction_id", p.ID).Warn("Failed to record resolution")
			continue
		}

		summary.Resolved++
		switch resolution {
		case models.ResolutionWin:
			summary.Wins++
		case models.ResolutionLoss:
			summary.Losses++
		case models.ResolutionPush:
			summary.Pushes++
		}
		metrics.RecordResolution(string(resolution))
	}

	t.engineLog.LogSettlement(result.EventID, summary.Resolved, summary.Wins,
		summary.Losses, summary.Pushes, summary.Skipped)

	return summary, nil
}

// recordResolution writes the outcome row and the terminal resolution state
// as one transaction when a TxRunner is available.
func (t *Tracker) recordResolution(ctx context.Context, p *models.Prediction, resolution models.Resolution, resolvedAt time.Time) error {
	if t.tx != nil {
		return t.tx.WithTransaction(ctx, func(ctx context.Context) error {
			return t.writeResolution(ctx, p, resolution, resolvedAt)
		})
	}
	return t.writeResolution(ctx, p, resolution, resolvedAt)
}

// writeResolution creates the outcome before flipping the prediction into a
// terminal state, so a failure between the two writes leaves the prediction
// open for the next settlement pass instead of resolved without an outcome.
func (t *Tracker) writeResolution(ctx context.Context, p *models.Prediction, resolution models.Resolution, resolvedAt time.Time) error {
	outcome := buildOutcome(p, resolution, resolvedAt)
	if err := t.outcomes.Create(ctx, outcome); err != nil && err != models.ErrDuplicateKey {
		return err
	}
	return t.predictions.MarkResolved(ctx, p.ID, resolution, resolvedAt)
}

func (t *Tracker) resolvePrediction(p *models.Prediction, result GameResult) (models.Resolution, error) {
	switch p.MarketType {
	case models.MarketMoneyline:
		return resolveMoneyline(p, result)
	case models.MarketSpread:
		return resolveSpread(p, result)
	case models.MarketTotal:
		return resolveTotal(p, result)
	default:
		return "", models.NewValidationError("market_type", fmt.Sprintf("unknown market type %q", p.MarketType))
	}
}

func resolveMoneyline(p *models.Prediction, result GameResult) (models.Resolution, error) {
	if result.HomeScore == result.AwayScore {
		return models.ResolutionPush, nil
	}

	pickedHome, err := sideIsHome(p.Side, result)
	if err != nil {
		return "", err
	}

	homeWon := result.HomeScore > result.AwayScore
	if pickedHome == homeWon {
		return models.ResolutionWin, nil
	}
	return models.ResolutionLoss, nil
}

// resolveSpread settles against the stored point line when the snapshot has
// one. Predictions saved without a line fall back to the straight-up winner.
func resolveSpread(p *models.Prediction, result GameResult) (models.Resolution, error) {
	pickedHome, err := sideIsHome(p.Side, result)
	if err != nil {
		return "", err
	}

	point := p.SnapshotFloat("point", snapshotMissing)
	if point == snapshotMissing {
		if result.HomeScore == result.AwayScore {
			return models.ResolutionPush, nil
		}
		homeWon := result.HomeScore > result.AwayScore
		if pickedHome == homeWon {
			return models.ResolutionWin, nil
		}
		return models.ResolutionLoss, nil
	}

	margin := float64(result.HomeScore - result.AwayScore)
	if !pickedHome {
		margin = -margin
	}

	covered := margin + point
	switch {
	case covered > 0:
		return models.ResolutionWin, nil
	case covered < 0:
		return models.ResolutionLoss, nil
	default:
		return models.ResolutionPush, nil
	}
}

func resolveTotal(p *models.Prediction, result GameResult) (models.Resolution, error) {
	line := p.SnapshotFloat("total_line", DefaultTotalLine)
	total := float64(result.HomeScore + result.AwayScore)

	if total == line {
		return models.ResolutionPush, nil
	}

	over := total > line
	switch strings.ToLower(strings.TrimSpace(p.Side)) {
	case strings.ToLower(models.OutcomeOver):
		if over {
			return models.ResolutionWin, nil
		}
		return models.ResolutionLoss, nil
	case strings.ToLower(models.OutcomeUnder):
		if !over {
			return models.ResolutionWin, nil
		}
		return models.ResolutionLoss, nil
	default:
		return "", models.NewValidationError("side", fmt.Sprintf("totals side %q is neither Over nor Under", p.Side))
	}
}

// snapshotMissing is a sentinel no real point line can take.
const snapshotMissing = -99999.0

func sideIsHome(side string, result GameResult) (bool, error) {
	s := strings.ToLower(strings.TrimSpace(side))
	switch {
	case s == "home" || s == strings.ToLower(result.HomeTeam):
		return true, nil
	case s == "away" || s == strings.ToLower(result.AwayTeam):
		return false, nil
	default:
		return false, models.NewValidationError("side", fmt.Sprintf("side %q matches neither team", side))
	}
}

func buildOutcome(p *models.Prediction, resolution models.Resolution, resolvedAt time.Time) *models.PredictionOutcome {
	outcome := &models.PredictionOutcome{
		ID:           uuid.New(),
		PredictionID: p.ID,
		ResolvedAt:   resolvedAt,
	}

	switch resolution {
	case models.ResolutionWin:
		outcome.WasCorrect = true
		outcome.ErrorMagnitude = 1 - p.PredictedProb
		outcome.SignedError = p.PredictedProb - 1
	case models.ResolutionLoss:
		outcome.WasCorrect = false
		outcome.ErrorMagnitude = p.PredictedProb
		outcome.SignedError = p.PredictedProb
	case models.ResolutionPush:
		// Stake returned; no error signal either way.
		outcome.WasCorrect = false
		outcome.ErrorMagnitude = 0
		outcome.SignedError = 0
	}

	return outcome
}

func buildSnapshot(leg *models.Leg) (json.RawMessage, error) {
	features := map[string]interface{}{
		"home_team":     leg.HomeTeam,
		"away_team":     leg.AwayTeam,
		"odds_american": leg.OddsAmerican,
		"odds_decimal":  leg.OddsDecimal,
		"line_movement": leg.LineMovement,
	}
	if leg.Point != nil {
		if leg.MarketType == models.MarketTotal {
			features["total_line"] = *leg.Point
		} else {
			features["point"] = *leg.Point
		}
	}
	return json.Marshal(features)
}
