// Package repository provides PostgreSQL persistence for predictions,
// outcomes, and team calibrations.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Fawl3r/parlay-gorilla/internal/models"
)

// ResolvedPrediction joins a resolved prediction with its outcome row.
type ResolvedPrediction struct {
	Prediction models.Prediction
	Outcome    models.PredictionOutcome
}

// PredictionRepository persists prediction rows. Create relies on the unique
// index on idempotency_key to close the check-then-insert race: a concurrent
// duplicate insert surfaces as models.ErrDuplicateKey.
type PredictionRepository interface {
	Create(ctx context.Context, p *models.Prediction) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Prediction, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*models.Prediction, error)
	GetUnresolvedByEvent(ctx context.Context, eventID string) ([]*models.Prediction, error)
	MarkResolved(ctx context.Context, id uuid.UUID, resolution models.Resolution, resolvedAt time.Time) error
	CountResolvedSince(ctx context.Context, sport string, since time.Time) (int, error)
	GetResolvedWithOutcomes(ctx context.Context, sport string, since time.Time) ([]ResolvedPrediction, error)
	GetResolvedInvolvingTeam(ctx context.Context, sport, team string, since time.Time) ([]ResolvedPrediction, error)
	ListTeams(ctx context.Context, sport string, since time.Time) ([]string, error)
	CalibrationBuckets(ctx context.Context) ([]models.CalibrationBucket, error)
}

// OutcomeRepository persists the 1:1 outcome rows for resolved predictions.
type OutcomeRepository interface {
	Create(ctx context.Context, o *models.PredictionOutcome) error
	GetByPredictionID(ctx context.Context, predictionID uuid.UUID) (*models.PredictionOutcome, error)
}

// TeamCalibrationRepository persists per-(team, sport) bias corrections.
type TeamCalibrationRepository interface {
	Upsert(ctx context.Context, tc *models.TeamCalibration) error
	GetByTeam(ctx context.Context, sport, team string) (*models.TeamCalibration, error)
	ListTeamCalibrations(ctx context.Context, sport string) ([]models.TeamCalibration, error)
}
