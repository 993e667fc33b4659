package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Fawl3r/parlay-gorilla/internal/database"
	"github.com/Fawl3r/parlay-gorilla/internal/models"
)

// PostgresOutcomeRepository implements OutcomeRepository for PostgreSQL.
type PostgresOutcomeRepository struct {
	db *database.DB
}

// NewPostgresOutcomeRepository creates a new outcome repository.
func NewPostgresOutcomeRepository(db *database.DB) OutcomeRepository {
	return &PostgresOutcomeRepository{db: db}
}

// Create inserts an outcome row. Each prediction carries at most one outcome;
// a second insert for the same prediction surfaces as models.ErrDuplicateKey.
func (r *PostgresOutcomeRepository) Create(ctx context.Context, o *models.PredictionOutcome) error {
	query := `
		INSERT INTO prediction_outcomes (id, prediction_id, was_correct, error_magnitude, signed_error, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	err := r.db.RetryTransient(ctx, func(ctx context.Context) error {
		_, execErr := r.db.Querier(ctx).Exec(ctx, query,
			o.ID, o.PredictionID, o.WasCorrect, o.ErrorMagnitude, o.SignedError, o.ResolvedAt,
		)
		return execErr
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.ErrDuplicateKey
		}
		return fmt.Errorf("failed to create prediction outcome: %w", err)
	}

	return nil
}

// GetByPredictionID retrieves the outcome row for a prediction.
func (r *PostgresOutcomeRepository) GetByPredictionID(ctx context.Context, predictionID uuid.UUID) (*models.PredictionOutcome, error) {
	query := `
		SELECT id, prediction_id, was_correct, error_magnitude, signed_error, resolved_at
		FROM prediction_outcomes
		WHERE prediction_id = $1
	`

	o := &models.PredictionOutcome{}
	err := r.db.Querier(ctx).QueryRow(ctx, query, predictionID).Scan(
		&o.ID, &o.PredictionID, &o.WasCorrect, &o.ErrorMagnitude, &o.SignedError, &o.ResolvedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get prediction outcome: %w", err)
	}

	return o, nil
}
