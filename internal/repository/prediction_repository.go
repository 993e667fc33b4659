package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Fawl3r/parlay-gorilla/internal/database"
	"github.com/Fawl3r/parlay-gorilla/internal/models"
)

const predictionColumns = `
	id, idempotency_key, sport, event_id, market_type, side, model_version,
	predicted_prob, implied_prob, edge, confidence, feature_snapshot,
	resolution, predicted_at, resolved_at`

// PostgresPredictionRepository implements PredictionRepository for PostgreSQL.
type PostgresPredictionRepository struct {
	db *database.DB
}

// NewPostgresPredictionRepository creates a new prediction repository.
func NewPostgresPredictionRepository(db *database.DB) PredictionRepository {
	return &PostgresPredictionRepository{db: db}
}

// Create inserts a new prediction. A conflict on the idempotency key is
// reported as models.ErrDuplicateKey so the tracker can fetch the winner.
func (r *PostgresPredictionRepository) Create(ctx context.Context, p *models.Prediction) error {
	query := `
		INSERT INTO predictions (` + predictionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	err := r.db.RetryTransient(ctx, func(ctx context.Context) error {
		_, execErr := r.db.Querier(ctx).Exec(ctx, query,
			p.ID, p.IdempotencyKey, p.Sport, p.EventID, p.MarketType, p.Side, p.ModelVersion,
			p.PredictedProb, p.ImpliedProb, p.Edge, p.Confidence, p.FeatureSnapshot,
			p.Resolution, p.PredictedAt, p.ResolvedAt,
		)
		return execErr
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.ErrDuplicateKey
		}
		return fmt.Errorf("failed to create prediction: %w", err)
	}

	return nil
}

// GetByID retrieves a prediction by ID.
func (r *PostgresPredictionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Prediction, error) {
	query := `SELECT ` + predictionColumns + ` FROM predictions WHERE id = $1`
	return r.scanOne(r.db.Querier(ctx).QueryRow(ctx, query, id))
}

// GetByIdempotencyKey retrieves a prediction by its natural-key hash.
func (r *PostgresPredictionRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.Prediction, error) {
	query := `SELECT ` + predictionColumns + ` FROM predictions WHERE idempotency_key = $1`
	return r.scanOne(r.db.Querier(ctx).QueryRow(ctx, query, key))
}

// GetUnresolvedByEvent retrieves all unresolved predictions for an event.
func (r *PostgresPredictionRepository) GetUnresolvedByEvent(ctx context.Context, eventID string) ([]*models.Prediction, error) {
	query := `
		SELECT ` + predictionColumns + `
		FROM predictions
		WHERE event_id = $1 AND resolution = 'unresolved'
		ORDER BY predicted_at ASC
	`

	rows, err := r.db.Querier(ctx).Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query unresolved predictions: %w", err)
	}
	defer rows.Close()

	var predictions []*models.Prediction
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		predictions = append(predictions, p)
	}

	return predictions, rows.Err()
}

// MarkResolved transitions a prediction into a terminal resolution state.
// Rows already resolved are left untouched.
func (r *PostgresPredictionRepository) MarkResolved(ctx context.Context, id uuid.UUID, resolution models.Resolution, resolvedAt time.Time) error {
	query := `
		UPDATE predictions SET resolution = $2, resolved_at = $3
		WHERE id = $1 AND resolution = 'unresolved'
	`

	var commandTag pgconn.CommandTag
	err := r.db.RetryTransient(ctx, func(ctx context.Context) error {
		var execErr error
		commandTag, execErr = r.db.Querier(ctx).Exec(ctx, query, id, resolution, resolvedAt)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("failed to mark prediction resolved: %w", err)
	}
	if commandTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// CountResolvedSince counts resolved predictions for a sport in a window.
func (r *PostgresPredictionRepository) CountResolvedSince(ctx context.Context, sport string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM predictions
		WHERE sport = $1 AND resolution != 'unresolved' AND resolved_at >= $2
	`

	var count int
	if err := r.db.Querier(ctx).QueryRow(ctx, query, sport, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count resolved predictions: %w", err)
	}
	return count, nil
}

// GetResolvedWithOutcomes retrieves resolved predictions joined with their
// outcome rows for a sport in a window.
func (r *PostgresPredictionRepository) GetResolvedWithOutcomes(ctx context.Context, sport string, since time.Time) ([]ResolvedPrediction, error) {
	query := `
		SELECT ` + joinedColumns() + `
		FROM predictions p
		JOIN prediction_outcomes o ON o.prediction_id = p.id
		WHERE p.sport = $1 AND p.resolution != 'unresolved' AND p.resolved_at >= $2
		ORDER BY p.resolved_at DESC
	`

	return r.queryResolved(ctx, query, sport, since)
}

// GetResolvedInvolvingTeam retrieves resolved predictions whose feature
// snapshot names the team as home or away.
func (r *PostgresPredictionRepository) GetResolvedInvolvingTeam(ctx context.Context, sport, team string, since time.Time) ([]ResolvedPrediction, error) {
	query := `
		SELECT ` + joinedColumns() + `
		FROM predictions p
		JOIN prediction_outcomes o ON o.prediction_id = p.id
		WHERE p.sport = $1
		  AND p.resolution != 'unresolved'
		  AND p.resolved_at >= $3
		  AND (LOWER(p.feature_snapshot->>'home_team') = LOWER($2)
		       OR LOWER(p.feature_snapshot->>'away_team') = LOWER($2))
		ORDER BY p.resolved_at DESC
	`

	return r.queryResolved(ctx, query, sport, team, since)
}

// ListTeams enumerates teams appearing in resolved predictions for a sport.
func (r *PostgresPredictionRepository) ListTeams(ctx context.Context, sport string, since time.Time) ([]string, error) {
	query := `
		SELECT DISTINCT team FROM (
			SELECT feature_snapshot->>'home_team' AS team
			FROM predictions
			WHERE sport = $1 AND resolution != 'unresolved' AND resolved_at >= $2
			UNION
			SELECT feature_snapshot->>'away_team' AS team
			FROM predictions
			WHERE sport = $1 AND resolution != 'unresolved' AND resolved_at >= $2
		) teams
		WHERE team IS NOT NULL AND team != ''
		ORDER BY team
	`

	rows, err := r.db.Querier(ctx).Query(ctx, query, sport, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	var teams []string
	for rows.Next() {
		var team string
		if err := rows.Scan(&team); err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, team)
	}

	return teams, rows.Err()
}

// CalibrationBuckets aggregates resolved win/loss predictions into 5%-wide
// probability buckets. Pushes are excluded.
func (r *PostgresPredictionRepository) CalibrationBuckets(ctx context.Context) ([]models.CalibrationBucket, error) {
	query := `
		SELECT
			FLOOR(p.predicted_prob * 20) / 20        AS lower_bound,
			FLOOR(p.predicted_prob * 20) / 20 + 0.05 AS upper_bound,
			COUNT(*)                                 AS sample_size,
			AVG(p.predicted_prob)                    AS mean_predicted,
			AVG(CASE WHEN o.was_correct THEN 1.0 ELSE 0.0 END) AS actual_rate
		FROM predictions p
		JOIN prediction_outcomes o ON o.prediction_id = p.id
		WHERE p.resolution IN ('win', 'loss')
		GROUP BY 1, 2
		ORDER BY 1
	`

	rows, err := r.db.Querier(ctx).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query calibration buckets: %w", err)
	}
	defer rows.Close()

	var buckets []models.CalibrationBucket
	for rows.Next() {
		var b models.CalibrationBucket
		if err := rows.Scan(&b.LowerBound, &b.UpperBound, &b.SampleSize, &b.MeanPredicted, &b.ActualRate); err != nil {
			return nil, fmt.Errorf("failed to scan calibration bucket: %w", err)
		}
		buckets = append(buckets, b)
	}

	return buckets, rows.Err()
}

func (r *PostgresPredictionRepository) queryResolved(ctx context.Context, query string, args ...interface{}) ([]ResolvedPrediction, error) {
	rows, err := r.db.Querier(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query resolved predictions: %w", err)
	}
	defer rows.Close()

	var resolved []ResolvedPrediction
	for rows.Next() {
		var rp ResolvedPrediction
		err := rows.Scan(
			&rp.Prediction.ID, &rp.Prediction.IdempotencyKey, &rp.Prediction.Sport,
			&rp.Prediction.EventID, &rp.Prediction.MarketType, &rp.Prediction.Side,
			&rp.Prediction.ModelVersion, &rp.Prediction.PredictedProb, &rp.Prediction.ImpliedProb,
			&rp.Prediction.Edge, &rp.Prediction.Confidence, &rp.Prediction.FeatureSnapshot,
			&rp.Prediction.Resolution, &rp.Prediction.PredictedAt, &rp.Prediction.ResolvedAt,
			&rp.Outcome.ID, &rp.Outcome.PredictionID, &rp.Outcome.WasCorrect,
			&rp.Outcome.ErrorMagnitude, &rp.Outcome.SignedError, &rp.Outcome.ResolvedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resolved prediction: %w", err)
		}
		resolved = append(resolved, rp)
	}

	return resolved, rows.Err()
}

func joinedColumns() string {
	return `
		p.id, p.idempotency_key, p.sport, p.event_id, p.market_type, p.side, p.model_version,
		p.predicted_prob, p.implied_prob, p.edge, p.confidence, p.feature_snapshot,
		p.resolution, p.predicted_at, p.resolved_at,
		o.id, o.prediction_id, o.was_correct, o.error_magnitude, o.signed_error, o.resolved_at`
}

func (r *PostgresPredictionRepository) scanOne(row pgx.Row) (*models.Prediction, error) {
	p, err := scanPrediction(row)
	if err == pgx.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get prediction: %w", err)
	}
	return p, nil
}

func scanPrediction(row pgx.Row) (*models.Prediction, error) {
	p := &models.Prediction{}
	err := row.Scan(
		&p.ID, &p.IdempotencyKey, &p.Sport, &p.EventID, &p.MarketType, &p.Side, &p.ModelVersion,
		&p.PredictedProb, &p.ImpliedProb, &p.Edge, &p.Confidence, &p.FeatureSnapshot,
		&p.Resolution, &p.PredictedAt, &p.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}
