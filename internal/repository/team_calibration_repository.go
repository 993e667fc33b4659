package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Fawl3r/parlay-gorilla/internal/database"
	"github.com/Fawl3r/parlay-gorilla/internal/models"
)

const teamCalibrationColumns = `
	id, team, sport, bias_adjustment, avg_signed_error, sample_size,
	accuracy, brier_score, updated_at`

// PostgresTeamCalibrationRepository implements TeamCalibrationRepository for
// PostgreSQL.
type PostgresTeamCalibrationRepository struct {
	db *database.DB
}

// NewPostgresTeamCalibrationRepository creates a new team calibration repository.
func NewPostgresTeamCalibrationRepository(db *database.DB) TeamCalibrationRepository {
	return &PostgresTeamCalibrationRepository{db: db}
}

// Upsert writes a calibration row keyed on (team, sport). Re-running a
// recalibration overwrites the previous row instead of stacking adjustments.
func (r *PostgresTeamCalibrationRepository) Upsert(ctx context.Context, tc *models.TeamCalibration) error {
	query := `
		INSERT INTO team_calibrations (` + teamCalibrationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (team, sport) DO UPDATE SET
			bias_adjustment = EXCLUDED.bias_adjustment,
			avg_signed_error = EXCLUDED.avg_signed_error,
			sample_size = EXCLUDED.sample_size,
			accuracy = EXCLUDED.accuracy,
			brier_score = EXCLUDED.brier_score,
			updated_at = EXCLUDED.updated_at
	`

	err := r.db.RetryTransient(ctx, func(ctx context.Context) error {
		_, execErr := r.db.Querier(ctx).Exec(ctx, query,
			tc.ID, tc.Team, tc.Sport, tc.BiasAdjustment, tc.AvgSignedError,
			tc.SampleSize, tc.Accuracy, tc.BrierScore, tc.UpdatedAt,
		)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("failed to upsert team calibration: %w", err)
	}

	return nil
}

// GetByTeam retrieves the calibration row for a team in a sport.
func (r *PostgresTeamCalibrationRepository) GetByTeam(ctx context.Context, sport, team string) (*models.TeamCalibration, error) {
	query := `
		SELECT ` + teamCalibrationColumns + `
		FROM team_calibrations
		WHERE sport = $1 AND LOWER(team) = LOWER($2)
	`

	tc := &models.TeamCalibration{}
	err := r.db.Querier(ctx).QueryRow(ctx, query, sport, team).Scan(
		&tc.ID, &tc.Team, &tc.Sport, &tc.BiasAdjustment, &tc.AvgSignedError,
		&tc.SampleSize, &tc.Accuracy, &tc.BrierScore, &tc.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team calibration: %w", err)
	}

	return tc, nil
}

// ListTeamCalibrations retrieves all calibration rows for a sport.
func (r *PostgresTeamCalibrationRepository) ListTeamCalibrations(ctx context.Context, sport string) ([]models.TeamCalibration, error) {
	query := `
		SELECT ` + teamCalibrationColumns + `
		FROM team_calibrations
		WHERE sport = $1
		ORDER BY team
	`

	rows, err := r.db.Querier(ctx).Query(ctx, query, sport)
	if err != nil {
		return nil, fmt.Errorf("failed to list team calibrations: %w", err)
	}
	defer rows.Close()

	var calibrations []models.TeamCalibration
	for rows.Next() {
		var tc models.TeamCalibration
		err := rows.Scan(
			&tc.ID, &tc.Team, &tc.Sport, &tc.BiasAdjustment, &tc.AvgSignedError,
			&tc.SampleSize, &tc.Accuracy, &tc.BrierScore, &tc.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan team calibration: %w", err)
		}
		calibrations = append(calibrations, tc)
	}

	return calibrations, rows.Err()
}
