package database

import (
	"context"
	"fmt"

	"github.com/Fawl3r/parlay-gorilla/internal/config"
)

// schemaStatements is the idempotent DDL for the tracking tables. The unique
// index on idempotency_key is what makes concurrent duplicate saves safe.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS predictions (
		id UUID PRIMARY KEY,
		idempotency_key TEXT NOT NULL,
		sport TEXT NOT NULL,
		event_id TEXT NOT NULL,
		market_type TEXT NOT NULL,
		side TEXT NOT NULL,
		model_version TEXT NOT NULL,
		predicted_prob DOUBLE PRECISION NOT NULL,
		implied_prob DOUBLE PRECISION NOT NULL,
		edge DOUBLE PRECISION NOT NULL,
		confidence DOUBLE PRECISION NOT NULL,
		feature_snapshot JSONB NOT NULL DEFAULT '{}'::jsonb,
		resolution TEXT NOT NULL DEFAULT 'unresolved',
		predicted_at TIMESTAMPTZ NOT NULL,
		resolved_at TIMESTAMPTZ
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_predictions_idempotency_key
		ON predictions (idempotency_key)`,
	`CREATE INDEX IF NOT EXISTS idx_predictions_event_unresolved
		ON predictions (event_id) WHERE resolution = 'unresolved'`,
	`CREATE INDEX IF NOT EXISTS idx_predictions_sport_resolved_at
		ON predictions (sport, resolved_at) WHERE resolution != 'unresolved'`,
	`CREATE TABLE IF NOT EXISTS prediction_outcomes (
		id UUID PRIMARY KEY,
		prediction_id UUID NOT NULL UNIQUE REFERENCES predictions(id),
		was_correct BOOLEAN NOT NULL,
		error_magnitude DOUBLE PRECISION NOT NULL,
		signed_error DOUBLE PRECISION NOT NULL,
		resolved_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS team_calibrations (
		id UUID PRIMARY KEY,
		team TEXT NOT NULL,
		sport TEXT NOT NULL,
		bias_adjustment DOUBLE PRECISION NOT NULL,
		avg_signed_error DOUBLE PRECISION NOT NULL,
		sample_size INTEGER NOT NULL,
		accuracy DOUBLE PRECISION NOT NULL,
		brier_score DOUBLE PRECISION NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		UNIQUE (team, sport)
	)`,
}

// Initialize creates a database connection pool and ensures the schema exists.
func Initialize(ctx context.Context, cfg *config.Config) (*DB, error) {
	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	if err := EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// EnsureSchema applies the idempotent DDL. Safe to run on every startup.
func EnsureSchema(ctx context.Context, db *DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
