// Package main provides the one-shot team recalibration batch.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Fawl3r/parlay-gorilla/internal/calibration"
	"github.com/Fawl3r/parlay-gorilla/internal/config"
	"github.com/Fawl3r/parlay-gorilla/internal/database"
	"github.com/Fawl3r/parlay-gorilla/internal/logger"
	"github.com/Fawl3r/parlay-gorilla/internal/metrics"
	"github.com/Fawl3r/parlay-gorilla/internal/repository"
	"github.com/Fawl3r/parlay-gorilla/internal/tracking"
)

var (
	configFile   string
	sport        string
	lookbackDays int

	appLog *logrus.Logger
	cfg    *config.Config
	db     *database.DB
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.Flags().StringVar(&sport, "sport", "", "Sport key to recalibrate (defaults to all configured sports)")
	rootCmd.Flags().IntVar(&lookbackDays, "lookback-days", 0, "Resolved-prediction window (defaults to config)")
}

var rootCmd = &cobra.Command{
	Use:   "recalibrate",
	Short: "Recompute per-team bias corrections from resolved predictions",
	Long: `Recomputes the per-(team, sport) bias corrections from resolved
predictions and upserts them, replacing the previous rows. Safe to re-run:
the pass is idempotent over the same resolved set.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setup(cmd.Context()); err != nil {
			return fmt.Errorf("failed to setup dependencies: %w", err)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func main() {
	defer func() {
		if db != nil {
			db.Close()
		}
	}()
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func setup(ctx context.Context) error {
	var err error
	cfg, err = config.LoadWithDefaults(configFile)
	if err != nil {
		return err
	}
	if err := config.LoadSecretsFromAWS(ctx, cfg); err != nil {
		return err
	}

	appLog = logger.NewLogger(cfg.App.LogLevel)
	metrics.InitRegistry()

	db, err = database.Initialize(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	return nil
}

func run(ctx context.Context) error {
	predictionRepo := repository.NewPostgresPredictionRepository(db)
	teamCalRepo := repository.NewPostgresTeamCalibrationRepository(db)
	teamCache := calibration.NewTeamCache(teamCalRepo, cfg.CalibrationCacheTTL())
	statsSvc := tracking.NewStatsService(predictionRepo, teamCalRepo, teamCache, appLog)

	sports := cfg.Calibration.Sports
	if sport != "" {
		sports = []string{sport}
	}

	lookback := cfg.CalibrationLookback()
	if lookbackDays > 0 {
		lookback = time.Duration(lookbackDays) * 24 * time.Hour
	}
	since := time.Now().UTC().Add(-lookback)

	for _, s := range sports {
		start := time.Now()
		updated, err := statsSvc.UpdateTeamCalibrations(ctx, s, since)
		if err != nil {
			return fmt.Errorf("recalibration failed for %s: %w", s, err)
		}
		fmt.Printf("%s: %d team calibrations updated in %s\n", s, updated, time.Since(start).Round(time.Millisecond))
	}

	return nil
}
