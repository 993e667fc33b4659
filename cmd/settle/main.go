// Package main provides the manual settlement command: feeds final scores to
// the tracker and resolves every open prediction on the event.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Fawl3r/parlay-gorilla/internal/config"
	"github.com/Fawl3r/parlay-gorilla/internal/database"
	"github.com/Fawl3r/parlay-gorilla/internal/logger"
	"github.com/Fawl3r/parlay-gorilla/internal/metrics"
	"github.com/Fawl3r/parlay-gorilla/internal/repository"
	"github.com/Fawl3r/parlay-gorilla/internal/tracking"
)

var (
	configFile  string
	resultsFile string

	eventID   string
	sportKey  string
	homeTeam  string
	awayTeam  string
	homeScore int
	awayScore int

	appLog *logrus.Logger
	cfg    *config.Config
	db     *database.DB
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.Flags().StringVar(&resultsFile, "results", "", "Path to a JSON file of game results")
	rootCmd.Flags().StringVar(&eventID, "event", "", "Event ID to settle")
	rootCmd.Flags().StringVar(&sportKey, "sport", "", "Sport key")
	rootCmd.Flags().StringVar(&homeTeam, "home-team", "", "Home team name")
	rootCmd.Flags().StringVar(&awayTeam, "away-team", "", "Away team name")
	rootCmd.Flags().IntVar(&homeScore, "home-score", -1, "Final home score")
	rootCmd.Flags().IntVar(&awayScore, "away-score", -1, "Final away score")
}

var rootCmd = &cobra.Command{
	Use:   "settle",
	Short: "Settle open predictions against final scores",
	Long: `Resolves every unresolved prediction on an event against its final
score, writing the outcome rows that feed the calibration loop. Results can
be passed as flags for one game or as a JSON file for a batch.`,
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
	results, err := collectResults()
	if err != nil {
		return err
	}

	predictionRepo := repository.NewPostgresPredictionRepository(db)
	outcomeRepo := repository.NewPostgresOutcomeRepository(db)
	tracker := tracking.NewTracker(predictionRepo, outcomeRepo, db, appLog)

	for _, result := range results {
		summary, err := tracker.ResolveGame(ctx, result)
		if err != nil {
			return fmt.Errorf("settlement failed for event %s: %w", result.EventID, err)
		}
		fmt.Printf("%s: %d resolved (%d wins, %d losses, %d pushes, %d skipped)\n",
			summary.EventID, summary.Resolved, summary.Wins, summary.Losses, summary.Pushes, summary.Skipped)
	}

	return nil
}

func collectResults() ([]tracking.GameResult, error) {
	if resultsFile != "" {
		data, err := os.ReadFile(resultsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read results file: %w", err)
		}
		var results []tracking.GameResult
		if err := json.Unmarshal(data, &results); err != nil {
			return nil, fmt.Errorf("failed to parse results file: %w", err)
		}
		return results, nil
	}

	if eventID == "" || homeTeam == "" || awayTeam == "" || homeScore < 0 || awayScore < 0 {
		return nil, fmt.Errorf("either --results or the full set of --event, --home-team, --away-team, --home-score, --away-score is required")
	}

	return []tracking.GameResult{{
		EventID:   eventID,
		Sport:     sportKey,
		HomeTeam:  homeTeam,
		AwayTeam:  awayTeam,
		HomeScore: homeScore,
		AwayScore: awayScore,
		Completed: time.Now().UTC(),
	}}, nil
}
