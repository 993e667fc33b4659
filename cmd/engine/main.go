// Package main provides the entry point for the parlay engine.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Fawl3r/parlay-gorilla/internal/calibration"
	"github.com/Fawl3r/parlay-gorilla/internal/config"
	"github.com/Fawl3r/parlay-gorilla/internal/database"
	"github.com/Fawl3r/parlay-gorilla/internal/health"
	"github.com/Fawl3r/parlay-gorilla/internal/logger"
	"github.com/Fawl3r/parlay-gorilla/internal/metrics"
	"github.com/Fawl3r/parlay-gorilla/internal/parlay"
	"github.com/Fawl3r/parlay-gorilla/internal/pool"
	"github.com/Fawl3r/parlay-gorilla/internal/repository"
	"github.com/Fawl3r/parlay-gorilla/internal/scheduler"
	"github.com/Fawl3r/parlay-gorilla/internal/service"
	"github.com/Fawl3r/parlay-gorilla/internal/tracking"
)

// Build information - set via ldflags
var (
	Version = "dev"
)

func main() {
	cfg, err := config.LoadWithDefaults(os.Getenv("PARLAY_GORILLA_CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := config.LoadSecretsFromAWS(ctx, cfg); err != nil {
		log.Fatalf("Failed to load secrets: %v", err)
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	appLog := logger.NewLogger(cfg.App.LogLevel)
	appLog.WithFields(logrus.Fields{
		"environment":   cfg.App.Environment,
		"log_level":     cfg.App.LogLevel,
		"model_version": cfg.Engine.ModelVersion,
	}).Info("Parlay Gorilla engine starting")

	db, err := database.Initialize(ctx, cfg)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()
	appLog.Info("Database connection established")

	metrics.InitRegistry()

	// Repositories and caches
	predictionRepo := repository.NewPostgresPredictionRepository(db)
	outcomeRepo := repository.NewPostgresOutcomeRepository(db)
	teamCalRepo := repository.NewPostgresTeamCalibrationRepository(db)

	teamCache := calibration.NewTeamCache(teamCalRepo, cfg.CalibrationCacheTTL())
	calibrationSvc := calibration.NewService(predictionRepo, cfg.CalibrationCacheTTL(), cfg.Calibration.MinBucketSamples, appLog)

	// Tracking
	var (
		tracker  *tracking.Tracker
		statsSvc *tracking.StatsService
	)
	if cfg.Tracking.Enabled {
		tracker = tracking.NewTracker(predictionRepo, outcomeRepo, db, appLog)
		statsSvc = tracking.NewStatsService(predictionRepo, teamCalRepo, teamCache, appLog)
	}

	// Candidate pool feed
	httpClient := pool.NewRateLimitedHTTPClient(pool.HTTPClientConfig{
		Timeout:           cfg.FeedTimeout(),
		MaxRetries:        cfg.Feed.MaxRetries,
		RetryWaitMin:      100 * time.Millisecond,
		RetryWaitMax:      10 * time.Second,
		RateLimit:         cfg.Feed.RateLimit,
		CircuitBreakerMax: cfg.Feed.CircuitBreakerMax,
	}, appLog)
	defer httpClient.Close()
	feed := pool.NewFeedClient(httpClient, cfg.Feed.BaseURL, cfg.Feed.APIKey, appLog)

	// Parlay construction stack
	correlation := parlay.NewCorrelationModel()
	calculator := parlay.NewProbabilityCalculator(correlation)
	optimizer := parlay.NewOptimizer(correlation, appLog)
	flipper := parlay.NewFlipper()
	coverageBuilder := parlay.NewCoverageBuilder(flipper, calculator)
	upsetFinder := parlay.NewUpsetFinder(parlay.DefaultUpsetFinderConfig())

	parlaySvc := service.NewParlayService(
		feed, optimizer, calculator, flipper, coverageBuilder, upsetFinder,
		calibrationSvc, teamCache, tracker, statsSvc,
		cfg.Engine.ModelVersion, appLog,
	)

	// Recalibration schedule
	var sched *scheduler.Scheduler
	if statsSvc != nil {
		sched = scheduler.NewScheduler(statsSvc, appLog)
		for _, sport := range cfg.Calibration.Sports {
			if err := sched.ScheduleRecalibration(cfg.Calibration.RecalibrateCron, sport, cfg.CalibrationLookback()); err != nil {
				appLog.WithError(err).Fatal("Failed to schedule recalibration")
			}
		}
		if err := sched.Start(); err != nil {
			appLog.WithError(err).Fatal("Failed to start scheduler")
		}
	}

	// Health and metrics endpoints
	healthServer := health.NewServer(health.Config{
		ServiceName:  cfg.App.Name,
		Version:      Version,
		ModelVersion: cfg.Engine.ModelVersion,
		Port:         fmt.Sprintf("%d", cfg.Health.Port),
		Logger:       appLog,
		DB:           db,
	})
	if err := healthServer.Start(ctx); err != nil {
		appLog.WithError(err).Fatal("Failed to start health server")
	}

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, metrics.Handler())
		metricsServer = &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		}
		go func() {
			appLog.WithField("port", cfg.Metrics.Port).Info("Metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				appLog.WithError(err).Error("Metrics server error")
			}
		}()
	}

	// Engine API
	api := newAPIServer(cfg, parlaySvc, appLog)
	go func() {
		if err := api.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.WithError(err).Fatal("API server error")
		}
	}()

	healthServer.SetReady(true)
	appLog.Info("Parlay Gorilla engine running")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	appLog.WithField("signal", sig).Info("Shutdown signal received")

	healthServer.SetReady(false)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := api.Shutdown(shutdownCtx); err != nil {
		appLog.WithError(err).Error("Error during API shutdown")
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			appLog.WithError(err).Error("Error during metrics shutdown")
		}
	}
	if sched != nil {
		if err := sched.Stop(); err != nil {
			appLog.WithError(err).Error("Error during scheduler shutdown")
		}
	}

	appLog.Info("Parlay Gorilla engine shut down successfully")
}
