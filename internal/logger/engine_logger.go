// Package logger provides engine-specific structured logging.
package logger

import (
	"github.com/sirupsen/logrus"
)

// EngineLogger provides dedicated logging for parlay engine operations.
type EngineLogger struct {
	*logrus.Entry
}

// NewEngineLogger creates a new engine logger.
func NewEngineLogger(baseLogger *logrus.Logger) *EngineLogger {
	return &EngineLogger{
		Entry: baseLogger.WithField("component", "engine"),
	}
}

// LogBuild logs a completed parlay build.
func (el *EngineLogger) LogBuild(sport, profile string, requested, selected int, modelProb, calibratedProb float64, durationMs float64) {
	el.WithFields(logrus.Fields{
		"sport":             sport,
		"risk_profile":      profile,
		"legs_requested":    requested,
		"legs_selected":     selected,
		"model_prob":        modelProb,
		"calibrated_prob":   calibratedProb,
		"build_duration_ms": durationMs,
	}).Info("Parlay build completed")
}

// LogCoverage logs a coverage enumeration.
func (el *EngineLogger) LogCoverage(sport string, legs int, scenarios uint64, scenarioTickets, roundRobinTickets int, durationMs float64) {
	el.WithFields(logrus.Fields{
		"sport":               sport,
		"legs":                legs,
		"total_scenarios":     scenarios,
		"scenario_tickets":    scenarioTickets,
		"round_robin_tickets": roundRobinTickets,
		"enum_duration_ms":    durationMs,
	}).Info("Coverage pack built")
}

// LogSettlement logs a game settlement pass.
func (el *EngineLogger) LogSettlement(eventID string, resolved, wins, losses, pushes, skipped int) {
	el.WithFields(logrus.Fields{
		"event_id": eventID,
		"resolved": resolved,
		"wins":     wins,
		"losses":   losses,
		"pushes":   pushes,
		"skipped":  skipped,
	}).Info("Settlement pass completed")
}

// LogRecalibration logs a team recalibration batch.
func (el *EngineLogger) LogRecalibration(sport string, teamsAnalyzed, rowsUpdated int, durationMs float64) {
	el.WithFields(logrus.Fields{
		"sport":          sport,
		"teams_analyzed": teamsAnalyzed,
		"rows_updated":   rowsUpdated,
		"duration_ms":    durationMs,
	}).Info("Team recalibration completed")
}
