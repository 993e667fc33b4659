// Package metrics provides the centralized Prometheus metrics registry for
// the parlay engine.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	ParlaysBuiltTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parlay_gorilla",
		Name:      "parlays_built_total",
		Help:      "Total number of parlays built, by risk profile",
	}, []string{"risk_profile"})
	InsufficientCandidatesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "parlay_gorilla",
		Name:      "insufficient_candidates_total",
		Help:      "Total number of parlay requests failed for lack of candidates",
	})
	PredictionsSavedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "parlay_gorilla",
		Name:      "predictions_saved_total",
		Help:      "Total number of predictions persisted",
	})
	PredictionsDedupedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "parlay_gorilla",
		Name:      "predictions_deduped_total",
		Help:      "Total number of prediction saves short-circuited by the idempotency key",
	})
	PredictionsResolvedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parlay_gorilla",
		Name:      "predictions_resolved_total",
		Help:      "Total number of predictions resolved, by result",
	}, []string{"result"})
	CoverageTicketsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "parlay_gorilla",
		Name:      "coverage_tickets_total",
		Help:      "Total number of coverage tickets returned",
	})
	TeamCalibrationsUpdatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "parlay_gorilla",
		Name:      "team_calibrations_updated_total",
		Help:      "Total number of team calibration rows upserted",
	})
)

// Gauge metrics
var (
	CalibrationCacheHitRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "parlay_gorilla",
		Name:      "calibration_cache_hit_ratio",
		Help:      "Hit ratio of the in-process team calibration cache",
	})
	CandidatePoolSize = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "parlay_gorilla",
		Name:      "candidate_pool_size",
		Help:      "Size of the most recent candidate pool fetch, by sport",
	}, []string{"sport"})
)

// Histogram metrics
var (
	CoverageEnumerationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "parlay_gorilla",
		Name:      "coverage_enumeration_seconds",
		Help:      "Duration of coverage scenario enumeration in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	ParlayBuildSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "parlay_gorilla",
		Name:      "parlay_build_seconds",
		Help:      "End-to-end duration of parlay builds in seconds",
		Buckets:   prometheus.DefBuckets,
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(ParlaysBuiltTotal)
		registry.MustRegister(InsufficientCandidatesTotal)
		registry.MustRegister(PredictionsSavedTotal)
		registry.MustRegister(PredictionsDedupedTotal)
		registry.MustRegister(PredictionsResolvedTotal)
		registry.MustRegister(CoverageTicketsTotal)
		registry.MustRegister(TeamCalibrationsUpdatedTotal)

		registry.MustRegister(CalibrationCacheHitRatio)
		registry.MustRegister(CandidatePoolSize)

		registry.MustRegister(CoverageEnumerationSeconds)
		registry.MustRegister(ParlayBuildSeconds)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordParlayBuilt records a successful parlay build.
func RecordParlayBuilt(profile string, durationSeconds float64) {
	ParlaysBuiltTotal.WithLabelValues(profile).Inc()
	ParlayBuildSeconds.Observe(durationSeconds)
}

// RecordResolution records a prediction resolution by result.
func RecordResolution(result string) {
	PredictionsResolvedTotal.WithLabelValues(result).Inc()
}
