// Package service orchestrates the parlay engine: pool fetch, optimization,
// probability analysis, calibration, and prediction tracking.
package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Fawl3r/parlay-gorilla/internal/calibration"
	"github.com/Fawl3r/parlay-gorilla/internal/logger"
	"github.com/Fawl3r/parlay-gorilla/internal/metrics"
	"github.com/Fawl3r/parlay-gorilla/internal/models"
	"github.com/Fawl3r/parlay-gorilla/internal/parlay"
	"github.com/Fawl3r/parlay-gorilla/internal/pool"
	"github.com/Fawl3r/parlay-gorilla/internal/tracking"
)

// Counter parlay generation modes.
const (
	CounterModeMirror = "mirror"
	CounterModeValue  = "value"
)

// BuildRequest describes one parlay build.
type BuildRequest struct {
	Sport              string
	NumLegs            int
	RiskProfile        string
	Week               int
	IncludePlayerProps bool
}

// CoverageRequest describes one coverage pack build.
type CoverageRequest struct {
	BuildRequest
	ScenarioMax    int
	RoundRobinSize int
	RoundRobinMax  int
}

// CounterRequest tunes counter generation.
type CounterRequest struct {
	Mode       string
	TargetLegs int     // 0 keeps every countered leg
	MinEdge    float64 // value mode: edge a flip must clear to replace the pick
}

// CounterCandidate scores one leg's flip against the original pick.
type CounterCandidate struct {
	Original models.Leg `json:"original"`
	Flipped  models.Leg `json:"flipped"`
	EdgeGain float64    `json:"edge_gain"`
	Swapped  bool       `json:"swapped"`
}

// CounterResult carries the countered parlay and the per-leg scoring that
// produced it.
type CounterResult struct {
	Parlay     *models.Parlay     `json:"parlay"`
	Candidates []CounterCandidate `json:"candidates"`
}

// ParlayService wires the candidate pool, the optimizer stack, calibration,
// and prediction tracking into the engine's public operations.
type ParlayService struct {
	pool         pool.CandidatePool
	optimizer    *parlay.Optimizer
	calculator   *parlay.ProbabilityCalculator
	flipper      *parlay.Flipper
	coverage     *parlay.CoverageBuilder
	upsets       *parlay.UpsetFinder
	calibration  *calibration.Service
	teamCache    *calibration.TeamCache
	tracker      *tracking.Tracker
	stats        *tracking.StatsService
	modelVersion string
	logger       *logrus.Logger
	engineLog    *logger.EngineLogger
}

// NewParlayService creates the parlay service. tracker and stats may be nil
// when tracking is disabled.
func NewParlayService(
	candidates pool.CandidatePool,
	optimizer *parlay.Optimizer,
	calculator *parlay.ProbabilityCalculator,
	flipper *parlay.Flipper,
	coverage *parlay.CoverageBuilder,
	upsets *parlay.UpsetFinder,
	calibrationSvc *calibration.Service,
	teamCache *calibration.TeamCache,
	tracker *tracking.Tracker,
	stats *tracking.StatsService,
	modelVersion string,
	log *logrus.Logger,
) *ParlayService {
	return &ParlayService{
		pool:         candidates,
		optimizer:    optimizer,
		calculator:   calculator,
		flipper:      flipper,
		coverage:     coverage,
		upsets:       upsets,
		calibration:  calibrationSvc,
		teamCache:    teamCache,
		tracker:      tracker,
		stats:        stats,
		modelVersion: modelVersion,
		logger:       log,
		engineLog:    logger.NewEngineLogger(log),
	}
}

// BuildParlay fetches the candidate pool, selects legs under the profile's
// constraints, and returns the fully analyzed parlay. Each selected leg is
// persisted as a tracked prediction, best-effort.
func (s *ParlayService) BuildParlay(ctx context.Context, req BuildRequest) (*models.Parlay, error) {
	start := time.Now()

	profile, err := models.ParseRiskProfile(req.RiskProfile)
	if err != nil {
		return nil, err
	}

	legs, status, err := s.fetchPool(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(legs) == 0 {
		metrics.InsufficientCandidatesTotal.Inc()
		return nil, emptyPoolError(req.NumLegs, status)
	}

	selection, err := s.optimizer.Select(legs, req.NumLegs, profile)
	if err != nil {
		if models.IsInsufficientCandidates(err) {
			metrics.InsufficientCandidatesTotal.Inc()
		}
		return nil, err
	}
	if len(selection) == 0 {
		metrics.InsufficientCandidatesTotal.Inc()
		return nil, models.NewInsufficientCandidatesError(req.NumLegs, 0,
			"no compatible legs survived conflict and correlation constraints")
	}

	result, err := s.analyze(ctx, selection, profile)
	if err != nil {
		return nil, err
	}

	if s.tracker != nil {
		s.tracker.SaveParlayPredictions(ctx, result.Legs, s.modelVersion)
	}

	metrics.RecordParlayBuilt(string(profile), time.Since(start).Seconds())
	s.engineLog.LogBuild(req.Sport, string(profile), req.NumLegs, len(result.Legs),
		result.CombinedModelProbability, result.CalibratedProbability,
		float64(time.Since(start).Milliseconds()))

	return result, nil
}

// GenerateCounter builds the opposing parlay for an existing one, scoring
// every leg's flip along the way. Mirror mode flips every leg; value mode
// flips only legs whose opposite side improves the model edge and clears
// MinEdge. A positive TargetLegs keeps that many countered legs, best
// expected value first.
func (s *ParlayService) GenerateCounter(ctx context.Context, base *models.Parlay, req CounterRequest) (*CounterResult, error) {
	if base == nil || len(base.Legs) == 0 {
		return nil, models.NewValidationError("parlay", "counter generation requires a parlay with legs")
	}
	if req.TargetLegs < 0 {
		return nil, models.NewValidationError("target_legs", "target_legs cannot be negative")
	}

	mode := req.Mode
	if mode == "" {
		mode = CounterModeMirror
	}
	if mode != CounterModeMirror && mode != CounterModeValue {
		return nil, models.NewValidationError("mode",
			fmt.Sprintf("unknown counter mode %q", mode))
	}

	candidates := make([]CounterCandidate, 0, len(base.Legs))
	countered := make([]models.Leg, 0, len(base.Legs))
	for i := range base.Legs {
		leg := base.Legs[i]
		flipped, err := s.flipper.Flip(leg)
		if err != nil {
			return nil, err
		}

		cand := CounterCandidate{
			Original: leg,
			Flipped:  flipped,
			EdgeGain: flipped.Edge() - leg.Edge(),
		}
		switch mode {
		case CounterModeMirror:
			cand.Swapped = true
		case CounterModeValue:
			cand.Swapped = cand.EdgeGain > 0 && flipped.Edge() >= req.MinEdge
		}
		candidates = append(candidates, cand)

		if cand.Swapped {
			countered = append(countered, flipped)
		} else {
			countered = append(countered, leg)
		}
	}

	if req.TargetLegs > 0 && req.TargetLegs < len(countered) {
		countered = topByExpectedValue(countered, req.TargetLegs)
	}

	analyzed, err := s.analyze(ctx, countered, base.RiskProfile)
	if err != nil {
		return nil, err
	}

	return &CounterResult{Parlay: analyzed, Candidates: candidates}, nil
}

// topByExpectedValue keeps the n best legs by per-leg expected value.
func topByExpectedValue(legs []models.Leg, n int) []models.Leg {
	ranked := make([]models.Leg, len(legs))
	copy(ranked, legs)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].ExpectedValue() > ranked[j].ExpectedValue()
	})
	return ranked[:n]
}

// BuildCoveragePack builds a parlay and enumerates its flip scenarios and
// round-robin sub-parlays.
func (s *ParlayService) BuildCoveragePack(ctx context.Context, req CoverageRequest) (*models.Parlay, *models.CoveragePack, error) {
	base, err := s.BuildParlay(ctx, req.BuildRequest)
	if err != nil {
		return nil, nil, err
	}

	start := time.Now()
	pack, err := s.coverage.Build(base.Legs, req.ScenarioMax, req.RoundRobinSize, req.RoundRobinMax)
	if err != nil {
		return nil, nil, err
	}
	metrics.CoverageEnumerationSeconds.Observe(time.Since(start).Seconds())
	metrics.CoverageTicketsTotal.Add(float64(len(pack.ScenarioTickets) + len(pack.RoundRobinTickets)))
	s.engineLog.LogCoverage(req.Sport, len(base.Legs), pack.TotalScenarios,
		len(pack.ScenarioTickets), len(pack.RoundRobinTickets),
		float64(time.Since(start).Milliseconds()))

	return base, pack, nil
}

// FindUpsets fetches the pool and returns tiered positive-EV underdogs.
func (s *ParlayService) FindUpsets(ctx context.Context, req BuildRequest, minEdge float64, maxResults int) ([]models.UpsetCandidate, error) {
	legs, status, err := s.fetchPool(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(legs) == 0 {
		return nil, emptyPoolError(1, status)
	}
	return s.upsets.Find(legs, minEdge, maxResults), nil
}

// GetUpsetsForParlay returns upset candidates filtered and ordered for a
// parlay construction style.
func (s *ParlayService) GetUpsetsForParlay(ctx context.Context, req BuildRequest, maxResults int) ([]models.UpsetCandidate, error) {
	profile, err := models.ParseRiskProfile(req.RiskProfile)
	if err != nil {
		return nil, err
	}

	legs, status, err := s.fetchPool(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(legs) == 0 {
		return nil, emptyPoolError(1, status)
	}
	return s.upsets.FindForParlayType(legs, profile, maxResults), nil
}

// GetAccuracyStats reports resolved prediction performance for a sport.
func (s *ParlayService) GetAccuracyStats(ctx context.Context, sport string, since time.Time) (*tracking.AccuracyStats, error) {
	if s.stats == nil {
		return nil, models.NewComputationError("accuracy_stats", "tracking is disabled")
	}
	return s.stats.GetAccuracyStats(ctx, sport, since)
}

// GetTeamBiasAdjustments returns the current per-team bias map for a sport.
func (s *ParlayService) GetTeamBiasAdjustments(ctx context.Context, sport string) (map[string]models.TeamCalibration, error) {
	if s.teamCache == nil {
		return map[string]models.TeamCalibration{}, nil
	}
	return s.teamCache.Get(ctx, sport)
}

// analyze derives the full parlay payload from a selection.
func (s *ParlayService) analyze(ctx context.Context, legs []models.Leg, profile models.RiskProfile) (*models.Parlay, error) {
	if len(legs) == 0 {
		return nil, models.NewComputationError("analyze", "empty selection")
	}

	modelProb := s.calculator.Calculate(legs, profile)
	calibrated := modelProb
	if s.calibration != nil {
		calibrated = s.calibration.Calibrate(ctx, modelProb)
	}

	combinedDecimal := models.CombinedDecimal(legs)

	return &models.Parlay{
		Legs:                       legs,
		RiskProfile:                profile,
		CombinedImpliedProbability: models.CombinedImplied(legs),
		CombinedModelProbability:   modelProb,
		CalibratedProbability:      calibrated,
		CombinedDecimalOdds:        combinedDecimal,
		ExpectedValue:              calibrated*combinedDecimal - 1,
		OverallConfidence:          models.AverageConfidence(legs),
		UpsetCount:                 models.CountUpsets(legs),
		GeneratedAt:                time.Now().UTC(),
	}, nil
}

// fetchPool retrieves candidates and applies the cached per-team bias
// corrections before any selection math runs.
func (s *ParlayService) fetchPool(ctx context.Context, req BuildRequest) ([]models.Leg, *pool.PoolStatus, error) {
	legs, status, err := s.pool.GetCandidateLegs(ctx, pool.FetchParams{
		Sport:              req.Sport,
		Week:               req.Week,
		MaxLegs:            0,
		IncludePlayerProps: req.IncludePlayerProps,
	})
	if err != nil {
		return nil, nil, err
	}

	s.applyTeamBias(ctx, req.Sport, legs)
	return legs, status, nil
}

// applyTeamBias shifts each leg's model probability by the bias correction of
// the team it picks, then re-clamps.
func (s *ParlayService) applyTeamBias(ctx context.Context, sport string, legs []models.Leg) {
	if s.teamCache == nil {
		return
	}
	for i := range legs {
		leg := &legs[i]
		if leg.MarketType == models.MarketTotal {
			continue
		}
		var team string
		switch {
		case leg.PicksHome():
			team = leg.HomeTeam
		case leg.PicksAway():
			team = leg.AwayTeam
		default:
			continue
		}
		if bias := s.teamCache.BiasFor(ctx, sport, team); bias != 0 {
			leg.ModelProbability = models.ClampModelProbability(leg.ModelProbability + bias)
		}
	}
}

// emptyPoolError translates the feed status into an actionable error message.
func emptyPoolError(needed int, status *pool.PoolStatus) error {
	if status == nil {
		return models.NewInsufficientCandidatesError(needed, 0, "candidate pool unavailable")
	}
	switch status.Reason {
	case pool.ReasonNoGames:
		return models.NewInsufficientCandidatesError(needed, 0,
			"no games scheduled for the requested window")
	case pool.ReasonOddsNotLoaded:
		return models.NewInsufficientCandidatesError(needed, 0,
			"games found but odds are not loaded yet, retry closer to game time")
	case pool.ReasonNoEdges:
		return models.NewInsufficientCandidatesError(needed, 0,
			"odds loaded but no outcomes cleared the model thresholds")
	default:
		return models.NewInsufficientCandidatesError(needed, 0, "candidate pool is empty")
	}
}
