package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Fawl3r/parlay-gorilla/internal/config"
	"github.com/Fawl3r/parlay-gorilla/internal/models"
	"github.com/Fawl3r/parlay-gorilla/internal/service"
)

// apiServer exposes the engine operations over JSON HTTP.
type apiServer struct {
	cfg    *config.Config
	svc    *service.ParlayService
	logger *logrus.Logger
}

func newAPIServer(cfg *config.Config, svc *service.ParlayService, logger *logrus.Logger) *http.Server {
	a := &apiServer{cfg: cfg, svc: svc, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/parlay", a.handleBuildParlay)
	mux.HandleFunc("/v1/parlay/counter", a.handleCounter)
	mux.HandleFunc("/v1/coverage", a.handleCoverage)
	mux.HandleFunc("/v1/upsets", a.handleUpsets)
	mux.HandleFunc("/v1/stats/accuracy", a.handleAccuracy)
	mux.HandleFunc("/v1/stats/team-bias", a.handleTeamBias)

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Engine.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func (a *apiServer) buildRequest(r *http.Request) service.BuildRequest {
	q := r.URL.Query()
	numLegs := a.cfg.Engine.DefaultNumLegs
	if v, err := strconv.Atoi(q.Get("legs")); err == nil {
		numLegs = v
	}
	week, _ := strconv.Atoi(q.Get("week"))
	profile := q.Get("profile")
	if profile == "" {
		profile = a.cfg.Engine.DefaultRiskProfile
	}

	return service.BuildRequest{
		Sport:              q.Get("sport"),
		NumLegs:            numLegs,
		RiskProfile:        profile,
		Week:               week,
		IncludePlayerProps: a.cfg.Engine.IncludePlayerProps || q.Get("player_props") == "true",
	}
}

func (a *apiServer) handleBuildParlay(w http.ResponseWriter, r *http.Request) {
	parlay, err := a.svc.BuildParlay(r.Context(), a.buildRequest(r))
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, parlay)
}

func (a *apiServer) handleCounter(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "POST required"})
		return
	}

	var body struct {
		Mode       string        `json:"mode"`
		TargetLegs int           `json:"target_legs"`
		MinEdge    float64       `json:"min_edge"`
		Parlay     models.Parlay `json:"parlay"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		a.writeError(w, models.NewValidationError("body", err.Error()))
		return
	}

	counter, err := a.svc.GenerateCounter(r.Context(), &body.Parlay, service.CounterRequest{
		Mode:       body.Mode,
		TargetLegs: body.TargetLegs,
		MinEdge:    body.MinEdge,
	})
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, counter)
}

func (a *apiServer) handleCoverage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rrSize, _ := strconv.Atoi(q.Get("round_robin_size"))

	base, pack, err := a.svc.BuildCoveragePack(r.Context(), service.CoverageRequest{
		BuildRequest:   a.buildRequest(r),
		ScenarioMax:    a.cfg.Coverage.ScenarioMax,
		RoundRobinSize: rrSize,
		RoundRobinMax:  a.cfg.Coverage.RoundRobinMax,
	})
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]interface{}{
		"parlay":   base,
		"coverage": pack,
	})
}

func (a *apiServer) handleUpsets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	maxResults, _ := strconv.Atoi(q.Get("max"))

	var (
		upsets interface{}
		err    error
	)
	if q.Get("profile") != "" {
		upsets, err = a.svc.GetUpsetsForParlay(r.Context(), a.buildRequest(r), maxResults)
	} else {
		minEdge, _ := strconv.ParseFloat(q.Get("min_edge"), 64)
		upsets, err = a.svc.FindUpsets(r.Context(), a.buildRequest(r), minEdge, maxResults)
	}
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, upsets)
}

func (a *apiServer) handleAccuracy(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	days, err := strconv.Atoi(q.Get("days"))
	if err != nil || days <= 0 {
		days = a.cfg.Calibration.LookbackDays
	}
	since := time.Now().UTC().AddDate(0, 0, -days)

	stats, err := a.svc.GetAccuracyStats(r.Context(), q.Get("sport"), since)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, stats)
}

func (a *apiServer) handleTeamBias(w http.ResponseWriter, r *http.Request) {
	biases, err := a.svc.GetTeamBiasAdjustments(r.Context(), r.URL.Query().Get("sport"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, biases)
}

func (a *apiServer) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case models.IsValidationError(err):
		status = http.StatusBadRequest
	case models.IsInsufficientCandidates(err):
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		a.logger.WithError(err).Error("Request failed")
	}

	a.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (a *apiServer) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.WithError(err).Error("Failed to encode response")
	}
}
