package models

import (
	"fmt"
	"strings"
	"time"
)

// MarketType identifies the betting market a leg belongs to.
type MarketType string

const (
	MarketMoneyline MarketType = "h2h"
	MarketSpread    MarketType = "spreads"
	MarketTotal     MarketType = "totals"
)

// ParseMarketType normalizes feed market names onto the canonical set.
func ParseMarketType(s string) (MarketType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "h2h", "moneyline", "ml":
		return MarketMoneyline, nil
	case "spreads", "spread", "ats":
		return MarketSpread, nil
	case "totals", "total", "over_under":
		return MarketTotal, nil
	default:
		return "", NewValidationError("market_type", fmt.Sprintf("unknown market type %q", s))
	}
}

// RiskProfile controls how aggressive selection and filtering are.
type RiskProfile string

const (
	ProfileConservative RiskProfile = "conservative"
	ProfileBalanced     RiskProfile = "balanced"
	ProfileDegen        RiskProfile = "degen"
)

// ParseRiskProfile validates a profile name, defaulting to balanced when empty.
func ParseRiskProfile(s string) (RiskProfile, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return ProfileBalanced, nil
	case string(ProfileConservative), string(ProfileBalanced), string(ProfileDegen):
		return RiskProfile(strings.ToLower(strings.TrimSpace(s))), nil
	default:
		return "", NewValidationError("risk_profile", fmt.Sprintf("unknown risk profile %q", s))
	}
}

// Outcome sides for totals markets.
const (
	OutcomeOver  = "Over"
	OutcomeUnder = "Under"
)

// Leg is a single wager selection within one market of one game.
type Leg struct {
	GameID             string     `json:"game_id" validate:"required"`
	Sport              string     `json:"sport" validate:"required"`
	HomeTeam           string     `json:"home_team" validate:"required"`
	AwayTeam           string     `json:"away_team" validate:"required"`
	MarketType         MarketType `json:"market_type" validate:"required,oneof=h2h spreads totals"`
	Outcome            string     `json:"outcome" validate:"required"`
	Point              *float64   `json:"point,omitempty"`
	OddsAmerican       string     `json:"odds_american" validate:"required"`
	OddsDecimal        float64    `json:"odds_decimal" validate:"required,gt=1"`
	ImpliedProbability float64    `json:"implied_probability" validate:"required,gt=0,lt=1"`
	ModelProbability   float64    `json:"model_probability" validate:"required,gte=0.05,lte=0.95"`
	ConfidenceScore    float64    `json:"confidence_score" validate:"gte=0,lte=100"`
	LineMovement       float64    `json:"line_movement"`
	CommenceTime       time.Time  `json:"commence_time"`
}

// ModelProbabilityBounds clamp range for per-leg model probabilities.
const (
	MinModelProbability = 0.05
	MaxModelProbability = 0.95
)

// ClampModelProbability bounds a raw model probability to the accepted range.
func ClampModelProbability(p float64) float64 {
	if p < MinModelProbability {
		return MinModelProbability
	}
	if p > MaxModelProbability {
		return MaxModelProbability
	}
	return p
}

// Edge returns the model probability minus the market-implied probability.
func (l *Leg) Edge() float64 {
	return l.ModelProbability - l.ImpliedProbability
}

// ExpectedValue returns the expected return per unit stake at decimal odds.
func (l *Leg) ExpectedValue() float64 {
	return l.ModelProbability*l.OddsDecimal - 1.0
}

// IdentityKey is the full dedup key: one selection per game/market/outcome/point.
func (l *Leg) IdentityKey() string {
	point := "-"
	if l.Point != nil {
		point = fmt.Sprintf("%.1f", *l.Point)
	}
	return fmt.Sprintf("%s|%s|%s|%s", l.GameID, l.MarketType, strings.ToLower(l.Outcome), point)
}

// OutcomeKey is the relaxed dedup key ignoring market type and point.
func (l *Leg) OutcomeKey() string {
	return fmt.Sprintf("%s|%s", l.GameID, strings.ToLower(l.Outcome))
}

// MarketKey groups legs by game and market, used by conflict checks.
func (l *Leg) MarketKey() string {
	return fmt.Sprintf("%s|%s", l.GameID, l.MarketType)
}

// IsUnderdog reports whether the leg is a plus-money underdog.
func (l *Leg) IsUnderdog() bool {
	return l.ImpliedProbability <= 0.50 && strings.HasPrefix(l.OddsAmerican, "+")
}

// PicksHome reports whether a moneyline or spread outcome references the home team.
func (l *Leg) PicksHome() bool {
	o := strings.ToLower(strings.TrimSpace(l.Outcome))
	return o == strings.ToLower(l.HomeTeam) || o == "home"
}

// PicksAway reports whether a moneyline or spread outcome references the away team.
func (l *Leg) PicksAway() bool {
	o := strings.ToLower(strings.TrimSpace(l.Outcome))
	return o == strings.ToLower(l.AwayTeam) || o == "away"
}

// Clone returns a deep copy so transforms never mutate a caller's leg.
func (l *Leg) Clone() Leg {
	out := *l
	if l.Point != nil {
		p := *l.Point
		out.Point = &p
	}
	return out
}
