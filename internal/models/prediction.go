package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Resolution is the terminal state of a tracked prediction.
type Resolution string

const (
	ResolutionUnresolved Resolution = "unresolved"
	ResolutionWin        Resolution = "win"
	ResolutionLoss       Resolution = "loss"
	ResolutionPush       Resolution = "push"
)

// Prediction is one durable row per logical pick per calendar day.
// The natural key (sport, event, market, side, model version, day) is hashed
// into IdempotencyKey; a uniqueness constraint on that column makes repeated
// saves of the same logical prediction a no-op.
type Prediction struct {
	ID              uuid.UUID       `db:"id" json:"id" validate:"required,uuid4"`
	IdempotencyKey  string          `db:"idempotency_key" json:"idempotency_key" validate:"required"`
	Sport           string          `db:"sport" json:"sport" validate:"required"`
	EventID         string          `db:"event_id" json:"event_id" validate:"required"`
	MarketType      MarketType      `db:"market_type" json:"market_type" validate:"required"`
	Side            string          `db:"side" json:"side" validate:"required"`
	ModelVersion    string          `db:"model_version" json:"model_version" validate:"required"`
	PredictedProb   float64         `db:"predicted_prob" json:"predicted_prob" validate:"required,gt=0,lt=1"`
	ImpliedProb     float64         `db:"implied_prob" json:"implied_prob" validate:"required,gt=0,lt=1"`
	Edge            float64         `db:"edge" json:"edge"`
	Confidence      float64         `db:"confidence" json:"confidence" validate:"gte=0,lte=100"`
	FeatureSnapshot json.RawMessage `db:"feature_snapshot" json:"feature_snapshot,omitempty"`
	Resolution      Resolution      `db:"resolution" json:"resolution"`
	PredictedAt     time.Time       `db:"predicted_at" json:"predicted_at"`
	ResolvedAt      *time.Time      `db:"resolved_at" json:"resolved_at,omitempty"`
}

// IsResolved reports whether the prediction reached a terminal state.
func (p *Prediction) IsResolved() bool {
	return p.Resolution != "" && p.Resolution != ResolutionUnresolved
}

// SnapshotFloat reads a numeric feature from the stored snapshot,
// returning fallback when the snapshot is missing or lacks the key.
func (p *Prediction) SnapshotFloat(name string, fallback float64) float64 {
	if len(p.FeatureSnapshot) == 0 {
		return fallback
	}
	var features map[string]interface{}
	if err := json.Unmarshal(p.FeatureSnapshot, &features); err != nil {
		return fallback
	}
	if v, ok := features[name].(float64); ok {
		return v
	}
	return fallback
}

// SnapshotString reads a string feature from the stored snapshot, returning
// "" when the snapshot is missing or lacks the key.
func (p *Prediction) SnapshotString(name string) string {
	if len(p.FeatureSnapshot) == 0 {
		return ""
	}
	var features map[string]interface{}
	if err := json.Unmarshal(p.FeatureSnapshot, &features); err != nil {
		return ""
	}
	if v, ok := features[name].(string); ok {
		return v
	}
	return ""
}

// PredictionOutcome is the 1:1 resolved record for a prediction.
type PredictionOutcome struct {
	ID             uuid.UUID `db:"id" json:"id"`
	PredictionID   uuid.UUID `db:"prediction_id" json:"prediction_id"`
	WasCorrect     bool      `db:"was_correct" json:"was_correct"`
	ErrorMagnitude float64   `db:"error_magnitude" json:"error_magnitude"`
	SignedError    float64   `db:"signed_error" json:"signed_error"`
	ResolvedAt     time.Time `db:"resolved_at" json:"resolved_at"`
}
