package models

import (
	"time"

	"github.com/google/uuid"
)

// BiasAdjustmentClamp bounds per-team bias corrections.
const BiasAdjustmentClamp = 0.05

// TeamCalibration is the durable per-(team, sport) bias correction derived
// from resolved predictions. Recomputed by the periodic recalibration batch.
type TeamCalibration struct {
	ID             uuid.UUID `db:"id" json:"id"`
	Team           string    `db:"team" json:"team" validate:"required"`
	Sport          string    `db:"sport" json:"sport" validate:"required"`
	BiasAdjustment float64   `db:"bias_adjustment" json:"bias_adjustment" validate:"gte=-0.05,lte=0.05"`
	AvgSignedError float64   `db:"avg_signed_error" json:"avg_signed_error"`
	SampleSize     int       `db:"sample_size" json:"sample_size"`
	Accuracy       float64   `db:"accuracy" json:"accuracy"`
	BrierScore     float64   `db:"brier_score" json:"brier_score"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// ClampBias bounds a raw bias correction to the accepted range.
func ClampBias(b float64) float64 {
	if b > BiasAdjustmentClamp {
		return BiasAdjustmentClamp
	}
	if b < -BiasAdjustmentClamp {
		return -BiasAdjustmentClamp
	}
	return b
}

// CalibrationBucket aggregates resolved predictions whose predicted
// probability fell in [LowerBound, UpperBound).
type CalibrationBucket struct {
	LowerBound    float64 `db:"lower_bound" json:"lower_bound"`
	UpperBound    float64 `db:"upper_bound" json:"upper_bound"`
	SampleSize    int     `db:"sample_size" json:"sample_size"`
	MeanPredicted float64 `db:"mean_predicted" json:"mean_predicted"`
	ActualRate    float64 `db:"actual_rate" json:"actual_rate"`
}

// Contains reports whether a probability falls inside the bucket.
func (b *CalibrationBucket) Contains(p float64) bool {
	return p >= b.LowerBound && p < b.UpperBound
}
