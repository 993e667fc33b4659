package calibration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/Fawl3r/parlay-gorilla/internal/models"
)

type fakeBucketSource struct {
	buckets []models.CalibrationBucket
	err     error
	calls   int
}

func (f *fakeBucketSource) CalibrationBuckets(ctx context.Context) ([]models.CalibrationBucket, error) {
	f.calls++
	return f.buckets, f.err
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestCalibrateAdjustsWithinBucket(t *testing.T) {
	source := &fakeBucketSource{buckets: []models.CalibrationBucket{
		{LowerBound: 0.60, UpperBound: 0.65, SampleSize: 120, MeanPredicted: 0.62, ActualRate: 0.57},
	}}
	svc := NewService(source, time.Minute, 50, quietLogger())

	got := svc.Calibrate(context.Background(), 0.63)
	assert.InDelta(t, 0.58, got, 1e-9)
}

func TestCalibratePassesThroughOutsideBuckets(t *testing.T) {
	source := &fakeBucketSource{buckets: []models.CalibrationBucket{
		{LowerBound: 0.60, UpperBound: 0.65, SampleSize: 120, MeanPredicted: 0.62, ActualRate: 0.57},
	}}
	svc := NewService(source, time.Minute, 50, quietLogger())

	assert.Equal(t, 0.40, svc.Calibrate(context.Background(), 0.40))
}

func TestCalibrateIgnoresThinBuckets(t *testing.T) {
	source := &fakeBucketSource{buckets: []models.CalibrationBucket{
		{LowerBound: 0.60, UpperBound: 0.65, SampleSize: 10, MeanPredicted: 0.62, ActualRate: 0.40},
	}}
	svc := NewService(source, time.Minute, 50, quietLogger())

	assert.Equal(t, 0.63, svc.Calibrate(context.Background(), 0.63))
}

func TestCalibrateClampsAdjustedProbability(t *testing.T) {
	source := &fakeBucketSource{buckets: []models.CalibrationBucket{
		{LowerBound: 0.0, UpperBound: 0.05, SampleSize: 200, MeanPredicted: 0.30, ActualRate: 0.0},
	}}
	svc := NewService(source, time.Minute, 50, quietLogger())

	assert.Equal(t, 0.001, svc.Calibrate(context.Background(), 0.04))
}

func TestCalibratePassesThroughOnSourceError(t *testing.T) {
	source := &fakeBucketSource{err: errors.New("db down")}
	svc := NewService(source, time.Minute, 50, quietLogger())

	assert.Equal(t, 0.55, svc.Calibrate(context.Background(), 0.55))
}

func TestCalibrateCachesBuckets(t *testing.T) {
	source := &fakeBucketSource{buckets: []models.CalibrationBucket{
		{LowerBound: 0.60, UpperBound: 0.65, SampleSize: 120, MeanPredicted: 0.62, ActualRate: 0.57},
	}}
	svc := NewService(source, time.Minute, 50, quietLogger())

	svc.Calibrate(context.Background(), 0.63)
	svc.Calibrate(context.Background(), 0.63)
	assert.Equal(t, 1, source.calls)

	svc.Invalidate()
	svc.Calibrate(context.Background(), 0.63)
	assert.Equal(t, 2, source.calls)
}
