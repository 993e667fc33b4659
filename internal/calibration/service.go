// Package calibration maps raw model probabilities onto historically
// observed hit rates and caches per-team bias corrections.
package calibration

import (
	"context"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/Fawl3r/parlay-gorilla/internal/models"
)

const bucketsCacheKey = "calibration_buckets"

// BucketSource provides historical calibration buckets, typically aggregated
// from resolved predictions by the repository layer.
type BucketSource interface {
	CalibrationBuckets(ctx context.Context) ([]models.CalibrationBucket, error)
}

// Service corrects raw parlay probabilities using the historical bucket that
// contains them. Buckets with too few samples pass the raw value through.
type Service struct {
	source     BucketSource
	cache      *cache.Cache
	minSamples int
	logger     *logrus.Logger
}

// NewService creates a calibration service. Bucket aggregates are cached for
// ttl; minSamples is the floor below which a bucket is ignored.
func NewService(source BucketSource, ttl time.Duration, minSamples int, logger *logrus.Logger) *Service {
	if minSamples <= 0 {
		minSamples = 50
	}
	return &Service{
		source:     source,
		cache:      cache.New(ttl, ttl*2),
		minSamples: minSamples,
		logger:     logger,
	}
}

// Calibrate returns the historically corrected probability for raw. When no
// bucket covers raw with enough samples, raw is returned unchanged.
func (s *Service) Calibrate(ctx context.Context, raw float64) float64 {
	buckets, err := s.buckets(ctx)
	if err != nil {
		if s.logger != nil {
			s.logger.WithError(err).Warn("Calibration bucket lookup failed, passing probability through")
		}
		return raw
	}

	for i := range buckets {
		b := &buckets[i]
		if !b.Contains(raw) || b.SampleSize < s.minSamples {
			continue
		}
		adjusted := raw + (b.ActualRate - b.MeanPredicted)
		return clampProbability(adjusted)
	}
	return raw
}

// Invalidate drops the cached bucket aggregates; the next Calibrate reloads.
func (s *Service) Invalidate() {
	s.cache.Delete(bucketsCacheKey)
}

func (s *Service) buckets(ctx context.Context) ([]models.CalibrationBucket, error) {
	if cached, found := s.cache.Get(bucketsCacheKey); found {
		if buckets, ok := cached.([]models.CalibrationBucket); ok {
			return buckets, nil
		}
	}

	buckets, err := s.source.CalibrationBuckets(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(bucketsCacheKey, buckets)
	return buckets, nil
}

func clampProbability(p float64) float64 {
	if p < 0.001 {
		return 0.001
	}
	if p > 0.999 {
		return 0.999
	}
	return p
}
