package calibration

import (
	"context"
	"strings"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/Fawl3r/parlay-gorilla/internal/metrics"
	"github.com/Fawl3r/parlay-gorilla/internal/models"
)

// TeamCalibrationSource provides the durable team calibration rows.
type TeamCalibrationSource interface {
	ListTeamCalibrations(ctx context.Context, sport string) ([]models.TeamCalibration, error)
}

// TeamCache is the one piece of process-wide shared state in the engine:
// per-sport team calibration maps with a TTL equal to the recalibration
// cadence. Reads are concurrent-safe; refreshes are single-writer.
type TeamCache struct {
	source TeamCalibrationSource
	cache  *cache.Cache
	ttl    time.Duration

	refreshMu   sync.Mutex
	statsMu     sync.Mutex
	lastRefresh map[string]time.Time
	hits        uint64
	misses      uint64
}

// NewTeamCache creates the calibration cache with the given TTL.
func NewTeamCache(source TeamCalibrationSource, ttl time.Duration) *TeamCache {
	return &TeamCache{
		source:      source,
		cache:       cache.New(ttl, ttl*2),
		ttl:         ttl,
		lastRefresh: make(map[string]time.Time),
	}
}

// Get returns the team→calibration map for a sport, loading it from the
// source on a miss or after TTL expiry.
func (tc *TeamCache) Get(ctx context.Context, sport string) (map[string]models.TeamCalibration, error) {
	key := cacheKey(sport)
	if cached, found := tc.cache.Get(key); found {
		if m, ok := cached.(map[string]models.TeamCalibration); ok {
			tc.recordHit(true)
			return m, nil
		}
	}
	tc.recordHit(false)

	// Single-writer refresh: concurrent misses for the same sport collapse
	// into one source load.
	tc.refreshMu.Lock()
	defer tc.refreshMu.Unlock()

	if cached, found := tc.cache.Get(key); found {
		if m, ok := cached.(map[string]models.TeamCalibration); ok {
			return m, nil
		}
	}

	rows, err := tc.source.ListTeamCalibrations(ctx, sport)
	if err != nil {
		return nil, err
	}

	m := make(map[string]models.TeamCalibration, len(rows))
	for _, row := range rows {
		m[strings.ToLower(row.Team)] = row
	}

	tc.cache.SetDefault(key, m)
	tc.statsMu.Lock()
	tc.lastRefresh[key] = time.Now()
	tc.statsMu.Unlock()

	return m, nil
}

// BiasFor returns the bias adjustment for a team, zero when unknown.
func (tc *TeamCache) BiasFor(ctx context.Context, sport, team string) float64 {
	m, err := tc.Get(ctx, sport)
	if err != nil {
		return 0
	}
	if row, ok := m[strings.ToLower(team)]; ok {
		return row.BiasAdjustment
	}
	return 0
}

// Invalidate drops the cached map for a sport, forcing a reload.
func (tc *TeamCache) Invalidate(sport string) {
	tc.cache.Delete(cacheKey(sport))
}

// LastRefresh reports when a sport's map was last loaded, zero if never.
func (tc *TeamCache) LastRefresh(sport string) time.Time {
	tc.statsMu.Lock()
	defer tc.statsMu.Unlock()
	return tc.lastRefresh[cacheKey(sport)]
}

// Stats returns hit/miss counts and the hit ratio.
func (tc *TeamCache) Stats() (hits, misses uint64, ratio float64) {
	tc.statsMu.Lock()
	defer tc.statsMu.Unlock()
	hits = tc.hits
	misses = tc.misses
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return
}

func (tc *TeamCache) recordHit(hit bool) {
	tc.statsMu.Lock()
	if hit {
		tc.hits++
	} else {
		tc.misses++
	}
	total := tc.hits + tc.misses
	ratio := 0.0
	if total > 0 {
		ratio = float64(tc.hits) / float64(total)
	}
	tc.statsMu.Unlock()

	metrics.CalibrationCacheHitRatio.Set(ratio)
}

func cacheKey(sport string) string {
	return "team_calibrations:" + strings.ToLower(sport)
}
