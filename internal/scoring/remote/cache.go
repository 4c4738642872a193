package remote

import (
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/yourusername/parlay-engine/internal/scoring"
)

// ScoreCache keeps recent model outputs keyed by outcome and quoted price
type ScoreCache struct {
	cache     *cache.Cache
	ttl       time.Duration
	mu        sync.Mutex
	hitCount  uint64
	missCount uint64
}

// NewScoreCache creates a new score cache
func NewScoreCache(ttl time.Duration) *ScoreCache {
	return &ScoreCache{
		cache: cache.New(ttl, ttl*2),
		ttl:   ttl,
	}
}

// Get retrieves a cached output
func (sc *ScoreCache) Get(key string) (scoring.ModelOutput, bool) {
	item, found := sc.cache.Get(key)
	out, ok := item.(scoring.ModelOutput)

	sc.mu.Lock()
	if found && ok {
		sc.hitCount++
	} else {
		sc.missCount++
	}
	sc.mu.Unlock()
	sc.updateMetrics()

	return out, found && ok
}

// Set stores an output
func (sc *ScoreCache) Set(key string, out scoring.ModelOutput) {
	sc.cache.Set(key, out, sc.ttl)
}

// Clear flushes the cache and its statistics
func (sc *ScoreCache) Clear() {
	sc.cache.Flush()
	sc.mu.Lock()
	sc.hitCount = 0
	sc.missCount = 0
	sc.mu.Unlock()
}

// Stats returns cache statistics
func (sc *ScoreCache) Stats() (hits, misses uint64, ratio float64) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	hits = sc.hitCount
	misses = sc.missCount
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return
}

// ItemCount returns the number of items in cache
func (sc *ScoreCache) ItemCount() int {
	return sc.cache.ItemCount()
}

func (sc *ScoreCache) updateMetrics() {
	_, _, ratio := sc.Stats()
	ModelCacheHitRatio.Set(ratio)
}
