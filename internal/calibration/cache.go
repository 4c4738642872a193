package calibration

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/parlay-engine/internal/logger"
	"github.com/yourusername/parlay-engine/internal/metrics"
	"github.com/yourusername/parlay-engine/internal/models"
	"github.com/yourusername/parlay-engine/internal/repository"
)

const (
	freshKey = "bins"

	modeBinned   = "binned"
	modeIdentity = "identity"

	maxRetryDelay = 30 * time.Second
)

// Cache serves calibrations from the last good bin set. The set is reloaded
// from the repository once its TTL lapses; readers keep using the previous
// snapshot while a reload is in flight or after it fails.
type Cache struct {
	repo       repository.CalibrationBinRepository
	minSamples int
	ttl        time.Duration

	snapshot  atomic.Pointer[BinSet]
	fresh     *gocache.Cache
	refreshMu sync.Mutex

	logger *logrus.Entry
	audit  *logger.AuditLogger
}

// NewCache creates a calibration cache. ttl must not exceed the retraining interval.
func NewCache(repo repository.CalibrationBinRepository, minSamples int, ttl time.Duration, log *logrus.Logger) *Cache {
	return &Cache{
		repo:       repo,
		minSamples: minSamples,
		ttl:        ttl,
		fresh:      gocache.New(ttl, 2*ttl),
		logger:     log.WithField("component", "calibration_cache"),
		audit:      logger.NewAuditLogger(log),
	}
}

// Calibrate maps raw onto the active bin set. It reports false and returns raw
// unchanged when no trained set is available.
func (c *Cache) Calibrate(ctx context.Context, raw models.Probability) (models.Probability, bool) {
	set := c.current(ctx)
	if !set.Trained(c.minSamples) {
		metrics.RecordCalibration(modeIdentity)
		return raw, false
	}
	metrics.RecordCalibration(modeBinned)
	return set.Calibrate(raw), true
}

// Snapshot returns the active bin set, or nil when none has been loaded
func (c *Cache) Snapshot() *BinSet {
	return c.snapshot.Load()
}

// Invalidate forces the next reader to reload the bin set
func (c *Cache) Invalidate() {
	c.fresh.Delete(freshKey)
}

// Refresh reloads the bin set from the repository and swaps it in. On failure
// the previous snapshot stays active.
func (c *Cache) Refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()
	return c.refreshLocked(ctx)
}

func (c *Cache) current(ctx context.Context) *BinSet {
	if _, ok := c.fresh.Get(freshKey); ok {
		return c.snapshot.Load()
	}
	// another goroutine is already reloading
	if !c.refreshMu.TryLock() {
		return c.snapshot.Load()
	}
	defer c.refreshMu.Unlock()

	if _, ok := c.fresh.Get(freshKey); !ok {
		if err := c.refreshLocked(ctx); err != nil {
			c.logger.WithError(err).Warn("Calibration bin reload failed, keeping previous bin set")
		}
	}
	return c.snapshot.Load()
}

func (c *Cache) refreshLocked(ctx context.Context) error {
	bins, err := c.repo.GetLatest(ctx)
	if err != nil {
		c.fresh.Set(freshKey, struct{}{}, c.retryDelay())
		return err
	}

	next := NewBinSet(bins)
	prev := c.snapshot.Swap(next)
	c.fresh.Set(freshKey, struct{}{}, gocache.DefaultExpiration)

	if prev == nil || !prev.TrainedAt.Equal(next.TrainedAt) {
		trained := next.Trained(c.minSamples)
		if trained {
			metrics.UpdateCalibrationTrainedAt(float64(next.TrainedAt.Unix()))
		} else {
			metrics.UpdateCalibrationTrainedAt(0)
		}
		c.audit.LogCalibrationActivated(next.TrainedAt, len(next.Bins), next.TotalSamples, trained)
	}
	return nil
}

func (c *Cache) retryDelay() time.Duration {
	if c.ttl < maxRetryDelay {
		return c.ttl
	}
	return maxRetryDelay
}
