package calibration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/parlay-engine/internal/models"
	"github.com/yourusername/parlay-engine/internal/repository"
)

// ErrNoTrainingData is returned when the training window holds no resolved predictions
var ErrNoTrainingData = errors.New("no resolved predictions in training window")

// Trainer builds bin sets from resolved predictions and activates them
type Trainer struct {
	bins    repository.CalibrationBinRepository
	history repository.TrainingDataRepository
	cache   *Cache
	numBins int
	window  time.Duration
	logger  *logrus.Entry
	now     func() time.Time
}

// NewTrainer creates a trainer producing numBins equal-width bins from the last window of history
func NewTrainer(
	bins repository.CalibrationBinRepository,
	history repository.TrainingDataRepository,
	cache *Cache,
	numBins int,
	window time.Duration,
	log *logrus.Logger,
) *Trainer {
	if numBins <= 0 {
		numBins = 10
	}
	return &Trainer{
		bins:    bins,
		history: history,
		cache:   cache,
		numBins: numBins,
		window:  window,
		logger:  log.WithField("component", "calibration_trainer"),
		now:     time.Now,
	}
}

// TrainFromHistory loads the training window and trains on it
func (t *Trainer) TrainFromHistory(ctx context.Context) (*BinSet, error) {
	since := t.now().Add(-t.window)
	records, err := t.history.GetResolvedSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("load training data: %w", err)
	}
	return t.Train(ctx, records)
}

// Train bins the dataset, persists the set under one trained_at and
// invalidates the cache so readers pick it up on their next call
func (t *Trainer) Train(ctx context.Context, dataset []models.TrainingRecord) (*BinSet, error) {
	if len(dataset) == 0 {
		return nil, ErrNoTrainingData
	}

	bins, err := BuildBins(dataset, t.numBins, t.now().UTC().Truncate(time.Microsecond))
	if err != nil {
		return nil, err
	}

	if err := t.bins.SaveSet(ctx, bins); err != nil {
		return nil, fmt.Errorf("save calibration bins: %w", err)
	}
	if t.cache != nil {
		t.cache.Invalidate()
	}

	set := NewBinSet(bins)
	t.logger.WithFields(logrus.Fields{
		"bins":       len(set.Bins),
		"samples":    set.TotalSamples,
		"trained_at": set.TrainedAt,
	}).Info("Calibration bins trained")
	return set, nil
}

// BuildBins partitions [0,1] into numBins equal-width bins and computes the
// empirical hit rate of each. Bins without samples are omitted.
func BuildBins(dataset []models.TrainingRecord, numBins int, trainedAt time.Time) ([]*models.CalibrationBin, error) {
	if numBins <= 0 {
		return nil, fmt.Errorf("%w: bin count %d", models.ErrInvariantViolation, numBins)
	}

	hits := make([]int, numBins)
	counts := make([]int, numBins)
	for _, r := range dataset {
		if err := r.Predicted.Validate(); err != nil {
			return nil, fmt.Errorf("training record: %w", err)
		}
		i := int(r.Predicted.Float64() * float64(numBins))
		if i >= numBins {
			i = numBins - 1
		}
		counts[i]++
		if r.Hit {
			hits[i]++
		}
	}

	width := 1.0 / float64(numBins)
	bins := make([]*models.CalibrationBin, 0, numBins)
	for i := 0; i < numBins; i++ {
		if counts[i] == 0 {
			continue
		}
		high := float64(i+1) * width
		if i == numBins-1 {
			high = 1
		}
		bins = append(bins, &models.CalibrationBin{
			BinIndex:         i,
			BinLow:           float64(i) * width,
			BinHigh:          high,
			EmpiricalHitRate: float64(hits[i]) / float64(counts[i]),
			SampleCount:      counts[i],
			TrainedAt:        trainedAt,
		})
	}
	return bins, nil
}
