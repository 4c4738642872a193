// Package calibration maps raw parlay probabilities onto empirically observed
// hit rates using bins trained from resolved history.
package calibration

import (
	"math"
	"sort"
	"time"

	"github.com/yourusername/parlay-engine/internal/models"
)

// BinWeight is the share of the calibrated value taken from the bin's hit rate.
// The remainder comes from the raw probability.
const BinWeight = 0.7

// BinSet is one trained set of bins sharing a trained_at timestamp
type BinSet struct {
	Bins         []*models.CalibrationBin
	TrainedAt    time.Time
	TotalSamples int
}

// NewBinSet orders the bins by their lower bound and totals their samples
func NewBinSet(bins []*models.CalibrationBin) *BinSet {
	set := &BinSet{Bins: make([]*models.CalibrationBin, 0, len(bins))}
	for _, b := range bins {
		if b == nil {
			continue
		}
		set.Bins = append(set.Bins, b)
		set.TotalSamples += b.SampleCount
		if b.TrainedAt.After(set.TrainedAt) {
			set.TrainedAt = b.TrainedAt
		}
	}
	sort.SliceStable(set.Bins, func(i, j int) bool {
		return set.Bins[i].BinLow < set.Bins[j].BinLow
	})
	return set
}

// Trained reports whether the set holds bins backed by at least minSamples outcomes
func (s *BinSet) Trained(minSamples int) bool {
	return s != nil && len(s.Bins) > 0 && s.TotalSamples >= minSamples
}

// Calibrate blends the matching bin's hit rate with the raw probability.
// An empty set returns raw unchanged.
func (s *BinSet) Calibrate(raw models.Probability) models.Probability {
	bin := s.locate(raw.Float64())
	if bin == nil {
		return raw
	}
	return models.Probability(BinWeight*bin.EmpiricalHitRate + (1-BinWeight)*raw.Float64()).Clamp()
}

// locate returns the first bin containing p, boundaries included. Values
// outside the trained range use the lowest or highest bin; a value falling in
// a gap between bins uses the nearest one.
func (s *BinSet) locate(p float64) *models.CalibrationBin {
	if s == nil || len(s.Bins) == 0 {
		return nil
	}

	first, last := s.Bins[0], s.Bins[len(s.Bins)-1]
	if p < first.BinLow {
		return first
	}
	if p > last.BinHigh {
		return last
	}

	var nearest *models.CalibrationBin
	best := math.Inf(1)
	for _, b := range s.Bins {
		if b.Contains(p) {
			return b
		}
		d := math.Min(math.Abs(p-b.BinLow), math.Abs(p-b.BinHigh))
		if d < best {
			best, nearest = d, b
		}
	}
	return nearest
}
