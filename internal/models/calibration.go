package models

import (
	"time"

	"github.com/google/uuid"
)

// CalibrationBin represents one bucket of a trained calibration run
type CalibrationBin struct {
	BinIndex         int       `db:"bin_index" json:"bin_index"`
	BinLow           float64   `db:"bin_low" json:"bin_low" validate:"gte=0,lte=1"`
	BinHigh          float64   `db:"bin_high" json:"bin_high" validate:"gte=0,lte=1,gtefield=BinLow"`
	EmpiricalHitRate float64   `db:"empirical_hit_rate" json:"empirical_hit_rate" validate:"gte=0,lte=1"`
	SampleCount      int       `db:"sample_count" json:"sample_count" validate:"gte=0"`
	TrainedAt        time.Time `db:"trained_at" json:"trained_at"`
}

// Contains reports whether p falls inside the bin, boundaries included
func (b *CalibrationBin) Contains(p float64) bool {
	return p >= b.BinLow && p <= b.BinHigh
}

// TrainingRecord is one historical resolved prediction. ParlayID is nil for
// imported history.
type TrainingRecord struct {
	ParlayID   *uuid.UUID  `db:"parlay_id" json:"parlay_id,omitempty"`
	Predicted  Probability `db:"predicted" json:"predicted"`
	Hit        bool        `db:"hit" json:"hit"`
	ResolvedAt time.Time   `db:"resolved_at" json:"resolved_at"`
}
