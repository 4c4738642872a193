package models

import (
	"fmt"
	"math"
)

// Probability is a value on the 0..1 scale. It is deliberately a distinct type
// from ConfidenceScore so the two scales cannot be mixed without an explicit cast.
type Probability float64

// ConfidenceScore is a value on the 0..100 scale.
type ConfidenceScore float64

const (
	// MaxConfidence is the upper bound of the confidence scale
	MaxConfidence ConfidenceScore = 100
)

// Float64 returns the raw value
func (p Probability) Float64() float64 {
	return float64(p)
}

// Validate reports an invariant violation when p is outside [0,1] or NaN
func (p Probability) Validate() error {
	v := float64(p)
	if math.IsNaN(v) || v < 0 || v > 1 {
		return fmt.Errorf("%w: probability %v outside [0,1]", ErrInvariantViolation, v)
	}
	return nil
}

// Clamp bounds p to [0,1]. NaN clamps to 0.
func (p Probability) Clamp() Probability {
	v := float64(p)
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return p
	}
}

// Float64 returns the raw value
func (c ConfidenceScore) Float64() float64 {
	return float64(c)
}

// Validate reports an invariant violation when c is outside [0,100] or NaN
func (c ConfidenceScore) Validate() error {
	v := float64(c)
	if math.IsNaN(v) || v < 0 || v > float64(MaxConfidence) {
		return fmt.Errorf("%w: confidence score %v outside [0,100]", ErrInvariantViolation, v)
	}
	return nil
}
