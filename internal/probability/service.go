package probability

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/parlay-engine/internal/logger"
	"github.com/yourusername/parlay-engine/internal/metrics"
	"github.com/yourusername/parlay-engine/internal/models"
	"github.com/yourusername/parlay-engine/internal/repository"
)

// Calibrator maps a raw probability to a calibrated one and reports whether a
// trained bin set was applied
type Calibrator interface {
	Calibrate(ctx context.Context, raw models.Probability) (models.Probability, bool)
}

// Service computes and stores parlay hit probabilities
type Service struct {
	calculator *Calculator
	calibrator Calibrator
	parlays    repository.ParlayRepository
	audit      *logger.AuditLogger
}

// NewService creates a probability service
func NewService(calculator *Calculator, calibrator Calibrator, parlays repository.ParlayRepository, log *logrus.Logger) *Service {
	return &Service{
		calculator: calculator,
		calibrator: calibrator,
		parlays:    parlays,
		audit:      logger.NewAuditLogger(log),
	}
}

// Compute combines the legs and calibrates the result
func (s *Service) Compute(ctx context.Context, legs []models.CandidateLeg) (models.ParlayProbabilityResult, error) {
	start := time.Now()

	raw, err := s.calculator.Combine(legs)
	if err != nil {
		return models.ParlayProbabilityResult{}, err
	}

	calibrated, applied := s.calibrator.Calibrate(ctx, raw)
	if err := calibrated.Validate(); err != nil {
		return models.ParlayProbabilityResult{}, fmt.Errorf("calibrated probability: %w", err)
	}

	metrics.RecordParlayProbability(time.Since(start).Seconds(), calibrated.Float64())

	return models.ParlayProbabilityResult{
		RawProbability:        raw,
		CalibratedProbability: calibrated,
		Calibrated:            applied,
	}, nil
}

// ComputeAndStore computes the probability and persists it on the parlay. The
// stored value is written once, at creation or save time.
func (s *Service) ComputeAndStore(ctx context.Context, ref models.ParlayRef, legs []models.CandidateLeg) (models.ParlayProbabilityResult, error) {
	result, err := s.Compute(ctx, legs)
	if err != nil {
		return result, err
	}

	if err := s.parlays.SetHitProbability(ctx, ref, result.CalibratedProbability); err != nil {
		return result, fmt.Errorf("store hit probability for parlay %s: %w", ref.ID, err)
	}

	s.audit.LogParlayProbabilityStored(ref.ID.String(), result.RawProbability.Float64(), result.CalibratedProbability.Float64(), result.Calibrated)
	return result, nil
}
