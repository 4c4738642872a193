package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/parlay-engine/internal/config"
	"github.com/yourusername/parlay-engine/internal/metrics"
	"github.com/yourusername/parlay-engine/internal/models"
	"github.com/yourusername/parlay-engine/internal/odds"
	"github.com/yourusername/parlay-engine/internal/repository"
	"github.com/yourusername/parlay-engine/internal/scoring"
)

const defaultMaxLegs = 10

// ErrInvalidBuildRequest is returned for requests rejected before any work is done
var ErrInvalidBuildRequest = errors.New("invalid build request")

// CandidateSelector picks ranked candidate legs from market outcomes
type CandidateSelector interface {
	SelectWithCriteria(ctx context.Context, outcomes []scoring.MarketOutcome, needed int, criteria scoring.Criteria) ([]models.CandidateLeg, error)
}

// ProbabilityStore computes a parlay's hit probability and writes it once
type ProbabilityStore interface {
	ComputeAndStore(ctx context.Context, ref models.ParlayRef, legs []models.CandidateLeg) (models.ParlayProbabilityResult, error)
}

// Transactor runs fn inside one database transaction
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(context.Context) error) error
}

// BuildRequest asks for a generated parlay over the given games
type BuildRequest struct {
	GameIDs     []string
	NumLegs     int
	RiskProfile models.RiskProfile
}

// BuildResult is a persisted parlay with its probability and payout
type BuildResult struct {
	Parlay      *models.Parlay                 `json:"parlay"`
	Probability models.ParlayProbabilityResult `json:"probability"`
	Payout      decimal.Decimal                `json:"payout_multiplier"`
}

// ParlayBuilder turns priced games into stored parlays. The hit probability is
// computed and stored in the same transaction that creates the parlay.
type ParlayBuilder struct {
	odds        repository.OddsRepository
	parlays     repository.ParlayRepository
	legs        repository.LegRepository
	tx          Transactor
	selector    CandidateSelector
	probability ProbabilityStore
	profiles    map[models.RiskProfile]scoring.Criteria
	maxLegs     int
	logger      *logrus.Entry
}

// NewParlayBuilder creates a builder. Profile criteria from cfg replace the defaults.
func NewParlayBuilder(
	repos *repository.Repositories,
	tx Transactor,
	selector CandidateSelector,
	probability ProbabilityStore,
	cfg config.BuilderConfig,
	logger *logrus.Logger,
) *ParlayBuilder {
	profiles := DefaultProfiles()
	for name, p := range cfg.Profiles {
		profiles[models.RiskProfile(name)] = scoring.Criteria{
			MinConfidence:  models.ConfidenceScore(p.MinConfidence),
			MaxLegsPerGame: p.MaxLegsPerGame,
		}
	}

	maxLegs := cfg.MaxLegs
	if maxLegs <= 0 {
		maxLegs = defaultMaxLegs
	}

	return &ParlayBuilder{
		odds:        repos.Odds,
		parlays:     repos.Parlay,
		legs:        repos.Leg,
		tx:          tx,
		selector:    selector,
		probability: probability,
		profiles:    profiles,
		maxLegs:     maxLegs,
		logger:      logger.WithField("component", "parlay_builder"),
	}
}

// DefaultProfiles returns the built-in selection criteria per risk profile
func DefaultProfiles() map[models.RiskProfile]scoring.Criteria {
	return map[models.RiskProfile]scoring.Criteria{
		models.RiskProfileConservative: {MinConfidence: 60, MaxLegsPerGame: 1},
		models.RiskProfileBalanced:     {MinConfidence: 40, MaxLegsPerGame: 2},
		models.RiskProfileDegen:        {},
	}
}

// Build scores the latest odds of the requested games, picks the best legs for
// the risk profile and stores a generated parlay. Too few qualifying legs is
// reported as *models.InsufficientCandidatesError.
func (b *ParlayBuilder) Build(ctx context.Context, req BuildRequest) (*BuildResult, error) {
	criteria, err := b.validate(req)
	if err != nil {
		metrics.RecordParlayBuilt(string(req.RiskProfile), "rejected")
		return nil, err
	}

	snapshots, err := b.odds.GetLatestByGames(ctx, req.GameIDs)
	if err != nil {
		metrics.RecordParlayBuilt(string(req.RiskProfile), "failed")
		return nil, fmt.Errorf("load odds: %w", err)
	}

	candidates, err := b.selector.SelectWithCriteria(ctx, scoring.OutcomesFromSnapshots(snapshots), req.NumLegs, criteria)
	if err != nil {
		if models.IsInsufficientCandidates(err) {
			metrics.RecordParlayBuilt(string(req.RiskProfile), "insufficient")
			b.logger.WithError(err).WithField("risk_profile", req.RiskProfile).Info("Not enough candidates for parlay")
		} else {
			metrics.RecordParlayBuilt(string(req.RiskProfile), "failed")
		}
		return nil, err
	}

	result, err := b.persist(ctx, models.ParlayKindGenerated, req.RiskProfile, candidates)
	if err != nil {
		metrics.RecordParlayBuilt(string(req.RiskProfile), "failed")
		return nil, err
	}

	metrics.RecordParlayBuilt(string(req.RiskProfile), "built")
	return result, nil
}

// Save stores a user-assembled parlay from already scored candidates
func (b *ParlayBuilder) Save(ctx context.Context, profile models.RiskProfile, candidates []models.CandidateLeg) (*BuildResult, error) {
	if len(candidates) == 0 {
		return nil, models.ErrNoLegs
	}
	if len(candidates) > b.maxLegs {
		return nil, fmt.Errorf("%w: %d legs exceeds the maximum of %d", ErrInvalidBuildRequest, len(candidates), b.maxLegs)
	}
	if _, ok := b.profiles[profile]; !ok {
		return nil, fmt.Errorf("%w: unknown risk profile %q", ErrInvalidBuildRequest, profile)
	}
	return b.persist(ctx, models.ParlayKindSaved, profile, candidates)
}

func (b *ParlayBuilder) validate(req BuildRequest) (scoring.Criteria, error) {
	criteria, ok := b.profiles[req.RiskProfile]
	if !ok {
		return criteria, fmt.Errorf("%w: unknown risk profile %q", ErrInvalidBuildRequest, req.RiskProfile)
	}
	if req.NumLegs < 1 || req.NumLegs > b.maxLegs {
		return criteria, fmt.Errorf("%w: num_legs must be between 1 and %d, got %d", ErrInvalidBuildRequest, b.maxLegs, req.NumLegs)
	}
	if len(req.GameIDs) == 0 {
		return criteria, fmt.Errorf("%w: no games given", ErrInvalidBuildRequest)
	}
	return criteria, nil
}

func (b *ParlayBuilder) persist(ctx context.Context, kind models.ParlayKind, profile models.RiskProfile, candidates []models.CandidateLeg) (*BuildResult, error) {
	legs, prices, err := legsFromCandidates(candidates)
	if err != nil {
		return nil, err
	}

	payout, err := odds.ParlayMultiplier(prices)
	if err != nil {
		return nil, fmt.Errorf("payout multiplier: %w", err)
	}

	parlay := &models.Parlay{
		ID:          uuid.New(),
		Kind:        kind,
		NumLegs:     len(legs),
		RiskProfile: profile,
		Status:      models.LegStatusPending,
	}
	ref := models.ParlayRef{ID: parlay.ID, Kind: kind}

	var result models.ParlayProbabilityResult
	err = b.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := b.parlays.Create(txCtx, parlay); err != nil {
			return err
		}
		id := parlay.ID
		for _, leg := range legs {
			if kind == models.ParlayKindSaved {
				leg.SavedParlayID = &id
			} else {
				leg.ParlayID = &id
			}
			if err := b.legs.Create(txCtx, leg); err != nil {
				return err
			}
		}

		var err error
		result, err = b.probability.ComputeAndStore(txCtx, ref, candidates)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("store %s parlay: %w", kind, err)
	}

	parlay.ParlayHitProb = result.CalibratedProbability
	parlay.Legs = legs

	b.logger.WithFields(logrus.Fields{
		"parlay_id":    parlay.ID.String(),
		"kind":         string(kind),
		"risk_profile": string(profile),
		"num_legs":     parlay.NumLegs,
		"hit_prob":     result.CalibratedProbability.Float64(),
		"calibrated":   result.Calibrated,
	}).Info("Parlay stored")

	return &BuildResult{Parlay: parlay, Probability: result, Payout: payout}, nil
}

func legsFromCandidates(candidates []models.CandidateLeg) ([]*models.Leg, []int, error) {
	legs := make([]*models.Leg, 0, len(candidates))
	prices := make([]int, 0, len(candidates))
	for _, c := range candidates {
		american, err := odds.DecimalToAmerican(decimal.NewFromFloat(c.DecimalOdds))
		if err != nil {
			return nil, nil, fmt.Errorf("leg %s/%s/%s: %w", c.GameID, c.MarketType, c.Selection, err)
		}
		price := american
		legs = append(legs, &models.Leg{
			ID:         uuid.New(),
			GameID:     c.GameID,
			Sport:      c.Sport,
			MarketType: c.MarketType,
			Selection:  c.Selection,
			Line:       c.Line,
			Price:      &price,
			Status:     models.LegStatusPending,
		})
		prices = append(prices, american)
	}
	return legs, prices, nil
}
