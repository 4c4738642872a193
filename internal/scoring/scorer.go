package scoring

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/parlay-engine/internal/metrics"
	"github.com/yourusername/parlay-engine/internal/models"
	"github.com/yourusername/parlay-engine/internal/odds"
)

const defaultMaxConcurrency = 8

// Scorer builds candidate legs from market outcomes using a ModelScorer
type Scorer struct {
	model          ModelScorer
	logger         *logrus.Logger
	maxConcurrency int
	minEdge        float64
}

// NewScorer creates a scorer. maxConcurrency bounds parallel model calls in ScoreAll.
func NewScorer(model ModelScorer, logger *logrus.Logger, maxConcurrency int, minEdge float64) *Scorer {
	if maxConcurrency <= 0 {
		maxConcurrency = defaultMaxConcurrency
	}
	return &Scorer{
		model:          model,
		logger:         logger,
		maxConcurrency: maxConcurrency,
		minEdge:        minEdge,
	}
}

// ScoreOutcome scores one market outcome
func (s *Scorer) ScoreOutcome(ctx context.Context, outcome MarketOutcome) (models.CandidateLeg, error) {
	if err := outcome.Selection.ValidFor(outcome.MarketType); err != nil {
		return models.CandidateLeg{}, err
	}
	if outcome.MarketType.NeedsLine() && outcome.Line == nil {
		return models.CandidateLeg{}, fmt.Errorf("%s %s: %w", outcome.GameID, outcome.MarketType, models.ErrMissingLine)
	}

	implied, err := odds.ImpliedProbability(outcome.DecimalOdds)
	if err != nil {
		return models.CandidateLeg{}, err
	}

	out, err := s.model.Score(ctx, outcome)
	if err != nil {
		return models.CandidateLeg{}, fmt.Errorf("model score %s: %w", outcome.Key(), err)
	}
	if err := out.Probability.Validate(); err != nil {
		return models.CandidateLeg{}, fmt.Errorf("model score %s: %w", outcome.Key(), err)
	}

	signals := out.Signals
	if signals.MarketConsensus == nil {
		signals.MarketConsensus = outcome.Consensus
	}
	parts, err := ComputeConfidence(out.Probability, signals)
	if err != nil {
		return models.CandidateLeg{}, fmt.Errorf("confidence for %s: %w", outcome.Key(), err)
	}

	return models.CandidateLeg{
		GameID:             outcome.GameID,
		Sport:              outcome.Sport,
		MarketType:         outcome.MarketType,
		Selection:          outcome.Selection,
		Line:               outcome.Line,
		DecimalOdds:        outcome.DecimalOdds,
		ModelProbability:   out.Probability,
		ImpliedProbability: implied,
		Edge:               out.Probability.Float64() - implied.Float64(),
		Confidence:         parts.Total(),
		Components:         parts,
	}, nil
}

// ScoreAll scores outcomes concurrently and returns the ones that scored.
// Failures are logged and skipped. Output order follows input order.
func (s *Scorer) ScoreAll(ctx context.Context, outcomes []MarketOutcome) ([]models.CandidateLeg, error) {
	results := make([]*models.CandidateLeg, len(outcomes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrency)

	for i, outcome := range outcomes {
		i, outcome := i, outcome
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			leg, err := s.ScoreOutcome(gctx, outcome)
			if err != nil {
				metrics.RecordCandidateScored("failed")
				s.logger.WithFields(logrus.Fields{
					"game_id":     outcome.GameID,
					"market_type": outcome.MarketType,
					"selection":   outcome.Selection,
				}).WithError(err).Warn("Skipping unscoreable outcome")
				return nil
			}
			metrics.RecordCandidateScored("scored")
			results[i] = &leg
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	scored := make([]models.CandidateLeg, 0, len(outcomes))
	for _, r := range results {
		if r != nil {
			scored = append(scored, *r)
		}
	}
	return scored, nil
}

// Criteria narrows candidate selection beyond the scorer's minimum edge
type Criteria struct {
	MinConfidence  models.ConfidenceScore
	MaxLegsPerGame int // 0 means no limit
}

// SelectCandidates returns the best `needed` candidates ranked by edge, then confidence.
// When fewer qualify it returns *models.InsufficientCandidatesError and records the
// occurrence once.
func (s *Scorer) SelectCandidates(ctx context.Context, outcomes []MarketOutcome, needed int) ([]models.CandidateLeg, error) {
	return s.SelectWithCriteria(ctx, outcomes, needed, Criteria{})
}

// SelectWithCriteria is SelectCandidates with extra filters. At most one
// selection is taken from any game market.
func (s *Scorer) SelectWithCriteria(ctx context.Context, outcomes []MarketOutcome, needed int, criteria Criteria) ([]models.CandidateLeg, error) {
	if needed <= 0 {
		return nil, fmt.Errorf("needed must be positive, got %d", needed)
	}

	scored, err := s.ScoreAll(ctx, outcomes)
	if err != nil {
		return nil, err
	}

	eligible := make([]models.CandidateLeg, 0, len(scored))
	for _, c := range scored {
		if c.Edge >= s.minEdge && c.Confidence >= criteria.MinConfidence {
			eligible = append(eligible, c)
		}
	}
	RankCandidates(eligible)

	picked := make([]models.CandidateLeg, 0, needed)
	perGame := make(map[string]int)
	markets := make(map[string]bool)
	for _, c := range eligible {
		market := c.GameID + "|" + string(c.MarketType)
		if markets[market] {
			continue
		}
		if criteria.MaxLegsPerGame > 0 && perGame[c.GameID] >= criteria.MaxLegsPerGame {
			continue
		}
		picked = append(picked, c)
		markets[market] = true
		perGame[c.GameID]++
		if len(picked) == needed {
			return picked, nil
		}
	}

	metrics.RecordInsufficientCandidates()
	return nil, &models.InsufficientCandidatesError{Needed: needed, Have: len(picked)}
}

// RankCandidates sorts by edge descending, then confidence descending, then key for stability
func RankCandidates(c []models.CandidateLeg) {
	sort.SliceStable(c, func(i, j int) bool {
		if c[i].Edge != c[j].Edge {
			return c[i].Edge > c[j].Edge
		}
		if c[i].Confidence != c[j].Confidence {
			return c[i].Confidence > c[j].Confidence
		}
		return candidateKey(c[i]) < candidateKey(c[j])
	})
}

func candidateKey(c models.CandidateLeg) string {
	return MarketOutcome{GameID: c.GameID, MarketType: c.MarketType, Selection: c.Selection, Line: c.Line}.Key()
}
