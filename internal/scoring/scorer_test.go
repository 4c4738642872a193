package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/parlay-engine/internal/logger"
	"github.com/yourusername/parlay-engine/internal/metrics"
	"github.com/yourusername/parlay-engine/internal/models"
)

func ptr[T any](v T) *T { return &v }

func outcome(game string, sel models.Selection, price float64) MarketOutcome {
	return MarketOutcome{
		GameID:      game,
		Sport:       "nba",
		MarketType:  models.MarketTypeH2H,
		Selection:   sel,
		DecimalOdds: price,
	}
}

func staticFor(outputs map[string]ModelOutput) *StaticScorer {
	return &StaticScorer{Outputs: outputs}
}

func TestScoreOutcome(t *testing.T) {
	o := outcome("g1", models.SelectionHome, 2.0)
	model := staticFor(map[string]ModelOutput{
		o.Key(): {
			Probability: 0.55,
			Signals: Signals{
				MarketConsensus:  ptr(models.Probability(0.55)),
				StatisticalEdge:  ptr(0.10),
				SituationalEdge:  ptr(1.0),
				DataCompleteness: ptr(1.0),
			},
		},
	})
	scorer := NewScorer(model, logger.NewNopLogger(), 2, 0)

	leg, err := scorer.ScoreOutcome(context.Background(), o)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, leg.ImpliedProbability.Float64(), 1e-12)
	assert.InDelta(t, 0.05, leg.Edge, 1e-12)
	assert.Equal(t, models.MaxConfidence, leg.Confidence)
	assert.Equal(t, MaxMarketAgreement, leg.Components.MarketAgreement)
	assert.Equal(t, MaxDataQuality, leg.Components.DataQuality)
}

func TestScoreOutcomeRejectsBadInput(t *testing.T) {
	scorer := NewScorer(&StaticScorer{}, logger.NewNopLogger(), 1, 0)
	ctx := context.Background()

	_, err := scorer.ScoreOutcome(ctx, outcome("g1", models.SelectionHome, 1.0))
	assert.ErrorIs(t, err, models.ErrInvalidOdds)

	_, err = scorer.ScoreOutcome(ctx, MarketOutcome{GameID: "g1", MarketType: models.MarketTypeSpread, Selection: models.SelectionHome, DecimalOdds: 1.9})
	assert.ErrorIs(t, err, models.ErrMissingLine)

	_, err = scorer.ScoreOutcome(ctx, outcome("g1", models.SelectionOver, 1.9))
	assert.ErrorIs(t, err, models.ErrInvalidSelection)
}

func TestScoreOutcomeRejectsOutOfRangeModelProbability(t *testing.T) {
	o := outcome("g1", models.SelectionHome, 2.0)
	scorer := NewScorer(staticFor(map[string]ModelOutput{o.Key(): {Probability: 1.2}}), logger.NewNopLogger(), 1, 0)

	_, err := scorer.ScoreOutcome(context.Background(), o)
	assert.ErrorIs(t, err, models.ErrInvariantViolation)
}

func TestComputeConfidenceMissingSignalsContributeZero(t *testing.T) {
	parts, err := ComputeConfidence(0.6, Signals{})
	require.NoError(t, err)
	assert.Equal(t, models.ConfidenceScore(0), parts.Total())

	parts, err = ComputeConfidence(0.6, Signals{DataCompleteness: ptr(0.5)})
	require.NoError(t, err)
	assert.Equal(t, models.ConfidenceScore(10), parts.Total())
	assert.Equal(t, models.ConfidenceScore(0), parts.MarketAgreement)
}

func TestComputeConfidenceComponentsAreCapped(t *testing.T) {
	parts, err := ComputeConfidence(0.9, Signals{
		MarketConsensus:  ptr(models.Probability(0.2)),
		StatisticalEdge:  ptr(5.0),
		SituationalEdge:  ptr(math.NaN()),
		DataCompleteness: ptr(3.0),
	})
	require.NoError(t, err)

	assert.Equal(t, models.ConfidenceScore(0), parts.MarketAgreement)
	assert.Equal(t, MaxStatisticalEdge, parts.StatisticalEdge)
	assert.Equal(t, models.ConfidenceScore(0), parts.SituationalEdge)
	assert.Equal(t, MaxDataQuality, parts.DataQuality)
	assert.NoError(t, parts.Total().Validate())
}

func TestScoreAllSkipsFailures(t *testing.T) {
	good := outcome("g1", models.SelectionHome, 2.0)
	missing := outcome("g2", models.SelectionAway, 2.5)
	scorer := NewScorer(staticFor(map[string]ModelOutput{good.Key(): {Probability: 0.6}}), logger.NewNopLogger(), 4, 0)

	legs, err := scorer.ScoreAll(context.Background(), []MarketOutcome{good, missing})
	require.NoError(t, err)
	require.Len(t, legs, 1)
	assert.Equal(t, "g1", legs[0].GameID)
}

func TestSelectCandidatesRanksByEdge(t *testing.T) {
	outputs := map[string]ModelOutput{}
	var outcomes []MarketOutcome
	for i, p := range []models.Probability{0.52, 0.60, 0.55, 0.45} {
		o := outcome(fmt.Sprintf("g%d", i), models.SelectionHome, 2.0)
		outputs[o.Key()] = ModelOutput{Probability: p}
		outcomes = append(outcomes, o)
	}
	scorer := NewScorer(staticFor(outputs), logger.NewNopLogger(), 2, 0)

	legs, err := scorer.SelectCandidates(context.Background(), outcomes, 2)
	require.NoError(t, err)
	require.Len(t, legs, 2)
	assert.Equal(t, "g1", legs[0].GameID)
	assert.Equal(t, "g2", legs[1].GameID)
}

// Scenario E
func TestSelectCandidatesInsufficient(t *testing.T) {
	metrics.InitRegistry()
	outputs := map[string]ModelOutput{}
	var outcomes []MarketOutcome
	for i := 0; i < 3; i++ {
		o := outcome(fmt.Sprintf("g%d", i), models.SelectionHome, 2.0)
		outputs[o.Key()] = ModelOutput{Probability: 0.6}
		outcomes = append(outcomes, o)
	}
	scorer := NewScorer(staticFor(outputs), logger.NewNopLogger(), 2, 0)

	before := testutil.ToFloat64(metrics.InsufficientCandidatesTotal)
	legs, err := scorer.SelectCandidates(context.Background(), outcomes, 8)
	after := testutil.ToFloat64(metrics.InsufficientCandidatesTotal)

	assert.Nil(t, legs)
	var insufficient *models.InsufficientCandidatesError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 8, insufficient.Needed)
	assert.Equal(t, 3, insufficient.Have)
	assert.True(t, models.IsInsufficientCandidates(err))
	assert.Equal(t, 1.0, after-before)
}

func TestSelectCandidatesAppliesMinEdge(t *testing.T) {
	o := outcome("g1", models.SelectionHome, 2.0)
	scorer := NewScorer(staticFor(map[string]ModelOutput{o.Key(): {Probability: 0.49}}), logger.NewNopLogger(), 1, 0)

	_, err := scorer.SelectCandidates(context.Background(), []MarketOutcome{o}, 1)
	assert.True(t, models.IsInsufficientCandidates(err))
}

func TestSelectWithCriteriaOneSelectionPerMarket(t *testing.T) {
	home := outcome("g1", models.SelectionHome, 2.0)
	away := outcome("g1", models.SelectionAway, 2.0)
	other := outcome("g2", models.SelectionHome, 2.0)
	scorer := NewScorer(staticFor(map[string]ModelOutput{
		home.Key():  {Probability: 0.60},
		away.Key():  {Probability: 0.58},
		other.Key(): {Probability: 0.55},
	}), logger.NewNopLogger(), 2, 0)

	legs, err := scorer.SelectWithCriteria(context.Background(), []MarketOutcome{home, away, other}, 2, Criteria{})
	require.NoError(t, err)
	require.Len(t, legs, 2)
	assert.Equal(t, models.SelectionHome, legs[0].Selection)
	assert.Equal(t, "g2", legs[1].GameID)
}

func TestSelectWithCriteriaLimitsLegsPerGame(t *testing.T) {
	h2h := outcome("g1", models.SelectionHome, 2.0)
	total := MarketOutcome{GameID: "g1", Sport: "nba", MarketType: models.MarketTypeTotal, Selection: models.SelectionOver, Line: ptr(220.5), DecimalOdds: 2.0}
	scorer := NewScorer(staticFor(map[string]ModelOutput{
		h2h.Key():   {Probability: 0.60},
		total.Key(): {Probability: 0.58},
	}), logger.NewNopLogger(), 2, 0)

	legs, err := scorer.SelectWithCriteria(context.Background(), []MarketOutcome{h2h, total}, 2, Criteria{})
	require.NoError(t, err)
	assert.Len(t, legs, 2)

	_, err = scorer.SelectWithCriteria(context.Background(), []MarketOutcome{h2h, total}, 2, Criteria{MaxLegsPerGame: 1})
	var insufficient *models.InsufficientCandidatesError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 1, insufficient.Have)
}

func TestSelectWithCriteriaMinConfidence(t *testing.T) {
	o := outcome("g1", models.SelectionHome, 2.0)
	// No signals: confidence is zero
	scorer := NewScorer(staticFor(map[string]ModelOutput{o.Key(): {Probability: 0.6}}), logger.NewNopLogger(), 1, 0)

	_, err := scorer.SelectWithCriteria(context.Background(), []MarketOutcome{o}, 1, Criteria{MinConfidence: 40})
	assert.True(t, models.IsInsufficientCandidates(err))

	legs, err := scorer.SelectWithCriteria(context.Background(), []MarketOutcome{o}, 1, Criteria{})
	require.NoError(t, err)
	assert.Len(t, legs, 1)
}

func TestRegistryRoutesBySport(t *testing.T) {
	nba := outcome("g1", models.SelectionHome, 2.0)
	nfl := nba
	nfl.Sport = "NFL"

	registry := NewRegistry()
	registry.Register("nba", staticFor(map[string]ModelOutput{nba.Key(): {Probability: 0.6}}))

	out, err := registry.Score(context.Background(), nba)
	require.NoError(t, err)
	assert.Equal(t, models.Probability(0.6), out.Probability)

	_, err = registry.Score(context.Background(), nfl)
	assert.Error(t, err)

	registry.SetFallback(staticFor(map[string]ModelOutput{nfl.Key(): {Probability: 0.4}}))
	out, err = registry.Score(context.Background(), nfl)
	require.NoError(t, err)
	assert.Equal(t, models.Probability(0.4), out.Probability)
}

func TestOutcomesFromSnapshots(t *testing.T) {
	line := 220.5
	snapshots := []*models.OddsSnapshot{
		{GameID: "g1", Sport: "nba", MarketType: models.MarketTypeTotal, Outcome: models.SelectionOver, Line: &line, DecimalPrice: 1.90, Book: "a"},
		{GameID: "g1", Sport: "nba", MarketType: models.MarketTypeTotal, Outcome: models.SelectionOver, Line: &line, DecimalPrice: 2.00, Book: "b"},
		{GameID: "g1", Sport: "nba", MarketType: models.MarketTypeTotal, Outcome: models.SelectionOver, Line: &line, DecimalPrice: 1.80, Book: "c"},
		{GameID: "g1", Sport: "nba", MarketType: models.MarketTypeH2H, Outcome: models.SelectionHome, DecimalPrice: 1.5, Book: "a"},
		{GameID: "g1", Sport: "nba", MarketType: models.MarketTypeH2H, Outcome: models.SelectionAway, DecimalPrice: 1.0, Book: "a"},
	}

	outcomes := OutcomesFromSnapshots(snapshots)
	require.Len(t, outcomes, 2)

	byMarket := map[models.MarketType]MarketOutcome{}
	for _, o := range outcomes {
		byMarket[o.MarketType] = o
	}

	total := byMarket[models.MarketTypeTotal]
	assert.Equal(t, 2.00, total.DecimalOdds)
	require.NotNil(t, total.Consensus)
	assert.InDelta(t, (1/1.90+1/1.80)/2, total.Consensus.Float64(), 1e-12)

	assert.Nil(t, byMarket[models.MarketTypeH2H].Consensus)
}

func TestConsensusScorerFindsBestPriceEdge(t *testing.T) {
	snapshots := []*models.OddsSnapshot{
		{GameID: "g1", Sport: "nba", MarketType: models.MarketTypeH2H, Outcome: models.SelectionHome, DecimalPrice: 2.2, Book: "a"},
		{GameID: "g1", Sport: "nba", MarketType: models.MarketTypeH2H, Outcome: models.SelectionHome, DecimalPrice: 2.0, Book: "b"},
		{GameID: "g1", Sport: "nba", MarketType: models.MarketTypeH2H, Outcome: models.SelectionAway, DecimalPrice: 1.8, Book: "a"},
	}
	outcomes := OutcomesFromSnapshots(snapshots)
	require.Len(t, outcomes, 2)

	s := NewScorer(ConsensusScorer{}, logger.NewNopLogger(), 2, 0)
	candidates, err := s.ScoreAll(context.Background(), outcomes)
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	c := candidates[0]
	assert.Equal(t, models.SelectionHome, c.Selection)
	assert.InDelta(t, 0.5, c.ModelProbability.Float64(), 1e-9)
	assert.Greater(t, c.Edge, 0.0)
}
