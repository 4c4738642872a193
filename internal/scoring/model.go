// Package scoring turns priced market outcomes into candidate legs with a model
// probability, market-implied probability, edge and bounded confidence score.
package scoring

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/yourusername/parlay-engine/internal/models"
)

// MarketOutcome is one priced outcome of a game market
type MarketOutcome struct {
	GameID      string
	Sport       string
	MarketType  models.MarketType
	Selection   models.Selection
	Line        *float64
	DecimalOdds float64
	// Consensus is the mean implied probability quoted by other books, if any
	Consensus *models.Probability
	Features  map[string]float64
}

// Key identifies the outcome independently of its price
func (o MarketOutcome) Key() string {
	var b strings.Builder
	b.WriteString(o.GameID)
	b.WriteByte('|')
	b.WriteString(string(o.MarketType))
	b.WriteByte('|')
	b.WriteString(string(o.Selection))
	if o.Line != nil {
		b.WriteByte('|')
		b.WriteString(strconv.FormatFloat(*o.Line, 'f', -1, 64))
	}
	return b.String()
}

// Signals are the optional supporting inputs behind a model probability.
// A nil signal means the data was unavailable.
type Signals struct {
	MarketConsensus  *models.Probability
	StatisticalEdge  *float64 // probability points over the model's baseline
	SituationalEdge  *float64 // rest, travel, injuries; 0..1 where 1 is strongly favorable
	DataCompleteness *float64 // share of expected features present, 0..1
}

// ModelOutput is what a sport model returns for one outcome
type ModelOutput struct {
	Probability models.Probability
	Signals     Signals
}

// ModelScorer is a pluggable sport-specific probability model
type ModelScorer interface {
	Score(ctx context.Context, outcome MarketOutcome) (ModelOutput, error)
}

// Registry routes outcomes to the scorer registered for their sport
type Registry struct {
	scorers  map[string]ModelScorer
	fallback ModelScorer
}

// NewRegistry creates an empty scorer registry
func NewRegistry() *Registry {
	return &Registry{scorers: make(map[string]ModelScorer)}
}

// Register sets the scorer used for a sport
func (r *Registry) Register(sport string, scorer ModelScorer) {
	r.scorers[strings.ToLower(sport)] = scorer
}

// SetFallback sets the scorer used for sports without a dedicated model
func (r *Registry) SetFallback(scorer ModelScorer) {
	r.fallback = scorer
}

// Score implements ModelScorer
func (r *Registry) Score(ctx context.Context, outcome MarketOutcome) (ModelOutput, error) {
	scorer, ok := r.scorers[strings.ToLower(outcome.Sport)]
	if !ok {
		scorer = r.fallback
	}
	if scorer == nil {
		return ModelOutput{}, fmt.Errorf("no model registered for sport %q", outcome.Sport)
	}
	return scorer.Score(ctx, outcome)
}

// StaticScorer serves fixed outputs keyed by MarketOutcome.Key
type StaticScorer struct {
	Outputs map[string]ModelOutput
}

// Score implements ModelScorer
func (s *StaticScorer) Score(_ context.Context, outcome MarketOutcome) (ModelOutput, error) {
	out, ok := s.Outputs[outcome.Key()]
	if !ok {
		return ModelOutput{}, fmt.Errorf("no model output for %s: %w", outcome.Key(), models.ErrNotFound)
	}
	return out, nil
}

// ConsensusScorer uses the other books' mean implied probability as the model
// probability. The edge it finds is the gap between the best price and the
// rest of the market. Outcomes quoted by a single book cannot be scored.
type ConsensusScorer struct{}

// Score implements ModelScorer
func (ConsensusScorer) Score(_ context.Context, outcome MarketOutcome) (ModelOutput, error) {
	if outcome.Consensus == nil {
		return ModelOutput{}, fmt.Errorf("no consensus for %s: %w", outcome.Key(), models.ErrNotFound)
	}
	complete := 1.0
	return ModelOutput{
		Probability: *outcome.Consensus,
		Signals: Signals{
			MarketConsensus:  outcome.Consensus,
			DataCompleteness: &complete,
		},
	}, nil
}
