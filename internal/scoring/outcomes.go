package scoring

import (
	"sort"

	"github.com/yourusername/parlay-engine/internal/models"
)

// OutcomesFromSnapshots collapses per-book snapshots into one outcome per
// game, market, selection and line. The best price is offered; the other
// books' mean implied probability becomes the outcome's consensus.
func OutcomesFromSnapshots(snapshots []*models.OddsSnapshot) []MarketOutcome {
	type group struct {
		best   *models.OddsSnapshot
		quotes []*models.OddsSnapshot
	}

	groups := make(map[string]*group)
	var order []string
	for _, s := range snapshots {
		if s == nil || s.DecimalPrice <= 1 {
			continue
		}
		key := MarketOutcome{GameID: s.GameID, MarketType: s.MarketType, Selection: s.Outcome, Line: s.Line}.Key()
		g, ok := groups[key]
		if !ok {
			g = &group{}
			groups[key] = g
			order = append(order, key)
		}
		g.quotes = append(g.quotes, s)
		if g.best == nil || s.DecimalPrice > g.best.DecimalPrice {
			g.best = s
		}
	}
	sort.Strings(order)

	outcomes := make([]MarketOutcome, 0, len(order))
	for _, key := range order {
		g := groups[key]
		outcome := MarketOutcome{
			GameID:      g.best.GameID,
			Sport:       g.best.Sport,
			MarketType:  g.best.MarketType,
			Selection:   g.best.Outcome,
			Line:        g.best.Line,
			DecimalOdds: g.best.DecimalPrice,
		}

		var sum float64
		var n int
		for _, q := range g.quotes {
			if q == g.best {
				continue
			}
			sum += q.GetImpliedProbability().Float64()
			n++
		}
		if n > 0 {
			consensus := models.Probability(sum / float64(n))
			outcome.Consensus = &consensus
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}
