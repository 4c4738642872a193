// Package correlation estimates how legs from the same game move together.
// Every function is deterministic and free of I/O.
package correlation

import (
	"math"

	"github.com/yourusername/parlay-engine/internal/models"
)

// Model computes pairwise correlations and the group adjustment factor
type Model struct {
	Params Table
}

// NewModel creates a model over the given parameter table
func NewModel(params Table) *Model {
	return &Model{Params: params}
}

// Pair returns the correlation coefficient of two legs. Legs from different
// games are independent and return 0.
func (m *Model) Pair(a, b models.CandidateLeg) float64 {
	if a.GameID != b.GameID {
		return 0
	}
	rel, ok := relation(a, b)
	if !ok {
		return 0
	}
	sport := a.Sport
	if sport == "" {
		sport = b.Sport
	}
	return m.Params.Lookup(sport, a.MarketType, b.MarketType, rel)
}

// Adjustment returns the multiplicative factor applied to the naive product of a
// same-game group. Groups of fewer than two legs return exactly 1.
//
// For two Bernoulli legs with correlation rho the exact joint probability is
// pa*pb + rho*sqrt(pa(1-pa)pb(1-pb)), which is the naive product times
// 1 + rho*sqrt((1-pa)(1-pb)/(pa*pb)). Larger groups multiply the pair factors.
func (m *Model) Adjustment(group []models.CandidateLeg) float64 {
	if len(group) < 2 {
		return 1
	}

	factor := 1.0
	for i := 0; i < len(group); i++ {
		for j := i + 1; j < len(group); j++ {
			rho := m.Pair(group[i], group[j])
			if rho == 0 {
				continue
			}
			factor *= pairFactor(group[i].ModelProbability.Float64(), group[j].ModelProbability.Float64(), rho)
		}
	}

	if math.IsNaN(factor) || factor < 0 {
		return 0
	}
	return factor
}

func pairFactor(pa, pb, rho float64) float64 {
	if pa <= 0 || pb <= 0 {
		return 1
	}
	f := 1 + rho*math.Sqrt((1-pa)*(1-pb)/(pa*pb))
	if f < 0 {
		return 0
	}
	return f
}

// relation classifies two legs of one game. Draw selections have no direction.
func relation(a, b models.CandidateLeg) (Relation, bool) {
	sa, oka := script(a)
	sb, okb := script(b)
	if !oka || !okb {
		return "", false
	}
	if sa.kind != sb.kind {
		// team-side leg vs total leg: favorite pairs with over, underdog with under
		team, total := sa, sb
		if sa.kind == totalScript {
			team, total = sb, sa
		}
		if team.favorite == (total.side == models.SelectionOver) {
			return Aligned, true
		}
		return Opposed, true
	}
	if sa.side == sb.side {
		return Aligned, true
	}
	return Opposed, true
}

type scriptKind int

const (
	teamScript scriptKind = iota
	totalScript
)

type legScript struct {
	kind     scriptKind
	side     models.Selection
	favorite bool
}

func script(l models.CandidateLeg) (legScript, bool) {
	switch l.Selection {
	case models.SelectionOver, models.SelectionUnder:
		return legScript{kind: totalScript, side: l.Selection}, true
	case models.SelectionHome, models.SelectionAway:
		s := legScript{kind: teamScript, side: l.Selection}
		if l.MarketType == models.MarketTypeSpread && l.Line != nil && *l.Line != 0 {
			s.favorite = *l.Line < 0
		} else {
			s.favorite = l.ImpliedProbability.Float64() > 0.5
		}
		return s, true
	default:
		return legScript{}, false
	}
}
