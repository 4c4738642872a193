package correlation

import (
	"fmt"
	"strings"

	"github.com/yourusername/parlay-engine/internal/models"
)

// Relation describes how two legs of the same game lean relative to each other
type Relation string

const (
	// Aligned legs win in the same game script (same team, or favorite with over)
	Aligned Relation = "aligned"
	// Opposed legs win in opposite game scripts
	Opposed Relation = "opposed"
)

// Rule is one coefficient of the parameter table. An empty Sport applies to every sport.
type Rule struct {
	Sport    string            `mapstructure:"sport" json:"sport"`
	First    models.MarketType `mapstructure:"first" json:"first"`
	Second   models.MarketType `mapstructure:"second" json:"second"`
	Relation Relation          `mapstructure:"relation" json:"relation"`
	Rho      float64           `mapstructure:"rho" json:"rho"`
}

type ruleKey struct {
	sport    string
	first    models.MarketType
	second   models.MarketType
	relation Relation
}

func newRuleKey(sport string, a, b models.MarketType, rel Relation) ruleKey {
	if b < a {
		a, b = b, a
	}
	return ruleKey{sport: strings.ToLower(sport), first: a, second: b, relation: rel}
}

// Table holds correlation coefficients keyed by sport, unordered market pair and relation.
// The zero value has no rules and yields 0 for every lookup.
type Table struct {
	rules map[ruleKey]float64
}

// NewTable builds a table, rejecting coefficients outside [-1, 1]
func NewTable(rules []Rule) (Table, error) {
	t := Table{rules: make(map[ruleKey]float64, len(rules))}
	for _, r := range rules {
		if r.Rho < -1 || r.Rho > 1 {
			return Table{}, fmt.Errorf("%w: correlation %v for %s/%s outside [-1,1]", models.ErrInvariantViolation, r.Rho, r.First, r.Second)
		}
		if r.Relation != Aligned && r.Relation != Opposed {
			return Table{}, fmt.Errorf("unknown correlation relation %q", r.Relation)
		}
		t.rules[newRuleKey(r.Sport, r.First, r.Second, r.Relation)] = r.Rho
	}
	return t, nil
}

// Lookup returns the sport-specific coefficient, falling back to the all-sports rule
func (t Table) Lookup(sport string, a, b models.MarketType, rel Relation) float64 {
	if rho, ok := t.rules[newRuleKey(sport, a, b, rel)]; ok {
		return rho
	}
	return t.rules[newRuleKey("", a, b, rel)]
}

// Len returns the number of rules
func (t Table) Len() int {
	return len(t.rules)
}

// DefaultRules are heuristic coefficients. They are tunable, not fitted.
func DefaultRules() []Rule {
	return []Rule{
		// Same market, both sides: mutually exclusive or nearly so
		{First: models.MarketTypeH2H, Second: models.MarketTypeH2H, Relation: Opposed, Rho: -1},
		{First: models.MarketTypeH2H, Second: models.MarketTypeH2H, Relation: Aligned, Rho: 1},
		{First: models.MarketTypeSpread, Second: models.MarketTypeSpread, Relation: Opposed, Rho: -0.9},
		{First: models.MarketTypeSpread, Second: models.MarketTypeSpread, Relation: Aligned, Rho: 0.9},
		{First: models.MarketTypeTotal, Second: models.MarketTypeTotal, Relation: Opposed, Rho: -0.9},
		{First: models.MarketTypeTotal, Second: models.MarketTypeTotal, Relation: Aligned, Rho: 0.9},

		// Moneyline and spread on the same team move together
		{First: models.MarketTypeH2H, Second: models.MarketTypeSpread, Relation: Aligned, Rho: 0.6},
		{First: models.MarketTypeH2H, Second: models.MarketTypeSpread, Relation: Opposed, Rho: -0.6},

		// Game script: favorite covering pairs with the over, underdog with the under
		{First: models.MarketTypeSpread, Second: models.MarketTypeTotal, Relation: Aligned, Rho: 0.15},
		{First: models.MarketTypeSpread, Second: models.MarketTypeTotal, Relation: Opposed, Rho: -0.15},
		{First: models.MarketTypeH2H, Second: models.MarketTypeTotal, Relation: Aligned, Rho: 0.1},
		{First: models.MarketTypeH2H, Second: models.MarketTypeTotal, Relation: Opposed, Rho: -0.1},

		{Sport: "nfl", First: models.MarketTypeSpread, Second: models.MarketTypeTotal, Relation: Aligned, Rho: 0.2},
		{Sport: "nfl", First: models.MarketTypeSpread, Second: models.MarketTypeTotal, Relation: Opposed, Rho: -0.2},
		{Sport: "nba", First: models.MarketTypeSpread, Second: models.MarketTypeTotal, Relation: Aligned, Rho: 0.1},
		{Sport: "nba", First: models.MarketTypeSpread, Second: models.MarketTypeTotal, Relation: Opposed, Rho: -0.1},
	}
}

// DefaultTable returns the table built from DefaultRules
func DefaultTable() Table {
	t, err := NewTable(DefaultRules())
	if err != nil {
		panic(err)
	}
	return t
}
