package correlation

import (
	"fmt"

	"github.com/yourusername/parlay-engine/internal/config"
	"github.com/yourusername/parlay-engine/internal/models"
)

// TableFromConfig builds the parameter table from configuration overrides.
// Configured rules replace the defaults with the same key; others are kept.
func TableFromConfig(cfg config.CorrelationConfig) (Table, error) {
	rules := DefaultRules()
	for _, rc := range cfg.Rules {
		first, err := models.ParseMarketType(rc.First)
		if err != nil {
			return Table{}, fmt.Errorf("correlation rule: %w", err)
		}
		second, err := models.ParseMarketType(rc.Second)
		if err != nil {
			return Table{}, fmt.Errorf("correlation rule: %w", err)
		}
		rules = append(rules, Rule{
			Sport:    rc.Sport,
			First:    first,
			Second:   second,
			Relation: Relation(rc.Relation),
			Rho:      rc.Rho,
		})
	}
	return NewTable(rules)
}
