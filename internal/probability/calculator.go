// Package probability combines candidate legs into a correlation-aware parlay
// hit probability and calibrates it against history.
package probability

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/yourusername/parlay-engine/internal/correlation"
	"github.com/yourusername/parlay-engine/internal/models"
	"github.com/yourusername/parlay-engine/internal/odds"
)

// Calculator combines leg probabilities. It holds no mutable state.
type Calculator struct {
	correlation *correlation.Model
}

// NewCalculator creates a calculator using the given correlation model
func NewCalculator(model *correlation.Model) *Calculator {
	return &Calculator{correlation: model}
}

// Combine returns the raw parlay probability. Legs are grouped by game; each
// group's naive product is scaled by the correlation adjustment, and groups
// are multiplied as independent events. Every step is clamped to [0,1].
func (c *Calculator) Combine(legs []models.CandidateLeg) (models.Probability, error) {
	if len(legs) == 0 {
		return 0, models.ErrNoLegs
	}
	for _, leg := range legs {
		if err := leg.ModelProbability.Validate(); err != nil {
			return 0, fmt.Errorf("leg %s %s %s: %w", leg.GameID, leg.MarketType, leg.Selection, err)
		}
	}

	total := models.Probability(1)
	for _, group := range groupByGame(legs) {
		total = (total * c.groupJoint(group)).Clamp()
	}
	return total, nil
}

func (c *Calculator) groupJoint(group []models.CandidateLeg) models.Probability {
	if len(group) == 1 {
		return group[0].ModelProbability
	}

	naive := models.Probability(1)
	upper := 1.0
	for _, leg := range group {
		naive = (naive * leg.ModelProbability).Clamp()
		upper = math.Min(upper, leg.ModelProbability.Float64())
	}

	joint := models.Probability(naive.Float64() * c.correlation.Adjustment(group)).Clamp()
	// a joint event can never be likelier than its least likely leg
	if joint.Float64() > upper {
		joint = models.Probability(upper)
	}
	return joint
}

// groupByGame partitions legs by game ID in first-seen order
func groupByGame(legs []models.CandidateLeg) [][]models.CandidateLeg {
	index := make(map[string]int)
	var groups [][]models.CandidateLeg
	for _, leg := range legs {
		i, ok := index[leg.GameID]
		if !ok {
			i = len(groups)
			index[leg.GameID] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], leg)
	}
	return groups
}

// PayoutMultiplier returns the parlay price as the product of the legs' decimal odds
func PayoutMultiplier(prices []int) (decimal.Decimal, error) {
	return odds.ParlayMultiplier(prices)
}
