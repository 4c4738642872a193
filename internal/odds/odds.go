// Package odds converts between American and decimal prices and derives implied probabilities.
package odds

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/yourusername/parlay-engine/internal/models"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// AmericanToDecimal converts American odds to a decimal price.
// Positive odds map to 1 + american/100, negative odds to 1 + 100/|american|.
func AmericanToDecimal(american int) (decimal.Decimal, error) {
	if american > -100 && american < 100 {
		return decimal.Zero, fmt.Errorf("%w: american odds %d", models.ErrInvalidOdds, american)
	}
	a := decimal.NewFromInt(int64(american))
	if american > 0 {
		return one.Add(a.Div(hundred)), nil
	}
	return one.Add(hundred.Div(a.Abs())), nil
}

// DecimalToAmerican converts a decimal price back to American odds, rounded to the nearest integer
func DecimalToAmerican(price decimal.Decimal) (int, error) {
	if price.LessThanOrEqual(one) {
		return 0, fmt.Errorf("%w: decimal price %s", models.ErrInvalidOdds, price)
	}
	profit := price.Sub(one)
	if price.GreaterThanOrEqual(decimal.NewFromInt(2)) {
		return int(profit.Mul(hundred).Round(0).IntPart()), nil
	}
	return int(hundred.Div(profit).Neg().Round(0).IntPart()), nil
}

// ImpliedProbability returns 1/decimalOdds. Prices at or below 1 and
// non-finite prices are rejected.
func ImpliedProbability(decimalOdds float64) (models.Probability, error) {
	if math.IsNaN(decimalOdds) || math.IsInf(decimalOdds, 0) || decimalOdds <= 1 {
		return 0, fmt.Errorf("%w: decimal price %v must exceed 1", models.ErrInvalidOdds, decimalOdds)
	}
	return models.Probability(1.0 / decimalOdds), nil
}

// ImpliedFromAmerican converts American odds straight to an implied probability
func ImpliedFromAmerican(american int) (models.Probability, error) {
	price, err := AmericanToDecimal(american)
	if err != nil {
		return 0, err
	}
	return ImpliedProbability(price.InexactFloat64())
}

// ParlayMultiplier multiplies the decimal prices of every leg
func ParlayMultiplier(prices []int) (decimal.Decimal, error) {
	if len(prices) == 0 {
		return decimal.Zero, models.ErrNoLegs
	}
	total := one
	for _, p := range prices {
		price, err := AmericanToDecimal(p)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Mul(price)
	}
	return total, nil
}
