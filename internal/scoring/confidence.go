package scoring

import (
	"math"

	"github.com/yourusername/parlay-engine/internal/models"
)

// Component caps. They sum to models.MaxConfidence.
const (
	MaxMarketAgreement models.ConfidenceScore = 30
	MaxStatisticalEdge models.ConfidenceScore = 30
	MaxSituationalEdge models.ConfidenceScore = 20
	MaxDataQuality     models.ConfidenceScore = 20

	// disagreementTolerance is the model/consensus gap at which agreement reaches zero
	disagreementTolerance = 0.15
	// fullStatisticalEdge is the edge in probability points that earns the full component
	fullStatisticalEdge = 0.10
)

// ComputeConfidence builds the capped confidence components. Missing signals
// contribute zero rather than a neutral midpoint.
func ComputeConfidence(modelProb models.Probability, signals Signals) (models.ConfidenceParts, error) {
	var parts models.ConfidenceParts

	if signals.MarketConsensus != nil {
		gap := math.Abs(modelProb.Float64() - signals.MarketConsensus.Float64())
		parts.MarketAgreement = scaled(MaxMarketAgreement, 1-gap/disagreementTolerance)
	}
	if signals.StatisticalEdge != nil {
		parts.StatisticalEdge = scaled(MaxStatisticalEdge, *signals.StatisticalEdge/fullStatisticalEdge)
	}
	if signals.SituationalEdge != nil {
		parts.SituationalEdge = scaled(MaxSituationalEdge, *signals.SituationalEdge)
	}
	if signals.DataCompleteness != nil {
		parts.DataQuality = scaled(MaxDataQuality, *signals.DataCompleteness)
	}

	if err := parts.Total().Validate(); err != nil {
		return parts, err
	}
	return parts, nil
}

// scaled maps a 0..1 fraction onto 0..limit. NaN yields 0.
func scaled(limit models.ConfidenceScore, fraction float64) models.ConfidenceScore {
	if math.IsNaN(fraction) || fraction <= 0 {
		return 0
	}
	if fraction >= 1 {
		return limit
	}
	return models.ConfidenceScore(fraction) * limit
}
