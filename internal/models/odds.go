package models

import (
	"time"
)

// OddsSnapshot represents one normalized market price supplied by the ingestion collaborator
type OddsSnapshot struct {
	GameID       string     `db:"game_id" json:"game_id" validate:"required"`
	Sport        string     `db:"sport" json:"sport"`
	MarketType   MarketType `db:"market_type" json:"market_type" validate:"required,oneof=h2h spread total"`
	Outcome      Selection  `db:"outcome" json:"outcome" validate:"required,oneof=home away draw over under"`
	Line         *float64   `db:"line" json:"line,omitempty"`
	DecimalPrice float64    `db:"decimal_price" json:"decimal_price" validate:"required,gt=1"`
	Book         string     `db:"book" json:"book"`
	CapturedAt   time.Time  `db:"captured_at" json:"captured_at"`
}

// GetImpliedProbability returns the implied probability of the price
func (o *OddsSnapshot) GetImpliedProbability() Probability {
	if o.DecimalPrice <= 1 {
		return 0
	}
	return Probability(1.0 / o.DecimalPrice)
}

// CandidateLeg is a scored market outcome. It is computed, never persisted on its own.
type CandidateLeg struct {
	GameID             string          `json:"game_id"`
	Sport              string          `json:"sport"`
	MarketType         MarketType      `json:"market_type"`
	Selection          Selection       `json:"selection"`
	Line               *float64        `json:"line,omitempty"`
	DecimalOdds        float64         `json:"decimal_odds"`
	ModelProbability   Probability     `json:"model_probability"`
	ImpliedProbability Probability     `json:"implied_probability"`
	Edge               float64         `json:"edge"`
	Confidence         ConfidenceScore `json:"confidence_score"`
	Components         ConfidenceParts `json:"confidence_components"`
}

// ConfidenceParts holds the four capped confidence components
type ConfidenceParts struct {
	MarketAgreement ConfidenceScore `json:"market_agreement"`
	StatisticalEdge ConfidenceScore `json:"statistical_edge"`
	SituationalEdge ConfidenceScore `json:"situational_edge"`
	DataQuality     ConfidenceScore `json:"data_quality"`
}

// Total returns the sum of the components
func (c ConfidenceParts) Total() ConfidenceScore {
	return c.MarketAgreement + c.StatisticalEdge + c.SituationalEdge + c.DataQuality
}
