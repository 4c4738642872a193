package models

import (
	"time"

	"github.com/google/uuid"
)

// ParlayKind distinguishes generated parlays from user-saved ones. They live in
// separate tables but share the same lifecycle.
type ParlayKind string

const (
	ParlayKindGenerated ParlayKind = "generated"
	ParlayKindSaved     ParlayKind = "saved"
)

// RiskProfile represents how aggressive a parlay build was
type RiskProfile string

const (
	RiskProfileConservative RiskProfile = "conservative"
	RiskProfileBalanced     RiskProfile = "balanced"
	RiskProfileDegen        RiskProfile = "degen"
)

// Parlay represents an ordered set of legs that must all win (or push)
type Parlay struct {
	ID            uuid.UUID   `db:"id" json:"id" validate:"required"`
	Kind          ParlayKind  `db:"-" json:"kind"`
	NumLegs       int         `db:"num_legs" json:"num_legs" validate:"gte=1"`
	RiskProfile   RiskProfile `db:"risk_profile" json:"risk_profile" validate:"required,oneof=conservative balanced degen"`
	ParlayHitProb Probability `db:"parlay_hit_prob" json:"parlay_hit_prob" validate:"gte=0,lte=1"`
	Status        LegStatus   `db:"status" json:"status"`
	CreatedAt     time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at" json:"updated_at"`
	Legs          []*Leg      `db:"-" json:"legs,omitempty"`
}

// LegStatuses returns the statuses of the loaded legs
func (p *Parlay) LegStatuses() []LegStatus {
	statuses := make([]LegStatus, 0, len(p.Legs))
	for _, leg := range p.Legs {
		statuses = append(statuses, leg.Status)
	}
	return statuses
}

// ParlayRef identifies a parlay across both tables
type ParlayRef struct {
	ID   uuid.UUID
	Kind ParlayKind
}

// ParlayProbabilityResult is the outbound result of a probability computation
type ParlayProbabilityResult struct {
	RawProbability        Probability `json:"raw_probability"`
	CalibratedProbability Probability `json:"calibrated_probability"`
	Calibrated            bool        `json:"calibrated"`
}
