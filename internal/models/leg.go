package models

import (
	"time"

	"github.com/google/uuid"
)

// LegStatus represents the lifecycle state of a leg. Parlays reuse the same set.
type LegStatus string

const (
	LegStatusPending LegStatus = "PENDING"
	LegStatusLive    LegStatus = "LIVE"
	LegStatusWon     LegStatus = "WON"
	LegStatusLost    LegStatus = "LOST"
	LegStatusPush    LegStatus = "PUSH"
	LegStatusVoid    LegStatus = "VOID"
)

// IsTerminal reports whether the status is a settled outcome
func (s LegStatus) IsTerminal() bool {
	switch s {
	case LegStatusWon, LegStatusLost, LegStatusPush, LegStatusVoid:
		return true
	default:
		return false
	}
}

// Valid reports whether s is one of the known statuses
func (s LegStatus) Valid() bool {
	return s == LegStatusPending || s == LegStatusLive || s.IsTerminal()
}

// Leg represents one selection within a generated or saved parlay
type Leg struct {
	ID                 uuid.UUID  `db:"id" json:"id" validate:"required"`
	ParlayID           *uuid.UUID `db:"parlay_id" json:"parlay_id,omitempty" validate:"required_without=SavedParlayID,excluded_with=SavedParlayID"`
	SavedParlayID      *uuid.UUID `db:"saved_parlay_id" json:"saved_parlay_id,omitempty" validate:"required_without=ParlayID,excluded_with=ParlayID"`
	GameID             string     `db:"game_id" json:"game_id" validate:"required"`
	Sport              string     `db:"sport" json:"sport"`
	MarketType         MarketType `db:"market_type" json:"market_type" validate:"required,oneof=h2h spread total"`
	Selection          Selection  `db:"selection" json:"selection" validate:"required,oneof=home away draw over under"`
	Line               *float64   `db:"line" json:"line,omitempty"`
	Price              *int       `db:"price" json:"price,omitempty"` // American odds
	Status             LegStatus  `db:"status" json:"status"`
	ResultReason       string     `db:"result_reason" json:"result_reason,omitempty"`
	SettledAt          *time.Time `db:"settled_at" json:"settled_at,omitempty"`
	SettlementLockedAt *time.Time `db:"settlement_locked_at" json:"settlement_locked_at,omitempty"`
	CorrectionCount    int        `db:"correction_count" json:"correction_count"`
	ClaimedAt          *time.Time `db:"claimed_at" json:"-"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// OwnerID returns the parent parlay ID and whether it is a saved parlay
func (l *Leg) OwnerID() (uuid.UUID, ParlayKind) {
	if l.SavedParlayID != nil {
		return *l.SavedParlayID, ParlayKindSaved
	}
	if l.ParlayID != nil {
		return *l.ParlayID, ParlayKindGenerated
	}
	return uuid.Nil, ""
}

// GetLine returns the line or 0 if nil
func (l *Leg) GetLine() float64 {
	if l.Line == nil {
		return 0
	}
	return *l.Line
}

// IsSettled checks if the leg has reached a terminal status
func (l *Leg) IsSettled() bool {
	return l.Status.IsTerminal() && l.SettledAt != nil
}

// InReevaluationWindow reports whether a correction may still be applied at now
func (l *Leg) InReevaluationWindow(now time.Time, window time.Duration) bool {
	if l.SettlementLockedAt == nil || l.CorrectionCount > 0 {
		return false
	}
	return now.Before(l.SettlementLockedAt.Add(window))
}

// LegSettlementResult is the outbound view of a graded leg
type LegSettlementResult struct {
	LegID        uuid.UUID  `json:"leg_id"`
	Status       LegStatus  `json:"status"`
	ResultReason string     `json:"result_reason"`
	SettledAt    *time.Time `json:"settled_at"`
}

// SettlementResult builds the outbound view of the leg
func (l *Leg) SettlementResult() LegSettlementResult {
	return LegSettlementResult{
		LegID:        l.ID,
		Status:       l.Status,
		ResultReason: l.ResultReason,
		SettledAt:    l.SettledAt,
	}
}
