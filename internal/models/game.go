package models

import (
	"time"
)

// GameStatus represents the provider status of a game
type GameStatus string

const (
	GameStatusScheduled  GameStatus = "scheduled"
	GameStatusInProgress GameStatus = "in_progress"
	GameStatusFinal      GameStatus = "final"
	GameStatusCancelled  GameStatus = "cancelled"
	GameStatusPostponed  GameStatus = "postponed"
)

// GameResult represents the latest known score of a game
type GameResult struct {
	GameID        string       `db:"game_id" json:"game_id" validate:"required"`
	Sport         string       `db:"sport" json:"sport"`
	HomeScore     *int         `db:"home_score" json:"home_score" validate:"omitempty,gte=0"`
	AwayScore     *int         `db:"away_score" json:"away_score" validate:"omitempty,gte=0"`
	Final         bool         `db:"final" json:"final"`
	Status        GameStatus   `db:"status" json:"status" validate:"required,oneof=scheduled in_progress final cancelled postponed"`
	VoidedMarkets []MarketType `db:"voided_markets" json:"voided_markets,omitempty" validate:"omitempty,dive,oneof=h2h spread total"`
	UpdatedAt     time.Time    `db:"updated_at" json:"updated_at"`
}

// IsVoided reports whether the book voided the game or the given market
func (g *GameResult) IsVoided(market MarketType) bool {
	if g.Status == GameStatusCancelled || g.Status == GameStatusPostponed {
		return true
	}
	for _, m := range g.VoidedMarkets {
		if m == market {
			return true
		}
	}
	return false
}

// IsFinished checks if the game has a final score
func (g *GameResult) IsFinished() bool {
	return g.Final && g.HomeScore != nil && g.AwayScore != nil
}

// IsLive checks if the game has started but is not final
func (g *GameResult) IsLive() bool {
	return !g.Final && g.Status == GameStatusInProgress
}
