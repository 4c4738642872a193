package models

import (
	"time"

	"github.com/google/uuid"
)

// FeedEventType represents the kind of feed event emitted on a transition
type FeedEventType string

const (
	FeedEventParlayWon    FeedEventType = "PARLAY_WON"
	FeedEventParlayLost   FeedEventType = "PARLAY_LOST"
	FeedEventParlayPush   FeedEventType = "PARLAY_PUSH"
	FeedEventParlayVoid   FeedEventType = "PARLAY_VOID"
	FeedEventParlayLive   FeedEventType = "PARLAY_LIVE"
	FeedEventLegCorrected FeedEventType = "LEG_CORRECTED"
)

// FeedEventForStatus maps a parlay status to the event announcing it.
// PENDING has no event.
func FeedEventForStatus(status LegStatus) (FeedEventType, bool) {
	switch status {
	case LegStatusWon:
		return FeedEventParlayWon, true
	case LegStatusLost:
		return FeedEventParlayLost, true
	case LegStatusPush:
		return FeedEventParlayPush, true
	case LegStatusVoid:
		return FeedEventParlayVoid, true
	case LegStatusLive:
		return FeedEventParlayLive, true
	default:
		return "", false
	}
}

// FeedEvent is emitted to the notification/feed collaborator
type FeedEvent struct {
	ID         uuid.UUID     `json:"id"`
	EventType  FeedEventType `json:"event_type"`
	ParlayID   uuid.UUID     `json:"parlay_id"`
	ParlayKind ParlayKind    `json:"parlay_kind"`
	Summary    string        `json:"summary"`
	OccurredAt time.Time     `json:"occurred_at"`
}
