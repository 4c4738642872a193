package models

import (
	"errors"
	"fmt"
)

// Custom errors
var (
	ErrNotFound           = errors.New("record not found")
	ErrInvalidOdds        = errors.New("invalid odds")
	ErrInvariantViolation = errors.New("invariant violation")
	ErrNoLegs             = errors.New("no legs supplied")
	ErrMissingLine        = errors.New("leg has no line")
	ErrMissingScore       = errors.New("game result has no score")
	ErrGameNotFinal       = errors.New("game is not final")
	ErrLegLocked          = errors.New("leg settlement is locked")
	ErrClaimLost          = errors.New("leg claim lost to another worker")
	ErrUnknownMarket      = errors.New("unknown market type")
	ErrInvalidSelection   = errors.New("selection not valid for market")
	ErrAlreadySet         = errors.New("value already set")
)

// InsufficientCandidatesError is returned when a caller asks for more legs than
// there are scoreable candidates. It is an expected condition, not a crash.
type InsufficientCandidatesError struct {
	Needed int
	Have   int
}

func (e *InsufficientCandidatesError) Error() string {
	return fmt.Sprintf("insufficient candidates: needed %d, have %d", e.Needed, e.Have)
}

// IsInsufficientCandidates reports whether err wraps an InsufficientCandidatesError
func IsInsufficientCandidates(err error) bool {
	var target *InsufficientCandidatesError
	return errors.As(err, &target)
}
