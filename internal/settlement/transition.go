package settlement

import (
	"fmt"
	"time"

	"github.com/yourusername/parlay-engine/internal/models"
)

// Decision is the outcome of applying a grade to a leg
type Decision int

const (
	// DecisionUnchanged means the leg already had the graded status
	DecisionUnchanged Decision = iota
	// DecisionApplied means the leg moved forward (PENDING to LIVE, or to a terminal status)
	DecisionApplied
	// DecisionCorrection means a terminal leg was re-graded inside its window
	DecisionCorrection
	// DecisionLocked means a re-grade arrived after the window or after the one correction
	DecisionLocked
	// DecisionRejected means the grade would move the leg backwards
	DecisionRejected
)

func (d Decision) String() string {
	switch d {
	case DecisionUnchanged:
		return "unchanged"
	case DecisionApplied:
		return "applied"
	case DecisionCorrection:
		return "correction"
	case DecisionLocked:
		return "locked"
	case DecisionRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Changed reports whether the leg was modified and must be persisted
func (d Decision) Changed() bool {
	return d == DecisionApplied || d == DecisionCorrection
}

// Transition applies next to the leg in place. The first terminal status stamps
// SettledAt and SettlementLockedAt; one correction to a different terminal
// status is allowed while now is inside window of SettlementLockedAt. A locked
// leg is left untouched and models.ErrLegLocked is returned with DecisionLocked.
func Transition(leg *models.Leg, next models.LegStatus, reason string, now time.Time, window time.Duration) (Decision, error) {
	if !next.Valid() {
		return DecisionRejected, fmt.Errorf("%w: unknown leg status %q", models.ErrInvariantViolation, next)
	}

	current := leg.Status
	if current == "" {
		current = models.LegStatusPending
	}

	if !current.IsTerminal() {
		switch {
		case next == current:
			return DecisionUnchanged, nil
		case next == models.LegStatusPending:
			// LIVE never falls back to PENDING
			return DecisionUnchanged, nil
		case next == models.LegStatusLive:
			leg.Status = next
			leg.ResultReason = reason
			return DecisionApplied, nil
		default:
			settled := now
			leg.Status = next
			leg.ResultReason = reason
			leg.SettledAt = &settled
			leg.SettlementLockedAt = &settled
			return DecisionApplied, nil
		}
	}

	switch {
	case !next.IsTerminal():
		return DecisionRejected, nil
	case next == current:
		return DecisionUnchanged, nil
	case leg.InReevaluationWindow(now, window):
		leg.Status = next
		leg.ResultReason = reason
		leg.CorrectionCount++
		return DecisionCorrection, nil
	default:
		return DecisionLocked, fmt.Errorf("leg %s %s to %s: %w", leg.ID, current, next, models.ErrLegLocked)
	}
}
