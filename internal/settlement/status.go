package settlement

import "github.com/yourusername/parlay-engine/internal/models"

// ParlayStatus reduces leg statuses to the parlay status. It does not depend on
// the order of statuses. LOST dominates; VOID legs count as removed, so a
// parlay of only VOID is VOID and VOID plus PUSH is PUSH. A parlay is WON only
// once every leg is terminal.
func ParlayStatus(statuses []models.LegStatus) models.LegStatus {
	if len(statuses) == 0 {
		return models.LegStatusPending
	}

	var live, pending, void, push int
	for _, s := range statuses {
		switch s {
		case models.LegStatusLost:
			return models.LegStatusLost
		case models.LegStatusVoid:
			void++
		case models.LegStatusLive:
			live++
		case models.LegStatusPush:
			push++
		case models.LegStatusWon:
		default:
			pending++
		}
	}

	switch {
	case void == len(statuses):
		return models.LegStatusVoid
	case live > 0:
		return models.LegStatusLive
	case pending > 0:
		return models.LegStatusPending
	case push+void == len(statuses):
		return models.LegStatusPush
	default:
		return models.LegStatusWon
	}
}
