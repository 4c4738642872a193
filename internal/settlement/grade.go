// Package settlement grades legs against final scores, applies the leg state
// machine and rolls leg statuses up into parlay statuses.
package settlement

import (
	"fmt"
	"strings"

	"github.com/yourusername/parlay-engine/internal/models"
)

// Grader classifies a leg from its game's result
type Grader struct {
	tieSports map[string]bool
}

// NewGrader creates a grader. Moneyline ties push in tieSports and lose elsewhere.
func NewGrader(tieSports []string) *Grader {
	g := &Grader{tieSports: make(map[string]bool, len(tieSports))}
	for _, s := range tieSports {
		g.tieSports[strings.ToLower(strings.TrimSpace(s))] = true
	}
	return g
}

// Grade returns the terminal status of the leg and a short reason. It never
// returns PENDING or LIVE. A game that has not finished returns
// models.ErrGameNotFinal; VOID is only produced from explicit game or market status.
func (g *Grader) Grade(leg *models.Leg, result *models.GameResult) (models.LegStatus, string, error) {
	if result == nil {
		return "", "", fmt.Errorf("game %s: %w", leg.GameID, models.ErrMissingScore)
	}
	if result.GameID != leg.GameID {
		return "", "", fmt.Errorf("%w: leg game %s graded against %s", models.ErrInvariantViolation, leg.GameID, result.GameID)
	}
	if err := leg.Selection.ValidFor(leg.MarketType); err != nil {
		return "", "", err
	}

	if result.IsVoided(leg.MarketType) {
		if result.Final && result.HomeScore != nil && result.AwayScore != nil && !marketVoided(result, leg.MarketType) {
			return "", "", fmt.Errorf("%w: game %s is %s but carries a final score", models.ErrInvariantViolation, result.GameID, result.Status)
		}
		if marketVoided(result, leg.MarketType) {
			return models.LegStatusVoid, fmt.Sprintf("%s market voided by book", leg.MarketType), nil
		}
		return models.LegStatusVoid, fmt.Sprintf("game %s", result.Status), nil
	}

	if !result.Final {
		return "", "", fmt.Errorf("game %s: %w", leg.GameID, models.ErrGameNotFinal)
	}
	if result.HomeScore == nil || result.AwayScore == nil {
		return "", "", fmt.Errorf("game %s: %w", leg.GameID, models.ErrMissingScore)
	}

	home, away := *result.HomeScore, *result.AwayScore
	score := fmt.Sprintf("final %d-%d", home, away)

	switch leg.MarketType {
	case models.MarketTypeH2H:
		return g.gradeMoneyline(leg, result.Sport, home, away, score)
	case models.MarketTypeSpread:
		return gradeSpread(leg, home, away, score)
	case models.MarketTypeTotal:
		return gradeTotal(leg, home, away, score)
	default:
		return "", "", fmt.Errorf("%w: %q", models.ErrUnknownMarket, leg.MarketType)
	}
}

func (g *Grader) gradeMoneyline(leg *models.Leg, sport string, home, away int, score string) (models.LegStatus, string, error) {
	if home == away {
		switch {
		case leg.Selection == models.SelectionDraw:
			return models.LegStatusWon, score + ", draw", nil
		case g.allowsTies(sport, leg.Sport):
			return models.LegStatusPush, score + ", tie", nil
		default:
			return models.LegStatusLost, score + ", tie", nil
		}
	}

	winner := models.SelectionHome
	if away > home {
		winner = models.SelectionAway
	}
	if leg.Selection == winner {
		return models.LegStatusWon, fmt.Sprintf("%s, %s wins", score, winner), nil
	}
	return models.LegStatusLost, fmt.Sprintf("%s, %s wins", score, winner), nil
}

func gradeSpread(leg *models.Leg, home, away int, score string) (models.LegStatus, string, error) {
	if leg.Line == nil {
		return "", "", fmt.Errorf("leg %s: %w", leg.ID, models.ErrMissingLine)
	}

	selected, opponent := float64(home), float64(away)
	if leg.Selection == models.SelectionAway {
		selected, opponent = opponent, selected
	}
	adjusted := selected + *leg.Line
	reason := fmt.Sprintf("%s, %s %+g", score, leg.Selection, *leg.Line)

	switch {
	case adjusted > opponent:
		return models.LegStatusWon, reason + " covers", nil
	case adjusted < opponent:
		return models.LegStatusLost, reason + " fails to cover", nil
	default:
		return models.LegStatusPush, reason + " lands on the number", nil
	}
}

func gradeTotal(leg *models.Leg, home, away int, score string) (models.LegStatus, string, error) {
	if leg.Line == nil {
		return "", "", fmt.Errorf("leg %s: %w", leg.ID, models.ErrMissingLine)
	}

	combined := float64(home + away)
	reason := fmt.Sprintf("%s, total %g vs %g", score, combined, *leg.Line)
	if combined == *leg.Line {
		return models.LegStatusPush, reason, nil
	}

	over := combined > *leg.Line
	if over == (leg.Selection == models.SelectionOver) {
		return models.LegStatusWon, reason, nil
	}
	return models.LegStatusLost, reason, nil
}

func (g *Grader) allowsTies(sports ...string) bool {
	for _, s := range sports {
		if s != "" {
			return g.tieSports[strings.ToLower(s)]
		}
	}
	return false
}

func marketVoided(result *models.GameResult, market models.MarketType) bool {
	for _, m := range result.VoidedMarkets {
		if m == market {
			return true
		}
	}
	return false
}
