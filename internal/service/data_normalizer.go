package service

import (
	"strings"
	"time"

	"github.com/yourusername/parlay-engine/internal/models"
)

// DataNormalizer maps provider spellings onto the canonical market, selection
// and sport names before validation
type DataNormalizer struct {
	sportAliases map[string]string
	now          func() time.Time
}

// NewDataNormalizer creates a new data normalizer
func NewDataNormalizer() *DataNormalizer {
	return &DataNormalizer{
		sportAliases: buildSportAliases(),
		now:          time.Now,
	}
}

// NormalizeOdds rewrites the snapshot in place. Unknown markets are left as
// they are so validation can reject them with the provider's spelling.
func (n *DataNormalizer) NormalizeOdds(o *models.OddsSnapshot) {
	if o == nil {
		return
	}
	o.GameID = strings.TrimSpace(o.GameID)
	o.Sport = n.normalizeSport(o.Sport)
	if market, err := models.ParseMarketType(string(o.MarketType)); err == nil {
		o.MarketType = market
	}
	o.Outcome = normalizeSelection(o.Outcome)
	o.Book = strings.ToLower(strings.TrimSpace(o.Book))
	if o.CapturedAt.IsZero() {
		o.CapturedAt = n.now()
	}
	o.CapturedAt = o.CapturedAt.UTC()
}

// NormalizeResult rewrites the result in place
func (n *DataNormalizer) NormalizeResult(g *models.GameResult) {
	if g == nil {
		return
	}
	g.GameID = strings.TrimSpace(g.GameID)
	g.Sport = n.normalizeSport(g.Sport)
	g.Status = models.GameStatus(strings.ToLower(strings.TrimSpace(string(g.Status))))
	switch g.Status {
	case "canceled", "abandoned":
		g.Status = models.GameStatusCancelled
	case "live", "inprogress", "in-progress":
		g.Status = models.GameStatusInProgress
	case "complete", "completed", "closed":
		g.Status = models.GameStatusFinal
	}
	for i, m := range g.VoidedMarkets {
		if market, err := models.ParseMarketType(string(m)); err == nil {
			g.VoidedMarkets[i] = market
		}
	}
	if g.UpdatedAt.IsZero() {
		g.UpdatedAt = n.now()
	}
	g.UpdatedAt = g.UpdatedAt.UTC()
}

func (n *DataNormalizer) normalizeSport(sport string) string {
	s := strings.ToLower(strings.TrimSpace(sport))
	if canonical, ok := n.sportAliases[s]; ok {
		return canonical
	}
	return s
}

func normalizeSelection(s models.Selection) models.Selection {
	switch strings.ToLower(strings.TrimSpace(string(s))) {
	case "home", "h", "1":
		return models.SelectionHome
	case "away", "a", "2":
		return models.SelectionAway
	case "draw", "tie", "x":
		return models.SelectionDraw
	case "over", "o":
		return models.SelectionOver
	case "under", "u":
		return models.SelectionUnder
	default:
		return s
	}
}

// buildSportAliases maps provider sport keys to the names used in config
func buildSportAliases() map[string]string {
	return map[string]string{
		"americanfootball_nfl":   "nfl",
		"americanfootball_ncaaf": "ncaaf",
		"basketball_nba":         "nba",
		"basketball_ncaab":       "ncaab",
		"baseball_mlb":           "mlb",
		"icehockey_nhl":          "nhl",
		"football":               "soccer",
		"soccer_epl":             "soccer",
		"soccer_usa_mls":         "soccer",
	}
}
