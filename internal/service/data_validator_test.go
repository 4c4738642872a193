package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/parlay-engine/internal/models"
)

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func validSpreadSnapshot() *models.OddsSnapshot {
	return &models.OddsSnapshot{
		GameID:       "g1",
		Sport:        "nfl",
		MarketType:   models.MarketTypeSpread,
		Outcome:      models.SelectionHome,
		Line:         floatPtr(-3.5),
		DecimalPrice: 1.91,
		Book:         "pinnacle",
	}
}

func validFinalResult() *models.GameResult {
	return &models.GameResult{
		GameID:    "g1",
		Sport:     "nfl",
		HomeScore: intPtr(24),
		AwayScore: intPtr(17),
		Final:     true,
		Status:    models.GameStatusFinal,
	}
}

func TestValidateOdds(t *testing.T) {
	validator := NewDataValidator()

	tests := []struct {
		name       string
		mutate     func(*models.OddsSnapshot)
		shouldHave string
	}{
		{name: "valid spread"},
		{name: "valid h2h", mutate: func(o *models.OddsSnapshot) { o.MarketType = models.MarketTypeH2H; o.Line = nil }},
		{name: "missing game", mutate: func(o *models.OddsSnapshot) { o.GameID = "" }, shouldHave: "GameID is required"},
		{name: "price at evens floor", mutate: func(o *models.OddsSnapshot) { o.DecimalPrice = 1.0 }, shouldHave: "DecimalPrice"},
		{name: "spread without line", mutate: func(o *models.OddsSnapshot) { o.Line = nil }, shouldHave: "requires a line"},
		{name: "h2h with line", mutate: func(o *models.OddsSnapshot) { o.MarketType = models.MarketTypeH2H }, shouldHave: "must not carry a line"},
		{name: "total with home", mutate: func(o *models.OddsSnapshot) { o.MarketType = models.MarketTypeTotal }, shouldHave: "not valid for the market"},
		{name: "unknown market", mutate: func(o *models.OddsSnapshot) { o.MarketType = "props" }, shouldHave: "MarketType has invalid value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := validSpreadSnapshot()
			if tt.mutate != nil {
				tt.mutate(o)
			}

			err := validator.ValidateOdds(o)
			if tt.shouldHave == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Contains(t, err.Error(), tt.shouldHave)
		})
	}
}

func TestValidateGameResult(t *testing.T) {
	validator := NewDataValidator()

	tests := []struct {
		name       string
		mutate     func(*models.GameResult)
		shouldHave string
	}{
		{name: "valid final"},
		{name: "live partial score", mutate: func(g *models.GameResult) {
			g.Final = false
			g.Status = models.GameStatusInProgress
			g.AwayScore = nil
		}},
		{name: "cancelled with voided market", mutate: func(g *models.GameResult) {
			g.Final = false
			g.Status = models.GameStatusCancelled
			g.VoidedMarkets = []models.MarketType{models.MarketTypeTotal}
		}},
		{name: "final without away score", mutate: func(g *models.GameResult) { g.AwayScore = nil }, shouldHave: "requires both scores"},
		{name: "final flag on cancelled game", mutate: func(g *models.GameResult) { g.Status = models.GameStatusCancelled }, shouldHave: "contradicts the final flag"},
		{name: "final status without flag", mutate: func(g *models.GameResult) { g.Final = false }, shouldHave: "contradicts the final flag"},
		{name: "negative score", mutate: func(g *models.GameResult) { g.HomeScore = intPtr(-1) }, shouldHave: "HomeScore"},
		{name: "unknown voided market", mutate: func(g *models.GameResult) {
			g.VoidedMarkets = []models.MarketType{"props"}
		}, shouldHave: "invalid value props"},
		{name: "unknown status", mutate: func(g *models.GameResult) { g.Status = "suspended" }, shouldHave: "Status has invalid value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := validFinalResult()
			if tt.mutate != nil {
				tt.mutate(g)
			}

			err := validator.ValidateGameResult(g)
			if tt.shouldHave == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Contains(t, err.Error(), tt.shouldHave)
		})
	}
}

func TestValidateNil(t *testing.T) {
	validator := NewDataValidator()
	assert.ErrorIs(t, validator.ValidateOdds(nil), ErrValidation)
	assert.ErrorIs(t, validator.ValidateGameResult(nil), ErrValidation)
}

func TestNormalizeOdds(t *testing.T) {
	n := NewDataNormalizer()
	o := &models.OddsSnapshot{
		GameID:       " g1 ",
		Sport:        "basketball_NBA",
		MarketType:   "Moneyline",
		Outcome:      "H",
		DecimalPrice: 2.1,
		Book:         " DraftKings",
	}

	n.NormalizeOdds(o)

	assert.Equal(t, "g1", o.GameID)
	assert.Equal(t, "nba", o.Sport)
	assert.Equal(t, models.MarketTypeH2H, o.MarketType)
	assert.Equal(t, models.SelectionHome, o.Outcome)
	assert.Equal(t, "draftkings", o.Book)
	assert.False(t, o.CapturedAt.IsZero())
	assert.NoError(t, NewDataValidator().ValidateOdds(o))
}

func TestNormalizeResult(t *testing.T) {
	n := NewDataNormalizer()
	g := &models.GameResult{
		GameID:        "g1",
		Sport:         "Football",
		Status:        "Canceled",
		VoidedMarkets: []models.MarketType{"totals"},
	}

	n.NormalizeResult(g)

	assert.Equal(t, "soccer", g.Sport)
	assert.Equal(t, models.GameStatusCancelled, g.Status)
	assert.Equal(t, []models.MarketType{models.MarketTypeTotal}, g.VoidedMarkets)
	assert.Equal(t, time.UTC, g.UpdatedAt.Location())
}
