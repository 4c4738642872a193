package models

import (
	"fmt"
	"strings"
)

// MarketType represents the betting market of a leg
type MarketType string

const (
	MarketTypeH2H    MarketType = "h2h"
	MarketTypeSpread MarketType = "spread"
	MarketTypeTotal  MarketType = "total"
)

// ParseMarketType normalizes provider market names. "moneyline" is accepted as h2h.
func ParseMarketType(s string) (MarketType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "h2h", "moneyline", "ml":
		return MarketTypeH2H, nil
	case "spread", "spreads", "ats":
		return MarketTypeSpread, nil
	case "total", "totals", "ou":
		return MarketTypeTotal, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMarket, s)
	}
}

// NeedsLine reports whether legs of this market must carry a line
func (m MarketType) NeedsLine() bool {
	return m == MarketTypeSpread || m == MarketTypeTotal
}

// Selection is the side picked within a market
type Selection string

const (
	SelectionHome  Selection = "home"
	SelectionAway  Selection = "away"
	SelectionDraw  Selection = "draw"
	SelectionOver  Selection = "over"
	SelectionUnder Selection = "under"
)

// ValidFor checks the selection against the market it is used in
func (s Selection) ValidFor(m MarketType) error {
	ok := false
	switch m {
	case MarketTypeH2H:
		ok = s == SelectionHome || s == SelectionAway || s == SelectionDraw
	case MarketTypeSpread:
		ok = s == SelectionHome || s == SelectionAway
	case MarketTypeTotal:
		ok = s == SelectionOver || s == SelectionUnder
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMarket, m)
	}
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrInvalidSelection, m, s)
	}
	return nil
}

// Opposite returns the other side of a two-way selection
func (s Selection) Opposite() Selection {
	switch s {
	case SelectionHome:
		return SelectionAway
	case SelectionAway:
		return SelectionHome
	case SelectionOver:
		return SelectionUnder
	case SelectionUnder:
		return SelectionOver
	default:
		return s
	}
}
