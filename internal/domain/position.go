package domain

import "time"

// Position is an open simulated stake on price direction. It is created
// exactly once per successful opening order (ID = originating order ID)
// and removed when closed; no history is retained after close.
type Position struct {
	ID         string    `json:"id"`
	Side       Side      `json:"side"`
	Size       float64   `json:"size"`
	EntryPrice float64   `json:"entry_price"`
	Symbol     string    `json:"symbol"`
	OpenedAt   time.Time `json:"opened_at"`
}

// Investment returns the notional amount committed to the position,
// used as the weight in aggregate PnL percentage.
func (p Position) Investment() float64 {
	return p.Size * p.EntryPrice
}

// UnrealizedPnL computes the profit or loss of the position at the given
// price. A zero current price means the market is not initialized yet, in
// which case the PnL is defined as 0.
func (p Position) UnrealizedPnL(currentPrice float64) float64 {
	if currentPrice == 0 {
		return 0
	}
	diff := currentPrice - p.EntryPrice
	if p.Side == SideLong {
		return (diff / p.EntryPrice) * p.Size
	}
	return (-diff / p.EntryPrice) * p.Size
}

// PnLPercent computes the percentage move of the position at the given
// price, with the same sign convention as UnrealizedPnL.
func (p Position) PnLPercent(currentPrice float64) float64 {
	if currentPrice == 0 {
		return 0
	}
	diff := currentPrice - p.EntryPrice
	if p.Side == SideLong {
		return (diff / p.EntryPrice) * 100
	}
	return (-diff / p.EntryPrice) * 100
}
