package service

import (
	"sync"
	"time"

	"github.com/Epsilonnnn/mini-perp-widget/internal/domain"
)

// PriceState is the single source of truth for the instrument's current
// price. It is fed by either the feed batcher or the fallback poller
// (never both at once, by construction of the connection-state gating)
// and read by the ledger on every valuation.
//
// Apply is a pure state transition: structural validation happens
// upstream, so there is no rejection path here. Every mutation happens
// under one mutex so readers never observe a partially updated snapshot.
type PriceState struct {
	mu            sync.RWMutex
	current       domain.PriceSnapshot
	previousPrice float64
	trend         domain.Trend
	changePercent float64
	connected     bool
	lastUpdate    time.Time

	now func() time.Time
}

// NewPriceState creates an empty PriceState. Until the first Apply the
// price is 0, the trend is neutral, and order submission is rejected
// upstream on the zero reference price.
func NewPriceState() *PriceState {
	return &PriceState{
		trend: domain.TrendNeutral,
		now:   time.Now,
	}
}

// Apply installs a new snapshot: it stores the previous price, derives
// trend and change percentage from old vs. new price, and records the
// wall-clock update time, all in one critical section.
func (ps *PriceState) Apply(candidate domain.PriceSnapshot) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	previous := ps.current.Price
	ps.previousPrice = previous
	ps.trend = domain.TrendOf(previous, candidate.Price)
	if previous > 0 {
		ps.changePercent = (candidate.Price - previous) / previous * 100
	} else {
		ps.changePercent = 0
	}
	ps.current = candidate
	ps.lastUpdate = ps.now()
}

// SetConnected records whether the streaming feed is currently open.
func (ps *PriceState) SetConnected(connected bool) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.connected = connected
}

// Price returns the most recently applied price, 0 before the first apply.
func (ps *PriceState) Price() float64 {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return ps.current.Price
}

// Connected reports whether the streaming feed is open.
func (ps *PriceState) Connected() bool {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return ps.connected
}

// Trend returns the direction of the last accepted price move.
func (ps *PriceState) Trend() domain.Trend {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return ps.trend
}

// View returns the read-only presentation of the complete current state.
func (ps *PriceState) View() domain.MarketView {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return domain.MarketView{
		Price:         ps.current.Price,
		Bid:           ps.current.Bid,
		Ask:           ps.current.Ask,
		Volume24h:     ps.current.Volume24h,
		PreviousPrice: ps.previousPrice,
		Trend:         ps.trend,
		ChangePercent: ps.changePercent,
		Connected:     ps.connected,
		LastUpdate:    ps.lastUpdate,
	}
}
