package domain

import "time"

// Trend describes the direction of the last accepted price move.
type Trend string

const (
	TrendUp      Trend = "up"
	TrendDown    Trend = "down"
	TrendNeutral Trend = "neutral"
)

// TrendOf compares a new price against the previously accepted one.
// With no prior price (previous == 0) the trend is neutral.
func TrendOf(previous, current float64) Trend {
	switch {
	case previous == 0:
		return TrendNeutral
	case current > previous:
		return TrendUp
	case current < previous:
		return TrendDown
	default:
		return TrendNeutral
	}
}

// PriceSnapshot is one internally consistent observation of the market.
// Sequence is only populated for snapshots originating from the streaming
// feed; REST fallback snapshots carry Sequence == 0.
type PriceSnapshot struct {
	Price      float64   `json:"price"`
	Bid        float64   `json:"bid"`
	Ask        float64   `json:"ask"`
	Volume24h  float64   `json:"volume_24h"`
	Sequence   int64     `json:"sequence,omitempty"`
	ObservedAt time.Time `json:"observed_at"`
}

// MarketView is the read-only presentation of the current price state.
// All fields advance together as one atomic update.
type MarketView struct {
	Price         float64   `json:"price"`
	Bid           float64   `json:"bid"`
	Ask           float64   `json:"ask"`
	Volume24h     float64   `json:"volume_24h"`
	PreviousPrice float64   `json:"previous_price"`
	Trend         Trend     `json:"trend"`
	ChangePercent float64   `json:"change_percent"`
	Connected     bool      `json:"connected"`
	LastUpdate    time.Time `json:"last_update"`
}
