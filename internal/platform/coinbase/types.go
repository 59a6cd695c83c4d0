package coinbase

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/Epsilonnnn/mini-perp-widget/internal/domain"
)

// SubscribeRequest is the message sent to the feed immediately after the
// connection opens.
type SubscribeRequest struct {
	Type       string   `json:"type"`
	ProductIDs []string `json:"product_ids"`
	Channels   []string `json:"channels"`
}

// TickerMessage is one frame from the "ticker" channel. All fields except
// the sequence number arrive as decimal strings.
type TickerMessage struct {
	Type      string `json:"type"`
	ProductID string `json:"product_id"`
	Price     string `json:"price"`
	BestBid   string `json:"best_bid"`
	BestAsk   string `json:"best_ask"`
	Volume24h string `json:"volume_24h"`
	Sequence  int64  `json:"sequence"`
}

// ParseTicker validates a raw frame structurally and converts it to a
// candidate snapshot. Frames with a missing or mismatched type or product,
// or with unparseable decimal fields, are rejected; the caller drops them.
// ObservedAt is left to the caller.
func ParseTicker(raw []byte, channel, productID string) (domain.PriceSnapshot, error) {
	var msg TickerMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return domain.PriceSnapshot{}, fmt.Errorf("coinbase: decode ticker: %w", err)
	}

	if msg.Type != channel {
		return domain.PriceSnapshot{}, fmt.Errorf("coinbase: unexpected message type %q", msg.Type)
	}
	if msg.ProductID != productID {
		return domain.PriceSnapshot{}, fmt.Errorf("coinbase: unexpected product %q", msg.ProductID)
	}

	price, err := parseDecimal("price", msg.Price)
	if err != nil {
		return domain.PriceSnapshot{}, err
	}
	bid, err := parseDecimal("best_bid", msg.BestBid)
	if err != nil {
		return domain.PriceSnapshot{}, err
	}
	ask, err := parseDecimal("best_ask", msg.BestAsk)
	if err != nil {
		return domain.PriceSnapshot{}, err
	}
	volume, err := parseDecimal("volume_24h", msg.Volume24h)
	if err != nil {
		return domain.PriceSnapshot{}, err
	}

	return domain.PriceSnapshot{
		Price:     price,
		Bid:       bid,
		Ask:       ask,
		Volume24h: volume,
		Sequence:  msg.Sequence,
	}, nil
}

// parseDecimal converts a textual decimal field, rejecting empty,
// unparseable and negative values.
func parseDecimal(field, value string) (float64, error) {
	if value == "" {
		return 0, fmt.Errorf("coinbase: missing field %q", field)
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("coinbase: parse field %q: %w", field, err)
	}
	if f < 0 {
		return 0, fmt.Errorf("coinbase: negative field %q: %g", field, f)
	}
	return f, nil
}
