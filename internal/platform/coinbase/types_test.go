package coinbase

import (
	"strings"
	"testing"
)

func TestParseTickerValid(t *testing.T) {
	raw := []byte(`{
		"type": "ticker",
		"product_id": "BTC-USD",
		"price": "50000.25",
		"best_bid": "50000.00",
		"best_ask": "50000.50",
		"volume_24h": "12345.6",
		"sequence": 42
	}`)

	snap, err := ParseTicker(raw, "ticker", "BTC-USD")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if snap.Price != 50000.25 || snap.Bid != 50000.00 || snap.Ask != 50000.50 {
		t.Errorf("unexpected prices: %+v", snap)
	}
	if snap.Volume24h != 12345.6 {
		t.Errorf("volume: want 12345.6, got %g", snap.Volume24h)
	}
	if snap.Sequence != 42 {
		t.Errorf("sequence: want 42, got %d", snap.Sequence)
	}
	if !snap.ObservedAt.IsZero() {
		t.Error("ObservedAt must be left to the caller")
	}
}

func TestParseTickerRejections(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{
			name:    "not json",
			raw:     `{{{`,
			wantErr: "decode",
		},
		{
			name:    "wrong type",
			raw:     `{"type":"subscriptions","product_id":"BTC-USD","price":"1","best_bid":"1","best_ask":"1","volume_24h":"1"}`,
			wantErr: "unexpected message type",
		},
		{
			name:    "wrong product",
			raw:     `{"type":"ticker","product_id":"ETH-USD","price":"1","best_bid":"1","best_ask":"1","volume_24h":"1"}`,
			wantErr: "unexpected product",
		},
		{
			name:    "missing price",
			raw:     `{"type":"ticker","product_id":"BTC-USD","best_bid":"1","best_ask":"1","volume_24h":"1"}`,
			wantErr: `missing field "price"`,
		},
		{
			name:    "non-numeric price",
			raw:     `{"type":"ticker","product_id":"BTC-USD","price":"fifty","best_bid":"1","best_ask":"1","volume_24h":"1"}`,
			wantErr: `parse field "price"`,
		},
		{
			name:    "negative bid",
			raw:     `{"type":"ticker","product_id":"BTC-USD","price":"1","best_bid":"-1","best_ask":"1","volume_24h":"1"}`,
			wantErr: `negative field "best_bid"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTicker([]byte(tt.raw), "ticker", "BTC-USD")
			if err == nil {
				t.Fatal("want a rejection, got nil error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}
