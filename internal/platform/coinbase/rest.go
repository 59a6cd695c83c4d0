package coinbase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Epsilonnnn/mini-perp-widget/internal/domain"
)

// tickerResponse is the REST snapshot of the product ticker. The price
// fields are decimal strings, like the streaming frames.
type tickerResponse struct {
	Price  string `json:"price"`
	Bid    string `json:"bid"`
	Ask    string `json:"ask"`
	Volume string `json:"volume"`
}

// RESTClient fetches point-in-time ticker snapshots. It is only used by
// the fallback poller while the stream is down.
type RESTClient struct {
	tickerURL string
	http      *http.Client
}

// NewRESTClient creates a client for the given ticker endpoint, e.g.
// "https://api.exchange.coinbase.com/products/BTC-USD/ticker".
func NewRESTClient(tickerURL string) *RESTClient {
	return &RESTClient{
		tickerURL: tickerURL,
		http:      &http.Client{Timeout: 10 * time.Second},
	}
}

// GetTicker fetches the current ticker. Missing or unparseable fields are
// a fetch failure; no snapshot is produced. The returned snapshot carries
// no sequence number (sequence is a stream-only concept).
func (c *RESTClient) GetTicker(ctx context.Context) (domain.PriceSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.tickerURL, nil)
	if err != nil {
		return domain.PriceSnapshot{}, fmt.Errorf("coinbase: build ticker request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.PriceSnapshot{}, fmt.Errorf("coinbase: fetch ticker: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.PriceSnapshot{}, fmt.Errorf("coinbase: fetch ticker: unexpected status %d", resp.StatusCode)
	}

	var body tickerResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.PriceSnapshot{}, fmt.Errorf("coinbase: decode ticker: %w", err)
	}

	price, err := parseDecimal("price", body.Price)
	if err != nil {
		return domain.PriceSnapshot{}, err
	}
	bid, err := parseDecimal("bid", body.Bid)
	if err != nil {
		return domain.PriceSnapshot{}, err
	}
	ask, err := parseDecimal("ask", body.Ask)
	if err != nil {
		return domain.PriceSnapshot{}, err
	}
	volume, err := parseDecimal("volume", body.Volume)
	if err != nil {
		return domain.PriceSnapshot{}, err
	}

	return domain.PriceSnapshot{
		Price:      price,
		Bid:        bid,
		Ask:        ask,
		Volume24h:  volume,
		ObservedAt: time.Now(),
	}, nil
}
