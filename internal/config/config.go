// Package config defines the configuration for the perp service and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by PERPD_* environment
// variables.
type Config struct {
	Feed     FeedConfig    `toml:"feed"`
	Trading  TradingConfig `toml:"trading"`
	Server   ServerConfig  `toml:"server"`
	LogLevel string        `toml:"log_level"`
}

// FeedConfig holds the market-data ingestion parameters.
type FeedConfig struct {
	WSURL                string   `toml:"ws_url"`
	RESTTickerURL        string   `toml:"rest_ticker_url"`
	ProductID            string   `toml:"product_id"`
	Channel              string   `toml:"channel"`
	ReconnectInterval    duration `toml:"reconnect_interval"`
	MaxReconnectAttempts int      `toml:"max_reconnect_attempts"`
	BatchInterval        duration `toml:"batch_interval"`
	FallbackPollInterval duration `toml:"fallback_poll_interval"`
}

// TradingConfig holds the order simulation parameters.
type TradingConfig struct {
	Symbol          string   `toml:"symbol"`
	MinOrderSize    float64  `toml:"min_order_size"`
	MaxOrderSize    float64  `toml:"max_order_size"`
	SlippagePercent float64  `toml:"slippage_percent"`
	MinLatency      duration `toml:"min_latency"`
	MaxLatency      duration `toml:"max_latency"`
}

// ServerConfig holds the HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "50ms", "10s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder
// can parse duration strings.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with the stock Coinbase BTC-USD
// parameters.
func Defaults() Config {
	return Config{
		Feed: FeedConfig{
			WSURL:                "wss://ws-feed.exchange.coinbase.com",
			RESTTickerURL:        "https://api.exchange.coinbase.com/products/BTC-USD/ticker",
			ProductID:            "BTC-USD",
			Channel:              "ticker",
			ReconnectInterval:    duration{1 * time.Second},
			MaxReconnectAttempts: 10,
			BatchInterval:        duration{50 * time.Millisecond},
			FallbackPollInterval: duration{10 * time.Second},
		},
		Trading: TradingConfig{
			Symbol:          "BTC-PERP",
			MinOrderSize:    1,
			MaxOrderSize:    10000,
			SlippagePercent: 0.1,
			MinLatency:      duration{100 * time.Millisecond},
			MaxLatency:      duration{500 * time.Millisecond},
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		LogLevel: "info",
	}
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and
// returns a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Feed
	if c.Feed.WSURL == "" {
		errs = append(errs, "feed: ws_url must not be empty")
	}
	if c.Feed.RESTTickerURL == "" {
		errs = append(errs, "feed: rest_ticker_url must not be empty")
	}
	if c.Feed.ProductID == "" {
		errs = append(errs, "feed: product_id must not be empty")
	}
	if c.Feed.Channel == "" {
		errs = append(errs, "feed: channel must not be empty")
	}
	if c.Feed.ReconnectInterval.Duration <= 0 {
		errs = append(errs, "feed: reconnect_interval must be positive")
	}
	if c.Feed.MaxReconnectAttempts < 1 {
		errs = append(errs, "feed: max_reconnect_attempts must be >= 1")
	}
	if c.Feed.BatchInterval.Duration <= 0 {
		errs = append(errs, "feed: batch_interval must be positive")
	}
	if c.Feed.FallbackPollInterval.Duration <= 0 {
		errs = append(errs, "feed: fallback_poll_interval must be positive")
	}

	// Trading
	if c.Trading.Symbol == "" {
		errs = append(errs, "trading: symbol must not be empty")
	}
	if c.Trading.MinOrderSize <= 0 {
		errs = append(errs, "trading: min_order_size must be > 0")
	}
	if c.Trading.MaxOrderSize < c.Trading.MinOrderSize {
		errs = append(errs, "trading: max_order_size must be >= min_order_size")
	}
	if c.Trading.SlippagePercent < 0 {
		errs = append(errs, "trading: slippage_percent must be >= 0")
	}
	if c.Trading.MinLatency.Duration < 0 {
		errs = append(errs, "trading: min_latency must be >= 0")
	}
	if c.Trading.MaxLatency.Duration < c.Trading.MinLatency.Duration {
		errs = append(errs, "trading: max_latency must be >= min_latency")
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
