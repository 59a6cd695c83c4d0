package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies PERPD_* environment variable overrides, and
// returns the final Config. A missing file is not an error; the defaults
// are used. The returned Config has NOT been validated; the caller should
// invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known PERPD_* environment variables and
// overwrites the corresponding Config fields when a variable is set.
func applyEnvOverrides(cfg *Config) {
	// ── Feed ──
	setStr(&cfg.Feed.WSURL, "PERPD_FEED_WS_URL")
	setStr(&cfg.Feed.RESTTickerURL, "PERPD_FEED_REST_TICKER_URL")
	setStr(&cfg.Feed.ProductID, "PERPD_FEED_PRODUCT_ID")
	setStr(&cfg.Feed.Channel, "PERPD_FEED_CHANNEL")
	setDuration(&cfg.Feed.ReconnectInterval, "PERPD_FEED_RECONNECT_INTERVAL")
	setInt(&cfg.Feed.MaxReconnectAttempts, "PERPD_FEED_MAX_RECONNECT_ATTEMPTS")
	setDuration(&cfg.Feed.BatchInterval, "PERPD_FEED_BATCH_INTERVAL")
	setDuration(&cfg.Feed.FallbackPollInterval, "PERPD_FEED_FALLBACK_POLL_INTERVAL")

	// ── Trading ──
	setStr(&cfg.Trading.Symbol, "PERPD_TRADING_SYMBOL")
	setFloat64(&cfg.Trading.MinOrderSize, "PERPD_TRADING_MIN_ORDER_SIZE")
	setFloat64(&cfg.Trading.MaxOrderSize, "PERPD_TRADING_MAX_ORDER_SIZE")
	setFloat64(&cfg.Trading.SlippagePercent, "PERPD_TRADING_SLIPPAGE_PERCENT")
	setDuration(&cfg.Trading.MinLatency, "PERPD_TRADING_MIN_LATENCY")
	setDuration(&cfg.Trading.MaxLatency, "PERPD_TRADING_MAX_LATENCY")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "PERPD_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "PERPD_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "PERPD_SERVER_CORS_ORIGINS")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "PERPD_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
