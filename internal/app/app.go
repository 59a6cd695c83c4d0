// Package app wires the ingestion pipeline, the position ledger, and the
// API server together and manages their lifecycle. It is the composition
// root: every piece of shared state is constructed here and passed down
// by reference, with no ambient globals.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/Epsilonnnn/mini-perp-widget/internal/config"
	"github.com/Epsilonnnn/mini-perp-widget/internal/executor"
	"github.com/Epsilonnnn/mini-perp-widget/internal/feed"
	"github.com/Epsilonnnn/mini-perp-widget/internal/instrumentation"
	"github.com/Epsilonnnn/mini-perp-widget/internal/platform/coinbase"
	"github.com/Epsilonnnn/mini-perp-widget/internal/server"
	"github.com/Epsilonnnn/mini-perp-widget/internal/server/handler"
	"github.com/Epsilonnnn/mini-perp-widget/internal/server/ws"
	"github.com/Epsilonnnn/mini-perp-widget/internal/service"
)

// shutdownTimeout bounds the graceful HTTP shutdown on exit.
const shutdownTimeout = 10 * time.Second

// App is the root application object.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies and blocks until the context is cancelled or
// a component fails. Cancellation tears down the batching timer, the
// fallback poller, any pending reconnect, and the HTTP server.
func (a *App) Run(ctx context.Context) error {
	registry := prometheus.NewRegistry()
	metrics := instrumentation.New(registry)

	prices := service.NewPriceState()

	sim := executor.NewSimulator(executor.Config{
		MinOrderSize:    a.cfg.Trading.MinOrderSize,
		MaxOrderSize:    a.cfg.Trading.MaxOrderSize,
		SlippagePercent: a.cfg.Trading.SlippagePercent,
		MinLatency:      a.cfg.Trading.MinLatency.Duration,
		MaxLatency:      a.cfg.Trading.MaxLatency.Duration,
	}, metrics, a.logger,
		executor.WithRand(rand.New(rand.NewSource(time.Now().UnixNano()))),
	)

	ledger := service.NewLedger(sim, prices, metrics, a.logger)

	rest := coinbase.NewRESTClient(a.cfg.Feed.RESTTickerURL)
	pipeline := feed.NewPipeline(feed.Config{
		WSURL:                a.cfg.Feed.WSURL,
		ProductID:            a.cfg.Feed.ProductID,
		Channel:              a.cfg.Feed.Channel,
		ReconnectInterval:    a.cfg.Feed.ReconnectInterval.Duration,
		MaxReconnectAttempts: a.cfg.Feed.MaxReconnectAttempts,
		BatchInterval:        a.cfg.Feed.BatchInterval.Duration,
		FallbackPollInterval: a.cfg.Feed.FallbackPollInterval.Duration,
	}, prices, rest, metrics, a.logger)

	hub := ws.NewHub(a.logger)
	pipeline.SetNotify(func() {
		hub.Broadcast("price", prices.View())
	})
	ledger.SetNotify(func() {
		hub.Broadcast("positions", map[string]any{
			"positions":         ledger.Positions(),
			"position_count":    ledger.Count(),
			"total_pnl":         ledger.TotalPnL(),
			"total_pnl_percent": ledger.TotalPnLPercent(),
		})
	})

	a.logger.InfoContext(ctx, "starting",
		slog.String("product_id", a.cfg.Feed.ProductID),
		slog.String("symbol", a.cfg.Trading.Symbol),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return pipeline.Run(ctx) })
	g.Go(func() error { return hub.Run(ctx) })

	if a.cfg.Server.Enabled {
		handlers := server.Handlers{
			Health:    handler.NewHealthHandler(pipeline),
			Price:     handler.NewPriceHandler(prices),
			Positions: handler.NewPositionHandler(ledger, prices, a.logger),
			Orders:    handler.NewOrderHandler(ledger, a.logger),
			Feed:      handler.NewFeedHandler(pipeline),
		}
		srv := server.NewServer(server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
		}, handlers, hub, registry, a.logger)

		g.Go(srv.Start)
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("app: server shutdown: %w", err)
			}
			return ctx.Err()
		})
	}

	return g.Wait()
}
