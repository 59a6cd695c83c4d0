package feed

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Epsilonnnn/mini-perp-widget/internal/domain"
	"github.com/Epsilonnnn/mini-perp-widget/internal/instrumentation"
)

// SnapshotFetcher fetches one point-in-time market snapshot. It is
// implemented by the coinbase REST client.
type SnapshotFetcher interface {
	GetTicker(ctx context.Context) (domain.PriceSnapshot, error)
}

// Poller keeps the price snapshot advancing while the stream is down. It
// is activated exactly when the connection reports Closed and deactivated
// exactly when it reports Open. While active it fetches immediately and
// then on a fixed cadence; fetch failures are logged and counted, the
// previous snapshot is left unchanged, and polling continues without
// backoff since this is already the degraded-mode path.
type Poller struct {
	fetcher  SnapshotFetcher
	interval time.Duration
	apply    func(domain.PriceSnapshot)
	logger   *slog.Logger
	metrics  *instrumentation.Metrics

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewPoller creates an inactive Poller.
func NewPoller(fetcher SnapshotFetcher, interval time.Duration, apply func(domain.PriceSnapshot), metrics *instrumentation.Metrics, logger *slog.Logger) *Poller {
	return &Poller{
		fetcher:  fetcher,
		interval: interval,
		apply:    apply,
		logger:   logger.With(slog.String("component", "fallback_poller")),
		metrics:  metrics,
	}
}

// Activate starts the polling goroutine. Activating an active poller is
// a no-op.
func (p *Poller) Activate(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.logger.Info("fallback polling activated", slog.Duration("interval", p.interval))
	go p.loop(ctx)
}

// Deactivate cancels the polling goroutine. Deactivating an inactive
// poller is a no-op.
func (p *Poller) Deactivate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel == nil {
		return
	}
	p.cancel()
	p.cancel = nil
	p.logger.Info("fallback polling deactivated")
}

// Active reports whether the poller is currently running.
func (p *Poller) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

func (p *Poller) loop(ctx context.Context) {
	p.fetchOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.fetchOnce(ctx)
		}
	}
}

func (p *Poller) fetchOnce(ctx context.Context) {
	snap, err := p.fetcher.GetTicker(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		p.metrics.PollFailures.Inc()
		p.logger.Warn("fallback fetch failed", slog.String("error", err.Error()))
		return
	}
	p.apply(snap)
}
