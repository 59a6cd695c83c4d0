package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Epsilonnnn/mini-perp-widget/internal/domain"
	"github.com/Epsilonnnn/mini-perp-widget/internal/instrumentation"
)

// PriceSink is where the pipeline delivers accepted snapshots. It is
// implemented by service.PriceState.
type PriceSink interface {
	Apply(domain.PriceSnapshot)
	SetConnected(connected bool)
}

// Config holds the complete ingestion pipeline parameters.
type Config struct {
	WSURL                string
	ProductID            string
	Channel              string
	ReconnectInterval    time.Duration
	MaxReconnectAttempts int
	BatchInterval        time.Duration
	FallbackPollInterval time.Duration
}

// Pipeline composes the streaming connection, the batcher, and the
// fallback poller around one PriceSink. The two update paths are mutually
// exclusive: the poller runs only while the connection is Closed, so the
// sink never receives concurrently racing updates from both sources.
type Pipeline struct {
	conn    *Connection
	batcher *Batcher
	poller  *Poller
	sink    PriceSink
	logger  *slog.Logger
	metrics *instrumentation.Metrics

	// notify, when set, is invoked after every applied snapshot.
	notify func()

	mu     sync.Mutex
	runCtx context.Context
}

// NewPipeline wires the three ingestion components together. fetcher is
// the REST client used while degraded.
func NewPipeline(cfg Config, sink PriceSink, fetcher SnapshotFetcher, metrics *instrumentation.Metrics, logger *slog.Logger) *Pipeline {
	p := &Pipeline{
		sink:    sink,
		logger:  logger.With(slog.String("component", "feed_pipeline")),
		metrics: metrics,
	}

	p.batcher = NewBatcher(cfg.BatchInterval, func(snap domain.PriceSnapshot) {
		p.applySnapshot(snap, "stream")
	})
	p.poller = NewPoller(fetcher, cfg.FallbackPollInterval, func(snap domain.PriceSnapshot) {
		p.applySnapshot(snap, "fallback")
	}, metrics, logger)
	p.conn = NewConnection(ConnectionConfig{
		WSURL:                cfg.WSURL,
		ProductID:            cfg.ProductID,
		Channel:              cfg.Channel,
		ReconnectInterval:    cfg.ReconnectInterval,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
	}, p.batcher.Add, p.handleState, metrics, logger)

	return p
}

// SetNotify registers a hook called after every applied snapshot, used to
// push updates to presentation clients.
func (p *Pipeline) SetNotify(notify func()) {
	p.notify = notify
}

// State returns the current connection state.
func (p *Pipeline) State() domain.ConnState {
	return p.conn.State()
}

// Retry resets the reconnect budget after it has been exhausted.
func (p *Pipeline) Retry() {
	p.conn.Retry()
}

// Run starts the connection and the batching timer and blocks until ctx
// is cancelled. Teardown cancels the batching timer, the fallback polling
// timer, and any pending reconnect.
func (p *Pipeline) Run(ctx context.Context) error {
	p.mu.Lock()
	p.runCtx = ctx
	p.mu.Unlock()
	defer p.poller.Deactivate()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.conn.Run(ctx) })
	g.Go(func() error { return p.batcher.Run(ctx) })
	return g.Wait()
}

func (p *Pipeline) applySnapshot(snap domain.PriceSnapshot, source string) {
	p.sink.Apply(snap)
	p.metrics.SnapshotsApplied.WithLabelValues(source).Inc()
	if p.notify != nil {
		p.notify()
	}
}

// handleState gates the fallback poller on connection transitions and
// keeps the sink's connected flag current.
func (p *Pipeline) handleState(state domain.ConnState) {
	p.sink.SetConnected(state == domain.ConnOpen)

	switch state {
	case domain.ConnOpen:
		p.poller.Deactivate()
	case domain.ConnClosed:
		p.mu.Lock()
		ctx := p.runCtx
		p.mu.Unlock()
		if ctx == nil || ctx.Err() != nil {
			return
		}
		p.poller.Activate(ctx)
	}
}
