// Package feed implements the market-data ingestion pipeline: a streaming
// connection with bounded reconnect, a coalescing batcher that bounds the
// downstream update rate, and a REST fallback poller that keeps the price
// advancing while the stream is down.
package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Epsilonnnn/mini-perp-widget/internal/domain"
	"github.com/Epsilonnnn/mini-perp-widget/internal/instrumentation"
	"github.com/Epsilonnnn/mini-perp-widget/internal/platform/coinbase"
)

// TickHandler receives every structurally valid, in-order ticker snapshot.
type TickHandler func(domain.PriceSnapshot)

// StateHandler receives every connection state transition.
type StateHandler func(domain.ConnState)

// ConnectionConfig holds the streaming subscription parameters.
type ConnectionConfig struct {
	WSURL                string
	ProductID            string
	Channel              string
	ReconnectInterval    time.Duration
	MaxReconnectAttempts int
}

// Connection owns the single logical subscription to the upstream ticker
// stream. On every transition to Open it immediately sends the subscribe
// handshake; on any transport failure it transitions to Closed and
// schedules a reconnect after a fixed interval, bounded by the configured
// attempt count. Past the bound the connection stays Closed until Retry
// is called.
type Connection struct {
	cfg     ConnectionConfig
	onTick  TickHandler
	onState StateHandler
	logger  *slog.Logger
	metrics *instrumentation.Metrics

	mu      sync.RWMutex
	state   domain.ConnState
	lastSeq int64

	retryCh chan struct{}
}

// NewConnection creates a Connection that delivers validated snapshots to
// onTick and state transitions to onState. Nothing happens until Run.
func NewConnection(cfg ConnectionConfig, onTick TickHandler, onState StateHandler, metrics *instrumentation.Metrics, logger *slog.Logger) *Connection {
	return &Connection{
		cfg:     cfg,
		onTick:  onTick,
		onState: onState,
		logger:  logger.With(slog.String("component", "feed_connection")),
		metrics: metrics,
		state:   domain.ConnUninstantiated,
		retryCh: make(chan struct{}, 1),
	}
}

// State returns the current connection state.
func (c *Connection) State() domain.ConnState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Retry resets the reconnect budget after it has been exhausted. It is a
// no-op while the connection is still cycling on its own.
func (c *Connection) Retry() {
	select {
	case c.retryCh <- struct{}{}:
	default:
	}
}

// Run drives the connection lifecycle until ctx is cancelled. It blocks
// and always returns a non-nil error (ctx.Err on shutdown).
func (c *Connection) Run(ctx context.Context) error {
	attempts := 0
	for {
		if err := ctx.Err(); err != nil {
			c.setState(domain.ConnClosed)
			return err
		}

		c.setState(domain.ConnConnecting)
		opened, err := c.runConnection(ctx)
		c.setState(domain.ConnClosed)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// A connection that made it to Open restores the full budget, so
		// the attempt bound applies per outage rather than per process.
		if opened {
			attempts = 0
		}
		attempts++
		c.metrics.Reconnects.Inc()
		if attempts >= c.cfg.MaxReconnectAttempts {
			c.logger.Error("reconnect attempts exhausted, staying closed until manual retry",
				slog.Int("attempts", attempts),
				slog.String("error", err.Error()),
			)
			// Block until asked to retry. No further timers are scheduled.
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-c.retryCh:
				attempts = 0
			}
			continue
		}

		c.logger.Warn("feed disconnected, reconnecting",
			slog.Int("attempt", attempts),
			slog.String("error", err.Error()),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.cfg.ReconnectInterval):
		}
	}
}

// runConnection performs one dial/subscribe/read cycle. It reports
// whether the connection reached Open, and the error that ended the
// cycle.
func (c *Connection) runConnection(ctx context.Context) (bool, error) {
	conn, err := coinbase.Dial(ctx, c.cfg.WSURL)
	if err != nil {
		return false, err
	}

	if err := conn.Subscribe(c.cfg.ProductID, c.cfg.Channel); err != nil {
		conn.Close()
		return false, err
	}

	c.setState(domain.ConnOpen)
	c.logger.Info("subscribed",
		slog.String("product_id", c.cfg.ProductID),
		slog.String("channel", c.cfg.Channel),
	)

	// Unblock the read loop when the context is cancelled.
	readDone := make(chan struct{})
	defer close(readDone)
	go func() {
		select {
		case <-ctx.Done():
			c.setState(domain.ConnClosing)
			conn.Close()
		case <-readDone:
			conn.Close()
		}
	}()

	for {
		raw, err := conn.ReadMessage()
		if err != nil {
			return true, err
		}
		c.handleFrame(raw)
	}
}

// handleFrame validates one inbound frame and hands it downstream.
// Structurally invalid frames are dropped silently and counted; frames
// that fail the sequence monotonic guard are dropped likewise.
func (c *Connection) handleFrame(raw []byte) {
	snap, err := coinbase.ParseTicker(raw, c.cfg.Channel, c.cfg.ProductID)
	if err != nil {
		c.metrics.MalformedDropped.Inc()
		c.logger.Debug("dropped malformed frame", slog.String("error", err.Error()))
		return
	}

	c.mu.Lock()
	if snap.Sequence != 0 && snap.Sequence <= c.lastSeq {
		c.mu.Unlock()
		c.metrics.OutOfOrderDropped.Inc()
		return
	}
	if snap.Sequence != 0 {
		c.lastSeq = snap.Sequence
	}
	c.mu.Unlock()

	snap.ObservedAt = time.Now()
	c.metrics.TicksReceived.Inc()
	c.onTick(snap)
}

// setState records a transition and notifies the handler. Repeated sets
// of the same state are suppressed.
func (c *Connection) setState(state domain.ConnState) {
	c.mu.Lock()
	if c.state == state {
		c.mu.Unlock()
		return
	}
	c.state = state
	c.mu.Unlock()

	c.logger.Debug("connection state changed", slog.String("state", state.String()))
	if c.onState != nil {
		c.onState(state)
	}
}
