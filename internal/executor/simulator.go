// Package executor simulates order execution against the current market
// price. It is a client-side model substitute for a real matching engine:
// fills are delayed by a random latency and priced with a small random
// slippage, with no counterparty and no order book.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/Epsilonnnn/mini-perp-widget/internal/domain"
	"github.com/Epsilonnnn/mini-perp-widget/internal/instrumentation"
)

// Config holds the execution model parameters.
type Config struct {
	// MinOrderSize and MaxOrderSize bound the accepted notional size.
	MinOrderSize float64
	MaxOrderSize float64

	// SlippagePercent is the total width of the symmetric slippage range.
	// A fill deviates from the reference price by a percentage drawn
	// uniformly from (-SlippagePercent/2, +SlippagePercent/2).
	SlippagePercent float64

	// MinLatency and MaxLatency bound the simulated fill delay.
	MinLatency time.Duration
	MaxLatency time.Duration
}

// Simulator turns an OrderRequest plus a reference price into an
// OrderResult. Randomness, clock and ID generation are injectable so
// execution is deterministic and replayable under test.
type Simulator struct {
	cfg     Config
	rng     *rand.Rand
	now     func() time.Time
	newID   func() string
	logger  *slog.Logger
	metrics *instrumentation.Metrics
}

// Option customizes a Simulator.
type Option func(*Simulator)

// WithRand replaces the slippage and latency randomness source.
func WithRand(rng *rand.Rand) Option {
	return func(s *Simulator) { s.rng = rng }
}

// WithClock replaces the wall clock used for fill timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Simulator) { s.now = now }
}

// WithIDGenerator replaces the order ID generator.
func WithIDGenerator(newID func() string) Option {
	return func(s *Simulator) { s.newID = newID }
}

// NewSimulator creates a Simulator with the given execution parameters.
func NewSimulator(cfg Config, metrics *instrumentation.Metrics, logger *slog.Logger, opts ...Option) *Simulator {
	s := &Simulator{
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		now:     time.Now,
		newID:   uuid.NewString,
		logger:  logger.With(slog.String("component", "simulator")),
		metrics: metrics,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Execute validates the request against the reference price and size
// bounds, waits out the simulated latency, and returns a filled result
// with the slipped execution price. Rejections are immediate and never
// retried internally.
func (s *Simulator) Execute(ctx context.Context, req domain.OrderRequest, refPrice float64) (domain.OrderResult, error) {
	if err := s.validate(req, refPrice); err != nil {
		s.metrics.OrdersRejected.Inc()
		s.logger.WarnContext(ctx, "order rejected",
			slog.String("side", string(req.Side)),
			slog.Float64("size", req.Size),
			slog.String("reason", err.Error()),
		)
		return domain.OrderResult{Success: false, Error: err.Error()}, err
	}

	if err := s.sleepLatency(ctx); err != nil {
		return domain.OrderResult{Success: false, Error: err.Error()}, err
	}

	// Symmetric slippage around zero, applied multiplicatively.
	slip := (s.rng.Float64() - 0.5) * s.cfg.SlippagePercent
	executionPrice := refPrice * (1 + slip/100)

	result := domain.OrderResult{
		Success:        true,
		OrderID:        s.newID(),
		ExecutionPrice: executionPrice,
		FilledAt:       s.now(),
	}

	s.metrics.OrdersExecuted.Inc()
	s.logger.InfoContext(ctx, "order filled",
		slog.String("order_id", result.OrderID),
		slog.String("side", string(req.Side)),
		slog.Float64("size", req.Size),
		slog.Float64("reference_price", refPrice),
		slog.Float64("execution_price", executionPrice),
	)

	return result, nil
}

func (s *Simulator) validate(req domain.OrderRequest, refPrice float64) error {
	if refPrice == 0 {
		return domain.ErrPriceUnavailable
	}
	if !req.Side.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidSide, req.Side)
	}
	if req.Size < s.cfg.MinOrderSize || req.Size > s.cfg.MaxOrderSize {
		return fmt.Errorf("%w: %g not in [%g, %g]",
			domain.ErrOrderSizeOutOfRange, req.Size, s.cfg.MinOrderSize, s.cfg.MaxOrderSize)
	}
	return nil
}

// sleepLatency waits for a random duration in [MinLatency, MaxLatency],
// honouring context cancellation.
func (s *Simulator) sleepLatency(ctx context.Context) error {
	span := s.cfg.MaxLatency - s.cfg.MinLatency
	delay := s.cfg.MinLatency
	if span > 0 {
		delay += time.Duration(s.rng.Int63n(int64(span)))
	}
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
