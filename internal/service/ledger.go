package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Epsilonnnn/mini-perp-widget/internal/domain"
	"github.com/Epsilonnnn/mini-perp-widget/internal/instrumentation"
)

// OrderExecutor is the interface through which the ledger submits orders.
// It is implemented by the executor.Simulator.
type OrderExecutor interface {
	Execute(ctx context.Context, req domain.OrderRequest, refPrice float64) (domain.OrderResult, error)
}

// PriceReader provides the current reference price for valuations and
// order submission. It is implemented by PriceState.
type PriceReader interface {
	Price() float64
}

// Ledger owns the set of open positions and computes unrealized PnL
// against the current price. Every mutation happens under one mutex; the
// position set never contains two entries with the same ID.
type Ledger struct {
	mu        sync.Mutex
	positions map[string]domain.Position

	exec    OrderExecutor
	prices  PriceReader
	logger  *slog.Logger
	metrics *instrumentation.Metrics

	// notify, when set, is invoked after every successful mutation.
	notify func()
}

// NewLedger creates an empty Ledger backed by the given executor and
// price source.
func NewLedger(exec OrderExecutor, prices PriceReader, metrics *instrumentation.Metrics, logger *slog.Logger) *Ledger {
	return &Ledger{
		positions: make(map[string]domain.Position),
		exec:      exec,
		prices:    prices,
		metrics:   metrics,
		logger:    logger.With(slog.String("component", "ledger")),
	}
}

// SetNotify registers a hook called after every successful open or close,
// used to push position updates to presentation clients.
func (l *Ledger) SetNotify(notify func()) {
	l.notify = notify
}

// Open submits the request at the current price and, on success, inserts
// a new open position with the order ID as its identity. On failure the
// ledger is left untouched and the error is surfaced to the caller.
func (l *Ledger) Open(ctx context.Context, req domain.OrderRequest) (domain.Position, error) {
	result, err := l.exec.Execute(ctx, req, l.prices.Price())
	if err != nil {
		return domain.Position{}, fmt.Errorf("ledger: open position: %w", err)
	}

	pos := domain.Position{
		ID:         result.OrderID,
		Side:       req.Side,
		Size:       req.Size,
		EntryPrice: result.ExecutionPrice,
		Symbol:     req.Symbol,
		OpenedAt:   result.FilledAt,
	}

	l.mu.Lock()
	l.positions[pos.ID] = pos
	count := len(l.positions)
	l.mu.Unlock()
	l.metrics.OpenPositions.Set(float64(count))

	l.logger.InfoContext(ctx, "position opened",
		slog.String("position_id", pos.ID),
		slog.String("side", string(pos.Side)),
		slog.Float64("size", pos.Size),
		slog.Float64("entry_price", pos.EntryPrice),
	)

	if l.notify != nil {
		l.notify()
	}
	return pos, nil
}

// Close submits the inverse-side order for the position and removes it on
// success. Close is all-or-nothing per position: on failure the position
// stays open and the error is surfaced.
func (l *Ledger) Close(ctx context.Context, positionID string) error {
	l.mu.Lock()
	pos, ok := l.positions[positionID]
	l.mu.Unlock()
	if !ok {
		return fmt.Errorf("ledger: close %q: %w", positionID, domain.ErrPositionNotFound)
	}

	closeReq := domain.OrderRequest{
		Side:   pos.Side.Opposite(),
		Size:   pos.Size,
		Symbol: pos.Symbol,
	}

	result, err := l.exec.Execute(ctx, closeReq, l.prices.Price())
	if err != nil {
		return fmt.Errorf("ledger: close %q: %w", positionID, err)
	}

	l.mu.Lock()
	delete(l.positions, positionID)
	count := len(l.positions)
	l.mu.Unlock()
	l.metrics.OpenPositions.Set(float64(count))

	l.logger.InfoContext(ctx, "position closed",
		slog.String("position_id", positionID),
		slog.Float64("exit_price", result.ExecutionPrice),
	)

	if l.notify != nil {
		l.notify()
	}
	return nil
}

// CloseAll submits inverse orders for every open position concurrently
// and waits for the full set to settle. Exactly the positions whose own
// close succeeded are removed; if any subset failed, the remainder stays
// in the ledger and a PartialCloseError naming the retained IDs is
// returned. Returns the number of positions closed.
func (l *Ledger) CloseAll(ctx context.Context) (int, error) {
	open := l.Positions()
	if len(open) == 0 {
		return 0, nil
	}

	errs := make([]error, len(open))
	var g errgroup.Group
	for i, pos := range open {
		g.Go(func() error {
			errs[i] = l.Close(ctx, pos.ID)
			return nil
		})
	}
	// Individual failures are collected in errs; Wait only synchronizes.
	_ = g.Wait()

	var failed []string
	for i, err := range errs {
		if err != nil {
			failed = append(failed, open[i].ID)
		}
	}

	closed := len(open) - len(failed)
	if len(failed) > 0 {
		l.logger.WarnContext(ctx, "close all partially failed",
			slog.Int("closed", closed),
			slog.Int("failed", len(failed)),
		)
		return closed, &domain.PartialCloseError{Failed: failed}
	}

	l.logger.InfoContext(ctx, "all positions closed", slog.Int("closed", closed))
	return closed, nil
}

// Positions returns copies of all open positions, ordered by open time.
func (l *Ledger) Positions() []domain.Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]domain.Position, 0, len(l.positions))
	for _, pos := range l.positions {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OpenedAt.Equal(out[j].OpenedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].OpenedAt.Before(out[j].OpenedAt)
	})
	return out
}

// Count returns the number of open positions.
func (l *Ledger) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.positions)
}

// TotalPnL sums the unrealized PnL of all open positions at the current
// price.
func (l *Ledger) TotalPnL() float64 {
	price := l.prices.Price()
	var total float64
	for _, pos := range l.Positions() {
		total += pos.UnrealizedPnL(price)
	}
	return total
}

// TotalPnLPercent is the investment-weighted average of the individual
// PnL percentages, where a position's weight is its notional investment
// (size * entry price). It is 0 when the ledger is empty or the total
// investment is 0.
func (l *Ledger) TotalPnLPercent() float64 {
	price := l.prices.Price()

	var weighted, totalInvestment float64
	for _, pos := range l.Positions() {
		investment := pos.Investment()
		weighted += pos.PnLPercent(price) * investment
		totalInvestment += investment
	}

	if totalInvestment == 0 {
		return 0
	}
	return weighted / totalInvestment
}
