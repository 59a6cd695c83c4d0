package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Epsilonnnn/mini-perp-widget/internal/domain"
)

// LedgerService defines the methods that the position handler requires.
type LedgerService interface {
	Positions() []domain.Position
	Count() int
	TotalPnL() float64
	TotalPnLPercent() float64
	Close(ctx context.Context, positionID string) error
	CloseAll(ctx context.Context) (int, error)
}

// PositionHandler serves position-related HTTP endpoints.
type PositionHandler struct {
	ledger LedgerService
	prices PriceService
	logger *slog.Logger
}

// NewPositionHandler creates a PositionHandler with the given services.
func NewPositionHandler(ledger LedgerService, prices PriceService, logger *slog.Logger) *PositionHandler {
	return &PositionHandler{
		ledger: ledger,
		prices: prices,
		logger: logger,
	}
}

// positionView decorates a position with its PnL at the current price.
type positionView struct {
	domain.Position
	UnrealizedPnL float64 `json:"unrealized_pnl"`
	PnLPercent    float64 `json:"pnl_percent"`
}

// listPositionsResponse wraps the list positions response.
type listPositionsResponse struct {
	Positions       []positionView `json:"positions"`
	TotalPnL        float64        `json:"total_pnl"`
	TotalPnLPercent float64        `json:"total_pnl_percent"`
	PositionCount   int            `json:"position_count"`
}

// closeAllResponse reports the outcome of closing the whole ledger.
type closeAllResponse struct {
	Closed int      `json:"closed"`
	Failed []string `json:"failed,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// ListPositions returns all open positions valued at the current price.
// GET /api/positions
func (h *PositionHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	currentPrice := h.prices.View().Price

	positions := h.ledger.Positions()
	views := make([]positionView, 0, len(positions))
	for _, pos := range positions {
		views = append(views, positionView{
			Position:      pos,
			UnrealizedPnL: pos.UnrealizedPnL(currentPrice),
			PnLPercent:    pos.PnLPercent(currentPrice),
		})
	}

	writeJSON(w, http.StatusOK, listPositionsResponse{
		Positions:       views,
		TotalPnL:        h.ledger.TotalPnL(),
		TotalPnLPercent: h.ledger.TotalPnLPercent(),
		PositionCount:   h.ledger.Count(),
	})
}

// ClosePosition closes a single position. Close is all-or-nothing: on
// failure the position stays open and the reason is returned.
// DELETE /api/positions/{id}
func (h *PositionHandler) ClosePosition(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "position id required")
		return
	}

	if err := h.ledger.Close(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrPositionNotFound) {
			writeError(w, http.StatusNotFound, "position not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: close position failed",
			slog.String("position_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"closed": id})
}

// CloseAllPositions closes every open position. On partial failure the
// response names the positions that remain open for individual retry.
// DELETE /api/positions
func (h *PositionHandler) CloseAllPositions(w http.ResponseWriter, r *http.Request) {
	closed, err := h.ledger.CloseAll(r.Context())
	if err != nil {
		var partial *domain.PartialCloseError
		if errors.As(err, &partial) {
			h.logger.WarnContext(r.Context(), "handler: close all partially failed",
				slog.Int("closed", closed),
				slog.Int("failed", len(partial.Failed)),
			)
			writeJSON(w, http.StatusMultiStatus, closeAllResponse{
				Closed: closed,
				Failed: partial.Failed,
				Error:  partial.Error(),
			})
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: close all failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to close positions")
		return
	}

	writeJSON(w, http.StatusOK, closeAllResponse{Closed: closed})
}
