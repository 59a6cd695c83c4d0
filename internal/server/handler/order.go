package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Epsilonnnn/mini-perp-widget/internal/domain"
)

// OrderService defines the methods that the order handler requires.
type OrderService interface {
	Open(ctx context.Context, req domain.OrderRequest) (domain.Position, error)
}

// OrderHandler serves the order submission endpoint.
type OrderHandler struct {
	orders OrderService
	logger *slog.Logger
}

// NewOrderHandler creates an OrderHandler with the given service and logger.
func NewOrderHandler(orders OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		orders: orders,
		logger: logger,
	}
}

// PlaceOrder opens a position from an order request JSON body.
// POST /api/orders
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req domain.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if !req.Side.Valid() {
		writeError(w, http.StatusBadRequest, `side must be "long" or "short"`)
		return
	}
	if req.Size <= 0 {
		writeError(w, http.StatusBadRequest, "size must be positive")
		return
	}

	pos, err := h.orders.Open(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPriceUnavailable):
			writeError(w, http.StatusServiceUnavailable, "market not initialized yet")
		case errors.Is(err, domain.ErrOrderSizeOutOfRange):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.ErrorContext(r.Context(), "handler: place order failed",
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "order submission failed")
		}
		return
	}

	writeJSON(w, http.StatusCreated, pos)
}
