package handler

import (
	"net/http"

	"github.com/Epsilonnnn/mini-perp-widget/internal/domain"
)

// PriceService exposes the read-only view of the current price state.
type PriceService interface {
	View() domain.MarketView
}

// PriceHandler serves the market snapshot endpoint.
type PriceHandler struct {
	prices PriceService
}

// NewPriceHandler creates a PriceHandler backed by the given price state.
func NewPriceHandler(prices PriceService) *PriceHandler {
	return &PriceHandler{prices: prices}
}

// GetPrice returns the complete current market view.
// GET /api/price
func (h *PriceHandler) GetPrice(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.prices.View())
}
