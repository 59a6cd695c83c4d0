package handler

import (
	"net/http"
	"time"

	"github.com/Epsilonnnn/mini-perp-widget/internal/domain"
)

// FeedStatus reports the current streaming connection state.
type FeedStatus interface {
	State() domain.ConnState
}

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	feed      FeedStatus
	startedAt time.Time
}

// NewHealthHandler creates a HealthHandler for the given feed.
func NewHealthHandler(feed FeedStatus) *HealthHandler {
	return &HealthHandler{
		feed:      feed,
		startedAt: time.Now().UTC(),
	}
}

// HealthCheck responds with the process status and the feed connection
// state. A degraded feed is reported, never treated as a server failure.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"feed_state":     h.feed.State().String(),
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}
