package handler

import (
	"net/http"

	"github.com/Epsilonnnn/mini-perp-widget/internal/domain"
)

// FeedControl allows manual intervention on the streaming connection.
type FeedControl interface {
	State() domain.ConnState
	Retry()
}

// FeedHandler serves feed control endpoints.
type FeedHandler struct {
	feed FeedControl
}

// NewFeedHandler creates a FeedHandler for the given feed.
func NewFeedHandler(feed FeedControl) *FeedHandler {
	return &FeedHandler{feed: feed}
}

// RetryFeed resets the reconnect budget after it has been exhausted, so
// the connection starts dialing again.
// POST /api/feed/retry
func (h *FeedHandler) RetryFeed(w http.ResponseWriter, r *http.Request) {
	h.feed.Retry()
	writeJSON(w, http.StatusAccepted, map[string]string{
		"state": h.feed.State().String(),
	})
}
