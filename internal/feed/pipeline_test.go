package feed

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Epsilonnnn/mini-perp-widget/internal/domain"
	"github.com/Epsilonnnn/mini-perp-widget/internal/instrumentation"
)

type sinkRecorder struct {
	mu        sync.Mutex
	applied   []domain.PriceSnapshot
	connected bool
}

func (s *sinkRecorder) Apply(snap domain.PriceSnapshot) {
	s.mu.Lock()
	s.applied = append(s.applied, snap)
	s.mu.Unlock()
}

func (s *sinkRecorder) SetConnected(connected bool) {
	s.mu.Lock()
	s.connected = connected
	s.mu.Unlock()
}

func (s *sinkRecorder) snapshots() []domain.PriceSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.PriceSnapshot(nil), s.applied...)
}

func (s *sinkRecorder) isConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func newTestPipeline(wsURL string, fetcher SnapshotFetcher, sink PriceSink) *Pipeline {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := instrumentation.New(prometheus.NewRegistry())
	return NewPipeline(Config{
		WSURL:                wsURL,
		ProductID:            "BTC-USD",
		Channel:              "ticker",
		ReconnectInterval:    time.Millisecond,
		MaxReconnectAttempts: 3,
		BatchInterval:        5 * time.Millisecond,
		FallbackPollInterval: 5 * time.Millisecond,
	}, sink, fetcher, metrics, logger)
}

func TestPipelineStreamsTicksToSink(t *testing.T) {
	_, wsURL := newFeedServer(t, func(conn *websocket.Conn) {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, tickerFrame(t, "50000", 1)); err != nil {
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	sink := &sinkRecorder{}
	fetcher := &stubFetcher{snap: domain.PriceSnapshot{Price: 1}}
	p := newTestPipeline(wsURL, fetcher, sink)

	var notified atomic.Int64
	p.SetNotify(func() { notified.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	waitFor(t, func() bool { return len(sink.snapshots()) >= 1 },
		"pipeline never delivered a streamed snapshot")

	if got := sink.snapshots()[0].Price; got != 50000 {
		t.Errorf("streamed price: want 50000, got %g", got)
	}
	if !sink.isConnected() {
		t.Error("sink should be marked connected while streaming")
	}
	if p.poller.Active() {
		t.Error("fallback poller must stay off while the stream is open")
	}
	if notified.Load() == 0 {
		t.Error("notify hook was not invoked on apply")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pipeline did not stop after cancellation")
	}
}

func TestPipelineFallsBackToPollingWhenStreamIsDown(t *testing.T) {
	// No websocket endpoint at all: every dial fails.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	sink := &sinkRecorder{}
	fetcher := &stubFetcher{snap: domain.PriceSnapshot{Price: 42000}}
	p := newTestPipeline(wsURL, fetcher, sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	waitFor(t, func() bool { return len(sink.snapshots()) >= 1 },
		"fallback poller never delivered a snapshot")

	snap := sink.snapshots()[0]
	if snap.Price != 42000 {
		t.Errorf("fallback price: want 42000, got %g", snap.Price)
	}
	if snap.Sequence != 0 {
		t.Errorf("fallback snapshots carry no sequence, got %d", snap.Sequence)
	}
	if sink.isConnected() {
		t.Error("sink must not be marked connected while degraded")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pipeline did not stop after cancellation")
	}
	if p.poller.Active() {
		t.Error("poller still active after shutdown")
	}
}
