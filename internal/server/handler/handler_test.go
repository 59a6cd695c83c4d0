package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Epsilonnnn/mini-perp-widget/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

// stubLedger implements OrderService and LedgerService.
type stubLedger struct {
	positions   []domain.Position
	openPos     domain.Position
	openErr     error
	closeErr    error
	closedID    string
	closeAllN   int
	closeAllErr error
}

func (s *stubLedger) Open(context.Context, domain.OrderRequest) (domain.Position, error) {
	return s.openPos, s.openErr
}

func (s *stubLedger) Positions() []domain.Position { return s.positions }
func (s *stubLedger) Count() int                   { return len(s.positions) }
func (s *stubLedger) TotalPnL() float64            { return 12.5 }
func (s *stubLedger) TotalPnLPercent() float64     { return 2.5 }

func (s *stubLedger) Close(_ context.Context, id string) error {
	if s.closeErr != nil {
		return s.closeErr
	}
	s.closedID = id
	return nil
}

func (s *stubLedger) CloseAll(context.Context) (int, error) {
	return s.closeAllN, s.closeAllErr
}

type stubPrices struct {
	view domain.MarketView
}

func (s *stubPrices) View() domain.MarketView { return s.view }

type stubFeed struct {
	state   domain.ConnState
	retried bool
}

func (s *stubFeed) State() domain.ConnState { return s.state }
func (s *stubFeed) Retry()                  { s.retried = true }

func TestPlaceOrder(t *testing.T) {
	opened := domain.Position{
		ID:         "pos-1",
		Side:       domain.SideLong,
		Size:       100,
		EntryPrice: 50012.5,
		Symbol:     "BTC-PERP",
		OpenedAt:   time.Now().UTC(),
	}

	tests := []struct {
		name       string
		body       string
		openErr    error
		wantStatus int
	}{
		{
			name:       "valid order",
			body:       `{"side":"long","size":100,"symbol":"BTC-PERP"}`,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "malformed body",
			body:       `{"side":`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid side",
			body:       `{"side":"diagonal","size":100}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "non-positive size",
			body:       `{"side":"long","size":0}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "market not ready",
			body:       `{"side":"long","size":100}`,
			openErr:    domain.ErrPriceUnavailable,
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "size out of range",
			body:       `{"side":"long","size":99999}`,
			openErr:    domain.ErrOrderSizeOutOfRange,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := &stubLedger{openPos: opened, openErr: tt.openErr}
			h := NewOrderHandler(ledger, testLogger())

			req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.PlaceOrder(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status: want %d, got %d (%s)", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if tt.wantStatus == http.StatusCreated {
				var pos domain.Position
				decodeBody(t, rec, &pos)
				if pos.ID != opened.ID {
					t.Errorf("returned position ID: want %q, got %q", opened.ID, pos.ID)
				}
			}
		})
	}
}

func TestListPositionsValuesAtCurrentPrice(t *testing.T) {
	ledger := &stubLedger{
		positions: []domain.Position{
			{ID: "pos-1", Side: domain.SideLong, Size: 100, EntryPrice: 50000},
		},
	}
	prices := &stubPrices{view: domain.MarketView{Price: 51000}}
	h := NewPositionHandler(ledger, prices, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/positions", nil)
	rec := httptest.NewRecorder()
	h.ListPositions(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: want 200, got %d", rec.Code)
	}

	var resp listPositionsResponse
	decodeBody(t, rec, &resp)
	if resp.PositionCount != 1 || len(resp.Positions) != 1 {
		t.Fatalf("want one position, got %+v", resp)
	}
	if resp.Positions[0].UnrealizedPnL != 2.0 {
		t.Errorf("pnl at current price: want 2.0, got %g", resp.Positions[0].UnrealizedPnL)
	}
	if resp.TotalPnL != 12.5 || resp.TotalPnLPercent != 2.5 {
		t.Errorf("aggregates not passed through: %+v", resp)
	}
}

func TestClosePosition(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		ledger := &stubLedger{}
		h := NewPositionHandler(ledger, &stubPrices{}, testLogger())

		req := httptest.NewRequest(http.MethodDelete, "/api/positions/pos-1", nil)
		req.SetPathValue("id", "pos-1")
		rec := httptest.NewRecorder()
		h.ClosePosition(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status: want 200, got %d", rec.Code)
		}
		if ledger.closedID != "pos-1" {
			t.Errorf("want close of pos-1, got %q", ledger.closedID)
		}
	})

	t.Run("not found", func(t *testing.T) {
		ledger := &stubLedger{closeErr: domain.ErrPositionNotFound}
		h := NewPositionHandler(ledger, &stubPrices{}, testLogger())

		req := httptest.NewRequest(http.MethodDelete, "/api/positions/ghost", nil)
		req.SetPathValue("id", "ghost")
		rec := httptest.NewRecorder()
		h.ClosePosition(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("status: want 404, got %d", rec.Code)
		}
	})

	t.Run("close rejected", func(t *testing.T) {
		ledger := &stubLedger{closeErr: domain.ErrPriceUnavailable}
		h := NewPositionHandler(ledger, &stubPrices{}, testLogger())

		req := httptest.NewRequest(http.MethodDelete, "/api/positions/pos-1", nil)
		req.SetPathValue("id", "pos-1")
		rec := httptest.NewRecorder()
		h.ClosePosition(rec, req)

		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status: want 422, got %d", rec.Code)
		}
	})
}

func TestCloseAllPositions(t *testing.T) {
	t.Run("full success", func(t *testing.T) {
		ledger := &stubLedger{closeAllN: 3}
		h := NewPositionHandler(ledger, &stubPrices{}, testLogger())

		req := httptest.NewRequest(http.MethodDelete, "/api/positions", nil)
		rec := httptest.NewRecorder()
		h.CloseAllPositions(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status: want 200, got %d", rec.Code)
		}
		var resp closeAllResponse
		decodeBody(t, rec, &resp)
		if resp.Closed != 3 || len(resp.Failed) != 0 {
			t.Errorf("want 3 closed and no failures, got %+v", resp)
		}
	})

	t.Run("partial failure", func(t *testing.T) {
		ledger := &stubLedger{
			closeAllN:   2,
			closeAllErr: &domain.PartialCloseError{Failed: []string{"pos-3"}},
		}
		h := NewPositionHandler(ledger, &stubPrices{}, testLogger())

		req := httptest.NewRequest(http.MethodDelete, "/api/positions", nil)
		rec := httptest.NewRecorder()
		h.CloseAllPositions(rec, req)

		if rec.Code != http.StatusMultiStatus {
			t.Fatalf("status: want 207, got %d", rec.Code)
		}
		var resp closeAllResponse
		decodeBody(t, rec, &resp)
		if resp.Closed != 2 || len(resp.Failed) != 1 || resp.Failed[0] != "pos-3" {
			t.Errorf("partial outcome not reported: %+v", resp)
		}
	})
}

func TestGetPrice(t *testing.T) {
	prices := &stubPrices{view: domain.MarketView{
		Price:         50000,
		Trend:         domain.TrendUp,
		ChangePercent: 1.5,
		Connected:     true,
	}}
	h := NewPriceHandler(prices)

	req := httptest.NewRequest(http.MethodGet, "/api/price", nil)
	rec := httptest.NewRecorder()
	h.GetPrice(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: want 200, got %d", rec.Code)
	}
	var view domain.MarketView
	decodeBody(t, rec, &view)
	if view.Price != 50000 || view.Trend != domain.TrendUp || !view.Connected {
		t.Errorf("unexpected view: %+v", view)
	}
}

func TestHealthCheck(t *testing.T) {
	h := NewHealthHandler(&stubFeed{state: domain.ConnOpen})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	h.HealthCheck(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: want 200, got %d", rec.Code)
	}
	var resp map[string]any
	decodeBody(t, rec, &resp)
	if resp["status"] != "ok" {
		t.Errorf("status field: want ok, got %v", resp["status"])
	}
	if resp["feed_state"] != domain.ConnOpen.String() {
		t.Errorf("feed_state: want %q, got %v", domain.ConnOpen.String(), resp["feed_state"])
	}
}

func TestRetryFeed(t *testing.T) {
	feed := &stubFeed{state: domain.ConnClosed}
	h := NewFeedHandler(feed)

	req := httptest.NewRequest(http.MethodPost, "/api/feed/retry", nil)
	rec := httptest.NewRecorder()
	h.RetryFeed(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status: want 202, got %d", rec.Code)
	}
	if !feed.retried {
		t.Error("retry was not forwarded to the feed")
	}
}
