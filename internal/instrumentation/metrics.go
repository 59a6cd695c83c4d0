package instrumentation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the perp service.
type Metrics struct {
	TicksReceived     prometheus.Counter
	MalformedDropped  prometheus.Counter
	OutOfOrderDropped prometheus.Counter
	SnapshotsApplied  *prometheus.CounterVec
	Reconnects        prometheus.Counter
	PollFailures      prometheus.Counter
	OrdersExecuted    prometheus.Counter
	OrdersRejected    prometheus.Counter
	OpenPositions     prometheus.Gauge
}

// New creates and registers all metrics on the given registerer. Tests
// pass a fresh prometheus.NewRegistry() to avoid cross-test collisions.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TicksReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "perpd_feed_ticks_received_total",
			Help: "Total number of structurally valid ticker messages received",
		}),
		MalformedDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "perpd_feed_malformed_dropped_total",
			Help: "Total number of malformed feed messages silently dropped",
		}),
		OutOfOrderDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "perpd_feed_out_of_order_dropped_total",
			Help: "Total number of messages dropped by the sequence monotonic guard",
		}),
		SnapshotsApplied: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "perpd_snapshots_applied_total",
			Help: "Total number of snapshots applied to the price state by source",
		}, []string{"source"}),
		Reconnects: factory.NewCounter(prometheus.CounterOpts{
			Name: "perpd_feed_reconnects_total",
			Help: "Total number of websocket reconnect attempts",
		}),
		PollFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "perpd_fallback_poll_failures_total",
			Help: "Total number of failed fallback REST fetches",
		}),
		OrdersExecuted: factory.NewCounter(prometheus.CounterOpts{
			Name: "perpd_orders_executed_total",
			Help: "Total number of successfully simulated orders",
		}),
		OrdersRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "perpd_orders_rejected_total",
			Help: "Total number of rejected order requests",
		}),
		OpenPositions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "perpd_open_positions",
			Help: "Number of currently open positions",
		}),
	}
}
