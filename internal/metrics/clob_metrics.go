package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ClobMetrics collects the per-market counters and histograms a trading
// operator watches: throughput, rejects, matching latency, book depth.
type ClobMetrics struct {
	ordersPlaced    prometheus.Counter
	ordersRejected  *prometheus.CounterVec
	ordersCancelled prometheus.Counter
	tradesTotal     prometheus.Counter
	baseVolume      prometheus.Counter
	quoteVolume     prometheus.Counter
	matchLatency    prometheus.Histogram
	bookDepth       *prometheus.GaugeVec
}

// NewClobMetrics registers and returns the CLOB metric set.
func NewClobMetrics(registry prometheus.Registerer) *ClobMetrics {
	m := &ClobMetrics{
		ordersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clob_orders_placed_total",
			Help: "Total number of orders accepted by AddOrder.",
		}),
		ordersRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clob_orders_rejected_total",
			Help: "Total number of orders rejected, labeled by error code.",
		}, []string{"code"}),
		ordersCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clob_orders_cancelled_total",
			Help: "Total number of orders cancelled.",
		}),
		tradesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clob_trades_total",
			Help: "Total number of placed orders that traded at least one atom.",
		}),
		baseVolume: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clob_base_atoms_traded_total",
			Help: "Cumulative base atoms traded.",
		}),
		quoteVolume: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clob_quote_atoms_traded_total",
			Help: "Cumulative quote atoms traded.",
		}),
		matchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "clob_match_duration_seconds",
			Help:    "Wall-clock time spent inside AddOrder's matching loop.",
			Buckets: prometheus.DefBuckets,
		}),
		bookDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "clob_book_depth_orders",
			Help: "Number of resting orders on each side of the book.",
		}, []string{"side"}),
	}

	registry.MustRegister(
		m.ordersPlaced,
		m.ordersRejected,
		m.ordersCancelled,
		m.tradesTotal,
		m.baseVolume,
		m.quoteVolume,
		m.matchLatency,
		m.bookDepth,
	)
	return m
}

// ObserveOrderPlaced records a successful AddOrder call: one order
// accepted, plus a fill count and volume if anything traded.
func (m *ClobMetrics) ObserveOrderPlaced(baseTraded, quoteTraded uint64, filled bool, matchSeconds float64) {
	m.ordersPlaced.Inc()
	m.matchLatency.Observe(matchSeconds)
	if filled {
		m.tradesTotal.Inc()
		m.baseVolume.Add(float64(baseTraded))
		m.quoteVolume.Add(float64(quoteTraded))
	}
}

// ObserveOrderRejected records a rejected order, labeled by the
// clobserr.Code string that caused the rejection.
func (m *ClobMetrics) ObserveOrderRejected(code string) {
	m.ordersRejected.WithLabelValues(code).Inc()
}

// ObserveOrderCancelled records a successful cancel.
func (m *ClobMetrics) ObserveOrderCancelled() {
	m.ordersCancelled.Inc()
}

// SetBookDepth reports the current resting-order count for one side.
func (m *ClobMetrics) SetBookDepth(side string, count int) {
	m.bookDepth.WithLabelValues(side).Set(float64(count))
}
