package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/efreitasn/marketmatch/internal/domain"
)

// Metrics exposes clearing activity to Prometheus.
type Metrics struct {
	sessions      *prometheus.CounterVec
	failures      *prometheus.CounterVec
	trades        *prometheus.CounterVec
	tradedVolume  *prometheus.CounterVec
	clearingPrice *prometheus.GaugeVec
	excessDemand  *prometheus.GaugeVec
	openOrders    *prometheus.GaugeVec
	duration      *prometheus.HistogramVec
}

// NewMetrics registers the clearing metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		sessions: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "marketmatch",
				Subsystem: "clearing",
				Name:      "sessions_total",
				Help:      "Clearing sessions completed",
			},
			[]string{"symbol", "algorithm"},
		),
		failures: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "marketmatch",
				Subsystem: "clearing",
				Name:      "failures_total",
				Help:      "Clearing sessions aborted by a matching error",
			},
			[]string{"symbol"},
		),
		trades: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "marketmatch",
				Subsystem: "clearing",
				Name:      "trades_total",
				Help:      "Trades committed",
			},
			[]string{"symbol"},
		),
		tradedVolume: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "marketmatch",
				Subsystem: "clearing",
				Name:      "traded_volume_total",
				Help:      "Volume exchanged across all sessions",
			},
			[]string{"symbol"},
		),
		clearingPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "marketmatch",
				Subsystem: "clearing",
				Name:      "price",
				Help:      "Clearing price of the last session that traded",
			},
			[]string{"symbol"},
		),
		excessDemand: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "marketmatch",
				Subsystem: "clearing",
				Name:      "excess_demand",
				Help:      "Demand minus supply offered in the last session",
			},
			[]string{"symbol"},
		),
		openOrders: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "marketmatch",
				Subsystem: "book",
				Name:      "open_orders",
				Help:      "Orders resting on the book",
			},
			[]string{"symbol", "side"},
		),
		duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "marketmatch",
				Subsystem: "clearing",
				Name:      "duration_seconds",
				Help:      "Time spent clearing a session",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
			[]string{"symbol", "algorithm"},
		),
	}
}

// ObserveSession records a finished session.
func (m *Metrics) ObserveSession(s *domain.Session, took time.Duration) {
	if m == nil {
		return
	}
	m.sessions.WithLabelValues(s.Symbol, s.Algorithm).Inc()
	m.trades.WithLabelValues(s.Symbol).Add(float64(s.TradeCount))
	m.tradedVolume.WithLabelValues(s.Symbol).Add(s.TradedVolume)
	m.excessDemand.WithLabelValues(s.Symbol).Set(s.Excess())
	if s.ClearingPrice != nil {
		m.clearingPrice.WithLabelValues(s.Symbol).Set(*s.ClearingPrice)
	}
	m.duration.WithLabelValues(s.Symbol, s.Algorithm).Observe(took.Seconds())
}

// ObserveFailure counts a session the matching algorithm rejected.
func (m *Metrics) ObserveFailure(symbol string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(symbol).Inc()
}

// ObserveBook records the current depth of a book.
func (m *Metrics) ObserveBook(book *OrderBook) {
	if m == nil {
		return
	}
	m.openOrders.WithLabelValues(book.symbol, string(domain.OrderSideBid)).Set(float64(book.BidCount()))
	m.openOrders.WithLabelValues(book.symbol, string(domain.OrderSideAsk)).Set(float64(book.AskCount()))
}
