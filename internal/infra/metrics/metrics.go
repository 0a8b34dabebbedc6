// Package metrics holds the Prometheus collectors of the engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	TransactionsFinalized *prometheus.CounterVec
	WagersCreated         *prometheus.CounterVec
	Pairings              *prometheus.CounterVec
	PairingRetries        prometheus.Counter
	WagersCancelled       *prometheus.CounterVec
	Settlements           *prometheus.CounterVec
	Disputes              *prometheus.CounterVec
	DroppedEvents         *prometheus.CounterVec
	Subscribers           prometheus.Gauge
	HTTPRequests          *prometheus.CounterVec
	HTTPDuration          *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TransactionsFinalized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wagerengine_transactions_finalized_total",
			Help: "Transactions moved to a terminal status.",
		}, []string{"kind", "status"}),
		WagersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wagerengine_wagers_created_total",
			Help: "Wagers accepted by the pool.",
		}, []string{"mode"}),
		Pairings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wagerengine_pairings_total",
			Help: "Wager pairs matched.",
		}, []string{"mode"}),
		PairingRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wagerengine_pairing_retries_total",
			Help: "Pairing attempts re-scanned after losing a race.",
		}),
		WagersCancelled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wagerengine_wagers_cancelled_total",
			Help: "Wagers cancelled and refunded.",
		}, []string{"cause"}),
		Settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wagerengine_settlements_total",
			Help: "Matches settled.",
		}, []string{"result"}),
		Disputes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wagerengine_disputes_total",
			Help: "Matches escalated to manual adjudication.",
		}, []string{"reason"}),
		DroppedEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wagerengine_notify_dropped_total",
			Help: "Notifications dropped because a subscriber was slow.",
		}, []string{"type"}),
		Subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wagerengine_notify_subscribers",
			Help: "Open notification streams.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wagerengine_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"method", "route", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wagerengine_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		m.TransactionsFinalized,
		m.WagersCreated,
		m.Pairings,
		m.PairingRetries,
		m.WagersCancelled,
		m.Settlements,
		m.Disputes,
		m.DroppedEvents,
		m.Subscribers,
		m.HTTPRequests,
		m.HTTPDuration,
	)

	return m
}

// NewUnregistered is New against a throwaway registry.
func NewUnregistered() *Metrics {
	return New(prometheus.NewRegistry())
}
