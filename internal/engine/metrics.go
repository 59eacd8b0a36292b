package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus metrics for ledger calls.
type Metrics struct {
	callDuration *prometheus.HistogramVec
	callsTotal   *prometheus.CounterVec
	eventsTotal  *prometheus.CounterVec
}

// NewMetrics creates and registers the engine metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		callDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ledger_call_duration_seconds",
			Help:    "Time taken to execute one ledger call, including snapshot and rollback.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		callsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_calls_total",
			Help: "Total number of ledger calls, labeled by operation and result.",
		}, []string{"op", "result"}),
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_events_total",
			Help: "Total number of committed ledger events, labeled by event name.",
		}, []string{"event"}),
	}
	reg.MustRegister(m.callDuration, m.callsTotal, m.eventsTotal)
	return m
}
