// Package metrics registers the Prometheus instruments the triage
// pipeline exposes, so operators can watch queue depth, storm activity,
// circuit-breaker health, and assignment latency without reading logs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every instrument the pipeline updates. A zero-value
// Metrics is never used directly — always build one via New so the
// instruments are registered with the default registry exactly once.
type Metrics struct {
	QueueDepth        prometheus.Gauge
	StormVerdicts     *prometheus.CounterVec
	BreakerTrips      prometheus.Counter
	AssignmentLatency prometheus.Histogram
	TicketsIngested   *prometheus.CounterVec
}

// New registers and returns the pipeline's metric instruments.
func New() *Metrics {
	return &Metrics{
		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "triagex_queue_depth",
			Help: "Number of tickets currently waiting in the priority queue.",
		}),
		StormVerdicts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "triagex_storm_verdicts_total",
			Help: "Count of storm-detector verdicts by outcome.",
		}, []string{"verdict"}),
		BreakerTrips: promauto.NewCounter(prometheus.CounterOpts{
			Name: "triagex_breaker_fallbacks_total",
			Help: "Count of primary-classifier dispatches that fell back to the keyword path.",
		}),
		AssignmentLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "triagex_assignment_latency_seconds",
			Help:    "Time taken to solve a single routing batch.",
			Buckets: prometheus.DefBuckets,
		}),
		TicketsIngested: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "triagex_tickets_ingested_total",
			Help: "Count of tickets accepted by category.",
		}, []string{"category"}),
	}
}
