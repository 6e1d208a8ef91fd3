// Package metrics exposes per-operation counters and latency histograms
// through Prometheus, and a Layer that records them transparently for any
// Accessor.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/objectgate/objectgate/pkg/errors"
)

// Collector holds the Prometheus instruments for one backend.
type Collector struct {
	operations *prometheus.CounterVec
	opErrors   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewCollector creates a Collector and registers its instruments with reg.
func NewCollector(reg prometheus.Registerer, scheme string) *Collector {
	labels := prometheus.Labels{"scheme": scheme}

	c := &Collector{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "objectgate",
			Name:        "operations_total",
			Help:        "Total accessor operations started.",
			ConstLabels: labels,
		}, []string{"operation"}),
		opErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "objectgate",
			Name:        "operation_errors_total",
			Help:        "Total accessor operations that failed, by error kind.",
			ConstLabels: labels,
		}, []string{"operation", "kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   "objectgate",
			Name:        "operation_duration_seconds",
			Help:        "Accessor operation latency.",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.001, 2, 15),
		}, []string{"operation"}),
	}

	reg.MustRegister(c.operations, c.opErrors, c.duration)
	return c
}

// Observe records one finished operation.
func (c *Collector) Observe(operation string, seconds float64, err error) {
	c.operations.WithLabelValues(operation).Inc()
	c.duration.WithLabelValues(operation).Observe(seconds)
	if err != nil {
		c.opErrors.WithLabelValues(operation, string(errors.From(err).Kind)).Inc()
	}
}
