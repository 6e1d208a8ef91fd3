package operator

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/objectgate/objectgate/internal/circuit"
	"github.com/objectgate/objectgate/internal/metrics"
	"github.com/objectgate/objectgate/pkg/accessor"
	"github.com/objectgate/objectgate/pkg/retry"
)

type layerFunc func(accessor.Accessor) accessor.Accessor

type options struct {
	retry   layerFunc
	metrics layerFunc
	breaker layerFunc
	timeout time.Duration
}

// Option configures the layers an Operator composes over its backend.
type Option func(*options)

// WithRetry enables the retry layer with the given policy.
func WithRetry(config retry.Config) Option {
	return func(o *options) {
		o.retry = func(acc accessor.Accessor) accessor.Accessor {
			return retry.NewLayer(acc, config)
		}
	}
}

// WithTimeout bounds every operation with a deadline. Zero disables the
// bound.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithMetrics enables the Prometheus layer, registering instruments with
// reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.metrics = func(acc accessor.Accessor) accessor.Accessor {
			return metrics.NewLayer(acc, reg)
		}
	}
}

// WithCircuitBreaker enables the circuit-breaker layer.
func WithCircuitBreaker(config circuit.Config) Option {
	return func(o *options) {
		o.breaker = func(acc accessor.Accessor) accessor.Accessor {
			return circuit.NewLayer(acc, config)
		}
	}
}
