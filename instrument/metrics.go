package instrument

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "postal"

// Call outcomes used as the outcome label of CallsTotal.
const (
	OutcomeOK       = "ok"
	OutcomeEmpty    = "empty"
	OutcomeArgument = "argument"
	OutcomeEncoding = "encoding"
	OutcomeError    = "error"
)

// Metrics holds the collectors recorded around backend calls.
type Metrics struct {
	// CallsTotal counts backend calls.
	// Labels: op, outcome (ok, empty, argument, encoding, error)
	CallsTotal *prometheus.CounterVec

	// CallDurationSeconds measures backend call latency.
	// Labels: op
	CallDurationSeconds *prometheus.HistogramVec

	// Results measures how many items a successful call returned.
	// Labels: op
	Results *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "calls_total",
				Help:      "Total number of libpostal calls by operation and outcome",
			},
			[]string{"op", "outcome"},
		),

		CallDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "call_duration_seconds",
				Help:      "Duration of libpostal calls in seconds",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"op"},
		),

		Results: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "results",
				Help:      "Number of items returned per successful libpostal call",
				Buckets:   []float64{0, 1, 2, 4, 8, 16, 32, 64, 128},
			},
			[]string{"op"},
		),
	}
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the collectors registered with the default
// Prometheus registry, creating them on first use.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		defaultMetrics = NewMetrics(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}
