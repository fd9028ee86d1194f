package processor

import (
	"github.com/c360/neurostream/metric"
	"github.com/prometheus/client_golang/prometheus"
)

// procMetrics holds processor-specific metrics beyond the core pipeline
// set: queue pressure and trigger coalescing.
type procMetrics struct {
	queueDepth        prometheus.Gauge
	triggersCoalesced prometheus.Counter
}

// newProcMetrics creates and registers processor metrics.
func newProcMetrics(registry *metric.MetricsRegistry) (*procMetrics, error) {
	m := &procMetrics{
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "neurostream",
			Subsystem:   "pipeline",
			Name:        "result_queue_depth",
			ConstLabels: prometheus.Labels{"component": "processor"},
			Help:        "Current number of results waiting for dispatch",
		}),
		triggersCoalesced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "neurostream",
			Subsystem:   "pipeline",
			Name:        "triggers_coalesced_total",
			ConstLabels: prometheus.Labels{"component": "processor"},
			Help:        "Window triggers absorbed by an already-pending trigger",
		}),
	}

	if err := registry.RegisterGauge("processor", "result_queue_depth", m.queueDepth); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter("processor", "triggers_coalesced", m.triggersCoalesced); err != nil {
		return nil, err
	}
	return m, nil
}
