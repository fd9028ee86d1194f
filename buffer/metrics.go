package buffer

import (
	"github.com/c360/neurostream/metric"
	"github.com/prometheus/client_golang/prometheus"
)

// ringMetrics holds Prometheus metrics for ring buffer operations.
type ringMetrics struct {
	writes       prometheus.Counter
	reads        prometheus.Counter
	overwrites   prometheus.Counter
	insufficient prometheus.Counter

	size        prometheus.Gauge
	utilization prometheus.Gauge
}

// newRingMetrics creates and registers ring metrics with the provided registry.
func newRingMetrics(registry *metric.MetricsRegistry, prefix string) (*ringMetrics, error) {
	m := &ringMetrics{
		writes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "neurostream",
			Subsystem:   "buffer",
			Name:        "writes_total",
			ConstLabels: prometheus.Labels{"component": prefix},
			Help:        "Total number of sample writes",
		}),
		reads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "neurostream",
			Subsystem:   "buffer",
			Name:        "window_reads_total",
			ConstLabels: prometheus.Labels{"component": prefix},
			Help:        "Total number of successful window reads",
		}),
		overwrites: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "neurostream",
			Subsystem:   "buffer",
			Name:        "overwrites_total",
			ConstLabels: prometheus.Labels{"component": prefix},
			Help:        "Total number of samples displaced by overwriting writes",
		}),
		insufficient: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "neurostream",
			Subsystem:   "buffer",
			Name:        "insufficient_reads_total",
			ConstLabels: prometheus.Labels{"component": prefix},
			Help:        "Total number of window reads rejected for lack of data",
		}),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "neurostream",
			Subsystem:   "buffer",
			Name:        "size",
			ConstLabels: prometheus.Labels{"component": prefix},
			Help:        "Current number of buffered samples",
		}),
		utilization: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "neurostream",
			Subsystem:   "buffer",
			Name:        "utilization",
			ConstLabels: prometheus.Labels{"component": prefix},
			Help:        "Buffer utilization as a fraction (0.0 to 1.0)",
		}),
	}

	if err := registry.RegisterCounter(prefix, "buffer_writes", m.writes); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(prefix, "buffer_window_reads", m.reads); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(prefix, "buffer_overwrites", m.overwrites); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(prefix, "buffer_insufficient_reads", m.insufficient); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge(prefix, "buffer_size", m.size); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge(prefix, "buffer_utilization", m.utilization); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *ringMetrics) recordWrite(size, capacity int, overwrote bool) {
	m.writes.Inc()
	if overwrote {
		m.overwrites.Inc()
	}
	m.updateSize(size, capacity)
}

func (m *ringMetrics) recordRead() {
	m.reads.Inc()
}

func (m *ringMetrics) recordInsufficient() {
	m.insufficient.Inc()
}

func (m *ringMetrics) updateSize(size, capacity int) {
	m.size.Set(float64(size))
	m.utilization.Set(float64(size) / float64(capacity))
}
