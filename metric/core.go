package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all pipeline-level metrics (not component-specific)
type Metrics struct {
	// Ingestion metrics
	SamplesIngested  *prometheus.CounterVec
	WindowsExtracted *prometheus.CounterVec

	// Classification metrics
	Classifications       *prometheus.CounterVec
	ClassificationLatency *prometheus.HistogramVec

	// Model server metrics
	ModelInferences   *prometheus.CounterVec
	InferenceDuration *prometheus.HistogramVec

	// Delivery metrics
	ResultsEmitted prometheus.Counter
	ResultsDropped prometheus.Counter
	AlertsTotal    *prometheus.CounterVec

	// Pipeline health
	PipelineStatus *prometheus.GaugeVec
	ErrorsTotal    *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all pipeline metrics
func NewMetrics() *Metrics {
	return &Metrics{
		SamplesIngested: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "neurostream",
				Subsystem: "ingest",
				Name:      "samples_total",
				Help:      "Total number of neural samples ingested",
			},
			[]string{"source"},
		),

		WindowsExtracted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "neurostream",
				Subsystem: "pipeline",
				Name:      "windows_total",
				Help:      "Total number of windows read for feature extraction",
			},
			[]string{"domain"},
		),

		Classifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "neurostream",
				Subsystem: "pipeline",
				Name:      "classifications_total",
				Help:      "Total number of classification results by outcome",
			},
			[]string{"domain", "status"},
		),

		ClassificationLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "neurostream",
				Subsystem: "pipeline",
				Name:      "latency_seconds",
				Help:      "End-to-end extract+classify latency per domain",
				Buckets:   []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.09, 0.1, 0.25, 0.5, 1.0},
			},
			[]string{"domain"},
		),

		ModelInferences: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "neurostream",
				Subsystem: "model",
				Name:      "inferences_total",
				Help:      "Total number of model server inference calls by outcome",
			},
			[]string{"backend", "domain", "status"},
		),

		InferenceDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "neurostream",
				Subsystem: "model",
				Name:      "inference_duration_seconds",
				Help:      "Model server inference call duration",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
			},
			[]string{"backend", "domain"},
		),

		ResultsEmitted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "neurostream",
				Subsystem: "sink",
				Name:      "results_emitted_total",
				Help:      "Total number of classification results delivered to sinks",
			},
		),

		ResultsDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "neurostream",
				Subsystem: "sink",
				Name:      "results_dropped_total",
				Help:      "Total number of results dropped past the bounded sink queue",
			},
		),

		AlertsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "neurostream",
				Subsystem: "pipeline",
				Name:      "alerts_total",
				Help:      "Total number of escalated alert events",
			},
			[]string{"domain", "reason"},
		),

		PipelineStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "neurostream",
				Subsystem: "pipeline",
				Name:      "status",
				Help:      "Pipeline status per domain (0=stopped, 1=running, 2=failed)",
			},
			[]string{"domain"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "neurostream",
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors by component and class",
			},
			[]string{"component", "class"},
		),
	}
}

// RecordSampleIngested increments the ingested sample counter
func (c *Metrics) RecordSampleIngested(source string) {
	c.SamplesIngested.WithLabelValues(source).Inc()
}

// RecordWindowExtracted increments the window counter for a domain
func (c *Metrics) RecordWindowExtracted(domain string) {
	c.WindowsExtracted.WithLabelValues(domain).Inc()
}

// RecordClassification increments the classification counter
func (c *Metrics) RecordClassification(domain, status string) {
	c.Classifications.WithLabelValues(domain, status).Inc()
}

// RecordClassificationLatency records end-to-end extract+classify latency
func (c *Metrics) RecordClassificationLatency(domain string, d time.Duration) {
	c.ClassificationLatency.WithLabelValues(domain).Observe(d.Seconds())
}

// RecordInference records a model server call outcome and duration
func (c *Metrics) RecordInference(backend, domain, status string, d time.Duration) {
	c.ModelInferences.WithLabelValues(backend, domain, status).Inc()
	c.InferenceDuration.WithLabelValues(backend, domain).Observe(d.Seconds())
}

// RecordResultEmitted increments the delivered result counter
func (c *Metrics) RecordResultEmitted() {
	c.ResultsEmitted.Inc()
}

// RecordResultDropped increments the dropped result counter
func (c *Metrics) RecordResultDropped() {
	c.ResultsDropped.Inc()
}

// RecordAlert increments the alert counter
func (c *Metrics) RecordAlert(domain, reason string) {
	c.AlertsTotal.WithLabelValues(domain, reason).Inc()
}

// RecordPipelineStatus updates the per-domain pipeline status gauge
func (c *Metrics) RecordPipelineStatus(domain string, status int) {
	c.PipelineStatus.WithLabelValues(domain).Set(float64(status))
}

// RecordError increments the error counter
func (c *Metrics) RecordError(component, class string) {
	c.ErrorsTotal.WithLabelValues(component, class).Inc()
}
