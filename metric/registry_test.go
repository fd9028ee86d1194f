package metric

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegistry(t *testing.T) {
	r := NewMetricsRegistry()
	require.NotNil(t, r)
	require.NotNil(t, r.CoreMetrics())
	require.NotNil(t, r.PrometheusRegistry())

	// Core metrics must be gatherable without errors
	families, err := r.PrometheusRegistry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families, "runtime collectors should produce families")
}

func TestRegisterAndUnregisterComponentMetric(t *testing.T) {
	r := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_component_ops_total",
		Help: "test counter",
	})

	require.NoError(t, r.RegisterCounter("ring-buffer", "ops_total", counter))

	// Duplicate key must be rejected
	err := r.RegisterCounter("ring-buffer", "ops_total", counter)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")

	assert.True(t, r.Unregister("ring-buffer", "ops_total"))
	assert.False(t, r.Unregister("ring-buffer", "ops_total"), "second unregister is a no-op")

	// After unregistering, the same name can be registered again
	require.NoError(t, r.RegisterCounter("ring-buffer", "ops_total", counter))
}

func TestCoreMetricRecorders(t *testing.T) {
	r := NewMetricsRegistry()
	m := r.CoreMetrics()

	m.RecordSampleIngested("synthetic")
	m.RecordWindowExtracted("mental_state")
	m.RecordClassification("mental_state", "ok")
	m.RecordClassificationLatency("mental_state", 12*time.Millisecond)
	m.RecordInference("local", "mental_state", "ok", time.Millisecond)
	m.RecordResultEmitted()
	m.RecordResultDropped()
	m.RecordAlert("seizure_risk", "model_timeout")
	m.RecordPipelineStatus("seizure_risk", 1)
	m.RecordError("processor", "transient")

	families, err := r.PrometheusRegistry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["neurostream_ingest_samples_total"])
	assert.True(t, names["neurostream_pipeline_latency_seconds"])
	assert.True(t, names["neurostream_pipeline_alerts_total"])
	assert.True(t, names["neurostream_sink_results_dropped_total"])
}
