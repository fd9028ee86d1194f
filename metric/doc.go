// Package metric provides Prometheus metrics for the classification pipeline.
//
// MetricsRegistry owns a private prometheus.Registry pre-populated with the
// core pipeline metrics (ingestion, per-domain classification latency, model
// server calls, sink delivery, alerts) plus Go runtime collectors. Components
// with their own metrics (buffer, processor, model servers) register them
// through the MetricsRegistrar interface under a component-scoped key so
// duplicate registrations fail loudly at startup instead of silently
// colliding at scrape time.
package metric
