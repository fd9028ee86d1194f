// Package config loads and validates the pipeline configuration: stream
// geometry, per-domain windowing and latency budgets, model backend
// selection, and sink wiring.
//
// Configuration is a JSON file layered over defaults, with a small set of
// environment overrides (NEUROSTREAM_NATS_URL, NEUROSTREAM_MODEL_ENDPOINT,
// NEUROSTREAM_LOG_LEVEL) for deployment-specific values that should not
// live in the file. Load never returns an unvalidated config.
package config
