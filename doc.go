// Package neurostream is a real-time neural signal classification pipeline.
//
// NeuroStream ingests multi-channel neural samples (EEG and companion
// polysomnographic channels) into a lossy time-indexed ring buffer and runs
// four classification domains concurrently against the shared buffer:
// mental-state, sleep-stage, motor-imagery, and seizure-risk. Each domain
// owns an independent pipeline goroutine so a slow domain never delays a
// fast one. Inference is delegated to a pluggable model server (local
// in-process models, a remote HTTP inference service, or a fallback chain).
//
// The top-level packages are:
//
//   - neural: core data model (samples, windows, feature vectors, results)
//   - buffer: the shared single-writer/multi-reader ring buffer
//   - feature: per-domain feature extractors (spectral, statistical, synchrony)
//   - classifier: per-domain post-processing over raw inference scores
//   - modelserver: local/remote/fallback inference backends
//   - processor: the stream orchestrator (ingestion, fan-out, sinks, alerts)
//   - input, output: ingestion sources and result sinks
package neurostream
