// Package processor orchestrates the classification pipeline: one shared
// ring buffer fed by Ingest, one goroutine per domain cutting windows and
// running extraction plus inference, and a dispatcher fanning results out
// to registered sinks.
//
// Ordering and isolation follow from the goroutine layout. Each domain's
// windows are processed by a single goroutine, so per-domain results are
// emitted in non-decreasing window order without locking, and a slow model
// in one domain never stalls another. A depth-1 pending trigger per domain
// coalesces window triggers that arrive while a window is in flight; a
// bounded result queue drops (and counts) results when sinks cannot keep
// up, because stale classifications are worthless in a real-time stream.
package processor
