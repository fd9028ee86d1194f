// Package buffer provides the shared ring buffer at the center of the
// classification pipeline.
//
// The Ring holds the most recent capacity samples of a fixed-geometry
// multi-channel stream. It follows a single-writer/multi-reader discipline:
// the stream processor's ingestion loop is the only writer, and each domain
// pipeline reads windows concurrently. Writes never block on readers and
// never fail on overflow; the oldest data is silently displaced, which is
// the intended retention policy for a continuous monitoring stream.
//
// ReadWindow materializes a private channel-major copy of the most recent
// window so extractors can compute over it without holding any lock.
package buffer
