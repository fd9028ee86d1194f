package modelserver

import (
	"context"
	"time"

	"github.com/c360/neurostream/metric"
	"github.com/c360/neurostream/neural"
)

// Instrumented decorates a server with pipeline metrics, recording call
// outcome and duration per backend and domain.
type Instrumented struct {
	inner   Server
	metrics *metric.Metrics
}

// Instrument wraps a server so every Infer call is recorded. Returns the
// server unchanged when metrics is nil.
func Instrument(inner Server, metrics *metric.Metrics) Server {
	if metrics == nil {
		return inner
	}
	return &Instrumented{inner: inner, metrics: metrics}
}

// Infer delegates to the wrapped server and records the outcome.
func (s *Instrumented) Infer(ctx context.Context, domain neural.Domain, fv neural.FeatureVector) (RawOutput, error) {
	start := time.Now()
	out, err := s.inner.Infer(ctx, domain, fv)
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordInference(s.inner.Name(), string(domain), status, time.Since(start))
	return out, err
}

// Name returns the wrapped server's identifier.
func (s *Instrumented) Name() string { return s.inner.Name() }

// Close closes the wrapped server.
func (s *Instrumented) Close() error { return s.inner.Close() }
