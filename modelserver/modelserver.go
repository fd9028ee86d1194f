package modelserver

import (
	"context"

	"github.com/c360/neurostream/neural"
)

// RawOutput is the uninterpreted result of one inference call. Scores are
// in model output order; the classifier layer owns the mapping to labels
// and the confidence calibration.
type RawOutput struct {
	// Scores holds one raw score per output class. For the seizure-risk
	// domain this is a single probability-like score.
	Scores []float64

	// ModelVersion identifies the model that produced the scores, for
	// result provenance.
	ModelVersion string
}

// Server produces raw model scores for a feature vector.
//
// Implementations must be safe for concurrent use; the stream processor
// calls Infer from one goroutine per domain.
type Server interface {
	// Infer scores a feature vector. The context carries the caller's
	// latency budget; implementations must return promptly once it is
	// cancelled.
	Infer(ctx context.Context, domain neural.Domain, fv neural.FeatureVector) (RawOutput, error)

	// Name identifies the backend for logging and metrics.
	Name() string

	// Close releases any held resources.
	Close() error
}

// classCount returns the number of output classes for a domain.
func classCount(domain neural.Domain) int {
	if domain == neural.DomainSeizureRisk {
		return 1
	}
	return 5
}
