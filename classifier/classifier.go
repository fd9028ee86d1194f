package classifier

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/c360/neurostream/errors"
	"github.com/c360/neurostream/modelserver"
	"github.com/c360/neurostream/neural"
)

// DefaultTimeout bounds one classification's model call when the config
// does not set a domain budget.
const DefaultTimeout = 100 * time.Millisecond

// Classifier produces a typed result for one domain's feature vectors.
//
// Implementations are safe for concurrent use, though the stream processor
// calls each from a single goroutine.
type Classifier interface {
	// Domain returns the domain this classifier serves.
	Domain() neural.Domain

	// Classify scores a feature vector and maps it to a domain result.
	// A nil error with Quality degraded means the model failed but the
	// domain's policy substitutes a neutral result.
	Classify(ctx context.Context, fv neural.FeatureVector) (neural.Result, error)
}

// Config configures a classifier.
type Config struct {
	// Server performs the raw scoring. Required.
	Server modelserver.Server

	// Timeout bounds the model call (default: DefaultTimeout).
	Timeout time.Duration

	// Risk configures seizure score bucketing. Ignored by other domains.
	Risk RiskThresholds

	// WarningWindowMinutes is the seizure early-warning horizon reported
	// in results (default: 20). Ignored by other domains.
	WarningWindowMinutes float64

	// Logger for degraded-path warnings (optional, defaults to slog.Default()).
	Logger *slog.Logger
}

// New creates the classifier for a domain.
func New(domain neural.Domain, cfg Config) (Classifier, error) {
	if cfg.Server == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "classifier", "New",
			"model server is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	switch domain {
	case neural.DomainMentalState:
		return newMentalState(cfg), nil
	case neural.DomainSleepStage:
		return newSleepStage(cfg), nil
	case neural.DomainMotorImagery:
		return newMotorImagery(cfg), nil
	case neural.DomainSeizureRisk:
		return newSeizureRisk(cfg)
	default:
		return nil, errors.WrapInvalid(errors.ErrUnknownDomain, "classifier", "New",
			"unknown domain "+string(domain))
	}
}

// infer runs the model call under the configured timeout and stamps the
// shared result fields.
func infer(ctx context.Context, cfg Config, domain neural.Domain, fv neural.FeatureVector) (modelserver.RawOutput, error) {
	callCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	return cfg.Server.Infer(callCtx, domain, fv)
}

// newShell creates the result shell shared by all domains: window linkage
// and degraded quality carried over from feature extraction.
func newShell(domain neural.Domain, fv neural.FeatureVector) neural.Result {
	r := neural.NewResult(domain)
	r.WindowEnd = fv.WindowEnd
	if fv.Degraded {
		r.Quality = neural.QualityDegraded
	}
	return r
}

// softmax converts raw scores to a probability distribution, shifted by
// the max score for numeric stability.
func softmax(scores []float64) []float64 {
	if len(scores) == 0 {
		return nil
	}
	maxScore := scores[0]
	for _, s := range scores[1:] {
		if s > maxScore {
			maxScore = s
		}
	}

	probs := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		probs[i] = math.Exp(s - maxScore)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// argmax returns the index and value of the largest probability.
func argmax(probs []float64) (int, float64) {
	best, bestVal := 0, math.Inf(-1)
	for i, p := range probs {
		if p > bestVal {
			best, bestVal = i, p
		}
	}
	return best, bestVal
}
