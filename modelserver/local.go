package modelserver

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"sync"

	"github.com/c360/neurostream/errors"
	"github.com/c360/neurostream/neural"
)

// LocalVersion is the model version reported by the in-process models.
const LocalVersion = "local-v1"

// Local runs linear models in-process. Inference is a matrix multiply,
// always available and microsecond-scale, which makes Local both a usable
// standalone backend and the safety net behind Fallback.
//
// Weights are generated deterministically per domain and input width, so
// identical feature vectors always score identically across restarts.
// Production deployments replace them via WithWeights.
type Local struct {
	mu      sync.Mutex
	models  map[modelKey]*linearModel
	version string
}

type modelKey struct {
	domain neural.Domain
	width  int
}

type linearModel struct {
	weights [][]float64 // [class][feature]
	bias    []float64
}

// LocalOption configures a Local server.
type LocalOption func(*Local)

// WithWeights installs explicit weights for one domain, replacing the
// generated defaults. Weights are [class][feature]; bias is per class.
func WithWeights(domain neural.Domain, weights [][]float64, bias []float64) LocalOption {
	return func(l *Local) {
		if len(weights) == 0 || len(weights[0]) == 0 {
			return
		}
		l.models[modelKey{domain, len(weights[0])}] = &linearModel{weights: weights, bias: bias}
	}
}

// NewLocal creates an in-process model server.
func NewLocal(opts ...LocalOption) *Local {
	l := &Local{
		models:  make(map[modelKey]*linearModel),
		version: LocalVersion,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Infer scores a feature vector with the domain's linear model.
func (l *Local) Infer(_ context.Context, domain neural.Domain, fv neural.FeatureVector) (RawOutput, error) {
	if !domain.Valid() {
		return RawOutput{}, errors.WrapInvalid(errors.ErrUnknownDomain, "Local", "Infer",
			"unknown domain "+string(domain))
	}
	if err := fv.Validate(); err != nil {
		return RawOutput{}, errors.WrapInvalid(err, "Local", "Infer", "invalid feature vector")
	}

	m := l.model(domain, fv.Len())
	scores := m.score(fv.Values)

	if domain == neural.DomainSeizureRisk {
		// Single logistic score in (0, 1).
		scores[0] = 1 / (1 + math.Exp(-scores[0]))
	}
	return RawOutput{Scores: scores, ModelVersion: l.version}, nil
}

// Name returns the backend identifier.
func (l *Local) Name() string { return "local" }

// Close is a no-op for in-process models.
func (l *Local) Close() error { return nil }

// model returns the linear model for a domain and input width, generating
// deterministic weights on first use.
func (l *Local) model(domain neural.Domain, width int) *linearModel {
	key := modelKey{domain, width}
	l.mu.Lock()
	defer l.mu.Unlock()
	if m, ok := l.models[key]; ok {
		return m
	}
	m := generateModel(domain, width)
	l.models[key] = m
	return m
}

// generateModel builds weights from a PRNG seeded by the domain name, so
// the same domain and input width always yields the same model.
func generateModel(domain neural.Domain, width int) *linearModel {
	h := fnv.New64a()
	h.Write([]byte(domain))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	classes := classCount(domain)
	weights := make([][]float64, classes)
	bias := make([]float64, classes)
	for c := range weights {
		weights[c] = make([]float64, width)
		for f := range weights[c] {
			weights[c][f] = rng.NormFloat64()
		}
		bias[c] = 0.1 * rng.NormFloat64()
	}
	return &linearModel{weights: weights, bias: bias}
}

// score computes w*squash(x)+b. Features are squashed into (-1, 1) first:
// raw band powers span many orders of magnitude and would otherwise
// saturate the downstream softmax.
func (m *linearModel) score(features []float64) []float64 {
	squashed := make([]float64, len(features))
	for i, v := range features {
		squashed[i] = v / (1 + math.Abs(v))
	}

	scores := make([]float64, len(m.weights))
	for c, row := range m.weights {
		s := 0.0
		if c < len(m.bias) {
			s = m.bias[c]
		}
		n := len(row)
		if len(squashed) < n {
			n = len(squashed)
		}
		for f := 0; f < n; f++ {
			s += row[f] * squashed[f]
		}
		scores[c] = s
	}
	return scores
}
