package buffer

import "github.com/c360/neurostream/metric"

// ringOptions holds optional ring configuration.
type ringOptions struct {
	metricsReg    *metric.MetricsRegistry
	metricsPrefix string
}

// Option configures a Ring at construction time.
type Option func(*ringOptions)

// WithMetricsRegistry enables Prometheus metrics for the ring, registered
// under the given component prefix.
func WithMetricsRegistry(reg *metric.MetricsRegistry, prefix string) Option {
	return func(o *ringOptions) {
		o.metricsReg = reg
		o.metricsPrefix = prefix
	}
}

func newRingOptions(opts ...Option) *ringOptions {
	o := &ringOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
