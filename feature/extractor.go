// Package feature implements per-domain feature extraction over buffered
// signal windows.
//
// Each classification domain has one Extractor producing a fixed-length
// named feature vector. Extraction is a pure function of the input window,
// with one documented exception: the sleep-stage extractor keeps a bounded
// one-epoch trailing history for spindle continuity. Numeric instability
// (near-zero denominators, degenerate spectra) never surfaces as an error;
// the affected feature is substituted with a neutral zero and the vector is
// flagged degraded so downstream consumers can discount the result.
package feature

import (
	"fmt"
	"math"

	"github.com/c360/neurostream/errors"
	"github.com/c360/neurostream/neural"
)

// Extractor converts one window into a fixed-length feature vector for its
// domain.
type Extractor interface {
	Domain() neural.Domain
	FeatureNames() []string
	Extract(w neural.Window) (neural.FeatureVector, error)
}

// Config describes the stream geometry an extractor expects, plus optional
// auxiliary channel assignments for polysomnographic domains.
type Config struct {
	Channels     int
	SamplingRate float64

	// EOGChannel and EMGChannel are channel indices for sleep staging,
	// or -1 when the montage carries no such channel.
	EOGChannel int
	EMGChannel int
}

// DefaultConfig returns a config for a plain EEG montage with no auxiliary
// channels.
func DefaultConfig(channels int, samplingRate float64) Config {
	return Config{
		Channels:     channels,
		SamplingRate: samplingRate,
		EOGChannel:   -1,
		EMGChannel:   -1,
	}
}

// NewExtractor constructs the extractor for a domain.
func NewExtractor(domain neural.Domain, cfg Config) (Extractor, error) {
	switch domain {
	case neural.DomainMentalState:
		return NewMentalState(cfg), nil
	case neural.DomainSleepStage:
		return NewSleepStage(cfg), nil
	case neural.DomainMotorImagery:
		return NewMotorImagery(cfg), nil
	case neural.DomainSeizureRisk:
		return NewSeizureRisk(cfg), nil
	default:
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %q", errors.ErrUnknownDomain, domain),
			"feature", "NewExtractor", "domain lookup")
	}
}

// validateWindow checks the window against the configured geometry.
func validateWindow(w neural.Window, cfg Config, component string) error {
	if w.NumChannels() != cfg.Channels {
		return errors.WrapInvalid(
			fmt.Errorf("%w: got %d channels, want %d", errors.ErrInvalidWindow, w.NumChannels(), cfg.Channels),
			component, "Extract", "channel count check")
	}
	if w.SamplingRate != cfg.SamplingRate {
		return errors.WrapInvalid(
			fmt.Errorf("%w: got %.1f Hz, want %.1f Hz", errors.ErrInvalidWindow, w.SamplingRate, cfg.SamplingRate),
			component, "Extract", "sampling rate check")
	}
	if w.NumSamples() == 0 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: empty window", errors.ErrInvalidWindow),
			component, "Extract", "window length check")
	}
	return nil
}

// vectorBuilder accumulates named features and degradation flags, then
// sanitizes the final vector: any NaN/Inf is substituted with zero and the
// feature is recorded as degraded.
type vectorBuilder struct {
	domain    neural.Domain
	windowEnd float64
	names     []string
	values    []float64
	degraded  []string
}

func newVectorBuilder(domain neural.Domain, w neural.Window) *vectorBuilder {
	return &vectorBuilder{domain: domain, windowEnd: w.End}
}

// add appends a feature value under name.
func (b *vectorBuilder) add(name string, v float64) {
	b.names = append(b.names, name)
	b.values = append(b.values, v)
}

// addRatio appends num/den, substituting a neutral zero and flagging the
// feature degraded when the denominator is numerically unstable.
func (b *vectorBuilder) addRatio(name string, num, den float64) {
	if v, ok := safeRatio(num, den); ok {
		b.add(name, v)
		return
	}
	b.add(name, 0)
	b.degraded = append(b.degraded, name)
}

// markDegraded flags a feature that was already added with a neutral value.
func (b *vectorBuilder) markDegraded(name string) {
	b.degraded = append(b.degraded, name)
}

// build finalizes the vector, sanitizing non-finite values.
func (b *vectorBuilder) build() neural.FeatureVector {
	for i, v := range b.values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			b.values[i] = 0
			b.degraded = append(b.degraded, b.names[i])
		}
	}
	return neural.FeatureVector{
		Domain:          b.domain,
		Names:           b.names,
		Values:          b.values,
		WindowEnd:       b.windowEnd,
		Degraded:        len(b.degraded) > 0,
		DegradedReasons: b.degraded,
	}
}
