package neural

import (
	"fmt"
	"time"

	"github.com/c360/neurostream/errors"
)

// Domain identifies one classification task family.
type Domain string

const (
	// DomainMentalState classifies cognitive state (focus, relaxation, stress)
	DomainMentalState Domain = "mental_state"
	// DomainSleepStage classifies polysomnographic sleep stages on 30s epochs
	DomainSleepStage Domain = "sleep_stage"
	// DomainMotorImagery classifies imagined movement for BCI control
	DomainMotorImagery Domain = "motor_imagery"
	// DomainSeizureRisk estimates seizure risk over an early-warning horizon
	DomainSeizureRisk Domain = "seizure_risk"
)

// Domains lists all supported classification domains.
var Domains = []Domain{DomainMentalState, DomainSleepStage, DomainMotorImagery, DomainSeizureRisk}

// Valid reports whether d is a known domain.
func (d Domain) Valid() bool {
	switch d {
	case DomainMentalState, DomainSleepStage, DomainMotorImagery, DomainSeizureRisk:
		return true
	}
	return false
}

// Sample is one timestamped multi-channel measurement block produced by an
// ingestion source. Samples are immutable once created; the buffer copies
// channel values on write so sources may reuse their slices.
type Sample struct {
	// Timestamp is a monotonic acquisition time in seconds.
	Timestamp float64 `json:"timestamp"`
	// Channels holds one value per channel in fixed configured order.
	Channels []float64 `json:"channels"`
	// SamplingRate is the acquisition rate in Hz.
	SamplingRate float64 `json:"sampling_rate"`
	// SourceID identifies the producing device or stream.
	SourceID string `json:"source_id"`
}

// Validate checks sample invariants against the configured stream geometry.
func (s Sample) Validate(channels int, samplingRate float64) error {
	if len(s.Channels) != channels {
		return errors.WrapInvalid(
			fmt.Errorf("%w: got %d channels, want %d", errors.ErrInvalidWindow, len(s.Channels), channels),
			"Sample", "Validate", "channel count check")
	}
	if s.SamplingRate != samplingRate {
		return errors.WrapInvalid(
			fmt.Errorf("%w: got %.1f Hz, want %.1f Hz", errors.ErrInvalidWindow, s.SamplingRate, samplingRate),
			"Sample", "Validate", "sampling rate check")
	}
	return nil
}

// Window is a materialized contiguous slice of buffered samples in
// channel-major layout. Windows are produced only by the ring buffer and are
// private copies: extractors may read them without further locking.
type Window struct {
	// Start and End are the timestamps of the first and last sample (seconds).
	Start float64
	End   float64
	// SamplingRate of the underlying stream in Hz.
	SamplingRate float64
	// Data holds per-channel sample series: Data[ch][i] is channel ch at index i.
	Data [][]float64
	// SourceID of the stream the window was cut from.
	SourceID string
}

// NumChannels returns the channel count of the window.
func (w Window) NumChannels() int { return len(w.Data) }

// NumSamples returns the per-channel sample count of the window.
func (w Window) NumSamples() int {
	if len(w.Data) == 0 {
		return 0
	}
	return len(w.Data[0])
}

// Duration returns the nominal window duration derived from the sample count.
func (w Window) Duration() time.Duration {
	if w.SamplingRate <= 0 {
		return 0
	}
	return time.Duration(float64(w.NumSamples()) / w.SamplingRate * float64(time.Second))
}

// FeatureVector is a fixed-length, named numeric summary of one window,
// specific to a classification domain.
type FeatureVector struct {
	Domain Domain    `json:"domain"`
	Names  []string  `json:"names"`
	Values []float64 `json:"values"`

	// WindowEnd is the timestamp of the last sample in the source window,
	// carried through so results can be ordered per domain.
	WindowEnd float64 `json:"window_end"`

	// Degraded is set when numeric instability forced neutral substitutions.
	Degraded bool `json:"degraded,omitempty"`
	// DegradedReasons names the substituted features, for diagnostics.
	DegradedReasons []string `json:"degraded_reasons,omitempty"`
}

// Len returns the number of features.
func (fv FeatureVector) Len() int { return len(fv.Values) }

// Validate checks structural invariants of the feature vector.
func (fv FeatureVector) Validate() error {
	if !fv.Domain.Valid() {
		return fmt.Errorf("feature vector has unknown domain %q", fv.Domain)
	}
	if len(fv.Names) != len(fv.Values) {
		return fmt.Errorf("feature vector has %d names for %d values", len(fv.Names), len(fv.Values))
	}
	return nil
}
