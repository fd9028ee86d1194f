package buffer

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/c360/neurostream/errors"
	"github.com/c360/neurostream/neural"
)

// Ring is a fixed-capacity, time-indexed circular buffer of multi-channel
// samples. It is lossy by design: writes never block and silently overwrite
// the oldest slot once full, because backpressure is handled upstream by the
// ingestion source.
//
// Concurrency discipline: single writer (the stream processor's ingestion
// loop), multiple readers (one per classification domain). Readers share an
// RWMutex so they never block each other; a write blocks readers only for
// the in-place slot update.
type Ring struct {
	mu       sync.RWMutex
	samples  []neural.Sample
	capacity int
	size     int
	head     int // next write position
	written  uint64

	channels     int
	samplingRate float64

	stats   *Statistics
	metrics *ringMetrics
	opts    *ringOptions
}

// NewRing creates a ring buffer holding capacity samples of the given stream
// geometry. Returns an error for invalid geometry or failed metrics
// registration.
func NewRing(capacity, channels int, samplingRate float64, opts ...Option) (*Ring, error) {
	if capacity <= 0 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: capacity %d", errors.ErrInvalidConfig, capacity),
			"Ring", "NewRing", "capacity check")
	}
	if channels <= 0 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: channels %d", errors.ErrInvalidConfig, channels),
			"Ring", "NewRing", "channel count check")
	}
	if samplingRate <= 0 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: sampling rate %.2f", errors.ErrInvalidConfig, samplingRate),
			"Ring", "NewRing", "sampling rate check")
	}

	options := newRingOptions(opts...)

	var metrics *ringMetrics
	if options.metricsReg != nil && options.metricsPrefix != "" {
		var err error
		metrics, err = newRingMetrics(options.metricsReg, options.metricsPrefix)
		if err != nil {
			return nil, errors.WrapTransient(err, "Ring", "NewRing", "metrics registration")
		}
	}

	return &Ring{
		samples:      make([]neural.Sample, capacity),
		capacity:     capacity,
		channels:     channels,
		samplingRate: samplingRate,
		stats:        NewStatistics(),
		metrics:      metrics,
		opts:         options,
	}, nil
}

// Write inserts a sample, overwriting the oldest slot when full. O(1), never
// fails on overflow. Channel values are copied so the caller may reuse its
// slice.
func (r *Ring) Write(s neural.Sample) error {
	if err := s.Validate(r.channels, r.samplingRate); err != nil {
		return err
	}

	// Copy channel data outside the lock; the slot assignment inside the
	// critical section is then a plain struct store.
	channels := make([]float64, len(s.Channels))
	copy(channels, s.Channels)
	s.Channels = channels

	r.mu.Lock()
	overwrote := r.size == r.capacity
	r.samples[r.head] = s
	r.head = (r.head + 1) % r.capacity
	if !overwrote {
		r.size++
	}
	r.written++
	size := r.size
	r.mu.Unlock()

	r.stats.Write()
	if overwrote {
		r.stats.Overwrite()
	}
	r.stats.UpdateSize(int64(size))
	if r.metrics != nil {
		r.metrics.recordWrite(size, r.capacity, overwrote)
	}
	return nil
}

// ReadWindow returns the most recent duration's worth of contiguous samples
// in arrival order, materialized channel-major. It fails with
// ErrInsufficientData while the buffer holds less than a full window.
//
// overlap is validated against duration (it must leave a positive stride);
// callers use it to schedule sliding-window reads without re-querying the
// raw source. The returned window is a private copy.
func (r *Ring) ReadWindow(duration, overlap time.Duration) (neural.Window, error) {
	n := r.WindowSamples(duration)
	if n <= 0 {
		return neural.Window{}, errors.WrapInvalid(
			fmt.Errorf("%w: window duration %v", errors.ErrInvalidConfig, duration),
			"Ring", "ReadWindow", "duration check")
	}
	if overlap < 0 || overlap >= duration {
		return neural.Window{}, errors.WrapInvalid(
			fmt.Errorf("%w: overlap %v for duration %v", errors.ErrInvalidConfig, overlap, duration),
			"Ring", "ReadWindow", "overlap check")
	}

	r.mu.RLock()
	if r.size < n {
		have := r.size
		r.mu.RUnlock()
		r.stats.Insufficient()
		if r.metrics != nil {
			r.metrics.recordInsufficient()
		}
		return neural.Window{}, errors.WrapTransient(
			fmt.Errorf("%w: have %d samples, need %d", errors.ErrInsufficientData, have, n),
			"Ring", "ReadWindow", "window availability check")
	}

	// Oldest sample of the window sits n slots behind the write head.
	start := (r.head - n + r.capacity) % r.capacity

	data := make([][]float64, r.channels)
	for ch := range data {
		data[ch] = make([]float64, n)
	}
	var first, last neural.Sample
	for i := 0; i < n; i++ {
		s := r.samples[(start+i)%r.capacity]
		if i == 0 {
			first = s
		}
		if i == n-1 {
			last = s
		}
		for ch := 0; ch < r.channels; ch++ {
			data[ch][i] = s.Channels[ch]
		}
	}
	r.mu.RUnlock()

	r.stats.Read()
	if r.metrics != nil {
		r.metrics.recordRead()
	}

	return neural.Window{
		Start:        first.Timestamp,
		End:          last.Timestamp,
		SamplingRate: r.samplingRate,
		Data:         data,
		SourceID:     last.SourceID,
	}, nil
}

// WindowSamples converts a window duration to a sample count at the ring's
// sampling rate.
func (r *Ring) WindowSamples(duration time.Duration) int {
	return int(math.Round(duration.Seconds() * r.samplingRate))
}

// Size returns the current number of buffered samples.
func (r *Ring) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

// Capacity returns the maximum number of samples the ring can hold.
func (r *Ring) Capacity() int { return r.capacity }

// Channels returns the configured channel count.
func (r *Ring) Channels() int { return r.channels }

// SamplingRate returns the configured sampling rate in Hz.
func (r *Ring) SamplingRate() float64 { return r.samplingRate }

// TotalWritten returns the monotonic count of samples ever written. The
// stream processor uses it to schedule per-domain window triggers.
func (r *Ring) TotalWritten() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.written
}

// Reset discards all buffered samples. Statistics are preserved.
func (r *Ring) Reset() {
	r.mu.Lock()
	for i := range r.samples {
		r.samples[i] = neural.Sample{}
	}
	r.head = 0
	r.size = 0
	r.mu.Unlock()

	r.stats.UpdateSize(0)
	if r.metrics != nil {
		r.metrics.updateSize(0, r.capacity)
	}
}

// Stats returns buffer statistics (always available for observability).
func (r *Ring) Stats() *Statistics { return r.stats }
