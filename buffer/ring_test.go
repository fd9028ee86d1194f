package buffer

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/neurostream/errors"
	"github.com/c360/neurostream/metric"
	"github.com/c360/neurostream/neural"
)

func sampleAt(t *testing.T, i int, channels int, rate float64) neural.Sample {
	t.Helper()
	ch := make([]float64, channels)
	for c := range ch {
		// Encode (index, channel) so torn reads are detectable.
		ch[c] = float64(i)*1000 + float64(c)
	}
	return neural.Sample{
		Timestamp:    float64(i) / rate,
		Channels:     ch,
		SamplingRate: rate,
		SourceID:     "test",
	}
}

func TestNewRingValidation(t *testing.T) {
	_, err := NewRing(0, 8, 250)
	assert.Error(t, err)
	_, err = NewRing(100, 0, 250)
	assert.Error(t, err)
	_, err = NewRing(100, 8, 0)
	assert.Error(t, err)

	r, err := NewRing(100, 8, 250)
	require.NoError(t, err)
	assert.Equal(t, 100, r.Capacity())
	assert.Equal(t, 8, r.Channels())
	assert.Equal(t, 250.0, r.SamplingRate())
}

func TestWriteRejectsMismatchedGeometry(t *testing.T) {
	r, err := NewRing(100, 8, 250)
	require.NoError(t, err)

	bad := sampleAt(t, 0, 4, 250)
	err = r.Write(bad)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	bad = sampleAt(t, 0, 8, 500)
	assert.Error(t, r.Write(bad))
}

func TestReadWindowInsufficientData(t *testing.T) {
	r, err := NewRing(1000, 8, 250)
	require.NoError(t, err)

	// 2s at 250Hz needs 500 samples; write 499.
	for i := 0; i < 499; i++ {
		require.NoError(t, r.Write(sampleAt(t, i, 8, 250)))
	}

	_, err = r.ReadWindow(2*time.Second, 0)
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err), "insufficient data is transient")
	assert.ErrorIs(t, err, errors.ErrInsufficientData)

	// One more sample completes the window.
	require.NoError(t, r.Write(sampleAt(t, 499, 8, 250)))
	w, err := r.ReadWindow(2*time.Second, 0)
	require.NoError(t, err)
	assert.Equal(t, 500, w.NumSamples())
	assert.Equal(t, 8, w.NumChannels())
}

func TestReadWindowArrivalOrder(t *testing.T) {
	r, err := NewRing(1000, 2, 100)
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		require.NoError(t, r.Write(sampleAt(t, i, 2, 100)))
	}

	w, err := r.ReadWindow(time.Second, 0)
	require.NoError(t, err)
	require.Equal(t, 100, w.NumSamples())

	// Most recent 100 samples, in original arrival order.
	for i := 0; i < 100; i++ {
		assert.Equal(t, float64(100+i)*1000, w.Data[0][i])
		assert.Equal(t, float64(100+i)*1000+1, w.Data[1][i])
	}
	assert.InDelta(t, 1.0, w.Start, 1e-9)
	assert.InDelta(t, 1.99, w.End, 1e-9)
}

func TestReadWindowRetentionHorizon(t *testing.T) {
	// Capacity 100 at 100Hz = 1s of retention; write 3s worth.
	r, err := NewRing(100, 1, 100)
	require.NoError(t, err)

	for i := 0; i < 300; i++ {
		require.NoError(t, r.Write(sampleAt(t, i, 1, 100)))
	}
	assert.Equal(t, 100, r.Size())
	assert.Equal(t, uint64(300), r.TotalWritten())
	assert.Equal(t, int64(200), r.Stats().Overwrites())

	w, err := r.ReadWindow(time.Second, 0)
	require.NoError(t, err)

	// Exactly the last second; nothing from before the retention horizon.
	for i := 0; i < 100; i++ {
		assert.Equal(t, float64(200+i)*1000, w.Data[0][i])
	}

	// A window longer than the retention horizon cannot be served.
	_, err = r.ReadWindow(2*time.Second, 0)
	assert.ErrorIs(t, err, errors.ErrInsufficientData)
}

func TestReadWindowOverlapValidation(t *testing.T) {
	r, err := NewRing(1000, 1, 100)
	require.NoError(t, err)
	for i := 0; i < 200; i++ {
		require.NoError(t, r.Write(sampleAt(t, i, 1, 100)))
	}

	_, err = r.ReadWindow(time.Second, -time.Millisecond)
	assert.Error(t, err)
	_, err = r.ReadWindow(time.Second, time.Second)
	assert.Error(t, err, "overlap must leave a positive stride")

	_, err = r.ReadWindow(time.Second, 500*time.Millisecond)
	assert.NoError(t, err)
}

func TestReset(t *testing.T) {
	r, err := NewRing(100, 1, 100)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		require.NoError(t, r.Write(sampleAt(t, i, 1, 100)))
	}
	r.Reset()
	assert.Equal(t, 0, r.Size())
	_, err = r.ReadWindow(100*time.Millisecond, 0)
	assert.ErrorIs(t, err, errors.ErrInsufficientData)
}

func TestRingWithMetrics(t *testing.T) {
	reg := metric.NewMetricsRegistry()
	r, err := NewRing(100, 2, 100, WithMetricsRegistry(reg, "test-ring"))
	require.NoError(t, err)

	for i := 0; i < 150; i++ {
		require.NoError(t, r.Write(sampleAt(t, i, 2, 100)))
	}
	_, err = r.ReadWindow(time.Second, 0)
	require.NoError(t, err)

	families, err := reg.PrometheusRegistry().Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["neurostream_buffer_writes_total"])
	assert.True(t, names["neurostream_buffer_overwrites_total"])
}

// TestConcurrentReadersSeeConsistentWindows is the torn-read stress test: one
// writer and one reader per domain hammer the ring; every returned window
// must be internally consistent (the encoded index advances by exactly one
// per sample, and all channels of a sample agree).
func TestConcurrentReadersSeeConsistentWindows(t *testing.T) {
	const (
		channels = 4
		rate     = 250.0
		total    = 5000
	)

	r, err := NewRing(1000, channels, rate)
	require.NoError(t, err)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	checkWindow := func(w neural.Window) error {
		n := w.NumSamples()
		for i := 0; i < n; i++ {
			base := w.Data[0][i]
			idx := base / 1000
			if i > 0 {
				prev := w.Data[0][i-1] / 1000
				if idx != prev+1 {
					return fmt.Errorf("non-contiguous window: index %v follows %v", idx, prev)
				}
			}
			for c := 1; c < channels; c++ {
				if w.Data[c][i] != base+float64(c) {
					return fmt.Errorf("torn read at sample %v channel %d", idx, c)
				}
			}
		}
		return nil
	}

	readerErrs := make(chan error, 4)
	durations := []time.Duration{
		400 * time.Millisecond,
		time.Second,
		2 * time.Second,
		3 * time.Second,
	}
	for _, d := range durations {
		wg.Add(1)
		go func(d time.Duration) {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				w, err := r.ReadWindow(d, 0)
				if err != nil {
					continue // insufficient data early on
				}
				if err := checkWindow(w); err != nil {
					readerErrs <- err
					return
				}
			}
		}(d)
	}

	for i := 0; i < total; i++ {
		require.NoError(t, r.Write(sampleAt(t, i, channels, rate)))
	}
	close(stop)
	wg.Wait()
	close(readerErrs)

	for err := range readerErrs {
		t.Fatal(err)
	}
}
