package feature

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/neurostream/errors"
	"github.com/c360/neurostream/neural"
)

// makeWindow builds a test window where gen(ch, i) produces the value of
// channel ch at sample index i.
func makeWindow(channels, samples int, fs float64, gen func(ch, i int) float64) neural.Window {
	data := make([][]float64, channels)
	for ch := range data {
		data[ch] = make([]float64, samples)
		for i := range data[ch] {
			data[ch][i] = gen(ch, i)
		}
	}
	return neural.Window{
		Start:        0,
		End:          float64(samples-1) / fs,
		SamplingRate: fs,
		Data:         data,
		SourceID:     "test",
	}
}

// sine returns a generator mixing a dominant tone with low-level noise.
func sine(freq, amp, fs float64, rng *rand.Rand) func(ch, i int) float64 {
	return func(ch, i int) float64 {
		t := float64(i) / fs
		return amp*math.Sin(2*math.Pi*freq*t+float64(ch)) + 0.1*rng.NormFloat64()
	}
}

func allExtractors(t *testing.T, cfg Config) []Extractor {
	t.Helper()
	out := make([]Extractor, 0, len(neural.Domains))
	for _, d := range neural.Domains {
		e, err := NewExtractor(d, cfg)
		require.NoError(t, err)
		out = append(out, e)
	}
	return out
}

func TestNewExtractorUnknownDomain(t *testing.T) {
	_, err := NewExtractor("emotion", DefaultConfig(8, 250))
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestExtractFixedLengthNoNaN(t *testing.T) {
	cfg := DefaultConfig(8, 250)
	rng := rand.New(rand.NewSource(7))
	w := makeWindow(8, 500, 250, sine(10, 20, 250, rng))

	for _, e := range allExtractors(t, cfg) {
		fv, err := e.Extract(w)
		require.NoError(t, err, e.Domain())
		require.NoError(t, fv.Validate())
		assert.Equal(t, len(e.FeatureNames()), fv.Len(), e.Domain())
		assert.Equal(t, e.FeatureNames(), fv.Names, e.Domain())
		for i, v := range fv.Values {
			assert.False(t, math.IsNaN(v) || math.IsInf(v, 0),
				"%s feature %s is not finite", e.Domain(), fv.Names[i])
		}
		assert.Equal(t, w.End, fv.WindowEnd)
	}
}

func TestExtractRejectsMismatchedWindow(t *testing.T) {
	cfg := DefaultConfig(8, 250)
	rng := rand.New(rand.NewSource(7))

	for _, e := range allExtractors(t, cfg) {
		wrongChannels := makeWindow(4, 500, 250, sine(10, 20, 250, rng))
		_, err := e.Extract(wrongChannels)
		require.Error(t, err, e.Domain())
		assert.ErrorIs(t, err, errors.ErrInvalidWindow)

		wrongRate := makeWindow(8, 500, 500, sine(10, 20, 500, rng))
		_, err = e.Extract(wrongRate)
		require.Error(t, err, e.Domain())
		assert.ErrorIs(t, err, errors.ErrInvalidWindow)
	}
}

func TestExtractFlatSignalDegradesInsteadOfFailing(t *testing.T) {
	cfg := DefaultConfig(8, 250)
	flat := makeWindow(8, 500, 250, func(ch, i int) float64 { return 0 })

	for _, e := range allExtractors(t, cfg) {
		fv, err := e.Extract(flat)
		require.NoError(t, err, "%s: flat signal must not error", e.Domain())
		assert.True(t, fv.Degraded, "%s: flat signal must flag degraded quality", e.Domain())
		assert.NotEmpty(t, fv.DegradedReasons, e.Domain())
		for i, v := range fv.Values {
			assert.False(t, math.IsNaN(v) || math.IsInf(v, 0),
				"%s feature %s must be substituted, not NaN", e.Domain(), fv.Names[i])
		}
	}
}

func TestMentalStateAlphaDominance(t *testing.T) {
	cfg := DefaultConfig(8, 250)
	e := NewMentalState(cfg)
	rng := rand.New(rand.NewSource(42))

	// 10 Hz is squarely in the alpha band.
	w := makeWindow(8, 500, 250, sine(10, 50, 250, rng))
	fv, err := e.Extract(w)
	require.NoError(t, err)

	idx := indexOf(t, fv.Names, "alpha_power")
	beta := indexOf(t, fv.Names, "beta_power")
	ratio := indexOf(t, fv.Names, "alpha_beta_ratio")

	assert.Greater(t, fv.Values[idx], fv.Values[beta], "alpha tone must dominate beta")
	assert.Greater(t, fv.Values[ratio], 1.0)
}

func TestMotorImageryLateralization(t *testing.T) {
	cfg := DefaultConfig(8, 250)
	e := NewMotorImagery(cfg)
	rng := rand.New(rand.NewSource(9))

	// Strong 10 Hz mu rhythm on left-half channels only.
	w := makeWindow(8, 500, 250, func(ch, i int) float64 {
		t := float64(i) / 250
		noise := 0.1 * rng.NormFloat64()
		if ch < 4 {
			return 40*math.Sin(2*math.Pi*10*t) + noise
		}
		return 2*math.Sin(2*math.Pi*10*t) + noise
	})

	fv, err := e.Extract(w)
	require.NoError(t, err)

	lat := indexOf(t, fv.Names, "mu_lateralization")
	assert.Greater(t, fv.Values[lat], 0.5, "left-dominant mu power must lateralize positive")
}

func TestSleepStageSpindleContinuityHistory(t *testing.T) {
	cfg := DefaultConfig(4, 100)
	cfg.EOGChannel = 3
	e := NewSleepStage(cfg)
	rng := rand.New(rand.NewSource(3))

	w1 := makeWindow(4, 3000, 100, sine(13, 10, 100, rng))
	fv1, err := e.Extract(w1)
	require.NoError(t, err)
	cont := indexOf(t, fv1.Names, "spindle_continuity")
	assert.Zero(t, fv1.Values[cont], "first epoch has no history")

	// A quiet second epoch shifts spindle density; continuity reflects it.
	w2 := makeWindow(4, 3000, 100, sine(2, 10, 100, rng))
	fv2, err := e.Extract(w2)
	require.NoError(t, err)
	d1 := fv1.Values[indexOf(t, fv1.Names, "spindle_density")]
	d2 := fv2.Values[indexOf(t, fv2.Names, "spindle_density")]
	assert.InDelta(t, math.Abs(d2-d1), fv2.Values[cont], 1e-9)
}

func TestSeizureRiskSynchrony(t *testing.T) {
	cfg := DefaultConfig(8, 250)
	e := NewSeizureRisk(cfg)

	// Identical signal on all channels: synchrony should saturate near 1.
	w := makeWindow(8, 500, 250, func(ch, i int) float64 {
		return math.Sin(2 * math.Pi * 6 * float64(i) / 250)
	})
	fv, err := e.Extract(w)
	require.NoError(t, err)

	mean := indexOf(t, fv.Names, "synchrony_mean")
	assert.InDelta(t, 1.0, fv.Values[mean], 0.01)

	// Independent noise: synchrony should be low.
	rng := rand.New(rand.NewSource(11))
	w = makeWindow(8, 500, 250, func(ch, i int) float64 { return rng.NormFloat64() })
	fv, err = e.Extract(w)
	require.NoError(t, err)
	assert.Less(t, fv.Values[mean], 0.3)
}

func indexOf(t *testing.T, names []string, want string) int {
	t.Helper()
	for i, n := range names {
		if n == want {
			return i
		}
	}
	t.Fatalf("feature %q not found in %v", want, names)
	return -1
}
