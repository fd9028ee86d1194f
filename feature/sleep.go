package feature

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/c360/neurostream/neural"
)

// sleepStageFeatures is the fixed feature layout for the sleep-stage domain.
var sleepStageFeatures = []string{
	"slow_wave_power",
	"theta_power",
	"alpha_power",
	"beta_power",
	"spindle_power_ratio",
	"spindle_density",
	"spindle_continuity",
	"k_complex_count",
	"eog_activity",
	"emg_activity",
}

// SleepStage extracts a polysomnographic feature set from 30-second epochs:
// slow-wave power, spindle density and continuity, K-complex presence, and
// EOG/EMG channel activity when the montage carries those channels.
//
// Unlike the other extractors this one keeps a bounded trailing history:
// the previous epoch's spindle density, used for the spindle continuity
// feature. The history is exactly one float64 and is reset implicitly by
// the next Extract call.
type SleepStage struct {
	cfg Config

	mu              sync.Mutex
	lastSpindleDens float64
	hasHistory      bool
}

// NewSleepStage creates a sleep-stage extractor for the given geometry.
func NewSleepStage(cfg Config) *SleepStage {
	return &SleepStage{cfg: cfg}
}

// Domain returns neural.DomainSleepStage.
func (e *SleepStage) Domain() neural.Domain { return neural.DomainSleepStage }

// FeatureNames returns the fixed feature layout.
func (e *SleepStage) FeatureNames() []string { return sleepStageFeatures }

// Extract computes the sleep-stage feature vector for one epoch.
func (e *SleepStage) Extract(w neural.Window) (neural.FeatureVector, error) {
	if err := validateWindow(w, e.cfg, "SleepStage"); err != nil {
		return neural.FeatureVector{}, err
	}

	b := newVectorBuilder(neural.DomainSleepStage, w)

	eeg := e.eegChannels(w)
	b.add("slow_wave_power", meanBandPower(eeg, w.SamplingRate, BandDelta))
	b.add("theta_power", meanBandPower(eeg, w.SamplingRate, BandTheta))
	b.add("alpha_power", meanBandPower(eeg, w.SamplingRate, BandAlpha))
	b.add("beta_power", meanBandPower(eeg, w.SamplingRate, BandBeta))

	meanSig := channelMean(eeg)
	psd, df := periodogram(meanSig, w.SamplingRate)
	spindle := bandPower(psd, df, BandSpindle)
	b.addRatio("spindle_power_ratio", spindle, totalPower(psd, df))

	density := spindleDensity(meanSig, w.SamplingRate)
	b.add("spindle_density", density)

	e.mu.Lock()
	if e.hasHistory {
		b.add("spindle_continuity", math.Abs(density-e.lastSpindleDens))
	} else {
		b.add("spindle_continuity", 0)
	}
	e.lastSpindleDens = density
	e.hasHistory = true
	e.mu.Unlock()

	b.add("k_complex_count", kComplexCount(meanSig, w.SamplingRate))

	b.add("eog_activity", e.auxActivity(w, e.cfg.EOGChannel))
	b.add("emg_activity", e.auxActivity(w, e.cfg.EMGChannel))

	return b.build(), nil
}

// eegChannels returns the window channels minus configured EOG/EMG channels.
func (e *SleepStage) eegChannels(w neural.Window) [][]float64 {
	out := make([][]float64, 0, len(w.Data))
	for i, ch := range w.Data {
		if i == e.cfg.EOGChannel || i == e.cfg.EMGChannel {
			continue
		}
		out = append(out, ch)
	}
	return out
}

// auxActivity returns the variance of an auxiliary channel, or zero when
// the montage has none configured. Absence is not a degraded condition.
func (e *SleepStage) auxActivity(w neural.Window, idx int) float64 {
	if idx < 0 || idx >= w.NumChannels() {
		return 0
	}
	return stat.Variance(w.Data[idx], nil)
}

// spindleDensity counts half-second segments whose sigma-band power exceeds
// twice the epoch median, normalized per minute. A thresholded burst count
// stands in for full spindle morphology detection.
func spindleDensity(x []float64, fs float64) float64 {
	seg := int(fs / 2)
	if seg < 4 || len(x) < 2*seg {
		return 0
	}

	var powers []float64
	for start := 0; start+seg <= len(x); start += seg {
		psd, df := periodogram(x[start:start+seg], fs)
		powers = append(powers, bandPower(psd, df, BandSpindle))
	}
	if len(powers) < 2 {
		return 0
	}

	sorted := append([]float64(nil), powers...)
	med := median(sorted)
	if med < epsilon {
		return 0
	}

	var bursts int
	for _, p := range powers {
		if p > 2*med {
			bursts++
		}
	}

	epochSeconds := float64(len(x)) / fs
	return float64(bursts) / epochSeconds * 60
}

// kComplexCount counts large biphasic deflections: excursions beyond three
// standard deviations with at least one second separation.
func kComplexCount(x []float64, fs float64) float64 {
	if len(x) < 2 {
		return 0
	}
	mean := stat.Mean(x, nil)
	sd := math.Sqrt(stat.Variance(x, nil))
	if sd < epsilon {
		return 0
	}

	threshold := 3 * sd
	minGap := int(fs)
	var count float64
	lastHit := -minGap
	for i, v := range x {
		if math.Abs(v-mean) > threshold && i-lastHit >= minGap {
			count++
			lastHit = i
		}
	}
	return count
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	// Insertion sort; segment counts are small.
	for i := 1; i < n; i++ {
		for j := i; j > 0 && sorted[j] < sorted[j-1]; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
