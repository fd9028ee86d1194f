package feature

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

// epsilon is the instability threshold for denominators. Band powers and
// variances below this are treated as numerically zero.
const epsilon = 1e-12

// Band is a frequency range in Hz, half-open [Lo, Hi).
type Band struct {
	Lo, Hi float64
}

// Standard EEG frequency bands.
var (
	BandDelta   = Band{0.5, 4}
	BandTheta   = Band{4, 8}
	BandAlpha   = Band{8, 13}
	BandMu      = Band{8, 12}
	BandSpindle = Band{11, 16}
	BandBeta    = Band{13, 30}
	BandGamma   = Band{30, 45}
)

// periodogram computes a one-sided Hann-windowed power spectral density
// estimate of x sampled at fs Hz. It returns the PSD bins and the frequency
// resolution (Hz per bin). The mean is removed first so DC leakage does not
// swamp the low bands.
func periodogram(x []float64, fs float64) (psd []float64, df float64) {
	n := len(x)
	if n < 2 || fs <= 0 {
		return nil, 0
	}

	mean := stat.Mean(x, nil)
	windowed := make([]float64, n)
	var windowPower float64
	for i, v := range x {
		// Hann window
		w := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
		windowed[i] = (v - mean) * w
		windowPower += w * w
	}
	if windowPower < epsilon {
		return nil, 0
	}

	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, windowed)

	scale := 1.0 / (fs * windowPower)
	psd = make([]float64, len(coeffs))
	for i, c := range coeffs {
		p := (real(c)*real(c) + imag(c)*imag(c)) * scale
		// One-sided spectrum: double everything except DC and Nyquist.
		if i != 0 && i != len(coeffs)-1 {
			p *= 2
		}
		psd[i] = p
	}
	return psd, fs / float64(n)
}

// bandPower integrates the PSD over a frequency band.
func bandPower(psd []float64, df float64, band Band) float64 {
	if df <= 0 {
		return 0
	}
	var sum float64
	for i, p := range psd {
		f := float64(i) * df
		if f >= band.Lo && f < band.Hi {
			sum += p * df
		}
	}
	return sum
}

// totalPower integrates the PSD above the delta floor, excluding DC drift.
func totalPower(psd []float64, df float64) float64 {
	return bandPower(psd, df, Band{0.5, math.Inf(1)})
}

// meanBandPower computes per-channel band power and returns the mean
// across channels.
func meanBandPower(data [][]float64, fs float64, band Band) float64 {
	if len(data) == 0 {
		return 0
	}
	var sum float64
	for _, ch := range data {
		psd, df := periodogram(ch, fs)
		sum += bandPower(psd, df, band)
	}
	return sum / float64(len(data))
}

// moments returns mean, variance, skewness, and excess kurtosis of x.
// Skew and kurtosis of a (near-)constant signal are undefined; callers get
// NaN and the vector builder substitutes a neutral value.
func moments(x []float64) (mean, variance, skew, kurtosis float64) {
	mean = stat.Mean(x, nil)
	variance = stat.Variance(x, nil)
	skew = stat.Skew(x, nil)
	kurtosis = stat.ExKurtosis(x, nil)
	return mean, variance, skew, kurtosis
}

// safeRatio returns num/den, or (0, false) when the denominator is
// numerically unstable.
func safeRatio(num, den float64) (float64, bool) {
	if math.Abs(den) < epsilon {
		return 0, false
	}
	return num / den, true
}

// lineLength is the mean absolute first difference of x, a cheap and robust
// seizure-sensitive waveform complexity measure.
func lineLength(x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	var sum float64
	for i := 1; i < len(x); i++ {
		sum += math.Abs(x[i] - x[i-1])
	}
	return sum / float64(len(x)-1)
}

// pairwiseSynchrony returns the mean and max absolute Pearson correlation
// over all channel pairs. A simplification of spectral coherence that keeps
// the seizure path inside its latency budget. Channels with (near-)zero
// variance are skipped; ok reports whether any pair was usable.
func pairwiseSynchrony(data [][]float64) (mean, max float64, ok bool) {
	n := len(data)
	if n < 2 {
		return 0, 0, false
	}

	var sum float64
	var pairs int
	for i := 0; i < n; i++ {
		if stat.Variance(data[i], nil) < epsilon {
			continue
		}
		for j := i + 1; j < n; j++ {
			if stat.Variance(data[j], nil) < epsilon {
				continue
			}
			r := math.Abs(stat.Correlation(data[i], data[j], nil))
			if math.IsNaN(r) {
				continue
			}
			sum += r
			if r > max {
				max = r
			}
			pairs++
		}
	}
	if pairs == 0 {
		return 0, 0, false
	}
	return sum / float64(pairs), max, true
}

// spectralEntropy returns the normalized Shannon entropy of the PSD in
// [0,1]. Returns (0, false) for a degenerate spectrum.
func spectralEntropy(psd []float64) (float64, bool) {
	var total float64
	for _, p := range psd {
		total += p
	}
	if total < epsilon || len(psd) < 2 {
		return 0, false
	}

	var h float64
	for _, p := range psd {
		if p < epsilon {
			continue
		}
		q := p / total
		h -= q * math.Log(q)
	}
	return h / math.Log(float64(len(psd))), true
}

// hjorthMobility is sqrt(var(dx)/var(x)); hjorthComplexity is
// mobility(dx)/mobility(x). Both guard near-zero variances.
func hjorthParams(x []float64) (mobility, complexity float64, ok bool) {
	if len(x) < 3 {
		return 0, 0, false
	}
	dx := diff(x)
	ddx := diff(dx)

	varX := stat.Variance(x, nil)
	varDx := stat.Variance(dx, nil)
	varDdx := stat.Variance(ddx, nil)

	m2, ok2 := safeRatio(varDx, varX)
	if !ok2 || m2 < 0 {
		return 0, 0, false
	}
	mobility = math.Sqrt(m2)

	md2, okd := safeRatio(varDdx, varDx)
	if !okd || md2 < 0 {
		return 0, 0, false
	}
	c, okc := safeRatio(math.Sqrt(md2), mobility)
	if !okc {
		return 0, 0, false
	}
	return mobility, c, true
}

func diff(x []float64) []float64 {
	if len(x) < 2 {
		return nil
	}
	d := make([]float64, len(x)-1)
	for i := 1; i < len(x); i++ {
		d[i-1] = x[i] - x[i-1]
	}
	return d
}

// channelMean returns the cross-channel average signal.
func channelMean(data [][]float64) []float64 {
	if len(data) == 0 {
		return nil
	}
	n := len(data[0])
	out := make([]float64, n)
	for _, ch := range data {
		for i, v := range ch {
			out[i] += v
		}
	}
	inv := 1.0 / float64(len(data))
	for i := range out {
		out[i] *= inv
	}
	return out
}
