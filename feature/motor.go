package feature

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/c360/neurostream/neural"
)

// motorImageryFeatures is the fixed feature layout for the motor-imagery
// domain. Left/right groups split the montage down the middle, matching the
// convention that odd-indexed electrodes sit over the left hemisphere in
// the configured channel order.
var motorImageryFeatures = []string{
	"mu_power_left",
	"mu_power_right",
	"beta_power_left",
	"beta_power_right",
	"mu_lateralization",
	"beta_lateralization",
	"csp_logvar_1",
	"csp_logvar_2",
}

// MotorImagery extracts mu/beta rhythm power per hemisphere and
// common-spatial-pattern-style log-variance projections from a short
// (1-2s) window. Stateless; safe for concurrent use.
//
// The spatial filters are fixed alternating-sign projections rather than
// data-driven CSP weights; supervised filter fitting belongs to model
// training, which is out of scope here.
type MotorImagery struct {
	cfg         Config
	projections [][]float64
}

// NewMotorImagery creates a motor-imagery extractor for the given geometry.
func NewMotorImagery(cfg Config) *MotorImagery {
	return &MotorImagery{
		cfg:         cfg,
		projections: defaultProjections(cfg.Channels),
	}
}

// Domain returns neural.DomainMotorImagery.
func (e *MotorImagery) Domain() neural.Domain { return neural.DomainMotorImagery }

// FeatureNames returns the fixed feature layout.
func (e *MotorImagery) FeatureNames() []string { return motorImageryFeatures }

// Extract computes the motor-imagery feature vector.
func (e *MotorImagery) Extract(w neural.Window) (neural.FeatureVector, error) {
	if err := validateWindow(w, e.cfg, "MotorImagery"); err != nil {
		return neural.FeatureVector{}, err
	}

	b := newVectorBuilder(neural.DomainMotorImagery, w)

	half := w.NumChannels() / 2
	left := w.Data[:half]
	right := w.Data[half:]

	muL := meanBandPower(left, w.SamplingRate, BandMu)
	muR := meanBandPower(right, w.SamplingRate, BandMu)
	betaL := meanBandPower(left, w.SamplingRate, BandBeta)
	betaR := meanBandPower(right, w.SamplingRate, BandBeta)

	b.add("mu_power_left", muL)
	b.add("mu_power_right", muR)
	b.add("beta_power_left", betaL)
	b.add("beta_power_right", betaR)
	b.addRatio("mu_lateralization", muL-muR, muL+muR)
	b.addRatio("beta_lateralization", betaL-betaR, betaL+betaR)

	for i, proj := range e.projections {
		name := motorImageryFeatures[6+i]
		v := projectedLogVariance(w.Data, proj)
		if math.IsInf(v, -1) {
			// log of a zero-variance projection
			b.add(name, 0)
			b.markDegraded(name)
			continue
		}
		b.add(name, v)
	}

	return b.build(), nil
}

// defaultProjections builds two fixed spatial filters: an alternating-sign
// contrast and a center-surround contrast, both unit-normalized.
func defaultProjections(channels int) [][]float64 {
	if channels <= 0 {
		return nil
	}

	alternating := make([]float64, channels)
	for i := range alternating {
		if i%2 == 0 {
			alternating[i] = 1
		} else {
			alternating[i] = -1
		}
	}

	surround := make([]float64, channels)
	mid := channels / 2
	for i := range surround {
		if i == mid {
			surround[i] = float64(channels - 1)
		} else {
			surround[i] = -1
		}
	}

	normalize(alternating)
	normalize(surround)
	return [][]float64{alternating, surround}
}

func normalize(w []float64) {
	var norm float64
	for _, v := range w {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm < epsilon {
		return
	}
	for i := range w {
		w[i] /= norm
	}
}

// projectedLogVariance applies a spatial filter across channels and returns
// the log-variance of the projected series.
func projectedLogVariance(data [][]float64, weights []float64) float64 {
	if len(data) == 0 || len(weights) != len(data) {
		return math.Inf(-1)
	}
	n := len(data[0])
	projected := make([]float64, n)
	for ch, wgt := range weights {
		for i := 0; i < n; i++ {
			projected[i] += wgt * data[ch][i]
		}
	}
	v := stat.Variance(projected, nil)
	if v < epsilon {
		return math.Inf(-1)
	}
	return math.Log(v)
}
