package feature

import (
	"github.com/c360/neurostream/neural"
)

// mentalStateFeatures is the fixed feature layout for the mental-state
// domain. Band powers and moments are averaged across channels so the
// vector length is independent of montage size (8-64 channels).
var mentalStateFeatures = []string{
	"delta_power",
	"theta_power",
	"alpha_power",
	"beta_power",
	"gamma_power",
	"alpha_beta_ratio",
	"theta_alpha_ratio",
	"mean_amplitude",
	"variance",
	"skewness",
	"kurtosis",
	"coherence_mean",
}

// MentalState extracts band-power ratios, statistical moments, and
// cross-channel coherence from a short (typically 2s) window. Stateless;
// safe for concurrent use.
type MentalState struct {
	cfg Config
}

// NewMentalState creates a mental-state extractor for the given geometry.
func NewMentalState(cfg Config) *MentalState {
	return &MentalState{cfg: cfg}
}

// Domain returns neural.DomainMentalState.
func (e *MentalState) Domain() neural.Domain { return neural.DomainMentalState }

// FeatureNames returns the fixed feature layout.
func (e *MentalState) FeatureNames() []string { return mentalStateFeatures }

// Extract computes the mental-state feature vector.
func (e *MentalState) Extract(w neural.Window) (neural.FeatureVector, error) {
	if err := validateWindow(w, e.cfg, "MentalState"); err != nil {
		return neural.FeatureVector{}, err
	}

	b := newVectorBuilder(neural.DomainMentalState, w)

	// Per-channel band powers averaged across the montage.
	var delta, theta, alpha, beta, gamma float64
	nch := float64(w.NumChannels())
	for _, ch := range w.Data {
		psd, df := periodogram(ch, w.SamplingRate)
		delta += bandPower(psd, df, BandDelta)
		theta += bandPower(psd, df, BandTheta)
		alpha += bandPower(psd, df, BandAlpha)
		beta += bandPower(psd, df, BandBeta)
		gamma += bandPower(psd, df, BandGamma)
	}
	delta, theta, alpha, beta, gamma = delta/nch, theta/nch, alpha/nch, beta/nch, gamma/nch

	b.add("delta_power", delta)
	b.add("theta_power", theta)
	b.add("alpha_power", alpha)
	b.add("beta_power", beta)
	b.add("gamma_power", gamma)
	b.addRatio("alpha_beta_ratio", alpha, beta)
	b.addRatio("theta_alpha_ratio", theta, alpha)

	// Moments of the cross-channel mean signal.
	mean, variance, skew, kurtosis := moments(channelMean(w.Data))
	b.add("mean_amplitude", mean)
	b.add("variance", variance)
	b.add("skewness", skew)
	b.add("kurtosis", kurtosis)

	coherence, _, ok := pairwiseSynchrony(w.Data)
	b.add("coherence_mean", coherence)
	if !ok {
		b.markDegraded("coherence_mean")
	}

	return b.build(), nil
}
