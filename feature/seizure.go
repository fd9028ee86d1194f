package feature

import (
	"gonum.org/v1/gonum/stat"

	"github.com/c360/neurostream/neural"
)

// seizureRiskFeatures is the fixed feature layout for the seizure-risk
// domain.
var seizureRiskFeatures = []string{
	"synchrony_mean",
	"synchrony_max",
	"line_length",
	"spectral_entropy",
	"band_power_dispersion",
	"amplitude_variance",
	"hjorth_mobility",
	"hjorth_complexity",
}

// SeizureRisk extracts cross-channel synchrony and spectral variance
// metrics over a sliding window, supporting a 10-30 minute early-warning
// horizon. This path has the highest consequence of missed detection, so
// every ratio is guarded: instability substitutes a neutral value and
// flags the vector degraded rather than emitting NaN. Stateless; safe for
// concurrent use.
type SeizureRisk struct {
	cfg Config
}

// NewSeizureRisk creates a seizure-risk extractor for the given geometry.
func NewSeizureRisk(cfg Config) *SeizureRisk {
	return &SeizureRisk{cfg: cfg}
}

// Domain returns neural.DomainSeizureRisk.
func (e *SeizureRisk) Domain() neural.Domain { return neural.DomainSeizureRisk }

// FeatureNames returns the fixed feature layout.
func (e *SeizureRisk) FeatureNames() []string { return seizureRiskFeatures }

// Extract computes the seizure-risk feature vector.
func (e *SeizureRisk) Extract(w neural.Window) (neural.FeatureVector, error) {
	if err := validateWindow(w, e.cfg, "SeizureRisk"); err != nil {
		return neural.FeatureVector{}, err
	}

	b := newVectorBuilder(neural.DomainSeizureRisk, w)

	syncMean, syncMax, ok := pairwiseSynchrony(w.Data)
	b.add("synchrony_mean", syncMean)
	b.add("synchrony_max", syncMax)
	if !ok {
		b.markDegraded("synchrony_mean")
		b.markDegraded("synchrony_max")
	}

	meanSig := channelMean(w.Data)
	b.add("line_length", lineLength(meanSig))

	psd, _ := periodogram(meanSig, w.SamplingRate)
	entropy, ok := spectralEntropy(psd)
	b.add("spectral_entropy", entropy)
	if !ok {
		b.markDegraded("spectral_entropy")
	}

	b.add("band_power_dispersion", bandPowerDispersion(w.Data, w.SamplingRate))
	b.add("amplitude_variance", stat.Variance(meanSig, nil))

	mobility, complexity, ok := hjorthParams(meanSig)
	b.add("hjorth_mobility", mobility)
	b.add("hjorth_complexity", complexity)
	if !ok {
		b.markDegraded("hjorth_mobility")
		b.markDegraded("hjorth_complexity")
	}

	return b.build(), nil
}

// bandPowerDispersion measures how unevenly broadband power is distributed
// across channels: the variance of per-channel total power. Rising focal
// power concentration is an early synchronization signature.
func bandPowerDispersion(data [][]float64, fs float64) float64 {
	if len(data) < 2 {
		return 0
	}
	powers := make([]float64, len(data))
	for i, ch := range data {
		psd, df := periodogram(ch, fs)
		powers[i] = totalPower(psd, df)
	}
	return stat.Variance(powers, nil)
}
