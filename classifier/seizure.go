package classifier

import (
	"context"
	"fmt"

	"github.com/c360/neurostream/errors"
	"github.com/c360/neurostream/neural"
)

// DefaultWarningWindowMinutes is the default seizure early-warning horizon.
const DefaultWarningWindowMinutes = 20.0

// RiskThresholds are the cut points bucketing a continuous seizure risk
// score: low below Medium, medium below High, high below Imminent,
// imminent at or above.
type RiskThresholds struct {
	Medium   float64 `json:"medium"`
	High     float64 `json:"high"`
	Imminent float64 `json:"imminent"`
}

// DefaultRiskThresholds returns the standard cut points.
func DefaultRiskThresholds() RiskThresholds {
	return RiskThresholds{Medium: 0.25, High: 0.5, Imminent: 0.8}
}

// Validate checks that the cut points are strictly ordered within (0, 1).
func (rt RiskThresholds) Validate() error {
	if rt.Medium <= 0 || rt.Medium >= rt.High || rt.High >= rt.Imminent || rt.Imminent >= 1 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "RiskThresholds", "Validate",
			fmt.Sprintf("cut points must satisfy 0 < %.3f < %.3f < %.3f < 1",
				rt.Medium, rt.High, rt.Imminent))
	}
	return nil
}

// Level buckets a score.
func (rt RiskThresholds) Level(score float64) neural.RiskLevel {
	switch {
	case score < rt.Medium:
		return neural.RiskLow
	case score < rt.High:
		return neural.RiskMedium
	case score < rt.Imminent:
		return neural.RiskHigh
	default:
		return neural.RiskImminent
	}
}

// seizureRisk classifies the seizure-risk domain. Unlike the categorical
// domains it never substitutes a neutral result: a model failure here is a
// hard error that the pipeline escalates as an alert, because silently
// reporting low risk on a dead model is the one unacceptable outcome.
type seizureRisk struct {
	cfg           Config
	thresholds    RiskThresholds
	warningWindow float64
}

func newSeizureRisk(cfg Config) (*seizureRisk, error) {
	thresholds := cfg.Risk
	if thresholds == (RiskThresholds{}) {
		thresholds = DefaultRiskThresholds()
	}
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}
	warningWindow := cfg.WarningWindowMinutes
	if warningWindow <= 0 {
		warningWindow = DefaultWarningWindowMinutes
	}
	return &seizureRisk{cfg: cfg, thresholds: thresholds, warningWindow: warningWindow}, nil
}

// Domain returns neural.DomainSeizureRisk.
func (c *seizureRisk) Domain() neural.Domain { return neural.DomainSeizureRisk }

// Classify buckets the model's continuous risk score into a level.
func (c *seizureRisk) Classify(ctx context.Context, fv neural.FeatureVector) (neural.Result, error) {
	out, err := infer(ctx, c.cfg, neural.DomainSeizureRisk, fv)
	if err != nil {
		return neural.Result{}, errors.Wrap(err, "seizureRisk", "Classify", "model inference")
	}
	if len(out.Scores) != 1 {
		return neural.Result{}, errors.WrapTransient(errors.ErrModelUnavailable,
			"seizureRisk", "Classify",
			fmt.Sprintf("expected 1 risk score, got %d", len(out.Scores)))
	}

	score := out.Scores[0]
	if score < 0 {
		score = 0
	} else if score > 1 {
		score = 1
	}

	r := newShell(neural.DomainSeizureRisk, fv)
	r.SeizureRisk = &neural.SeizureRiskResult{
		Level:                c.thresholds.Level(score),
		Score:                score,
		WarningWindowMinutes: c.warningWindow,
	}
	// Certainty of the binary risk estimate, not of the bucket.
	r.Confidence = score
	if 1-score > score {
		r.Confidence = 1 - score
	}
	r.ModelVersion = out.ModelVersion
	return r, nil
}
