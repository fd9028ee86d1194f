package classifier

import (
	"context"

	"github.com/c360/neurostream/errors"
	"github.com/c360/neurostream/neural"
)

// mentalStates in model output order.
var mentalStates = []neural.MentalState{
	neural.StateFocused,
	neural.StateRelaxed,
	neural.StateStressed,
	neural.StateDrowsy,
	neural.StateNeutral,
}

// sleepStages in model output order.
var sleepStages = []neural.SleepStage{
	neural.StageWake,
	neural.StageN1,
	neural.StageN2,
	neural.StageN3,
	neural.StageREM,
}

// motorClasses in model output order.
var motorClasses = []neural.MotorClass{
	neural.MotorLeftHand,
	neural.MotorRightHand,
	neural.MotorFeet,
	neural.MotorTongue,
	neural.MotorRest,
}

// categorical implements the shared softmax-over-classes flow for the
// mental-state, sleep-stage, and motor-imagery domains. The domains differ
// only in label set, variant payload, and which class stands in when the
// model fails.
type categorical struct {
	cfg      Config
	domain   neural.Domain
	classes  int
	apply    func(r *neural.Result, idx int)
	fallback int
}

func newMentalState(cfg Config) *categorical {
	return &categorical{
		cfg:     cfg,
		domain:  neural.DomainMentalState,
		classes: len(mentalStates),
		apply: func(r *neural.Result, idx int) {
			r.MentalState = &neural.MentalStateResult{State: mentalStates[idx]}
		},
		fallback: 4, // neutral
	}
}

func newSleepStage(cfg Config) *categorical {
	return &categorical{
		cfg:     cfg,
		domain:  neural.DomainSleepStage,
		classes: len(sleepStages),
		apply: func(r *neural.Result, idx int) {
			r.SleepStage = &neural.SleepStageResult{Stage: sleepStages[idx]}
		},
		fallback: 0, // wake
	}
}

func newMotorImagery(cfg Config) *categorical {
	return &categorical{
		cfg:     cfg,
		domain:  neural.DomainMotorImagery,
		classes: len(motorClasses),
		apply: func(r *neural.Result, idx int) {
			r.MotorImagery = &neural.MotorImageryResult{Class: motorClasses[idx]}
		},
		fallback: 4, // rest
	}
}

// Domain returns the served domain.
func (c *categorical) Domain() neural.Domain { return c.domain }

// Classify scores the feature vector and maps the winning class to a
// label. Model failures substitute the domain's neutral class as a
// degraded result rather than stalling the stream.
func (c *categorical) Classify(ctx context.Context, fv neural.FeatureVector) (neural.Result, error) {
	out, err := infer(ctx, c.cfg, c.domain, fv)
	if err != nil && errors.IsInvalid(err) {
		return neural.Result{}, err
	}

	r := newShell(c.domain, fv)

	if err == nil && len(out.Scores) != c.classes {
		err = errors.WrapTransient(errors.ErrModelUnavailable, "categorical", "Classify",
			"unexpected score count")
	}
	if err != nil {
		c.cfg.Logger.Warn("model call failed, substituting neutral result",
			"domain", c.domain,
			"error", err)
		c.apply(&r, c.fallback)
		r.Confidence = 0
		r.Quality = neural.QualityDegraded
		return r, nil
	}

	idx, confidence := argmax(softmax(out.Scores))
	c.apply(&r, idx)
	r.Confidence = confidence
	r.ModelVersion = out.ModelVersion
	return r, nil
}
