package classifier

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/neurostream/errors"
	"github.com/c360/neurostream/modelserver"
	"github.com/c360/neurostream/neural"
)

// scriptedServer returns canned scores or a canned error.
type scriptedServer struct {
	scores  []float64
	version string
	err     error
}

func (s *scriptedServer) Infer(context.Context, neural.Domain, neural.FeatureVector) (modelserver.RawOutput, error) {
	if s.err != nil {
		return modelserver.RawOutput{}, s.err
	}
	return modelserver.RawOutput{Scores: s.scores, ModelVersion: s.version}, nil
}

func (s *scriptedServer) Name() string { return "scripted" }
func (s *scriptedServer) Close() error { return nil }

func vector(domain neural.Domain) neural.FeatureVector {
	return neural.FeatureVector{
		Domain:    domain,
		Names:     []string{"a", "b"},
		Values:    []float64{1, 2},
		WindowEnd: 4.5,
	}
}

func TestNewRequiresServer(t *testing.T) {
	_, err := New(neural.DomainMentalState, Config{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrMissingConfig)
}

func TestNewRejectsUnknownDomain(t *testing.T) {
	_, err := New("emotion", Config{Server: modelserver.NewLocal()})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUnknownDomain)
}

func TestMentalStateClassify(t *testing.T) {
	srv := &scriptedServer{scores: []float64{0.1, 0.2, 3.0, 0.1, 0.1}, version: "m-v2"}
	c, err := New(neural.DomainMentalState, Config{Server: srv})
	require.NoError(t, err)

	r, err := c.Classify(context.Background(), vector(neural.DomainMentalState))
	require.NoError(t, err)
	require.NoError(t, r.Validate())

	require.NotNil(t, r.MentalState)
	assert.Equal(t, neural.StateStressed, r.MentalState.State)
	assert.Equal(t, neural.QualityOK, r.Quality)
	assert.Equal(t, "m-v2", r.ModelVersion)
	assert.Equal(t, 4.5, r.WindowEnd)
	assert.Greater(t, r.Confidence, 0.5, "dominant logit must win with high confidence")
	assert.LessOrEqual(t, r.Confidence, 1.0)
}

func TestClassifyCarriesFeatureDegradation(t *testing.T) {
	srv := &scriptedServer{scores: []float64{1, 0, 0, 0, 0}, version: "m-v2"}
	c, err := New(neural.DomainSleepStage, Config{Server: srv})
	require.NoError(t, err)

	fv := vector(neural.DomainSleepStage)
	fv.Degraded = true
	r, err := c.Classify(context.Background(), fv)
	require.NoError(t, err)
	assert.Equal(t, neural.QualityDegraded, r.Quality)
}

func TestCategoricalModelFailureSubstitutesNeutral(t *testing.T) {
	failure := errors.WrapTransient(errors.ErrModelUnavailable, "Remote", "call", "down")

	tests := []struct {
		domain neural.Domain
		check  func(t *testing.T, r neural.Result)
	}{
		{neural.DomainMentalState, func(t *testing.T, r neural.Result) {
			require.NotNil(t, r.MentalState)
			assert.Equal(t, neural.StateNeutral, r.MentalState.State)
		}},
		{neural.DomainSleepStage, func(t *testing.T, r neural.Result) {
			require.NotNil(t, r.SleepStage)
			assert.Equal(t, neural.StageWake, r.SleepStage.Stage)
		}},
		{neural.DomainMotorImagery, func(t *testing.T, r neural.Result) {
			require.NotNil(t, r.MotorImagery)
			assert.Equal(t, neural.MotorRest, r.MotorImagery.Class)
		}},
	}

	for _, tt := range tests {
		t.Run(string(tt.domain), func(t *testing.T) {
			c, err := New(tt.domain, Config{Server: &scriptedServer{err: failure}})
			require.NoError(t, err)

			r, err := c.Classify(context.Background(), vector(tt.domain))
			require.NoError(t, err, "categorical domains degrade instead of failing")
			require.NoError(t, r.Validate())
			assert.Equal(t, neural.QualityDegraded, r.Quality)
			assert.Zero(t, r.Confidence)
			tt.check(t, r)
		})
	}
}

func TestCategoricalInvalidInputIsAnError(t *testing.T) {
	invalid := errors.WrapInvalid(errors.ErrUnknownDomain, "Local", "Infer", "bad input")
	c, err := New(neural.DomainMentalState, Config{Server: &scriptedServer{err: invalid}})
	require.NoError(t, err)

	_, err = c.Classify(context.Background(), vector(neural.DomainMentalState))
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestSeizureRiskBucketing(t *testing.T) {
	tests := []struct {
		score float64
		want  neural.RiskLevel
	}{
		{0.0, neural.RiskLow},
		{0.24, neural.RiskLow},
		{0.25, neural.RiskMedium},
		{0.49, neural.RiskMedium},
		{0.5, neural.RiskHigh},
		{0.79, neural.RiskHigh},
		{0.8, neural.RiskImminent},
		{1.0, neural.RiskImminent},
	}

	for _, tt := range tests {
		srv := &scriptedServer{scores: []float64{tt.score}, version: "r-v1"}
		c, err := New(neural.DomainSeizureRisk, Config{Server: srv})
		require.NoError(t, err)

		r, err := c.Classify(context.Background(), vector(neural.DomainSeizureRisk))
		require.NoError(t, err)
		require.NoError(t, r.Validate())
		require.NotNil(t, r.SeizureRisk)
		assert.Equal(t, tt.want, r.SeizureRisk.Level, "score %.2f", tt.score)
		assert.Equal(t, tt.score, r.SeizureRisk.Score)
		assert.Equal(t, DefaultWarningWindowMinutes, r.SeizureRisk.WarningWindowMinutes)
	}
}

func TestSeizureRiskCustomThresholds(t *testing.T) {
	srv := &scriptedServer{scores: []float64{0.35}}
	c, err := New(neural.DomainSeizureRisk, Config{
		Server: srv,
		Risk:   RiskThresholds{Medium: 0.1, High: 0.3, Imminent: 0.6},
	})
	require.NoError(t, err)

	r, err := c.Classify(context.Background(), vector(neural.DomainSeizureRisk))
	require.NoError(t, err)
	assert.Equal(t, neural.RiskHigh, r.SeizureRisk.Level)
}

func TestSeizureRiskRejectsBadThresholds(t *testing.T) {
	for _, rt := range []RiskThresholds{
		{Medium: 0.5, High: 0.5, Imminent: 0.8},
		{Medium: 0, High: 0.5, Imminent: 0.8},
		{Medium: 0.25, High: 0.5, Imminent: 1.0},
		{Medium: 0.8, High: 0.5, Imminent: 0.9},
	} {
		_, err := New(neural.DomainSeizureRisk, Config{Server: modelserver.NewLocal(), Risk: rt})
		require.Error(t, err, "%+v", rt)
		assert.ErrorIs(t, err, errors.ErrInvalidConfig)
	}
}

func TestSeizureRiskModelFailureIsHardError(t *testing.T) {
	failure := errors.WrapTransient(errors.ErrModelTimeout, "Remote", "call", "slow")
	c, err := New(neural.DomainSeizureRisk, Config{Server: &scriptedServer{err: failure}})
	require.NoError(t, err)

	_, err = c.Classify(context.Background(), vector(neural.DomainSeizureRisk))
	require.Error(t, err, "seizure risk never substitutes a neutral result")
	assert.ErrorIs(t, err, errors.ErrModelTimeout)
	assert.True(t, errors.IsTransient(err))
}

func TestSeizureRiskClampsScore(t *testing.T) {
	srv := &scriptedServer{scores: []float64{1.7}}
	c, err := New(neural.DomainSeizureRisk, Config{Server: srv})
	require.NoError(t, err)

	r, err := c.Classify(context.Background(), vector(neural.DomainSeizureRisk))
	require.NoError(t, err)
	assert.Equal(t, 1.0, r.SeizureRisk.Score)
	assert.Equal(t, neural.RiskImminent, r.SeizureRisk.Level)
	assert.Equal(t, 1.0, r.Confidence)
}

func TestClassifyHonorsTimeout(t *testing.T) {
	slow := &slowServer{delay: 100 * time.Millisecond}
	c, err := New(neural.DomainSeizureRisk, Config{Server: slow, Timeout: 10 * time.Millisecond})
	require.NoError(t, err)

	start := time.Now()
	_, err = c.Classify(context.Background(), vector(neural.DomainSeizureRisk))
	require.Error(t, err)
	assert.Less(t, time.Since(start), 80*time.Millisecond, "timeout must cut the call short")
}

// slowServer blocks until its context deadline.
type slowServer struct {
	delay time.Duration
}

func (s *slowServer) Infer(ctx context.Context, _ neural.Domain, _ neural.FeatureVector) (modelserver.RawOutput, error) {
	select {
	case <-time.After(s.delay):
		return modelserver.RawOutput{Scores: []float64{0.5}}, nil
	case <-ctx.Done():
		return modelserver.RawOutput{}, errors.WrapTransient(errors.ErrModelTimeout, "slowServer", "Infer", "deadline")
	}
}

func (s *slowServer) Name() string { return "slow" }
func (s *slowServer) Close() error { return nil }
