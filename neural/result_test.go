package neural

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainValid(t *testing.T) {
	for _, d := range Domains {
		assert.True(t, d.Valid(), d)
	}
	assert.False(t, Domain("emotion").Valid())
	assert.False(t, Domain("").Valid())
}

func TestResultValidate(t *testing.T) {
	valid := NewResult(DomainMentalState)
	valid.Confidence = 0.9
	valid.LatencyMS = 12.5
	valid.MentalState = &MentalStateResult{State: StateFocused}
	require.NoError(t, valid.Validate())

	t.Run("confidence out of range", func(t *testing.T) {
		r := valid
		r.Confidence = 1.1
		assert.Error(t, r.Validate())
		r.Confidence = -0.1
		assert.Error(t, r.Validate())
	})

	t.Run("negative latency", func(t *testing.T) {
		r := valid
		r.LatencyMS = -1
		assert.Error(t, r.Validate())
	})

	t.Run("no variant", func(t *testing.T) {
		r := NewResult(DomainMentalState)
		assert.Error(t, r.Validate())
	})

	t.Run("two variants", func(t *testing.T) {
		r := valid
		r.SleepStage = &SleepStageResult{Stage: StageN2}
		assert.Error(t, r.Validate())
	})

	t.Run("variant does not match tag", func(t *testing.T) {
		r := NewResult(DomainSeizureRisk)
		r.MentalState = &MentalStateResult{State: StateNeutral}
		assert.Error(t, r.Validate())
	})
}

func TestResultJSONRoundTrip(t *testing.T) {
	r := NewResult(DomainSeizureRisk)
	r.Confidence = 0.42
	r.LatencyMS = 80
	r.SeizureRisk = &SeizureRiskResult{Level: RiskMedium, Score: 0.42, WarningWindowMinutes: 20}

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var got Result
	require.NoError(t, json.Unmarshal(data, &got))
	require.NoError(t, got.Validate())
	assert.Equal(t, RiskMedium, got.SeizureRisk.Level)
	assert.Nil(t, got.MentalState, "other variants stay absent")
}

func TestSampleValidate(t *testing.T) {
	s := Sample{Timestamp: 1.0, Channels: make([]float64, 8), SamplingRate: 250, SourceID: "test"}
	require.NoError(t, s.Validate(8, 250))
	assert.Error(t, s.Validate(16, 250), "channel mismatch")
	assert.Error(t, s.Validate(8, 500), "rate mismatch")
}

func TestWindowGeometry(t *testing.T) {
	w := Window{
		Start:        0,
		End:          1.996,
		SamplingRate: 250,
		Data:         make([][]float64, 8),
	}
	for ch := range w.Data {
		w.Data[ch] = make([]float64, 500)
	}
	assert.Equal(t, 8, w.NumChannels())
	assert.Equal(t, 500, w.NumSamples())
	assert.InDelta(t, 2.0, w.Duration().Seconds(), 1e-9)
}

func TestFeatureVectorValidate(t *testing.T) {
	fv := FeatureVector{
		Domain: DomainMotorImagery,
		Names:  []string{"mu_power", "beta_power"},
		Values: []float64{0.5, 0.25},
	}
	require.NoError(t, fv.Validate())

	fv.Names = fv.Names[:1]
	assert.Error(t, fv.Validate())

	fv.Names = []string{"a", "b"}
	fv.Domain = "bogus"
	assert.Error(t, fv.Validate())
}

func TestNewAlert(t *testing.T) {
	a := NewAlert(DomainSeizureRisk, "model_timeout", "inference deadline exceeded")
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, DomainSeizureRisk, a.Domain)
	assert.Equal(t, "model_timeout", a.Reason)
	assert.False(t, a.Timestamp.IsZero())
}
