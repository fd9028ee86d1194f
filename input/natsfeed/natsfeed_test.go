package natsfeed

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/neurostream/errors"
	"github.com/c360/neurostream/neural"
)

func TestNewValidation(t *testing.T) {
	ingest := func(neural.Sample) error { return nil }

	_, err := New(Config{Subject: "neuro.samples"}, ingest)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrMissingConfig)

	_, err = New(Config{URL: "nats://localhost:4222"}, ingest)
	require.Error(t, err)

	_, err = New(Config{URL: "nats://localhost:4222", Subject: "neuro.samples"}, nil)
	require.Error(t, err)
}

func TestHandleMessageForwardsSamples(t *testing.T) {
	var got []neural.Sample
	f, err := New(Config{URL: "nats://localhost:4222", Subject: "neuro.samples"},
		func(s neural.Sample) error {
			got = append(got, s)
			return nil
		})
	require.NoError(t, err)

	sample := neural.Sample{
		Timestamp:    1.5,
		Channels:     []float64{1, 2, 3, 4},
		SamplingRate: 250,
		SourceID:     "headset-1",
	}
	data, err := json.Marshal(sample)
	require.NoError(t, err)

	f.handleMessage(data)
	require.Len(t, got, 1)
	assert.Equal(t, sample, got[0])
	assert.Equal(t, uint64(1), f.Received())
}

func TestHandleMessageDropsMalformed(t *testing.T) {
	var calls int
	f, err := New(Config{URL: "nats://localhost:4222", Subject: "neuro.samples"},
		func(neural.Sample) error {
			calls++
			return nil
		})
	require.NoError(t, err)

	f.handleMessage([]byte(`{"timestamp": `))
	assert.Zero(t, calls, "malformed messages must not reach ingest")
	assert.Equal(t, uint64(1), f.DecodeErrors())
	assert.Zero(t, f.Received())
}

func TestHandleMessageCountsIngestErrors(t *testing.T) {
	f, err := New(Config{URL: "nats://localhost:4222", Subject: "neuro.samples"},
		func(neural.Sample) error {
			return errors.WrapInvalid(errors.ErrNotStarted, "processor", "Ingest", "not running")
		})
	require.NoError(t, err)

	data, err := json.Marshal(neural.Sample{Channels: []float64{1}, SamplingRate: 250})
	require.NoError(t, err)
	f.handleMessage(data)
	assert.Equal(t, uint64(1), f.ingestErrors.Load())
}

func TestStopBeforeStartIsNoop(t *testing.T) {
	f, err := New(Config{URL: "nats://localhost:4222", Subject: "neuro.samples"},
		func(neural.Sample) error { return nil })
	require.NoError(t, err)
	require.NoError(t, f.Stop(0))
}
