package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClassString(t *testing.T) {
	assert.Equal(t, "transient", ErrorTransient.String())
	assert.Equal(t, "invalid", ErrorInvalid.String())
	assert.Equal(t, "fatal", ErrorFatal.String())
	assert.Equal(t, "unknown", ErrorClass(99).String())
}

func TestWrapHelpers(t *testing.T) {
	base := stderrors.New("connection refused")

	err := WrapTransient(base, "RemoteServer", "Infer", "POST request")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RemoteServer.Infer")
	assert.Contains(t, err.Error(), "POST request failed")
	assert.True(t, stderrors.Is(err, base))
	assert.True(t, IsTransient(err))
	assert.False(t, IsFatal(err))

	err = WrapInvalid(base, "Extractor", "Extract", "channel count check")
	assert.True(t, IsInvalid(err))
	assert.False(t, IsTransient(err))

	err = WrapFatal(base, "Processor", "Start", "pipeline setup")
	assert.True(t, IsFatal(err))
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "c", "m", "a"))
	assert.NoError(t, WrapTransient(nil, "c", "m", "a"))
	assert.NoError(t, WrapInvalid(nil, "c", "m", "a"))
	assert.NoError(t, WrapFatal(nil, "c", "m", "a"))
}

func TestSentinelClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"insufficient data", ErrInsufficientData, ErrorTransient},
		{"model timeout", ErrModelTimeout, ErrorTransient},
		{"model unavailable", ErrModelUnavailable, ErrorTransient},
		{"queue full", ErrQueueFull, ErrorTransient},
		{"context deadline", context.DeadlineExceeded, ErrorTransient},
		{"invalid window", ErrInvalidWindow, ErrorInvalid},
		{"unknown domain", ErrUnknownDomain, ErrorInvalid},
		{"invalid config", ErrInvalidConfig, ErrorFatal},
		{"missing config", ErrMissingConfig, ErrorFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestClassificationSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("reading window: %w", ErrInsufficientData)
	assert.True(t, IsTransient(err))
	assert.True(t, stderrors.Is(err, ErrInsufficientData))

	// Classified wrapping takes precedence over the sentinel class.
	err = WrapFatal(ErrModelTimeout, "SeizureClassifier", "Classify", "inference")
	assert.True(t, IsFatal(err))
	assert.True(t, stderrors.Is(err, ErrModelTimeout))
}
