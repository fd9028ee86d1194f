package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/neurostream/errors"
	"github.com/c360/neurostream/neural"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Stream.Channels)
	assert.Equal(t, BackendLocal, cfg.Model.Backend)
	assert.Len(t, cfg.EnabledDomains(), 4)
}

func TestLoadOverlaysFileOnDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"stream": {
			"channels": 32,
			"sampling_rate": 500,
			"source_id": "lab-headset",
			"retention": "90s",
			"queue_size": 512,
			"eog_channel": 30,
			"emg_channel": 31
		},
		"domains": {
			"mental_state": {"enabled": true, "window": "2s", "overlap": "1s", "budget": 90},
			"sleep_stage": {"enabled": false},
			"motor_imagery": {"enabled": true, "window": "1s", "overlap": "500ms", "budget": "50ms"},
			"seizure_risk": {"enabled": true, "window": "4s", "overlap": "2s", "budget": "100ms"}
		},
		"model": {
			"backend": "fallback",
			"endpoint": "http://inference:9000/v1/infer",
			"timeout": "80ms",
			"risk": {"medium": 0.2, "high": 0.45, "imminent": 0.75},
			"warning_window_minutes": 15
		},
		"logging": {"level": "debug", "format": "text"}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 32, cfg.Stream.Channels)
	assert.Equal(t, 500.0, cfg.Stream.SamplingRate)
	assert.Equal(t, 90*time.Second, cfg.Stream.Retention.Std())
	assert.Equal(t, 30, cfg.Stream.EOGChannel)

	// Numeric durations are milliseconds.
	assert.Equal(t, 90*time.Millisecond, cfg.Domains[neural.DomainMentalState].Budget.Std())
	assert.False(t, cfg.Domains[neural.DomainSleepStage].Enabled)
	assert.Equal(t,
		[]neural.Domain{neural.DomainMentalState, neural.DomainMotorImagery, neural.DomainSeizureRisk},
		cfg.EnabledDomains())

	assert.Equal(t, BackendFallback, cfg.Model.Backend)
	assert.Equal(t, 0.45, cfg.Model.Risk.High)
	assert.Equal(t, 15.0, cfg.Model.WarningWindowMinutes)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	_, err := Load(writeConfig(t, `{"stream": `))
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("NEUROSTREAM_NATS_URL", "nats://broker:4222")
	t.Setenv("NEUROSTREAM_MODEL_ENDPOINT", "http://models:9000/v1/infer")
	t.Setenv("NEUROSTREAM_LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "nats://broker:4222", cfg.Sinks.NATS.URL)
	assert.Equal(t, "http://models:9000/v1/infer", cfg.Model.Endpoint)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *Config)
	}{
		{"zero channels", func(cfg *Config) { cfg.Stream.Channels = 0 }},
		{"excessive channels", func(cfg *Config) { cfg.Stream.Channels = 1000 }},
		{"zero rate", func(cfg *Config) { cfg.Stream.SamplingRate = 0 }},
		{"aux channel outside montage", func(cfg *Config) { cfg.Stream.EOGChannel = 8 }},
		{"no enabled domains", func(cfg *Config) {
			for d, dc := range cfg.Domains {
				dc.Enabled = false
				cfg.Domains[d] = dc
			}
		}},
		{"overlap at window", func(cfg *Config) {
			dc := cfg.Domains[neural.DomainMentalState]
			dc.Overlap = dc.Window
			cfg.Domains[neural.DomainMentalState] = dc
		}},
		{"window beyond retention", func(cfg *Config) {
			dc := cfg.Domains[neural.DomainSleepStage]
			dc.Window = Duration(2 * time.Hour)
			cfg.Domains[neural.DomainSleepStage] = dc
		}},
		{"remote without endpoint", func(cfg *Config) { cfg.Model.Backend = BackendRemote }},
		{"unknown backend", func(cfg *Config) { cfg.Model.Backend = "quantum" }},
		{"bad risk thresholds", func(cfg *Config) { cfg.Model.Risk.Imminent = 0.1 }},
		{"nats sink without url", func(cfg *Config) { cfg.Sinks.NATS.Enabled = true }},
		{"file sink without path", func(cfg *Config) { cfg.Sinks.File.Enabled = true }},
		{"bad log level", func(cfg *Config) { cfg.Logging.Level = "verbose" }},
		{"bad log format", func(cfg *Config) { cfg.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
		})
	}
}

func TestDurationRoundTrip(t *testing.T) {
	d := Duration(250 * time.Millisecond)
	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"250ms"`, string(data))

	var parsed Duration
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, d, parsed)

	require.Error(t, json.Unmarshal([]byte(`true`), &parsed))
	require.Error(t, json.Unmarshal([]byte(`"fast"`), &parsed))
}
