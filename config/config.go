package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/c360/neurostream/classifier"
	"github.com/c360/neurostream/errors"
	"github.com/c360/neurostream/neural"
)

// Model backend selectors.
const (
	BackendLocal    = "local"
	BackendRemote   = "remote"
	BackendFallback = "fallback"
)

// Duration wraps time.Duration with JSON support: strings parse via
// time.ParseDuration ("250ms", "2s"), numbers are milliseconds.
type Duration time.Duration

// Std returns the standard library duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// MarshalJSON renders the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON accepts a duration string or a number of milliseconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
	case float64:
		*d = Duration(time.Duration(v * float64(time.Millisecond)))
	default:
		return fmt.Errorf("duration must be a string or a number of milliseconds, got %T", raw)
	}
	return nil
}

// StreamConfig fixes the input stream geometry and buffering.
type StreamConfig struct {
	// Channels and SamplingRate describe the headset montage.
	Channels     int     `json:"channels"`
	SamplingRate float64 `json:"sampling_rate"`

	// SourceID labels samples from this stream.
	SourceID string `json:"source_id"`

	// Retention is the ring buffer history horizon. Must cover the
	// longest enabled domain window.
	Retention Duration `json:"retention"`

	// QueueSize bounds the shared result queue.
	QueueSize int `json:"queue_size"`

	// EOGChannel and EMGChannel are auxiliary channel indices for sleep
	// staging, or -1 when absent.
	EOGChannel int `json:"eog_channel"`
	EMGChannel int `json:"emg_channel"`
}

// DomainConfig configures one classification domain.
type DomainConfig struct {
	Enabled bool     `json:"enabled"`
	Window  Duration `json:"window"`
	Overlap Duration `json:"overlap"`
	Budget  Duration `json:"budget"`
}

// ModelConfig selects and tunes the inference backend.
type ModelConfig struct {
	// Backend is one of "local", "remote", or "fallback" (remote with a
	// local safety net).
	Backend string `json:"backend"`

	// Endpoint is the remote inference URL. Required for "remote" and
	// "fallback".
	Endpoint string `json:"endpoint,omitempty"`

	// Timeout is the hard per-call deadline for remote inference.
	Timeout Duration `json:"timeout"`

	// Risk configures seizure score bucketing.
	Risk classifier.RiskThresholds `json:"risk"`

	// WarningWindowMinutes is the seizure early-warning horizon.
	WarningWindowMinutes float64 `json:"warning_window_minutes"`
}

// FileSinkConfig configures the JSONL result writer.
type FileSinkConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// NATSConfig configures NATS connectivity for the feed source and the
// publishing sink.
type NATSConfig struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url,omitempty"`

	// SubjectPrefix namespaces published subjects (default "neuro").
	SubjectPrefix string `json:"subject_prefix,omitempty"`

	// FeedSubject, when set, subscribes the pipeline to an external
	// sample feed instead of the synthetic source.
	FeedSubject string `json:"feed_subject,omitempty"`
}

// WebSocketSinkConfig configures the live result broadcast endpoint.
type WebSocketSinkConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"`
}

// SinksConfig wires the output side.
type SinksConfig struct {
	File      FileSinkConfig      `json:"file"`
	NATS      NATSConfig          `json:"nats"`
	WebSocket WebSocketSinkConfig `json:"websocket"`
}

// LoggingConfig selects log verbosity and encoding.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `json:"level"`
	// Format is "json" or "text".
	Format string `json:"format"`
}

// Config is the complete pipeline configuration.
type Config struct {
	Stream  StreamConfig                   `json:"stream"`
	Domains map[neural.Domain]DomainConfig `json:"domains"`
	Model   ModelConfig                    `json:"model"`
	Sinks   SinksConfig                    `json:"sinks"`
	Logging LoggingConfig                  `json:"logging"`
}

// Default returns the configuration used when the file omits fields: an
// 8-channel 250 Hz stream with all four domains enabled and the local
// model backend.
func Default() *Config {
	return &Config{
		Stream: StreamConfig{
			Channels:     8,
			SamplingRate: 250,
			SourceID:     "synthetic",
			Retention:    Duration(60 * time.Second),
			QueueSize:    256,
			EOGChannel:   -1,
			EMGChannel:   -1,
		},
		Domains: map[neural.Domain]DomainConfig{
			neural.DomainMentalState: {
				Enabled: true,
				Window:  Duration(2 * time.Second),
				Overlap: Duration(time.Second),
				Budget:  Duration(100 * time.Millisecond),
			},
			neural.DomainSleepStage: {
				Enabled: true,
				Window:  Duration(30 * time.Second),
				Overlap: 0,
				Budget:  Duration(100 * time.Millisecond),
			},
			neural.DomainMotorImagery: {
				Enabled: true,
				Window:  Duration(time.Second),
				Overlap: Duration(500 * time.Millisecond),
				Budget:  Duration(50 * time.Millisecond),
			},
			neural.DomainSeizureRisk: {
				Enabled: true,
				Window:  Duration(4 * time.Second),
				Overlap: Duration(2 * time.Second),
				Budget:  Duration(100 * time.Millisecond),
			},
		},
		Model: ModelConfig{
			Backend:              BackendLocal,
			Timeout:              Duration(100 * time.Millisecond),
			Risk:                 classifier.DefaultRiskThresholds(),
			WarningWindowMinutes: classifier.DefaultWarningWindowMinutes,
		},
		Sinks: SinksConfig{
			NATS: NATSConfig{SubjectPrefix: "neuro"},
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

// Load reads a JSON config file over the defaults, applies environment
// overrides, and validates. An empty path returns the validated defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.WrapInvalid(err, "config", "Load", "read config file")
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, errors.WrapInvalid(err, "config", "Load", "parse config file")
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv layers deployment-specific environment overrides.
func applyEnv(cfg *Config) {
	if v := os.Getenv("NEUROSTREAM_NATS_URL"); v != "" {
		cfg.Sinks.NATS.URL = v
	}
	if v := os.Getenv("NEUROSTREAM_MODEL_ENDPOINT"); v != "" {
		cfg.Model.Endpoint = v
	}
	if v := os.Getenv("NEUROSTREAM_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Stream.Channels < 1 || c.Stream.Channels > 256 {
		return invalid("stream.channels must be in [1, 256], got %d", c.Stream.Channels)
	}
	if c.Stream.SamplingRate <= 0 || c.Stream.SamplingRate > 10000 {
		return invalid("stream.sampling_rate must be in (0, 10000], got %.1f", c.Stream.SamplingRate)
	}
	if c.Stream.Retention <= 0 {
		return invalid("stream.retention must be positive")
	}
	if c.Stream.QueueSize < 1 {
		return invalid("stream.queue_size must be positive, got %d", c.Stream.QueueSize)
	}
	for _, idx := range []int{c.Stream.EOGChannel, c.Stream.EMGChannel} {
		if idx >= c.Stream.Channels {
			return invalid("auxiliary channel index %d outside montage of %d channels", idx, c.Stream.Channels)
		}
	}

	enabled := 0
	for domain, dc := range c.Domains {
		if !domain.Valid() {
			return invalid("unknown domain %q", domain)
		}
		if !dc.Enabled {
			continue
		}
		enabled++
		if dc.Window <= 0 {
			return invalid("%s: window must be positive", domain)
		}
		if dc.Overlap < 0 || dc.Overlap >= dc.Window {
			return invalid("%s: overlap %s must be in [0, window)", domain, dc.Overlap.Std())
		}
		if dc.Budget <= 0 {
			return invalid("%s: budget must be positive", domain)
		}
		if dc.Window > c.Stream.Retention {
			return invalid("%s: window %s exceeds stream retention %s",
				domain, dc.Window.Std(), c.Stream.Retention.Std())
		}
	}
	if enabled == 0 {
		return invalid("at least one domain must be enabled")
	}

	switch c.Model.Backend {
	case BackendLocal:
	case BackendRemote, BackendFallback:
		if c.Model.Endpoint == "" {
			return invalid("model.endpoint is required for backend %q", c.Model.Backend)
		}
		if c.Model.Timeout <= 0 {
			return invalid("model.timeout must be positive for backend %q", c.Model.Backend)
		}
	default:
		return invalid("model.backend must be %q, %q, or %q, got %q",
			BackendLocal, BackendRemote, BackendFallback, c.Model.Backend)
	}
	if err := c.Model.Risk.Validate(); err != nil {
		return err
	}

	if c.Sinks.NATS.Enabled && c.Sinks.NATS.URL == "" {
		return invalid("sinks.nats.url is required when the NATS sink is enabled")
	}
	if c.Sinks.WebSocket.Enabled && c.Sinks.WebSocket.Addr == "" {
		return invalid("sinks.websocket.addr is required when the websocket sink is enabled")
	}
	if c.Sinks.File.Enabled && c.Sinks.File.Path == "" {
		return invalid("sinks.file.path is required when the file sink is enabled")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return invalid("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return invalid("logging.format must be json or text, got %q", c.Logging.Format)
	}

	return nil
}

// EnabledDomains returns the enabled domains in neural.Domains order.
func (c *Config) EnabledDomains() []neural.Domain {
	out := make([]neural.Domain, 0, len(c.Domains))
	for _, d := range neural.Domains {
		if dc, ok := c.Domains[d]; ok && dc.Enabled {
			out = append(out, d)
		}
	}
	return out
}

func invalid(format string, args ...any) error {
	return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
		fmt.Sprintf(format, args...))
}
