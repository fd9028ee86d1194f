// Package synthetic generates a paced synthetic EEG stream for development
// and testing. Each channel is a sum of band-limited oscillations with
// configurable amplitudes plus Gaussian noise, so extractors see realistic
// spectral structure without hardware attached.
package synthetic

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/c360/neurostream/errors"
	"github.com/c360/neurostream/neural"
)

// BandAmplitudes sets the per-band oscillation amplitude in microvolts.
// Zero disables a band.
type BandAmplitudes struct {
	Delta float64 `json:"delta"`
	Theta float64 `json:"theta"`
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
	Gamma float64 `json:"gamma"`
}

// DefaultBands approximates a relaxed wakeful EEG: alpha-dominant with
// moderate beta.
func DefaultBands() BandAmplitudes {
	return BandAmplitudes{Delta: 5, Theta: 8, Alpha: 20, Beta: 10, Gamma: 3}
}

// Band center frequencies in Hz used by the oscillator bank.
var bandFrequencies = [5]float64{2, 6, 10, 20, 40}

// Config configures the generator.
type Config struct {
	Channels     int
	SamplingRate float64
	SourceID     string

	// Bands sets the spectral mix (default: DefaultBands).
	Bands BandAmplitudes

	// NoiseAmplitude scales the additive Gaussian noise (default: 2).
	NoiseAmplitude float64

	// Seed fixes the noise and phase PRNG for reproducible streams.
	// Zero seeds from the clock.
	Seed int64

	// Logger (optional, defaults to slog.Default()).
	Logger *slog.Logger
}

// IngestFunc receives each generated sample, typically
// processor.Ingest.
type IngestFunc func(s neural.Sample) error

// Generator produces samples at the configured rate and hands them to an
// ingest function. Pacing uses a token-bucket limiter so bursts after
// scheduler hiccups catch up instead of drifting.
type Generator struct {
	cfg    Config
	ingest IngestFunc
	logger *slog.Logger

	phases []float64 // per channel per band
	noise  *rand.Rand
	clock  float64 // stream time in samples

	generated atomic.Uint64
	errCount  atomic.Uint64

	lifecycleMu sync.Mutex
	running     atomic.Bool
	shutdown    chan struct{}
	done        chan struct{}
}

// New creates a generator feeding the ingest function.
func New(cfg Config, ingest IngestFunc) (*Generator, error) {
	if cfg.Channels <= 0 || cfg.SamplingRate <= 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "synthetic", "New",
			fmt.Sprintf("invalid geometry: %d channels at %.1f Hz", cfg.Channels, cfg.SamplingRate))
	}
	if ingest == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "synthetic", "New",
			"ingest function is required")
	}
	if cfg.Bands == (BandAmplitudes{}) {
		cfg.Bands = DefaultBands()
	}
	if cfg.NoiseAmplitude == 0 {
		cfg.NoiseAmplitude = 2
	}
	if cfg.SourceID == "" {
		cfg.SourceID = "synthetic"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	phases := make([]float64, cfg.Channels*len(bandFrequencies))
	for i := range phases {
		phases[i] = rng.Float64() * 2 * math.Pi
	}

	return &Generator{
		cfg:    cfg,
		ingest: ingest,
		logger: cfg.Logger.With("component", "synthetic"),
		phases: phases,
		noise:  rng,
	}, nil
}

// Start launches the generation loop. Idempotent.
func (g *Generator) Start(ctx context.Context) error {
	g.lifecycleMu.Lock()
	defer g.lifecycleMu.Unlock()

	if g.running.Load() {
		return nil
	}
	g.shutdown = make(chan struct{})
	g.done = make(chan struct{})
	g.running.Store(true)

	go func(done chan struct{}) {
		defer close(done)
		g.run(ctx)
	}(g.done)

	g.logger.Info("synthetic source started",
		"channels", g.cfg.Channels,
		"sampling_rate", g.cfg.SamplingRate,
		"source_id", g.cfg.SourceID)
	return nil
}

// Stop halts generation and waits for the loop to exit.
func (g *Generator) Stop(timeout time.Duration) error {
	g.lifecycleMu.Lock()
	defer g.lifecycleMu.Unlock()

	if !g.running.Load() {
		return nil
	}
	g.running.Store(false)
	close(g.shutdown)

	select {
	case <-g.done:
		return nil
	case <-time.After(timeout):
		return errors.WrapTransient(fmt.Errorf("stop timeout after %v", timeout),
			"synthetic", "Stop", "generator shutdown")
	}
}

// Generated returns the number of samples produced so far.
func (g *Generator) Generated() uint64 { return g.generated.Load() }

// run paces sample generation at the sampling rate.
func (g *Generator) run(ctx context.Context) {
	limiter := rate.NewLimiter(rate.Limit(g.cfg.SamplingRate), int(g.cfg.SamplingRate/10)+1)

	for {
		select {
		case <-g.shutdown:
			return
		case <-ctx.Done():
			return
		default:
		}

		if err := limiter.Wait(ctx); err != nil {
			return
		}

		if err := g.ingest(g.Next()); err != nil {
			g.errCount.Add(1)
			g.logger.Warn("sample ingest failed", "error", err)
		}
	}
}

// Next produces the next sample in the stream. Exposed so tests can pull
// samples without running the paced loop.
func (g *Generator) Next() neural.Sample {
	t := g.clock / g.cfg.SamplingRate
	g.clock++

	channels := make([]float64, g.cfg.Channels)
	amps := [5]float64{g.cfg.Bands.Delta, g.cfg.Bands.Theta, g.cfg.Bands.Alpha, g.cfg.Bands.Beta, g.cfg.Bands.Gamma}
	for ch := range channels {
		v := g.cfg.NoiseAmplitude * g.noise.NormFloat64()
		for b, freq := range bandFrequencies {
			if amps[b] == 0 {
				continue
			}
			phase := g.phases[ch*len(bandFrequencies)+b]
			v += amps[b] * math.Sin(2*math.Pi*freq*t+phase)
		}
		channels[ch] = v
	}

	g.generated.Add(1)
	return neural.Sample{
		Timestamp:    t,
		Channels:     channels,
		SamplingRate: g.cfg.SamplingRate,
		SourceID:     g.cfg.SourceID,
	}
}
