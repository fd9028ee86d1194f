package processor

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/neurostream/buffer"
	"github.com/c360/neurostream/classifier"
	"github.com/c360/neurostream/errors"
	"github.com/c360/neurostream/feature"
	"github.com/c360/neurostream/metric"
	"github.com/c360/neurostream/neural"
)

// Default sizing applied when the config leaves fields zero.
const (
	DefaultBufferRetention = 60 * time.Second
	DefaultQueueSize       = 256
)

// DomainConfig configures one domain pipeline.
type DomainConfig struct {
	// Window is the analysis window duration.
	Window time.Duration

	// Overlap between consecutive windows. Must be less than Window.
	Overlap time.Duration

	// Budget is the end-to-end latency budget for extract+classify. The
	// classification context is bounded by it and exceeding it is counted
	// and logged.
	Budget time.Duration

	// Extractor computes the domain's feature vector.
	Extractor feature.Extractor

	// Classifier turns feature vectors into results.
	Classifier classifier.Classifier
}

// Config configures a StreamProcessor.
type Config struct {
	// Channels and SamplingRate fix the stream geometry.
	Channels     int
	SamplingRate float64

	// BufferRetention is how much signal history the ring buffer holds
	// (default: DefaultBufferRetention). It must cover the longest domain
	// window.
	BufferRetention time.Duration

	// QueueSize bounds the shared result queue (default: DefaultQueueSize).
	QueueSize int

	// Domains maps each enabled domain to its pipeline configuration.
	Domains map[neural.Domain]DomainConfig

	// Logger for pipeline events (optional, defaults to slog.Default()).
	Logger *slog.Logger
}

// Option configures optional processor features.
type Option func(*StreamProcessor)

// WithMetricsRegistry enables Prometheus metrics for the processor and its
// ring buffer.
func WithMetricsRegistry(reg *metric.MetricsRegistry) Option {
	return func(sp *StreamProcessor) {
		sp.registry = reg
	}
}

// StreamProcessor runs the full pipeline: samples in through Ingest,
// typed results out through registered sinks.
type StreamProcessor struct {
	cfg       Config
	ring      *buffer.Ring
	pipelines map[neural.Domain]*pipeline
	results   chan neural.Result
	logger    *slog.Logger

	registry    *metric.MetricsRegistry
	coreMetrics *metric.Metrics
	procMetrics *procMetrics
	stats       *Statistics

	sinkMu     sync.RWMutex
	sinks      []Sink
	alertSinks []AlertSink

	lifecycleMu sync.Mutex
	running     atomic.Bool
	shutdown    chan struct{}
	done        chan struct{}
	wg          sync.WaitGroup
}

// New creates a stream processor. Call Initialize before Start.
func New(cfg Config, opts ...Option) (*StreamProcessor, error) {
	if cfg.BufferRetention <= 0 {
		cfg.BufferRetention = DefaultBufferRetention
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	sp := &StreamProcessor{
		cfg:     cfg,
		logger:  cfg.Logger.With("component", "processor"),
		results: make(chan neural.Result, cfg.QueueSize),
	}
	for _, opt := range opts {
		opt(sp)
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	var bufOpts []buffer.Option
	if sp.registry != nil {
		sp.coreMetrics = sp.registry.CoreMetrics()
		bufOpts = append(bufOpts, buffer.WithMetricsRegistry(sp.registry, "stream"))

		m, err := newProcMetrics(sp.registry)
		if err != nil {
			return nil, err
		}
		sp.procMetrics = m
	}

	capacity := int(cfg.BufferRetention.Seconds() * cfg.SamplingRate)
	ring, err := buffer.NewRing(capacity, cfg.Channels, cfg.SamplingRate, bufOpts...)
	if err != nil {
		return nil, err
	}
	sp.ring = ring
	sp.stats = NewStatistics(domainsOf(cfg))

	sp.pipelines = make(map[neural.Domain]*pipeline, len(cfg.Domains))
	for domain, dc := range cfg.Domains {
		windowSamples := ring.WindowSamples(dc.Window)
		strideSamples := ring.WindowSamples(dc.Window - dc.Overlap)
		if strideSamples < 1 {
			// Window minus overlap can round below one sample period; a
			// zero stride would re-trigger on every subsequent sample.
			strideSamples = 1
		}
		sp.pipelines[domain] = &pipeline{
			domain:        domain,
			cfg:           dc,
			windowSamples: uint64(windowSamples),
			stride:        uint64(strideSamples),
			trigger:       make(chan struct{}, 1),
		}
		sp.pipelines[domain].nextAt.Store(uint64(windowSamples))
	}

	return sp, nil
}

// validateConfig checks the processor configuration.
func validateConfig(cfg Config) error {
	if cfg.Channels <= 0 || cfg.SamplingRate <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "processor", "New",
			fmt.Sprintf("invalid geometry: %d channels at %.1f Hz", cfg.Channels, cfg.SamplingRate))
	}
	if len(cfg.Domains) == 0 {
		return errors.WrapInvalid(errors.ErrMissingConfig, "processor", "New",
			"at least one domain pipeline is required")
	}
	for domain, dc := range cfg.Domains {
		if !domain.Valid() {
			return errors.WrapInvalid(errors.ErrUnknownDomain, "processor", "New",
				"unknown domain "+string(domain))
		}
		if dc.Window <= 0 || dc.Overlap < 0 || dc.Overlap >= dc.Window {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "processor", "New",
				fmt.Sprintf("%s: window %s with overlap %s", domain, dc.Window, dc.Overlap))
		}
		if dc.Budget <= 0 {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "processor", "New",
				fmt.Sprintf("%s: latency budget is required", domain))
		}
		if dc.Window > cfg.BufferRetention {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "processor", "New",
				fmt.Sprintf("%s: window %s exceeds buffer retention %s", domain, dc.Window, cfg.BufferRetention))
		}
		if dc.Extractor == nil || dc.Classifier == nil {
			return errors.WrapInvalid(errors.ErrMissingConfig, "processor", "New",
				fmt.Sprintf("%s: extractor and classifier are required", domain))
		}
	}
	return nil
}

func domainsOf(cfg Config) []neural.Domain {
	out := make([]neural.Domain, 0, len(cfg.Domains))
	for d := range cfg.Domains {
		out = append(out, d)
	}
	return out
}

// Initialize validates wiring before Start. Safe to call multiple times.
func (sp *StreamProcessor) Initialize() error {
	sp.lifecycleMu.Lock()
	defer sp.lifecycleMu.Unlock()

	for domain, p := range sp.pipelines {
		if p.cfg.Extractor.Domain() != domain {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "processor", "Initialize",
				fmt.Sprintf("%s: extractor serves %s", domain, p.cfg.Extractor.Domain()))
		}
		if p.cfg.Classifier.Domain() != domain {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "processor", "Initialize",
				fmt.Sprintf("%s: classifier serves %s", domain, p.cfg.Classifier.Domain()))
		}
	}
	return nil
}

// Start launches the domain pipelines and the result dispatcher.
// Idempotent: starting a running processor is a no-op.
func (sp *StreamProcessor) Start(ctx context.Context) error {
	sp.lifecycleMu.Lock()
	defer sp.lifecycleMu.Unlock()

	if sp.running.Load() {
		return nil
	}

	sp.shutdown = make(chan struct{})
	sp.done = make(chan struct{})
	sp.stats.Start()

	for _, p := range sp.pipelines {
		sp.wg.Add(1)
		go func(p *pipeline) {
			defer sp.wg.Done()
			sp.runPipeline(ctx, p)
		}(p)
		if sp.coreMetrics != nil {
			sp.coreMetrics.RecordPipelineStatus(string(p.domain), 1)
		}
	}

	// The dispatcher must outlive the pipelines so results enqueued by
	// in-flight windows during shutdown are still delivered.
	pipelinesDone := make(chan struct{})
	go func(pd chan struct{}) {
		sp.wg.Wait()
		close(pd)
	}(pipelinesDone)

	go func(done, pd chan struct{}) {
		sp.dispatch(pd)
		close(done)
	}(sp.done, pipelinesDone)

	sp.running.Store(true)
	sp.logger.Info("stream processor started",
		"domains", len(sp.pipelines),
		"channels", sp.cfg.Channels,
		"sampling_rate", sp.cfg.SamplingRate)
	return nil
}

// Stop signals shutdown and waits for the pipelines to drain in-flight
// windows. A non-positive timeout defaults to twice the largest domain
// budget, the bound in-flight work can need.
func (sp *StreamProcessor) Stop(timeout time.Duration) error {
	sp.lifecycleMu.Lock()
	defer sp.lifecycleMu.Unlock()

	if !sp.running.Load() {
		return nil
	}
	sp.running.Store(false)

	if timeout <= 0 {
		timeout = 2 * sp.maxBudget()
	}

	close(sp.shutdown)

	select {
	case <-sp.done:
	case <-time.After(timeout):
		return errors.WrapTransient(fmt.Errorf("stop timeout after %v", timeout),
			"processor", "Stop", "graceful drain")
	}

	if sp.coreMetrics != nil {
		for domain := range sp.pipelines {
			sp.coreMetrics.RecordPipelineStatus(string(domain), 0)
		}
	}
	sp.logger.Info("stream processor stopped", "emitted", sp.stats.ResultsEmitted())
	return nil
}

func (sp *StreamProcessor) maxBudget() time.Duration {
	var budget time.Duration
	for _, p := range sp.pipelines {
		if p.cfg.Budget > budget {
			budget = p.cfg.Budget
		}
	}
	return budget
}

// Ingest accepts one sample into the stream. It is non-blocking: the ring
// overwrites its oldest sample when full, and pipeline triggers that find
// a window already in flight are coalesced into the pending slot.
func (sp *StreamProcessor) Ingest(s neural.Sample) error {
	if !sp.running.Load() {
		return errors.WrapInvalid(errors.ErrNotStarted, "processor", "Ingest",
			"processor is not running")
	}

	if err := sp.ring.Write(s); err != nil {
		return err
	}
	sp.stats.SampleIngested()
	if sp.coreMetrics != nil {
		sp.coreMetrics.RecordSampleIngested(s.SourceID)
	}

	total := sp.ring.TotalWritten()
	for _, p := range sp.pipelines {
		p.maybeTrigger(total, sp)
	}
	return nil
}

// RegisterSink adds a result sink. Safe to call while running.
func (sp *StreamProcessor) RegisterSink(s Sink) {
	sp.sinkMu.Lock()
	defer sp.sinkMu.Unlock()
	sp.sinks = append(sp.sinks, s)
}

// RegisterAlertSink adds an alert sink. Safe to call while running.
func (sp *StreamProcessor) RegisterAlertSink(s AlertSink) {
	sp.sinkMu.Lock()
	defer sp.sinkMu.Unlock()
	sp.alertSinks = append(sp.alertSinks, s)
}

// LastLatency returns the most recent end-to-end latency observed for a
// domain, or zero when the domain has not produced a result yet.
func (sp *StreamProcessor) LastLatency(domain neural.Domain) time.Duration {
	p, ok := sp.pipelines[domain]
	if !ok {
		return 0
	}
	ms := math.Float64frombits(p.lastLatency.Load())
	return time.Duration(ms * float64(time.Millisecond))
}

// BufferStats exposes the ring buffer statistics snapshot.
func (sp *StreamProcessor) BufferStats() buffer.StatsSummary {
	return sp.ring.Stats().Summary()
}

// dispatch drains the result queue and fans results out to sinks. On
// shutdown it waits for the pipeline goroutines to finish their in-flight
// windows, delivers everything they queued, then exits.
func (sp *StreamProcessor) dispatch(pipelinesDone <-chan struct{}) {
	for {
		select {
		case r := <-sp.results:
			sp.deliver(r)
		case <-sp.shutdown:
			<-pipelinesDone
			for {
				select {
				case r := <-sp.results:
					sp.deliver(r)
				default:
					return
				}
			}
		}
	}
}

// deliver hands one result to every registered sink.
func (sp *StreamProcessor) deliver(r neural.Result) {
	sp.sinkMu.RLock()
	sinks := sp.sinks
	sp.sinkMu.RUnlock()

	for _, s := range sinks {
		if err := s.Deliver(r); err != nil {
			sp.stats.SinkError()
			sp.logger.Warn("sink delivery failed",
				"sink", s.Name(),
				"domain", r.Domain,
				"error", err)
		}
	}

	sp.stats.ResultEmitted()
	if sp.coreMetrics != nil {
		sp.coreMetrics.RecordResultEmitted()
	}
	if sp.procMetrics != nil {
		sp.procMetrics.queueDepth.Set(float64(len(sp.results)))
	}
}

// escalate delivers an alert synchronously to every alert sink.
func (sp *StreamProcessor) escalate(a neural.Alert) {
	sp.sinkMu.RLock()
	sinks := sp.alertSinks
	sp.sinkMu.RUnlock()

	for _, s := range sinks {
		if err := s.DeliverAlert(a); err != nil {
			sp.logger.Error("alert delivery failed",
				"sink", s.Name(),
				"domain", a.Domain,
				"reason", a.Reason,
				"error", err)
		}
	}

	sp.stats.Alert()
	if sp.coreMetrics != nil {
		sp.coreMetrics.RecordAlert(string(a.Domain), a.Reason)
	}
}
