package processor

import (
	"sync/atomic"
	"time"

	"github.com/c360/neurostream/neural"
)

// domainCounters tracks per-domain pipeline activity.
type domainCounters struct {
	windows        atomic.Uint64
	errors         atomic.Uint64
	budgetExceeded atomic.Uint64
	coalesced      atomic.Uint64
}

// Statistics tracks processor activity with atomic counters. Always
// collected; Prometheus metrics are layered on top when a registry is
// configured.
type Statistics struct {
	samplesIngested atomic.Uint64
	resultsEmitted  atomic.Uint64
	resultsDropped  atomic.Uint64
	alerts          atomic.Uint64
	sinkErrors      atomic.Uint64

	domains map[neural.Domain]*domainCounters

	startNanos atomic.Int64
}

// NewStatistics creates counters for the given domains. The domain map is
// fixed at construction so lookups need no locking.
func NewStatistics(domains []neural.Domain) *Statistics {
	s := &Statistics{domains: make(map[neural.Domain]*domainCounters, len(domains))}
	for _, d := range domains {
		s.domains[d] = &domainCounters{}
	}
	return s
}

// Start records the processing start time.
func (s *Statistics) Start() { s.startNanos.Store(time.Now().UnixNano()) }

// SampleIngested counts one accepted sample.
func (s *Statistics) SampleIngested() { s.samplesIngested.Add(1) }

// WindowProcessed counts one window cut for a domain.
func (s *Statistics) WindowProcessed(d neural.Domain) {
	if c, ok := s.domains[d]; ok {
		c.windows.Add(1)
	}
}

// PipelineError counts one pipeline stage failure for a domain.
func (s *Statistics) PipelineError(d neural.Domain) {
	if c, ok := s.domains[d]; ok {
		c.errors.Add(1)
	}
}

// BudgetExceeded counts one latency budget violation for a domain.
func (s *Statistics) BudgetExceeded(d neural.Domain) {
	if c, ok := s.domains[d]; ok {
		c.budgetExceeded.Add(1)
	}
}

// TriggerCoalesced counts one trigger absorbed by the pending slot.
func (s *Statistics) TriggerCoalesced(d neural.Domain) {
	if c, ok := s.domains[d]; ok {
		c.coalesced.Add(1)
	}
}

// ResultEmitted counts one result delivered to sinks.
func (s *Statistics) ResultEmitted() { s.resultsEmitted.Add(1) }

// ResultDropped counts one result dropped past the bounded queue.
func (s *Statistics) ResultDropped() { s.resultsDropped.Add(1) }

// Alert counts one escalated alert.
func (s *Statistics) Alert() { s.alerts.Add(1) }

// SinkError counts one failed sink delivery.
func (s *Statistics) SinkError() { s.sinkErrors.Add(1) }

// SamplesIngested returns the accepted sample count.
func (s *Statistics) SamplesIngested() uint64 { return s.samplesIngested.Load() }

// ResultsEmitted returns the delivered result count.
func (s *Statistics) ResultsEmitted() uint64 { return s.resultsEmitted.Load() }

// ResultsDropped returns the dropped result count.
func (s *Statistics) ResultsDropped() uint64 { return s.resultsDropped.Load() }

// Alerts returns the escalated alert count.
func (s *Statistics) Alerts() uint64 { return s.alerts.Load() }

// SinkErrors returns the failed delivery count.
func (s *Statistics) SinkErrors() uint64 { return s.sinkErrors.Load() }

// DomainHealth is a point-in-time snapshot of one pipeline.
type DomainHealth struct {
	Windows        uint64  `json:"windows"`
	Errors         uint64  `json:"errors"`
	BudgetExceeded uint64  `json:"budget_exceeded"`
	Coalesced      uint64  `json:"coalesced_triggers"`
	LastLatencyMS  float64 `json:"last_latency_ms"`
}

// Health is a point-in-time snapshot of the processor.
type Health struct {
	Running         bool                           `json:"running"`
	UptimeSeconds   float64                        `json:"uptime_seconds"`
	SamplesIngested uint64                         `json:"samples_ingested"`
	ResultsEmitted  uint64                         `json:"results_emitted"`
	ResultsDropped  uint64                         `json:"results_dropped"`
	Alerts          uint64                         `json:"alerts"`
	SinkErrors      uint64                         `json:"sink_errors"`
	Domains         map[neural.Domain]DomainHealth `json:"domains"`
}

// Health returns a consistent-enough snapshot for monitoring. Counters are
// read individually, so totals may straddle concurrent updates.
func (sp *StreamProcessor) Health() Health {
	h := Health{
		Running:         sp.running.Load(),
		SamplesIngested: sp.stats.SamplesIngested(),
		ResultsEmitted:  sp.stats.ResultsEmitted(),
		ResultsDropped:  sp.stats.ResultsDropped(),
		Alerts:          sp.stats.Alerts(),
		SinkErrors:      sp.stats.SinkErrors(),
		Domains:         make(map[neural.Domain]DomainHealth, len(sp.pipelines)),
	}
	if start := sp.stats.startNanos.Load(); start > 0 {
		h.UptimeSeconds = time.Since(time.Unix(0, start)).Seconds()
	}
	for domain := range sp.pipelines {
		c := sp.stats.domains[domain]
		h.Domains[domain] = DomainHealth{
			Windows:        c.windows.Load(),
			Errors:         c.errors.Load(),
			BudgetExceeded: c.budgetExceeded.Load(),
			Coalesced:      c.coalesced.Load(),
			LastLatencyMS:  float64(sp.LastLatency(domain)) / float64(time.Millisecond),
		}
	}
	return h
}
