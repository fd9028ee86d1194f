package processor

import (
	"context"
	stderrors "errors"
	"math"
	"sync/atomic"
	"time"

	"github.com/c360/neurostream/errors"
	"github.com/c360/neurostream/neural"
)

// pipeline holds the per-domain processing state. Its run loop is the only
// goroutine that cuts windows, extracts, and classifies for the domain,
// which is what guarantees per-domain emission order.
type pipeline struct {
	domain neural.Domain
	cfg    DomainConfig

	windowSamples uint64
	stride        uint64

	// nextAt is the TotalWritten threshold that schedules the next window.
	nextAt atomic.Uint64

	// trigger has capacity 1: a trigger arriving while a window is in
	// flight parks in the slot, further ones coalesce into it.
	trigger chan struct{}

	// lastLatency stores the most recent latency in milliseconds as
	// Float64bits.
	lastLatency atomic.Uint64
}

// maybeTrigger schedules a window when enough new samples have arrived
// since the last trigger.
func (p *pipeline) maybeTrigger(totalWritten uint64, sp *StreamProcessor) {
	for {
		next := p.nextAt.Load()
		if totalWritten < next {
			return
		}
		if !p.nextAt.CompareAndSwap(next, next+p.stride) {
			continue
		}
		select {
		case p.trigger <- struct{}{}:
		default:
			// A trigger is already pending; this one coalesces into it.
			sp.stats.TriggerCoalesced(p.domain)
			if sp.procMetrics != nil {
				sp.procMetrics.triggersCoalesced.Inc()
			}
		}
		return
	}
}

// runPipeline is the domain goroutine: it waits for triggers and processes
// one window at a time until shutdown.
func (sp *StreamProcessor) runPipeline(ctx context.Context, p *pipeline) {
	for {
		select {
		case <-sp.shutdown:
			return
		case <-ctx.Done():
			return
		case <-p.trigger:
			sp.processWindow(ctx, p)
		}
	}
}

// processWindow runs one extract+classify cycle for a domain.
func (sp *StreamProcessor) processWindow(ctx context.Context, p *pipeline) {
	start := time.Now()

	w, err := sp.ring.ReadWindow(p.cfg.Window, p.cfg.Overlap)
	if err != nil {
		// A retention-horizon race can briefly leave fewer samples than
		// the trigger accounting promised; the next trigger catches up.
		if !stderrors.Is(err, errors.ErrInsufficientData) {
			sp.recordPipelineError(p.domain, "read_window", err)
		}
		return
	}
	sp.stats.WindowProcessed(p.domain)
	if sp.coreMetrics != nil {
		sp.coreMetrics.RecordWindowExtracted(string(p.domain))
	}

	fv, err := p.cfg.Extractor.Extract(w)
	if err != nil {
		sp.recordPipelineError(p.domain, "extract", err)
		if p.domain == neural.DomainSeizureRisk {
			sp.escalate(neural.NewAlert(p.domain, "extraction_failed", err.Error()))
		}
		return
	}

	classifyCtx, cancel := context.WithTimeout(ctx, p.cfg.Budget)
	r, err := p.cfg.Classifier.Classify(classifyCtx, fv)
	cancel()
	if err != nil {
		sp.recordPipelineError(p.domain, "classify", err)
		if p.domain == neural.DomainSeizureRisk {
			sp.escalate(neural.NewAlert(p.domain, alertReason(err), err.Error()))
		}
		return
	}

	latency := time.Since(start)
	r.LatencyMS = float64(latency) / float64(time.Millisecond)
	p.lastLatency.Store(floatBits(r.LatencyMS))

	if sp.coreMetrics != nil {
		sp.coreMetrics.RecordClassificationLatency(string(p.domain), latency)
		sp.coreMetrics.RecordClassification(string(p.domain), string(r.Quality))
	}
	if latency > p.cfg.Budget {
		sp.stats.BudgetExceeded(p.domain)
		sp.logger.Warn("latency budget exceeded",
			"domain", p.domain,
			"latency_ms", r.LatencyMS,
			"budget_ms", float64(p.cfg.Budget)/float64(time.Millisecond))
	}

	select {
	case sp.results <- r:
		if sp.procMetrics != nil {
			sp.procMetrics.queueDepth.Set(float64(len(sp.results)))
		}
	default:
		// Queue full: drop the result rather than block the pipeline. A
		// stale classification is worthless in a live stream.
		sp.stats.ResultDropped()
		if sp.coreMetrics != nil {
			sp.coreMetrics.RecordResultDropped()
		}
		sp.logger.Warn("result queue full, dropping result",
			"domain", p.domain,
			"queue_size", cap(sp.results))
	}
}

// recordPipelineError counts and logs a pipeline stage failure.
func (sp *StreamProcessor) recordPipelineError(domain neural.Domain, stage string, err error) {
	sp.stats.PipelineError(domain)
	if sp.coreMetrics != nil {
		sp.coreMetrics.RecordError("processor."+string(domain), errors.Classify(err).String())
	}
	sp.logger.Warn("pipeline stage failed",
		"domain", domain,
		"stage", stage,
		"error", err)
}

func floatBits(f float64) uint64 { return math.Float64bits(f) }

// alertReason maps a classification error to a short machine-usable cause.
func alertReason(err error) string {
	switch {
	case stderrors.Is(err, errors.ErrModelTimeout):
		return "model_timeout"
	case stderrors.Is(err, errors.ErrModelUnavailable):
		return "model_unavailable"
	default:
		return "classification_failed"
	}
}
