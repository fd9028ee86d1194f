// Package natspub publishes classification results and alerts to NATS
// subjects so downstream consumers (dashboards, recorders, alerting) can
// subscribe without coupling to the pipeline process.
//
// Results go to <prefix>.results.<domain>, alerts to <prefix>.alerts.
package natspub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/c360/neurostream/errors"
	"github.com/c360/neurostream/neural"
)

// DefaultSubjectPrefix namespaces published subjects.
const DefaultSubjectPrefix = "neuro"

// Config configures the publisher.
type Config struct {
	// URL of the NATS server. Required.
	URL string

	// SubjectPrefix namespaces subjects (default: DefaultSubjectPrefix).
	SubjectPrefix string

	// ClientName identifies this connection on the server.
	ClientName string

	// Logger (optional, defaults to slog.Default()).
	Logger *slog.Logger
}

// conn is the part of *nats.Conn the publisher uses, separated so tests
// can substitute a fake.
type conn interface {
	Publish(subject string, data []byte) error
	Drain() error
	IsConnected() bool
}

// Publisher is a processor result and alert sink backed by NATS.
type Publisher struct {
	cfg    Config
	logger *slog.Logger

	mu sync.RWMutex
	nc conn

	published atomic.Uint64
	failed    atomic.Uint64
}

// New creates a publisher. Call Connect before registering it as a sink.
func New(cfg Config) (*Publisher, error) {
	if cfg.URL == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "natspub", "New",
			"NATS URL is required")
	}
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = DefaultSubjectPrefix
	}
	if cfg.ClientName == "" {
		cfg.ClientName = "neurostream-publisher"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Publisher{
		cfg:    cfg,
		logger: cfg.Logger.With("component", "natspub"),
	}, nil
}

// Connect establishes the NATS connection with reconnect handling.
func (p *Publisher) Connect(ctx context.Context) error {
	opts := []nats.Option{
		nats.Name(p.cfg.ClientName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			p.logger.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			p.logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	}
	if deadline, ok := ctx.Deadline(); ok {
		opts = append(opts, nats.Timeout(time.Until(deadline)))
	}

	nc, err := nats.Connect(p.cfg.URL, opts...)
	if err != nil {
		return errors.WrapTransient(errors.ErrNoConnection, "natspub", "Connect",
			fmt.Sprintf("connect to %s: %v", p.cfg.URL, err))
	}

	p.mu.Lock()
	p.nc = nc
	p.mu.Unlock()
	p.logger.Info("NATS publisher connected", "url", p.cfg.URL)
	return nil
}

// Deliver publishes one result to <prefix>.results.<domain>.
func (p *Publisher) Deliver(r neural.Result) error {
	data, err := json.Marshal(r)
	if err != nil {
		p.failed.Add(1)
		return errors.WrapInvalid(err, "natspub", "Deliver", "marshal result")
	}
	return p.publish(p.resultSubject(r.Domain), data)
}

// DeliverAlert publishes one alert to <prefix>.alerts.
func (p *Publisher) DeliverAlert(a neural.Alert) error {
	data, err := json.Marshal(a)
	if err != nil {
		p.failed.Add(1)
		return errors.WrapInvalid(err, "natspub", "DeliverAlert", "marshal alert")
	}
	return p.publish(p.alertSubject(), data)
}

func (p *Publisher) publish(subject string, data []byte) error {
	p.mu.RLock()
	nc := p.nc
	p.mu.RUnlock()

	if nc == nil || !nc.IsConnected() {
		p.failed.Add(1)
		return errors.WrapTransient(errors.ErrNoConnection, "natspub", "publish",
			"publisher is not connected")
	}
	if err := nc.Publish(subject, data); err != nil {
		p.failed.Add(1)
		return errors.WrapTransient(err, "natspub", "publish", "publish to "+subject)
	}
	p.published.Add(1)
	return nil
}

func (p *Publisher) resultSubject(domain neural.Domain) string {
	return fmt.Sprintf("%s.results.%s", p.cfg.SubjectPrefix, domain)
}

func (p *Publisher) alertSubject() string {
	return p.cfg.SubjectPrefix + ".alerts"
}

// Name identifies the sink.
func (p *Publisher) Name() string { return "natspub" }

// Published returns the successful publish count.
func (p *Publisher) Published() uint64 { return p.published.Load() }

// Failed returns the failed publish count.
func (p *Publisher) Failed() uint64 { return p.failed.Load() }

// Close drains the connection so queued messages flush before shutdown.
func (p *Publisher) Close() error {
	p.mu.Lock()
	nc := p.nc
	p.nc = nil
	p.mu.Unlock()

	if nc == nil {
		return nil
	}
	if err := nc.Drain(); err != nil {
		return errors.WrapTransient(err, "natspub", "Close", "drain connection")
	}
	return nil
}
