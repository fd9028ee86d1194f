// Package natsfeed ingests neural samples from a NATS subject, for
// deployments where acquisition hardware publishes to a broker instead of
// feeding the pipeline process directly. Messages are JSON-encoded
// neural.Sample values.
package natsfeed

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

// Config configures the feed.
type Config struct {
	// URL of the NATS server. Required.
	URL string

	// Subject to subscribe to. Required.
	Subject string

	// ClientName identifies this connection on the server.
	ClientName string

	// Logger (optional, defaults to slog.Default()).
	Logger *slog.Logger
}

// IngestFunc receives each decoded sample, typically processor.Ingest.
type IngestFunc func(s neural.Sample) error

// Feed subscribes to a NATS subject and forwards decoded samples into the
// pipeline.
type Feed struct {
	cfg    Config
	ingest IngestFunc
	logger *slog.Logger

	lifecycleMu sync.Mutex
	running     atomic.Bool
	nc          *nats.Conn
	sub         *nats.Subscription

	received     atomic.Uint64
	decodeErrors atomic.Uint64
	ingestErrors atomic.Uint64
}

// New creates a feed. Call Start to connect and subscribe.
func New(cfg Config, ingest IngestFunc) (*Feed, error) {
	if cfg.URL == "" || cfg.Subject == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "natsfeed", "New",
			"NATS URL and subject are required")
	}
	if ingest == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "natsfeed", "New",
			"ingest function is required")
	}
	if cfg.ClientName == "" {
		cfg.ClientName = "neurostream-feed"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Feed{
		cfg:    cfg,
		ingest: ingest,
		logger: cfg.Logger.With("component", "natsfeed"),
	}, nil
}

// Start connects and subscribes. Idempotent.
func (f *Feed) Start(ctx context.Context) error {
	f.lifecycleMu.Lock()
	defer f.lifecycleMu.Unlock()

	if f.running.Load() {
		return nil
	}

	opts := []nats.Option{
		nats.Name(f.cfg.ClientName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			f.logger.Warn("NATS disconnected", "error", err)
		}),
	}
	if deadline, ok := ctx.Deadline(); ok {
		opts = append(opts, nats.Timeout(time.Until(deadline)))
	}

	nc, err := nats.Connect(f.cfg.URL, opts...)
	if err != nil {
		return errors.WrapTransient(errors.ErrNoConnection, "natsfeed", "Start",
			fmt.Sprintf("connect to %s: %v", f.cfg.URL, err))
	}

	sub, err := nc.Subscribe(f.cfg.Subject, func(msg *nats.Msg) {
		f.handleMessage(msg.Data)
	})
	if err != nil {
		nc.Close()
		return errors.WrapTransient(err, "natsfeed", "Start",
			"subscribe to "+f.cfg.Subject)
	}

	f.nc = nc
	f.sub = sub
	f.running.Store(true)
	f.logger.Info("NATS feed started", "url", f.cfg.URL, "subject", f.cfg.Subject)
	return nil
}

// handleMessage decodes and forwards one sample. Malformed messages are
// counted and dropped; a bad publisher must not kill the subscription.
func (f *Feed) handleMessage(data []byte) {
	var s neural.Sample
	if err := json.Unmarshal(data, &s); err != nil {
		f.decodeErrors.Add(1)
		f.logger.Warn("dropping malformed sample message", "error", err)
		return
	}
	f.received.Add(1)

	if err := f.ingest(s); err != nil {
		f.ingestErrors.Add(1)
		f.logger.Warn("sample ingest failed", "error", err)
	}
}

// Stop unsubscribes and drains the connection.
func (f *Feed) Stop(timeout time.Duration) error {
	f.lifecycleMu.Lock()
	defer f.lifecycleMu.Unlock()

	if !f.running.Load() {
		return nil
	}
	f.running.Store(false)

	if f.sub != nil {
		if err := f.sub.Unsubscribe(); err != nil {
			f.logger.Warn("unsubscribe failed", "error", err)
		}
		f.sub = nil
	}
	if f.nc != nil {
		done := make(chan error, 1)
		go func() { done <- f.nc.Drain() }()
		select {
		case err := <-done:
			f.nc = nil
			if err != nil {
				return errors.WrapTransient(err, "natsfeed", "Stop", "drain connection")
			}
		case <-time.After(timeout):
			f.nc.Close()
			f.nc = nil
			return errors.WrapTransient(fmt.Errorf("drain timeout after %v", timeout),
				"natsfeed", "Stop", "graceful shutdown")
		}
	}
	return nil
}

// Received returns the decoded sample count.
func (f *Feed) Received() uint64 { return f.received.Load() }

// DecodeErrors returns the malformed message count.
func (f *Feed) DecodeErrors() uint64 { return f.decodeErrors.Load() }
