// Package file writes classification results to a JSONL file, one result
// per line. Writes are buffered and flushed periodically so the sink can
// keep up with high-rate domains without an fsync per result.
package file

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/neurostream/errors"
	"github.com/c360/neurostream/neural"
)

// DefaultFlushInterval bounds how long a written result can sit in the
// buffer before reaching disk.
const DefaultFlushInterval = time.Second

// Config configures the file sink.
type Config struct {
	// Path of the JSONL output file. Required. Parent directories are
	// created as needed.
	Path string

	// Append opens the file in append mode instead of truncating.
	Append bool

	// FlushInterval bounds buffered write latency (default:
	// DefaultFlushInterval).
	FlushInterval time.Duration

	// Logger (optional, defaults to slog.Default()).
	Logger *slog.Logger
}

// Sink writes results as JSON lines.
type Sink struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	closed bool

	written    atomic.Uint64
	writeFails atomic.Uint64

	flushStop chan struct{}
	flushDone chan struct{}
}

// New opens the output file and starts the periodic flusher.
func New(cfg Config) (*Sink, error) {
	if cfg.Path == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "file", "New",
			"output path is required")
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultFlushInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, errors.WrapFatal(err, "file", "New", "create output directory")
	}

	flags := os.O_CREATE | os.O_WRONLY
	if cfg.Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(cfg.Path, flags, 0o644)
	if err != nil {
		return nil, errors.WrapFatal(err, "file", "New", "open output file")
	}

	s := &Sink{
		cfg:       cfg,
		logger:    cfg.Logger.With("component", "file-sink"),
		file:      f,
		writer:    bufio.NewWriter(f),
		flushStop: make(chan struct{}),
		flushDone: make(chan struct{}),
	}
	go s.flushLoop()
	return s, nil
}

// Deliver writes one result as a JSON line.
func (s *Sink) Deliver(r neural.Result) error {
	data, err := json.Marshal(r)
	if err != nil {
		s.writeFails.Add(1)
		return errors.WrapInvalid(err, "file", "Deliver", "marshal result")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.writeFails.Add(1)
		return errors.WrapInvalid(errors.ErrAlreadyStopped, "file", "Deliver",
			"sink is closed")
	}
	if _, err := s.writer.Write(append(data, '\n')); err != nil {
		s.writeFails.Add(1)
		return errors.WrapTransient(err, "file", "Deliver", "write result line")
	}
	s.written.Add(1)
	return nil
}

// Name identifies the sink.
func (s *Sink) Name() string { return "file" }

// Written returns the successfully written result count.
func (s *Sink) Written() uint64 { return s.written.Load() }

// flushLoop flushes the buffer on an interval until Close.
func (s *Sink) flushLoop() {
	defer close(s.flushDone)
	ticker := time.NewTicker(s.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			if !s.closed {
				if err := s.writer.Flush(); err != nil {
					s.logger.Warn("flush failed", "path", s.cfg.Path, "error", err)
				}
			}
			s.mu.Unlock()
		case <-s.flushStop:
			return
		}
	}
}

// Close flushes and closes the file. Subsequent Deliver calls fail.
func (s *Sink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.flushStop)
	<-s.flushDone

	s.mu.Lock()
	defer s.mu.Unlock()
	flushErr := s.writer.Flush()
	closeErr := s.file.Close()
	if flushErr != nil {
		return errors.WrapTransient(flushErr, "file", "Close", "final flush")
	}
	if closeErr != nil {
		return errors.WrapTransient(closeErr, "file", "Close",
			fmt.Sprintf("close %s", s.cfg.Path))
	}
	return nil
}
