// Package main implements the entry point for the NeuroStream pipeline.
// NeuroStream classifies a multi-channel neural signal stream in real time
// across four domains: mental state, sleep stage, motor imagery, and
// seizure risk.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/c360/neurostream/classifier"
	"github.com/c360/neurostream/config"
	"github.com/c360/neurostream/feature"
	"github.com/c360/neurostream/input/natsfeed"
	"github.com/c360/neurostream/input/synthetic"
	"github.com/c360/neurostream/metric"
	"github.com/c360/neurostream/modelserver"
	"github.com/c360/neurostream/neural"
	"github.com/c360/neurostream/output/file"
	"github.com/c360/neurostream/output/natspub"
	"github.com/c360/neurostream/output/websocket"
	"github.com/c360/neurostream/processor"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "neurostream"
)

// source is the lifecycle surface shared by the synthetic generator and
// the NATS feed.
type source interface {
	Start(ctx context.Context) error
	Stop(timeout time.Duration) error
}

// stopper is any sink or server that needs a shutdown call.
type stopper func() error

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}
	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil
	}

	cfg, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := setupLogger(
		firstNonEmpty(cliCfg.LogLevel, cfg.Logging.Level),
		firstNonEmpty(cliCfg.LogFormat, cfg.Logging.Format),
	)
	slog.SetDefault(logger)

	if cliCfg.Validate {
		slog.Info("Configuration is valid", "config_path", cliCfg.ConfigPath)
		return nil
	}

	slog.Info("Starting NeuroStream",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath,
		"channels", cfg.Stream.Channels,
		"sampling_rate", cfg.Stream.SamplingRate,
		"domains", cfg.EnabledDomains(),
		"model_backend", cfg.Model.Backend)

	ctx := context.Background()
	registry := metric.NewMetricsRegistry()

	server, err := buildModelServer(cfg, registry, logger)
	if err != nil {
		return fmt.Errorf("build model server: %w", err)
	}
	defer server.Close()

	sp, err := buildProcessor(cfg, server, registry, logger)
	if err != nil {
		return fmt.Errorf("build processor: %w", err)
	}

	stoppers, err := attachSinks(ctx, cfg, sp, logger)
	if err != nil {
		return fmt.Errorf("attach sinks: %w", err)
	}

	src, err := buildSource(cfg, cliCfg.Seed, sp, logger)
	if err != nil {
		return fmt.Errorf("build source: %w", err)
	}

	adminStop := startAdminServer(cliCfg.AdminAddr, registry, sp)

	return runWithSignalHandling(ctx, sp, src, stoppers, adminStop, cliCfg.ShutdownTimeout)
}

// buildModelServer constructs the inference backend selected by the
// config and instruments it for metrics.
func buildModelServer(
	cfg *config.Config,
	registry *metric.MetricsRegistry,
	logger *slog.Logger,
) (modelserver.Server, error) {
	var server modelserver.Server
	switch cfg.Model.Backend {
	case config.BackendLocal:
		server = modelserver.NewLocal()
	case config.BackendRemote:
		remote, err := modelserver.NewRemote(modelserver.RemoteConfig{
			Endpoint: cfg.Model.Endpoint,
			Timeout:  cfg.Model.Timeout.Std(),
			Logger:   logger,
		})
		if err != nil {
			return nil, err
		}
		server = remote
	case config.BackendFallback:
		remote, err := modelserver.NewRemote(modelserver.RemoteConfig{
			Endpoint: cfg.Model.Endpoint,
			Timeout:  cfg.Model.Timeout.Std(),
			Logger:   logger,
		})
		if err != nil {
			return nil, err
		}
		server = modelserver.NewFallback(remote, modelserver.NewLocal(), logger)
	default:
		return nil, fmt.Errorf("unknown model backend %q", cfg.Model.Backend)
	}

	return modelserver.Instrument(server, registry.CoreMetrics()), nil
}

// buildProcessor assembles per-domain extractors and classifiers and
// creates the stream processor.
func buildProcessor(
	cfg *config.Config,
	server modelserver.Server,
	registry *metric.MetricsRegistry,
	logger *slog.Logger,
) (*processor.StreamProcessor, error) {
	featCfg := feature.Config{
		Channels:     cfg.Stream.Channels,
		SamplingRate: cfg.Stream.SamplingRate,
		EOGChannel:   cfg.Stream.EOGChannel,
		EMGChannel:   cfg.Stream.EMGChannel,
	}

	pcfg := processor.Config{
		Channels:        cfg.Stream.Channels,
		SamplingRate:    cfg.Stream.SamplingRate,
		BufferRetention: cfg.Stream.Retention.Std(),
		QueueSize:       cfg.Stream.QueueSize,
		Domains:         make(map[neural.Domain]processor.DomainConfig),
		Logger:          logger,
	}

	for _, domain := range cfg.EnabledDomains() {
		dcfg := cfg.Domains[domain]

		extractor, err := feature.NewExtractor(domain, featCfg)
		if err != nil {
			return nil, fmt.Errorf("extractor for %s: %w", domain, err)
		}

		cls, err := classifier.New(domain, classifier.Config{
			Server:               server,
			Timeout:              dcfg.Budget.Std(),
			Risk:                 cfg.Model.Risk,
			WarningWindowMinutes: cfg.Model.WarningWindowMinutes,
			Logger:               logger,
		})
		if err != nil {
			return nil, fmt.Errorf("classifier for %s: %w", domain, err)
		}

		pcfg.Domains[domain] = processor.DomainConfig{
			Window:     dcfg.Window.Std(),
			Overlap:    dcfg.Overlap.Std(),
			Budget:     dcfg.Budget.Std(),
			Extractor:  extractor,
			Classifier: cls,
		}
	}

	sp, err := processor.New(pcfg, processor.WithMetricsRegistry(registry))
	if err != nil {
		return nil, err
	}
	if err := sp.Initialize(); err != nil {
		return nil, err
	}
	return sp, nil
}

// attachSinks creates and registers the configured output sinks, returning
// their shutdown functions in registration order.
func attachSinks(
	ctx context.Context,
	cfg *config.Config,
	sp *processor.StreamProcessor,
	logger *slog.Logger,
) ([]stopper, error) {
	var stoppers []stopper

	if cfg.Sinks.File.Enabled {
		sink, err := file.New(file.Config{Path: cfg.Sinks.File.Path, Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("file sink: %w", err)
		}
		sp.RegisterSink(sink)
		stoppers = append(stoppers, sink.Close)
		slog.Info("File sink attached", "path", cfg.Sinks.File.Path)
	}

	if cfg.Sinks.NATS.Enabled {
		pub, err := natspub.New(natspub.Config{
			URL:           cfg.Sinks.NATS.URL,
			SubjectPrefix: cfg.Sinks.NATS.SubjectPrefix,
			ClientName:    appName,
			Logger:        logger,
		})
		if err != nil {
			return nil, fmt.Errorf("NATS sink: %w", err)
		}
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err = pub.Connect(connectCtx)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("NATS sink: %w", err)
		}
		sp.RegisterSink(pub)
		sp.RegisterAlertSink(pub)
		stoppers = append(stoppers, pub.Close)
		slog.Info("NATS sink attached", "url", cfg.Sinks.NATS.URL)
	}

	if cfg.Sinks.WebSocket.Enabled {
		bc, err := websocket.New(websocket.Config{Addr: cfg.Sinks.WebSocket.Addr, Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("websocket sink: %w", err)
		}
		if err := bc.Start(ctx); err != nil {
			return nil, fmt.Errorf("websocket sink: %w", err)
		}
		sp.RegisterSink(bc)
		sp.RegisterAlertSink(bc)
		stoppers = append(stoppers, func() error { return bc.Stop(5 * time.Second) })
		slog.Info("WebSocket sink attached", "addr", bc.Addr())
	}

	return stoppers, nil
}

// buildSource selects the sample source: a NATS feed when one is
// configured, otherwise the synthetic generator.
func buildSource(
	cfg *config.Config,
	seed int64,
	sp *processor.StreamProcessor,
	logger *slog.Logger,
) (source, error) {
	if cfg.Sinks.NATS.Enabled && cfg.Sinks.NATS.FeedSubject != "" {
		slog.Info("Using NATS sample feed", "subject", cfg.Sinks.NATS.FeedSubject)
		return natsfeed.New(natsfeed.Config{
			URL:        cfg.Sinks.NATS.URL,
			Subject:    cfg.Sinks.NATS.FeedSubject,
			ClientName: appName + "-feed",
			Logger:     logger,
		}, sp.Ingest)
	}

	slog.Info("Using synthetic sample source", "seed", seed)
	return synthetic.New(synthetic.Config{
		Channels:     cfg.Stream.Channels,
		SamplingRate: cfg.Stream.SamplingRate,
		SourceID:     cfg.Stream.SourceID,
		Seed:         seed,
		Logger:       logger,
	}, sp.Ingest)
}

// startAdminServer serves /metrics and /healthz. Returns a shutdown
// function, or a no-op when the admin address is empty.
func startAdminServer(addr string, registry *metric.MetricsRegistry, sp *processor.StreamProcessor) stopper {
	if addr == "" {
		return func() error { return nil }
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(
		registry.PrometheusRegistry(),
		promhttp.HandlerOpts{},
	))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(sp.Health())
	})

	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Admin server failed", "error", err)
		}
	}()
	slog.Info("Admin server listening", "addr", addr)

	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(ctx)
	}
}

// runWithSignalHandling starts the pipeline and source, waits for a
// shutdown signal, and stops everything in reverse order.
func runWithSignalHandling(
	ctx context.Context,
	sp *processor.StreamProcessor,
	src source,
	stoppers []stopper,
	adminStop stopper,
	shutdownTimeout time.Duration,
) error {
	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	if err := sp.Start(signalCtx); err != nil {
		return fmt.Errorf("start processor: %w", err)
	}
	if err := src.Start(signalCtx); err != nil {
		sp.Stop(shutdownTimeout)
		return fmt.Errorf("start source: %w", err)
	}

	slog.Info("NeuroStream started")
	<-signalCtx.Done()
	slog.Info("Received shutdown signal")

	// Stop the source first so no new samples arrive, then drain the
	// processor, then release the sinks.
	var firstErr error
	if err := src.Stop(shutdownTimeout); err != nil {
		slog.Error("Error stopping source", "error", err)
		firstErr = err
	}
	if err := sp.Stop(shutdownTimeout); err != nil {
		slog.Error("Error stopping processor", "error", err)
		if firstErr == nil {
			firstErr = err
		}
	}
	for _, stop := range stoppers {
		if err := stop(); err != nil {
			slog.Error("Error stopping sink", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if err := adminStop(); err != nil {
		slog.Error("Error stopping admin server", "error", err)
		if firstErr == nil {
			firstErr = err
		}
	}

	if firstErr != nil {
		return fmt.Errorf("graceful shutdown failed: %w", firstErr)
	}
	slog.Info("NeuroStream shutdown complete")
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
