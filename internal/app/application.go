package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"airsuck/internal/basestation"
	"airsuck/internal/beast"
	"airsuck/internal/logging"
	"airsuck/internal/metrics"
	"airsuck/internal/observability"
	"airsuck/internal/sink"
	"airsuck/internal/store"
	"airsuck/internal/track"
)

const (
	// expireInterval is how often stale aircraft are dropped.
	expireInterval = 10 * time.Second
	// rotateInterval is how often the rotated logs check for a new day.
	rotateInterval = time.Minute

	basestationPrefix = "basestation"
)

// Application represents the main application
type Application struct {
	config Config
	logger *logrus.Logger

	stdin  io.Reader
	stdout io.Writer

	pipeline        *Pipeline
	engine          *track.Engine
	store           store.Store
	sinks           sink.Multi
	rotators        []*logging.Rotator
	metrics         *metrics.Collector
	metricsServer   *http.Server
	shutdownTracing func(context.Context) error

	wg sync.WaitGroup
}

// NewApplication creates a new application instance
func NewApplication(config Config) *Application {
	logger := logrus.New()
	if config.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}
	if config.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	return &Application{
		config: config,
		logger: logger,
		stdin:  os.Stdin,
		stdout: os.Stdout,
	}
}

// Start runs the application until the input is exhausted, ctx is done or
// a shutdown signal arrives.
func (app *Application) Start(ctx context.Context) error {
	if err := app.config.Validate(); err != nil {
		return err
	}

	app.logger.WithFields(logrus.Fields{
		"version":    Version,
		"build_time": BuildTime,
		"git_commit": GitCommit,
		"format":     app.config.Format,
		"input":      app.config.Input,
	}).Info("Starting airsuck")

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.initializeComponents(ctx); err != nil {
		app.shutdown()
		return fmt.Errorf("failed to initialize components: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	app.startBackground(runCtx)

	err := app.consumeInput(runCtx)
	if errors.Is(err, context.Canceled) {
		app.logger.Info("Received shutdown signal")
		err = nil
	}

	cancel()
	app.shutdown()
	return err
}

// initializeComponents initializes all application components
func (app *Application) initializeComponents(ctx context.Context) error {
	var err error

	app.shutdownTracing, err = observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     app.config.Tracing,
		ServiceName: "airsuck",
		SampleRatio: app.config.SampleRatio,
		Writer:      os.Stderr,
	}, app.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	reg := prometheus.NewRegistry()
	app.metrics, err = metrics.NewCollector(reg)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	if app.config.RedisAddr != "" {
		app.store, err = store.NewRedis(ctx, app.config.RedisAddr, app.config.RedisPassword, app.config.RedisDB, app.logger)
		if err != nil {
			return fmt.Errorf("failed to initialize Redis store: %w", err)
		}
	} else {
		app.store = store.NewMemory(store.DefaultCleanupInterval)
	}

	receiver, err := app.config.ReceiverPosition()
	if err != nil {
		return err
	}
	app.engine = track.NewEngine(track.Config{
		CPRExpire: app.config.CPRExpire,
		StateTTL:  app.config.StateTTL,
		Receiver:  receiver,
	}, app.logger)

	if err := app.initializeSinks(ctx); err != nil {
		return err
	}

	app.pipeline = NewPipeline(app.config, PipelineDeps{
		Dedup:     app.store,
		Fragments: app.store,
		Engine:    app.engine,
		Metrics:   app.metrics,
		Sink:      app.sinks,
	}, app.logger)

	return nil
}

func (app *Application) initializeSinks(ctx context.Context) error {
	if app.config.RecordLog {
		rotator, err := logging.NewRotator(app.config.LogDir, logging.DefaultPrefix, app.config.LogRotateUTC, app.logger)
		if err != nil {
			return fmt.Errorf("failed to initialize record log: %w", err)
		}
		app.rotators = append(app.rotators, rotator)
		app.sinks = append(app.sinks, sink.NewFile(rotator))
	}

	if app.config.BaseStation {
		rotator, err := logging.NewRotator(app.config.LogDir, basestationPrefix, app.config.LogRotateUTC, app.logger)
		if err != nil {
			return fmt.Errorf("failed to initialize BaseStation log: %w", err)
		}
		app.rotators = append(app.rotators, rotator)
		app.sinks = append(app.sinks, sink.NewBaseStation(basestation.NewWriter(rotator, app.logger), rotator))
	}

	if app.config.NATSURL != "" {
		n, err := sink.NewNATS(app.config.NATSURL, app.logger)
		if err != nil {
			return err
		}
		app.sinks = append(app.sinks, n)
	}

	if app.config.PostgresDSN != "" {
		pg, err := sink.NewPostgres(ctx, app.config.PostgresDSN, app.logger)
		if err != nil {
			return err
		}
		app.sinks = append(app.sinks, pg)
	}

	// records go to stdout when nothing else is configured
	if len(app.sinks) == 0 {
		app.sinks = append(app.sinks, sink.NewFile(nopCloser{app.stdout}))
	}
	return nil
}

// startBackground starts the periodic tasks.
func (app *Application) startBackground(ctx context.Context) {
	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		app.engine.Run(ctx, expireInterval)
	}()

	for _, r := range app.rotators {
		app.wg.Add(1)
		go func(r *logging.Rotator) {
			defer app.wg.Done()
			r.Run(ctx, rotateInterval)
		}(r)
	}

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		app.reportStatistics(ctx)
	}()

	if app.config.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", app.metrics.Handler())
		app.metricsServer = &http.Server{
			Addr:              app.config.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		app.wg.Add(1)
		go func() {
			defer app.wg.Done()
			app.logger.WithField("addr", app.config.MetricsAddr).Info("Serving metrics")
			if err := app.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				app.logger.WithError(err).Error("Metrics server failed")
			}
		}()
	}
}

// consumeInput feeds the configured input through the pipeline.
func (app *Application) consumeInput(ctx context.Context) error {
	r, closeInput, err := app.openInput()
	if err != nil {
		return err
	}
	defer closeInput()

	src := app.config.SourceName

	if app.config.Format == FormatBeast {
		decoder := beast.NewDecoder(app.logger)
		return decoder.Run(ctx, r, func(msg *beast.Message) {
			if err := app.pipeline.HandleBeast(ctx, src, msg); err != nil {
				app.logger.WithError(err).Debug("Failed to handle beast message")
			}
		})
	}

	handle := app.pipeline.HandleSSR
	if app.config.Format == FormatNMEA {
		handle = app.pipeline.HandleAIS
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := handle(ctx, src, line); err != nil {
			app.logger.WithError(err).WithField("line", line).Debug("Failed to handle input")
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	return nil
}

func (app *Application) openInput() (io.Reader, func(), error) {
	if app.config.Input == DefaultInput {
		return app.stdin, func() {}, nil
	}
	f, err := os.Open(app.config.Input)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open input: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// reportStatistics reports processing statistics periodically
func (app *Application) reportStatistics(ctx context.Context) {
	ticker := time.NewTicker(app.config.StatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			app.logStatistics()
			return
		case <-ticker.C:
			app.logStatistics()
		}
	}
}

func (app *Application) logStatistics() {
	s := app.pipeline.Stats()
	app.logger.WithFields(logrus.Fields{
		"ssr_frames":    s.SSRFrames,
		"ssr_invalid":   s.SSRInvalid,
		"ssr_corrected": s.SSRCorrected,
		"ais_sentences": s.AISSentences,
		"ais_invalid":   s.AISInvalid,
		"ais_fragments": s.AISFragments,
		"duplicates":    s.Duplicates,
		"sink_errors":   s.SinkErrors,
		"aircraft":      app.engine.Len(),
	}).Info("Processing statistics")
}

// shutdown gracefully shuts down the application
func (app *Application) shutdown() {
	app.logger.Info("Shutting down application")

	if app.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := app.metricsServer.Shutdown(ctx); err != nil {
			app.logger.WithError(err).Warn("Metrics server shutdown failed")
		}
		cancel()
	}

	done := make(chan struct{})
	go func() {
		app.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		app.logger.Debug("All goroutines finished")
	case <-time.After(5 * time.Second):
		app.logger.Warn("Shutdown timeout, forcing exit")
	}

	// sinks close their rotators
	if err := app.sinks.Close(); err != nil {
		app.logger.WithError(err).Warn("Failed to close sinks")
	}
	if app.store != nil {
		if err := app.store.Close(); err != nil {
			app.logger.WithError(err).Warn("Failed to close store")
		}
	}
	observability.ShutdownWithTimeout(context.Background(), app.shutdownTracing, app.logger)

	app.logger.Info("Shutdown completed")
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
