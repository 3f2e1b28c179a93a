// v0
// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"salesops/recovery/internal/circuitbreaker"
	"salesops/recovery/internal/config"
	"salesops/recovery/internal/dataset"
	httpserver "salesops/recovery/internal/http"
	"salesops/recovery/internal/metrics"
	"salesops/recovery/internal/publish"
	"salesops/recovery/internal/recovery"
	"salesops/recovery/internal/session"
)

// Application wires configuration, logging, the recovery engine, sessions,
// the export publisher and the HTTP server.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	logFile   *os.File
	server    *http.Server
	health    *httpserver.HealthState
	sessions  *session.Store
	publisher *publish.Publisher
}

// New prepares a fully wired service instance. The dataset is loaded (or the
// builtin table selected) once here and shared read-only afterwards.
func New(cfg config.Config) (*Application, error) {
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		return nil, errors.New("listen address cannot be empty")
	}
	logPath := filepath.Clean(cfg.LogFilePath)
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	lf, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	logger := NewLogger(lf, slog.LevelInfo)

	data, err := dataset.Load(cfg.DatasetPath)
	if err != nil {
		_ = lf.Close()
		return nil, fmt.Errorf("dataset: %w", err)
	}
	logger.Info("dataset_loaded",
		slog.String("path", cfg.DatasetPath),
		slog.Int("records", data.Len()),
		slog.Any("regions", data.Regions()),
	)

	m := metrics.New()
	engine := recovery.NewEngine(data, recovery.TopK)
	sessions := session.NewStore(engine, cfg.SessionTTL, logger, m.SetSessionsActive)

	pub, err := publish.New(publish.Config{
		Enabled: cfg.ExportPublishEnabled,
		Topic:   cfg.ExportTopic,
		Brokers: cfg.KafkaBrokers,
		Breaker: circuitbreaker.Config{
			MaxFailures:  cfg.BreakerMaxFailures,
			ResetTimeout: cfg.BreakerReset,
		},
	}, logger, m)
	if err != nil {
		_ = lf.Close()
		return nil, fmt.Errorf("export publisher init: %w", err)
	}

	health := httpserver.NewHealthState()
	handler := httpserver.NewRouter(httpserver.Deps{
		Engine:         engine,
		Sessions:       sessions,
		Publisher:      pub,
		Metrics:        m,
		Health:         health,
		Logger:         logger,
		AllowedOrigins: cfg.AllowedOrigins,
	})
	server := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		ReadHeaderTimeout: cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPWriteTimeout,
	}

	return &Application{
		cfg:       cfg,
		logger:    logger,
		logFile:   lf,
		server:    server,
		health:    health,
		sessions:  sessions,
		publisher: pub,
	}, nil
}

// Logger exposes the configured logger.
func (a *Application) Logger() *slog.Logger {
	return a.logger
}

// Handler exposes the HTTP handler, mostly for tests.
func (a *Application) Handler() http.Handler {
	return a.server.Handler
}

// Run blocks until ctx is cancelled or the listener fails, then shuts the
// server down gracefully and drains the export publisher.
func (a *Application) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.cfg.ListenAddress, err)
	}
	return a.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (a *Application) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.publisher.Start(ctx); err != nil {
		_ = ln.Close()
		return fmt.Errorf("start export publisher: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.sessions.Run(ctx, a.cfg.SessionSweep)
	}()

	httpCh := make(chan error, 1)
	go func() {
		a.health.SetReady(true)
		a.logger.Info("http_server_listen", slog.String("address", ln.Addr().String()))
		httpCh <- a.server.Serve(ln)
	}()

	var runErr error
	select {
	case err := <-httpCh:
		httpCh = nil
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http_server_error", slog.Any("err", err))
			runErr = err
		}
	case <-ctx.Done():
		a.logger.Info("shutdown_signal")
	}

	a.health.SetReady(false)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server_shutdown_failed", slog.Any("err", err))
		if runErr == nil {
			runErr = fmt.Errorf("shutdown: %w", err)
		}
	}
	if httpCh != nil {
		if err := <-httpCh; err != nil && !errors.Is(err, http.ErrServerClosed) && runErr == nil {
			runErr = err
		}
	}
	if err := a.publisher.Stop(shutdownCtx); err != nil {
		a.logger.Error("export_publisher_stop_failed", slog.Any("err", err))
	}
	wg.Wait()

	if runErr == nil {
		a.logger.Info("shutdown_complete")
	}
	return runErr
}

// Close releases resources owned by the application.
func (a *Application) Close() error {
	if a.logFile == nil {
		return nil
	}
	err := a.logFile.Close()
	a.logFile = nil
	return err
}
