package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/yanqian/ask-console/internal/domain/session"
	"github.com/yanqian/ask-console/internal/infra/analytics"
	"github.com/yanqian/ask-console/internal/infra/config"
)

// App encapsulates the HTTP server lifecycle and its background workers.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	server  *http.Server
	manager *session.Manager
	tracker *analytics.AsyncTracker
}

// NewApp is used by Wire to build the runnable app.
func NewApp(cfg *config.Config, logger *slog.Logger, server *http.Server, manager *session.Manager, tracker *analytics.AsyncTracker) *App {
	return &App{
		cfg:     cfg,
		logger:  logger.With("component", "bootstrap"),
		server:  server,
		manager: manager,
		tracker: tracker,
	}
}

// Run starts the HTTP server and blocks until shutdown.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	sweepCtx, stopSweep := context.WithCancel(ctx)
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		a.manager.Run(sweepCtx, a.cfg.Session.SweepInterval)
	}()

	go func() {
		a.logger.Info("http server starting", "address", a.cfg.HTTP.Address, "backend", a.cfg.Backend.BaseURL)
		if err := a.server.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}
	stopSweep()
	<-sweepDone
	if err := a.tracker.Close(shutdownCtx); err != nil {
		a.logger.Warn("analytics queue not drained", "error", err, "dropped", a.tracker.Dropped())
	}
	return runErr
}
