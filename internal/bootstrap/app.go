package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/yanqian/ml-services/internal/domain/dispatch"
	"github.com/yanqian/ml-services/internal/infra/config"
	"github.com/yanqian/ml-services/pkg/metrics"
)

const shutdownTimeout = 30 * time.Second

// App encapsulates the model and HTTP server lifecycle.
type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	server   *http.Server
	registry *dispatch.Registry
	metrics  *metrics.Metrics
}

// NewApp is used by Wire to build the runnable app.
func NewApp(cfg *config.Config, logger *slog.Logger, server *http.Server, registry *dispatch.Registry, m *metrics.Metrics) *App {
	return &App{
		cfg:      cfg,
		logger:   logger.With("component", "bootstrap"),
		server:   server,
		registry: registry,
		metrics:  m,
	}
}

// Run serves HTTP while the models load in the background, so /healthz
// reports loading and inference routes answer not_ready until every model is
// up. It returns when ctx ends, a server fails or a model cannot be loaded.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() {
		a.logger.Info("http server starting", "address", a.cfg.HTTP.Address, "services", a.cfg.Services.Enabled)
		if err := a.server.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()
	if a.cfg.Metrics.Enabled {
		go func() {
			a.logger.Info("metrics server starting", "address", a.cfg.Metrics.Address)
			if err := a.metrics.ListenAndServe(); err != nil {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	loadCtx, cancelLoad := context.WithCancel(ctx)
	defer cancelLoad()
	loaded := make(chan error, 1)
	go func() {
		loaded <- a.registry.LoadAll(loadCtx)
	}()

	var runErr error
wait:
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("shutdown signal received")
			break wait
		case err := <-loaded:
			loaded = nil
			if err != nil {
				runErr = fmt.Errorf("load models: %w", err)
				break wait
			}
			a.logger.Info("all models ready")
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				runErr = err
			}
			break wait
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, err)
	}
	if a.cfg.Metrics.Enabled {
		if err := a.metrics.Server.Shutdown(shutdownCtx); err != nil {
			runErr = errors.Join(runErr, err)
		}
	}
	if loaded != nil {
		cancelLoad()
		select {
		case <-loaded:
		case <-shutdownCtx.Done():
			a.logger.Warn("model loading still running at shutdown")
		}
	}
	if err := a.registry.ShutdownAll(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, err)
	}
	return runErr
}
