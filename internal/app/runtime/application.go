// Package runtime wires configuration, logging, the application services,
// and the HTTP server into a runnable process.
package runtime

import (
	"context"
	"fmt"
	"net/http"
	"time"

	app "github.com/PolkaTrace/trace_layer/internal/app"
	"github.com/PolkaTrace/trace_layer/internal/app/httpapi"
	"github.com/PolkaTrace/trace_layer/internal/app/metrics"
	"github.com/PolkaTrace/trace_layer/internal/config"
	"github.com/PolkaTrace/trace_layer/internal/logging"
	"github.com/PolkaTrace/trace_layer/internal/middleware"
	"github.com/PolkaTrace/trace_layer/pkg/logger"
)

// Application wires core dependencies and manages the HTTP server lifecycle.
type Application struct {
	cfg        *config.Config
	log        *logger.Logger
	app        *app.Application
	httpServer *http.Server
	stopClean  chan struct{}
}

// NewApplication constructs a runnable process from the given configuration.
// A nil cfg loads config/traced.yaml or the defaults.
func NewApplication(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		cfg = config.LoadOrDefault()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log := logger.New(logger.LoggingConfig{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Service: "traced",
	})
	requestLog := logging.New("traced", cfg.Logging.Level, cfg.Logging.Format)

	application, err := app.New(app.Options{
		AdminAddress:      cfg.Ledger.AdminAddress,
		Seed:              cfg.Ledger.Seed,
		AuditSize:         cfg.Ledger.AuditSize,
		Delays:            &cfg.Latency,
		SimulatorEnabled:  cfg.Simulator.Enabled,
		SimulatorInterval: cfg.Simulator.Interval,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("compose application: %w", err)
	}

	var handler http.Handler = httpapi.NewHandler(application.Controller, log)
	handler = metrics.InstrumentHandler(handler)

	stopClean := make(chan struct{})
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, requestLog)
		limiter.StartCleanup(time.Minute, stopClean)
		handler = limiter.Handler(handler)
	}
	handler = middleware.NewTracingMiddleware(requestLog).Handler(handler)
	handler = middleware.NewCORSMiddleware(cfg.CORS.AllowedOrigins).Handler(handler)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", handler)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &Application{
		cfg:        cfg,
		log:        log,
		app:        application,
		httpServer: httpServer,
		stopClean:  stopClean,
	}, nil
}

// App exposes the composed application services.
func (a *Application) App() *app.Application {
	return a.app
}

// Run starts the services and the HTTP server, then blocks until the
// context is cancelled or the server fails.
func (a *Application) Run(ctx context.Context) error {
	if err := a.app.Start(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Infof("HTTP server listening on %s:%d", a.cfg.Server.Host, a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server and the application services.
func (a *Application) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	close(a.stopClean)

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := a.app.Stop(shutdownCtx); err != nil {
		a.log.WithError(err).Warn("error stopping application services")
	}
	return nil
}
