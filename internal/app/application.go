package app

import (
	"context"
	"fmt"
	"time"

	"github.com/PolkaTrace/trace_layer/internal/app/latency"
	"github.com/PolkaTrace/trace_layer/internal/app/services/lifecycle"
	"github.com/PolkaTrace/trace_layer/internal/app/services/session"
	"github.com/PolkaTrace/trace_layer/internal/app/services/wallet"
	"github.com/PolkaTrace/trace_layer/internal/app/simulator"
	"github.com/PolkaTrace/trace_layer/internal/app/state"
	"github.com/PolkaTrace/trace_layer/internal/app/storage"
	"github.com/PolkaTrace/trace_layer/internal/app/storage/memory"
	"github.com/PolkaTrace/trace_layer/internal/app/system"
	"github.com/PolkaTrace/trace_layer/pkg/logger"
)

// Options configures the application composition. The zero value yields a
// working in-memory application with Alice as admin and default delays.
type Options struct {
	AdminAddress string
	Seed         bool
	AuditSize    int
	Delays       *latency.Profile

	// Store overrides the in-memory ledger. It must also implement
	// state.Seeder when Seed is set.
	Store storage.LedgerStore

	// Provider overrides the simulated wallet.
	Provider wallet.Provider

	SimulatorEnabled  bool
	SimulatorInterval time.Duration
}

// Application ties the trace layer services together and manages their
// lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Session    *session.Service
	Lifecycle  *lifecycle.Service
	Controller *state.Controller
	Simulator  *simulator.Simulator
}

// New builds a fully initialised application.
func New(opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	admin := opts.AdminAddress
	if admin == "" {
		admin = wallet.AliceAddress
	}
	delays := latency.Default()
	if opts.Delays != nil {
		delays = *opts.Delays
	}

	store := opts.Store
	if store == nil {
		store = memory.New(admin)
	}
	provider := opts.Provider
	if provider == nil {
		provider = wallet.NewSimulated(wallet.WithDelays(delays))
	}

	sess := session.New(provider, store, log)
	engine := lifecycle.New(sess, store, log, lifecycle.WithDelays(delays))

	ctrlOpts := []state.Option{state.WithDelays(delays)}
	if opts.AuditSize > 0 {
		ctrlOpts = append(ctrlOpts, state.WithAuditSize(opts.AuditSize))
	}
	if opts.Seed {
		seeder, ok := store.(state.Seeder)
		if !ok {
			return nil, fmt.Errorf("seeding requested but store cannot seed")
		}
		ctrlOpts = append(ctrlOpts, state.WithSeed(seeder))
	}
	ctrl := state.NewController(sess, engine, log, ctrlOpts...)

	manager := system.NewManager()
	for _, name := range []string{"session", "lifecycle", "state"} {
		if err := manager.Register(system.NoopService{ServiceName: name}); err != nil {
			return nil, fmt.Errorf("register %s service: %w", name, err)
		}
	}

	var sim *simulator.Simulator
	if opts.SimulatorEnabled {
		sim = simulator.New(ctrl, opts.SimulatorInterval, log)
		if err := manager.Register(sim); err != nil {
			return nil, fmt.Errorf("register %s: %w", sim.Name(), err)
		}
	}

	return &Application{
		manager:    manager,
		log:        log,
		Session:    sess,
		Lifecycle:  engine,
		Controller: ctrl,
		Simulator:  sim,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before
// Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start initializes the controller and begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	if err := a.Controller.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize state: %w", err)
	}
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
