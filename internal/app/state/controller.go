package state

import (
	"context"
	"sync"
	"time"

	"github.com/PolkaTrace/trace_layer/internal/app/domain/product"
	"github.com/PolkaTrace/trace_layer/internal/app/latency"
	"github.com/PolkaTrace/trace_layer/internal/app/services/lifecycle"
	"github.com/PolkaTrace/trace_layer/internal/app/services/session"
	"github.com/PolkaTrace/trace_layer/internal/errors"
	"github.com/PolkaTrace/trace_layer/pkg/logger"
)

// Seeder is implemented by stores that accept pre-built product records.
type Seeder interface {
	SeedProduct(p product.Product) error
}

// SnapshotHandler observes snapshot changes. Handlers run synchronously on
// the mutating goroutine and must not call back into the controller.
type SnapshotHandler func(Snapshot)

// Controller drives the observable application state. A single mutex
// serializes mutating operations; reads never block behind them.
type Controller struct {
	session *session.Service
	engine  *lifecycle.Service
	seeder  Seeder
	log     *logger.Logger
	delays  latency.Profile
	seed    bool
	audit   *AuditLog

	opMu sync.Mutex

	mu       sync.RWMutex
	snap     Snapshot
	handlers []snapshotHandlerEntry
	nextID   int64
}

type snapshotHandlerEntry struct {
	id      int64
	handler SnapshotHandler
}

// Option customizes the controller.
type Option func(*Controller)

// WithDelays sets the simulated latency profile.
func WithDelays(delays latency.Profile) Option {
	return func(c *Controller) {
		c.delays = delays
	}
}

// WithSeed enables sample ledger data on Initialize. The store must
// implement Seeder.
func WithSeed(seeder Seeder) Option {
	return func(c *Controller) {
		c.seed = seeder != nil
		c.seeder = seeder
	}
}

// WithAuditSize sets the transition buffer capacity.
func WithAuditSize(size int) Option {
	return func(c *Controller) {
		c.audit = NewAuditLog(size)
	}
}

// NewController constructs the state controller.
func NewController(sess *session.Service, engine *lifecycle.Service, log *logger.Logger, opts ...Option) *Controller {
	if log == nil {
		log = logger.NewDefault("state")
	}
	c := &Controller{
		session: sess,
		engine:  engine,
		log:     log,
		delays:  latency.Default(),
		snap:    Initial(),
		audit:   NewAuditLog(0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Current returns the latest snapshot.
func (c *Controller) Current() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// Audit exposes the transition log read-only.
func (c *Controller) Audit() *AuditLog {
	return c.audit
}

// Subscribe registers a handler invoked after every applied action batch
// with the resulting snapshot. The returned function unsubscribes.
func (c *Controller) Subscribe(handler SnapshotHandler) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.handlers = append(c.handlers, snapshotHandlerEntry{id: id, handler: handler})
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, h := range c.handlers {
			if h.id == id {
				c.handlers = append(c.handlers[:i], c.handlers[i+1:]...)
				return
			}
		}
	}
}

// apply reduces the actions in order and notifies subscribers once with the
// resulting snapshot.
func (c *Controller) apply(actions ...Action) Snapshot {
	c.mu.Lock()
	for _, a := range actions {
		c.snap = Reduce(c.snap, a)
	}
	snap := c.snap
	handlers := make([]snapshotHandlerEntry, len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.Unlock()

	for _, h := range handlers {
		h.handler(snap)
	}
	return snap
}

// failureMessage extracts the user-facing message from an operation error.
func failureMessage(err error) string {
	if se := errors.GetServiceError(err); se != nil {
		return se.Message
	}
	return err.Error()
}

// do runs one mutating operation under the loading protocol: loading goes
// up, the operation runs, then either the error is cleared and the result
// actions apply, or the failure message lands in the snapshot. The error is
// returned to the caller either way.
func (c *Controller) do(ctx context.Context, operation string, op func(context.Context) ([]Action, error)) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	return c.doLocked(ctx, operation, op)
}

// doLocked is do for callers already holding opMu.
func (c *Controller) doLocked(ctx context.Context, operation string, op func(context.Context) ([]Action, error)) error {
	started := time.Now()
	c.apply(SetLoading{Loading: true})

	actions, err := op(ctx)
	if err != nil {
		c.apply(SetError{Message: failureMessage(err)})
		c.audit.Record(Transition{
			Operation: operation,
			Duration:  time.Since(started),
			Error:     err.Error(),
		})
		c.log.WithError(err).WithField("operation", operation).Warn("state operation failed")
		return err
	}

	actions = append(actions, SetError{Message: ""}, SetLoading{Loading: false})
	c.apply(actions...)
	c.audit.Record(Transition{
		Operation: operation,
		Duration:  time.Since(started),
	})
	return nil
}

// Initialize establishes the ledger binding: it resolves the admin address
// and, when seeding is enabled, loads the sample catalog. Calling it on an
// already initialized controller is a no-op.
func (c *Controller) Initialize(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	// Checked under opMu so racing callers cannot both attempt seeding.
	if c.Current().Initialized {
		return nil
	}
	return c.doLocked(ctx, "initialize", func(ctx context.Context) ([]Action, error) {
		if err := latency.Sleep(ctx, c.delays.Initialize); err != nil {
			return nil, errors.Connection("initialization interrupted", err)
		}
		admin, err := c.engine.Admin(ctx)
		if err != nil {
			return nil, err
		}
		if c.seed {
			if err := c.seedSamples(admin); err != nil {
				return nil, err
			}
		}
		c.log.WithField("admin", admin).Info("state initialized")
		return []Action{
			SetInitialized{Initialized: true},
			SetAdmin{Admin: admin},
		}, nil
	})
}

// seedSamples loads two demonstration products against the admin identity.
func (c *Controller) seedSamples(admin string) error {
	now := time.Now().UnixMilli()
	samples := []product.Product{
		{
			ID:           "1",
			Owner:        admin,
			Manufacturer: admin,
			Metadata:     "Organic Coffee Beans - Ethiopian Highlands - Batch #2024001",
			CreatedAt:    now - 24*time.Hour.Milliseconds(),
			EventCount:   3,
		},
		{
			ID:           "2",
			Owner:        "5FHneW46xGXgs5mUiveU4sbTyGBzmstUspZC92UhjJM694ty",
			Manufacturer: admin,
			Metadata:     "Premium Swiss Watch - Model XLT-2024",
			CreatedAt:    now - 48*time.Hour.Milliseconds(),
			EventCount:   5,
		},
	}
	for _, p := range samples {
		if err := c.seeder.SeedProduct(p); err != nil {
			return err
		}
	}
	return nil
}

// Connect loads the wallet roster and auto-selects the first account, the
// way the dashboard connects.
func (c *Controller) Connect(ctx context.Context) error {
	return c.do(ctx, "connect", func(ctx context.Context) ([]Action, error) {
		accounts, err := c.session.Connect(ctx)
		if err != nil {
			return nil, err
		}
		actions := []Action{
			SetAccounts{Accounts: accounts},
			SetConnected{Connected: true},
		}
		if len(accounts) > 0 {
			selected, err := c.session.SelectActive(ctx, accounts[0].Address)
			if err != nil {
				return nil, err
			}
			authorized, err := c.session.IsAuthorized(ctx)
			if err != nil {
				return nil, err
			}
			actions = append(actions,
				SetSelected{Selected: &selected},
				SetBalance{Balance: c.session.Balance()},
				SetAuthorized{Authorized: authorized},
			)
		}
		return actions, nil
	})
}

// SelectAccount makes the given roster address active and refreshes its
// balance and authorization.
func (c *Controller) SelectAccount(ctx context.Context, address string) error {
	return c.do(ctx, "select_account", func(ctx context.Context) ([]Action, error) {
		selected, err := c.session.SelectActive(ctx, address)
		if err != nil {
			return nil, err
		}
		authorized, err := c.session.IsAuthorized(ctx)
		if err != nil {
			return nil, err
		}
		return []Action{
			SetSelected{Selected: &selected},
			SetBalance{Balance: c.session.Balance()},
			SetAuthorized{Authorized: authorized},
		}, nil
	})
}

// Disconnect tears down the session and restores the initial snapshot.
func (c *Controller) Disconnect(ctx context.Context) error {
	return c.do(ctx, "disconnect", func(ctx context.Context) ([]Action, error) {
		c.session.Disconnect(ctx)
		return []Action{Reset{}}, nil
	})
}

// RegisterProduct records a new product for the active identity.
func (c *Controller) RegisterProduct(ctx context.Context, metadata string) (product.Product, error) {
	var created product.Product
	err := c.do(ctx, "register_product", func(ctx context.Context) ([]Action, error) {
		var err error
		created, err = c.engine.RegisterProduct(ctx, metadata)
		return nil, err
	})
	return created, err
}

// LogEvent applies a lifecycle event as the active identity.
func (c *Controller) LogEvent(ctx context.Context, productID string, eventType product.EventType) (product.Product, error) {
	var updated product.Product
	err := c.do(ctx, "log_event", func(ctx context.Context) ([]Action, error) {
		var err error
		updated, err = c.engine.LogEvent(ctx, productID, eventType)
		return nil, err
	})
	return updated, err
}

// SetAuthorization grants or revokes event-logging rights. When the change
// targets the active identity its authorization flag is refreshed.
func (c *Controller) SetAuthorization(ctx context.Context, address string, grant bool) error {
	return c.do(ctx, "set_authorization", func(ctx context.Context) ([]Action, error) {
		if err := c.engine.SetAuthorization(ctx, address, grant); err != nil {
			return nil, err
		}
		if active, ok := c.session.Active(); ok && active.Address == address {
			authorized, err := c.session.IsAuthorized(ctx)
			if err != nil {
				return nil, err
			}
			return []Action{SetAuthorized{Authorized: authorized}}, nil
		}
		return nil, nil
	})
}

// RefreshBalance re-reads the active identity's balance.
func (c *Controller) RefreshBalance(ctx context.Context) error {
	return c.do(ctx, "refresh_balance", func(ctx context.Context) ([]Action, error) {
		balance, err := c.session.RefreshBalance(ctx)
		if err != nil {
			return nil, err
		}
		return []Action{SetBalance{Balance: balance}}, nil
	})
}

// CheckAuthorization re-reads the active identity's authorization flag.
func (c *Controller) CheckAuthorization(ctx context.Context) error {
	return c.do(ctx, "check_authorization", func(ctx context.Context) ([]Action, error) {
		authorized, err := c.session.IsAuthorized(ctx)
		if err != nil {
			return nil, err
		}
		return []Action{SetAuthorized{Authorized: authorized}}, nil
	})
}

// query runs a read-only operation. Failures land in the snapshot error but
// do not toggle the loading flag.
func (c *Controller) query(operation string, err error) {
	if err == nil {
		return
	}
	c.apply(SetError{Message: failureMessage(err)})
	c.log.WithError(err).WithField("operation", operation).Warn("state query failed")
}

// VerifyProduct reports whether a product exists.
func (c *Controller) VerifyProduct(ctx context.Context, productID string) (bool, error) {
	ok, err := c.engine.VerifyProduct(ctx, productID)
	c.query("verify_product", err)
	return ok, err
}

// GetProduct looks up a product record.
func (c *Controller) GetProduct(ctx context.Context, productID string) (product.Product, error) {
	p, err := c.engine.GetProduct(ctx, productID)
	c.query("get_product", err)
	return p, err
}

// ProductsByOwner lists products currently held by the address.
func (c *Controller) ProductsByOwner(ctx context.Context, address string) ([]product.Product, error) {
	list, err := c.engine.ProductsByOwner(ctx, address)
	c.query("products_by_owner", err)
	return list, err
}

// ProductsByManufacturer lists products made by the address.
func (c *Controller) ProductsByManufacturer(ctx context.Context, address string) ([]product.Product, error) {
	list, err := c.engine.ProductsByManufacturer(ctx, address)
	c.query("products_by_manufacturer", err)
	return list, err
}

// Authorized lists explicit authorization-set members.
func (c *Controller) Authorized(ctx context.Context) ([]string, error) {
	list, err := c.engine.Authorized(ctx)
	c.query("authorized", err)
	return list, err
}
