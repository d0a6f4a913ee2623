// Package lifecycle validates and applies product registration and event
// logging against the ledger store. It is the only component that mutates
// the store.
package lifecycle

import (
	"context"
	"fmt"

	"github.com/PolkaTrace/trace_layer/internal/app/domain/product"
	"github.com/PolkaTrace/trace_layer/internal/app/latency"
	"github.com/PolkaTrace/trace_layer/internal/app/metrics"
	"github.com/PolkaTrace/trace_layer/internal/app/services/session"
	"github.com/PolkaTrace/trace_layer/internal/app/storage"
	"github.com/PolkaTrace/trace_layer/internal/errors"
	"github.com/PolkaTrace/trace_layer/pkg/format"
	"github.com/PolkaTrace/trace_layer/pkg/logger"
)

// Service enforces the preconditions of every mutating ledger operation
// before delegating to the store.
type Service struct {
	session *session.Service
	store   storage.LedgerStore
	log     *logger.Logger
	delays  latency.Profile
}

// Option customizes the service.
type Option func(*Service)

// WithDelays sets the simulated transaction latency profile.
func WithDelays(delays latency.Profile) Option {
	return func(s *Service) {
		s.delays = delays
	}
}

// New constructs the lifecycle engine.
func New(sess *session.Service, store storage.LedgerStore, log *logger.Logger, opts ...Option) *Service {
	if log == nil {
		log = logger.NewDefault("lifecycle")
	}
	s := &Service{session: sess, store: store, log: log, delays: latency.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterProduct records a new product under the active identity. Any
// connected identity may register; no authorization-set membership is
// required.
func (s *Service) RegisterProduct(ctx context.Context, metadata string) (product.Product, error) {
	active, ok := s.session.Active()
	if !ok {
		return product.Product{}, s.reject("register_product", errors.Unauthenticated("no account selected"))
	}

	if err := latency.Sleep(ctx, s.delays.Register); err != nil {
		return product.Product{}, s.reject("register_product", errors.Connection("transaction interrupted", err))
	}

	created, err := s.store.CreateProduct(ctx, metadata, active.Address)
	if err != nil {
		return product.Product{}, s.reject("register_product", err)
	}

	s.log.WithField("product_id", created.ID).
		WithField("manufacturer", format.Address(created.Manufacturer, 8)).
		Info("product registered")
	metrics.RecordProductRegistered()

	return created, nil
}

// LogEvent applies a lifecycle event to an existing product as the active
// identity. Requires authorization-set membership (or admin).
func (s *Service) LogEvent(ctx context.Context, productID string, eventType product.EventType) (product.Product, error) {
	active, ok := s.session.Active()
	if !ok {
		return product.Product{}, s.reject("log_event", errors.Unauthenticated("no account selected"))
	}

	authorized, err := s.session.IsAuthorized(ctx)
	if err != nil {
		return product.Product{}, s.reject("log_event", err)
	}
	if !authorized {
		return product.Product{}, s.reject("log_event",
			errors.Unauthorized("account not authorized").WithDetails("address", active.Address))
	}

	exists, err := s.store.HasProduct(ctx, productID)
	if err != nil {
		return product.Product{}, s.reject("log_event", err)
	}
	if !exists {
		return product.Product{}, s.reject("log_event", errors.NotFound(fmt.Sprintf("product %s not found", productID)))
	}

	if err := latency.Sleep(ctx, s.delays.LogEvent); err != nil {
		return product.Product{}, s.reject("log_event", errors.Connection("transaction interrupted", err))
	}

	updated, err := s.store.ApplyEvent(ctx, productID, eventType, active.Address)
	if err != nil {
		return product.Product{}, s.reject("log_event", err)
	}

	s.log.WithField("product_id", productID).
		WithField("event_type", eventType.String()).
		WithField("actor", format.Address(active.Address, 8)).
		Info("lifecycle event logged")
	metrics.RecordEventLogged(eventType.String())

	return updated, nil
}

// SetAuthorization grants or revokes authorization-set membership. Admin
// only; the error message distinguishes a missing identity from a non-admin
// one so the caller can prompt accordingly.
func (s *Service) SetAuthorization(ctx context.Context, address string, grant bool) error {
	active, ok := s.session.Active()
	if !ok {
		return s.reject("set_authorization", errors.Forbidden("no active identity; connect a wallet and select the admin account"))
	}

	isAdmin, err := s.session.IsAdmin(ctx)
	if err != nil {
		return s.reject("set_authorization", err)
	}
	if !isAdmin {
		return s.reject("set_authorization",
			errors.Forbidden("only admin can manage authorization").WithDetails("address", active.Address))
	}

	if err := latency.Sleep(ctx, s.delays.Authorize); err != nil {
		return s.reject("set_authorization", errors.Connection("transaction interrupted", err))
	}

	if grant {
		err = s.store.Authorize(ctx, address)
	} else {
		err = s.store.Deauthorize(ctx, address)
	}
	if err != nil {
		return s.reject("set_authorization", err)
	}

	s.log.WithField("address", format.Address(address, 8)).
		WithField("granted", grant).
		Info("authorization changed")
	metrics.RecordAuthorizationChange(grant)

	return nil
}

// VerifyProduct reports existence of a product. No authorization required.
func (s *Service) VerifyProduct(ctx context.Context, productID string) (bool, error) {
	if err := latency.Sleep(ctx, s.delays.Query); err != nil {
		return false, errors.Connection("query interrupted", err)
	}
	return s.store.HasProduct(ctx, productID)
}

// GetProduct looks up a product record.
func (s *Service) GetProduct(ctx context.Context, productID string) (product.Product, error) {
	if err := latency.Sleep(ctx, s.delays.Query); err != nil {
		return product.Product{}, errors.Connection("query interrupted", err)
	}
	return s.store.GetProduct(ctx, productID)
}

// ProductsByOwner lists products currently held by the address.
func (s *Service) ProductsByOwner(ctx context.Context, address string) ([]product.Product, error) {
	if err := latency.Sleep(ctx, s.delays.Query); err != nil {
		return nil, errors.Connection("query interrupted", err)
	}
	return s.store.ListProductsByOwner(ctx, address)
}

// ProductsByManufacturer lists products made by the address.
func (s *Service) ProductsByManufacturer(ctx context.Context, address string) ([]product.Product, error) {
	if err := latency.Sleep(ctx, s.delays.Query); err != nil {
		return nil, errors.Connection("query interrupted", err)
	}
	return s.store.ListProductsByManufacturer(ctx, address)
}

// Admin returns the distinguished admin address.
func (s *Service) Admin(ctx context.Context) (string, error) {
	if err := latency.Sleep(ctx, s.delays.Admin); err != nil {
		return "", errors.Connection("query interrupted", err)
	}
	return s.store.Admin(ctx)
}

// Authorized lists explicit authorization-set members.
func (s *Service) Authorized(ctx context.Context) ([]string, error) {
	if err := latency.Sleep(ctx, s.delays.Query); err != nil {
		return nil, errors.Connection("query interrupted", err)
	}
	return s.store.ListAuthorized(ctx)
}

func (s *Service) reject(operation string, err error) error {
	metrics.RecordOperationFailure(operation, string(errors.CodeOf(err)))
	s.log.WithError(err).WithField("operation", operation).Warn("operation rejected")
	return err
}
