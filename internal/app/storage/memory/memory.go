// Package memory provides the in-memory ledger store. It is the authoritative
// backing store for the simulated chain: process-lifetime only, safe for
// concurrent use.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PolkaTrace/trace_layer/internal/app/domain/product"
	"github.com/PolkaTrace/trace_layer/internal/app/storage"
	"github.com/PolkaTrace/trace_layer/internal/errors"
)

// Store is an in-memory implementation of storage.LedgerStore. A single
// mutex serializes mutations, which fixes the outcome of two in-flight
// ApplyEvent calls on the same product to lock-acquisition order.
type Store struct {
	mu         sync.RWMutex
	nextID     int64
	admin      string
	products   map[string]product.Product
	order      []string
	authorized map[string]struct{}

	now func() time.Time
}

var _ storage.LedgerStore = (*Store)(nil)

// Option customizes store construction.
type Option func(*Store)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a store with the given admin identity. The admin starts as the
// sole member of the authorization set.
func New(admin string, opts ...Option) *Store {
	s := &Store{
		nextID:     1,
		admin:      admin,
		products:   make(map[string]product.Product),
		authorized: make(map[string]struct{}),
		now:        time.Now,
	}
	if admin != "" {
		s.authorized[admin] = struct{}{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

// CreateProduct registers a product. The manufacturer becomes the initial
// owner and the event count starts at one, covering the implicit creation
// event.
func (s *Store) CreateProduct(_ context.Context, metadata, manufacturer string) (product.Product, error) {
	if strings.TrimSpace(metadata) == "" {
		return product.Product{}, errors.Validation("product metadata must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := product.Product{
		ID:           s.nextIDLocked(),
		Owner:        manufacturer,
		Manufacturer: manufacturer,
		Metadata:     metadata,
		CreatedAt:    s.now().UnixMilli(),
		EventCount:   1,
	}

	s.products[p.ID] = p
	s.order = append(s.order, p.ID)
	return p, nil
}

// SeedProduct installs a pre-existing product record, advancing the ID
// counter past it. Used only for the sample data loaded at initialization.
func (s *Store) SeedProduct(p product.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = s.nextIDLocked()
	} else if _, exists := s.products[p.ID]; exists {
		return errors.Validation(fmt.Sprintf("product %s already exists", p.ID))
	} else {
		var n int64
		if _, err := fmt.Sscanf(p.ID, "%d", &n); err == nil && n >= s.nextID {
			s.nextID = n + 1
		}
	}
	if p.EventCount < 1 {
		p.EventCount = 1
	}

	s.products[p.ID] = p
	s.order = append(s.order, p.ID)
	return nil
}

// GetProduct looks up a product by ID.
func (s *Store) GetProduct(_ context.Context, id string) (product.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return product.Product{}, errors.NotFound(fmt.Sprintf("product %s not found", id))
	}
	return p, nil
}

// HasProduct reports product existence.
func (s *Store) HasProduct(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.products[id]
	return ok, nil
}

// ListProductsByOwner returns products held by the address in creation order.
func (s *Store) ListProductsByOwner(_ context.Context, address string) ([]product.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]product.Product, 0)
	for _, id := range s.order {
		if p := s.products[id]; p.Owner == address {
			result = append(result, p)
		}
	}
	return result, nil
}

// ListProductsByManufacturer returns products made by the address in creation
// order.
func (s *Store) ListProductsByManufacturer(_ context.Context, address string) ([]product.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]product.Product, 0)
	for _, id := range s.order {
		if p := s.products[id]; p.Manufacturer == address {
			result = append(result, p)
		}
	}
	return result, nil
}

// ApplyEvent records a lifecycle event against a product. The record either
// fully updates or stays unchanged; readers never observe an intermediate
// state.
func (s *Store) ApplyEvent(_ context.Context, id string, eventType product.EventType, actor string) (product.Product, error) {
	if !eventType.Valid() {
		return product.Product{}, errors.Validation(fmt.Sprintf("unknown event type %d", eventType))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return product.Product{}, errors.NotFound(fmt.Sprintf("product %s not found", id))
	}

	p.EventCount++
	if eventType.TransfersOwnership() {
		p.Owner = actor
	}

	s.products[id] = p
	return p, nil
}

// Authorize adds the address to the authorization set.
func (s *Store) Authorize(_ context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.authorized[address] = struct{}{}
	return nil
}

// Deauthorize removes the address from the authorization set. Removing the
// admin only drops explicit membership; IsAuthorized still reports true.
func (s *Store) Deauthorize(_ context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.authorized, address)
	return nil
}

// IsAuthorized reports whether the address may log lifecycle events.
func (s *Store) IsAuthorized(_ context.Context, address string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if address == s.admin {
		return true, nil
	}
	_, ok := s.authorized[address]
	return ok, nil
}

// ListAuthorized returns the explicit members of the authorization set,
// sorted by address so the listing is stable across calls.
func (s *Store) ListAuthorized(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]string, 0, len(s.authorized))
	for addr := range s.authorized {
		result = append(result, addr)
	}
	sort.Strings(result)
	return result, nil
}

// Admin returns the distinguished admin address.
func (s *Store) Admin(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.admin, nil
}
