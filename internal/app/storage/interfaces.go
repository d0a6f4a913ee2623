package storage

import (
	"context"

	"github.com/PolkaTrace/trace_layer/internal/app/domain/product"
)

// LedgerStore is the authoritative record of products and authorization.
// Implementations perform no permission enforcement; preconditions belong to
// the lifecycle service.
type LedgerStore interface {
	ProductStore
	AuthorizationStore
}

// ProductStore persists product records.
type ProductStore interface {
	// CreateProduct registers a product under the manufacturer, which also
	// becomes the initial owner. IDs are sequential, assigned once and
	// never reused.
	CreateProduct(ctx context.Context, metadata, manufacturer string) (product.Product, error)

	// GetProduct looks up a product by ID.
	GetProduct(ctx context.Context, id string) (product.Product, error)

	// HasProduct reports product existence without copying the record.
	HasProduct(ctx context.Context, id string) (bool, error)

	// ListProductsByOwner returns products currently held by the address,
	// in creation order.
	ListProductsByOwner(ctx context.Context, address string) ([]product.Product, error)

	// ListProductsByManufacturer returns products made by the address, in
	// creation order.
	ListProductsByManufacturer(ctx context.Context, address string) ([]product.Product, error)

	// ApplyEvent records a lifecycle event: EventCount increments, and a
	// Received event reassigns ownership to the actor. The update is
	// atomic; on error the record is unchanged.
	ApplyEvent(ctx context.Context, id string, eventType product.EventType, actor string) (product.Product, error)
}

// AuthorizationStore maintains the set of identities permitted to log
// lifecycle events, plus the distinguished admin identity.
type AuthorizationStore interface {
	Authorize(ctx context.Context, address string) error
	Deauthorize(ctx context.Context, address string) error

	// IsAuthorized reports membership. The admin is always authorized,
	// even after an explicit Deauthorize.
	IsAuthorized(ctx context.Context, address string) (bool, error)

	// ListAuthorized returns the explicit members of the set.
	ListAuthorized(ctx context.Context) ([]string, error)

	// Admin returns the distinguished admin address.
	Admin(ctx context.Context) (string, error)
}
