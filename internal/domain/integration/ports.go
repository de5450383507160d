package integration

import (
	"context"
	"time"
)

// ---------------------------------------------------------------------------
// Pagination
// ---------------------------------------------------------------------------

// ProductPage is one page of a cursor-paginated product listing.
type ProductPage struct {
	Products    []Product
	HasNextPage bool
	EndCursor   string
}

// InventoryPage is one page of a cursor-paginated inventory listing.
type InventoryPage struct {
	Items       []InventoryItem
	HasNextPage bool
	EndCursor   string
}

// OrderPage is one page of a cursor-paginated order listing.
type OrderPage struct {
	Orders      []Order
	HasNextPage bool
	EndCursor   string
}

// ---------------------------------------------------------------------------
// Platform ports
// ---------------------------------------------------------------------------

// SourcePlatform is the storefront the catalog originates from. The engine
// only reads from it; the single permitted mutation is webhook subscription
// registration.
type SourcePlatform interface {
	// Name identifies the platform in logs and error messages
	Name() string

	// ListProducts returns one page of products. An empty cursor starts from
	// the beginning.
	ListProducts(ctx context.Context, cursor string, limit int) (ProductPage, error)

	// ListInventory returns one page of per-SKU inventory with per-location
	// levels.
	ListInventory(ctx context.Context, cursor string, limit int) (InventoryPage, error)

	// ListOrders returns one page of orders created at or after createdAfter.
	ListOrders(ctx context.Context, createdAfter time.Time, cursor string, limit int) (OrderPage, error)

	// RegisterWebhooks subscribes callbackURL to the given topics. Safe to
	// call repeatedly; existing subscriptions are left in place.
	RegisterWebhooks(ctx context.Context, callbackURL string, topics []string) error
}

// TargetPlatform is the marketplace backend the catalog is pushed into.
// Finder methods return ErrProductNotFound / ErrVariantNotFound /
// ErrOrderNotFound when nothing matches; absence is an expected answer for
// the idempotency checks, not a failure.
type TargetPlatform interface {
	// Name identifies the platform in logs and error messages
	Name() string

	// ProductByExternalID finds the product whose external id matches the
	// source platform's native id.
	ProductByExternalID(ctx context.Context, externalID string) (*TargetProduct, error)

	// CreateProduct creates a product from the draft, attaching the draft's
	// external id for future lookups.
	CreateProduct(ctx context.Context, draft ProductDraft) (*TargetProduct, error)

	// UpdateProduct overwrites the product identified by the target-side id.
	UpdateProduct(ctx context.Context, id string, draft ProductDraft) (*TargetProduct, error)

	// DeleteProduct removes the product identified by the target-side id.
	DeleteProduct(ctx context.Context, id string) error

	// ListInventory returns one page of the marketplace's recorded
	// quantities.
	ListInventory(ctx context.Context, cursor string, limit int) (InventoryPage, error)

	// VariantBySKU finds a variant by SKU (first match).
	VariantBySKU(ctx context.Context, sku string) (*TargetVariant, error)

	// UpdateVariantQuantity sets a variant's recorded stock quantity.
	UpdateVariantQuantity(ctx context.Context, variantID string, quantity int) error

	// OrderByExternalID finds the order whose external id matches the source
	// platform's native id (first match).
	OrderByExternalID(ctx context.Context, externalID string) (*TargetOrder, error)

	// CreateOrder creates an order from the draft.
	CreateOrder(ctx context.Context, draft OrderDraft) (*TargetOrder, error)

	// UpdateOrder overwrites the order identified by the target-side id.
	UpdateOrder(ctx context.Context, id string, draft OrderDraft) error
}

// ---------------------------------------------------------------------------
// Supporting ports
// ---------------------------------------------------------------------------

// MappingSource supplies the attribute-mapping table. Loaded once at flow
// entry; implementations decide where the document lives (file, object
// store, inline).
type MappingSource interface {
	Load(ctx context.Context) ([]AttributeMapping, error)
}

// StateStore persists the per-flow "last synchronized at" cursor between
// runs. It is the only durable state this engine owns.
type StateStore interface {
	// LastSyncTime returns the stored cursor for a flow, or nil if the flow
	// has never completed.
	LastSyncTime(ctx context.Context, flow Flow) (*time.Time, error)

	// SetLastSyncTime advances the stored cursor for a flow.
	SetLastSyncTime(ctx context.Context, flow Flow, t time.Time) error

	// Close releases the underlying connection.
	Close() error
}
