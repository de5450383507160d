package integration

import (
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// SourceProductStatus represents a product's lifecycle state on the storefront
// ---------------------------------------------------------------------------

// SourceProductStatus represents a product's lifecycle state on the storefront
type SourceProductStatus string

const (
	// SourceProductStatusActive indicates the product is live and sellable
	SourceProductStatusActive SourceProductStatus = "ACTIVE"
	// SourceProductStatusDraft indicates the product is not yet published
	SourceProductStatusDraft SourceProductStatus = "DRAFT"
	// SourceProductStatusArchived indicates the product was retired
	SourceProductStatusArchived SourceProductStatus = "ARCHIVED"
)

// IsValid returns true if the status is part of the source vocabulary
func (s SourceProductStatus) IsValid() bool {
	switch s {
	case SourceProductStatusActive, SourceProductStatusDraft, SourceProductStatusArchived:
		return true
	default:
		return false
	}
}

// String returns the string representation of SourceProductStatus
func (s SourceProductStatus) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// TargetProductStatus represents a product's lifecycle state on the marketplace
// ---------------------------------------------------------------------------

// TargetProductStatus represents a product's lifecycle state on the marketplace
type TargetProductStatus string

const (
	// TargetProductStatusPublished indicates the product is visible to buyers
	TargetProductStatusPublished TargetProductStatus = "PUBLISHED"
	// TargetProductStatusDraft indicates the product is staged but hidden
	TargetProductStatusDraft TargetProductStatus = "DRAFT"
	// TargetProductStatusArchived indicates the product was retired
	TargetProductStatusArchived TargetProductStatus = "ARCHIVED"
)

// IsValid returns true if the status is part of the target vocabulary
func (s TargetProductStatus) IsValid() bool {
	switch s {
	case TargetProductStatusPublished, TargetProductStatusDraft, TargetProductStatusArchived:
		return true
	default:
		return false
	}
}

// String returns the string representation of TargetProductStatus
func (s TargetProductStatus) String() string {
	return string(s)
}

// MapProductStatus translates a storefront status into the marketplace
// vocabulary. The table is fixed and not configurable through the mapping
// file. Unrecognized statuses land on DRAFT so a bad feed never publishes.
func MapProductStatus(s SourceProductStatus) TargetProductStatus {
	switch s {
	case SourceProductStatusActive:
		return TargetProductStatusPublished
	case SourceProductStatusDraft:
		return TargetProductStatusDraft
	case SourceProductStatusArchived:
		return TargetProductStatusArchived
	default:
		return TargetProductStatusDraft
	}
}

// ---------------------------------------------------------------------------
// Product (source representation)
// ---------------------------------------------------------------------------

// Product is a storefront product as read from the source platform or carried
// in a webhook payload.
type Product struct {
	ExternalID  string
	Name        string
	Description string
	ProductType string
	Vendor      string
	Status      SourceProductStatus
	Attributes  map[string]string
	Variants    []Variant
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Variant is a sellable variation of a source product. OptionValues is keyed
// by the storefront's option name ("Size", "Color").
type Variant struct {
	ExternalID        string
	SKU               string
	Price             decimal.Decimal
	CompareAtPrice    *decimal.Decimal
	InventoryQuantity int
	Position          int
	OptionValues      map[string]string
}

// ---------------------------------------------------------------------------
// TargetProduct (marketplace representation)
// ---------------------------------------------------------------------------

// TargetProduct is the marketplace's view of a product, returned by lookups
// and mutations on the target platform.
type TargetProduct struct {
	ID         string
	ExternalID string
	Name       string
	Status     TargetProductStatus
	Variants   []TargetVariant
}

// TargetVariant is the marketplace's view of a variant.
type TargetVariant struct {
	ID       string
	SKU      string
	Quantity int
}

// ---------------------------------------------------------------------------
// ProductDraft (payload for target mutations)
// ---------------------------------------------------------------------------

// ProductDraft is a product shaped for the target platform's schema, produced
// by the field mapper and consumed by productCreate/productUpdate mutations.
type ProductDraft struct {
	ExternalID  string
	Name        string
	Description string
	ProductType string
	Vendor      string
	Status      TargetProductStatus
	Attributes  map[string]string
	Variants    []VariantDraft
}

// VariantDraft is a variant shaped for the target platform's schema.
// Attributes holds option values under their translated keys.
type VariantDraft struct {
	ExternalID        string
	SKU               string
	Price             decimal.Decimal
	CompareAtPrice    *decimal.Decimal
	InventoryQuantity int
	Position          int
	Attributes        map[string]string
}
