// Package catalog defines the read-only boundary to the platform's product
// catalog. The fulfillment core treats variant price and publication status
// as authoritative inputs owned elsewhere; nothing in this package is written
// by this service.
package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VariantInfo is the catalog's answer for a single purchasable variant.
// Prices and statuses are whatever the catalog holds at read time; the cart
// snapshots them, orders freeze them.
type VariantInfo struct {
	ID               uuid.UUID
	ProductID        uuid.UUID
	CategoryID       uuid.UUID
	ProductName      string
	VariantName      string
	SKU              string
	Price            decimal.Decimal
	Attributes       map[string]string
	IsActive         bool
	ProductPublished bool
	Deleted          bool
}

// Purchasable reports whether the variant can currently be added to a cart.
func (v VariantInfo) Purchasable() bool {
	return v.IsActive && v.ProductPublished && !v.Deleted
}

// Catalog supplies variant data at read time.
type Catalog interface {
	// Variant returns info for a single variant, shared.ErrNotFound if unknown.
	Variant(ctx context.Context, id uuid.UUID) (*VariantInfo, error)
	// Variants returns info for a batch of variants keyed by variant id.
	// Unknown ids are simply absent from the result map.
	Variants(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]VariantInfo, error)
}
