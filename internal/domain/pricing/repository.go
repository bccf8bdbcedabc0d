package pricing

import (
	"context"

	"github.com/ecom/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ShippingZoneRepository defines persistence for shipping zones.
// FindActive returns zones oldest-first so the fallback zone in
// ResolveZone is stable: the first zone ever configured.
type ShippingZoneRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*ShippingZone, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]ShippingZone, error)
	FindActive(ctx context.Context) ([]ShippingZone, error)
	Save(ctx context.Context, zone *ShippingZone) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context, filter shared.Filter) (int64, error)
}

// TaxRuleRepository defines persistence for tax rules
type TaxRuleRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*TaxRule, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]TaxRule, error)
	FindActive(ctx context.Context) ([]TaxRule, error)
	Save(ctx context.Context, rule *TaxRule) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context, filter shared.Filter) (int64, error)
}
