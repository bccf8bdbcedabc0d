package pricing

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ecom/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// StringList stores a list of strings as a JSON array in a single text
// column. Portable across postgres and the sqlite test driver.
type StringList []string

// Value implements driver.Valuer
func (l StringList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (l *StringList) Scan(value any) error {
	if value == nil {
		*l = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("cannot scan %T into StringList", value)
	}
	if len(raw) == 0 {
		*l = nil
		return nil
	}
	return json.Unmarshal(raw, l)
}

// ShippingZone maps delivery areas to a flat shipping cost. Area matching is
// case-insensitive on the trimmed name; shipping is free above the optional
// threshold.
type ShippingZone struct {
	shared.BaseAggregateRoot
	Name                  string           `gorm:"type:varchar(100);not null"`
	Areas                 StringList       `gorm:"type:text"`
	ShippingCost          decimal.Decimal  `gorm:"type:decimal(12,2);not null"`
	FreeShippingThreshold *decimal.Decimal `gorm:"type:decimal(12,2)"`
	EstimatedDays         int              `gorm:"not null;default:0"`
	IsActive              bool             `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (ShippingZone) TableName() string {
	return "shipping_zones"
}

// NewShippingZone creates a shipping zone
func NewShippingZone(name string, areas []string, cost decimal.Decimal, estimatedDays int) (*ShippingZone, error) {
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewValidationError("Zone name cannot be empty")
	}
	if cost.IsNegative() {
		return nil, shared.NewValidationError("Shipping cost cannot be negative")
	}
	if estimatedDays < 0 {
		return nil, shared.NewValidationError("Estimated days cannot be negative")
	}

	return &ShippingZone{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              strings.TrimSpace(name),
		Areas:             areas,
		ShippingCost:      cost,
		EstimatedDays:     estimatedDays,
		IsActive:          true,
	}, nil
}

// MatchesArea reports whether the zone's area list contains the given area,
// compared case-insensitively on trimmed values
func (z *ShippingZone) MatchesArea(area string) bool {
	needle := strings.ToLower(strings.TrimSpace(area))
	if needle == "" {
		return false
	}
	for _, a := range z.Areas {
		if strings.ToLower(strings.TrimSpace(a)) == needle {
			return true
		}
	}
	return false
}

// CostFor returns the shipping cost for the given order subtotal and whether
// the free-shipping threshold waived it
func (z *ShippingZone) CostFor(subtotal decimal.Decimal) (decimal.Decimal, bool) {
	if z.FreeShippingThreshold != nil && subtotal.GreaterThanOrEqual(*z.FreeShippingThreshold) {
		return decimal.Zero, true
	}
	return z.ShippingCost, false
}

// Activate enables the zone
func (z *ShippingZone) Activate() {
	z.IsActive = true
	z.Touch()
	z.IncrementVersion()
}

// Deactivate disables the zone
func (z *ShippingZone) Deactivate() {
	z.IsActive = false
	z.Touch()
	z.IncrementVersion()
}

// ZoneResolution is the outcome of matching a delivery area against the
// active zones. ExactMatch is false when the fallback zone was used, which
// callers surface to the shopper rather than hiding.
type ZoneResolution struct {
	Zone       *ShippingZone
	ExactMatch bool
}

// ResolveZone picks the zone for a delivery area from the active zones, in
// the order given. Falls back to the first zone when nothing matches.
// Returns nil when no zones are configured at all.
func ResolveZone(zones []ShippingZone, area string) *ZoneResolution {
	if len(zones) == 0 {
		return nil
	}
	for i := range zones {
		if zones[i].MatchesArea(area) {
			return &ZoneResolution{Zone: &zones[i], ExactMatch: true}
		}
	}
	return &ZoneResolution{Zone: &zones[0], ExactMatch: false}
}
