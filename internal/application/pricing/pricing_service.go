package pricing

import (
	"context"
	"strings"

	"github.com/ecom/backend/internal/domain/pricing"
	"github.com/ecom/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PricingService quotes shipping and taxes and administers the rules behind
// them. Quotes here are advisory; checkout recomputes both against the same
// repositories inside its transaction.
type PricingService struct {
	zoneRepo pricing.ShippingZoneRepository
	taxRepo  pricing.TaxRuleRepository
}

// NewPricingService creates a new PricingService
func NewPricingService(zoneRepo pricing.ShippingZoneRepository, taxRepo pricing.TaxRuleRepository) *PricingService {
	return &PricingService{
		zoneRepo: zoneRepo,
		taxRepo:  taxRepo,
	}
}

// QuoteShipping resolves the delivery area against the active zones and
// prices it at the given subtotal. Unknown areas fall back to the first
// configured zone with ExactMatch false.
func (s *PricingService) QuoteShipping(ctx context.Context, area string, subtotal decimal.Decimal) (*ShippingQuoteResponse, error) {
	trimmed := strings.TrimSpace(area)
	if trimmed == "" {
		return nil, shared.NewValidationError("Delivery area cannot be empty")
	}
	if subtotal.IsNegative() {
		return nil, shared.NewValidationError("Subtotal cannot be negative")
	}

	zones, err := s.zoneRepo.FindActive(ctx)
	if err != nil {
		return nil, err
	}
	resolution := pricing.ResolveZone(zones, trimmed)
	if resolution == nil {
		return nil, shared.NewInvalidOperationError("No active shipping zones are configured")
	}

	cost, isFree := resolution.Zone.CostFor(subtotal)
	return &ShippingQuoteResponse{
		Zone:          ToShippingZoneResponse(resolution.Zone),
		Area:          trimmed,
		Cost:          cost,
		IsFree:        isFree,
		ExactMatch:    resolution.ExactMatch,
		EstimatedDays: resolution.Zone.EstimatedDays,
	}, nil
}

// QuoteTaxes applies the active tax rules to the given base and returns the
// total with a per-rule breakdown
func (s *PricingService) QuoteTaxes(ctx context.Context, base decimal.Decimal) (*TaxQuoteResponse, error) {
	if base.IsNegative() {
		return nil, shared.NewValidationError("Tax base cannot be negative")
	}

	rules, err := s.taxRepo.FindActive(ctx)
	if err != nil {
		return nil, err
	}
	total, lines := pricing.CalculateTaxes(rules, base)
	return &TaxQuoteResponse{
		Base:  base,
		Total: total,
		Lines: lines,
	}, nil
}

// CreateZone creates a shipping zone
func (s *PricingService) CreateZone(ctx context.Context, req CreateShippingZoneRequest) (*ShippingZoneResponse, error) {
	zone, err := pricing.NewShippingZone(req.Name, req.Areas, req.ShippingCost, req.EstimatedDays)
	if err != nil {
		return nil, err
	}
	if req.FreeShippingThreshold != nil {
		if !req.FreeShippingThreshold.IsPositive() {
			return nil, shared.NewValidationError("Free shipping threshold must be positive")
		}
		zone.FreeShippingThreshold = req.FreeShippingThreshold
	}

	if err := s.zoneRepo.Save(ctx, zone); err != nil {
		return nil, err
	}
	return ToShippingZoneResponse(zone), nil
}

// GetZone retrieves a shipping zone by ID
func (s *PricingService) GetZone(ctx context.Context, id uuid.UUID) (*ShippingZoneResponse, error) {
	zone, err := s.zoneRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return ToShippingZoneResponse(zone), nil
}

// ListZones retrieves shipping zones with filtering and pagination
func (s *PricingService) ListZones(ctx context.Context, filter ShippingZoneListFilter) ([]ShippingZoneResponse, int64, error) {
	domainFilter := buildListFilter(filter.Page, filter.PageSize, filter.OrderBy, filter.OrderDir, filter.Search, filter.IsActive)

	zones, err := s.zoneRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.zoneRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]ShippingZoneResponse, len(zones))
	for i := range zones {
		responses[i] = *ToShippingZoneResponse(&zones[i])
	}
	return responses, total, nil
}

// UpdateZone applies a partial update to a shipping zone
func (s *PricingService) UpdateZone(ctx context.Context, id uuid.UUID, req UpdateShippingZoneRequest) (*ShippingZoneResponse, error) {
	zone, err := s.zoneRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	changed := false
	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		if trimmed == "" {
			return nil, shared.NewValidationError("Zone name cannot be empty")
		}
		zone.Name = trimmed
		changed = true
	}
	if req.Areas != nil {
		zone.Areas = req.Areas
		changed = true
	}
	if req.ShippingCost != nil {
		if req.ShippingCost.IsNegative() {
			return nil, shared.NewValidationError("Shipping cost cannot be negative")
		}
		zone.ShippingCost = *req.ShippingCost
		changed = true
	}
	if req.ClearFreeShippingThreshold {
		zone.FreeShippingThreshold = nil
		changed = true
	} else if req.FreeShippingThreshold != nil {
		if !req.FreeShippingThreshold.IsPositive() {
			return nil, shared.NewValidationError("Free shipping threshold must be positive")
		}
		zone.FreeShippingThreshold = req.FreeShippingThreshold
		changed = true
	}
	if req.EstimatedDays != nil {
		if *req.EstimatedDays < 0 {
			return nil, shared.NewValidationError("Estimated days cannot be negative")
		}
		zone.EstimatedDays = *req.EstimatedDays
		changed = true
	}
	if changed {
		zone.Touch()
		zone.IncrementVersion()
	}
	if req.IsActive != nil && *req.IsActive != zone.IsActive {
		if *req.IsActive {
			zone.Activate()
		} else {
			zone.Deactivate()
		}
	}

	if err := s.zoneRepo.Save(ctx, zone); err != nil {
		return nil, err
	}
	return ToShippingZoneResponse(zone), nil
}

// DeleteZone removes a shipping zone. Orders keep their own copy of the
// shipping amount, so nothing dangles.
func (s *PricingService) DeleteZone(ctx context.Context, id uuid.UUID) error {
	if _, err := s.zoneRepo.FindByID(ctx, id); err != nil {
		return err
	}
	return s.zoneRepo.Delete(ctx, id)
}

// CreateTaxRule creates a tax rule
func (s *PricingService) CreateTaxRule(ctx context.Context, req CreateTaxRuleRequest) (*TaxRuleResponse, error) {
	rule, err := pricing.NewTaxRule(req.Name, pricing.TaxRuleType(req.RuleType), req.Rate, req.Priority)
	if err != nil {
		return nil, err
	}

	if err := s.taxRepo.Save(ctx, rule); err != nil {
		return nil, err
	}
	return ToTaxRuleResponse(rule), nil
}

// GetTaxRule retrieves a tax rule by ID
func (s *PricingService) GetTaxRule(ctx context.Context, id uuid.UUID) (*TaxRuleResponse, error) {
	rule, err := s.taxRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return ToTaxRuleResponse(rule), nil
}

// ListTaxRules retrieves tax rules with filtering and pagination
func (s *PricingService) ListTaxRules(ctx context.Context, filter TaxRuleListFilter) ([]TaxRuleResponse, int64, error) {
	domainFilter := buildListFilter(filter.Page, filter.PageSize, filter.OrderBy, filter.OrderDir, filter.Search, filter.IsActive)
	if filter.OrderBy == "" {
		domainFilter.OrderBy = "priority"
		domainFilter.OrderDir = "asc"
	}

	rules, err := s.taxRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.taxRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]TaxRuleResponse, len(rules))
	for i := range rules {
		responses[i] = *ToTaxRuleResponse(&rules[i])
	}
	return responses, total, nil
}

// UpdateTaxRule applies a partial update to a tax rule
func (s *PricingService) UpdateTaxRule(ctx context.Context, id uuid.UUID, req UpdateTaxRuleRequest) (*TaxRuleResponse, error) {
	rule, err := s.taxRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	changed := false
	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		if trimmed == "" {
			return nil, shared.NewValidationError("Tax rule name cannot be empty")
		}
		rule.Name = trimmed
		changed = true
	}
	if req.Rate != nil {
		if req.Rate.IsNegative() {
			return nil, shared.NewValidationError("Tax rate cannot be negative")
		}
		if rule.RuleType == pricing.TaxRuleTypePercentage && req.Rate.GreaterThan(decimal.NewFromInt(100)) {
			return nil, shared.NewValidationError("Percentage tax rate cannot exceed 100")
		}
		rule.Rate = *req.Rate
		changed = true
	}
	if req.Priority != nil {
		rule.Priority = *req.Priority
		changed = true
	}
	if changed {
		rule.Touch()
		rule.IncrementVersion()
	}
	if req.IsActive != nil && *req.IsActive != rule.IsActive {
		if *req.IsActive {
			rule.Activate()
		} else {
			rule.Deactivate()
		}
	}

	if err := s.taxRepo.Save(ctx, rule); err != nil {
		return nil, err
	}
	return ToTaxRuleResponse(rule), nil
}

// DeleteTaxRule removes a tax rule. Orders keep their own tax snapshot.
func (s *PricingService) DeleteTaxRule(ctx context.Context, id uuid.UUID) error {
	if _, err := s.taxRepo.FindByID(ctx, id); err != nil {
		return err
	}
	return s.taxRepo.Delete(ctx, id)
}

func buildListFilter(page, pageSize int, orderBy, orderDir, search string, isActive *bool) shared.Filter {
	f := shared.DefaultFilter()
	if page > 0 {
		f.Page = page
	}
	if pageSize > 0 && pageSize <= 100 {
		f.PageSize = pageSize
	}
	if orderBy != "" {
		f.OrderBy = orderBy
	}
	if orderDir == "asc" || orderDir == "desc" {
		f.OrderDir = orderDir
	}
	if search != "" {
		f.Search = search
	}
	if isActive != nil {
		f.Filters["is_active"] = *isActive
	}
	return f
}
