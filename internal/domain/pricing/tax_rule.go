package pricing

import (
	"sort"
	"strings"

	"github.com/ecom/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TaxRuleType is how a tax rule's rate is interpreted
type TaxRuleType string

const (
	// TaxRuleTypePercentage charges rate percent of the taxable base
	TaxRuleTypePercentage TaxRuleType = "percentage"
	// TaxRuleTypeFixed charges the flat rate regardless of the base
	TaxRuleTypeFixed TaxRuleType = "fixed"
)

// String returns the string representation of TaxRuleType
func (t TaxRuleType) String() string {
	return string(t)
}

// IsValid returns true if the rule type is valid
func (t TaxRuleType) IsValid() bool {
	return t == TaxRuleTypePercentage || t == TaxRuleTypeFixed
}

// TaxRule is a single tax applied to an order's taxable base. Rules are
// applied in ascending priority order; every rule computes against the same
// base, priorities only fix the order of the breakdown lines.
type TaxRule struct {
	shared.BaseAggregateRoot
	Name     string          `gorm:"type:varchar(100);not null"`
	RuleType TaxRuleType     `gorm:"type:varchar(20);not null"`
	Rate     decimal.Decimal `gorm:"type:decimal(12,4);not null"`
	Priority int             `gorm:"not null;default:0"`
	IsActive bool            `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (TaxRule) TableName() string {
	return "tax_rules"
}

// NewTaxRule creates a tax rule
func NewTaxRule(name string, ruleType TaxRuleType, rate decimal.Decimal, priority int) (*TaxRule, error) {
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewValidationError("Tax rule name cannot be empty")
	}
	if !ruleType.IsValid() {
		return nil, shared.NewValidationError("Invalid tax rule type")
	}
	if rate.IsNegative() {
		return nil, shared.NewValidationError("Tax rate cannot be negative")
	}
	if ruleType == TaxRuleTypePercentage && rate.GreaterThan(decimal.NewFromInt(100)) {
		return nil, shared.NewValidationError("Percentage tax rate cannot exceed 100")
	}

	return &TaxRule{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              strings.TrimSpace(name),
		RuleType:          ruleType,
		Rate:              rate,
		Priority:          priority,
		IsActive:          true,
	}, nil
}

// Calculate returns this rule's tax amount for the given base. Percentage
// amounts are rounded to 2 decimal places, fixed amounts pass through.
func (r *TaxRule) Calculate(base decimal.Decimal) decimal.Decimal {
	switch r.RuleType {
	case TaxRuleTypePercentage:
		return base.Mul(r.Rate).Div(decimal.NewFromInt(100)).Round(2)
	case TaxRuleTypeFixed:
		return r.Rate
	default:
		return decimal.Zero
	}
}

// Activate enables the rule
func (r *TaxRule) Activate() {
	r.IsActive = true
	r.Touch()
	r.IncrementVersion()
}

// Deactivate disables the rule
func (r *TaxRule) Deactivate() {
	r.IsActive = false
	r.Touch()
	r.IncrementVersion()
}

// TaxLine is one rule's contribution to the tax total
type TaxLine struct {
	RuleID   uuid.UUID       `json:"rule_id"`
	RuleName string          `json:"rule_name"`
	RuleType TaxRuleType     `json:"rule_type"`
	Rate     decimal.Decimal `json:"rate"`
	Amount   decimal.Decimal `json:"amount"`
}

// CalculateTaxes applies every given rule to the base in ascending priority
// order and returns the summed total with a per-rule breakdown. Inactive
// rules are skipped.
func CalculateTaxes(rules []TaxRule, base decimal.Decimal) (decimal.Decimal, []TaxLine) {
	ordered := make([]TaxRule, 0, len(rules))
	for _, r := range rules {
		if r.IsActive {
			ordered = append(ordered, r)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})

	total := decimal.Zero
	lines := make([]TaxLine, 0, len(ordered))
	for _, r := range ordered {
		amount := r.Calculate(base)
		total = total.Add(amount)
		lines = append(lines, TaxLine{
			RuleID:   r.ID,
			RuleName: r.Name,
			RuleType: r.RuleType,
			Rate:     r.Rate,
			Amount:   amount,
		})
	}
	return total, lines
}
