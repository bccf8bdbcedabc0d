package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PriceDriftThreshold is the relative drift between a line's snapshot and the
// live catalog price above which checkout asks the shopper to re-confirm.
var PriceDriftThreshold = decimal.NewFromFloat(0.10)

// IssueSeverity distinguishes hard checkout blockers from warnings the
// shopper can acknowledge and proceed past.
type IssueSeverity string

const (
	SeverityError   IssueSeverity = "error"
	SeverityWarning IssueSeverity = "warning"
)

// Issue codes reported by checkout validation
const (
	IssueEmptyCart          = "empty_cart"
	IssueVariantUnavailable = "variant_unavailable"
	IssueInsufficientStock  = "insufficient_stock"
	IssuePriceDrift         = "price_drift"
)

// Issue is one problem found while validating a cart for checkout. All
// issues for a cart are collected and returned together so the shopper sees
// every reason at once.
type Issue struct {
	LineID    uuid.UUID       `json:"line_id,omitempty"`
	VariantID uuid.UUID       `json:"variant_id,omitempty"`
	Code      string          `json:"code"`
	Severity  IssueSeverity   `json:"severity"`
	Message   string          `json:"message"`
	OldPrice  decimal.Decimal `json:"old_price,omitempty"`
	NewPrice  decimal.Decimal `json:"new_price,omitempty"`
}

// IsBlocking returns true for error-severity issues
func (i Issue) IsBlocking() bool {
	return i.Severity == SeverityError
}

// HasBlocking returns true if any issue in the list is error severity
func HasBlocking(issues []Issue) bool {
	for _, issue := range issues {
		if issue.IsBlocking() {
			return true
		}
	}
	return false
}

// PriceDrifted reports whether the live price has moved more than the drift
// threshold away from the snapshot, in either direction. A zero snapshot
// with a different live price always counts as drift.
func PriceDrifted(snapshot, current decimal.Decimal) bool {
	if snapshot.Equal(current) {
		return false
	}
	if snapshot.IsZero() {
		return true
	}
	drift := current.Sub(snapshot).Abs().Div(snapshot.Abs())
	return drift.GreaterThan(PriceDriftThreshold)
}
