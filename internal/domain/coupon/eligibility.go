package coupon

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineAmounts describes one cart line for restriction checks: which product
// and category it belongs to and how much it contributes to the subtotal.
type LineAmounts struct {
	ProductID  uuid.UUID
	CategoryID uuid.UUID
	LineTotal  decimal.Decimal
}

// EligibleSubtotal sums the lines that pass the coupon's product/category
// restrictions and reports whether any line qualified. For unrestricted
// coupons every line is eligible.
func (c *Coupon) EligibleSubtotal(lines []LineAmounts) (decimal.Decimal, bool) {
	total := decimal.Zero
	hasEligible := false
	for _, line := range lines {
		if c.IsEligibleItem(line.ProductID, line.CategoryID) {
			total = total.Add(line.LineTotal)
			hasEligible = true
		}
	}
	return total, hasEligible
}
