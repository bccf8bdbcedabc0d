package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed
// columns. Returns the defaultField if the input is empty or not whitelisted.
// Sort fields come straight from query strings and end up in an ORDER BY
// clause, so everything off the whitelist is dropped.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// OrderSortFields contains allowed sort columns for order listings
var OrderSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"updated_at":     true,
	"order_number":   true,
	"status":         true,
	"payment_status": true,
	"customer_name":  true,
	"customer_email": true,
	"subtotal":       true,
	"total":          true,
	"confirmed_at":   true,
	"shipped_at":     true,
	"delivered_at":   true,
}

// StockUnitSortFields contains allowed sort columns for stock unit listings
var StockUnitSortFields = map[string]bool{
	"id":                  true,
	"created_at":          true,
	"updated_at":          true,
	"variant_id":          true,
	"quantity_on_hand":    true,
	"low_stock_threshold": true,
}

// InventoryLogSortFields contains allowed sort columns for the movement ledger
var InventoryLogSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"updated_at":     true,
	"variant_id":     true,
	"change_type":    true,
	"quantity_delta": true,
	"reference":      true,
}

// CouponSortFields contains allowed sort columns for coupon listings
var CouponSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"code":       true,
	"times_used": true,
	"valid_from": true,
	"valid_to":   true,
	"is_active":  true,
}

// UsageRecordSortFields contains allowed sort columns for redemption history
var UsageRecordSortFields = map[string]bool{
	"id":              true,
	"created_at":      true,
	"updated_at":      true,
	"coupon_id":       true,
	"user_id":         true,
	"order_id":        true,
	"discount_amount": true,
	"used_at":         true,
}

// ReturnRequestSortFields contains allowed sort columns for return listings
var ReturnRequestSortFields = map[string]bool{
	"id":            true,
	"created_at":    true,
	"updated_at":    true,
	"status":        true,
	"refund_amount": true,
	"processed_at":  true,
}

// ShippingZoneSortFields contains allowed sort columns for zone listings
var ShippingZoneSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"updated_at":     true,
	"name":           true,
	"shipping_cost":  true,
	"estimated_days": true,
	"is_active":      true,
}

// TaxRuleSortFields contains allowed sort columns for tax rule listings
var TaxRuleSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"name":       true,
	"rule_type":  true,
	"rate":       true,
	"priority":   true,
	"is_active":  true,
}
