package order

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ecom/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReturnStatus is where a return request sits in its workflow
type ReturnStatus string

const (
	ReturnRequested ReturnStatus = "requested"
	ReturnApproved  ReturnStatus = "approved"
	ReturnRejected  ReturnStatus = "rejected"
	ReturnCompleted ReturnStatus = "completed"
	ReturnRefunded  ReturnStatus = "refunded"
)

// String returns the string representation of ReturnStatus
func (s ReturnStatus) String() string {
	return string(s)
}

// IsValid returns true if the return status is a known one
func (s ReturnStatus) IsValid() bool {
	switch s {
	case ReturnRequested, ReturnApproved, ReturnRejected, ReturnCompleted, ReturnRefunded:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks if the status can transition to the target status
func (s ReturnStatus) CanTransitionTo(target ReturnStatus) bool {
	switch s {
	case ReturnRequested:
		return target == ReturnApproved || target == ReturnRejected
	case ReturnApproved:
		return target == ReturnCompleted || target == ReturnRefunded
	default:
		return false
	}
}

// ReturnItem is the snapshot of one returned line at request time
type ReturnItem struct {
	OrderItemID uuid.UUID       `json:"order_item_id"`
	VariantID   uuid.UUID       `json:"variant_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// ReturnItemList stores the returned lines as a JSON array in a text column
type ReturnItemList []ReturnItem

// Value implements driver.Valuer
func (l ReturnItemList) Value() (driver.Value, error) {
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
func (l *ReturnItemList) Scan(value any) error {
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
		return fmt.Errorf("cannot scan %T into ReturnItemList", value)
	}
	if len(raw) == 0 {
		*l = nil
		return nil
	}
	return json.Unmarshal(raw, l)
}

// ReturnRequest is a customer's request to send delivered items back. The
// items snapshot is frozen at request time; approval restocks the snapshot
// quantities and optionally records a refund.
type ReturnRequest struct {
	shared.BaseAggregateRoot
	OrderID       uuid.UUID        `gorm:"type:uuid;not null;index:idx_return_requests_order"`
	Status        ReturnStatus     `gorm:"type:varchar(20);not null"`
	Reason        string           `gorm:"type:text;not null"`
	ItemsSnapshot ReturnItemList   `gorm:"type:text"`
	RefundAmount  *decimal.Decimal `gorm:"type:decimal(12,2)"`
	ProcessedBy   string           `gorm:"type:varchar(255)"`
	ProcessedAt   *time.Time       `gorm:"type:timestamptz"`

	// ProcessingNotes is the staff annotation recorded when the request is
	// approved or rejected, separate from the customer's Reason.
	ProcessingNotes string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (ReturnRequest) TableName() string {
	return "return_requests"
}

// NewReturnRequest creates a return request for a delivered order's items
func NewReturnRequest(orderID uuid.UUID, reason string, items []ReturnItem) (*ReturnRequest, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, shared.NewValidationError("Return reason cannot be empty")
	}
	if len(items) == 0 {
		return nil, shared.NewValidationError("Return request must include at least one item")
	}
	for _, item := range items {
		if item.Quantity < 1 {
			return nil, shared.NewValidationError("Return quantity must be at least 1")
		}
	}

	return &ReturnRequest{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderID:           orderID,
		Status:            ReturnRequested,
		Reason:            strings.TrimSpace(reason),
		ItemsSnapshot:     items,
	}, nil
}

// Approve accepts the return for processing
func (r *ReturnRequest) Approve(processedBy string, now time.Time) error {
	if !r.Status.CanTransitionTo(ReturnApproved) {
		return r.transitionError(ReturnApproved)
	}
	r.Status = ReturnApproved
	r.ProcessedBy = processedBy
	r.ProcessedAt = &now
	r.UpdatedAt = now
	r.IncrementVersion()
	return nil
}

// Reject declines the return; no stock or payment side effects
func (r *ReturnRequest) Reject(processedBy string, now time.Time) error {
	if !r.Status.CanTransitionTo(ReturnRejected) {
		return r.transitionError(ReturnRejected)
	}
	r.Status = ReturnRejected
	r.ProcessedBy = processedBy
	r.ProcessedAt = &now
	r.UpdatedAt = now
	r.IncrementVersion()
	return nil
}

// Complete closes an approved return after restocking, without a refund
func (r *ReturnRequest) Complete(now time.Time) error {
	if !r.Status.CanTransitionTo(ReturnCompleted) {
		return r.transitionError(ReturnCompleted)
	}
	r.Status = ReturnCompleted
	r.UpdatedAt = now
	r.IncrementVersion()
	return nil
}

// MarkRefunded closes an approved return with a recorded refund amount
func (r *ReturnRequest) MarkRefunded(amount decimal.Decimal, now time.Time) error {
	if !r.Status.CanTransitionTo(ReturnRefunded) {
		return r.transitionError(ReturnRefunded)
	}
	if amount.IsNegative() || amount.IsZero() {
		return shared.NewValidationError("Refund amount must be positive")
	}
	r.Status = ReturnRefunded
	r.RefundAmount = &amount
	r.UpdatedAt = now
	r.IncrementVersion()
	return nil
}

// TotalQuantity returns the summed quantity across the snapshot lines
func (r *ReturnRequest) TotalQuantity() int {
	total := 0
	for _, item := range r.ItemsSnapshot {
		total += item.Quantity
	}
	return total
}

func (r *ReturnRequest) transitionError(target ReturnStatus) error {
	return shared.NewInvalidOperationError(
		fmt.Sprintf("Cannot transition return request from %s to %s", r.Status, target))
}
