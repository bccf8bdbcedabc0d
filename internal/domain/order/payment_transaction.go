package order

import (
	"strings"
	"time"

	"github.com/ecom/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionStatus is the outcome a payment gateway reported for one
// attempt
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionFailed    TransactionStatus = "failed"
)

// String returns the string representation of TransactionStatus
func (s TransactionStatus) String() string {
	return string(s)
}

// IsValid returns true if the transaction status is a known one
func (s TransactionStatus) IsValid() bool {
	switch s {
	case TransactionPending, TransactionCompleted, TransactionFailed:
		return true
	default:
		return false
	}
}

// PaymentTransaction is one gateway attempt against an order. Rows are
// append-only; the order's payment status is derived from them, the raw
// gateway payload is kept for disputes.
type PaymentTransaction struct {
	shared.BaseEntity
	OrderID           uuid.UUID         `gorm:"type:uuid;not null;index:idx_payment_tx_order"`
	Provider          string            `gorm:"type:varchar(50);not null"`
	Amount            decimal.Decimal   `gorm:"type:decimal(12,2);not null"`
	Status            TransactionStatus `gorm:"type:varchar(20);not null"`
	ProviderReference string            `gorm:"type:varchar(255)"`
	RawResponse       string            `gorm:"type:text"`
	OccurredAt        time.Time         `gorm:"type:timestamptz;not null"`
}

// TableName returns the table name for GORM
func (PaymentTransaction) TableName() string {
	return "payment_transactions"
}

// NewPaymentTransaction creates a gateway attempt record
func NewPaymentTransaction(orderID uuid.UUID, provider string, amount decimal.Decimal, status TransactionStatus, providerReference, rawResponse string, occurredAt time.Time) (*PaymentTransaction, error) {
	if strings.TrimSpace(provider) == "" {
		return nil, shared.NewValidationError("Payment provider cannot be empty")
	}
	if !status.IsValid() {
		return nil, shared.NewValidationError("Invalid transaction status")
	}
	if amount.IsNegative() || amount.IsZero() {
		return nil, shared.NewValidationError("Transaction amount must be positive")
	}

	return &PaymentTransaction{
		BaseEntity:        shared.NewBaseEntity(),
		OrderID:           orderID,
		Provider:          strings.TrimSpace(provider),
		Amount:            amount,
		Status:            status,
		ProviderReference: strings.TrimSpace(providerReference),
		RawResponse:       rawResponse,
		OccurredAt:        occurredAt,
	}, nil
}
