package shared

import "errors"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes shared across the order-fulfillment core
const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeInsufficientStock   = "INSUFFICIENT_STOCK"
	CodeInvalidOperation    = "INVALID_OPERATION"
	CodeNotFound            = "NOT_FOUND"
	CodeAlreadyExists       = "ALREADY_EXISTS"
	CodeCoupon              = "COUPON_ERROR"
	CodePayment             = "PAYMENT_ERROR"
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	CodeInternal            = "INTERNAL_ERROR"
)

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists       = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInvalidInput        = NewDomainError(CodeValidation, "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
	ErrInvalidOperation    = NewDomainError(CodeInvalidOperation, "Operation not allowed in current state")
	ErrInsufficientStock   = NewDomainError(CodeInsufficientStock, "Insufficient stock available")
)

// NewValidationError creates a validation error with a specific message
func NewValidationError(message string) *DomainError {
	return NewDomainError(CodeValidation, message)
}

// NewCouponError creates a coupon error with a human-readable reason
func NewCouponError(message string) *DomainError {
	return NewDomainError(CodeCoupon, message)
}

// NewPaymentError creates a payment error surfaced from a gateway result
func NewPaymentError(message string) *DomainError {
	return NewDomainError(CodePayment, message)
}

// NewInvalidOperationError creates an invalid-operation error with context
func NewInvalidOperationError(message string) *DomainError {
	return NewDomainError(CodeInvalidOperation, message)
}

// IsCode reports whether err is (or wraps) a DomainError carrying the given
// code
func IsCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}
