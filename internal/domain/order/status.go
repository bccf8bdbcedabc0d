package order

// OrderStatus represents where an order sits in its lifecycle. The happy
// path is pending → confirmed → processing → shipped → delivered; cancelled
// branches off before processing starts, refunded is reached from delivered
// through the return workflow only.
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusConfirmed  OrderStatus = "confirmed"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
	StatusRefunded   OrderStatus = "refunded"
)

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is a known one
func (s OrderStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusProcessing,
		StatusShipped, StatusDelivered, StatusCancelled, StatusRefunded:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks if the status can transition to the target status.
// The table is closed: anything not listed here is an illegal jump.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch s {
	case StatusPending:
		return target == StatusConfirmed || target == StatusCancelled
	case StatusConfirmed:
		return target == StatusProcessing || target == StatusCancelled
	case StatusProcessing:
		return target == StatusShipped
	case StatusShipped:
		return target == StatusDelivered
	case StatusDelivered:
		return target == StatusRefunded
	case StatusCancelled, StatusRefunded:
		return false
	default:
		return false
	}
}

// IsTerminal returns true for states with no outgoing transitions
func (s OrderStatus) IsTerminal() bool {
	return s == StatusCancelled || s == StatusRefunded
}

// AllStatuses returns every order status, in lifecycle order
func AllStatuses() []OrderStatus {
	return []OrderStatus{
		StatusPending, StatusConfirmed, StatusProcessing,
		StatusShipped, StatusDelivered, StatusCancelled, StatusRefunded,
	}
}

// PaymentMethod is how the shopper pays for an order
type PaymentMethod string

const (
	PaymentMethodCOD   PaymentMethod = "cod"
	PaymentMethodBkash PaymentMethod = "bkash"
	PaymentMethodNagad PaymentMethod = "nagad"
	PaymentMethodCard  PaymentMethod = "card"
)

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// IsValid returns true if the payment method is supported
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCOD, PaymentMethodBkash, PaymentMethodNagad, PaymentMethodCard:
		return true
	default:
		return false
	}
}

// PaymentStatus tracks how far payment has progressed, independently of the
// order status. A paid order is never downgraded by a later failed attempt.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// IsValid returns true if the payment status is a known one
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	default:
		return false
	}
}
