package order

import (
	"testing"
	"time"

	"github.com/ecom/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func amount(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func testOrderInput() NewOrderInput {
	return NewOrderInput{
		OrderNumber: "ORD-2026-00042",
		Customer: CustomerInfo{
			Name:  "Rahim Uddin",
			Email: "rahim@example.com",
			Phone: "+8801712345678",
		},
		Shipping: ShippingInfo{
			Address: "House 12, Road 5, Dhanmondi",
			Area:    "Dhaka",
		},
		PaymentMethod: PaymentMethodCOD,
		Items: []ItemInput{
			{
				VariantID:   uuid.New(),
				ProductName: "Cotton Panjabi",
				VariantName: "Navy / L",
				SKU:         "PNJ-NVY-L",
				UnitPrice:   amount("500.00"),
				Quantity:    2,
				Attributes:  map[string]string{"size": "L", "color": "Navy"},
			},
		},
		DiscountAmount: decimal.Zero,
		ShippingCost:   decimal.Zero,
		TaxAmount:      decimal.Zero,
	}
}

func createTestOrder(t *testing.T) *Order {
	t.Helper()
	o, err := NewOrder(testOrderInput())
	require.NoError(t, err)
	o.ClearDomainEvents()
	return o
}

func TestNewOrder(t *testing.T) {
	t.Run("creates pending order with frozen totals", func(t *testing.T) {
		in := testOrderInput()
		in.Items = append(in.Items, ItemInput{
			VariantID:   uuid.New(),
			ProductName: "Leather Belt",
			UnitPrice:   amount("150.00"),
			Quantity:    1,
		})
		in.DiscountAmount = amount("100.00")
		in.ShippingCost = amount("60.00")
		in.TaxAmount = amount("40.00")

		o, err := NewOrder(in)

		require.NoError(t, err)
		assert.Equal(t, StatusPending, o.Status)
		assert.Equal(t, PaymentStatusPending, o.PaymentStatus)
		assert.True(t, amount("1150.00").Equal(o.Subtotal), "subtotal %s", o.Subtotal)
		assert.True(t, amount("1150.00").Sub(amount("100.00")).Add(amount("60.00")).Add(amount("40.00")).Equal(o.Total))
		require.Len(t, o.Items, 2)
		assert.True(t, amount("1000.00").Equal(o.Items[0].LineTotal))
		assert.Equal(t, o.ID, o.Items[0].OrderID)
	})

	t.Run("raises created event", func(t *testing.T) {
		o, err := NewOrder(testOrderInput())

		require.NoError(t, err)
		events := o.GetDomainEvents()
		require.Len(t, events, 1)
		created, ok := events[0].(*OrderCreatedEvent)
		require.True(t, ok)
		assert.Equal(t, "ORD-2026-00042", created.OrderNumber)
		assert.Equal(t, 2, created.ItemCount)
	})

	t.Run("guest order has no user id", func(t *testing.T) {
		o := createTestOrder(t)

		assert.True(t, o.IsGuest())
	})

	t.Run("user order keeps the user id", func(t *testing.T) {
		userID := uuid.New()
		in := testOrderInput()
		in.Customer.UserID = &userID

		o, err := NewOrder(in)

		require.NoError(t, err)
		assert.False(t, o.IsGuest())
		assert.Equal(t, userID, *o.UserID)
	})

	t.Run("rejects empty items", func(t *testing.T) {
		in := testOrderInput()
		in.Items = nil

		_, err := NewOrder(in)
		require.Error(t, err)
	})

	t.Run("rejects missing contact fields", func(t *testing.T) {
		in := testOrderInput()
		in.Customer.Phone = "  "

		_, err := NewOrder(in)
		require.Error(t, err)
	})

	t.Run("rejects unknown payment method", func(t *testing.T) {
		in := testOrderInput()
		in.PaymentMethod = PaymentMethod("cheque")

		_, err := NewOrder(in)
		require.Error(t, err)
	})

	t.Run("rejects zero quantity line", func(t *testing.T) {
		in := testOrderInput()
		in.Items[0].Quantity = 0

		_, err := NewOrder(in)
		require.Error(t, err)
	})

	t.Run("rejects discount exceeding subtotal", func(t *testing.T) {
		in := testOrderInput()
		in.DiscountAmount = amount("10000.00")

		_, err := NewOrder(in)
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.CodeValidation, domainErr.Code)
	})
}

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	cases := []struct {
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusShipped, false},
		{StatusPending, StatusDelivered, false},
		{StatusConfirmed, StatusProcessing, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusDelivered, false},
		{StatusProcessing, StatusShipped, true},
		{StatusProcessing, StatusCancelled, false},
		{StatusShipped, StatusDelivered, true},
		{StatusShipped, StatusCancelled, false},
		{StatusDelivered, StatusRefunded, true},
		{StatusDelivered, StatusPending, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusRefunded, StatusPending, false},
	}

	for _, tc := range cases {
		got := tc.from.CanTransitionTo(tc.to)
		assert.Equal(t, tc.allowed, got, "%s -> %s", tc.from, tc.to)
	}
}

func TestOrder_Lifecycle(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("walks the happy path", func(t *testing.T) {
		o := createTestOrder(t)

		require.NoError(t, o.Confirm(now))
		assert.Equal(t, StatusConfirmed, o.Status)
		require.NotNil(t, o.ConfirmedAt)

		require.NoError(t, o.StartProcessing(now))
		assert.Equal(t, StatusProcessing, o.Status)

		eta := now.Add(72 * time.Hour)
		require.NoError(t, o.Ship(now, ShipmentInfo{
			TrackingNumber:    "TRK-123",
			CourierName:       "Pathao Courier",
			EstimatedDelivery: &eta,
		}))
		assert.Equal(t, StatusShipped, o.Status)
		assert.Equal(t, "TRK-123", o.TrackingNumber)
		assert.Equal(t, "Pathao Courier", o.CourierName)
		require.NotNil(t, o.ShippedAt)

		require.NoError(t, o.Deliver(now))
		assert.Equal(t, StatusDelivered, o.Status)
		require.NotNil(t, o.DeliveredAt)
	})

	t.Run("ship raises shipped event", func(t *testing.T) {
		o := createTestOrder(t)
		require.NoError(t, o.Confirm(now))
		require.NoError(t, o.StartProcessing(now))
		o.ClearDomainEvents()

		require.NoError(t, o.Ship(now, ShipmentInfo{TrackingNumber: "TRK-9"}))

		events := o.GetDomainEvents()
		require.Len(t, events, 1)
		_, ok := events[0].(*OrderShippedEvent)
		assert.True(t, ok)
	})

	t.Run("cancel from pending", func(t *testing.T) {
		o := createTestOrder(t)

		require.NoError(t, o.Cancel(now))

		assert.Equal(t, StatusCancelled, o.Status)
		require.NotNil(t, o.CancelledAt)
		events := o.GetDomainEvents()
		require.Len(t, events, 1)
		_, ok := events[0].(*OrderCancelledEvent)
		assert.True(t, ok)
	})

	t.Run("cancel from confirmed", func(t *testing.T) {
		o := createTestOrder(t)
		require.NoError(t, o.Confirm(now))

		require.NoError(t, o.Cancel(now))
		assert.Equal(t, StatusCancelled, o.Status)
	})

	t.Run("cancel after processing is rejected", func(t *testing.T) {
		o := createTestOrder(t)
		require.NoError(t, o.Confirm(now))
		require.NoError(t, o.StartProcessing(now))

		err := o.Cancel(now)

		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.CodeInvalidOperation, domainErr.Code)
		assert.Equal(t, StatusProcessing, o.Status)
	})

	t.Run("no jumps across the table", func(t *testing.T) {
		o := createTestOrder(t)

		require.Error(t, o.Deliver(now))
		require.Error(t, o.Ship(now, ShipmentInfo{}))
		require.Error(t, o.StartProcessing(now))
		require.Error(t, o.MarkRefunded(now))
	})

	t.Run("refund only from delivered", func(t *testing.T) {
		o := createTestOrder(t)
		require.NoError(t, o.Confirm(now))
		require.NoError(t, o.StartProcessing(now))
		require.NoError(t, o.Ship(now, ShipmentInfo{}))
		require.NoError(t, o.Deliver(now))

		require.NoError(t, o.MarkRefunded(now))

		assert.Equal(t, StatusRefunded, o.Status)
		assert.Equal(t, PaymentStatusRefunded, o.PaymentStatus)
	})

	t.Run("terminal states absorb", func(t *testing.T) {
		o := createTestOrder(t)
		require.NoError(t, o.Cancel(now))

		require.Error(t, o.Confirm(now))
		assert.Equal(t, StatusCancelled, o.Status)
	})

	t.Run("each transition bumps the version", func(t *testing.T) {
		o := createTestOrder(t)
		v := o.Version

		require.NoError(t, o.Confirm(now))

		assert.Equal(t, v+1, o.Version)
	})
}

func TestOrder_ApplyPaymentResult(t *testing.T) {
	t.Run("completed marks paid", func(t *testing.T) {
		o := createTestOrder(t)

		o.ApplyPaymentResult(TransactionCompleted)

		assert.Equal(t, PaymentStatusPaid, o.PaymentStatus)
	})

	t.Run("failed marks failed", func(t *testing.T) {
		o := createTestOrder(t)

		o.ApplyPaymentResult(TransactionFailed)

		assert.Equal(t, PaymentStatusFailed, o.PaymentStatus)
	})

	t.Run("failed attempt never downgrades paid", func(t *testing.T) {
		o := createTestOrder(t)
		o.ApplyPaymentResult(TransactionCompleted)

		o.ApplyPaymentResult(TransactionFailed)

		assert.Equal(t, PaymentStatusPaid, o.PaymentStatus)
	})

	t.Run("pending leaves status alone", func(t *testing.T) {
		o := createTestOrder(t)

		o.ApplyPaymentResult(TransactionPending)

		assert.Equal(t, PaymentStatusPending, o.PaymentStatus)
	})
}

func TestNewPaymentTransaction(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("creates transaction", func(t *testing.T) {
		tx, err := NewPaymentTransaction(uuid.New(), "bkash", amount("1150.00"), TransactionCompleted, "TRX9A7B", `{"status":"ok"}`, now)

		require.NoError(t, err)
		assert.Equal(t, "bkash", tx.Provider)
		assert.Equal(t, TransactionCompleted, tx.Status)
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		_, err := NewPaymentTransaction(uuid.New(), "bkash", decimal.Zero, TransactionCompleted, "", "", now)
		require.Error(t, err)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		_, err := NewPaymentTransaction(uuid.New(), "bkash", amount("10.00"), TransactionStatus("maybe"), "", "", now)
		require.Error(t, err)
	})
}

func TestFormatOrderNumber(t *testing.T) {
	assert.Equal(t, "ORD-2026-00001", FormatOrderNumber(2026, 1))
	assert.Equal(t, "ORD-2026-00042", FormatOrderNumber(2026, 42))
	assert.Equal(t, "ORD-2027-123456", FormatOrderNumber(2027, 123456))
}

func TestAttributeMap_RoundTrip(t *testing.T) {
	v, err := AttributeMap{"size": "L"}.Value()
	require.NoError(t, err)

	var scanned AttributeMap
	require.NoError(t, scanned.Scan(v))

	assert.Equal(t, "L", scanned["size"])
}
