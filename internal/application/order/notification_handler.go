package order

import (
	"context"
	"fmt"

	"github.com/ecom/backend/internal/domain/order"
	"github.com/ecom/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// OrderNotificationHandler forwards order lifecycle events to the customer
// notifier. Events arrive after the transaction that raised them committed,
// and a failed notification is logged rather than propagated: the order
// exists whether or not the customer hears about it.
type OrderNotificationHandler struct {
	logger   *zap.Logger
	notifier order.Notifier
}

// NewOrderNotificationHandler creates a handler for order lifecycle events
func NewOrderNotificationHandler(logger *zap.Logger, notifier order.Notifier) *OrderNotificationHandler {
	return &OrderNotificationHandler{
		logger:   logger,
		notifier: notifier,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *OrderNotificationHandler) EventTypes() []string {
	return []string{
		order.EventTypeOrderCreated,
		order.EventTypeOrderShipped,
		order.EventTypeOrderCancelled,
	}
}

// Handle dispatches one order event to the matching notifier call
func (h *OrderNotificationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if h.notifier == nil {
		return nil
	}

	switch e := event.(type) {
	case *order.OrderCreatedEvent:
		notice := order.OrderPlacedNotice{
			OrderNumber:   e.OrderNumber,
			CustomerName:  e.CustomerName,
			CustomerEmail: e.CustomerEmail,
			CustomerPhone: e.CustomerPhone,
			PaymentMethod: e.PaymentMethod,
			ItemCount:     e.ItemCount,
			Total:         e.Total,
		}
		if err := h.notifier.OrderPlaced(ctx, notice); err != nil {
			h.logger.Error("failed to send order placed notification",
				zap.String("order_number", e.OrderNumber),
				zap.Error(err),
			)
		}
	case *order.OrderShippedEvent:
		notice := order.OrderShippedNotice{
			OrderNumber:       e.OrderNumber,
			CustomerName:      e.CustomerName,
			CustomerEmail:     e.CustomerEmail,
			CustomerPhone:     e.CustomerPhone,
			TrackingNumber:    e.TrackingNumber,
			CourierName:       e.CourierName,
			EstimatedDelivery: e.EstimatedDelivery,
		}
		if err := h.notifier.OrderShipped(ctx, notice); err != nil {
			h.logger.Error("failed to send order shipped notification",
				zap.String("order_number", e.OrderNumber),
				zap.Error(err),
			)
		}
	case *order.OrderCancelledEvent:
		notice := order.OrderCancelledNotice{
			OrderNumber:   e.OrderNumber,
			CustomerName:  e.CustomerName,
			CustomerEmail: e.CustomerEmail,
			CustomerPhone: e.CustomerPhone,
		}
		if err := h.notifier.OrderCancelled(ctx, notice); err != nil {
			h.logger.Error("failed to send order cancelled notification",
				zap.String("order_number", e.OrderNumber),
				zap.Error(err),
			)
		}
	default:
		h.logger.Error("unexpected event type",
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type %s", event.EventType())
	}

	return nil
}

// Ensure OrderNotificationHandler implements shared.EventHandler
var _ shared.EventHandler = (*OrderNotificationHandler)(nil)
