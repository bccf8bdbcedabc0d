package notification

import (
	"context"

	"github.com/ecom/backend/internal/domain/order"
	"go.uber.org/zap"
)

// LogNotifier implements order.Notifier by recording the hand-off in the
// service log. The real delivery channel (email/SMS) is a separate platform
// service; this backend only hands messages over.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a new LogNotifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// OrderPlaced records the order-confirmation hand-off
func (n *LogNotifier) OrderPlaced(_ context.Context, notice order.OrderPlacedNotice) error {
	n.logger.Info("order placed notification handed off",
		zap.String("order_number", notice.OrderNumber),
		zap.String("customer_email", notice.CustomerEmail),
		zap.String("payment_method", string(notice.PaymentMethod)),
		zap.Int("item_count", notice.ItemCount),
		zap.String("total", notice.Total.StringFixed(2)),
	)
	return nil
}

// OrderShipped records the shipment-notification hand-off
func (n *LogNotifier) OrderShipped(_ context.Context, notice order.OrderShippedNotice) error {
	n.logger.Info("order shipped notification handed off",
		zap.String("order_number", notice.OrderNumber),
		zap.String("customer_email", notice.CustomerEmail),
		zap.String("tracking_number", notice.TrackingNumber),
		zap.String("courier_name", notice.CourierName),
	)
	return nil
}

// OrderCancelled records the cancellation-notification hand-off
func (n *LogNotifier) OrderCancelled(_ context.Context, notice order.OrderCancelledNotice) error {
	n.logger.Info("order cancelled notification handed off",
		zap.String("order_number", notice.OrderNumber),
		zap.String("customer_email", notice.CustomerEmail),
	)
	return nil
}

// Ensure LogNotifier implements order.Notifier
var _ order.Notifier = (*LogNotifier)(nil)
