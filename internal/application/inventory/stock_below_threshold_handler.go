package inventory

import (
	"context"
	"fmt"

	"github.com/ecom/backend/internal/domain/inventory"
	"github.com/ecom/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// StockBelowThresholdHandler reacts to StockBelowThreshold events by raising
// an alert. The event fires once per downward threshold crossing, so the
// handler does not need its own dedup.
type StockBelowThresholdHandler struct {
	logger   *zap.Logger
	notifier StockAlertNotifier
}

// StockAlertNotifier is the interface for delivering stock alerts.
// Implementations can support different channels (in-app, email, SMS, etc.)
type StockAlertNotifier interface {
	// SendAlert sends a stock alert notification
	SendAlert(ctx context.Context, alert StockAlert) error
}

// StockAlert represents a stock level alert
type StockAlert struct {
	StockUnitID    string `json:"stock_unit_id"`
	VariantID      string `json:"variant_id"`
	QuantityOnHand int    `json:"quantity_on_hand"`
	Threshold      int    `json:"threshold"`
	AlertType      string `json:"alert_type"` // "low_stock", "out_of_stock"
}

// NewStockBelowThresholdHandler creates a new handler for stock below threshold events
func NewStockBelowThresholdHandler(logger *zap.Logger) *StockBelowThresholdHandler {
	return &StockBelowThresholdHandler{
		logger: logger,
	}
}

// WithNotifier sets the notifier for sending alerts
func (h *StockBelowThresholdHandler) WithNotifier(notifier StockAlertNotifier) *StockBelowThresholdHandler {
	h.notifier = notifier
	return h
}

// EventTypes returns the event types this handler is interested in
func (h *StockBelowThresholdHandler) EventTypes() []string {
	return []string{inventory.EventTypeStockBelowThreshold}
}

// Handle processes a StockBelowThresholdEvent
func (h *StockBelowThresholdHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	thresholdEvent, ok := event.(*inventory.StockBelowThresholdEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", inventory.EventTypeStockBelowThreshold),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			inventory.EventTypeStockBelowThreshold, event.EventType())
	}

	h.logger.Warn("stock below threshold detected",
		zap.String("stock_unit_id", thresholdEvent.StockUnitID.String()),
		zap.String("variant_id", thresholdEvent.VariantID.String()),
		zap.Int("quantity_on_hand", thresholdEvent.QuantityOnHand),
		zap.Int("threshold", thresholdEvent.Threshold),
	)

	alertType := "low_stock"
	if thresholdEvent.QuantityOnHand <= 0 {
		alertType = "out_of_stock"
	}

	alert := StockAlert{
		StockUnitID:    thresholdEvent.StockUnitID.String(),
		VariantID:      thresholdEvent.VariantID.String(),
		QuantityOnHand: thresholdEvent.QuantityOnHand,
		Threshold:      thresholdEvent.Threshold,
		AlertType:      alertType,
	}

	if h.notifier != nil {
		if err := h.notifier.SendAlert(ctx, alert); err != nil {
			// Notification failure shouldn't fail the event handling
			h.logger.Error("failed to send stock alert notification",
				zap.String("variant_id", alert.VariantID),
				zap.Error(err),
			)
		}
	}

	return nil
}

// Ensure StockBelowThresholdHandler implements shared.EventHandler
var _ shared.EventHandler = (*StockBelowThresholdHandler)(nil)

// LoggingStockAlertNotifier is a simple notifier that logs alerts.
// This is useful for development and testing.
type LoggingStockAlertNotifier struct {
	logger *zap.Logger
}

// NewLoggingStockAlertNotifier creates a new logging notifier
func NewLoggingStockAlertNotifier(logger *zap.Logger) *LoggingStockAlertNotifier {
	return &LoggingStockAlertNotifier{
		logger: logger,
	}
}

// SendAlert logs the stock alert
func (n *LoggingStockAlertNotifier) SendAlert(_ context.Context, alert StockAlert) error {
	n.logger.Warn("STOCK ALERT",
		zap.String("type", alert.AlertType),
		zap.String("variant_id", alert.VariantID),
		zap.Int("quantity_on_hand", alert.QuantityOnHand),
		zap.Int("threshold", alert.Threshold),
	)
	return nil
}

// Ensure LoggingStockAlertNotifier implements StockAlertNotifier
var _ StockAlertNotifier = (*LoggingStockAlertNotifier)(nil)
