package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// StockMetricsProvider supplies the inventory readings the periodic
// collector publishes as gauges.
type StockMetricsProvider interface {
	// LowStockCount returns how many tracked stock units sit at or below
	// their low-stock threshold
	LowStockCount(ctx context.Context) (int64, error)
}

// BusinessMetricsConfig holds business metrics configuration
type BusinessMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// BusinessMetrics records order-fulfillment metrics: checkout outcomes,
// order value, payment results, and the low-stock gauge.
type BusinessMetrics struct {
	checkoutTotal     *Counter
	checkoutFailed    *Counter
	orderAmountCents  *Counter
	paymentTotal      *Counter
	stockAdjustments  *Counter
	checkoutDuration  *Histogram
	lowStockGauge     *Gauge
	logger            *zap.Logger
	collectorCancel   context.CancelFunc
	collectorStopOnce sync.Once
	collectorDone     chan struct{}
}

// NewBusinessMetrics creates the fulfillment metric instruments
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, fmt.Errorf("meter is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	checkoutTotal, err := NewCounter(cfg.Meter,
		"ecom_checkout_total",
		"Total number of completed checkouts",
		"1",
	)
	if err != nil {
		return nil, err
	}

	checkoutFailed, err := NewCounter(cfg.Meter,
		"ecom_checkout_failed_total",
		"Total number of failed checkouts by error kind",
		"1",
	)
	if err != nil {
		return nil, err
	}

	orderAmountCents, err := NewCounter(cfg.Meter,
		"ecom_order_amount_cents_total",
		"Cumulative order totals in cents",
		"1",
	)
	if err != nil {
		return nil, err
	}

	paymentTotal, err := NewCounter(cfg.Meter,
		"ecom_payment_total",
		"Total number of recorded payment results",
		"1",
	)
	if err != nil {
		return nil, err
	}

	stockAdjustments, err := NewCounter(cfg.Meter,
		"ecom_stock_adjustments_total",
		"Total number of stock ledger adjustments",
		"1",
	)
	if err != nil {
		return nil, err
	}

	checkoutDuration, err := NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "ecom_checkout_duration_seconds",
		Description: "Checkout transaction duration",
		Unit:        "s",
		Boundaries:  HTTPDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	lowStockGauge, err := NewGauge(cfg.Meter,
		"ecom_low_stock_units",
		"Number of tracked stock units at or below their low-stock threshold",
		"1",
	)
	if err != nil {
		return nil, err
	}

	return &BusinessMetrics{
		checkoutTotal:    checkoutTotal,
		checkoutFailed:   checkoutFailed,
		orderAmountCents: orderAmountCents,
		paymentTotal:     paymentTotal,
		stockAdjustments: stockAdjustments,
		checkoutDuration: checkoutDuration,
		lowStockGauge:    lowStockGauge,
		logger:           logger,
	}, nil
}

// RecordCheckout records a successful checkout with its order total and the
// time the transaction took
func (bm *BusinessMetrics) RecordCheckout(ctx context.Context, paymentMethod string, total decimal.Decimal, took time.Duration) {
	attrs := AttrPaymentMethod.String(paymentMethod)
	bm.checkoutTotal.Inc(ctx, attrs)
	bm.orderAmountCents.Add(ctx, total.Mul(decimal.NewFromInt(100)).IntPart(), attrs)
	bm.checkoutDuration.RecordDuration(ctx, took, attrs)
}

// RecordCheckoutFailure records a failed checkout by error code
func (bm *BusinessMetrics) RecordCheckoutFailure(ctx context.Context, errorCode string, took time.Duration) {
	attr := AttrCheckoutError.String(errorCode)
	bm.checkoutFailed.Inc(ctx, attr)
	bm.checkoutDuration.RecordDuration(ctx, took, attr)
}

// RecordPayment records a payment result by method and status
func (bm *BusinessMetrics) RecordPayment(ctx context.Context, paymentMethod, status string) {
	bm.paymentTotal.Inc(ctx,
		AttrPaymentMethod.String(paymentMethod),
		AttrPaymentStatus.String(status),
	)
}

// RecordStockAdjustment records a single ledger adjustment by change type
func (bm *BusinessMetrics) RecordStockAdjustment(ctx context.Context, changeType string) {
	bm.stockAdjustments.Inc(ctx, AttrDBOperation.String(changeType))
}

// StartPeriodicCollection launches a loop that refreshes the low-stock gauge
// on the given interval. Stop with Stop.
func (bm *BusinessMetrics) StartPeriodicCollection(ctx context.Context, provider StockMetricsProvider, interval time.Duration) {
	if provider == nil || interval <= 0 {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	bm.collectorCancel = cancel
	bm.collectorDone = make(chan struct{})

	go func() {
		defer close(bm.collectorDone)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		bm.collect(runCtx, provider)
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				bm.collect(runCtx, provider)
			}
		}
	}()
}

func (bm *BusinessMetrics) collect(ctx context.Context, provider StockMetricsProvider) {
	count, err := provider.LowStockCount(ctx)
	if err != nil {
		if ctx.Err() == nil {
			bm.logger.Warn("failed to collect low stock count", zap.Error(err))
		}
		return
	}
	bm.lowStockGauge.Record(ctx, count)
}

// Stop terminates the periodic collector if it is running
func (bm *BusinessMetrics) Stop() {
	bm.collectorStopOnce.Do(func() {
		if bm.collectorCancel != nil {
			bm.collectorCancel()
			<-bm.collectorDone
		}
	})
}
