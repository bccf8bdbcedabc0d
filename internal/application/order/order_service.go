package order

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	appcart "github.com/ecom/backend/internal/application/cart"
	"github.com/ecom/backend/internal/domain/cart"
	"github.com/ecom/backend/internal/domain/catalog"
	"github.com/ecom/backend/internal/domain/coupon"
	"github.com/ecom/backend/internal/domain/inventory"
	"github.com/ecom/backend/internal/domain/order"
	"github.com/ecom/backend/internal/domain/pricing"
	"github.com/ecom/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderService turns carts into orders and walks orders through their
// lifecycle. Checkout runs as one transaction: cart validation, coupon
// re-validation, pricing, stock deduction, order number assignment, order
// persistence, usage recording and the cart clear all commit or roll back
// together. Status changes and return processing use the same scope so
// their stock restorations stay atomic with the status they justify.
type OrderService struct {
	scope          TransactionScope
	orderRepo      order.OrderRepository
	statusLogRepo  order.StatusLogRepository
	paymentRepo    order.PaymentTransactionRepository
	returnRepo     order.ReturnRequestRepository
	cartRepo       cart.CartRepository
	zoneRepo       pricing.ShippingZoneRepository
	taxRepo        pricing.TaxRuleRepository
	catalog        catalog.Catalog
	idempotency    shared.IdempotencyStore
	idempotencyTTL time.Duration
	eventPublisher shared.EventPublisher
}

// NewOrderService creates a new OrderService. The plain repositories serve
// reads outside any transaction; every mutation goes through the scope.
// The idempotency store may be nil, which disables the in-flight duplicate
// guard but keeps replay of completed checkouts (the key is stored on the
// order row).
func NewOrderService(
	scope TransactionScope,
	orderRepo order.OrderRepository,
	statusLogRepo order.StatusLogRepository,
	paymentRepo order.PaymentTransactionRepository,
	returnRepo order.ReturnRequestRepository,
	cartRepo cart.CartRepository,
	zoneRepo pricing.ShippingZoneRepository,
	taxRepo pricing.TaxRuleRepository,
	catalogReader catalog.Catalog,
	idempotency shared.IdempotencyStore,
) *OrderService {
	return &OrderService{
		scope:          scope,
		orderRepo:      orderRepo,
		statusLogRepo:  statusLogRepo,
		paymentRepo:    paymentRepo,
		returnRepo:     returnRepo,
		cartRepo:       cartRepo,
		zoneRepo:       zoneRepo,
		taxRepo:        taxRepo,
		catalog:        catalogReader,
		idempotency:    idempotency,
		idempotencyTTL: shared.DefaultIdempotencyConfig().TTL,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *OrderService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// publishDomainEvents publishes pending events from the given aggregates.
// Called after the transaction commits so handlers never observe
// rolled-back state.
func (s *OrderService) publishDomainEvents(ctx context.Context, roots ...shared.AggregateRoot) {
	if s.eventPublisher == nil {
		return
	}
	for _, root := range roots {
		events := root.GetDomainEvents()
		if len(events) == 0 {
			continue
		}
		// Publish events (errors are logged by the event bus, not propagated)
		_ = s.eventPublisher.Publish(ctx, events...)
		root.ClearDomainEvents()
	}
}

// Checkout converts the caller's cart into an order.
//
// The whole conversion is a single transaction. Stock unit rows are locked
// in ascending variant id order so two checkouts with overlapping carts
// cannot deadlock; whichever acquires a contested row first wins the stock,
// the other blocks on the lock and then sees the decremented quantity. Any
// failure after the first lock rolls everything back: no order row, no
// stock movement, no ledger entry, no coupon usage, and the cart survives
// untouched.
//
// An idempotency key makes the call safe to retry: a concurrent duplicate
// is rejected while the first attempt is in flight, and a retry after
// success returns the order created by the first attempt.
func (s *OrderService) Checkout(ctx context.Context, req CheckoutRequest, userID *uuid.UUID, sessionKey, idempotencyKey string) (*CheckoutResponse, error) {
	method := order.PaymentMethod(req.PaymentMethod)
	if !method.IsValid() {
		return nil, shared.NewValidationError(fmt.Sprintf("Invalid payment method %q", req.PaymentMethod))
	}
	if userID == nil && strings.TrimSpace(sessionKey) == "" {
		return nil, shared.NewValidationError("Checkout requires a user or a session key")
	}

	idempotencyKey = strings.TrimSpace(idempotencyKey)
	if idempotencyKey != "" {
		if s.idempotency != nil {
			claimed, err := s.idempotency.Acquire(ctx, idempotencyKey, s.idempotencyTTL)
			if err != nil {
				return nil, err
			}
			if !claimed {
				return nil, shared.NewDomainError(shared.CodeConcurrencyConflict,
					"A checkout with this idempotency key is already in progress")
			}
			defer func() {
				_ = s.idempotency.Release(ctx, idempotencyKey)
			}()
		}
		existing, err := s.orderRepo.FindByIdempotencyKey(ctx, idempotencyKey)
		switch {
		case err == nil:
			exact, zerr := s.zoneExactMatch(ctx, existing.ShippingArea)
			if zerr != nil {
				return nil, zerr
			}
			return &CheckoutResponse{OrderResponse: *ToOrderResponse(existing), ShippingZoneExactMatch: exact}, nil
		case !errors.Is(err, shared.ErrNotFound):
			return nil, err
		}
	}

	var (
		created       *order.Order
		adjustedUnits []*inventory.StockUnit
		zoneExact     bool
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		now := time.Now()

		c, err := s.findCart(ctx, repos.Carts(), userID, sessionKey, now)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return &CheckoutBlockedError{Issues: []cart.Issue{{
					Code:     cart.IssueEmptyCart,
					Severity: cart.SeverityError,
					Message:  "Cart is empty",
				}}}
			}
			return err
		}

		variantIDs := make([]uuid.UUID, 0, len(c.Lines))
		for i := range c.Lines {
			variantIDs = append(variantIDs, c.Lines[i].VariantID)
		}
		variants, err := s.catalog.Variants(ctx, variantIDs)
		if err != nil {
			return err
		}

		// Lock stock rows in ascending variant id order. Untracked
		// variants have no row and are simply absent from the map.
		sortedIDs := ascendingVariantIDs(variantIDs)
		stocks, err := lockStockUnits(ctx, repos.StockUnits(), sortedIDs)
		if err != nil {
			return err
		}

		issues := appcart.ComputeIssues(c, variants, stocks)
		if cart.HasBlocking(issues) {
			return &CheckoutBlockedError{Issues: issues}
		}
		if len(issues) > 0 {
			// Only price-drift warnings remain. Without an explicit
			// confirmation the shopper must see them; with one, the
			// drifted lines are re-priced at the live catalog price.
			if !req.ConfirmPriceChanges {
				return &CheckoutBlockedError{Issues: issues}
			}
			prices := make(map[uuid.UUID]decimal.Decimal, len(variants))
			for id, info := range variants {
				prices[id] = info.Price
			}
			c.RefreshLinePrices(prices)
		}

		subtotal := c.Subtotal()

		discount := decimal.Zero
		var appliedCoupon *coupon.Coupon
		if req.CouponCode != "" {
			appliedCoupon, discount, err = s.redeemableCoupon(ctx, repos, req, c, variants, userID, subtotal, now)
			if err != nil {
				return err
			}
		}

		// Shipping and taxes are computed on the pre-discount subtotal,
		// so a coupon cannot talk an order out of its shipping fee.
		zones, err := s.zoneRepo.FindActive(ctx)
		if err != nil {
			return err
		}
		resolution := pricing.ResolveZone(zones, req.ShippingArea)
		if resolution == nil {
			return shared.NewInvalidOperationError("No active shipping zones are configured")
		}
		zoneExact = resolution.ExactMatch
		shippingCost, _ := resolution.Zone.CostFor(subtotal)

		taxRules, err := s.taxRepo.FindActive(ctx)
		if err != nil {
			return err
		}
		taxTotal, _ := pricing.CalculateTaxes(taxRules, subtotal)

		adjustments, err := deductStock(c, sortedIDs, stocks, variants)
		if err != nil {
			return err
		}

		seq, err := repos.Sequences().Next(ctx, now.Year())
		if err != nil {
			return err
		}
		orderNumber := order.FormatOrderNumber(now.Year(), seq)

		for _, adj := range adjustments {
			if err := repos.StockUnits().Save(ctx, adj.unit); err != nil {
				return err
			}
			entry, err := inventory.NewInventoryLogEntry(adj.unit, inventory.ChangeTypeSold, adj.delta, adj.before, adj.after, orderNumber)
			if err != nil {
				return err
			}
			if err := repos.InventoryLogs().Create(ctx, entry); err != nil {
				return err
			}
		}

		items := make([]order.ItemInput, 0, len(c.Lines))
		for i := range c.Lines {
			line := &c.Lines[i]
			info := variants[line.VariantID]
			items = append(items, order.ItemInput{
				VariantID:   line.VariantID,
				ProductName: info.ProductName,
				VariantName: info.VariantName,
				SKU:         info.SKU,
				UnitPrice:   line.UnitPriceSnapshot,
				Quantity:    line.Quantity,
				Attributes:  info.Attributes,
			})
		}

		couponCode := ""
		if appliedCoupon != nil {
			couponCode = appliedCoupon.Code
		}
		o, err := order.NewOrder(order.NewOrderInput{
			OrderNumber: orderNumber,
			Customer: order.CustomerInfo{
				UserID: userID,
				Name:   req.CustomerName,
				Email:  req.CustomerEmail,
				Phone:  req.CustomerPhone,
			},
			Shipping: order.ShippingInfo{
				Address: req.ShippingAddress,
				Area:    req.ShippingArea,
				Notes:   req.Notes,
			},
			PaymentMethod:  method,
			CouponCode:     couponCode,
			IdempotencyKey: idempotencyKey,
			Items:          items,
			DiscountAmount: discount,
			ShippingCost:   shippingCost,
			TaxAmount:      taxTotal,
		})
		if err != nil {
			return err
		}
		if err := repos.Orders().Create(ctx, o); err != nil {
			return err
		}

		if appliedCoupon != nil {
			bumped, err := repos.Coupons().IncrementUsage(ctx, appliedCoupon.ID)
			if err != nil {
				return err
			}
			if !bumped {
				// Validation passed but a concurrent checkout consumed
				// the last redemption before we recorded ours.
				return shared.NewCouponError("Coupon usage limit has been reached")
			}
			var record *coupon.UsageRecord
			if userID != nil {
				record = coupon.NewUsageRecord(appliedCoupon.ID, *userID, discount, now)
			} else {
				record, err = coupon.NewGuestUsageRecord(appliedCoupon.ID, guestIdentifier(req.CustomerEmail, req.CustomerPhone), discount, now)
				if err != nil {
					return err
				}
			}
			record.AttachOrder(o.ID)
			if err := repos.CouponUsages().Create(ctx, record); err != nil {
				return err
			}
		}

		if err := repos.Carts().ClearLines(ctx, c.ID); err != nil {
			return err
		}
		c.Clear()
		if err := repos.Carts().Save(ctx, c); err != nil {
			return err
		}

		created = o
		adjustedUnits = make([]*inventory.StockUnit, 0, len(adjustments))
		for _, adj := range adjustments {
			adjustedUnits = append(adjustedUnits, adj.unit)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, created)
	for _, unit := range adjustedUnits {
		s.publishDomainEvents(ctx, unit)
	}
	return &CheckoutResponse{OrderResponse: *ToOrderResponse(created), ShippingZoneExactMatch: zoneExact}, nil
}

// zoneExactMatch reports whether an active zone lists the area by name,
// recomputed for idempotent replays so the advisory survives a retry.
func (s *OrderService) zoneExactMatch(ctx context.Context, area string) (bool, error) {
	zones, err := s.zoneRepo.FindActive(ctx)
	if err != nil {
		return false, err
	}
	resolution := pricing.ResolveZone(zones, area)
	return resolution != nil && resolution.ExactMatch, nil
}

// redeemableCoupon re-validates the coupon against the transaction's own
// view of the cart and computes the discount. Any failed check aborts the
// checkout with every reason joined into one coupon error.
func (s *OrderService) redeemableCoupon(
	ctx context.Context,
	repos TransactionalRepositories,
	req CheckoutRequest,
	c *cart.Cart,
	variants map[uuid.UUID]catalog.VariantInfo,
	userID *uuid.UUID,
	subtotal decimal.Decimal,
	now time.Time,
) (*coupon.Coupon, decimal.Decimal, error) {
	cpn, err := repos.Coupons().FindByCode(ctx, coupon.NormalizeCode(req.CouponCode), false)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, decimal.Zero, shared.NewCouponError("Coupon code is not valid")
		}
		return nil, decimal.Zero, err
	}

	actor := checkoutActor(userID, req.CustomerEmail, req.CustomerPhone)
	timesUsed, err := repos.CouponUsages().CountByActor(ctx, cpn.ID, actor)
	if err != nil {
		return nil, decimal.Zero, err
	}

	var priorOrders int64
	if cpn.FirstOrderOnly {
		priorOrders, err = priorOrderCount(ctx, repos.Orders(), userID, req.CustomerEmail)
		if err != nil {
			return nil, decimal.Zero, err
		}
	}

	lines := make([]coupon.LineAmounts, 0, len(c.Lines))
	for i := range c.Lines {
		line := &c.Lines[i]
		info, known := variants[line.VariantID]
		if !known {
			continue
		}
		lines = append(lines, coupon.LineAmounts{
			ProductID:  info.ProductID,
			CategoryID: info.CategoryID,
			LineTotal:  line.LineTotal(),
		})
	}
	eligible, hasEligible := cpn.EligibleSubtotal(lines)

	failures := cpn.Validate(coupon.ValidationInput{
		Now:              now,
		Subtotal:         subtotal,
		EligibleSubtotal: eligible,
		HasEligibleLines: hasEligible,
		TimesUsedByActor: int(timesUsed),
		PriorOrderCount:  int(priorOrders),
	})
	if len(failures) > 0 {
		msgs := make([]string, len(failures))
		for i, failure := range failures {
			msgs[i] = failure.Error()
		}
		return nil, decimal.Zero, shared.NewCouponError(strings.Join(msgs, "; "))
	}

	base := cpn.DiscountBase(subtotal, eligible)
	return cpn, cpn.CalculateDiscount(base), nil
}

// ChangeStatus moves an order along the lifecycle table. Every accepted
// transition appends a status log entry in the same transaction; moving to
// cancelled additionally restores the deducted stock with "released"
// ledger entries. Refunded is not reachable here, only through the return
// workflow.
func (s *OrderService) ChangeStatus(ctx context.Context, orderID uuid.UUID, req StatusChangeRequest) (*OrderResponse, error) {
	target := order.OrderStatus(req.Status)
	if !target.IsValid() {
		return nil, shared.NewValidationError(fmt.Sprintf("Invalid order status %q", req.Status))
	}
	if target == order.StatusRefunded {
		return nil, shared.NewInvalidOperationError("Refunds are recorded through the return workflow")
	}

	var (
		updated        *order.Order
		restockedUnits []*inventory.StockUnit
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		o, err := repos.Orders().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		now := time.Now()
		from := o.Status

		switch target {
		case order.StatusConfirmed:
			err = o.Confirm(now)
		case order.StatusProcessing:
			err = o.StartProcessing(now)
		case order.StatusShipped:
			err = o.Ship(now, order.ShipmentInfo{
				TrackingNumber:    req.TrackingNumber,
				CourierName:       req.CourierName,
				EstimatedDelivery: req.EstimatedDelivery,
			})
		case order.StatusDelivered:
			err = o.Deliver(now)
		case order.StatusCancelled:
			err = o.Cancel(now)
		default:
			err = shared.NewInvalidOperationError(fmt.Sprintf("Cannot move an order to %s directly", target))
		}
		if err != nil {
			return err
		}

		if target == order.StatusCancelled {
			restockedUnits, err = restockLines(ctx, repos, orderRestockLines(o.Items), inventory.ChangeTypeReleased, o.OrderNumber, req.Actor)
			if err != nil {
				return err
			}
		}

		entry := order.NewStatusLogEntry(o.ID, from, o.Status, req.Actor, req.Notes, now)
		if err := repos.StatusLogs().Create(ctx, entry); err != nil {
			return err
		}
		if err := repos.Orders().SaveWithLock(ctx, o); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, updated)
	for _, unit := range restockedUnits {
		s.publishDomainEvents(ctx, unit)
	}
	return ToOrderResponse(updated), nil
}

// RecordPayment appends one payment attempt to the order's transaction log
// and rolls the order's payment status forward: a completed attempt marks
// it paid, a failed one marks it failed unless an earlier attempt already
// succeeded. The attempt row itself is immutable.
func (s *OrderService) RecordPayment(ctx context.Context, orderID uuid.UUID, req PaymentRequest) (*PaymentTransactionResponse, error) {
	var recorded *order.PaymentTransaction
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		o, err := repos.Orders().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status.IsTerminal() {
			return shared.NewInvalidOperationError(fmt.Sprintf("Cannot record a payment on a %s order", o.Status))
		}

		tx, err := order.NewPaymentTransaction(o.ID, req.Provider, req.Amount,
			order.TransactionStatus(req.Status), req.Reference, req.RawResponse, time.Now())
		if err != nil {
			return err
		}
		if err := repos.Payments().Create(ctx, tx); err != nil {
			return err
		}

		o.ApplyPaymentResult(tx.Status)
		if err := repos.Orders().SaveWithLock(ctx, o); err != nil {
			return err
		}
		recorded = tx
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ToPaymentTransactionResponse(recorded), nil
}

// RequestReturn opens a return request for a delivered order. The request
// freezes a snapshot of the returned items; an empty item list means the
// whole order. Nothing moves until the request is processed.
func (s *OrderService) RequestReturn(ctx context.Context, orderID uuid.UUID, req CreateReturnRequest) (*ReturnRequestResponse, error) {
	o, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != order.StatusDelivered {
		return nil, shared.NewInvalidOperationError("Returns can only be requested for delivered orders")
	}

	items, err := returnSnapshot(o, req.Items)
	if err != nil {
		return nil, err
	}
	request, err := order.NewReturnRequest(o.ID, req.Reason, items)
	if err != nil {
		return nil, err
	}
	if err := s.returnRepo.Create(ctx, request); err != nil {
		return nil, err
	}
	return ToReturnRequestResponse(request), nil
}

// ProcessReturn resolves a pending return request. Rejection records the
// decision and nothing else. Approval restocks the snapshot quantities with
// "return" ledger entries and then closes the request: with a refund amount
// it becomes refunded and the order itself moves to refunded, without one
// it completes as a plain restock.
func (s *OrderService) ProcessReturn(ctx context.Context, requestID uuid.UUID, req ProcessReturnRequest) (*ReturnRequestResponse, error) {
	var (
		processed      *order.ReturnRequest
		restockedUnits []*inventory.StockUnit
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		request, err := repos.Returns().FindByID(ctx, requestID)
		if err != nil {
			return err
		}
		now := time.Now()

		if !req.Approve {
			if err := request.Reject(req.Actor, now); err != nil {
				return err
			}
			request.ProcessingNotes = strings.TrimSpace(req.Notes)
			if err := repos.Returns().SaveWithLock(ctx, request); err != nil {
				return err
			}
			processed = request
			return nil
		}

		o, err := repos.Orders().FindByIDForUpdate(ctx, request.OrderID)
		if err != nil {
			return err
		}
		if err := request.Approve(req.Actor, now); err != nil {
			return err
		}
		request.ProcessingNotes = strings.TrimSpace(req.Notes)
		if err := repos.Returns().SaveWithLock(ctx, request); err != nil {
			return err
		}

		restockedUnits, err = restockLines(ctx, repos, returnRestockLines(request.ItemsSnapshot), inventory.ChangeTypeReturn, o.OrderNumber, req.Actor)
		if err != nil {
			return err
		}

		if req.RefundAmount != nil {
			if err := request.MarkRefunded(*req.RefundAmount, now); err != nil {
				return err
			}
			from := o.Status
			if err := o.MarkRefunded(now); err != nil {
				return err
			}
			entry := order.NewStatusLogEntry(o.ID, from, o.Status, req.Actor, req.Notes, now)
			if err := repos.StatusLogs().Create(ctx, entry); err != nil {
				return err
			}
			if err := repos.Orders().SaveWithLock(ctx, o); err != nil {
				return err
			}
		} else {
			if err := request.Complete(now); err != nil {
				return err
			}
		}

		if err := repos.Returns().SaveWithLock(ctx, request); err != nil {
			return err
		}
		processed = request
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, unit := range restockedUnits {
		s.publishDomainEvents(ctx, unit)
	}
	return ToReturnRequestResponse(processed), nil
}

// GetOrder returns the full view of one order: items, status history,
// payment attempts and return requests.
func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (*OrderDetailResponse, error) {
	o, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.orderDetail(ctx, o)
}

// GetOrderByNumber returns the full view of one order looked up by its
// public order number.
func (s *OrderService) GetOrderByNumber(ctx context.Context, orderNumber string) (*OrderDetailResponse, error) {
	o, err := s.orderRepo.FindByOrderNumber(ctx, strings.ToUpper(strings.TrimSpace(orderNumber)))
	if err != nil {
		return nil, err
	}
	return s.orderDetail(ctx, o)
}

// ListOrders lists orders for the back office, filterable by status,
// payment status and a free-text search over number, name and phone.
func (s *OrderService) ListOrders(ctx context.Context, filter OrderListFilter) ([]OrderResponse, int64, error) {
	domainFilter, err := buildOrderFilter(filter)
	if err != nil {
		return nil, 0, err
	}
	orders, err := s.orderRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.orderRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToOrderResponses(orders), total, nil
}

// ListUserOrders lists the orders belonging to one user, newest first by
// default.
func (s *OrderService) ListUserOrders(ctx context.Context, userID uuid.UUID, filter OrderListFilter) ([]OrderResponse, int64, error) {
	domainFilter, err := buildOrderFilter(filter)
	if err != nil {
		return nil, 0, err
	}
	domainFilter.Filters["user_id"] = userID
	orders, err := s.orderRepo.FindByUser(ctx, userID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.orderRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToOrderResponses(orders), total, nil
}

// GetReturn returns one return request
func (s *OrderService) GetReturn(ctx context.Context, id uuid.UUID) (*ReturnRequestResponse, error) {
	request, err := s.returnRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return ToReturnRequestResponse(request), nil
}

// ListReturns lists return requests for the back office
func (s *OrderService) ListReturns(ctx context.Context, filter ReturnListFilter) ([]ReturnRequestResponse, int64, error) {
	domainFilter := shared.DefaultFilter()
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		domainFilter.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		domainFilter.OrderDir = filter.OrderDir
	}
	if filter.Status != "" {
		status := order.ReturnStatus(filter.Status)
		if !status.IsValid() {
			return nil, 0, shared.NewValidationError(fmt.Sprintf("Invalid return status %q", filter.Status))
		}
		domainFilter.Filters["status"] = status.String()
	}

	returns, err := s.returnRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.returnRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	out := make([]ReturnRequestResponse, 0, len(returns))
	for i := range returns {
		out = append(out, *ToReturnRequestResponse(&returns[i]))
	}
	return out, total, nil
}

// orderDetail assembles the detail response from the order and its side
// tables.
func (s *OrderService) orderDetail(ctx context.Context, o *order.Order) (*OrderDetailResponse, error) {
	history, err := s.statusLogRepo.FindByOrder(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	payments, err := s.paymentRepo.FindByOrder(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	returns, err := s.returnRepo.FindByOrder(ctx, o.ID)
	if err != nil {
		return nil, err
	}

	detail := &OrderDetailResponse{
		OrderResponse: *ToOrderResponse(o),
		StatusHistory: make([]StatusLogResponse, 0, len(history)),
		Payments:      make([]PaymentTransactionResponse, 0, len(payments)),
		Returns:       make([]ReturnRequestResponse, 0, len(returns)),
	}
	for i := range history {
		detail.StatusHistory = append(detail.StatusHistory, ToStatusLogResponse(&history[i]))
	}
	for i := range payments {
		detail.Payments = append(detail.Payments, *ToPaymentTransactionResponse(&payments[i]))
	}
	for i := range returns {
		detail.Returns = append(detail.Returns, *ToReturnRequestResponse(&returns[i]))
	}
	return detail, nil
}

// findCart resolves the checkout cart from the caller's identity
func (s *OrderService) findCart(ctx context.Context, repo cart.CartRepository, userID *uuid.UUID, sessionKey string, now time.Time) (*cart.Cart, error) {
	if userID != nil {
		return repo.FindByUserID(ctx, *userID)
	}
	return repo.FindBySessionKey(ctx, sessionKey, now)
}

// buildOrderFilter maps an API order filter onto the repository filter
func buildOrderFilter(filter OrderListFilter) (shared.Filter, error) {
	domainFilter := shared.DefaultFilter()
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		domainFilter.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		domainFilter.OrderDir = filter.OrderDir
	}
	domainFilter.Search = strings.TrimSpace(filter.Search)

	if filter.Status != "" {
		status := order.OrderStatus(filter.Status)
		if !status.IsValid() {
			return shared.Filter{}, shared.NewValidationError(fmt.Sprintf("Invalid order status %q", filter.Status))
		}
		domainFilter.Filters["status"] = status.String()
	}
	if filter.PaymentStatus != "" {
		paymentStatus := order.PaymentStatus(filter.PaymentStatus)
		if !paymentStatus.IsValid() {
			return shared.Filter{}, shared.NewValidationError(fmt.Sprintf("Invalid payment status %q", filter.PaymentStatus))
		}
		domainFilter.Filters["payment_status"] = paymentStatus.String()
	}
	return domainFilter, nil
}

// ascendingVariantIDs returns a copy of the ids sorted by byte order.
// Every place that locks more than one stock row walks them in this order.
func ascendingVariantIDs(ids []uuid.UUID) []uuid.UUID {
	sorted := make([]uuid.UUID, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i][:], sorted[j][:]) < 0
	})
	return sorted
}

// lockStockUnits acquires row locks for the given variants, in the given
// order. Variants with no stock unit row are skipped, not errors.
func lockStockUnits(ctx context.Context, repo inventory.StockUnitRepository, sortedIDs []uuid.UUID) (map[uuid.UUID]*inventory.StockUnit, error) {
	stocks := make(map[uuid.UUID]*inventory.StockUnit, len(sortedIDs))
	for _, id := range sortedIDs {
		unit, err := repo.FindByVariantIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				continue
			}
			return nil, err
		}
		stocks[id] = unit
	}
	return stocks, nil
}

// stockAdjustment is one applied deduction, kept so the ledger entries can
// be written once the order number exists.
type stockAdjustment struct {
	unit          *inventory.StockUnit
	delta         int
	before, after int
}

// deductStock applies the sold deduction to every tracked line. The rows
// are already locked, so a failure here means the quantity genuinely cannot
// cover the cart and the error names the offending product.
func deductStock(c *cart.Cart, sortedIDs []uuid.UUID, stocks map[uuid.UUID]*inventory.StockUnit, variants map[uuid.UUID]catalog.VariantInfo) ([]stockAdjustment, error) {
	adjustments := make([]stockAdjustment, 0, len(sortedIDs))
	for _, id := range sortedIDs {
		unit, tracked := stocks[id]
		if !tracked || !unit.TracksInventory {
			continue
		}
		line := c.LineForVariant(id)
		if line == nil {
			continue
		}
		before, after, err := unit.Adjust(-line.Quantity, inventory.ChangeTypeSold, false)
		if err != nil {
			var domErr *shared.DomainError
			if errors.As(err, &domErr) && domErr.Code == shared.CodeInsufficientStock {
				name := id.String()
				if info, known := variants[id]; known {
					name = info.ProductName
				}
				return nil, shared.NewDomainError(shared.CodeInsufficientStock,
					fmt.Sprintf("%s: %s", name, domErr.Message))
			}
			return nil, err
		}
		adjustments = append(adjustments, stockAdjustment{unit: unit, delta: -line.Quantity, before: before, after: after})
	}
	return adjustments, nil
}

// restockLine is one variant/quantity pair to put back into stock
type restockLine struct {
	VariantID uuid.UUID
	Quantity  int
}

// orderRestockLines builds restock lines from an order's items
func orderRestockLines(items []order.OrderItem) []restockLine {
	lines := make([]restockLine, 0, len(items))
	for i := range items {
		lines = append(lines, restockLine{VariantID: items[i].VariantID, Quantity: items[i].Quantity})
	}
	return lines
}

// returnRestockLines builds restock lines from a return's item snapshot
func returnRestockLines(items order.ReturnItemList) []restockLine {
	lines := make([]restockLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, restockLine{VariantID: item.VariantID, Quantity: item.Quantity})
	}
	return lines
}

// restockLines adds quantities back onto their stock units, locking rows in
// ascending variant id order and appending one ledger entry per movement.
// Untracked variants are skipped. Returns the touched units so their domain
// events can be published after commit.
func restockLines(ctx context.Context, repos TransactionalRepositories, lines []restockLine, changeType inventory.ChangeType, reference, actor string) ([]*inventory.StockUnit, error) {
	sort.Slice(lines, func(i, j int) bool {
		return bytes.Compare(lines[i].VariantID[:], lines[j].VariantID[:]) < 0
	})
	units := make([]*inventory.StockUnit, 0, len(lines))
	for _, line := range lines {
		unit, err := repos.StockUnits().FindByVariantIDForUpdate(ctx, line.VariantID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if !unit.TracksInventory {
			continue
		}
		before, after, err := unit.Adjust(line.Quantity, changeType, false)
		if err != nil {
			return nil, err
		}
		if err := repos.StockUnits().Save(ctx, unit); err != nil {
			return nil, err
		}
		entry, err := inventory.NewInventoryLogEntry(unit, changeType, line.Quantity, before, after, reference)
		if err != nil {
			return nil, err
		}
		if err := repos.InventoryLogs().Create(ctx, entry.WithActor(actor)); err != nil {
			return nil, err
		}
		units = append(units, unit)
	}
	return units, nil
}

// returnSnapshot freezes the items being returned. Without explicit inputs
// the whole order comes back; with them, each must reference a real order
// item and stay within its ordered quantity.
func returnSnapshot(o *order.Order, inputs []ReturnItemInput) ([]order.ReturnItem, error) {
	if len(inputs) == 0 {
		items := make([]order.ReturnItem, 0, len(o.Items))
		for i := range o.Items {
			item := &o.Items[i]
			items = append(items, order.ReturnItem{
				OrderItemID: item.ID,
				VariantID:   item.VariantID,
				ProductName: item.ProductName,
				Quantity:    item.Quantity,
				UnitPrice:   item.UnitPrice,
			})
		}
		return items, nil
	}

	byID := make(map[uuid.UUID]*order.OrderItem, len(o.Items))
	for i := range o.Items {
		byID[o.Items[i].ID] = &o.Items[i]
	}
	items := make([]order.ReturnItem, 0, len(inputs))
	seen := make(map[uuid.UUID]bool, len(inputs))
	for _, input := range inputs {
		item, ok := byID[input.OrderItemID]
		if !ok {
			return nil, shared.NewValidationError(fmt.Sprintf("Order has no item %s", input.OrderItemID))
		}
		if seen[input.OrderItemID] {
			return nil, shared.NewValidationError("Duplicate order item in return request")
		}
		seen[input.OrderItemID] = true
		if input.Quantity > item.Quantity {
			return nil, shared.NewValidationError(fmt.Sprintf(
				"Cannot return %d of %q, only %d were ordered", input.Quantity, item.ProductName, item.Quantity))
		}
		items = append(items, order.ReturnItem{
			OrderItemID: item.ID,
			VariantID:   item.VariantID,
			ProductName: item.ProductName,
			Quantity:    input.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}
	return items, nil
}

// checkoutActor identifies the redeemer for per-user coupon limits: the
// user id when signed in, otherwise the normalized email, otherwise the
// phone number.
func checkoutActor(userID *uuid.UUID, email, phone string) coupon.Actor {
	if userID != nil {
		return coupon.UserActor(*userID)
	}
	return coupon.GuestActor(guestIdentifier(email, phone))
}

// guestIdentifier picks the stable identifier recorded for a guest
// redemption
func guestIdentifier(email, phone string) string {
	if normalized := normalizeEmail(email); normalized != "" {
		return normalized
	}
	return strings.TrimSpace(phone)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// priorOrderCount counts completed checkouts for first-order-only coupons:
// by user id for signed-in shoppers, by customer email for guests.
func priorOrderCount(ctx context.Context, repo order.OrderRepository, userID *uuid.UUID, email string) (int64, error) {
	if userID != nil {
		return repo.CountByUser(ctx, *userID)
	}
	if normalized := normalizeEmail(email); normalized != "" {
		return repo.CountByCustomerEmail(ctx, normalized)
	}
	return 0, nil
}
