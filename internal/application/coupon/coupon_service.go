package coupon

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ecom/backend/internal/domain/cart"
	"github.com/ecom/backend/internal/domain/catalog"
	"github.com/ecom/backend/internal/domain/coupon"
	"github.com/ecom/backend/internal/domain/order"
	"github.com/ecom/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartSnapshot is the minimal cart view coupon evaluation needs: the full
// subtotal for the minimum-order check and per-line amounts for restriction
// eligibility.
type CartSnapshot struct {
	Subtotal decimal.Decimal
	Lines    []coupon.LineAmounts
}

// SnapshotFromCart builds a CartSnapshot from a cart and its catalog
// context. Lines whose variant is no longer known still count toward the
// subtotal but carry no eligibility; checkout blocks them anyway.
func SnapshotFromCart(c *cart.Cart, variants map[uuid.UUID]catalog.VariantInfo) CartSnapshot {
	snap := CartSnapshot{Subtotal: c.Subtotal()}
	for i := range c.Lines {
		line := &c.Lines[i]
		info, ok := variants[line.VariantID]
		if !ok {
			continue
		}
		snap.Lines = append(snap.Lines, coupon.LineAmounts{
			ProductID:  info.ProductID,
			CategoryID: info.CategoryID,
			LineTotal:  line.LineTotal(),
		})
	}
	return snap
}

// EvaluateInput identifies who is asking and what their cart holds. Email is
// only consulted for guests; Now defaults to the wall clock when zero.
type EvaluateInput struct {
	Code  string
	Cart  CartSnapshot
	Actor coupon.Actor
	Email string
	Now   time.Time
}

// Evaluation is the outcome of checking a coupon against a cart snapshot.
// An empty Reasons slice means the coupon may be applied and Base/Discount
// are set.
type Evaluation struct {
	Coupon   *coupon.Coupon
	Reasons  []string
	Base     decimal.Decimal
	Discount decimal.Decimal
}

// Applicable returns true when every check passed
func (e *Evaluation) Applicable() bool {
	return e.Coupon != nil && len(e.Reasons) == 0
}

// CouponService handles coupon validation and administration. Recording a
// redemption is not here: that happens inside the checkout transaction where
// the conditional increment can roll the whole order back.
type CouponService struct {
	couponRepo coupon.CouponRepository
	usageRepo  coupon.UsageRecordRepository
	orderRepo  order.OrderRepository
	cartRepo   cart.CartRepository
	catalog    catalog.Catalog
}

// NewCouponService creates a new CouponService
func NewCouponService(
	couponRepo coupon.CouponRepository,
	usageRepo coupon.UsageRecordRepository,
	orderRepo order.OrderRepository,
	cartRepo cart.CartRepository,
	catalogPort catalog.Catalog,
) *CouponService {
	return &CouponService{
		couponRepo: couponRepo,
		usageRepo:  usageRepo,
		orderRepo:  orderRepo,
		cartRepo:   cartRepo,
		catalog:    catalogPort,
	}
}

// Evaluate runs every coupon check against a cart snapshot and computes the
// discount when the coupon applies. A missing or deleted code is reported as
// a failed check, not an error; errors are reserved for the stores failing.
func (s *CouponService) Evaluate(ctx context.Context, in EvaluateInput) (*Evaluation, error) {
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	c, err := s.couponRepo.FindByCode(ctx, coupon.NormalizeCode(in.Code), false)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return &Evaluation{Reasons: []string{"Coupon code is not valid"}}, nil
		}
		return nil, err
	}

	timesUsedByActor := 0
	if in.Actor.UserID != nil || in.Actor.GuestIdentifier != "" {
		n, err := s.usageRepo.CountByActor(ctx, c.ID, in.Actor)
		if err != nil {
			return nil, err
		}
		timesUsedByActor = int(n)
	}

	priorOrders := 0
	if c.FirstOrderOnly {
		priorOrders, err = s.priorOrderCount(ctx, in.Actor, in.Email)
		if err != nil {
			return nil, err
		}
	}

	eligibleSubtotal, hasEligibleLines := c.EligibleSubtotal(in.Cart.Lines)
	failures := c.Validate(coupon.ValidationInput{
		Now:              now,
		Subtotal:         in.Cart.Subtotal,
		EligibleSubtotal: eligibleSubtotal,
		HasEligibleLines: hasEligibleLines,
		TimesUsedByActor: timesUsedByActor,
		PriorOrderCount:  priorOrders,
	})
	if len(failures) > 0 {
		reasons := make([]string, len(failures))
		for i, f := range failures {
			reasons[i] = f.Error()
		}
		return &Evaluation{Coupon: c, Reasons: reasons}, nil
	}

	base := c.DiscountBase(in.Cart.Subtotal, eligibleSubtotal)
	return &Evaluation{
		Coupon:   c,
		Base:     base,
		Discount: c.CalculateDiscount(base),
	}, nil
}

// ValidateForShopper checks a coupon against the shopper's current cart and
// returns every failing reason at once, plus a discount preview when the
// coupon applies.
func (s *CouponService) ValidateForShopper(ctx context.Context, req ValidateCouponRequest, userID *uuid.UUID, sessionKey string) (*ValidateCouponResponse, error) {
	snap, err := s.snapshotForOwner(ctx, userID, sessionKey)
	if err != nil {
		return nil, err
	}

	eval, err := s.Evaluate(ctx, EvaluateInput{
		Code:  req.Code,
		Cart:  snap,
		Actor: actorFor(userID, req.Email, sessionKey),
		Email: req.Email,
	})
	if err != nil {
		return nil, err
	}

	resp := &ValidateCouponResponse{
		Valid:   eval.Applicable(),
		Reasons: eval.Reasons,
	}
	if eval.Coupon != nil {
		resp.Coupon = ToCouponResponse(eval.Coupon)
	}
	if resp.Valid {
		resp.Discount = &DiscountPreview{
			Base:           eval.Base,
			Amount:         eval.Discount,
			SubtotalBefore: snap.Subtotal,
			SubtotalAfter:  snap.Subtotal.Sub(eval.Discount),
		}
	}
	return resp, nil
}

// CreateCoupon creates a new coupon
func (s *CouponService) CreateCoupon(ctx context.Context, req CreateCouponRequest) (*CouponResponse, error) {
	c, err := coupon.NewCoupon(req.Code, coupon.DiscountType(req.DiscountType), req.DiscountValue, req.ValidFrom, req.ValidTo)
	if err != nil {
		return nil, err
	}

	// Uniqueness is case-insensitive and includes soft-deleted rows so a
	// retired code cannot be silently reused.
	existing, err := s.couponRepo.FindByCode(ctx, c.Code, true)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, shared.NewDomainError(shared.CodeAlreadyExists, "A coupon with this code already exists")
	}

	if req.MinimumOrder != nil {
		if req.MinimumOrder.IsNegative() {
			return nil, shared.NewValidationError("Minimum order cannot be negative")
		}
		c.MinimumOrder = *req.MinimumOrder
	}
	if req.MaximumDiscount != nil {
		if c.DiscountType != coupon.DiscountTypePercentage {
			return nil, shared.NewValidationError("Maximum discount only applies to percentage coupons")
		}
		if !req.MaximumDiscount.IsPositive() {
			return nil, shared.NewValidationError("Maximum discount must be positive")
		}
		c.MaximumDiscount = req.MaximumDiscount
	}
	c.UsageLimit = req.UsageLimit
	c.UsageLimitPerUser = req.UsageLimitPerUser
	c.FirstOrderOnly = req.FirstOrderOnly
	c.ApplicableCategoryIDs = req.ApplicableCategoryIDs
	c.ApplicableProductIDs = req.ApplicableProductIDs
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}

	if err := s.couponRepo.Save(ctx, c); err != nil {
		return nil, err
	}
	return ToCouponResponse(c), nil
}

// GetCoupon retrieves a coupon by ID
func (s *CouponService) GetCoupon(ctx context.Context, id uuid.UUID) (*CouponResponse, error) {
	c, err := s.couponRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return ToCouponResponse(c), nil
}

// GetCouponByCode retrieves a coupon by its code. Soft-deleted coupons are
// included so admins can inspect retired codes.
func (s *CouponService) GetCouponByCode(ctx context.Context, code string) (*CouponResponse, error) {
	c, err := s.couponRepo.FindByCode(ctx, coupon.NormalizeCode(code), true)
	if err != nil {
		return nil, err
	}
	return ToCouponResponse(c), nil
}

// ListCoupons retrieves coupons with filtering and pagination
func (s *CouponService) ListCoupons(ctx context.Context, filter CouponListFilter) ([]CouponResponse, int64, error) {
	domainFilter := buildCouponFilter(filter)

	coupons, err := s.couponRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.couponRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]CouponResponse, len(coupons))
	for i := range coupons {
		responses[i] = *ToCouponResponse(&coupons[i])
	}
	return responses, total, nil
}

// ActivateCoupon enables a coupon
func (s *CouponService) ActivateCoupon(ctx context.Context, id uuid.UUID) (*CouponResponse, error) {
	c, err := s.couponRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.IsDeleted() {
		return nil, shared.NewInvalidOperationError("Cannot activate a deleted coupon")
	}

	c.Activate()
	if err := s.couponRepo.SaveWithLock(ctx, c); err != nil {
		return nil, err
	}
	return ToCouponResponse(c), nil
}

// DeactivateCoupon disables a coupon without touching its usage history
func (s *CouponService) DeactivateCoupon(ctx context.Context, id uuid.UUID) (*CouponResponse, error) {
	c, err := s.couponRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.IsDeleted() {
		return nil, shared.NewInvalidOperationError("Cannot deactivate a deleted coupon")
	}

	c.Deactivate()
	if err := s.couponRepo.SaveWithLock(ctx, c); err != nil {
		return nil, err
	}
	return ToCouponResponse(c), nil
}

// DeleteCoupon soft-deletes a coupon. Usage records are kept; the code stays
// reserved.
func (s *CouponService) DeleteCoupon(ctx context.Context, id uuid.UUID) error {
	c, err := s.couponRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if c.IsDeleted() {
		return nil
	}

	c.SoftDelete(time.Now())
	return s.couponRepo.SaveWithLock(ctx, c)
}

// GetCouponUsage lists redemptions of a coupon, newest first
func (s *CouponService) GetCouponUsage(ctx context.Context, couponID uuid.UUID, page, pageSize int) ([]UsageRecordResponse, error) {
	if _, err := s.couponRepo.FindByID(ctx, couponID); err != nil {
		return nil, err
	}

	filter := shared.DefaultFilter()
	filter.OrderBy = "used_at"
	if page > 0 {
		filter.Page = page
	}
	if pageSize > 0 && pageSize <= 100 {
		filter.PageSize = pageSize
	}

	records, err := s.usageRepo.FindByCoupon(ctx, couponID, filter)
	if err != nil {
		return nil, err
	}
	responses := make([]UsageRecordResponse, len(records))
	for i := range records {
		responses[i] = *ToUsageRecordResponse(&records[i])
	}
	return responses, nil
}

// priorOrderCount resolves how many orders the actor has placed before.
// Authenticated users are counted by user id, guests by the email they will
// check out with; a guest with no email yet counts as zero and the
// first-order rule is enforced again at checkout.
func (s *CouponService) priorOrderCount(ctx context.Context, actor coupon.Actor, email string) (int, error) {
	if actor.UserID != nil {
		n, err := s.orderRepo.CountByUser(ctx, *actor.UserID)
		if err != nil {
			return 0, err
		}
		return int(n), nil
	}

	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return 0, nil
	}
	n, err := s.orderRepo.CountByCustomerEmail(ctx, normalized)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// snapshotForOwner loads the owner's cart and enriches its lines with
// catalog identity. No cart yet is an empty snapshot, not a 404; the
// minimum-order check reports it.
func (s *CouponService) snapshotForOwner(ctx context.Context, userID *uuid.UUID, sessionKey string) (CartSnapshot, error) {
	c, err := s.findCart(ctx, userID, sessionKey)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return CartSnapshot{Subtotal: decimal.Zero}, nil
		}
		return CartSnapshot{}, err
	}
	if len(c.Lines) == 0 {
		return CartSnapshot{Subtotal: decimal.Zero}, nil
	}

	ids := make([]uuid.UUID, 0, len(c.Lines))
	for i := range c.Lines {
		ids = append(ids, c.Lines[i].VariantID)
	}
	variants, err := s.catalog.Variants(ctx, ids)
	if err != nil {
		return CartSnapshot{}, err
	}
	return SnapshotFromCart(c, variants), nil
}

func (s *CouponService) findCart(ctx context.Context, userID *uuid.UUID, sessionKey string) (*cart.Cart, error) {
	if userID != nil {
		return s.cartRepo.FindByUserID(ctx, *userID)
	}
	if sessionKey != "" {
		return s.cartRepo.FindBySessionKey(ctx, sessionKey, time.Now())
	}
	return nil, shared.ErrNotFound
}

// actorFor picks the identity usage limits count against: the user id when
// authenticated, otherwise the guest's email, otherwise the cart session.
func actorFor(userID *uuid.UUID, email, sessionKey string) coupon.Actor {
	if userID != nil {
		return coupon.UserActor(*userID)
	}
	if normalized := strings.ToLower(strings.TrimSpace(email)); normalized != "" {
		return coupon.GuestActor(normalized)
	}
	return coupon.GuestActor(sessionKey)
}

func buildCouponFilter(filter CouponListFilter) shared.Filter {
	f := shared.DefaultFilter()
	if filter.Page > 0 {
		f.Page = filter.Page
	}
	if filter.PageSize > 0 && filter.PageSize <= 100 {
		f.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		f.OrderBy = filter.OrderBy
	}
	if filter.OrderDir == "asc" || filter.OrderDir == "desc" {
		f.OrderDir = filter.OrderDir
	}
	if filter.Search != "" {
		f.Search = filter.Search
	}
	if filter.IsActive != nil {
		f.Filters["is_active"] = *filter.IsActive
	}
	if filter.IncludeDeleted {
		f.Filters["include_deleted"] = true
	}
	return f
}
