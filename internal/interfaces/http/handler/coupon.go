package handler

import (
	couponapp "github.com/ecom/backend/internal/application/coupon"
	"github.com/gin-gonic/gin"
)

// CouponHandler handles coupon API endpoints: shopper-facing validation plus
// the admin lifecycle
type CouponHandler struct {
	BaseHandler
	couponService *couponapp.CouponService
}

// NewCouponHandler creates a new CouponHandler
func NewCouponHandler(couponService *couponapp.CouponService) *CouponHandler {
	return &CouponHandler{couponService: couponService}
}

// Validate godoc
// @ID           validateCoupon
// @Summary      Check a coupon against the caller's cart
// @Description  Advisory preview: reports every failing check and the discount the coupon would yield. Checkout re-validates under locks.
// @Tags         coupons
// @Accept       json
// @Produce      json
// @Param        request body couponapp.ValidateCouponRequest true "Coupon code"
// @Success      200 {object} APIResponse[couponapp.ValidateCouponResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /coupons/validate [post]
func (h *CouponHandler) Validate(c *gin.Context) {
	var req couponapp.ValidateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.couponService.ValidateForShopper(c.Request.Context(), req, currentUserID(c), currentSessionKey(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Create godoc
// @ID           createCoupon
// @Summary      Create a coupon
// @Tags         coupons
// @Accept       json
// @Produce      json
// @Param        request body couponapp.CreateCouponRequest true "Coupon definition"
// @Success      201 {object} APIResponse[couponapp.CouponResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /coupons [post]
func (h *CouponHandler) Create(c *gin.Context) {
	var req couponapp.CreateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.couponService.CreateCoupon(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// GetByID godoc
// @ID           getCoupon
// @Summary      Get a coupon by ID
// @Tags         coupons
// @Produce      json
// @Param        id path string true "Coupon ID"
// @Success      200 {object} APIResponse[couponapp.CouponResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /coupons/{id} [get]
func (h *CouponHandler) GetByID(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid coupon ID")
		return
	}

	resp, err := h.couponService.GetCoupon(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetByCode godoc
// @ID           getCouponByCode
// @Summary      Get a coupon by code
// @Tags         coupons
// @Produce      json
// @Param        code path string true "Coupon code"
// @Success      200 {object} APIResponse[couponapp.CouponResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /coupons/code/{code} [get]
func (h *CouponHandler) GetByCode(c *gin.Context) {
	resp, err := h.couponService.GetCouponByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// List godoc
// @ID           listCoupons
// @Summary      List coupons with filters and pagination
// @Tags         coupons
// @Produce      json
// @Param        is_active query bool false "Filter by active flag"
// @Param        search query string false "Search coupon codes"
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Success      200 {object} APIResponse[[]couponapp.CouponResponse]
// @Router       /coupons [get]
func (h *CouponHandler) List(c *gin.Context) {
	var filter couponapp.CouponListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	coupons, total, err := h.couponService.ListCoupons(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, coupons, total, filter.Page, filter.PageSize)
}

// Activate godoc
// @ID           activateCoupon
// @Summary      Activate a coupon
// @Tags         coupons
// @Produce      json
// @Param        id path string true "Coupon ID"
// @Success      200 {object} APIResponse[couponapp.CouponResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /coupons/{id}/activate [post]
func (h *CouponHandler) Activate(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid coupon ID")
		return
	}

	resp, err := h.couponService.ActivateCoupon(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Deactivate godoc
// @ID           deactivateCoupon
// @Summary      Deactivate a coupon
// @Description  Existing redemptions stand; new ones are refused
// @Tags         coupons
// @Produce      json
// @Param        id path string true "Coupon ID"
// @Success      200 {object} APIResponse[couponapp.CouponResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /coupons/{id}/deactivate [post]
func (h *CouponHandler) Deactivate(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid coupon ID")
		return
	}

	resp, err := h.couponService.DeactivateCoupon(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Delete godoc
// @ID           deleteCoupon
// @Summary      Soft-delete a coupon
// @Description  The code stays reserved so historical orders keep their reference
// @Tags         coupons
// @Produce      json
// @Param        id path string true "Coupon ID"
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Router       /coupons/{id} [delete]
func (h *CouponHandler) Delete(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid coupon ID")
		return
	}

	if err := h.couponService.DeleteCoupon(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// GetUsage godoc
// @ID           getCouponUsage
// @Summary      List a coupon's redemption history
// @Tags         coupons
// @Produce      json
// @Param        id path string true "Coupon ID"
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Success      200 {object} APIResponse[[]couponapp.UsageRecordResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /coupons/{id}/usage [get]
func (h *CouponHandler) GetUsage(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid coupon ID")
		return
	}

	var paging struct {
		Page     int `form:"page"`
		PageSize int `form:"page_size"`
	}
	if err := c.ShouldBindQuery(&paging); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	records, err := h.couponService.GetCouponUsage(c.Request.Context(), id, paging.Page, paging.PageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, records)
}
