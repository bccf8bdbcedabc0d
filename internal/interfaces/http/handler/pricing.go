package handler

import (
	pricingapp "github.com/ecom/backend/internal/application/pricing"
	"github.com/gin-gonic/gin"
)

// PricingHandler handles shipping zone and tax rule API endpoints plus the
// shopper-facing quote endpoints
type PricingHandler struct {
	BaseHandler
	pricingService *pricingapp.PricingService
}

// NewPricingHandler creates a new PricingHandler
func NewPricingHandler(pricingService *pricingapp.PricingService) *PricingHandler {
	return &PricingHandler{pricingService: pricingService}
}

// QuoteShipping godoc
// @ID           quoteShipping
// @Summary      Quote delivery cost for an area
// @Description  Resolves the area against shipping zones, falling back to the default zone; free-shipping thresholds apply
// @Tags         pricing
// @Produce      json
// @Param        area query string true "Delivery area"
// @Param        subtotal query number false "Cart subtotal for free-shipping evaluation"
// @Success      200 {object} APIResponse[pricingapp.ShippingQuoteResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /pricing/shipping-quote [get]
func (h *PricingHandler) QuoteShipping(c *gin.Context) {
	var req pricingapp.ShippingQuoteRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.pricingService.QuoteShipping(c.Request.Context(), req.Area, req.Subtotal)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// QuoteTaxes godoc
// @ID           quoteTaxes
// @Summary      Quote taxes for a base amount
// @Tags         pricing
// @Produce      json
// @Param        subtotal query number true "Base amount"
// @Success      200 {object} APIResponse[pricingapp.TaxQuoteResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /pricing/tax-quote [get]
func (h *PricingHandler) QuoteTaxes(c *gin.Context) {
	var req pricingapp.TaxQuoteRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.pricingService.QuoteTaxes(c.Request.Context(), req.Subtotal)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// CreateZone godoc
// @ID           createShippingZone
// @Summary      Create a shipping zone
// @Tags         pricing
// @Accept       json
// @Produce      json
// @Param        request body pricingapp.CreateShippingZoneRequest true "Zone definition"
// @Success      201 {object} APIResponse[pricingapp.ShippingZoneResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /pricing/zones [post]
func (h *PricingHandler) CreateZone(c *gin.Context) {
	var req pricingapp.CreateShippingZoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.pricingService.CreateZone(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// GetZone godoc
// @ID           getShippingZone
// @Summary      Get a shipping zone
// @Tags         pricing
// @Produce      json
// @Param        id path string true "Zone ID"
// @Success      200 {object} APIResponse[pricingapp.ShippingZoneResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /pricing/zones/{id} [get]
func (h *PricingHandler) GetZone(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid zone ID")
		return
	}

	resp, err := h.pricingService.GetZone(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ListZones godoc
// @ID           listShippingZones
// @Summary      List shipping zones
// @Tags         pricing
// @Produce      json
// @Param        is_active query bool false "Filter by active flag"
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Success      200 {object} APIResponse[[]pricingapp.ShippingZoneResponse]
// @Router       /pricing/zones [get]
func (h *PricingHandler) ListZones(c *gin.Context) {
	var filter pricingapp.ShippingZoneListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	zones, total, err := h.pricingService.ListZones(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, zones, total, filter.Page, filter.PageSize)
}

// UpdateZone godoc
// @ID           updateShippingZone
// @Summary      Update a shipping zone
// @Tags         pricing
// @Accept       json
// @Produce      json
// @Param        id path string true "Zone ID"
// @Param        request body pricingapp.UpdateShippingZoneRequest true "Fields to update"
// @Success      200 {object} APIResponse[pricingapp.ShippingZoneResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /pricing/zones/{id} [put]
func (h *PricingHandler) UpdateZone(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid zone ID")
		return
	}

	var req pricingapp.UpdateShippingZoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.pricingService.UpdateZone(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// DeleteZone godoc
// @ID           deleteShippingZone
// @Summary      Delete a shipping zone
// @Description  The fallback zone cannot be deleted while it is the only one
// @Tags         pricing
// @Produce      json
// @Param        id path string true "Zone ID"
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /pricing/zones/{id} [delete]
func (h *PricingHandler) DeleteZone(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid zone ID")
		return
	}

	if err := h.pricingService.DeleteZone(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// CreateTaxRule godoc
// @ID           createTaxRule
// @Summary      Create a tax rule
// @Tags         pricing
// @Accept       json
// @Produce      json
// @Param        request body pricingapp.CreateTaxRuleRequest true "Rule definition"
// @Success      201 {object} APIResponse[pricingapp.TaxRuleResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /pricing/tax-rules [post]
func (h *PricingHandler) CreateTaxRule(c *gin.Context) {
	var req pricingapp.CreateTaxRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.pricingService.CreateTaxRule(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// GetTaxRule godoc
// @ID           getTaxRule
// @Summary      Get a tax rule
// @Tags         pricing
// @Produce      json
// @Param        id path string true "Rule ID"
// @Success      200 {object} APIResponse[pricingapp.TaxRuleResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /pricing/tax-rules/{id} [get]
func (h *PricingHandler) GetTaxRule(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid rule ID")
		return
	}

	resp, err := h.pricingService.GetTaxRule(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ListTaxRules godoc
// @ID           listTaxRules
// @Summary      List tax rules in application order
// @Tags         pricing
// @Produce      json
// @Param        is_active query bool false "Filter by active flag"
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Success      200 {object} APIResponse[[]pricingapp.TaxRuleResponse]
// @Router       /pricing/tax-rules [get]
func (h *PricingHandler) ListTaxRules(c *gin.Context) {
	var filter pricingapp.TaxRuleListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	rules, total, err := h.pricingService.ListTaxRules(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, rules, total, filter.Page, filter.PageSize)
}

// UpdateTaxRule godoc
// @ID           updateTaxRule
// @Summary      Update a tax rule
// @Tags         pricing
// @Accept       json
// @Produce      json
// @Param        id path string true "Rule ID"
// @Param        request body pricingapp.UpdateTaxRuleRequest true "Fields to update"
// @Success      200 {object} APIResponse[pricingapp.TaxRuleResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /pricing/tax-rules/{id} [put]
func (h *PricingHandler) UpdateTaxRule(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid rule ID")
		return
	}

	var req pricingapp.UpdateTaxRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.pricingService.UpdateTaxRule(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// DeleteTaxRule godoc
// @ID           deleteTaxRule
// @Summary      Delete a tax rule
// @Tags         pricing
// @Produce      json
// @Param        id path string true "Rule ID"
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Router       /pricing/tax-rules/{id} [delete]
func (h *PricingHandler) DeleteTaxRule(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid rule ID")
		return
	}

	if err := h.pricingService.DeleteTaxRule(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
