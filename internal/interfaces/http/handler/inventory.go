package handler

import (
	inventoryapp "github.com/ecom/backend/internal/application/inventory"
	"github.com/ecom/backend/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
)

// InventoryHandler handles stock unit and ledger API endpoints
type InventoryHandler struct {
	BaseHandler
	inventoryService *inventoryapp.InventoryService
	metrics          *telemetry.BusinessMetrics
}

// NewInventoryHandler creates a new InventoryHandler. Metrics may be nil
// when telemetry is disabled.
func NewInventoryHandler(inventoryService *inventoryapp.InventoryService, metrics *telemetry.BusinessMetrics) *InventoryHandler {
	return &InventoryHandler{
		inventoryService: inventoryService,
		metrics:          metrics,
	}
}

// AdjustStock godoc
// @ID           adjustStock
// @Summary      Adjust a variant's stock level
// @Description  Applies a signed delta under a row lock and appends a ledger entry in the same transaction
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        request body inventoryapp.AdjustStockRequest true "Adjustment"
// @Success      200 {object} APIResponse[inventoryapp.AdjustStockResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /inventory/adjustments [post]
func (h *InventoryHandler) AdjustStock(c *gin.Context) {
	var req inventoryapp.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.inventoryService.AdjustStock(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordStockAdjustment(c.Request.Context(), req.ChangeType)
	}
	h.Success(c, resp)
}

// BulkAdjust godoc
// @ID           bulkAdjustStock
// @Summary      Adjust several variants in one call
// @Description  Each adjustment runs in its own transaction; the response reports per-variant outcomes
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        request body inventoryapp.BulkAdjustRequest true "Adjustments"
// @Success      200 {object} APIResponse[inventoryapp.BulkAdjustResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /inventory/adjustments/bulk [post]
func (h *InventoryHandler) BulkAdjust(c *gin.Context) {
	var req inventoryapp.BulkAdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.inventoryService.BulkAdjust(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if h.metrics != nil {
		for _, result := range resp.Results {
			if result.Succeeded {
				h.metrics.RecordStockAdjustment(c.Request.Context(), "bulk")
			}
		}
	}
	h.Success(c, resp)
}

// CheckAvailability godoc
// @ID           checkAvailability
// @Summary      Check whether requested quantities are available
// @Description  Advisory, lock-free answer; checkout re-checks under locks
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        request body inventoryapp.AvailabilityRequest true "Variants and quantities"
// @Success      200 {object} APIResponse[inventoryapp.AvailabilityResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /inventory/availability [post]
func (h *InventoryHandler) CheckAvailability(c *gin.Context) {
	var req inventoryapp.AvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.inventoryService.CheckAvailability(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// UpsertStockUnit godoc
// @ID           upsertStockUnit
// @Summary      Create or update a variant's stock unit
// @Description  Initial quantity on creation is applied as a restocked adjustment so the ledger stays complete
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        request body inventoryapp.UpsertStockUnitRequest true "Stock unit settings"
// @Success      200 {object} APIResponse[inventoryapp.StockUnitResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /inventory/stock-units [put]
func (h *InventoryHandler) UpsertStockUnit(c *gin.Context) {
	var req inventoryapp.UpsertStockUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.inventoryService.UpsertStockUnit(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetStockUnit godoc
// @ID           getStockUnit
// @Summary      Get a variant's stock unit
// @Tags         inventory
// @Produce      json
// @Param        variant_id path string true "Variant ID"
// @Success      200 {object} APIResponse[inventoryapp.StockUnitResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /inventory/stock-units/{variant_id} [get]
func (h *InventoryHandler) GetStockUnit(c *gin.Context) {
	variantID, err := parseUUIDParam(c, "variant_id")
	if err != nil {
		h.BadRequest(c, "Invalid variant ID")
		return
	}

	resp, err := h.inventoryService.GetStockUnit(c.Request.Context(), variantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ListStockUnits godoc
// @ID           listStockUnits
// @Summary      List stock units
// @Tags         inventory
// @Produce      json
// @Param        tracks_inventory query bool false "Filter by tracking flag"
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Success      200 {object} APIResponse[[]inventoryapp.StockUnitResponse]
// @Router       /inventory/stock-units [get]
func (h *InventoryHandler) ListStockUnits(c *gin.Context) {
	var filter inventoryapp.StockUnitListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	units, total, err := h.inventoryService.ListStockUnits(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, units, total, filter.Page, filter.PageSize)
}

// ListLowStock godoc
// @ID           listLowStock
// @Summary      List tracked stock units at or below their low-stock threshold
// @Tags         inventory
// @Produce      json
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Success      200 {object} APIResponse[[]inventoryapp.StockUnitResponse]
// @Router       /inventory/stock-units/low [get]
func (h *InventoryHandler) ListLowStock(c *gin.Context) {
	var filter inventoryapp.StockUnitListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	units, total, err := h.inventoryService.ListLowStock(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, units, total, filter.Page, filter.PageSize)
}

// GetLedger godoc
// @ID           getInventoryLedger
// @Summary      Get a variant's ledger history, newest first
// @Tags         inventory
// @Produce      json
// @Param        variant_id path string true "Variant ID"
// @Param        change_type query string false "Filter by change type"
// @Param        start_date query string false "Start date (YYYY-MM-DD)"
// @Param        end_date query string false "End date (YYYY-MM-DD)"
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Success      200 {object} APIResponse[[]inventoryapp.LedgerEntryResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /inventory/stock-units/{variant_id}/ledger [get]
func (h *InventoryHandler) GetLedger(c *gin.Context) {
	variantID, err := parseUUIDParam(c, "variant_id")
	if err != nil {
		h.BadRequest(c, "Invalid variant ID")
		return
	}

	var query inventoryapp.LedgerQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	entries, total, err := h.inventoryService.GetLedger(c.Request.Context(), variantID, query)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, entries, total, query.Page, query.PageSize)
}
