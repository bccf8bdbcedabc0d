package handler

import (
	"errors"
	"net/http"
	"time"

	orderapp "github.com/ecom/backend/internal/application/order"
	"github.com/ecom/backend/internal/infrastructure/telemetry"
	"github.com/ecom/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OrderHandler handles checkout and order lifecycle API endpoints
type OrderHandler struct {
	BaseHandler
	orderService *orderapp.OrderService
	metrics      *telemetry.BusinessMetrics
}

// NewOrderHandler creates a new OrderHandler. Metrics may be nil when
// telemetry is disabled.
func NewOrderHandler(orderService *orderapp.OrderService, metrics *telemetry.BusinessMetrics) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		metrics:      metrics,
	}
}

// Checkout godoc
// @ID           checkout
// @Summary      Turn the caller's cart into an order
// @Description  Validates the cart, reserves stock, redeems any coupon, prices shipping and taxes, and creates the order in one transaction. Retries with the same Idempotency-Key return the first outcome.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Client-chosen key making retries safe"
// @Param        request body orderapp.CheckoutRequest true "Checkout details"
// @Success      201 {object} APIResponse[orderapp.CheckoutResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /checkout [post]
func (h *OrderHandler) Checkout(c *gin.Context) {
	var req orderapp.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	start := time.Now()
	idempotencyKey := c.GetHeader(IdempotencyKeyHeader)

	resp, err := h.orderService.Checkout(ctx, req, currentUserID(c), currentSessionKey(c), idempotencyKey)
	if err != nil {
		h.recordCheckoutFailure(c, err, time.Since(start))

		var blocked *orderapp.CheckoutBlockedError
		if errors.As(err, &blocked) {
			h.checkoutBlocked(c, blocked)
			return
		}
		h.HandleError(c, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordCheckout(ctx, resp.PaymentMethod, resp.Total, time.Since(start))
	}
	h.Created(c, resp)
}

// checkoutBlocked renders cart validation failures as a 400 with one detail
// per issue so the shopper sees every problem at once
func (h *OrderHandler) checkoutBlocked(c *gin.Context, blocked *orderapp.CheckoutBlockedError) {
	details := make([]dto.ValidationDetail, 0, len(blocked.Issues))
	for _, issue := range blocked.Issues {
		field := issue.Code
		if issue.VariantID != uuid.Nil {
			field = issue.Code + ":" + issue.VariantID.String()
		}
		details = append(details, dto.ValidationDetail{
			Field:   field,
			Message: issue.Message,
		})
	}

	requestID := getRequestID(c)
	resp := dto.NewValidationErrorResponse(blocked.Error(), requestID, details)
	c.JSON(http.StatusBadRequest, resp)
}

func (h *OrderHandler) recordCheckoutFailure(c *gin.Context, err error, took time.Duration) {
	if h.metrics == nil {
		return
	}
	code := dto.ErrCodeInternal
	var blocked *orderapp.CheckoutBlockedError
	if errors.As(err, &blocked) {
		code = dto.ErrCodeValidation
	} else if domainCode := domainErrorCode(err); domainCode != "" {
		code = domainCode
	}
	h.metrics.RecordCheckoutFailure(c.Request.Context(), code, took)
}

// GetOrder godoc
// @ID           getOrder
// @Summary      Get an order with its audit trail, payments and returns
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID"
// @Success      200 {object} APIResponse[orderapp.OrderDetailResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	resp, err := h.orderService.GetOrder(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetOrderByNumber godoc
// @ID           getOrderByNumber
// @Summary      Get an order by its human-readable number
// @Tags         orders
// @Produce      json
// @Param        order_number path string true "Order number"
// @Success      200 {object} APIResponse[orderapp.OrderDetailResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /orders/number/{order_number} [get]
func (h *OrderHandler) GetOrderByNumber(c *gin.Context) {
	resp, err := h.orderService.GetOrderByNumber(c.Request.Context(), c.Param("order_number"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ListOrders godoc
// @ID           listOrders
// @Summary      List orders with filters and pagination
// @Tags         orders
// @Produce      json
// @Param        status query string false "Filter by status"
// @Param        payment_status query string false "Filter by payment status"
// @Param        search query string false "Search order number, customer name or phone"
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Success      200 {object} APIResponse[[]orderapp.OrderResponse]
// @Router       /orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	var filter orderapp.OrderListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	orders, total, err := h.orderService.ListOrders(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, orders, total, filter.Page, filter.PageSize)
}

// ListMyOrders godoc
// @ID           listMyOrders
// @Summary      List the authenticated shopper's own orders
// @Tags         orders
// @Produce      json
// @Success      200 {object} APIResponse[[]orderapp.OrderResponse]
// @Failure      401 {object} ErrorResponse
// @Router       /orders/mine [get]
func (h *OrderHandler) ListMyOrders(c *gin.Context) {
	userID := currentUserID(c)
	if userID == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var filter orderapp.OrderListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	orders, total, err := h.orderService.ListUserOrders(c.Request.Context(), *userID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, orders, total, filter.Page, filter.PageSize)
}

// ChangeStatus godoc
// @ID           changeOrderStatus
// @Summary      Move an order to a new status
// @Description  Transitions follow the order lifecycle; cancelling a stock-reserving order restocks its items
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID"
// @Param        request body orderapp.StatusChangeRequest true "Target status"
// @Success      200 {object} APIResponse[orderapp.OrderResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /orders/{id}/status [post]
func (h *OrderHandler) ChangeStatus(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	var req orderapp.StatusChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.orderService.ChangeStatus(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// RecordPayment godoc
// @ID           recordOrderPayment
// @Summary      Record the outcome of a payment attempt
// @Description  A completed payment covering the order total marks the order paid
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID"
// @Param        request body orderapp.PaymentRequest true "Payment outcome"
// @Success      201 {object} APIResponse[orderapp.PaymentTransactionResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /orders/{id}/payments [post]
func (h *OrderHandler) RecordPayment(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	var req orderapp.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.orderService.RecordPayment(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordPayment(c.Request.Context(), resp.Provider, resp.Status)
	}
	h.Created(c, resp)
}

// RequestReturn godoc
// @ID           requestOrderReturn
// @Summary      Open a return for a delivered order
// @Tags         returns
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID"
// @Param        request body orderapp.CreateReturnRequest true "Return reason and items"
// @Success      201 {object} APIResponse[orderapp.ReturnRequestResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /orders/{id}/returns [post]
func (h *OrderHandler) RequestReturn(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	var req orderapp.CreateReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.orderService.RequestReturn(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// ProcessReturn godoc
// @ID           processReturn
// @Summary      Approve or reject a pending return
// @Description  Approval restocks the returned items; a refund amount additionally marks the order refunded
// @Tags         returns
// @Accept       json
// @Produce      json
// @Param        id path string true "Return request ID"
// @Param        request body orderapp.ProcessReturnRequest true "Decision"
// @Success      200 {object} APIResponse[orderapp.ReturnRequestResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /returns/{id}/process [post]
func (h *OrderHandler) ProcessReturn(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid return request ID")
		return
	}

	var req orderapp.ProcessReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.orderService.ProcessReturn(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetReturn godoc
// @ID           getReturn
// @Summary      Get a return request
// @Tags         returns
// @Produce      json
// @Param        id path string true "Return request ID"
// @Success      200 {object} APIResponse[orderapp.ReturnRequestResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /returns/{id} [get]
func (h *OrderHandler) GetReturn(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid return request ID")
		return
	}

	resp, err := h.orderService.GetReturn(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ListReturns godoc
// @ID           listReturns
// @Summary      List return requests
// @Tags         returns
// @Produce      json
// @Param        status query string false "Filter by status"
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Success      200 {object} APIResponse[[]orderapp.ReturnRequestResponse]
// @Router       /returns [get]
func (h *OrderHandler) ListReturns(c *gin.Context) {
	var filter orderapp.ReturnListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	returns, total, err := h.orderService.ListReturns(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, returns, total, filter.Page, filter.PageSize)
}
