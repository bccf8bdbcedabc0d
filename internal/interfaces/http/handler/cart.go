package handler

import (
	cartapp "github.com/ecom/backend/internal/application/cart"
	"github.com/gin-gonic/gin"
)

// CartHandler handles cart API endpoints for both guests and authenticated
// shoppers. The cart is addressed by identity, never by ID: the identity
// middleware decides whose cart each request touches.
type CartHandler struct {
	BaseHandler
	cartService *cartapp.CartService
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(cartService *cartapp.CartService) *CartHandler {
	return &CartHandler{cartService: cartService}
}

// GetCart godoc
// @ID           getCart
// @Summary      Get the current cart
// @Description  Returns the caller's cart, creating an empty one if none exists
// @Tags         cart
// @Produce      json
// @Success      200 {object} APIResponse[cartapp.CartResponse]
// @Failure      500 {object} ErrorResponse
// @Router       /cart [get]
func (h *CartHandler) GetCart(c *gin.Context) {
	owner, err := resolveCartOwner(c)
	if err != nil {
		h.Unauthorized(c, "No identity resolved for request")
		return
	}

	resp, err := h.cartService.GetCart(c.Request.Context(), owner)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// AddItem godoc
// @ID           addCartItem
// @Summary      Add a variant to the cart
// @Description  Adds a purchasable variant, merging quantity into an existing line for the same variant
// @Tags         cart
// @Accept       json
// @Produce      json
// @Param        request body cartapp.AddItemRequest true "Item to add"
// @Success      200 {object} APIResponse[cartapp.CartResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /cart/items [post]
func (h *CartHandler) AddItem(c *gin.Context) {
	owner, err := resolveCartOwner(c)
	if err != nil {
		h.Unauthorized(c, "No identity resolved for request")
		return
	}

	var req cartapp.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.cartService.AddItem(c.Request.Context(), owner, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// UpdateItem godoc
// @ID           updateCartItem
// @Summary      Change a cart line's quantity
// @Tags         cart
// @Accept       json
// @Produce      json
// @Param        line_id path string true "Cart line ID"
// @Param        request body cartapp.UpdateItemRequest true "New quantity"
// @Success      200 {object} APIResponse[cartapp.CartResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /cart/items/{line_id} [put]
func (h *CartHandler) UpdateItem(c *gin.Context) {
	owner, err := resolveCartOwner(c)
	if err != nil {
		h.Unauthorized(c, "No identity resolved for request")
		return
	}

	lineID, err := parseUUIDParam(c, "line_id")
	if err != nil {
		h.BadRequest(c, "Invalid cart line ID")
		return
	}

	var req cartapp.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.cartService.UpdateItem(c.Request.Context(), owner, lineID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// RemoveItem godoc
// @ID           removeCartItem
// @Summary      Remove a line from the cart
// @Tags         cart
// @Produce      json
// @Param        line_id path string true "Cart line ID"
// @Success      200 {object} APIResponse[cartapp.CartResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /cart/items/{line_id} [delete]
func (h *CartHandler) RemoveItem(c *gin.Context) {
	owner, err := resolveCartOwner(c)
	if err != nil {
		h.Unauthorized(c, "No identity resolved for request")
		return
	}

	lineID, err := parseUUIDParam(c, "line_id")
	if err != nil {
		h.BadRequest(c, "Invalid cart line ID")
		return
	}

	resp, err := h.cartService.RemoveItem(c.Request.Context(), owner, lineID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ClearCart godoc
// @ID           clearCart
// @Summary      Remove every line from the cart
// @Tags         cart
// @Produce      json
// @Success      200 {object} APIResponse[cartapp.CartResponse]
// @Router       /cart [delete]
func (h *CartHandler) ClearCart(c *gin.Context) {
	owner, err := resolveCartOwner(c)
	if err != nil {
		h.Unauthorized(c, "No identity resolved for request")
		return
	}

	resp, err := h.cartService.ClearCart(c.Request.Context(), owner)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Merge godoc
// @ID           mergeCart
// @Summary      Fold a guest cart into the authenticated user's cart
// @Description  Called after login; quantities merge line-by-line and the guest cart is deleted
// @Tags         cart
// @Accept       json
// @Produce      json
// @Param        request body cartapp.MergeRequest true "Guest session to merge"
// @Success      200 {object} APIResponse[cartapp.CartResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Router       /cart/merge [post]
func (h *CartHandler) Merge(c *gin.Context) {
	userID := currentUserID(c)
	if userID == nil {
		h.Unauthorized(c, "Authentication required to merge carts")
		return
	}

	var req cartapp.MergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.cartService.MergeCarts(c.Request.Context(), *userID, req.SessionKey)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Validate godoc
// @ID           validateCart
// @Summary      Validate the cart for checkout
// @Description  Reports every blocking issue and warning without reserving stock
// @Tags         cart
// @Produce      json
// @Success      200 {object} APIResponse[cartapp.ValidationResponse]
// @Router       /cart/validate [post]
func (h *CartHandler) Validate(c *gin.Context) {
	owner, err := resolveCartOwner(c)
	if err != nil {
		h.Unauthorized(c, "No identity resolved for request")
		return
	}

	resp, err := h.cartService.ValidateForCheckout(c.Request.Context(), owner)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// RefreshPrices godoc
// @ID           refreshCartPrices
// @Summary      Re-snapshot cart prices from the live catalog
// @Tags         cart
// @Produce      json
// @Success      200 {object} APIResponse[cartapp.RefreshPricesResponse]
// @Router       /cart/refresh-prices [post]
func (h *CartHandler) RefreshPrices(c *gin.Context) {
	owner, err := resolveCartOwner(c)
	if err != nil {
		h.Unauthorized(c, "No identity resolved for request")
		return
	}

	resp, err := h.cartService.RefreshPrices(c.Request.Context(), owner)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
