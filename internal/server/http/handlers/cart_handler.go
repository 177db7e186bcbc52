package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/vinylshop/internal/server/http/dto"
)

// CartHandler manages the active cart.
type CartHandler struct {
	facade CartFacade
}

// NewCartHandler constructs CartHandler.
func NewCartHandler(facade CartFacade) *CartHandler {
	return &CartHandler{facade: facade}
}

// Get handles GET /api/cart.
func (h *CartHandler) Get(c *gin.Context) {
	cart, err := h.facade.Cart(c.Request.Context(), CurrentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart))
}

// AddItem handles POST /api/cart/items.
func (h *CartHandler) AddItem(c *gin.Context) {
	var req dto.AddCartItemRequest
	if !bindJSON(c, &req) {
		return
	}
	cart, err := h.facade.AddCartItem(c.Request.Context(), CurrentUserID(c), req.VariantID, req.Quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart))
}

// UpdateItem handles PATCH /api/cart/items/:id.
func (h *CartHandler) UpdateItem(c *gin.Context) {
	itemID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateCartItemRequest
	if !bindJSON(c, &req) {
		return
	}
	cart, err := h.facade.UpdateCartItem(c.Request.Context(), CurrentUserID(c), itemID, req.Quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart))
}

// RemoveItem handles DELETE /api/cart/items/:id.
func (h *CartHandler) RemoveItem(c *gin.Context) {
	itemID, ok := pathID(c, "id")
	if !ok {
		return
	}
	cart, err := h.facade.RemoveCartItem(c.Request.Context(), CurrentUserID(c), itemID)
	if err != nil {
		writeError(c, err)
		return
	}
	if cart == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart))
}
