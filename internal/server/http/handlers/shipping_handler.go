package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/vinylshop/internal/server/http/dto"
)

// ShippingHandler serves shipping quotes.
type ShippingHandler struct {
	facade ShippingFacade
}

// NewShippingHandler constructs ShippingHandler.
func NewShippingHandler(facade ShippingFacade) *ShippingHandler {
	return &ShippingHandler{facade: facade}
}

// Quote handles POST /api/shipping/quotes.
func (h *ShippingHandler) Quote(c *gin.Context) {
	var req dto.QuoteRequest
	if !bindJSON(c, &req) {
		return
	}
	quote, err := h.facade.QuoteShipping(c.Request.Context(), CurrentUserID(c), req.PostalCode)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toQuoteResponse(quote))
}
