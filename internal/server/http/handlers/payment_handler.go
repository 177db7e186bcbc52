package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/vinylshop/internal/domain/model"
	"github.com/polkiloo/vinylshop/internal/server/http/dto"
)

// PaymentHandler charges orders.
type PaymentHandler struct {
	facade PaymentFacade
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(facade PaymentFacade) *PaymentHandler {
	return &PaymentHandler{facade: facade}
}

type chargeFunc func(ctx context.Context, userID, orderID int64, req model.PaymentRequest) (*model.PaymentResult, error)

// Pay handles POST /api/orders/:id/payments.
func (h *PaymentHandler) Pay(c *gin.Context) {
	h.charge(c, h.facade.PayOrder)
}

// Retry handles POST /api/orders/:id/retry-payment.
func (h *PaymentHandler) Retry(c *gin.Context) {
	h.charge(c, h.facade.RetryPayment)
}

// charge answers 200 with the gateway outcome, rejected payments included.
func (h *PaymentHandler) charge(c *gin.Context, pay chargeFunc) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.PaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := pay(c.Request.Context(), CurrentUserID(c), orderID, toPaymentRequest(req))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPaymentResponse(result))
}
