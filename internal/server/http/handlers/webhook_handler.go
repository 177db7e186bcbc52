package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/vinylshop/internal/domain/errors"
	"github.com/polkiloo/vinylshop/internal/domain/model"
	"github.com/polkiloo/vinylshop/internal/server/http/dto"
)

const maxWebhookBody = 64 << 10

// WebhookHandler receives payment gateway notifications.
type WebhookHandler struct {
	facade   WebhookFacade
	verifier SignatureVerifier
	logger   *slog.Logger
}

// NewWebhookHandler constructs WebhookHandler. A nil verifier accepts unsigned requests.
func NewWebhookHandler(facade WebhookFacade, verifier SignatureVerifier, logger *slog.Logger) *WebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookHandler{facade: facade, verifier: verifier, logger: logger}
}

// Receive handles POST /api/webhooks/payments.
// Permanent failures are acknowledged so the gateway stops redelivering; transient ones answer 500.
func (h *WebhookHandler) Receive(c *gin.Context) {
	event := h.parse(c)

	if h.verifier != nil {
		if err := h.verifier.Verify(c.GetHeader("x-signature"), event.RequestID, event.PaymentID); err != nil {
			h.logger.Warn("webhook signature rejected", slog.String("payment_id", event.PaymentID))
			c.Status(http.StatusUnauthorized)
			return
		}
	}

	applied, err := h.facade.HandleWebhook(c.Request.Context(), event)
	if err != nil {
		if permanentWebhookFailure(err) {
			h.logger.Warn("webhook dropped",
				slog.String("type", event.Type),
				slog.String("payment_id", event.PaymentID),
				slog.String("error", err.Error()))
			c.Status(http.StatusOK)
			return
		}
		h.logger.Error("webhook processing failed",
			slog.String("payment_id", event.PaymentID),
			slog.String("error", err.Error()))
		c.Status(http.StatusInternalServerError)
		return
	}

	if applied != nil && !applied.NoOp {
		h.logger.Info("webhook applied",
			slog.Int64("order_id", applied.OrderID),
			slog.String("payment_id", applied.PaymentID),
			slog.String("status", applied.NewStatus.String()),
			slog.String("source", string(model.SourceWebhook)))
	}
	c.Status(http.StatusOK)
}

// parse reads the JSON body and falls back to type/data.id or topic/id query parameters.
func (h *WebhookHandler) parse(c *gin.Context) model.WebhookEvent {
	var body dto.WebhookNotification
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err == nil && len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &body); err != nil {
			h.logger.Debug("webhook body not decodable", slog.String("error", err.Error()))
			body = dto.WebhookNotification{}
		}
	}

	event := model.WebhookEvent{
		Type:      body.Type,
		Action:    body.Action,
		PaymentID: string(body.Data.ID),
		RequestID: c.GetHeader("x-request-id"),
	}
	if event.Type == "" {
		event.Type = firstNonEmpty(c.Query("type"), c.Query("topic"))
	}
	if event.PaymentID == "" {
		event.PaymentID = firstNonEmpty(c.Query("data.id"), c.Query("id"))
	}
	return event
}

func permanentWebhookFailure(err error) bool {
	var gwErr *domainErrors.GatewayError
	switch {
	case errors.Is(err, domainErrors.ErrMalformedEvent),
		errors.Is(err, domainErrors.ErrOrderNotFound):
		return true
	case errors.As(err, &gwErr):
		return gwErr.StatusCode == http.StatusNotFound
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
