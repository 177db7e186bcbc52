package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/vinylshop/internal/domain/errors"
	"github.com/polkiloo/vinylshop/internal/domain/model"
)

const maxErrorBody = 2048

// HTTPClient talks to the payment gateway REST API.
type HTTPClient struct {
	baseURL     *url.URL
	accessToken string
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewHTTPClient creates gateway client; timeout bounds every request.
func NewHTTPClient(baseURL, accessToken string, timeout time.Duration, logger *slog.Logger) (*HTTPClient, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse gateway url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("gateway url must be absolute")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPClient{
		baseURL:     parsed,
		accessToken: accessToken,
		logger:      logger,
		httpClient:  &http.Client{Timeout: timeout},
	}, nil
}

type identificationBody struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}

type payerBody struct {
	Email          string              `json:"email"`
	Identification *identificationBody `json:"identification,omitempty"`
}

type createBody struct {
	TransactionAmount json.Number `json:"transaction_amount"`
	Description       string      `json:"description,omitempty"`
	ExternalReference string      `json:"external_reference"`
	Token             string      `json:"token,omitempty"`
	PaymentMethodID   string      `json:"payment_method_id"`
	Installments      int         `json:"installments"`
	IssuerID          string      `json:"issuer_id,omitempty"`
	Payer             payerBody   `json:"payer"`
}

// paymentBody mirrors the gateway payment resource.
type paymentBody struct {
	ID                paymentID        `json:"id"`
	Status            string           `json:"status"`
	StatusDetail      string           `json:"status_detail"`
	PaymentMethodID   string           `json:"payment_method_id"`
	TransactionAmount *decimal.Decimal `json:"transaction_amount"`
	ExternalReference string           `json:"external_reference"`
}

// paymentID accepts both numeric and string ids.
type paymentID string

func (p *paymentID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*p = paymentID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("payment id: %w", err)
	}
	*p = paymentID(n.String())
	return nil
}

var knownStatuses = map[string]model.PaymentStatus{
	"pending":      model.PaymentStatusPending,
	"approved":     model.PaymentStatusApproved,
	"authorized":   model.PaymentStatusAuthorized,
	"in_process":   model.PaymentStatusInProcess,
	"in_mediation": model.PaymentStatusInMediation,
	"rejected":     model.PaymentStatusRejected,
	"cancelled":    model.PaymentStatusCancelled,
	"refunded":     model.PaymentStatusRefunded,
	"charged_back": model.PaymentStatusChargedBack,
}

// CreatePayment submits a charge. The idempotency key makes retries safe.
func (c *HTTPClient) CreatePayment(ctx context.Context, req *model.GatewayPaymentRequest) (*model.GatewayPayment, error) {
	body := createBody{
		TransactionAmount: json.Number(req.Amount.StringFixed(2)),
		Description:       req.Description,
		ExternalReference: req.ExternalReference,
		Token:             req.Token,
		PaymentMethodID:   req.PaymentMethodID,
		Installments:      req.Installments,
		IssuerID:          req.IssuerID,
		Payer:             payerBody{Email: req.Payer.Email},
	}
	if id := req.Payer.Identification; id != nil {
		body.Payer.Identification = &identificationBody{Type: id.Type, Number: id.Number}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	httpReq, err := c.newRequest(ctx, http.MethodPost, "/v1/payments", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if req.IdempotencyKey != "" {
		httpReq.Header.Set("X-Idempotency-Key", req.IdempotencyKey)
	}
	return c.do(httpReq)
}

// GetPayment fetches the current state of a payment.
func (c *HTTPClient) GetPayment(ctx context.Context, id string) (*model.GatewayPayment, error) {
	if strings.TrimSpace(id) == "" {
		return nil, &domainErrors.GatewayProtocolError{Reason: "empty payment id"}
	}
	httpReq, err := c.newRequest(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	return c.do(httpReq)
}

func (c *HTTPClient) newRequest(ctx context.Context, method, p string, body io.Reader) (*http.Request, error) {
	endpoint := *c.baseURL
	endpoint.Path = path.Join(endpoint.Path, p)
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}
	return req, nil
}

func (c *HTTPClient) do(req *http.Request) (*model.GatewayPayment, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domainErrors.GatewayError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domainErrors.GatewayError{StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := raw
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		c.logger.Error("payment gateway request failed",
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(snippet)))
		return nil, &domainErrors.GatewayError{
			StatusCode: resp.StatusCode,
			Err:        errors.New(http.StatusText(resp.StatusCode)),
		}
	}

	return decodePayment(raw)
}

func decodePayment(raw []byte) (*model.GatewayPayment, error) {
	var body paymentBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, &domainErrors.GatewayProtocolError{Reason: "decode payment: " + err.Error()}
	}
	if body.ID == "" {
		return nil, &domainErrors.GatewayProtocolError{Reason: "missing payment id"}
	}
	status, ok := knownStatuses[body.Status]
	if !ok {
		return nil, &domainErrors.GatewayProtocolError{Reason: fmt.Sprintf("unknown status %q", body.Status)}
	}
	payment := &model.GatewayPayment{
		ID:                string(body.ID),
		Status:            status,
		StatusDetail:      body.StatusDetail,
		PaymentMethodID:   body.PaymentMethodID,
		ExternalReference: body.ExternalReference,
		Raw:               json.RawMessage(raw),
	}
	if body.TransactionAmount != nil {
		payment.TransactionAmount = *body.TransactionAmount
	}
	return payment, nil
}
