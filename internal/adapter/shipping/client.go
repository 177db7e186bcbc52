package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/vinylshop/internal/domain/errors"
	"github.com/polkiloo/vinylshop/internal/domain/model"
)

// HTTPClient asks the shipping service for rates.
type HTTPClient struct {
	baseURL    *url.URL
	httpClient *http.Client
	tokens     *tokenSource
	logger     *slog.Logger
}

// Credentials authenticate the shop towards the shipping service.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// NewHTTPClient creates shipping client. Without a client id requests go unauthenticated.
func NewHTTPClient(baseURL string, creds Credentials, logger *slog.Logger) (*HTTPClient, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse shipping url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("shipping url must be absolute")
	}
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := &http.Client{Timeout: 10 * time.Second}
	tokenURL := *parsed
	tokenURL.Path = path.Join(tokenURL.Path, "/oauth/token")
	return &HTTPClient{
		baseURL:    parsed,
		httpClient: httpClient,
		logger:     logger,
		tokens: &tokenSource{
			endpoint:     tokenURL.String(),
			clientID:     creds.ClientID,
			clientSecret: creds.ClientSecret,
			httpClient:   httpClient,
			now:          time.Now,
		},
	}, nil
}

type quoteItem struct {
	VariantID int64       `json:"variant_id"`
	Quantity  int         `json:"quantity"`
	UnitPrice json.Number `json:"unit_price"`
}

type quoteRequest struct {
	PostalCode string      `json:"postal_code"`
	Items      []quoteItem `json:"items"`
}

type quoteOption struct {
	ID        string          `json:"id"`
	Carrier   string          `json:"carrier"`
	Service   string          `json:"service"`
	Price     decimal.Decimal `json:"price"`
	ETADays   int             `json:"eta_days"`
	ExpiresAt *time.Time      `json:"expires_at"`
}

type quoteResponse struct {
	Options []quoteOption `json:"options"`
}

// Quote returns the cheapest option offered for the cart.
func (c *HTTPClient) Quote(ctx context.Context, req model.QuoteRequest) (*model.ShippingQuote, error) {
	body := quoteRequest{PostalCode: req.PostalCode, Items: make([]quoteItem, 0, len(req.Items))}
	for _, item := range req.Items {
		price := model.EffectivePrice(item.UnitPrice, item.PromotionalPrice)
		body.Items = append(body.Items, quoteItem{
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
			UnitPrice: json.Number(price.StringFixed(2)),
		})
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	resp, err := c.post(ctx, payload, false)
	if err != nil {
		return nil, err
	}
	return cheapest(resp)
}

func (c *HTTPClient) post(ctx context.Context, payload []byte, retried bool) (*quoteResponse, error) {
	endpoint := *c.baseURL
	endpoint.Path = path.Join(endpoint.Path, "/v1/quotes")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	var token string
	if c.tokens.enabled() {
		if token, err = c.tokens.Token(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", domainErrors.ErrShippingUnavailable, err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrShippingUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized && token != "" && !retried:
		c.tokens.Invalidate(token)
		return c.post(ctx, payload, true)
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, domainErrors.NewValidationError(map[string]string{"postal_code": "is not serviceable"})
	case resp.StatusCode != http.StatusOK:
		c.logger.Error("shipping quote failed", slog.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: %s", domainErrors.ErrShippingUnavailable, resp.Status)
	}

	var out quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode quote: %v", domainErrors.ErrShippingUnavailable, err)
	}
	return &out, nil
}

func cheapest(resp *quoteResponse) (*model.ShippingQuote, error) {
	if len(resp.Options) == 0 {
		return nil, domainErrors.NewValidationError(map[string]string{"postal_code": "no shipping options available"})
	}
	best := resp.Options[0]
	for _, opt := range resp.Options[1:] {
		if opt.Price.LessThan(best.Price) {
			best = opt
		}
	}
	quote := &model.ShippingQuote{
		ID:      best.ID,
		Carrier: best.Carrier,
		Service: best.Service,
		Cost:    best.Price,
		ETADays: best.ETADays,
	}
	if best.ExpiresAt != nil {
		quote.ExpiresAt = *best.ExpiresAt
	}
	return quote, nil
}
