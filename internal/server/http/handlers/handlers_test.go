package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/vinylshop/internal/domain/errors"
	"github.com/polkiloo/vinylshop/internal/domain/model"
	pkgAuth "github.com/polkiloo/vinylshop/internal/pkg/auth"
	"github.com/polkiloo/vinylshop/internal/server/http/dto"
	"github.com/polkiloo/vinylshop/internal/server/http/middleware"
	testhelpers "github.com/polkiloo/vinylshop/internal/test"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var jsonHeaders = map[string]string{"Content-Type": "application/json"}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func performRequest(t *testing.T, method, route, target string, handler gin.HandlerFunc, setup func(*gin.Context), body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	router := gin.New()
	router.Handle(method, route, func(c *gin.Context) {
		if setup != nil {
			setup(c)
		}
		handler(c)
	})

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func asUser(id int64) func(*gin.Context) {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDContextKey, id)
	}
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()
	var out dto.ErrorResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode error body %q: %v", resp.Body.String(), err)
	}
	return out
}

func TestCurrentUserID(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if got := CurrentUserID(c); got != 0 {
		t.Fatalf("expected 0 when not set, got %d", got)
	}

	c.Set(middleware.UserIDContextKey, int64(42))
	if got := CurrentUserID(c); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
}

func TestAuthHandlerRegister(t *testing.T) {
	email := testhelpers.RandomEmail()
	password := testhelpers.RandomASCIIString(8, 16)
	body, _ := json.Marshal(dto.RegisterRequest{Email: email, Name: "Ann", Password: password})
	handler := NewAuthHandler(testhelpers.AuthFacadeStub{RegisterFn: func(_ context.Context, gotEmail, gotName, gotPassword string) (string, error) {
		if gotEmail != email || gotName != "Ann" || gotPassword != password {
			t.Fatalf("unexpected registration passed to facade: %q %q %q", gotEmail, gotName, gotPassword)
		}
		return "issued", nil
	}})

	resp := performRequest(t, http.MethodPost, "/register", "/register", handler.Register, nil, body, jsonHeaders)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	if got := resp.Header().Get("Authorization"); got != "Bearer issued" {
		t.Fatalf("expected auth header, got %q", got)
	}
	if cookies := resp.Result().Cookies(); len(cookies) == 0 || cookies[0].Value != "issued" {
		t.Fatalf("expected auth cookie, got %+v", cookies)
	}
}

func TestAuthHandlerRegisterFailures(t *testing.T) {
	valid, _ := json.Marshal(dto.RegisterRequest{Email: "ann@example.com", Password: "secret1"})
	tests := []struct {
		name   string
		body   []byte
		err    error
		status int
	}{
		{name: "malformed", body: []byte("{"), status: http.StatusBadRequest},
		{name: "invalid email", body: []byte(`{"email":"nope","password":"secret1"}`), status: http.StatusUnprocessableEntity},
		{name: "short password", body: []byte(`{"email":"ann@example.com","password":"123"}`), status: http.StatusUnprocessableEntity},
		{name: "rejected", body: valid, err: domainErrors.ErrInvalidCredentials, status: http.StatusBadRequest},
		{name: "conflict", body: valid, err: domainErrors.ErrAlreadyExists, status: http.StatusConflict},
		{name: "password too long", body: valid, err: domainErrors.NewValidationError(map[string]string{"password": "must be at most 72 bytes"}), status: http.StatusUnprocessableEntity},
		{name: "internal", body: valid, err: errors.New("boom"), status: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewAuthHandler(testhelpers.AuthFacadeStub{RegisterFn: func(context.Context, string, string, string) (string, error) {
				return "", tt.err
			}})
			resp := performRequest(t, http.MethodPost, "/register", "/register", handler.Register, nil, tt.body, jsonHeaders)
			if resp.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, resp.Code)
			}
		})
	}
}

func TestAuthHandlerRegisterReportsFieldNames(t *testing.T) {
	handler := NewAuthHandler(testhelpers.AuthFacadeStub{})
	resp := performRequest(t, http.MethodPost, "/register", "/register", handler.Register, nil, []byte(`{"email":"nope","password":"1"}`), jsonHeaders)
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", resp.Code)
	}
	body := decodeError(t, resp)
	if body.Fields["email"] != "must be a valid email" {
		t.Fatalf("unexpected email message: %+v", body.Fields)
	}
	if body.Fields["password"] != "must be at least 6" {
		t.Fatalf("unexpected password message: %+v", body.Fields)
	}
}

func TestAuthHandlerLogin(t *testing.T) {
	body, _ := json.Marshal(dto.LoginRequest{Email: "ann@example.com", Password: "secret1"})
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "ok", status: http.StatusOK},
		{name: "invalid", err: domainErrors.ErrInvalidCredentials, status: http.StatusUnauthorized},
		{name: "internal", err: errors.New("boom"), status: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewAuthHandler(testhelpers.AuthFacadeStub{AuthenticateFn: func(context.Context, string, string) (string, error) {
				if tt.err != nil {
					return "", tt.err
				}
				return "token", nil
			}})
			resp := performRequest(t, http.MethodPost, "/login", "/login", handler.Login, nil, body, jsonHeaders)
			if resp.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, resp.Code)
			}
		})
	}

	resp := performRequest(t, http.MethodPost, "/login", "/login", NewAuthHandler(testhelpers.AuthFacadeStub{}).Login, nil, []byte(`{}`), jsonHeaders)
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422 for empty login, got %d", resp.Code)
	}
}

func TestCartHandlerGet(t *testing.T) {
	handler := NewCartHandler(testhelpers.CartFacadeStub{})
	resp := performRequest(t, http.MethodGet, "/cart", "/cart", handler.Get, asUser(3), nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var cart dto.CartResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &cart); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(cart.Items) != 1 || cart.Subtotal != "50.00" || cart.Items[0].LineTotal != "50.00" {
		t.Fatalf("unexpected cart: %+v", cart)
	}

	empty := NewCartHandler(testhelpers.CartFacadeStub{CartFn: func(context.Context, int64) (*model.Cart, error) {
		return nil, nil
	}})
	resp = performRequest(t, http.MethodGet, "/cart", "/cart", empty.Get, asUser(3), nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 for empty cart, got %d", resp.Code)
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &cart); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(cart.Items) != 0 || cart.Subtotal != "0.00" || cart.Status != string(model.CartStatusActive) {
		t.Fatalf("unexpected empty cart: %+v", cart)
	}
}

func TestCartHandlerAddItem(t *testing.T) {
	var gotVariant int64
	var gotQty int
	handler := NewCartHandler(testhelpers.CartFacadeStub{AddFn: func(_ context.Context, userID, variantID int64, qty int) (*model.Cart, error) {
		gotVariant, gotQty = variantID, qty
		return testhelpers.SampleCart(userID), nil
	}})
	resp := performRequest(t, http.MethodPost, "/cart/items", "/cart/items", handler.AddItem, asUser(1), []byte(`{"variant_id":10,"quantity":2}`), jsonHeaders)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	if gotVariant != 10 || gotQty != 2 {
		t.Fatalf("unexpected facade args: %d %d", gotVariant, gotQty)
	}

	resp = performRequest(t, http.MethodPost, "/cart/items", "/cart/items", handler.AddItem, asUser(1), []byte(`{"variant_id":0,"quantity":0}`), jsonHeaders)
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", resp.Code)
	}
	fields := decodeError(t, resp).Fields
	if fields["variant_id"] != "is required" || fields["quantity"] != "is required" {
		t.Fatalf("unexpected fields: %+v", fields)
	}
}

func TestCartHandlerAddItemErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "unknown variant", err: domainErrors.ErrNotFound, status: http.StatusNotFound},
		{name: "out of stock", err: domainErrors.NewValidationError(map[string]string{"quantity": "exceeds available stock"}), status: http.StatusUnprocessableEntity},
		{name: "internal", err: errors.New("boom"), status: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewCartHandler(testhelpers.CartFacadeStub{AddFn: func(context.Context, int64, int64, int) (*model.Cart, error) {
				return nil, tt.err
			}})
			resp := performRequest(t, http.MethodPost, "/cart/items", "/cart/items", handler.AddItem, asUser(1), []byte(`{"variant_id":10,"quantity":1}`), jsonHeaders)
			if resp.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, resp.Code)
			}
		})
	}
}

func TestCartHandlerUpdateItem(t *testing.T) {
	var gotItem int64
	handler := NewCartHandler(testhelpers.CartFacadeStub{UpdateFn: func(_ context.Context, userID, itemID int64, qty int) (*model.Cart, error) {
		gotItem = itemID
		if qty > 3 {
			return nil, domainErrors.ErrInvalidQuantity
		}
		return testhelpers.SampleCart(userID), nil
	}})

	resp := performRequest(t, http.MethodPatch, "/cart/items/:id", "/cart/items/5", handler.UpdateItem, asUser(1), []byte(`{"quantity":3}`), jsonHeaders)
	if resp.Code != http.StatusOK || gotItem != 5 {
		t.Fatalf("expected status 200 for item 5, got %d (item %d)", resp.Code, gotItem)
	}

	resp = performRequest(t, http.MethodPatch, "/cart/items/:id", "/cart/items/5", handler.UpdateItem, asUser(1), []byte(`{"quantity":9}`), jsonHeaders)
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", resp.Code)
	}

	resp = performRequest(t, http.MethodPatch, "/cart/items/:id", "/cart/items/abc", handler.UpdateItem, asUser(1), []byte(`{"quantity":1}`), jsonHeaders)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 for bad id, got %d", resp.Code)
	}
}

func TestCartHandlerRemoveItem(t *testing.T) {
	handler := NewCartHandler(testhelpers.CartFacadeStub{})
	resp := performRequest(t, http.MethodDelete, "/cart/items/:id", "/cart/items/1", handler.RemoveItem, asUser(1), nil, nil)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected status 204 when cart deleted, got %d", resp.Code)
	}

	handler = NewCartHandler(testhelpers.CartFacadeStub{RemoveFn: func(_ context.Context, userID, _ int64) (*model.Cart, error) {
		return testhelpers.SampleCart(userID), nil
	}})
	resp = performRequest(t, http.MethodDelete, "/cart/items/:id", "/cart/items/2", handler.RemoveItem, asUser(1), nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 when items remain, got %d", resp.Code)
	}

	handler = NewCartHandler(testhelpers.CartFacadeStub{RemoveFn: func(context.Context, int64, int64) (*model.Cart, error) {
		return nil, domainErrors.ErrNotFound
	}})
	resp = performRequest(t, http.MethodDelete, "/cart/items/:id", "/cart/items/99", handler.RemoveItem, asUser(1), nil, nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.Code)
	}
}

func TestShippingHandlerQuote(t *testing.T) {
	handler := NewShippingHandler(testhelpers.ShippingFacadeStub{})
	resp := performRequest(t, http.MethodPost, "/quotes", "/quotes", handler.Quote, asUser(1), []byte(`{"postal_code":"01000"}`), jsonHeaders)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", resp.Code)
	}
	var quote dto.QuoteResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &quote); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if quote.ID != "quote-1" || quote.Cost != "10.00" || quote.PostalCode != "01000" {
		t.Fatalf("unexpected quote: %+v", quote)
	}

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "unavailable", err: domainErrors.ErrShippingUnavailable, status: http.StatusBadGateway},
		{name: "empty cart", err: domainErrors.ErrEmptyCart, status: http.StatusConflict},
		{name: "not serviceable", err: domainErrors.NewValidationError(map[string]string{"postal_code": "is not serviceable"}), status: http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			failing := NewShippingHandler(testhelpers.ShippingFacadeStub{QuoteFn: func(context.Context, int64, string) (*model.ShippingQuote, error) {
				return nil, tt.err
			}})
			resp := performRequest(t, http.MethodPost, "/quotes", "/quotes", failing.Quote, asUser(1), []byte(`{"postal_code":"01000"}`), jsonHeaders)
			if resp.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, resp.Code)
			}
		})
	}

	resp = performRequest(t, http.MethodPost, "/quotes", "/quotes", handler.Quote, asUser(1), []byte(`{}`), jsonHeaders)
	if resp.Code != http.StatusUnprocessableEntity || decodeError(t, resp).Fields["postal_code"] != "is required" {
		t.Fatalf("expected 422 with postal_code field, got %d %s", resp.Code, resp.Body.String())
	}
}

func TestOrderHandlerCreate(t *testing.T) {
	var got model.CheckoutRequest
	handler := NewOrderHandler(testhelpers.OrderFacadeStub{CreateFn: func(_ context.Context, userID int64, req model.CheckoutRequest) (*model.Order, error) {
		got = req
		return testhelpers.SampleOrder(userID), nil
	}})
	body := []byte(`{"shipping_quote_id":"quote-1","payment_method":"visa","shipping_address":{"name":"Ann","postal_code":"01000"}}`)
	resp := performRequest(t, http.MethodPost, "/orders", "/orders", handler.Create, asUser(1), body, jsonHeaders)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", resp.Code)
	}
	if got.ShippingQuoteID != "quote-1" || got.ShippingAddress.PostalCode != "01000" || got.BillingAddress != nil {
		t.Fatalf("unexpected checkout request: %+v", got)
	}
	var order dto.OrderResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &order); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if order.Total != "60.00" || order.Status != "pending" || len(order.Items) != 1 {
		t.Fatalf("unexpected order: %+v", order)
	}

	body = []byte(`{"shipping_quote_id":"quote-1","payment_method":"visa","shipping_address":{"name":"Ann"},"billing_address":{"name":"Bob"}}`)
	performRequest(t, http.MethodPost, "/orders", "/orders", handler.Create, asUser(1), body, jsonHeaders)
	if got.BillingAddress == nil || got.BillingAddress.Name != "Bob" {
		t.Fatalf("expected billing address to be forwarded, got %+v", got.BillingAddress)
	}
}

func TestOrderHandlerCreateErrors(t *testing.T) {
	body := []byte(`{"shipping_quote_id":"quote-1","payment_method":"visa"}`)
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "empty cart", err: domainErrors.ErrEmptyCart, status: http.StatusConflict},
		{name: "stale quote", err: domainErrors.ErrStaleShippingQuote, status: http.StatusConflict},
		{name: "missing quote", err: domainErrors.ErrNotFound, status: http.StatusNotFound},
		{name: "stock", err: domainErrors.NewValidationError(map[string]string{"items": "insufficient stock"}), status: http.StatusUnprocessableEntity},
		{name: "internal", err: errors.New("boom"), status: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewOrderHandler(testhelpers.OrderFacadeStub{CreateFn: func(context.Context, int64, model.CheckoutRequest) (*model.Order, error) {
				return nil, tt.err
			}})
			resp := performRequest(t, http.MethodPost, "/orders", "/orders", handler.Create, asUser(1), body, jsonHeaders)
			if resp.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, resp.Code)
			}
		})
	}

	resp := performRequest(t, http.MethodPost, "/orders", "/orders", NewOrderHandler(testhelpers.OrderFacadeStub{}).Create, asUser(1), []byte(`{}`), jsonHeaders)
	fields := decodeError(t, resp).Fields
	if resp.Code != http.StatusUnprocessableEntity || fields["shipping_quote_id"] == "" || fields["payment_method"] == "" {
		t.Fatalf("expected 422 with field details, got %d %+v", resp.Code, fields)
	}
}

func TestOrderHandlerListAndGet(t *testing.T) {
	handler := NewOrderHandler(testhelpers.OrderFacadeStub{})
	resp := performRequest(t, http.MethodGet, "/orders", "/orders", handler.List, asUser(1), nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var orders []dto.OrderResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &orders); err != nil || len(orders) != 1 {
		t.Fatalf("unexpected orders %s: %v", resp.Body.String(), err)
	}

	empty := NewOrderHandler(testhelpers.OrderFacadeStub{OrdersFn: func(context.Context, int64) ([]model.Order, error) {
		return nil, nil
	}})
	resp = performRequest(t, http.MethodGet, "/orders", "/orders", empty.List, asUser(1), nil, nil)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", resp.Code)
	}

	resp = performRequest(t, http.MethodGet, "/orders/:id", "/orders/7", handler.Get, asUser(1), nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}

	missing := NewOrderHandler(testhelpers.OrderFacadeStub{OrderFn: func(context.Context, int64, int64) (*model.Order, error) {
		return nil, domainErrors.ErrOrderNotFound
	}})
	resp = performRequest(t, http.MethodGet, "/orders/:id", "/orders/8", missing.Get, asUser(1), nil, nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.Code)
	}

	resp = performRequest(t, http.MethodGet, "/orders/:id", "/orders/-1", handler.Get, asUser(1), nil, nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 for negative id, got %d", resp.Code)
	}
}

func TestOrderHandlerHistory(t *testing.T) {
	handler := NewOrderHandler(testhelpers.OrderFacadeStub{})
	resp := performRequest(t, http.MethodGet, "/orders/:id/history", "/orders/7/history", handler.History, asUser(1), nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var entries []dto.HistoryResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 1 || entries[0].NewStatus != "pending" || entries[0].OldStatus != nil {
		t.Fatalf("unexpected history: %+v", entries)
	}
}

func TestOrderHandlerCancel(t *testing.T) {
	handler := NewOrderHandler(testhelpers.OrderFacadeStub{})
	resp := performRequest(t, http.MethodPost, "/orders/:id/cancel", "/orders/7/cancel", handler.Cancel, asUser(1), nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var order dto.OrderResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &order); err != nil || order.Status != "cancelled" {
		t.Fatalf("unexpected order %s: %v", resp.Body.String(), err)
	}

	ineligible := NewOrderHandler(testhelpers.OrderFacadeStub{CancelFn: func(context.Context, int64, int64) (*model.Order, error) {
		return nil, domainErrors.ErrInvalidOrderState
	}})
	resp = performRequest(t, http.MethodPost, "/orders/:id/cancel", "/orders/7/cancel", ineligible.Cancel, asUser(1), nil, nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestPaymentHandlerPay(t *testing.T) {
	var got model.PaymentRequest
	var gotOrder int64
	handler := NewPaymentHandler(testhelpers.PaymentFacadeStub{PayFn: func(_ context.Context, _, orderID int64, req model.PaymentRequest) (*model.PaymentResult, error) {
		got, gotOrder = req, orderID
		return &model.PaymentResult{OrderID: orderID, PaymentID: "pay-1", Status: model.PaymentStatusRejected, StatusDetail: "cc_rejected_insufficient_amount"}, nil
	}})
	body := []byte(`{"token":"tok","payment_method_id":"visa","installments":3,"identification":{"type":"DNI","number":"123"}}`)
	resp := performRequest(t, http.MethodPost, "/orders/:id/payments", "/orders/7/payments", handler.Pay, asUser(1), body, jsonHeaders)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 for rejected payment, got %d", resp.Code)
	}
	if gotOrder != 7 || got.Token != "tok" || got.Installments != 3 || got.Identification == nil || got.Identification.Number != "123" {
		t.Fatalf("unexpected payment request: %d %+v", gotOrder, got)
	}
	var payment dto.PaymentResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &payment); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payment.Status != "rejected" || payment.StatusDetail != "cc_rejected_insufficient_amount" {
		t.Fatalf("unexpected payment response: %+v", payment)
	}
}

func TestPaymentHandlerErrors(t *testing.T) {
	body := []byte(`{"payment_method_id":"visa"}`)
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "not pending", err: domainErrors.ErrInvalidOrderState, status: http.StatusBadRequest},
		{name: "gateway down", err: &domainErrors.GatewayError{StatusCode: http.StatusServiceUnavailable, Err: errors.New("unavailable")}, status: http.StatusBadGateway},
		{name: "gateway not found", err: &domainErrors.GatewayError{StatusCode: http.StatusNotFound, Err: domainErrors.ErrNotFound}, status: http.StatusBadGateway},
		{name: "missing order", err: domainErrors.ErrOrderNotFound, status: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewPaymentHandler(testhelpers.PaymentFacadeStub{RetryFn: func(context.Context, int64, int64, model.PaymentRequest) (*model.PaymentResult, error) {
				return nil, tt.err
			}})
			resp := performRequest(t, http.MethodPost, "/orders/:id/retry-payment", "/orders/7/retry-payment", handler.Retry, asUser(1), body, jsonHeaders)
			if resp.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, resp.Code)
			}
		})
	}

	handler := NewPaymentHandler(testhelpers.PaymentFacadeStub{})
	resp := performRequest(t, http.MethodPost, "/orders/:id/payments", "/orders/7/payments", handler.Pay, asUser(1), []byte(`{"payment_method_id":"visa","installments":30}`), jsonHeaders)
	if resp.Code != http.StatusUnprocessableEntity || decodeError(t, resp).Fields["installments"] != "must be at most 24" {
		t.Fatalf("expected 422 for installments, got %d %s", resp.Code, resp.Body.String())
	}
	resp = performRequest(t, http.MethodPost, "/orders/:id/payments", "/orders/7/payments", handler.Pay, asUser(1), []byte(`{}`), jsonHeaders)
	if resp.Code != http.StatusUnprocessableEntity || decodeError(t, resp).Fields["payment_method_id"] != "is required" {
		t.Fatalf("expected 422 for payment method, got %d %s", resp.Code, resp.Body.String())
	}
}

type recordingWebhookFacade struct {
	events []model.WebhookEvent
	err    error
}

func (f *recordingWebhookFacade) HandleWebhook(_ context.Context, event model.WebhookEvent) (*model.AppliedTransition, error) {
	f.events = append(f.events, event)
	if f.err != nil {
		return nil, f.err
	}
	return &model.AppliedTransition{OrderID: 7, PaymentID: event.PaymentID, NewStatus: model.PaymentStatusApproved}, nil
}

func TestWebhookHandlerSignedNotification(t *testing.T) {
	verifier := pkgAuth.NewSignatureVerifier("whsec")
	facade := &recordingWebhookFacade{}
	handler := NewWebhookHandler(facade, verifier, discardLogger())

	headers := map[string]string{
		"Content-Type": "application/json",
		"x-request-id": "req-1",
		"x-signature":  verifier.Sign("req-1", "123", "1700000000"),
	}
	resp := performRequest(t, http.MethodPost, "/webhooks", "/webhooks", handler.Receive, nil, []byte(`{"type":"payment","action":"payment.updated","data":{"id":"123"}}`), headers)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	if len(facade.events) != 1 {
		t.Fatalf("expected one event, got %d", len(facade.events))
	}
	want := model.WebhookEvent{Type: "payment", Action: "payment.updated", PaymentID: "123", RequestID: "req-1"}
	if facade.events[0] != want {
		t.Fatalf("unexpected event: %+v", facade.events[0])
	}
}

func TestWebhookHandlerRejectsBadSignature(t *testing.T) {
	facade := &recordingWebhookFacade{}
	handler := NewWebhookHandler(facade, pkgAuth.NewSignatureVerifier("whsec"), discardLogger())
	headers := map[string]string{"x-request-id": "req-1", "x-signature": "ts=1,v1=00ff"}
	resp := performRequest(t, http.MethodPost, "/webhooks", "/webhooks", handler.Receive, nil, []byte(`{"type":"payment","data":{"id":"123"}}`), headers)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", resp.Code)
	}
	if len(facade.events) != 0 {
		t.Fatalf("facade must not be called for rejected signature")
	}
}

func TestWebhookHandlerNumericIDAndQueryFallback(t *testing.T) {
	facade := &recordingWebhookFacade{}
	handler := NewWebhookHandler(facade, nil, discardLogger())

	resp := performRequest(t, http.MethodPost, "/webhooks", "/webhooks", handler.Receive, nil, []byte(`{"type":"payment","data":{"id":987654321}}`), jsonHeaders)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	resp = performRequest(t, http.MethodPost, "/webhooks", "/webhooks?topic=payment&id=55", handler.Receive, nil, nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	resp = performRequest(t, http.MethodPost, "/webhooks", "/webhooks?type=payment&data.id=66", handler.Receive, nil, []byte("not json"), nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}

	if len(facade.events) != 3 {
		t.Fatalf("expected three events, got %d", len(facade.events))
	}
	if facade.events[0].PaymentID != "987654321" {
		t.Fatalf("expected numeric id as string, got %q", facade.events[0].PaymentID)
	}
	if facade.events[1].Type != "payment" || facade.events[1].PaymentID != "55" {
		t.Fatalf("unexpected topic fallback event: %+v", facade.events[1])
	}
	if facade.events[2].Type != "payment" || facade.events[2].PaymentID != "66" {
		t.Fatalf("unexpected data.id fallback event: %+v", facade.events[2])
	}
}

func TestWebhookHandlerFailurePolicy(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "malformed", err: domainErrors.ErrMalformedEvent, status: http.StatusOK},
		{name: "unknown order", err: domainErrors.ErrOrderNotFound, status: http.StatusOK},
		{name: "unknown payment", err: &domainErrors.GatewayError{StatusCode: http.StatusNotFound, Err: domainErrors.ErrNotFound}, status: http.StatusOK},
		{name: "gateway down", err: &domainErrors.GatewayError{StatusCode: http.StatusBadGateway, Err: errors.New("bad gateway")}, status: http.StatusInternalServerError},
		{name: "database", err: errors.New("connection reset"), status: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewWebhookHandler(&recordingWebhookFacade{err: tt.err}, nil, discardLogger())
			resp := performRequest(t, http.MethodPost, "/webhooks", "/webhooks", handler.Receive, nil, []byte(`{"type":"payment","data":{"id":"1"}}`), jsonHeaders)
			if resp.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, resp.Code)
			}
		})
	}
}

func TestHealthHandlerCheck(t *testing.T) {
	handler := NewHealthHandler(testhelpers.HealthFacadeStub{}, discardLogger())
	resp := performRequest(t, http.MethodGet, "/health", "/health", handler.Check, nil, nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}

	handler = NewHealthHandler(testhelpers.HealthFacadeStub{Err: errors.New("db down")}, discardLogger())
	resp = performRequest(t, http.MethodGet, "/health", "/health", handler.Check, nil, nil, nil)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", resp.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil || body["status"] != "unavailable" {
		t.Fatalf("unexpected body %s: %v", resp.Body.String(), err)
	}
}

func TestToSnake(t *testing.T) {
	cases := map[string]string{
		"VariantID":                  "variant_id",
		"PaymentMethodID":            "payment_method_id",
		"ShippingAddress.PostalCode": "shipping_address.postal_code",
		"Email":                      "email",
	}
	for in, want := range cases {
		if got := toSnake(in); got != want {
			t.Fatalf("toSnake(%q) = %q, want %q", in, got, want)
		}
	}
}
