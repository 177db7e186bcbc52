package handlers

import (
	"context"

	"github.com/polkiloo/vinylshop/internal/domain/model"
)

// AuthFacade describes authentication capabilities required by handlers.
type AuthFacade interface {
	Register(ctx context.Context, email, name, password string) (string, error)
	Authenticate(ctx context.Context, email, password string) (string, error)
	ParseToken(token string) (int64, error)
}

// CartFacade manages the active cart of the user.
type CartFacade interface {
	Cart(ctx context.Context, userID int64) (*model.Cart, error)
	AddCartItem(ctx context.Context, userID, variantID int64, quantity int) (*model.Cart, error)
	UpdateCartItem(ctx context.Context, userID, itemID int64, quantity int) (*model.Cart, error)
	RemoveCartItem(ctx context.Context, userID, itemID int64) (*model.Cart, error)
}

// ShippingFacade quotes shipping for the active cart.
type ShippingFacade interface {
	QuoteShipping(ctx context.Context, userID int64, postalCode string) (*model.ShippingQuote, error)
}

// OrderFacade encapsulates order operations exposed via HTTP.
type OrderFacade interface {
	CreateOrder(ctx context.Context, userID int64, req model.CheckoutRequest) (*model.Order, error)
	Orders(ctx context.Context, userID int64) ([]model.Order, error)
	Order(ctx context.Context, userID, orderID int64) (*model.Order, error)
	OrderHistory(ctx context.Context, userID, orderID int64) ([]model.StatusHistory, error)
	CancelOrder(ctx context.Context, userID, orderID int64) (*model.Order, error)
}

// PaymentFacade charges orders through the gateway.
type PaymentFacade interface {
	PayOrder(ctx context.Context, userID, orderID int64, req model.PaymentRequest) (*model.PaymentResult, error)
	RetryPayment(ctx context.Context, userID, orderID int64, req model.PaymentRequest) (*model.PaymentResult, error)
}

// WebhookFacade applies gateway notifications.
type WebhookFacade interface {
	HandleWebhook(ctx context.Context, event model.WebhookEvent) (*model.AppliedTransition, error)
}

// HealthFacade reports readiness of backing services.
type HealthFacade interface {
	Health(ctx context.Context) error
}

// ShopFacade aggregates the full set of operations used across handlers.
type ShopFacade interface {
	AuthFacade
	CartFacade
	ShippingFacade
	OrderFacade
	PaymentFacade
	WebhookFacade
	HealthFacade
}

// SignatureVerifier checks webhook signatures.
type SignatureVerifier interface {
	Verify(header, requestID, dataID string) error
}
