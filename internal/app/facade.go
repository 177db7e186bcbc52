package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/fx"

	"github.com/polkiloo/vinylshop/internal/domain/model"
	"github.com/polkiloo/vinylshop/internal/domain/repository"
	"github.com/polkiloo/vinylshop/internal/usecase"
)

// HealthChecker reports whether a backing service is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// FacadeDeps lists use cases composed by ShopFacade.
type FacadeDeps struct {
	fx.In

	Auth     *usecase.AuthUseCase
	Carts    *usecase.CartUseCase
	Shipping *usecase.ShippingUseCase
	Checkout *usecase.CheckoutUseCase
	Orders   *usecase.OrderUseCase
	Payments *usecase.PaymentUseCase
	Quotes   repository.QuoteStore
	Database HealthChecker
}

// ShopFacade is the single entry point used by HTTP handlers and the reconciler.
type ShopFacade struct {
	auth     *usecase.AuthUseCase
	carts    *usecase.CartUseCase
	shipping *usecase.ShippingUseCase
	checkout *usecase.CheckoutUseCase
	orders   *usecase.OrderUseCase
	payments *usecase.PaymentUseCase
	quotes   repository.QuoteStore
	database HealthChecker
}

// NewShopFacade composes use cases into the shop facade.
func NewShopFacade(d FacadeDeps) *ShopFacade {
	return &ShopFacade{
		auth:     d.Auth,
		carts:    d.Carts,
		shipping: d.Shipping,
		checkout: d.Checkout,
		orders:   d.Orders,
		payments: d.Payments,
		quotes:   d.Quotes,
		database: d.Database,
	}
}

func (f *ShopFacade) Register(ctx context.Context, email, name, password string) (string, error) {
	_, token, err := f.auth.Register(ctx, email, name, password)
	return token, err
}

func (f *ShopFacade) Authenticate(ctx context.Context, email, password string) (string, error) {
	_, token, err := f.auth.Authenticate(ctx, email, password)
	return token, err
}

func (f *ShopFacade) ParseToken(token string) (int64, error) {
	return f.auth.ParseToken(token)
}

func (f *ShopFacade) Cart(ctx context.Context, userID int64) (*model.Cart, error) {
	return f.carts.Get(ctx, userID)
}

func (f *ShopFacade) AddCartItem(ctx context.Context, userID, variantID int64, quantity int) (*model.Cart, error) {
	return f.carts.AddItem(ctx, userID, variantID, quantity)
}

func (f *ShopFacade) UpdateCartItem(ctx context.Context, userID, itemID int64, quantity int) (*model.Cart, error) {
	return f.carts.UpdateItem(ctx, userID, itemID, quantity)
}

func (f *ShopFacade) RemoveCartItem(ctx context.Context, userID, itemID int64) (*model.Cart, error) {
	return f.carts.RemoveItem(ctx, userID, itemID)
}

func (f *ShopFacade) QuoteShipping(ctx context.Context, userID int64, postalCode string) (*model.ShippingQuote, error) {
	return f.shipping.Quote(ctx, userID, postalCode)
}

func (f *ShopFacade) CreateOrder(ctx context.Context, userID int64, req model.CheckoutRequest) (*model.Order, error) {
	return f.checkout.CreateOrder(ctx, userID, req)
}

func (f *ShopFacade) Orders(ctx context.Context, userID int64) ([]model.Order, error) {
	return f.orders.ListByUser(ctx, userID)
}

func (f *ShopFacade) Order(ctx context.Context, userID, orderID int64) (*model.Order, error) {
	return f.orders.Get(ctx, userID, orderID)
}

func (f *ShopFacade) OrderHistory(ctx context.Context, userID, orderID int64) ([]model.StatusHistory, error) {
	return f.orders.History(ctx, userID, orderID)
}

func (f *ShopFacade) CancelOrder(ctx context.Context, userID, orderID int64) (*model.Order, error) {
	return f.payments.CancelOrder(ctx, userID, orderID)
}

func (f *ShopFacade) PayOrder(ctx context.Context, userID, orderID int64, req model.PaymentRequest) (*model.PaymentResult, error) {
	return f.payments.ProcessPayment(ctx, userID, orderID, req)
}

func (f *ShopFacade) RetryPayment(ctx context.Context, userID, orderID int64, req model.PaymentRequest) (*model.PaymentResult, error) {
	return f.payments.RetryPayment(ctx, userID, orderID, req)
}

func (f *ShopFacade) HandleWebhook(ctx context.Context, event model.WebhookEvent) (*model.AppliedTransition, error) {
	return f.payments.HandleWebhook(ctx, event)
}

func (f *ShopFacade) OrdersForReconciliation(ctx context.Context, idle time.Duration, limit int) ([]model.Order, error) {
	return f.payments.OrdersForReconciliation(ctx, idle, limit)
}

func (f *ShopFacade) SyncPayment(ctx context.Context, order model.Order) (*model.AppliedTransition, error) {
	return f.payments.SyncPayment(ctx, order)
}

// Health checks the database and, when it supports it, the quote store.
func (f *ShopFacade) Health(ctx context.Context) error {
	if f.database != nil {
		if err := f.database.HealthCheck(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if hc, ok := f.quotes.(HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("quote store: %w", err)
		}
	}
	return nil
}
