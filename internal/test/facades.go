package test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/vinylshop/internal/domain/model"
)

// CartFacadeStub provides controllable behaviour for cart endpoints.
type CartFacadeStub struct {
	CartFn   func(context.Context, int64) (*model.Cart, error)
	AddFn    func(context.Context, int64, int64, int) (*model.Cart, error)
	UpdateFn func(context.Context, int64, int64, int) (*model.Cart, error)
	RemoveFn func(context.Context, int64, int64) (*model.Cart, error)
}

// SampleCart returns a cart with one line priced at 50.
func SampleCart(userID int64) *model.Cart {
	return &model.Cart{
		ID:     1,
		UserID: userID,
		Status: model.CartStatusActive,
		Items: []model.CartItem{{
			ID: 1, CartID: 1, VariantID: 10, Quantity: 1,
			UnitPrice: decimal.NewFromInt(50),
			Product:   model.ProductSnapshot{Name: "Kind of Blue", Artist: "Miles Davis", Condition: "mint"},
		}},
	}
}

// Cart returns configured cart or a sample one.
func (s CartFacadeStub) Cart(ctx context.Context, userID int64) (*model.Cart, error) {
	if s.CartFn != nil {
		return s.CartFn(ctx, userID)
	}
	return SampleCart(userID), nil
}

// AddCartItem delegates to provided function or returns sample cart.
func (s CartFacadeStub) AddCartItem(ctx context.Context, userID, variantID int64, quantity int) (*model.Cart, error) {
	if s.AddFn != nil {
		return s.AddFn(ctx, userID, variantID, quantity)
	}
	return SampleCart(userID), nil
}

// UpdateCartItem delegates to provided function or returns sample cart.
func (s CartFacadeStub) UpdateCartItem(ctx context.Context, userID, itemID int64, quantity int) (*model.Cart, error) {
	if s.UpdateFn != nil {
		return s.UpdateFn(ctx, userID, itemID, quantity)
	}
	return SampleCart(userID), nil
}

// RemoveCartItem delegates to provided function or reports a deleted cart.
func (s CartFacadeStub) RemoveCartItem(ctx context.Context, userID, itemID int64) (*model.Cart, error) {
	if s.RemoveFn != nil {
		return s.RemoveFn(ctx, userID, itemID)
	}
	return nil, nil
}

// ShippingFacadeStub simulates shipping quotes.
type ShippingFacadeStub struct {
	QuoteFn func(context.Context, int64, string) (*model.ShippingQuote, error)
}

// QuoteShipping returns configured quote or a fixed one.
func (s ShippingFacadeStub) QuoteShipping(ctx context.Context, userID int64, postalCode string) (*model.ShippingQuote, error) {
	if s.QuoteFn != nil {
		return s.QuoteFn(ctx, userID, postalCode)
	}
	return &model.ShippingQuote{
		ID: "quote-1", UserID: userID, Carrier: "SlowPost", Service: "standard",
		Cost: decimal.NewFromInt(10), PostalCode: postalCode, ETADays: 5,
		ExpiresAt: time.Unix(0, 0).UTC(),
	}, nil
}

// OrderFacadeStub provides controllable behaviour for order endpoints.
type OrderFacadeStub struct {
	CreateFn  func(context.Context, int64, model.CheckoutRequest) (*model.Order, error)
	OrdersFn  func(context.Context, int64) ([]model.Order, error)
	OrderFn   func(context.Context, int64, int64) (*model.Order, error)
	HistoryFn func(context.Context, int64, int64) ([]model.StatusHistory, error)
	CancelFn  func(context.Context, int64, int64) (*model.Order, error)
}

// SampleOrder returns a pending order with one line.
func SampleOrder(userID int64) *model.Order {
	return &model.Order{
		ID:            7,
		Number:        "VS-7",
		UserID:        userID,
		Status:        model.OrderStatusPending,
		PaymentStatus: model.PaymentStatusPending,
		Subtotal:      decimal.NewFromInt(50),
		ShippingCost:  decimal.NewFromInt(10),
		Discount:      decimal.Zero,
		Total:         decimal.NewFromInt(60),
		Items: []model.OrderItem{{
			ID: 1, OrderID: 7, VariantID: 10, Quantity: 1,
			UnitPrice: decimal.NewFromInt(50), TotalPrice: decimal.NewFromInt(50),
			Product: model.ProductSnapshot{Name: "Kind of Blue"},
		}},
		CreatedAt: time.Unix(0, 0).UTC(),
		UpdatedAt: time.Unix(0, 0).UTC(),
	}
}

// CreateOrder delegates to provided function or returns sample order.
func (s OrderFacadeStub) CreateOrder(ctx context.Context, userID int64, req model.CheckoutRequest) (*model.Order, error) {
	if s.CreateFn != nil {
		return s.CreateFn(ctx, userID, req)
	}
	return SampleOrder(userID), nil
}

// Orders returns predefined orders for given user.
func (s OrderFacadeStub) Orders(ctx context.Context, userID int64) ([]model.Order, error) {
	if s.OrdersFn != nil {
		return s.OrdersFn(ctx, userID)
	}
	return []model.Order{*SampleOrder(userID)}, nil
}

// Order returns predefined order.
func (s OrderFacadeStub) Order(ctx context.Context, userID, orderID int64) (*model.Order, error) {
	if s.OrderFn != nil {
		return s.OrderFn(ctx, userID, orderID)
	}
	return SampleOrder(userID), nil
}

// OrderHistory returns predefined history.
func (s OrderFacadeStub) OrderHistory(ctx context.Context, userID, orderID int64) ([]model.StatusHistory, error) {
	if s.HistoryFn != nil {
		return s.HistoryFn(ctx, userID, orderID)
	}
	return []model.StatusHistory{{ID: 1, OrderID: orderID, NewStatus: model.PaymentStatusPending, ChangeType: model.ChangeTypeAutomatic}}, nil
}

// CancelOrder delegates to provided function or returns cancelled sample order.
func (s OrderFacadeStub) CancelOrder(ctx context.Context, userID, orderID int64) (*model.Order, error) {
	if s.CancelFn != nil {
		return s.CancelFn(ctx, userID, orderID)
	}
	order := SampleOrder(userID)
	order.Status = model.OrderStatusCancelled
	order.PaymentStatus = model.PaymentStatusCancelled
	return order, nil
}

// PaymentFacadeStub simulates payment operations.
type PaymentFacadeStub struct {
	PayFn   func(context.Context, int64, int64, model.PaymentRequest) (*model.PaymentResult, error)
	RetryFn func(context.Context, int64, int64, model.PaymentRequest) (*model.PaymentResult, error)
}

// PayOrder delegates to provided function or returns an approved result.
func (s PaymentFacadeStub) PayOrder(ctx context.Context, userID, orderID int64, req model.PaymentRequest) (*model.PaymentResult, error) {
	if s.PayFn != nil {
		return s.PayFn(ctx, userID, orderID, req)
	}
	return &model.PaymentResult{OrderID: orderID, PaymentID: "pay-1", Status: model.PaymentStatusApproved}, nil
}

// RetryPayment delegates to provided function or returns an approved result.
func (s PaymentFacadeStub) RetryPayment(ctx context.Context, userID, orderID int64, req model.PaymentRequest) (*model.PaymentResult, error) {
	if s.RetryFn != nil {
		return s.RetryFn(ctx, userID, orderID, req)
	}
	return &model.PaymentResult{OrderID: orderID, PaymentID: "pay-2", Status: model.PaymentStatusApproved}, nil
}

// WebhookFacadeStub records received webhook events.
type WebhookFacadeStub struct {
	HandleFn func(context.Context, model.WebhookEvent) (*model.AppliedTransition, error)
}

// HandleWebhook delegates to provided function or reports a no-op.
func (s WebhookFacadeStub) HandleWebhook(ctx context.Context, event model.WebhookEvent) (*model.AppliedTransition, error) {
	if s.HandleFn != nil {
		return s.HandleFn(ctx, event)
	}
	return &model.AppliedTransition{PaymentID: event.PaymentID, NoOp: true}, nil
}

// HealthFacadeStub reports configured health.
type HealthFacadeStub struct {
	Err error
}

// Health returns configured error.
func (s HealthFacadeStub) Health(context.Context) error {
	return s.Err
}

// ShopFacadeStub aggregates facade dependencies for HTTP layer tests.
type ShopFacadeStub struct {
	AuthFacadeStub
	CartFacadeStub
	ShippingFacadeStub
	OrderFacadeStub
	PaymentFacadeStub
	WebhookFacadeStub
	HealthFacadeStub
}

// SyncCall stores information about SyncPayment invocations.
type SyncCall struct {
	OrderID   int64
	PaymentID string
}

// ReconcilerFacadeStub mimics worker interactions with the shop facade.
type ReconcilerFacadeStub struct {
	Orders          [][]model.Order
	OrdersFn        func(context.Context, time.Duration, int) ([]model.Order, error)
	SyncFn          func(context.Context, model.Order) (*model.AppliedTransition, error)
	Syncs           []SyncCall
	Idle            time.Duration
	mu              sync.Mutex
	ordersCallCount int32
}

// Lock exposes internal mutex for external synchronization.
func (s *ReconcilerFacadeStub) Lock() { s.mu.Lock() }

// Unlock releases previously acquired lock.
func (s *ReconcilerFacadeStub) Unlock() { s.mu.Unlock() }

// OrdersForReconciliation returns batches from configured queue.
func (s *ReconcilerFacadeStub) OrdersForReconciliation(ctx context.Context, idle time.Duration, limit int) ([]model.Order, error) {
	s.mu.Lock()
	s.Idle = idle
	s.mu.Unlock()
	if s.OrdersFn != nil {
		return s.OrdersFn(ctx, idle, limit)
	}
	call := atomic.AddInt32(&s.ordersCallCount, 1)
	if int(call) <= len(s.Orders) {
		return s.Orders[call-1], nil
	}
	return nil, nil
}

// SyncPayment records the call and delegates to SyncFn when set.
func (s *ReconcilerFacadeStub) SyncPayment(ctx context.Context, order model.Order) (*model.AppliedTransition, error) {
	s.mu.Lock()
	s.Syncs = append(s.Syncs, SyncCall{OrderID: order.ID, PaymentID: order.CurrentPaymentID()})
	s.mu.Unlock()
	if s.SyncFn != nil {
		return s.SyncFn(ctx, order)
	}
	return &model.AppliedTransition{OrderID: order.ID, PaymentID: order.CurrentPaymentID(), NewStatus: model.PaymentStatusApproved}, nil
}

// SyncCount returns the number of recorded SyncPayment calls.
func (s *ReconcilerFacadeStub) SyncCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Syncs)
}
