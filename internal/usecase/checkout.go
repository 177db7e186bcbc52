package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/vinylshop/internal/domain/errors"
	"github.com/polkiloo/vinylshop/internal/domain/model"
	"github.com/polkiloo/vinylshop/internal/domain/repository"
)

// CheckoutUseCase materializes orders from active carts.
type CheckoutUseCase struct {
	tx     repository.Transactor
	quotes repository.QuoteStore
	log    *slog.Logger
	now    func() time.Time
}

// NewCheckoutUseCase constructs CheckoutUseCase.
func NewCheckoutUseCase(tx repository.Transactor, quotes repository.QuoteStore, log *slog.Logger) *CheckoutUseCase {
	if log == nil {
		log = slog.Default()
	}
	return &CheckoutUseCase{tx: tx, quotes: quotes, log: log, now: time.Now}
}

// CreateOrder freezes the user's active cart into a pending order.
// The cart stays active until the payment is approved.
func (u *CheckoutUseCase) CreateOrder(ctx context.Context, userID int64, req model.CheckoutRequest) (*model.Order, error) {
	if err := ValidateCheckout(&req); err != nil {
		return nil, err
	}

	quote, err := u.quotes.Get(ctx, req.ShippingQuoteID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return nil, domainErrors.ErrStaleShippingQuote
		}
		return nil, fmt.Errorf("load shipping quote: %w", err)
	}
	if quote.UserID != userID || quote.Expired(u.now()) {
		return nil, domainErrors.ErrStaleShippingQuote
	}
	if quote.PostalCode != "" && quote.PostalCode != req.ShippingAddress.PostalCode {
		return nil, domainErrors.NewValidationError(map[string]string{
			"shipping_address.postal_code": "does not match shipping quote",
		})
	}

	billing := req.ShippingAddress
	if req.BillingAddress != nil {
		billing = *req.BillingAddress
	}

	var order *model.Order
	err = u.tx.WithinTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
		cart, err := tx.Carts().GetActive(ctx, userID)
		if err != nil {
			if errors.Is(err, domainErrors.ErrNotFound) {
				return domainErrors.ErrEmptyCart
			}
			return err
		}
		if len(cart.Items) == 0 {
			return domainErrors.ErrEmptyCart
		}

		order = buildOrder(cart, quote, req, billing)
		if err := tx.Orders().Create(ctx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		return tx.History().Append(ctx, &model.StatusHistory{
			OrderID:    order.ID,
			NewStatus:  model.PaymentStatusPending,
			ChangeType: model.ChangeTypeAutomatic,
			Comment:    "order created",
		})
	})
	if err != nil {
		return nil, err
	}

	u.log.Info("order created",
		slog.Int64("order_id", order.ID),
		slog.String("number", order.Number),
		slog.Int64("user_id", userID),
		slog.String("total", order.Total.String()))
	return order, nil
}

func buildOrder(cart *model.Cart, quote *model.ShippingQuote, req model.CheckoutRequest, billing model.Address) *model.Order {
	cartID := cart.ID
	items := make([]model.OrderItem, 0, len(cart.Items))
	for _, line := range cart.Items {
		items = append(items, model.OrderItem{
			VariantID:        line.VariantID,
			Quantity:         line.Quantity,
			UnitPrice:        line.UnitPrice,
			PromotionalPrice: line.PromotionalPrice,
			TotalPrice:       line.LineTotal(),
			Product:          line.Product,
		})
	}

	subtotal := cart.Subtotal()
	discount := decimal.Zero
	return &model.Order{
		Number:          orderNumber(),
		UserID:          cart.UserID,
		CartID:          &cartID,
		Status:          model.OrderStatusPending,
		PaymentStatus:   model.PaymentStatusPending,
		Subtotal:        subtotal,
		ShippingCost:    quote.Cost,
		Discount:        discount,
		Total:           model.ComputeTotal(subtotal, quote.Cost, discount),
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  billing,
		ShippingQuoteID: quote.ID,
		PaymentMethod:   req.PaymentMethod,
		Items:           items,
	}
}

func orderNumber() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return id.String()
}
