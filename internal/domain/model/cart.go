package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartStatus describes cart lifecycle.
type CartStatus string

const (
	CartStatusActive    CartStatus = "active"
	CartStatusConverted CartStatus = "converted"
	CartStatusArchived  CartStatus = "archived"
)

// Cart is a mutable bag of line items owned by one user.
type Cart struct {
	ID        int64
	UserID    int64
	Status    CartStatus
	Items     []CartItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CartItem references a variant with prices resolved from the catalog.
type CartItem struct {
	ID               int64
	CartID           int64
	VariantID        int64
	Quantity         int
	UnitPrice        decimal.Decimal
	PromotionalPrice *decimal.Decimal
	Product          ProductSnapshot
}

// LineTotal returns quantity times effective price.
func (i CartItem) LineTotal() decimal.Decimal {
	return EffectivePrice(i.UnitPrice, i.PromotionalPrice).Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Subtotal sums line totals.
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// Variant is a sellable catalog unit with its own stock counter.
type Variant struct {
	ID               int64
	ProductID        int64
	SKU              string
	Price            decimal.Decimal
	PromotionalPrice *decimal.Decimal
	StockQuantity    int
	Product          ProductSnapshot
}

// ShippingQuote is a rate offered by the shipping collaborator.
type ShippingQuote struct {
	ID         string          `json:"id"`
	UserID     int64           `json:"user_id"`
	Carrier    string          `json:"carrier"`
	Service    string          `json:"service"`
	Cost       decimal.Decimal `json:"cost"`
	PostalCode string          `json:"postal_code"`
	ETADays    int             `json:"eta_days"`
	ExpiresAt  time.Time       `json:"expires_at"`
}

// Expired reports whether the quote can no longer be used.
func (q *ShippingQuote) Expired(now time.Time) bool {
	return !now.Before(q.ExpiresAt)
}

// QuoteRequest asks the shipping collaborator for a rate.
type QuoteRequest struct {
	UserID     int64
	PostalCode string
	Items      []CartItem
}

// CheckoutRequest carries data for materializing an order.
type CheckoutRequest struct {
	ShippingQuoteID string
	ShippingAddress Address
	BillingAddress  *Address
	PaymentMethod   string
}
