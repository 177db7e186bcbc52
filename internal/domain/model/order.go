package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus describes fulfillment lifecycle.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

// Address is a postal address captured on the order.
type Address struct {
	Name       string `json:"name"`
	Street     string `json:"street"`
	Number     string `json:"number"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

// ProductSnapshot freezes catalog data shown on a receipt.
type ProductSnapshot struct {
	Name      string `json:"name"`
	Artist    string `json:"artist"`
	Condition string `json:"condition"`
}

// Order describes a checkout created from a cart snapshot.
type Order struct {
	ID              int64
	Number          string
	UserID          int64
	CartID          *int64
	Status          OrderStatus
	PaymentStatus   PaymentStatus
	Subtotal        decimal.Decimal
	ShippingCost    decimal.Decimal
	Discount        decimal.Decimal
	Total           decimal.Decimal
	ShippingAddress Address
	BillingAddress  Address
	ShippingQuoteID string
	PaymentMethod   string
	PaymentID       *string
	Items           []OrderItem
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrderItem is an immutable line of an order.
type OrderItem struct {
	ID               int64
	OrderID          int64
	VariantID        int64
	Quantity         int
	UnitPrice        decimal.Decimal
	PromotionalPrice *decimal.Decimal
	TotalPrice       decimal.Decimal
	Product          ProductSnapshot
}

// EffectivePrice returns the promotional price when present.
func EffectivePrice(unit decimal.Decimal, promo *decimal.Decimal) decimal.Decimal {
	if promo != nil {
		return *promo
	}
	return unit
}

// ComputeTotal applies the order total formula.
func ComputeTotal(subtotal, shipping, discount decimal.Decimal) decimal.Decimal {
	return subtotal.Add(shipping).Sub(discount)
}

// CurrentPaymentID returns the attached gateway payment id or empty string.
func (o *Order) CurrentPaymentID() string {
	if o.PaymentID == nil {
		return ""
	}
	return *o.PaymentID
}
