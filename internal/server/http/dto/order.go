package dto

import "time"

// Address is a postal address.
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

// CreateOrderRequest turns the active cart into an order.
type CreateOrderRequest struct {
	ShippingQuoteID string   `json:"shipping_quote_id" binding:"required"`
	ShippingAddress Address  `json:"shipping_address"`
	BillingAddress  *Address `json:"billing_address"`
	PaymentMethod   string   `json:"payment_method" binding:"required"`
}

// OrderItemResponse is an immutable order line.
type OrderItemResponse struct {
	VariantID        int64   `json:"variant_id"`
	Name             string  `json:"name"`
	Artist           string  `json:"artist,omitempty"`
	Condition        string  `json:"condition,omitempty"`
	Quantity         int     `json:"quantity"`
	UnitPrice        string  `json:"unit_price"`
	PromotionalPrice *string `json:"promotional_price,omitempty"`
	TotalPrice       string  `json:"total_price"`
}

// OrderResponse describes an order.
type OrderResponse struct {
	ID              int64               `json:"id"`
	Number          string              `json:"number"`
	Status          string              `json:"status"`
	PaymentStatus   string              `json:"payment_status"`
	PaymentID       string              `json:"payment_id,omitempty"`
	Subtotal        string              `json:"subtotal"`
	ShippingCost    string              `json:"shipping_cost"`
	Discount        string              `json:"discount"`
	Total           string              `json:"total"`
	PaymentMethod   string              `json:"payment_method"`
	ShippingAddress Address             `json:"shipping_address"`
	BillingAddress  Address             `json:"billing_address"`
	Items           []OrderItemResponse `json:"items"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// HistoryResponse is one status change of an order.
type HistoryResponse struct {
	OldStatus     *string   `json:"old_status"`
	NewStatus     string    `json:"new_status"`
	ChangeType    string    `json:"change_type"`
	PaymentID     string    `json:"payment_id,omitempty"`
	Comment       string    `json:"comment,omitempty"`
	WebhookSource string    `json:"webhook_source,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
