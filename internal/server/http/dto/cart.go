package dto

import "time"

// AddCartItemRequest adds quantity units of a variant.
type AddCartItemRequest struct {
	VariantID int64 `json:"variant_id" binding:"required,gt=0"`
	Quantity  int   `json:"quantity" binding:"required,gte=1"`
}

// UpdateCartItemRequest sets the quantity of a cart line.
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required,gte=1"`
}

// CartItemResponse is one cart line with current prices.
type CartItemResponse struct {
	ID               int64   `json:"id"`
	VariantID        int64   `json:"variant_id"`
	Name             string  `json:"name"`
	Artist           string  `json:"artist,omitempty"`
	Condition        string  `json:"condition,omitempty"`
	Quantity         int     `json:"quantity"`
	UnitPrice        string  `json:"unit_price"`
	PromotionalPrice *string `json:"promotional_price,omitempty"`
	LineTotal        string  `json:"line_total"`
}

// CartResponse is the active cart of the user.
type CartResponse struct {
	ID        int64              `json:"id,omitempty"`
	Status    string             `json:"status"`
	Items     []CartItemResponse `json:"items"`
	Subtotal  string             `json:"subtotal"`
	UpdatedAt *time.Time         `json:"updated_at,omitempty"`
}

// QuoteRequest asks for shipping rates to a postal code.
type QuoteRequest struct {
	PostalCode string `json:"postal_code" binding:"required"`
}

// QuoteResponse describes a stored shipping quote.
type QuoteResponse struct {
	ID         string    `json:"id"`
	Carrier    string    `json:"carrier"`
	Service    string    `json:"service"`
	Cost       string    `json:"cost"`
	PostalCode string    `json:"postal_code"`
	ETADays    int       `json:"eta_days"`
	ExpiresAt  time.Time `json:"expires_at"`
}
