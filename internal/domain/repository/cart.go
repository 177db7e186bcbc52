package repository

import (
	"context"
	"time"

	"github.com/polkiloo/vinylshop/internal/domain/model"
)

// CartRepository manages carts and their line items.
type CartRepository interface {
	// GetActive returns the user's active cart with items or ErrNotFound.
	GetActive(ctx context.Context, userID int64) (*model.Cart, error)
	GetByID(ctx context.Context, cartID int64) (*model.Cart, error)
	// CreateActive returns the active cart, creating it when the user has none.
	CreateActive(ctx context.Context, userID int64) (*model.Cart, error)
	AddItem(ctx context.Context, cartID, variantID int64, quantity int) error
	SetItemQuantity(ctx context.Context, cartID, itemID int64, quantity int) error
	// RemoveItem deletes the line and returns how many lines remain.
	RemoveItem(ctx context.Context, cartID, itemID int64) (int, error)
	Delete(ctx context.Context, cartID int64) error
	MarkConverted(ctx context.Context, cartID int64) error
	// ArchiveConverted archives every converted cart of the user except keep.
	ArchiveConverted(ctx context.Context, userID, keep int64) error
}

// CatalogRepository gives read access to sellable variants.
type CatalogRepository interface {
	GetVariant(ctx context.Context, id int64) (*model.Variant, error)
}

// InventoryRepository performs row-atomic stock updates.
type InventoryRepository interface {
	// Decrement lowers stock by qty with a floor of zero and returns stock before and after.
	Decrement(ctx context.Context, variantID int64, qty int) (before, after int, err error)
	Increment(ctx context.Context, variantID int64, qty int) (after int, err error)
}

// QuoteStore keeps shipping quotes until they expire.
type QuoteStore interface {
	Save(ctx context.Context, quote *model.ShippingQuote, ttl time.Duration) error
	Get(ctx context.Context, id string) (*model.ShippingQuote, error)
}
