package repository

import (
	"context"

	"github.com/polkiloo/vinylshop/internal/domain/model"
)

// Factory describes access to different domain repositories.
type Factory interface {
	Users() UserRepository
	Catalog() CatalogRepository
	Carts() CartRepository
	Orders() OrderRepository
	Payments() PaymentRepository
	History() HistoryRepository
	Inventory() InventoryRepository
}

// Tx is a Factory bound to one database transaction.
type Tx interface {
	Factory
	// Savepoint runs fn in a nested transaction; its failure leaves the outer one usable.
	Savepoint(ctx context.Context, fn func(Tx) error) error
}

// Transactor opens transactional scopes.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// WithOrderLock holds an exclusive lock on the order row for the duration of fn.
	// Returns domain ErrOrderNotFound when the order does not exist.
	WithOrderLock(ctx context.Context, orderID int64, fn func(ctx context.Context, tx Tx, order *model.Order) error) error
}
