package repository

import (
	"context"
	"time"

	"github.com/polkiloo/vinylshop/internal/domain/model"
)

// OrderRepository describes persistence operations with orders.
type OrderRepository interface {
	// Create inserts the order with its items and assigns identifiers in place.
	Create(ctx context.Context, order *model.Order) error
	GetByID(ctx context.Context, id int64) (*model.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Order, error)
	UpdatePayment(ctx context.Context, orderID int64, status model.OrderStatus, paymentStatus model.PaymentStatus, paymentID *string) error
	// SelectForReconciliation returns orders with an attached, non-terminal payment
	// untouched for at least idle.
	SelectForReconciliation(ctx context.Context, idle time.Duration, limit int) ([]model.Order, error)
}

// PaymentRepository stores gateway payment transactions keyed by payment id.
type PaymentRepository interface {
	GetByPaymentID(ctx context.Context, paymentID string) (*model.PaymentTransaction, error)
	Upsert(ctx context.Context, tx *model.PaymentTransaction) error
	ListByOrder(ctx context.Context, orderID int64) ([]model.PaymentTransaction, error)
}

// HistoryRepository is the append-only order status history.
type HistoryRepository interface {
	Append(ctx context.Context, entry *model.StatusHistory) error
	ListByOrder(ctx context.Context, orderID int64) ([]model.StatusHistory, error)
}
