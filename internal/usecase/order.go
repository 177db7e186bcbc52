package usecase

import (
	"context"
	"errors"

	domainErrors "github.com/polkiloo/vinylshop/internal/domain/errors"
	"github.com/polkiloo/vinylshop/internal/domain/model"
	"github.com/polkiloo/vinylshop/internal/domain/repository"
)

// OrderUseCase exposes read access to a customer's orders.
type OrderUseCase struct {
	orders  repository.OrderRepository
	history repository.HistoryRepository
}

// NewOrderUseCase constructs OrderUseCase.
func NewOrderUseCase(repos repository.Factory) *OrderUseCase {
	return &OrderUseCase{orders: repos.Orders(), history: repos.History()}
}

// ListByUser returns orders newest first.
func (u *OrderUseCase) ListByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	return u.orders.ListByUser(ctx, userID)
}

// Get returns the order when it belongs to userID.
func (u *OrderUseCase) Get(ctx context.Context, userID, orderID int64) (*model.Order, error) {
	order, err := u.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return nil, domainErrors.ErrOrderNotFound
		}
		return nil, err
	}
	if order.UserID != userID {
		return nil, domainErrors.ErrOrderNotFound
	}
	return order, nil
}

// History returns the status history of an owned order in chronological order.
func (u *OrderUseCase) History(ctx context.Context, userID, orderID int64) ([]model.StatusHistory, error) {
	if _, err := u.Get(ctx, userID, orderID); err != nil {
		return nil, err
	}
	return u.history.ListByOrder(ctx, orderID)
}
