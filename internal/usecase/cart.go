package usecase

import (
	"context"
	"errors"

	domainErrors "github.com/polkiloo/vinylshop/internal/domain/errors"
	"github.com/polkiloo/vinylshop/internal/domain/model"
	"github.com/polkiloo/vinylshop/internal/domain/repository"
)

// CartUseCase manages the user's single active cart.
type CartUseCase struct {
	repos repository.Factory
	tx    repository.Transactor
}

// NewCartUseCase constructs CartUseCase.
func NewCartUseCase(repos repository.Factory, tx repository.Transactor) *CartUseCase {
	return &CartUseCase{repos: repos, tx: tx}
}

// Get returns the active cart or an empty one.
func (u *CartUseCase) Get(ctx context.Context, userID int64) (*model.Cart, error) {
	cart, err := u.repos.Carts().GetActive(ctx, userID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return emptyCart(userID), nil
		}
		return nil, err
	}
	return cart, nil
}

// AddItem puts quantity units of variant into the active cart, creating it when needed.
func (u *CartUseCase) AddItem(ctx context.Context, userID, variantID int64, quantity int) (*model.Cart, error) {
	if quantity < 1 {
		return nil, domainErrors.ErrInvalidQuantity
	}

	var cart *model.Cart
	err := u.tx.WithinTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
		variant, err := tx.Catalog().GetVariant(ctx, variantID)
		if err != nil {
			return err
		}
		if variant.StockQuantity < quantity {
			return domainErrors.NewValidationError(map[string]string{"quantity": "exceeds available stock"})
		}

		active, err := tx.Carts().CreateActive(ctx, userID)
		if err != nil {
			return err
		}
		if err := tx.Carts().AddItem(ctx, active.ID, variantID, quantity); err != nil {
			return err
		}
		cart, err = tx.Carts().GetByID(ctx, active.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

// UpdateItem sets the quantity of a line in the active cart.
func (u *CartUseCase) UpdateItem(ctx context.Context, userID, itemID int64, quantity int) (*model.Cart, error) {
	if quantity < 1 {
		return nil, domainErrors.ErrInvalidQuantity
	}

	var cart *model.Cart
	err := u.tx.WithinTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
		active, err := tx.Carts().GetActive(ctx, userID)
		if err != nil {
			return err
		}
		if err := tx.Carts().SetItemQuantity(ctx, active.ID, itemID, quantity); err != nil {
			return err
		}
		cart, err = tx.Carts().GetByID(ctx, active.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

// RemoveItem drops a line; the cart is deleted once it becomes empty.
func (u *CartUseCase) RemoveItem(ctx context.Context, userID, itemID int64) (*model.Cart, error) {
	var cart *model.Cart
	err := u.tx.WithinTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
		active, err := tx.Carts().GetActive(ctx, userID)
		if err != nil {
			return err
		}
		remaining, err := tx.Carts().RemoveItem(ctx, active.ID, itemID)
		if err != nil {
			return err
		}
		if remaining == 0 {
			cart = emptyCart(userID)
			return tx.Carts().Delete(ctx, active.ID)
		}
		cart, err = tx.Carts().GetByID(ctx, active.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

func emptyCart(userID int64) *model.Cart {
	return &model.Cart{UserID: userID, Status: model.CartStatusActive, Items: []model.CartItem{}}
}
