package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	domainErrors "github.com/polkiloo/vinylshop/internal/domain/errors"
	"github.com/polkiloo/vinylshop/internal/domain/model"
	"github.com/polkiloo/vinylshop/internal/domain/repository"
)

// ShippingQuoter is the shipping rate provider port.
type ShippingQuoter interface {
	Quote(ctx context.Context, req model.QuoteRequest) (*model.ShippingQuote, error)
}

// ShippingUseCase quotes shipping for the active cart and keeps the quote until it expires.
type ShippingUseCase struct {
	carts  repository.CartRepository
	quoter ShippingQuoter
	store  repository.QuoteStore
	ttl    time.Duration
	now    func() time.Time
}

// NewShippingUseCase constructs ShippingUseCase; ttl caps quotes without their own expiry.
func NewShippingUseCase(repos repository.Factory, quoter ShippingQuoter, store repository.QuoteStore, ttl time.Duration) *ShippingUseCase {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &ShippingUseCase{carts: repos.Carts(), quoter: quoter, store: store, ttl: ttl, now: time.Now}
}

// Quote asks the shipping provider for a rate to postalCode.
func (u *ShippingUseCase) Quote(ctx context.Context, userID int64, postalCode string) (*model.ShippingQuote, error) {
	postalCode = strings.TrimSpace(postalCode)
	if postalCode == "" {
		return nil, domainErrors.NewValidationError(map[string]string{"postal_code": "is required"})
	}

	cart, err := u.carts.GetActive(ctx, userID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return nil, domainErrors.ErrEmptyCart
		}
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, domainErrors.ErrEmptyCart
	}

	quote, err := u.quoter.Quote(ctx, model.QuoteRequest{UserID: userID, PostalCode: postalCode, Items: cart.Items})
	if err != nil {
		return nil, fmt.Errorf("shipping quote: %w", err)
	}

	now := u.now()
	if quote.ID == "" {
		quote.ID = uuid.NewString()
	}
	quote.UserID = userID
	quote.PostalCode = postalCode
	if quote.ExpiresAt.IsZero() || quote.ExpiresAt.After(now.Add(u.ttl)) {
		quote.ExpiresAt = now.Add(u.ttl)
	}
	ttl := quote.ExpiresAt.Sub(now)
	if ttl <= 0 {
		return nil, domainErrors.ErrStaleShippingQuote
	}

	if err := u.store.Save(ctx, quote, ttl); err != nil {
		return nil, fmt.Errorf("store shipping quote: %w", err)
	}
	return quote, nil
}
