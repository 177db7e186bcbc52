package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	domainErrors "github.com/polkiloo/vinylshop/internal/domain/errors"
	"github.com/polkiloo/vinylshop/internal/domain/model"
	testhelpers "github.com/polkiloo/vinylshop/internal/test"
)

func TestShippingQuoteStoresQuote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.carts.AddItem(ctx, f.userID, f.vinylA, 1); err != nil {
		t.Fatalf("add item: %v", err)
	}

	var seen model.QuoteRequest
	quoter := testhelpers.ShippingQuoterStub{QuoteFn: func(_ context.Context, req model.QuoteRequest) (*model.ShippingQuote, error) {
		seen = req
		return testhelpers.ShippingQuoterStub{Cost: "12.5"}.Quote(ctx, req)
	}}
	uc := NewShippingUseCase(f.store, quoter, f.quotes, 10*time.Minute)

	quote, err := uc.Quote(ctx, f.userID, " 1000 ")
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if quote.ID == "" || quote.UserID != f.userID || quote.PostalCode != "1000" {
		t.Fatalf("unexpected quote: %+v", quote)
	}
	if len(seen.Items) != 1 || seen.PostalCode != "1000" {
		t.Fatalf("quoter must receive cart items: %+v", seen)
	}
	ttl := f.quotes.TTLs[quote.ID]
	if ttl <= 0 || ttl > 10*time.Minute {
		t.Fatalf("unexpected ttl %s", ttl)
	}

	stored, err := f.quotes.Get(ctx, quote.ID)
	if err != nil || stored.Cost.String() != "12.5" {
		t.Fatalf("quote not stored: %+v %v", stored, err)
	}
}

func TestShippingQuoteErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uc := NewShippingUseCase(f.store, testhelpers.ShippingQuoterStub{}, f.quotes, 0)

	var vErr *domainErrors.ValidationError
	if _, err := uc.Quote(ctx, f.userID, ""); !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := uc.Quote(ctx, f.userID, "1000"); !errors.Is(err, domainErrors.ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}

	if _, err := f.carts.AddItem(ctx, f.userID, f.vinylA, 1); err != nil {
		t.Fatalf("add item: %v", err)
	}
	failing := NewShippingUseCase(f.store, testhelpers.ShippingQuoterStub{QuoteFn: func(context.Context, model.QuoteRequest) (*model.ShippingQuote, error) {
		return nil, errors.New("carrier offline")
	}}, f.quotes, time.Minute)
	if _, err := failing.Quote(ctx, f.userID, "1000"); err == nil {
		t.Fatal("expected quoter error")
	}
}
