package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/polkiloo/vinylshop/internal/domain/model"
	"github.com/polkiloo/vinylshop/internal/domain/repository"
	testhelpers "github.com/polkiloo/vinylshop/internal/test"
)

func TestInventoryLedgerSkipsMissingVariants(t *testing.T) {
	store := testhelpers.NewMemStore()
	vinyl := store.SeedVariant("Kind of Blue", "50", "", 1)
	ledger := NewInventoryLedger(discardLogger())
	items := []model.OrderItem{{VariantID: 9999, Quantity: 1}, {VariantID: vinyl, Quantity: 3}}

	err := store.WithinTransaction(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		return ledger.Decrement(ctx, tx, 1, items)
	})
	if err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if store.Stock(vinyl) != 0 {
		t.Fatalf("expected stock floored at zero, got %d", store.Stock(vinyl))
	}

	err = store.WithinTransaction(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		return ledger.Restore(ctx, tx, 1, items)
	})
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if store.Stock(vinyl) != 3 {
		t.Fatalf("expected stock 3, got %d", store.Stock(vinyl))
	}
}

func TestInventoryLedgerReturnsStockErrors(t *testing.T) {
	store := testhelpers.NewMemStore()
	vinyl := store.SeedVariant("Kind of Blue", "50", "", 2)
	ledger := NewInventoryLedger(discardLogger())
	items := []model.OrderItem{{VariantID: vinyl, Quantity: 1}}
	failure := errors.New("deadlock detected")
	store.InventoryErr = failure

	err := store.WithinTransaction(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		return ledger.Decrement(ctx, tx, 1, items)
	})
	if !errors.Is(err, failure) {
		t.Fatalf("expected decrement error, got %v", err)
	}
	err = store.WithinTransaction(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		return ledger.Restore(ctx, tx, 1, items)
	})
	if !errors.Is(err, failure) {
		t.Fatalf("expected restore error, got %v", err)
	}
	if store.Stock(vinyl) != 2 {
		t.Fatalf("failed statements must not move stock, got %d", store.Stock(vinyl))
	}
}
