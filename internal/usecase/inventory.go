package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	domainErrors "github.com/polkiloo/vinylshop/internal/domain/errors"
	"github.com/polkiloo/vinylshop/internal/domain/model"
	"github.com/polkiloo/vinylshop/internal/domain/repository"
)

// InventoryLedger adjusts per-variant stock for order items.
// Shortfalls and variants missing from the catalog are logged and skipped.
// Any other stock statement error is returned so the order transaction rolls back.
type InventoryLedger struct {
	log *slog.Logger
}

// NewInventoryLedger constructs InventoryLedger.
func NewInventoryLedger(log *slog.Logger) *InventoryLedger {
	if log == nil {
		log = slog.Default()
	}
	return &InventoryLedger{log: log}
}

// Decrement lowers stock for every item, flooring at zero.
func (l *InventoryLedger) Decrement(ctx context.Context, tx repository.Tx, orderID int64, items []model.OrderItem) error {
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		var before, after int
		err := tx.Savepoint(ctx, func(sp repository.Tx) error {
			var err error
			before, after, err = sp.Inventory().Decrement(ctx, item.VariantID, item.Quantity)
			return err
		})
		if err != nil {
			if l.skipMissing(orderID, item, err) {
				continue
			}
			return fmt.Errorf("decrement stock for variant %d: %w", item.VariantID, err)
		}
		if before < item.Quantity {
			l.log.Warn("stock shortfall, floored at zero",
				slog.Int64("order_id", orderID),
				slog.Int64("variant_id", item.VariantID),
				slog.Int("quantity", item.Quantity),
				slog.Int("stock_before", before),
				slog.Int("stock_after", after))
		}
	}
	return nil
}

// Restore returns stock for every item.
func (l *InventoryLedger) Restore(ctx context.Context, tx repository.Tx, orderID int64, items []model.OrderItem) error {
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		err := tx.Savepoint(ctx, func(sp repository.Tx) error {
			_, err := sp.Inventory().Increment(ctx, item.VariantID, item.Quantity)
			return err
		})
		if err != nil {
			if l.skipMissing(orderID, item, err) {
				continue
			}
			return fmt.Errorf("restore stock for variant %d: %w", item.VariantID, err)
		}
	}
	return nil
}

// skipMissing logs and reports true when the variant no longer exists.
func (l *InventoryLedger) skipMissing(orderID int64, item model.OrderItem, err error) bool {
	if !errors.Is(err, domainErrors.ErrNotFound) {
		return false
	}
	l.log.Warn("stock variant missing, skipped",
		slog.Int64("order_id", orderID),
		slog.Int64("variant_id", item.VariantID),
		slog.Int("quantity", item.Quantity))
	return true
}
