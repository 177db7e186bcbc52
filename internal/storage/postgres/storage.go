package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/vinylshop/internal/domain/errors"
	"github.com/polkiloo/vinylshop/internal/domain/model"
	"github.com/polkiloo/vinylshop/internal/domain/repository"
)

// querier is implemented by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgxPool interface {
	querier
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

var newPgxPool = func(ctx context.Context, cfg *pgxpool.Config) (pgxPool, error) {
	return pgxpool.NewWithConfig(ctx, cfg)
}

// Storage acts as repository facade backed by PostgreSQL.
type Storage struct {
	pool   pgxPool
	logger *slog.Logger
}

// New creates storage with schema initialization.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	pool, err := newPgxPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	storage := &Storage{pool: pool, logger: logger}
	if err := storage.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return storage, nil
}

// Close releases database resources.
func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Factory methods for domain repositories.
func (s *Storage) Users() repository.UserRepository {
	return &userRepository{db: s.pool}
}

func (s *Storage) Catalog() repository.CatalogRepository {
	return &catalogRepository{db: s.pool}
}

func (s *Storage) Carts() repository.CartRepository {
	return &cartRepository{db: s.pool}
}

func (s *Storage) Orders() repository.OrderRepository {
	return &orderRepository{db: s.pool}
}

func (s *Storage) Payments() repository.PaymentRepository {
	return &paymentRepository{db: s.pool}
}

func (s *Storage) History() repository.HistoryRepository {
	return &historyRepository{db: s.pool}
}

func (s *Storage) Inventory() repository.InventoryRepository {
	return &inventoryRepository{db: s.pool}
}

func (s *Storage) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id BIGSERIAL PRIMARY KEY,
            email TEXT UNIQUE NOT NULL,
            name TEXT NOT NULL DEFAULT '',
            password_hash TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS products (
            id BIGSERIAL PRIMARY KEY,
            name TEXT NOT NULL,
            artist TEXT NOT NULL DEFAULT '',
            condition TEXT NOT NULL DEFAULT ''
        )`,
		`CREATE TABLE IF NOT EXISTS product_variants (
            id BIGSERIAL PRIMARY KEY,
            product_id BIGINT NOT NULL REFERENCES products(id),
            sku TEXT UNIQUE NOT NULL,
            price_minor BIGINT NOT NULL,
            promotional_price_minor BIGINT,
            stock_quantity INTEGER NOT NULL DEFAULT 0 CHECK (stock_quantity >= 0)
        )`,
		`CREATE TABLE IF NOT EXISTS carts (
            id BIGSERIAL PRIMARY KEY,
            user_id BIGINT NOT NULL REFERENCES users(id),
            status TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS cart_items (
            id BIGSERIAL PRIMARY KEY,
            cart_id BIGINT NOT NULL REFERENCES carts(id) ON DELETE CASCADE,
            variant_id BIGINT NOT NULL REFERENCES product_variants(id),
            quantity INTEGER NOT NULL CHECK (quantity > 0),
            UNIQUE (cart_id, variant_id)
        )`,
		`CREATE TABLE IF NOT EXISTS orders (
            id BIGSERIAL PRIMARY KEY,
            number TEXT UNIQUE NOT NULL,
            user_id BIGINT NOT NULL REFERENCES users(id),
            cart_id BIGINT REFERENCES carts(id) ON DELETE SET NULL,
            status TEXT NOT NULL,
            payment_status TEXT NOT NULL,
            subtotal_minor BIGINT NOT NULL,
            shipping_cost_minor BIGINT NOT NULL,
            discount_minor BIGINT NOT NULL DEFAULT 0,
            total_minor BIGINT NOT NULL,
            shipping_address JSONB NOT NULL,
            billing_address JSONB NOT NULL,
            shipping_quote_id TEXT NOT NULL DEFAULT '',
            payment_method TEXT NOT NULL DEFAULT '',
            payment_id TEXT,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            CHECK (total_minor = subtotal_minor + shipping_cost_minor - discount_minor)
        )`,
		`CREATE TABLE IF NOT EXISTS order_items (
            id BIGSERIAL PRIMARY KEY,
            order_id BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
            variant_id BIGINT NOT NULL REFERENCES product_variants(id),
            quantity INTEGER NOT NULL CHECK (quantity > 0),
            unit_price_minor BIGINT NOT NULL,
            promotional_price_minor BIGINT,
            total_price_minor BIGINT NOT NULL,
            product_snapshot JSONB NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS payment_transactions (
            id BIGSERIAL PRIMARY KEY,
            order_id BIGINT NOT NULL REFERENCES orders(id),
            payment_id TEXT UNIQUE NOT NULL,
            status TEXT NOT NULL,
            status_detail TEXT NOT NULL DEFAULT '',
            payment_method_id TEXT NOT NULL DEFAULT '',
            amount_minor BIGINT NOT NULL DEFAULT 0,
            raw JSONB,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS order_status_history (
            id BIGSERIAL PRIMARY KEY,
            order_id BIGINT NOT NULL REFERENCES orders(id),
            old_status TEXT,
            new_status TEXT NOT NULL,
            change_type TEXT NOT NULL,
            payment_id TEXT NOT NULL DEFAULT '',
            comment TEXT NOT NULL DEFAULT '',
            webhook_source TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_carts_active_user ON carts(user_id) WHERE status = 'active'`,
		`CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_reconcile ON orders(payment_status, updated_at) WHERE payment_id IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS idx_history_order ON order_status_history(order_id, id)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	return nil
}

// inTx executes function inside transaction boundary.
func (s *Storage) inTx(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = fn(tx)
	return err
}

// WithinTransaction runs fn with repositories bound to one transaction.
func (s *Storage) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		return fn(ctx, &txFactory{tx: tx})
	})
}

// WithOrderLock runs fn while holding the order row lock.
func (s *Storage) WithOrderLock(ctx context.Context, orderID int64, fn func(ctx context.Context, tx repository.Tx, order *model.Order) error) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		orders := &orderRepository{db: tx}
		order, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1 FOR UPDATE`, orderID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domainErrors.ErrOrderNotFound
			}
			return err
		}
		if order.Items, err = orders.loadItems(ctx, order.ID); err != nil {
			return err
		}
		return fn(ctx, &txFactory{tx: tx}, order)
	})
}

// HealthCheck verifies database connectivity.
func (s *Storage) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

// txFactory hands out repositories bound to one transaction.
type txFactory struct {
	tx pgx.Tx
}

func (f *txFactory) Users() repository.UserRepository         { return &userRepository{db: f.tx} }
func (f *txFactory) Catalog() repository.CatalogRepository     { return &catalogRepository{db: f.tx} }
func (f *txFactory) Carts() repository.CartRepository          { return &cartRepository{db: f.tx} }
func (f *txFactory) Orders() repository.OrderRepository        { return &orderRepository{db: f.tx} }
func (f *txFactory) Payments() repository.PaymentRepository    { return &paymentRepository{db: f.tx} }
func (f *txFactory) History() repository.HistoryRepository     { return &historyRepository{db: f.tx} }
func (f *txFactory) Inventory() repository.InventoryRepository { return &inventoryRepository{db: f.tx} }

// Savepoint runs fn in a nested transaction.
func (f *txFactory) Savepoint(ctx context.Context, fn func(repository.Tx) error) (err error) {
	sp, err := f.tx.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = sp.Rollback(ctx)
		} else {
			err = sp.Commit(ctx)
		}
	}()

	err = fn(&txFactory{tx: sp})
	return err
}

// Money is stored in minor units.
func toMinor(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

func fromMinor(v int64) decimal.Decimal {
	return decimal.New(v, -2)
}

func toMinorPtr(d *decimal.Decimal) *int64 {
	if d == nil {
		return nil
	}
	v := toMinor(*d)
	return &v
}

func fromMinorPtr(v *int64) *decimal.Decimal {
	if v == nil {
		return nil
	}
	d := fromMinor(*v)
	return &d
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var (
	_ repository.Factory    = (*Storage)(nil)
	_ repository.Transactor = (*Storage)(nil)
	_ repository.Tx         = (*txFactory)(nil)
)
