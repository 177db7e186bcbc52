package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	domainErrors "github.com/polkiloo/vinylshop/internal/domain/errors"
	"github.com/polkiloo/vinylshop/internal/domain/model"
)

const orderColumns = `id, number, user_id, cart_id, status, payment_status,
    subtotal_minor, shipping_cost_minor, discount_minor, total_minor,
    shipping_address, billing_address, shipping_quote_id, payment_method, payment_id,
    created_at, updated_at`

// reconcilableStatuses are the payment statuses the gateway may still move.
var reconcilableStatuses = []string{
	string(model.PaymentStatusPending),
	string(model.PaymentStatusInProcess),
	string(model.PaymentStatusAuthorized),
	string(model.PaymentStatusInMediation),
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(row scanner) (*model.Order, error) {
	var (
		order                               model.Order
		subtotal, shipping, discount, total int64
		shippingAddr, billingAddr           []byte
	)
	err := row.Scan(&order.ID, &order.Number, &order.UserID, &order.CartID, &order.Status, &order.PaymentStatus,
		&subtotal, &shipping, &discount, &total,
		&shippingAddr, &billingAddr, &order.ShippingQuoteID, &order.PaymentMethod, &order.PaymentID,
		&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, err
	}
	order.Subtotal = fromMinor(subtotal)
	order.ShippingCost = fromMinor(shipping)
	order.Discount = fromMinor(discount)
	order.Total = fromMinor(total)
	if err := json.Unmarshal(shippingAddr, &order.ShippingAddress); err != nil {
		return nil, fmt.Errorf("decode shipping address: %w", err)
	}
	if err := json.Unmarshal(billingAddr, &order.BillingAddress); err != nil {
		return nil, fmt.Errorf("decode billing address: %w", err)
	}
	return &order, nil
}

type orderRepository struct {
	db querier
}

// Create expects to run inside a transaction so the order and its items land together.
func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	shippingAddr, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return err
	}
	billingAddr, err := json.Marshal(order.BillingAddress)
	if err != nil {
		return err
	}

	err = r.db.QueryRow(ctx,
		`INSERT INTO orders (number, user_id, cart_id, status, payment_status,
            subtotal_minor, shipping_cost_minor, discount_minor, total_minor,
            shipping_address, billing_address, shipping_quote_id, payment_method, payment_id)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
         RETURNING id, created_at, updated_at`,
		order.Number, order.UserID, order.CartID, order.Status, order.PaymentStatus,
		toMinor(order.Subtotal), toMinor(order.ShippingCost), toMinor(order.Discount), toMinor(order.Total),
		string(shippingAddr), string(billingAddr), order.ShippingQuoteID, order.PaymentMethod, order.PaymentID,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domainErrors.ErrAlreadyExists
		}
		return err
	}

	for i := range order.Items {
		item := &order.Items[i]
		snapshot, err := json.Marshal(item.Product)
		if err != nil {
			return err
		}
		item.OrderID = order.ID
		err = r.db.QueryRow(ctx,
			`INSERT INTO order_items (order_id, variant_id, quantity, unit_price_minor,
                promotional_price_minor, total_price_minor, product_snapshot)
             VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
			order.ID, item.VariantID, item.Quantity, toMinor(item.UnitPrice),
			toMinorPtr(item.PromotionalPrice), toMinor(item.TotalPrice), string(snapshot),
		).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

func (r *orderRepository) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	order, err := scanOrder(r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	if order.Items, err = r.loadItems(ctx, order.ID); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) loadItems(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, order_id, variant_id, quantity, unit_price_minor, promotional_price_minor,
                total_price_minor, product_snapshot
         FROM order_items WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.OrderItem, 0)
	for rows.Next() {
		var (
			item         model.OrderItem
			unit, totalP int64
			promo        *int64
			snapshot     []byte
		)
		if err := rows.Scan(&item.ID, &item.OrderID, &item.VariantID, &item.Quantity, &unit, &promo, &totalP, &snapshot); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(snapshot, &item.Product); err != nil {
			return nil, fmt.Errorf("decode product snapshot: %w", err)
		}
		item.UnitPrice = fromMinor(unit)
		item.PromotionalPrice = fromMinorPtr(promo)
		item.TotalPrice = fromMinor(totalP)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// ListByUser returns order headers, newest first.
func (r *orderRepository) ListByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id=$1 ORDER BY created_at DESC, id DESC`, userID)
}

func (r *orderRepository) UpdatePayment(ctx context.Context, orderID int64, status model.OrderStatus, paymentStatus model.PaymentStatus, paymentID *string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE orders SET status=$2, payment_status=$3, payment_id=$4, updated_at=NOW() WHERE id=$1`,
		orderID, status, paymentStatus, paymentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrOrderNotFound
	}
	return nil
}

// SelectForReconciliation skips orders whose attached payment already settled,
// such as an order reopened for retry that still carries its rejected payment.
func (r *orderRepository) SelectForReconciliation(ctx context.Context, idle time.Duration, limit int) ([]model.Order, error) {
	cutoff := time.Now().Add(-idle)
	return r.list(ctx,
		`SELECT `+orderColumns+` FROM orders
         WHERE payment_id IS NOT NULL AND payment_status = ANY($1) AND updated_at <= $2
           AND NOT EXISTS (
               SELECT 1 FROM payment_transactions pt
               WHERE pt.payment_id = orders.payment_id AND NOT pt.status = ANY($1))
         ORDER BY updated_at LIMIT $3`,
		reconcilableStatuses, cutoff, limit)
}

func (r *orderRepository) list(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]model.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

type paymentRepository struct {
	db querier
}

const paymentColumns = `id, order_id, payment_id, status, status_detail, payment_method_id, amount_minor, raw, created_at, updated_at`

func scanPayment(row scanner) (*model.PaymentTransaction, error) {
	var (
		p      model.PaymentTransaction
		amount int64
		raw    []byte
	)
	if err := row.Scan(&p.ID, &p.OrderID, &p.PaymentID, &p.Status, &p.StatusDetail, &p.PaymentMethodID,
		&amount, &raw, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Amount = fromMinor(amount)
	if len(raw) > 0 {
		p.Raw = json.RawMessage(raw)
	}
	return &p, nil
}

func (r *paymentRepository) GetByPaymentID(ctx context.Context, paymentID string) (*model.PaymentTransaction, error) {
	p, err := scanPayment(r.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payment_transactions WHERE payment_id=$1`, paymentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// Upsert keeps one row per gateway payment id and refreshes its status.
func (r *paymentRepository) Upsert(ctx context.Context, p *model.PaymentTransaction) error {
	var raw any
	if len(p.Raw) > 0 {
		raw = string(p.Raw)
	}
	return r.db.QueryRow(ctx,
		`INSERT INTO payment_transactions (order_id, payment_id, status, status_detail, payment_method_id, amount_minor, raw)
         VALUES ($1, $2, $3, $4, $5, $6, $7)
         ON CONFLICT (payment_id) DO UPDATE SET
            status = EXCLUDED.status,
            status_detail = EXCLUDED.status_detail,
            payment_method_id = EXCLUDED.payment_method_id,
            amount_minor = EXCLUDED.amount_minor,
            raw = COALESCE(EXCLUDED.raw, payment_transactions.raw),
            updated_at = NOW()
         RETURNING id, created_at, updated_at`,
		p.OrderID, p.PaymentID, p.Status, p.StatusDetail, p.PaymentMethodID, toMinor(p.Amount), raw,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (r *paymentRepository) ListByOrder(ctx context.Context, orderID int64) ([]model.PaymentTransaction, error) {
	rows, err := r.db.Query(ctx, `SELECT `+paymentColumns+` FROM payment_transactions WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]model.PaymentTransaction, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return payments, nil
}

type historyRepository struct {
	db querier
}

func (r *historyRepository) Append(ctx context.Context, entry *model.StatusHistory) error {
	var old *string
	if entry.OldStatus != nil {
		s := string(*entry.OldStatus)
		old = &s
	}
	return r.db.QueryRow(ctx,
		`INSERT INTO order_status_history (order_id, old_status, new_status, change_type, payment_id, comment, webhook_source)
         VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at`,
		entry.OrderID, old, entry.NewStatus, entry.ChangeType, entry.PaymentID, entry.Comment, entry.WebhookSource,
	).Scan(&entry.ID, &entry.CreatedAt)
}

// ListByOrder returns entries in chronological order.
func (r *historyRepository) ListByOrder(ctx context.Context, orderID int64) ([]model.StatusHistory, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, order_id, old_status, new_status, change_type, payment_id, comment, webhook_source, created_at
         FROM order_status_history WHERE order_id=$1 ORDER BY created_at, id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]model.StatusHistory, 0)
	for rows.Next() {
		var (
			e   model.StatusHistory
			old *string
		)
		if err := rows.Scan(&e.ID, &e.OrderID, &old, &e.NewStatus, &e.ChangeType, &e.PaymentID,
			&e.Comment, &e.WebhookSource, &e.CreatedAt); err != nil {
			return nil, err
		}
		if old != nil {
			status := model.PaymentStatus(*old)
			e.OldStatus = &status
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
