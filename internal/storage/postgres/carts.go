package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	domainErrors "github.com/polkiloo/vinylshop/internal/domain/errors"
	"github.com/polkiloo/vinylshop/internal/domain/model"
)

type catalogRepository struct {
	db querier
}

func (r *catalogRepository) GetVariant(ctx context.Context, id int64) (*model.Variant, error) {
	var (
		v     model.Variant
		price int64
		promo *int64
	)
	err := r.db.QueryRow(ctx,
		`SELECT v.id, v.product_id, v.sku, v.price_minor, v.promotional_price_minor, v.stock_quantity,
                p.name, p.artist, p.condition
         FROM product_variants v JOIN products p ON p.id = v.product_id
         WHERE v.id=$1`, id,
	).Scan(&v.ID, &v.ProductID, &v.SKU, &price, &promo, &v.StockQuantity,
		&v.Product.Name, &v.Product.Artist, &v.Product.Condition)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	v.Price = fromMinor(price)
	v.PromotionalPrice = fromMinorPtr(promo)
	return &v, nil
}

type cartRepository struct {
	db querier
}

const cartColumns = `id, user_id, status, created_at, updated_at`

func (r *cartRepository) GetActive(ctx context.Context, userID int64) (*model.Cart, error) {
	return r.get(ctx, `SELECT `+cartColumns+` FROM carts WHERE user_id=$1 AND status='active'`, userID)
}

func (r *cartRepository) GetByID(ctx context.Context, cartID int64) (*model.Cart, error) {
	return r.get(ctx, `SELECT `+cartColumns+` FROM carts WHERE id=$1`, cartID)
}

func (r *cartRepository) get(ctx context.Context, query string, arg any) (*model.Cart, error) {
	var cart model.Cart
	err := r.db.QueryRow(ctx, query, arg).Scan(&cart.ID, &cart.UserID, &cart.Status, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	if cart.Items, err = r.loadItems(ctx, cart.ID); err != nil {
		return nil, err
	}
	return &cart, nil
}

// loadItems resolves current catalog prices for each line.
func (r *cartRepository) loadItems(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	rows, err := r.db.Query(ctx,
		`SELECT ci.id, ci.cart_id, ci.variant_id, ci.quantity, v.price_minor, v.promotional_price_minor,
                p.name, p.artist, p.condition
         FROM cart_items ci
         JOIN product_variants v ON v.id = ci.variant_id
         JOIN products p ON p.id = v.product_id
         WHERE ci.cart_id=$1 ORDER BY ci.id`, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.CartItem, 0)
	for rows.Next() {
		var (
			item  model.CartItem
			price int64
			promo *int64
		)
		if err := rows.Scan(&item.ID, &item.CartID, &item.VariantID, &item.Quantity, &price, &promo,
			&item.Product.Name, &item.Product.Artist, &item.Product.Condition); err != nil {
			return nil, err
		}
		item.UnitPrice = fromMinor(price)
		item.PromotionalPrice = fromMinorPtr(promo)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// CreateActive relies on the partial unique index to keep one active cart per user.
func (r *cartRepository) CreateActive(ctx context.Context, userID int64) (*model.Cart, error) {
	cart := model.Cart{Items: []model.CartItem{}}
	err := r.db.QueryRow(ctx,
		`INSERT INTO carts (user_id, status) VALUES ($1, 'active')
         ON CONFLICT (user_id) WHERE status = 'active' DO NOTHING
         RETURNING `+cartColumns, userID,
	).Scan(&cart.ID, &cart.UserID, &cart.Status, &cart.CreatedAt, &cart.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return r.GetActive(ctx, userID)
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *cartRepository) AddItem(ctx context.Context, cartID, variantID int64, quantity int) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO cart_items (cart_id, variant_id, quantity) VALUES ($1, $2, $3)
         ON CONFLICT (cart_id, variant_id) DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`,
		cartID, variantID, quantity)
	return err
}

func (r *cartRepository) SetItemQuantity(ctx context.Context, cartID, itemID int64, quantity int) error {
	tag, err := r.db.Exec(ctx, `UPDATE cart_items SET quantity=$3 WHERE cart_id=$1 AND id=$2`, cartID, itemID, quantity)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

func (r *cartRepository) RemoveItem(ctx context.Context, cartID, itemID int64) (int, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE cart_id=$1 AND id=$2`, cartID, itemID)
	if err != nil {
		return 0, err
	}
	if tag.RowsAffected() == 0 {
		return 0, domainErrors.ErrNotFound
	}
	var remaining int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM cart_items WHERE cart_id=$1`, cartID).Scan(&remaining); err != nil {
		return 0, err
	}
	return remaining, nil
}

func (r *cartRepository) Delete(ctx context.Context, cartID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM carts WHERE id=$1`, cartID)
	return err
}

func (r *cartRepository) MarkConverted(ctx context.Context, cartID int64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE carts SET status='converted', updated_at=NOW() WHERE id=$1 AND status='active'`, cartID)
	return err
}

func (r *cartRepository) ArchiveConverted(ctx context.Context, userID, keep int64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE carts SET status='archived', updated_at=NOW() WHERE user_id=$1 AND id<>$2 AND status='converted'`,
		userID, keep)
	return err
}

type inventoryRepository struct {
	db querier
}

// Decrement floors at zero inside a single statement so concurrent orders never drive stock negative.
func (r *inventoryRepository) Decrement(ctx context.Context, variantID int64, qty int) (int, int, error) {
	var before, after int
	err := r.db.QueryRow(ctx,
		`WITH prev AS (SELECT id, stock_quantity FROM product_variants WHERE id=$1 FOR UPDATE)
         UPDATE product_variants v SET stock_quantity = GREATEST(v.stock_quantity - $2, 0)
         FROM prev WHERE v.id = prev.id
         RETURNING prev.stock_quantity, v.stock_quantity`,
		variantID, qty,
	).Scan(&before, &after)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, domainErrors.ErrNotFound
		}
		return 0, 0, err
	}
	return before, after, nil
}

func (r *inventoryRepository) Increment(ctx context.Context, variantID int64, qty int) (int, error) {
	var after int
	err := r.db.QueryRow(ctx,
		`UPDATE product_variants SET stock_quantity = stock_quantity + $2 WHERE id=$1 RETURNING stock_quantity`,
		variantID, qty,
	).Scan(&after)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domainErrors.ErrNotFound
		}
		return 0, err
	}
	return after, nil
}
