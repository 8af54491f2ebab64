package repository

import (
	"context"
	"fmt"

	"github.com/akinalp/storefront/database"
	"github.com/akinalp/storefront/models"
	"github.com/akinalp/storefront/pkg"
)

type sqliteCartRepo struct {
	db database.TxQuerier
}

func NewSQLiteCartRepo(db database.TxQuerier) CartRepository {
	return &sqliteCartRepo{db: db}
}

func (r *sqliteCartRepo) Items(ctx context.Context, userID string) ([]models.CartItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.product_id, p.name, p.sku, p.image_url, p.price_cents, c.quantity, p.is_active, c.added_at
		FROM cart_items c JOIN products p ON p.id = c.product_id
		WHERE c.user_id = ?
		ORDER BY c.added_at, c.rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart items: %w", err)
	}
	defer rows.Close()

	items := []models.CartItem{}
	for rows.Next() {
		var it models.CartItem
		if err := rows.Scan(&it.ProductID, &it.Name, &it.SKU, &it.ImageURL, &it.UnitPriceCents,
			&it.Quantity, &it.IsActive, &it.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		it.LineTotalCents = it.UnitPriceCents * int64(it.Quantity)
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *sqliteCartRepo) AddItem(ctx context.Context, userID, productID string, qty int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cart_items (user_id, product_id, quantity) VALUES (?, ?, ?)
		ON CONFLICT (user_id, product_id) DO UPDATE SET quantity = quantity + excluded.quantity`,
		userID, productID, qty)
	if isCheckViolation(err) {
		return fmt.Errorf("%w: quantity per product cannot exceed 99", pkg.ErrBadRequest)
	}
	if err != nil {
		return fmt.Errorf("failed to add cart item: %w", err)
	}
	return nil
}

func (r *sqliteCartRepo) SetQuantity(ctx context.Context, userID, productID string, qty int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE cart_items SET quantity = ? WHERE user_id = ? AND product_id = ?`, qty, userID, productID)
	if isCheckViolation(err) {
		return fmt.Errorf("%w: quantity must be between 1 and 99", pkg.ErrBadRequest)
	}
	if err != nil {
		return fmt.Errorf("failed to update cart item: %w", err)
	}
	return expectAffected(result)
}

func (r *sqliteCartRepo) RemoveItem(ctx context.Context, userID, productID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM cart_items WHERE user_id = ? AND product_id = ?`, userID, productID)
	if err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	return expectAffected(result)
}

func (r *sqliteCartRepo) Clear(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
