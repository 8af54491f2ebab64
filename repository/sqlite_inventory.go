package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/akinalp/storefront/database"
	"github.com/akinalp/storefront/models"
	"github.com/akinalp/storefront/pkg"
)

type sqliteInventoryRepo struct {
	db database.TxQuerier
}

func NewSQLiteInventoryRepo(db database.TxQuerier) InventoryRepository {
	return &sqliteInventoryRepo{db: db}
}

const inventoryColumns = `product_id, quantity_on_hand, quantity_reserved, low_stock_threshold, updated_at`

func scanInventory(row interface{ Scan(...any) error }) (*models.Inventory, error) {
	inv := &models.Inventory{}
	err := row.Scan(&inv.ProductID, &inv.QuantityOnHand, &inv.QuantityReserved, &inv.LowStockThreshold, &inv.UpdatedAt)
	inv.Available = inv.QuantityOnHand - inv.QuantityReserved
	return inv, err
}

func (r *sqliteInventoryRepo) Create(ctx context.Context, inv *models.Inventory) error {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO inventory (product_id, quantity_on_hand, low_stock_threshold)
		VALUES (?, ?, ?)
		RETURNING `+inventoryColumns,
		inv.ProductID, inv.QuantityOnHand, inv.LowStockThreshold)

	created, err := scanInventory(row)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: inventory already exists for product", pkg.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create inventory: %w", err)
	}
	*inv = *created
	return nil
}

func (r *sqliteInventoryRepo) Get(ctx context.Context, productID string) (*models.Inventory, error) {
	inv, err := scanInventory(r.db.QueryRowContext(ctx,
		`SELECT `+inventoryColumns+` FROM inventory WHERE product_id = ?`, productID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory: %w", err)
	}
	return inv, nil
}

func (r *sqliteInventoryRepo) GetMany(ctx context.Context, productIDs []string) (map[string]*models.Inventory, error) {
	result := make(map[string]*models.Inventory, len(productIDs))
	if len(productIDs) == 0 {
		return result, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+inventoryColumns+` FROM inventory WHERE product_id IN (`+placeholders(len(productIDs))+`)`,
		stringArgs(productIDs)...)
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory rows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		inv, err := scanInventory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inventory: %w", err)
		}
		result[inv.ProductID] = inv
	}
	return result, rows.Err()
}

func (r *sqliteInventoryRepo) Adjust(ctx context.Context, productID string, set *int, delta int, threshold *int) (*models.Inventory, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE inventory
		SET quantity_on_hand = CASE WHEN ?1 IS NULL THEN quantity_on_hand + ?2 ELSE ?1 END,
		    low_stock_threshold = COALESCE(?3, low_stock_threshold),
		    updated_at = CURRENT_TIMESTAMP
		WHERE product_id = ?4
		RETURNING `+inventoryColumns,
		set, delta, threshold, productID)

	inv, err := scanInventory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if isCheckViolation(err) {
		return nil, fmt.Errorf("%w: stock cannot go below zero or below reserved quantity", pkg.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to adjust inventory: %w", err)
	}
	return inv, nil
}

const lowStockWhere = `i.quantity_on_hand - i.quantity_reserved <= i.low_stock_threshold AND p.is_active = 1`

func (r *sqliteInventoryRepo) ListLow(ctx context.Context) ([]models.Inventory, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT i.product_id, i.quantity_on_hand, i.quantity_reserved, i.low_stock_threshold, i.updated_at
		FROM inventory i JOIN products p ON p.id = i.product_id
		WHERE `+lowStockWhere+`
		ORDER BY (i.quantity_on_hand - i.quantity_reserved) ASC, i.product_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list low stock: %w", err)
	}
	defer rows.Close()

	items := []models.Inventory{}
	for rows.Next() {
		inv, err := scanInventory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inventory: %w", err)
		}
		items = append(items, *inv)
	}
	return items, rows.Err()
}

func (r *sqliteInventoryRepo) CountLow(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM inventory i JOIN products p ON p.id = i.product_id WHERE `+lowStockWhere).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count low stock: %w", err)
	}
	return n, nil
}

func (r *sqliteInventoryRepo) Reserve(ctx context.Context, productID string, qty int) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE inventory
		SET quantity_reserved = quantity_reserved + ?1, updated_at = CURRENT_TIMESTAMP
		WHERE product_id = ?2 AND quantity_on_hand - quantity_reserved >= ?1`,
		qty, productID)
	if err != nil {
		return fmt.Errorf("failed to reserve stock: %w", err)
	}
	if err := expectAffected(result); err != nil {
		return fmt.Errorf("%w: insufficient stock for product %s", pkg.ErrConflict, productID)
	}
	return nil
}

func (r *sqliteInventoryRepo) Unreserve(ctx context.Context, productID string, qty int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE inventory
		SET quantity_reserved = MAX(quantity_reserved - ?, 0), updated_at = CURRENT_TIMESTAMP
		WHERE product_id = ?`, qty, productID)
	if err != nil {
		return fmt.Errorf("failed to release reserved stock: %w", err)
	}
	return nil
}

func (r *sqliteInventoryRepo) Commit(ctx context.Context, productID string, qty int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE inventory
		SET quantity_on_hand = quantity_on_hand - ?1,
		    quantity_reserved = quantity_reserved - ?1,
		    updated_at = CURRENT_TIMESTAMP
		WHERE product_id = ?2`, qty, productID)
	if isCheckViolation(err) {
		return fmt.Errorf("%w: committed quantity exceeds reserved stock for %s", pkg.ErrConflict, productID)
	}
	if err != nil {
		return fmt.Errorf("failed to commit stock: %w", err)
	}
	return nil
}

// ─── Reservations ───

func (r *sqliteInventoryRepo) CreateReservation(ctx context.Context, res *models.Reservation) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO inventory_reservations (reservation_key, status, expires_at)
		VALUES (?, ?, ?)
		RETURNING created_at`,
		res.Key, res.Status, res.ExpiresAt.UTC(),
	).Scan(&res.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: reservation %s", pkg.ErrAlreadyExists, res.Key)
		}
		return fmt.Errorf("failed to create reservation: %w", err)
	}

	for _, item := range res.Items {
		if _, err := r.db.ExecContext(ctx, `
			INSERT INTO inventory_reservation_items (reservation_key, product_id, quantity)
			VALUES (?, ?, ?)`, res.Key, item.ProductID, item.Quantity); err != nil {
			return fmt.Errorf("failed to create reservation item: %w", err)
		}
	}
	return nil
}

func (r *sqliteInventoryRepo) GetReservation(ctx context.Context, key string) (*models.Reservation, error) {
	res := &models.Reservation{Key: key}
	err := r.db.QueryRowContext(ctx, `
		SELECT status, expires_at, created_at FROM inventory_reservations WHERE reservation_key = ?`, key,
	).Scan(&res.Status, &res.ExpiresAt, &res.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id, quantity FROM inventory_reservation_items
		WHERE reservation_key = ? ORDER BY product_id`, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.StockItem
		if err := rows.Scan(&item.ProductID, &item.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan reservation item: %w", err)
		}
		res.Items = append(res.Items, item)
	}
	return res, rows.Err()
}

func (r *sqliteInventoryRepo) TransitionReservation(ctx context.Context, key string, from, to models.ReservationStatus) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE inventory_reservations SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE reservation_key = ? AND status = ?`, to, key, from)
	if err != nil {
		return fmt.Errorf("failed to update reservation: %w", err)
	}
	if err := expectAffected(result); err != nil {
		return fmt.Errorf("%w: reservation %s is not %s", pkg.ErrConflict, key, from)
	}
	return nil
}

func (r *sqliteInventoryRepo) ListExpiredReservations(ctx context.Context, now time.Time, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT reservation_key FROM inventory_reservations
		WHERE status = 'pending' AND expires_at < ?
		ORDER BY expires_at LIMIT ?`, now.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired reservations: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("failed to scan reservation key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func isCheckViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "CHECK constraint failed")
}
