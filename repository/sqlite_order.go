package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/akinalp/storefront/database"
	"github.com/akinalp/storefront/models"
	"github.com/akinalp/storefront/pkg"
)

type sqliteOrderRepo struct {
	db database.TxQuerier
}

func NewSQLiteOrderRepo(db database.TxQuerier) OrderRepository {
	return &sqliteOrderRepo{db: db}
}

const orderColumns = `id, order_number, user_id, status, currency, subtotal_cents, tax_cents,
	shipping_cents, total_cents, shipping_address, payment_method, idempotency_key, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (*models.Order, error) {
	o := &models.Order{}
	var address string
	if err := row.Scan(&o.ID, &o.OrderNumber, &o.UserID, &o.Status, &o.Currency, &o.SubtotalCents,
		&o.TaxCents, &o.ShippingCents, &o.TotalCents, &address, &o.PaymentMethod, &o.IdempotencyKey,
		&o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(address), &o.ShippingAddress); err != nil {
		return nil, fmt.Errorf("failed to decode shipping address of order %s: %w", o.ID, err)
	}
	return o, nil
}

func (r *sqliteOrderRepo) Create(ctx context.Context, order *models.Order) error {
	address, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return fmt.Errorf("failed to encode shipping address: %w", err)
	}

	err = r.db.QueryRowContext(ctx, `
		INSERT INTO orders (order_number, user_id, status, currency, subtotal_cents, tax_cents,
			shipping_cents, total_cents, shipping_address, payment_method, idempotency_key)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id, created_at, updated_at`,
		order.OrderNumber, order.UserID, order.Status, order.Currency, order.SubtotalCents, order.TaxCents,
		order.ShippingCents, order.TotalCents, string(address), order.PaymentMethod, order.IdempotencyKey,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: order already exists", pkg.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create order: %w", err)
	}

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		if err := r.db.QueryRowContext(ctx, `
			INSERT INTO order_items (order_id, product_id, sku, name, unit_price_cents, quantity, line_total_cents)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			RETURNING id`,
			item.OrderID, item.ProductID, item.SKU, item.Name, item.UnitPriceCents, item.Quantity, item.LineTotalCents,
		).Scan(&item.ID); err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}
	return nil
}

func (r *sqliteOrderRepo) GetByID(ctx context.Context, id string) (*models.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
}

func (r *sqliteOrderRepo) GetByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_number = ?`, orderNumber)
}

func (r *sqliteOrderRepo) GetByIdempotencyKey(ctx context.Context, userID, key string) (*models.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = ? AND idempotency_key = ?`, userID, key)
}

func (r *sqliteOrderRepo) getOne(ctx context.Context, query string, args ...any) (*models.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	items, err := r.itemsFor(ctx, []string{order.ID})
	if err != nil {
		return nil, err
	}
	order.Items = items[order.ID]
	return order, nil
}

func (r *sqliteOrderRepo) List(ctx context.Context, f models.OrderFilter) ([]models.Order, int, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID)
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders`+clause+` ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		append(args, f.PerPage, f.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var (
		orders []models.Order
		ids    []string
	)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	items, err := r.itemsFor(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, total, nil
}

// itemsFor, sayfadaki tüm siparişlerin satırlarını tek sorguda yükler (N+1 yerine).
func (r *sqliteOrderRepo) itemsFor(ctx context.Context, orderIDs []string) (map[string][]models.OrderItem, error) {
	result := make(map[string][]models.OrderItem, len(orderIDs))
	if len(orderIDs) == 0 {
		return result, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, sku, name, unit_price_cents, quantity, line_total_cents
		FROM order_items WHERE order_id IN (`+placeholders(len(orderIDs))+`)
		ORDER BY rowid`, stringArgs(orderIDs)...)
	if err != nil {
		return nil, fmt.Errorf("failed to get order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it models.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.SKU, &it.Name,
			&it.UnitPriceCents, &it.Quantity, &it.LineTotalCents); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		result[it.OrderID] = append(result[it.OrderID], it)
	}
	return result, rows.Err()
}

func (r *sqliteOrderRepo) UpdateStatus(ctx context.Context, id string, from, to models.OrderStatus) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?`, to, id, from)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if err := expectAffected(result); err != nil {
		return fmt.Errorf("%w: order is no longer %s", pkg.ErrConflict, from)
	}
	return nil
}

func (r *sqliteOrderRepo) AddStatusChange(ctx context.Context, c *models.OrderStatusChange) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO order_status_history (order_id, from_status, to_status, note, changed_by)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id, created_at`,
		c.OrderID, c.FromStatus, c.ToStatus, c.Note, c.ChangedBy,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record order status change: %w", err)
	}
	return nil
}

func (r *sqliteOrderRepo) History(ctx context.Context, orderID string) ([]models.OrderStatusChange, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, from_status, to_status, note, changed_by, created_at
		FROM order_status_history WHERE order_id = ?
		ORDER BY created_at, rowid`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order history: %w", err)
	}
	defer rows.Close()

	history := []models.OrderStatusChange{}
	for rows.Next() {
		var c models.OrderStatusChange
		if err := rows.Scan(&c.ID, &c.OrderID, &c.FromStatus, &c.ToStatus, &c.Note, &c.ChangedBy, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order history: %w", err)
		}
		history = append(history, c)
	}
	return history, rows.Err()
}

func (r *sqliteOrderRepo) CountByStatus(ctx context.Context) (map[models.OrderStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.OrderStatus]int)
	for rows.Next() {
		var (
			status models.OrderStatus
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan order count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// created_at CURRENT_TIMESTAMP ile yazılır; karşılaştırma aynı UTC formatında yapılır.
const sqliteTimestamp = "2006-01-02 15:04:05"

func (r *sqliteOrderRepo) ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT order_number FROM orders
		 WHERE status = ? AND created_at < ?
		 ORDER BY created_at ASC
		 LIMIT ?`,
		models.OrderPending, createdBefore.UTC().Format(sqliteTimestamp), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale pending orders: %w", err)
	}
	defer rows.Close()

	var numbers []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to scan order number: %w", err)
		}
		numbers = append(numbers, n)
	}
	return numbers, rows.Err()
}

func (r *sqliteOrderRepo) SumTotals(ctx context.Context, statuses []models.OrderStatus) (int64, error) {
	if len(statuses) == 0 {
		return 0, nil
	}
	var sum int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(total_cents), 0) FROM orders WHERE status IN (`+placeholders(len(statuses))+`)`,
		statusArgs(statuses)...).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("failed to sum order totals: %w", err)
	}
	return sum, nil
}

func (r *sqliteOrderRepo) HasPurchased(ctx context.Context, userID, productID string, statuses []models.OrderStatus) (bool, error) {
	if len(statuses) == 0 {
		return false, nil
	}
	args := append([]any{userID, productID}, statusArgs(statuses)...)

	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM orders o JOIN order_items oi ON oi.order_id = o.id
			WHERE o.user_id = ? AND oi.product_id = ? AND o.status IN (`+placeholders(len(statuses))+`)
		)`, args...).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check purchase: %w", err)
	}
	return exists, nil
}

func statusArgs(statuses []models.OrderStatus) []any {
	args := make([]any, len(statuses))
	for i, s := range statuses {
		args[i] = string(s)
	}
	return args
}
