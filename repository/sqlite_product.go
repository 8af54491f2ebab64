package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/akinalp/storefront/database"
	"github.com/akinalp/storefront/models"
	"github.com/akinalp/storefront/pkg"
)

type sqliteProductRepo struct {
	db database.TxQuerier
}

func NewSQLiteProductRepo(db database.TxQuerier) ProductRepository {
	return &sqliteProductRepo{db: db}
}

const productColumns = `id, sku, name, description, price_cents, currency, category, image_url,
	is_active, rating_avg, rating_count, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (*models.Product, error) {
	p := &models.Product{}
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.PriceCents, &p.Currency, &p.Category,
		&p.ImageURL, &p.IsActive, &p.RatingAvg, &p.RatingCount, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *sqliteProductRepo) Create(ctx context.Context, product *models.Product) error {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO products (sku, name, description, price_cents, currency, category, image_url, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+productColumns,
		product.SKU, product.Name, product.Description, product.PriceCents,
		product.Currency, product.Category, product.ImageURL, product.IsActive)

	created, err := scanProduct(row)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: sku %s already exists", pkg.ErrAlreadyExists, product.SKU)
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	*product = *created
	return nil
}

func (r *sqliteProductRepo) GetByID(ctx context.Context, id string) (*models.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

func (r *sqliteProductRepo) GetByIDs(ctx context.Context, ids []string) (map[string]*models.Product, error) {
	result := make(map[string]*models.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id IN (`+placeholders(len(ids))+`)`,
		stringArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("failed to get products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		result[p.ID] = p
	}
	return result, rows.Err()
}

// List, filtreyi dinamik WHERE cümlesine çevirir. Sütun adları sabit
// olduğu için sadece değerler parametre olarak geçer.
func (r *sqliteProductRepo) List(ctx context.Context, f models.ProductFilter) ([]models.Product, int, error) {
	var (
		where []string
		args  []any
	)

	if !f.IncludeHidden {
		where = append(where, "is_active = 1")
	}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if f.Search != "" {
		where = append(where, "(name LIKE ? ESCAPE '\\' OR description LIKE ? ESCAPE '\\' OR sku LIKE ? ESCAPE '\\')")
		like := "%" + escapeLike(f.Search) + "%"
		args = append(args, like, like, like)
	}
	if f.MinPriceCents > 0 {
		where = append(where, "price_cents >= ?")
		args = append(args, f.MinPriceCents)
	}
	if f.MaxPriceCents > 0 {
		where = append(where, "price_cents <= ?")
		args = append(args, f.MaxPriceCents)
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	order := "created_at DESC, id"
	switch f.Sort {
	case models.SortPriceAsc:
		order = "price_cents ASC, id"
	case models.SortPriceDesc:
		order = "price_cents DESC, id"
	case models.SortRating:
		order = "rating_avg DESC, rating_count DESC, id"
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products`+clause+` ORDER BY `+order+` LIMIT ? OFFSET ?`,
		append(args, f.PerPage, f.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, total, rows.Err()
}

func (r *sqliteProductRepo) Update(ctx context.Context, p *models.Product) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET name = ?, description = ?, price_cents = ?, category = ?, is_active = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		p.Name, p.Description, p.PriceCents, p.Category, p.IsActive, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	return expectAffected(result)
}

func (r *sqliteProductRepo) SetImage(ctx context.Context, id, imageURL string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE products SET image_url = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, imageURL, id)
	if err != nil {
		return fmt.Errorf("failed to set product image: %w", err)
	}
	return expectAffected(result)
}

func (r *sqliteProductRepo) SetRating(ctx context.Context, id string, s models.RatingSummary) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE products SET rating_avg = ?, rating_count = ? WHERE id = ?`, s.Average, s.Count, id)
	if err != nil {
		return fmt.Errorf("failed to set product rating: %w", err)
	}
	return expectAffected(result)
}

func (r *sqliteProductRepo) Categories(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT category FROM products WHERE is_active = 1 AND category != '' ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *sqliteProductRepo) Count(ctx context.Context) (int, int, error) {
	var total, active int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(is_active), 0) FROM products`).Scan(&total, &active)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count products: %w", err)
	}
	return total, active, nil
}

// escapeLike, LIKE pattern'ındaki % ve _ karakterlerini literal yapar.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
