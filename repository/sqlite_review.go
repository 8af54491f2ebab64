package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/akinalp/storefront/database"
	"github.com/akinalp/storefront/models"
	"github.com/akinalp/storefront/pkg"
)

type sqliteReviewRepo struct {
	db database.TxQuerier
}

func NewSQLiteReviewRepo(db database.TxQuerier) ReviewRepository {
	return &sqliteReviewRepo{db: db}
}

const reviewSelect = `
	SELECT r.id, r.product_id, r.user_id, u.username, r.rating, r.title, r.body, r.created_at, r.updated_at
	FROM reviews r JOIN users u ON u.id = r.user_id`

func scanReview(row interface{ Scan(...any) error }) (*models.Review, error) {
	rv := &models.Review{}
	err := row.Scan(&rv.ID, &rv.ProductID, &rv.UserID, &rv.Username, &rv.Rating, &rv.Title, &rv.Body,
		&rv.CreatedAt, &rv.UpdatedAt)
	return rv, err
}

func (r *sqliteReviewRepo) Create(ctx context.Context, rv *models.Review) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO reviews (product_id, user_id, rating, title, body)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id, created_at, updated_at`,
		rv.ProductID, rv.UserID, rv.Rating, rv.Title, rv.Body,
	).Scan(&rv.ID, &rv.CreatedAt, &rv.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: you have already reviewed this product", pkg.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create review: %w", err)
	}
	return nil
}

func (r *sqliteReviewRepo) GetByID(ctx context.Context, id string) (*models.Review, error) {
	rv, err := scanReview(r.db.QueryRowContext(ctx, reviewSelect+` WHERE r.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	return rv, nil
}

func (r *sqliteReviewRepo) ListByProduct(ctx context.Context, productID string, page models.Page) ([]models.Review, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reviews WHERE product_id = ?`, productID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count reviews: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		reviewSelect+` WHERE r.product_id = ? ORDER BY r.created_at DESC, r.rowid DESC LIMIT ? OFFSET ?`,
		productID, page.PerPage, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []models.Review
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, *rv)
	}
	return reviews, total, rows.Err()
}

func (r *sqliteReviewRepo) Update(ctx context.Context, rv *models.Review) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE reviews SET rating = ?, title = ?, body = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, rv.Rating, rv.Title, rv.Body, rv.ID)
	if err != nil {
		return fmt.Errorf("failed to update review: %w", err)
	}
	return expectAffected(result)
}

func (r *sqliteReviewRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	return expectAffected(result)
}

func (r *sqliteReviewRepo) Summary(ctx context.Context, productID string) (models.RatingSummary, error) {
	var (
		s   models.RatingSummary
		avg sql.NullFloat64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT AVG(rating), COUNT(*) FROM reviews WHERE product_id = ?`, productID).Scan(&avg, &s.Count)
	if err != nil {
		return s, fmt.Errorf("failed to summarise reviews: %w", err)
	}
	if avg.Valid {
		s.Average = math.Round(avg.Float64*100) / 100
	}
	return s, nil
}
