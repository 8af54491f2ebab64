package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/akinalp/storefront/database"
	"github.com/akinalp/storefront/models"
	"github.com/akinalp/storefront/pkg"
	"github.com/akinalp/storefront/repository"
)

// purchasedStatuses, yorum hakkı veren sipariş durumları.
var purchasedStatuses = []models.OrderStatus{
	models.OrderPaid, models.OrderProcessing, models.OrderShipped, models.OrderDelivered,
}

// ReviewService, ürün yorumları. Her değişiklikte ürünün rating özeti
// aynı transaction içinde yeniden hesaplanır.
type ReviewService interface {
	ListByProduct(ctx context.Context, productID string, page models.Page) (*models.PagedResult[models.Review], error)
	Create(ctx context.Context, productID, userID string, req *models.CreateReviewRequest) (*models.Review, error)
	Update(ctx context.Context, reviewID, userID string, req *models.UpdateReviewRequest) (*models.Review, error)
	// Delete: sahibi veya admin silebilir.
	Delete(ctx context.Context, reviewID, userID string, isAdmin bool) error
}

type reviewService struct {
	db          *sql.DB
	reviewRepo  repository.ReviewRepository
	productRepo repository.ProductRepository
	orderRepo   repository.OrderRepository
}

func NewReviewService(
	db *sql.DB,
	reviewRepo repository.ReviewRepository,
	productRepo repository.ProductRepository,
	orderRepo repository.OrderRepository,
) ReviewService {
	return &reviewService{
		db:          db,
		reviewRepo:  reviewRepo,
		productRepo: productRepo,
		orderRepo:   orderRepo,
	}
}

func (s *reviewService) ListByProduct(ctx context.Context, productID string, page models.Page) (*models.PagedResult[models.Review], error) {
	if _, err := s.productRepo.GetByID(ctx, productID); err != nil {
		return nil, err
	}

	page.Normalize()
	reviews, total, err := s.reviewRepo.ListByProduct(ctx, productID, page)
	if err != nil {
		return nil, err
	}
	result := models.NewPagedResult(reviews, total, page)
	return &result, nil
}

func (s *reviewService) Create(ctx context.Context, productID, userID string, req *models.CreateReviewRequest) (*models.Review, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, pkg.ErrNotFound
	}

	purchased, err := s.orderRepo.HasPurchased(ctx, userID, productID, purchasedStatuses)
	if err != nil {
		return nil, err
	}
	if !purchased {
		return nil, fmt.Errorf("%w: only customers who purchased this product can review it", pkg.ErrForbidden)
	}

	review := &models.Review{
		ProductID: productID,
		UserID:    userID,
		Rating:    req.Rating,
		Title:     req.Title,
		Body:      req.Body,
	}

	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := repository.NewSQLiteReviewRepo(tx).Create(ctx, review); err != nil {
			return err
		}
		return refreshRating(ctx, tx, productID)
	})
	if err != nil {
		return nil, err
	}
	return s.reviewRepo.GetByID(ctx, review.ID)
}

func (s *reviewService) Update(ctx context.Context, reviewID, userID string, req *models.UpdateReviewRequest) (*models.Review, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	review, err := s.reviewRepo.GetByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review.UserID != userID {
		return nil, fmt.Errorf("%w: you can only edit your own reviews", pkg.ErrForbidden)
	}

	if req.Rating != nil {
		review.Rating = *req.Rating
	}
	if req.Title != nil {
		review.Title = *req.Title
	}
	if req.Body != nil {
		review.Body = *req.Body
	}

	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := repository.NewSQLiteReviewRepo(tx).Update(ctx, review); err != nil {
			return err
		}
		return refreshRating(ctx, tx, review.ProductID)
	})
	if err != nil {
		return nil, err
	}
	return s.reviewRepo.GetByID(ctx, review.ID)
}

func (s *reviewService) Delete(ctx context.Context, reviewID, userID string, isAdmin bool) error {
	review, err := s.reviewRepo.GetByID(ctx, reviewID)
	if err != nil {
		return err
	}
	if !isAdmin && review.UserID != userID {
		return fmt.Errorf("%w: you can only delete your own reviews", pkg.ErrForbidden)
	}

	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := repository.NewSQLiteReviewRepo(tx).Delete(ctx, review.ID); err != nil {
			return err
		}
		return refreshRating(ctx, tx, review.ProductID)
	})
}

func refreshRating(ctx context.Context, tx *sql.Tx, productID string) error {
	summary, err := repository.NewSQLiteReviewRepo(tx).Summary(ctx, productID)
	if err != nil {
		return err
	}
	return repository.NewSQLiteProductRepo(tx).SetRating(ctx, productID, summary)
}
