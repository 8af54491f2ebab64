package repository

import (
	"context"

	"github.com/akinalp/storefront/models"
)

type ReviewRepository interface {
	// Create: aynı kullanıcı aynı ürüne ikinci yorum → pkg.ErrAlreadyExists.
	Create(ctx context.Context, review *models.Review) error
	GetByID(ctx context.Context, id string) (*models.Review, error)
	ListByProduct(ctx context.Context, productID string, page models.Page) ([]models.Review, int, error)
	Update(ctx context.Context, review *models.Review) error
	Delete(ctx context.Context, id string) error
	// Summary, ürünün güncel ortalama ve sayısını hesaplar.
	Summary(ctx context.Context, productID string) (models.RatingSummary, error)
}
