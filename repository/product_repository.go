package repository

import (
	"context"

	"github.com/akinalp/storefront/models"
)

// ProductRepository, katalog işlemleri.
type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id string) (*models.Product, error)
	// GetByIDs, bulunamayan id'leri sessizce atlar; caller eksikleri kontrol eder.
	GetByIDs(ctx context.Context, ids []string) (map[string]*models.Product, error)
	List(ctx context.Context, filter models.ProductFilter) ([]models.Product, int, error)
	Update(ctx context.Context, product *models.Product) error
	SetImage(ctx context.Context, id, imageURL string) error
	SetRating(ctx context.Context, id string, summary models.RatingSummary) error
	Categories(ctx context.Context) ([]string, error)
	// Count: (toplam, aktif)
	Count(ctx context.Context) (int, int, error)
}
