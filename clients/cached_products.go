package clients

import (
	"context"

	"github.com/goccy/go-json"

	"github.com/akinalp/storefront/models"
	"github.com/akinalp/storefront/pkg/cache"
	"github.com/akinalp/storefront/pkg/logger"
	"github.com/akinalp/storefront/pkg/metrics"
)

const productKeyPrefix = "product:"

// ProductSource, CachedProducts'ın arkasındaki gerçek kaynak
// (local repository veya RemoteProducts).
type ProductSource interface {
	GetProducts(ctx context.Context, ids []string) (map[string]*models.Product, error)
}

// ProductSourceFunc, repository.ProductRepository.GetByIDs gibi fonksiyonları
// ProductSource olarak kullanmak için.
type ProductSourceFunc func(ctx context.Context, ids []string) (map[string]*models.Product, error)

func (f ProductSourceFunc) GetProducts(ctx context.Context, ids []string) (map[string]*models.Product, error) {
	return f(ctx, ids)
}

// CachedProducts, ürün okumalarını cache.Store (memory veya Redis) önünden geçirir.
//
// Cache hatası sipariş akışını durdurmaz: okunamayan key miss sayılır,
// yazılamayan değer sadece loglanır. Ürün güncellendiğinde ProductService
// Invalidate çağırır; TTL ise diğer instance'ların değişikliklerini sınırlar.
type CachedProducts struct {
	source ProductSource
	store  cache.Store
}

func NewCachedProducts(source ProductSource, store cache.Store) *CachedProducts {
	return &CachedProducts{source: source, store: store}
}

func (c *CachedProducts) GetProducts(ctx context.Context, ids []string) (map[string]*models.Product, error) {
	result := make(map[string]*models.Product, len(ids))
	seen := make(map[string]struct{}, len(ids))
	var missing []string

	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		raw, ok, err := c.store.Get(ctx, productKeyPrefix+id)
		if err != nil {
			logger.Warn().Err(err).Str("product_id", id).Msg("[cache] product lookup failed")
		}
		if !ok {
			metrics.CacheLookups.WithLabelValues("miss").Inc()
			missing = append(missing, id)
			continue
		}

		var p models.Product
		if err := json.Unmarshal(raw, &p); err != nil {
			metrics.CacheLookups.WithLabelValues("miss").Inc()
			missing = append(missing, id)
			continue
		}
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		result[id] = &p
	}

	if len(missing) == 0 {
		return result, nil
	}

	fetched, err := c.source.GetProducts(ctx, missing)
	if err != nil {
		return nil, err
	}
	for id, p := range fetched {
		result[id] = p
		raw, err := json.Marshal(p)
		if err != nil {
			continue
		}
		if err := c.store.Set(ctx, productKeyPrefix+id, raw); err != nil {
			logger.Warn().Err(err).Str("product_id", id).Msg("[cache] failed to store product")
		}
	}
	return result, nil
}

// Invalidate, services.ProductCache'i karşılar.
func (c *CachedProducts) Invalidate(ctx context.Context, productID string) {
	if err := c.store.Delete(ctx, productKeyPrefix+productID); err != nil {
		logger.Warn().Err(err).Str("product_id", productID).Msg("[cache] failed to invalidate product")
	}
}
