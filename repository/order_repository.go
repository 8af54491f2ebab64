package repository

import (
	"context"
	"time"

	"github.com/akinalp/storefront/models"
)

// OrderRepository, sipariş, sipariş satırı ve durum geçmişi işlemleri.
type OrderRepository interface {
	// Create, siparişi ve satırlarını yazar. Transaction caller'ın sorumluluğundadır.
	// (user_id, idempotency_key) çakışırsa pkg.ErrAlreadyExists.
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	GetByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	GetByIdempotencyKey(ctx context.Context, userID, key string) (*models.Order, error)
	List(ctx context.Context, filter models.OrderFilter) ([]models.Order, int, error)
	// UpdateStatus, optimistic geçiş: sadece mevcut durum from ise yazar, değilse pkg.ErrConflict.
	UpdateStatus(ctx context.Context, id string, from, to models.OrderStatus) error
	AddStatusChange(ctx context.Context, change *models.OrderStatusChange) error
	History(ctx context.Context, orderID string) ([]models.OrderStatusChange, error)
	CountByStatus(ctx context.Context) (map[models.OrderStatus]int, error)
	SumTotals(ctx context.Context, statuses []models.OrderStatus) (int64, error)
	// ListStalePending, createdBefore'dan önce açılmış pending siparişlerin numaraları (en eskiden).
	ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]string, error)
	// HasPurchased, kullanıcının verilen durumlardaki bir siparişinde ürün var mı.
	HasPurchased(ctx context.Context, userID, productID string, statuses []models.OrderStatus) (bool, error)
}
