package repository

import (
	"context"
	"time"

	"github.com/akinalp/storefront/models"
)

// InventoryRepository, stok ve rezervasyon işlemleri.
//
// Reserve/Unreserve/Commit tek satırlık koşullu UPDATE'lerdir; birden fazla
// ürünü kapsayan all-or-nothing işlemler service katmanında transaction
// içinde tx-bound repo ile çağrılır.
type InventoryRepository interface {
	Create(ctx context.Context, inv *models.Inventory) error
	Get(ctx context.Context, productID string) (*models.Inventory, error)
	GetMany(ctx context.Context, productIDs []string) (map[string]*models.Inventory, error)
	// Adjust: set nil değilse on_hand = *set, aksi halde on_hand += delta.
	// on_hand reserved'ın altına inemez → pkg.ErrConflict.
	Adjust(ctx context.Context, productID string, set *int, delta int, threshold *int) (*models.Inventory, error)
	ListLow(ctx context.Context) ([]models.Inventory, error)
	CountLow(ctx context.Context) (int, error)

	// Reserve, available yeterliyse reserved += qty. Yetersizse pkg.ErrConflict.
	Reserve(ctx context.Context, productID string, qty int) error
	Unreserve(ctx context.Context, productID string, qty int) error
	// Commit, rezerve edilen miktarı kalıcı olarak stoktan düşer.
	Commit(ctx context.Context, productID string, qty int) error

	CreateReservation(ctx context.Context, res *models.Reservation) error
	GetReservation(ctx context.Context, key string) (*models.Reservation, error)
	// TransitionReservation, sadece mevcut durum from ise günceller; değilse pkg.ErrConflict.
	TransitionReservation(ctx context.Context, key string, from, to models.ReservationStatus) error
	ListExpiredReservations(ctx context.Context, now time.Time, limit int) ([]string, error)
}
