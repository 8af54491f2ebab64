package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/akinalp/storefront/database"
	"github.com/akinalp/storefront/events"
	"github.com/akinalp/storefront/models"
	"github.com/akinalp/storefront/pkg"
	"github.com/akinalp/storefront/pkg/logger"
	"github.com/akinalp/storefront/repository"
)

// InventoryService, stok ve rezervasyon işlemleri.
//
// Rezervasyon yaşam döngüsü:
//
//	Reserve  → pending   (reserved += qty)
//	Commit   → committed (on_hand -= qty, reserved -= qty)
//	Release  → released  (pending ise reserved -= qty; committed ise on_hand += qty)
//
// Tüm geçişler key bazında idempotent'tir: aynı key ile tekrar gelen çağrı
// stoğu ikinci kez değiştirmez. Bu sayede uzak servis çağrıları güvenle retry edilir.
type InventoryService interface {
	Get(ctx context.Context, productID string) (*models.Inventory, error)
	Check(ctx context.Context, items []models.StockItem) ([]models.Availability, error)
	Reserve(ctx context.Context, key string, items []models.StockItem) (*models.Reservation, error)
	Release(ctx context.Context, key string) error
	Commit(ctx context.Context, key string) error
	Adjust(ctx context.Context, productID string, req *models.AdjustStockRequest) (*models.Inventory, error)
	ListLow(ctx context.Context) ([]models.Inventory, error)
	// ReleaseExpired, süresi dolmuş pending rezervasyonları bırakır ve key'lerini döner.
	ReleaseExpired(ctx context.Context, limit int) ([]string, error)
}

type inventoryService struct {
	db             *sql.DB
	inventoryRepo  repository.InventoryRepository
	publisher      events.Publisher
	reservationTTL time.Duration
	now            func() time.Time
}

func NewInventoryService(
	db *sql.DB,
	inventoryRepo repository.InventoryRepository,
	publisher events.Publisher,
	reservationTTL time.Duration,
) InventoryService {
	return &inventoryService{
		db:             db,
		inventoryRepo:  inventoryRepo,
		publisher:      publisher,
		reservationTTL: reservationTTL,
		now:            time.Now,
	}
}

func (s *inventoryService) Get(ctx context.Context, productID string) (*models.Inventory, error) {
	return s.inventoryRepo.Get(ctx, productID)
}

// Check, her satır için istenen ve mevcut miktarı döner. Inventory satırı
// olmayan ürün 0 stoklu sayılır.
func (s *inventoryService) Check(ctx context.Context, items []models.StockItem) ([]models.Availability, error) {
	items, err := mergeItems(items)
	if err != nil {
		return nil, err
	}

	stock, err := s.inventoryRepo.GetMany(ctx, productIDs(items))
	if err != nil {
		return nil, err
	}

	result := make([]models.Availability, 0, len(items))
	for _, item := range items {
		available := 0
		if inv, ok := stock[item.ProductID]; ok {
			available = inv.Available
		}
		result = append(result, models.Availability{
			ProductID: item.ProductID,
			Requested: item.Quantity,
			Available: available,
			OK:        available >= item.Quantity,
		})
	}
	return result, nil
}

// Reserve, tüm satırları tek transaction'da ayırır; biri yetersizse hiçbiri ayrılmaz.
func (s *inventoryService) Reserve(ctx context.Context, key string, items []models.StockItem) (*models.Reservation, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: reservation key is required", pkg.ErrBadRequest)
	}
	items, err := mergeItems(items)
	if err != nil {
		return nil, err
	}

	var (
		reservation *models.Reservation
		replayed    bool
	)
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := repository.NewSQLiteInventoryRepo(tx)

		existing, err := repo.GetReservation(ctx, key)
		if err == nil {
			if existing.Status == models.ReservationReleased {
				return fmt.Errorf("%w: reservation %s was already released", pkg.ErrConflict, key)
			}
			reservation = existing
			replayed = true
			return nil
		}
		if !errors.Is(err, pkg.ErrNotFound) {
			return err
		}

		for _, item := range items {
			if err := repo.Reserve(ctx, item.ProductID, item.Quantity); err != nil {
				if errors.Is(err, pkg.ErrConflict) || errors.Is(err, pkg.ErrNotFound) {
					return fmt.Errorf("%w: insufficient stock for product %s", pkg.ErrConflict, item.ProductID)
				}
				return err
			}
		}

		reservation = &models.Reservation{
			Key:       key,
			Status:    models.ReservationPending,
			Items:     items,
			ExpiresAt: s.now().Add(s.reservationTTL).UTC(),
		}
		return repo.CreateReservation(ctx, reservation)
	})
	if err != nil {
		return nil, err
	}

	if !replayed {
		logger.Info().Str("reservation_key", key).Int("items", len(items)).Msg("[inventory] stock reserved")
		s.publishStock(ctx, productIDs(items))
	}
	return reservation, nil
}

func (s *inventoryService) Release(ctx context.Context, key string) error {
	var (
		items   []models.StockItem
		changed bool
	)
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := repository.NewSQLiteInventoryRepo(tx)

		res, err := repo.GetReservation(ctx, key)
		if err != nil {
			return err
		}
		items = res.Items

		switch res.Status {
		case models.ReservationReleased:
			return nil
		case models.ReservationPending:
			if err := repo.TransitionReservation(ctx, key, models.ReservationPending, models.ReservationReleased); err != nil {
				return err
			}
			for _, item := range res.Items {
				if err := repo.Unreserve(ctx, item.ProductID, item.Quantity); err != nil {
					return err
				}
			}
		case models.ReservationCommitted:
			// Ödemesi alınmış sipariş iptal/iade edildi: düşülen stok geri eklenir
			if err := repo.TransitionReservation(ctx, key, models.ReservationCommitted, models.ReservationReleased); err != nil {
				return err
			}
			for _, item := range res.Items {
				if _, err := repo.Adjust(ctx, item.ProductID, nil, item.Quantity, nil); err != nil {
					return err
				}
			}
		}
		changed = true
		return nil
	})
	if err != nil {
		return err
	}

	if changed {
		logger.Info().Str("reservation_key", key).Msg("[inventory] reservation released")
		s.publishStock(ctx, productIDs(items))
	}
	return nil
}

func (s *inventoryService) Commit(ctx context.Context, key string) error {
	var (
		items   []models.StockItem
		changed bool
	)
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := repository.NewSQLiteInventoryRepo(tx)

		res, err := repo.GetReservation(ctx, key)
		if err != nil {
			return err
		}
		items = res.Items

		switch res.Status {
		case models.ReservationCommitted:
			return nil
		case models.ReservationReleased:
			return fmt.Errorf("%w: reservation %s was already released", pkg.ErrConflict, key)
		}

		if err := repo.TransitionReservation(ctx, key, models.ReservationPending, models.ReservationCommitted); err != nil {
			return err
		}
		for _, item := range res.Items {
			if err := repo.Commit(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}
		changed = true
		return nil
	})
	if err != nil {
		return err
	}

	if changed {
		logger.Info().Str("reservation_key", key).Msg("[inventory] reservation committed")
		s.publishStock(ctx, productIDs(items))
	}
	return nil
}

func (s *inventoryService) Adjust(ctx context.Context, productID string, req *models.AdjustStockRequest) (*models.Inventory, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	inv, err := s.inventoryRepo.Adjust(ctx, productID, req.Set, req.Delta, req.LowStockThreshold)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("product_id", productID).
		Int("on_hand", inv.QuantityOnHand).
		Int("available", inv.Available).
		Msg("[inventory] stock adjusted")

	s.publishStock(ctx, []string{productID})
	return inv, nil
}

func (s *inventoryService) ListLow(ctx context.Context) ([]models.Inventory, error) {
	return s.inventoryRepo.ListLow(ctx)
}

func (s *inventoryService) ReleaseExpired(ctx context.Context, limit int) ([]string, error) {
	keys, err := s.inventoryRepo.ListExpiredReservations(ctx, s.now(), limit)
	if err != nil {
		return nil, err
	}

	released := make([]string, 0, len(keys))
	for _, key := range keys {
		if err := s.Release(ctx, key); err != nil {
			logger.Warn().Err(err).Str("reservation_key", key).Msg("[inventory] failed to release expired reservation")
			continue
		}
		released = append(released, key)
	}
	return released, nil
}

// publishStock, değişen ürünlerin güncel stoğunu yayınlar; eşik altındakiler
// için ayrıca low_stock event'i atılır.
func (s *inventoryService) publishStock(ctx context.Context, ids []string) {
	if s.publisher == nil || len(ids) == 0 {
		return
	}

	stock, err := s.inventoryRepo.GetMany(ctx, ids)
	if err != nil {
		logger.Warn().Err(err).Msg("[inventory] failed to load stock for broadcast")
		return
	}

	items := make([]models.Inventory, 0, len(stock))
	for _, id := range ids {
		inv, ok := stock[id]
		if !ok {
			continue
		}
		items = append(items, *inv)
		if inv.IsLow() {
			s.publisher.Publish(ctx, events.TopicLowStock, events.LowStock{Inventory: *inv})
		}
	}
	s.publisher.Publish(ctx, events.TopicInventoryUpdated, events.InventoryUpdated{Items: items})
}

// mergeItems, aynı ürünün birden fazla satırını toplar ve miktarları doğrular.
// Sıra ürünün ilk görüldüğü sıradır.
func mergeItems(items []models.StockItem) ([]models.StockItem, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: at least one item is required", pkg.ErrBadRequest)
	}

	merged := make([]models.StockItem, 0, len(items))
	for _, item := range items {
		if item.ProductID == "" {
			return nil, fmt.Errorf("%w: product_id is required", pkg.ErrBadRequest)
		}
		if item.Quantity < 1 || item.Quantity > maxLineQuantity {
			return nil, fmt.Errorf("%w: quantity for product %s must be between 1 and %d",
				pkg.ErrBadRequest, item.ProductID, maxLineQuantity)
		}
		i := slices.IndexFunc(merged, func(m models.StockItem) bool { return m.ProductID == item.ProductID })
		if i < 0 {
			merged = append(merged, item)
			continue
		}
		merged[i].Quantity += item.Quantity
	}
	return merged, nil
}

func productIDs(items []models.StockItem) []string {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}
	return ids
}
