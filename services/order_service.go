package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/akinalp/storefront/database"
	"github.com/akinalp/storefront/events"
	"github.com/akinalp/storefront/models"
	"github.com/akinalp/storefront/pkg"
	"github.com/akinalp/storefront/pkg/logger"
	"github.com/akinalp/storefront/pkg/metrics"
	"github.com/akinalp/storefront/repository"
)

// ProductLookup, sipariş akışının katalogdan fiyat ve durum okuması.
// In-process: ProductService. Ayrı instance: clients.RemoteProducts (+ cache).
// Bulunamayan id'ler map'te yer almaz.
type ProductLookup interface {
	GetProducts(ctx context.Context, ids []string) (map[string]*models.Product, error)
}

// InventoryGateway, sipariş akışının stok servisiyle konuştuğu yüzey.
// In-process: InventoryService. Ayrı instance: clients.RemoteInventory.
type InventoryGateway interface {
	Check(ctx context.Context, items []models.StockItem) ([]models.Availability, error)
	Reserve(ctx context.Context, key string, items []models.StockItem) (*models.Reservation, error)
	Release(ctx context.Context, key string) error
	Commit(ctx context.Context, key string) error
}

// CheckoutRules, sipariş toplamlarının hesaplanma kuralları. Tüm tutarlar minor unit.
type CheckoutRules struct {
	Currency              string
	TaxRateBps            int64
	FlatShippingCents     int64
	FreeShippingThreshold int64 // 0 = ücretsiz kargo yok
}

// Totals: vergi yarım yukarı yuvarlanır, kargo eşik ve üstünde ücretsizdir.
func (r CheckoutRules) Totals(subtotal int64) (tax, shipping, total int64) {
	tax = (subtotal*r.TaxRateBps + 5000) / 10000
	shipping = r.FlatShippingCents
	if r.FreeShippingThreshold > 0 && subtotal >= r.FreeShippingThreshold {
		shipping = 0
	}
	return tax, shipping, subtotal + tax + shipping
}

// OrderService, checkout akışı ve sipariş sorguları.
type OrderService interface {
	// CreateOrder, sepetten sipariş oluşturur. created=false ise aynı
	// idempotency key ile daha önce oluşturulmuş sipariş dönmüştür.
	CreateOrder(ctx context.Context, userID string, req *models.CreateOrderRequest) (order *models.Order, created bool, err error)
	// FindByIdempotencyKey, kullanıcının bu key ile açtığı siparişi döner; yoksa ErrNotFound.
	FindByIdempotencyKey(ctx context.Context, userID, key string) (*models.Order, error)
	ListMine(ctx context.Context, userID string, page models.Page) (*models.PagedResult[models.Order], error)
	// Get: sahibi veya admin değilse ErrNotFound (varlığı sızdırmamak için).
	Get(ctx context.Context, orderID, userID string, isAdmin bool) (*models.Order, error)
	Cancel(ctx context.Context, orderID, userID string) (*models.Order, error)
	History(ctx context.Context, orderID, userID string, isAdmin bool) ([]models.OrderStatusChange, error)

	AdminList(ctx context.Context, filter models.OrderFilter) (*models.PagedResult[models.Order], error)
	AdminUpdateStatus(ctx context.Context, orderID, adminID string, req *models.UpdateOrderStatusRequest) (*models.Order, error)
	// CancelStale, rezervasyonu süresi dolmuş pending siparişi sistem adına iptal eder.
	CancelStale(ctx context.Context, orderNumber string) error
	// StalePending, createdBefore'dan önce açılmış ve hâlâ pending olan sipariş numaraları.
	StalePending(ctx context.Context, createdBefore time.Time, limit int) ([]string, error)
}

type orderService struct {
	db        *sql.DB
	orderRepo repository.OrderRepository
	cartRepo  repository.CartRepository
	products  ProductLookup
	inventory InventoryGateway
	publisher events.Publisher
	rules     CheckoutRules
	status    *orderStatusChanger
	now       func() time.Time
}

func NewOrderService(
	db *sql.DB,
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	products ProductLookup,
	inventory InventoryGateway,
	publisher events.Publisher,
	rules CheckoutRules,
) OrderService {
	return &orderService{
		db:        db,
		orderRepo: orderRepo,
		cartRepo:  cartRepo,
		products:  products,
		inventory: inventory,
		publisher: publisher,
		rules:     rules,
		status:    &orderStatusChanger{db: db, inventory: inventory, publisher: publisher},
		now:       time.Now,
	}
}

// CreateOrder akışı:
//
//  1. Idempotency key ile önceki sipariş varsa onu dön
//  2. Sepeti yükle ve doğrula
//  3. Fiyat ve aktiflik katalogdan okunur (client fiyatına güvenilmez)
//  4. Stok kontrolü
//  5. Rezervasyon (key = sipariş numarası)
//  6. Toplamlar
//  7. Sipariş + satırlar + ilk history tek transaction; hata → rezervasyon bırakılır
//  8. Sepeti temizle (hata siparişi bozmaz)
//  9. order.created yayınla
func (s *orderService) CreateOrder(ctx context.Context, userID string, req *models.CreateOrderRequest) (*models.Order, bool, error) {
	if err := req.Validate(); err != nil {
		metrics.OrdersFailed.WithLabelValues("validation").Inc()
		return nil, false, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	var idemKey *string
	if req.IdempotencyKey != "" {
		idemKey = &req.IdempotencyKey

		existing, err := s.FindByIdempotencyKey(ctx, userID, req.IdempotencyKey)
		if err == nil {
			logger.Info().Str("order_id", existing.ID).Msg("[order] idempotent replay")
			return existing, false, nil
		}
		if !errors.Is(err, pkg.ErrNotFound) {
			return nil, false, err
		}
	}

	cart, err := s.cartRepo.Items(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	if len(cart) == 0 {
		metrics.OrdersFailed.WithLabelValues("cart").Inc()
		return nil, false, fmt.Errorf("%w: cart is empty", pkg.ErrBadRequest)
	}

	stockItems := make([]models.StockItem, 0, len(cart))
	for _, item := range cart {
		if item.Quantity < 1 || item.Quantity > maxLineQuantity {
			metrics.OrdersFailed.WithLabelValues("cart").Inc()
			return nil, false, fmt.Errorf("%w: quantity for %s must be between 1 and %d",
				pkg.ErrBadRequest, item.SKU, maxLineQuantity)
		}
		stockItems = append(stockItems, models.StockItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	lines, err := s.priceLines(ctx, cart)
	if err != nil {
		metrics.OrdersFailed.WithLabelValues("catalog").Inc()
		return nil, false, err
	}

	if err := s.checkStock(ctx, stockItems, lines); err != nil {
		metrics.OrdersFailed.WithLabelValues("stock").Inc()
		return nil, false, err
	}

	orderNumber := s.newOrderNumber()
	if _, err := s.inventory.Reserve(ctx, orderNumber, stockItems); err != nil {
		metrics.OrdersFailed.WithLabelValues("reserve").Inc()
		if errors.Is(err, pkg.ErrConflict) {
			return nil, false, err
		}
		return nil, false, fmt.Errorf("failed to reserve stock: %w", err)
	}

	var subtotal int64
	for _, line := range lines {
		subtotal += line.LineTotalCents
	}
	tax, shipping, total := s.rules.Totals(subtotal)

	order := &models.Order{
		OrderNumber:     orderNumber,
		UserID:          userID,
		Status:          models.OrderPending,
		Currency:        s.rules.Currency,
		SubtotalCents:   subtotal,
		TaxCents:        tax,
		ShippingCents:   shipping,
		TotalCents:      total,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		IdempotencyKey:  idemKey,
		Items:           lines,
	}

	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := repository.NewSQLiteOrderRepo(tx)
		if err := repo.Create(ctx, order); err != nil {
			return err
		}
		return repo.AddStatusChange(ctx, &models.OrderStatusChange{
			OrderID:   order.ID,
			ToStatus:  models.OrderPending,
			Note:      "order placed",
			ChangedBy: &userID,
		})
	})
	if err != nil {
		metrics.OrdersFailed.WithLabelValues("persist").Inc()
		s.compensate(ctx, orderNumber)

		// Aynı key ile eşzamanlı iki istek: kaybeden taraf kazananın siparişini döner
		if idemKey != nil && errors.Is(err, pkg.ErrAlreadyExists) {
			if existing, getErr := s.orderRepo.GetByIdempotencyKey(ctx, userID, *idemKey); getErr == nil {
				return existing, false, nil
			}
		}
		return nil, false, err
	}

	if err := s.cartRepo.Clear(ctx, userID); err != nil {
		logger.Warn().Err(err).Str("order_id", order.ID).Msg("[order] failed to clear cart after checkout")
	}

	metrics.OrdersCreated.Inc()
	metrics.OrderRevenueCents.Add(float64(order.TotalCents))
	logger.Info().
		Str("order_id", order.ID).
		Str("order_number", order.OrderNumber).
		Str("user_id", userID).
		Int64("total_cents", order.TotalCents).
		Msg("[order] order created")

	if s.publisher != nil {
		s.publisher.Publish(ctx, events.TopicOrderCreated, events.OrderCreated{Order: *order})
	}
	return order, true, nil
}

// priceLines, sepet satırlarını katalogdaki güncel fiyatla sipariş satırına çevirir.
func (s *orderService) priceLines(ctx context.Context, cart []models.CartItem) ([]models.OrderItem, error) {
	ids := make([]string, len(cart))
	for i, item := range cart {
		ids[i] = item.ProductID
	}

	products, err := s.products.GetProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	lines := make([]models.OrderItem, 0, len(cart))
	for _, item := range cart {
		p, ok := products[item.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: product %s no longer exists", pkg.ErrBadRequest, item.ProductID)
		}
		if !p.IsActive {
			return nil, fmt.Errorf("%w: product %s (%s) is no longer available", pkg.ErrBadRequest, p.Name, p.SKU)
		}
		lines = append(lines, models.OrderItem{
			ProductID:      p.ID,
			SKU:            p.SKU,
			Name:           p.Name,
			UnitPriceCents: p.PriceCents,
			Quantity:       item.Quantity,
			LineTotalCents: p.PriceCents * int64(item.Quantity),
		})
	}
	return lines, nil
}

// checkStock, yetersiz tüm satırları tek hata mesajında listeler.
func (s *orderService) checkStock(ctx context.Context, items []models.StockItem, lines []models.OrderItem) error {
	availability, err := s.inventory.Check(ctx, items)
	if err != nil {
		return fmt.Errorf("failed to check stock: %w", err)
	}

	skus := make(map[string]string, len(lines))
	for _, line := range lines {
		skus[line.ProductID] = line.SKU
	}

	var short []string
	for _, a := range availability {
		if !a.OK {
			short = append(short, fmt.Sprintf("%s (requested %d, available %d)", skus[a.ProductID], a.Requested, a.Available))
		}
	}
	if len(short) > 0 {
		return fmt.Errorf("%w: insufficient stock: %s", pkg.ErrConflict, strings.Join(short, ", "))
	}
	return nil
}

// compensate, persist başarısız olduğunda rezervasyonu bırakır. Release de
// başarısız olursa rezervasyon süre dolunca maintenance job tarafından bırakılır.
func (s *orderService) compensate(ctx context.Context, orderNumber string) {
	if err := s.inventory.Release(context.WithoutCancel(ctx), orderNumber); err != nil {
		logger.Error().Err(err).Str("order_number", orderNumber).Msg("[order] failed to release reservation after persist failure")
		return
	}
	logger.Warn().Str("order_number", orderNumber).Msg("[order] reservation released after persist failure")
}

// newOrderNumber: ORD-20260102-1A2B3C4D
func (s *orderService) newOrderNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return "ORD-" + s.now().UTC().Format("20060102") + "-" + suffix
}

func (s *orderService) ListMine(ctx context.Context, userID string, page models.Page) (*models.PagedResult[models.Order], error) {
	return s.list(ctx, models.OrderFilter{UserID: userID, Page: page})
}

func (s *orderService) AdminList(ctx context.Context, filter models.OrderFilter) (*models.PagedResult[models.Order], error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown order status %q", pkg.ErrBadRequest, filter.Status)
	}
	return s.list(ctx, filter)
}

func (s *orderService) list(ctx context.Context, filter models.OrderFilter) (*models.PagedResult[models.Order], error) {
	filter.Page.Normalize()
	orders, total, err := s.orderRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	result := models.NewPagedResult(orders, total, filter.Page)
	return &result, nil
}

func (s *orderService) Get(ctx context.Context, orderID, userID string, isAdmin bool) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && order.UserID != userID {
		return nil, pkg.ErrNotFound
	}
	return order, nil
}

func (s *orderService) History(ctx context.Context, orderID, userID string, isAdmin bool) ([]models.OrderStatusChange, error) {
	if _, err := s.Get(ctx, orderID, userID, isAdmin); err != nil {
		return nil, err
	}
	history, err := s.orderRepo.History(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if history == nil {
		history = []models.OrderStatusChange{}
	}
	return history, nil
}

// Cancel, müşteri iptali. Sadece pending ve paid siparişler iptal edilebilir.
func (s *orderService) Cancel(ctx context.Context, orderID, userID string) (*models.Order, error) {
	order, err := s.Get(ctx, orderID, userID, false)
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderPending && order.Status != models.OrderPaid {
		return nil, fmt.Errorf("%w: only pending or paid orders can be cancelled", pkg.ErrConflict)
	}

	if err := s.status.apply(ctx, order, statusChange{
		to:        models.OrderCancelled,
		note:      "cancelled by customer",
		changedBy: &userID,
	}); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *orderService) AdminUpdateStatus(ctx context.Context, orderID, adminID string, req *models.UpdateOrderStatusRequest) (*models.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == req.Status {
		return order, nil
	}

	if err := s.status.apply(ctx, order, statusChange{
		to:        req.Status,
		note:      req.Note,
		changedBy: &adminID,
	}); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *orderService) FindByIdempotencyKey(ctx context.Context, userID, key string) (*models.Order, error) {
	return s.orderRepo.GetByIdempotencyKey(ctx, userID, key)
}

func (s *orderService) StalePending(ctx context.Context, createdBefore time.Time, limit int) ([]string, error) {
	return s.orderRepo.ListStalePending(ctx, createdBefore, limit)
}

func (s *orderService) CancelStale(ctx context.Context, orderNumber string) error {
	order, err := s.orderRepo.GetByNumber(ctx, orderNumber)
	if err != nil {
		return err
	}
	if order.Status != models.OrderPending {
		return nil
	}
	return s.status.apply(ctx, order, statusChange{
		to:   models.OrderCancelled,
		note: "reservation expired",
	})
}
