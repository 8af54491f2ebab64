package services

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/storefront/events"
	"github.com/akinalp/storefront/models"
	"github.com/akinalp/storefront/pkg"
	"github.com/akinalp/storefront/pkg/metrics"
	"github.com/akinalp/storefront/repository"
)

func TestCheckoutRulesTotals(t *testing.T) {
	tests := []struct {
		name     string
		rules    CheckoutRules
		subtotal int64
		tax      int64
		shipping int64
		total    int64
	}{
		{"flat shipping", CheckoutRules{TaxRateBps: 1000, FlatShippingCents: 500, FreeShippingThreshold: 10000}, 2800, 280, 500, 3580},
		{"half cent rounds up", CheckoutRules{TaxRateBps: 825}, 1000, 83, 0, 1083},
		{"below half rounds down", CheckoutRules{TaxRateBps: 825}, 994, 82, 0, 1076},
		{"free at threshold", CheckoutRules{TaxRateBps: 1000, FlatShippingCents: 500, FreeShippingThreshold: 10000}, 10000, 1000, 0, 11000},
		{"no threshold always charges", CheckoutRules{FlatShippingCents: 500}, 50000, 0, 500, 50500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tax, shipping, total := tt.rules.Totals(tt.subtotal)
			assert.Equal(t, tt.tax, tax)
			assert.Equal(t, tt.shipping, shipping)
			assert.Equal(t, tt.total, total)
		})
	}
}

func TestCreateOrderFromCart(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.seedUser(t, "alice")
	hammer := env.seedProduct(t, "HAM-1", 1250, 10)
	nails := env.seedProduct(t, "NAIL-1", 300, 5)
	env.addToCart(t, user.ID, hammer.ID, 2)
	env.addToCart(t, user.ID, nails.ID, 1)

	createdBefore := testutil.ToFloat64(metrics.OrdersCreated)

	order, created, err := env.orders.CreateOrder(ctx, user.ID, &models.CreateOrderRequest{
		ShippingAddress: testAddress(),
		PaymentMethod:   models.PaymentCard,
	})
	require.NoError(t, err)
	assert.True(t, created)

	assert.Equal(t, models.OrderPending, order.Status)
	assert.Equal(t, int64(2800), order.SubtotalCents)
	assert.Equal(t, int64(280), order.TaxCents)
	assert.Equal(t, int64(500), order.ShippingCents)
	assert.Equal(t, int64(3580), order.TotalCents)
	assert.Equal(t, "GB", order.ShippingAddress.Country)
	assert.Regexp(t, `^ORD-\d{8}-[0-9A-F]{8}$`, order.OrderNumber)
	require.Len(t, order.Items, 2)
	assert.Equal(t, "HAM-1", order.Items[0].SKU)
	assert.Equal(t, int64(2500), order.Items[0].LineTotalCents)

	// Stok rezerve edildi, on_hand değişmedi
	inv := env.stock(t, hammer.ID)
	assert.Equal(t, 10, inv.QuantityOnHand)
	assert.Equal(t, 2, inv.QuantityReserved)

	cart, err := env.cart.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	history, err := env.orders.History(ctx, order.ID, user.ID, false)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Nil(t, history[0].FromStatus)
	assert.Equal(t, models.OrderPending, history[0].ToStatus)

	assert.Equal(t, 1, env.pub.count(events.TopicOrderCreated))
	assert.Equal(t, createdBefore+1, testutil.ToFloat64(metrics.OrdersCreated))
}

func TestCreateOrderUsesCatalogPrice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.seedUser(t, "alice")
	p := env.seedProduct(t, "SAW-1", 1000, 5)
	env.addToCart(t, user.ID, p.ID, 1)

	price := int64(1500)
	_, err := env.products.Update(ctx, p.ID, &models.UpdateProductRequest{PriceCents: &price})
	require.NoError(t, err)

	order := env.placeOrder(t, user.ID, models.PaymentCard)
	assert.Equal(t, int64(1500), order.Items[0].UnitPriceCents)
	assert.Equal(t, int64(1500), order.SubtotalCents)
}

func TestCreateOrderIdempotencyKey(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.seedUser(t, "alice")
	p := env.seedProduct(t, "HAM-1", 1250, 10)
	env.addToCart(t, user.ID, p.ID, 3)

	req := func() *models.CreateOrderRequest {
		return &models.CreateOrderRequest{
			ShippingAddress: testAddress(),
			PaymentMethod:   models.PaymentPayPal,
			IdempotencyKey:  "checkout-42",
		}
	}

	first, created, err := env.orders.CreateOrder(ctx, user.ID, req())
	require.NoError(t, err)
	require.True(t, created)

	// Sepet boş olsa bile aynı key önceki siparişi döner
	second, created, err := env.orders.CreateOrder(ctx, user.ID, req())
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 3, env.stock(t, p.ID).QuantityReserved)
	assert.Equal(t, 1, env.pub.count(events.TopicOrderCreated))
}

func TestCreateOrderRejectsEmptyCart(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "alice")

	_, _, err := env.orders.CreateOrder(context.Background(), user.ID, &models.CreateOrderRequest{
		ShippingAddress: testAddress(),
		PaymentMethod:   models.PaymentCard,
	})
	assert.ErrorIs(t, err, pkg.ErrBadRequest)
	assert.Contains(t, err.Error(), "cart is empty")
}

func TestCreateOrderRejectsInvalidAddress(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "alice")

	addr := testAddress()
	addr.City = "  "
	_, _, err := env.orders.CreateOrder(context.Background(), user.ID, &models.CreateOrderRequest{
		ShippingAddress: addr,
		PaymentMethod:   models.PaymentCard,
	})
	assert.ErrorIs(t, err, pkg.ErrBadRequest)
}

func TestCreateOrderRejectsInactiveProduct(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.seedUser(t, "alice")
	p := env.seedProduct(t, "OLD-1", 900, 5)
	env.addToCart(t, user.ID, p.ID, 1)
	require.NoError(t, env.products.Delete(ctx, p.ID))

	_, _, err := env.orders.CreateOrder(ctx, user.ID, &models.CreateOrderRequest{
		ShippingAddress: testAddress(),
		PaymentMethod:   models.PaymentCard,
	})
	assert.ErrorIs(t, err, pkg.ErrBadRequest)
	assert.Contains(t, err.Error(), "OLD-1")
	assert.Equal(t, 0, env.stock(t, p.ID).QuantityReserved)
}

func TestCreateOrderInsufficientStockListsItems(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.seedUser(t, "alice")
	a := env.seedProduct(t, "A-1", 100, 1)
	b := env.seedProduct(t, "B-1", 100, 10)
	env.addToCart(t, user.ID, a.ID, 3)
	env.addToCart(t, user.ID, b.ID, 2)

	failedBefore := testutil.ToFloat64(metrics.OrdersFailed.WithLabelValues("stock"))

	_, _, err := env.orders.CreateOrder(ctx, user.ID, &models.CreateOrderRequest{
		ShippingAddress: testAddress(),
		PaymentMethod:   models.PaymentCard,
	})
	require.ErrorIs(t, err, pkg.ErrConflict)
	assert.Contains(t, err.Error(), "A-1 (requested 3, available 1)")
	assert.NotContains(t, err.Error(), "B-1")

	assert.Equal(t, 0, env.stock(t, b.ID).QuantityReserved)
	assert.Equal(t, failedBefore+1, testutil.ToFloat64(metrics.OrdersFailed.WithLabelValues("stock")))

	cart, err := env.cart.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 2)
}

// racingLookup, fiyat okunurken aynı idempotency key ile başka bir isteğin
// siparişi yazdığı durumu canlandırır.
type racingLookup struct {
	inner ProductLookup
	race  func()
}

func (l *racingLookup) GetProducts(ctx context.Context, ids []string) (map[string]*models.Product, error) {
	if l.race != nil {
		l.race()
		l.race = nil
	}
	return l.inner.GetProducts(ctx, ids)
}

func TestCreateOrderReleasesReservationWhenPersistFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.seedUser(t, "alice")
	p := env.seedProduct(t, "HAM-1", 1250, 10)
	env.addToCart(t, user.ID, p.ID, 2)

	key := "dup-key"
	winner := &models.Order{
		OrderNumber:     "ORD-WINNER",
		UserID:          user.ID,
		Status:          models.OrderPending,
		Currency:        "USD",
		ShippingAddress: testAddress(),
		PaymentMethod:   models.PaymentCard,
		IdempotencyKey:  &key,
	}

	lookup := &racingLookup{inner: env.products, race: func() {
		require.NoError(t, repository.NewSQLiteOrderRepo(env.db).Create(ctx, winner))
	}}
	svc := NewOrderService(env.db, repository.NewSQLiteOrderRepo(env.db), repository.NewSQLiteCartRepo(env.db),
		lookup, env.inventory, env.pub, testRules)

	persistBefore := testutil.ToFloat64(metrics.OrdersFailed.WithLabelValues("persist"))

	order, created, err := svc.CreateOrder(ctx, user.ID, &models.CreateOrderRequest{
		ShippingAddress: testAddress(),
		PaymentMethod:   models.PaymentCard,
		IdempotencyKey:  key,
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, winner.ID, order.ID)

	// Kaybeden isteğin rezervasyonu bırakıldı
	assert.Equal(t, 0, env.stock(t, p.ID).QuantityReserved)
	assert.Equal(t, persistBefore+1, testutil.ToFloat64(metrics.OrdersFailed.WithLabelValues("persist")))
	assert.Equal(t, 0, env.pub.count(events.TopicOrderCreated))
}

type failingInventory struct {
	InventoryGateway
	reserveErr error
	released   []string
}

func (f *failingInventory) Reserve(context.Context, string, []models.StockItem) (*models.Reservation, error) {
	return nil, f.reserveErr
}

func (f *failingInventory) Release(_ context.Context, key string) error {
	f.released = append(f.released, key)
	return nil
}

func TestCreateOrderReserveUnavailable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.seedUser(t, "alice")
	p := env.seedProduct(t, "HAM-1", 1250, 10)
	env.addToCart(t, user.ID, p.ID, 1)

	inv := &failingInventory{InventoryGateway: env.inventory, reserveErr: pkg.ErrUnavailable}
	svc := NewOrderService(env.db, repository.NewSQLiteOrderRepo(env.db), repository.NewSQLiteCartRepo(env.db),
		env.products, inv, env.pub, testRules)

	_, _, err := svc.CreateOrder(ctx, user.ID, &models.CreateOrderRequest{
		ShippingAddress: testAddress(),
		PaymentMethod:   models.PaymentCard,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, pkg.ErrUnavailable))
	assert.Empty(t, inv.released)

	list, err := svc.ListMine(ctx, user.ID, models.Page{})
	require.NoError(t, err)
	assert.Equal(t, 0, list.Total)
}

func TestGetOrderHidesOtherUsersOrders(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.seedUser(t, "alice")
	bob := env.seedUser(t, "bob")
	p := env.seedProduct(t, "HAM-1", 1250, 10)
	env.addToCart(t, alice.ID, p.ID, 1)
	order := env.placeOrder(t, alice.ID, models.PaymentCard)

	_, err := env.orders.Get(ctx, order.ID, bob.ID, false)
	assert.ErrorIs(t, err, pkg.ErrNotFound)

	got, err := env.orders.Get(ctx, order.ID, bob.ID, true)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	_, err = env.orders.Cancel(ctx, order.ID, bob.ID)
	assert.ErrorIs(t, err, pkg.ErrNotFound)
}

func TestCancelOrderReleasesStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.seedUser(t, "alice")
	p := env.seedProduct(t, "HAM-1", 1250, 10)
	env.addToCart(t, user.ID, p.ID, 4)
	order := env.placeOrder(t, user.ID, models.PaymentCard)
	require.Equal(t, 4, env.stock(t, p.ID).QuantityReserved)

	cancelled, err := env.orders.Cancel(ctx, order.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, cancelled.Status)

	inv := env.stock(t, p.ID)
	assert.Equal(t, 0, inv.QuantityReserved)
	assert.Equal(t, 10, inv.Available)

	history, err := env.orders.History(ctx, order.ID, user.ID, false)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.OrderPending, *history[1].FromStatus)
	assert.Equal(t, models.OrderCancelled, history[1].ToStatus)
	assert.Equal(t, 1, env.pub.count(events.TopicOrderStatusChanged))

	_, err = env.orders.Cancel(ctx, order.ID, user.ID)
	assert.ErrorIs(t, err, pkg.ErrConflict)
}

func TestAdminUpdateStatusEnforcesStateMachine(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin := env.seedUser(t, "admin")
	user := env.seedUser(t, "alice")
	p := env.seedProduct(t, "HAM-1", 1250, 10)
	env.addToCart(t, user.ID, p.ID, 2)
	order := env.placeOrder(t, user.ID, models.PaymentCOD)

	_, err := env.orders.AdminUpdateStatus(ctx, order.ID, admin.ID, &models.UpdateOrderStatusRequest{Status: models.OrderDelivered})
	assert.ErrorIs(t, err, pkg.ErrConflict)

	updated, err := env.orders.AdminUpdateStatus(ctx, order.ID, admin.ID, &models.UpdateOrderStatusRequest{
		Status: models.OrderProcessing,
		Note:   "phone confirmed",
	})
	require.NoError(t, err)
	assert.Equal(t, models.OrderProcessing, updated.Status)

	// pending → processing rezervasyonu commit eder
	inv := env.stock(t, p.ID)
	assert.Equal(t, 8, inv.QuantityOnHand)
	assert.Equal(t, 0, inv.QuantityReserved)

	_, err = env.orders.AdminUpdateStatus(ctx, order.ID, admin.ID, &models.UpdateOrderStatusRequest{Status: "lost"})
	assert.ErrorIs(t, err, pkg.ErrBadRequest)

	list, err := env.orders.AdminList(ctx, models.OrderFilter{Status: models.OrderProcessing})
	require.NoError(t, err)
	assert.Equal(t, 1, list.Total)

	_, err = env.orders.AdminList(ctx, models.OrderFilter{Status: "lost"})
	assert.ErrorIs(t, err, pkg.ErrBadRequest)
}

func TestCancelStaleOnlyTouchesPendingOrders(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.seedUser(t, "alice")
	p := env.seedProduct(t, "HAM-1", 1250, 10)
	env.addToCart(t, user.ID, p.ID, 1)
	order := env.placeOrder(t, user.ID, models.PaymentCard)

	require.NoError(t, env.orders.CancelStale(ctx, order.OrderNumber))
	got, err := env.orders.Get(ctx, order.ID, user.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, got.Status)

	// İkinci çağrı no-op
	require.NoError(t, env.orders.CancelStale(ctx, order.OrderNumber))
	assert.ErrorIs(t, env.orders.CancelStale(ctx, "ORD-UNKNOWN"), pkg.ErrNotFound)
}
