package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/akinalp/storefront/database"
	"github.com/akinalp/storefront/models"
	"github.com/akinalp/storefront/repository"
)

type published struct {
	topic   string
	payload any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{topic: topic, payload: payload})
}

func (p *recordingPublisher) count(topic string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.topic == topic {
			n++
		}
	}
	return n
}

var testRules = CheckoutRules{
	Currency:              "USD",
	TaxRateBps:            1000,
	FlatShippingCents:     500,
	FreeShippingThreshold: 10000,
}

type testEnv struct {
	db  *sql.DB
	pub *recordingPublisher

	users     repository.UserRepository
	inventory InventoryService
	products  ProductService
	cart      CartService
	orders    OrderService
	payments  PaymentService
	shipping  ShippingService
	reviews   ReviewService
	admin     AdminService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	conn, err := database.New(filepath.Join(t.TempDir(), "services.db"), database.Migrations())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	db := conn.Conn

	pub := &recordingPublisher{}
	productRepo := repository.NewSQLiteProductRepo(db)
	inventoryRepo := repository.NewSQLiteInventoryRepo(db)
	orderRepo := repository.NewSQLiteOrderRepo(db)
	cartRepo := repository.NewSQLiteCartRepo(db)
	userRepo := repository.NewSQLiteUserRepo(db)

	inventory := NewInventoryService(db, inventoryRepo, pub, 15*time.Minute)
	products := NewProductService(db, productRepo, nil, "USD", t.TempDir(), 1<<20)

	return &testEnv{
		db:        db,
		pub:       pub,
		users:     userRepo,
		inventory: inventory,
		products:  products,
		cart:      NewCartService(cartRepo, productRepo, "USD"),
		orders:    NewOrderService(db, orderRepo, cartRepo, products, inventory, pub, testRules),
		payments:  NewPaymentService(db, orderRepo, repository.NewSQLitePaymentRepo(db), inventory, pub, nil),
		shipping:  NewShippingService(db, orderRepo, repository.NewSQLiteShipmentRepo(db), inventory, pub),
		reviews:   NewReviewService(db, repository.NewSQLiteReviewRepo(db), productRepo, orderRepo),
		admin:     NewAdminService(userRepo, productRepo, orderRepo, inventoryRepo),
	}
}

func (e *testEnv) seedUser(t *testing.T, username string) *models.User {
	t.Helper()
	u := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
		Role:         models.RoleCustomer,
		Language:     "en",
	}
	require.NoError(t, e.users.Create(context.Background(), u))
	return u
}

func (e *testEnv) seedProduct(t *testing.T, sku string, price int64, stock int) *models.Product {
	t.Helper()
	threshold := 2
	p, err := e.products.Create(context.Background(), &models.CreateProductRequest{
		SKU:               sku,
		Name:              "Product " + sku,
		PriceCents:        price,
		Category:          "tools",
		InitialStock:      stock,
		LowStockThreshold: &threshold,
	})
	require.NoError(t, err)
	return p
}

func (e *testEnv) addToCart(t *testing.T, userID, productID string, qty int) {
	t.Helper()
	_, err := e.cart.AddItem(context.Background(), userID, &models.AddCartItemRequest{ProductID: productID, Quantity: qty})
	require.NoError(t, err)
}

func (e *testEnv) placeOrder(t *testing.T, userID string, method models.PaymentMethodType) *models.Order {
	t.Helper()
	order, created, err := e.orders.CreateOrder(context.Background(), userID, &models.CreateOrderRequest{
		ShippingAddress: testAddress(),
		PaymentMethod:   method,
	})
	require.NoError(t, err)
	require.True(t, created)
	return order
}

func (e *testEnv) stock(t *testing.T, productID string) *models.Inventory {
	t.Helper()
	inv, err := e.inventory.Get(context.Background(), productID)
	require.NoError(t, err)
	return inv
}

func testAddress() models.ShippingAddress {
	return models.ShippingAddress{
		FullName:   "Ada Lovelace",
		Line1:      "12 Analytical St",
		City:       "London",
		PostalCode: "N1 9GU",
		Country:    "gb",
	}
}
