package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/storefront/database"
	"github.com/akinalp/storefront/models"
	"github.com/akinalp/storefront/repository"
	"github.com/akinalp/storefront/services"
)

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, any) {}

type handlerEnv struct {
	db    *sql.DB
	users repository.UserRepository

	products  services.ProductService
	inventory services.InventoryService
	cart      services.CartService
	orders    services.OrderService
	payments  services.PaymentService
	shipping  services.ShippingService
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()

	conn, err := database.New(filepath.Join(t.TempDir(), "handlers.db"), database.Migrations())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	db := conn.Conn

	pub := nopPublisher{}
	productRepo := repository.NewSQLiteProductRepo(db)
	orderRepo := repository.NewSQLiteOrderRepo(db)
	cartRepo := repository.NewSQLiteCartRepo(db)

	inventory := services.NewInventoryService(db, repository.NewSQLiteInventoryRepo(db), pub, 15*time.Minute)
	products := services.NewProductService(db, productRepo, nil, "USD", t.TempDir(), 1<<20)
	rules := services.CheckoutRules{Currency: "USD", TaxRateBps: 1000, FlatShippingCents: 500}

	return &handlerEnv{
		db:        db,
		users:     repository.NewSQLiteUserRepo(db),
		products:  products,
		inventory: inventory,
		cart:      services.NewCartService(cartRepo, productRepo, "USD"),
		orders:    services.NewOrderService(db, orderRepo, cartRepo, products, inventory, pub, rules),
		payments:  services.NewPaymentService(db, orderRepo, repository.NewSQLitePaymentRepo(db), inventory, pub, nil),
		shipping:  services.NewShippingService(db, orderRepo, repository.NewSQLiteShipmentRepo(db), inventory, pub),
	}
}

func (e *handlerEnv) seedUser(t *testing.T, username string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
		Role:         role,
		Language:     "en",
	}
	require.NoError(t, e.users.Create(context.Background(), u))
	return u
}

func (e *handlerEnv) seedProduct(t *testing.T, sku string, price int64, stock int) *models.Product {
	t.Helper()
	p, err := e.products.Create(context.Background(), &models.CreateProductRequest{
		SKU:          sku,
		Name:         "Product " + sku,
		PriceCents:   price,
		Category:     "tools",
		InitialStock: stock,
	})
	require.NoError(t, err)
	return p
}

func (e *handlerEnv) fillCart(t *testing.T, userID, productID string, qty int) {
	t.Helper()
	_, err := e.cart.AddItem(context.Background(), userID, &models.AddCartItemRequest{ProductID: productID, Quantity: qty})
	require.NoError(t, err)
}

// asUser, AuthMiddleware'in yaptığı gibi kullanıcıyı context'e ekler.
func asUser(user *models.User, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next(w, r.WithContext(ctx))
	})
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
