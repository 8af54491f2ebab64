package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/storefront/config"
	"github.com/akinalp/storefront/database"
	"github.com/akinalp/storefront/events"
	"github.com/akinalp/storefront/middleware"
	"github.com/akinalp/storefront/models"
	"github.com/akinalp/storefront/pkg/svcclient"
	"github.com/akinalp/storefront/ws"
)

type testApp struct {
	t       *testing.T
	handler http.Handler
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	dir := t.TempDir()
	cfg := &config.Config{
		Server:   config.ServerConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		JWT:      config.JWTConfig{Secret: "test-secret", AccessTokenExpiry: 15, RefreshTokenExpiry: 7},
		Upload:   config.UploadConfig{Dir: filepath.Join(dir, "uploads"), MaxSize: 1 << 20},
		Services: config.ServicesConfig{InternalKey: "internal"},
		Checkout: config.CheckoutConfig{
			Currency:              "USD",
			TaxRateBps:            1000,
			FlatShippingCents:     500,
			FreeShippingThreshold: 10000,
			ReservationTTL:        30 * time.Minute,
		},
	}

	db, err := database.New(filepath.Join(dir, "app.db"), database.Migrations())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repos := initRepositories(db.Conn)
	bus := events.NewBus()
	t.Cleanup(func() { _ = bus.Close() })
	hub := ws.NewHub()
	go hub.Run()
	t.Cleanup(hub.Shutdown)

	svcs, limiters, err := initServices(t.Context(), db.Conn, repos, bus, nil, nil, cfg)
	require.NoError(t, err)
	t.Cleanup(limiters.Stop)
	t.Cleanup(func() { _ = svcs.ProductStore.Close() })

	require.NoError(t, registerEventSubscribers(t.Context(), bus, hub, nil, repos.User))

	mux := http.NewServeMux()
	initRoutes(mux, initHandlers(db.Conn, svcs, limiters, hub, cfg), svcs.Auth, repos.User, cfg)

	return &testApp{
		t:       t,
		handler: middleware.Chain(mux, middleware.RequestID, middleware.Metrics),
	}
}

func (a *testApp) do(method, target, token string, body any, out any) int {
	a.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	if out != nil && rec.Code < 300 {
		var env struct {
			Data json.RawMessage `json:"data"`
		}
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
		require.NoError(a.t, json.Unmarshal(env.Data, out))
	}
	return rec.Code
}

func (a *testApp) register(username string) string {
	a.t.Helper()
	var tokens models.AuthTokens
	code := a.do(http.MethodPost, "/api/auth/register", "", models.CreateUserRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "correct-horse",
	}, &tokens)
	require.Equal(a.t, http.StatusCreated, code)
	return tokens.AccessToken
}

func TestCheckoutFlow(t *testing.T) {
	app := newTestApp(t)
	admin := app.register("root")
	customer := app.register("ada")

	// Katalog: sadece admin ürün ekleyebilir
	create := models.CreateProductRequest{SKU: "MUG-1", Name: "Mug", PriceCents: 1200, Category: "kitchen", InitialStock: 5}
	assert.Equal(t, http.StatusForbidden, app.do(http.MethodPost, "/api/products", customer, create, nil))

	var product models.Product
	require.Equal(t, http.StatusCreated, app.do(http.MethodPost, "/api/products", admin, create, &product))

	var listed models.PagedResult[models.Product]
	require.Equal(t, http.StatusOK, app.do(http.MethodGet, "/api/products?category=kitchen", "", nil, &listed))
	assert.Equal(t, 1, listed.Total)

	var categories []string
	require.Equal(t, http.StatusOK, app.do(http.MethodGet, "/api/products/categories", "", nil, &categories))
	assert.Contains(t, categories, "kitchen")

	// Sepet + checkout
	assert.Equal(t, http.StatusUnauthorized, app.do(http.MethodGet, "/api/cart", "", nil, nil))
	require.Equal(t, http.StatusOK, app.do(http.MethodPost, "/api/cart/items", customer,
		models.AddCartItemRequest{ProductID: product.ID, Quantity: 2}, nil))

	var order models.Order
	require.Equal(t, http.StatusCreated, app.do(http.MethodPost, "/api/orders", customer, models.CreateOrderRequest{
		ShippingAddress: models.ShippingAddress{
			FullName: "Ada Lovelace", Line1: "1 Analytical St", City: "London", PostalCode: "N1", Country: "GB",
		},
		PaymentMethod:  models.PaymentCard,
		IdempotencyKey: "checkout-1",
	}, &order))
	assert.Equal(t, models.OrderPending, order.Status)
	assert.Equal(t, int64(2400), order.SubtotalCents)
	assert.Equal(t, int64(240), order.TaxCents)
	assert.Equal(t, int64(500), order.ShippingCents)
	assert.Equal(t, int64(3140), order.TotalCents)

	var inv models.Inventory
	require.Equal(t, http.StatusOK, app.do(http.MethodGet, "/api/inventory/"+product.ID, "", nil, &inv))
	assert.Equal(t, 2, inv.QuantityReserved)
	assert.Equal(t, 3, inv.Available)

	// Ödeme: red → 402, sonra başarılı
	assert.Equal(t, http.StatusPaymentRequired, app.do(http.MethodPost, "/api/orders/"+order.ID+"/pay", customer,
		models.PayRequest{Method: models.PaymentCard, Token: "fail_insufficient_funds", CardLast4: "0002"}, nil))
	require.Equal(t, http.StatusOK, app.do(http.MethodPost, "/api/orders/"+order.ID+"/pay", customer,
		models.PayRequest{Method: models.PaymentCard, Token: "tok_visa", CardLast4: "4242"}, nil))

	var paid models.Order
	require.Equal(t, http.StatusOK, app.do(http.MethodGet, "/api/orders/"+order.ID, customer, nil, &paid))
	assert.Equal(t, models.OrderPaid, paid.Status)

	require.Equal(t, http.StatusOK, app.do(http.MethodGet, "/api/inventory/"+product.ID, "", nil, &inv))
	assert.Equal(t, 3, inv.QuantityOnHand)
	assert.Equal(t, 0, inv.QuantityReserved)

	// Başka kullanıcı siparişi göremez
	other := app.register("eve")
	assert.Equal(t, http.StatusNotFound, app.do(http.MethodGet, "/api/orders/"+order.ID, other, nil, nil))

	// Dashboard
	assert.Equal(t, http.StatusForbidden, app.do(http.MethodGet, "/api/admin/stats", customer, nil, nil))

	var stats models.DashboardStats
	require.Equal(t, http.StatusOK, app.do(http.MethodGet, "/api/admin/stats", admin, nil, &stats))
	assert.Equal(t, 3, stats.TotalUsers)
	assert.Equal(t, 1, stats.ActiveProducts)
	assert.Equal(t, 1, stats.OrdersByStatus[models.OrderPaid])
	assert.Equal(t, int64(3140), stats.RevenueCents)
}

func TestInternalRoutesRequireServiceKey(t *testing.T) {
	app := newTestApp(t)
	body := models.StockCheckRequest{Items: []models.StockItem{{ProductID: "missing", Quantity: 1}}}
	assert.Equal(t, http.StatusUnauthorized, app.do(http.MethodPost, "/api/inventory/check", "", body, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/products/batch?ids=a,b", nil)
	req.Header.Set(svcclient.ServiceKeyHeader, "internal")
	rec := httptest.NewRecorder()
	app.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUploadsRejectTraversal(t *testing.T) {
	app := newTestApp(t)
	assert.Equal(t, http.StatusNotFound, app.do(http.MethodGet, "/api/uploads/other/file.png", "", nil, nil))
	assert.Equal(t, http.StatusNotFound, app.do(http.MethodGet, "/api/uploads/products/", "", nil, nil))
}
