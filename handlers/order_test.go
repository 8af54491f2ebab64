package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/storefront/models"
	"github.com/akinalp/storefront/pkg/ratelimit"
	"github.com/akinalp/storefront/pkg/svcclient"
)

func checkoutBody() models.CreateOrderRequest {
	return models.CreateOrderRequest{
		ShippingAddress: models.ShippingAddress{
			FullName:   "Ada Lovelace",
			Line1:      "12 Analytical St",
			City:       "London",
			PostalCode: "N1 9GU",
			Country:    "GB",
		},
		PaymentMethod: models.PaymentCard,
	}
}

func TestCreateOrderHonorsIdempotencyHeader(t *testing.T) {
	env := newHandlerEnv(t)
	user := env.seedUser(t, "ada", models.RoleCustomer)
	p := env.seedProduct(t, "HAM-1", 2000, 5)
	env.fillCart(t, user.ID, p.ID, 2)

	h := NewOrderHandler(env.orders, env.payments, env.shipping, nil)
	create := asUser(user, h.Create)

	body := checkoutBody()
	body.IdempotencyKey = "body-key"

	req := jsonRequest(t, http.MethodPost, "/api/orders", body)
	req.Header.Set(svcclient.IdempotencyKeyHeader, "header-key")
	rec := serve(create, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decode[models.Order](t, rec)
	assert.Equal(t, models.OrderPending, first.Data.Status)
	assert.Equal(t, int64(4000+400+500), first.Data.TotalCents)

	// Header aynı, body farklı: header kazanır, mevcut sipariş 200 ile döner
	body.IdempotencyKey = "other-body-key"
	req = jsonRequest(t, http.MethodPost, "/api/orders", body)
	req.Header.Set(svcclient.IdempotencyKeyHeader, "header-key")
	rec = serve(create, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, first.Data.ID, decode[models.Order](t, rec).Data.ID)
}

func TestCreateOrderEmptyCart(t *testing.T) {
	env := newHandlerEnv(t)
	user := env.seedUser(t, "ada", models.RoleCustomer)

	h := NewOrderHandler(env.orders, env.payments, env.shipping, nil)
	rec := serve(asUser(user, h.Create), jsonRequest(t, http.MethodPost, "/api/orders", checkoutBody()))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, decode[any](t, rec).Success)
}

func TestCreateOrderRateLimited(t *testing.T) {
	env := newHandlerEnv(t)
	user := env.seedUser(t, "ada", models.RoleCustomer)

	limiter := ratelimit.NewActionRateLimiter(1, time.Minute, time.Minute)
	t.Cleanup(limiter.Stop)

	h := NewOrderHandler(env.orders, env.payments, env.shipping, limiter)
	create := asUser(user, h.Create)

	// İlk istek limitten geçer (boş sepet → 400)
	rec := serve(create, jsonRequest(t, http.MethodPost, "/api/orders", checkoutBody()))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(create, jsonRequest(t, http.MethodPost, "/api/orders", checkoutBody()))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

// Aynı Idempotency-Key ile tekrar gelen istekler limiti tüketmez.
func TestCreateOrderReplayIsNotRateLimited(t *testing.T) {
	env := newHandlerEnv(t)
	user := env.seedUser(t, "ada", models.RoleCustomer)
	p := env.seedProduct(t, "HAM-1", 2000, 5)
	env.fillCart(t, user.ID, p.ID, 1)

	limiter := ratelimit.NewActionRateLimiter(1, time.Minute, time.Minute)
	t.Cleanup(limiter.Stop)

	h := NewOrderHandler(env.orders, env.payments, env.shipping, limiter)
	create := asUser(user, h.Create)

	checkout := func(key string) *httptest.ResponseRecorder {
		req := jsonRequest(t, http.MethodPost, "/api/orders", checkoutBody())
		req.Header.Set(svcclient.IdempotencyKeyHeader, key)
		return serve(create, req)
	}

	rec := checkout("retry-key")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decode[models.Order](t, rec).Data.ID

	for range 5 {
		rec = checkout("retry-key")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, id, decode[models.Order](t, rec).Data.ID)
	}

	// Yeni key yeni checkout denemesidir
	rec = checkout("another-key")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestPayDeclineReturns402(t *testing.T) {
	env := newHandlerEnv(t)
	user := env.seedUser(t, "ada", models.RoleCustomer)
	p := env.seedProduct(t, "HAM-1", 2000, 5)
	env.fillCart(t, user.ID, p.ID, 1)

	h := NewOrderHandler(env.orders, env.payments, env.shipping, nil)
	rec := serve(asUser(user, h.Create), jsonRequest(t, http.MethodPost, "/api/orders", checkoutBody()))
	require.Equal(t, http.StatusCreated, rec.Code)
	order := decode[models.Order](t, rec).Data

	mux := http.NewServeMux()
	mux.Handle("POST /api/orders/{id}/pay", asUser(user, h.Pay))
	mux.Handle("GET /api/orders/{id}/payments", asUser(user, h.Payments))
	mux.Handle("GET /api/orders/{id}", asUser(user, h.Get))

	rec = serve(mux, jsonRequest(t, http.MethodPost, "/api/orders/"+order.ID+"/pay", models.PayRequest{
		Method: models.PaymentCard, Token: "fail_insufficient_funds", CardLast4: "4242",
	}))
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, "payment declined: insufficient_funds", decode[any](t, rec).Error)

	rec = serve(mux, jsonRequest(t, http.MethodPost, "/api/orders/"+order.ID+"/pay", models.PayRequest{
		Method: models.PaymentCard, Token: "tok_visa", CardLast4: "4242",
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.PaymentStatusSucceeded, decode[models.Payment](t, rec).Data.Status)

	rec = serve(mux, jsonRequest(t, http.MethodGet, "/api/orders/"+order.ID+"/payments", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Payment](t, rec).Data, 2)

	rec = serve(mux, jsonRequest(t, http.MethodGet, "/api/orders/"+order.ID, nil))
	assert.Equal(t, models.OrderPaid, decode[models.Order](t, rec).Data.Status)
}

func TestOrderOfAnotherUserIsHidden(t *testing.T) {
	env := newHandlerEnv(t)
	owner := env.seedUser(t, "ada", models.RoleCustomer)
	other := env.seedUser(t, "bob", models.RoleCustomer)
	p := env.seedProduct(t, "HAM-1", 2000, 5)
	env.fillCart(t, owner.ID, p.ID, 1)

	h := NewOrderHandler(env.orders, env.payments, env.shipping, nil)
	rec := serve(asUser(owner, h.Create), jsonRequest(t, http.MethodPost, "/api/orders", checkoutBody()))
	require.Equal(t, http.StatusCreated, rec.Code)
	order := decode[models.Order](t, rec).Data

	mux := http.NewServeMux()
	mux.Handle("GET /api/orders/{id}", asUser(other, h.Get))
	rec = serve(mux, jsonRequest(t, http.MethodGet, "/api/orders/"+order.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMissingUserIsUnauthorized(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewOrderHandler(env.orders, env.payments, env.shipping, nil)

	rec := serve(http.HandlerFunc(h.List), jsonRequest(t, http.MethodGet, "/api/orders", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
