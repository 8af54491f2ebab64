// Package main: HTTP route registration.
//
// initRoutes, tüm API endpoint'lerini mux'a bağlar.
// Middleware chain helper'ları burada tanımlıdır:
//   - auth: JWT token doğrulaması
//   - optional: token varsa kullanıcıyı yükler, yoksa anonim geçer
//   - admin: auth + admin rolü
//   - internal: X-Service-Key veya admin (servisler arası çağrılar)
package main

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/akinalp/storefront/config"
	"github.com/akinalp/storefront/middleware"
	"github.com/akinalp/storefront/repository"
	"github.com/akinalp/storefront/services"
	"github.com/akinalp/storefront/static"
)

// initRoutes, middleware chain'i kurar ve tüm endpoint'leri mux'a bağlar.
//
// Literal path'ler ("/api/products/batch", "/api/inventory/low-stock")
// ServeMux'ta parametrik path'lerden daha spesifik sayılır, sıra önemli değildir.
func initRoutes(
	mux *http.ServeMux,
	h *Handlers,
	authService services.AuthService,
	userRepo repository.UserRepository,
	cfg *config.Config,
) {
	// ─── Middleware ───
	authMw := middleware.NewAuthMiddleware(authService, userRepo)
	adminMw := middleware.NewAdminMiddleware()
	serviceKeyMw := middleware.NewServiceKeyMiddleware(cfg.Services.InternalKey, authMw, adminMw)

	// ─── Middleware Chain Helpers ───
	auth := func(handler http.HandlerFunc) http.Handler {
		return authMw.Require(handler)
	}
	optional := func(handler http.HandlerFunc) http.Handler {
		return authMw.Optional(handler)
	}
	admin := func(handler http.HandlerFunc) http.Handler {
		return authMw.Require(adminMw.Require(handler))
	}
	internal := func(handler http.HandlerFunc) http.Handler {
		return serviceKeyMw.Require(handler)
	}

	// ─── Ops ───
	mux.HandleFunc("GET /api/health", h.Health.Health)
	mux.Handle("GET /metrics", promhttp.Handler())

	// ─── Auth ───
	mux.HandleFunc("POST /api/auth/register", h.Auth.Register)
	mux.HandleFunc("POST /api/auth/login", h.Auth.Login)
	mux.HandleFunc("POST /api/auth/refresh", h.Auth.Refresh)
	mux.Handle("POST /api/auth/logout", auth(h.Auth.Logout))
	mux.HandleFunc("POST /api/auth/forgot-password", h.Auth.ForgotPassword)
	mux.HandleFunc("POST /api/auth/reset-password", h.Auth.ResetPassword)

	// ─── User ───
	mux.Handle("GET /api/users/me", auth(h.Auth.Me))
	mux.Handle("PATCH /api/users/me", auth(h.Auth.UpdateProfile))
	mux.Handle("POST /api/users/me/password", auth(h.Auth.ChangePassword))

	// ─── Catalog ───
	// Admin token'ı ile gizli ürünler de listelenebilir (include_hidden).
	mux.Handle("GET /api/products", optional(h.Product.List))
	mux.Handle("GET /api/products/batch", internal(h.Product.Batch))
	mux.Handle("GET /api/products/{id}", optional(h.Product.Get))
	mux.HandleFunc("GET /api/products/categories", h.Product.Categories)
	mux.Handle("POST /api/products", admin(h.Product.Create))
	mux.Handle("PATCH /api/products/{id}", admin(h.Product.Update))
	mux.Handle("DELETE /api/products/{id}", admin(h.Product.Delete))
	mux.Handle("POST /api/products/{id}/image", admin(h.Product.UploadImage))

	// ─── Reviews ───
	mux.HandleFunc("GET /api/products/{id}/reviews", h.Review.List)
	mux.Handle("POST /api/products/{id}/reviews", auth(h.Review.Create))
	mux.Handle("PATCH /api/reviews/{id}", auth(h.Review.Update))
	mux.Handle("DELETE /api/reviews/{id}", auth(h.Review.Delete))

	// ─── Inventory ───
	// check/reserve/release/commit sipariş servisinin çağırdığı iç yüzeydir.
	mux.HandleFunc("GET /api/inventory/{productId}", h.Inventory.Get)
	mux.Handle("GET /api/inventory/low-stock", admin(h.Inventory.LowStock))
	mux.Handle("PATCH /api/inventory/{productId}", admin(h.Inventory.Adjust))
	mux.Handle("POST /api/inventory/check", internal(h.Inventory.Check))
	mux.Handle("POST /api/inventory/reserve", internal(h.Inventory.Reserve))
	mux.Handle("POST /api/inventory/release", internal(h.Inventory.Release))
	mux.Handle("POST /api/inventory/commit", internal(h.Inventory.Commit))

	// ─── Cart ───
	mux.Handle("GET /api/cart", auth(h.Cart.Get))
	mux.Handle("POST /api/cart/items", auth(h.Cart.AddItem))
	mux.Handle("PATCH /api/cart/items/{productId}", auth(h.Cart.UpdateItem))
	mux.Handle("DELETE /api/cart/items/{productId}", auth(h.Cart.RemoveItem))
	mux.Handle("DELETE /api/cart", auth(h.Cart.Clear))

	// ─── Orders ───
	mux.Handle("POST /api/orders", auth(h.Order.Create))
	mux.Handle("GET /api/orders", auth(h.Order.List))
	mux.Handle("GET /api/orders/{id}", auth(h.Order.Get))
	mux.Handle("POST /api/orders/{id}/cancel", auth(h.Order.Cancel))
	mux.Handle("GET /api/orders/{id}/history", auth(h.Order.History))
	mux.Handle("POST /api/orders/{id}/pay", auth(h.Order.Pay))
	mux.Handle("GET /api/orders/{id}/payments", auth(h.Order.Payments))
	mux.Handle("GET /api/orders/{id}/tracking", auth(h.Order.Tracking))

	// ─── Admin ───
	mux.Handle("GET /api/admin/stats", admin(h.Admin.Stats))
	mux.Handle("GET /api/admin/users", admin(h.Admin.ListUsers))
	mux.Handle("GET /api/admin/orders", admin(h.Admin.ListOrders))
	mux.Handle("PATCH /api/admin/orders/{id}/status", admin(h.Admin.UpdateOrderStatus))
	mux.Handle("POST /api/admin/orders/{id}/shipment", admin(h.Admin.CreateShipment))
	mux.Handle("PATCH /api/admin/orders/{id}/shipment", admin(h.Admin.UpdateShipment))
	mux.Handle("POST /api/admin/orders/{id}/refund", admin(h.Admin.Refund))

	// ─── Uploads ───
	//
	// Ürün görselleri <upload_dir>/products/ altında tutulur.
	// Sadece "products/<dosya>" biçimi kabul edilir; başka subdirectory'ler reddedilir.
	files := http.FileServer(http.Dir(cfg.Upload.Dir))
	mux.Handle("GET /api/uploads/", http.StripPrefix("/api/uploads/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name, ok := strings.CutPrefix(r.URL.Path, "products/")
		if !ok || name == "" || strings.ContainsAny(name, `/\`) {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})))

	// ─── WebSocket ───
	// Tarayıcılar upgrade sırasında header gönderemez; token query parametresiyle gelir.
	mux.HandleFunc("GET /ws", h.WS.HandleConnection)

	// ─── Frontend (SPA fallback) ───
	mux.Handle("GET /", static.Handler())
}
