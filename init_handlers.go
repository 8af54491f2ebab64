// Package main: Handler katmanı başlatma.
//
// initHandlers, tüm HTTP handler'larını oluşturur.
// Handler'lar "thin" dir: sadece HTTP parse + service call + response write.
package main

import (
	"database/sql"

	"github.com/akinalp/storefront/config"
	"github.com/akinalp/storefront/handlers"
	"github.com/akinalp/storefront/ws"
)

// Handlers, tüm handler instance'larını tutan container struct.
type Handlers struct {
	Auth      *handlers.AuthHandler
	Product   *handlers.ProductHandler
	Inventory *handlers.InventoryHandler
	Cart      *handlers.CartHandler
	Order     *handlers.OrderHandler
	Review    *handlers.ReviewHandler
	Admin     *handlers.AdminHandler
	Health    *handlers.HealthHandler
	WS        *ws.Handler
}

// initHandlers, tüm handler'ları service ve rate limiter dependency'leri ile oluşturur.
func initHandlers(db *sql.DB, svcs *Services, limiters *RateLimiters, hub *ws.Hub, cfg *config.Config) *Handlers {
	upstreams := make([]handlers.UpstreamStatus, 0, len(svcs.Upstreams))
	for _, c := range svcs.Upstreams {
		upstreams = append(upstreams, c)
	}

	return &Handlers{
		Auth:      handlers.NewAuthHandler(svcs.Auth, limiters.Login, limiters.ClientIP),
		Product:   handlers.NewProductHandler(svcs.Product, cfg.Upload.MaxSize),
		Inventory: handlers.NewInventoryHandler(svcs.Inventory),
		Cart:      handlers.NewCartHandler(svcs.Cart),
		Order:     handlers.NewOrderHandler(svcs.Order, svcs.Payment, svcs.Shipping, limiters.Checkout),
		Review:    handlers.NewReviewHandler(svcs.Review),
		Admin:     handlers.NewAdminHandler(svcs.Admin, svcs.Order, svcs.Payment, svcs.Shipping),
		Health:    handlers.NewHealthHandler(db, hub, upstreams...),
		WS:        ws.NewHandler(hub, svcs.Auth, cfg.Server.AllowedOrigins),
	}
}
