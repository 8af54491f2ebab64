// Package main: Service katmanı başlatma.
//
// initServices, tüm service implementasyonlarını oluşturur.
// Her service, ihtiyaç duyduğu repository interface'lerini ve diğer
// dependency'leri constructor injection ile alır.
//
// Sıralama kuralları:
//  1. Ürün cache'i → ProductService ve OrderService'den ÖNCE (ikisi de aynı CachedProducts'ı kullanır)
//  2. InventoryGateway (local veya remote) → Order/Payment/Shipping'den ÖNCE
package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/akinalp/storefront/clients"
	"github.com/akinalp/storefront/config"
	"github.com/akinalp/storefront/events"
	"github.com/akinalp/storefront/pkg/cache"
	"github.com/akinalp/storefront/pkg/crypto"
	"github.com/akinalp/storefront/pkg/email"
	"github.com/akinalp/storefront/pkg/logger"
	"github.com/akinalp/storefront/pkg/ratelimit"
	"github.com/akinalp/storefront/pkg/svcclient"
	"github.com/akinalp/storefront/services"
)

// productCacheTTL, cache'teki ürün kopyasının ömrü. Diğer instance'lardaki
// değişiklikler en geç bu süre sonunda görünür.
const productCacheTTL = 5 * time.Minute

// Services, tüm service instance'larını tutan container struct.
type Services struct {
	Auth        services.AuthService
	Product     services.ProductService
	Inventory   services.InventoryService
	Cart        services.CartService
	Order       services.OrderService
	Payment     services.PaymentService
	Shipping    services.ShippingService
	Review      services.ReviewService
	Admin       services.AdminService
	Maintenance *services.Maintenance

	// Upstreams, ayrı instance'lara bağlı svcclient'lar (health raporu için).
	Upstreams []*svcclient.Client
	// ProductStore, ürün cache'inin backend'i (memory veya Redis).
	ProductStore cache.Store
}

// RateLimiters, tüm rate limiter instance'larını tutan container.
type RateLimiters struct {
	Login    *ratelimit.LoginRateLimiter
	Checkout *ratelimit.ActionRateLimiter
	// ClientIP, IP bazlı limiter'ların key'ini çözer (TRUSTED_PROXIES).
	ClientIP *ratelimit.ClientIP
}

// Stop, limiter cleanup goroutine'lerini durdurur.
func (l *RateLimiters) Stop() {
	l.Login.Stop()
	l.Checkout.Stop()
}

// initServices, tüm service'leri ve rate limiter'ları oluşturur.
func initServices(
	ctx context.Context,
	db *sql.DB,
	repos *Repositories,
	publisher events.Publisher,
	emailSender email.EmailSender,
	sealer *crypto.Sealer,
	cfg *config.Config,
) (*Services, *RateLimiters, error) {
	// ─── Ürün cache'i ───
	store, err := initProductStore(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}

	// ─── Upstream client'ları (opsiyonel) ───
	var upstreams []*svcclient.Client

	var productSource clients.ProductSource = clients.ProductSourceFunc(repos.Product.GetByIDs)
	if cfg.Services.ProductURL != "" {
		client := newUpstreamClient("product", cfg.Services.ProductURL, cfg)
		upstreams = append(upstreams, client)
		productSource = clients.NewRemoteProducts(client)
		logger.Info().Str("url", cfg.Services.ProductURL).Msg("[main] product lookups use remote service")
	}
	products := clients.NewCachedProducts(productSource, store)

	inventoryService := services.NewInventoryService(db, repos.Inventory, publisher, cfg.Checkout.ReservationTTL)

	var inventory services.InventoryGateway = inventoryService
	if cfg.Services.InventoryURL != "" {
		client := newUpstreamClient("inventory", cfg.Services.InventoryURL, cfg)
		upstreams = append(upstreams, client)
		inventory = clients.NewRemoteInventory(client)
		logger.Info().Str("url", cfg.Services.InventoryURL).Msg("[main] stock operations use remote service")
	}

	// ─── Domain service'leri ───
	authService := services.NewAuthService(
		repos.User, repos.Session, repos.ResetToken, emailSender,
		cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry, cfg.JWT.RefreshTokenExpiry,
	)

	productService := services.NewProductService(
		db, repos.Product, products,
		cfg.Checkout.Currency, cfg.Upload.Dir, cfg.Upload.MaxSize,
	)
	cartService := services.NewCartService(repos.Cart, repos.Product, cfg.Checkout.Currency)

	orderService := services.NewOrderService(
		db, repos.Order, repos.Cart, products, inventory, publisher,
		services.CheckoutRules{
			Currency:              cfg.Checkout.Currency,
			TaxRateBps:            cfg.Checkout.TaxRateBps,
			FlatShippingCents:     cfg.Checkout.FlatShippingCents,
			FreeShippingThreshold: cfg.Checkout.FreeShippingThreshold,
		},
	)
	paymentService := services.NewPaymentService(db, repos.Order, repos.Payment, inventory, publisher, sealer)
	shippingService := services.NewShippingService(db, repos.Order, repos.Shipment, inventory, publisher)
	reviewService := services.NewReviewService(db, repos.Review, repos.Product, repos.Order)
	adminService := services.NewAdminService(repos.User, repos.Product, repos.Order, repos.Inventory)

	maintenance := services.NewMaintenance(repos.Session, repos.ResetToken, inventoryService, orderService, cfg.Checkout.ReservationTTL)

	// ─── Rate Limiters ───
	clientIP, err := ratelimit.NewClientIP(cfg.Server.TrustedProxies)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse TRUSTED_PROXIES: %w", err)
	}
	limiters := &RateLimiters{
		Login:    ratelimit.NewLoginRateLimiter(5, 2*time.Minute),
		Checkout: ratelimit.NewActionRateLimiter(5, time.Minute, 2*time.Minute),
		ClientIP: clientIP,
	}

	svcs := &Services{
		Auth:         authService,
		Product:      productService,
		Inventory:    inventoryService,
		Cart:         cartService,
		Order:        orderService,
		Payment:      paymentService,
		Shipping:     shippingService,
		Review:       reviewService,
		Admin:        adminService,
		Maintenance:  maintenance,
		Upstreams:    upstreams,
		ProductStore: store,
	}

	return svcs, limiters, nil
}

// initProductStore: REDIS_ADDR doluysa Redis, değilse in-memory TTL cache.
func initProductStore(ctx context.Context, cfg config.RedisConfig) (cache.Store, error) {
	if cfg.Addr == "" {
		logger.Info().Msg("[main] product cache: in-memory")
		return cache.NewMemoryStore(productCacheTTL), nil
	}

	store, err := cache.NewRedisStore(ctx, cache.RedisOptions{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		Prefix:   "storefront:product:",
		TTL:      productCacheTTL,
	})
	if err != nil {
		return nil, err
	}
	logger.Info().Str("addr", cfg.Addr).Msg("[main] product cache: redis")
	return store, nil
}

// newUpstreamClient, retry + circuit breaker ayarlı servis client'ı.
func newUpstreamClient(name, baseURL string, cfg *config.Config) *svcclient.Client {
	retry := svcclient.DefaultRetryPolicy()
	retry.MaxAttempts = cfg.Retry.MaxAttempts
	retry.InitialDelay = cfg.Retry.InitialDelay
	retry.MaxDelay = cfg.Retry.MaxDelay

	return svcclient.New(svcclient.Config{
		Name:       name,
		BaseURL:    baseURL,
		ServiceKey: cfg.Services.InternalKey,
		Timeout:    cfg.Retry.Timeout,
		Retry:      retry,
	})
}

// initEmailSender: Resend ayarları eksikse nil döner, email akışları sessizce atlanır.
func initEmailSender(cfg config.EmailConfig) email.EmailSender {
	if !cfg.EmailEnabled() {
		logger.Info().Msg("[main] email service disabled (RESEND_API_KEY, RESEND_FROM or APP_URL not set)")
		return nil
	}
	logger.Info().Str("from", cfg.FromEmail).Msg("[main] email service enabled")
	return email.NewResendSender(cfg.ResendAPIKey, cfg.FromEmail, cfg.AppURL)
}

// initSealer: ENCRYPTION_KEY boşsa ödeme referansları düz metin saklanır.
func initSealer(key string) (*crypto.Sealer, error) {
	if key == "" {
		logger.Warn().Msg("[main] ENCRYPTION_KEY not set, payment references stored in plaintext")
		return nil, nil
	}
	return crypto.NewSealer(key)
}
