// Package main, storefront backend uygulamasının giriş noktasıdır.
//
// Bu dosyanın görevi Dependency Injection "wire-up" adımlarıdır:
//  1. Logger + Config'i yükle
//  2. Gateway modu ise sadece reverse proxy'yi başlat
//  3. Database'i başlat (embedded migration'lar ile)
//  4. i18n çevirilerini yükle
//  5. Upload dizinini oluştur
//  6. Repository'leri oluştur
//  7. Event bus + WebSocket Hub'ı başlat
//  8. Service'leri oluştur (repository'ler + bus ile)
//  9. Event tüketicilerini bağla
//  10. Bakım job'larını başlat
//  11. Handler'ları ve route'ları kur
//  12. Middleware zinciri + CORS
//  13. HTTP Server'ı başlat
//  14. Graceful shutdown
//
// Global değişken YOK: her şey bu fonksiyonda oluşturulup birbirine bağlanıyor.
package main

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	"github.com/akinalp/storefront/config"
	"github.com/akinalp/storefront/database"
	"github.com/akinalp/storefront/events"
	"github.com/akinalp/storefront/middleware"
	"github.com/akinalp/storefront/pkg/i18n"
	"github.com/akinalp/storefront/pkg/logger"
	"github.com/akinalp/storefront/pkg/svcclient"
	"github.com/akinalp/storefront/ws"
)

func main() {
	// ─── 1. Config ───
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("[main] failed to load config")
	}
	logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	logger.Info().Int("port", cfg.Server.Port).Bool("gateway", cfg.Server.GatewayMode).Msg("[main] storefront server starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ─── 2. Gateway modu ───
	if cfg.Server.GatewayMode {
		handler, err := initGateway(cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("[main] failed to initialize gateway")
		}
		serve(ctx, cfg, withCORS(cfg, handler), nil)
		return
	}

	// ─── 3. Database ───
	db, err := database.New(cfg.Database.Path, database.Migrations())
	if err != nil {
		logger.Fatal().Err(err).Msg("[main] failed to initialize database")
	}
	defer db.Close()

	// ─── 4. i18n (Çoklu Dil Desteği) ───
	locales, err := fs.Sub(i18n.EmbeddedLocales, "locales")
	if err != nil {
		logger.Fatal().Err(err).Msg("[main] failed to open embedded locales")
	}
	if err := i18n.Load(locales); err != nil {
		logger.Fatal().Err(err).Msg("[main] failed to load i18n translations")
	}

	// ─── 5. Upload Dizini ───
	if err := os.MkdirAll(cfg.Upload.Dir, 0755); err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.Upload.Dir).Msg("[main] failed to create upload directory")
	}

	// ─── 6. Repository Layer ───
	repos := initRepositories(db.Conn)

	// ─── 7. Event Bus + WebSocket Hub ───
	//
	// Service'ler event'leri bus'a yayınlar; hub bus'ın tüketicilerinden biridir.
	bus := events.NewBus()
	hub := ws.NewHub()
	go hub.Run()

	// ─── 8. Service Layer ───
	sealer, err := initSealer(cfg.Encryption.Key)
	if err != nil {
		logger.Fatal().Err(err).Msg("[main] invalid ENCRYPTION_KEY")
	}
	emailSender := initEmailSender(cfg.Email)

	svcs, limiters, err := initServices(ctx, db.Conn, repos, bus, emailSender, sealer, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("[main] failed to initialize services")
	}

	// ─── 9. Event Subscribers ───
	if err := registerEventSubscribers(ctx, bus, hub, emailSender, repos.User); err != nil {
		logger.Fatal().Err(err).Msg("[main] failed to register event subscribers")
	}

	// ─── 10. Maintenance ───
	if err := svcs.Maintenance.Start(); err != nil {
		logger.Fatal().Err(err).Msg("[main] failed to start maintenance jobs")
	}

	// ─── 11. Handlers + Routes ───
	h := initHandlers(db.Conn, svcs, limiters, hub, cfg)
	mux := http.NewServeMux()
	initRoutes(mux, h, svcs.Auth, repos.User, cfg)

	// ─── 12. Middleware + CORS ───
	handler := middleware.Chain(mux,
		middleware.RequestID,
		middleware.Metrics,
		middleware.RateLimit(cfg.Server.RateLimitRPM, limiters.ClientIP),
	)

	// ─── 13-14. Server + Graceful Shutdown ───
	serve(ctx, cfg, withCORS(cfg, handler), func(shutdownCtx context.Context) {
		// Önce WebSocket bağlantılarını kapat: client'lar "server shutting down" bilir.
		hub.Shutdown()
		svcs.Maintenance.Stop(shutdownCtx)
		limiters.Stop()
		if err := bus.Close(); err != nil {
			logger.Error().Err(err).Msg("[main] failed to close event bus")
		}
		if err := svcs.ProductStore.Close(); err != nil {
			logger.Error().Err(err).Msg("[main] failed to close product cache")
		}
	})
}

// withCORS, storefront + admin origin'lerine izin veren CORS sarmalayıcısı.
func withCORS(cfg *config.Config, next http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Authorization",
			"Content-Type",
			"Idempotency-Key",
			"X-Request-ID",
			svcclient.ServiceKeyHeader,
		},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: true,
	}).Handler(next)
}

// serve, HTTP server'ı başlatır ve sinyal gelene kadar bekler.
// beforeShutdown, server kapanmadan önce çalışır (nil olabilir).
func serve(ctx context.Context, cfg *config.Config, handler http.Handler, beforeShutdown func(context.Context)) {
	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.Server.Addr()).Msg("[main] server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("[main] server error")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("[main] shutting down...")

	// Mevcut request'lerin bitmesi için 10sn
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if beforeShutdown != nil {
		beforeShutdown(shutdownCtx)
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("[main] forced shutdown")
		return
	}
	logger.Info().Msg("[main] server stopped gracefully")
}
