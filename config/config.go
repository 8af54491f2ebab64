// Package config, uygulamanın tüm konfigürasyonunu merkezi olarak yönetir.
// Environment variable'lardan okur, .env dosyasını da destekler.
//
// Config struct'ı tüm ayarları tek bir yerde toplar; servisler tek tek
// os.Getenv() çağırmak yerine ilgili alt struct'ı constructor'dan alır.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config, uygulamanın tüm konfigürasyon değerlerini taşır.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	Email      EmailConfig
	Upload     UploadConfig
	Encryption EncryptionConfig
	Services   ServicesConfig
	Retry      RetryConfig
	Checkout   CheckoutConfig
	Redis      RedisConfig
	Log        LogConfig
}

// ServerConfig, HTTP server ayarları.
type ServerConfig struct {
	Host           string
	Port           int
	GatewayMode    bool     // true → sadece reverse proxy (API gateway) çalışır
	AllowedOrigins []string // CORS: admin dashboard + storefront origin'leri
	RateLimitRPM   int      // IP başına dakikalık istek limiti (0 = kapalı)
	// TrustedProxies, X-Forwarded-For/X-Real-IP okunan proxy IP/CIDR'ları (ör. gateway).
	// Boşsa client IP'si her zaman RemoteAddr'dır.
	TrustedProxies []string
}

// DatabaseConfig, SQLite database ayarları.
type DatabaseConfig struct {
	Path string // ör: ./data/storefront.db
}

// JWTConfig, JWT token ayarları.
type JWTConfig struct {
	Secret             string // Token imzalama anahtarı: GİZLİ TUTULMALI
	AccessTokenExpiry  int    // Dakika
	RefreshTokenExpiry int    // Gün
}

// EmailConfig, Resend email ayarları. Üçü de boş değilse email aktif olur.
type EmailConfig struct {
	ResendAPIKey string
	FromEmail    string
	AppURL       string // Storefront public URL'i: email linklerinde kullanılır
}

// UploadConfig, ürün görseli yükleme ayarları.
type UploadConfig struct {
	Dir     string
	MaxSize int64 // Byte
}

// EncryptionConfig, ödeme referanslarını şifrelemek için AES-256 anahtarı.
// Boşsa provider referansları düz metin saklanır.
type EncryptionConfig struct {
	Key string // 64 hex karakter
}

// ServicesConfig, servisler arası iletişim ayarları.
//
// ProductURL / InventoryURL boşsa sipariş akışı in-process adapter kullanır,
// doluysa ilgili instance'a REST çağrısı yapılır.
type ServicesConfig struct {
	ProductURL   string
	InventoryURL string
	InternalKey  string            // X-Service-Key header'ı ile iç endpoint'lere erişim
	Upstreams    map[string]string // Gateway modu: servis adı → base URL
}

// RetryConfig, upstream çağrılarının retry/backoff ayarları.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Timeout      time.Duration // Tek bir HTTP denemesinin timeout'u
}

// CheckoutConfig, sipariş toplam hesaplama kuralları.
type CheckoutConfig struct {
	Currency              string
	TaxRateBps            int64 // Baz puan: 1800 = %18
	FlatShippingCents     int64
	FreeShippingThreshold int64 // Bu tutar ve üstünde kargo ücretsiz (0 = hiç ücretsiz değil)
	ReservationTTL        time.Duration
}

// RedisConfig, ürün cache'i için opsiyonel Redis. Addr boşsa in-memory TTL cache kullanılır.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LogConfig, zerolog ayarları.
type LogConfig struct {
	Level  string
	Format string // json | console
}

// Load, environment variable'lardan Config oluşturur.
// .env dosyası varsa önce onu yükler.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("SERVER_PORT", "9090"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	rateLimit, err := strconv.Atoi(getEnv("RATE_LIMIT_RPM", "300"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPM: %w", err)
	}

	accessExpiry, err := strconv.Atoi(getEnv("JWT_ACCESS_EXPIRY_MINUTES", "15"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_ACCESS_EXPIRY_MINUTES: %w", err)
	}

	refreshExpiry, err := strconv.Atoi(getEnv("JWT_REFRESH_EXPIRY_DAYS", "7"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_REFRESH_EXPIRY_DAYS: %w", err)
	}

	maxSize, err := strconv.ParseInt(getEnv("UPLOAD_MAX_SIZE", "5242880"), 10, 64) // 5MB
	if err != nil {
		return nil, fmt.Errorf("invalid UPLOAD_MAX_SIZE: %w", err)
	}

	retryAttempts, err := strconv.Atoi(getEnv("RETRY_MAX_ATTEMPTS", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid RETRY_MAX_ATTEMPTS: %w", err)
	}

	retryInitial, err := time.ParseDuration(getEnv("RETRY_INITIAL_DELAY", "200ms"))
	if err != nil {
		return nil, fmt.Errorf("invalid RETRY_INITIAL_DELAY: %w", err)
	}

	retryMax, err := time.ParseDuration(getEnv("RETRY_MAX_DELAY", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid RETRY_MAX_DELAY: %w", err)
	}

	upstreamTimeout, err := time.ParseDuration(getEnv("UPSTREAM_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid UPSTREAM_TIMEOUT: %w", err)
	}

	taxBps, err := strconv.ParseInt(getEnv("CHECKOUT_TAX_RATE_BPS", "0"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid CHECKOUT_TAX_RATE_BPS: %w", err)
	}

	flatShipping, err := strconv.ParseInt(getEnv("CHECKOUT_FLAT_SHIPPING_CENTS", "499"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid CHECKOUT_FLAT_SHIPPING_CENTS: %w", err)
	}

	freeThreshold, err := strconv.ParseInt(getEnv("CHECKOUT_FREE_SHIPPING_CENTS", "5000"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid CHECKOUT_FREE_SHIPPING_CENTS: %w", err)
	}

	reservationTTL, err := time.ParseDuration(getEnv("RESERVATION_TTL", "30m"))
	if err != nil {
		return nil, fmt.Errorf("invalid RESERVATION_TTL: %w", err)
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	gatewayMode, err := strconv.ParseBool(getEnv("GATEWAY_MODE", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid GATEWAY_MODE: %w", err)
	}

	upstreams, err := parseUpstreams(getEnv("GATEWAY_UPSTREAMS", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid GATEWAY_UPSTREAMS: %w", err)
	}

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" && !gatewayMode {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	if gatewayMode && len(upstreams) == 0 {
		return nil, fmt.Errorf("GATEWAY_UPSTREAMS is required in gateway mode")
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           port,
			GatewayMode:    gatewayMode,
			AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:3001")),
			RateLimitRPM:   rateLimit,
			TrustedProxies: splitList(getEnv("TRUSTED_PROXIES", "")),
		},
		Database: DatabaseConfig{
			Path: getEnv("DATABASE_PATH", "./data/storefront.db"),
		},
		JWT: JWTConfig{
			Secret:             jwtSecret,
			AccessTokenExpiry:  accessExpiry,
			RefreshTokenExpiry: refreshExpiry,
		},
		Email: EmailConfig{
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
			FromEmail:    getEnv("RESEND_FROM", ""),
			AppURL:       strings.TrimRight(getEnv("APP_URL", ""), "/"),
		},
		Upload: UploadConfig{
			Dir:     getEnv("UPLOAD_DIR", "./data/uploads"),
			MaxSize: maxSize,
		},
		Encryption: EncryptionConfig{
			Key: getEnv("ENCRYPTION_KEY", ""),
		},
		Services: ServicesConfig{
			ProductURL:   strings.TrimRight(getEnv("PRODUCT_SERVICE_URL", ""), "/"),
			InventoryURL: strings.TrimRight(getEnv("INVENTORY_SERVICE_URL", ""), "/"),
			InternalKey:  getEnv("INTERNAL_SERVICE_KEY", ""),
			Upstreams:    upstreams,
		},
		Retry: RetryConfig{
			MaxAttempts:  retryAttempts,
			InitialDelay: retryInitial,
			MaxDelay:     retryMax,
			Timeout:      upstreamTimeout,
		},
		Checkout: CheckoutConfig{
			Currency:              strings.ToUpper(getEnv("CHECKOUT_CURRENCY", "USD")),
			TaxRateBps:            taxBps,
			FlatShippingCents:     flatShipping,
			FreeShippingThreshold: freeThreshold,
			ReservationTTL:        reservationTTL,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

// Addr, HTTP server'ın dinleyeceği adresi döner (ör: "0.0.0.0:9090").
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// EmailEnabled, Resend ayarlarının tam olup olmadığını döner.
func (c *EmailConfig) EmailEnabled() bool {
	return c.ResendAPIKey != "" && c.FromEmail != "" && c.AppURL != ""
}

// parseUpstreams, "auth=http://a:9090,product=http://b:9090" formatını parse eder.
func parseUpstreams(raw string) (map[string]string, error) {
	upstreams := make(map[string]string)
	for _, pair := range splitList(raw) {
		name, target, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		target = strings.TrimRight(strings.TrimSpace(target), "/")
		if !ok || name == "" || target == "" {
			return nil, fmt.Errorf("malformed upstream %q, expected name=url", pair)
		}
		upstreams[name] = target
	}
	return upstreams, nil
}

// splitList, virgülle ayrılmış listeyi boş elemanları atarak böler.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getEnv, environment variable'ı okur, yoksa fallback değeri döner.
func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
