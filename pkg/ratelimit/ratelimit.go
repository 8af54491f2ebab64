// Package ratelimit, in-memory sabit pencereli rate limiter'lar sağlar.
//
// LoginRateLimiter IP bazlıdır (brute-force koruması), ActionRateLimiter
// kullanıcı bazlıdır ve limit aşımında ayrı bir ceza süresi uygular
// (checkout spam koruması). Paket hiçbir proje içi pakete bağımlı değildir.
package ratelimit

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"
)

// bucket, bir key için pencere sayacı.
type bucket struct {
	count       int
	windowStart time.Time
}

// LoginRateLimiter, IP bazlı login rate limiting.
//
//	limiter := NewLoginRateLimiter(5, 2*time.Minute)
//	if !limiter.Allow(ip) { return 429 }
//	limiter.Reset(ip) // başarılı login sonrası
type LoginRateLimiter struct {
	mu          sync.RWMutex
	buckets     map[string]*bucket
	maxAttempts int
	window      time.Duration
	now         func() time.Time
	stop        chan struct{}
	stopOnce    sync.Once
}

// NewLoginRateLimiter, limiter'ı oluşturur ve cleanup goroutine'ini başlatır.
func NewLoginRateLimiter(maxAttempts int, window time.Duration) *LoginRateLimiter {
	rl := &LoginRateLimiter{
		buckets:     make(map[string]*bucket),
		maxAttempts: maxAttempts,
		window:      window,
		now:         time.Now,
		stop:        make(chan struct{}),
	}
	go runCleanup(time.Minute, rl.stop, rl.cleanup)
	return rl
}

// Allow, her çağrıda sayacı artırır. false → caller 429 dönmeli.
func (rl *LoginRateLimiter) Allow(ip string) bool {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[ip]
	if !ok || now.Sub(b.windowStart) > rl.window {
		rl.buckets[ip] = &bucket{count: 1, windowStart: now}
		return true
	}

	b.count++
	return b.count <= rl.maxAttempts
}

// Reset, IP sayacını siler. Başarılı login sonrası çağrılır.
func (rl *LoginRateLimiter) Reset(ip string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.buckets, ip)
}

// RetryAfterSeconds, Retry-After header değeri. Pencere yoksa 0.
func (rl *LoginRateLimiter) RetryAfterSeconds(ip string) int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	b, ok := rl.buckets[ip]
	if !ok {
		return 0
	}
	return ceilSeconds(rl.window - rl.now().Sub(b.windowStart))
}

// Stop, cleanup goroutine'ini durdurur.
func (rl *LoginRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *LoginRateLimiter) cleanup() {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for ip, b := range rl.buckets {
		if now.Sub(b.windowStart) > rl.window {
			delete(rl.buckets, ip)
		}
	}
}

// ─── Per-user action limiter ───

type actionBucket struct {
	bucket
	blockedUntil time.Time
}

// ActionRateLimiter, kullanıcı bazlı limiter. Pencere içinde max aşılırsa
// kullanıcı cooldown süresince tamamen bloklanır; cooldown bitince pencere sıfırlanır.
//
//	limiter := NewActionRateLimiter(3, time.Minute, 2*time.Minute)
//	if !limiter.Allow(userID) { return 429 }
type ActionRateLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*actionBucket
	max      int
	window   time.Duration
	cooldown time.Duration
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

// NewActionRateLimiter, limiter'ı oluşturur ve cleanup goroutine'ini başlatır.
func NewActionRateLimiter(max int, window, cooldown time.Duration) *ActionRateLimiter {
	rl := &ActionRateLimiter{
		buckets:  make(map[string]*actionBucket),
		max:      max,
		window:   window,
		cooldown: cooldown,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go runCleanup(30*time.Second, rl.stop, rl.cleanup)
	return rl
}

func (rl *ActionRateLimiter) Allow(key string) bool {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[key]
	if !ok {
		rl.buckets[key] = &actionBucket{bucket: bucket{count: 1, windowStart: now}}
		return true
	}

	if now.Before(b.blockedUntil) {
		return false
	}

	// Cooldown bitti veya pencere doldu → yeni pencere
	if !b.blockedUntil.IsZero() || now.Sub(b.windowStart) > rl.window {
		b.count = 1
		b.windowStart = now
		b.blockedUntil = time.Time{}
		return true
	}

	b.count++
	if b.count > rl.max {
		b.blockedUntil = now.Add(rl.cooldown)
		return false
	}
	return true
}

// CooldownSeconds, kalan ceza süresi. Blok yoksa 0.
func (rl *ActionRateLimiter) CooldownSeconds(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[key]
	if !ok || b.blockedUntil.IsZero() {
		return 0
	}
	return ceilSeconds(b.blockedUntil.Sub(rl.now()))
}

func (rl *ActionRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *ActionRateLimiter) cleanup() {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, b := range rl.buckets {
		if now.Sub(b.windowStart) > rl.window && !now.Before(b.blockedUntil) {
			delete(rl.buckets, key)
		}
	}
}

func runCleanup(every time.Duration, stop <-chan struct{}, fn func()) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fn()
		case <-stop:
			return
		}
	}
}

// ceilSeconds, client tam süreyi beklesin diye yukarı yuvarlar.
func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(d.Seconds()) + 1
}

// ClientIP, rate limit key'i olarak kullanılan client IP'sini çözer.
// X-Forwarded-For ve X-Real-IP yalnızca RemoteAddr güvenilen bir proxy ise
// okunur; aksi halde header'lar client tarafından yazılabildiği için yok sayılır.
//
//	ips, _ := NewClientIP([]string{"10.0.0.0/8"})
//	key := ips.FromRequest(r)
type ClientIP struct {
	trusted []netip.Prefix
}

// NewClientIP, IP veya CIDR listesinden resolver oluşturur. Boş liste hiçbir
// proxy'ye güvenmez.
func NewClientIP(trustedProxies []string) (*ClientIP, error) {
	c := &ClientIP{}
	for _, raw := range trustedProxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.Contains(raw, "/") {
			prefix, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy %q: %w", raw, err)
			}
			c.trusted = append(c.trusted, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", raw, err)
		}
		addr = addr.Unmap()
		c.trusted = append(c.trusted, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return c, nil
}

// FromRequest, client IP'sini döner. nil resolver sadece RemoteAddr kullanır.
func (c *ClientIP) FromRequest(r *http.Request) string {
	remote := remoteHost(r.RemoteAddr)
	if c == nil || !c.isTrusted(remote) {
		return remote
	}

	// Sağdan sola: güvenilen proxy'ler atlanır, ilk güvenilmeyen adres client'tır
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			if !c.isTrusted(hop) || i == 0 {
				return hop
			}
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return remote
}

// Key, httprate.KeyFunc imzası.
func (c *ClientIP) Key(r *http.Request) (string, error) {
	return c.FromRequest(r), nil
}

func (c *ClientIP) isTrusted(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range c.trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

func remoteHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

// FormatRetryMessage, saniyeyi okunur hale getirir: 120 → "2 minute(s)".
func FormatRetryMessage(seconds int) string {
	if seconds >= 60 {
		return fmt.Sprintf("%d minute(s)", seconds/60)
	}
	return fmt.Sprintf("%d second(s)", seconds)
}
