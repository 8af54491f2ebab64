// Package gateway, GATEWAY_MODE=true iken çalışan API gateway'i barındırır.
//
// İstekler path'in ilk segmentine göre upstream'e yönlendirilir:
//
//	/api/product/...  → "product" upstream'i
//	/api/products/... → alias → "product"
//	/ws               → "ws" upstream'i (websocket upgrade dahil)
//
// Path olduğu gibi iletilir; upstream'ler aynı /api/... yüzeyini sunar.
// CORS, request ID, metrics ve per-IP rate limit gateway'in kendi
// middleware zincirinde uygulanır (main.go).
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/akinalp/storefront/pkg"
	"github.com/akinalp/storefront/pkg/logger"
	"github.com/akinalp/storefront/pkg/metrics"
	"github.com/akinalp/storefront/pkg/svcclient"
)

// healthTimeout, tek bir upstream'in /api/health yanıtı için üst süre.
const healthTimeout = 3 * time.Second

// DefaultAliases, çoğul REST kaynak adlarını servis adlarına eşler.
var DefaultAliases = map[string]string{
	"users":     "auth",
	"orders":    "order",
	"products":  "product",
	"uploads":   "product",
	"payments":  "payment",
	"shipments": "shipping",
	"reviews":   "review",

	// Admin uçları sipariş/stok/ürün verisini order instance'ında okur
	"admin": "order",
}

type upstream struct {
	name   string
	target *url.URL
	proxy  *httputil.ReverseProxy
	health *svcclient.Client
}

// Gateway, path prefix → upstream reverse proxy.
type Gateway struct {
	upstreams map[string]*upstream
	aliases   map[string]string
}

// New, upstream haritasından gateway oluşturur. aliases nil ise DefaultAliases kullanılır.
func New(upstreams map[string]string, aliases map[string]string) (*Gateway, error) {
	if len(upstreams) == 0 {
		return nil, fmt.Errorf("gateway: no upstreams configured")
	}
	if aliases == nil {
		aliases = DefaultAliases
	}

	g := &Gateway{
		upstreams: make(map[string]*upstream, len(upstreams)),
		aliases:   aliases,
	}

	for name, raw := range upstreams {
		target, err := url.Parse(raw)
		if err != nil || target.Scheme == "" || target.Host == "" {
			return nil, fmt.Errorf("gateway: invalid url for upstream %q: %s", name, raw)
		}

		u := &upstream{
			name:   name,
			target: target,
			health: svcclient.New(svcclient.Config{
				Name:    "gateway-" + name,
				BaseURL: raw,
				Timeout: healthTimeout,
				Retry:   svcclient.RetryPolicy{MaxAttempts: 1},
			}),
		}
		u.proxy = &httputil.ReverseProxy{
			Rewrite:        u.rewrite,
			ModifyResponse: u.countResponse,
			ErrorHandler:   u.fail,
		}
		g.upstreams[name] = u
	}

	for alias, name := range aliases {
		if _, ok := g.upstreams[name]; !ok {
			logger.Debug().Str("alias", alias).Str("upstream", name).Msg("[gateway] alias points to unconfigured upstream")
		}
	}

	return g, nil
}

// ServeHTTP, isteği upstream'e iletir. Eşleşen upstream yoksa 404.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u, ok := g.resolve(r.URL.Path)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusNotFound, "no upstream for path")
		return
	}
	u.proxy.ServeHTTP(w, r)
}

// resolve: "/api/<name>/..." için name, "/ws" için "ws" upstream'i.
func (g *Gateway) resolve(path string) (*upstream, bool) {
	var segment string
	if rest, ok := strings.CutPrefix(path, "/api/"); ok {
		segment, _, _ = strings.Cut(rest, "/")
	} else if path == "/ws" {
		segment = "ws"
	}
	if segment == "" {
		return nil, false
	}

	if u, ok := g.upstreams[segment]; ok {
		return u, true
	}
	if name, ok := g.aliases[segment]; ok {
		u, ok := g.upstreams[name]
		return u, ok
	}
	return nil, false
}

// UpstreamHealth, tek upstream'in sağlık raporu.
type UpstreamHealth struct {
	Status  string `json:"status"`
	Latency string `json:"latency"`
	Error   string `json:"error,omitempty"`
}

// HealthReport, GET /api/health yanıtı (gateway modu).
type HealthReport struct {
	Status    string                    `json:"status"`
	Upstreams map[string]UpstreamHealth `json:"upstreams"`
}

// Health godoc
// GET /api/health
//
// Tüm upstream'lerin /api/health'ini paralel sorar. Hepsi sağlıklıysa 200 "ok";
// en az biri erişilemezse 503 "degraded".
func (g *Gateway) Health(w http.ResponseWriter, r *http.Request) {
	report := g.CheckHealth(r.Context())

	status := http.StatusOK
	if report.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	pkg.JSON(w, status, report)
}

// CheckHealth, upstream sağlıklarını toplar.
func (g *Gateway) CheckHealth(ctx context.Context) HealthReport {
	names := make([]string, 0, len(g.upstreams))
	for name := range g.upstreams {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]UpstreamHealth, len(names))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, name := range names {
		u := g.upstreams[name]
		eg.Go(func() error {
			results[i] = u.check(egCtx)
			return nil
		})
	}
	_ = eg.Wait()

	report := HealthReport{Status: "ok", Upstreams: make(map[string]UpstreamHealth, len(names))}
	for i, name := range names {
		report.Upstreams[name] = results[i]
		if results[i].Status != "ok" {
			report.Status = "degraded"
		}
	}
	return report
}

func (u *upstream) check(ctx context.Context) UpstreamHealth {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	var body struct {
		Status string `json:"status"`
	}
	start := time.Now()
	err := u.health.Get(ctx, "/api/health", &body)
	h := UpstreamHealth{Status: body.Status, Latency: time.Since(start).Round(time.Millisecond).String()}
	if err != nil {
		h.Status = "unreachable"
		h.Error = err.Error()
	}
	return h
}

// rewrite, giden isteği upstream'e yönlendirir ve request ID'yi taşır.
func (u *upstream) rewrite(pr *httputil.ProxyRequest) {
	pr.SetURL(u.target)
	pr.SetXForwarded()

	if id := pkg.RequestIDFrom(pr.In.Context()); id != "" {
		pr.Out.Header.Set(pkg.RequestIDHeader, id)
	}
}

func (u *upstream) countResponse(resp *http.Response) error {
	metrics.GatewayRequests.WithLabelValues(u.name, strconv.Itoa(resp.StatusCode)).Inc()
	return nil
}

// fail, upstream'e ulaşılamadığında 502 zarfı döner.
func (u *upstream) fail(w http.ResponseWriter, r *http.Request, err error) {
	metrics.GatewayRequests.WithLabelValues(u.name, strconv.Itoa(http.StatusBadGateway)).Inc()
	logger.Error().
		Err(err).
		Str("upstream", u.name).
		Str("path", r.URL.Path).
		Str("request_id", pkg.RequestIDFrom(r.Context())).
		Msg("[gateway] upstream request failed")
	pkg.ErrorWithMessage(w, http.StatusBadGateway, fmt.Sprintf("upstream %s unavailable", u.name))
}
