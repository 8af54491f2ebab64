package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	"github.com/google/uuid"

	"github.com/akinalp/storefront/pkg"
	"github.com/akinalp/storefront/pkg/logger"
	"github.com/akinalp/storefront/pkg/metrics"
	"github.com/akinalp/storefront/pkg/ratelimit"
)

// maxRequestIDLen, client'tan gelen X-Request-ID'nin kabul edilen uzunluğu.
const maxRequestIDLen = 128

// RequestID, gelen X-Request-ID'yi korur veya yenisini üretir; ID hem
// response header'ına hem context'e yazılır. svcclient aynı ID'yi upstream'e taşır.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(pkg.RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}

		w.Header().Set(pkg.RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(pkg.WithRequestID(r.Context(), id)))
	})
}

// statusRecorder, handler'ın yazdığı status code'u yakalar.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Unwrap, http.ResponseController'ın (ws upgrade için Hijack) alttaki writer'a ulaşmasını sağlar.
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// Metrics, her isteği route pattern'i ile Prometheus'a yazar.
//
// Label olarak ham URL değil ServeMux pattern'i kullanılır ("GET /api/orders/{id}");
// aksi halde her sipariş ID'si yeni bir time series açar.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		metrics.ObserveHTTP(route, r.Method, rec.status, elapsed)

		if rec.status >= http.StatusInternalServerError {
			logger.Error().
				Str("request_id", pkg.RequestIDFrom(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.status).
				Dur("elapsed", elapsed).
				Msg("[http] request failed")
		}
	})
}

// RateLimit, IP başına dakikalık istek limiti. rpm <= 0 ise limit yoktur.
// IP, clientIP ile çözülür: forwarding header'ları sadece güvenilen proxy'den gelirse okunur.
// Limit aşıldığında standart JSON zarfıyla 429 döner.
func RateLimit(rpm int, clientIP *ratelimit.ClientIP) func(http.Handler) http.Handler {
	if rpm <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		rpm,
		time.Minute,
		httprate.WithKeyFuncs(clientIP.Key),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			pkg.ErrorWithMessage(w, http.StatusTooManyRequests, "too many requests, please slow down")
		}),
	)
}

// Chain, middleware'ları soldan sağa sarar: Chain(h, a, b) → a(b(h)).
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
