// Package metrics, Prometheus metric tanımlarını tek bir yerde toplar.
//
// Metric'ler promauto ile default registry'ye kayıt olur ve
// GET /metrics endpoint'inden (promhttp.Handler) okunur.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "storefront"

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route pattern, method and status code.",
	}, []string{"route", "method", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route pattern.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	OrdersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_created_total",
		Help:      "Orders successfully placed.",
	})

	OrdersFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_failed_total",
		Help:      "Order placement failures by stage.",
	}, []string{"stage"})

	OrderRevenueCents = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_revenue_cents_total",
		Help:      "Sum of placed order totals in minor currency units.",
	})

	UpstreamCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upstream_calls_total",
		Help:      "Inter-service calls by upstream and outcome.",
	}, []string{"upstream", "outcome"})

	CircuitState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "circuit_breaker_state",
		Help:      "Circuit breaker state per upstream (0=closed, 1=half-open, 2=open).",
	}, []string{"upstream"})

	EmailsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "emails_sent_total",
		Help:      "Transactional emails by kind and outcome.",
	}, []string{"kind", "outcome"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "product_cache_lookups_total",
		Help:      "Product cache lookups by result (hit/miss).",
	}, []string{"result"})

	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_published_total",
		Help:      "Domain events published by topic.",
	}, []string{"topic"})

	GatewayRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gateway_requests_total",
		Help:      "Requests proxied by the gateway per upstream and status.",
	}, []string{"upstream", "status"})
)

// ObserveHTTP, tamamlanan bir HTTP isteğini kaydeder.
func ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	HTTPRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}
