// Package main: Gateway modu.
//
// GATEWAY_MODE=true iken bu process domain servislerini çalıştırmaz; sadece
// GATEWAY_UPSTREAMS'teki instance'lara reverse proxy yapar.
package main

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/akinalp/storefront/config"
	"github.com/akinalp/storefront/gateway"
	"github.com/akinalp/storefront/middleware"
	"github.com/akinalp/storefront/pkg/ratelimit"
)

// initGateway, gateway router'ını ve middleware zincirini kurar.
func initGateway(cfg *config.Config) (http.Handler, error) {
	g, err := gateway.New(cfg.Services.Upstreams, nil)
	if err != nil {
		return nil, err
	}

	clientIP, err := ratelimit.NewClientIP(cfg.Server.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TRUSTED_PROXIES: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", g.Health)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("/api/", g)
	mux.Handle("/ws", g)

	return middleware.Chain(mux,
		middleware.RequestID,
		middleware.Metrics,
		middleware.RateLimit(cfg.Server.RateLimitRPM, clientIP),
	), nil
}
