// Package svcclient, servisler arası REST çağrıları için dayanıklı HTTP client.
//
// Her upstream için bir Client oluşturulur:
//   - GET istekleri ağ hatası, 5xx, 429 ve 408'de exponential backoff + jitter ile tekrarlanır
//   - Diğer 4xx yanıtlar anında döner (StatusError → pkg domain error)
//   - POST istekleri SADECE Idempotency-Key taşıyorsa tekrarlanır
//   - Circuit breaker (gobreaker) ardışık hatalarda upstream'i kısa süreliğine keser
//
// Upstream yanıtları pkg.APIResponse zarfındadır; "data" alanı out'a decode edilir.
package svcclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"

	"github.com/akinalp/storefront/pkg"
	"github.com/akinalp/storefront/pkg/logger"
	"github.com/akinalp/storefront/pkg/metrics"
)

// Header adları
const (
	ServiceKeyHeader     = "X-Service-Key"
	IdempotencyKeyHeader = "Idempotency-Key"
)

// maxBodySize, upstream yanıtından okunacak maksimum byte (1MB).
const maxBodySize = 1 << 20

// Config, tek bir upstream client'ının ayarları.
type Config struct {
	Name       string // Log ve metric etiketi (ör: "product")
	BaseURL    string
	ServiceKey string // Boş değilse X-Service-Key header'ı eklenir
	Timeout    time.Duration
	Retry      RetryPolicy

	// Circuit breaker: FailureThreshold ardışık hatadan sonra açılır,
	// OpenTimeout sonra half-open'a geçer.
	FailureThreshold uint32
	OpenTimeout      time.Duration

	// HTTPClient, test için override edilebilir. nil → Timeout ile yeni client.
	HTTPClient *http.Client
}

// StatusError, upstream'in 2xx dışı yanıtını taşır.
// Unwrap, status code'a karşılık gelen pkg domain error'unu döner; böylece
// handler katmanı remote hataları local hatalarla aynı şekilde map'ler.
type StatusError struct {
	Service    string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: upstream returned %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Service, e.Message)
}

func (e *StatusError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusNotFound:
		return pkg.ErrNotFound
	case e.StatusCode == http.StatusConflict:
		return pkg.ErrConflict
	case e.StatusCode == http.StatusUnauthorized:
		return pkg.ErrUnauthorized
	case e.StatusCode == http.StatusForbidden:
		return pkg.ErrForbidden
	case retryableStatus(e.StatusCode):
		return pkg.ErrUnavailable
	default:
		return pkg.ErrBadRequest
	}
}

// Client, tek bir upstream servise bağlı dayanıklı HTTP client.
type Client struct {
	name       string
	baseURL    string
	serviceKey string
	http       *http.Client
	retry      RetryPolicy
	breaker    *gobreaker.CircuitBreaker[[]byte]
}

// New, yeni bir Client oluşturur.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	openTimeout := cfg.OpenTimeout
	if openTimeout <= 0 {
		openTimeout = 30 * time.Second
	}

	name := cfg.Name
	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: breakerSuccess,
		OnStateChange: func(_ string, from, to gobreaker.State) {
			metrics.CircuitState.WithLabelValues(name).Set(float64(to))
			logger.Warn().
				Str("upstream", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("[svcclient] circuit breaker state changed")
		},
	})
	metrics.CircuitState.WithLabelValues(name).Set(0)

	return &Client{
		name:       name,
		baseURL:    cfg.BaseURL,
		serviceKey: cfg.ServiceKey,
		http:       httpClient,
		retry:      cfg.Retry,
		breaker:    breaker,
	}
}

// Name, upstream adını döner.
func (c *Client) Name() string { return c.name }

// BreakerState, circuit breaker'ın anlık durumunu döner ("closed", "open", "half-open").
func (c *Client) BreakerState() string { return c.breaker.State().String() }

// Get, GET isteği gönderir ve yanıt zarfındaki data'yı out'a decode eder.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, "", out)
}

// Post, POST isteği gönderir. idempotencyKey boşsa istek tekrarlanmaz.
func (c *Client) Post(ctx context.Context, path string, body any, idempotencyKey string, out any) error {
	return c.do(ctx, http.MethodPost, path, body, idempotencyKey, out)
}

func (c *Client) do(ctx context.Context, method, path string, body any, idempotencyKey string, out any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request body: %w", c.name, err)
		}
		payload = b
	}

	policy := c.retry
	if method != http.MethodGet && idempotencyKey == "" {
		policy.MaxAttempts = 1
	}

	attempts := 0
	var respBody []byte
	err := withBackoff(ctx, policy, func(err error) bool { return isRetryable(ctx, err) }, func() error {
		attempts++
		b, err := c.breaker.Execute(func() ([]byte, error) {
			return c.send(ctx, method, path, payload, idempotencyKey)
		})
		c.record(err)
		if err != nil {
			return err
		}
		respBody = b
		return nil
	})

	if err != nil {
		return c.finalError(ctx, err, attempts)
	}

	if out == nil {
		return nil
	}

	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(respBody, &env); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", c.name, err)
	}
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode %s response data: %w", c.name, err)
	}
	return nil
}

// send, tek bir HTTP denemesi yapar. 2xx → body, diğer her status → StatusError.
func (c *Client) send(ctx context.Context, method, path string, payload []byte, idempotencyKey string) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", c.name, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.serviceKey != "" {
		req.Header.Set(ServiceKeyHeader, c.serviceKey)
	}
	if idempotencyKey != "" {
		req.Header.Set(IdempotencyKeyHeader, idempotencyKey)
	}
	if rid := pkg.RequestIDFrom(ctx); rid != "" {
		req.Header.Set(pkg.RequestIDHeader, rid)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", c.name, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}

	return nil, &StatusError{Service: c.name, StatusCode: resp.StatusCode, Message: envelopeMessage(body)}
}

// breakerSuccess: 4xx yanıtlar upstream'in sağlıklı olduğunu gösterir,
// circuit sayacına hata olarak yazılmaz.
func breakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return !retryableStatus(se.StatusCode)
	}
	return false
}

func (c *Client) record(err error) {
	outcome := "success"
	var se *StatusError
	switch {
	case err == nil:
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		outcome = "circuit_open"
	case errors.As(err, &se) && retryableStatus(se.StatusCode):
		outcome = "server_error"
	case errors.As(err, &se):
		outcome = "client_error"
	default:
		outcome = "network_error"
	}
	metrics.UpstreamCalls.WithLabelValues(c.name, outcome).Inc()
}

func (c *Client) finalError(ctx context.Context, err error, attempts int) error {
	var se *StatusError
	if errors.As(err, &se) && !retryableStatus(se.StatusCode) {
		return se
	}

	if ctx.Err() != nil {
		return fmt.Errorf("%s call aborted: %w", c.name, err)
	}

	if errors.Is(err, gobreaker.ErrOpenState) {
		return fmt.Errorf("%w: %s circuit open", pkg.ErrUnavailable, c.name)
	}

	logger.Warn().
		Err(err).
		Str("upstream", c.name).
		Int("attempts", attempts).
		Msg("[svcclient] upstream call failed")

	return fmt.Errorf("%w: %s failed after %d attempt(s): %v", pkg.ErrUnavailable, c.name, attempts, err)
}

func envelopeMessage(body []byte) string {
	var env pkg.APIResponse
	if err := json.Unmarshal(body, &env); err == nil && env.Error != "" {
		return env.Error
	}
	return ""
}
