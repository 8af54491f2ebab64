package svcclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/storefront/pkg"
)

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   attempts,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2,
		JitterFactor:  0.1,
	}
}

func newTestClient(t *testing.T, url string, attempts int, threshold uint32) *Client {
	t.Helper()
	return New(Config{
		Name:             t.Name(),
		BaseURL:          url,
		ServiceKey:       "secret",
		Timeout:          time.Second,
		Retry:            fastPolicy(attempts),
		FailureThreshold: threshold,
		OpenTimeout:      time.Minute,
	})
}

func TestGetRetriesServerErrorsThenSucceeds(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get(ServiceKeyHeader))
		if hits.Add(1) < 3 {
			pkg.ErrorWithMessage(w, http.StatusServiceUnavailable, "warming up")
			return
		}
		pkg.JSON(w, http.StatusOK, map[string]any{"id": "p1", "price_cents": 1250})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 3, 10)

	var out struct {
		ID         string `json:"id"`
		PriceCents int64  `json:"price_cents"`
	}
	require.NoError(t, c.Get(context.Background(), "/api/products/p1", &out))
	assert.Equal(t, int32(3), hits.Load())
	assert.Equal(t, "p1", out.ID)
	assert.Equal(t, int64(1250), out.PriceCents)
}

func TestGetDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		pkg.ErrorWithMessage(w, http.StatusNotFound, "product not found")
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 5, 10)

	err := c.Get(context.Background(), "/api/products/missing", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, pkg.ErrNotFound)
	assert.Contains(t, err.Error(), "product not found")
	assert.Equal(t, int32(1), hits.Load())
}

func TestGetRetriesTooManyRequests(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			pkg.ErrorWithMessage(w, http.StatusTooManyRequests, "slow down")
			return
		}
		pkg.JSON(w, http.StatusOK, nil)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 3, 10)

	require.NoError(t, c.Get(context.Background(), "/x", nil))
	assert.Equal(t, int32(2), hits.Load())
}

func TestGetExhaustedRetriesReturnUnavailable(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 3, 10)

	err := c.Get(context.Background(), "/x", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, pkg.ErrUnavailable)
	assert.Equal(t, int32(3), hits.Load())
}

func TestPostWithoutIdempotencyKeyIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 4, 10)

	err := c.Post(context.Background(), "/api/inventory/reserve", map[string]string{"a": "b"}, "", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, pkg.ErrUnavailable)
	assert.Equal(t, int32(1), hits.Load())
}

func TestPostWithIdempotencyKeyIsRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ORD-1", r.Header.Get(IdempotencyKeyHeader))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		pkg.JSON(w, http.StatusOK, map[string]string{"status": "reserved"})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 3, 10)

	var out map[string]string
	err := c.Post(context.Background(), "/api/inventory/reserve", map[string]string{"key": "ORD-1"}, "ORD-1", &out)
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, "reserved", out["status"])
}

func TestPostConflictMapsToDomainError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pkg.ErrorWithMessage(w, http.StatusConflict, "insufficient stock")
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 3, 10)

	err := c.Post(context.Background(), "/api/inventory/reserve", nil, "ORD-2", nil)
	assert.ErrorIs(t, err, pkg.ErrConflict)
	assert.Equal(t, http.StatusConflict, pkg.StatusFor(err))
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 1, 2)

	for i := 0; i < 2; i++ {
		require.Error(t, c.Get(context.Background(), "/x", nil))
	}
	assert.Equal(t, "open", c.BreakerState())

	err := c.Get(context.Background(), "/x", nil)
	assert.ErrorIs(t, err, pkg.ErrUnavailable)
	assert.Contains(t, err.Error(), "circuit open")
	assert.Equal(t, int32(2), hits.Load())
}

func TestClientErrorsDoNotTripBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 1, 2)

	for i := 0; i < 5; i++ {
		assert.ErrorIs(t, c.Get(context.Background(), "/x", nil), pkg.ErrBadRequest)
	}
	assert.Equal(t, "closed", c.BreakerState())
}

func TestRequestIDIsPropagated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "req-123", r.Header.Get(pkg.RequestIDHeader))
		pkg.JSON(w, http.StatusOK, nil)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 1, 5)
	ctx := pkg.WithRequestID(context.Background(), "req-123")
	require.NoError(t, c.Get(ctx, "/x", nil))
}

func TestCancelledContextStopsRetrying(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(Config{
		Name:    t.Name(),
		BaseURL: srv.URL,
		Retry: RetryPolicy{
			MaxAttempts:   10,
			InitialDelay:  time.Second,
			MaxDelay:      time.Second,
			BackoffFactor: 1,
		},
		FailureThreshold: 100,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := c.Get(ctx, "/x", nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}
