package svcclient

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

// RetryPolicy, upstream çağrılarının exponential backoff ayarları.
type RetryPolicy struct {
	MaxAttempts   int           // İlk deneme dahil toplam deneme sayısı
	InitialDelay  time.Duration // İlk retry öncesi bekleme
	MaxDelay      time.Duration // Backoff üst sınırı
	BackoffFactor float64       // Her denemede gecikme çarpanı
	JitterFactor  float64       // 0.1 → gecikmenin %10'u kadar rastgele ekleme
}

// DefaultRetryPolicy, 3 deneme, 200ms başlangıç, 5s tavan.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   3,
		InitialDelay:  200 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
		JitterFactor:  0.1,
	}
}

// withBackoff, fn'i retryable hata döndüğü sürece policy'ye göre tekrar çalıştırır.
// Retryable olmayan hata anında döner; context iptali beklemeyi keser.
func withBackoff(ctx context.Context, p RetryPolicy, retryable func(error) bool, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	delay := p.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !retryable(err) || attempt == attempts {
			break
		}

		wait := delay
		if p.JitterFactor > 0 && wait > 0 {
			jitter := int64(float64(wait) * p.JitterFactor)
			if jitter > 0 {
				wait += time.Duration(rand.Int64N(jitter))
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(wait):
		}

		factor := p.BackoffFactor
		if factor < 1 {
			factor = 1
		}
		delay = time.Duration(float64(delay) * factor)
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}

	return lastErr
}

// isRetryable: ağ hataları, 5xx, 429 ve 408 tekrar denenir.
// Diğer 4xx'ler, açık circuit ve çağıranın context iptali anında döner.
// Tek denemenin timeout'u (http.Client.Timeout) ağ hatası sayılır.
func isRetryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, gobreaker.ErrOpenState) {
		return false
	}
	if errors.Is(err, gobreaker.ErrTooManyRequests) {
		return true
	}

	var se *StatusError
	if errors.As(err, &se) {
		return retryableStatus(se.StatusCode)
	}

	// Geri kalan her şey transport seviyesi hata (connection refused, reset, timeout)
	return true
}

func retryableStatus(code int) bool {
	return code >= 500 || code == http.StatusTooManyRequests || code == http.StatusRequestTimeout
}
