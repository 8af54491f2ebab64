package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/akinalp/storefront/handlers"
	"github.com/akinalp/storefront/models"
	"github.com/akinalp/storefront/pkg"
	"github.com/akinalp/storefront/pkg/svcclient"
)

// AdminMiddleware, admin rolü zorunlu kılar. AuthMiddleware'den SONRA çalışır.
//
//	authMw.Require(adminMw.Require(http.HandlerFunc(h.Stats)))
type AdminMiddleware struct{}

func NewAdminMiddleware() *AdminMiddleware {
	return &AdminMiddleware{}
}

func (m *AdminMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := r.Context().Value(handlers.UserContextKey).(*models.User)
		if !ok {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
			return
		}

		if !user.IsAdmin() {
			pkg.ErrorWithMessage(w, http.StatusForbidden, "admin access required")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ServiceKeyMiddleware, iç endpoint'leri (stok rezervasyonu, toplu ürün okuma)
// korur: geçerli X-Service-Key taşıyan servis çağrısı veya admin kullanıcı geçer.
type ServiceKeyMiddleware struct {
	key      []byte
	fallback func(http.Handler) http.Handler
}

// NewServiceKeyMiddleware: key boşsa sadece admin yolu açıktır.
func NewServiceKeyMiddleware(key string, authMw *AuthMiddleware, adminMw *AdminMiddleware) *ServiceKeyMiddleware {
	return &ServiceKeyMiddleware{
		key: []byte(key),
		fallback: func(next http.Handler) http.Handler {
			return authMw.Require(adminMw.Require(next))
		},
	}
}

func (m *ServiceKeyMiddleware) Require(next http.Handler) http.Handler {
	guarded := m.fallback(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(m.key) > 0 {
			got := []byte(r.Header.Get(svcclient.ServiceKeyHeader))
			if subtle.ConstantTimeCompare(got, m.key) == 1 {
				next.ServeHTTP(w, r)
				return
			}
		}
		guarded.ServeHTTP(w, r)
	})
}
