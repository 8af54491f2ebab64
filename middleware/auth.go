// Package middleware, HTTP request pipeline'ına eklenen ara katmanları barındırır.
//
// Her middleware func(next http.Handler) http.Handler şeklindedir ve zincir
// halinde çalışır: RequestID → Metrics → RateLimit → Auth → Admin → Handler.
// Hata durumunda next çağrılmaz, request o noktada durur.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/akinalp/storefront/handlers"
	"github.com/akinalp/storefront/models"
	"github.com/akinalp/storefront/pkg"
	"github.com/akinalp/storefront/repository"
	"github.com/akinalp/storefront/services"
)

// AuthMiddleware, JWT access token doğrulaması.
type AuthMiddleware struct {
	authService services.AuthService
	userRepo    repository.UserRepository
}

func NewAuthMiddleware(authService services.AuthService, userRepo repository.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
		userRepo:    userRepo,
	}
}

// Require, geçerli Bearer token zorunlu kılar; yoksa 401.
//
// Token geçerli olsa bile kullanıcı DB'den tekrar okunur: silinmiş
// kullanıcının token'ı ve eski role claim'i kabul edilmez.
func (m *AuthMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "authorization header required")
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "invalid authorization format, use: Bearer <token>")
			return
		}

		user, err := m.resolve(r.Context(), strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			pkg.Error(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), handlers.UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Optional, token varsa ve geçerliyse kullanıcıyı context'e ekler; yoksa
// isteği anonim olarak geçirir. Katalog gibi public ama admin'e farklı
// davranan endpoint'ler için.
func (m *AuthMiddleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			next.ServeHTTP(w, r)
			return
		}

		user, err := m.resolve(r.Context(), token)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), handlers.UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) resolve(ctx context.Context, token string) (*models.User, error) {
	claims, err := m.authService.ValidateAccessToken(token)
	if err != nil {
		return nil, err
	}

	user, err := m.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, pkg.ErrUnauthorized
	}

	// Password hash context'te taşınmaz
	user.PasswordHash = ""
	return user, nil
}
