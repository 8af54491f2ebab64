package handlers

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/storefront/models"
	"github.com/akinalp/storefront/pkg/ratelimit"
	"github.com/akinalp/storefront/repository"
	"github.com/akinalp/storefront/services"
)

func newAuthHandler(t *testing.T, limiter *ratelimit.LoginRateLimiter) (*AuthHandler, *handlerEnv) {
	t.Helper()
	env := newHandlerEnv(t)
	authService := services.NewAuthService(
		env.users,
		repository.NewSQLiteSessionRepo(env.db),
		repository.NewSQLiteResetTokenRepo(env.db),
		nil,
		"test-secret",
		15,
		7,
	)
	return NewAuthHandler(authService, limiter, nil), env
}

func TestRegisterUsesAcceptLanguage(t *testing.T) {
	h, _ := newAuthHandler(t, nil)

	req := jsonRequest(t, http.MethodPost, "/api/auth/register", models.CreateUserRequest{
		Username: "ada", Email: "ada@example.com", Password: "correct-horse",
	})
	req.Header.Set("Accept-Language", "tr-TR,tr;q=0.9,en;q=0.8")
	rec := serve(http.HandlerFunc(h.Register), req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tokens := decode[models.AuthTokens](t, rec).Data
	assert.NotEmpty(t, tokens.AccessToken)
	assert.Equal(t, "tr", tokens.User.Language)
	assert.Equal(t, models.RoleAdmin, tokens.User.Role)
}

func TestLoginRateLimit(t *testing.T) {
	limiter := ratelimit.NewLoginRateLimiter(2, time.Minute)
	t.Cleanup(limiter.Stop)
	h, _ := newAuthHandler(t, limiter)

	rec := serve(http.HandlerFunc(h.Register), jsonRequest(t, http.MethodPost, "/api/auth/register", models.CreateUserRequest{
		Username: "ada", Email: "ada@example.com", Password: "correct-horse",
	}))
	require.Equal(t, http.StatusCreated, rec.Code)

	login := func(password string) int {
		return serve(http.HandlerFunc(h.Login), jsonRequest(t, http.MethodPost, "/api/auth/login",
			models.LoginRequest{Username: "ada", Password: password})).Code
	}

	assert.Equal(t, http.StatusUnauthorized, login("wrong-1"))
	assert.Equal(t, http.StatusUnauthorized, login("wrong-2"))

	rec = serve(http.HandlerFunc(h.Login), jsonRequest(t, http.MethodPost, "/api/auth/login",
		models.LoginRequest{Username: "ada", Password: "correct-horse"}))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

// Tek bir adresten gelen ve her denemede X-Forwarded-For değiştiren
// istekler limiti aşamaz.
func TestLoginRateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	limiter := ratelimit.NewLoginRateLimiter(5, 2*time.Minute)
	t.Cleanup(limiter.Stop)
	clientIP, err := ratelimit.NewClientIP(nil)
	require.NoError(t, err)
	h, _ := newAuthHandler(t, limiter)
	h.clientIP = clientIP

	rec := serve(http.HandlerFunc(h.Register), jsonRequest(t, http.MethodPost, "/api/auth/register", models.CreateUserRequest{
		Username: "ada", Email: "ada@example.com", Password: "correct-horse",
	}))
	require.Equal(t, http.StatusCreated, rec.Code)

	attempts := 0
	for i := 0; i < 50; i++ {
		req := jsonRequest(t, http.MethodPost, "/api/auth/login", models.LoginRequest{Username: "ada", Password: "wrong"})
		req.RemoteAddr = "198.51.100.4:40000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		req.Header.Set("X-Real-IP", fmt.Sprintf("192.0.2.%d", i))
		if serve(http.HandlerFunc(h.Login), req).Code != http.StatusTooManyRequests {
			attempts++
		}
	}
	assert.LessOrEqual(t, attempts, 5)
}

func TestRefreshRequiresToken(t *testing.T) {
	h, _ := newAuthHandler(t, nil)

	rec := serve(http.HandlerFunc(h.Refresh), jsonRequest(t, http.MethodPost, "/api/auth/refresh", map[string]string{}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(http.HandlerFunc(h.Refresh), jsonRequest(t, http.MethodPost, "/api/auth/refresh",
		models.RefreshRequest{RefreshToken: "unknown"}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMeAndUpdateProfile(t *testing.T) {
	h, env := newAuthHandler(t, nil)
	user := env.seedUser(t, "ada", models.RoleCustomer)

	rec := serve(asUser(user, h.Me), jsonRequest(t, http.MethodGet, "/api/users/me", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ada", decode[models.User](t, rec).Data.Username)

	name := "Ada L."
	rec = serve(asUser(user, h.UpdateProfile), jsonRequest(t, http.MethodPatch, "/api/users/me",
		models.UpdateUserRequest{DisplayName: &name}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[models.User](t, rec).Data
	require.NotNil(t, got.DisplayName)
	assert.Equal(t, "Ada L.", *got.DisplayName)
}

func TestPreferredLanguage(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"tr-TR,tr;q=0.9", "tr"},
		{"de-DE, en-US;q=0.8", "en"},
		{"fr", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			req := jsonRequest(t, http.MethodGet, "/", nil)
			req.Header.Set("Accept-Language", tt.header)
			assert.Equal(t, tt.want, preferredLanguage(req))
		})
	}
}
