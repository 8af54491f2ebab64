package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/storefront/database"
	"github.com/akinalp/storefront/models"
	"github.com/akinalp/storefront/pkg"
	"github.com/akinalp/storefront/pkg/email"
	"github.com/akinalp/storefront/repository"
)

type fakeSender struct {
	mu     sync.Mutex
	resets map[string]string // email → token
}

func (f *fakeSender) SendPasswordReset(_ context.Context, to, _, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resets == nil {
		f.resets = make(map[string]string)
	}
	f.resets[to] = token
	return nil
}

func (f *fakeSender) SendOrderConfirmation(context.Context, email.OrderConfirmation) error {
	return nil
}

func (f *fakeSender) SendShipmentUpdate(context.Context, email.ShipmentUpdate) error {
	return nil
}

func (f *fakeSender) tokenFor(to string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resets[to]
}

func newAuthService(t *testing.T, sender email.EmailSender) AuthService {
	t.Helper()
	conn, err := database.New(filepath.Join(t.TempDir(), "auth.db"), database.Migrations())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return NewAuthService(
		repository.NewSQLiteUserRepo(conn.Conn),
		repository.NewSQLiteSessionRepo(conn.Conn),
		repository.NewSQLiteResetTokenRepo(conn.Conn),
		sender,
		"test-secret",
		15,
		7,
	)
}

func register(t *testing.T, svc AuthService, username string) *models.AuthTokens {
	t.Helper()
	tokens, err := svc.Register(context.Background(), &models.CreateUserRequest{
		Username: username,
		Email:    " " + username + "@Example.com ",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	return tokens
}

func TestRegisterFirstUserIsAdmin(t *testing.T) {
	svc := newAuthService(t, nil)

	first := register(t, svc, "ada")
	assert.Equal(t, models.RoleAdmin, first.User.Role)
	assert.Equal(t, "ada@example.com", first.User.Email)
	assert.Empty(t, first.User.PasswordHash)

	second := register(t, svc, "bob")
	assert.Equal(t, models.RoleCustomer, second.User.Role)

	_, err := svc.Register(context.Background(), &models.CreateUserRequest{
		Username: "ada", Email: "other@example.com", Password: "correct-horse",
	})
	assert.ErrorIs(t, err, pkg.ErrAlreadyExists)

	_, err = svc.Register(context.Background(), &models.CreateUserRequest{
		Username: "carl", Email: "carl@example.com", Password: "short",
	})
	assert.ErrorIs(t, err, pkg.ErrBadRequest)
}

func TestLoginByUsernameOrEmail(t *testing.T) {
	svc := newAuthService(t, nil)
	ctx := context.Background()
	register(t, svc, "ada")

	tokens, err := svc.Login(ctx, &models.LoginRequest{Username: "ada", Password: "correct-horse"})
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, tokens.User.ID, claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	_, err = svc.Login(ctx, &models.LoginRequest{Username: "ADA@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, &models.LoginRequest{Username: "ada", Password: "wrong-password"})
	assert.ErrorIs(t, err, pkg.ErrUnauthorized)

	_, err = svc.Login(ctx, &models.LoginRequest{Username: "nobody", Password: "correct-horse"})
	assert.ErrorIs(t, err, pkg.ErrUnauthorized)
}

func TestValidateAccessTokenRejectsTampering(t *testing.T) {
	svc := newAuthService(t, nil)
	tokens := register(t, svc, "ada")

	_, err := svc.ValidateAccessToken(tokens.AccessToken + "x")
	assert.ErrorIs(t, err, pkg.ErrUnauthorized)

	other := newAuthService(t, nil)
	_, err = other.(*authService).ValidateAccessToken(tokens.AccessToken)
	assert.NoError(t, err, "same secret validates")

	other.(*authService).jwtSecret = []byte("different")
	_, err = other.ValidateAccessToken(tokens.AccessToken)
	assert.ErrorIs(t, err, pkg.ErrUnauthorized)

	// Süresi dolmuş token
	svc.(*authService).now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = svc.ValidateAccessToken(tokens.AccessToken)
	assert.ErrorIs(t, err, pkg.ErrUnauthorized)
}

func TestRefreshTokenRotation(t *testing.T) {
	svc := newAuthService(t, nil)
	ctx := context.Background()
	tokens := register(t, svc, "ada")

	rotated, err := svc.RefreshToken(ctx, tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

	// Eski refresh token tek kullanımlık
	_, err = svc.RefreshToken(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, pkg.ErrUnauthorized)

	require.NoError(t, svc.Logout(ctx, rotated.RefreshToken))
	require.NoError(t, svc.Logout(ctx, rotated.RefreshToken))
	_, err = svc.RefreshToken(ctx, rotated.RefreshToken)
	assert.ErrorIs(t, err, pkg.ErrUnauthorized)

	_, err = svc.RefreshToken(ctx, "")
	assert.ErrorIs(t, err, pkg.ErrBadRequest)
}

func TestChangePasswordRevokesSessions(t *testing.T) {
	svc := newAuthService(t, nil)
	ctx := context.Background()
	tokens := register(t, svc, "ada")
	userID := tokens.User.ID

	err := svc.ChangePassword(ctx, userID, &models.ChangePasswordRequest{
		CurrentPassword: "wrong-password", NewPassword: "battery-staple",
	})
	assert.ErrorIs(t, err, pkg.ErrUnauthorized)

	require.NoError(t, svc.ChangePassword(ctx, userID, &models.ChangePasswordRequest{
		CurrentPassword: "correct-horse", NewPassword: "battery-staple",
	}))

	_, err = svc.RefreshToken(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, pkg.ErrUnauthorized)

	_, err = svc.Login(ctx, &models.LoginRequest{Username: "ada", Password: "battery-staple"})
	assert.NoError(t, err)
}

func TestUpdateProfile(t *testing.T) {
	svc := newAuthService(t, nil)
	ctx := context.Background()
	tokens := register(t, svc, "ada")

	name, lang := "Ada L.", "tr"
	user, err := svc.UpdateProfile(ctx, tokens.User.ID, &models.UpdateUserRequest{DisplayName: &name, Language: &lang})
	require.NoError(t, err)
	require.NotNil(t, user.DisplayName)
	assert.Equal(t, "Ada L.", *user.DisplayName)
	assert.Equal(t, "tr", user.Language)

	empty := ""
	user, err = svc.UpdateProfile(ctx, tokens.User.ID, &models.UpdateUserRequest{DisplayName: &empty})
	require.NoError(t, err)
	assert.Nil(t, user.DisplayName)

	bad := "de"
	_, err = svc.UpdateProfile(ctx, tokens.User.ID, &models.UpdateUserRequest{Language: &bad})
	assert.ErrorIs(t, err, pkg.ErrBadRequest)
}

func TestForgotAndResetPassword(t *testing.T) {
	sender := &fakeSender{}
	svc := newAuthService(t, sender)
	ctx := context.Background()
	tokens := register(t, svc, "ada")

	// Bilinmeyen email sessizce kabul edilir
	require.NoError(t, svc.ForgotPassword(ctx, &models.ForgotPasswordRequest{Email: "nobody@example.com"}))
	assert.Empty(t, sender.tokenFor("nobody@example.com"))

	require.NoError(t, svc.ForgotPassword(ctx, &models.ForgotPasswordRequest{Email: "Ada@example.com"}))
	plain := sender.tokenFor("ada@example.com")
	require.NotEmpty(t, plain)

	// Cooldown içinde ikinci istek yeni token üretmez
	require.NoError(t, svc.ForgotPassword(ctx, &models.ForgotPasswordRequest{Email: "ada@example.com"}))
	assert.Equal(t, plain, sender.tokenFor("ada@example.com"))

	err := svc.ResetPassword(ctx, &models.ResetPasswordRequest{Token: "bogus", NewPassword: "battery-staple"})
	assert.ErrorIs(t, err, pkg.ErrBadRequest)

	require.NoError(t, svc.ResetPassword(ctx, &models.ResetPasswordRequest{Token: plain, NewPassword: "battery-staple"}))

	_, err = svc.RefreshToken(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, pkg.ErrUnauthorized)

	_, err = svc.Login(ctx, &models.LoginRequest{Username: "ada", Password: "battery-staple"})
	require.NoError(t, err)

	err = svc.ResetPassword(ctx, &models.ResetPasswordRequest{Token: plain, NewPassword: "another-one"})
	assert.ErrorIs(t, err, pkg.ErrBadRequest)
}

func TestForgotPasswordWithoutEmailIsNoop(t *testing.T) {
	svc := newAuthService(t, nil)
	register(t, svc, "ada")
	assert.NoError(t, svc.ForgotPassword(context.Background(), &models.ForgotPasswordRequest{Email: "ada@example.com"}))
}
