package repository

import (
	"context"
	"time"

	"github.com/akinalp/storefront/models"
)

type PasswordResetRepository interface {
	Create(ctx context.Context, token *models.PasswordResetToken) error
	// GetByTokenHash, SHA-256 hash ile arar. Yoksa pkg.ErrNotFound.
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.PasswordResetToken, error)
	DeleteByUserID(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	// GetLatestByUserID, cooldown kontrolü için en yeni token.
	GetLatestByUserID(ctx context.Context, userID string) (*models.PasswordResetToken, error)
}
