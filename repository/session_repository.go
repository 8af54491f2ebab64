package repository

import (
	"context"
	"time"

	"github.com/akinalp/storefront/models"
)

type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	GetByRefreshToken(ctx context.Context, token string) (*models.Session, error)
	DeleteByID(ctx context.Context, id string) error
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpired, now'dan önce dolan oturumları siler ve silinen sayıyı döner.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
