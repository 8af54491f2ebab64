package repository

import (
	"context"

	"github.com/akinalp/storefront/models"
)

type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	ListByOrder(ctx context.Context, orderID string) ([]models.Payment, error)
	// LatestSucceeded, siparişin başarılı ödemesini döner. Yoksa pkg.ErrNotFound.
	LatestSucceeded(ctx context.Context, orderID string) (*models.Payment, error)
	UpdateStatus(ctx context.Context, id string, from, to models.PaymentStatus) error
}
