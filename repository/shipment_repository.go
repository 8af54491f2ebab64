package repository

import (
	"context"

	"github.com/akinalp/storefront/models"
)

type ShipmentRepository interface {
	// Create, sipariş başına tek kargo. İkinci kayıt pkg.ErrAlreadyExists.
	Create(ctx context.Context, shipment *models.Shipment) error
	GetByOrderID(ctx context.Context, orderID string) (*models.Shipment, error)
	GetByID(ctx context.Context, id string) (*models.Shipment, error)
	UpdateStatus(ctx context.Context, id string, status models.ShipmentStatus) error
	AddEvent(ctx context.Context, event *models.TrackingEvent) error
}
