package clients

import (
	"context"

	"github.com/google/uuid"

	"github.com/akinalp/storefront/models"
	"github.com/akinalp/storefront/pkg/svcclient"
)

// RemoteInventory, ayrı çalışan stok servisine bağlanır.
//
// Stok servisi reserve/release/commit'i reservation key bazında idempotent
// uyguladığı için tüm POST'lar Idempotency-Key ile gönderilir ve retry edilebilir.
type RemoteInventory struct {
	client *svcclient.Client
}

func NewRemoteInventory(client *svcclient.Client) *RemoteInventory {
	return &RemoteInventory{client: client}
}

func (i *RemoteInventory) Check(ctx context.Context, items []models.StockItem) ([]models.Availability, error) {
	var out []models.Availability
	// Check salt okunur; her çağrıya yeni key verilir ki retry açık olsun
	err := i.client.Post(ctx, "/api/inventory/check", models.StockCheckRequest{Items: items}, "check-"+uuid.NewString(), &out)
	return out, err
}

func (i *RemoteInventory) Reserve(ctx context.Context, key string, items []models.StockItem) (*models.Reservation, error) {
	var out models.Reservation
	err := i.client.Post(ctx, "/api/inventory/reserve", models.ReserveRequest{
		ReservationKey: key,
		Items:          items,
	}, "reserve-"+key, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (i *RemoteInventory) Release(ctx context.Context, key string) error {
	return i.client.Post(ctx, "/api/inventory/release", models.ReservationKeyRequest{ReservationKey: key}, "release-"+key, nil)
}

func (i *RemoteInventory) Commit(ctx context.Context, key string) error {
	return i.client.Post(ctx, "/api/inventory/commit", models.ReservationKeyRequest{ReservationKey: key}, "commit-"+key, nil)
}
