package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/storefront/events"
	"github.com/akinalp/storefront/models"
	"github.com/akinalp/storefront/pkg"
)

func TestReserveIsAllOrNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.seedProduct(t, "A-1", 100, 5)
	b := env.seedProduct(t, "B-1", 100, 1)

	_, err := env.inventory.Reserve(ctx, "ORD-1", []models.StockItem{
		{ProductID: a.ID, Quantity: 2},
		{ProductID: b.ID, Quantity: 2},
	})
	require.ErrorIs(t, err, pkg.ErrConflict)
	assert.Contains(t, err.Error(), b.ID)

	assert.Equal(t, 0, env.stock(t, a.ID).QuantityReserved)
	assert.Equal(t, 0, env.stock(t, b.ID).QuantityReserved)

	_, err = env.inventory.Reserve(ctx, "ORD-1", []models.StockItem{{ProductID: "nope", Quantity: 1}})
	assert.ErrorIs(t, err, pkg.ErrConflict)
}

func TestReserveIsIdempotentPerKey(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.seedProduct(t, "A-1", 100, 5)

	items := []models.StockItem{{ProductID: p.ID, Quantity: 1}, {ProductID: p.ID, Quantity: 2}}

	first, err := env.inventory.Reserve(ctx, "ORD-1", items)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationPending, first.Status)
	require.Len(t, first.Items, 1)
	assert.Equal(t, 3, first.Items[0].Quantity)

	second, err := env.inventory.Reserve(ctx, "ORD-1", items)
	require.NoError(t, err)
	assert.Equal(t, first.Key, second.Key)
	assert.Equal(t, 3, env.stock(t, p.ID).QuantityReserved)

	require.NoError(t, env.inventory.Release(ctx, "ORD-1"))
	_, err = env.inventory.Reserve(ctx, "ORD-1", items)
	assert.ErrorIs(t, err, pkg.ErrConflict)
}

func TestCommitAndReleaseLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.seedProduct(t, "A-1", 100, 10)

	_, err := env.inventory.Reserve(ctx, "ORD-1", []models.StockItem{{ProductID: p.ID, Quantity: 4}})
	require.NoError(t, err)

	require.NoError(t, env.inventory.Commit(ctx, "ORD-1"))
	require.NoError(t, env.inventory.Commit(ctx, "ORD-1"))

	inv := env.stock(t, p.ID)
	assert.Equal(t, 6, inv.QuantityOnHand)
	assert.Equal(t, 0, inv.QuantityReserved)

	// Commit edilmiş rezervasyonun bırakılması stoğu geri ekler
	require.NoError(t, env.inventory.Release(ctx, "ORD-1"))
	require.NoError(t, env.inventory.Release(ctx, "ORD-1"))
	assert.Equal(t, 10, env.stock(t, p.ID).QuantityOnHand)

	assert.ErrorIs(t, env.inventory.Commit(ctx, "ORD-1"), pkg.ErrConflict)
	assert.ErrorIs(t, env.inventory.Release(ctx, "ORD-404"), pkg.ErrNotFound)
}

func TestCheckReportsShortfall(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.seedProduct(t, "A-1", 100, 3)

	result, err := env.inventory.Check(ctx, []models.StockItem{
		{ProductID: p.ID, Quantity: 5},
		{ProductID: "unknown", Quantity: 1},
	})
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.False(t, result[0].OK)
	assert.Equal(t, 3, result[0].Available)
	assert.False(t, result[1].OK)
	assert.Equal(t, 0, result[1].Available)

	_, err = env.inventory.Check(ctx, nil)
	assert.ErrorIs(t, err, pkg.ErrBadRequest)
	_, err = env.inventory.Check(ctx, []models.StockItem{{ProductID: p.ID, Quantity: 0}})
	assert.ErrorIs(t, err, pkg.ErrBadRequest)
}

func TestAdjustPublishesLowStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.seedProduct(t, "A-1", 100, 10)

	inv, err := env.inventory.Adjust(ctx, p.ID, &models.AdjustStockRequest{Delta: -8})
	require.NoError(t, err)
	assert.Equal(t, 2, inv.Available)
	assert.Equal(t, 1, env.pub.count(events.TopicInventoryUpdated))
	assert.Equal(t, 1, env.pub.count(events.TopicLowStock))

	low, err := env.inventory.ListLow(ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, p.ID, low[0].ProductID)

	set := 20
	inv, err = env.inventory.Adjust(ctx, p.ID, &models.AdjustStockRequest{Set: &set})
	require.NoError(t, err)
	assert.Equal(t, 20, inv.QuantityOnHand)
	assert.Equal(t, 1, env.pub.count(events.TopicLowStock))

	_, err = env.inventory.Adjust(ctx, p.ID, &models.AdjustStockRequest{})
	assert.ErrorIs(t, err, pkg.ErrBadRequest)
}

func TestAdjustCannotDropBelowReserved(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.seedProduct(t, "A-1", 100, 10)

	_, err := env.inventory.Reserve(ctx, "ORD-1", []models.StockItem{{ProductID: p.ID, Quantity: 6}})
	require.NoError(t, err)

	set := 5
	_, err = env.inventory.Adjust(ctx, p.ID, &models.AdjustStockRequest{Set: &set})
	assert.ErrorIs(t, err, pkg.ErrConflict)
}

func TestReleaseExpired(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.seedProduct(t, "A-1", 100, 10)

	_, err := env.inventory.Reserve(ctx, "ORD-OLD", []models.StockItem{{ProductID: p.ID, Quantity: 2}})
	require.NoError(t, err)
	_, err = env.inventory.Reserve(ctx, "ORD-PAID", []models.StockItem{{ProductID: p.ID, Quantity: 1}})
	require.NoError(t, err)
	require.NoError(t, env.inventory.Commit(ctx, "ORD-PAID"))

	svc := env.inventory.(*inventoryService)
	svc.now = func() time.Time { return time.Now().Add(time.Hour) }

	released, err := env.inventory.ReleaseExpired(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"ORD-OLD"}, released)

	inv := env.stock(t, p.ID)
	assert.Equal(t, 0, inv.QuantityReserved)
	assert.Equal(t, 9, inv.QuantityOnHand)
}
