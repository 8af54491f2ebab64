package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/storefront/models"
	"github.com/akinalp/storefront/pkg"
	"github.com/akinalp/storefront/repository"
)

func TestSweepReservationsCancelsStaleOrders(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.seedUser(t, "ada")
	p := env.seedProduct(t, "HAM-1", 2000, 5)
	env.addToCart(t, user.ID, p.ID, 2)
	stale := env.placeOrder(t, user.ID, models.PaymentCard)

	env.addToCart(t, user.ID, p.ID, 1)
	paid := env.placeOrder(t, user.ID, models.PaymentCard)
	_, err := env.payments.Pay(ctx, paid.ID, user.ID, cardPayment("tok_visa"))
	require.NoError(t, err)

	// Başka instance'a ait rezervasyon: yerel sipariş yok
	_, err = env.inventory.Reserve(ctx, "ORD-REMOTE", []models.StockItem{{ProductID: p.ID, Quantity: 1}})
	require.NoError(t, err)

	env.inventory.(*inventoryService).now = func() time.Time { return time.Now().Add(time.Hour) }

	m := NewMaintenance(
		repository.NewSQLiteSessionRepo(env.db),
		repository.NewSQLiteResetTokenRepo(env.db),
		env.inventory,
		env.orders,
		30*time.Minute,
	)
	m.SweepReservations(ctx)

	got, err := env.orders.Get(ctx, stale.ID, user.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, got.Status)

	got, err = env.orders.Get(ctx, paid.ID, user.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPaid, got.Status)

	inv := env.stock(t, p.ID)
	assert.Equal(t, 0, inv.QuantityReserved)
	assert.Equal(t, 4, inv.QuantityOnHand)

	history, err := env.orders.History(ctx, stale.ID, user.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "reservation expired", history[len(history)-1].Note)
}

// Stok başka instance'ta tutulduğunda yerel rezervasyon süresi dolmaz;
// pending sipariş yaşına göre iptal edilir.
func TestSweepReservationsCancelsOldPendingOrders(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.seedUser(t, "ada")
	p := env.seedProduct(t, "HAM-1", 2000, 5)
	env.addToCart(t, user.ID, p.ID, 2)
	order := env.placeOrder(t, user.ID, models.PaymentCard)

	m := NewMaintenance(
		repository.NewSQLiteSessionRepo(env.db),
		repository.NewSQLiteResetTokenRepo(env.db),
		env.inventory,
		env.orders,
		30*time.Minute,
	)

	m.SweepReservations(ctx)
	got, err := env.orders.Get(ctx, order.ID, user.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, got.Status)

	m.now = func() time.Time { return time.Now().Add(time.Hour) }
	m.SweepReservations(ctx)

	got, err = env.orders.Get(ctx, order.ID, user.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, got.Status)

	inv := env.stock(t, p.ID)
	assert.Equal(t, 0, inv.QuantityReserved)
	assert.Equal(t, 5, inv.QuantityOnHand)

	_, err = env.payments.Pay(ctx, order.ID, user.ID, cardPayment("tok_visa"))
	assert.ErrorIs(t, err, pkg.ErrConflict)
}

func TestCleanupAuthRemovesExpiredSessions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t, "ada")

	sessions := repository.NewSQLiteSessionRepo(env.db)
	require.NoError(t, sessions.Create(ctx, &models.Session{
		UserID: user.ID, RefreshToken: "old", ExpiresAt: time.Now().Add(-time.Hour).UTC(),
	}))
	require.NoError(t, sessions.Create(ctx, &models.Session{
		UserID: user.ID, RefreshToken: "fresh", ExpiresAt: time.Now().Add(time.Hour).UTC(),
	}))

	m := NewMaintenance(sessions, repository.NewSQLiteResetTokenRepo(env.db), env.inventory, env.orders, 0)
	m.CleanupAuth(ctx)

	_, err := sessions.GetByRefreshToken(ctx, "old")
	assert.ErrorIs(t, err, pkg.ErrNotFound)
	_, err = sessions.GetByRefreshToken(ctx, "fresh")
	assert.NoError(t, err)
}

func TestMaintenanceStartStop(t *testing.T) {
	env := newTestEnv(t)
	m := NewMaintenance(
		repository.NewSQLiteSessionRepo(env.db),
		repository.NewSQLiteResetTokenRepo(env.db),
		env.inventory,
		env.orders,
		30*time.Minute,
	)
	require.NoError(t, m.Start())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	m.Stop(ctx)
	assert.NoError(t, ctx.Err())
}

func TestAdminStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.seedUser(t, "ada")
	p := env.seedProduct(t, "HAM-1", 2000, 3)
	env.seedProduct(t, "SAW-1", 5000, 10)

	env.addToCart(t, user.ID, p.ID, 1)
	order := env.placeOrder(t, user.ID, models.PaymentCard)
	_, err := env.payments.Pay(ctx, order.ID, user.ID, cardPayment("tok_visa"))
	require.NoError(t, err)

	env.addToCart(t, user.ID, p.ID, 1)
	env.placeOrder(t, user.ID, models.PaymentCard)

	stats, err := env.admin.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalUsers)
	assert.Equal(t, 2, stats.TotalProducts)
	assert.Equal(t, 2, stats.ActiveProducts)
	assert.Len(t, stats.OrdersByStatus, 7)
	assert.Equal(t, 1, stats.OrdersByStatus[models.OrderPaid])
	assert.Equal(t, 1, stats.OrdersByStatus[models.OrderPending])
	assert.Equal(t, 0, stats.OrdersByStatus[models.OrderRefunded])
	assert.Equal(t, order.TotalCents, stats.RevenueCents)
	// HAM-1: on_hand 2, reserved 1 → available 1 ≤ eşik 2
	assert.Equal(t, 1, stats.LowStockCount)

	users, err := env.admin.ListUsers(ctx, models.Page{PerPage: 500})
	require.NoError(t, err)
	assert.Equal(t, 1, users.Total)
	assert.Equal(t, models.MaxPerPage, users.PerPage)
}
