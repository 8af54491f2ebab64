package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/storefront/models"
	"github.com/akinalp/storefront/pkg"
)

func TestCartAddMergesQuantities(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.seedUser(t, "ada")
	ham := env.seedProduct(t, "HAM-1", 1500, 10)
	saw := env.seedProduct(t, "SAW-1", 2500, 10)

	env.addToCart(t, user.ID, ham.ID, 2)
	env.addToCart(t, user.ID, ham.ID, 1)
	env.addToCart(t, user.ID, saw.ID, 1)

	cart, err := env.cart.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 2)
	assert.Equal(t, 4, cart.ItemCount)
	assert.Equal(t, int64(3*1500+2500), cart.SubtotalCents)
	assert.Equal(t, "USD", cart.Currency)

	_, err = env.cart.AddItem(ctx, user.ID, &models.AddCartItemRequest{ProductID: ham.ID, Quantity: 97})
	assert.ErrorIs(t, err, pkg.ErrBadRequest)

	_, err = env.cart.AddItem(ctx, user.ID, &models.AddCartItemRequest{ProductID: "missing", Quantity: 1})
	assert.ErrorIs(t, err, pkg.ErrNotFound)
}

func TestCartRejectsInactiveProduct(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.seedUser(t, "ada")
	p := env.seedProduct(t, "HAM-1", 1500, 10)
	require.NoError(t, env.products.Delete(ctx, p.ID))

	_, err := env.cart.AddItem(ctx, user.ID, &models.AddCartItemRequest{ProductID: p.ID, Quantity: 1})
	assert.ErrorIs(t, err, pkg.ErrBadRequest)
}

func TestCartUpdateAndRemove(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.seedUser(t, "ada")
	p := env.seedProduct(t, "HAM-1", 1500, 10)
	env.addToCart(t, user.ID, p.ID, 2)

	cart, err := env.cart.UpdateItem(ctx, user.ID, p.ID, &models.UpdateCartItemRequest{Quantity: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, cart.ItemCount)

	cart, err = env.cart.UpdateItem(ctx, user.ID, p.ID, &models.UpdateCartItemRequest{Quantity: 0})
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.NotNil(t, cart.Items)

	_, err = env.cart.UpdateItem(ctx, user.ID, p.ID, &models.UpdateCartItemRequest{Quantity: 1})
	assert.ErrorIs(t, err, pkg.ErrNotFound)

	_, err = env.cart.RemoveItem(ctx, user.ID, p.ID)
	assert.ErrorIs(t, err, pkg.ErrNotFound)

	env.addToCart(t, user.ID, p.ID, 1)
	require.NoError(t, env.cart.Clear(ctx, user.ID))
	cart, err = env.cart.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, cart.ItemCount)
}
