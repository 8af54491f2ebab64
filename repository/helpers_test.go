package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/akinalp/storefront/database"
	"github.com/akinalp/storefront/models"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "repo.db"), database.Migrations())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db.Conn
}

func seedUser(t *testing.T, db *sql.DB, username string) *models.User {
	t.Helper()
	u := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
		Role:         models.RoleCustomer,
		Language:     "en",
	}
	require.NoError(t, NewSQLiteUserRepo(db).Create(context.Background(), u))
	return u
}

func seedProduct(t *testing.T, db *sql.DB, sku string, price int64, stock int) *models.Product {
	t.Helper()
	ctx := context.Background()
	p := &models.Product{SKU: sku, Name: "Product " + sku, PriceCents: price, Currency: "USD", Category: "tools", IsActive: true}
	require.NoError(t, NewSQLiteProductRepo(db).Create(ctx, p))
	require.NoError(t, NewSQLiteInventoryRepo(db).Create(ctx, &models.Inventory{
		ProductID: p.ID, QuantityOnHand: stock, LowStockThreshold: 2,
	}))
	return p
}
