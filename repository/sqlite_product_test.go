package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/storefront/models"
	"github.com/akinalp/storefront/pkg"
)

func TestProductRepoListFilters(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLiteProductRepo(db)
	ctx := context.Background()

	cheap := seedProduct(t, db, "A-1", 500, 1)
	mid := seedProduct(t, db, "A-2", 1500, 1)
	pricey := seedProduct(t, db, "A-3", 9900, 1)

	mid.Name = "100% cotton shirt"
	mid.Category = "apparel"
	require.NoError(t, repo.Update(ctx, mid))

	pricey.IsActive = false
	require.NoError(t, repo.Update(ctx, pricey))

	filter := models.ProductFilter{Sort: models.SortPriceDesc}
	filter.Normalize()
	items, total, err := repo.List(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, 2, total, "hidden products are excluded")
	require.Len(t, items, 2)
	assert.Equal(t, mid.ID, items[0].ID)
	assert.Equal(t, cheap.ID, items[1].ID)

	filter = models.ProductFilter{Search: "100%", IncludeHidden: true}
	filter.Normalize()
	items, _, err = repo.List(ctx, filter)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, mid.ID, items[0].ID)

	filter = models.ProductFilter{MinPriceCents: 1000, IncludeHidden: true}
	filter.Normalize()
	_, total, err = repo.List(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	categories, err := repo.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"apparel", "tools"}, categories)

	all, active, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, all)
	assert.Equal(t, 2, active)
}

func TestProductRepoDuplicateSKU(t *testing.T) {
	db := newTestDB(t)
	seedProduct(t, db, "DUP", 100, 0)

	err := NewSQLiteProductRepo(db).Create(context.Background(),
		&models.Product{SKU: "DUP", Name: "x", PriceCents: 1, Currency: "USD", IsActive: true})
	assert.ErrorIs(t, err, pkg.ErrAlreadyExists)
}

func TestReviewSummaryUpdatesProduct(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	reviews := NewSQLiteReviewRepo(db)
	products := NewSQLiteProductRepo(db)

	p := seedProduct(t, db, "R-1", 100, 1)
	u1 := seedUser(t, db, "gina")
	u2 := seedUser(t, db, "hank")

	require.NoError(t, reviews.Create(ctx, &models.Review{ProductID: p.ID, UserID: u1.ID, Rating: 5}))
	require.NoError(t, reviews.Create(ctx, &models.Review{ProductID: p.ID, UserID: u2.ID, Rating: 2}))
	assert.ErrorIs(t, reviews.Create(ctx, &models.Review{ProductID: p.ID, UserID: u2.ID, Rating: 1}), pkg.ErrAlreadyExists)

	s, err := reviews.Summary(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Count)
	assert.InDelta(t, 3.5, s.Average, 0.001)

	require.NoError(t, products.SetRating(ctx, p.ID, s))
	got, err := products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.RatingCount)

	list, total, err := reviews.ListByProduct(ctx, p.ID, models.Page{Page: 1, PerPage: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, list, 2)
	assert.NotEmpty(t, list[0].Username)
}
