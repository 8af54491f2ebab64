package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/storefront/models"
	"github.com/akinalp/storefront/pkg"
)

func TestUserRepoFirstUserBecomesAdmin(t *testing.T) {
	db := newTestDB(t)

	first := seedUser(t, db, "alice")
	second := seedUser(t, db, "bob")

	assert.Equal(t, models.RoleAdmin, first.Role)
	assert.Equal(t, models.RoleCustomer, second.Role)
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())
}

func TestUserRepoUniqueness(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLiteUserRepo(db)
	ctx := context.Background()
	seedUser(t, db, "alice")

	err := repo.Create(ctx, &models.User{Username: "ALICE", Email: "other@example.com", PasswordHash: "h", Role: models.RoleCustomer, Language: "en"})
	require.ErrorIs(t, err, pkg.ErrAlreadyExists)
	assert.Contains(t, err.Error(), "username")

	err = repo.Create(ctx, &models.User{Username: "alice2", Email: "Alice@Example.com", PasswordHash: "h", Role: models.RoleCustomer, Language: "en"})
	require.ErrorIs(t, err, pkg.ErrAlreadyExists)
	assert.Contains(t, err.Error(), "email")
}

func TestUserRepoLookups(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLiteUserRepo(db)
	ctx := context.Background()
	u := seedUser(t, db, "carol")

	byEmail, err := repo.GetByEmail(ctx, "carol@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, pkg.ErrNotFound)

	require.NoError(t, repo.UpdatePassword(ctx, u.ID, "newhash"))
	got, err := repo.GetByUsername(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, "newhash", got.PasswordHash)

	assert.ErrorIs(t, repo.UpdatePassword(ctx, "missing", "x"), pkg.ErrNotFound)

	users, total, err := repo.List(ctx, models.Page{Page: 1, PerPage: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, users, 1)
}

func TestSessionRepoDeleteExpired(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLiteSessionRepo(db)
	ctx := context.Background()
	u := seedUser(t, db, "dave")
	now := time.Now().UTC()

	require.NoError(t, repo.Create(ctx, &models.Session{UserID: u.ID, RefreshToken: "old", ExpiresAt: now.Add(-time.Hour)}))
	require.NoError(t, repo.Create(ctx, &models.Session{UserID: u.ID, RefreshToken: "fresh", ExpiresAt: now.Add(time.Hour)}))

	n, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.GetByRefreshToken(ctx, "old")
	assert.ErrorIs(t, err, pkg.ErrNotFound)

	s, err := repo.GetByRefreshToken(ctx, "fresh")
	require.NoError(t, err)
	assert.WithinDuration(t, now.Add(time.Hour), s.ExpiresAt, time.Second)
}
