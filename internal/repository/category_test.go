package repository

import (
	"context"
	"testing"

	"photoshare/internal/cache"
	"photoshare/internal/models"
	"photoshare/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb, mr
}

func TestCategoryRepository_ListIsCached(t *testing.T) {
	db := testutil.NewTestDB(t)
	rdb, mr := newTestRedis(t)
	repo := NewCategoryRepository(db, rdb)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.Category{Name: "Trees"}))
	require.NoError(t, repo.Create(ctx, &models.Category{Name: "Beach"}))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Beach", list[0].Name)
	assert.True(t, mr.Exists(cache.CategoriesKey))

	// a row written behind the repository's back stays invisible until invalidation
	require.NoError(t, db.Create(&models.Category{Name: "Zebra"}).Error)
	list, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, repo.Create(ctx, &models.Category{Name: "Autumn"}))
	assert.False(t, mr.Exists(cache.CategoriesKey))
	list, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 4)
}

func TestCategoryRepository_CreateDuplicate(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewCategoryRepository(db, nil)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.Category{Name: "Trees"}))
	err := repo.Create(ctx, &models.Category{Name: "Trees"})
	assert.True(t, models.HasCode(err, models.CodeValidation))
}

func TestCategoryRepository_Ensure(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewCategoryRepository(db, nil)
	ctx := context.Background()

	cat, created, err := repo.Ensure(ctx, models.UncategorizedName, models.UncategorizedDescription)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.UncategorizedDescription, cat.Description)

	again, created, err := repo.Ensure(ctx, models.UncategorizedName, "ignored")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, cat.ID, again.ID)
}

func TestCategoryRepository_GetByName(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewCategoryRepository(db, nil)
	ctx := context.Background()
	testutil.CreateCategory(t, db, "HD Wallpapers")

	got, err := repo.GetByName(ctx, "hd wallpapers")
	require.NoError(t, err)
	assert.Equal(t, "HD Wallpapers", got.Name)

	_, err = repo.GetByName(ctx, "missing")
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestCategoryRepository_DeleteAndReassign(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewCategoryRepository(db, nil)
	ctx := context.Background()

	fallback := testutil.CreateCategory(t, db, models.UncategorizedName)
	doomed := testutil.CreateCategory(t, db, "Rain")
	alice := testutil.CreateUser(t, db, "Alice", "alice@example.com", "")
	p1 := testutil.CreatePhoto(t, db, alice.ID, doomed.ID, "1", "1.png")
	testutil.CreatePhoto(t, db, alice.ID, doomed.ID, "2", "2.png")

	moved, err := repo.DeleteAndReassign(ctx, doomed.ID, fallback.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, moved)

	var photo models.Photo
	require.NoError(t, db.First(&photo, p1.ID).Error)
	assert.Equal(t, fallback.ID, photo.CategoryID)

	_, err = repo.DeleteAndReassign(ctx, doomed.ID, fallback.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestCategoryRepository_ReassignMissing(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewCategoryRepository(db, nil)
	ctx := context.Background()

	fallback := testutil.CreateCategory(t, db, models.UncategorizedName)
	kept := testutil.CreateCategory(t, db, "City")
	alice := testutil.CreateUser(t, db, "Alice", "alice@example.com", "")
	orphan := testutil.CreatePhoto(t, db, alice.ID, 404, "lost", "l.png")
	fine := testutil.CreatePhoto(t, db, alice.ID, kept.ID, "ok", "o.png")

	n, err := repo.ReassignMissing(ctx, fallback.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	var got models.Photo
	require.NoError(t, db.First(&got, orphan.ID).Error)
	assert.Equal(t, fallback.ID, got.CategoryID)
	require.NoError(t, db.First(&got, fine.ID).Error)
	assert.Equal(t, kept.ID, got.CategoryID)
}
