package service

import (
	"context"
	"testing"

	"photoshare/internal/models"
	"photoshare/internal/repository"
	"photoshare/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryService_Resolve(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewCategoryService(repository.NewCategoryRepository(db, nil))
	ctx := context.Background()
	nature := testutil.CreateCategory(t, db, "Nature")

	tests := []struct {
		name    string
		ref     string
		wantErr bool
	}{
		{"by id", "1", false},
		{"by name", "Nature", false},
		{"case insensitive", "nature", false},
		{"unknown name", "Cars", true},
		{"unknown id", "999", true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Resolve(ctx, tt.ref)
			if tt.wantErr {
				assertCode(t, err, models.CodeNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, nature.ID, got.ID)
		})
	}
}

func TestCategoryService_SeedIsIdempotent(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewCategoryService(repository.NewCategoryRepository(db, nil))
	ctx := context.Background()
	defs := []CategoryDef{{Name: "Trees"}, {Name: "Beach"}, {Name: " "}}

	created, err := svc.Seed(ctx, defs)
	require.NoError(t, err)
	assert.Equal(t, 3, created)

	created, err = svc.Seed(ctx, defs)
	require.NoError(t, err)
	assert.Zero(t, created)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestCategoryService_Create(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewCategoryService(repository.NewCategoryRepository(db, nil))
	ctx := context.Background()

	cat, err := svc.Create(ctx, "  City ", "Streets")
	require.NoError(t, err)
	assert.Equal(t, "City", cat.Name)

	_, err = svc.Create(ctx, "city", "")
	assertCode(t, err, models.CodeValidation)

	_, err = svc.Create(ctx, "", "")
	assertCode(t, err, models.CodeValidation)
}

func TestCategoryService_DeleteMovesPhotosToUncategorized(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewCategoryService(repository.NewCategoryRepository(db, nil))
	ctx := context.Background()

	city := testutil.CreateCategory(t, db, "City")
	alice := testutil.CreateUser(t, db, "Alice", "alice@example.com", "")
	photo := testutil.CreatePhoto(t, db, alice.ID, city.ID, "Skyline", "1-sky.png")

	moved, err := svc.Delete(ctx, city.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), moved)

	fallback, err := svc.Uncategorized(ctx)
	require.NoError(t, err)
	var reloaded models.Photo
	require.NoError(t, db.First(&reloaded, photo.ID).Error)
	assert.Equal(t, fallback.ID, reloaded.CategoryID)

	_, err = svc.Delete(ctx, fallback.ID)
	assertCode(t, err, models.CodeValidation)

	_, err = svc.Delete(ctx, 999)
	assertCode(t, err, models.CodeNotFound)
}

func TestCategoryService_ReassignMissing(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewCategoryService(repository.NewCategoryRepository(db, nil))
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "Alice", "alice@example.com", "")
	photo := testutil.CreatePhoto(t, db, alice.ID, 404, "Lost", "1-lost.png")

	moved, err := svc.ReassignMissing(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), moved)

	var reloaded models.Photo
	require.NoError(t, db.First(&reloaded, photo.ID).Error)
	assert.NotEqual(t, uint(404), reloaded.CategoryID)
}
