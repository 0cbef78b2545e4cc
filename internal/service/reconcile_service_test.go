package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"photoshare/internal/models"
	"photoshare/internal/repository"
	"photoshare/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReconciler(f *photoFixture) *Reconciler {
	categories := NewCategoryService(repository.NewCategoryRepository(f.db, nil))
	return NewReconciler(repository.NewMaintenanceRepository(f.db), repository.NewPhotoRepository(f.db), categories, f.blobs)
}

func TestBlobUploadTime(t *testing.T) {
	ts, ok := blobUploadTime("1700000000000-cat.png")
	require.True(t, ok)
	assert.Equal(t, int64(1700000000000), ts.UnixMilli())

	_, ok = blobUploadTime("cat.png")
	assert.False(t, ok)
	_, ok = blobUploadTime("abc-cat.png")
	assert.False(t, ok)
}

func TestReconciler_Run(t *testing.T) {
	f := newPhotoFixture(t)
	ctx := context.Background()
	r := newReconciler(f)
	r.now = func() time.Time { return time.UnixMilli(1700000000000).Add(2 * time.Hour) }

	kept := f.upload(t, "Kept", 0)
	orphan := f.upload(t, "Orphan", 0)
	lost := testutil.CreatePhoto(t, f.db, f.owner.UserID, 404, "Lost category", "https://example.com/x.jpg")

	// a comment and a like by a user who no longer exists, plus a photo whose uploader vanished
	require.NoError(t, f.db.Omit("Author").Create(&models.Comment{Text: "ghost", AuthorID: 999, PhotoID: kept.ID}).Error)
	require.NoError(t, f.db.Create(&models.Like{UserID: 999, PhotoID: kept.ID}).Error)
	require.NoError(t, f.db.Model(&models.Photo{}).Where("id = ?", orphan.ID).Update("uploader_id", 999).Error)

	put := func(key string) {
		require.NoError(t, f.blobs.Put(ctx, key, bytes.NewReader([]byte("x")), "image/png"))
	}
	stale := "1700000000000-stale.png"
	fresh := fmt.Sprintf("%d-fresh.png", r.now().Add(-time.Minute).UnixMilli())
	put(stale)
	put(fresh)

	report, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.OrphanPhotos)
	assert.Equal(t, int64(1), report.OrphanComments)
	assert.Equal(t, int64(1), report.OrphanLikes)
	assert.Equal(t, int64(1), report.Recategorized)
	assert.Equal(t, int64(1), report.OrphanBlobs)

	assert.True(t, f.blobs.Has(kept.ImagePath))
	assert.False(t, f.blobs.Has(orphan.ImagePath))
	assert.False(t, f.blobs.Has(stale))
	assert.True(t, f.blobs.Has(fresh))

	var reloaded models.Photo
	require.NoError(t, f.db.First(&reloaded, lost.ID).Error)
	assert.NotEqual(t, uint(404), reloaded.CategoryID)

	second, err := r.Run(ctx)
	require.NoError(t, err)
	for kind, n := range second.Counts() {
		assert.Zero(t, n, kind)
	}
}

func TestReconciler_BlobFailuresArePartial(t *testing.T) {
	f := newPhotoFixture(t)
	ctx := context.Background()
	r := newReconciler(f)

	stale := "1600000000000-stale.png"
	require.NoError(t, f.blobs.Put(ctx, stale, bytes.NewReader([]byte("x")), "image/png"))
	f.blobs.FailDelete[stale] = errors.New("permission denied")

	report, err := r.Run(ctx)
	assertCode(t, err, models.CodePartialFailure)
	assert.Zero(t, report.OrphanBlobs)
}
