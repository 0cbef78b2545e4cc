package repository

import (
	"context"

	"photoshare/internal/models"

	"gorm.io/gorm"
)

// MaintenanceRepository finds and removes rows left dangling by out-of-band deletes.
type MaintenanceRepository interface {
	OrphanPhotos(ctx context.Context) ([]models.Photo, error)
	DeleteOrphanComments(ctx context.Context) (int64, error)
	DeleteOrphanLikes(ctx context.Context) (int64, error)
	ReferencedBlobKeys(ctx context.Context) (map[string]struct{}, error)
}

type maintenanceRepository struct {
	db *gorm.DB
}

// NewMaintenanceRepository returns a MaintenanceRepository backed by db.
func NewMaintenanceRepository(db *gorm.DB) MaintenanceRepository {
	return &maintenanceRepository{db: db}
}

func (r *maintenanceRepository) userIDs() *gorm.DB {
	return r.db.Model(&models.User{}).Select("id")
}

func (r *maintenanceRepository) photoIDs() *gorm.DB {
	return r.db.Model(&models.Photo{}).Select("id")
}

// OrphanPhotos returns photos whose uploader no longer exists.
func (r *maintenanceRepository) OrphanPhotos(ctx context.Context) ([]models.Photo, error) {
	var photos []models.Photo
	if err := r.db.WithContext(ctx).
		Where("uploader_id NOT IN (?)", r.userIDs()).
		Order("id").
		Find(&photos).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return photos, nil
}

// DeleteOrphanComments removes comments whose author or photo no longer exists.
func (r *maintenanceRepository) DeleteOrphanComments(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("author_id NOT IN (?) OR photo_id NOT IN (?)", r.userIDs(), r.photoIDs()).
		Delete(&models.Comment{})
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteOrphanLikes removes likes whose user or photo no longer exists.
func (r *maintenanceRepository) DeleteOrphanLikes(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id NOT IN (?) OR photo_id NOT IN (?)", r.userIDs(), r.photoIDs()).
		Delete(&models.Like{})
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}

// ReferencedBlobKeys collects every blob key still referenced by a photo or a profile.
// External URLs are not blob keys and are skipped.
func (r *maintenanceRepository) ReferencedBlobKeys(ctx context.Context) (map[string]struct{}, error) {
	db := r.db.WithContext(ctx)

	var imagePaths []string
	if err := db.Model(&models.Photo{}).Pluck("image_path", &imagePaths).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	var avatars []string
	if err := db.Model(&models.User{}).Where("profile_photo <> ''").Pluck("profile_photo", &avatars).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	keys := make(map[string]struct{}, len(imagePaths)+len(avatars))
	for _, ref := range append(imagePaths, avatars...) {
		if ref == "" || models.IsExternalURL(ref) {
			continue
		}
		keys[ref] = struct{}{}
	}
	return keys, nil
}
