package repository

import (
	"context"

	"photoshare/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PhotoRepository defines the interface for photo data operations
type PhotoRepository interface {
	Create(ctx context.Context, photo *models.Photo) error
	GetByID(ctx context.Context, id uint, viewerID uint) (*models.Photo, error)
	List(ctx context.Context, viewerID uint) ([]*models.Photo, error)
	ListByCategory(ctx context.Context, categoryID uint, viewerID uint) ([]*models.Photo, error)
	ListByUploader(ctx context.Context, uploaderID uint, viewerID uint) ([]*models.Photo, error)
	Update(ctx context.Context, photo *models.Photo) error
	DeleteCascade(ctx context.Context, id uint) (*models.Photo, error)
	ToggleLike(ctx context.Context, userID, photoID uint) (*models.LikeResult, error)
	CountLikes(ctx context.Context, photoID uint) (int64, error)
}

// photoRepository implements PhotoRepository
type photoRepository struct {
	db *gorm.DB
}

// NewPhotoRepository creates a new photo repository
func NewPhotoRepository(db *gorm.DB) PhotoRepository {
	return &photoRepository{db: db}
}

// Create inserts the photo after checking that its uploader still exists.
func (r *photoRepository) Create(ctx context.Context, photo *models.Photo) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var uploader models.User
		if err := tx.Select("id").First(&uploader, photo.UploaderID).Error; err != nil {
			if isNotFound(err) {
				return models.NewNotFoundError("User", photo.UploaderID)
			}
			return err
		}
		return tx.Omit(clause.Associations).Create(photo).Error
	})
	return txError(err)
}

func (r *photoRepository) GetByID(ctx context.Context, id uint, viewerID uint) (*models.Photo, error) {
	var photo models.Photo
	err := r.applyPhotoDetails(r.db.WithContext(ctx), viewerID).
		Preload("Uploader").
		Preload("Category").
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Preload("Comments.Author").
		First(&photo, id).Error
	if err != nil {
		if isNotFound(err) {
			return nil, models.NewNotFoundError("Photo", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &photo, nil
}

func (r *photoRepository) List(ctx context.Context, viewerID uint) ([]*models.Photo, error) {
	return r.list(ctx, viewerID, nil)
}

func (r *photoRepository) ListByCategory(ctx context.Context, categoryID uint, viewerID uint) ([]*models.Photo, error) {
	return r.list(ctx, viewerID, func(db *gorm.DB) *gorm.DB {
		return db.Where("photos.category_id = ?", categoryID)
	})
}

func (r *photoRepository) ListByUploader(ctx context.Context, uploaderID uint, viewerID uint) ([]*models.Photo, error) {
	return r.list(ctx, viewerID, func(db *gorm.DB) *gorm.DB {
		return db.Where("photos.uploader_id = ?", uploaderID)
	})
}

func (r *photoRepository) list(ctx context.Context, viewerID uint, scope func(*gorm.DB) *gorm.DB) ([]*models.Photo, error) {
	var photos []*models.Photo
	q := r.applyPhotoDetails(r.db.WithContext(ctx), viewerID).
		Preload("Uploader").
		Preload("Category")
	if scope != nil {
		q = q.Scopes(scope)
	}
	if err := q.Order("photos.created_at DESC, photos.id DESC").Find(&photos).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return photos, nil
}

// applyPhotoDetails adds subqueries to fetch the like count and liked status in a single query.
func (r *photoRepository) applyPhotoDetails(db *gorm.DB, viewerID uint) *gorm.DB {
	selectQuery := "photos.*, " +
		"(SELECT COUNT(*) FROM likes WHERE likes.photo_id = photos.id) AS likes_count"

	if viewerID != 0 {
		return db.Select(selectQuery+", EXISTS(SELECT 1 FROM likes WHERE likes.photo_id = photos.id AND likes.user_id = ?) AS liked", viewerID)
	}

	return db.Select(selectQuery + ", false AS liked")
}

// Update writes the editable columns. The uploader is never changed.
func (r *photoRepository) Update(ctx context.Context, photo *models.Photo) error {
	result := r.db.WithContext(ctx).
		Model(&models.Photo{ID: photo.ID}).
		Select("title", "description", "category_id", "tags", "image_path", "updated_at").
		Updates(photo)
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Photo", photo.ID)
	}
	return nil
}

// DeleteCascade removes the photo's likes, its comments and the row itself in one
// transaction and returns the deleted row so the caller can remove the binary.
func (r *photoRepository) DeleteCascade(ctx context.Context, id uint) (*models.Photo, error) {
	var photo models.Photo
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&photo, id).Error; err != nil {
			if isNotFound(err) {
				return models.NewNotFoundError("Photo", id)
			}
			return err
		}
		if err := tx.Where("photo_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("photo_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Photo{}, id).Error
	})
	if err != nil {
		return nil, txError(err)
	}
	return &photo, nil
}

// ToggleLike removes the user's like if present, otherwise adds it.
// Both directions are single statements so concurrent toggles never duplicate a row.
func (r *photoRepository) ToggleLike(ctx context.Context, userID, photoID uint) (*models.LikeResult, error) {
	db := r.db.WithContext(ctx)

	var exists int64
	if err := db.Model(&models.Photo{}).Where("id = ?", photoID).Count(&exists).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if exists == 0 {
		return nil, models.NewNotFoundError("Photo", photoID)
	}

	res := db.Where("user_id = ? AND photo_id = ?", userID, photoID).Delete(&models.Like{})
	if res.Error != nil {
		return nil, models.NewInternalError(res.Error)
	}

	liked := false
	if res.RowsAffected == 0 {
		like := models.Like{UserID: userID, PhotoID: photoID}
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&like).Error; err != nil {
			return nil, models.NewInternalError(err)
		}
		liked = true
	}

	count, err := r.CountLikes(ctx, photoID)
	if err != nil {
		return nil, err
	}
	return &models.LikeResult{Liked: liked, LikesCount: count}, nil
}

func (r *photoRepository) CountLikes(ctx context.Context, photoID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Like{}).Where("photo_id = ?", photoID).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}
