// Package repository implements the data access layer for the application.
package repository

import (
	"context"

	"photoshare/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error
	List(ctx context.Context, limit, offset int) ([]models.User, error)
	ListByRole(ctx context.Context, role string) ([]models.User, error)
	DeleteCascade(ctx context.Context, id uint) (*UserCascade, error)
}

// UserCascade lists the blob references left behind by a deleted user.
// The rows are already gone; the caller removes the blobs.
type UserCascade struct {
	User       models.User
	ImagePaths []string
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if isNotFound(err) {
			return nil, models.NewNotFoundError("User", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// GetByEmail returns nil, nil when no user has the (already normalized) email.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewDuplicateEmailError()
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&models.User{ID: id}).Updates(fields)
	if result.Error != nil {
		if isUniqueConstraintError(result.Error) {
			return models.NewDuplicateEmailError()
		}
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	return nil
}

func (r *userRepository) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	var users []models.User
	q := r.db.WithContext(ctx).Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	if err := q.Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) ListByRole(ctx context.Context, role string) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Where("role = ?", role).Order("email").Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

// DeleteCascade removes the user, their photos with the likes and comments on them,
// every comment they wrote and every like they gave, in one transaction.
func (r *userRepository) DeleteCascade(ctx context.Context, id uint) (*UserCascade, error) {
	var out UserCascade
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&out.User, id).Error; err != nil {
			if isNotFound(err) {
				return models.NewNotFoundError("User", id)
			}
			return err
		}

		var photos []models.Photo
		if err := tx.Select("id", "image_path").Where("uploader_id = ?", id).Find(&photos).Error; err != nil {
			return err
		}
		photoIDs := make([]uint, 0, len(photos))
		for _, p := range photos {
			photoIDs = append(photoIDs, p.ID)
			out.ImagePaths = append(out.ImagePaths, p.ImagePath)
		}

		likes := tx.Where("user_id = ?", id)
		comments := tx.Where("author_id = ?", id)
		if len(photoIDs) > 0 {
			likes = likes.Or("photo_id IN ?", photoIDs)
			comments = comments.Or("photo_id IN ?", photoIDs)
		}
		if err := likes.Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := comments.Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if len(photoIDs) > 0 {
			if err := tx.Where("id IN ?", photoIDs).Delete(&models.Photo{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.User{}, id).Error
	})
	if err != nil {
		return nil, txError(err)
	}
	return &out, nil
}
