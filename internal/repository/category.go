package repository

import (
	"context"
	"strings"

	"photoshare/internal/cache"
	"photoshare/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CategoryRepository defines persistence operations for categories.
type CategoryRepository interface {
	List(ctx context.Context) ([]models.Category, error)
	GetByID(ctx context.Context, id uint) (*models.Category, error)
	GetByName(ctx context.Context, name string) (*models.Category, error)
	Create(ctx context.Context, category *models.Category) error
	Ensure(ctx context.Context, name, description string) (*models.Category, bool, error)
	DeleteAndReassign(ctx context.Context, id, fallbackID uint) (int64, error)
	ReassignMissing(ctx context.Context, fallbackID uint) (int64, error)
}

type categoryRepository struct {
	db  *gorm.DB
	rdb *redis.Client
}

// NewCategoryRepository returns a CategoryRepository. rdb may be nil, which disables the list cache.
func NewCategoryRepository(db *gorm.DB, rdb *redis.Client) CategoryRepository {
	return &categoryRepository{db: db, rdb: rdb}
}

func (r *categoryRepository) List(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := cache.Aside(ctx, r.rdb, cache.CategoriesKey, &categories, cache.CategoriesTTL, func() error {
		if err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *categoryRepository) GetByID(ctx context.Context, id uint) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).First(&category, id).Error; err != nil {
		if isNotFound(err) {
			return nil, models.NewNotFoundError("Category", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &category, nil
}

// GetByName matches case-insensitively.
func (r *categoryRepository) GetByName(ctx context.Context, name string) (*models.Category, error) {
	var category models.Category
	name = strings.TrimSpace(name)
	if err := r.db.WithContext(ctx).Where("LOWER(name) = ?", strings.ToLower(name)).First(&category).Error; err != nil {
		if isNotFound(err) {
			return nil, models.NewNotFoundError("Category", name)
		}
		return nil, models.NewInternalError(err)
	}
	return &category, nil
}

func (r *categoryRepository) Create(ctx context.Context, category *models.Category) error {
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewValidationError("Category already exists.")
		}
		return models.NewInternalError(err)
	}
	cache.Invalidate(ctx, r.rdb, cache.CategoriesKey)
	return nil
}

// Ensure returns the category named name, creating it when missing.
// The boolean reports whether a row was inserted.
func (r *categoryRepository) Ensure(ctx context.Context, name, description string) (*models.Category, bool, error) {
	db := r.db.WithContext(ctx)

	var category models.Category
	err := db.Where("name = ?", name).First(&category).Error
	if err == nil {
		return &category, false, nil
	}
	if !isNotFound(err) {
		return nil, false, models.NewInternalError(err)
	}

	category = models.Category{Name: name, Description: description}
	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&category)
	if res.Error != nil {
		return nil, false, models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		// inserted concurrently
		if err := db.Where("name = ?", name).First(&category).Error; err != nil {
			return nil, false, models.NewInternalError(err)
		}
		return &category, false, nil
	}
	cache.Invalidate(ctx, r.rdb, cache.CategoriesKey)
	return &category, true, nil
}

// DeleteAndReassign moves the category's photos to fallbackID and deletes it.
func (r *categoryRepository) DeleteAndReassign(ctx context.Context, id, fallbackID uint) (int64, error) {
	var moved int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Photo{}).Where("category_id = ?", id).Update("category_id", fallbackID)
		if res.Error != nil {
			return res.Error
		}
		moved = res.RowsAffected

		del := tx.Delete(&models.Category{}, id)
		if del.Error != nil {
			return del.Error
		}
		if del.RowsAffected == 0 {
			return models.NewNotFoundError("Category", id)
		}
		return nil
	})
	if err != nil {
		return 0, txError(err)
	}
	cache.Invalidate(ctx, r.rdb, cache.CategoriesKey)
	return moved, nil
}

// ReassignMissing points photos whose category row no longer exists at fallbackID.
func (r *categoryRepository) ReassignMissing(ctx context.Context, fallbackID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Photo{}).
		Where("category_id NOT IN (?)", r.db.Model(&models.Category{}).Select("id")).
		Update("category_id", fallbackID)
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}
