package repository

import (
	"context"
	"time"

	"photoshare/internal/models"

	"gorm.io/gorm"
)

// PasswordResetRepository stores pending password reset requests.
type PasswordResetRepository interface {
	Create(ctx context.Context, req *models.PasswordResetRequest) error
	ListActive(ctx context.Context, email string, now time.Time) ([]models.PasswordResetRequest, error)
	DeleteByEmail(ctx context.Context, email string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type passwordResetRepository struct {
	db *gorm.DB
}

// NewPasswordResetRepository returns a PasswordResetRepository backed by db.
func NewPasswordResetRepository(db *gorm.DB) PasswordResetRepository {
	return &passwordResetRepository{db: db}
}

func (r *passwordResetRepository) Create(ctx context.Context, req *models.PasswordResetRequest) error {
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// ListActive returns the unexpired requests for email, newest first.
func (r *passwordResetRepository) ListActive(ctx context.Context, email string, now time.Time) ([]models.PasswordResetRequest, error) {
	var reqs []models.PasswordResetRequest
	if err := r.db.WithContext(ctx).
		Where("email = ? AND expires_at > ?", email, now).
		Order("created_at DESC, id DESC").
		Find(&reqs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return reqs, nil
}

func (r *passwordResetRepository) DeleteByEmail(ctx context.Context, email string) (int64, error) {
	res := r.db.WithContext(ctx).Where("email = ?", email).Delete(&models.PasswordResetRequest{})
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}

func (r *passwordResetRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&models.PasswordResetRequest{})
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}
