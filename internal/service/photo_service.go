package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"photoshare/internal/middleware"
	"photoshare/internal/models"
	"photoshare/internal/observability"
	"photoshare/internal/repository"
	"photoshare/internal/storage"
	"photoshare/internal/validation"
)

const heroPhotoCount = 3

type PhotoService struct {
	photoRepo  repository.PhotoRepository
	categories *CategoryService
	blobs      storage.BlobStore
	maxUpload  int64
	now        func() time.Time
}

type CreatePhotoInput struct {
	Title       string
	Description string
	CategoryID  uint
	Tags        string
	File        *ImageFile
}

// EditPhotoInput carries replacement values. Empty fields keep the current value.
type EditPhotoInput struct {
	Title       string
	Description string
	CategoryID  uint
	Tags        string
	File        *ImageFile
}

// Gallery is the home page view: every photo, the categories and the hero photos.
type Gallery struct {
	Photos     []*models.Photo   `json:"photos"`
	Categories []models.Category `json:"categories"`
	Hero       []*models.Photo   `json:"heroPhotos"`
}

// CategoryPage is one category and its photos.
type CategoryPage struct {
	Category   *models.Category  `json:"category"`
	Photos     []*models.Photo   `json:"photos"`
	Categories []models.Category `json:"categories"`
}

func NewPhotoService(
	photoRepo repository.PhotoRepository,
	categories *CategoryService,
	blobs storage.BlobStore,
	maxUpload int64,
) *PhotoService {
	return &PhotoService{
		photoRepo:  photoRepo,
		categories: categories,
		blobs:      blobs,
		maxUpload:  maxUpload,
		now:        time.Now,
	}
}

// Create stores the image, then the row. A row that cannot be written takes its blob with it.
func (s *PhotoService) Create(ctx context.Context, actor middleware.Identity, in CreatePhotoInput) (*models.Photo, error) {
	if actor.UserID == 0 {
		return nil, models.NewUnauthorizedError("Unauthorized. Please log in.")
	}
	if err := validation.ValidatePhotoTitle(in.Title); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	tags := models.ParseTags(in.Tags)
	if err := validation.ValidateTags(tags); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	category, err := s.categories.resolveForPhoto(ctx, in.CategoryID)
	if err != nil {
		return nil, err
	}

	key, err := storeImage(ctx, s.blobs, in.File, s.maxUpload, s.now())
	if err != nil {
		return nil, err
	}

	photo := &models.Photo{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		CategoryID:  category.ID,
		Tags:        tags,
		ImagePath:   key,
		UploaderID:  actor.UserID,
	}
	if err := s.photoRepo.Create(ctx, photo); err != nil {
		if delErr := deleteBlob(ctx, s.blobs, key); delErr != nil {
			middleware.Logger.ErrorContext(ctx, "failed to remove blob of unsaved photo",
				slog.String("key", key),
				slog.String("error", delErr.Error()),
			)
		}
		return nil, err
	}
	photo.Category = *category

	observability.ContentEvents.WithLabelValues("photo", "create").Inc()
	return photo, nil
}

// Get loads a photo with uploader, category, comments and like state for viewerID.
func (s *PhotoService) Get(ctx context.Context, id, viewerID uint) (*models.Photo, error) {
	return s.photoRepo.GetByID(ctx, id, viewerID)
}

// Edit applies in to a photo owned by actor, or any photo for an admin.
// A replaced image is deleted only after the row points at the new one; when that
// delete fails the updated photo is returned together with a PartialFailure error.
func (s *PhotoService) Edit(ctx context.Context, actor middleware.Identity, id uint, in EditPhotoInput) (*models.Photo, error) {
	photo, err := s.photoRepo.GetByID(ctx, id, actor.UserID)
	if err != nil {
		return nil, err
	}
	if !actor.CanModify(photo.UploaderID) {
		return nil, models.NewForbiddenError("You are not allowed to edit this photo.")
	}

	if title := strings.TrimSpace(in.Title); title != "" {
		if err := validation.ValidatePhotoTitle(title); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		photo.Title = title
	}
	if desc := strings.TrimSpace(in.Description); desc != "" {
		photo.Description = desc
	}
	if strings.TrimSpace(in.Tags) != "" {
		tags := models.ParseTags(in.Tags)
		if err := validation.ValidateTags(tags); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		photo.Tags = tags
	}
	if in.CategoryID != 0 && in.CategoryID != photo.CategoryID {
		category, err := s.categories.resolveForPhoto(ctx, in.CategoryID)
		if err != nil {
			return nil, err
		}
		photo.CategoryID = category.ID
		photo.Category = *category
	}

	oldImage := ""
	if in.File != nil && len(in.File.Content) > 0 {
		key, err := storeImage(ctx, s.blobs, in.File, s.maxUpload, s.now())
		if err != nil {
			return nil, err
		}
		oldImage = photo.ImagePath
		photo.ImagePath = key
	}

	if err := s.photoRepo.Update(ctx, photo); err != nil {
		if oldImage != "" {
			if delErr := deleteBlob(ctx, s.blobs, photo.ImagePath); delErr != nil {
				middleware.Logger.ErrorContext(ctx, "failed to remove blob of rejected edit",
					slog.String("key", photo.ImagePath),
					slog.String("error", delErr.Error()),
				)
			}
		}
		return nil, err
	}
	observability.ContentEvents.WithLabelValues("photo", "edit").Inc()

	if oldImage != "" {
		if err := deleteBlob(ctx, s.blobs, oldImage); err != nil {
			observability.PartialFailures.WithLabelValues("photo_edit").Inc()
			return photo, models.NewPartialFailureError("Photo updated, but old file deletion failed.", err)
		}
	}
	return photo, nil
}

// Delete removes likes, comments and the row in one transaction, then the image.
// The deleted photo is returned even when only the image deletion failed.
func (s *PhotoService) Delete(ctx context.Context, actor middleware.Identity, id uint) (*models.Photo, error) {
	photo, err := s.photoRepo.GetByID(ctx, id, 0)
	if err != nil {
		return nil, err
	}
	if !actor.CanModify(photo.UploaderID) {
		return nil, models.NewForbiddenError("You are not allowed to delete this photo.")
	}

	deleted, err := s.photoRepo.DeleteCascade(ctx, id)
	if err != nil {
		return nil, err
	}
	observability.ContentEvents.WithLabelValues("photo", "delete").Inc()

	if err := deleteBlob(ctx, s.blobs, deleted.ImagePath); err != nil {
		observability.PartialFailures.WithLabelValues("photo_delete").Inc()
		return deleted, models.NewPartialFailureError("Photo removed, but file deletion failed.", err)
	}
	return deleted, nil
}

// ToggleLike likes the photo for actor, or removes an existing like.
func (s *PhotoService) ToggleLike(ctx context.Context, actor middleware.Identity, photoID uint) (*models.LikeResult, error) {
	if actor.UserID == 0 {
		return nil, models.NewUnauthorizedError("Unauthorized. Please log in.")
	}
	result, err := s.photoRepo.ToggleLike(ctx, actor.UserID, photoID)
	if err != nil {
		return nil, err
	}
	action := "unlike"
	if result.Liked {
		action = "like"
	}
	observability.ContentEvents.WithLabelValues("like", action).Inc()
	return result, nil
}

// Gallery lists every photo newest first along with the categories.
func (s *PhotoService) Gallery(ctx context.Context, viewerID uint) (*Gallery, error) {
	photos, err := s.photoRepo.List(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, err
	}
	hero := photos
	if len(hero) > heroPhotoCount {
		hero = hero[:heroPhotoCount]
	}
	return &Gallery{Photos: photos, Categories: categories, Hero: hero}, nil
}

// ByCategory lists the photos of the category named or numbered by ref.
func (s *PhotoService) ByCategory(ctx context.Context, ref string, viewerID uint) (*CategoryPage, error) {
	category, err := s.categories.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	photos, err := s.photoRepo.ListByCategory(ctx, category.ID, viewerID)
	if err != nil {
		return nil, err
	}
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, err
	}
	return &CategoryPage{Category: category, Photos: photos, Categories: categories}, nil
}

// ImageRef returns the stored image reference of a photo: a blob key or an absolute URL.
func (s *PhotoService) ImageRef(ctx context.Context, id uint) (string, error) {
	photo, err := s.photoRepo.GetByID(ctx, id, 0)
	if err != nil {
		return "", err
	}
	return photo.ImagePath, nil
}
