package service

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"photoshare/internal/middleware"
	"photoshare/internal/models"
	"photoshare/internal/observability"
	"photoshare/internal/repository"
	"photoshare/internal/storage"
	"photoshare/internal/validation"
)

// ProfilePhotoPath is the route prefix profile photos are served from.
const ProfilePhotoPath = "/profile/profile-photo/"

type UserService struct {
	userRepo    repository.UserRepository
	photoRepo   repository.PhotoRepository
	commentRepo repository.CommentRepository
	blobs       storage.BlobStore
	maxUpload   int64
	now         func() time.Time
}

// Profile is a user with their photos and a displayable avatar.
type Profile struct {
	User      *models.User    `json:"user"`
	Photos    []*models.Photo `json:"photos"`
	AvatarURL string          `json:"avatarUrl"`
}

// Dashboard is the admin overview.
type Dashboard struct {
	Users    []models.User     `json:"users"`
	Photos   []*models.Photo   `json:"photos"`
	Comments []*models.Comment `json:"comments"`
}

func NewUserService(
	userRepo repository.UserRepository,
	photoRepo repository.PhotoRepository,
	commentRepo repository.CommentRepository,
	blobs storage.BlobStore,
	maxUpload int64,
) *UserService {
	return &UserService{
		userRepo:    userRepo,
		photoRepo:   photoRepo,
		commentRepo: commentRepo,
		blobs:       blobs,
		maxUpload:   maxUpload,
		now:         time.Now,
	}
}

// AvatarURL is the profile photo URL of u, or a generated initials avatar when none is set.
func AvatarURL(u *models.User) string {
	switch {
	case u.ProfilePhoto == "":
		return "https://ui-avatars.com/api/?name=" + url.QueryEscape(u.Name) + "&background=random"
	case models.IsExternalURL(u.ProfilePhoto):
		return u.ProfilePhoto
	default:
		return ProfilePhotoPath + url.PathEscape(u.ProfilePhoto)
	}
}

// Profile loads a user and only the photos they uploaded, with like state for viewerID.
func (s *UserService) Profile(ctx context.Context, userID, viewerID uint) (*Profile, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	photos, err := s.photoRepo.ListByUploader(ctx, userID, viewerID)
	if err != nil {
		return nil, err
	}
	return &Profile{User: user, Photos: photos, AvatarURL: AvatarURL(user)}, nil
}

func (s *UserService) UpdateBio(ctx context.Context, actor middleware.Identity, bio string) error {
	if actor.UserID == 0 {
		return models.NewUnauthorizedError("Unauthorized. Please log in.")
	}
	bio = strings.TrimSpace(bio)
	if err := validation.ValidateBio(bio); err != nil {
		return models.NewValidationError(err.Error())
	}
	return s.userRepo.UpdateFields(ctx, actor.UserID, map[string]interface{}{"bio": bio})
}

// UpdateProfilePhoto stores a new avatar, points the user at it, then removes the previous one.
func (s *UserService) UpdateProfilePhoto(ctx context.Context, actor middleware.Identity, file *ImageFile) (*models.User, error) {
	if actor.UserID == 0 {
		return nil, models.NewUnauthorizedError("Unauthorized. Please log in.")
	}
	user, err := s.userRepo.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	key, err := storeImage(ctx, s.blobs, file, s.maxUpload, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.UpdateFields(ctx, user.ID, map[string]interface{}{"profile_photo": key}); err != nil {
		if delErr := deleteBlob(ctx, s.blobs, key); delErr != nil {
			middleware.Logger.ErrorContext(ctx, "failed to remove unused profile photo",
				slog.String("key", key),
				slog.String("error", delErr.Error()),
			)
		}
		return nil, err
	}

	old := user.ProfilePhoto
	user.ProfilePhoto = key
	if err := deleteBlob(ctx, s.blobs, old); err != nil {
		observability.PartialFailures.WithLabelValues("profile_photo").Inc()
		return user, models.NewPartialFailureError("Profile photo updated, but old file deletion failed.", err)
	}
	return user, nil
}

// SetRole changes another user's role. Admins cannot change their own role.
func (s *UserService) SetRole(ctx context.Context, actor middleware.Identity, userID uint, role string) (*models.User, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	if !models.ValidRole(role) {
		return nil, models.NewValidationError("Invalid role.")
	}
	if actor.UserID == userID {
		return nil, models.NewValidationError("You cannot change your own role.")
	}
	if err := s.userRepo.UpdateFields(ctx, userID, map[string]interface{}{"role": role}); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, userID)
}

// SetRoleByEmail changes the role of the user registered under email.
func (s *UserService) SetRoleByEmail(ctx context.Context, email, role string) (*models.User, error) {
	if !models.ValidRole(role) {
		return nil, models.NewValidationError("Invalid role.")
	}
	email = validation.NormalizeEmail(email)
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("User", email)
	}
	if user.Role == role {
		return user, nil
	}
	if err := s.userRepo.UpdateFields(ctx, user.ID, map[string]interface{}{"role": role}); err != nil {
		return nil, err
	}
	user.Role = role
	return user, nil
}

func (s *UserService) ListAdmins(ctx context.Context) ([]models.User, error) {
	return s.userRepo.ListByRole(ctx, models.RoleAdmin)
}

// SeedAdmin makes sure an admin account exists for email. An existing account is
// promoted and keeps its password.
func (s *UserService) SeedAdmin(ctx context.Context, name, email, password string) (*models.User, bool, error) {
	email = validation.NormalizeEmail(email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, false, models.NewValidationError(err.Error())
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		if existing.Role != models.RoleAdmin {
			if err := s.userRepo.UpdateFields(ctx, existing.ID, map[string]interface{}{"role": models.RoleAdmin}); err != nil {
				return nil, false, err
			}
			existing.Role = models.RoleAdmin
		}
		return existing, false, nil
	}

	if err := validation.ValidatePassword(password); err != nil {
		return nil, false, models.NewValidationError(err.Error())
	}
	hashed, err := HashPassword(password)
	if err != nil {
		return nil, false, models.NewInternalError(err)
	}
	if strings.TrimSpace(name) == "" {
		name = "Admin"
	}
	user := &models.User{Name: name, Email: email, Password: hashed, Role: models.RoleAdmin}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, false, err
	}
	return user, true, nil
}

// DeleteUser removes a user with their photos, comments and likes in one transaction,
// then deletes their images and profile photo. Blob failures are collected into a
// single PartialFailure error after the account is gone.
func (s *UserService) DeleteUser(ctx context.Context, actor middleware.Identity, userID uint) (*models.User, error) {
	if actor.UserID == userID {
		return nil, models.NewValidationError("You cannot delete your own account.")
	}

	cascade, err := s.userRepo.DeleteCascade(ctx, userID)
	if err != nil {
		return nil, err
	}
	observability.ContentEvents.WithLabelValues("user", "delete").Inc()

	var blobErrs []error
	for _, ref := range append(cascade.ImagePaths, cascade.User.ProfilePhoto) {
		if err := deleteBlob(ctx, s.blobs, ref); err != nil {
			blobErrs = append(blobErrs, err)
		}
	}
	if len(blobErrs) > 0 {
		observability.PartialFailures.WithLabelValues("user_delete").Inc()
		return &cascade.User, models.NewPartialFailureError("User removed, but some files could not be deleted.", errors.Join(blobErrs...))
	}
	return &cascade.User, nil
}

// ListUsers pages through users, newest first.
func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.userRepo.List(ctx, limit, offset)
}

// Dashboard lists every user, photo and comment for the admin overview.
func (s *UserService) Dashboard(ctx context.Context) (*Dashboard, error) {
	users, err := s.userRepo.List(ctx, 0, 0)
	if err != nil {
		return nil, err
	}
	photos, err := s.photoRepo.List(ctx, 0)
	if err != nil {
		return nil, err
	}
	comments, err := s.commentRepo.ListRecent(ctx, 0)
	if err != nil {
		return nil, err
	}
	return &Dashboard{Users: users, Photos: photos, Comments: comments}, nil
}
