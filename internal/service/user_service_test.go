package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"photoshare/internal/middleware"
	"photoshare/internal/models"
	"photoshare/internal/repository"
	"photoshare/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newUserService(t *testing.T, f *photoFixture) *UserService {
	t.Helper()
	return NewUserService(
		repository.NewUserRepository(f.db),
		repository.NewPhotoRepository(f.db),
		repository.NewCommentRepository(f.db),
		f.blobs,
		0,
	)
}

func TestAvatarURL(t *testing.T) {
	tests := []struct {
		name string
		user models.User
		want string
	}{
		{"fallback", models.User{Name: "Alice Smith"}, "https://ui-avatars.com/api/?name=Alice+Smith&background=random"},
		{"stored", models.User{Name: "A", ProfilePhoto: "1-me.png"}, "/profile/profile-photo/1-me.png"},
		{"external", models.User{Name: "A", ProfilePhoto: "https://example.com/me.png"}, "https://example.com/me.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AvatarURL(&tt.user))
		})
	}
}

func TestUserService_ProfileShowsOnlyOwnPhotos(t *testing.T) {
	f := newPhotoFixture(t)
	svc := newUserService(t, f)
	ctx := context.Background()
	cat := testutil.CreateCategory(t, f.db, "Nature")
	testutil.CreatePhoto(t, f.db, f.owner.UserID, cat.ID, "Alice's", "1-a.png")
	testutil.CreatePhoto(t, f.db, f.other.UserID, cat.ID, "Bob's", "1-b.png")

	profile, err := svc.Profile(ctx, f.owner.UserID, f.owner.UserID)
	require.NoError(t, err)
	require.Len(t, profile.Photos, 1)
	assert.Equal(t, "Alice's", profile.Photos[0].Title)
	assert.Contains(t, profile.AvatarURL, "ui-avatars.com")

	_, err = svc.Profile(ctx, 999, 0)
	assertCode(t, err, models.CodeNotFound)
}

func TestUserService_UpdateBio(t *testing.T) {
	f := newPhotoFixture(t)
	svc := newUserService(t, f)
	ctx := context.Background()

	require.NoError(t, svc.UpdateBio(ctx, f.owner, "  I take photos. "))
	var u models.User
	require.NoError(t, f.db.First(&u, f.owner.UserID).Error)
	assert.Equal(t, "I take photos.", u.Bio)

	assertCode(t, svc.UpdateBio(ctx, f.owner, strings.Repeat("x", 501)), models.CodeValidation)
	assertCode(t, svc.UpdateBio(ctx, middleware.Identity{}, "hi"), models.CodeUnauthorized)
}

func TestUserService_UpdateProfilePhoto(t *testing.T) {
	f := newPhotoFixture(t)
	svc := newUserService(t, f)
	ctx := context.Background()

	first, err := svc.UpdateProfilePhoto(ctx, f.owner, &ImageFile{Filename: "me.png", Content: testutil.TinyPNG(t, 2, 2)})
	require.NoError(t, err)
	assert.True(t, f.blobs.Has(first.ProfilePhoto))
	oldKey := first.ProfilePhoto

	second, err := svc.UpdateProfilePhoto(ctx, f.owner, &ImageFile{Filename: "me2.png", Content: testutil.TinyPNG(t, 3, 3)})
	require.NoError(t, err)
	assert.False(t, f.blobs.Has(oldKey))
	assert.True(t, f.blobs.Has(second.ProfilePhoto))

	f.blobs.FailDelete[second.ProfilePhoto] = errors.New("bucket unavailable")
	third, err := svc.UpdateProfilePhoto(ctx, f.owner, &ImageFile{Filename: "me3.png", Content: testutil.TinyPNG(t, 4, 4)})
	assertCode(t, err, models.CodePartialFailure)
	require.NotNil(t, third)

	var u models.User
	require.NoError(t, f.db.First(&u, f.owner.UserID).Error)
	assert.Equal(t, third.ProfilePhoto, u.ProfilePhoto)
}

func TestUserService_SetRole(t *testing.T) {
	f := newPhotoFixture(t)
	svc := newUserService(t, f)
	ctx := context.Background()

	updated, err := svc.SetRole(ctx, f.admin, f.other.UserID, "ADMIN")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, updated.Role)

	_, err = svc.SetRole(ctx, f.admin, f.other.UserID, "root")
	assertCode(t, err, models.CodeValidation)

	_, err = svc.SetRole(ctx, f.admin, f.admin.UserID, models.RoleUser)
	assertCode(t, err, models.CodeValidation)

	_, err = svc.SetRole(ctx, f.admin, 999, models.RoleUser)
	assertCode(t, err, models.CodeNotFound)
}

func TestUserService_SetRoleByEmailAndListAdmins(t *testing.T) {
	f := newPhotoFixture(t)
	svc := newUserService(t, f)
	ctx := context.Background()

	u, err := svc.SetRoleByEmail(ctx, " Alice@Example.com ", models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)

	admins, err := svc.ListAdmins(ctx)
	require.NoError(t, err)
	assert.Len(t, admins, 2)

	_, err = svc.SetRoleByEmail(ctx, "nobody@example.com", models.RoleAdmin)
	assertCode(t, err, models.CodeNotFound)
}

func TestUserService_SeedAdmin(t *testing.T) {
	f := newPhotoFixture(t)
	svc := newUserService(t, f)
	ctx := context.Background()

	u, created, err := svc.SeedAdmin(ctx, "", "root@example.com", "supersecret")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.RoleAdmin, u.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("supersecret")))

	_, created, err = svc.SeedAdmin(ctx, "", "root@example.com", "other-password")
	require.NoError(t, err)
	assert.False(t, created)

	promoted, created, err := svc.SeedAdmin(ctx, "", "bob@example.com", "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, models.RoleAdmin, promoted.Role)

	_, _, err = svc.SeedAdmin(ctx, "", "new@example.com", "short")
	assertCode(t, err, models.CodeValidation)
}

func TestUserService_DeleteUserCascade(t *testing.T) {
	f := newPhotoFixture(t)
	svc := newUserService(t, f)
	comments := NewCommentService(repository.NewCommentRepository(f.db))
	ctx := context.Background()

	alicePhoto := f.upload(t, "Alice's", 0)
	bobPhoto, err := f.svc.Create(ctx, f.other, CreatePhotoInput{
		Title: "Bob's",
		File:  &ImageFile{Filename: "bob.png", Content: testutil.TinyPNG(t, 2, 2)},
	})
	require.NoError(t, err)

	_, err = comments.Create(ctx, f.other, CreateCommentInput{PhotoID: alicePhoto.ID, Text: "Bob on Alice"})
	require.NoError(t, err)
	_, err = comments.Create(ctx, f.owner, CreateCommentInput{PhotoID: bobPhoto.ID, Text: "Alice on Bob"})
	require.NoError(t, err)
	_, err = f.svc.ToggleLike(ctx, f.owner, bobPhoto.ID)
	require.NoError(t, err)

	_, err = svc.DeleteUser(ctx, f.admin, f.admin.UserID)
	assertCode(t, err, models.CodeValidation)

	deleted, err := svc.DeleteUser(ctx, f.admin, f.owner.UserID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", deleted.Name)

	assert.False(t, f.blobs.Has(alicePhoto.ImagePath))
	assert.True(t, f.blobs.Has(bobPhoto.ImagePath))

	_, err = f.svc.Get(ctx, alicePhoto.ID, 0)
	assertCode(t, err, models.CodeNotFound)

	remaining, err := comments.ListByPhoto(ctx, bobPhoto.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	bobView, err := f.svc.Get(ctx, bobPhoto.ID, 0)
	require.NoError(t, err)
	assert.Zero(t, bobView.LikesCount)
}

func TestUserService_DeleteUserCollectsBlobFailures(t *testing.T) {
	f := newPhotoFixture(t)
	svc := newUserService(t, f)
	ctx := context.Background()

	p1 := f.upload(t, "One", 0)
	p2 := f.upload(t, "Two", 0)
	f.blobs.FailDelete[p1.ImagePath] = errors.New("timeout one")
	f.blobs.FailDelete[p2.ImagePath] = errors.New("timeout two")

	_, err := svc.DeleteUser(ctx, f.admin, f.owner.UserID)
	assertCode(t, err, models.CodePartialFailure)
	assert.Contains(t, err.Error(), "timeout one")
	assert.Contains(t, err.Error(), "timeout two")

	var count int64
	f.db.Model(&models.User{}).Where("id = ?", f.owner.UserID).Count(&count)
	assert.Zero(t, count)
}

func TestUserService_Dashboard(t *testing.T) {
	f := newPhotoFixture(t)
	svc := newUserService(t, f)
	ctx := context.Background()
	photo := f.upload(t, "One", 0)
	_, err := NewCommentService(repository.NewCommentRepository(f.db)).Create(ctx, f.other, CreateCommentInput{PhotoID: photo.ID, Text: "hi"})
	require.NoError(t, err)

	dash, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Len(t, dash.Users, 3)
	assert.Len(t, dash.Photos, 1)
	assert.Len(t, dash.Comments, 1)
}
