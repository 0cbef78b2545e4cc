package repository

import (
	"context"
	"regexp"
	"testing"

	"photoshare/internal/models"
	"photoshare/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestUserRepository_GetByID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	tests := []struct {
		name         string
		userID       uint
		mockBehavior func()
		expectedName string
		expectedCode string
	}{
		{
			name:   "Success",
			userID: 1,
			mockBehavior: func() {
				rows := sqlmock.NewRows([]string{"id", "name", "email", "role"}).
					AddRow(1, "Alice", "alice@example.com", "user")
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1 ORDER BY "users"."id" LIMIT $2`)).
					WithArgs(1, 1).
					WillReturnRows(rows)
			},
			expectedName: "Alice",
		},
		{
			name:   "Not Found",
			userID: 99,
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1 ORDER BY "users"."id" LIMIT $2`)).
					WithArgs(99, 1).
					WillReturnError(gorm.ErrRecordNotFound)
			},
			expectedCode: models.CodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockBehavior()
			user, err := repo.GetByID(ctx, tt.userID)

			if tt.expectedCode != "" {
				assert.True(t, models.HasCode(err, tt.expectedCode))
			} else if assert.NotNil(t, user) {
				assert.Equal(t, tt.expectedName, user.Name)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_GetByEmail(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE email = $1 ORDER BY "users"."id" LIMIT $2`)).
		WithArgs("nobody@example.com", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	user, err := repo.GetByEmail(context.Background(), "nobody@example.com")
	assert.NoError(t, err)
	assert.Nil(t, user)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create_DuplicateEmail(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "users"`)).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint \"idx_users_email\""})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.User{Name: "Alice", Email: "alice@example.com", Password: "hash", Role: models.RoleUser})
	assert.True(t, models.HasCode(err, models.CodeDuplicateEmail))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create_DuplicateEmailSQLite(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.User{Name: "Alice", Email: "alice@example.com", Password: "h", Role: models.RoleUser}))
	err := repo.Create(ctx, &models.User{Name: "Alice 2", Email: "alice@example.com", Password: "h", Role: models.RoleUser})
	assert.True(t, models.HasCode(err, models.CodeDuplicateEmail))
}

func TestUserRepository_UpdateFieldsAndLists(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "Alice", "alice@example.com", models.RoleUser)
	testutil.CreateUser(t, db, "Root", "root@example.com", models.RoleAdmin)

	require.NoError(t, repo.UpdateFields(ctx, alice.ID, map[string]interface{}{"bio": "I shoot film", "role": models.RoleAdmin}))
	got, err := repo.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "I shoot film", got.Bio)
	assert.Equal(t, models.RoleAdmin, got.Role)

	admins, err := repo.ListByRole(ctx, models.RoleAdmin)
	require.NoError(t, err)
	assert.Len(t, admins, 2)

	all, err := repo.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	err = repo.UpdateFields(ctx, 404, map[string]interface{}{"bio": "x"})
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestUserRepository_DeleteCascade(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	cat := testutil.CreateCategory(t, db, "Nature")
	alice := testutil.CreateUser(t, db, "Alice", "alice@example.com", "")
	bob := testutil.CreateUser(t, db, "Bob", "bob@example.com", "")

	alicePhoto := testutil.CreatePhoto(t, db, alice.ID, cat.ID, "Alice's", "1-alice.png")
	bobPhoto := testutil.CreatePhoto(t, db, bob.ID, cat.ID, "Bob's", "2-bob.png")

	// bob comments and likes on alice's photo, alice on bob's
	require.NoError(t, db.Create(&models.Comment{Text: "nice", AuthorID: bob.ID, PhotoID: alicePhoto.ID}).Error)
	require.NoError(t, db.Create(&models.Comment{Text: "thanks", AuthorID: alice.ID, PhotoID: bobPhoto.ID}).Error)
	require.NoError(t, db.Create(&models.Comment{Text: "mine", AuthorID: bob.ID, PhotoID: bobPhoto.ID}).Error)
	require.NoError(t, db.Create(&models.Like{UserID: bob.ID, PhotoID: alicePhoto.ID}).Error)
	require.NoError(t, db.Create(&models.Like{UserID: alice.ID, PhotoID: bobPhoto.ID}).Error)

	out, err := repo.DeleteCascade(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"1-alice.png"}, out.ImagePaths)
	assert.Equal(t, "alice@example.com", out.User.Email)

	var count int64
	db.Model(&models.User{}).Where("id = ?", alice.ID).Count(&count)
	assert.Zero(t, count)
	db.Model(&models.Photo{}).Count(&count)
	assert.EqualValues(t, 1, count)
	db.Model(&models.Comment{}).Count(&count)
	assert.EqualValues(t, 1, count, "only bob's comment on his own photo survives")
	db.Model(&models.Like{}).Count(&count)
	assert.Zero(t, count)

	_, err = repo.DeleteCascade(ctx, alice.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}
