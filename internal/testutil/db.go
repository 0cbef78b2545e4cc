package testutil

import (
	"testing"

	"photoshare/internal/database"
	"photoshare/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens a private in-memory sqlite database with the full schema applied.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	cfg := database.GormConfig()
	cfg.Logger = logger.Discard
	db, err := gorm.Open(sqlite.Open("file::memory:"), cfg)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// CreateUser inserts a user with a placeholder password hash.
func CreateUser(t testing.TB, db *gorm.DB, name, email, role string) *models.User {
	t.Helper()
	if role == "" {
		role = models.RoleUser
	}
	u := &models.User{Name: name, Email: email, Password: "$2a$10$placeholderplaceholderplaceholderplaceholderpl", Role: role}
	require.NoError(t, db.Create(u).Error)
	return u
}

// CreateCategory inserts a category.
func CreateCategory(t testing.TB, db *gorm.DB, name string) *models.Category {
	t.Helper()
	c := &models.Category{Name: name}
	require.NoError(t, db.Create(c).Error)
	return c
}

// CreatePhoto inserts a photo owned by uploaderID.
func CreatePhoto(t testing.TB, db *gorm.DB, uploaderID, categoryID uint, title, imagePath string) *models.Photo {
	t.Helper()
	p := &models.Photo{
		Title:      title,
		CategoryID: categoryID,
		Tags:       []string{},
		ImagePath:  imagePath,
		UploaderID: uploaderID,
	}
	require.NoError(t, db.Omit("Uploader", "Category", "Comments").Create(p).Error)
	return p
}
