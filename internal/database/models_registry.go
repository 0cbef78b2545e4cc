package database

import "photoshare/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Category{},
		&models.Photo{},
		&models.Comment{},
		&models.Like{},
		&models.PasswordResetRequest{},
	}
}
