package models

// UncategorizedName is the fallback category for photos without a valid category.
const UncategorizedName = "Uncategorized"

// UncategorizedDescription describes the fallback category.
const UncategorizedDescription = "Default category for uncategorized photos"

// Category groups photos in the gallery.
type Category struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
}
