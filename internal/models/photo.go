package models

import (
	"strings"
	"time"
)

// Photo is an uploaded image with its metadata.
type Photo struct {
	ID          uint     `gorm:"primaryKey" json:"id"`
	Title       string   `gorm:"size:200;not null" json:"title"`
	Description string   `gorm:"type:text" json:"description"`
	CategoryID  uint     `gorm:"not null;index" json:"category_id"`
	Category    Category `gorm:"foreignKey:CategoryID" json:"category"`
	Tags        []string `gorm:"serializer:json" json:"tags"`
	// ImagePath is a blob store filename or an absolute URL.
	ImagePath  string    `gorm:"not null" json:"image_path"`
	UploaderID uint      `gorm:"not null;index" json:"uploader_id"`
	Uploader   User      `gorm:"foreignKey:UploaderID" json:"uploader"`
	Comments   []Comment `gorm:"foreignKey:PhotoID" json:"comments,omitempty"`
	// LikesCount is not persisted; computed at query time
	LikesCount int64 `gorm:"->;-:migration" json:"likes_count"`
	// Liked indicates whether the requesting user liked this photo (computed)
	Liked     bool      `gorm:"->;-:migration" json:"liked"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsExternalImage reports whether the image reference is an absolute URL rather than a blob key.
func (p *Photo) IsExternalImage() bool {
	return IsExternalURL(p.ImagePath)
}

// IsExternalURL reports whether ref is an absolute http(s) URL.
func IsExternalURL(ref string) bool {
	lower := strings.ToLower(strings.TrimSpace(ref))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// ParseTags splits a comma separated tag list, trimming blanks and duplicates.
func ParseTags(raw string) []string {
	tags := []string{}
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		tag := strings.TrimSpace(part)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}
