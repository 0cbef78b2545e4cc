package models

import "time"

// Like represents a user's like on a photo.
// The combination of UserID and PhotoID must be unique.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_like_user_photo" json:"user_id"`
	PhotoID   uint      `gorm:"not null;uniqueIndex:idx_like_user_photo;index" json:"photo_id"`
	CreatedAt time.Time `json:"created_at"`
}

// LikeResult is the state of a liker set after a toggle.
type LikeResult struct {
	Liked      bool  `json:"liked"`
	LikesCount int64 `json:"likesCount"`
}
