package models

import "time"

// PasswordResetRequest stores a hashed, expiring reset token for an email address.
type PasswordResetRequest struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"size:254;not null;index" json:"email"`
	TokenHash string    `gorm:"not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the request is past its expiry at now.
func (r *PasswordResetRequest) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
