// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultProfileImage is the stored file name shown until a user uploads a picture.
const DefaultProfileImage = "default.png"

// Column limits enforced by both validation and schema.
const (
	MaxUsernameLength    = 15
	MaxEmailLength       = 320
	MaxNameLength        = 20
	MaxTitleLength       = 50
	MaxDescriptionLength = 500
	MaxCommentLength     = 150
)

// User represents a registered account.
type User struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	FirstName    string    `gorm:"size:20;not null" json:"first_name"`
	LastName     string    `gorm:"size:20;not null" json:"last_name"`
	Username     string    `gorm:"size:15;uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"size:320;uniqueIndex;not null" json:"email"`
	Password     string    `gorm:"not null" json:"-"`
	ProfileImage string    `gorm:"size:100;not null;default:default.png" json:"profile_image"`
	Deactivated  bool      `gorm:"not null;default:false" json:"deactivated"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID when the caller did not supply one.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.ProfileImage == "" {
		u.ProfileImage = DefaultProfileImage
	}
	return nil
}

// FullName joins first and last name for display.
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
