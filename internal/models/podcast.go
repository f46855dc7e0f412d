package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Podcast is an uploaded audio episode owned by a user.
type Podcast struct {
	ID          string `gorm:"type:varchar(36);primaryKey" json:"id"`
	OwnerID     string `gorm:"type:varchar(36);not null;index" json:"owner_id"`
	Owner       *User  `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"owner,omitempty"`
	Title       string `gorm:"size:50;not null" json:"title"`
	Description string `gorm:"size:500;not null" json:"description"`
	AudioFile   string `gorm:"size:100;uniqueIndex;not null" json:"audio_file"`
	// LikesCount is not persisted; computed at query time
	LikesCount int64 `gorm:"->;-:migration" json:"likes_count"`
	// CommentsCount is not persisted; computed at query time
	CommentsCount int64 `gorm:"->;-:migration" json:"comments_count"`
	// Liked indicates whether the requesting user liked this podcast (computed)
	Liked     bool      `gorm:"->;-:migration" json:"liked"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID when the caller did not supply one.
func (p *Podcast) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
