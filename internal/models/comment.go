package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Comment is a short text reply attached to a podcast.
type Comment struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Body        string    `gorm:"size:150;not null" json:"comment"`
	CommenterID string    `gorm:"type:varchar(36);not null;index" json:"commenter_id"`
	Commenter   *User     `gorm:"foreignKey:CommenterID;constraint:OnDelete:CASCADE" json:"commenter,omitempty"`
	PodcastID   string    `gorm:"type:varchar(36);not null;index" json:"podcast_id"`
	Podcast     *Podcast  `gorm:"foreignKey:PodcastID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

func (c *Comment) BeforeCreate(_ *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
