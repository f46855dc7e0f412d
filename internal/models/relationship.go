package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Follow is a directed edge from follower to followee.
// The (FollowerID, FolloweeID) pair is unique.
type Follow struct {
	ID         string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	FollowerID string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_follow_pair" json:"follower_id"`
	FolloweeID string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_follow_pair;index" json:"followee_id"`
	Follower   *User     `gorm:"foreignKey:FollowerID;constraint:OnDelete:CASCADE" json:"-"`
	Followee   *User     `gorm:"foreignKey:FolloweeID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

func (f *Follow) BeforeCreate(_ *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}

// Like records a user's like on a podcast.
// The (LikerID, PodcastID) pair is unique.
type Like struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	LikerID   string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_like_pair" json:"liker_id"`
	PodcastID string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_like_pair;index" json:"podcast_id"`
	Liker     *User     `gorm:"foreignKey:LikerID;constraint:OnDelete:CASCADE" json:"-"`
	Podcast   *Podcast  `gorm:"foreignKey:PodcastID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

func (l *Like) BeforeCreate(_ *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}
