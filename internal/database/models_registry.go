package database

import "podium/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models,
// parents before children.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Podcast{},
		&models.Follow{},
		&models.Like{},
		&models.Comment{},
	}
}
