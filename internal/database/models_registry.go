package database

import "blogsite/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
// Users must precede the tables referencing them.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Profile{},
		&models.Post{},
	}
}
