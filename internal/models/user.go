// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// DefaultProfileImage is the avatar assigned to every new profile.
const DefaultProfileImage = "default.jpg"

// User represents an account that can author posts.
type User struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Username    string     `gorm:"size:150;uniqueIndex;not null" json:"username"`
	Email       string     `gorm:"size:254;not null" json:"email"`
	Password    string     `gorm:"not null" json:"-"`
	IsActive    bool       `gorm:"not null" json:"is_active"`
	IsSuperuser bool       `gorm:"not null" json:"is_superuser"`
	DateJoined  time.Time  `json:"date_joined"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
	Profile     *Profile   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"profile,omitempty"`
}

// BeforeCreate stamps the join date when the caller left it unset.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.DateJoined.IsZero() {
		u.DateJoined = time.Now().UTC()
	}
	return nil
}

// Profile holds per-user presentation data. It lives and dies with its User.
type Profile struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	UserID uint   `gorm:"uniqueIndex;not null" json:"user_id"`
	Image  string `gorm:"not null" json:"image"`
}

// ImageOrDefault returns the stored avatar path, falling back to the default image.
func (p *Profile) ImageOrDefault() string {
	if p == nil || p.Image == "" {
		return DefaultProfileImage
	}
	return p.Image
}
