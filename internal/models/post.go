package models

import (
	"path"
	"strings"
	"time"

	"gorm.io/gorm"
)

// PostTitleMaxLen is the maximum number of characters in a post title.
const PostTitleMaxLen = 100

// Post represents a blog entry.
type Post struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Title      string    `gorm:"size:100;not null" json:"title"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	File       string    `json:"file,omitempty"`
	AuthorID   uint      `gorm:"not null;index" json:"author_id"`
	Author     User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author"`
	DatePosted time.Time `gorm:"not null;index" json:"date_posted"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// BeforeCreate defaults the posting date to the creation time.
func (p *Post) BeforeCreate(_ *gorm.DB) error {
	if p.DatePosted.IsZero() {
		p.DatePosted = time.Now().UTC()
	}
	return nil
}

// Extension returns the lower-cased extension of the attached file without the dot.
func (p *Post) Extension() string {
	return strings.TrimPrefix(strings.ToLower(path.Ext(p.File)), ".")
}
