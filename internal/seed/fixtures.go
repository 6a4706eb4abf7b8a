package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"blogsite/internal/auth"
	"blogsite/internal/models"
	"blogsite/internal/repository"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// Fixtures is a hand-written data set loaded from YAML.
type Fixtures struct {
	Users []UserFixture `yaml:"users"`
	Posts []PostFixture `yaml:"posts"`
}

// UserFixture describes an account. Password is plain text and hashed on load.
type UserFixture struct {
	Username  string `yaml:"username"`
	Email     string `yaml:"email"`
	Password  string `yaml:"password"`
	Superuser bool   `yaml:"superuser"`
	Image     string `yaml:"image"`
}

// PostFixture describes a post by the user named in Author.
// DatePosted is RFC 3339; empty means now.
type PostFixture struct {
	Title      string `yaml:"title"`
	Content    string `yaml:"content"`
	Author     string `yaml:"author"`
	File       string `yaml:"file"`
	DatePosted string `yaml:"date_posted"`
}

// ApplyResult counts the rows a fixture run inserted.
type ApplyResult struct {
	UsersCreated int
	PostsCreated int
}

// LoadFixtures reads and parses a fixture file.
func LoadFixtures(path string) (*Fixtures, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures %s: %w", path, err)
	}
	fx, err := ParseFixtures(raw)
	if err != nil {
		return nil, fmt.Errorf("parse fixtures %s: %w", path, err)
	}
	return fx, nil
}

// ParseFixtures decodes YAML fixtures and checks required fields.
func ParseFixtures(raw []byte) (*Fixtures, error) {
	var fx Fixtures
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		return nil, err
	}
	for i, u := range fx.Users {
		if strings.TrimSpace(u.Username) == "" || u.Password == "" {
			return nil, fmt.Errorf("users[%d]: username and password are required", i)
		}
	}
	for i, p := range fx.Posts {
		if strings.TrimSpace(p.Title) == "" || strings.TrimSpace(p.Author) == "" {
			return nil, fmt.Errorf("posts[%d]: title and author are required", i)
		}
		if len([]rune(p.Title)) > models.PostTitleMaxLen {
			return nil, fmt.Errorf("posts[%d]: title longer than %d characters", i, models.PostTitleMaxLen)
		}
		if p.DatePosted != "" {
			if _, err := time.Parse(time.RFC3339, p.DatePosted); err != nil {
				return nil, fmt.Errorf("posts[%d]: date_posted: %w", i, err)
			}
		}
	}
	return &fx, nil
}

// ApplyFixtures inserts fixtures that are not present yet. Users match by
// username, posts by title and author, so reapplying a file is a no-op.
func ApplyFixtures(ctx context.Context, db *gorm.DB, fx *Fixtures) (*ApplyResult, error) {
	users := repository.NewUserRepository(db)
	posts := repository.NewPostRepository(db)
	result := &ApplyResult{}
	byName := map[string]*models.User{}

	for _, u := range fx.Users {
		existing, err := users.GetByUsername(ctx, u.Username)
		if err == nil {
			byName[u.Username] = existing
			continue
		}
		if !isNotFound(err) {
			return nil, err
		}

		hash, err := auth.HashPassword(u.Password)
		if err != nil {
			return nil, err
		}
		email := u.Email
		if email == "" {
			email = u.Username + "@example.com"
		}
		user := &models.User{
			Username:    u.Username,
			Email:       email,
			Password:    hash,
			IsActive:    true,
			IsSuperuser: u.Superuser,
		}
		if u.Image != "" {
			user.Profile = &models.Profile{Image: u.Image}
		}
		if err := users.Create(ctx, user); err != nil {
			return nil, err
		}
		byName[u.Username] = user
		result.UsersCreated++
	}

	for i, p := range fx.Posts {
		author, ok := byName[p.Author]
		if !ok {
			found, err := users.GetByUsername(ctx, p.Author)
			if err != nil {
				return nil, fmt.Errorf("posts[%d]: author %q: %w", i, p.Author, err)
			}
			author = found
			byName[p.Author] = found
		}

		var count int64
		if err := db.WithContext(ctx).Model(&models.Post{}).
			Where("title = ? AND author_id = ?", p.Title, author.ID).
			Count(&count).Error; err != nil {
			return nil, models.NewInternalError(err)
		}
		if count > 0 {
			continue
		}

		post := &models.Post{
			Title:    p.Title,
			Content:  p.Content,
			File:     p.File,
			AuthorID: author.ID,
		}
		if p.DatePosted != "" {
			// Validated by ParseFixtures.
			post.DatePosted, _ = time.Parse(time.RFC3339, p.DatePosted)
		}
		if err := posts.Create(ctx, post); err != nil {
			return nil, err
		}
		result.PostsCreated++
	}

	return result, nil
}

func isNotFound(err error) bool {
	var appErr *models.AppError
	return errors.As(err, &appErr) && appErr.Code == models.CodeNotFound
}
