// Package seed provides helpers to create demo data for the blog database.
// These helpers are intended for development and testing only.
package seed

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"blogsite/internal/models"
	"blogsite/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Factory builds blog entities and persists them through the repositories.
type Factory struct {
	users   repository.UserRepository
	posts   repository.PostRepository
	faker   *gofakeit.Faker
	maxDays int
	dryRun  bool
	// synthetic ID counter when running in DryRun mode
	nextID uint
}

// NewFactory creates a Factory bound to db. A zero seed draws a random one.
func NewFactory(db *gorm.DB, seed int64, maxDays int, dryRun bool) *Factory {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if maxDays <= 0 {
		maxDays = 90
	}
	return &Factory{
		users:   repository.NewUserRepository(db),
		posts:   repository.NewPostRepository(db),
		faker:   gofakeit.New(seed),
		maxDays: maxDays,
		dryRun:  dryRun,
		nextID:  1000,
	}
}

// BuildUser constructs a sample active user without persisting it.
// passwordHash is stored as-is.
func (f *Factory) BuildUser(passwordHash string, overrides ...func(*models.User)) *models.User {
	user := &models.User{
		Username: fmt.Sprintf("%s%d", f.faker.Username(), f.faker.Number(100, 999)),
		Email:    f.faker.Email(),
		Password: passwordHash,
		IsActive: true,
	}
	for _, override := range overrides {
		override(user)
	}
	return user
}

// CreateUser builds and persists a sample user together with its profile.
func (f *Factory) CreateUser(ctx context.Context, passwordHash string, overrides ...func(*models.User)) (*models.User, error) {
	user := f.BuildUser(passwordHash, overrides...)
	if f.dryRun {
		f.nextID++
		user.ID = f.nextID
		return user, nil
	}
	if err := f.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPost constructs a sample post by author with a posting date spread
// over the last maxDays days. It is not persisted.
func (f *Factory) BuildPost(author *models.User, overrides ...func(*models.Post)) *models.Post {
	back := time.Duration(f.faker.Number(0, f.maxDays*24*60-1)) * time.Minute
	post := &models.Post{
		Title:      truncate(f.faker.Sentence(f.faker.Number(3, 8)), models.PostTitleMaxLen),
		Content:    f.faker.Paragraph(f.faker.Number(1, 3), 4, 12, "\n\n"),
		AuthorID:   author.ID,
		DatePosted: time.Now().UTC().Add(-back).Truncate(time.Second),
	}
	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePost builds and persists a sample post by author.
func (f *Factory) CreatePost(ctx context.Context, author *models.User, overrides ...func(*models.Post)) (*models.Post, error) {
	post := f.BuildPost(author, overrides...)
	if f.dryRun {
		f.nextID++
		post.ID = f.nextID
		return post, nil
	}
	if err := f.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
