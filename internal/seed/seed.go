package seed

import (
	"context"
	"fmt"
	"log/slog"

	"blogsite/internal/auth"
	"blogsite/internal/models"

	"gorm.io/gorm"
)

// DefaultPassword is the password shared by all demo users.
const DefaultPassword = "demo-password-42"

// Options configuration for the demo seeder
type Options struct {
	NumUsers     int
	PostsPerUser int
	MaxDays      int
	Password     string
	ShouldClean  bool
	DryRun       bool
	// Seed makes the generated data reproducible. Zero picks a random seed.
	Seed int64
}

// Result summarizes a seeding run.
type Result struct {
	Users []*models.User
	Posts int
}

// Demo populates the database with fake users and posts.
func Demo(ctx context.Context, db *gorm.DB, logger *slog.Logger, opts Options) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.NumUsers < 0 || opts.PostsPerUser < 0 {
		return nil, fmt.Errorf("user and post counts must not be negative")
	}
	password := opts.Password
	if password == "" {
		password = DefaultPassword
	}

	logger.Info("starting database seeding",
		slog.Int("users", opts.NumUsers),
		slog.Int("posts_per_user", opts.PostsPerUser),
		slog.Bool("dry_run", opts.DryRun))

	if opts.ShouldClean && !opts.DryRun {
		if err := Clean(ctx, db); err != nil {
			return nil, fmt.Errorf("failed to clear data: %w", err)
		}
		logger.Info("existing blog data cleared")
	}

	// One hash for every demo user keeps large runs fast.
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash demo password: %w", err)
	}

	f := NewFactory(db, opts.Seed, opts.MaxDays, opts.DryRun)
	result := &Result{Users: make([]*models.User, 0, opts.NumUsers)}
	for i := 0; i < opts.NumUsers; i++ {
		user, err := f.CreateUser(ctx, hash)
		if err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		result.Users = append(result.Users, user)

		for j := 0; j < opts.PostsPerUser; j++ {
			if _, err := f.CreatePost(ctx, user); err != nil {
				return nil, fmt.Errorf("failed to create post for %s: %w", user.Username, err)
			}
			result.Posts++
		}
	}

	logger.Info("database seeding completed",
		slog.Int("users", len(result.Users)),
		slog.Int("posts", result.Posts))
	return result, nil
}

// Clean removes every post, profile and user.
func Clean(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		for _, model := range []any{&models.Post{}, &models.Profile{}, &models.User{}} {
			if err := all.Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
