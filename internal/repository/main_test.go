package repository

import (
	"context"
	"testing"
	"time"

	"blogsite/internal/config"
	"blogsite/internal/database"
	"blogsite/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupTestDB returns a migrated, private in-memory SQLite database.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(&config.Config{
		Env:        "test",
		DBDriver:   "sqlite",
		SQLitePath: ":memory:",
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func createUser(t *testing.T, repo UserRepository, username string) *models.User {
	t.Helper()
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "hash",
		IsActive: true,
	}
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

func createPost(t *testing.T, repo PostRepository, author *models.User, title, content string, postedAt time.Time) *models.Post {
	t.Helper()
	post := &models.Post{
		Title:      title,
		Content:    content,
		AuthorID:   author.ID,
		DatePosted: postedAt,
	}
	require.NoError(t, repo.Create(context.Background(), post))
	return post
}
