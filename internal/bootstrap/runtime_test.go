package bootstrap

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"blogsite/internal/auth"
	"blogsite/internal/cache"
	"blogsite/internal/config"
	"blogsite/internal/models"
	"blogsite/internal/observability"
	"blogsite/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, env string) *config.Config {
	t.Helper()
	return &config.Config{
		Env:             env,
		DBDriver:        "sqlite",
		SQLitePath:      ":memory:",
		RedisURL:        miniredis.RunT(t).Addr(),
		MediaRoot:       t.TempDir(),
		DevRootUsername: "root",
		DevRootEmail:    "Root@Blog.Local",
		DevRootPassword: "gentle-harbor-91",
	}
}

func initRuntime(t *testing.T, cfg *config.Config, opts Options) (*Runtime, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	opts.SkipTracing = true
	rt, err := InitRuntime(cfg, observability.NewLoggerTo(&logs, "production"), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close(context.Background()) })
	return rt, &logs
}

func TestInitRuntime_ConnectsStores(t *testing.T) {
	rt, _ := initRuntime(t, testConfig(t, "test"), Options{})

	require.NotNil(t, rt.DB)
	require.NotNil(t, rt.Redis)
	assert.Same(t, rt.Redis, cache.GetClient())
	assert.NoError(t, rt.Redis.Ping(context.Background()).Err())

	var users int64
	require.NoError(t, rt.DB.Model(&models.User{}).Count(&users).Error)
	assert.Zero(t, users, "root is only bootstrapped in development")
}

func TestInitRuntime_WithoutRedis(t *testing.T) {
	cfg := testConfig(t, "test")
	cfg.RedisURL = "127.0.0.1:1"

	rt, logs := initRuntime(t, cfg, Options{})
	assert.Nil(t, rt.Redis)
	assert.Nil(t, cache.GetClient())
	assert.Contains(t, logs.String(), "continuing without cache")
}

func TestInitRuntime_RequiresConfig(t *testing.T) {
	_, err := InitRuntime(nil, nil, Options{})
	assert.Error(t, err)
}

func TestEnsureDevRootAdmin_CreatesAndPromotes(t *testing.T) {
	cfg := testConfig(t, "development")
	cfg.DevBootstrapRoot = true

	rt, logs := initRuntime(t, cfg, Options{})
	users := repository.NewUserRepository(rt.DB)

	root, err := users.GetByUsername(context.Background(), "root")
	require.NoError(t, err)
	assert.True(t, root.IsSuperuser)
	assert.True(t, root.IsActive)
	assert.Equal(t, "root@blog.local", root.Email)
	assert.True(t, auth.CheckPassword(root.Password, "gentle-harbor-91"))
	assert.Contains(t, logs.String(), "development root admin bootstrap ensured")

	// A demoted root is promoted again on the next start.
	_, err = users.SetSuperuser(context.Background(), "root", false)
	require.NoError(t, err)
	require.NoError(t, ensureDevRootAdmin(context.Background(), cfg, rt.Users(), rt.Logger))

	root, err = users.GetByUsername(context.Background(), "root")
	require.NoError(t, err)
	assert.True(t, root.IsSuperuser)

	var n int64
	require.NoError(t, rt.DB.Model(&models.User{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestEnsureDevRootAdmin_RequiresPassword(t *testing.T) {
	cfg := testConfig(t, "development")
	cfg.DevBootstrapRoot = true
	cfg.DevRootPassword = ""

	_, err := InitRuntime(cfg, observability.NewLoggerTo(&bytes.Buffer{}, "production"), Options{SkipTracing: true})
	assert.ErrorContains(t, err, "DEV_ROOT_PASSWORD")
	cache.SetClient(nil)
}

func TestInitRuntime_AppliesFixtures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixtures.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
users:
  - username: alice
    password: gentle-harbor-91
posts:
  - title: Hello World
    author: alice
    content: first
`), 0o600))

	rt, _ := initRuntime(t, testConfig(t, "test"), Options{FixturesPath: path})

	var posts []models.Post
	require.NoError(t, rt.DB.Preload("Author").Find(&posts).Error)
	require.Len(t, posts, 1)
	assert.Equal(t, "alice", posts[0].Author.Username)
}
