package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"blogsite/internal/auth"
	"blogsite/internal/cache"
	"blogsite/internal/config"
	"blogsite/internal/database"
	"blogsite/internal/models"
	"blogsite/internal/observability"
	"blogsite/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testPassword = "gentle-harbor-91"

type testEnv struct {
	server *Server
	app    *fiber.App
	db     *gorm.DB
	redis  *miniredis.Miniredis
	logs   *bytes.Buffer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{
		Port:              "0",
		Env:               "test",
		DBDriver:          "sqlite",
		SQLitePath:        ":memory:",
		SessionSecret:     "test-session-secret-0123456789abcdef",
		SessionCookieName: "sessionid",
		SessionTTLHours:   1,
		LoginURL:          "/login/",
		LoginRedirectURL:  "/",
		RedirectFieldName: "redirect_to",
		PostsPerPage:      2,
		MediaRoot:         t.TempDir(),
		MaxUploadMB:       5,
		AvatarMaxPx:       300,
	}

	var logs bytes.Buffer
	logger := observability.NewLoggerTo(&logs, "production")

	db, err := database.Connect(cfg, logger)
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	s, err := NewServerWithDeps(cfg, db, rdb, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })

	return &testEnv{server: s, app: s.App(), db: db, redis: mr, logs: &logs}
}

// withCache routes repository lookups through the package Redis cache, as in production.
func (e *testEnv) withCache(t *testing.T) {
	t.Helper()
	cache.SetClient(redis.NewClient(&redis.Options{Addr: e.redis.Addr()}))
	t.Cleanup(func() { cache.SetClient(nil) })
}

func (e *testEnv) createUser(t *testing.T, username string, superuser bool) *models.User {
	t.Helper()
	hash, err := auth.HashPassword(testPassword)
	require.NoError(t, err)
	user := &models.User{
		Username:    username,
		Email:       username + "@example.com",
		Password:    hash,
		IsActive:    true,
		IsSuperuser: superuser,
	}
	require.NoError(t, repository.NewUserRepository(e.db).Create(context.Background(), user))
	return user
}

func (e *testEnv) createPost(t *testing.T, author *models.User, title, content string, postedAt time.Time) *models.Post {
	t.Helper()
	post := &models.Post{Title: title, Content: content, AuthorID: author.ID, DatePosted: postedAt}
	require.NoError(t, repository.NewPostRepository(e.db).Create(context.Background(), post))
	return post
}

// token issues a session token for user, sent as a Bearer header by the request helpers.
func (e *testEnv) token(t *testing.T, user *models.User) string {
	t.Helper()
	token, _, err := e.server.sessions.Issue(user.ID, user.Username)
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, req *http.Request, token string) *http.Response {
	t.Helper()
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func (e *testEnv) get(t *testing.T, target, token string) *http.Response {
	t.Helper()
	return e.do(t, httptest.NewRequest(http.MethodGet, target, nil), token)
}

func (e *testEnv) postForm(t *testing.T, target string, values url.Values, token string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	return e.do(t, req, token)
}

type upload struct {
	field    string
	filename string
	content  []byte
}

func (e *testEnv) postMultipart(t *testing.T, target string, values map[string]string, file *upload, token string) *http.Response {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range values {
		require.NoError(t, w.WriteField(k, v))
	}
	if file != nil {
		fw, err := w.CreateFormFile(file.field, file.filename)
		require.NoError(t, err)
		_, err = fw.Write(file.content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	return e.do(t, req, token)
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc), "body: %s", raw)
	return doc
}

func postTitles(t *testing.T, doc map[string]any) []string {
	t.Helper()
	items, ok := doc["posts"].([]any)
	require.True(t, ok, "posts missing from %v", doc)
	titles := make([]string, 0, len(items))
	for _, item := range items {
		titles = append(titles, item.(map[string]any)["title"].(string))
	}
	return titles
}

func cookieValue(resp *http.Response, name string) string {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}
