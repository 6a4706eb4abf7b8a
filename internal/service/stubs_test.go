package service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"blogsite/internal/models"
	"blogsite/internal/observability"
	"blogsite/internal/repository"

	"github.com/stretchr/testify/require"
)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn        func(context.Context, *models.Post) error
	getByIDFn       func(context.Context, uint) (*models.Post, error)
	listFn          func(context.Context, int, int) ([]*models.Post, error)
	countFn         func(context.Context) (int64, error)
	listByAuthorFn  func(context.Context, uint, int, int) ([]*models.Post, error)
	countByAuthorFn func(context.Context, uint) (int64, error)
	searchFn        func(context.Context, string) ([]*models.Post, error)
	updateFn        func(context.Context, *models.Post) error
	deleteFn        func(context.Context, uint) error
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) List(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	return s.listFn(ctx, limit, offset)
}
func (s *postRepoStub) Count(ctx context.Context) (int64, error) {
	return s.countFn(ctx)
}
func (s *postRepoStub) ListByAuthor(ctx context.Context, authorID uint, limit, offset int) ([]*models.Post, error) {
	return s.listByAuthorFn(ctx, authorID, limit, offset)
}
func (s *postRepoStub) CountByAuthor(ctx context.Context, authorID uint) (int64, error) {
	return s.countByAuthorFn(ctx, authorID)
}
func (s *postRepoStub) Search(ctx context.Context, query string) ([]*models.Post, error) {
	return s.searchFn(ctx, query)
}
func (s *postRepoStub) Update(ctx context.Context, post *models.Post) error {
	return s.updateFn(ctx, post)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn:        func(_ context.Context, _ *models.Post) error { return nil },
		getByIDFn:       func(_ context.Context, id uint) (*models.Post, error) { return nil, models.NewNotFoundError("Post", id) },
		listFn:          func(_ context.Context, _, _ int) ([]*models.Post, error) { return nil, nil },
		countFn:         func(_ context.Context) (int64, error) { return 0, nil },
		listByAuthorFn:  func(_ context.Context, _ uint, _, _ int) ([]*models.Post, error) { return nil, nil },
		countByAuthorFn: func(_ context.Context, _ uint) (int64, error) { return 0, nil },
		searchFn:        func(_ context.Context, _ string) ([]*models.Post, error) { return nil, nil },
		updateFn:        func(_ context.Context, _ *models.Post) error { return nil },
		deleteFn:        func(_ context.Context, _ uint) error { return nil },
	}
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn        func(context.Context, uint) (*models.User, error)
	getByUsernameFn  func(context.Context, string) (*models.User, error)
	usernameTakenFn  func(context.Context, string, uint) (bool, error)
	emailTakenFn     func(context.Context, string, uint) (bool, error)
	createFn         func(context.Context, *models.User) error
	updateAccountFn  func(context.Context, uint, repository.AccountUpdate) (*models.User, error)
	setSuperuserFn   func(context.Context, string, bool) (*models.User, error)
	listSuperusersFn func(context.Context) ([]models.User, error)
	touchLastLoginFn func(context.Context, uint, time.Time) error
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) UsernameTaken(ctx context.Context, username string, excludeID uint) (bool, error) {
	return s.usernameTakenFn(ctx, username, excludeID)
}
func (s *userRepoStub) EmailTaken(ctx context.Context, email string, excludeID uint) (bool, error) {
	return s.emailTakenFn(ctx, email, excludeID)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) UpdateAccount(ctx context.Context, userID uint, in repository.AccountUpdate) (*models.User, error) {
	return s.updateAccountFn(ctx, userID, in)
}
func (s *userRepoStub) SetSuperuser(ctx context.Context, username string, superuser bool) (*models.User, error) {
	return s.setSuperuserFn(ctx, username, superuser)
}
func (s *userRepoStub) ListSuperusers(ctx context.Context) ([]models.User, error) {
	return s.listSuperusersFn(ctx)
}
func (s *userRepoStub) TouchLastLogin(ctx context.Context, userID uint, at time.Time) error {
	return s.touchLastLoginFn(ctx, userID, at)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) { return nil, models.NewNotFoundError("User", id) },
		getByUsernameFn: func(_ context.Context, username string) (*models.User, error) {
			return nil, models.NewNotFoundError("User", username)
		},
		usernameTakenFn: func(_ context.Context, _ string, _ uint) (bool, error) { return false, nil },
		emailTakenFn:    func(_ context.Context, _ string, _ uint) (bool, error) { return false, nil },
		createFn:        func(_ context.Context, _ *models.User) error { return nil },
		updateAccountFn: func(_ context.Context, id uint, in repository.AccountUpdate) (*models.User, error) {
			return &models.User{ID: id, Username: in.Username, Email: in.Email}, nil
		},
		setSuperuserFn:   func(_ context.Context, _ string, _ bool) (*models.User, error) { return &models.User{}, nil },
		listSuperusersFn: func(_ context.Context) ([]models.User, error) { return nil, nil },
		touchLastLoginFn: func(_ context.Context, _ uint, _ time.Time) error { return nil },
	}
}

// mediaStub is a stub for MediaStore that records removals.
type mediaStub struct {
	saveAttachmentFn func(string, io.Reader) (string, error)
	saveAvatarFn     func([]byte, int) (string, error)
	removed          []string
}

func (m *mediaStub) SaveAttachment(filename string, r io.Reader) (string, error) {
	if m.saveAttachmentFn == nil {
		return "Files/" + filename, nil
	}
	return m.saveAttachmentFn(filename, r)
}
func (m *mediaStub) SaveAvatar(content []byte, maxPx int) (string, error) {
	if m.saveAvatarFn == nil {
		return "profile_pics/avatar.webp", nil
	}
	return m.saveAvatarFn(content, maxPx)
}
func (m *mediaStub) Remove(rel string) error {
	m.removed = append(m.removed, rel)
	return nil
}

// auditRecorder captures audit records as decoded JSON lines.
type auditRecorder struct {
	buf bytes.Buffer
}

func newAuditRecorder() (*auditRecorder, *observability.AuditLogger) {
	r := &auditRecorder{}
	return r, observability.NewAuditLogger(slog.New(slog.NewJSONHandler(&r.buf, nil)))
}

func (r *auditRecorder) records(t *testing.T) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(r.buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		out = append(out, rec)
	}
	return out
}

func (r *auditRecorder) messages(t *testing.T) []string {
	t.Helper()
	var msgs []string
	for _, rec := range r.records(t) {
		msgs = append(msgs, rec["msg"].(string))
	}
	return msgs
}

var (
	alice = &models.User{ID: 1, Username: "alice", IsActive: true}
	bob   = &models.User{ID: 2, Username: "bob", IsActive: true}
	root  = &models.User{ID: 3, Username: "root", IsActive: true, IsSuperuser: true}
)
