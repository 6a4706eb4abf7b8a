package main

import (
	"bytes"
	"context"
	"testing"

	"blogsite/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAccounts struct {
	mock.Mock
}

func (m *mockAccounts) SetSuperuser(ctx context.Context, username string, superuser bool) (*models.User, error) {
	args := m.Called(ctx, username, superuser)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *mockAccounts) ListSuperusers(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]models.User)
	return users, args.Error(1)
}

func (m *mockAccounts) CreateSuperuser(ctx context.Context, username, email, password string) (*models.User, error) {
	args := m.Called(ctx, username, email, password)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func noEnv(string) string { return "" }

func TestRun_PromoteAndDemote(t *testing.T) {
	ctx := context.Background()
	users := new(mockAccounts)
	users.On("SetSuperuser", ctx, "alice", true).Return(&models.User{ID: 1, Username: "alice"}, nil).Once()
	users.On("SetSuperuser", ctx, "alice", false).Return(&models.User{ID: 1, Username: "alice"}, nil).Once()

	var out bytes.Buffer
	require.NoError(t, run(ctx, []string{"promote", "alice"}, &out, users, noEnv))
	require.NoError(t, run(ctx, []string{"demote", "alice"}, &out, users, noEnv))

	assert.Contains(t, out.String(), "Promoted alice (ID: 1) to superuser")
	assert.Contains(t, out.String(), "Demoted alice (ID: 1) from superuser")
	users.AssertExpectations(t)
}

func TestRun_PromoteUnknownUser(t *testing.T) {
	ctx := context.Background()
	users := new(mockAccounts)
	users.On("SetSuperuser", ctx, "ghost", true).Return(nil, models.NewNotFoundError("User", "ghost"))

	err := run(ctx, []string{"promote", "ghost"}, &bytes.Buffer{}, users, noEnv)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeNotFound, appErr.Code)
}

func TestRun_ListSuperusers(t *testing.T) {
	ctx := context.Background()
	users := new(mockAccounts)
	users.On("ListSuperusers", ctx).Return([]models.User{
		{ID: 3, Username: "root", Email: "root@blog.local"},
	}, nil).Once()
	users.On("ListSuperusers", ctx).Return([]models.User{}, nil).Once()

	var out bytes.Buffer
	require.NoError(t, run(ctx, []string{"list-superusers"}, &out, users, noEnv))
	assert.Equal(t, "ID: 3 | Username: root | Email: root@blog.local\n", out.String())

	out.Reset()
	require.NoError(t, run(ctx, []string{"list-superusers"}, &out, users, noEnv))
	assert.Equal(t, "No superusers found\n", out.String())
}

func TestRun_CreateSuperuser(t *testing.T) {
	ctx := context.Background()
	users := new(mockAccounts)
	users.On("CreateSuperuser", ctx, "root", "root@blog.local", "s3cret-pass").
		Return(&models.User{ID: 9, Username: "root"}, nil)

	getenv := func(key string) string {
		if key == passwordEnv {
			return "s3cret-pass"
		}
		return ""
	}

	var out bytes.Buffer
	require.NoError(t, run(ctx, []string{"create-superuser", "root", "root@blog.local"}, &out, users, getenv))
	assert.Equal(t, "Superuser root created (ID: 9)\n", out.String())
	users.AssertExpectations(t)
}

func TestRun_CreateSuperuserRequiresPassword(t *testing.T) {
	users := new(mockAccounts)
	err := run(context.Background(), []string{"create-superuser", "root", "root@blog.local"}, &bytes.Buffer{}, users, noEnv)
	assert.ErrorContains(t, err, passwordEnv)
	users.AssertNotCalled(t, "CreateSuperuser", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_CreateSuperuserValidation(t *testing.T) {
	ctx := context.Background()
	users := new(mockAccounts)
	users.On("CreateSuperuser", ctx, "bad name", "x", "pw").
		Return(nil, models.NewFormError(map[string][]string{"username": {"Enter a valid username."}}))

	err := run(ctx, []string{"create-superuser", "bad name", "x"}, &bytes.Buffer{}, users, func(string) string { return "pw" })
	assert.ErrorContains(t, err, "Enter a valid username.")
}

func TestRun_Usage(t *testing.T) {
	users := new(mockAccounts)
	for _, args := range [][]string{
		nil,
		{"promote"},
		{"demote", "a", "b"},
		{"create-superuser", "root"},
		{"frobnicate"},
	} {
		assert.ErrorIs(t, run(context.Background(), args, &bytes.Buffer{}, users, noEnv), errUsage, "%v", args)
	}
}
