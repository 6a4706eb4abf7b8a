package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"blogsite/internal/models"
	"blogsite/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func alicePostRepo() *postRepoStub {
	repo := noopPostRepo()
	repo.getByIDFn = func(_ context.Context, id uint) (*models.Post, error) {
		if id != 10 {
			return nil, models.NewNotFoundError("Post", id)
		}
		return &models.Post{ID: 10, Title: "First", Content: "Body", AuthorID: alice.ID, Author: *alice}, nil
	}
	return repo
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	assert.Equal(t, code, appErr.Code)
}

func TestCanModifyPost(t *testing.T) {
	post := &models.Post{AuthorID: alice.ID}
	assert.True(t, CanModifyPost(alice, post))
	assert.False(t, CanModifyPost(bob, post))
	assert.True(t, CanModifyPost(root, post))
	assert.False(t, CanModifyPost(nil, post))
	assert.False(t, CanModifyPost(alice, nil))
}

func TestPostService_CreatePost_UsesActorAsAuthor(t *testing.T) {
	var saved *models.Post
	repo := noopPostRepo()
	repo.createFn = func(_ context.Context, p *models.Post) error {
		saved = p
		p.ID = 99
		return nil
	}
	rec, audit := newAuditRecorder()
	svc := NewPostService(repo, noopUserRepo(), &mediaStub{}, audit, 5)

	post, err := svc.CreatePost(context.Background(), bob, CreatePostInput{
		Title:   "Hello",
		Content: "World",
		File:    &Upload{Filename: "notes.txt", Content: strings.NewReader("x")},
	})
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, bob.ID, saved.AuthorID)
	assert.Equal(t, "bob", post.Author.Username)
	assert.Equal(t, "Files/notes.txt", post.File)
	assert.Equal(t, []string{"Creating post", "Post created"}, rec.messages(t))
}

func TestPostService_CreatePost_Validation(t *testing.T) {
	repo := noopPostRepo()
	repo.createFn = func(_ context.Context, _ *models.Post) error {
		t.Fatal("create must not be called for invalid input")
		return nil
	}
	svc := NewPostService(repo, noopUserRepo(), &mediaStub{}, nil, 5)

	_, err := svc.CreatePost(context.Background(), alice, CreatePostInput{Title: strings.Repeat("t", 101), Content: ""})
	requireCode(t, err, models.CodeValidation)

	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Contains(t, appErr.Fields, "title")
	assert.Contains(t, appErr.Fields, "content")
}

func TestPostService_CreatePost_Anonymous(t *testing.T) {
	svc := NewPostService(noopPostRepo(), noopUserRepo(), &mediaStub{}, nil, 5)
	_, err := svc.CreatePost(context.Background(), nil, CreatePostInput{Title: "a", Content: "b"})
	requireCode(t, err, models.CodeUnauthenticated)
}

func TestPostService_CreatePost_DiscardsFileOnFailure(t *testing.T) {
	repo := noopPostRepo()
	repo.createFn = func(_ context.Context, _ *models.Post) error { return models.NewInternalError(errors.New("boom")) }
	media := &mediaStub{}
	svc := NewPostService(repo, noopUserRepo(), media, nil, 5)

	_, err := svc.CreatePost(context.Background(), alice, CreatePostInput{
		Title:   "a",
		Content: "b",
		File:    &Upload{Filename: "f.pdf", Content: strings.NewReader("x")},
	})
	require.Error(t, err)
	assert.Equal(t, []string{"Files/f.pdf"}, media.removed)
}

func TestPostService_UpdatePost_Authorization(t *testing.T) {
	tests := []struct {
		name  string
		actor *models.User
		code  string
	}{
		{name: "author", actor: alice},
		{name: "superuser", actor: root},
		{name: "other user", actor: bob, code: models.CodePermissionDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := alicePostRepo()
			var updated *models.Post
			repo.updateFn = func(_ context.Context, p *models.Post) error {
				updated = p
				return nil
			}
			rec, audit := newAuditRecorder()
			svc := NewPostService(repo, noopUserRepo(), &mediaStub{}, audit, 5)

			post, err := svc.UpdatePost(context.Background(), tt.actor, UpdatePostInput{PostID: 10, Title: "New", Content: "Text"})
			if tt.code != "" {
				requireCode(t, err, tt.code)
				assert.Nil(t, updated)
				recs := rec.records(t)
				require.Len(t, recs, 1)
				assert.Equal(t, "Updating post permission denied", recs[0]["msg"])
				assert.Equal(t, "WARN", recs[0]["level"])
				assert.Equal(t, "post_update", recs[0]["action"])
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "New", post.Title)
			assert.Equal(t, alice.ID, post.AuthorID, "author is preserved")
			assert.Equal(t, []string{"Updating post", "Post updated"}, rec.messages(t))
		})
	}
}

func TestPostService_UpdatePost_Files(t *testing.T) {
	repo := alicePostRepo()
	repo.getByIDFn = func(_ context.Context, _ uint) (*models.Post, error) {
		return &models.Post{ID: 10, AuthorID: alice.ID, File: "Files/old.txt"}, nil
	}
	svc := NewPostService(repo, noopUserRepo(), &mediaStub{}, nil, 5)
	ctx := context.Background()

	post, err := svc.UpdatePost(ctx, alice, UpdatePostInput{PostID: 10, Title: "t", Content: "c"})
	require.NoError(t, err)
	assert.Equal(t, "Files/old.txt", post.File, "file kept when none uploaded")

	post, err = svc.UpdatePost(ctx, alice, UpdatePostInput{PostID: 10, Title: "t", Content: "c", ClearFile: true})
	require.NoError(t, err)
	assert.Empty(t, post.File)

	post, err = svc.UpdatePost(ctx, alice, UpdatePostInput{
		PostID: 10, Title: "t", Content: "c",
		File: &Upload{Filename: "new.txt", Content: strings.NewReader("n")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Files/new.txt", post.File)
}

func TestPostService_DeletePost(t *testing.T) {
	t.Run("denied for other user", func(t *testing.T) {
		repo := alicePostRepo()
		repo.deleteFn = func(_ context.Context, _ uint) error {
			t.Fatal("delete must not be called")
			return nil
		}
		rec, audit := newAuditRecorder()
		svc := NewPostService(repo, noopUserRepo(), &mediaStub{}, audit, 5)

		err := svc.DeletePost(context.Background(), bob, 10)
		requireCode(t, err, models.CodePermissionDenied)
		assert.Equal(t, []string{"Deleting post permission denied"}, rec.messages(t))
	})

	t.Run("anonymous denied", func(t *testing.T) {
		svc := NewPostService(alicePostRepo(), noopUserRepo(), &mediaStub{}, nil, 5)
		err := svc.DeletePost(context.Background(), nil, 10)
		requireCode(t, err, models.CodePermissionDenied)
	})

	t.Run("superuser deletes", func(t *testing.T) {
		repo := alicePostRepo()
		var deleted uint
		repo.deleteFn = func(_ context.Context, id uint) error {
			deleted = id
			return nil
		}
		rec, audit := newAuditRecorder()
		svc := NewPostService(repo, noopUserRepo(), &mediaStub{}, audit, 5)

		require.NoError(t, svc.DeletePost(context.Background(), root, 10))
		assert.Equal(t, uint(10), deleted)
		assert.Equal(t, []string{"Deleting post", "Post deleted"}, rec.messages(t))
	})

	t.Run("missing post", func(t *testing.T) {
		svc := NewPostService(alicePostRepo(), noopUserRepo(), &mediaStub{}, nil, 5)
		err := svc.DeletePost(context.Background(), alice, 404)
		requireCode(t, err, models.CodeNotFound)
	})
}

func TestPostService_ListPosts(t *testing.T) {
	repo := noopPostRepo()
	repo.countFn = func(_ context.Context) (int64, error) { return 12, nil }
	var gotLimit, gotOffset int
	repo.listFn = func(_ context.Context, limit, offset int) ([]*models.Post, error) {
		gotLimit, gotOffset = limit, offset
		return []*models.Post{{ID: 2}, {ID: 1}}, nil
	}
	rec, audit := newAuditRecorder()
	svc := NewPostService(repo, noopUserRepo(), &mediaStub{}, audit, 5)

	page, err := svc.ListPosts(context.Background(), nil, "last")
	require.NoError(t, err)
	assert.Equal(t, 3, page.Page.Number)
	assert.Equal(t, 5, gotLimit)
	assert.Equal(t, 10, gotOffset)
	assert.Len(t, page.Posts, 2)

	recs := rec.records(t)
	require.Len(t, recs, 1)
	assert.Equal(t, "post_list", recs[0]["action"])
	assert.Nil(t, recs[0]["user"])

	_, err = svc.ListPosts(context.Background(), nil, "4")
	requireCode(t, err, models.CodeNotFound)
}

func TestPostService_ListUserPosts(t *testing.T) {
	users := noopUserRepo()
	users.getByUsernameFn = func(_ context.Context, username string) (*models.User, error) {
		if username == "alice" {
			return alice, nil
		}
		return nil, models.NewNotFoundError("User", username)
	}
	repo := noopPostRepo()
	repo.countByAuthorFn = func(_ context.Context, id uint) (int64, error) {
		assert.Equal(t, alice.ID, id)
		return 1, nil
	}
	repo.listByAuthorFn = func(_ context.Context, id uint, _, _ int) ([]*models.Post, error) {
		return []*models.Post{{ID: 1, AuthorID: id}}, nil
	}
	svc := NewPostService(repo, users, &mediaStub{}, nil, 5)

	author, page, err := svc.ListUserPosts(context.Background(), bob, "alice", "")
	require.NoError(t, err)
	assert.Equal(t, "alice", author.Username)
	assert.Len(t, page.Posts, 1)

	_, _, err = svc.ListUserPosts(context.Background(), bob, "ghost", "")
	requireCode(t, err, models.CodeNotFound)
}

func TestPostService_SearchPosts(t *testing.T) {
	repo := noopPostRepo()
	var gotQuery string
	repo.searchFn = func(_ context.Context, q string) ([]*models.Post, error) {
		gotQuery = q
		return []*models.Post{{ID: 1}}, nil
	}
	rec, audit := newAuditRecorder()
	svc := NewPostService(repo, noopUserRepo(), &mediaStub{}, audit, 5)

	posts, err := svc.SearchPosts(context.Background(), alice, "go")
	require.NoError(t, err)
	assert.Len(t, posts, 1)
	assert.Equal(t, "go", gotQuery)

	recs := rec.records(t)
	require.Len(t, recs, 1)
	assert.Equal(t, "searching", recs[0]["action"])
	assert.Equal(t, "go", recs[0]["query"])
}

func TestPostService_GetPost(t *testing.T) {
	svc := NewPostService(alicePostRepo(), noopUserRepo(), &mediaStub{}, nil, 5)

	post, err := svc.GetPost(context.Background(), nil, 10)
	require.NoError(t, err)
	assert.Equal(t, "First", post.Title)

	_, err = svc.GetPost(context.Background(), nil, 11)
	requireCode(t, err, models.CodeNotFound)
}

var _ repository.PostRepository = (*postRepoStub)(nil)
var _ repository.UserRepository = (*userRepoStub)(nil)
