package service

import (
	"context"
	"io"
	"log/slog"

	"blogsite/internal/models"
	"blogsite/internal/observability"
	"blogsite/internal/repository"
	"blogsite/internal/validation"
)

// Upload is a file received with a form.
type Upload struct {
	Filename string
	Content  io.Reader
}

// MediaStore persists uploaded files and returns their media-relative paths.
type MediaStore interface {
	SaveAttachment(filename string, r io.Reader) (string, error)
	SaveAvatar(content []byte, maxPx int) (string, error)
	Remove(rel string) error
}

type PostService struct {
	postRepo repository.PostRepository
	userRepo repository.UserRepository
	media    MediaStore
	audit    *observability.AuditLogger
	perPage  int
}

type CreatePostInput struct {
	Title   string
	Content string
	File    *Upload
}

type UpdatePostInput struct {
	PostID    uint
	Title     string
	Content   string
	File      *Upload
	ClearFile bool
}

func NewPostService(
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	media MediaStore,
	audit *observability.AuditLogger,
	perPage int,
) *PostService {
	if audit == nil {
		audit = observability.NewAuditLogger(nil)
	}
	return &PostService{
		postRepo: postRepo,
		userRepo: userRepo,
		media:    media,
		audit:    audit,
		perPage:  perPage,
	}
}

// Browse records a visit to the home page. Anonymous visitors are allowed.
func (s *PostService) Browse(ctx context.Context, actor *models.User) {
	s.audit.Info(ctx, "Browsing posts", "browsing_posts", actorID(actor))
}

// About records a visit to the about page.
func (s *PostService) About(ctx context.Context, actor *models.User) {
	s.audit.Info(ctx, "Reading about", "about", actorID(actor))
}

// ListPosts returns one page of all posts, newest first.
func (s *PostService) ListPosts(ctx context.Context, actor *models.User, rawPage string) (*models.PostPage, error) {
	s.audit.Info(ctx, "Listing posts", "post_list", actorID(actor))

	count, err := s.postRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	page, err := Paginate(count, s.perPage, rawPage)
	if err != nil {
		return nil, err
	}
	posts, err := s.postRepo.List(ctx, page.PerPage, page.Offset())
	if err != nil {
		return nil, err
	}
	return &models.PostPage{Posts: posts, Page: page}, nil
}

// ListUserPosts returns one page of the posts written by username.
func (s *PostService) ListUserPosts(ctx context.Context, actor *models.User, username, rawPage string) (*models.User, *models.PostPage, error) {
	s.audit.Info(ctx, "Listing posts of user", "post_user_list", actorID(actor), slog.String("username", username))

	author, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, nil, err
	}
	count, err := s.postRepo.CountByAuthor(ctx, author.ID)
	if err != nil {
		return nil, nil, err
	}
	page, err := Paginate(count, s.perPage, rawPage)
	if err != nil {
		return nil, nil, err
	}
	posts, err := s.postRepo.ListByAuthor(ctx, author.ID, page.PerPage, page.Offset())
	if err != nil {
		return nil, nil, err
	}
	return author, &models.PostPage{Posts: posts, Page: page}, nil
}

func (s *PostService) GetPost(ctx context.Context, actor *models.User, id uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.audit.Info(ctx, "Post details", "post_details", actorID(actor), slog.Any("post_id", id))
	return post, nil
}

// CreatePost validates the form and stores a post authored by actor.
func (s *PostService) CreatePost(ctx context.Context, actor *models.User, in CreatePostInput) (*models.Post, error) {
	if actor == nil {
		return nil, models.NewUnauthenticatedError("Authentication required")
	}
	s.audit.Info(ctx, "Creating post", "post_create", actor.ID)

	form := validation.PostForm{Title: in.Title, Content: in.Content}
	if err := form.Validate().Err(); err != nil {
		return nil, err
	}

	post := &models.Post{
		Title:    in.Title,
		Content:  in.Content,
		AuthorID: actor.ID,
	}
	if in.File != nil {
		rel, err := s.media.SaveAttachment(in.File.Filename, in.File.Content)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		post.File = rel
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		s.discard(post.File)
		return nil, err
	}
	post.Author = *actor

	s.audit.Info(ctx, "Post created", "post_create", actor.ID, slog.Any("post_id", post.ID))
	return post, nil
}

// AuthorizeUpdate loads the post for its edit form, denying actors who may not change it.
func (s *PostService) AuthorizeUpdate(ctx context.Context, actor *models.User, id uint) (*models.Post, error) {
	return s.authorize(ctx, actor, id, "Updating post permission denied", "post_update")
}

// AuthorizeDelete loads the post for its delete confirmation, denying actors who may not remove it.
func (s *PostService) AuthorizeDelete(ctx context.Context, actor *models.User, id uint) (*models.Post, error) {
	return s.authorize(ctx, actor, id, "Deleting post permission denied", "post_delete")
}

func (s *PostService) authorize(ctx context.Context, actor *models.User, id uint, deniedMsg, action string) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanModifyPost(actor, post) {
		s.audit.Warn(ctx, deniedMsg, action, actorID(actor), slog.Any("post_id", id))
		return nil, models.NewPermissionDeniedError("You do not have permission to modify this post")
	}
	return post, nil
}

// UpdatePost applies the edit form. The original author is kept even when a superuser edits.
func (s *PostService) UpdatePost(ctx context.Context, actor *models.User, in UpdatePostInput) (*models.Post, error) {
	post, err := s.AuthorizeUpdate(ctx, actor, in.PostID)
	if err != nil {
		return nil, err
	}
	s.audit.Info(ctx, "Updating post", "post_update", actor.ID, slog.Any("post_id", post.ID))

	form := validation.PostForm{Title: in.Title, Content: in.Content}
	if err := form.Validate().Err(); err != nil {
		return nil, err
	}

	post.Title = in.Title
	post.Content = in.Content
	switch {
	case in.File != nil:
		rel, err := s.media.SaveAttachment(in.File.Filename, in.File.Content)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		post.File = rel
	case in.ClearFile:
		post.File = ""
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		if in.File != nil {
			s.discard(post.File)
		}
		return nil, err
	}

	s.audit.Info(ctx, "Post updated", "post_update", actor.ID, slog.Any("post_id", post.ID))
	return post, nil
}

// DeletePost removes the post after the same ownership check as UpdatePost.
func (s *PostService) DeletePost(ctx context.Context, actor *models.User, id uint) error {
	if _, err := s.AuthorizeDelete(ctx, actor, id); err != nil {
		return err
	}
	s.audit.Info(ctx, "Deleting post", "post_delete", actor.ID, slog.Any("post_id", id))

	if err := s.postRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.audit.Info(ctx, "Post deleted", "post_delete", actor.ID, slog.Any("post_id", id))
	return nil
}

// SearchPosts matches query against title, content and author username. An empty query lists everything.
func (s *PostService) SearchPosts(ctx context.Context, actor *models.User, query string) ([]*models.Post, error) {
	s.audit.Info(ctx, "Searching", "searching", actorID(actor), slog.String("query", query))
	return s.postRepo.Search(ctx, query)
}

func (s *PostService) discard(rel string) {
	if rel != "" && s.media != nil {
		_ = s.media.Remove(rel)
	}
}
