package server

import (
	"fmt"

	"blogsite/internal/models"
	"blogsite/internal/service"

	"github.com/gofiber/fiber/v2"
)

const (
	tmplBase       = "blog/base.html"
	tmplHome       = "blog/home.html"
	tmplUserPosts  = "blog/user_posts.html"
	tmplPostDetail = "blog/post_detail.html"
	tmplPostForm   = "blog/post_form.html"
	tmplPostDelete = "blog/post_confirm_delete.html"
	tmplAbout      = "blog/about.html"
)

// postForm is the submitted post form. Author fields are not accepted:
// the author is always the session user.
type postForm struct {
	Title     string `json:"title" form:"title"`
	Content   string `json:"content" form:"content"`
	FileClear string `json:"file-clear" form:"file-clear"`
}

func postDetailURL(id uint) string {
	return fmt.Sprintf("/post/%d/", id)
}

func pageContext(p *models.PostPage) fiber.Map {
	return fiber.Map{
		"posts":        p.Posts,
		"page_obj":     p.Page,
		"is_paginated": p.Page.NumPages > 1,
	}
}

// Home handles GET /
// @Summary Home page
// @Tags blog
// @Produce json
// @Success 200 {object} object{template=string}
// @Router / [get]
func (s *Server) Home(c *fiber.Ctx) error {
	s.postService.Browse(c.UserContext(), currentUser(c))
	return s.render(c, fiber.StatusOK, tmplBase, nil)
}

// About handles GET /about/
func (s *Server) About(c *fiber.Ctx) error {
	s.postService.About(c.UserContext(), currentUser(c))
	return s.render(c, fiber.StatusOK, tmplAbout, fiber.Map{"title": "About"})
}

// ListPosts handles GET /posts/?page=N
// @Summary List posts
// @Description All posts, newest first. page may be a number or "last".
// @Tags blog
// @Produce json
// @Param page query string false "Page number or last"
// @Success 200 {object} object{posts=[]models.Post,page_obj=models.Page}
// @Failure 302 "Redirect to login"
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/ [get]
func (s *Server) ListPosts(c *fiber.Ctx) error {
	page, err := s.postService.ListPosts(c.UserContext(), currentUser(c), c.Query("page"))
	if err != nil {
		return s.handleError(c, err)
	}
	return s.render(c, fiber.StatusOK, tmplHome, pageContext(page))
}

// ListUserPosts handles GET /user/:username
// @Summary List posts of a user
// @Tags blog
// @Produce json
// @Param username path string true "Username"
// @Param page query string false "Page number or last"
// @Success 200 {object} object{posts=[]models.Post,page_obj=models.Page}
// @Failure 404 {object} models.ErrorResponse
// @Router /user/{username} [get]
func (s *Server) ListUserPosts(c *fiber.Ctx) error {
	author, page, err := s.postService.ListUserPosts(c.UserContext(), currentUser(c), c.Params("username"), c.Query("page"))
	if err != nil {
		return s.handleError(c, err)
	}
	data := pageContext(page)
	data["author"] = author.Username
	return s.render(c, fiber.StatusOK, tmplUserPosts, data)
}

// GetPost handles GET /post/:id/
// @Summary Post detail
// @Tags blog
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} object{post=models.Post}
// @Failure 404 {object} models.ErrorResponse
// @Router /post/{id}/ [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return s.handleError(c, err)
	}
	post, err := s.postService.GetPost(c.UserContext(), currentUser(c), id)
	if err != nil {
		return s.handleError(c, err)
	}
	return s.render(c, fiber.StatusOK, tmplPostDetail, fiber.Map{"post": post})
}

// NewPostForm handles GET /post/new/
func (s *Server) NewPostForm(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, tmplPostForm, fiber.Map{
		"form": fiber.Map{"title": "", "content": ""},
	})
}

// CreatePost handles POST /post/new/
// @Summary Create post
// @Tags blog
// @Accept multipart/form-data
// @Produce json
// @Param title formData string true "Title"
// @Param content formData string true "Content"
// @Param file formData file false "Attachment"
// @Success 302 "Redirect to the new post"
// @Failure 400 {object} object{errors=object}
// @Router /post/new/ [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req postForm
	if err := c.BodyParser(&req); err != nil {
		return s.renderForm(c, tmplPostForm, nil, models.NewValidationError("Invalid request body"))
	}

	upload, closeUpload, err := formFile(c, "file")
	if err != nil {
		return s.renderForm(c, tmplPostForm, postFormContext(req, nil), err)
	}
	defer closeUpload()

	post, err := s.postService.CreatePost(c.UserContext(), currentUser(c), service.CreatePostInput{
		Title:   req.Title,
		Content: req.Content,
		File:    upload,
	})
	if err != nil {
		return s.renderForm(c, tmplPostForm, postFormContext(req, nil), err)
	}
	return c.Redirect(postDetailURL(post.ID), fiber.StatusFound)
}

// UpdatePostForm handles GET /post/:id/update/
func (s *Server) UpdatePostForm(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return s.handleError(c, err)
	}
	post, err := s.postService.AuthorizeUpdate(c.UserContext(), currentUser(c), id)
	if err != nil {
		return s.handleError(c, err)
	}
	return s.render(c, fiber.StatusOK, tmplPostForm, postFormContext(postForm{
		Title:   post.Title,
		Content: post.Content,
	}, post))
}

// UpdatePost handles POST /post/:id/update/
// @Summary Update post
// @Description Only the author or a superuser may update a post.
// @Tags blog
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Post ID"
// @Param title formData string true "Title"
// @Param content formData string true "Content"
// @Param file formData file false "Replacement attachment"
// @Param file-clear formData bool false "Remove the attachment"
// @Success 302 "Redirect to the post"
// @Failure 400 {object} object{errors=object}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /post/{id}/update/ [post]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return s.handleError(c, err)
	}

	var req postForm
	if err := c.BodyParser(&req); err != nil {
		return s.renderForm(c, tmplPostForm, nil, models.NewValidationError("Invalid request body"))
	}

	upload, closeUpload, err := formFile(c, "file")
	if err != nil {
		return s.renderForm(c, tmplPostForm, postFormContext(req, nil), err)
	}
	defer closeUpload()

	post, err := s.postService.UpdatePost(c.UserContext(), currentUser(c), service.UpdatePostInput{
		PostID:    id,
		Title:     req.Title,
		Content:   req.Content,
		File:      upload,
		ClearFile: checked(req.FileClear),
	})
	if err != nil {
		return s.renderForm(c, tmplPostForm, postFormContext(req, nil), err)
	}
	return c.Redirect(postDetailURL(post.ID), fiber.StatusFound)
}

// DeletePostConfirm handles GET /post/:id/delete/
func (s *Server) DeletePostConfirm(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return s.handleError(c, err)
	}
	post, err := s.postService.AuthorizeDelete(c.UserContext(), currentUser(c), id)
	if err != nil {
		return s.handleError(c, err)
	}
	return s.render(c, fiber.StatusOK, tmplPostDelete, fiber.Map{"post": post})
}

// DeletePost handles POST and DELETE /post/:id/delete/
// @Summary Delete post
// @Description Only the author or a superuser may delete a post.
// @Tags blog
// @Param id path int true "Post ID"
// @Success 302 "Redirect to home"
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /post/{id}/delete/ [post]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return s.handleError(c, err)
	}
	if err := s.postService.DeletePost(c.UserContext(), currentUser(c), id); err != nil {
		return s.handleError(c, err)
	}
	return c.Redirect("/", fiber.StatusFound)
}

// SearchPosts handles GET /search/?q=...
// @Summary Search posts
// @Description Case-insensitive match on title, content or author username. An empty query lists all posts.
// @Tags blog
// @Produce json
// @Param q query string false "Search text"
// @Success 200 {object} object{posts=[]models.Post,query=string}
// @Router /search/ [get]
func (s *Server) SearchPosts(c *fiber.Ctx) error {
	q := c.Query("q")
	posts, err := s.postService.SearchPosts(c.UserContext(), currentUser(c), q)
	if err != nil {
		return s.handleError(c, err)
	}
	return s.render(c, fiber.StatusOK, tmplHome, fiber.Map{
		"posts": posts,
		"query": q,
	})
}

func postFormContext(req postForm, post *models.Post) fiber.Map {
	data := fiber.Map{
		"form": fiber.Map{
			"title":   req.Title,
			"content": req.Content,
		},
	}
	if post != nil {
		data["post"] = post
	}
	return data
}
