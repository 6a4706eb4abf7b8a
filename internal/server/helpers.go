package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"strings"

	"blogsite/internal/models"
	"blogsite/internal/service"

	"github.com/gofiber/fiber/v2"
)

const messagesCookie = "messages"

// Message is a one-shot notice shown on the next rendered page.
type Message struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// render writes a page document: the template name, its context, the acting
// user and any pending messages.
func (s *Server) render(c *fiber.Ctx, status int, template string, data fiber.Map) error {
	doc := fiber.Map{}
	for k, v := range data {
		doc[k] = v
	}
	doc["template"] = template
	doc["user"] = currentUser(c)
	doc["messages"] = s.popMessages(c)
	return c.Status(status).JSON(doc)
}

// renderForm re-renders a form page with its submitted values and errors.
func (s *Server) renderForm(c *fiber.Ctx, template string, data fiber.Map, err error) error {
	var appErr *models.AppError
	if !errors.As(err, &appErr) || appErr.Code != models.CodeValidation {
		return s.handleError(c, err)
	}
	if data == nil {
		data = fiber.Map{}
	}
	errs := appErr.Fields
	if errs == nil {
		errs = map[string][]string{models.NonFieldErrors: {appErr.Message}}
	}
	data["errors"] = errs
	return s.render(c, fiber.StatusBadRequest, template, data)
}

// handleError maps an application error to its response.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		return err
	}
	switch appErr.Code {
	case models.CodeUnauthenticated:
		return c.Redirect(s.loginURL(c.OriginalURL()), fiber.StatusFound)
	case models.CodeInternal:
		return err
	default:
		return models.RespondWithError(c, appErr.Status(), appErr)
	}
}

// parseID extracts a route parameter as a positive uint. Anything else is NotFound.
func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		return 0, models.NewNotFoundError("Post", c.Params(param))
	}
	return uint(id), nil
}

// addMessage queues a message for the next rendered page.
func (s *Server) addMessage(c *fiber.Ctx, level, text string) {
	msgs := decodeMessages(c.Cookies(messagesCookie))
	msgs = append(msgs, Message{Level: level, Text: text})
	raw, err := json.Marshal(msgs)
	if err != nil {
		return
	}
	c.Cookie(&fiber.Cookie{
		Name:     messagesCookie,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// popMessages returns and clears the pending messages.
func (s *Server) popMessages(c *fiber.Ctx) []Message {
	raw := c.Cookies(messagesCookie)
	if raw == "" {
		return []Message{}
	}
	c.Cookie(&fiber.Cookie{
		Name:     messagesCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return decodeMessages(raw)
}

func decodeMessages(raw string) []Message {
	msgs := []Message{}
	if raw == "" {
		return msgs
	}
	data, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return msgs
	}
	if err := json.Unmarshal(data, &msgs); err != nil {
		return []Message{}
	}
	return msgs
}

// safeRedirect reports whether target is a path on this site.
func safeRedirect(target string) bool {
	if target == "" || !strings.HasPrefix(target, "/") {
		return false
	}
	if strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return false
	}
	return !strings.ContainsAny(target, "\r\n")
}

// formFile returns the uploaded file for field, or nil when none was sent.
// The caller must call the returned close function.
func formFile(c *fiber.Ctx, field string) (*service.Upload, func(), error) {
	noop := func() {}
	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		return nil, noop, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, noop, models.NewValidationError("Invalid multipart form")
	}
	headers := form.File[field]
	if len(headers) == 0 || headers[0].Filename == "" {
		return nil, noop, nil
	}
	return openUpload(headers[0])
}

func openUpload(fh *multipart.FileHeader) (*service.Upload, func(), error) {
	f, err := fh.Open()
	if err != nil {
		return nil, func() {}, models.NewInternalError(err)
	}
	var r io.Reader = f
	return &service.Upload{Filename: fh.Filename, Content: r}, func() { _ = f.Close() }, nil
}

// checked reports whether a checkbox value was submitted as ticked.
func checked(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}
