package server

import (
	"errors"
	"os"

	"blogsite/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ServeMedia handles GET /media/*
// Paths outside the media root and missing files are NotFound.
func (s *Server) ServeMedia(c *fiber.Ctx) error {
	rel := c.Params("*")
	full, err := s.media.Resolve(rel)
	if err != nil {
		return s.handleError(c, models.NewNotFoundError("File", rel))
	}

	info, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s.handleError(c, models.NewNotFoundError("File", rel))
		}
		return models.NewInternalError(err)
	}
	if info.IsDir() {
		return s.handleError(c, models.NewNotFoundError("File", rel))
	}

	return c.SendFile(full)
}
