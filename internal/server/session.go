package server

import (
	"net/url"
	"strings"
	"time"

	"blogsite/internal/auth"
	"blogsite/internal/models"
	"blogsite/internal/observability"

	"github.com/gofiber/fiber/v2"
)

const (
	localsUser   = "user"
	localsUserID = "userID"
	localsClaims = "claims"
)

// SessionLoader identifies the acting user from the session cookie or a
// Bearer token. Requests without a valid session continue anonymously.
func (s *Server) SessionLoader() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := s.sessionToken(c)
		if token == "" {
			return c.Next()
		}

		claims, err := s.sessions.Parse(c.UserContext(), token)
		if err != nil {
			s.clearSessionCookie(c)
			return c.Next()
		}
		userID, err := claims.UserID()
		if err != nil {
			s.clearSessionCookie(c)
			return c.Next()
		}

		user, err := s.userService.GetUserByID(c.UserContext(), userID)
		if err != nil || !user.IsActive {
			s.clearSessionCookie(c)
			return c.Next()
		}

		c.Locals(localsUser, user)
		c.Locals(localsUserID, user.ID)
		c.Locals(localsClaims, claims)
		c.SetUserContext(observability.WithUserID(c.UserContext(), user.ID))
		return c.Next()
	}
}

// LoginRequired redirects anonymous requests to the login page, carrying the
// original path and query in the redirect field.
func (s *Server) LoginRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if currentUser(c) != nil {
			return c.Next()
		}
		return c.Redirect(s.loginURL(c.OriginalURL()), fiber.StatusFound)
	}
}

// SuperuserRequired rejects non-superusers with 403.
// Must be placed after LoginRequired.
func (s *Server) SuperuserRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := currentUser(c)
		if user == nil || !user.IsSuperuser {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewPermissionDeniedError("Superuser access required"))
		}
		return c.Next()
	}
}

func (s *Server) loginURL(next string) string {
	login := s.config.LoginURL
	if login == "" {
		login = "/login/"
	}
	if next == "" {
		return login
	}
	sep := "?"
	if strings.Contains(login, "?") {
		sep = "&"
	}
	return login + sep + s.redirectField() + "=" + url.QueryEscape(next)
}

func (s *Server) redirectField() string {
	if s.config.RedirectFieldName == "" {
		return "redirect_to"
	}
	return s.config.RedirectFieldName
}

func (s *Server) loginRedirectURL() string {
	if s.config.LoginRedirectURL == "" {
		return "/"
	}
	return s.config.LoginRedirectURL
}

func (s *Server) cookieName() string {
	if s.config.SessionCookieName == "" {
		return "sessionid"
	}
	return s.config.SessionCookieName
}

func (s *Server) sessionToken(c *fiber.Ctx) string {
	if header := c.Get(fiber.HeaderAuthorization); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return strings.TrimSpace(parts[1])
		}
	}
	return c.Cookies(s.cookieName())
}

func (s *Server) setSessionCookie(c *fiber.Ctx, token string, claims *auth.Claims) {
	expires := time.Now().Add(s.sessions.TTL())
	if claims != nil && claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}
	c.Cookie(&fiber.Cookie{
		Name:     s.cookieName(),
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(c *fiber.Ctx) {
	if c.Cookies(s.cookieName()) == "" {
		return
	}
	c.Cookie(&fiber.Cookie{
		Name:     s.cookieName(),
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// currentUser returns the session user, or nil for anonymous requests.
func currentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(localsUser).(*models.User)
	return user
}

func currentClaims(c *fiber.Ctx) *auth.Claims {
	claims, _ := c.Locals(localsClaims).(*auth.Claims)
	return claims
}
