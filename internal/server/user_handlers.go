package server

import (
	"blogsite/internal/models"
	"blogsite/internal/service"
	"blogsite/internal/validation"

	"github.com/gofiber/fiber/v2"
)

const (
	tmplRegister = "users/register.html"
	tmplLogin    = "users/login.html"
	tmplLogout   = "users/logout.html"
	tmplProfile  = "users/profile.html"

	msgAccountCreated = "Your account has been created! You are now able to log in"
	msgAccountUpdated = "Your account has been updated!"
)

type registerForm struct {
	Username  string `json:"username" form:"username"`
	Email     string `json:"email" form:"email"`
	Password1 string `json:"password1" form:"password1"`
	Password2 string `json:"password2" form:"password2"`
}

type loginForm struct {
	Username   string `json:"username" form:"username"`
	Password   string `json:"password" form:"password"`
	RedirectTo string `json:"redirect_to" form:"redirect_to"`
}

type profileForm struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
}

// RegisterForm handles GET /register/
func (s *Server) RegisterForm(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, tmplRegister, fiber.Map{
		"form": fiber.Map{"username": "", "email": ""},
	})
}

// Register handles POST /register/
// @Summary Register
// @Description Create an account. On success redirects to the login page.
// @Tags accounts
// @Accept x-www-form-urlencoded
// @Produce json
// @Param username formData string true "Username"
// @Param email formData string true "Email"
// @Param password1 formData string true "Password"
// @Param password2 formData string true "Password confirmation"
// @Success 302 "Redirect to login"
// @Failure 400 {object} object{errors=object}
// @Failure 429 {object} object{error=string}
// @Router /register/ [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req registerForm
	if err := c.BodyParser(&req); err != nil {
		return s.renderForm(c, tmplRegister, nil, models.NewValidationError("Invalid request body"))
	}

	_, err := s.userService.Register(c.UserContext(), validation.RegistrationForm{
		Username:  req.Username,
		Email:     req.Email,
		Password1: req.Password1,
		Password2: req.Password2,
	})
	if err != nil {
		return s.renderForm(c, tmplRegister, fiber.Map{
			"form": fiber.Map{"username": req.Username, "email": req.Email},
		}, err)
	}

	s.addMessage(c, "success", msgAccountCreated)
	return c.Redirect(s.loginURL(""), fiber.StatusFound)
}

// LoginForm handles GET /login/
func (s *Server) LoginForm(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, tmplLogin, fiber.Map{
		"form":            fiber.Map{"username": ""},
		s.redirectField(): c.Query(s.redirectField()),
	})
}

// Login handles POST /login/
// @Summary Log in
// @Description Starts a session. The session token is set as an HTTP-only cookie and may also be sent as a Bearer token.
// @Tags accounts
// @Accept x-www-form-urlencoded
// @Produce json
// @Param username formData string true "Username"
// @Param password formData string true "Password"
// @Param redirect_to formData string false "Local path to continue to"
// @Success 302 "Redirect to redirect_to or the login redirect URL"
// @Failure 400 {object} object{errors=object}
// @Failure 429 {object} object{error=string}
// @Router /login/ [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req loginForm
	if err := c.BodyParser(&req); err != nil {
		return s.renderForm(c, tmplLogin, nil, models.NewValidationError("Invalid request body"))
	}
	next := req.RedirectTo
	if next == "" {
		next = c.Query(s.redirectField())
	}

	user, err := s.userService.Authenticate(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return s.renderForm(c, tmplLogin, fiber.Map{
			"form":            fiber.Map{"username": req.Username},
			s.redirectField(): next,
		}, err)
	}

	token, claims, err := s.sessions.Issue(user.ID, user.Username)
	if err != nil {
		return models.NewInternalError(err)
	}
	s.setSessionCookie(c, token, claims)

	if !safeRedirect(next) {
		next = s.loginRedirectURL()
	}
	return c.Redirect(next, fiber.StatusFound)
}

// Logout handles GET and POST /logout/
// @Summary Log out
// @Tags accounts
// @Produce json
// @Success 200 {object} object{template=string}
// @Router /logout/ [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	if claims := currentClaims(c); claims != nil {
		if err := s.sessions.Revoke(c.UserContext(), claims); err != nil {
			return models.NewInternalError(err)
		}
		if user := currentUser(c); user != nil {
			s.audit.Info(c.UserContext(), "User logged out", "logout", user.ID)
		}
	}
	s.clearSessionCookie(c)

	c.Locals(localsUser, nil)
	return s.render(c, fiber.StatusOK, tmplLogout, nil)
}

// ProfileForm handles GET /profile/
func (s *Server) ProfileForm(c *fiber.Ctx) error {
	user := currentUser(c)
	return s.render(c, fiber.StatusOK, tmplProfile, profileContext(profileForm{
		Username: user.Username,
		Email:    user.Email,
	}, user))
}

// UpdateProfile handles POST /profile/
// @Summary Update profile
// @Description Updates username, email and optionally the avatar in one step.
// @Tags accounts
// @Accept multipart/form-data
// @Produce json
// @Param username formData string true "Username"
// @Param email formData string true "Email"
// @Param image formData file false "Avatar image"
// @Success 302 "Redirect to the profile"
// @Failure 400 {object} object{errors=object}
// @Router /profile/ [post]
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	user := currentUser(c)

	var req profileForm
	if err := c.BodyParser(&req); err != nil {
		return s.renderForm(c, tmplProfile, nil, models.NewValidationError("Invalid request body"))
	}

	upload, closeUpload, err := formFile(c, "image")
	if err != nil {
		return s.renderForm(c, tmplProfile, profileContext(req, user), err)
	}
	defer closeUpload()

	if _, err := s.userService.UpdateProfile(c.UserContext(), user, service.UpdateProfileInput{
		Username: req.Username,
		Email:    req.Email,
		Image:    upload,
	}); err != nil {
		return s.renderForm(c, tmplProfile, profileContext(req, user), err)
	}

	s.addMessage(c, "success", msgAccountUpdated)
	return c.Redirect("/profile/", fiber.StatusFound)
}

func profileContext(req profileForm, user *models.User) fiber.Map {
	image := models.DefaultProfileImage
	if user != nil {
		image = user.Profile.ImageOrDefault()
	}
	return fiber.Map{
		"u_form": fiber.Map{"username": req.Username, "email": req.Email},
		"p_form": fiber.Map{"image": image},
	}
}
