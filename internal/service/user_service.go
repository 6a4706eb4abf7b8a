package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"blogsite/internal/auth"
	"blogsite/internal/models"
	"blogsite/internal/observability"
	"blogsite/internal/repository"
	"blogsite/internal/validation"
)

const (
	msgUsernameTaken = "A user with that username already exists."
	msgEmailTaken    = "A user with that email already exists."
	msgInvalidImage  = "Upload a valid image. The file you uploaded was either not an image or a corrupted image."
)

type UserService struct {
	userRepo    repository.UserRepository
	media       MediaStore
	audit       *observability.AuditLogger
	avatarMaxPx int
	now         func() time.Time
}

type UpdateProfileInput struct {
	Username string
	Email    string
	Image    *Upload
}

func NewUserService(userRepo repository.UserRepository, media MediaStore, audit *observability.AuditLogger, avatarMaxPx int) *UserService {
	if audit == nil {
		audit = observability.NewAuditLogger(nil)
	}
	return &UserService{
		userRepo:    userRepo,
		media:       media,
		audit:       audit,
		avatarMaxPx: avatarMaxPx,
		now:         time.Now,
	}
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// Register creates an active account with its default profile.
func (s *UserService) Register(ctx context.Context, form validation.RegistrationForm) (*models.User, error) {
	errs := form.Validate()
	if err := s.checkUnique(ctx, errs, form.Username, form.Email, 0); err != nil {
		return nil, err
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	s.audit.Info(ctx, "Creating user", "create_user", 0, slog.String("email", form.Email))

	hashed, err := auth.HashPassword(form.Password1)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	user := &models.User{
		Username: form.Username,
		Email:    form.Email,
		Password: hashed,
		IsActive: true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.audit.Info(ctx, "User created", "create_user", user.ID, slog.String("email", user.Email))
	return user, nil
}

// CreateSuperuser creates an active superuser account, bypassing the password strength rules.
func (s *UserService) CreateSuperuser(ctx context.Context, username, email, password string) (*models.User, error) {
	errs := validation.AccountForm{Username: username, Email: email}.Validate()
	if password == "" {
		errs.Add("password", "This field is required.")
	}
	if err := s.checkUnique(ctx, errs, username, email, 0); err != nil {
		return nil, err
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	user := &models.User{
		Username:    username,
		Email:       email,
		Password:    hashed,
		IsActive:    true,
		IsSuperuser: true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	s.audit.Info(ctx, "Superuser created", "create_superuser", user.ID, slog.String("username", username))
	return user, nil
}

// Authenticate checks credentials and stamps the login time.
// Unknown, inactive and wrong-password logins fail with the same form error.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	badCredentials := func() error {
		errs := validation.Errors{}
		errs.AddNonField("Please enter a correct username and password. Note that both fields may be case-sensitive.")
		return errs.Err()
	}

	if username == "" || password == "" {
		errs := validation.Errors{}
		if username == "" {
			errs.Add("username", "This field is required.")
		}
		if password == "" {
			errs.Add("password", "This field is required.")
		}
		return nil, errs.Err()
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeNotFound {
			return nil, badCredentials()
		}
		return nil, err
	}
	if !user.IsActive || !auth.CheckPassword(user.Password, password) {
		s.audit.Warn(ctx, "Login failed", "login", 0, slog.String("username", username))
		return nil, badCredentials()
	}

	now := s.now().UTC()
	if err := s.userRepo.TouchLastLogin(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.LastLogin = &now

	s.audit.Info(ctx, "User logged in", "login", user.ID)
	return user, nil
}

// UpdateProfile validates the account and profile forms together and saves both atomically.
func (s *UserService) UpdateProfile(ctx context.Context, actor *models.User, in UpdateProfileInput) (*models.User, error) {
	if actor == nil {
		return nil, models.NewUnauthenticatedError("Authentication required")
	}
	s.audit.Info(ctx, "Editing user", "edit_user", actor.ID)

	errs := validation.AccountForm{Username: in.Username, Email: in.Email}.Validate()
	if err := s.checkUnique(ctx, errs, in.Username, in.Email, actor.ID); err != nil {
		return nil, err
	}

	var imageData []byte
	if in.Image != nil {
		data, err := io.ReadAll(in.Image.Content)
		if err != nil || len(data) == 0 {
			errs.Add("image", msgInvalidImage)
		}
		imageData = data
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	var image string
	if imageData != nil {
		rel, err := s.media.SaveAvatar(imageData, s.avatarMaxPx)
		if err != nil {
			errs.Add("image", msgInvalidImage)
			return nil, errs.Err()
		}
		image = rel
	}

	user, err := s.userRepo.UpdateAccount(ctx, actor.ID, repository.AccountUpdate{
		Username: in.Username,
		Email:    in.Email,
		Image:    image,
	})
	if err != nil {
		if image != "" {
			_ = s.media.Remove(image)
		}
		return nil, err
	}

	s.audit.Info(ctx, "User updated", "edit_user", actor.ID)
	return user, nil
}

// SetSuperuser grants or revokes superuser status by username.
func (s *UserService) SetSuperuser(ctx context.Context, username string, superuser bool) (*models.User, error) {
	return s.userRepo.SetSuperuser(ctx, username, superuser)
}

func (s *UserService) ListSuperusers(ctx context.Context) ([]models.User, error) {
	return s.userRepo.ListSuperusers(ctx)
}

// checkUnique adds uniqueness errors to errs. Only lookup failures are returned.
func (s *UserService) checkUnique(ctx context.Context, errs validation.Errors, username, email string, excludeID uint) error {
	if username != "" && len(errs["username"]) == 0 {
		taken, err := s.userRepo.UsernameTaken(ctx, username, excludeID)
		if err != nil {
			return err
		}
		if taken {
			errs.Add("username", msgUsernameTaken)
		}
	}
	if email != "" && len(errs["email"]) == 0 {
		taken, err := s.userRepo.EmailTaken(ctx, email, excludeID)
		if err != nil {
			return err
		}
		if taken {
			errs.Add("email", msgEmailTaken)
		}
	}
	return nil
}
