package repository

import (
	"context"
	"errors"
	"time"

	"blogsite/internal/cache"
	"blogsite/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const msgUsernameTaken = "A user with that username already exists."

// AccountUpdate carries the fields of a profile form submission.
// An empty Image keeps the current avatar.
type AccountUpdate struct {
	Username string
	Email    string
	Image    string
}

// UserRepository defines the interface for user and profile data operations
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	UsernameTaken(ctx context.Context, username string, excludeID uint) (bool, error)
	EmailTaken(ctx context.Context, email string, excludeID uint) (bool, error)
	Create(ctx context.Context, user *models.User) error
	UpdateAccount(ctx context.Context, userID uint, in AccountUpdate) (*models.User, error)
	SetSuperuser(ctx context.Context, username string, superuser bool) (*models.User, error)
	ListSuperusers(ctx context.Context) ([]models.User, error)
	TouchLastLogin(ctx context.Context, userID uint, at time.Time) error
}

// userRepository implements UserRepository
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// GetByID returns the user with its profile. The result is cached and carries no password hash.
func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := cache.Aside(ctx, cache.UserKey(id), &user, cache.UserTTL, func() error {
		return r.db.WithContext(ctx).Preload("Profile").First(&user, id).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// GetByUsername returns the user including its password hash.
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Preload("Profile").
		Where("username = ?", username).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", username)
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) UsernameTaken(ctx context.Context, username string, excludeID uint) (bool, error) {
	return r.taken(ctx, "LOWER(username) = LOWER(?)", username, excludeID)
}

func (r *userRepository) EmailTaken(ctx context.Context, email string, excludeID uint) (bool, error) {
	return r.taken(ctx, "LOWER(email) = LOWER(?)", email, excludeID)
}

func (r *userRepository) taken(ctx context.Context, cond, value string, excludeID uint) (bool, error) {
	var count int64
	db := r.db.WithContext(ctx).Model(&models.User{}).Where(cond, value)
	if excludeID != 0 {
		db = db.Where("id <> ?", excludeID)
	}
	if err := db.Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// Create inserts the user and its profile in one transaction.
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(user).Error; err != nil {
			return err
		}
		profile := &models.Profile{UserID: user.ID, Image: models.DefaultProfileImage}
		if user.Profile != nil && user.Profile.Image != "" {
			profile.Image = user.Profile.Image
		}
		if err := tx.Create(profile).Error; err != nil {
			return err
		}
		user.Profile = profile
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			// Lost a race with a concurrent registration of the same name.
			return models.NewFormError(map[string][]string{"username": {msgUsernameTaken}})
		}
		return models.NewInternalError(err)
	}
	return nil
}

// UpdateAccount saves the user fields and the profile image atomically.
func (r *userRepository) UpdateAccount(ctx context.Context, userID uint, in AccountUpdate) (*models.User, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.User{}).
			Where("id = ?", userID).
			Updates(map[string]any{"username": in.Username, "email": in.Email})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		if in.Image == "" {
			return nil
		}
		profile := models.Profile{UserID: userID, Image: in.Image}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"image"}),
		}).Create(&profile).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", userID)
		}
		return nil, models.NewInternalError(err)
	}

	cache.InvalidateUser(ctx, userID)
	return r.GetByID(ctx, userID)
}

func (r *userRepository) SetSuperuser(ctx context.Context, username string, superuser bool) (*models.User, error) {
	user, err := r.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", user.ID).
		Update("is_superuser", superuser).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	user.IsSuperuser = superuser
	cache.InvalidateUser(ctx, user.ID)
	return user, nil
}

func (r *userRepository) ListSuperusers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).
		Where("is_superuser = ?", true).
		Order("id ASC").
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) TouchLastLogin(ctx context.Context, userID uint, at time.Time) error {
	if err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("last_login", at).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateUser(ctx, userID)
	return nil
}
