package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"wikishelf/internal/auth"
	"wikishelf/internal/cache"
	apperrors "wikishelf/internal/errors"
	"wikishelf/internal/model"
	"wikishelf/internal/repository"
)

const userCacheTTL = 5 * time.Minute

// ProfileUpdate holds the optional fields of a profile change. Nil fields
// keep their current value.
type ProfileUpdate struct {
	Username *string
	Email    *string
	Password *string
}

// UserService exposes profile operations.
type UserService interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*model.UserSummary, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	UpdateProfile(ctx context.Context, callerID, id uuid.UUID, update ProfileUpdate) (*model.User, error)
	DeleteAccount(ctx context.Context, callerID, id uuid.UUID) error
}

type userService struct {
	repo   repository.UserRepository
	hasher *auth.PasswordHasher
	cache  *cache.Client
}

// NewUserService builds a UserService with repository and cache.
func NewUserService(repo repository.UserRepository, hasher *auth.PasswordHasher, cache *cache.Client) UserService {
	return &userService{repo: repo, hasher: hasher, cache: cache}
}

func userCacheKey(id uuid.UUID) string {
	return "user:" + id.String()
}

func invalidateUser(ctx context.Context, c *cache.Client, id uuid.UUID) {
	_ = c.Delete(ctx, userCacheKey(id))
}

func (s *userService) GetProfile(ctx context.Context, id uuid.UUID) (*model.UserSummary, error) {
	var cached model.UserSummary
	if s.cache.GetJSON(ctx, userCacheKey(id), &cached) {
		return &cached, nil
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	summary := user.Summary()
	s.cache.SetJSON(ctx, userCacheKey(id), summary, userCacheTTL)
	return &summary, nil
}

// Exists reports whether id names a live user. It always reads the store so a
// deleted account stops authenticating at once, whatever the profile cache holds.
func (s *userService) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	ok, err := s.repo.ExistsByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("check user: %w", err)
	}
	return ok, nil
}

// UpdateProfile changes the caller's own profile.
func (s *userService) UpdateProfile(ctx context.Context, callerID, id uuid.UUID, update ProfileUpdate) (*model.User, error) {
	if callerID != id {
		return nil, fmt.Errorf("%w: cannot modify another user", apperrors.ErrForbidden)
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	username, email := user.Username, user.Email
	if update.Username != nil {
		username = strings.TrimSpace(*update.Username)
	}
	if update.Email != nil {
		email = strings.TrimSpace(*update.Email)
	}
	if username == "" || email == "" {
		return nil, fmt.Errorf("%w: username and email cannot be empty", apperrors.ErrInvalidInput)
	}

	if username != user.Username || email != user.Email {
		taken, err := s.repo.ExistsByUsernameOrEmail(ctx, username, email, id)
		if err != nil {
			return nil, fmt.Errorf("check user existence: %w", err)
		}
		if taken {
			return nil, apperrors.ErrUserAlreadyExists
		}
	}
	user.Username, user.Email = username, email

	if update.Password != nil {
		if err := ValidatePassword(*update.Password); err != nil {
			return nil, err
		}
		hashed, err := s.hasher.Hash(ctx, *update.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hashed
	}

	if err := s.repo.Update(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	invalidateUser(ctx, s.cache, id)
	return user, nil
}

// DeleteAccount removes the caller's account with all of its articles.
func (s *userService) DeleteAccount(ctx context.Context, callerID, id uuid.UUID) error {
	if callerID != id {
		return fmt.Errorf("%w: cannot delete another user", apperrors.ErrForbidden)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	invalidateUser(ctx, s.cache, id)
	return nil
}
