package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"wikishelf/internal/auth"
	"wikishelf/internal/cache"
	apperrors "wikishelf/internal/errors"
	"wikishelf/internal/model"
	"wikishelf/internal/repository"
)

// LoginResult carries the issued token and the authenticated user.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *model.User
}

// AuthService handles registration and credential checks.
type AuthService interface {
	Register(ctx context.Context, username, email, password string) (*model.User, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error
}

type authService struct {
	users  repository.UserRepository
	codec  *auth.TokenCodec
	hasher *auth.PasswordHasher
	cache  *cache.Client
	logger *zap.Logger
	now    func() time.Time
}

// NewAuthService creates a new authentication service.
func NewAuthService(users repository.UserRepository, codec *auth.TokenCodec, hasher *auth.PasswordHasher, cache *cache.Client, logger *zap.Logger) AuthService {
	return &authService{
		users:  users,
		codec:  codec,
		hasher: hasher,
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}
}

// Register creates a new user with a hashed password.
func (s *authService) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" {
		return nil, fmt.Errorf("%w: username and email are required", apperrors.ErrInvalidInput)
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	taken, err := s.users.ExistsByUsernameOrEmail(ctx, username, email, uuid.Nil)
	if err != nil {
		return nil, fmt.Errorf("check user existence: %w", err)
	}
	if taken {
		return nil, apperrors.ErrUserAlreadyExists
	}

	hashed, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: hashed,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID.String()))
	return user, nil
}

// Login checks credentials and issues a bearer token. Unknown email and wrong
// password are indistinguishable to the caller.
func (s *authService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Debug("login rejected", zap.String("reason", "unknown email"))
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	ok, err := s.hasher.Compare(ctx, user.PasswordHash, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.logger.Debug("login rejected", zap.String("reason", "password mismatch"), zap.String("user_id", user.ID.String()))
		return nil, apperrors.ErrInvalidCredentials
	}

	token, expiresAt, err := s.codec.Issue(user.ID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}
	user.LastLoginAt = &now
	invalidateUser(ctx, s.cache, user.ID)

	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// ChangePassword replaces the password after checking the current one.
func (s *authService) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrUserNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}

	ok, err := s.hasher.Compare(ctx, user.PasswordHash, oldPassword)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.ErrInvalidCredentials
	}

	hashed, err := s.hasher.Hash(ctx, newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hashed
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	invalidateUser(ctx, s.cache, user.ID)
	return nil
}
