package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	apperrors "wikishelf/internal/errors"
	"wikishelf/internal/model"
)

func ptr(s string) *string { return &s }

func TestUserService_GetProfile(t *testing.T) {
	id := uuid.New()

	t.Run("found", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockRepo.On("FindByID", mock.Anything, id).Return(&model.User{ID: id, Username: "alice", Email: "alice@example.com", PasswordHash: "x"}, nil)

		profile, err := NewUserService(mockRepo, newTestHasher(), nil).GetProfile(context.Background(), id)

		require.NoError(t, err)
		assert.Equal(t, model.UserSummary{ID: id, Username: "alice", Email: "alice@example.com"}, *profile)
	})

	t.Run("missing", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockRepo.On("FindByID", mock.Anything, id).Return(nil, gorm.ErrRecordNotFound)

		_, err := NewUserService(mockRepo, newTestHasher(), nil).GetProfile(context.Background(), id)

		assert.Equal(t, apperrors.ErrUserNotFound, err)
	})
}

func TestUserService_Exists(t *testing.T) {
	live, gone, broken := uuid.New(), uuid.New(), uuid.New()
	mockRepo := new(MockUserRepository)
	mockRepo.On("ExistsByID", mock.Anything, live).Return(true, nil)
	mockRepo.On("ExistsByID", mock.Anything, gone).Return(false, nil)
	mockRepo.On("ExistsByID", mock.Anything, broken).Return(false, errors.New("db down"))
	service := NewUserService(mockRepo, newTestHasher(), nil)

	ok, err := service.Exists(context.Background(), live)
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = service.Exists(context.Background(), gone)
	assert.NoError(t, err)
	assert.False(t, ok)

	_, err = service.Exists(context.Background(), broken)
	assert.Error(t, err)
	assert.True(t, apperrors.IsInternal(err))
}

func TestUserService_Exists_IgnoresProfileLookup(t *testing.T) {
	// the profile path still sees the user, the store no longer has the row
	id := uuid.New()
	mockRepo := new(MockUserRepository)
	mockRepo.On("FindByID", mock.Anything, id).Return(&model.User{ID: id, Username: "alice"}, nil)
	mockRepo.On("ExistsByID", mock.Anything, id).Return(false, nil)
	service := NewUserService(mockRepo, newTestHasher(), nil)

	_, err := service.GetProfile(context.Background(), id)
	require.NoError(t, err)

	ok, err := service.Exists(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, ok)
	mockRepo.AssertNumberOfCalls(t, "FindByID", 1)
}

func TestUserService_UpdateProfile(t *testing.T) {
	id := uuid.New()
	current := func() *model.User {
		return &model.User{ID: id, Username: "alice", Email: "alice@example.com", PasswordHash: "old"}
	}

	tests := []struct {
		name          string
		callerID      uuid.UUID
		update        ProfileUpdate
		setupMock     func(*MockUserRepository)
		expectedError error
		check         func(*testing.T, *model.User)
	}{
		{
			name:     "change username only",
			callerID: id,
			update:   ProfileUpdate{Username: ptr("alicia")},
			setupMock: func(m *MockUserRepository) {
				m.On("FindByID", mock.Anything, id).Return(current(), nil)
				m.On("ExistsByUsernameOrEmail", mock.Anything, "alicia", "alice@example.com", id).Return(false, nil)
				m.On("Update", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)
			},
			check: func(t *testing.T, u *model.User) {
				assert.Equal(t, "alicia", u.Username)
				assert.Equal(t, "alice@example.com", u.Email)
				assert.Equal(t, "old", u.PasswordHash)
			},
		},
		{
			name:     "change password rehashes",
			callerID: id,
			update:   ProfileUpdate{Password: ptr("Secret1!")},
			setupMock: func(m *MockUserRepository) {
				m.On("FindByID", mock.Anything, id).Return(current(), nil)
				m.On("Update", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)
			},
			check: func(t *testing.T, u *model.User) {
				assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("Secret1!")))
			},
		},
		{
			name:          "other user is forbidden",
			callerID:      uuid.New(),
			update:        ProfileUpdate{Username: ptr("mallory")},
			setupMock:     func(m *MockUserRepository) {},
			expectedError: apperrors.ErrForbidden,
		},
		{
			name:     "missing user",
			callerID: id,
			update:   ProfileUpdate{Username: ptr("alicia")},
			setupMock: func(m *MockUserRepository) {
				m.On("FindByID", mock.Anything, id).Return(nil, gorm.ErrRecordNotFound)
			},
			expectedError: apperrors.ErrUserNotFound,
		},
		{
			name:     "email taken",
			callerID: id,
			update:   ProfileUpdate{Email: ptr("bob@example.com")},
			setupMock: func(m *MockUserRepository) {
				m.On("FindByID", mock.Anything, id).Return(current(), nil)
				m.On("ExistsByUsernameOrEmail", mock.Anything, "alice", "bob@example.com", id).Return(true, nil)
			},
			expectedError: apperrors.ErrUserAlreadyExists,
		},
		{
			name:     "weak password",
			callerID: id,
			update:   ProfileUpdate{Password: ptr("short")},
			setupMock: func(m *MockUserRepository) {
				m.On("FindByID", mock.Anything, id).Return(current(), nil)
			},
			expectedError: apperrors.ErrWeakPassword,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			tt.setupMock(mockRepo)

			user, err := NewUserService(mockRepo, newTestHasher(), nil).UpdateProfile(context.Background(), tt.callerID, id, tt.update)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, user)
				mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
			} else {
				require.NoError(t, err)
				tt.check(t, user)
			}
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestUserService_DeleteAccount(t *testing.T) {
	id := uuid.New()

	t.Run("owner", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockRepo.On("Delete", mock.Anything, id).Return(nil)

		assert.NoError(t, NewUserService(mockRepo, newTestHasher(), nil).DeleteAccount(context.Background(), id, id))
		mockRepo.AssertExpectations(t)
	})

	t.Run("other user", func(t *testing.T) {
		mockRepo := new(MockUserRepository)

		err := NewUserService(mockRepo, newTestHasher(), nil).DeleteAccount(context.Background(), uuid.New(), id)

		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		mockRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("already gone", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		mockRepo.On("Delete", mock.Anything, id).Return(gorm.ErrRecordNotFound)

		err := NewUserService(mockRepo, newTestHasher(), nil).DeleteAccount(context.Background(), id, id)

		assert.Equal(t, apperrors.ErrUserNotFound, err)
	})
}
