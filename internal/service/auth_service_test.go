package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"superadmin/internal/auth"
	apperrors "superadmin/internal/errors"
	"superadmin/internal/model"
)

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestAuthService_Login(t *testing.T) {
	userID := uuid.New()
	hash := hashed(t, "password123")

	tests := []struct {
		name          string
		email         string
		password      string
		setupMock     func(*MockUserRepository, *MockAuditService)
		expectedError error
	}{
		{
			name:     "successful login",
			email:    "  Test@Example.com ",
			password: "password123",
			setupMock: func(mRepo *MockUserRepository, mAudit *MockAuditService) {
				mRepo.On("FindByEmail", mock.Anything, "test@example.com").Return(&model.User{
					ID:             userID,
					Email:          "test@example.com",
					HashedPassword: hash,
					IsActive:       true,
					Roles:          []model.Role{{Name: model.RoleAdmin}},
				}, nil)
				mRepo.On("RecordLogin", mock.Anything, userID, mock.AnythingOfType("time.Time")).Return(nil)
				mAudit.On("Record", mock.Anything, mock.Anything, model.ActionLogin, model.TargetUser, userID.String(), mock.Anything).Return()
			},
		},
		{
			name:     "invalid credentials - user not found",
			email:    "notfound@example.com",
			password: "password123",
			setupMock: func(mRepo *MockUserRepository, _ *MockAuditService) {
				mRepo.On("FindByEmail", mock.Anything, "notfound@example.com").Return(nil, gorm.ErrRecordNotFound)
			},
			expectedError: apperrors.ErrInvalidCredentials,
		},
		{
			name:     "invalid credentials - wrong password",
			email:    "test@example.com",
			password: "nope",
			setupMock: func(mRepo *MockUserRepository, _ *MockAuditService) {
				mRepo.On("FindByEmail", mock.Anything, "test@example.com").Return(&model.User{
					ID: userID, Email: "test@example.com", HashedPassword: hash, IsActive: true,
				}, nil)
			},
			expectedError: apperrors.ErrInvalidCredentials,
		},
		{
			name:     "deactivated account",
			email:    "test@example.com",
			password: "password123",
			setupMock: func(mRepo *MockUserRepository, _ *MockAuditService) {
				mRepo.On("FindByEmail", mock.Anything, "test@example.com").Return(&model.User{
					ID: userID, Email: "test@example.com", HashedPassword: hash, IsActive: false,
				}, nil)
			},
			expectedError: apperrors.ErrAccountDisabled,
		},
		{
			name:     "system user cannot log in",
			email:    model.SystemUserEmail,
			password: "system-user-no-login",
			setupMock: func(mRepo *MockUserRepository, _ *MockAuditService) {
				mRepo.On("FindByEmail", mock.Anything, model.SystemUserEmail).Return(&model.User{
					ID: userID, Email: model.SystemUserEmail, HashedPassword: "system-user-no-login", IsActive: true,
				}, nil)
			},
			expectedError: apperrors.ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			mockAudit := new(MockAuditService)
			tt.setupMock(mockRepo, mockAudit)

			jwtService := auth.NewJWTService("test-secret", time.Hour)
			service := NewAuthService(mockRepo, jwtService, new(MockTokenStore), mockAudit, zap.NewNop())

			result, err := service.Login(context.Background(), tt.email, tt.password)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, result)
			} else {
				require.NoError(t, err)
				assert.NotEmpty(t, result.Token)
				assert.NotNil(t, result.User.LastLogin)

				claims, err := jwtService.ValidateToken(result.Token)
				require.NoError(t, err)
				assert.Equal(t, userID, claims.UserID)
				assert.Equal(t, []string{model.RoleAdmin}, claims.Roles)
			}

			mockRepo.AssertExpectations(t)
			mockAudit.AssertExpectations(t)
		})
	}
}

func TestAuthService_Logout(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret", time.Hour)
	userID := uuid.New()
	_, claims, err := jwtService.GenerateToken(userID, "a@example.com", nil)
	require.NoError(t, err)

	mockStore := new(MockTokenStore)
	mockStore.On("Revoke", mock.Anything, claims.ID, mock.MatchedBy(func(ttl time.Duration) bool {
		return ttl > 0 && ttl <= time.Hour
	})).Return(nil)
	mockAudit := new(MockAuditService)
	mockAudit.On("Record", mock.Anything, &userID, model.ActionLogout, model.TargetUser, userID.String(), mock.Anything).Return()

	service := NewAuthService(new(MockUserRepository), jwtService, mockStore, mockAudit, zap.NewNop())
	require.NoError(t, service.Logout(context.Background(), claims))

	mockStore.AssertExpectations(t)
	mockAudit.AssertExpectations(t)
}

func TestAuthService_LogoutFailsWhenRevocationFails(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret", time.Hour)
	userID := uuid.New()
	_, claims, err := jwtService.GenerateToken(userID, "a@example.com", nil)
	require.NoError(t, err)

	redisDown := errors.New("dial tcp: connection refused")
	mockStore := new(MockTokenStore)
	mockStore.On("Revoke", mock.Anything, claims.ID, mock.Anything).Return(redisDown)
	mockAudit := new(MockAuditService)

	service := NewAuthService(new(MockUserRepository), jwtService, mockStore, mockAudit, zap.NewNop())
	err = service.Logout(context.Background(), claims)

	assert.ErrorIs(t, err, apperrors.ErrRevocationUnavailable)
	assert.ErrorIs(t, err, redisDown)
	assert.Equal(t, 503, apperrors.MapErrorToHTTP(err).StatusCode)
	mockAudit.AssertNotCalled(t, "Record", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthService_Authenticate(t *testing.T) {
	userID := uuid.New()
	claims := &auth.Claims{UserID: userID}
	claims.ID = "token-1"

	tests := []struct {
		name          string
		setupMock     func(*MockUserRepository, *MockTokenStore)
		expectedError error
	}{
		{
			name: "active user",
			setupMock: func(mRepo *MockUserRepository, mStore *MockTokenStore) {
				mStore.On("IsRevoked", mock.Anything, "token-1").Return(false, nil)
				mRepo.On("FindByID", mock.Anything, userID).Return(&model.User{ID: userID, IsActive: true}, nil)
				mRepo.On("TouchActivity", mock.Anything, userID, mock.AnythingOfType("time.Time")).Return(nil)
			},
		},
		{
			name: "revoked token",
			setupMock: func(_ *MockUserRepository, mStore *MockTokenStore) {
				mStore.On("IsRevoked", mock.Anything, "token-1").Return(true, nil)
			},
			expectedError: apperrors.ErrUnauthorized,
		},
		{
			name: "user deleted",
			setupMock: func(mRepo *MockUserRepository, mStore *MockTokenStore) {
				mStore.On("IsRevoked", mock.Anything, "token-1").Return(false, nil)
				mRepo.On("FindByID", mock.Anything, userID).Return(nil, gorm.ErrRecordNotFound)
			},
			expectedError: apperrors.ErrUnauthorized,
		},
		{
			name: "user deactivated",
			setupMock: func(mRepo *MockUserRepository, mStore *MockTokenStore) {
				mStore.On("IsRevoked", mock.Anything, "token-1").Return(false, nil)
				mRepo.On("FindByID", mock.Anything, userID).Return(&model.User{ID: userID, IsActive: false}, nil)
			},
			expectedError: apperrors.ErrAccountDisabled,
		},
		{
			name: "activity update failure is not fatal",
			setupMock: func(mRepo *MockUserRepository, mStore *MockTokenStore) {
				mStore.On("IsRevoked", mock.Anything, "token-1").Return(false, nil)
				mRepo.On("FindByID", mock.Anything, userID).Return(&model.User{ID: userID, IsActive: true}, nil)
				mRepo.On("TouchActivity", mock.Anything, userID, mock.AnythingOfType("time.Time")).Return(errors.New("db down"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			mockStore := new(MockTokenStore)
			tt.setupMock(mockRepo, mockStore)

			service := NewAuthService(mockRepo, auth.NewJWTService("test-secret", time.Hour), mockStore, new(MockAuditService), zap.NewNop())
			user, err := service.Authenticate(context.Background(), claims)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, user)
			} else {
				require.NoError(t, err)
				assert.Equal(t, userID, user.ID)
			}

			mockRepo.AssertExpectations(t)
			mockStore.AssertExpectations(t)
		})
	}
}
