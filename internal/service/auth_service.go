package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"superadmin/internal/auth"
	apperrors "superadmin/internal/errors"
	"superadmin/internal/model"
	"superadmin/internal/repository"
)

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token string
	User  *model.User
}

// AuthService handles authentication operations.
type AuthService interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Logout(ctx context.Context, claims *auth.Claims) error
	// Authenticate resolves verified token claims to an active user and records activity.
	Authenticate(ctx context.Context, claims *auth.Claims) (*model.User, error)
}

type authService struct {
	users      repository.UserRepository
	jwtService *auth.JWTService
	tokenStore auth.TokenStoreInterface
	audit      AuditService
	log        *zap.Logger
	now        func() time.Time
}

// NewAuthService creates a new authentication service.
func NewAuthService(users repository.UserRepository, jwtService *auth.JWTService, tokenStore auth.TokenStoreInterface, audit AuditService, log *zap.Logger) AuthService {
	return &authService{
		users:      users,
		jwtService: jwtService,
		tokenStore: tokenStore,
		audit:      audit,
		log:        log,
		now:        utcNow,
	}
}

// Login verifies credentials and issues a token.
func (s *authService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user.IsSystem() || !auth.CheckPassword(user.HashedPassword, password) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, apperrors.ErrAccountDisabled
	}

	now := s.now()
	if err := s.users.RecordLogin(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}
	user.LastLogin = &now
	user.LastActivity = &now

	token, _, err := s.jwtService.GenerateToken(user.ID, user.Email, user.RoleNames())
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	s.audit.Record(ctx, &user.ID, model.ActionLogin, model.TargetUser, user.ID.String(), map[string]string{"email": user.Email})
	return &LoginResult{Token: token, User: user}, nil
}

// Logout revokes the token for the rest of its lifetime.
func (s *authService) Logout(ctx context.Context, claims *auth.Claims) error {
	if err := s.tokenStore.Revoke(ctx, claims.ID, claims.RemainingTTL(time.Now())); err != nil {
		return fmt.Errorf("revoke token: %w: %w", apperrors.ErrRevocationUnavailable, err)
	}
	s.audit.Record(ctx, &claims.UserID, model.ActionLogout, model.TargetUser, claims.UserID.String(), map[string]string{"email": claims.Email})
	return nil
}

func (s *authService) Authenticate(ctx context.Context, claims *auth.Claims) (*model.User, error) {
	if claims == nil || claims.UserID == uuid.Nil {
		return nil, apperrors.ErrUnauthorized
	}
	revoked, err := s.tokenStore.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check token: %w", err)
	}
	if revoked {
		return nil, apperrors.ErrUnauthorized
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUnauthorized
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !user.IsActive {
		return nil, apperrors.ErrAccountDisabled
	}

	now := s.now()
	if err := s.users.TouchActivity(ctx, user.ID, now); err != nil {
		s.log.Warn("touch last activity failed", zap.String("user_id", user.ID.String()), zap.Error(err))
	} else {
		user.LastActivity = &now
	}
	return user, nil
}
