package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"superadmin/internal/auth"
	apperrors "superadmin/internal/errors"
	"superadmin/internal/model"
	"superadmin/internal/repository"
)

const recentUserAuditLogs = 10

// CreateUserInput carries the fields of a new user.
type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Roles    []string
}

// UpdateUserInput carries optional changes; nil fields are left as they are.
type UpdateUserInput struct {
	Name     *string
	Email    *string
	Password *string
	IsActive *bool
	Roles    *[]string
}

// UserService manages console users.
type UserService interface {
	List(ctx context.Context, filter repository.UserFilter) ([]model.User, int64, error)
	Get(ctx context.Context, id uuid.UUID) (*model.User, error)
	Create(ctx context.Context, actorID uuid.UUID, in CreateUserInput) (*model.User, error)
	Update(ctx context.Context, actorID, id uuid.UUID, in UpdateUserInput) (*model.User, error)
	Delete(ctx context.Context, actorID, id uuid.UUID) error
}

type userService struct {
	users repository.UserRepository
	roles repository.RoleRepository
	audit AuditService
	log   *zap.Logger
}

// NewUserService creates a new user service.
func NewUserService(users repository.UserRepository, roles repository.RoleRepository, audit AuditService, log *zap.Logger) UserService {
	return &userService{users: users, roles: roles, audit: audit, log: log}
}

func (s *userService) List(ctx context.Context, filter repository.UserFilter) ([]model.User, int64, error) {
	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

func (s *userService) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.users.FindDetail(ctx, id, recentUserAuditLogs)
	if err != nil {
		return nil, notFound(err, apperrors.ErrUserNotFound)
	}
	return user, nil
}

func (s *userService) Create(ctx context.Context, actorID uuid.UUID, in CreateUserInput) (*model.User, error) {
	email := normalizeEmail(in.Email)
	if err := s.ensureEmailFree(ctx, email, uuid.Nil); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	roles, err := s.roles.FindByNames(ctx, in.Roles)
	if err != nil {
		return nil, fmt.Errorf("resolve roles: %w", err)
	}

	user := &model.User{
		Name:           strings.TrimSpace(in.Name),
		Email:          email,
		HashedPassword: hash,
		IsActive:       true,
		Roles:          roles,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.audit.Record(ctx, &actorID, model.ActionCreateUser, model.TargetUser, user.ID.String(), map[string]interface{}{
		"name":  user.Name,
		"email": user.Email,
		"roles": user.RoleNames(),
	})
	return user, nil
}

func (s *userService) Update(ctx context.Context, actorID, id uuid.UUID, in UpdateUserInput) (*model.User, error) {
	current, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, apperrors.ErrUserNotFound)
	}

	fields := map[string]interface{}{}
	changed := []string{}
	if in.Name != nil {
		fields["name"] = strings.TrimSpace(*in.Name)
		changed = append(changed, "name")
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if email != current.Email {
			if err := s.ensureEmailFree(ctx, email, id); err != nil {
				return nil, err
			}
		}
		fields["email"] = email
		changed = append(changed, "email")
	}
	if in.Password != nil && *in.Password != "" {
		hash, err := auth.HashPassword(*in.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		fields["hashed_password"] = hash
		changed = append(changed, "password")
	}
	if in.IsActive != nil {
		fields["is_active"] = *in.IsActive
		changed = append(changed, "isActive")
	}

	var roles []model.Role
	if in.Roles != nil {
		roles, err = s.roles.FindByNames(ctx, *in.Roles)
		if err != nil {
			return nil, fmt.Errorf("resolve roles: %w", err)
		}
		if err := s.guardLastSuperAdmin(ctx, current, roles); err != nil {
			return nil, err
		}
		changed = append(changed, "roles")
	}

	if err := s.users.Update(ctx, id, fields, roles); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	updated, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload user: %w", err)
	}

	s.audit.Record(ctx, &actorID, model.ActionUpdateUser, model.TargetUser, id.String(), map[string]interface{}{
		"updatedFields": changed,
		"roles":         updated.RoleNames(),
	})
	return updated, nil
}

// guardLastSuperAdmin rejects a role change that would leave nobody holding superadmin.
func (s *userService) guardLastSuperAdmin(ctx context.Context, current *model.User, next []model.Role) error {
	if !current.HasRole(model.RoleSuperAdmin) {
		return nil
	}
	for _, r := range next {
		if r.Name == model.RoleSuperAdmin {
			return nil
		}
	}
	super, err := s.roles.FindByName(ctx, model.RoleSuperAdmin)
	if err != nil {
		return fmt.Errorf("find superadmin role: %w", err)
	}
	holders, err := s.roles.CountAssignments(ctx, super.ID)
	if err != nil {
		return fmt.Errorf("count superadmins: %w", err)
	}
	if holders <= 1 {
		return apperrors.ErrLastSuperAdmin
	}
	return nil
}

func (s *userService) Delete(ctx context.Context, actorID, id uuid.UUID) error {
	if actorID == id {
		return apperrors.ErrCannotDeleteSelf
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return notFound(err, apperrors.ErrUserNotFound)
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return notFound(err, apperrors.ErrUserNotFound)
	}

	s.audit.Record(ctx, &actorID, model.ActionDeleteUser, model.TargetUser, id.String(), map[string]string{
		"name":  user.Name,
		"email": user.Email,
	})
	return nil
}

func (s *userService) ensureEmailFree(ctx context.Context, email string, self uuid.UUID) error {
	existing, err := s.users.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("check email: %w", err)
	case existing.ID != self:
		return apperrors.ErrEmailTaken
	default:
		return nil
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// notFound translates gorm.ErrRecordNotFound into the given domain error.
func notFound(err, domain error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain
	}
	return err
}
