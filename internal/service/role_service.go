package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "superadmin/internal/errors"
	"superadmin/internal/model"
	"superadmin/internal/repository"
)

// RoleInput carries the fields of a new role.
type RoleInput struct {
	Name        string
	Permissions []string
}

// RoleUpdateInput carries optional role changes.
type RoleUpdateInput struct {
	Name        *string
	Permissions *[]string
}

// RoleService manages roles and their assignment to users.
type RoleService interface {
	List(ctx context.Context) ([]model.Role, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Role, error)
	Create(ctx context.Context, actorID uuid.UUID, in RoleInput) (*model.Role, error)
	Update(ctx context.Context, actorID, id uuid.UUID, in RoleUpdateInput) (*model.Role, error)
	Delete(ctx context.Context, actorID, id uuid.UUID) error
	Assign(ctx context.Context, actorID, userID, roleID uuid.UUID) error
	Unassign(ctx context.Context, actorID, userID, roleID uuid.UUID) error
	Permissions(ctx context.Context) ([]model.Permission, error)
}

type roleService struct {
	roles repository.RoleRepository
	users repository.UserRepository
	audit AuditService
	log   *zap.Logger
}

// NewRoleService creates a new role service.
func NewRoleService(roles repository.RoleRepository, users repository.UserRepository, audit AuditService, log *zap.Logger) RoleService {
	return &roleService{roles: roles, users: users, audit: audit, log: log}
}

func (s *roleService) List(ctx context.Context) ([]model.Role, error) {
	roles, err := s.roles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}

func (s *roleService) Get(ctx context.Context, id uuid.UUID) (*model.Role, error) {
	role, err := s.roles.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, apperrors.ErrRoleNotFound)
	}
	return role, nil
}

func (s *roleService) Create(ctx context.Context, actorID uuid.UUID, in RoleInput) (*model.Role, error) {
	name := strings.TrimSpace(in.Name)
	if err := s.ensureNameFree(ctx, name, uuid.Nil); err != nil {
		return nil, err
	}

	role := &model.Role{Name: name, Permissions: cleanPermissions(in.Permissions)}
	if err := s.roles.Create(ctx, role); err != nil {
		return nil, fmt.Errorf("create role: %w", err)
	}

	s.audit.Record(ctx, &actorID, model.ActionCreateRole, model.TargetRole, role.ID.String(), map[string]interface{}{
		"name":        role.Name,
		"permissions": role.Permissions,
	})
	return role, nil
}

func (s *roleService) Update(ctx context.Context, actorID, id uuid.UUID, in RoleUpdateInput) (*model.Role, error) {
	role, err := s.roles.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, apperrors.ErrRoleNotFound)
	}

	previous := role.Name
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name != "" && name != role.Name {
			if err := s.ensureNameFree(ctx, name, id); err != nil {
				return nil, err
			}
			role.Name = name
		}
	}
	if in.Permissions != nil {
		role.Permissions = cleanPermissions(*in.Permissions)
	}

	if err := s.roles.Update(ctx, role); err != nil {
		return nil, fmt.Errorf("update role: %w", err)
	}

	s.audit.Record(ctx, &actorID, model.ActionUpdateRole, model.TargetRole, id.String(), map[string]interface{}{
		"previousName": previous,
		"name":         role.Name,
		"permissions":  role.Permissions,
	})
	return role, nil
}

func (s *roleService) Delete(ctx context.Context, actorID, id uuid.UUID) error {
	role, err := s.roles.FindByID(ctx, id)
	if err != nil {
		return notFound(err, apperrors.ErrRoleNotFound)
	}
	if role.Name == model.RoleSuperAdmin {
		return apperrors.ErrSuperAdminRoleProtected
	}
	holders, err := s.roles.CountAssignments(ctx, id)
	if err != nil {
		return fmt.Errorf("count assignments: %w", err)
	}
	if holders > 0 {
		return apperrors.ErrRoleInUse
	}
	if err := s.roles.Delete(ctx, id); err != nil {
		return notFound(err, apperrors.ErrRoleNotFound)
	}

	s.audit.Record(ctx, &actorID, model.ActionDeleteRole, model.TargetRole, id.String(), map[string]string{"name": role.Name})
	return nil
}

func (s *roleService) Assign(ctx context.Context, actorID, userID, roleID uuid.UUID) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return notFound(err, apperrors.ErrUserNotFound)
	}
	role, err := s.roles.FindByID(ctx, roleID)
	if err != nil {
		return notFound(err, apperrors.ErrRoleNotFound)
	}
	has, err := s.roles.HasAssignment(ctx, userID, roleID)
	if err != nil {
		return fmt.Errorf("check assignment: %w", err)
	}
	if has {
		return apperrors.ErrRoleAlreadyAssigned
	}
	if err := s.roles.Assign(ctx, userID, roleID); err != nil {
		return fmt.Errorf("assign role: %w", err)
	}

	s.audit.Record(ctx, &actorID, model.ActionAssignRole, model.TargetUserRole, assignmentID(userID, roleID), map[string]string{
		"userEmail": user.Email,
		"roleName":  role.Name,
	})
	return nil
}

func (s *roleService) Unassign(ctx context.Context, actorID, userID, roleID uuid.UUID) error {
	has, err := s.roles.HasAssignment(ctx, userID, roleID)
	if err != nil {
		return fmt.Errorf("check assignment: %w", err)
	}
	if !has {
		return apperrors.ErrAssignmentNotFound
	}
	role, err := s.roles.FindByID(ctx, roleID)
	if err != nil {
		return notFound(err, apperrors.ErrRoleNotFound)
	}
	if role.Name == model.RoleSuperAdmin {
		holders, err := s.roles.CountAssignments(ctx, roleID)
		if err != nil {
			return fmt.Errorf("count superadmins: %w", err)
		}
		if holders <= 1 {
			return apperrors.ErrLastSuperAdmin
		}
	}
	removed, err := s.roles.Unassign(ctx, userID, roleID)
	if err != nil {
		return fmt.Errorf("remove role: %w", err)
	}
	if !removed {
		return apperrors.ErrAssignmentNotFound
	}

	s.audit.Record(ctx, &actorID, model.ActionRemoveRole, model.TargetUserRole, assignmentID(userID, roleID), map[string]string{
		"roleName": role.Name,
	})
	return nil
}

func (s *roleService) Permissions(ctx context.Context) ([]model.Permission, error) {
	return s.roles.ListPermissions(ctx)
}

func (s *roleService) ensureNameFree(ctx context.Context, name string, self uuid.UUID) error {
	existing, err := s.roles.FindByName(ctx, name)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("check role name: %w", err)
	case existing.ID != self:
		return apperrors.ErrRoleNameTaken
	default:
		return nil
	}
}

func assignmentID(userID, roleID uuid.UUID) string {
	return userID.String() + "-" + roleID.String()
}

func cleanPermissions(perms []string) []string {
	out := make([]string, 0, len(perms))
	seen := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
