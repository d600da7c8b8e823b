package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"superadmin/internal/model"
)

// RoleRepository defines persistence operations for roles, assignments and the permission catalog.
type RoleRepository interface {
	Create(ctx context.Context, role *model.Role) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Role, error)
	FindByName(ctx context.Context, name string) (*model.Role, error)
	FindByNames(ctx context.Context, names []string) ([]model.Role, error)
	List(ctx context.Context) ([]model.Role, error)
	Update(ctx context.Context, role *model.Role) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int64, error)
	Distribution(ctx context.Context) ([]NameCount, error)

	CountAssignments(ctx context.Context, roleID uuid.UUID) (int64, error)
	HasAssignment(ctx context.Context, userID, roleID uuid.UUID) (bool, error)
	Assign(ctx context.Context, userID, roleID uuid.UUID) error
	Unassign(ctx context.Context, userID, roleID uuid.UUID) (bool, error)

	ListPermissions(ctx context.Context) ([]model.Permission, error)
	EnsurePermission(ctx context.Context, name string) error
}

type roleRepository struct {
	db *gorm.DB
}

// NewRoleRepository builds a GORM-backed repository.
func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &roleRepository{db: db}
}

func (r *roleRepository) Create(ctx context.Context, role *model.Role) error {
	return r.db.WithContext(ctx).Omit("Users").Create(role).Error
}

func (r *roleRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Role, error) {
	var role model.Role
	if err := r.db.WithContext(ctx).Preload("Users").First(&role, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *roleRepository) FindByName(ctx context.Context, name string) (*model.Role, error) {
	var role model.Role
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

// FindByNames returns the roles that exist among names; unknown names are skipped.
func (r *roleRepository) FindByNames(ctx context.Context, names []string) ([]model.Role, error) {
	roles := []model.Role{}
	if len(names) == 0 {
		return roles, nil
	}
	err := r.db.WithContext(ctx).Where("name IN ?", names).Order("name ASC").Find(&roles).Error
	return roles, err
}

func (r *roleRepository) List(ctx context.Context) ([]model.Role, error) {
	var roles []model.Role
	err := r.db.WithContext(ctx).Preload("Users").Order("created_at DESC").Find(&roles).Error
	return roles, err
}

func (r *roleRepository) Update(ctx context.Context, role *model.Role) error {
	return r.db.WithContext(ctx).Model(role).Omit("Users").
		Select("name", "permissions", "updated_at").
		Updates(role).Error
}

func (r *roleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&model.Role{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *roleRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.Role{}).Count(&total).Error
	return total, err
}

// Distribution counts assigned users per role, including empty roles.
func (r *roleRepository) Distribution(ctx context.Context) ([]NameCount, error) {
	var rows []NameCount
	err := r.db.WithContext(ctx).Model(&model.Role{}).
		Select("roles.name AS name, COUNT(user_roles.user_id) AS total").
		Joins("LEFT JOIN user_roles ON user_roles.role_id = roles.id").
		Group("roles.id, roles.name").
		Order("total DESC, roles.name ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *roleRepository) CountAssignments(ctx context.Context, roleID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.UserRole{}).Where("role_id = ?", roleID).Count(&total).Error
	return total, err
}

func (r *roleRepository) HasAssignment(ctx context.Context, userID, roleID uuid.UUID) (bool, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.UserRole{}).
		Where("user_id = ? AND role_id = ?", userID, roleID).
		Count(&total).Error
	return total > 0, err
}

func (r *roleRepository) Assign(ctx context.Context, userID, roleID uuid.UUID) error {
	return r.db.WithContext(ctx).Create(&model.UserRole{UserID: userID, RoleID: roleID}).Error
}

// Unassign reports whether an assignment was removed.
func (r *roleRepository) Unassign(ctx context.Context, userID, roleID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Where("user_id = ? AND role_id = ?", userID, roleID).Delete(&model.UserRole{})
	return res.RowsAffected > 0, res.Error
}

func (r *roleRepository) ListPermissions(ctx context.Context) ([]model.Permission, error) {
	var perms []model.Permission
	err := r.db.WithContext(ctx).Order("name ASC").Find(&perms).Error
	return perms, err
}

func (r *roleRepository) EnsurePermission(ctx context.Context, name string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&model.Permission{Name: name}).Error
}
