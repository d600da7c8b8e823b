// Package seed populates a fresh database with the permission catalog, the
// built-in roles, a superadmin account and the critical settings.
package seed

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"superadmin/internal/auth"
	"superadmin/internal/model"
	"superadmin/internal/repository"
)

// Defaults for the bootstrap account.
const (
	DefaultSuperAdminEmail    = "superadmin@example.com"
	DefaultSuperAdminPassword = "Test1234!"
	demoPassword              = "password123"
)

var permissions = []string{"all", "read", "write"}

var roles = []struct {
	name  string
	perms []string
}{
	{model.RoleSuperAdmin, []string{"all"}},
	{model.RoleAdmin, []string{"read", "write"}},
	{model.RoleUser, []string{"read"}},
}

var settings = []model.Setting{
	{Key: model.SettingFeatureToggles, Value: `{"new_ui":true,"beta_features":false}`},
	{Key: model.SettingSystemConfig, Value: `{"maintenance_mode":false,"max_users":1000}`},
}

type account struct {
	name, email, password, role string
}

var demoAccounts = []account{
	{"Demo Admin", "demo.admin@example.com", demoPassword, model.RoleAdmin},
	{"Demo User", "demo.user@example.com", demoPassword, model.RoleUser},
}

// Options tunes a seeding run.
type Options struct {
	SuperAdminEmail    string
	SuperAdminPassword string
	DemoUsers          bool
}

// Result counts what a run created versus what already existed.
type Result struct {
	Created  int `json:"created"`
	Existing int `json:"existing"`
}

func (r *Result) track(created bool) {
	if created {
		r.Created++
	} else {
		r.Existing++
	}
}

// Seeder writes the bootstrap data. Every step is idempotent.
type Seeder struct {
	roles    repository.RoleRepository
	users    repository.UserRepository
	settings repository.SettingRepository
	log      *zap.Logger
}

// New creates a new seeder.
func New(roles repository.RoleRepository, users repository.UserRepository, settings repository.SettingRepository, log *zap.Logger) *Seeder {
	return &Seeder{roles: roles, users: users, settings: settings, log: log}
}

// Run seeds permissions, roles, the superadmin, optional demo users and settings.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.SuperAdminEmail == "" {
		opts.SuperAdminEmail = DefaultSuperAdminEmail
	}
	if opts.SuperAdminPassword == "" {
		opts.SuperAdminPassword = DefaultSuperAdminPassword
	}
	res := &Result{}

	for _, name := range permissions {
		if err := s.roles.EnsurePermission(ctx, name); err != nil {
			return nil, fmt.Errorf("seed permission %s: %w", name, err)
		}
	}
	s.log.Info("permissions seeded", zap.Strings("permissions", permissions))

	byName := make(map[string]*model.Role, len(roles))
	for _, r := range roles {
		role, created, err := s.ensureRole(ctx, r.name, r.perms)
		if err != nil {
			return nil, err
		}
		byName[r.name] = role
		res.track(created)
	}
	s.log.Info("roles seeded")

	accounts := []account{{"Super Admin", opts.SuperAdminEmail, opts.SuperAdminPassword, model.RoleSuperAdmin}}
	if opts.DemoUsers {
		accounts = append(accounts, demoAccounts...)
	}
	for _, a := range accounts {
		created, err := s.ensureUser(ctx, a, byName[a.role])
		if err != nil {
			return nil, err
		}
		res.track(created)
	}
	s.log.Info("users seeded", zap.String("superadmin", opts.SuperAdminEmail), zap.Bool("demo_users", opts.DemoUsers))

	for _, st := range settings {
		created, err := s.ensureSetting(ctx, st)
		if err != nil {
			return nil, err
		}
		res.track(created)
	}

	s.log.Info("seed completed", zap.Int("created", res.Created), zap.Int("existing", res.Existing))
	return res, nil
}

func (s *Seeder) ensureRole(ctx context.Context, name string, perms []string) (*model.Role, bool, error) {
	role, err := s.roles.FindByName(ctx, name)
	if err == nil {
		return role, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("find role %s: %w", name, err)
	}
	role = &model.Role{Name: name, Permissions: perms}
	if err := s.roles.Create(ctx, role); err != nil {
		return nil, false, fmt.Errorf("create role %s: %w", name, err)
	}
	return role, true, nil
}

// ensureUser creates the account when missing and makes sure it holds role.
// Existing passwords are never reset.
func (s *Seeder) ensureUser(ctx context.Context, a account, role *model.Role) (bool, error) {
	user, err := s.users.FindByEmail(ctx, a.email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("find user %s: %w", a.email, err)
	}
	if user != nil {
		has, err := s.roles.HasAssignment(ctx, user.ID, role.ID)
		if err != nil {
			return false, fmt.Errorf("check role of %s: %w", a.email, err)
		}
		if !has {
			if err := s.roles.Assign(ctx, user.ID, role.ID); err != nil {
				return false, fmt.Errorf("assign %s to %s: %w", role.Name, a.email, err)
			}
		}
		return false, nil
	}

	hash, err := auth.HashPassword(a.password)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}
	user = &model.User{
		Name:           a.name,
		Email:          a.email,
		HashedPassword: hash,
		IsActive:       true,
		Roles:          []model.Role{*role},
	}
	if err := s.users.Create(ctx, user); err != nil {
		return false, fmt.Errorf("create user %s: %w", a.email, err)
	}
	return true, nil
}

// ensureSetting creates the setting when missing. Values changed by operators are kept.
func (s *Seeder) ensureSetting(ctx context.Context, st model.Setting) (bool, error) {
	_, err := s.settings.FindByKey(ctx, st.Key)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("find setting %s: %w", st.Key, err)
	}
	if err := s.settings.Create(ctx, &model.Setting{Key: st.Key, Value: st.Value}); err != nil {
		return false, fmt.Errorf("create setting %s: %w", st.Key, err)
	}
	return true, nil
}
