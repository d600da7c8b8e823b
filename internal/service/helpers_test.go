package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"superadmin/internal/db"
	"superadmin/internal/model"
	"superadmin/internal/repository"
)

type testEnv struct {
	db     *gorm.DB
	users  repository.UserRepository
	roles  repository.RoleRepository
	audits repository.AuditLogRepository
	audit  AuditService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gdb, err := db.NewTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	audits := repository.NewAuditLogRepository(gdb)
	return &testEnv{
		db:     gdb,
		users:  repository.NewUserRepository(gdb),
		roles:  repository.NewRoleRepository(gdb),
		audits: audits,
		audit:  NewAuditService(audits, zap.NewNop()),
	}
}

func (e *testEnv) role(t *testing.T, name string, perms ...string) *model.Role {
	t.Helper()
	role := &model.Role{Name: name, Permissions: perms}
	require.NoError(t, e.roles.Create(context.Background(), role))
	return role
}

func (e *testEnv) user(t *testing.T, u model.User, roles ...*model.Role) *model.User {
	t.Helper()
	if u.HashedPassword == "" {
		u.HashedPassword = "x"
	}
	for _, r := range roles {
		u.Roles = append(u.Roles, *r)
	}
	require.NoError(t, e.users.Create(context.Background(), &u))
	return &u
}

func (e *testEnv) actions(t *testing.T) []string {
	t.Helper()
	var actions []string
	require.NoError(t, e.db.Model(&model.AuditLog{}).Order("timestamp ASC").Pluck("action", &actions).Error)
	return actions
}

func ptr[T any](v T) *T { return &v }
