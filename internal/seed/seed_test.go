package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"superadmin/internal/auth"
	"superadmin/internal/db"
	"superadmin/internal/model"
	"superadmin/internal/repository"
)

func TestSeeder_Run(t *testing.T) {
	gdb, err := db.NewTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})

	roles := repository.NewRoleRepository(gdb)
	users := repository.NewUserRepository(gdb)
	settings := repository.NewSettingRepository(gdb)
	seeder := New(roles, users, settings, zap.NewNop())
	ctx := context.Background()

	res, err := seeder.Run(ctx, Options{DemoUsers: true})
	require.NoError(t, err)
	assert.Equal(t, &Result{Created: 8, Existing: 0}, res)

	again, err := seeder.Run(ctx, Options{DemoUsers: true})
	require.NoError(t, err)
	assert.Equal(t, &Result{Created: 0, Existing: 8}, again)

	perms, err := roles.ListPermissions(ctx)
	require.NoError(t, err)
	assert.Len(t, perms, 3)

	super, err := roles.FindByName(ctx, model.RoleSuperAdmin)
	require.NoError(t, err)
	assert.Equal(t, []string{"all"}, super.Permissions)

	admin, err := users.FindByEmail(ctx, DefaultSuperAdminEmail)
	require.NoError(t, err)
	assert.True(t, admin.IsActive)
	assert.Equal(t, []string{model.RoleSuperAdmin}, admin.RoleNames())
	assert.True(t, auth.CheckPassword(admin.HashedPassword, DefaultSuperAdminPassword))

	toggles, err := settings.FindByKey(ctx, model.SettingFeatureToggles)
	require.NoError(t, err)
	assert.JSONEq(t, `{"new_ui":true,"beta_features":false}`, toggles.Value)

	count, err := users.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestSeeder_KeepsOperatorChanges(t *testing.T) {
	gdb, err := db.NewTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})

	roles := repository.NewRoleRepository(gdb)
	users := repository.NewUserRepository(gdb)
	settings := repository.NewSettingRepository(gdb)
	seeder := New(roles, users, settings, zap.NewNop())
	ctx := context.Background()

	_, err = settings.Upsert(ctx, model.SettingFeatureToggles, `{"new_ui":false}`)
	require.NoError(t, err)
	existing := &model.User{Name: "Owner", Email: "owner@example.com", HashedPassword: "x", IsActive: true}
	require.NoError(t, users.Create(ctx, existing))

	_, err = seeder.Run(ctx, Options{SuperAdminEmail: "owner@example.com"})
	require.NoError(t, err)

	toggles, err := settings.FindByKey(ctx, model.SettingFeatureToggles)
	require.NoError(t, err)
	assert.Equal(t, `{"new_ui":false}`, toggles.Value)

	owner, err := users.FindByEmail(ctx, "owner@example.com")
	require.NoError(t, err)
	assert.Equal(t, "x", owner.HashedPassword)
	assert.Equal(t, []string{model.RoleSuperAdmin}, owner.RoleNames())
}
