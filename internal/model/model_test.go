package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, v any) map[string]any {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestUserJSON(t *testing.T) {
	u := &User{
		ID:             uuid.New(),
		Name:           "Ada",
		Email:          "ada@example.com",
		HashedPassword: "secret-hash",
		IsActive:       true,
		Roles:          []Role{{Name: RoleAdmin}, {Name: RoleUser}},
	}

	out := decode(t, u)
	assert.Equal(t, []any{"admin", "user"}, out["roles"])
	assert.NotContains(t, out, "hashedPassword")
	assert.NotContains(t, out, "HashedPassword")
	assert.NotContains(t, out, "auditLogs")
	assert.Equal(t, true, out["isActive"])
	assert.Nil(t, out["lastLogin"])

	noRoles := decode(t, User{Name: "Bob"})
	assert.Equal(t, []any{}, noRoles["roles"])
}

func TestUserHelpers(t *testing.T) {
	u := User{Email: SystemUserEmail, Roles: []Role{{Name: RoleSuperAdmin}}}
	assert.True(t, u.IsSystem())
	assert.True(t, u.HasRole(RoleAdmin, RoleSuperAdmin))
	assert.False(t, u.HasRole(RoleAdmin))
	assert.Equal(t, []string{RoleSuperAdmin}, u.RoleNames())
}

func TestRoleJSON(t *testing.T) {
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	r := Role{
		Name:  RoleAdmin,
		Users: []User{{ID: uuid.New(), Name: "Ada", Email: "ada@example.com", CreatedAt: created}},
	}

	out := decode(t, r)
	assert.Equal(t, []any{}, out["permissions"])
	assert.EqualValues(t, 1, out["userCount"])
	users := out["users"].([]any)
	require.Len(t, users, 1)
	first := users[0].(map[string]any)
	assert.Equal(t, "Ada", first["name"])
	assert.Equal(t, "2024-03-01T00:00:00Z", first["createdAt"])
}

func TestAuditLogDetails(t *testing.T) {
	tests := []struct {
		name    string
		details string
		want    any
	}{
		{name: "object", details: `{"email":"a@b.c"}`, want: map[string]any{"email": "a@b.c"}},
		{name: "plain text", details: "manual note", want: "manual note"},
		{name: "empty", details: "", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := decode(t, AuditLog{Action: ActionLogin, Details: tt.details})
			assert.Equal(t, tt.want, out["details"])
			assert.Equal(t, "LOGIN", out["action"])
		})
	}
}

func TestSettingValue(t *testing.T) {
	out := decode(t, Setting{Key: SettingFeatureToggles, Value: `{"new_ui":true}`})
	assert.Equal(t, map[string]any{"new_ui": true}, out["value"])

	out = decode(t, Setting{Key: "site_name", Value: "SuperAdmin"})
	assert.Equal(t, "SuperAdmin", out["value"])

	assert.True(t, IsCriticalSetting(SettingSystemConfig))
	assert.False(t, IsCriticalSetting("site_name"))
}

func TestAuditLogRoundTrip(t *testing.T) {
	actor := uuid.New()
	in := AuditLog{
		ID:          uuid.New(),
		ActorUserID: &actor,
		Action:      ActionCreateRole,
		TargetType:  TargetRole,
		Details:     `{"name":"ops"}`,
		Timestamp:   time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		Actor:       &UserSummary{ID: actor, Name: "Ada", Email: "ada@example.com"},
	}

	raw, err := json.Marshal(in)
	require.NoError(t, err)
	var out AuditLog
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in, out)

	raw, err = json.Marshal(AuditLog{Details: "plain words"})
	require.NoError(t, err)
	out = AuditLog{}
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "plain words", out.Details)
}
