package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "superadmin/internal/errors"
	"superadmin/internal/model"
	"superadmin/internal/repository"
)

func newSettingsService(t *testing.T) (SettingsService, *testEnv) {
	t.Helper()
	env := newTestEnv(t)
	return NewSettingsService(repository.NewSettingRepository(env.db), nil, env.audit, zap.NewNop()), env
}

func TestStoredValue(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`"plain text"`, "plain text"},
		{`{ "a" : 1 }`, `{"a":1}`},
		{`[1, 2]`, `[1,2]`},
		{`42`, `42`},
		{`true`, `true`},
		{`null`, `null`},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, StoredValue(json.RawMessage(tt.raw)))
		})
	}
}

func TestSettingsService_CRUD(t *testing.T) {
	svc, env := newSettingsService(t)
	ctx := context.Background()
	actor := uuid.New()

	created, err := svc.Create(ctx, actor, "site_name", json.RawMessage(`"Console"`))
	require.NoError(t, err)
	assert.Equal(t, "Console", created.Value)

	_, err = svc.Create(ctx, actor, "site_name", json.RawMessage(`"Other"`))
	assert.ErrorIs(t, err, apperrors.ErrSettingExists)

	put, err := svc.Put(ctx, actor, "limits", json.RawMessage(`{"max": 5}`))
	require.NoError(t, err)
	assert.Equal(t, `{"max":5}`, put.Value)

	got, err := svc.Get(ctx, "limits")
	require.NoError(t, err)
	assert.Equal(t, `{"max":5}`, got.Value)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "limits", all[0].Key)

	require.NoError(t, svc.Delete(ctx, actor, "limits"))
	_, err = svc.Get(ctx, "limits")
	assert.ErrorIs(t, err, apperrors.ErrSettingNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, actor, "limits"), apperrors.ErrSettingNotFound)

	assert.ElementsMatch(t, []string{
		model.ActionCreateSetting, model.ActionUpdateSetting, model.ActionDeleteSetting,
	}, env.actions(t))
}

func TestSettingsService_CriticalKeys(t *testing.T) {
	svc, _ := newSettingsService(t)
	ctx := context.Background()

	for _, key := range []string{model.SettingFeatureToggles, model.SettingSystemConfig} {
		_, err := svc.Put(ctx, uuid.New(), key, json.RawMessage(`{}`))
		require.NoError(t, err)
		assert.ErrorIs(t, svc.Delete(ctx, uuid.New(), key), apperrors.ErrCriticalSetting)
	}
}

func TestSettingsService_FeatureToggles(t *testing.T) {
	svc, env := newSettingsService(t)
	ctx := context.Background()
	actor := uuid.New()

	toggles, err := svc.FeatureToggles(ctx)
	require.NoError(t, err)
	assert.Empty(t, toggles)

	_, err = svc.Put(ctx, actor, model.SettingFeatureToggles, json.RawMessage(`"not json"`))
	require.NoError(t, err)
	toggles, err = svc.FeatureToggles(ctx)
	require.NoError(t, err)
	assert.Empty(t, toggles)

	for _, bad := range []string{`[true]`, `"x"`, `42`, `null`, ``} {
		_, err = svc.UpdateFeatureToggles(ctx, actor, json.RawMessage(bad))
		assert.ErrorIs(t, err, apperrors.ErrInvalidFeatureToggles, bad)
	}

	updated, err := svc.UpdateFeatureToggles(ctx, actor, json.RawMessage(`{"new_ui": true, "beta_features": false}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"new_ui": true, "beta_features": false}, updated)

	toggles, err = svc.FeatureToggles(ctx)
	require.NoError(t, err)
	assert.Equal(t, updated, toggles)
	assert.Contains(t, env.actions(t), model.ActionUpdateFeatureToggles)
}
