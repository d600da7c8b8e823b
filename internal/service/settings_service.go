package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"superadmin/internal/cache"
	apperrors "superadmin/internal/errors"
	"superadmin/internal/model"
	"superadmin/internal/repository"
)

const (
	settingsCacheTTL    = 5 * time.Minute
	settingsCacheAllKey = "settings:all"
	settingsCachePrefix = "settings:key:"
)

// SettingsService manages key/value settings and feature toggles.
type SettingsService interface {
	List(ctx context.Context) ([]model.Setting, error)
	Get(ctx context.Context, key string) (*model.Setting, error)
	Create(ctx context.Context, actorID uuid.UUID, key string, value json.RawMessage) (*model.Setting, error)
	Put(ctx context.Context, actorID uuid.UUID, key string, value json.RawMessage) (*model.Setting, error)
	Delete(ctx context.Context, actorID uuid.UUID, key string) error
	FeatureToggles(ctx context.Context) (map[string]interface{}, error)
	UpdateFeatureToggles(ctx context.Context, actorID uuid.UUID, toggles json.RawMessage) (map[string]interface{}, error)
}

type settingsService struct {
	repo  repository.SettingRepository
	cache *cache.Client
	audit AuditService
	log   *zap.Logger
}

// cachedSetting mirrors model.Setting with the raw stored value.
type cachedSetting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toCached(s model.Setting) cachedSetting {
	return cachedSetting{Key: s.Key, Value: s.Value, CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt}
}

func (c cachedSetting) model() model.Setting {
	return model.Setting{Key: c.Key, Value: c.Value, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt}
}

// NewSettingsService creates a new settings service. A nil cache disables caching.
func NewSettingsService(repo repository.SettingRepository, cache *cache.Client, audit AuditService, log *zap.Logger) SettingsService {
	return &settingsService{repo: repo, cache: cache, audit: audit, log: log}
}

func (s *settingsService) List(ctx context.Context) ([]model.Setting, error) {
	var cached []cachedSetting
	if s.cache.GetJSON(ctx, settingsCacheAllKey, &cached) {
		out := make([]model.Setting, 0, len(cached))
		for _, c := range cached {
			out = append(out, c.model())
		}
		return out, nil
	}

	settings, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	toStore := make([]cachedSetting, 0, len(settings))
	for _, st := range settings {
		toStore = append(toStore, toCached(st))
	}
	_ = s.cache.SetJSON(ctx, settingsCacheAllKey, toStore, settingsCacheTTL)
	return settings, nil
}

func (s *settingsService) Get(ctx context.Context, key string) (*model.Setting, error) {
	var cached cachedSetting
	if s.cache.GetJSON(ctx, settingsCachePrefix+key, &cached) {
		st := cached.model()
		return &st, nil
	}

	setting, err := s.repo.FindByKey(ctx, key)
	if err != nil {
		return nil, notFound(err, apperrors.ErrSettingNotFound)
	}
	_ = s.cache.SetJSON(ctx, settingsCachePrefix+key, toCached(*setting), settingsCacheTTL)
	return setting, nil
}

func (s *settingsService) Create(ctx context.Context, actorID uuid.UUID, key string, value json.RawMessage) (*model.Setting, error) {
	_, err := s.repo.FindByKey(ctx, key)
	switch {
	case err == nil:
		return nil, apperrors.ErrSettingExists
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("check setting: %w", err)
	}

	setting := &model.Setting{Key: key, Value: StoredValue(value)}
	if err := s.repo.Create(ctx, setting); err != nil {
		return nil, fmt.Errorf("create setting: %w", err)
	}
	s.invalidate(ctx, key)

	s.audit.Record(ctx, &actorID, model.ActionCreateSetting, model.TargetSetting, key, map[string]interface{}{"key": key, "value": setting.Value})
	return setting, nil
}

func (s *settingsService) Put(ctx context.Context, actorID uuid.UUID, key string, value json.RawMessage) (*model.Setting, error) {
	setting, err := s.repo.Upsert(ctx, key, StoredValue(value))
	if err != nil {
		return nil, fmt.Errorf("save setting: %w", err)
	}
	s.invalidate(ctx, key)

	s.audit.Record(ctx, &actorID, model.ActionUpdateSetting, model.TargetSetting, key, map[string]interface{}{"key": key, "value": setting.Value})
	return setting, nil
}

func (s *settingsService) Delete(ctx context.Context, actorID uuid.UUID, key string) error {
	if model.IsCriticalSetting(key) {
		return apperrors.ErrCriticalSetting
	}
	if err := s.repo.Delete(ctx, key); err != nil {
		return notFound(err, apperrors.ErrSettingNotFound)
	}
	s.invalidate(ctx, key)

	s.audit.Record(ctx, &actorID, model.ActionDeleteSetting, model.TargetSetting, key, map[string]string{"key": key})
	return nil
}

// FeatureToggles returns the toggle map, empty when unset or not a JSON object.
func (s *settingsService) FeatureToggles(ctx context.Context) (map[string]interface{}, error) {
	setting, err := s.Get(ctx, model.SettingFeatureToggles)
	if errors.Is(err, apperrors.ErrSettingNotFound) {
		return map[string]interface{}{}, nil
	}
	if err != nil {
		return nil, err
	}
	toggles := map[string]interface{}{}
	if err := json.Unmarshal([]byte(setting.Value), &toggles); err != nil || toggles == nil {
		return map[string]interface{}{}, nil
	}
	return toggles, nil
}

func (s *settingsService) UpdateFeatureToggles(ctx context.Context, actorID uuid.UUID, raw json.RawMessage) (map[string]interface{}, error) {
	var toggles map[string]interface{}
	if !isJSONObject(raw) || json.Unmarshal(raw, &toggles) != nil {
		return nil, apperrors.ErrInvalidFeatureToggles
	}
	encoded, err := json.Marshal(toggles)
	if err != nil {
		return nil, fmt.Errorf("encode feature toggles: %w", err)
	}
	if _, err := s.repo.Upsert(ctx, model.SettingFeatureToggles, string(encoded)); err != nil {
		return nil, fmt.Errorf("save feature toggles: %w", err)
	}
	s.invalidate(ctx, model.SettingFeatureToggles)

	s.audit.Record(ctx, &actorID, model.ActionUpdateFeatureToggles, model.TargetSetting, model.SettingFeatureToggles, toggles)
	return toggles, nil
}

func (s *settingsService) invalidate(ctx context.Context, key string) {
	_ = s.cache.Delete(ctx, settingsCacheAllKey, settingsCachePrefix+key)
}

// StoredValue converts a JSON request value to its stored text form:
// strings are stored unquoted, everything else as compact JSON.
func StoredValue(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	var str string
	if len(trimmed) > 0 && trimmed[0] == '"' && json.Unmarshal(trimmed, &str) == nil {
		return str
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

func isJSONObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
