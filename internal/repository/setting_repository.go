package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"superadmin/internal/model"
)

// SettingRepository defines persistence operations for key/value settings.
type SettingRepository interface {
	List(ctx context.Context) ([]model.Setting, error)
	FindByKey(ctx context.Context, key string) (*model.Setting, error)
	Create(ctx context.Context, setting *model.Setting) error
	Upsert(ctx context.Context, key, value string) (*model.Setting, error)
	Delete(ctx context.Context, key string) error
}

type settingRepository struct {
	db *gorm.DB
}

// NewSettingRepository builds a GORM-backed repository.
func NewSettingRepository(db *gorm.DB) SettingRepository {
	return &settingRepository{db: db}
}

func (r *settingRepository) List(ctx context.Context) ([]model.Setting, error) {
	settings := []model.Setting{}
	err := r.db.WithContext(ctx).Order("`key` ASC").Find(&settings).Error
	return settings, err
}

func (r *settingRepository) FindByKey(ctx context.Context, key string) (*model.Setting, error) {
	var setting model.Setting
	if err := r.db.WithContext(ctx).First(&setting, "`key` = ?", key).Error; err != nil {
		return nil, err
	}
	return &setting, nil
}

func (r *settingRepository) Create(ctx context.Context, setting *model.Setting) error {
	return r.db.WithContext(ctx).Create(setting).Error
}

// Upsert writes value under key, creating the row when missing.
func (r *settingRepository) Upsert(ctx context.Context, key, value string) (*model.Setting, error) {
	setting := &model.Setting{Key: key, Value: value}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(setting).Error
	if err != nil {
		return nil, err
	}
	return r.FindByKey(ctx, key)
}

func (r *settingRepository) Delete(ctx context.Context, key string) error {
	res := r.db.WithContext(ctx).Delete(&model.Setting{}, "`key` = ?", key)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
