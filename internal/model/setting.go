package model

import (
	"encoding/json"
	"time"
)

// Well-known setting keys. Critical keys cannot be deleted.
const (
	SettingFeatureToggles = "feature_toggles"
	SettingSystemConfig   = "system_config"
)

// IsCriticalSetting reports whether key is protected from deletion.
func IsCriticalSetting(key string) bool {
	return key == SettingFeatureToggles || key == SettingSystemConfig
}

// Setting is a key/value pair. Structured values are stored as JSON text.
type Setting struct {
	Key       string    `json:"key" gorm:"primaryKey;size:191"`
	Value     string    `json:"-" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// MarshalJSON parses the stored value when it is JSON.
func (s Setting) MarshalJSON() ([]byte, error) {
	type alias Setting
	value := rawOrString(s.Value)
	if value == nil {
		value = ""
	}
	return json.Marshal(struct {
		alias
		Value any `json:"value"`
	}{alias: alias(s), Value: value})
}
