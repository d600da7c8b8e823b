package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Audit actions.
const (
	ActionLogin                = "LOGIN"
	ActionLogout               = "LOGOUT"
	ActionCreateUser           = "CREATE_USER"
	ActionUpdateUser           = "UPDATE_USER"
	ActionDeleteUser           = "DELETE_USER"
	ActionCreateRole           = "CREATE_ROLE"
	ActionUpdateRole           = "UPDATE_ROLE"
	ActionDeleteRole           = "DELETE_ROLE"
	ActionAssignRole           = "ASSIGN_ROLE"
	ActionRemoveRole           = "REMOVE_ROLE"
	ActionCreateSetting        = "CREATE_SETTING"
	ActionUpdateSetting        = "UPDATE_SETTING"
	ActionDeleteSetting        = "DELETE_SETTING"
	ActionUpdateFeatureToggles = "UPDATE_FEATURE_TOGGLES"
	ActionReminderSent         = "INACTIVE_USER_REMINDER_SENT"
	ActionReminderFailed       = "INACTIVE_USER_REMINDER_FAILED"
	ActionWelcomeBackSent      = "WELCOME_BACK_EMAIL_SENT"
	ActionRemindersReset       = "USER_REMINDERS_RESET"
)

// Audit target types.
const (
	TargetUser     = "USER"
	TargetRole     = "ROLE"
	TargetUserRole = "USER_ROLE"
	TargetSetting  = "SETTING"
)

// AuditLog is an append-only record of an action taken by an actor.
type AuditLog struct {
	ID          uuid.UUID  `json:"id" gorm:"type:char(36);primaryKey"`
	ActorUserID *uuid.UUID `json:"actorUserId" gorm:"type:char(36);index"`
	Action      string     `json:"action" gorm:"size:100;not null;index"`
	TargetType  string     `json:"targetType" gorm:"size:100;not null;index"`
	TargetID    string     `json:"targetId" gorm:"size:255"`
	Details     string     `json:"-" gorm:"type:text"`
	Timestamp   time.Time  `json:"timestamp" gorm:"not null;index"`

	Actor *UserSummary `json:"actor,omitempty" gorm:"foreignKey:ActorUserID"`
}

// BeforeCreate sets UUID and timestamp before creating the record.
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}
	return nil
}

// MarshalJSON emits details as structured JSON when they parse, raw text otherwise.
func (a AuditLog) MarshalJSON() ([]byte, error) {
	type alias AuditLog
	return json.Marshal(struct {
		alias
		Details any `json:"details"`
	}{alias: alias(a), Details: rawOrString(a.Details)})
}

// UnmarshalJSON accepts the MarshalJSON form and restores details as stored text.
func (a *AuditLog) UnmarshalJSON(data []byte) error {
	type alias AuditLog
	aux := struct {
		*alias
		Details json.RawMessage `json:"details"`
	}{alias: (*alias)(a)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	a.Details = storedText(aux.Details)
	return nil
}

// storedText reverses rawOrString.
func storedText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// rawOrString keeps valid JSON text verbatim and falls back to a string.
func rawOrString(s string) any {
	if s == "" {
		return nil
	}
	if json.Valid([]byte(s)) {
		return json.RawMessage(s)
	}
	return s
}
