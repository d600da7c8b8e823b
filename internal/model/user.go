package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SystemUserEmail identifies the account that owns automated audit entries.
// It is never allowed to log in and is excluded from inactivity scans.
const SystemUserEmail = "system@automated.com"

// User represents a console account.
type User struct {
	ID               uuid.UUID  `json:"id" gorm:"type:char(36);primaryKey"`
	Name             string     `json:"name" gorm:"size:255;not null"`
	Email            string     `json:"email" gorm:"uniqueIndex;size:255;not null"`
	HashedPassword   string     `json:"-" gorm:"size:255;not null"`
	IsActive         bool       `json:"isActive" gorm:"not null"`
	LastLogin        *time.Time `json:"lastLogin"`
	LastActivity     *time.Time `json:"lastActivity"`
	LastReminderSent *time.Time `json:"lastReminderSent"`
	ReminderCount    int        `json:"reminderCount" gorm:"not null;default:0"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`

	// Relations
	Roles     []Role     `json:"-" gorm:"many2many:user_roles"`
	AuditLogs []AuditLog `json:"auditLogs,omitempty" gorm:"foreignKey:ActorUserID"`
}

// BeforeCreate sets UUID before creating the record.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// RoleNames flattens the loaded roles.
func (u User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}

// HasRole reports whether one of the loaded roles matches any of names.
func (u User) HasRole(names ...string) bool {
	for _, r := range u.Roles {
		for _, n := range names {
			if r.Name == n {
				return true
			}
		}
	}
	return false
}

// IsSystem reports whether u is the automation account.
func (u User) IsSystem() bool {
	return u.Email == SystemUserEmail
}

// Summary returns the public identity of the user.
func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}

// MarshalJSON renders roles as a list of role names.
func (u User) MarshalJSON() ([]byte, error) {
	type alias User
	return json.Marshal(struct {
		alias
		Roles []string `json:"roles"`
	}{alias: alias(u), Roles: u.RoleNames()})
}

// UserSummary is the id/name/email projection of a user used in joins.
type UserSummary struct {
	ID        uuid.UUID  `json:"id" gorm:"type:char(36);primaryKey"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	CreatedAt *time.Time `json:"createdAt,omitempty" gorm:"-"`
}

// TableName maps summaries onto the users table.
func (UserSummary) TableName() string {
	return "users"
}

// UserRole is the join row between users and roles.
type UserRole struct {
	UserID    uuid.UUID `json:"userId" gorm:"type:char(36);primaryKey"`
	RoleID    uuid.UUID `json:"roleId" gorm:"type:char(36);primaryKey"`
	CreatedAt time.Time `json:"createdAt"`
}
