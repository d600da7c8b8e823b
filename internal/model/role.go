package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Well-known role names.
const (
	RoleSuperAdmin = "superadmin"
	RoleAdmin      = "admin"
	RoleUser       = "user"
)

// Role groups permissions and is assigned to users through user_roles.
type Role struct {
	ID          uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	Name        string    `json:"name" gorm:"uniqueIndex;size:100;not null"`
	Permissions []string  `json:"permissions" gorm:"serializer:json;type:text"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	Users []User `json:"-" gorm:"many2many:user_roles"`
}

// BeforeCreate sets UUID before creating the record.
func (r *Role) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Permissions == nil {
		r.Permissions = []string{}
	}
	return nil
}

// MarshalJSON adds the assigned users as summaries along with their count.
func (r Role) MarshalJSON() ([]byte, error) {
	type alias Role
	users := make([]UserSummary, 0, len(r.Users))
	for _, u := range r.Users {
		created := u.CreatedAt
		users = append(users, UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, CreatedAt: &created})
	}
	perms := r.Permissions
	if perms == nil {
		perms = []string{}
	}
	return json.Marshal(struct {
		alias
		Permissions []string      `json:"permissions"`
		Users       []UserSummary `json:"users"`
		UserCount   int           `json:"userCount"`
	}{alias: alias(r), Permissions: perms, Users: users, UserCount: len(users)})
}

// Permission is an entry in the permission catalog.
type Permission struct {
	ID        uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	Name      string    `json:"name" gorm:"uniqueIndex;size:100;not null"`
	CreatedAt time.Time `json:"createdAt"`
}

// BeforeCreate sets UUID before creating the record.
func (p *Permission) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
