package models

import (
	"time"

	"github.com/google/uuid"
)

// Role names are globally unique and case-sensitive.
type Role struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null;uniqueIndex:idx_roles_name" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserRole links users to roles. The composite primary key makes a
// duplicate assignment a constraint violation rather than a silent no-op.
type UserRole struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	RoleID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"role_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (UserRole) TableName() string {
	return "user_roles"
}

// RoleAssignment is one (user, role) tuple from the batched membership
// query. Never persisted; it only carries query results.
type RoleAssignment struct {
	UserID   uuid.UUID `gorm:"column:user_id"`
	RoleID   uuid.UUID `gorm:"column:role_id"`
	RoleName string    `gorm:"column:role_name"`
}
