package model

import (
	"time"

	"github.com/google/uuid"
)

// Role is the coarse, account-wide capability of a user.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleEditor, RoleViewer:
		return true
	}
	return false
}

type User struct {
	ID             uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	Email          string    `gorm:"uniqueIndex;not null"`
	HashedPassword string    `gorm:"not null"`
	Name           string    `gorm:"not null"`
	Role           Role      `gorm:"type:varchar(16);not null;default:viewer"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}

// IsAdmin reports whether u bypasses resource-level checks.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
