package model

import (
	"time"

	"github.com/google/uuid"
)

// PermissionLevel is a user's relationship with a single dashboard.
type PermissionLevel string

const (
	LevelViewer PermissionLevel = "viewer"
	LevelEditor PermissionLevel = "editor"
	LevelOwner  PermissionLevel = "owner"
)

// Rank places the level on the total order viewer < editor < owner.
// Unknown levels rank 0 and therefore satisfy nothing.
func (l PermissionLevel) Rank() int {
	switch l {
	case LevelViewer:
		return 1
	case LevelEditor:
		return 2
	case LevelOwner:
		return 3
	default:
		return 0
	}
}

func (l PermissionLevel) IsValid() bool {
	return l.Rank() > 0
}

// Satisfies reports whether holding l is enough for an operation that
// requires the given level.
func (l PermissionLevel) Satisfies(required PermissionLevel) bool {
	return l.IsValid() && required.IsValid() && l.Rank() >= required.Rank()
}

// DashboardAccess is an explicit grant, unique per (dashboard, user).
type DashboardAccess struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	DashboardID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_dashboard_access_user"`
	UserID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_dashboard_access_user;index"`
	Level       PermissionLevel `gorm:"type:varchar(16);not null"`
	CreatedAt   time.Time       `gorm:"autoCreateTime"`

	Dashboard Dashboard `gorm:"foreignKey:DashboardID"`
	User      User      `gorm:"foreignKey:UserID"`
}

func (DashboardAccess) TableName() string {
	return "dashboard_access"
}
