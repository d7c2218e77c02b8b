package model

import (
	"time"

	"github.com/google/uuid"
)

// ShareToken is a single-use capability granting viewer access to one
// dashboard until ExpiresAt.
type ShareToken struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	DashboardID uuid.UUID `gorm:"type:uuid;not null;index"`
	Token       string    `gorm:"uniqueIndex;not null"`
	CreatedBy   uuid.UUID `gorm:"type:uuid;not null"`
	ExpiresAt   time.Time `gorm:"not null;index"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

// IsExpired reports whether the token can no longer be redeemed at now.
func (t *ShareToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
