package model

import (
	"time"

	"github.com/google/uuid"
)

// Widget is one entry of a dashboard layout. Position orders widgets
// on the dashboard.
type Widget struct {
	KpiID    uuid.UUID `json:"kpi_id"`
	Position int       `json:"position"`
	Type     string    `json:"type,omitempty"`
	Title    string    `json:"title,omitempty"`
}

type Dashboard struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	Name      string    `gorm:"not null"`
	Layout    []Widget  `gorm:"type:jsonb;serializer:json;not null"`
	OwnerID   uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Owner User `gorm:"foreignKey:OwnerID"`
}

// KpiIDs returns the distinct KPI ids referenced by the layout in layout order.
func (d *Dashboard) KpiIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(d.Layout))
	ids := make([]uuid.UUID, 0, len(d.Layout))
	for _, w := range d.Layout {
		if _, ok := seen[w.KpiID]; ok {
			continue
		}
		seen[w.KpiID] = struct{}{}
		ids = append(ids, w.KpiID)
	}
	return ids
}

// DashboardWidget indexes which KPIs a dashboard layout references. Rows
// are rewritten in the same transaction as the layout they mirror.
type DashboardWidget struct {
	DashboardID uuid.UUID `gorm:"type:uuid;primaryKey"`
	KpiID       uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	Position    int       `gorm:"not null"`
}
