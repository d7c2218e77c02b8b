package repository

import (
	"context"

	"kpiboard/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DashboardRepository struct {
	db *gorm.DB
}

func NewDashboardRepository(db *gorm.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// Create stores the dashboard together with its widget index.
func (r *DashboardRepository) Create(ctx context.Context, dashboard *model.Dashboard) error {
	if dashboard.Layout == nil {
		dashboard.Layout = []model.Widget{}
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(dashboard).Error; err != nil {
			return err
		}
		return replaceWidgets(tx, dashboard)
	})
}

func (r *DashboardRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Dashboard, error) {
	var dashboard model.Dashboard
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&dashboard).Error; err != nil {
		return nil, translate(err, ErrDashboardNotFound, nil)
	}
	return &dashboard, nil
}

func (r *DashboardRepository) GetOwned(ctx context.Context, ownerID uuid.UUID) ([]model.Dashboard, error) {
	var dashboards []model.Dashboard
	err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("created_at").Find(&dashboards).Error
	return dashboards, err
}

// GetShared returns dashboards the user reaches through an explicit grant.
func (r *DashboardRepository) GetShared(ctx context.Context, userID uuid.UUID) ([]model.Dashboard, error) {
	var dashboards []model.Dashboard
	err := r.db.WithContext(ctx).
		Joins("JOIN dashboard_access ON dashboard_access.dashboard_id = dashboards.id").
		Where("dashboard_access.user_id = ?", userID).
		Order("dashboards.created_at").
		Find(&dashboards).Error
	return dashboards, err
}

func (r *DashboardRepository) GetAll(ctx context.Context) ([]model.Dashboard, error) {
	var dashboards []model.Dashboard
	err := r.db.WithContext(ctx).Order("created_at").Find(&dashboards).Error
	return dashboards, err
}

// Update writes name and layout and rebuilds the widget index in the same
// transaction.
func (r *DashboardRepository) Update(ctx context.Context, dashboard *model.Dashboard) error {
	if dashboard.Layout == nil {
		dashboard.Layout = []model.Widget{}
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(dashboard).Omit(clause.Associations).Select("Name", "Layout", "UpdatedAt").Updates(dashboard)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrDashboardNotFound
		}
		return replaceWidgets(tx, dashboard)
	})
}

// Delete removes the dashboard with its grants, share tokens and widget index.
func (r *DashboardRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("dashboard_id = ?", id).Delete(&model.DashboardAccess{}).Error; err != nil {
			return err
		}
		if err := tx.Where("dashboard_id = ?", id).Delete(&model.ShareToken{}).Error; err != nil {
			return err
		}
		if err := tx.Where("dashboard_id = ?", id).Delete(&model.DashboardWidget{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&model.Dashboard{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrDashboardNotFound
		}
		return nil
	})
}

// KpiVisibleTo reports whether kpiID appears on any dashboard that userID
// owns or holds a grant on.
func (r *DashboardRepository) KpiVisibleTo(ctx context.Context, userID, kpiID uuid.UUID) (bool, error) {
	var visible bool
	err := r.db.WithContext(ctx).Raw(`
		SELECT EXISTS (
			SELECT 1
			FROM dashboard_widgets w
			JOIN dashboards d ON d.id = w.dashboard_id
			LEFT JOIN dashboard_access a ON a.dashboard_id = d.id AND a.user_id = ?
			WHERE w.kpi_id = ? AND (d.owner_id = ? OR a.id IS NOT NULL)
		)`, userID, kpiID, userID).Scan(&visible).Error
	return visible, err
}

func replaceWidgets(tx *gorm.DB, dashboard *model.Dashboard) error {
	if err := tx.Where("dashboard_id = ?", dashboard.ID).Delete(&model.DashboardWidget{}).Error; err != nil {
		return err
	}
	ids := dashboard.KpiIDs()
	if len(ids) == 0 {
		return nil
	}

	position := make(map[uuid.UUID]int, len(ids))
	for _, w := range dashboard.Layout {
		if _, ok := position[w.KpiID]; !ok {
			position[w.KpiID] = w.Position
		}
	}
	rows := make([]model.DashboardWidget, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, model.DashboardWidget{DashboardID: dashboard.ID, KpiID: id, Position: position[id]})
	}
	return tx.Create(&rows).Error
}
