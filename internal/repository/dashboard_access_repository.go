package repository

import (
	"context"
	"errors"

	"kpiboard/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DashboardAccessRepository struct {
	db *gorm.DB
}

func NewDashboardAccessRepository(db *gorm.DB) *DashboardAccessRepository {
	return &DashboardAccessRepository{db: db}
}

// Grant sets the user's level on the dashboard, creating the row when it
// does not exist yet.
func (r *DashboardAccessRepository) Grant(ctx context.Context, dashboardID, userID uuid.UUID, level model.PermissionLevel) error {
	access := model.DashboardAccess{
		DashboardID: dashboardID,
		UserID:      userID,
		Level:       level,
	}

	// a transaction keeps concurrent grants from racing on the unique index
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.DashboardAccess
		err := tx.Where("dashboard_id = ? AND user_id = ?", dashboardID, userID).First(&existing).Error

		if err == nil {
			return tx.Model(&existing).Update("level", level).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Omit(clause.Associations).Create(&access).Error
	})
}

// Revoke removes the user's grant. Removing a missing grant is not an error.
func (r *DashboardAccessRepository) Revoke(ctx context.Context, dashboardID, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("dashboard_id = ? AND user_id = ?", dashboardID, userID).Delete(&model.DashboardAccess{}).Error
}

// ListByDashboard returns the grants on a dashboard with their users loaded.
func (r *DashboardAccessRepository) ListByDashboard(ctx context.Context, dashboardID uuid.UUID) ([]model.DashboardAccess, error) {
	var grants []model.DashboardAccess

	err := r.db.WithContext(ctx).
		Preload("User").
		Where("dashboard_id = ?", dashboardID).
		Order("created_at").
		Find(&grants).Error

	return grants, err
}

// GetLevel returns the user's explicit level on the dashboard, or an empty
// level when there is no grant.
func (r *DashboardAccessRepository) GetLevel(ctx context.Context, dashboardID, userID uuid.UUID) (model.PermissionLevel, error) {
	var access model.DashboardAccess

	err := r.db.WithContext(ctx).
		Where("dashboard_id = ? AND user_id = ?", dashboardID, userID).
		First(&access).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return access.Level, nil
}
