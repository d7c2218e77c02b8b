package repository

import (
	"context"

	"kpiboard/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type KpiRepository struct {
	db *gorm.DB
}

func NewKpiRepository(db *gorm.DB) *KpiRepository {
	return &KpiRepository{db: db}
}

// Create adds a new KPI to the database
func (r *KpiRepository) Create(ctx context.Context, kpi *model.Kpi) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(kpi).Error
}

// GetByID retrieves a KPI by its ID
func (r *KpiRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Kpi, error) {
	var kpi model.Kpi
	if err := r.db.WithContext(ctx).First(&kpi, "id = ?", id).Error; err != nil {
		return nil, translate(err, ErrKpiNotFound, nil)
	}
	return &kpi, nil
}

// GetOwned retrieves all KPIs owned by a user
func (r *KpiRepository) GetOwned(ctx context.Context, ownerID uuid.UUID) ([]model.Kpi, error) {
	var kpis []model.Kpi
	err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("name").Find(&kpis).Error
	return kpis, err
}

// Update saves the editable fields of a KPI
func (r *KpiRepository) Update(ctx context.Context, kpi *model.Kpi) error {
	result := r.db.WithContext(ctx).Model(kpi).Omit(clause.Associations).
		Select("Name", "Description", "Direction", "Target", "RagRed", "RagAmber", "FormatPrefix", "FormatSuffix", "UpdatedAt").
		Updates(kpi)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrKpiNotFound
	}
	return nil
}

// Delete removes a KPI and its entries. KPIs still placed on a dashboard
// layout are refused with ErrKpiInUse.
func (r *KpiRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var refs int64
		if err := tx.Model(&model.DashboardWidget{}).Where("kpi_id = ?", id).Count(&refs).Error; err != nil {
			return err
		}
		if refs > 0 {
			return ErrKpiInUse
		}
		if err := tx.Where("kpi_id = ?", id).Delete(&model.KpiEntry{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&model.Kpi{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrKpiNotFound
		}
		return nil
	})
}
