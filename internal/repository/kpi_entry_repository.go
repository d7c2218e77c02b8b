package repository

import (
	"context"
	"time"

	"kpiboard/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type KpiEntryRepository struct {
	db *gorm.DB
}

func NewKpiEntryRepository(db *gorm.DB) *KpiEntryRepository {
	return &KpiEntryRepository{db: db}
}

// Create adds a new entry. Several entries may share the same date.
func (r *KpiEntryRepository) Create(ctx context.Context, entry *model.KpiEntry) error {
	entry.Date = model.CalendarDate(entry.Date)
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *KpiEntryRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.KpiEntry, error) {
	var entry model.KpiEntry
	if err := r.db.WithContext(ctx).First(&entry, "id = ?", id).Error; err != nil {
		return nil, translate(err, ErrEntryNotFound, nil)
	}
	return &entry, nil
}

// ListByKpi returns the KPI's entries dated inside [start, end], ordered by
// date and then insertion order. Nil bounds are open.
func (r *KpiEntryRepository) ListByKpi(ctx context.Context, kpiID uuid.UUID, start, end *time.Time) ([]model.KpiEntry, error) {
	query := r.db.WithContext(ctx).Where("kpi_id = ?", kpiID)
	if start != nil {
		query = query.Where("date >= ?", model.CalendarDate(*start))
	}
	if end != nil {
		query = query.Where("date <= ?", model.CalendarDate(*end))
	}

	var entries []model.KpiEntry
	err := query.Order("date").Order("created_at").Order("id").Find(&entries).Error
	return entries, err
}

// Delete removes an entry by its ID
func (r *KpiEntryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&model.KpiEntry{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrEntryNotFound
	}
	return nil
}
