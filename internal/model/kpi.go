package model

import (
	"errors"
	"strings"
	"time"

	"kpiboard/internal/apperr"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Direction tells whether higher or lower values of a KPI are better.
type Direction string

const (
	HigherIsBetter Direction = "higher_is_better"
	LowerIsBetter  Direction = "lower_is_better"
)

func (d Direction) IsValid() bool {
	return d == HigherIsBetter || d == LowerIsBetter
}

type Kpi struct {
	ID           uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	OwnerID      uuid.UUID `gorm:"type:uuid;not null;index"`
	Name         string    `gorm:"not null" validate:"required,max=255"`
	Description  string
	Direction    Direction `gorm:"type:varchar(32);not null" validate:"required,oneof=higher_is_better lower_is_better"`
	Target       *float64
	RagRed       float64 `gorm:"not null" validate:"gte=0"`
	RagAmber     float64 `gorm:"not null" validate:"gte=0,nefield=RagRed"`
	FormatPrefix string  `validate:"max=16"`
	FormatSuffix string  `validate:"max=16"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Owner User `gorm:"foreignKey:OwnerID" validate:"-"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the KPI definition. RAG thresholds must differ so that
// classification is never ambiguous.
func (k *Kpi) Validate() error {
	err := validate.Struct(k)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperr.Validation("%v", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "nefield":
			msgs = append(msgs, "rag_red and rag_amber must differ")
		case "oneof":
			msgs = append(msgs, "direction must be higher_is_better or lower_is_better")
		case "gte":
			msgs = append(msgs, strings.ToLower(fe.Field())+" must be >= 0")
		default:
			msgs = append(msgs, strings.ToLower(fe.Field())+" is invalid")
		}
	}
	return apperr.Validation("%s", strings.Join(msgs, "; "))
}

// KpiEntry is one dated sample of a KPI. Several entries may share a date.
type KpiEntry struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	KpiID     uuid.UUID `gorm:"type:uuid;not null;index:idx_kpi_entries_kpi_date"`
	Date      time.Time `gorm:"type:date;not null;index:idx_kpi_entries_kpi_date"`
	Value     float64   `gorm:"not null"`
	Note      string
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// DateLayout is the calendar date format used for entry dates.
const DateLayout = "2006-01-02"

// CalendarDate strips the clock part of t, keeping its calendar date in UTC.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
