// Package aggregation reduces a KPI's dated entries to a single figure and
// reports calendar gaps in its series.
package aggregation

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"kpiboard/internal/apperr"
	"kpiboard/internal/model"

	"github.com/google/uuid"
)

type Type string

const (
	Sum     Type = "sum"
	Average Type = "average"
	Latest  Type = "latest"
	Min     Type = "min"
	Max     Type = "max"
	Count   Type = "count"
)

// MaxMissingDatesSpan bounds the range MissingDates will enumerate.
const MaxMissingDatesSpan = 3660

// ParseType maps a user supplied aggregation name onto a Type.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case Sum, Average, Latest, Min, Max, Count:
		return t, nil
	}
	return "", apperr.Validation("unknown aggregation type %q", s)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(model.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, apperr.Validation("malformed date %q, expected YYYY-MM-DD", s)
	}
	return d, nil
}

// EntryStore returns a KPI's entries with dates inside [start, end]; a nil
// bound is open. Entries come back ordered by date, then created_at and id.
type EntryStore interface {
	ListByKpi(ctx context.Context, kpiID uuid.UUID, start, end *time.Time) ([]model.KpiEntry, error)
}

type Engine struct {
	entries EntryStore
}

func NewEngine(entries EntryStore) *Engine {
	return &Engine{entries: entries}
}

// Aggregate applies typ to the KPI's entries inside the optional inclusive
// date window. Sum, average, min, max and latest return nil when no entry
// matches; count returns 0. Entries sharing a date are independent samples.
func (e *Engine) Aggregate(ctx context.Context, kpiID uuid.UUID, typ Type, start, end *time.Time) (*float64, error) {
	if _, err := ParseType(string(typ)); err != nil {
		return nil, err
	}
	start, end = normalizeBound(start), normalizeBound(end)
	if start != nil && end != nil && start.After(*end) {
		return nil, apperr.Validation("start date %s is after end date %s",
			start.Format(model.DateLayout), end.Format(model.DateLayout))
	}

	entries, err := e.entries.ListByKpi(ctx, kpiID, start, end)
	if err != nil {
		return nil, fmt.Errorf("list entries for kpi %s: %w", kpiID, err)
	}
	return Reduce(entries, typ), nil
}

// Reduce applies typ to entries that have already been filtered.
func Reduce(entries []model.KpiEntry, typ Type) *float64 {
	if typ == Count {
		n := float64(len(entries))
		return &n
	}
	if len(entries) == 0 {
		return nil
	}

	var result float64
	switch typ {
	case Sum, Average:
		for _, en := range entries {
			result += en.Value
		}
		if typ == Average {
			result /= float64(len(entries))
		}
	case Min:
		result = entries[0].Value
		for _, en := range entries[1:] {
			if en.Value < result {
				result = en.Value
			}
		}
	case Max:
		result = entries[0].Value
		for _, en := range entries[1:] {
			if en.Value > result {
				result = en.Value
			}
		}
	case Latest:
		result = latest(entries).Value
	default:
		return nil
	}
	return &result
}

// latest picks the entry with the greatest date. On equal dates the entry
// inserted last wins.
func latest(entries []model.KpiEntry) model.KpiEntry {
	sorted := make([]model.KpiEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		di, dj := model.CalendarDate(sorted[i].Date), model.CalendarDate(sorted[j].Date)
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})
	return sorted[len(sorted)-1]
}

// MissingDates lists every calendar date in [start, end] that has no entry.
func (e *Engine) MissingDates(ctx context.Context, kpiID uuid.UUID, start, end time.Time) ([]time.Time, error) {
	start, end = model.CalendarDate(start), model.CalendarDate(end)
	if start.After(end) {
		return nil, apperr.Validation("start date %s is after end date %s",
			start.Format(model.DateLayout), end.Format(model.DateLayout))
	}
	if days := int(end.Sub(start).Hours() / 24); days > MaxMissingDatesSpan {
		return nil, apperr.Validation("date range spans %d days, limit is %d", days, MaxMissingDatesSpan)
	}

	entries, err := e.entries.ListByKpi(ctx, kpiID, &start, &end)
	if err != nil {
		return nil, fmt.Errorf("list entries for kpi %s: %w", kpiID, err)
	}

	present := make(map[time.Time]struct{}, len(entries))
	for _, en := range entries {
		present[model.CalendarDate(en.Date)] = struct{}{}
	}

	missing := []time.Time{}
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if _, ok := present[d]; !ok {
			missing = append(missing, d)
		}
	}
	return missing, nil
}

func normalizeBound(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := model.CalendarDate(*t)
	return &d
}
