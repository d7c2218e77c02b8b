// Package rag classifies KPI values into red/amber/green status.
package rag

import (
	"kpiboard/internal/apperr"
	"kpiboard/internal/model"
)

type Status string

const (
	Green Status = "green"
	Amber Status = "amber"
	Red   Status = "red"
)

// Classify places value relative to the red and amber thresholds.
//
// For higher_is_better, value >= amber is green, red <= value < amber is
// amber and anything below red is red. For lower_is_better the scale is
// mirrored: value <= red is green, red < value <= amber is amber and
// anything above amber is red.
func Classify(value float64, dir model.Direction, red, amber float64) (Status, error) {
	switch dir {
	case model.HigherIsBetter:
		switch {
		case value >= amber:
			return Green, nil
		case value >= red:
			return Amber, nil
		default:
			return Red, nil
		}
	case model.LowerIsBetter:
		switch {
		case value <= red:
			return Green, nil
		case value <= amber:
			return Amber, nil
		default:
			return Red, nil
		}
	default:
		return "", apperr.Validation("unknown direction %q", dir)
	}
}

// Evaluate classifies value against the thresholds stored on kpi.
func Evaluate(kpi *model.Kpi, value float64) (Status, error) {
	return Classify(value, kpi.Direction, kpi.RagRed, kpi.RagAmber)
}
