package repository

import (
	"errors"
	"fmt"

	"kpiboard/internal/apperr"

	"gorm.io/gorm"
)

// Common repository errors
var (
	ErrUserNotFound       = fmt.Errorf("%w: user", apperr.ErrNotFound)
	ErrDashboardNotFound  = fmt.Errorf("%w: dashboard", apperr.ErrNotFound)
	ErrKpiNotFound        = fmt.Errorf("%w: kpi", apperr.ErrNotFound)
	ErrEntryNotFound      = fmt.Errorf("%w: kpi entry", apperr.ErrNotFound)
	ErrShareTokenNotFound = fmt.Errorf("%w: share token", apperr.ErrNotFound)

	// ErrShareTokenUnavailable is returned when a token is absent, already
	// redeemed or past its expiry.
	ErrShareTokenUnavailable = fmt.Errorf("%w: share token is absent or expired", apperr.ErrInvalidOrExpiredToken)

	ErrEmailTaken     = fmt.Errorf("%w: email already registered", apperr.ErrConflict)
	ErrTokenCollision = fmt.Errorf("%w: share token already exists", apperr.ErrConflict)
	ErrKpiInUse       = fmt.Errorf("%w: kpi is referenced by a dashboard layout", apperr.ErrConflict)
)

// translate maps driver level failures onto repository errors. notFound is
// used for gorm.ErrRecordNotFound, conflict for unique violations.
func translate(err, notFound, conflict error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound) && notFound != nil:
		return notFound
	case errors.Is(err, gorm.ErrDuplicatedKey) && conflict != nil:
		return conflict
	default:
		return err
	}
}
