// Package apperr defines the error kinds shared by the authorization,
// sharing and evaluation core. Specific errors wrap one of the kinds with
// fmt.Errorf("%w: ...") so callers classify them with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrAccessDenied           = errors.New("access denied")
	ErrNotFound               = errors.New("not found")
	ErrValidation             = errors.New("validation error")
	ErrInvalidOrExpiredToken  = errors.New("invalid or expired token")
	ErrConflict               = errors.New("conflict")
)

// Validation returns an ErrValidation carrying a formatted reason.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFound returns an ErrNotFound naming the missing resource.
func NotFound(resource string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, resource)
}

// Kind reports which taxonomy entry err belongs to, or nil when err is an
// infrastructure failure outside the taxonomy.
func Kind(err error) error {
	for _, kind := range []error{
		ErrAuthenticationRequired,
		ErrAccessDenied,
		ErrNotFound,
		ErrValidation,
		ErrInvalidOrExpiredToken,
		ErrConflict,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
