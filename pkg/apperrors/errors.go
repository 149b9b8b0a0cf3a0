package apperrors

import "errors"

// Sentinel error kinds surfaced by the workflow services. Callers wrap them
// with context using fmt.Errorf("...: %w", ErrX) and the HTTP layer maps
// them with errors.Is.
var (
	ErrNotFound      = errors.New("not found")
	ErrForbidden     = errors.New("forbidden")
	ErrStageMismatch = errors.New("stage mismatch")
	ErrConflict      = errors.New("conflict")
	ErrInvalidAction = errors.New("invalid action")
	ErrValidation    = errors.New("validation error")
)
