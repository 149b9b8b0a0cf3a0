package services

import (
	"errors"
	"fmt"

	"github.com/pragati08ps/design-approval-system/internal/workflow"
	"github.com/pragati08ps/design-approval-system/pkg/apperrors"
	"gorm.io/gorm"
)

// Actor is the authenticated caller of a service operation, taken from the
// JWT claims by the handlers.
type Actor struct {
	UserID   uint
	Username string
	Role     workflow.Role
}

// notFound converts gorm's missing-row error into ErrNotFound with context.
func notFound(err error, format string, args ...interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), apperrors.ErrNotFound)
	}
	return err
}

// conflictOnDuplicate maps a unique-index violation to ErrConflict.
func conflictOnDuplicate(err error, what string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%s: %w", what, apperrors.ErrConflict)
	}
	return err
}

type ListRequest struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}

func (r *ListRequest) normalize() {
	if r.Page <= 0 {
		r.Page = 1
	}
	if r.PageSize <= 0 {
		r.PageSize = 20
	}
	if r.PageSize > 100 {
		r.PageSize = 100
	}
}

func (r *ListRequest) offset() int {
	return (r.Page - 1) * r.PageSize
}
