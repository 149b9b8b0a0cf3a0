package models

import (
	"time"

	"github.com/pragati08ps/design-approval-system/internal/workflow"
)

// UploadRecord is one published version of a project artifact. Records are
// append-only; only IsCurrent flips when a newer version supersedes it.
type UploadRecord struct {
	ID          uint                 `gorm:"primaryKey" json:"id"`
	ProjectID   uint                 `gorm:"uniqueIndex:idx_upload_version;not null" json:"project_id"`
	UploadClass workflow.UploadClass `gorm:"size:20;uniqueIndex:idx_upload_version;not null" json:"upload_type"`
	Version     int                  `gorm:"uniqueIndex:idx_upload_version;not null" json:"version"`
	IsCurrent   bool                 `gorm:"index;not null;default:false" json:"is_current"`
	BlobHandle  string               `gorm:"size:64;not null" json:"file_id"`
	Filename    string               `gorm:"size:255" json:"filename"`
	ContentType string               `gorm:"size:100" json:"content_type"`
	FileSize    int64                `json:"file_size"`
	DesignType  *string              `gorm:"size:30" json:"design_type,omitempty"`
	UploadedBy  uint                 `gorm:"index" json:"uploaded_by"`
	UploadedAt  time.Time            `json:"uploaded_at"`
}

func (UploadRecord) TableName() string { return "upload_records" }

// UploadCounter hands out versions per (project, class) through an atomic
// increment, so concurrent publishers never read the same maximum.
type UploadCounter struct {
	ProjectID   uint                 `gorm:"primaryKey;autoIncrement:false"`
	UploadClass workflow.UploadClass `gorm:"primaryKey;size:20"`
	LastVersion int                  `gorm:"not null;default:0"`
}

func (UploadCounter) TableName() string { return "upload_counters" }
