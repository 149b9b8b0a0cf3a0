package models

import (
	"time"

	"github.com/pragati08ps/design-approval-system/internal/workflow"
)

// ApprovalRecord is an immutable reviewer decision on a stage.
type ApprovalRecord struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	ProjectID  uint           `gorm:"index;not null" json:"project_id"`
	Stage      workflow.Stage `gorm:"size:30;not null" json:"stage"`
	ReviewerID uint           `gorm:"index;not null" json:"reviewer_id"`
	Decision   string         `gorm:"size:20;not null" json:"status"` // approved, rejected
	ReviewedAt time.Time      `json:"reviewed_at"`
	CreatedAt  time.Time      `json:"created_at"`
}

func (ApprovalRecord) TableName() string { return "approval_records" }

// RemarkRecord is an immutable comment stamped with the artifact version
// that was current when it was written (0 if none).
type RemarkRecord struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	ProjectID     uint           `gorm:"index;not null" json:"project_id"`
	AuthorID      uint           `gorm:"index;not null" json:"user_id"`
	Stage         workflow.Stage `gorm:"size:30;not null" json:"stage"`
	Text          string         `gorm:"type:text;not null" json:"remark_text"`
	UploadVersion int            `gorm:"not null;default:0" json:"upload_version"`
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`
}

func (RemarkRecord) TableName() string { return "remark_records" }
