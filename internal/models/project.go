package models

import (
	"time"

	"github.com/pragati08ps/design-approval-system/internal/workflow"
)

// Project is a design deliverable moving through the review pipeline.
// CurrentStage changes only through reviewer decisions or upload side effects.
type Project struct {
	ID                     uint           `gorm:"primaryKey" json:"id"`
	Name                   string         `gorm:"size:200;not null" json:"project_name"`
	ContentDescription     string         `gorm:"type:text" json:"content_description"`
	ExpectedCompletionDate *time.Time     `json:"expected_completion_date"`
	OwnerID                uint           `gorm:"index;not null" json:"digital_marketer_id"`
	CurrentStage           workflow.Stage `gorm:"size:30;index;not null" json:"current_stage"`
	DesignType             *string        `gorm:"size:30" json:"design_type"`
	Posted                 bool           `gorm:"not null;default:false" json:"posted"`
	ActualCompletionDate   *time.Time     `json:"actual_completion_date"`
	CreatedAt              time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt              time.Time      `json:"updated_at"`
}

func (Project) TableName() string { return "projects" }
