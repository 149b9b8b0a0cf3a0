package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	TaskStatusPending    = "pending"
	TaskStatusInProgress = "in_progress"
	TaskStatusCompleted  = "completed"
	TaskStatusCancelled  = "cancelled"
)

type Checkpoint struct {
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// Task is a unit of work with an optional link to a project and a
// stopwatch-style timer. A running timer has IsTimerRunning set and a
// StartTime; TimeSpentMs accumulates finished intervals.
type Task struct {
	ID             uint                            `gorm:"primaryKey" json:"id"`
	Title          string                          `gorm:"size:200;not null" json:"title"`
	Description    string                          `gorm:"type:text" json:"description"`
	ProjectID      *uint                           `gorm:"index" json:"project_id"`
	DueDate        *time.Time                      `gorm:"index" json:"due_date"`
	Priority       string                          `gorm:"size:20;default:medium" json:"priority"` // low, medium, high, urgent
	Status         string                          `gorm:"size:20;index;default:pending" json:"status"`
	CreatedBy      uint                            `gorm:"index;not null" json:"created_by"`
	DesignType     *string                         `gorm:"size:30" json:"design_type"`
	AllocatedHours *float64                        `json:"allocated_hours"`
	Checkpoints    datatypes.JSONSlice[Checkpoint] `json:"checkpoints"`
	StartTime      *time.Time                      `json:"start_time"`
	TimeSpentMs    int64                           `gorm:"not null;default:0" json:"time_spent"`
	IsTimerRunning bool                            `gorm:"index;not null;default:false" json:"is_timer_running"`
	FileHandle     string                          `gorm:"size:64" json:"file_id,omitempty"`
	Filename       string                          `gorm:"size:255" json:"filename,omitempty"`
	FileUploadedAt *time.Time                      `json:"uploaded_at,omitempty"`
	OverdueAt      *time.Time                      `json:"-"`
	Assignees      []TaskAssignee                  `gorm:"foreignKey:TaskID" json:"-"`
	AssignedTo     []uint                          `gorm:"-" json:"assigned_to"`
	CreatedAt      time.Time                       `json:"created_at"`
	UpdatedAt      time.Time                       `json:"updated_at"`
}

func (Task) TableName() string { return "tasks" }

// FillAssignedTo copies the loaded assignee rows into AssignedTo.
func (t *Task) FillAssignedTo() {
	t.AssignedTo = make([]uint, 0, len(t.Assignees))
	for _, a := range t.Assignees {
		t.AssignedTo = append(t.AssignedTo, a.UserID)
	}
}

// HasAssignee reports whether userID is among the loaded assignees.
func (t *Task) HasAssignee(userID uint) bool {
	for _, a := range t.Assignees {
		if a.UserID == userID {
			return true
		}
	}
	return false
}

type TaskAssignee struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	TaskID uint `gorm:"uniqueIndex:idx_task_assignee;not null" json:"task_id"`
	UserID uint `gorm:"uniqueIndex:idx_task_assignee;index:idx_task_assignees_user;not null" json:"user_id"`
}

func (TaskAssignee) TableName() string { return "task_assignees" }

// TimerClaim marks that a user's timer is held by a running task. The
// unique user index keeps at most one running timer per user at the
// storage level.
type TimerClaim struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	TaskID    uint      `gorm:"index;not null" json:"task_id"`
	ClaimedAt time.Time `json:"claimed_at"`
}

func (TimerClaim) TableName() string { return "timer_claims" }
