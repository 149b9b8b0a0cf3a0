package models

import (
	"time"

	"github.com/pragati08ps/design-approval-system/internal/workflow"
	"gorm.io/gorm"
)

// User is an account that can act on projects and tasks.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Username  string         `gorm:"uniqueIndex;size:100;not null" json:"username"`
	Password  string         `gorm:"size:255" json:"-"`
	Email     string         `gorm:"size:255;index" json:"email"`
	FullName  string         `gorm:"size:100" json:"full_name"`
	Role      workflow.Role  `gorm:"size:50;index;not null" json:"role"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	LastLogin *time.Time     `json:"last_login"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string { return "users" }
