package models

import "time"

// BlobObject stores uploaded file bytes behind an opaque handle.
type BlobObject struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	Handle      string    `gorm:"uniqueIndex;size:64;not null" json:"file_id"`
	Filename    string    `gorm:"size:255" json:"filename"`
	ContentType string    `gorm:"size:100" json:"content_type"`
	Size        int64     `json:"size"`
	Checksum    string    `gorm:"size:64" json:"checksum"`
	Data        []byte    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

func (BlobObject) TableName() string { return "blob_objects" }
