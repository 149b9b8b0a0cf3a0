// Package storage keeps uploaded file bytes behind opaque handles. The
// workflow services only ever see handles and metadata.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pragati08ps/design-approval-system/internal/models"
	"github.com/pragati08ps/design-approval-system/pkg/apperrors"
	"gorm.io/gorm"
)

// BlobMeta describes a stored blob without its bytes.
type BlobMeta struct {
	Handle      string    `json:"file_id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Checksum    string    `json:"checksum"`
	CreatedAt   time.Time `json:"created_at"`
}

type BlobStore interface {
	Store(ctx context.Context, data []byte, filename, contentType string) (string, error)
	Retrieve(ctx context.Context, handle string) ([]byte, *BlobMeta, error)
	Metadata(ctx context.Context, handle string) (*BlobMeta, error)
	Delete(ctx context.Context, handle string) (bool, error)
}

// DBBlobStore keeps blobs in the blob_objects table of the main database.
type DBBlobStore struct {
	db *gorm.DB
}

func NewDBBlobStore(db *gorm.DB) *DBBlobStore {
	return &DBBlobStore{db: db}
}

func (s *DBBlobStore) Store(ctx context.Context, data []byte, filename, contentType string) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	sum := sha256.Sum256(data)

	obj := models.BlobObject{
		Handle:      uuid.New().String(),
		Filename:    filename,
		ContentType: contentType,
		Size:        int64(len(data)),
		Checksum:    hex.EncodeToString(sum[:]),
		Data:        data,
	}
	if err := s.db.WithContext(ctx).Create(&obj).Error; err != nil {
		return "", fmt.Errorf("store blob: %w", err)
	}
	return obj.Handle, nil
}

func (s *DBBlobStore) Retrieve(ctx context.Context, handle string) ([]byte, *BlobMeta, error) {
	var obj models.BlobObject
	if err := s.find(s.db.WithContext(ctx), handle, &obj); err != nil {
		return nil, nil, err
	}
	return obj.Data, toMeta(&obj), nil
}

func (s *DBBlobStore) Metadata(ctx context.Context, handle string) (*BlobMeta, error) {
	var obj models.BlobObject
	query := s.db.WithContext(ctx).Omit("data")
	if err := s.find(query, handle, &obj); err != nil {
		return nil, err
	}
	return toMeta(&obj), nil
}

func (s *DBBlobStore) Delete(ctx context.Context, handle string) (bool, error) {
	result := s.db.WithContext(ctx).Where("handle = ?", handle).Delete(&models.BlobObject{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *DBBlobStore) find(query *gorm.DB, handle string, obj *models.BlobObject) error {
	if _, err := uuid.Parse(handle); err != nil {
		return fmt.Errorf("file %q: %w", handle, apperrors.ErrNotFound)
	}
	err := query.Where("handle = ?", handle).First(obj).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("file %s: %w", handle, apperrors.ErrNotFound)
	}
	return err
}

func toMeta(obj *models.BlobObject) *BlobMeta {
	return &BlobMeta{
		Handle:      obj.Handle,
		Filename:    obj.Filename,
		ContentType: obj.ContentType,
		Size:        obj.Size,
		Checksum:    obj.Checksum,
		CreatedAt:   obj.CreatedAt,
	}
}
