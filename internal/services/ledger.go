package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pragati08ps/design-approval-system/internal/models"
	"github.com/pragati08ps/design-approval-system/internal/workflow"
	"github.com/pragati08ps/design-approval-system/pkg/apperrors"
	"github.com/pragati08ps/design-approval-system/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerService owns the append-only version history of project artifacts.
// Content and design uploads are versioned independently per project.
type LedgerService struct {
	db  *gorm.DB
	Now func() time.Time
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{db: db, Now: time.Now}
}

type UploadMeta struct {
	Filename    string
	ContentType string
	FileSize    int64
	UploadedBy  uint
	DesignType  *string
}

type PublishRequest struct {
	ProjectID  uint
	Class      workflow.UploadClass
	BlobHandle string
	Meta       UploadMeta
	// Guard runs against the project as loaded inside the publish
	// transaction; a non-nil error aborts the publish.
	Guard func(project *models.Project) error
}

type PublishResult struct {
	Record    *models.UploadRecord `json:"upload"`
	Project   *models.Project      `json:"project"`
	FromStage workflow.Stage       `json:"from_stage"`
}

// PublishVersion appends the next version of req.Class for the project,
// marks it current and applies the upload's stage side effect, all in one
// transaction.
func (s *LedgerService) PublishVersion(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	if _, err := workflow.ParseUploadClass(string(req.Class)); err != nil {
		return nil, err
	}
	if req.BlobHandle == "" {
		return nil, fmt.Errorf("%w: missing blob handle", apperrors.ErrValidation)
	}

	var result PublishResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The counter row lock serialises publishers of the same class, so
		// the project below is read after any competing publish committed.
		version, err := nextVersion(tx, req.ProjectID, req.Class)
		if err != nil {
			return err
		}

		var project models.Project
		if err := tx.First(&project, req.ProjectID).Error; err != nil {
			return notFound(err, "project %d", req.ProjectID)
		}
		if req.Guard != nil {
			if err := req.Guard(&project); err != nil {
				return err
			}
		}

		if err := tx.Model(&models.UploadRecord{}).
			Where("project_id = ? AND upload_class = ? AND is_current = ?", project.ID, req.Class, true).
			Update("is_current", false).Error; err != nil {
			return err
		}

		now := s.Now()
		record := models.UploadRecord{
			ProjectID:   project.ID,
			UploadClass: req.Class,
			Version:     version,
			IsCurrent:   true,
			BlobHandle:  req.BlobHandle,
			Filename:    req.Meta.Filename,
			ContentType: req.Meta.ContentType,
			FileSize:    req.Meta.FileSize,
			DesignType:  req.Meta.DesignType,
			UploadedBy:  req.Meta.UploadedBy,
			UploadedAt:  now,
		}
		if err := tx.Create(&record).Error; err != nil {
			return conflictOnDuplicate(err, fmt.Sprintf("%s version %d of project %d", req.Class, version, project.ID))
		}

		updates := map[string]interface{}{
			"current_stage": workflow.AfterUpload(req.Class),
			"updated_at":    now,
		}
		if req.Class == workflow.UploadDesign && req.Meta.DesignType != nil {
			updates["design_type"] = *req.Meta.DesignType
		}
		res := tx.Model(&models.Project{}).
			Where("id = ? AND current_stage = ?", project.ID, project.CurrentStage).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("project %d changed stage during upload: %w", project.ID, apperrors.ErrConflict)
		}

		result.FromStage = project.CurrentStage
		if err := tx.First(&project, project.ID).Error; err != nil {
			return err
		}
		result.Record = &record
		result.Project = &project
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Component("ledger").Info().
		Uint("project_id", req.ProjectID).
		Str("upload_type", string(req.Class)).
		Int("version", result.Record.Version).
		Str("stage", string(result.Project.CurrentStage)).
		Msg("artifact version published")
	return &result, nil
}

// nextVersion bumps the (project, class) counter and returns the new value.
func nextVersion(tx *gorm.DB, projectID uint, class workflow.UploadClass) (int, error) {
	counter := models.UploadCounter{ProjectID: projectID, UploadClass: class}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&counter).Error; err != nil {
		return 0, err
	}

	scope := tx.Model(&models.UploadCounter{}).
		Where("project_id = ? AND upload_class = ?", projectID, class).
		Session(&gorm.Session{})
	if err := scope.UpdateColumn("last_version", gorm.Expr("last_version + ?", 1)).Error; err != nil {
		return 0, err
	}

	var version int
	if err := scope.Select("last_version").Scan(&version).Error; err != nil {
		return 0, err
	}
	return version, nil
}

// History lists every upload of the project, newest version first.
func (s *LedgerService) History(ctx context.Context, projectID uint) ([]models.UploadRecord, error) {
	var records []models.UploadRecord
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("version DESC, upload_class ASC").
		Find(&records).Error
	return records, err
}

// CurrentOf returns the current record of class, or nil when none was published.
func (s *LedgerService) CurrentOf(ctx context.Context, projectID uint, class workflow.UploadClass) (*models.UploadRecord, error) {
	return currentOf(s.db.WithContext(ctx), projectID, class)
}

func currentOf(db *gorm.DB, projectID uint, class workflow.UploadClass) (*models.UploadRecord, error) {
	var record models.UploadRecord
	err := db.Where("project_id = ? AND upload_class = ? AND is_current = ?", projectID, class, true).
		Order("version DESC").
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}
