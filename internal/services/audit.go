package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pragati08ps/design-approval-system/internal/models"
	"github.com/pragati08ps/design-approval-system/internal/workflow"
	"github.com/pragati08ps/design-approval-system/pkg/apperrors"
	"gorm.io/gorm"
)

// AuditTrailService keeps the immutable decision and remark history of
// projects. It reads the ledger only to stamp remarks with a version.
type AuditTrailService struct {
	db     *gorm.DB
	events EventQueue
	Now    func() time.Time
}

func NewAuditTrailService(db *gorm.DB, events EventQueue) *AuditTrailService {
	return &AuditTrailService{db: db, events: events, Now: time.Now}
}

// RecordDecision appends an approval record using the caller's transaction.
func (s *AuditTrailService) RecordDecision(tx *gorm.DB, projectID uint, stage workflow.Stage, reviewerID uint, decision string) (*models.ApprovalRecord, error) {
	now := s.Now()
	record := models.ApprovalRecord{
		ProjectID:  projectID,
		Stage:      stage,
		ReviewerID: reviewerID,
		Decision:   decision,
		ReviewedAt: now,
		CreatedAt:  now,
	}
	if err := tx.Create(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// RecordRemark appends a remark using the caller's transaction, stamped with
// the version of the project's primary artifact as it stands now.
func (s *AuditTrailService) RecordRemark(tx *gorm.DB, projectID, authorID uint, stage workflow.Stage, text string) (*models.RemarkRecord, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: remark text is required", apperrors.ErrValidation)
	}

	version, err := primaryVersion(tx, projectID)
	if err != nil {
		return nil, err
	}

	record := models.RemarkRecord{
		ProjectID:     projectID,
		AuthorID:      authorID,
		Stage:         stage,
		Text:          text,
		UploadVersion: version,
		CreatedAt:     s.Now(),
	}
	if err := tx.Create(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

type CreateRemarkRequest struct {
	ProjectID  uint   `json:"project_id" binding:"required"`
	RemarkText string `json:"remark_text" binding:"required,max=5000"`
}

// AddRemark records a free-standing remark at the project's current stage.
func (s *AuditTrailService) AddRemark(ctx context.Context, actor Actor, req *CreateRemarkRequest) (*models.RemarkRecord, error) {
	var remark *models.RemarkRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project models.Project
		if err := tx.First(&project, req.ProjectID).Error; err != nil {
			return notFound(err, "project %d", req.ProjectID)
		}
		var err error
		remark, err = s.RecordRemark(tx, project.ID, actor.UserID, project.CurrentStage, req.RemarkText)
		return err
	})
	if err != nil {
		return nil, err
	}

	emit(s.events, &WorkflowEvent{
		Type:      EventRemarkAdded,
		ProjectID: remark.ProjectID,
		ActorID:   actor.UserID,
		Stage:     string(remark.Stage),
		Version:   remark.UploadVersion,
	})
	return remark, nil
}

// ListRemarks returns the project's remarks oldest first.
func (s *AuditTrailService) ListRemarks(ctx context.Context, projectID uint) ([]models.RemarkRecord, error) {
	if err := s.ensureProject(ctx, projectID); err != nil {
		return nil, err
	}
	var remarks []models.RemarkRecord
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC, id ASC").
		Find(&remarks).Error
	return remarks, err
}

// ListDecisions returns the project's approval records oldest first.
func (s *AuditTrailService) ListDecisions(ctx context.Context, projectID uint) ([]models.ApprovalRecord, error) {
	if err := s.ensureProject(ctx, projectID); err != nil {
		return nil, err
	}
	var decisions []models.ApprovalRecord
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC, id ASC").
		Find(&decisions).Error
	return decisions, err
}

func (s *AuditTrailService) ensureProject(ctx context.Context, projectID uint) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", projectID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("project %d: %w", projectID, apperrors.ErrNotFound)
	}
	return nil
}

// primaryVersion is the current design version if the project has any
// design upload, otherwise the current content version, otherwise 0.
func primaryVersion(db *gorm.DB, projectID uint) (int, error) {
	for _, class := range []workflow.UploadClass{workflow.UploadDesign, workflow.UploadContent} {
		record, err := currentOf(db, projectID, class)
		if err != nil {
			return 0, err
		}
		if record != nil {
			return record.Version, nil
		}
	}
	return 0, nil
}
