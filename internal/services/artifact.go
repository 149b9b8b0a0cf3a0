package services

import (
	"context"
	"fmt"

	"github.com/pragati08ps/design-approval-system/internal/models"
	"github.com/pragati08ps/design-approval-system/internal/storage"
	"github.com/pragati08ps/design-approval-system/internal/workflow"
	"github.com/pragati08ps/design-approval-system/pkg/apperrors"
	"github.com/pragati08ps/design-approval-system/pkg/logger"
	"gorm.io/gorm"
)

// FileInput is an uploaded file already read into memory by the handler.
type FileInput struct {
	Data        []byte
	Filename    string
	ContentType string
}

// ArtifactService turns uploads into ledger versions: it stores the bytes,
// publishes the version and cleans the blob up if the publish is refused.
type ArtifactService struct {
	db     *gorm.DB
	blobs  storage.BlobStore
	ledger *LedgerService
	events EventQueue
}

func NewArtifactService(db *gorm.DB, blobs storage.BlobStore, ledger *LedgerService, events EventQueue) *ArtifactService {
	return &ArtifactService{db: db, blobs: blobs, ledger: ledger, events: events}
}

// UploadContent publishes a new content version. Allowed for the project
// owner and digital marketers while the project is at intake or rework.
func (s *ArtifactService) UploadContent(ctx context.Context, projectID uint, actor Actor, file FileInput) (*PublishResult, error) {
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.OwnerID != actor.UserID && actor.Role != workflow.RoleDigitalMarketer {
		return nil, fmt.Errorf("content upload for project %d: %w", projectID, apperrors.ErrForbidden)
	}
	return s.publish(ctx, project, actor, workflow.UploadContent, file, nil)
}

// UploadDesign publishes a new design version. Only designers may upload,
// and only while the project is in rework.
func (s *ArtifactService) UploadDesign(ctx context.Context, projectID uint, actor Actor, designType string, file FileInput) (*PublishResult, error) {
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if actor.Role != workflow.RoleDesigner {
		return nil, fmt.Errorf("design upload for project %d: %w", projectID, apperrors.ErrForbidden)
	}
	normalized, err := workflow.NormalizeDesignType(designType)
	if err != nil {
		return nil, err
	}
	return s.publish(ctx, project, actor, workflow.UploadDesign, file, &normalized)
}

func (s *ArtifactService) publish(ctx context.Context, project *models.Project, actor Actor, class workflow.UploadClass, file FileInput, designType *string) (*PublishResult, error) {
	if len(file.Data) == 0 {
		return nil, fmt.Errorf("%w: file is empty", apperrors.ErrValidation)
	}
	// Fail fast before storing bytes; the guard re-checks inside the publish.
	if err := workflow.CheckUpload(project.CurrentStage, class); err != nil {
		return nil, err
	}

	handle, err := s.blobs.Store(ctx, file.Data, file.Filename, file.ContentType)
	if err != nil {
		return nil, err
	}

	result, err := s.ledger.PublishVersion(ctx, PublishRequest{
		ProjectID:  project.ID,
		Class:      class,
		BlobHandle: handle,
		Meta: UploadMeta{
			Filename:    file.Filename,
			ContentType: file.ContentType,
			FileSize:    int64(len(file.Data)),
			UploadedBy:  actor.UserID,
			DesignType:  designType,
		},
		Guard: func(p *models.Project) error {
			return workflow.CheckUpload(p.CurrentStage, class)
		},
	})
	if err != nil {
		if _, delErr := s.blobs.Delete(context.WithoutCancel(ctx), handle); delErr != nil {
			logger.Warn().Err(delErr).Str("file_id", handle).Msg("failed to delete orphaned blob")
		}
		return nil, err
	}

	emit(s.events, &WorkflowEvent{
		Type:        EventVersionPublished,
		ProjectID:   project.ID,
		ActorID:     actor.UserID,
		FromStage:   string(result.FromStage),
		Stage:       string(result.Project.CurrentStage),
		UploadClass: string(class),
		Version:     result.Record.Version,
	})
	return result, nil
}

// Download returns the bytes and metadata of a stored file.
func (s *ArtifactService) Download(ctx context.Context, handle string) ([]byte, *storage.BlobMeta, error) {
	return s.blobs.Retrieve(ctx, handle)
}

// Versions lists every upload of an existing project, newest first.
func (s *ArtifactService) Versions(ctx context.Context, projectID uint) ([]models.UploadRecord, error) {
	if _, err := s.loadProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.ledger.History(ctx, projectID)
}

func (s *ArtifactService) loadProject(ctx context.Context, projectID uint) (*models.Project, error) {
	var project models.Project
	if err := s.db.WithContext(ctx).First(&project, projectID).Error; err != nil {
		return nil, notFound(err, "project %d", projectID)
	}
	return &project, nil
}
