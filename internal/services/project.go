package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pragati08ps/design-approval-system/internal/models"
	"github.com/pragati08ps/design-approval-system/internal/workflow"
	"github.com/pragati08ps/design-approval-system/pkg/apperrors"
	"github.com/pragati08ps/design-approval-system/pkg/logger"
	"gorm.io/gorm"
)

// errStageMoved marks a lost compare-and-swap on current_stage.
var errStageMoved = errors.New("stage moved")

type ProjectService struct {
	db     *gorm.DB
	audit  *AuditTrailService
	events EventQueue
	Now    func() time.Time
}

func NewProjectService(db *gorm.DB, audit *AuditTrailService, events EventQueue) *ProjectService {
	return &ProjectService{db: db, audit: audit, events: events, Now: time.Now}
}

type ProjectListRequest struct {
	ListRequest
	Name    string `form:"name"`
	Stage   string `form:"stage"`
	OwnerID uint   `form:"digital_marketer_id"`
}

type ProjectListResponse struct {
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
	Items    []models.Project `json:"items"`
}

type CreateProjectRequest struct {
	Name                   string `json:"project_name" binding:"required,min=1,max=200"`
	ContentDescription     string `json:"content_description"`
	ExpectedCompletionDate string `json:"expected_completion_date"`
}

type TransitionRequest struct {
	Action  string `json:"action" binding:"required"`
	Remarks string `json:"remarks"`
}

type TransitionResult struct {
	Project  *models.Project        `json:"project"`
	Decision *models.ApprovalRecord `json:"approval"`
	Remark   *models.RemarkRecord   `json:"remark,omitempty"`
}

type UpdatePostingRequest struct {
	Posted *bool `json:"posted" binding:"required"`
}

// List returns paginated projects, newest first
func (s *ProjectService) List(ctx context.Context, req *ProjectListRequest) (*ProjectListResponse, error) {
	req.normalize()

	var projects []models.Project
	var total int64

	query := s.db.WithContext(ctx).Model(&models.Project{})

	if req.Name != "" {
		query = query.Where("name LIKE ?", "%"+req.Name+"%")
	}
	if req.Stage != "" {
		stage, err := workflow.ParseStage(req.Stage)
		if err != nil {
			return nil, err
		}
		query = query.Where("current_stage = ?", stage)
	}
	if req.OwnerID > 0 {
		query = query.Where("owner_id = ?", req.OwnerID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	if err := query.Offset(req.offset()).Limit(req.PageSize).Order("created_at DESC, id DESC").Find(&projects).Error; err != nil {
		return nil, err
	}

	return &ProjectListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    projects,
	}, nil
}

func (s *ProjectService) GetByID(ctx context.Context, id uint) (*models.Project, error) {
	var project models.Project
	if err := s.db.WithContext(ctx).First(&project, id).Error; err != nil {
		return nil, notFound(err, "project %d", id)
	}
	return &project, nil
}

// Create opens a project at intake owned by the caller
func (s *ProjectService) Create(ctx context.Context, actor Actor, req *CreateProjectRequest) (*models.Project, error) {
	if !actor.Role.CanCreateProject() {
		return nil, fmt.Errorf("role %s cannot create projects: %w", actor.Role, apperrors.ErrForbidden)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: project_name is required", apperrors.ErrValidation)
	}
	expected, err := parseDate(req.ExpectedCompletionDate)
	if err != nil {
		return nil, err
	}

	project := models.Project{
		Name:                   name,
		ContentDescription:     req.ContentDescription,
		ExpectedCompletionDate: expected,
		OwnerID:                actor.UserID,
		CurrentStage:           workflow.StageIntake,
	}
	if err := s.db.WithContext(ctx).Create(&project).Error; err != nil {
		return nil, err
	}

	uid := actor.UserID
	LogEntity("project", "create", fmt.Sprintf("project %q created", project.Name), &uid, "project", project.ID, nil)
	return &project, nil
}

// Transition applies an approve or reject decision to the project's current
// stage. The stage change, the approval record and the optional remark are
// written together; a concurrent decision that moved the stage first makes
// this one fail instead of being applied to the wrong stage.
func (s *ProjectService) Transition(ctx context.Context, projectID uint, actor Actor, req *TransitionRequest) (*TransitionResult, error) {
	action, err := workflow.ParseAction(strings.ToLower(strings.TrimSpace(req.Action)))
	if err != nil {
		return nil, err
	}

	var result TransitionResult
	var from workflow.Stage
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project models.Project
		if err := tx.First(&project, projectID).Error; err != nil {
			return notFound(err, "project %d", projectID)
		}
		from = project.CurrentStage

		next, err := workflow.RequestTransition(from, actor.Role, action)
		if err != nil {
			return err
		}

		now := s.Now()
		updates := map[string]interface{}{
			"current_stage": next,
			"updated_at":    now,
		}
		if next.Terminal() {
			updates["actual_completion_date"] = now
		}
		res := tx.Model(&models.Project{}).
			Where("id = ? AND current_stage = ?", project.ID, from).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errStageMoved
		}

		result.Decision, err = s.audit.RecordDecision(tx, project.ID, from, actor.UserID, action.Decision())
		if err != nil {
			return err
		}
		if strings.TrimSpace(req.Remarks) != "" {
			result.Remark, err = s.audit.RecordRemark(tx, project.ID, actor.UserID, from, req.Remarks)
			if err != nil {
				return err
			}
		}

		if err := tx.First(&project, project.ID).Error; err != nil {
			return err
		}
		result.Project = &project
		return nil
	})
	if errors.Is(err, errStageMoved) {
		return nil, s.explainLostRace(ctx, projectID, actor, action)
	}
	if err != nil {
		return nil, err
	}

	logger.Info().
		Uint("project_id", projectID).
		Uint("user_id", actor.UserID).
		Str("action", string(action)).
		Str("from_stage", string(from)).
		Str("stage", string(result.Project.CurrentStage)).
		Msg("project stage changed")

	emit(s.events, &WorkflowEvent{
		Type:      EventStageChanged,
		ProjectID: projectID,
		ActorID:   actor.UserID,
		FromStage: string(from),
		Stage:     string(result.Project.CurrentStage),
		Message:   action.Decision(),
	})
	return &result, nil
}

// explainLostRace re-evaluates the decision against the stage that won. If
// the policy now refuses it, that refusal is the answer; otherwise the
// caller simply lost the race.
func (s *ProjectService) explainLostRace(ctx context.Context, projectID uint, actor Actor, action workflow.Action) error {
	project, err := s.GetByID(ctx, projectID)
	if err != nil {
		return err
	}
	if _, err := workflow.RequestTransition(project.CurrentStage, actor.Role, action); err != nil {
		return err
	}
	return fmt.Errorf("project %d was updated concurrently: %w", projectID, apperrors.ErrConflict)
}

// UpdatePosting flips the posted flag of a completed project.
func (s *ProjectService) UpdatePosting(ctx context.Context, projectID uint, actor Actor, posted bool) (*models.Project, error) {
	project, err := s.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.OwnerID != actor.UserID && actor.Role != workflow.RoleDigitalMarketer && !actor.Role.Elevated() {
		return nil, fmt.Errorf("posting of project %d: %w", projectID, apperrors.ErrForbidden)
	}

	res := s.db.WithContext(ctx).Model(&models.Project{}).
		Where("id = ? AND current_stage = ?", projectID, workflow.StageCompleted).
		Updates(map[string]interface{}{"posted": posted, "updated_at": s.Now()})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: project %d is not completed", apperrors.ErrStageMismatch, projectID)
	}

	uid := actor.UserID
	LogEntity("project", "posting", fmt.Sprintf("posted set to %t", posted), &uid, "project", projectID, nil)
	return s.GetByID(ctx, projectID)
}

// parseDate accepts YYYY-MM-DD or RFC 3339; empty means no date.
func parseDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: invalid date %q", apperrors.ErrValidation, raw)
}
