package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pragati08ps/design-approval-system/internal/lock"
	"github.com/pragati08ps/design-approval-system/internal/models"
	"github.com/pragati08ps/design-approval-system/internal/storage"
	"github.com/pragati08ps/design-approval-system/internal/workflow"
	"github.com/pragati08ps/design-approval-system/pkg/apperrors"
	"github.com/pragati08ps/design-approval-system/pkg/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type TaskService struct {
	db     *gorm.DB
	blobs  storage.BlobStore
	locker lock.Locker
	Now    func() time.Time
}

// NewTaskService shares locker with the TimerService so assignee edits and
// timer starts exclude each other per user.
func NewTaskService(db *gorm.DB, blobs storage.BlobStore, locker lock.Locker) *TaskService {
	return &TaskService{db: db, blobs: blobs, locker: locker, Now: time.Now}
}

type TaskListRequest struct {
	ListRequest
	Status    string `form:"status"`
	ProjectID uint   `form:"project_id"`
	Priority  string `form:"priority"`
}

type TaskListResponse struct {
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
	Items    []models.Task `json:"items"`
}

type CreateTaskRequest struct {
	Title          string              `json:"title" binding:"required,min=3,max=200"`
	Description    string              `json:"description"`
	ProjectID      *uint               `json:"project_id"`
	AssignedTo     []uint              `json:"assigned_to" binding:"required,min=1"`
	DueDate        string              `json:"due_date"`
	Priority       string              `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	DesignType     string              `json:"design_type"`
	AllocatedHours *float64            `json:"allocated_hours" binding:"omitempty,gte=0"`
	Checkpoints    []models.Checkpoint `json:"checkpoints"`
}

type UpdateTaskRequest struct {
	Title          *string             `json:"title" binding:"omitempty,min=3,max=200"`
	Description    *string             `json:"description"`
	AssignedTo     []uint              `json:"assigned_to"`
	DueDate        *string             `json:"due_date"`
	Priority       *string             `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	Status         *string             `json:"status" binding:"omitempty,oneof=pending in_progress completed cancelled"`
	DesignType     *string             `json:"design_type"`
	AllocatedHours *float64            `json:"allocated_hours" binding:"omitempty,gte=0"`
	Checkpoints    []models.Checkpoint `json:"checkpoints"`
}

// List returns tasks visible to the actor: everything for admins and
// managers, otherwise tasks the actor is assigned to or created.
func (s *TaskService) List(ctx context.Context, actor Actor, req *TaskListRequest) (*TaskListResponse, error) {
	req.normalize()

	var tasks []models.Task
	var total int64

	query := s.db.WithContext(ctx).Model(&models.Task{})
	if !actor.Role.Elevated() {
		assigned := s.db.Model(&models.TaskAssignee{}).Select("task_id").Where("user_id = ?", actor.UserID)
		query = query.Where("tasks.id IN (?) OR tasks.created_by = ?", assigned, actor.UserID)
	}
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.ProjectID > 0 {
		query = query.Where("project_id = ?", req.ProjectID)
	}
	if req.Priority != "" {
		query = query.Where("priority = ?", req.Priority)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	if err := query.Preload("Assignees").
		Offset(req.offset()).Limit(req.PageSize).
		Order("created_at DESC, id DESC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	for i := range tasks {
		tasks[i].FillAssignedTo()
	}

	return &TaskListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    tasks,
	}, nil
}

func (s *TaskService) GetByID(ctx context.Context, id uint, actor Actor) (*models.Task, error) {
	task, err := loadTask(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	if !canWorkOn(task, actor) {
		return nil, fmt.Errorf("task %d: %w", id, apperrors.ErrForbidden)
	}
	return task, nil
}

// Create adds a task. Standalone tasks may only be opened by roles that can
// create projects; linked tasks need an existing project.
func (s *TaskService) Create(ctx context.Context, actor Actor, req *CreateTaskRequest) (*models.Task, error) {
	if req.ProjectID == nil && !actor.Role.CanCreateProject() {
		return nil, fmt.Errorf("role %s cannot create standalone tasks: %w", actor.Role, apperrors.ErrForbidden)
	}
	title := strings.TrimSpace(req.Title)
	if len(title) < 3 {
		return nil, fmt.Errorf("%w: title must be at least 3 characters", apperrors.ErrValidation)
	}
	assignees := uniqueIDs(req.AssignedTo)
	if len(assignees) == 0 {
		return nil, fmt.Errorf("%w: at least one assignee is required", apperrors.ErrValidation)
	}
	due, err := parseDate(req.DueDate)
	if err != nil {
		return nil, err
	}
	designType, err := optionalDesignType(req.DesignType)
	if err != nil {
		return nil, err
	}
	priority := req.Priority
	if priority == "" {
		priority = "medium"
	}

	task := models.Task{
		Title:          title,
		Description:    req.Description,
		ProjectID:      req.ProjectID,
		DueDate:        due,
		Priority:       priority,
		Status:         models.TaskStatusPending,
		CreatedBy:      actor.UserID,
		DesignType:     designType,
		AllocatedHours: req.AllocatedHours,
		Checkpoints:    datatypes.JSONSlice[models.Checkpoint](req.Checkpoints),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if req.ProjectID != nil {
			var count int64
			if err := tx.Model(&models.Project{}).Where("id = ?", *req.ProjectID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return fmt.Errorf("project %d: %w", *req.ProjectID, apperrors.ErrNotFound)
			}
		}
		if err := ensureUsersExist(tx, assignees); err != nil {
			return err
		}
		if err := tx.Omit("Assignees").Create(&task).Error; err != nil {
			return err
		}
		return replaceAssignees(tx, task.ID, assignees)
	})
	if err != nil {
		return nil, err
	}

	uid := actor.UserID
	LogEntity("task", "create", fmt.Sprintf("task %q created", task.Title), &uid, "task", task.ID, map[string]interface{}{"assigned_to": assignees})
	return loadTask(s.db.WithContext(ctx), task.ID)
}

// Update edits a task. Assignees cannot change while its timer runs, and
// moving the task to completed or cancelled stops a running timer.
func (s *TaskService) Update(ctx context.Context, id uint, actor Actor, req *UpdateTaskRequest) (*models.Task, error) {
	updates := map[string]interface{}{}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if len(title) < 3 {
			return nil, fmt.Errorf("%w: title must be at least 3 characters", apperrors.ErrValidation)
		}
		updates["title"] = title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.DueDate != nil {
		due, err := parseDate(*req.DueDate)
		if err != nil {
			return nil, err
		}
		updates["due_date"] = due
		updates["overdue_at"] = nil
	}
	if req.Priority != nil {
		updates["priority"] = *req.Priority
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.DesignType != nil {
		designType, err := optionalDesignType(*req.DesignType)
		if err != nil {
			return nil, err
		}
		updates["design_type"] = designType
	}
	if req.AllocatedHours != nil {
		updates["allocated_hours"] = *req.AllocatedHours
	}
	if req.Checkpoints != nil {
		updates["checkpoints"] = datatypes.JSONSlice[models.Checkpoint](req.Checkpoints)
	}

	var assignees []uint
	if req.AssignedTo != nil {
		assignees = uniqueIDs(req.AssignedTo)
		if len(assignees) == 0 {
			return nil, fmt.Errorf("%w: at least one assignee is required", apperrors.ErrValidation)
		}
	}

	// Assignee changes take the user keys of everyone on either side so they
	// serialize with timer starts touching the same users.
	var before *models.Task
	if assignees != nil {
		current, err := loadTask(s.db.WithContext(ctx), id)
		if err != nil {
			return nil, err
		}
		if !canWorkOn(current, actor) {
			return nil, fmt.Errorf("task %d: %w", id, apperrors.ErrForbidden)
		}
		if sameIDs(assignees, current.AssignedTo) {
			assignees = nil
		} else if s.locker != nil {
			keys := make([]string, 0, len(current.AssignedTo)+len(assignees))
			for _, uid := range uniqueIDs(append(append([]uint{}, current.AssignedTo...), assignees...)) {
				keys = append(keys, lock.UserKey(uid))
			}
			release, err := lock.AcquireAll(ctx, s.locker, keys)
			if err != nil {
				return nil, err
			}
			defer release()
		}
		before = current
	}
	finishing := req.Status != nil && (*req.Status == models.TaskStatusCompleted || *req.Status == models.TaskStatusCancelled)

	var stoppedMs int64
	var stopped bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, err := loadTask(tx, id)
		if err != nil {
			return err
		}
		if !canWorkOn(task, actor) {
			return fmt.Errorf("task %d: %w", id, apperrors.ErrForbidden)
		}

		if assignees != nil {
			if !sameIDs(task.AssignedTo, before.AssignedTo) {
				return fmt.Errorf("assignees of task %d changed concurrently: %w", id, apperrors.ErrConflict)
			}
			if err := ensureUsersExist(tx, assignees); err != nil {
				return err
			}
			// Conditional on a stopped timer so a concurrent start cannot
			// leave claims behind for users no longer assigned.
			res := tx.Model(&models.Task{}).
				Where("id = ? AND is_timer_running = ?", id, false).
				Update("updated_at", s.Now())
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("%w: cannot change assignees of task %d while its timer is running", apperrors.ErrConflict, id)
			}
			if err := replaceAssignees(tx, id, assignees); err != nil {
				return err
			}
		}

		// a finished task keeps no running timer
		if finishing && task.IsTimerRunning {
			stoppedMs, stopped, err = stopTimer(tx, id, s.Now())
			if err != nil {
				return err
			}
		}

		if len(updates) > 0 {
			return tx.Model(&models.Task{}).Where("id = ?", id).Updates(updates).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if stopped {
		logger.Component("timer").Info().Uint("task_id", id).Int64("elapsed_ms", stoppedMs).Str("status", *req.Status).Msg("timer stopped by status change")
	}
	return loadTask(s.db.WithContext(ctx), id)
}

// Delete removes a task with its assignees and timer claims. Admins and
// managers only.
func (s *TaskService) Delete(ctx context.Context, id uint, actor Actor) error {
	if !actor.Role.Elevated() {
		return fmt.Errorf("delete task %d: %w", id, apperrors.ErrForbidden)
	}
	var fileHandle string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, err := loadTask(tx, id)
		if err != nil {
			return err
		}
		fileHandle = task.FileHandle
		if err := tx.Where("task_id = ?", id).Delete(&models.TimerClaim{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", id).Delete(&models.TaskAssignee{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Task{}, id).Error
	})
	if err != nil {
		return err
	}

	if fileHandle != "" {
		if _, err := s.blobs.Delete(ctx, fileHandle); err != nil {
			logger.Warn().Err(err).Uint("task_id", id).Msg("failed to delete task file")
		}
	}
	uid := actor.UserID
	LogEntity("task", "delete", fmt.Sprintf("task %d deleted", id), &uid, "task", id, nil)
	return nil
}

// AttachFile stores a deliverable for the task, replacing any previous one.
func (s *TaskService) AttachFile(ctx context.Context, id uint, actor Actor, file FileInput) (*models.Task, error) {
	if len(file.Data) == 0 {
		return nil, fmt.Errorf("%w: file is empty", apperrors.ErrValidation)
	}
	task, err := s.GetByID(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	handle, err := s.blobs.Store(ctx, file.Data, file.Filename, file.ContentType)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	if err := s.db.WithContext(ctx).Model(&models.Task{}).Where("id = ?", id).Updates(map[string]interface{}{
		"file_handle":      handle,
		"filename":         file.Filename,
		"file_uploaded_at": now,
	}).Error; err != nil {
		if _, delErr := s.blobs.Delete(context.WithoutCancel(ctx), handle); delErr != nil {
			logger.Warn().Err(delErr).Str("file_id", handle).Msg("failed to delete orphaned blob")
		}
		return nil, err
	}

	if task.FileHandle != "" {
		if _, err := s.blobs.Delete(ctx, task.FileHandle); err != nil {
			logger.Warn().Err(err).Uint("task_id", id).Msg("failed to delete replaced task file")
		}
	}
	return loadTask(s.db.WithContext(ctx), id)
}

func loadTask(db *gorm.DB, id uint) (*models.Task, error) {
	var task models.Task
	if err := db.Preload("Assignees").First(&task, id).Error; err != nil {
		return nil, notFound(err, "task %d", id)
	}
	task.FillAssignedTo()
	return &task, nil
}

// canWorkOn reports whether actor may edit or time the task.
func canWorkOn(task *models.Task, actor Actor) bool {
	return actor.Role.Elevated() || task.CreatedBy == actor.UserID || task.HasAssignee(actor.UserID)
}

func replaceAssignees(tx *gorm.DB, taskID uint, userIDs []uint) error {
	if err := tx.Where("task_id = ?", taskID).Delete(&models.TaskAssignee{}).Error; err != nil {
		return err
	}
	rows := make([]models.TaskAssignee, 0, len(userIDs))
	for _, uid := range userIDs {
		rows = append(rows, models.TaskAssignee{TaskID: taskID, UserID: uid})
	}
	return tx.Create(&rows).Error
}

func ensureUsersExist(tx *gorm.DB, userIDs []uint) error {
	var count int64
	if err := tx.Model(&models.User{}).Where("id IN ?", userIDs).Count(&count).Error; err != nil {
		return err
	}
	if int(count) != len(userIDs) {
		return fmt.Errorf("%w: one or more assigned users do not exist", apperrors.ErrValidation)
	}
	return nil
}

func optionalDesignType(raw string) (*string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	v, err := workflow.NormalizeDesignType(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sameIDs(a, b []uint) bool {
	a, b = uniqueIDs(a), uniqueIDs(b)
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
