package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/pragati08ps/design-approval-system/internal/middleware"
	"github.com/pragati08ps/design-approval-system/internal/services"
	"github.com/pragati08ps/design-approval-system/pkg/response"
)

type TaskHandler struct {
	taskService  *services.TaskService
	timerService *services.TimerService
	maxBytes     int64
}

func NewTaskHandler(taskService *services.TaskService, timerService *services.TimerService, maxSizeMB int) *TaskHandler {
	return &TaskHandler{
		taskService:  taskService,
		timerService: timerService,
		maxBytes:     int64(maxSizeMB) << 20,
	}
}

// List returns the tasks visible to the caller
// GET /api/tasks
func (h *TaskHandler) List(c *gin.Context) {
	var req services.TaskListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.taskService.List(c.Request.Context(), middleware.CurrentActor(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, resp)
}

// GET /api/tasks/:id
func (h *TaskHandler) GetByID(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	task, err := h.taskService.GetByID(c.Request.Context(), id, middleware.CurrentActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, task)
}

// POST /api/tasks
func (h *TaskHandler) Create(c *gin.Context) {
	var req services.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	task, err := h.taskService.Create(c.Request.Context(), middleware.CurrentActor(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, task)
}

// PUT /api/tasks/:id
func (h *TaskHandler) Update(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	var req services.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	task, err := h.taskService.Update(c.Request.Context(), id, middleware.CurrentActor(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, task)
}

// DELETE /api/tasks/:id
func (h *TaskHandler) Delete(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.taskService.Delete(c.Request.Context(), id, middleware.CurrentActor(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"message": "task deleted successfully"})
}

// Upload attaches a deliverable file, replacing any previous one
// POST /api/tasks/:id/upload
func (h *TaskHandler) Upload(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := readUpload(c, "file", h.maxBytes)
	if err != nil {
		response.Error(c, err)
		return
	}

	task, err := h.taskService.AttachFile(c.Request.Context(), id, middleware.CurrentActor(c), file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, task)
}

// Timer starts or pauses the task timer
// POST /api/tasks/:id/timer?action=start|pause
func (h *TaskHandler) Timer(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	task, err := h.timerService.Toggle(c.Request.Context(), id, middleware.CurrentActor(c), c.Query("action"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, task)
}

// Active returns the caller's running task, or null
// GET /api/tasks/timer/active
func (h *TaskHandler) Active(c *gin.Context) {
	task, err := h.timerService.ActiveFor(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, task)
}
