package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/pragati08ps/design-approval-system/internal/middleware"
	"github.com/pragati08ps/design-approval-system/internal/services"
	"github.com/pragati08ps/design-approval-system/pkg/response"
)

type ProjectHandler struct {
	projectService *services.ProjectService
	auditService   *services.AuditTrailService
}

func NewProjectHandler(projectService *services.ProjectService, auditService *services.AuditTrailService) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
		auditService:   auditService,
	}
}

// List returns paginated projects
// GET /api/projects
func (h *ProjectHandler) List(c *gin.Context) {
	var req services.ProjectListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.projectService.List(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, resp)
}

// GetByID returns a project by ID
// GET /api/projects/:id
func (h *ProjectHandler) GetByID(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	project, err := h.projectService.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, project)
}

// Create opens a new project at intake
// POST /api/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var req services.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, err := h.projectService.Create(c.Request.Context(), middleware.CurrentActor(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, project)
}

// Transition records an approve or reject decision
// POST /api/projects/:id/approve-reject
func (h *ProjectHandler) Transition(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	var req services.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.projectService.Transition(c.Request.Context(), id, middleware.CurrentActor(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// UpdatePosting sets the posted flag of a completed project
// PATCH /api/projects/:id/posting
func (h *ProjectHandler) UpdatePosting(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	var req services.UpdatePostingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, err := h.projectService.UpdatePosting(c.Request.Context(), id, middleware.CurrentActor(c), *req.Posted)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, project)
}

// Approvals lists the reviewer decisions of a project, oldest first
// GET /api/projects/:id/approvals
func (h *ProjectHandler) Approvals(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	decisions, err := h.auditService.ListDecisions(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, decisions)
}
