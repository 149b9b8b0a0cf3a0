package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/pragati08ps/design-approval-system/internal/middleware"
	"github.com/pragati08ps/design-approval-system/internal/services"
	"github.com/pragati08ps/design-approval-system/pkg/response"
)

type RemarkHandler struct {
	auditService *services.AuditTrailService
}

func NewRemarkHandler(auditService *services.AuditTrailService) *RemarkHandler {
	return &RemarkHandler{auditService: auditService}
}

// POST /api/remarks
func (h *RemarkHandler) Create(c *gin.Context) {
	var req services.CreateRemarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	remark, err := h.auditService.AddRemark(c.Request.Context(), middleware.CurrentActor(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, remark)
}

// GET /api/remarks/project/:id
func (h *RemarkHandler) ListByProject(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	remarks, err := h.auditService.ListRemarks(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, remarks)
}
