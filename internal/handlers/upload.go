package handlers

import (
	"fmt"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pragati08ps/design-approval-system/internal/middleware"
	"github.com/pragati08ps/design-approval-system/internal/services"
	"github.com/pragati08ps/design-approval-system/pkg/response"
)

type UploadHandler struct {
	artifactService *services.ArtifactService
	maxBytes        int64
}

func NewUploadHandler(artifactService *services.ArtifactService, maxSizeMB int) *UploadHandler {
	return &UploadHandler{
		artifactService: artifactService,
		maxBytes:        int64(maxSizeMB) << 20,
	}
}

// UploadContent publishes a new content version
// POST /api/projects/:id/upload-content
func (h *UploadHandler) UploadContent(c *gin.Context) {
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

	result, err := h.artifactService.UploadContent(c.Request.Context(), id, middleware.CurrentActor(c), file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// UploadDesign publishes a new design version
// POST /api/projects/:id/upload-design
func (h *UploadHandler) UploadDesign(c *gin.Context) {
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

	result, err := h.artifactService.UploadDesign(c.Request.Context(), id, middleware.CurrentActor(c), c.PostForm("design_type"), file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Download sends a stored file as an attachment
// GET /api/uploads/:handle
func (h *UploadHandler) Download(c *gin.Context) {
	h.serve(c, "attachment")
}

// Preview sends a stored file for inline display
// GET /api/uploads/preview/:handle
func (h *UploadHandler) Preview(c *gin.Context) {
	h.serve(c, "inline")
}

func (h *UploadHandler) serve(c *gin.Context, disposition string) {
	data, meta, err := h.artifactService.Download(c.Request.Context(), c.Param("handle"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": meta.Filename}))
	c.Header("Content-Length", fmt.Sprintf("%d", len(data)))
	c.Data(http.StatusOK, meta.ContentType, data)
}

// Versions lists every upload of a project, newest first
// GET /api/uploads/project/:id/versions
func (h *UploadHandler) Versions(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	records, err := h.artifactService.Versions(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, records)
}
