package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pragati08ps/design-approval-system/internal/services"
)

type SystemConfigHandler struct {
	configService *services.SystemConfigService
}

func NewSystemConfigHandler(configService *services.SystemConfigService) *SystemConfigHandler {
	return &SystemConfigHandler{configService: configService}
}

// ListByGroup returns runtime settings, e.g. ?group=tasks
// GET /api/system-configs
func (h *SystemConfigHandler) ListByGroup(c *gin.Context) {
	configs, err := h.configService.GetByGroup(c.DefaultQuery("group", "system"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, configs)
}

type updateConfigRequest struct {
	Value string `json:"value"`
}

// PUT /api/system-configs/:key
func (h *SystemConfigHandler) Update(c *gin.Context) {
	var req updateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	key := c.Param("key")
	if err := h.configService.Set(key, req.Value); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "value": req.Value})
}
