package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pragati08ps/design-approval-system/internal/middleware"
	"github.com/pragati08ps/design-approval-system/internal/services"
	"github.com/pragati08ps/design-approval-system/pkg/response"
)

type AnalyticsHandler struct {
	analyticsService *services.AnalyticsService
}

func NewAnalyticsHandler(analyticsService *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

// GET /api/analytics/dashboard
func (h *AnalyticsHandler) Dashboard(c *gin.Context) {
	stats, err := h.analyticsService.Dashboard(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, stats)
}

// Timeline returns projects created per day
// GET /api/analytics/projects/timeline?days=30
func (h *AnalyticsHandler) Timeline(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil || days < 0 {
		response.BadRequest(c, "days must be a non-negative integer")
		return
	}

	points, err := h.analyticsService.ProjectTimeline(c.Request.Context(), days)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, points)
}

// GET /api/analytics/performance/user/:id
func (h *AnalyticsHandler) UserPerformance(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	perf, err := h.analyticsService.UserPerformance(c.Request.Context(), middleware.CurrentActor(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, perf)
}
