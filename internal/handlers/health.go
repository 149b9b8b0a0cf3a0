package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/pragati08ps/design-approval-system/internal/models"
	"github.com/pragati08ps/design-approval-system/internal/services"
	"gorm.io/gorm"
)

// HealthHandler reports the state of the service's dependencies.
type HealthHandler struct {
	db *gorm.DB
}

func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// CheckHealth returns the health status of all subsystems.
// GET /api/health
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"

	dbStatus := "ok"
	sqlDB, err := h.db.DB()
	if err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	} else if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	}

	queueMode := "sync"
	if q := services.GetEventQueue(); q != nil && q.IsAsync() {
		queueMode = "async (Redis)"
	}

	var runningTimers int64
	if dbStatus == "ok" {
		h.db.Model(&models.Task{}).Where("is_timer_running = ?", true).Count(&runningTimers)
	}

	status := 200
	if overall != "healthy" {
		status = 503
	}
	c.JSON(status, gin.H{
		"status":  overall,
		"service": "design-approval",
		"components": gin.H{
			"database":       dbStatus,
			"queue_mode":     queueMode,
			"sse_clients":    services.GetSSEHub().ClientCount(),
			"running_timers": runningTimers,
		},
	})
}
