package main

import (
	"github.com/gin-gonic/gin"
	"github.com/pragati08ps/design-approval-system/internal/config"
	"github.com/pragati08ps/design-approval-system/internal/middleware"
	"github.com/pragati08ps/design-approval-system/internal/workflow"
	"github.com/pragati08ps/design-approval-system/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, cfg *config.Config, svc *appServices) {
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS(cfg.Server.FrontendURL))

	loginLimiter := middleware.NewRateLimiter(1, 5)
	uploadLimiter := middleware.NewRateLimiter(2, 10)

	r.GET("/health", svc.healthHandler.CheckHealth)

	api := r.Group("/api")
	{
		api.GET("/health", svc.healthHandler.CheckHealth)
		api.POST("/auth/login", loginLimiter.Middleware(), svc.authHandler.Login)

		// SSE (token validated by the handler, EventSource cannot send headers)
		api.GET("/events", svc.sseHandler.StreamEvents)

		protected := api.Group("")
		protected.Use(middleware.AuthRequired(), middleware.AuditLog())
		{
			protected.GET("/auth/me", svc.authHandler.GetCurrentUser)
			protected.POST("/auth/logout", svc.authHandler.Logout)
			protected.POST("/auth/change-password", svc.authHandler.ChangePassword)

			// Users (list is open for picking assignees)
			protected.GET("/users", svc.userHandler.List)

			// Projects
			protected.GET("/projects", svc.projectHandler.List)
			protected.POST("/projects", svc.projectHandler.Create)
			protected.GET("/projects/:id", svc.projectHandler.GetByID)
			protected.POST("/projects/:id/approve-reject", svc.projectHandler.Transition)
			protected.PATCH("/projects/:id/posting", svc.projectHandler.UpdatePosting)
			protected.GET("/projects/:id/approvals", svc.projectHandler.Approvals)
			protected.POST("/projects/:id/upload-content", uploadLimiter.Middleware(), svc.uploadHandler.UploadContent)
			protected.POST("/projects/:id/upload-design", uploadLimiter.Middleware(), svc.uploadHandler.UploadDesign)

			// Uploads
			protected.GET("/uploads/:handle", svc.uploadHandler.Download)
			protected.GET("/uploads/preview/:handle", svc.uploadHandler.Preview)
			protected.GET("/uploads/project/:id/versions", svc.uploadHandler.Versions)

			// Remarks
			protected.POST("/remarks", svc.remarkHandler.Create)
			protected.GET("/remarks/project/:id", svc.remarkHandler.ListByProject)

			// Tasks
			protected.GET("/tasks", svc.taskHandler.List)
			protected.POST("/tasks", svc.taskHandler.Create)
			protected.GET("/tasks/timer/active", svc.taskHandler.Active)
			protected.GET("/tasks/:id", svc.taskHandler.GetByID)
			protected.PUT("/tasks/:id", svc.taskHandler.Update)
			protected.DELETE("/tasks/:id", svc.taskHandler.Delete)
			protected.POST("/tasks/:id/upload", uploadLimiter.Middleware(), svc.taskHandler.Upload)
			protected.POST("/tasks/:id/timer", svc.taskHandler.Timer)

			// Analytics
			analytics := protected.Group("/analytics")
			analytics.GET("/performance/user/:id", svc.analyticsHandler.UserPerformance)
			reporting := analytics.Group("", middleware.RoleRequired(workflow.RoleAdmin, workflow.RoleManager, workflow.RolePythonDeveloper))
			reporting.GET("/dashboard", svc.analyticsHandler.Dashboard)
			reporting.GET("/projects/timeline", svc.analyticsHandler.Timeline)
		}

		// Admin only routes
		admin := api.Group("")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired(), middleware.AuditLog())
		{
			admin.POST("/users", svc.userHandler.Create)
			admin.PUT("/users/:id", svc.userHandler.Update)
			admin.DELETE("/users/:id", svc.userHandler.Delete)

			admin.GET("/system-logs", svc.systemLogHandler.List)
			admin.GET("/system-logs/modules", svc.systemLogHandler.GetModules)
			admin.GET("/system-logs/retention", svc.systemLogHandler.GetRetentionDays)
			admin.PUT("/system-logs/retention", svc.systemLogHandler.SetRetentionDays)
			admin.POST("/system-logs/cleanup", svc.systemLogHandler.Cleanup)

			admin.GET("/system-configs", svc.systemConfigHandler.ListByGroup)
			admin.PUT("/system-configs/:key", svc.systemConfigHandler.Update)
		}
	}
}
