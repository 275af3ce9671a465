package router

import (
	"github.com/gin-gonic/gin"

	"github.com/planflow/planflow/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Initialize job handler
	jobHandler := handler.NewJobHandler(deps)

	// Health check endpoint backed by a database ping
	r.GET("/health", jobHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		jobs := v1.Group("/jobs")
		{
			// POST /api/v1/jobs - Enqueue a job for an explicit target
			jobs.POST("", jobHandler.EnqueueJob)

			// GET /api/v1/jobs - List jobs with filtering
			jobs.GET("", jobHandler.ListJobs)

			// GET /api/v1/jobs/:job_id - Get the full record including events
			jobs.GET("/:job_id", jobHandler.GetJob)
		}

		plans := v1.Group("/plans")
		{
			// POST /api/v1/plans/:plan/publish - Enqueue the legal commands for the plan's phase
			plans.POST("/:plan/publish", jobHandler.PublishPlan)
		}
	}

	return r
}
