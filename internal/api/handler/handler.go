package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/planflow/planflow/internal/dispatch"
	"github.com/planflow/planflow/internal/queue"
	"github.com/planflow/planflow/shared/sqlite"
)

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger     *slog.Logger
	DBClient   *sqlite.Client
	Queue      *queue.Queue
	Dispatcher *dispatch.Dispatcher
}

// JobHandler handles job-related HTTP requests
type JobHandler struct {
	logger     *slog.Logger
	dbClient   *sqlite.Client
	queue      *queue.Queue
	dispatcher *dispatch.Dispatcher
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger:     deps.Logger,
		dbClient:   deps.DBClient,
		queue:      deps.Queue,
		dispatcher: deps.Dispatcher,
	}
}

// Health handles GET /health
// Reports unhealthy when the backing database stops answering.
func (h *JobHandler) Health(c *gin.Context) {
	if err := h.dbClient.HealthCheck(c.Request.Context()); err != nil {
		h.logger.Error("Database health check failed", slog.String("error", err.Error()))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"service": "planflow-api-service",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "planflow-api-service",
	})
}
