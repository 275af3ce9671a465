package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/planflow/planflow/internal/api/dto"
	"github.com/planflow/planflow/internal/contract"
	"github.com/planflow/planflow/internal/plan"
	"github.com/planflow/planflow/internal/queue"
)

func toJobDTO(job *contract.JobRecord) dto.JobDTO {
	out := dto.JobDTO{
		JobID:           job.JobID,
		DedupeKey:       job.DedupeKey,
		Status:          string(job.Status),
		Attempt:         job.Attempt,
		Rev:             job.Rev,
		PlanID:          job.Target.PlanID,
		PlanIteration:   job.Target.PlanIteration,
		WorkflowCommand: string(job.Target.WorkflowCommand),
		ExecutorRole:    string(job.Target.ExecutorRole),
		ExecutorRuntime: job.Target.ExecutorRuntime,
		EpicID:          job.Target.EpicID,
		CreatedAt:       job.CreatedAt().UTC().Format(time.RFC3339Nano),
	}
	if job.Owner != nil {
		out.OwnerWorkerID = job.Owner.WorkerID
		out.OwnerRuntime = job.Owner.Runtime
	}
	return out
}

// EnqueueJob handles POST /api/v1/jobs
// Enqueues a job for an explicit target. Dedupe makes repeats safe: the
// existing record comes back with deduped=true.
func (h *JobHandler) EnqueueJob(c *gin.Context) {
	var req dto.EnqueueJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	if !contract.IsKnownCommand(req.WorkflowCommand) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "unknown workflow_command '" + req.WorkflowCommand + "'",
		})
		return
	}
	if req.ExecutorRole != "" && !contract.IsKnownRole(req.ExecutorRole) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "unknown executor_role '" + req.ExecutorRole + "'",
		})
		return
	}
	if req.PlanIteration < 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "plan_iteration must not be negative",
		})
		return
	}

	target := contract.Target{
		RepoID:          req.RepoID,
		EpicID:          req.EpicID,
		PlanID:          req.PlanID,
		PlanIteration:   req.PlanIteration,
		WorkflowCommand: contract.Command(req.WorkflowCommand),
		ExecutorRole:    contract.Role(req.ExecutorRole),
		ExecutorRuntime: req.ExecutorRuntime,
	}

	scope := contract.DedupeScopeRef{Scope: contract.DedupeScopePlan, PlanID: req.PlanID}
	if req.EpicID != "" {
		scope = contract.DedupeScopeRef{Scope: contract.DedupeScopeEpic, EpicID: req.EpicID}
	}

	result, err := h.queue.Enqueue(c.Request.Context(), queue.EnqueueInput{
		DedupeKey:   queue.BuildDedupeKey(target),
		DedupeScope: scope,
		Target:      target,
		CreatedAt:   time.Now().UTC(),
		RequestID:   c.GetHeader("X-Request-Id"),
	})
	if err != nil {
		h.logger.Error("Failed to enqueue job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to enqueue job",
		})
		return
	}

	c.JSON(http.StatusOK, dto.EnqueueJobResponse{
		Job:     toJobDTO(result.Job),
		Deduped: result.Deduped,
	})
}

// GetJob handles GET /api/v1/jobs/:job_id
// Returns the full record including the event history.
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID := c.Param("job_id")

	if _, err := uuid.Parse(jobID); err != nil {
		h.logger.Error("Invalid job_id format", slog.String("job_id", jobID), slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	job, err := h.queue.GetByID(c.Request.Context(), jobID)
	if err != nil {
		h.logger.Error("Failed to get job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get job",
		})
		return
	}
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "job not found",
		})
		return
	}

	c.JSON(http.StatusOK, job)
}

// ListJobs handles GET /api/v1/jobs
// Lists jobs with optional filtering, oldest first.
func (h *JobHandler) ListJobs(c *gin.Context) {
	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.Status != "" && !contract.IsKnownStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "unknown status '" + req.Status + "'",
		})
		return
	}
	if req.Command != "" && !contract.IsKnownCommand(req.Command) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "unknown command '" + req.Command + "'",
		})
		return
	}

	jobs, err := h.queue.List(c.Request.Context(), contract.ListFilter{
		Status:          contract.Status(req.Status),
		OwnerWorkerID:   req.Owner,
		PlanID:          req.PlanID,
		WorkflowCommand: contract.Command(req.Command),
	})
	if err != nil {
		h.logger.Error("Failed to list jobs", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list jobs",
		})
		return
	}

	response := dto.ListJobsResponse{Jobs: make([]dto.JobDTO, len(jobs))}
	for i, job := range jobs {
		response.Jobs[i] = toJobDTO(job)
	}
	c.JSON(http.StatusOK, response)
}

// PublishPlan handles POST /api/v1/plans/:plan/publish
// Runs the dispatcher's phase pass for one plan.
func (h *JobHandler) PublishPlan(c *gin.Context) {
	planRef := c.Param("plan")

	h.logger.Info("PublishPlan called",
		slog.String("plan", planRef),
	)

	result, err := h.dispatcher.PublishPlanPhaseJobs(c.Request.Context(), planRef)
	if err != nil {
		if errors.Is(err, plan.ErrPlanNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "plan not found",
			})
			return
		}
		h.logger.Error("Failed to publish plan jobs",
			slog.String("plan", planRef),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to publish plan jobs",
		})
		return
	}

	c.JSON(http.StatusOK, dto.PublishPlanResponse{
		Published: result.Published,
		Deduped:   result.Deduped,
		Skipped:   result.Skipped,
	})
}
