package dto

type EnqueueJobRequest struct {
	PlanID          string `json:"plan_id" binding:"required"`
	PlanIteration   int    `json:"plan_iteration"`
	WorkflowCommand string `json:"workflow_command" binding:"required"`
	ExecutorRole    string `json:"executor_role"`
	ExecutorRuntime string `json:"executor_runtime"`
	EpicID          string `json:"epic_id"`
	RepoID          string `json:"repo_id"`
}

type EnqueueJobResponse struct {
	Job     JobDTO `json:"job"`
	Deduped bool   `json:"deduped"`
}

type ListJobsRequest struct {
	Status  string `form:"status"`
	PlanID  string `form:"plan_id"`
	Command string `form:"command"`
	Owner   string `form:"owner"`
}

type ListJobsResponse struct {
	Jobs []JobDTO `json:"jobs"`
}

type JobDTO struct {
	JobID           string `json:"job_id"`
	DedupeKey       string `json:"dedupe_key"`
	Status          string `json:"status"`
	Attempt         int    `json:"attempt"`
	Rev             int    `json:"rev"`
	PlanID          string `json:"plan_id"`
	PlanIteration   int    `json:"plan_iteration"`
	WorkflowCommand string `json:"workflow_command"`
	ExecutorRole    string `json:"executor_role,omitempty"`
	ExecutorRuntime string `json:"executor_runtime,omitempty"`
	EpicID          string `json:"epic_id,omitempty"`
	OwnerWorkerID   string `json:"owner_worker_id,omitempty"`
	OwnerRuntime    string `json:"owner_runtime,omitempty"`
	CreatedAt       string `json:"created_at"`
}

type PublishPlanResponse struct {
	Published int  `json:"published"`
	Deduped   int  `json:"deduped"`
	Skipped   bool `json:"skipped"`
}
