// Package worker runs the claim-execute-resolve loop against the durable
// job queue. A worker owns at most one job at a time, keeps its lease alive
// while executing, and reports the outcome through an owner-gated terminal
// transition.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/planflow/planflow/internal/contract"
	"github.com/planflow/planflow/internal/dispatch"
	"github.com/planflow/planflow/internal/plan"
	"github.com/planflow/planflow/internal/queue"
)

// PhasePublisher enqueues the follow-up jobs a plan's new phase allows
// after a job completes.
type PhasePublisher interface {
	PublishPlanPhaseJobs(ctx context.Context, planRef string) (dispatch.Result, error)
}

// Options configures a worker loop.
type Options struct {
	// Role limits the commands this worker claims. Empty means any.
	Role          contract.Role
	Worker        contract.Owner
	LeaseDuration time.Duration
	PollInterval  time.Duration
	// MaxJobs bounds the loop; 0 runs until the context is canceled. A
	// bounded loop also stops on the first empty poll.
	MaxJobs int
	// Wake cuts an idle wait short, typically fed by broker wake hints.
	// Nil means the worker relies on PollInterval alone.
	Wake <-chan struct{}
}

// Result reports what a finished loop did.
type Result struct {
	Processed int
}

// Worker claims and executes jobs from the queue.
type Worker struct {
	opts      Options
	queue     *queue.Queue
	plans     *plan.Store
	executor  Executor
	publisher PhasePublisher
	logger    *slog.Logger
}

// New creates a worker. publisher may be nil when completed jobs should not
// trigger follow-up publishing.
func New(opts Options, q *queue.Queue, plans *plan.Store, executor Executor, publisher PhasePublisher, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		opts:      opts,
		queue:     q,
		plans:     plans,
		executor:  executor,
		publisher: publisher,
		logger:    logger,
	}
}

// Run executes the worker loop until the context is canceled or MaxJobs is
// reached. Finding no work is not an error.
func (w *Worker) Run(ctx context.Context) (Result, error) {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.opts.Worker.WorkerID),
		slog.String("runtime", w.opts.Worker.Runtime),
		slog.String("role", string(w.opts.Role)),
		slog.Duration("lease_duration", w.opts.LeaseDuration),
	)

	bounded := w.opts.MaxJobs > 0
	var result Result

	for !bounded || result.Processed < w.opts.MaxJobs {
		if err := ctx.Err(); err != nil {
			w.logger.Info("Worker context canceled, stopping...")
			return result, nil
		}

		w.recoverExpiredJobs(ctx)

		job, err := w.claimNext(ctx)
		if err != nil {
			return result, err
		}
		if job == nil {
			if bounded {
				break
			}
			select {
			case <-ctx.Done():
				w.logger.Info("Worker context canceled, stopping...")
				return result, nil
			case <-w.opts.Wake:
			case <-time.After(w.opts.PollInterval):
			}
			continue
		}

		w.processJob(ctx, job)
		result.Processed++
	}

	w.logger.Info("Worker finished",
		slog.String("worker_id", w.opts.Worker.WorkerID),
		slog.Int("processed", result.Processed),
	)
	return result, nil
}

func (w *Worker) claimNext(ctx context.Context) (*contract.JobRecord, error) {
	now := time.Now().UTC()
	var commandFilter []contract.Command
	if w.opts.Role != "" {
		commandFilter = contract.RoleCommandFilters[w.opts.Role]
	}

	return w.queue.ClaimNext(ctx, queue.ClaimInput{
		Worker:         w.opts.Worker,
		LeaseExpiresAt: now.Add(w.opts.LeaseDuration),
		CommandFilter:  commandFilter,
		RoleFilter:     w.opts.Role,
		RuntimeFilter:  w.opts.Worker.Runtime,
		RequestID:      uuid.New().String(),
		At:             now,
	})
}

// recoverExpiredJobs routes every claimed or running job with a lapsed
// lease through stall and requeue so it becomes claimable again. Recovery
// conflicts between concurrent workers surface as CAS errors and are
// logged, not fatal: someone else recovered the job first.
func (w *Worker) recoverExpiredJobs(ctx context.Context) {
	jobs, err := w.queue.List(ctx, contract.ListFilter{})
	if err != nil {
		w.logger.Warn("Failed to list jobs for recovery", slog.Any("error", err))
		return
	}

	now := time.Now().UTC()
	for _, job := range jobs {
		if job.Status != contract.StatusClaimed && job.Status != contract.StatusRunning {
			continue
		}
		if job.Lease == nil || !job.Lease.Expired(now) {
			continue
		}

		stalled, err := w.queue.Stall(ctx, queue.WatchdogInput{
			JobID:     job.JobID,
			CAS:       contract.CAS{ExpectedRev: job.Rev, ExpectedStatus: job.Status},
			At:        now,
			RequestID: uuid.New().String(),
		})
		if err != nil {
			w.logger.Warn("Failed to stall expired job",
				slog.String("job_id", job.JobID),
				slog.Any("error", err),
			)
			continue
		}

		if _, err := w.queue.RequeueStalled(ctx, queue.WatchdogInput{
			JobID:     stalled.JobID,
			CAS:       contract.CAS{ExpectedRev: stalled.Rev, ExpectedStatus: contract.StatusStalled},
			At:        time.Now().UTC(),
			RequestID: uuid.New().String(),
		}); err != nil {
			w.logger.Warn("Failed to requeue stalled job",
				slog.String("job_id", stalled.JobID),
				slog.Any("error", err),
			)
			continue
		}

		w.logger.Info("Recovered expired job",
			slog.String("job_id", job.JobID),
			slog.String("previous_owner", job.Owner.WorkerID),
		)
	}
}

func (w *Worker) processJob(ctx context.Context, job *contract.JobRecord) {
	actor := w.opts.Worker.Ref()

	started, err := w.queue.Start(ctx, queue.TransitionInput{
		JobID:     job.JobID,
		Actor:     actor,
		CAS:       contract.CAS{ExpectedRev: job.Rev, ExpectedStatus: contract.StatusClaimed, ExpectedOwner: &actor},
		At:        time.Now().UTC(),
		RequestID: uuid.New().String(),
	})
	if err != nil {
		w.logger.Error("Failed to start claimed job",
			slog.String("job_id", job.JobID),
			slog.Any("error", err),
		)
		return
	}

	w.logger.Info("Processing job",
		slog.String("job_id", started.JobID),
		slog.String("plan_id", started.Target.PlanID),
		slog.String("command", string(started.Target.WorkflowCommand)),
		slog.Int("attempt", started.Attempt),
	)

	stopHeartbeat := w.startHeartbeat(ctx, started.JobID, actor)
	defer stopHeartbeat()

	execution, execErr := w.executor.Execute(ctx, started.Target.PlanID, started.Target.WorkflowCommand)

	// Stop renewing before resolution so the final CAS reads a stable rev.
	stopHeartbeat()

	if execErr != nil {
		w.failIfRunning(ctx, started.JobID, actor, execErr.Error())
		return
	}

	if !execution.OK {
		message := execution.Output
		if message == "" {
			message = "Command failed in worker."
		}
		w.failIfRunning(ctx, started.JobID, actor, message)
		return
	}

	latest, err := w.queue.GetByID(ctx, started.JobID)
	if err != nil || latest == nil {
		w.logger.Error("Job disappeared before completion", slog.String("job_id", started.JobID))
		return
	}

	completed, err := w.queue.Complete(ctx, queue.CompleteInput{
		TransitionInput: queue.TransitionInput{
			JobID:     latest.JobID,
			Actor:     actor,
			CAS:       contract.CAS{ExpectedRev: latest.Rev, ExpectedStatus: contract.StatusRunning, ExpectedOwner: &actor},
			At:        time.Now().UTC(),
			RequestID: uuid.New().String(),
		},
		Result: map[string]any{"output": execution.Output},
	})
	if err != nil {
		w.logger.Error("Failed to complete job",
			slog.String("job_id", latest.JobID),
			slog.Any("error", err),
		)
		return
	}

	w.logger.Info("Job succeeded",
		slog.String("job_id", completed.JobID),
		slog.String("output", execution.Output),
	)

	if w.publisher != nil {
		if resolved, err := w.plans.Resolve(completed.Target.PlanID); err == nil {
			if _, err := w.publisher.PublishPlanPhaseJobs(ctx, resolved.DirName); err != nil {
				w.logger.Warn("Failed to publish follow-up jobs",
					slog.String("plan", resolved.DirName),
					slog.Any("error", err),
				)
			}
		}
	}
}

// startHeartbeat renews the lease at half its duration (1s floor) until the
// returned stop function is called. Renewal reads the latest rev each tick
// and is best effort; a missed beat only risks a stall, which recovery
// handles.
func (w *Worker) startHeartbeat(ctx context.Context, jobID string, actor contract.ActorRef) func() {
	interval := w.opts.LeaseDuration / 2
	if interval < time.Second {
		interval = time.Second
	}

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				latest, err := w.queue.GetByID(ctx, jobID)
				if err != nil || latest == nil || latest.Status != contract.StatusRunning {
					continue
				}
				now := time.Now().UTC()
				if _, err := w.queue.Heartbeat(ctx, queue.HeartbeatInput{
					TransitionInput: queue.TransitionInput{
						JobID:     jobID,
						Actor:     actor,
						CAS:       contract.CAS{ExpectedRev: latest.Rev, ExpectedStatus: contract.StatusRunning, ExpectedOwner: &actor},
						At:        now,
						RequestID: uuid.New().String(),
					},
					LeaseExpiresAt: now.Add(w.opts.LeaseDuration),
				}); err != nil {
					w.logger.Debug("Heartbeat failed",
						slog.String("job_id", jobID),
						slog.Any("error", err),
					)
				}
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

func (w *Worker) failIfRunning(ctx context.Context, jobID string, actor contract.ActorRef, message string) {
	latest, err := w.queue.GetByID(ctx, jobID)
	if err != nil || latest == nil || latest.Status != contract.StatusRunning {
		return
	}

	if _, err := w.queue.Fail(ctx, queue.FailInput{
		TransitionInput: queue.TransitionInput{
			JobID:     latest.JobID,
			Actor:     actor,
			CAS:       contract.CAS{ExpectedRev: latest.Rev, ExpectedStatus: contract.StatusRunning, ExpectedOwner: &actor},
			At:        time.Now().UTC(),
			RequestID: uuid.New().String(),
		},
		Error: contract.Failure{Message: message},
	}); err != nil {
		w.logger.Error("Failed to fail job",
			slog.String("job_id", latest.JobID),
			slog.Any("error", err),
		)
		return
	}

	w.logger.Info("Job failed",
		slog.String("job_id", jobID),
		slog.String("error", message),
	)
}
