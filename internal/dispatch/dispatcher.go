// Package dispatch turns plan phases into queue jobs. It is the only
// writer that enqueues: workers and humans go through it, so every job
// carries a consistent dedupe key, role, and runtime.
package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/planflow/planflow/internal/config"
	"github.com/planflow/planflow/internal/contract"
	"github.com/planflow/planflow/internal/plan"
	"github.com/planflow/planflow/internal/queue"
)

// HintPublisher broadcasts a best-effort wake hint after a job is
// published so idle workers poll immediately instead of waiting out their
// interval. Errors are logged and swallowed; the store stays authoritative.
type HintPublisher interface {
	PublishWakeHint(ctx context.Context, target contract.Target) error
}

// Result summarizes one dispatch pass.
type Result struct {
	Published int
	Deduped   int
	Skipped   bool
}

// Dispatcher publishes workflow command jobs for plans.
type Dispatcher struct {
	cwd    string
	queue  *queue.Queue
	plans  *plan.Store
	hints  HintPublisher
	logger *slog.Logger
}

// New creates a dispatcher for the workspace at cwd. hints may be nil.
func New(cwd string, q *queue.Queue, plans *plan.Store, hints HintPublisher, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{cwd: cwd, queue: q, plans: plans, hints: hints, logger: logger}
}

// shouldPublishCommand filters what the automatic phase pass may enqueue.
// finish-code and done mark human evidence gates and review is pulled by
// the reviewer, so none of them are auto-published; fix during reviewing
// is the reviewer's explicit call.
func shouldPublishCommand(phase string, command contract.Command) bool {
	switch command {
	case contract.CommandFinishCode, contract.CommandDone, contract.CommandReview:
		return false
	}
	if phase == string(contract.PhaseReviewing) && command == contract.CommandFix {
		return false
	}
	return true
}

// EnqueuePlanCommand publishes a single explicitly requested command for a
// plan. Skipped when distributed mode is off, the command is not legal for
// the plan's phase, or a code command has no plan content to work from.
func (d *Dispatcher) EnqueuePlanCommand(ctx context.Context, planDirName string, command contract.Command) (Result, error) {
	enabled, err := config.IsDistributedEnabled(d.cwd)
	if err != nil {
		return Result{}, err
	}
	if !enabled {
		return Result{Skipped: true}, nil
	}

	state, resolved, err := d.readPlan(planDirName)
	if err != nil {
		return Result{}, err
	}
	phase := string(state.Phase)

	if !commandAllowed(phase, command) {
		d.logger.Debug("Command not allowed for phase",
			slog.String("plan", planDirName),
			slog.String("phase", phase),
			slog.String("command", string(command)),
		)
		return Result{Skipped: true}, nil
	}

	if command == contract.CommandCode {
		hasContent, err := d.plans.HasPlanContent(resolved.DirPath)
		if err != nil {
			return Result{}, err
		}
		if !hasContent {
			return Result{Skipped: true}, nil
		}
	}

	deduped, err := d.publishOne(ctx, resolved, phase, state, command)
	if err != nil {
		return Result{}, err
	}
	if deduped {
		return Result{Deduped: 1}, nil
	}
	return Result{Published: 1}, nil
}

// PublishPlanPhaseJobs publishes every auto-publishable command the plan's
// current phase allows. Called after a job completes so the next lifecycle
// step is already queued when its worker polls.
func (d *Dispatcher) PublishPlanPhaseJobs(ctx context.Context, planDirName string) (Result, error) {
	enabled, err := config.IsDistributedEnabled(d.cwd)
	if err != nil {
		return Result{}, err
	}
	if !enabled {
		return Result{Skipped: true}, nil
	}

	state, resolved, err := d.readPlan(planDirName)
	if err != nil {
		return Result{}, err
	}
	phase := string(state.Phase)

	var result Result
	for _, command := range contract.AllowedCommandsForPhase(phase) {
		if !shouldPublishCommand(phase, command) {
			continue
		}

		if command == contract.CommandCode {
			hasContent, err := d.plans.HasPlanContent(resolved.DirPath)
			if err != nil {
				return Result{}, err
			}
			if !hasContent {
				continue
			}
		}

		deduped, err := d.publishOne(ctx, resolved, phase, state, command)
		if err != nil {
			return Result{}, err
		}
		if deduped {
			result.Deduped++
		} else {
			result.Published++
		}
	}
	return result, nil
}

func (d *Dispatcher) readPlan(planRef string) (*plan.State, *plan.Resolved, error) {
	resolved, err := d.plans.Resolve(planRef)
	if err != nil {
		return nil, nil, err
	}
	state, err := d.plans.ReadState(resolved.DirPath)
	if err != nil {
		return nil, nil, err
	}
	return state, resolved, nil
}

func commandAllowed(phase string, command contract.Command) bool {
	for _, allowed := range contract.AllowedCommandsForPhase(phase) {
		if allowed == command {
			return true
		}
	}
	return false
}

func (d *Dispatcher) publishOne(ctx context.Context, resolved *plan.Resolved, phase string, state *plan.State, command contract.Command) (deduped bool, err error) {
	planID := resolved.ID
	role := ExecutorRoleForCommand(phase, command)
	runtime, err := ResolveExecutorRuntime(d.cwd, role)
	if err != nil {
		return false, err
	}

	target := contract.Target{
		EpicID:          state.EpicID,
		PlanID:          planID,
		PlanIteration:   state.Iteration,
		WorkflowCommand: command,
		ExecutorRole:    role,
		ExecutorRuntime: runtime,
	}

	scope := contract.DedupeScopeRef{Scope: contract.DedupeScopePlan, PlanID: planID}
	if state.EpicID != "" {
		scope = contract.DedupeScopeRef{Scope: contract.DedupeScopeEpic, EpicID: state.EpicID}
	}

	result, err := d.queue.Enqueue(ctx, queue.EnqueueInput{
		DedupeKey:   queue.BuildDedupeKey(target),
		DedupeScope: scope,
		Target:      target,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return false, err
	}
	if result.Deduped {
		return true, nil
	}

	d.logger.Info("Job published",
		slog.String("plan", resolved.DirName),
		slog.String("command", string(command)),
		slog.String("role", string(role)),
		slog.String("runtime", runtime),
	)

	if d.hints != nil {
		if err := d.hints.PublishWakeHint(ctx, target); err != nil {
			d.logger.Warn("Failed to publish wake hint",
				slog.String("plan", resolved.DirName),
				slog.Any("error", err),
			)
		}
	}
	return false, nil
}
