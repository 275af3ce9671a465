package worker

import (
	"context"
	"fmt"
	"strings"

	"github.com/planflow/planflow/internal/contract"
	"github.com/planflow/planflow/internal/plan"
)

// ExecutionResult is the outcome of running a workflow command. OK=false is
// a normal command failure, not an infrastructure error; the job fails with
// Output as the message.
type ExecutionResult struct {
	OK     bool
	Output string
}

// Executor runs a claimed job's workflow command against a plan.
type Executor interface {
	Execute(ctx context.Context, planRef string, command contract.Command) (ExecutionResult, error)
}

// PlanExecutor executes workflow commands by mutating plan state on disk.
// finish-code and done are always refused here: both attest that a human
// checked the evidence, and that attestation cannot come from a queue job.
type PlanExecutor struct {
	plans *plan.Store
}

// NewPlanExecutor creates an executor over the given plan store.
func NewPlanExecutor(plans *plan.Store) *PlanExecutor {
	return &PlanExecutor{plans: plans}
}

// Execute implements Executor.
func (e *PlanExecutor) Execute(ctx context.Context, planRef string, command contract.Command) (ExecutionResult, error) {
	resolved, err := e.plans.Resolve(planRef)
	if err != nil {
		return ExecutionResult{}, fmt.Errorf("plan '%s' not found: %w", planRef, err)
	}

	switch command {
	case contract.CommandPlan:
		return ExecutionResult{OK: true, Output: "plan command does not run inside worker."}, nil

	case contract.CommandVerify:
		quality, err := e.plans.ValidateReadyForReview(resolved.DirPath)
		if err != nil {
			return ExecutionResult{}, err
		}
		if !quality.OK {
			return ExecutionResult{Output: strings.Join(quality.Errors, "; ")}, nil
		}
		return ExecutionResult{OK: true, Output: "review gate: pass"}, nil

	case contract.CommandCode:
		phase := e.plans.Phase(resolved.DirPath)
		if phase == string(contract.PhaseCoding) {
			return ExecutionResult{OK: true, Output: "code noop in phase 'coding'"}, nil
		}
		if phase != string(contract.PhasePlanning) {
			return ExecutionResult{Output: fmt.Sprintf("Cannot start coding from phase '%s'.", phase)}, nil
		}
		if err := e.plans.StartCoding(resolved.DirPath); err != nil {
			return ExecutionResult{}, err
		}
		return ExecutionResult{OK: true, Output: "plan entered coding phase"}, nil

	case contract.CommandFix:
		phase := e.plans.Phase(resolved.DirPath)
		if phase == string(contract.PhaseFixing) {
			return ExecutionResult{OK: true, Output: "fix noop in phase 'fixing'"}, nil
		}
		if phase != string(contract.PhaseReviewing) && phase != string(contract.PhaseBlocked) {
			return ExecutionResult{Output: fmt.Sprintf("Cannot start fixing from phase '%s'.", phase)}, nil
		}
		if err := e.plans.StartFix(resolved.DirPath); err != nil {
			return ExecutionResult{}, err
		}
		return ExecutionResult{OK: true, Output: "plan entered fixing phase"}, nil

	case contract.CommandReview:
		phase := e.plans.Phase(resolved.DirPath)
		if phase == string(contract.PhaseReviewing) {
			return ExecutionResult{OK: true, Output: "review noop in phase 'reviewing'"}, nil
		}
		if phase != string(contract.PhaseAwaitingReview) {
			return ExecutionResult{Output: fmt.Sprintf("Cannot start review from phase '%s'.", phase)}, nil
		}
		if err := e.plans.StartReview(resolved.DirPath); err != nil {
			return ExecutionResult{}, err
		}
		return ExecutionResult{OK: true, Output: "plan entered reviewing phase"}, nil

	case contract.CommandFinishCode:
		return ExecutionResult{Output: "finish-code must be executed by the coding/fixing agent after work is complete."}, nil

	case contract.CommandDone:
		return ExecutionResult{Output: "done must be executed by reviewer after all TODOs are accepted."}, nil
	}

	return ExecutionResult{}, fmt.Errorf("unsupported command '%s'", command)
}
