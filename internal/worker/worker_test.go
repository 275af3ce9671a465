package worker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planflow/planflow/internal/contract"
	"github.com/planflow/planflow/internal/plan"
	"github.com/planflow/planflow/internal/queue"
)

var testDBSeq atomic.Int64

type workerFixture struct {
	cwd   string
	queue *queue.Queue
	plans *plan.Store
}

func newWorkerFixture(t *testing.T) *workerFixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dsn := fmt.Sprintf("file:worker_test_%d?mode=memory&cache=shared&_txlock=immediate", testDBSeq.Add(1))
	db, err := sqlx.Connect("sqlite3", dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	q, err := queue.New(db, logger)
	require.NoError(t, err)

	cwd := t.TempDir()
	return &workerFixture{
		cwd:   cwd,
		queue: q,
		plans: plan.NewStore(cwd, logger),
	}
}

func (f *workerFixture) newWorker(opts Options) *Worker {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(opts, f.queue, f.plans, NewPlanExecutor(f.plans), nil, logger)
}

func (f *workerFixture) enqueue(t *testing.T, target contract.Target) *contract.JobRecord {
	t.Helper()

	res, err := f.queue.Enqueue(context.Background(), queue.EnqueueInput{
		DedupeKey: queue.BuildDedupeKey(target),
		Target:    target,
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	require.False(t, res.Deduped)
	return res.Job
}

func coderOptions(workerID string, maxJobs int) Options {
	return Options{
		Role:          contract.RolePlanCoder,
		Worker:        contract.Owner{WorkerID: workerID, Runtime: "opencode"},
		LeaseDuration: time.Minute,
		PollInterval:  10 * time.Millisecond,
		MaxJobs:       maxJobs,
	}
}

func TestRunProcessesCodeJob(t *testing.T) {
	f := newWorkerFixture(t)
	dir := seedPlanDir(t, f.cwd, "01-auth", plan.State{Phase: contract.PhasePlanning}, map[string]string{
		"plan.md": "# Plan\ncontent\n",
	})

	job := f.enqueue(t, contract.Target{
		PlanID:          "01",
		PlanIteration:   0,
		WorkflowCommand: contract.CommandCode,
		ExecutorRole:    contract.RolePlanCoder,
		ExecutorRuntime: "opencode",
	})

	result, err := f.newWorker(coderOptions("w-1", 1)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)

	stored, err := f.queue.GetByID(context.Background(), job.JobID)
	require.NoError(t, err)
	assert.Equal(t, contract.StatusSucceeded, stored.Status)
	assert.Equal(t, 1, stored.Attempt)
	assert.Equal(t, "plan entered coding phase", stored.Result["output"])
	assert.Nil(t, stored.Owner)

	assert.Equal(t, "coding", f.plans.Phase(dir))
}

func TestRunFailsJobOnCommandRejection(t *testing.T) {
	f := newWorkerFixture(t)
	seedPlanDir(t, f.cwd, "01-auth", plan.State{Phase: contract.PhaseReviewing}, nil)

	job := f.enqueue(t, contract.Target{
		PlanID:          "01",
		PlanIteration:   0,
		WorkflowCommand: contract.CommandCode,
		ExecutorRole:    contract.RolePlanCoder,
		ExecutorRuntime: "opencode",
	})

	result, err := f.newWorker(coderOptions("w-1", 1)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)

	stored, err := f.queue.GetByID(context.Background(), job.JobID)
	require.NoError(t, err)
	assert.Equal(t, contract.StatusFailed, stored.Status)
	require.NotNil(t, stored.Error)
	assert.Contains(t, stored.Error.Message, "Cannot start coding from phase 'reviewing'")
}

func TestRunNeverClaimsHumanGatedCommands(t *testing.T) {
	f := newWorkerFixture(t)
	seedPlanDir(t, f.cwd, "01-auth", plan.State{Phase: contract.PhaseCoding}, nil)

	job := f.enqueue(t, contract.Target{
		PlanID:          "01",
		PlanIteration:   0,
		WorkflowCommand: contract.CommandFinishCode,
		ExecutorRole:    contract.RolePlanCoder,
		ExecutorRuntime: "opencode",
	})

	result, err := f.newWorker(coderOptions("w-1", 3)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Processed)

	// The job stays queued for a human to act on.
	stored, err := f.queue.GetByID(context.Background(), job.JobID)
	require.NoError(t, err)
	assert.Equal(t, contract.StatusQueued, stored.Status)
	assert.Equal(t, 0, stored.Attempt)
}

func TestRunSkipsRuntimeMismatch(t *testing.T) {
	f := newWorkerFixture(t)
	seedPlanDir(t, f.cwd, "01-auth", plan.State{Phase: contract.PhasePlanning}, map[string]string{
		"plan.md": "content",
	})

	job := f.enqueue(t, contract.Target{
		PlanID:          "01",
		PlanIteration:   0,
		WorkflowCommand: contract.CommandCode,
		ExecutorRole:    contract.RolePlanCoder,
		ExecutorRuntime: "cursor",
	})

	result, err := f.newWorker(coderOptions("w-1", 1)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Processed)

	stored, err := f.queue.GetByID(context.Background(), job.JobID)
	require.NoError(t, err)
	assert.Equal(t, contract.StatusQueued, stored.Status)
}

func TestRunRecoversExpiredJob(t *testing.T) {
	f := newWorkerFixture(t)
	ctx := context.Background()
	seedPlanDir(t, f.cwd, "01-auth", plan.State{Phase: contract.PhasePlanning}, map[string]string{
		"plan.md": "content",
	})

	job := f.enqueue(t, contract.Target{
		PlanID:          "01",
		PlanIteration:   0,
		WorkflowCommand: contract.CommandCode,
		ExecutorRole:    contract.RolePlanCoder,
		ExecutorRuntime: "opencode",
	})

	// A first worker claims the job and vanishes; its lease is already
	// lapsed when the second worker starts.
	claimed, err := f.queue.ClaimNext(ctx, queue.ClaimInput{
		Worker:         contract.Owner{WorkerID: "w-dead", Runtime: "opencode"},
		LeaseExpiresAt: time.Now().UTC().Add(-time.Second),
		RequestID:      "req-claim-dead",
	})
	require.NoError(t, err)
	require.NotNil(t, claimed)

	result, err := f.newWorker(coderOptions("w-2", 1)).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)

	stored, err := f.queue.GetByID(ctx, job.JobID)
	require.NoError(t, err)
	assert.Equal(t, contract.StatusSucceeded, stored.Status)
	assert.Equal(t, 2, stored.Attempt)

	// History shows the takeover: stall and requeue between the claims.
	var sawStall, sawRequeue bool
	for _, evt := range stored.Events {
		switch evt.Type {
		case contract.EventStalled:
			sawStall = true
		case contract.EventRequeued:
			sawRequeue = true
		}
	}
	assert.True(t, sawStall)
	assert.True(t, sawRequeue)

	// The successful attempt belongs to the second worker.
	last := stored.Events[len(stored.Events)-1]
	assert.Equal(t, "opencode:w-2", last.Actor)
}

func TestRunWakeChannelCutsIdleWaitShort(t *testing.T) {
	f := newWorkerFixture(t)
	seedPlanDir(t, f.cwd, "01-auth", plan.State{Phase: contract.PhasePlanning}, map[string]string{
		"plan.md": "# Plan\ncontent\n",
	})

	wake := make(chan struct{}, 1)
	opts := coderOptions("w-1", 0)
	opts.PollInterval = time.Hour
	opts.Wake = wake

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan Result, 1)
	go func() {
		result, err := f.newWorker(opts).Run(ctx)
		assert.NoError(t, err)
		done <- result
	}()

	// Let the worker drain its first poll and settle into the idle wait.
	time.Sleep(50 * time.Millisecond)

	job := f.enqueue(t, contract.Target{
		PlanID:          "01",
		WorkflowCommand: contract.CommandCode,
		ExecutorRole:    contract.RolePlanCoder,
		ExecutorRuntime: "opencode",
	})
	wake <- struct{}{}

	require.Eventually(t, func() bool {
		stored, err := f.queue.GetByID(context.Background(), job.JobID)
		return err == nil && stored != nil && stored.Status == contract.StatusSucceeded
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case result := <-done:
		assert.Equal(t, 1, result.Processed)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after context cancel")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	f := newWorkerFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	opts := coderOptions("w-1", 0)

	done := make(chan Result, 1)
	go func() {
		result, err := f.newWorker(opts).Run(ctx)
		assert.NoError(t, err)
		done <- result
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case result := <-done:
		assert.Equal(t, 0, result.Processed)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after context cancel")
	}
}
