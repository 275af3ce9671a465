// Package queue implements the durable job queue: a single-file SQLite
// store shared by every worker process and the dispatcher. Each mutating
// operation is one write transaction, so claim-and-mutate is atomic at the
// storage layer and concurrent claimers can never take the same job.
package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/planflow/planflow/internal/contract"
)

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	job_id TEXT PRIMARY KEY,
	contract_version INTEGER NOT NULL,
	dedupe_key TEXT NOT NULL UNIQUE,
	payload_json TEXT NOT NULL,
	status TEXT NOT NULL,
	attempt INTEGER NOT NULL,
	rev INTEGER NOT NULL,
	plan_id TEXT NOT NULL,
	workflow_command TEXT NOT NULL,
	executor_role TEXT,
	executor_runtime TEXT,
	created_at INTEGER NOT NULL,
	owner_worker_id TEXT,
	owner_runtime TEXT,
	lease_expires_at INTEGER
);
CREATE INDEX IF NOT EXISTS idx_jobs_status_role_runtime_created
	ON jobs (status, executor_role, executor_runtime, created_at);
CREATE INDEX IF NOT EXISTS idx_jobs_owner_worker
	ON jobs (owner_worker_id);
CREATE INDEX IF NOT EXISTS idx_jobs_plan_command
	ON jobs (plan_id, workflow_command);

CREATE TABLE IF NOT EXISTS job_events (
	job_id TEXT NOT NULL,
	event_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	type TEXT NOT NULL,
	from_status TEXT NOT NULL,
	to_status TEXT NOT NULL,
	at TEXT NOT NULL,
	actor TEXT NOT NULL,
	request_id TEXT,
	PRIMARY KEY (job_id, event_id)
);
CREATE INDEX IF NOT EXISTS idx_job_events_job_seq
	ON job_events (job_id, seq);
`

// Queue is the durable job store. Safe for use from multiple processes;
// SQLite's write lock plus the immediate transaction mode serialize
// conflicting writers.
type Queue struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// New prepares the schema and returns a queue over the given database.
func New(db *sqlx.DB, logger *slog.Logger) (*Queue, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to ensure queue schema: %w", err)
	}
	return &Queue{db: db, logger: logger}, nil
}

// EnqueueInput collects the fields needed to create a job.
type EnqueueInput struct {
	DedupeKey   string
	DedupeScope contract.DedupeScopeRef
	Target      contract.Target
	CreatedAt   time.Time
	RequestID   string
}

// EnqueueResult reports the created or pre-existing job.
type EnqueueResult struct {
	Job     *contract.JobRecord
	Deduped bool
}

// Enqueue creates a queued job for the target, or returns the existing
// record unchanged with Deduped=true when the dedupe key is already taken.
func (q *Queue) Enqueue(ctx context.Context, in EnqueueInput) (EnqueueResult, error) {
	createdAt := in.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var out EnqueueResult
	err := q.withTx(ctx, func(tx *sqlx.Tx) error {
		existing, err := q.getByDedupeKey(tx, in.DedupeKey)
		if err != nil {
			return err
		}
		if existing != nil {
			out = EnqueueResult{Job: existing, Deduped: true}
			return nil
		}

		job := &contract.JobRecord{
			JobID:           uuid.New().String(),
			ContractVersion: contract.SupportedContractVersion,
			DedupeKey:       in.DedupeKey,
			Target:          in.Target,
			Status:          contract.StatusQueued,
			Attempt:         0,
			Rev:             1,
			Events: []contract.Event{contract.BuildEvent(contract.BuildEventInput{
				EventID:    uuid.New().String(),
				Action:     contract.ActionEnqueue,
				FromStatus: contract.StatusQueued,
				ToStatus:   contract.StatusQueued,
				At:         createdAt,
				Actor:      "dispatcher",
				RequestID:  in.RequestID,
			})},
		}

		if err := q.persistJob(tx, job); err != nil {
			return err
		}
		out = EnqueueResult{Job: job, Deduped: false}
		return nil
	})
	if err != nil {
		return EnqueueResult{}, err
	}

	q.logger.Info("Job enqueued",
		slog.String("job_id", out.Job.JobID),
		slog.String("dedupe_key", in.DedupeKey),
		slog.String("dedupe_scope", string(in.DedupeScope.Scope)),
		slog.Bool("deduped", out.Deduped),
	)
	return out, nil
}

// ClaimInput parameterizes a filtered claim.
type ClaimInput struct {
	Worker         contract.Owner
	LeaseExpiresAt time.Time
	CommandFilter  []contract.Command
	RoleFilter     contract.Role
	RuntimeFilter  string
	ExpectedStatus contract.Status // optional: restrict to queued or stalled
	RequestID      string
	At             time.Time
}

// ClaimNext atomically claims the oldest claimable job matching every
// supplied filter. Returns (nil, nil) when nothing matches; "no work" is
// not an error.
func (q *Queue) ClaimNext(ctx context.Context, in ClaimInput) (*contract.JobRecord, error) {
	at := in.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	var claimed *contract.JobRecord
	err := q.withTx(ctx, func(tx *sqlx.Tx) error {
		candidate, err := q.pickNextJob(tx, in)
		if err != nil || candidate == nil {
			return err
		}

		actor := in.Worker.Ref()
		next, err := buildNext(candidate, contract.ActionClaimNext, contract.StatusClaimed, &actor, in.RequestID, false)
		if err != nil {
			return err
		}
		owner := in.Worker
		next.Owner = &owner
		next.Lease = &contract.Lease{ExpiresAt: in.LeaseExpiresAt, RenewedAt: at}
		next.Attempt = candidate.Attempt + 1
		next.Events = append(next.Events, contract.BuildEvent(contract.BuildEventInput{
			EventID:    uuid.New().String(),
			Action:     contract.ActionClaimNext,
			FromStatus: candidate.Status,
			ToStatus:   contract.StatusClaimed,
			At:         at,
			Actor:      actor.String(),
			RequestID:  in.RequestID,
		}))

		if err := q.persistJob(tx, next); err != nil {
			return err
		}
		claimed = next
		return nil
	})
	if err != nil || claimed == nil {
		return nil, err
	}

	q.logger.Info("Job claimed",
		slog.String("job_id", claimed.JobID),
		slog.String("worker_id", in.Worker.WorkerID),
		slog.String("runtime", in.Worker.Runtime),
		slog.Int("attempt", claimed.Attempt),
	)
	return claimed, nil
}

// TransitionInput carries the shared fields of every explicit transition.
type TransitionInput struct {
	JobID     string
	Actor     contract.ActorRef
	CAS       contract.CAS
	At        time.Time
	RequestID string
}

// Start moves a claimed job to running. Owner-gated.
func (q *Queue) Start(ctx context.Context, in TransitionInput) (*contract.JobRecord, error) {
	return q.applyOwnerTransition(ctx, contract.ActionStart, contract.StatusRunning, in, nil)
}

// HeartbeatInput extends a transition with the renewed lease expiry.
type HeartbeatInput struct {
	TransitionInput
	LeaseExpiresAt time.Time
}

// Heartbeat renews the lease of a claimed or running job without changing
// status or attempt. Monotonic expiry is deliberately not enforced: the
// lease's only writer is the owner itself, and the watchdog treats whatever
// is stored as authoritative.
func (q *Queue) Heartbeat(ctx context.Context, in HeartbeatInput) (*contract.JobRecord, error) {
	return q.applyOwnerTransition(ctx, contract.ActionHeartbeat, "", in.TransitionInput, func(next *contract.JobRecord) {
		next.Lease = &contract.Lease{ExpiresAt: in.LeaseExpiresAt, RenewedAt: in.At}
	})
}

// CompleteInput attaches the execution result to a terminal transition.
type CompleteInput struct {
	TransitionInput
	Result          map[string]any
	IdempotentRetry bool
}

// Complete moves a running job to succeeded, attaching the result and
// clearing owner and lease. Repeating it on a succeeded job is legal only
// with IdempotentRetry set, and does not advance rev.
func (q *Queue) Complete(ctx context.Context, in CompleteInput) (*contract.JobRecord, error) {
	return q.applyTerminal(ctx, contract.ActionComplete, contract.StatusSucceeded, in.TransitionInput, in.IdempotentRetry, func(next *contract.JobRecord) {
		next.Result = in.Result
		next.Owner = nil
		next.Lease = nil
	})
}

// FailInput attaches the failure to a terminal transition.
type FailInput struct {
	TransitionInput
	Error           contract.Failure
	IdempotentRetry bool
}

// Fail moves a running job to failed, attaching the error and clearing
// owner and lease. Same idempotent-repeat rules as Complete.
func (q *Queue) Fail(ctx context.Context, in FailInput) (*contract.JobRecord, error) {
	return q.applyTerminal(ctx, contract.ActionFail, contract.StatusFailed, in.TransitionInput, in.IdempotentRetry, func(next *contract.JobRecord) {
		failure := in.Error
		next.Error = &failure
		next.Owner = nil
		next.Lease = nil
	})
}

// WatchdogInput is a transition issued by a watchdog rather than the job's
// owner; no owner match is required.
type WatchdogInput struct {
	JobID     string
	CAS       contract.CAS
	At        time.Time
	RequestID string
}

// Stall parks a claimed or running job whose lease expired, clearing owner
// and lease so the record shape matches the stalled status.
func (q *Queue) Stall(ctx context.Context, in WatchdogInput) (*contract.JobRecord, error) {
	return q.applyWatchdogTransition(ctx, contract.ActionStall, contract.StatusStalled, in, func(next *contract.JobRecord) {
		next.Owner = nil
		next.Lease = nil
	})
}

// RequeueStalled returns a stalled job to the queue, making it claimable
// again. History keeps the stalled event, so a lease timeout is always
// visible in the record.
func (q *Queue) RequeueStalled(ctx context.Context, in WatchdogInput) (*contract.JobRecord, error) {
	return q.applyWatchdogTransition(ctx, contract.ActionRequeueStalled, contract.StatusQueued, in, nil)
}

// GetByID loads one job, or nil when the id is unknown.
func (q *Queue) GetByID(ctx context.Context, jobID string) (*contract.JobRecord, error) {
	var payload string
	err := q.db.GetContext(ctx, &payload, `SELECT payload_json FROM jobs WHERE job_id = ? LIMIT 1`, jobID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load job '%s': %w", jobID, err)
	}
	return contract.ParseJobRecord([]byte(payload))
}

// List returns all jobs matching the filter, ordered by creation time
// ascending.
func (q *Queue) List(ctx context.Context, filter contract.ListFilter) ([]*contract.JobRecord, error) {
	where := make([]string, 0, 4)
	args := make([]any, 0, 4)
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.OwnerWorkerID != "" {
		where = append(where, "owner_worker_id = ?")
		args = append(args, filter.OwnerWorkerID)
	}
	if filter.PlanID != "" {
		where = append(where, "plan_id = ?")
		args = append(args, filter.PlanID)
	}
	if filter.WorkflowCommand != "" {
		where = append(where, "workflow_command = ?")
		args = append(args, string(filter.WorkflowCommand))
	}

	query := "SELECT payload_json FROM jobs"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at ASC"

	var payloads []string
	if err := q.db.SelectContext(ctx, &payloads, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	jobs := make([]*contract.JobRecord, 0, len(payloads))
	for _, payload := range payloads {
		job, err := contract.ParseJobRecord([]byte(payload))
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// applyOwnerTransition runs an owner-gated transition. nextStatus "" keeps
// the current status (heartbeat).
func (q *Queue) applyOwnerTransition(ctx context.Context, action contract.Action, nextStatus contract.Status, in TransitionInput, mutate func(*contract.JobRecord)) (*contract.JobRecord, error) {
	var result *contract.JobRecord
	err := q.withTx(ctx, func(tx *sqlx.Tx) error {
		current, err := q.requireJob(tx, in.JobID)
		if err != nil {
			return err
		}
		if err := assertCAS(current, in.CAS); err != nil {
			return err
		}
		target := nextStatus
		if target == "" {
			target = current.Status
		}
		next, err := buildNext(current, action, target, &in.Actor, in.RequestID, false)
		if err != nil {
			return err
		}
		next.Events = append(next.Events, contract.BuildEvent(contract.BuildEventInput{
			EventID:    uuid.New().String(),
			Action:     action,
			FromStatus: current.Status,
			ToStatus:   target,
			At:         in.At,
			Actor:      in.Actor.String(),
			RequestID:  in.RequestID,
		}))
		if mutate != nil {
			mutate(next)
		}
		if err := q.persistJob(tx, next); err != nil {
			return err
		}
		result = next
		return nil
	})
	return result, err
}

// applyTerminal handles complete and fail, including idempotent repeats of
// an already-terminal job: the repeat is validated against the contract and
// returns the record unchanged, without advancing rev or appending events.
func (q *Queue) applyTerminal(ctx context.Context, action contract.Action, nextStatus contract.Status, in TransitionInput, idempotentRetry bool, mutate func(*contract.JobRecord)) (*contract.JobRecord, error) {
	var result *contract.JobRecord
	err := q.withTx(ctx, func(tx *sqlx.Tx) error {
		current, err := q.requireJob(tx, in.JobID)
		if err != nil {
			return err
		}
		if err := assertCAS(current, in.CAS); err != nil {
			return err
		}

		if current.Status == nextStatus {
			if violations := contract.ValidateTransition(contract.TransitionInput{
				Current:         current,
				NextStatus:      nextStatus,
				Action:          action,
				CAS:             &in.CAS,
				Actor:           &in.Actor,
				RequestID:       in.RequestID,
				IdempotentRetry: idempotentRetry,
			}); len(violations) > 0 {
				return &ContractError{JobID: current.JobID, Action: action, Violations: violations}
			}
			result = current
			return nil
		}

		next, err := buildNext(current, action, nextStatus, &in.Actor, in.RequestID, false)
		if err != nil {
			return err
		}
		next.Events = append(next.Events, contract.BuildEvent(contract.BuildEventInput{
			EventID:    uuid.New().String(),
			Action:     action,
			FromStatus: current.Status,
			ToStatus:   nextStatus,
			At:         in.At,
			Actor:      in.Actor.String(),
			RequestID:  in.RequestID,
		}))
		mutate(next)
		if err := q.persistJob(tx, next); err != nil {
			return err
		}
		result = next
		return nil
	})
	return result, err
}

func (q *Queue) applyWatchdogTransition(ctx context.Context, action contract.Action, nextStatus contract.Status, in WatchdogInput, mutate func(*contract.JobRecord)) (*contract.JobRecord, error) {
	var result *contract.JobRecord
	err := q.withTx(ctx, func(tx *sqlx.Tx) error {
		current, err := q.requireJob(tx, in.JobID)
		if err != nil {
			return err
		}
		if err := assertCAS(current, in.CAS); err != nil {
			return err
		}
		next, err := buildNext(current, action, nextStatus, nil, in.RequestID, false)
		if err != nil {
			return err
		}
		next.Events = append(next.Events, contract.BuildEvent(contract.BuildEventInput{
			EventID:    uuid.New().String(),
			Action:     action,
			FromStatus: current.Status,
			ToStatus:   nextStatus,
			At:         in.At,
			Actor:      "watchdog",
			RequestID:  in.RequestID,
		}))
		if mutate != nil {
			mutate(next)
		}
		if err := q.persistJob(tx, next); err != nil {
			return err
		}
		result = next
		return nil
	})
	return result, err
}

// buildNext clones the current record, applies the status change plus rev
// bump, and checks every contract rule before the caller decorates the
// clone further. The clone is deep; events and maps never alias current.
func buildNext(current *contract.JobRecord, action contract.Action, nextStatus contract.Status, actor *contract.ActorRef, requestID string, idempotentRetry bool) (*contract.JobRecord, error) {
	if violations := contract.ValidateTransition(contract.TransitionInput{
		Current:         current,
		NextStatus:      nextStatus,
		Action:          action,
		CAS:             &contract.CAS{ExpectedRev: current.Rev},
		Actor:           actor,
		RequestID:       requestID,
		IdempotentRetry: idempotentRetry,
	}); len(violations) > 0 {
		return nil, &ContractError{JobID: current.JobID, Action: action, Violations: violations}
	}

	next, err := cloneRecord(current)
	if err != nil {
		return nil, err
	}
	next.Status = nextStatus
	next.Rev = current.Rev + 1
	return next, nil
}

func cloneRecord(rec *contract.JobRecord) (*contract.JobRecord, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to clone job record: %w", err)
	}
	var clone contract.JobRecord
	if err := json.Unmarshal(data, &clone); err != nil {
		return nil, fmt.Errorf("failed to clone job record: %w", err)
	}
	return &clone, nil
}

func assertCAS(current *contract.JobRecord, cas contract.CAS) error {
	if current.Rev != cas.ExpectedRev {
		return &CASError{
			JobID:    current.JobID,
			Field:    "rev",
			Expected: fmt.Sprintf("%d", cas.ExpectedRev),
			Actual:   fmt.Sprintf("%d", current.Rev),
		}
	}
	if cas.ExpectedStatus != "" && current.Status != cas.ExpectedStatus {
		return &CASError{
			JobID:    current.JobID,
			Field:    "status",
			Expected: string(cas.ExpectedStatus),
			Actual:   string(current.Status),
		}
	}
	if cas.ExpectedOwner != nil {
		actual := "none"
		if current.Owner != nil {
			actual = current.Owner.Ref().String()
		}
		if current.Owner == nil || !cas.ExpectedOwner.Matches(*current.Owner) {
			return &CASError{
				JobID:    current.JobID,
				Field:    "owner",
				Expected: cas.ExpectedOwner.String(),
				Actual:   actual,
			}
		}
	}
	return nil
}

func (q *Queue) withTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := q.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // no-op after commit

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (q *Queue) requireJob(tx *sqlx.Tx, jobID string) (*contract.JobRecord, error) {
	var payload string
	err := tx.Get(&payload, `SELECT payload_json FROM jobs WHERE job_id = ? LIMIT 1`, jobID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("job '%s': %w", jobID, ErrJobNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load job '%s': %w", jobID, err)
	}
	return contract.ParseJobRecord([]byte(payload))
}

func (q *Queue) getByDedupeKey(tx *sqlx.Tx, dedupeKey string) (*contract.JobRecord, error) {
	var payload string
	err := tx.Get(&payload, `SELECT payload_json FROM jobs WHERE dedupe_key = ? LIMIT 1`, dedupeKey)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up dedupe key: %w", err)
	}
	return contract.ParseJobRecord([]byte(payload))
}

func (q *Queue) pickNextJob(tx *sqlx.Tx, in ClaimInput) (*contract.JobRecord, error) {
	where := []string{"status IN ('queued','stalled')"}
	args := make([]any, 0, 8)
	if in.ExpectedStatus != "" {
		where = append(where, "status = ?")
		args = append(args, string(in.ExpectedStatus))
	}
	if len(in.CommandFilter) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(in.CommandFilter)), ",")
		where = append(where, "workflow_command IN ("+placeholders+")")
		for _, cmd := range in.CommandFilter {
			args = append(args, string(cmd))
		}
	}
	if in.RoleFilter != "" {
		where = append(where, "executor_role = ?")
		args = append(args, string(in.RoleFilter))
	}
	if in.RuntimeFilter != "" {
		where = append(where, "executor_runtime = ?")
		args = append(args, in.RuntimeFilter)
	}

	query := "SELECT payload_json FROM jobs WHERE " + strings.Join(where, " AND ") +
		" ORDER BY created_at ASC LIMIT 1"

	var payload string
	err := tx.Get(&payload, query, args...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pick next job: %w", err)
	}
	return contract.ParseJobRecord([]byte(payload))
}

// persistJob upserts the jobs row (full record JSON plus denormalized
// filter columns) and rewrites the append-only event rows in sequence
// order, all inside the caller's transaction.
func (q *Queue) persistJob(tx *sqlx.Tx, job *contract.JobRecord) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job '%s': %w", job.JobID, err)
	}

	var executorRole, executorRuntime, ownerWorkerID, ownerRuntime any
	if job.Target.ExecutorRole != "" {
		executorRole = string(job.Target.ExecutorRole)
	}
	if job.Target.ExecutorRuntime != "" {
		executorRuntime = job.Target.ExecutorRuntime
	}
	if job.Owner != nil {
		ownerWorkerID = job.Owner.WorkerID
		ownerRuntime = job.Owner.Runtime
	}
	var leaseExpires any
	if job.Lease != nil {
		leaseExpires = job.Lease.ExpiresAt.UnixNano()
	}

	_, err = tx.Exec(`
		INSERT INTO jobs (
			job_id, contract_version, dedupe_key, payload_json, status, attempt, rev,
			plan_id, workflow_command, executor_role, executor_runtime, created_at,
			owner_worker_id, owner_runtime, lease_expires_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(job_id) DO UPDATE SET
			payload_json=excluded.payload_json,
			status=excluded.status,
			attempt=excluded.attempt,
			rev=excluded.rev,
			owner_worker_id=excluded.owner_worker_id,
			owner_runtime=excluded.owner_runtime,
			lease_expires_at=excluded.lease_expires_at`,
		job.JobID, job.ContractVersion, job.DedupeKey, string(payload),
		string(job.Status), job.Attempt, job.Rev,
		job.Target.PlanID, string(job.Target.WorkflowCommand),
		executorRole, executorRuntime, job.CreatedAt().UnixNano(),
		ownerWorkerID, ownerRuntime, leaseExpires,
	)
	if err != nil {
		return fmt.Errorf("failed to persist job '%s': %w", job.JobID, err)
	}

	if _, err := tx.Exec(`DELETE FROM job_events WHERE job_id = ?`, job.JobID); err != nil {
		return fmt.Errorf("failed to clear events for job '%s': %w", job.JobID, err)
	}
	for i, evt := range job.Events {
		var requestID any
		if evt.RequestID != "" {
			requestID = evt.RequestID
		}
		_, err := tx.Exec(`
			INSERT INTO job_events (job_id, event_id, seq, type, from_status, to_status, at, actor, request_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			job.JobID, evt.EventID, i, string(evt.Type),
			string(evt.FromStatus), string(evt.ToStatus),
			evt.At.UTC().Format(time.RFC3339Nano), evt.Actor, requestID,
		)
		if err != nil {
			return fmt.Errorf("failed to persist event for job '%s': %w", job.JobID, err)
		}
	}
	return nil
}
