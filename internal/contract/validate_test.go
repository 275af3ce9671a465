package contract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queuedRecord() *JobRecord {
	return &JobRecord{
		JobID:           "job-1",
		ContractVersion: SupportedContractVersion,
		DedupeKey:       "plan:01|it:0|cmd:code",
		Target: Target{
			PlanID:          "01",
			WorkflowCommand: CommandCode,
		},
		Status:  StatusQueued,
		Attempt: 0,
		Rev:     1,
		Events: []Event{{
			EventID:    "evt-1",
			Type:       EventEnqueued,
			FromStatus: StatusQueued,
			ToStatus:   StatusQueued,
			At:         time.Now().UTC(),
			Actor:      "dispatcher",
		}},
	}
}

func runningRecord() *JobRecord {
	rec := queuedRecord()
	rec.Status = StatusRunning
	rec.Attempt = 1
	rec.Rev = 3
	rec.Owner = &Owner{WorkerID: "w-1", Runtime: "opencode"}
	lease := NewLease(time.Now().UTC(), time.Minute)
	rec.Lease = &lease
	return rec
}

func TestValidateRecordInvariants(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*JobRecord)
		base    func() *JobRecord
		wantErr string
	}{
		{
			name:   "queued record is valid",
			base:   queuedRecord,
			mutate: func(r *JobRecord) {},
		},
		{
			name:   "running record is valid",
			base:   runningRecord,
			mutate: func(r *JobRecord) {},
		},
		{
			name:    "running without owner",
			base:    runningRecord,
			mutate:  func(r *JobRecord) { r.Owner = nil },
			wantErr: "requires owner and lease",
		},
		{
			name:    "claimed without lease",
			base:    runningRecord,
			mutate:  func(r *JobRecord) { r.Status = StatusClaimed; r.Lease = nil },
			wantErr: "requires owner and lease",
		},
		{
			name:    "queued with owner",
			base:    queuedRecord,
			mutate:  func(r *JobRecord) { r.Owner = &Owner{WorkerID: "w-1", Runtime: "opencode"} },
			wantErr: "forbids owner and lease",
		},
		{
			name: "succeeded without result",
			base: queuedRecord,
			mutate: func(r *JobRecord) {
				r.Status = StatusSucceeded
			},
			wantErr: "requires result",
		},
		{
			name: "succeeded with error",
			base: queuedRecord,
			mutate: func(r *JobRecord) {
				r.Status = StatusSucceeded
				r.Result = map[string]any{"output": "ok"}
				r.Error = &Failure{Message: "boom"}
			},
			wantErr: "forbids error",
		},
		{
			name: "failed without error",
			base: queuedRecord,
			mutate: func(r *JobRecord) {
				r.Status = StatusFailed
			},
			wantErr: "requires error",
		},
		{
			name: "queued with result",
			base: queuedRecord,
			mutate: func(r *JobRecord) {
				r.Result = map[string]any{"output": "ok"}
			},
			wantErr: "forbids result and error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := tt.base()
			tt.mutate(rec)
			errs := ValidateRecordInvariants(rec, "current")
			if tt.wantErr == "" {
				assert.Empty(t, errs)
				return
			}
			require.NotEmpty(t, errs)
			assert.Contains(t, errs[0], tt.wantErr)
		})
	}
}

func TestValidateTransition(t *testing.T) {
	actor := ActorRef{WorkerID: "w-1", Runtime: "opencode"}

	t.Run("accepted start", func(t *testing.T) {
		current := runningRecord()
		current.Status = StatusClaimed
		errs := ValidateTransition(TransitionInput{
			Current:    current,
			NextStatus: StatusRunning,
			Action:     ActionStart,
			CAS:        &CAS{ExpectedRev: current.Rev},
			Actor:      &actor,
			RequestID:  "req-1",
		})
		assert.Empty(t, errs)
	})

	t.Run("disallowed edge", func(t *testing.T) {
		errs := ValidateTransition(TransitionInput{
			Current:    queuedRecord(),
			NextStatus: StatusRunning,
			Action:     ActionStart,
			CAS:        &CAS{ExpectedRev: 1},
			Actor:      &actor,
			RequestID:  "req-1",
		})
		require.NotEmpty(t, errs)
		assert.Contains(t, errs[0], "does not allow")
	})

	t.Run("missing CAS", func(t *testing.T) {
		current := runningRecord()
		errs := ValidateTransition(TransitionInput{
			Current:    current,
			NextStatus: StatusSucceeded,
			Action:     ActionComplete,
			Actor:      &actor,
			RequestID:  "req-1",
		})
		assert.Contains(t, errs, "CAS with expected_rev is required for every transition")
	})

	t.Run("non-owner actor", func(t *testing.T) {
		current := runningRecord()
		errs := ValidateTransition(TransitionInput{
			Current:    current,
			NextStatus: StatusSucceeded,
			Action:     ActionComplete,
			CAS:        &CAS{ExpectedRev: current.Rev},
			Actor:      &ActorRef{WorkerID: "w-2", Runtime: "opencode"},
			RequestID:  "req-1",
		})
		require.NotEmpty(t, errs)
		assert.Contains(t, errs[0], "only current owner can 'complete'")
	})

	t.Run("missing request id on retry-safe action", func(t *testing.T) {
		current := runningRecord()
		errs := ValidateTransition(TransitionInput{
			Current:    current,
			NextStatus: StatusRunning,
			Action:     ActionHeartbeat,
			CAS:        &CAS{ExpectedRev: current.Rev},
			Actor:      &actor,
		})
		require.NotEmpty(t, errs)
		assert.Contains(t, errs[0], "should include request_id")
	})

	t.Run("terminal status is immutable", func(t *testing.T) {
		current := queuedRecord()
		current.Status = StatusSucceeded
		current.Result = map[string]any{"output": "ok"}
		errs := ValidateTransition(TransitionInput{
			Current:    current,
			NextStatus: StatusFailed,
			Action:     ActionFail,
			CAS:        &CAS{ExpectedRev: current.Rev},
			Actor:      &actor,
			RequestID:  "req-1",
		})
		assert.Contains(t, errs, "terminal job status is immutable")
	})

	t.Run("terminal repeat requires idempotent retry marker", func(t *testing.T) {
		current := queuedRecord()
		current.Status = StatusSucceeded
		current.Result = map[string]any{"output": "ok"}

		errs := ValidateTransition(TransitionInput{
			Current:    current,
			NextStatus: StatusSucceeded,
			Action:     ActionComplete,
			CAS:        &CAS{ExpectedRev: current.Rev},
			Actor:      &actor,
			RequestID:  "req-1",
		})
		require.NotEmpty(t, errs)
		assert.Contains(t, errs[0], "must be marked as idempotent retry")

		errs = ValidateTransition(TransitionInput{
			Current:         current,
			NextStatus:      StatusSucceeded,
			Action:          ActionComplete,
			CAS:             &CAS{ExpectedRev: current.Rev},
			Actor:           &actor,
			RequestID:       "req-1",
			IdempotentRetry: true,
		})
		assert.Empty(t, errs)
	})
}

func TestShouldIncrementAttempt(t *testing.T) {
	assert.True(t, ShouldIncrementAttempt(ActionClaimNext, StatusQueued, StatusClaimed))
	assert.True(t, ShouldIncrementAttempt(ActionClaimNext, StatusStalled, StatusClaimed))
	assert.False(t, ShouldIncrementAttempt(ActionStart, StatusClaimed, StatusRunning))
	assert.False(t, ShouldIncrementAttempt(ActionRequeueStalled, StatusStalled, StatusQueued))
}

func TestValidateAttemptAndRevSemantics(t *testing.T) {
	current := queuedRecord()

	t.Run("claim bumps attempt and rev", func(t *testing.T) {
		next := runningRecord()
		next.Status = StatusClaimed
		next.Attempt = 1
		next.Rev = 2
		errs := ValidateAttemptAndRevSemantics(AttemptRevInput{
			Current:  current,
			Next:     next,
			Action:   ActionClaimNext,
			Accepted: true,
		})
		assert.Empty(t, errs)
	})

	t.Run("stale rev on next is rejected", func(t *testing.T) {
		next := runningRecord()
		next.Status = StatusClaimed
		next.Attempt = 1
		next.Rev = 1
		errs := ValidateAttemptAndRevSemantics(AttemptRevInput{
			Current:  current,
			Next:     next,
			Action:   ActionClaimNext,
			Accepted: true,
		})
		require.NotEmpty(t, errs)
		assert.Contains(t, errs[0], "invalid revision progression")
	})

	t.Run("idempotent retry keeps rev", func(t *testing.T) {
		terminal := queuedRecord()
		terminal.Status = StatusSucceeded
		terminal.Result = map[string]any{"output": "ok"}
		terminal.Rev = 5

		next := queuedRecord()
		next.Status = StatusSucceeded
		next.Result = map[string]any{"output": "ok"}
		next.Rev = 5

		errs := ValidateAttemptAndRevSemantics(AttemptRevInput{
			Current:         terminal,
			Next:            next,
			Action:          ActionComplete,
			Accepted:        true,
			IdempotentRetry: true,
		})
		assert.Empty(t, errs)
	})
}
