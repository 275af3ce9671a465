package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planflow/planflow/internal/contract"
)

func TestBuildDedupeKey(t *testing.T) {
	tests := []struct {
		name     string
		target   contract.Target
		expected string
	}{
		{
			name: "mandatory segments only",
			target: contract.Target{
				PlanID:          "01",
				PlanIteration:   1,
				WorkflowCommand: contract.CommandPlan,
			},
			expected: "plan:01|it:1|cmd:plan",
		},
		{
			name: "all segments in fixed order",
			target: contract.Target{
				RepoID:          "repo-a",
				EpicID:          "epic-7",
				PlanID:          "02",
				PlanIteration:   3,
				WorkflowCommand: contract.CommandCode,
				ExecutorRole:    contract.RolePlanCoder,
				ExecutorRuntime: "opencode",
			},
			expected: "plan:02|it:3|cmd:code|role:plan-coder|runtime:opencode|epic:epic-7|repo:repo-a",
		},
		{
			name: "runtime without role",
			target: contract.Target{
				PlanID:          "05",
				PlanIteration:   2,
				WorkflowCommand: contract.CommandReview,
				ExecutorRuntime: "cursor",
			},
			expected: "plan:05|it:2|cmd:review|runtime:cursor",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, BuildDedupeKey(tt.target))
		})
	}
}

func TestParseDedupeKeyRoundTrip(t *testing.T) {
	target := contract.Target{
		EpicID:          "epic-1",
		PlanID:          "03",
		PlanIteration:   4,
		WorkflowCommand: contract.CommandFix,
		ExecutorRole:    contract.RolePlanFixer,
		ExecutorRuntime: "opencode",
	}

	parsed, ok := ParseDedupeKey(BuildDedupeKey(target))
	require.True(t, ok)
	assert.Equal(t, target, parsed)
}

func TestParseDedupeKeyRejectsIncompleteKeys(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{name: "empty", key: ""},
		{name: "missing command", key: "plan:01|it:1"},
		{name: "missing plan", key: "it:1|cmd:plan"},
		{name: "non-numeric iteration", key: "plan:01|it:one|cmd:plan"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ParseDedupeKey(tt.key)
			assert.False(t, ok)
		})
	}
}

func TestCanClaim(t *testing.T) {
	now := time.Now().UTC()
	owner := &contract.Owner{WorkerID: "w-1", Runtime: "cursor"}

	tests := []struct {
		name     string
		job      *contract.JobRecord
		expected bool
	}{
		{
			name:     "queued is claimable",
			job:      &contract.JobRecord{Status: contract.StatusQueued},
			expected: true,
		},
		{
			name:     "stalled is claimable",
			job:      &contract.JobRecord{Status: contract.StatusStalled},
			expected: true,
		},
		{
			name: "claimed with live lease is not",
			job: &contract.JobRecord{
				Status: contract.StatusClaimed,
				Owner:  owner,
				Lease:  &contract.Lease{ExpiresAt: now.Add(time.Minute)},
			},
			expected: false,
		},
		{
			name: "running with expired lease is",
			job: &contract.JobRecord{
				Status: contract.StatusRunning,
				Owner:  owner,
				Lease:  &contract.Lease{ExpiresAt: now.Add(-time.Second)},
			},
			expected: true,
		},
		{
			name:     "succeeded never is",
			job:      &contract.JobRecord{Status: contract.StatusSucceeded},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CanClaim(tt.job, now))
		})
	}
}
