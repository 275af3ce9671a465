package queue

import (
	"strconv"
	"strings"
	"time"

	"github.com/planflow/planflow/internal/contract"
)

// BuildDedupeKey derives the deterministic dedupe key for a target:
// fixed-order segments joined by '|', absent segments omitted. The key
// enforces at-most-one job per (plan, iteration, command, role, runtime,
// epic, repo) combination for the lifetime of the store.
func BuildDedupeKey(t contract.Target) string {
	segments := []string{
		"plan:" + t.PlanID,
		"it:" + strconv.Itoa(t.PlanIteration),
		"cmd:" + string(t.WorkflowCommand),
	}
	if t.ExecutorRole != "" {
		segments = append(segments, "role:"+string(t.ExecutorRole))
	}
	if t.ExecutorRuntime != "" {
		segments = append(segments, "runtime:"+t.ExecutorRuntime)
	}
	if t.EpicID != "" {
		segments = append(segments, "epic:"+t.EpicID)
	}
	if t.RepoID != "" {
		segments = append(segments, "repo:"+t.RepoID)
	}
	return strings.Join(segments, "|")
}

// ParseDedupeKey inverts BuildDedupeKey. It returns false when the key does
// not carry the three mandatory segments.
func ParseDedupeKey(key string) (contract.Target, bool) {
	values := make(map[string]string)
	for _, segment := range strings.Split(key, "|") {
		k, v, ok := strings.Cut(segment, ":")
		if !ok || k == "" || v == "" {
			continue
		}
		values[k] = v
	}

	planID := values["plan"]
	iterRaw := values["it"]
	command := values["cmd"]
	if planID == "" || iterRaw == "" || command == "" {
		return contract.Target{}, false
	}
	iter, err := strconv.Atoi(iterRaw)
	if err != nil {
		return contract.Target{}, false
	}

	return contract.Target{
		PlanID:          planID,
		PlanIteration:   iter,
		WorkflowCommand: contract.Command(command),
		ExecutorRole:    contract.Role(values["role"]),
		ExecutorRuntime: values["runtime"],
		EpicID:          values["epic"],
		RepoID:          values["repo"],
	}, true
}

// CanClaim reports whether a job is claimable at the given instant: queued
// and stalled jobs always, claimed and running jobs only once their lease
// has lapsed (and then only after the watchdog has routed them through
// stall and requeue).
func CanClaim(job *contract.JobRecord, now time.Time) bool {
	switch job.Status {
	case contract.StatusQueued, contract.StatusStalled:
		return true
	case contract.StatusClaimed, contract.StatusRunning:
		return job.Lease != nil && job.Lease.Expired(now)
	}
	return false
}
