package contract

import (
	"encoding/json"
	"fmt"
)

// ParseJobRecord decodes a persisted record through a validating parser.
// Unknown contract versions are rejected, required fields and enum values
// are checked explicitly, and unrecognized fields are dropped rather than
// trusted. The stored shape is never assumed to be well formed.
func ParseJobRecord(data []byte) (*JobRecord, error) {
	var rec JobRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("invalid job record: %w", err)
	}

	if rec.ContractVersion != SupportedContractVersion {
		return nil, fmt.Errorf("unsupported contract_version '%d', supported: %d", rec.ContractVersion, SupportedContractVersion)
	}
	if rec.JobID == "" {
		return nil, fmt.Errorf("invalid 'job_id': expected non-empty string")
	}
	if rec.DedupeKey == "" {
		return nil, fmt.Errorf("invalid 'dedupe_key': expected non-empty string")
	}
	if !IsKnownStatus(string(rec.Status)) {
		return nil, fmt.Errorf("invalid 'status': unsupported status '%s'", rec.Status)
	}
	if err := validateTarget(&rec.Target); err != nil {
		return nil, err
	}
	if rec.Owner != nil {
		if rec.Owner.WorkerID == "" {
			return nil, fmt.Errorf("invalid 'owner.worker_id': expected non-empty string")
		}
		if rec.Owner.Runtime == "" {
			return nil, fmt.Errorf("invalid 'owner.runtime': expected non-empty string")
		}
	}
	if rec.Lease != nil && rec.Lease.ExpiresAt.IsZero() {
		return nil, fmt.Errorf("invalid 'lease.expires_at': expected timestamp")
	}
	if rec.Events == nil {
		return nil, fmt.Errorf("invalid 'events': expected array")
	}
	for i := range rec.Events {
		if err := validateEvent(&rec.Events[i], i); err != nil {
			return nil, err
		}
	}
	if rec.Error != nil && rec.Error.Message == "" {
		return nil, fmt.Errorf("invalid 'error.message': expected non-empty string")
	}

	return &rec, nil
}

func validateTarget(t *Target) error {
	if t.PlanID == "" {
		return fmt.Errorf("invalid 'target.plan_id': expected non-empty string")
	}
	if t.PlanIteration < 0 {
		return fmt.Errorf("invalid 'target.plan_iteration': expected non-negative integer")
	}
	if !IsKnownCommand(string(t.WorkflowCommand)) {
		return fmt.Errorf("invalid 'target.workflow_command': unsupported workflow command '%s'", t.WorkflowCommand)
	}
	if t.ExecutorRole != "" && !IsKnownRole(string(t.ExecutorRole)) {
		return fmt.Errorf("invalid 'target.executor_role': unsupported executor role '%s'", t.ExecutorRole)
	}
	return nil
}

func validateEvent(e *Event, i int) error {
	if e.EventID == "" {
		return fmt.Errorf("invalid 'events[%d].event_id': expected non-empty string", i)
	}
	if e.Type == "" {
		return fmt.Errorf("invalid 'events[%d].type': expected non-empty string", i)
	}
	if !IsKnownStatus(string(e.FromStatus)) {
		return fmt.Errorf("invalid 'events[%d].from_status': unsupported status '%s'", i, e.FromStatus)
	}
	if !IsKnownStatus(string(e.ToStatus)) {
		return fmt.Errorf("invalid 'events[%d].to_status': unsupported status '%s'", i, e.ToStatus)
	}
	if e.At.IsZero() {
		return fmt.Errorf("invalid 'events[%d].at': expected timestamp", i)
	}
	if e.Actor == "" {
		return fmt.Errorf("invalid 'events[%d].actor': expected non-empty string", i)
	}
	return nil
}
