package queue

import (
	"errors"
	"fmt"
	"strings"

	"github.com/planflow/planflow/internal/contract"
)

// ErrJobNotFound is returned when a transition names an unknown job id.
var ErrJobNotFound = errors.New("job not found")

// CASError reports an optimistic-concurrency mismatch: the caller's
// expectation did not match the record's current rev, status, or owner.
// The store is left unchanged.
type CASError struct {
	JobID    string
	Field    string // "rev", "status", or "owner"
	Expected string
	Actual   string
}

func (e *CASError) Error() string {
	return fmt.Sprintf("CAS mismatch for job '%s': expected %s %s, got %s", e.JobID, e.Field, e.Expected, e.Actual)
}

// ContractError reports that a proposed transition violated the lifecycle
// contract. The store is left unchanged.
type ContractError struct {
	JobID      string
	Action     contract.Action
	Violations []string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("transition '%s' rejected for job '%s': %s", e.Action, e.JobID, strings.Join(e.Violations, "; "))
}
