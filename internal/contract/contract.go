// Package contract defines the job lifecycle contract shared by the queue,
// the workers, and the dispatcher: status values, legal transitions per
// action, per-status structural invariants, and the event records derived
// from accepted transitions. It is pure logic with no storage concerns.
package contract

import "time"

// SupportedContractVersion is the single record version this build accepts.
// Records carrying any other version are rejected on load, not migrated.
const SupportedContractVersion = 1

// Status is the lifecycle state of a job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusClaimed   Status = "claimed"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusStalled   Status = "stalled"
)

// StatusNone is the pseudo-source for enqueue; it never appears on a record.
const StatusNone Status = "none"

// Command is a workflow command a job executes against a plan.
type Command string

const (
	CommandPlan       Command = "plan"
	CommandCode       Command = "code"
	CommandFinishCode Command = "finish-code"
	CommandReview     Command = "review"
	CommandFix        Command = "fix"
	CommandDone       Command = "done"
	CommandVerify     Command = "verify"
)

// Role is the class of workflow commands a worker may execute.
type Role string

const (
	RoleOrchestrator Role = "orchestrator"
	RolePlanCoder    Role = "plan-coder"
	RolePlanReviewer Role = "plan-reviewer"
	RolePlanFixer    Role = "plan-fixer"
)

// Action identifies a queue operation for transition-table lookup.
type Action string

const (
	ActionEnqueue        Action = "enqueue"
	ActionClaimNext      Action = "claimNext"
	ActionStart          Action = "start"
	ActionHeartbeat      Action = "heartbeat"
	ActionComplete       Action = "complete"
	ActionFail           Action = "fail"
	ActionStall          Action = "stall"
	ActionRequeueStalled Action = "requeueStalled"
)

// EventType is the semantic type recorded on a lifecycle event.
type EventType string

const (
	EventEnqueued  EventType = "enqueued"
	EventClaimed   EventType = "claimed"
	EventStarted   EventType = "started"
	EventHeartbeat EventType = "heartbeat"
	EventSucceeded EventType = "succeeded"
	EventFailed    EventType = "failed"
	EventStalled   EventType = "stalled"
	EventRequeued  EventType = "requeued"
)

// Owner identifies the worker process holding a job.
type Owner struct {
	WorkerID string `json:"worker_id"`
	Runtime  string `json:"runtime"`
	Host     string `json:"host,omitempty"`
	PID      int    `json:"pid,omitempty"`
}

// ActorRef is the worker identity carried on transition requests. Host and
// PID are informational; only WorkerID and Runtime participate in matching.
type ActorRef struct {
	WorkerID string `json:"worker_id"`
	Runtime  string `json:"runtime"`
}

// Ref returns the matching identity of an owner.
func (o Owner) Ref() ActorRef {
	return ActorRef{WorkerID: o.WorkerID, Runtime: o.Runtime}
}

// Matches reports whether the actor is the same worker identity.
func (a ActorRef) Matches(o Owner) bool {
	return a.WorkerID == o.WorkerID && a.Runtime == o.Runtime
}

// String renders the actor the way events record it.
func (a ActorRef) String() string {
	return a.Runtime + ":" + a.WorkerID
}

// Lease is a time-bounded ownership grant.
type Lease struct {
	ExpiresAt time.Time `json:"expires_at"`
	RenewedAt time.Time `json:"renewed_at,omitempty"`
}

// Expired reports whether the lease has lapsed at the given instant.
func (l Lease) Expired(now time.Time) bool {
	return !l.ExpiresAt.After(now)
}

// NewLease builds a lease starting at now for the given duration.
func NewLease(now time.Time, d time.Duration) Lease {
	return Lease{ExpiresAt: now.Add(d), RenewedAt: now}
}

// Target identifies what work a job represents. Immutable after creation.
type Target struct {
	RepoID          string  `json:"repo_id,omitempty"`
	EpicID          string  `json:"epic_id,omitempty"`
	PlanID          string  `json:"plan_id"`
	PlanIteration   int     `json:"plan_iteration"`
	WorkflowCommand Command `json:"workflow_command"`
	ExecutorRole    Role    `json:"executor_role,omitempty"`
	ExecutorRuntime string  `json:"executor_runtime,omitempty"`
}

// Event is the immutable record of one accepted transition.
type Event struct {
	EventID    string    `json:"event_id"`
	Type       EventType `json:"type"`
	FromStatus Status    `json:"from_status"`
	ToStatus   Status    `json:"to_status"`
	At         time.Time `json:"at"`
	Actor      string    `json:"actor"`
	RequestID  string    `json:"request_id,omitempty"`
}

// Failure captures why a job ended in the failed status.
type Failure struct {
	Message string         `json:"message"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// JobRecord is the durable aggregate for one job.
type JobRecord struct {
	JobID           string         `json:"job_id"`
	ContractVersion int            `json:"contract_version"`
	DedupeKey       string         `json:"dedupe_key"`
	Target          Target         `json:"target"`
	Status          Status         `json:"status"`
	Attempt         int            `json:"attempt"`
	Rev             int            `json:"rev"`
	Owner           *Owner         `json:"owner,omitempty"`
	Lease           *Lease         `json:"lease,omitempty"`
	Events          []Event        `json:"events"`
	Result          map[string]any `json:"result,omitempty"`
	Error           *Failure       `json:"error,omitempty"`
}

// CreatedAt is the timestamp of the enqueued event.
func (r *JobRecord) CreatedAt() time.Time {
	if len(r.Events) == 0 {
		return time.Time{}
	}
	return r.Events[0].At
}

// CAS is the optimistic-concurrency expectation carried on every transition.
// ExpectedRev is mandatory; status and owner expectations are optional
// tighteners.
type CAS struct {
	ExpectedRev    int
	ExpectedStatus Status
	ExpectedOwner  *ActorRef
}

// ListFilter selects jobs for listing. Zero values mean "any".
type ListFilter struct {
	Status          Status
	OwnerWorkerID   string
	PlanID          string
	WorkflowCommand Command
}

// DedupeScope names what a dedupe key is scoped by.
type DedupeScope string

const (
	DedupeScopeRepo DedupeScope = "repo"
	DedupeScopeEpic DedupeScope = "epic"
	DedupeScopePlan DedupeScope = "plan"
)

// DedupeScopeRef pairs a scope with the id it refers to.
type DedupeScopeRef struct {
	Scope  DedupeScope `json:"scope"`
	RepoID string      `json:"repo_id,omitempty"`
	EpicID string      `json:"epic_id,omitempty"`
	PlanID string      `json:"plan_id,omitempty"`
}

type transition struct {
	from Status
	to   Status
}

// Transitions is the single source of truth for what the queue may do.
var Transitions = map[Action][]transition{
	ActionEnqueue: {{StatusNone, StatusQueued}},
	ActionClaimNext: {
		{StatusQueued, StatusClaimed},
		{StatusStalled, StatusClaimed},
	},
	ActionStart: {{StatusClaimed, StatusRunning}},
	ActionHeartbeat: {
		{StatusClaimed, StatusClaimed},
		{StatusRunning, StatusRunning},
	},
	ActionComplete: {
		{StatusRunning, StatusSucceeded},
		{StatusSucceeded, StatusSucceeded},
	},
	ActionFail: {
		{StatusRunning, StatusFailed},
		{StatusFailed, StatusFailed},
	},
	ActionStall: {
		{StatusClaimed, StatusStalled},
		{StatusRunning, StatusStalled},
	},
	ActionRequeueStalled: {{StatusStalled, StatusQueued}},
}

var actionEventTypes = map[Action]EventType{
	ActionEnqueue:        EventEnqueued,
	ActionClaimNext:      EventClaimed,
	ActionStart:          EventStarted,
	ActionHeartbeat:      EventHeartbeat,
	ActionComplete:       EventSucceeded,
	ActionFail:           EventFailed,
	ActionStall:          EventStalled,
	ActionRequeueStalled: EventRequeued,
}

// retrySafeActions should carry a request id so network retries stay
// idempotent; its absence is flagged, not fatal.
var retrySafeActions = map[Action]bool{
	ActionClaimNext:      true,
	ActionStart:          true,
	ActionHeartbeat:      true,
	ActionComplete:       true,
	ActionFail:           true,
	ActionStall:          true,
	ActionRequeueStalled: true,
}

// ownerRequiredActions must be issued by the job's current owner.
var ownerRequiredActions = map[Action]bool{
	ActionStart:     true,
	ActionHeartbeat: true,
	ActionComplete:  true,
	ActionFail:      true,
}

// terminalRepeatActions may repeat a terminal status as an idempotent retry.
var terminalRepeatActions = map[Action]bool{
	ActionComplete: true,
	ActionFail:     true,
}

// IsTransitionAllowed reports whether the action permits from -> to.
func IsTransitionAllowed(action Action, from, to Status) bool {
	for _, t := range Transitions[action] {
		if t.from == from && t.to == to {
			return true
		}
	}
	return false
}

// IsTerminalStatus reports whether the status is immutable.
func IsTerminalStatus(s Status) bool {
	return s == StatusSucceeded || s == StatusFailed
}

// EventTypeFor maps an action to the event type it records.
func EventTypeFor(action Action) EventType {
	return actionEventTypes[action]
}

// BuildEventInput collects the fields of a lifecycle event.
type BuildEventInput struct {
	EventID    string
	Action     Action
	FromStatus Status
	ToStatus   Status
	At         time.Time
	Actor      string
	RequestID  string
}

// BuildEvent derives the event record for an accepted transition.
func BuildEvent(in BuildEventInput) Event {
	return Event{
		EventID:    in.EventID,
		Type:       EventTypeFor(in.Action),
		FromStatus: in.FromStatus,
		ToStatus:   in.ToStatus,
		At:         in.At,
		Actor:      in.Actor,
		RequestID:  in.RequestID,
	}
}

// Phase is a plan's lifecycle phase.
type Phase string

const (
	PhasePlanning       Phase = "planning"
	PhaseCoding         Phase = "coding"
	PhaseAwaitingReview Phase = "awaiting_review"
	PhaseReviewing      Phase = "reviewing"
	PhaseFixing         Phase = "fixing"
	PhaseCompleted      Phase = "completed"
	PhaseBlocked        Phase = "blocked"
)

// PhaseAllowedCommands lists the workflow commands legal for each phase.
var PhaseAllowedCommands = map[Phase][]Command{
	PhasePlanning:       {CommandCode},
	PhaseCoding:         {CommandFinishCode},
	PhaseAwaitingReview: {CommandReview},
	PhaseReviewing:      {CommandFix, CommandDone},
	PhaseFixing:         {CommandFinishCode},
	PhaseCompleted:      {},
	PhaseBlocked:        {CommandFix},
}

// AllowedCommandsForPhase returns a copy of the commands legal for the
// phase, or nil for an unknown phase.
func AllowedCommandsForPhase(phase string) []Command {
	allowed, ok := PhaseAllowedCommands[Phase(phase)]
	if !ok {
		return nil
	}
	out := make([]Command, len(allowed))
	copy(out, allowed)
	return out
}

// IsKnownPhase reports whether the string names a plan phase.
func IsKnownPhase(phase string) bool {
	_, ok := PhaseAllowedCommands[Phase(phase)]
	return ok
}

// RoleCommandFilters fixes the command set each worker role may execute.
var RoleCommandFilters = map[Role][]Command{
	RoleOrchestrator: {CommandPlan, CommandVerify},
	RolePlanCoder:    {CommandCode},
	RolePlanReviewer: {CommandReview},
	RolePlanFixer:    {CommandFix},
}

// IsKnownRole reports whether the string names a worker role.
func IsKnownRole(role string) bool {
	_, ok := RoleCommandFilters[Role(role)]
	return ok
}

// IsKnownStatus reports whether the string names a job status.
func IsKnownStatus(s string) bool {
	switch Status(s) {
	case StatusQueued, StatusClaimed, StatusRunning, StatusSucceeded, StatusFailed, StatusStalled:
		return true
	}
	return false
}

// IsKnownCommand reports whether the string names a workflow command.
func IsKnownCommand(c string) bool {
	switch Command(c) {
	case CommandPlan, CommandCode, CommandFinishCode, CommandReview, CommandFix, CommandDone, CommandVerify:
		return true
	}
	return false
}
