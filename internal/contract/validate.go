package contract

import "fmt"

// ValidateRecordInvariants checks the per-status structural rules: claimed
// and running records carry owner and lease, every other status carries
// neither; succeeded carries a result and no error, failed the reverse, and
// non-terminal statuses carry neither. The label distinguishes the current
// record from the proposed next record in messages.
func ValidateRecordInvariants(rec *JobRecord, label string) []string {
	if label == "" {
		label = "current"
	}
	var errs []string

	ownerAndLeaseRequired := rec.Status == StatusClaimed || rec.Status == StatusRunning
	if ownerAndLeaseRequired && (rec.Owner == nil || rec.Lease == nil) {
		errs = append(errs, fmt.Sprintf("invalid %s: status '%s' requires owner and lease", label, rec.Status))
	}
	if !ownerAndLeaseRequired && (rec.Owner != nil || rec.Lease != nil) {
		errs = append(errs, fmt.Sprintf("invalid %s: status '%s' forbids owner and lease", label, rec.Status))
	}

	switch rec.Status {
	case StatusSucceeded:
		if rec.Result == nil {
			errs = append(errs, fmt.Sprintf("invalid %s: status 'succeeded' requires result", label))
		}
		if rec.Error != nil {
			errs = append(errs, fmt.Sprintf("invalid %s: status 'succeeded' forbids error", label))
		}
	case StatusFailed:
		if rec.Error == nil {
			errs = append(errs, fmt.Sprintf("invalid %s: status 'failed' requires error", label))
		}
		if rec.Result != nil {
			errs = append(errs, fmt.Sprintf("invalid %s: status 'failed' forbids result", label))
		}
	default:
		if rec.Result != nil || rec.Error != nil {
			errs = append(errs, fmt.Sprintf("invalid %s: status '%s' forbids result and error", label, rec.Status))
		}
	}

	return errs
}

// TransitionInput describes a proposed transition for validation. Next is
// optional; when present its shape and attempt/rev progression are checked
// too.
type TransitionInput struct {
	Current         *JobRecord
	Next            *JobRecord
	NextStatus      Status
	Action          Action
	CAS             *CAS
	Actor           *ActorRef
	RequestID       string
	IdempotentRetry bool
}

// ValidateTransition applies every contract rule to a proposed transition
// and returns the violations; an empty slice means the transition is
// acceptable. It never mutates its inputs.
func ValidateTransition(in TransitionInput) []string {
	var errs []string
	errs = append(errs, ValidateRecordInvariants(in.Current, "current")...)

	isTerminalRepeat := in.Current.Status == in.NextStatus && IsTerminalStatus(in.NextStatus)

	if !IsTransitionAllowed(in.Action, in.Current.Status, in.NextStatus) {
		errs = append(errs, fmt.Sprintf("transition '%s' does not allow '%s' -> '%s'", in.Action, in.Current.Status, in.NextStatus))
	}

	if IsTerminalStatus(in.Current.Status) && in.NextStatus != in.Current.Status {
		errs = append(errs, "terminal job status is immutable")
	}

	if in.CAS == nil || in.CAS.ExpectedRev <= 0 {
		errs = append(errs, "CAS with expected_rev is required for every transition")
	}

	if ownerRequiredActions[in.Action] && !isTerminalRepeat {
		switch {
		case in.Current.Owner == nil:
			errs = append(errs, fmt.Sprintf("cannot '%s' without an active owner", in.Action))
		case in.Actor == nil || !in.Actor.Matches(*in.Current.Owner):
			errs = append(errs, fmt.Sprintf("only current owner can '%s'", in.Action))
		}
	}

	if retrySafeActions[in.Action] && in.RequestID == "" {
		errs = append(errs, fmt.Sprintf("transition '%s' should include request_id for idempotent retries", in.Action))
	}

	if isTerminalRepeat && terminalRepeatActions[in.Action] && !in.IdempotentRetry {
		errs = append(errs, fmt.Sprintf("terminal repeat '%s' must be marked as idempotent retry", in.Action))
	}

	if in.Next != nil {
		errs = append(errs, ValidateRecordInvariants(in.Next, "next")...)
		errs = append(errs, ValidateAttemptAndRevSemantics(AttemptRevInput{
			Current:         in.Current,
			Next:            in.Next,
			Action:          in.Action,
			Accepted:        true,
			IdempotentRetry: in.IdempotentRetry,
		})...)
	}

	return errs
}

// ShouldIncrementAttempt reports whether the transition counts as a new
// claim cycle. Only claimNext moving queued or stalled into claimed does.
func ShouldIncrementAttempt(action Action, from, to Status) bool {
	return action == ActionClaimNext && to == StatusClaimed &&
		(from == StatusQueued || from == StatusStalled)
}

// ShouldIncrementRev reports whether an accepted transition bumps the
// optimistic-lock counter. Idempotent repeats of a terminal action do not.
func ShouldIncrementRev(accepted, idempotentRetry bool) bool {
	return accepted && !idempotentRetry
}

// AttemptRevInput feeds ValidateAttemptAndRevSemantics.
type AttemptRevInput struct {
	Current         *JobRecord
	Next            *JobRecord
	Action          Action
	Accepted        bool
	IdempotentRetry bool
}

// ValidateAttemptAndRevSemantics checks that attempt and rev on the proposed
// next record progress by exactly the contract-mandated deltas.
func ValidateAttemptAndRevSemantics(in AttemptRevInput) []string {
	var errs []string

	expectedAttempt := in.Current.Attempt
	if ShouldIncrementAttempt(in.Action, in.Current.Status, in.Next.Status) {
		expectedAttempt++
	}
	if in.Next.Attempt != expectedAttempt {
		errs = append(errs, fmt.Sprintf("invalid attempt progression: expected %d, got %d", expectedAttempt, in.Next.Attempt))
	}

	expectedRev := in.Current.Rev
	if ShouldIncrementRev(in.Accepted, in.IdempotentRetry) {
		expectedRev++
	}
	if in.Next.Rev != expectedRev {
		errs = append(errs, fmt.Sprintf("invalid revision progression: expected %d, got %d", expectedRev, in.Next.Rev))
	}

	return errs
}
