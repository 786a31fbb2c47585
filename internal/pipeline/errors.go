package pipeline

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a job stopped.
type ErrorKind string

const (
	InputError          ErrorKind = "input_error"
	UpstreamUnavailable ErrorKind = "upstream_unavailable"
	NoEligibleData      ErrorKind = "no_eligible_data"
	PersistenceFailure  ErrorKind = "persistence_failure"
)

// ErrJobInFlight is returned when a run for the same identity is already
// active in this process.
var ErrJobInFlight = errors.New("a rewind for this player is already running")

// JobError is the only error type Run returns apart from ErrJobInFlight.
// Message is safe to show to a player; Err carries the diagnostics.
type JobError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *JobError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
}

func (e *JobError) Unwrap() error { return e.Err }

// KindOf returns the kind of a *JobError anywhere in err's chain, or "".
func KindOf(err error) ErrorKind {
	var je *JobError
	if errors.As(err, &je) {
		return je.Kind
	}
	return ""
}

func inputErr(err error) *JobError {
	return &JobError{Kind: InputError, Message: "We couldn't find that Riot ID in this region.", Err: err}
}

func invalidIdentityErr(err error) *JobError {
	return &JobError{Kind: InputError, Message: "That doesn't look like a valid Riot ID. Check the name, tag and region.", Err: err}
}

func upstreamErr(err error) *JobError {
	return &JobError{Kind: UpstreamUnavailable, Message: "Riot's servers aren't answering right now. Try again in a few minutes.", Err: err}
}

func noDataErr(err error) *JobError {
	return &JobError{Kind: NoEligibleData, Message: "This player has no ranked matches this season.", Err: err}
}

func persistenceErr(err error) *JobError {
	return &JobError{Kind: PersistenceFailure, Message: "We couldn't save your progress. Please try again.", Err: err}
}
