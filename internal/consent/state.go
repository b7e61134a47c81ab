// Package consent gates sensitive conversation behind an approver's
// decision, keeping at most one open request per identity.
package consent

import (
	"errors"
	"slices"
)

// State is where an identity stands in the consent workflow.
type State string

const (
	// StateNoRecord means no request has been made and no decision exists.
	StateNoRecord State = "no-record"
	// StatePending means a request is awaiting the approver.
	StatePending State = "pending"
	// StateGranted means sensitive conversation is allowed.
	StateGranted State = "granted"
	// StateDenied means sensitive conversation is refused.
	StateDenied State = "denied"
)

var (
	// ErrNoPending is returned when a decision targets an identity with no
	// open request.
	ErrNoPending = errors.New("no pending consent request")

	// ErrInvalidTransition is returned for moves the workflow does not allow.
	ErrInvalidTransition = errors.New("invalid consent transition")
)

// transitions lists the allowed moves from each state.
var transitions = map[State][]State{
	StateNoRecord: {StatePending},
	StatePending:  {StateGranted, StateDenied, StateNoRecord},
	StateGranted:  {StateDenied, StateNoRecord},
	StateDenied:   {StateGranted, StateNoRecord},
}

// CanTransition reports whether moving from one state to another is allowed.
func CanTransition(from, to State) bool {
	return slices.Contains(transitions[from], to)
}
