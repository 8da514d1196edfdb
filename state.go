package cmaa

import "fmt"

// State is the lifecycle state of a Manager.
type State uint8

// Manager states. Apply calls are valid in StateInitialized and StateReady.
const (
	// StateUninitialized is the state after New and after a failed Initialize.
	StateUninitialized State = iota

	// StateInitialized has programs but no pooled resources.
	StateInitialized

	// StateReady has programs and a resource pool of the current size.
	StateReady

	// StateDestroyed is terminal.
	StateDestroyed
)

var stateNames = [...]string{
	StateUninitialized: "uninitialized",
	StateInitialized:   "initialized",
	StateReady:         "ready",
	StateDestroyed:     "destroyed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// canApply returns the precondition error for an apply call in state s.
func (s State) canApply() error {
	switch s {
	case StateInitialized, StateReady:
		return nil
	case StateDestroyed:
		return ErrDestroyed
	default:
		return ErrNotInitialized
	}
}
