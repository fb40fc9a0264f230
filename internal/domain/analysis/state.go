package analysis

import "time"

// State is a node of the orchestration state machine.
type State string

const (
	StateIdle               State = "idle"
	StateValidating         State = "validating"
	StateDispatching        State = "dispatching"
	StateNormalizing        State = "normalizing"
	StateSucceeded          State = "succeeded"
	StatePartiallySucceeded State = "partially_succeeded"
	StateFailed             State = "failed"
)

// Terminal reports whether no further transition can leave s.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StatePartiallySucceeded || s == StateFailed
}

// Event is one observed state transition of a submission.
type Event struct {
	State   State     `json:"state"`
	Attempt int       `json:"attempt,omitempty"` // dispatch attempt, 1-based
	Kind    ErrorKind `json:"kind,omitempty"`    // set on StateFailed
	At      time.Time `json:"at"`
}
