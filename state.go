package main

import "fmt"

// UpdateState is a state of the card update sequence.
type UpdateState string

const (
	StateAttempting UpdateState = "attempting"
	StateSucceeded  UpdateState = "succeeded"
	StateExhausted  UpdateState = "exhausted"

	// StateThrottled and StateSkipped end a trigger before any attempt.
	StateThrottled UpdateState = "throttled"
	StateSkipped   UpdateState = "skipped"
)

// Outcome describes how one trigger was handled.
type Outcome struct {
	State    UpdateState
	Card     string
	Attempts int
	Err      error // last remote error, set when State is StateExhausted
}

func (o Outcome) String() string {
	if o.Err != nil {
		return fmt.Sprintf("%s after %d attempts: %v", o.State, o.Attempts, o.Err)
	}
	return fmt.Sprintf("%s after %d attempts", o.State, o.Attempts)
}

// terminal reports whether no further transition can happen from s.
func (s UpdateState) terminal() bool {
	return s != StateAttempting
}
