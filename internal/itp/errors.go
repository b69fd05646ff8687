package itp

import (
	"errors"
	"fmt"
)

var (
	// ErrDiverged indicates a non-finite, vanishing or exploding norm, or a
	// non-finite residual.
	ErrDiverged = errors.New("itp: propagation diverged")

	// ErrFinished indicates Step was called on an engine in a terminal phase.
	ErrFinished = errors.New("itp: engine already finished")

	// ErrStateCount indicates the state slice does not hold States+Virtuals entries.
	ErrStateCount = errors.New("itp: state count does not match parameters")
)

// DivergedError carries the run context of a divergence.
type DivergedError struct {
	Iteration int
	State     int
	Tau       float64
	BestErms  float64
	Wrapped   error
}

func (e *DivergedError) Error() string {
	msg := fmt.Sprintf("%v at iteration %d (tau=%g, best erms=%e)", ErrDiverged, e.Iteration, e.Tau, e.BestErms)
	if e.State >= 0 {
		msg += fmt.Sprintf(", state %d", e.State)
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

func (e *DivergedError) Unwrap() []error {
	if e.Wrapped == nil {
		return []error{ErrDiverged}
	}
	return []error{ErrDiverged, e.Wrapped}
}
