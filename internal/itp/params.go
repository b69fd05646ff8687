package itp

import (
	"fmt"
	"math"

	"github.com/san-kum/gpsolve/internal/grid"
)

// Params is fixed for the duration of a run.
type Params struct {
	States     int
	Virtuals   int
	Tau        float64
	Threshold  float64
	Iterations int
}

func DefaultParams() Params {
	return Params{
		States:     1,
		Tau:        0.05,
		Threshold:  1e-4,
		Iterations: 1000,
	}
}

func (p Params) Total() int { return p.States + p.Virtuals }

func (p Params) Validate() error {
	switch {
	case p.States < 1:
		return fmt.Errorf("%w: states must be at least 1, got %d", grid.ErrInvalidParameter, p.States)
	case p.Virtuals < 0:
		return fmt.Errorf("%w: virtuals must be non-negative, got %d", grid.ErrInvalidParameter, p.Virtuals)
	case !(p.Tau > 0) || math.IsInf(p.Tau, 0):
		return fmt.Errorf("%w: tau must be positive, got %g", grid.ErrInvalidParameter, p.Tau)
	case !(p.Threshold > 0):
		return fmt.Errorf("%w: threshold must be positive, got %g", grid.ErrInvalidParameter, p.Threshold)
	case p.Iterations <= 0:
		return fmt.Errorf("%w: iterations must be positive, got %d", grid.ErrInvalidParameter, p.Iterations)
	}
	return nil
}
