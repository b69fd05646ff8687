// Package propagate advances a single state by one imaginary-time step.
//
// The stencil is a policy: [SplitOperator] applies exp(−τV) and exp(−τT)
// factors with an FFT kinetic operator (periodic grids only), [Euler] uses a
// truncated Taylor expansion of exp(−τH) built on the state's own
// Hamiltonian and works on any boundary. Both honour the state's Order.
package propagate

import (
	"errors"
	"fmt"
	"sort"

	"github.com/san-kum/gpsolve/internal/grid"
	"github.com/san-kum/gpsolve/internal/wavefunc"
)

var (
	ErrBoundary = errors.New("propagate: boundary not supported by propagator")
	ErrStep     = errors.New("propagate: time step must be positive")
)

type Propagator interface {
	Name() string
	Step(psi *wavefunc.State, potential *grid.Real, tau float64) error
}

var registry = map[string]func() Propagator{
	"split": func() Propagator { return NewSplitOperator() },
	"euler": func() Propagator { return NewEuler() },
}

func New(name string) (Propagator, error) {
	if name == "" {
		name = "split"
	}
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown propagator: %s", name)
	}
	return fn(), nil
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func checkStep(psi *wavefunc.State, potential *grid.Real, tau float64) error {
	if !(tau > 0) {
		return fmt.Errorf("%w: got %g", ErrStep, tau)
	}
	if !grid.SameShape(psi.Grid, potential) {
		return fmt.Errorf("potential: %w", grid.ErrShape)
	}
	return nil
}
