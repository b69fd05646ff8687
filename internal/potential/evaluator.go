package potential

import (
	"errors"
	"fmt"

	"github.com/san-kum/gpsolve/internal/grid"
	"github.com/san-kum/gpsolve/internal/parallel"
	"github.com/san-kum/gpsolve/internal/wavefunc"
)

var ErrCount = errors.New("potential: state and potential counts differ")

// Function computes one potential grid per state from the current states.
// Implementations must not modify the states.
type Function interface {
	Compute(states []*wavefunc.State, potentials []*grid.Real) error
}

// FunctionFunc adapts a closure to Function.
type FunctionFunc func(states []*wavefunc.State, potentials []*grid.Real) error

func (f FunctionFunc) Compute(states []*wavefunc.State, potentials []*grid.Real) error {
	return f(states, potentials)
}

// Params is the Gross–Pitaevskii parameter set.
type Params struct {
	Mu        float64 `yaml:"mu"`
	Lambda    float64 `yaml:"lambda"`
	Particles float64 `yaml:"particles"`
}

type Evaluator struct {
	params   Params
	external External
	exec     *parallel.Context
}

func NewEvaluator(params Params, external External, exec *parallel.Context) *Evaluator {
	if exec == nil {
		exec = parallel.Serial()
	}
	return &Evaluator{params: params, external: external, exec: exec}
}

func (e *Evaluator) Params() Params { return e.params }

// Compute overwrites potentials[i] with Lambda·Particles·|ψ_i|² − Mu + V_ext.
// V_ext is sampled once per grid point into a scratch grid owned by this call.
func (e *Evaluator) Compute(states []*wavefunc.State, potentials []*grid.Real) error {
	if len(states) != len(potentials) {
		return fmt.Errorf("%w: %d states, %d potentials", ErrCount, len(states), len(potentials))
	}
	if len(states) == 0 {
		return nil
	}

	ref := states[0].Grid
	for i := range states {
		if !grid.SameShape(ref, states[i].Grid) || !grid.SameShape(ref, potentials[i]) {
			return fmt.Errorf("potential %d: %w", i, grid.ErrShape)
		}
	}

	scratch, err := grid.NewReal(ref.NX, ref.NY, ref.Step, ref.Boundary)
	if err != nil {
		return err
	}
	if e.external != nil {
		e.sampleExternal(scratch)
	}

	g := e.params.Lambda * e.params.Particles
	mu := e.params.Mu
	ny := ref.NY
	for i, s := range states {
		if err := s.Density(potentials[i]); err != nil {
			return fmt.Errorf("potential %d: %w", i, err)
		}
		out := potentials[i].Data
		e.exec.For(ref.NX, 4, func(start, end int) {
			for k := start * ny; k < end*ny; k++ {
				out[k] = g*out[k] - mu + scratch.Data[k]
			}
		})
	}
	return nil
}

func (e *Evaluator) sampleExternal(dst *grid.Real) {
	ny := dst.NY
	e.exec.For(dst.NX, 4, func(start, end int) {
		for i := start; i < end; i++ {
			for j := 0; j < ny; j++ {
				x, y := dst.Position(i, j)
				dst.Data[i*ny+j] = e.external.Value(x, y)
			}
		}
	})
}
