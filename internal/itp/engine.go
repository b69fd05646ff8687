package itp

import (
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/gpsolve/internal/grid"
	"github.com/san-kum/gpsolve/internal/parallel"
	"github.com/san-kum/gpsolve/internal/potential"
	"github.com/san-kum/gpsolve/internal/propagate"
	"github.com/san-kum/gpsolve/internal/wavefunc"
)

type Phase int

const (
	PhaseInit Phase = iota
	PhaseIterating
	PhaseConverged
	PhaseMaxIterReached
	PhaseDiverged
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhaseIterating:
		return "iterating"
	case PhaseConverged:
		return "converged"
	case PhaseMaxIterReached:
		return "max_iter_reached"
	case PhaseDiverged:
		return "diverged"
	case PhaseDone:
		return "done"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Terminal reports whether no further iterations will run.
func (p Phase) Terminal() bool {
	return p == PhaseConverged || p == PhaseMaxIterReached || p == PhaseDiverged || p == PhaseDone
}

const (
	// maxNorm bounds the pre-normalization norm after one step.
	maxNorm = 1e150
	// tauFloor is the deepest reduction, as a power of two, below the initial
	// tau. Once there, tau stays put and the run ends on the threshold or cap.
	tauFloor = 20
)

// Progress describes one finished iteration.
type Progress struct {
	Iteration int
	Erms      float64
	Tau       float64
	Reduced   bool
	Phase     Phase
}

type Engine struct {
	params     Params
	states     []*wavefunc.State
	potentials []*grid.Real
	prev       []*wavefunc.State
	partials   []float64

	fn   potential.Function
	prop propagate.Propagator
	exec *parallel.Context

	tau       float64
	minTau    float64
	erms      float64
	prevErms  float64
	bestErms  float64
	iteration int
	phase     Phase
}

// NewEngine validates the setup and allocates one potential grid and one
// snapshot grid per state. states must hold params.States+params.Virtuals
// entries of identical shape, lowest index first; their reductions run on
// exec from then on.
func NewEngine(states []*wavefunc.State, fn potential.Function, prop propagate.Propagator, exec *parallel.Context, params Params) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if len(states) != params.Total() {
		return nil, fmt.Errorf("%w: have %d, want %d states + %d virtuals", ErrStateCount, len(states), params.States, params.Virtuals)
	}
	if fn == nil || prop == nil {
		return nil, fmt.Errorf("%w: potential function and propagator are required", grid.ErrInvalidParameter)
	}
	if exec == nil {
		exec = parallel.Serial()
	}

	ref := states[0].Grid
	e := &Engine{
		params:     params,
		states:     states,
		potentials: make([]*grid.Real, len(states)),
		prev:       make([]*wavefunc.State, len(states)),
		partials:   make([]float64, len(states)),
		fn:         fn,
		prop:       prop,
		exec:       exec,
		tau:        params.Tau,
		minTau:     math.Ldexp(params.Tau, -tauFloor),
		erms:       math.Inf(1),
		prevErms:   math.Inf(1),
		bestErms:   math.Inf(1),
	}
	for i, s := range states {
		if s == nil || !grid.SameShape(ref, s.Grid) {
			return nil, fmt.Errorf("state %d: %w", i, grid.ErrShape)
		}
		pot, err := grid.NewReal(ref.NX, ref.NY, ref.Step, s.Boundary)
		if err != nil {
			return nil, err
		}
		e.potentials[i] = pot
		s.SetContext(exec)
		e.prev[i] = s.Clone()
	}
	return e, nil
}

func (e *Engine) Phase() Phase { return e.phase }
func (e *Engine) Erms() float64 { return e.erms }
func (e *Engine) BestErms() float64 { return e.bestErms }
func (e *Engine) Tau() float64 { return e.tau }
func (e *Engine) MinTau() float64 { return e.minTau }
func (e *Engine) Iterations() int { return e.iteration }
func (e *Engine) States() []*wavefunc.State { return e.states }
func (e *Engine) Potentials() []*grid.Real { return e.potentials }
func (e *Engine) Params() Params { return e.params }

// Finish moves a terminal engine to PhaseDone.
func (e *Engine) Finish() {
	if e.phase.Terminal() {
		e.phase = PhaseDone
	}
}

// Step runs one iteration. A divergence returns a *DivergedError and leaves
// the engine in PhaseDiverged.
func (e *Engine) Step() (Progress, error) {
	if e.phase.Terminal() {
		return e.progress(false), ErrFinished
	}
	e.phase = PhaseIterating

	for i, s := range e.states {
		if err := e.prev[i].CopyFrom(s); err != nil {
			return e.progress(false), err
		}
	}

	if err := e.fn.Compute(e.states, e.potentials); err != nil {
		return e.progress(false), fmt.Errorf("potential: %w", err)
	}

	if err := e.propagateAll(); err != nil {
		return e.progress(false), err
	}

	if idx, err := e.orthonormalize(); err != nil {
		return e.progress(false), e.diverge(idx, err)
	}

	e.erms = e.residual()
	e.iteration++
	if math.IsNaN(e.erms) || math.IsInf(e.erms, 0) {
		return e.progress(false), e.diverge(-1, fmt.Errorf("non-finite erms"))
	}
	if e.erms < e.bestErms {
		e.bestErms = e.erms
	}

	reduced := false
	if e.erms >= e.prevErms && e.tau/2 >= e.minTau {
		e.tau /= 2
		reduced = true
	}
	e.prevErms = e.erms

	switch {
	case e.erms < e.params.Threshold:
		e.phase = PhaseConverged
	case e.iteration >= e.params.Iterations:
		e.phase = PhaseMaxIterReached
	}
	return e.progress(reduced), nil
}

func (e *Engine) propagateAll() error {
	var g errgroup.Group
	g.SetLimit(e.exec.Workers())
	for i := range e.states {
		i := i
		g.Go(func() error {
			if err := e.prop.Step(e.states[i], e.potentials[i], e.tau); err != nil {
				return fmt.Errorf("propagate state %d: %w", i, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// orthonormalize walks the states in index order. On failure it returns the
// offending state index.
func (e *Engine) orthonormalize() (int, error) {
	for i, s := range e.states {
		if i > 0 {
			if err := s.Orthogonalize(e.states[:i]...); err != nil {
				return i, err
			}
		}
		n, err := s.Normalize()
		if err != nil {
			return i, err
		}
		if n > maxNorm {
			return i, fmt.Errorf("norm %e exceeds %e", n, maxNorm)
		}
	}
	return -1, nil
}

// residual reduces the per-state squared changes of the requested states.
// Every partial is written by exactly one goroutine and read after Wait.
func (e *Engine) residual() float64 {
	n := e.params.States
	var g errgroup.Group
	g.SetLimit(e.exec.Workers())
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			d := wavefunc.Distance(e.prev[i], e.states[i])
			e.partials[i] = d * d
			return nil
		})
	}
	_ = g.Wait()

	sum := 0.0
	for _, p := range e.partials[:n] {
		sum += p
	}
	return math.Sqrt(sum/float64(n)) / e.tau
}

func (e *Engine) diverge(state int, cause error) error {
	e.phase = PhaseDiverged
	return &DivergedError{
		Iteration: e.iteration,
		State:     state,
		Tau:       e.tau,
		BestErms:  e.bestErms,
		Wrapped:   cause,
	}
}

func (e *Engine) progress(reduced bool) Progress {
	return Progress{
		Iteration: e.iteration,
		Erms:      e.erms,
		Tau:       e.tau,
		Reduced:   reduced,
		Phase:     e.phase,
	}
}
