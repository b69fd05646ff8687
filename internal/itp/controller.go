package itp

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/san-kum/gpsolve/internal/grid"
	"github.com/san-kum/gpsolve/internal/parallel"
	"github.com/san-kum/gpsolve/internal/potential"
	"github.com/san-kum/gpsolve/internal/propagate"
	"github.com/san-kum/gpsolve/internal/wavefunc"
)

type Status int

const (
	StatusConverged Status = iota
	StatusMaxIterReached
	StatusDiverged
	StatusCanceled
)

func (s Status) String() string {
	switch s {
	case StatusConverged:
		return "CONVERGED"
	case StatusMaxIterReached:
		return "MAX_ITER_REACHED"
	case StatusDiverged:
		return "DIVERGED"
	case StatusCanceled:
		return "CANCELED"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Sample is one row of the convergence history.
type Sample struct {
	Iteration int
	Erms      float64
	Tau       float64
}

type Result struct {
	Status     Status
	Erms       float64
	BestErms   float64
	Tau        float64
	Iterations int
	Energies   []float64
	History    []Sample
	Elapsed    time.Duration
}

// Observer receives every finished iteration. It runs on the solver
// goroutine and must not retain the engine's states.
type Observer interface {
	Observe(p Progress)
}

type ObserverFunc func(p Progress)

func (f ObserverFunc) Observe(p Progress) { f(p) }

type Controller struct {
	exec      *parallel.Context
	prop      propagate.Propagator
	logger    *zap.Logger
	observers []Observer
	logEvery  int
}

func NewController(exec *parallel.Context, prop propagate.Propagator, logger *zap.Logger) *Controller {
	if exec == nil {
		exec = parallel.Serial()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		exec:     exec,
		prop:     prop,
		logger:   logger,
		logEvery: 100,
	}
}

func (c *Controller) AddObserver(o Observer) {
	c.observers = append(c.observers, o)
}

// SetLogEvery sets the debug logging interval in iterations; n <= 0 disables it.
func (c *Controller) SetLogEvery(n int) {
	c.logEvery = n
}

// Solve propagates states in place until the run converges, hits the
// iteration cap, diverges or ctx is canceled. ctx is checked between
// iterations only.
//
// The returned Result is non-nil whenever the engine was constructed. A
// divergence returns a *DivergedError alongside it; MaxIterReached is not an
// error.
func (c *Controller) Solve(ctx context.Context, states []*wavefunc.State, fn potential.Function, params Params) (*Result, error) {
	if c.prop == nil {
		return nil, fmt.Errorf("%w: no propagator", grid.ErrInvalidParameter)
	}
	eng, err := NewEngine(states, fn, c.prop, c.exec, params)
	if err != nil {
		return nil, err
	}

	log := c.logger.With(
		zap.String("propagator", c.prop.Name()),
		zap.Int("states", params.States),
		zap.Int("virtuals", params.Virtuals),
	)
	log.Info("itp start",
		zap.Int("nx", states[0].Grid.NX),
		zap.Int("ny", states[0].Grid.NY),
		zap.Float64("step", states[0].Grid.Step),
		zap.Float64("tau", params.Tau),
		zap.Float64("threshold", params.Threshold),
		zap.Int("iterations", params.Iterations),
		zap.Int("workers", c.exec.Workers()),
	)

	start := time.Now()
	res := &Result{History: make([]Sample, 0, min(params.Iterations, 4096))}
	var runErr error

	for !eng.Phase().Terminal() {
		if err := ctx.Err(); err != nil {
			res.Status = StatusCanceled
			runErr = err
			log.Warn("itp canceled", zap.Int("iteration", eng.Iterations()))
			break
		}

		p, err := eng.Step()
		if err != nil {
			res.Status = StatusDiverged
			runErr = err
			log.Error("itp failed", zap.Error(err))
			break
		}

		res.History = append(res.History, Sample{Iteration: p.Iteration, Erms: p.Erms, Tau: p.Tau})
		for _, o := range c.observers {
			o.Observe(p)
		}
		if p.Reduced {
			log.Warn("tau reduced", zap.Int("iteration", p.Iteration), zap.Float64("tau", p.Tau), zap.Float64("erms", p.Erms))
		}
		if c.logEvery > 0 && p.Iteration%c.logEvery == 0 {
			log.Debug("itp progress", zap.Int("iteration", p.Iteration), zap.Float64("erms", p.Erms), zap.Float64("tau", p.Tau))
		}
	}

	switch eng.Phase() {
	case PhaseConverged:
		res.Status = StatusConverged
	case PhaseMaxIterReached:
		res.Status = StatusMaxIterReached
	}
	eng.Finish()

	res.Erms = eng.Erms()
	res.BestErms = eng.BestErms()
	res.Tau = eng.Tau()
	res.Iterations = eng.Iterations()
	res.Elapsed = time.Since(start)

	if res.Status != StatusDiverged {
		energies, err := Energies(states, fn)
		if err != nil {
			return res, fmt.Errorf("energies: %w", err)
		}
		res.Energies = energies
	}

	log.Info("itp finished",
		zap.Stringer("status", res.Status),
		zap.Int("iterations", res.Iterations),
		zap.Float64("erms", res.Erms),
		zap.Float64("tau", res.Tau),
		zap.Float64s("energies", res.Energies),
		zap.Duration("elapsed", res.Elapsed),
	)
	return res, runErr
}

// Energies evaluates ⟨ψ|H|ψ⟩ of every state against potentials freshly
// computed by fn.
func Energies(states []*wavefunc.State, fn potential.Function) ([]float64, error) {
	if len(states) == 0 {
		return nil, nil
	}
	ref := states[0].Grid
	pots := make([]*grid.Real, len(states))
	for i, s := range states {
		p, err := grid.NewReal(ref.NX, ref.NY, ref.Step, s.Boundary)
		if err != nil {
			return nil, err
		}
		pots[i] = p
	}
	if err := fn.Compute(states, pots); err != nil {
		return nil, err
	}

	scratch, err := grid.NewComplex(ref.NX, ref.NY, ref.Step, ref.Boundary)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(states))
	for i, s := range states {
		scratch.Boundary = s.Boundary
		e, err := s.Energy(pots[i], scratch)
		if err != nil {
			return nil, fmt.Errorf("state %d: %w", i, err)
		}
		out[i] = e
	}
	return out, nil
}
