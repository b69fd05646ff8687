package propagate

import (
	"math"
	"sync"

	"github.com/san-kum/gpsolve/internal/grid"
	"github.com/san-kum/gpsolve/internal/wavefunc"
)

type kineticKey struct {
	nx, ny    int
	step, tau float64
	mass      float64
}

// SplitOperator applies exp(−τH) ≈ exp(−τV/2)·exp(−τT)·exp(−τV/2) for
// SecondOrder states and exp(−τT)·exp(−τV) for FirstOrder states.
// The kinetic factors are cached per shape, mass and τ; it is safe to step
// different states concurrently.
type SplitOperator struct {
	mu    sync.Mutex
	cache map[kineticKey][]float64
}

func NewSplitOperator() *SplitOperator {
	return &SplitOperator{cache: make(map[kineticKey][]float64)}
}

func (s *SplitOperator) Name() string { return "split" }

func (s *SplitOperator) Step(psi *wavefunc.State, potential *grid.Real, tau float64) error {
	if err := checkStep(psi, potential, tau); err != nil {
		return err
	}
	if psi.Boundary != grid.Periodic {
		return ErrBoundary
	}

	g := psi.Grid
	kin := s.kineticFactor(g, psi.Mass, tau)

	if psi.Order == wavefunc.FirstOrder {
		applyPotential(g, potential, tau)
		return wavefunc.SpectralMultiply(g, g, kin)
	}

	applyPotential(g, potential, tau/2)
	if err := wavefunc.SpectralMultiply(g, g, kin); err != nil {
		return err
	}
	applyPotential(g, potential, tau/2)
	return nil
}

func applyPotential(g *grid.Complex, potential *grid.Real, tau float64) {
	for i, v := range potential.Data {
		g.Data[i] *= complex(math.Exp(-tau*v), 0)
	}
}

func (s *SplitOperator) kineticFactor(g *grid.Complex, mass, tau float64) []float64 {
	key := kineticKey{nx: g.NX, ny: g.NY, step: g.Step, tau: tau, mass: mass}

	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.cache[key]; ok {
		return f
	}

	f := wavefunc.KineticSpectrum(g.NX, g.NY, g.Step, mass)
	for i, t := range f {
		f[i] = math.Exp(-tau * t)
	}
	// tau changes only when the step controller halves it; drop stale entries.
	for k := range s.cache {
		if k.nx == key.nx && k.ny == key.ny && k.step == key.step && k.mass == key.mass {
			delete(s.cache, k)
		}
	}
	s.cache[key] = f
	return f
}
