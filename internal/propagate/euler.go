package propagate

import (
	"sync"

	"github.com/san-kum/gpsolve/internal/grid"
	"github.com/san-kum/gpsolve/internal/wavefunc"
)

type poolKey struct {
	nx, ny int
	step   float64
}

// Euler is the explicit finite-difference scheme
//
//	FirstOrder:  ψ ← ψ − τHψ
//	SecondOrder: ψ ← ψ − τ/2·(Hψ + H(ψ − τHψ))
//
// It is conditionally stable: τ must stay below roughly 2/max(H). The step
// controller's halving policy recovers from a τ that is too large.
type Euler struct {
	mu    sync.Mutex
	pools map[poolKey]*grid.Pool[complex128]
}

func NewEuler() *Euler {
	return &Euler{pools: make(map[poolKey]*grid.Pool[complex128])}
}

func (e *Euler) Name() string { return "euler" }

func (e *Euler) pool(g *grid.Complex) *grid.Pool[complex128] {
	key := poolKey{nx: g.NX, ny: g.NY, step: g.Step}
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.pools[key]
	if !ok {
		p = grid.NewPool[complex128](g.NX, g.NY, g.Step, g.Boundary)
		e.pools[key] = p
	}
	return p
}

func (e *Euler) Step(psi *wavefunc.State, potential *grid.Real, tau float64) error {
	if err := checkStep(psi, potential, tau); err != nil {
		return err
	}

	pool := e.pool(psi.Grid)
	k1 := pool.Get()
	defer pool.Put(k1)
	k1.Boundary = psi.Boundary

	if err := psi.Hamiltonian(k1, potential); err != nil {
		return err
	}

	data := psi.Grid.Data
	ct := complex(tau, 0)
	if psi.Order == wavefunc.FirstOrder {
		for i := range data {
			data[i] -= ct * k1.Data[i]
		}
		return nil
	}

	trial := *psi
	trial.Grid = pool.Get()
	defer pool.Put(trial.Grid)
	trial.Grid.Boundary = psi.Boundary
	if err := trial.CopyFrom(psi); err != nil {
		return err
	}
	for i := range trial.Grid.Data {
		trial.Grid.Data[i] -= ct * k1.Data[i]
	}
	k2 := pool.Get()
	defer pool.Put(k2)
	k2.Boundary = psi.Boundary
	if err := trial.Hamiltonian(k2, potential); err != nil {
		return err
	}

	half := complex(tau/2, 0)
	for i := range data {
		data[i] -= half * (k1.Data[i] + k2.Data[i])
	}
	return nil
}
