package itp

import (
	"errors"
	"math"
	"math/cmplx"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/gpsolve/internal/grid"
	"github.com/san-kum/gpsolve/internal/parallel"
	"github.com/san-kum/gpsolve/internal/potential"
	"github.com/san-kum/gpsolve/internal/propagate"
	"github.com/san-kum/gpsolve/internal/wavefunc"
)

// phaseShift rotates a state by angle·n on its n-th step, so the change per
// iteration grows no matter how small tau gets. Once a state listed in blowUp
// has taken more than blowAfter steps it is also scaled by 1e151.
type phaseShift struct {
	angle     float64
	blowUp    *wavefunc.State
	blowAfter int

	mu    sync.Mutex
	calls map[*wavefunc.State]int
}

func (p *phaseShift) Name() string { return "phase-shift" }

func (p *phaseShift) Step(psi *wavefunc.State, _ *grid.Real, _ float64) error {
	p.mu.Lock()
	if p.calls == nil {
		p.calls = make(map[*wavefunc.State]int)
	}
	p.calls[psi]++
	n := p.calls[psi]
	p.mu.Unlock()

	psi.Grid.Scale(cmplx.Rect(1, p.angle*float64(n)))
	if psi == p.blowUp && n > p.blowAfter {
		psi.Grid.Scale(1e151)
	}
	return nil
}

var _ = Describe("Engine", func() {
	var (
		states []*wavefunc.State
		params Params
	)

	BeforeEach(func() {
		states = allocStates(1, grid.Periodic)
		seed(states)
		params = Params{States: 1, Tau: 0.05, Threshold: 1e-4, Iterations: 3}
	})

	It("should start in the init phase", func() {
		eng, err := NewEngine(states, harmonic(potential.Params{}), propagate.NewSplitOperator(), nil, params)
		Expect(err).NotTo(HaveOccurred())
		Expect(eng.Phase()).To(Equal(PhaseInit))
		Expect(eng.Potentials()).To(HaveLen(1))
		Expect(eng.Iterations()).To(Equal(0))
	})

	It("should step until the iteration cap and then refuse", func() {
		eng, err := NewEngine(states, harmonic(potential.Params{}), propagate.NewSplitOperator(), parallel.New(2), params)
		Expect(err).NotTo(HaveOccurred())

		for i := 1; i <= 3; i++ {
			p, err := eng.Step()
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Iteration).To(Equal(i))
		}
		Expect(eng.Phase()).To(Equal(PhaseMaxIterReached))

		_, err = eng.Step()
		Expect(errors.Is(err, ErrFinished)).To(BeTrue())

		eng.Finish()
		Expect(eng.Phase()).To(Equal(PhaseDone))
	})

	It("should fill the potentials from the current densities", func() {
		eng, err := NewEngine(states, harmonic(potential.Params{Mu: 0.5}), propagate.NewSplitOperator(), nil, params)
		Expect(err).NotTo(HaveOccurred())
		_, err = eng.Step()
		Expect(err).NotTo(HaveOccurred())

		pot := eng.Potentials()[0]
		x, y := pot.Position(3, 7)
		Expect(pot.At(3, 7)).To(BeNumerically("~", 0.5*(x*x+y*y)-0.5, 1e-12))
	})

	It("should reject mismatched grid shapes", func() {
		other, err := wavefunc.Allocate(16, 16, 0.8, 1, grid.Periodic, wavefunc.SecondOrder)
		Expect(err).NotTo(HaveOccurred())
		params.Virtuals = 1
		_, err = NewEngine(append(states, other), harmonic(potential.Params{}), propagate.NewSplitOperator(), nil, params)
		Expect(errors.Is(err, grid.ErrShape)).To(BeTrue())
	})

	It("should surface potential errors", func() {
		boom := errors.New("boom")
		fn := potential.FunctionFunc(func([]*wavefunc.State, []*grid.Real) error { return boom })
		eng, err := NewEngine(states, fn, propagate.NewSplitOperator(), nil, params)
		Expect(err).NotTo(HaveOccurred())
		_, err = eng.Step()
		Expect(errors.Is(err, boom)).To(BeTrue())
	})

	It("should hold tau at its floor instead of diverging", func() {
		params.Threshold = 1e-6
		params.Iterations = 60
		eng, err := NewEngine(states, harmonic(potential.Params{}), &phaseShift{angle: 0.01}, nil, params)
		Expect(err).NotTo(HaveOccurred())
		Expect(eng.MinTau()).To(Equal(math.Ldexp(params.Tau, -20)))

		reductions := 0
		for !eng.Phase().Terminal() {
			p, err := eng.Step()
			Expect(err).NotTo(HaveOccurred())
			if p.Reduced {
				reductions++
			}
			Expect(p.Tau).To(BeNumerically(">=", eng.MinTau()))
		}

		Expect(reductions).To(Equal(20))
		Expect(eng.Tau()).To(Equal(eng.MinTau()))
		Expect(eng.Phase()).To(Equal(PhaseMaxIterReached))
		Expect(eng.Iterations()).To(Equal(60))
		Expect(eng.BestErms()).To(BeNumerically("<", eng.Erms()))
	})

	It("should diverge on an exploding norm and name the state", func() {
		states = allocStates(2, grid.Periodic)
		seed(states)
		params.States = 2
		params.Iterations = 10
		prop := &phaseShift{angle: 0.01, blowUp: states[1], blowAfter: 3}
		eng, err := NewEngine(states, harmonic(potential.Params{}), prop, parallel.New(2), params)
		Expect(err).NotTo(HaveOccurred())

		for i := 0; i < 3; i++ {
			_, err := eng.Step()
			Expect(err).NotTo(HaveOccurred())
		}
		_, err = eng.Step()

		Expect(errors.Is(err, ErrDiverged)).To(BeTrue())
		Expect(errors.Is(err, wavefunc.ErrDegenerate)).To(BeFalse())
		var de *DivergedError
		Expect(errors.As(err, &de)).To(BeTrue())
		Expect(de.State).To(Equal(1))
		Expect(de.Iteration).To(Equal(3))
		Expect(de.Tau).To(Equal(eng.Tau()))
		Expect(de.BestErms).To(Equal(eng.BestErms()))
		Expect(math.IsInf(de.BestErms, 0)).To(BeFalse())
		Expect(de.BestErms).To(BeNumerically(">", 0))
		Expect(de.Error()).To(ContainSubstring("exceeds"))
		Expect(eng.Phase()).To(Equal(PhaseDiverged))
	})

	It("should propagate with the Euler scheme on Dirichlet grids", func() {
		states = allocStates(1, grid.Dirichlet)
		seed(states)
		params.Tau = 0.005
		params.Iterations = 50
		eng, err := NewEngine(states, harmonic(potential.Params{}), propagate.NewEuler(), parallel.Serial(), params)
		Expect(err).NotTo(HaveOccurred())

		for !eng.Phase().Terminal() {
			_, err := eng.Step()
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(states[0].Norm()).To(BeNumerically("~", 1.0, 1e-10))
	})
})

var _ = Describe("Status", func() {
	It("should print upper-case names", func() {
		Expect(StatusConverged.String()).To(Equal("CONVERGED"))
		Expect(StatusMaxIterReached.String()).To(Equal("MAX_ITER_REACHED"))
		Expect(StatusDiverged.String()).To(Equal("DIVERGED"))
	})
})
