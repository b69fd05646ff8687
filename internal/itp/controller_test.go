package itp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/san-kum/gpsolve/internal/grid"
	"github.com/san-kum/gpsolve/internal/parallel"
	"github.com/san-kum/gpsolve/internal/potential"
	"github.com/san-kum/gpsolve/internal/propagate"
	"github.com/san-kum/gpsolve/internal/wavefunc"
)

func allocStates(n int, b grid.Boundary) []*wavefunc.State {
	out := make([]*wavefunc.State, n)
	for i := range out {
		s, err := wavefunc.Allocate(32, 32, 0.8, 1, b, wavefunc.SecondOrder)
		Expect(err).NotTo(HaveOccurred())
		out[i] = s
	}
	return out
}

// seed fills states with displaced Gaussians carrying increasing powers of x
// and y so that Gram–Schmidt has distinct directions to work with.
func seed(states []*wavefunc.State) {
	for k, s := range states {
		s.Map(func(x, y float64) complex128 {
			g := math.Exp(-((x-0.5)*(x-0.5) + (y+0.3)*(y+0.3)) / 2)
			switch k {
			case 0:
				return complex(g, 0)
			case 1:
				return complex(x*g+0.2*y*g, 0)
			default:
				return complex(y*g-0.1*x*y*g, 0)
			}
		})
	}
}

func harmonic(params potential.Params) potential.Function {
	return potential.NewEvaluator(params, potential.NewHarmonic(), parallel.New(2))
}

var _ = Describe("Controller", func() {
	var (
		ctl    *Controller
		params Params
	)

	BeforeEach(func() {
		ctl = NewController(parallel.New(2), propagate.NewSplitOperator(), nil)
		params = Params{States: 1, Tau: 0.05, Threshold: 1e-4, Iterations: 1000}
	})

	Context("harmonic trap, single state", func() {
		It("should converge to the ground state", func() {
			states := allocStates(1, grid.Periodic)
			seed(states)

			res, err := ctl.Solve(context.Background(), states, harmonic(potential.Params{}), params)

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Status).To(Equal(StatusConverged))
			Expect(res.Iterations).To(BeNumerically("<", params.Iterations))
			Expect(res.Erms).To(BeNumerically("<", params.Threshold))
			Expect(res.Tau).To(BeNumerically("<=", params.Tau))
			Expect(res.Energies).To(HaveLen(1))
			Expect(res.Energies[0]).To(BeNumerically("~", 1.0, 1e-2))
			Expect(states[0].Norm()).To(BeNumerically("~", 1.0, 1e-10))
			Expect(res.History).To(HaveLen(res.Iterations))
		})

		It("should never raise tau and only shrink it when erms stalls", func() {
			states := allocStates(1, grid.Periodic)
			seed(states)

			res, err := ctl.Solve(context.Background(), states, harmonic(potential.Params{}), params)
			Expect(err).NotTo(HaveOccurred())

			for i := 1; i < len(res.History); i++ {
				prev, cur := res.History[i-1], res.History[i]
				Expect(cur.Tau).To(BeNumerically("<=", prev.Tau))
				if cur.Erms >= prev.Erms {
					Expect(cur.Tau).To(BeNumerically("~", prev.Tau/2, 1e-15))
				}
			}
		})
	})

	Context("initial tau sweep", func() {
		for _, tau := range []float64{0.02, 0.05, 0.1, 0.2} {
			tau := tau
			It(fmt.Sprintf("should converge with monotone erms after the last reduction (tau=%g)", tau), func() {
				params.Tau = tau
				params.Iterations = 2000
				states := allocStates(1, grid.Periodic)
				seed(states)

				res, err := ctl.Solve(context.Background(), states, harmonic(potential.Params{}), params)
				Expect(err).NotTo(HaveOccurred())
				Expect(res.Status).To(Equal(StatusConverged))
				Expect(res.Iterations).To(BeNumerically("<=", params.Iterations))

				stable := 0
				for i := 1; i < len(res.History); i++ {
					if res.History[i].Tau < res.History[i-1].Tau {
						stable = i
					}
				}
				for i := stable + 1; i < len(res.History); i++ {
					Expect(res.History[i].Erms).To(BeNumerically("<", res.History[i-1].Erms))
				}
			})
		}
	})

	Context("two states with one virtual", func() {
		It("should keep all states orthonormal", func() {
			params.States = 2
			params.Virtuals = 1
			params.Iterations = 2000
			states := allocStates(3, grid.Periodic)
			seed(states)

			res, err := ctl.Solve(context.Background(), states, harmonic(potential.Params{}), params)

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Status).To(Equal(StatusConverged))
			for i := range states {
				Expect(states[i].Norm()).To(BeNumerically("~", 1.0, 1e-10))
				for j := 0; j < i; j++ {
					Expect(cmplx.Abs(wavefunc.Inner(states[j], states[i]))).To(BeNumerically("<", 1e-8))
				}
			}
			Expect(res.Energies).To(HaveLen(3))
			Expect(res.Energies[0]).To(BeNumerically("~", 1.0, 2e-2))
			Expect(res.Energies[1]).To(BeNumerically("~", 2.0, 2e-2))
		})
	})

	Context("repulsive interaction", func() {
		It("should raise the ground-state energy", func() {
			params.Iterations = 2000
			states := allocStates(1, grid.Periodic)
			seed(states)

			res, err := ctl.Solve(context.Background(), states,
				harmonic(potential.Params{Lambda: 1, Particles: 10}), params)

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Status).To(Equal(StatusConverged))
			Expect(res.Energies[0]).To(BeNumerically(">", 1.1))
		})
	})

	Context("iteration cap", func() {
		It("should report MaxIterReached without an error", func() {
			params.Iterations = 5
			params.Threshold = 1e-300
			states := allocStates(1, grid.Periodic)
			seed(states)

			res, err := ctl.Solve(context.Background(), states, harmonic(potential.Params{}), params)

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Status).To(Equal(StatusMaxIterReached))
			Expect(res.Iterations).To(Equal(5))
			Expect(res.History).To(HaveLen(5))
			Expect(res.Erms).To(BeNumerically(">=", params.Threshold))
		})
	})

	Context("threshold below the reachable precision", func() {
		It("should run to the cap at the tau floor and report the best erms", func() {
			params.Threshold = 1e-14
			params.Iterations = 8000
			states := allocStates(1, grid.Periodic)
			seed(states)

			res, err := ctl.Solve(context.Background(), states, harmonic(potential.Params{}), params)

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Status).To(Equal(StatusMaxIterReached))
			Expect(res.Iterations).To(Equal(8000))
			Expect(res.BestErms).To(BeNumerically("<", 1e-10))
			Expect(res.Erms).To(BeNumerically(">=", res.BestErms))
			Expect(res.Tau).To(BeNumerically(">=", math.Ldexp(params.Tau, -20)))
			Expect(res.Energies).To(HaveLen(1))
			Expect(res.Energies[0]).To(BeNumerically("~", 1.0, 1e-2))
			Expect(states[0].Norm()).To(BeNumerically("~", 1.0, 1e-10))
		})
	})

	Context("tau 1e-4 with threshold 1e-4", func() {
		// The slowest mode shrinks by exp(-tau) per iteration, so 1000 steps
		// of 1e-4 cover a tenth of a unit of imaginary time.
		It("should stop at the cap well short of the ground state", func() {
			params.Tau = 1e-4
			params.Threshold = 1e-4
			params.Iterations = 1000
			states := allocStates(1, grid.Periodic)
			seed(states)

			res, err := ctl.Solve(context.Background(), states, harmonic(potential.Params{}), params)

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Status).To(Equal(StatusMaxIterReached))
			Expect(res.Iterations).To(Equal(1000))
			Expect(res.Erms).To(BeNumerically(">", 1e-2))
			Expect(res.Energies[0]).To(BeNumerically(">", 1.01))
		})
	})

	Context("exploding norm", func() {
		It("should diverge without energies and keep the best erms", func() {
			states := allocStates(2, grid.Periodic)
			seed(states)
			params.States = 2
			prop := &phaseShift{angle: 0.01, blowUp: states[1], blowAfter: 2}
			ctl = NewController(parallel.New(2), prop, nil)

			res, err := ctl.Solve(context.Background(), states, harmonic(potential.Params{}), params)

			var de *DivergedError
			Expect(errors.As(err, &de)).To(BeTrue())
			Expect(de.State).To(Equal(1))
			Expect(de.Iteration).To(Equal(2))
			Expect(res.Status).To(Equal(StatusDiverged))
			Expect(res.Iterations).To(Equal(2))
			Expect(res.History).To(HaveLen(2))
			Expect(res.BestErms).To(Equal(de.BestErms))
			Expect(res.Tau).To(Equal(de.Tau))
			Expect(res.Energies).To(BeNil())
		})
	})

	Context("non-finite potential", func() {
		It("should diverge and keep the best erms", func() {
			states := allocStates(1, grid.Periodic)
			seed(states)
			fn := potential.FunctionFunc(func(_ []*wavefunc.State, pots []*grid.Real) error {
				for _, p := range pots {
					p.Fill(math.NaN())
				}
				return nil
			})

			res, err := ctl.Solve(context.Background(), states, fn, params)

			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, ErrDiverged)).To(BeTrue())
			Expect(errors.Is(err, wavefunc.ErrDegenerate)).To(BeTrue())
			var de *DivergedError
			Expect(errors.As(err, &de)).To(BeTrue())
			Expect(de.State).To(Equal(0))
			Expect(res).NotTo(BeNil())
			Expect(res.Status).To(Equal(StatusDiverged))
			Expect(res.Energies).To(BeNil())
		})
	})

	Context("setup errors", func() {
		It("should reject a state count mismatch", func() {
			params.Virtuals = 1
			res, err := ctl.Solve(context.Background(), allocStates(1, grid.Periodic), harmonic(potential.Params{}), params)
			Expect(res).To(BeNil())
			Expect(errors.Is(err, ErrStateCount)).To(BeTrue())
		})

		It("should reject non-positive parameters", func() {
			for _, p := range []Params{
				{States: 1, Tau: 0, Threshold: 1e-4, Iterations: 10},
				{States: 1, Tau: 0.1, Threshold: 0, Iterations: 10},
				{States: 1, Tau: 0.1, Threshold: 1e-4, Iterations: 0},
				{States: 0, Tau: 0.1, Threshold: 1e-4, Iterations: 10},
			} {
				_, err := ctl.Solve(context.Background(), allocStates(1, grid.Periodic), harmonic(potential.Params{}), p)
				Expect(errors.Is(err, grid.ErrInvalidParameter)).To(BeTrue(), "params %+v", p)
			}
		})

		It("should reject split-operator propagation on Dirichlet grids", func() {
			states := allocStates(1, grid.Dirichlet)
			seed(states)
			res, err := ctl.Solve(context.Background(), states, harmonic(potential.Params{}), params)
			Expect(errors.Is(err, propagate.ErrBoundary)).To(BeTrue())
			Expect(res.Iterations).To(Equal(0))
		})
	})

	Context("cancellation", func() {
		It("should stop before the first iteration", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			states := allocStates(1, grid.Periodic)
			seed(states)

			res, err := ctl.Solve(ctx, states, harmonic(potential.Params{}), params)

			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
			Expect(res.Status).To(Equal(StatusCanceled))
			Expect(res.Iterations).To(Equal(0))
		})

		It("should stop from an observer between iterations", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			ctl.AddObserver(ObserverFunc(func(p Progress) {
				if p.Iteration == 3 {
					cancel()
				}
			}))
			states := allocStates(1, grid.Periodic)
			seed(states)

			res, err := ctl.Solve(ctx, states, harmonic(potential.Params{}), params)

			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
			Expect(res.Iterations).To(Equal(3))
			Expect(res.Energies).To(HaveLen(1))
		})
	})

	Context("logging", func() {
		It("should log start, progress and finish", func() {
			core, logs := observer.New(zapcore.DebugLevel)
			ctl = NewController(parallel.Serial(), propagate.NewSplitOperator(), zap.New(core))
			ctl.SetLogEvery(2)
			params.Iterations = 4
			params.Threshold = 1e-300
			states := allocStates(1, grid.Periodic)
			seed(states)

			_, err := ctl.Solve(context.Background(), states, harmonic(potential.Params{}), params)
			Expect(err).NotTo(HaveOccurred())

			Expect(logs.FilterMessage("itp start").Len()).To(Equal(1))
			Expect(logs.FilterMessage("itp progress").Len()).To(Equal(2))
			Expect(logs.FilterMessage("itp finished").Len()).To(Equal(1))
		})
	})
})
