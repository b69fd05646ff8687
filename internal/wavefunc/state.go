package wavefunc

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"

	"github.com/san-kum/gpsolve/internal/grid"
	"github.com/san-kum/gpsolve/internal/parallel"
)

// reduceChunk is the smallest run of samples a reduction hands to one worker.
const reduceChunk = 1 << 14

type Order int

const (
	FirstOrder Order = iota + 1
	SecondOrder
)

func (o Order) String() string {
	switch o {
	case FirstOrder:
		return "1st"
	case SecondOrder:
		return "2nd"
	default:
		return fmt.Sprintf("order(%d)", int(o))
	}
}

func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(s) {
	case "1", "1st", "first":
		return FirstOrder, nil
	case "2", "2nd", "second", "":
		return SecondOrder, nil
	}
	return 0, fmt.Errorf("%w: unknown propagator order %q", grid.ErrInvalidParameter, s)
}

type State struct {
	Grid     *grid.Complex
	Mass     float64
	Boundary grid.Boundary
	Order    Order

	exec *parallel.Context
}

func Allocate(nx, ny int, step, mass float64, b grid.Boundary, order Order) (*State, error) {
	if !(mass > 0) || math.IsInf(mass, 0) {
		return nil, fmt.Errorf("%w: %w (got %g)", grid.ErrInvalidParameter, ErrInvalidMass, mass)
	}
	if order != FirstOrder && order != SecondOrder {
		return nil, fmt.Errorf("%w: propagator order %v", grid.ErrInvalidParameter, order)
	}
	g, err := grid.NewComplex(nx, ny, step, b)
	if err != nil {
		return nil, err
	}
	return &State{Grid: g, Mass: mass, Boundary: b, Order: order}, nil
}

// Map seeds every sample from fn(x, y).
func (s *State) Map(fn func(x, y float64) complex128) {
	s.Grid.Map(fn)
}

// SetContext selects the execution context for the state's reductions. A nil
// context, the default, runs them on the calling goroutine.
func (s *State) SetContext(exec *parallel.Context) { s.exec = exec }

func (s *State) Clone() *State {
	c := *s
	c.Grid = s.Grid.Clone()
	return &c
}

func (s *State) CopyFrom(src *State) error {
	return s.Grid.CopyFrom(src.Grid)
}

// NormSquared returns Σ|ψ|²·step².
func (s *State) NormSquared() float64 {
	data := s.Grid.Data
	sum := parallel.Reduce(s.exec, len(data), reduceChunk, func(start, end int) float64 {
		acc := 0.0
		for _, v := range data[start:end] {
			acc += real(v)*real(v) + imag(v)*imag(v)
		}
		return acc
	})
	return sum * s.Grid.Cell()
}

func (s *State) Norm() float64 {
	return math.Sqrt(s.NormSquared())
}

// Normalize rescales ψ to unit discrete norm and returns the pre-scale norm.
func (s *State) Normalize() (float64, error) {
	n := s.Norm()
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return n, ErrDegenerate
	}
	s.Grid.Scale(complex(1/n, 0))
	return n, nil
}

// Inner returns ⟨a|b⟩ = Σ conj(a)·b·step².
func Inner(a, b *State) complex128 {
	ad, bd := a.Grid.Data, b.Grid.Data
	sum := parallel.Reduce(a.exec, len(ad), reduceChunk, func(start, end int) complex128 {
		var acc complex128
		for i := start; i < end; i++ {
			acc += cmplx.Conj(ad[i]) * bd[i]
		}
		return acc
	})
	return sum * complex(a.Grid.Cell(), 0)
}

// Orthogonalize removes the components of s along each of lower in turn
// (classical Gram–Schmidt). The lower states need not be normalized.
func (s *State) Orthogonalize(lower ...*State) error {
	for _, l := range lower {
		if !grid.SameShape(s.Grid, l.Grid) {
			return grid.ErrShape
		}
		ll := real(Inner(l, l))
		if ll == 0 {
			continue
		}
		c := Inner(l, s) / complex(ll, 0)
		ld := l.Grid.Data
		for i := range s.Grid.Data {
			s.Grid.Data[i] -= c * ld[i]
		}
	}
	return nil
}

// Density writes |ψ|² into dst.
func (s *State) Density(dst *grid.Real) error {
	if !grid.SameShape(s.Grid, dst) {
		return grid.ErrShape
	}
	for i, v := range s.Grid.Data {
		dst.Data[i] = real(v)*real(v) + imag(v)*imag(v)
	}
	return nil
}

// Distance returns the discrete L2 norm of a−b.
func Distance(a, b *State) float64 {
	ad, bd := a.Grid.Data, b.Grid.Data
	sum := parallel.Reduce(a.exec, len(ad), reduceChunk, func(start, end int) float64 {
		acc := 0.0
		for i := start; i < end; i++ {
			d := ad[i] - bd[i]
			acc += real(d)*real(d) + imag(d)*imag(d)
		}
		return acc
	})
	return math.Sqrt(sum * a.Grid.Cell())
}
