// Package grid provides uniformly spaced rectangular 2D sample buffers.
//
// A [Grid] stores NX*NY samples of a real or complex element type in one
// contiguous slice, indexed row-major by (x, y): sample (i, j) lives at
// Data[i*NY+j] and sits at position ((i-NX/2)*Step, (j-NY/2)*Step), so the
// origin is the grid centre.
//
//	psi, _ := grid.NewComplex(32, 32, 0.8, grid.Periodic)
//	psi.Map(func(x, y float64) complex128 { return complex(math.Exp(-x*x-y*y), 0) })
package grid

import (
	"fmt"
	"math"
	"strings"
)

// MaxSamples caps a single buffer; larger requests fail with ErrAllocation.
const MaxSamples = 1 << 28

type Sample interface {
	~float64 | ~complex128
}

type Boundary int

const (
	Periodic Boundary = iota
	Dirichlet
)

func (b Boundary) String() string {
	switch b {
	case Periodic:
		return "periodic"
	case Dirichlet:
		return "dirichlet"
	default:
		return fmt.Sprintf("boundary(%d)", int(b))
	}
}

func ParseBoundary(s string) (Boundary, error) {
	switch strings.ToLower(s) {
	case "periodic", "":
		return Periodic, nil
	case "dirichlet", "other", "zero":
		return Dirichlet, nil
	}
	return 0, fmt.Errorf("%w: unknown boundary %q", ErrInvalidParameter, s)
}

type Grid[T Sample] struct {
	NX, NY   int
	Step     float64
	Boundary Boundary
	Data     []T
}

// Real holds potentials and densities, Complex holds wavefunctions.
type (
	Real    = Grid[float64]
	Complex = Grid[complex128]
)

func New[T Sample](nx, ny int, step float64, b Boundary) (*Grid[T], error) {
	if nx <= 0 || ny <= 0 {
		return nil, fmt.Errorf("%w: dimensions %dx%d must be positive", ErrInvalidParameter, nx, ny)
	}
	if !(step > 0) || math.IsInf(step, 0) {
		return nil, fmt.Errorf("%w: step %g must be positive", ErrInvalidParameter, step)
	}
	if nx > MaxSamples/ny {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d samples", ErrAllocation, nx, ny, MaxSamples)
	}
	return &Grid[T]{
		NX:       nx,
		NY:       ny,
		Step:     step,
		Boundary: b,
		Data:     make([]T, nx*ny),
	}, nil
}

func NewReal(nx, ny int, step float64, b Boundary) (*Real, error) {
	return New[float64](nx, ny, step, b)
}

func NewComplex(nx, ny int, step float64, b Boundary) (*Complex, error) {
	return New[complex128](nx, ny, step, b)
}

func (g *Grid[T]) Len() int { return len(g.Data) }

func (g *Grid[T]) At(i, j int) T { return g.Data[i*g.NY+j] }

func (g *Grid[T]) Set(i, j int, v T) { g.Data[i*g.NY+j] = v }

// Cell returns the area element Step².
func (g *Grid[T]) Cell() float64 { return g.Step * g.Step }

func (g *Grid[T]) Position(i, j int) (x, y float64) {
	return float64(i-g.NX/2) * g.Step, float64(j-g.NY/2) * g.Step
}

// Map overwrites every sample with fn evaluated at the sample position.
func (g *Grid[T]) Map(fn func(x, y float64) T) {
	for i := 0; i < g.NX; i++ {
		x := float64(i-g.NX/2) * g.Step
		row := g.Data[i*g.NY : (i+1)*g.NY]
		for j := range row {
			row[j] = fn(x, float64(j-g.NY/2)*g.Step)
		}
	}
}

func (g *Grid[T]) Fill(v T) {
	for i := range g.Data {
		g.Data[i] = v
	}
}

func (g *Grid[T]) Scale(f T) {
	for i := range g.Data {
		g.Data[i] *= f
	}
}

// Rows returns per-x views into Data; writes through them hit the grid.
func (g *Grid[T]) Rows() [][]T {
	rows := make([][]T, g.NX)
	for i := range rows {
		rows[i] = g.Data[i*g.NY : (i+1)*g.NY : (i+1)*g.NY]
	}
	return rows
}

func (g *Grid[T]) Clone() *Grid[T] {
	c := *g
	c.Data = make([]T, len(g.Data))
	copy(c.Data, g.Data)
	return &c
}

func (g *Grid[T]) CopyFrom(src *Grid[T]) error {
	if !SameShape(g, src) {
		return fmt.Errorf("%w: %dx%d vs %dx%d", ErrShape, g.NX, g.NY, src.NX, src.NY)
	}
	copy(g.Data, src.Data)
	return nil
}

// SameShape reports whether a and b share dimensions and spacing, regardless
// of element type.
func SameShape[A, B Sample](a *Grid[A], b *Grid[B]) bool {
	return a != nil && b != nil && a.NX == b.NX && a.NY == b.NY && a.Step == b.Step
}
