package grid

import "sync"

// Pool recycles scratch grids of one shape. A grid taken with Get belongs to
// the caller until it is handed back with Put.
type Pool[T Sample] struct {
	pool     sync.Pool
	nx, ny   int
	step     float64
	boundary Boundary
}

func NewPool[T Sample](nx, ny int, step float64, b Boundary) *Pool[T] {
	p := &Pool[T]{nx: nx, ny: ny, step: step, boundary: b}
	p.pool.New = func() interface{} {
		return &Grid[T]{NX: nx, NY: ny, Step: step, Boundary: b, Data: make([]T, nx*ny)}
	}
	return p
}

func (p *Pool[T]) Get() *Grid[T] {
	return p.pool.Get().(*Grid[T])
}

func (p *Pool[T]) Put(g *Grid[T]) {
	if g == nil || g.NX != p.nx || g.NY != p.ny || g.Step != p.step {
		return
	}
	var zero T
	for i := range g.Data {
		g.Data[i] = zero
	}
	g.Boundary = p.boundary
	p.pool.Put(g)
}
