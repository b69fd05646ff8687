// Package parallel provides the execution context shared by the solver's
// numeric kernels.
//
// A [Context] is built once from the requested thread count and handed to
// every component that fans out work. There is no process-wide pool.
package parallel

import (
	"runtime"
	"sync"
)

type Context struct {
	workers int
}

// New returns a context with the given worker count; workers <= 0 selects
// runtime.NumCPU().
func New(workers int) *Context {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Context{workers: workers}
}

// Serial runs everything on the calling goroutine.
func Serial() *Context { return &Context{workers: 1} }

func (c *Context) Workers() int {
	if c == nil || c.workers < 1 {
		return 1
	}
	return c.workers
}

// For splits [0, n) into contiguous chunks of at least minChunk items and
// runs fn on each chunk, returning once every chunk has finished.
func (c *Context) For(n, minChunk int, fn func(start, end int)) {
	c.chunks(n, minChunk, func(_, start, end int) { fn(start, end) })
}

// Sum evaluates fn over chunks of [0, n) and adds the partial results in
// chunk order after all chunks are done, so the result does not depend on
// scheduling.
func (c *Context) Sum(n, minChunk int, fn func(start, end int) float64) float64 {
	return Reduce(c, n, minChunk, fn)
}

// Reduce is Sum for any numeric accumulator. A nil context runs serially.
func Reduce[T float64 | complex128](c *Context, n, minChunk int, fn func(start, end int) T) T {
	partials := make([]T, c.chunkCount(n, minChunk))
	c.chunks(n, minChunk, func(k, start, end int) {
		partials[k] = fn(start, end)
	})
	var total T
	for _, p := range partials {
		total += p
	}
	return total
}

func (c *Context) split(n, minChunk int) (workers, chunkSize int) {
	if minChunk < 1 {
		minChunk = 1
	}
	workers = c.Workers()
	if n/minChunk < workers {
		workers = n / minChunk
	}
	if workers < 1 {
		workers = 1
	}
	return workers, (n + workers - 1) / workers
}

func (c *Context) chunkCount(n, minChunk int) int {
	if n <= 0 {
		return 0
	}
	_, size := c.split(n, minChunk)
	return (n + size - 1) / size
}

func (c *Context) chunks(n, minChunk int, fn func(k, start, end int)) {
	if n <= 0 {
		return
	}
	workers, chunkSize := c.split(n, minChunk)
	if workers == 1 {
		fn(0, 0, n)
		return
	}

	var wg sync.WaitGroup
	for k, start := 0, 0; start < n; k, start = k+1, start+chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(k, s, e int) {
			defer wg.Done()
			fn(k, s, e)
		}(k, start, end)
	}
	wg.Wait()
}
