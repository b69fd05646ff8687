// Package wavefunc holds single quantum states sampled on a 2D grid.
//
// A [State] owns its complex [grid.Complex] buffer together with the
// physical parameters the propagators need:
//
//   - Mass: particle mass (ħ = 1 units)
//   - Boundary: periodic grids use a spectral (FFT) kinetic operator,
//     Dirichlet grids the 5-point finite-difference Laplacian
//   - Order: splitting order requested from split-operator propagators
//
// # Example
//
//	psi, _ := wavefunc.Allocate(32, 32, 0.8, 1.0, grid.Periodic, wavefunc.SecondOrder)
//	psi.Map(func(x, y float64) complex128 { return complex(rng.Float64(), 0) })
//	_ = psi.Normalize()
//	e, _ := psi.Energy(potential, scratch)
//
// # Thread Safety
//
// A State has a single writer. Read-only helpers (Norm, Inner, Energy with a
// private scratch grid) may run concurrently on distinct scratch buffers.
package wavefunc
