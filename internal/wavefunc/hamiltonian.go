package wavefunc

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"

	"github.com/san-kum/gpsolve/internal/grid"
)

// Wavenumbers returns the angular wavenumbers of an n-point FFT with sample
// spacing step, in FFT order: 0, 1, …, n/2−1, −n/2, …, −1 times 2π/(n·step).
func Wavenumbers(n int, step float64) []float64 {
	k := make([]float64, n)
	scale := 2 * math.Pi / (float64(n) * step)
	for i := range k {
		f := i
		if i >= (n+1)/2 {
			f = i - n
		}
		k[i] = float64(f) * scale
	}
	return k
}

// KineticSpectrum returns (kx²+ky²)/(2m) laid out like the grid's FFT.
func KineticSpectrum(nx, ny int, step, mass float64) []float64 {
	kx, ky := Wavenumbers(nx, step), Wavenumbers(ny, step)
	out := make([]float64, nx*ny)
	for i, a := range kx {
		for j, b := range ky {
			out[i*ny+j] = (a*a + b*b) / (2 * mass)
		}
	}
	return out
}

// SpectralMultiply sets dst = IFFT(factor · FFT(src)). dst may alias src.
func SpectralMultiply(dst, src *grid.Complex, factor []float64) error {
	if !grid.SameShape(dst, src) || len(factor) != src.Len() {
		return grid.ErrShape
	}
	freq := fft.FFT2(src.Rows())
	ny := src.NY
	for i, row := range freq {
		for j := range row {
			row[j] *= complex(factor[i*ny+j], 0)
		}
	}
	back := fft.IFFT2(freq)
	for i, row := range back {
		copy(dst.Data[i*ny:(i+1)*ny], row)
	}
	return nil
}

// Kinetic writes Tψ = −∇²ψ/(2m) into dst.
func (s *State) Kinetic(dst *grid.Complex) error {
	if !grid.SameShape(s.Grid, dst) {
		return grid.ErrShape
	}
	if s.Boundary == grid.Periodic {
		return SpectralMultiply(dst, s.Grid, KineticSpectrum(s.Grid.NX, s.Grid.NY, s.Grid.Step, s.Mass))
	}
	s.laplacianDirichlet(dst, -1/(2*s.Mass))
	return nil
}

// laplacianDirichlet writes scale·∇²ψ using the 5-point stencil with zero
// samples outside the grid.
func (s *State) laplacianDirichlet(dst *grid.Complex, scale float64) {
	g := s.Grid
	nx, ny := g.NX, g.NY
	f := complex(scale/(g.Step*g.Step), 0)
	at := func(i, j int) complex128 {
		if i < 0 || i >= nx || j < 0 || j >= ny {
			return 0
		}
		return g.Data[i*ny+j]
	}
	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			lap := at(i+1, j) + at(i-1, j) + at(i, j+1) + at(i, j-1) - 4*g.Data[i*ny+j]
			dst.Data[i*ny+j] = f * lap
		}
	}
}

// Hamiltonian writes Hψ = Tψ + Vψ into dst. dst must not alias ψ.
func (s *State) Hamiltonian(dst *grid.Complex, potential *grid.Real) error {
	if !grid.SameShape(s.Grid, potential) {
		return fmt.Errorf("potential: %w", grid.ErrShape)
	}
	if err := s.Kinetic(dst); err != nil {
		return err
	}
	for i, v := range s.Grid.Data {
		dst.Data[i] += complex(potential.Data[i], 0) * v
	}
	return nil
}

// Energy returns ⟨ψ|H|ψ⟩/⟨ψ|ψ⟩ for the supplied potential, using scratch as
// workspace for Hψ.
func (s *State) Energy(potential *grid.Real, scratch *grid.Complex) (float64, error) {
	nrm := s.NormSquared()
	if nrm == 0 || math.IsNaN(nrm) || math.IsInf(nrm, 0) {
		return 0, ErrDegenerate
	}
	if err := s.Hamiltonian(scratch, potential); err != nil {
		return 0, err
	}
	var sum complex128
	for i, v := range s.Grid.Data {
		sum += cmplx.Conj(v) * scratch.Data[i]
	}
	return real(sum) * s.Grid.Cell() / nrm, nil
}
