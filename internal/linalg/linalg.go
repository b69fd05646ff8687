// Package linalg wraps the dense linear-algebra helpers used alongside the
// solver: LU-based inversion and a BLAS-level power iteration.
package linalg

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrSingular   = errors.New("linalg: matrix is singular")
	ErrDimension  = errors.New("linalg: dimension mismatch")
	ErrZeroVector = errors.New("linalg: iterate collapsed to zero")
)

// condLimit is the LU condition number above which a matrix counts as singular.
const condLimit = 1e14

// Invert returns the inverse of the square matrix m via LU factorization.
func Invert(m mat.Matrix) (*mat.Dense, error) {
	r, c := m.Dims()
	if r != c || r == 0 {
		return nil, fmt.Errorf("%w: %dx%d is not square", ErrDimension, r, c)
	}
	var lu mat.LU
	lu.Factorize(m)
	if cond := lu.Cond(); math.IsInf(cond, 1) || cond > condLimit {
		return nil, fmt.Errorf("%w: condition number %g", ErrSingular, cond)
	}

	inv := mat.NewDense(r, r, nil)
	eye := identity(r)
	if err := lu.SolveTo(inv, false, eye); err != nil {
		var ce mat.Condition
		if errors.As(err, &ce) {
			return nil, fmt.Errorf("%w: %v", ErrSingular, err)
		}
		return nil, err
	}
	return inv, nil
}

// InvertInPlace overwrites the row-major n×n matrix in buf with its inverse.
func InvertInPlace(buf []float64, n int) error {
	if n <= 0 || len(buf) != n*n {
		return fmt.Errorf("%w: buffer of %d for n=%d", ErrDimension, len(buf), n)
	}
	inv, err := Invert(mat.NewDense(n, n, buf))
	if err != nil {
		return err
	}
	copy(buf, inv.RawMatrix().Data)
	return nil
}

func identity(n int) *mat.Dense {
	d := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		d.Set(i, i, 1)
	}
	return d
}

// MatVec returns A·x.
func MatVec(a mat.Matrix, x []float64) ([]float64, error) {
	r, c := a.Dims()
	if len(x) != c {
		return nil, fmt.Errorf("%w: %dx%d times %d", ErrDimension, r, c, len(x))
	}
	var y mat.VecDense
	y.MulVec(a, mat.NewVecDense(c, x))
	return y.RawVector().Data, nil
}

// PowerResult is the outcome of PowerIteration.
type PowerResult struct {
	Vector     []float64
	Value      float64
	Iterations int
	Converged  bool
}

// PowerIteration approximates the dominant eigenpair of the square matrix a
// starting from x0. It stops once successive unit iterates differ by less
// than tol or after maxIter products. The eigenvalue is the Rayleigh
// quotient of the last iterate, so its sign is preserved.
func PowerIteration(a *mat.Dense, x0 []float64, tol float64, maxIter int) (PowerResult, error) {
	r, c := a.Dims()
	n := len(x0)
	if r != c || n != r {
		return PowerResult{}, fmt.Errorf("%w: %dx%d with start vector of %d", ErrDimension, r, c, n)
	}
	if maxIter <= 0 {
		maxIter = 1000
	}

	am := a.RawMatrix()
	x := blas64.Vector{N: n, Inc: 1, Data: append([]float64(nil), x0...)}
	y := blas64.Vector{N: n, Inc: 1, Data: make([]float64, n)}

	nrm := blas64.Nrm2(x)
	if nrm == 0 || math.IsNaN(nrm) {
		return PowerResult{}, ErrZeroVector
	}
	blas64.Scal(1/nrm, x)

	res := PowerResult{}
	for res.Iterations < maxIter {
		// y = A·x
		blas64.Gemv(blas.NoTrans, 1, am, x, 0, y)
		res.Iterations++

		mu := blas64.Nrm2(y)
		if mu == 0 || math.IsNaN(mu) || math.IsInf(mu, 0) {
			return res, ErrZeroVector
		}
		res.Value = blas64.Dot(x, y)
		blas64.Scal(1/mu, y)

		// Compare up to sign: negative eigenvalues flip the iterate each step.
		diff := 0.0
		sign := 1.0
		if blas64.Dot(x, y) < 0 {
			sign = -1
		}
		for i := 0; i < n; i++ {
			d := y.Data[i] - sign*x.Data[i]
			diff += d * d
		}

		blas64.Copy(y, x)
		if math.Sqrt(diff) < tol {
			res.Converged = true
			break
		}
	}
	res.Vector = x.Data
	return res, nil
}
