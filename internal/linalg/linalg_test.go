package linalg

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func TestInvertInPlace(t *testing.T) {
	buf := []float64{1, 2, 3, 4}
	require.NoError(t, InvertInPlace(buf, 2))
	require.True(t, floats.EqualApprox(buf, []float64{-2, 1, 1.5, -0.5}, 1e-12), "got %v", buf)
}

func TestInvertRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1234))
	n := 6
	data := make([]float64, n*n)
	for i := range data {
		data[i] = rng.Float64()
	}
	for i := 0; i < n; i++ {
		data[i*n+i] += float64(n)
	}
	a := mat.NewDense(n, n, data)

	inv, err := Invert(a)
	require.NoError(t, err)

	var prod mat.Dense
	prod.Mul(a, inv)
	require.True(t, mat.EqualApprox(&prod, identity(n), 1e-12))
}

func TestInvertErrors(t *testing.T) {
	_, err := Invert(mat.NewDense(2, 2, []float64{1, 2, 2, 4}))
	require.ErrorIs(t, err, ErrSingular)

	_, err = Invert(mat.NewDense(2, 3, nil))
	require.ErrorIs(t, err, ErrDimension)

	require.ErrorIs(t, InvertInPlace(make([]float64, 3), 2), ErrDimension)
}

func TestMatVec(t *testing.T) {
	a := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})
	y, err := MatVec(a, []float64{1, 0, -1})
	require.NoError(t, err)
	require.Equal(t, []float64{-2, -2}, y)

	_, err = MatVec(a, []float64{1, 2})
	require.ErrorIs(t, err, ErrDimension)
}

func TestPowerIterationSymmetric(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{2, 1, 1, 2})
	res, err := PowerIteration(a, []float64{1, 0}, 1e-12, 500)
	require.NoError(t, err)
	require.True(t, res.Converged)
	require.InDelta(t, 3.0, res.Value, 1e-10)
	require.InDelta(t, math.Abs(res.Vector[0]), math.Sqrt2/2, 1e-6)
	require.InDelta(t, math.Abs(res.Vector[1]), math.Sqrt2/2, 1e-6)
}

func TestPowerIterationMatchesEigenSym(t *testing.T) {
	rng := rand.New(rand.NewSource(1234))
	n := 4
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, rng.Float64())
		}
	}
	var es mat.EigenSym
	require.True(t, es.Factorize(sym, false))
	vals := es.Values(nil)
	dominant := vals[0]
	for _, v := range vals {
		if math.Abs(v) > math.Abs(dominant) {
			dominant = v
		}
	}

	a := mat.DenseCopyOf(sym)
	x0 := make([]float64, n)
	for i := range x0 {
		x0[i] = rng.Float64()
	}
	res, err := PowerIteration(a, x0, 1e-12, 10000)
	require.NoError(t, err)
	require.InDelta(t, dominant, res.Value, 1e-8)
	require.InDelta(t, 1.0, floats.Norm(res.Vector, 2), 1e-12)
}

func TestPowerIterationErrors(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	_, err := PowerIteration(a, []float64{1, 2, 3}, 1e-9, 10)
	require.ErrorIs(t, err, ErrDimension)

	_, err = PowerIteration(a, []float64{0, 0}, 1e-9, 10)
	require.ErrorIs(t, err, ErrZeroVector)
}
