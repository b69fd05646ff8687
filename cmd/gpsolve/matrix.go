package main

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/gpsolve/internal/linalg"
)

var (
	powerN    int
	powerSeed int64
	powerIter int
	powerTol  float64
)

func invertMatrix(cmd *cobra.Command, args []string) error {
	values := []float64{1, 2, 3, 4}
	if len(args) > 0 {
		values = make([]float64, len(args))
		for i, a := range args {
			v, err := strconv.ParseFloat(a, 64)
			if err != nil {
				return fmt.Errorf("value %d: %w", i, err)
			}
			values[i] = v
		}
	}
	n := int(math.Round(math.Sqrt(float64(len(values)))))
	if n*n != len(values) {
		return fmt.Errorf("%w: %d values do not form a square matrix", linalg.ErrDimension, len(values))
	}

	if err := linalg.InvertInPlace(values, n); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if j > 0 {
				fmt.Print(" ")
			}
			fmt.Printf("%f", values[i*n+j])
		}
		fmt.Println()
	}
	return nil
}

func powerMethod(cmd *cobra.Command, args []string) error {
	if powerN < 1 {
		return fmt.Errorf("%w: n must be positive", linalg.ErrDimension)
	}
	rng := rand.New(rand.NewSource(powerSeed))
	data := make([]float64, powerN*powerN)
	for i := range data {
		data[i] = rng.Float64()
	}
	a := mat.NewDense(powerN, powerN, data)
	x0 := make([]float64, powerN)
	for i := range x0 {
		x0[i] = rng.Float64()
	}

	fmt.Printf("A =\n%v\n\n", mat.Formatted(a, mat.Prefix("    "), mat.Squeeze()))
	fmt.Printf("x0 = %v\n\n", mat.Formatted(mat.NewVecDense(powerN, x0).T(), mat.Squeeze()))

	res, err := linalg.PowerIteration(a, x0, powerTol, powerIter)
	if err != nil {
		return err
	}
	fmt.Printf("iterations: %d (converged: %v)\n", res.Iterations, res.Converged)
	fmt.Printf("eigenvalue: %.10f\n", res.Value)
	fmt.Printf("eigenvector: %v\n", mat.Formatted(mat.NewVecDense(powerN, res.Vector).T(), mat.Squeeze()))
	return nil
}
