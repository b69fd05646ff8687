package grid

import "errors"

var (
	// ErrInvalidParameter indicates a non-positive dimension, spacing or other
	// out-of-range setup value.
	ErrInvalidParameter = errors.New("grid: invalid parameter")

	// ErrAllocation indicates the requested sample buffer cannot be obtained.
	ErrAllocation = errors.New("grid: allocation failed")

	// ErrShape indicates two grids that must share dimensions and spacing do not.
	ErrShape = errors.New("grid: shape mismatch")
)
