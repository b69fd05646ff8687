package wavefunc

import "errors"

var (
	// ErrDegenerate indicates a zero or non-finite norm.
	ErrDegenerate = errors.New("wavefunc: degenerate state (zero or non-finite norm)")

	// ErrInvalidMass indicates a non-positive particle mass.
	ErrInvalidMass = errors.New("wavefunc: mass must be positive")
)
