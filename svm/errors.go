package svm

import (
	"errors"
	"fmt"
)

// ErrNotConverged marks a fit that stopped at the iteration cap before
// the KKT violation dropped below tolerance. Errors returned by Train
// wrap it, so callers can test with errors.Is.
var ErrNotConverged = errors.New("svm: maximum iterations reached before convergence")

// ConfigError reports an invalid parameter. It is always detected
// before the first solver iteration.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("svm: invalid parameter %s: %s", e.Field, e.Reason)
}

// ConvergenceError carries the diagnostics of a sub-problem that hit
// its iteration cap. The partial solution is still usable as a
// best-effort model when the caller opted into partial models.
type ConvergenceError struct {
	// Pair identifies the one-vs-one sub-problem for multi-class fits,
	// as (lower class index, higher class index); both are -1 for
	// two-class, regression and one-class fits.
	Pair       [2]int
	Iterations int
	Violation  float64
}

func (e *ConvergenceError) Error() string {
	if e.Pair[0] >= 0 {
		return fmt.Sprintf("svm: sub-problem (%d,%d) not converged after %d iterations (KKT violation %g)",
			e.Pair[0], e.Pair[1], e.Iterations, e.Violation)
	}
	return fmt.Sprintf("svm: not converged after %d iterations (KKT violation %g)", e.Iterations, e.Violation)
}

func (e *ConvergenceError) Unwrap() error { return ErrNotConverged }
