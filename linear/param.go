// Package linear implements the large-scale linear path: dual
// coordinate descent for L1- and L2-loss linear SVMs with a
// one-vs-rest extension for multi-class problems. Unlike the kernel
// engine it never forms kernel values; the weight vector is maintained
// directly, which makes it the right tool when the feature dimension is
// workable and the sample count is large.
package linear

import (
	"fmt"

	"github.com/svmlab/gosvm/svm"
)

// SolverType selects the loss of the dual coordinate descent solver.
type SolverType int

const (
	// L2LossSVCDual minimizes squared hinge loss (dual).
	L2LossSVCDual SolverType = iota
	// L1LossSVCDual minimizes hinge loss (dual).
	L1LossSVCDual
	// L2LossSVRDual and L1LossSVRDual are the epsilon-insensitive
	// regression duals.
	L2LossSVRDual
	L1LossSVRDual
)

func (t SolverType) String() string {
	switch t {
	case L2LossSVCDual:
		return "l2r_l2loss_svc_dual"
	case L1LossSVCDual:
		return "l2r_l1loss_svc_dual"
	case L2LossSVRDual:
		return "l2r_l2loss_svr_dual"
	case L1LossSVRDual:
		return "l2r_l1loss_svr_dual"
	}
	return "unknown"
}

func (t SolverType) isRegression() bool {
	return t == L2LossSVRDual || t == L1LossSVRDual
}

// Parameters configures a linear fit.
type Parameters struct {
	SolverType SolverType
	C          float64
	// Epsilon is the SVR tube width.
	Epsilon float64
	// Tolerance is the stopping threshold on the projected-gradient
	// window (classification) or the relative gradient norm (SVR).
	Tolerance     float64
	MaxIterations int
	ClassWeights  map[int]float64

	// Seed drives the per-pass permutation of the coordinate order.
	// The same seed reproduces the same model exactly; there is no
	// global RNG state.
	Seed int64
}

// NewParameters returns the conventional solver defaults.
func NewParameters() *Parameters {
	return &Parameters{
		SolverType:    L2LossSVCDual,
		C:             1,
		Epsilon:       0.1,
		Tolerance:     0.1,
		MaxIterations: 1000,
	}
}

func (p *Parameters) check() error {
	switch p.SolverType {
	case L2LossSVCDual, L1LossSVCDual, L2LossSVRDual, L1LossSVRDual:
	default:
		return fmt.Errorf("linear: unknown solver type %d", int(p.SolverType))
	}
	if p.C <= 0 {
		return fmt.Errorf("linear: C must be > 0")
	}
	if p.Tolerance <= 0 {
		return fmt.Errorf("linear: tolerance must be > 0")
	}
	if p.MaxIterations <= 0 {
		return fmt.Errorf("linear: max iterations must be > 0")
	}
	if p.SolverType.isRegression() && p.Epsilon < 0 {
		return fmt.Errorf("linear: epsilon must be >= 0")
	}
	return nil
}

// Problem is a linear training set. X rows are sparse vectors with
// 1-based, ascending feature indices; N is the feature dimension. A
// nonnegative Bias appends a constant feature of that value as index
// N (callers build it with NewProblem).
type Problem struct {
	L    int
	N    int
	X    [][]svm.Node
	Y    []float64
	Bias float64
}

// NewProblem wraps samples and targets, deriving the feature dimension
// and appending the bias feature when bias >= 0.
func NewProblem(x [][]svm.Node, y []float64, bias float64) (*Problem, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("linear: %d samples but %d targets", len(x), len(y))
	}
	n := 0
	for _, row := range x {
		prev := 0
		for _, node := range row {
			if node.Index <= prev {
				return nil, fmt.Errorf("linear: feature indices must be sorted ascending")
			}
			prev = node.Index
		}
		if len(row) > 0 && row[len(row)-1].Index > n {
			n = row[len(row)-1].Index
		}
	}
	p := &Problem{L: len(x), N: n, Y: y, Bias: bias}
	if bias >= 0 {
		p.N = n + 1
		p.X = make([][]svm.Node, len(x))
		for i, row := range x {
			augmented := make([]svm.Node, len(row)+1)
			copy(augmented, row)
			augmented[len(row)] = svm.Node{Index: p.N, Value: bias}
			p.X[i] = augmented
		}
	} else {
		p.X = x
	}
	return p, nil
}
