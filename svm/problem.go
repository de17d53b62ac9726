package svm

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Problem holds a training set: L samples in sparse form and, except
// for one-class training, a parallel target vector. The sample data is
// treated as read-only for the whole lifetime of a fit and of any model
// produced from it.
type Problem struct {
	L int
	X [][]Node
	Y []float64
}

// NewProblem wraps pre-built sparse samples and targets. The slices are
// referenced, not copied.
func NewProblem(x [][]Node, y []float64) (*Problem, error) {
	if y != nil && len(x) != len(y) {
		return nil, fmt.Errorf("svm: %d samples but %d targets", len(x), len(y))
	}
	return &Problem{L: len(x), X: x, Y: y}, nil
}

// NewProblemFromDense builds a problem from a dense row-major sample
// matrix. Zero features are dropped during conversion.
func NewProblemFromDense(x mat.Matrix, y []float64) (*Problem, error) {
	r, c := x.Dims()
	if y != nil && r != len(y) {
		return nil, fmt.Errorf("svm: %d samples but %d targets", r, len(y))
	}
	rows := make([][]Node, r)
	buf := make([]float64, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			buf[j] = x.At(i, j)
		}
		rows[i] = DenseVector(buf)
	}
	return &Problem{L: r, X: rows, Y: y}, nil
}

// NewProblemFromGram builds a problem for the precomputed kernel from an
// l x l Gram matrix. Sample i is represented by its row index so the
// evaluator degrades to a lookup; the Gram matrix itself is carried in
// Parameters.Gram and must outlive every prediction on the model.
func NewProblemFromGram(gram *mat.Dense, y []float64) (*Problem, error) {
	r, c := gram.Dims()
	if r != c {
		return nil, fmt.Errorf("svm: gram matrix must be square, got %dx%d", r, c)
	}
	if y != nil && r != len(y) {
		return nil, fmt.Errorf("svm: %d samples but %d targets", r, len(y))
	}
	rows := make([][]Node, r)
	for i := 0; i < r; i++ {
		rows[i] = []Node{{Index: 0, Value: float64(i)}}
	}
	return &Problem{L: r, X: rows, Y: y}, nil
}
