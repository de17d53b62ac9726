package svm

// Model is the sparse decision function extracted after convergence:
// the support vectors, their dual coefficients, and the intercepts.
// It is immutable once built.
//
// For the precomputed and user-supplied kernels the model holds
// references into the caller's training data rather than copies.
// Mutating that data between fit and predict yields undefined
// prediction results; this is a contract violation, not a checked
// error.
type Model struct {
	param     *Parameters
	kernel    Kernel
	nrClass   int
	l         int         // total number of support vectors
	sv        [][]Node    // support vectors
	svCoef    [][]float64 // coefficients, nrClass-1 rows
	rho       []float64
	svIndices []int

	// classification only
	label []int
	nSV   []int

	// set only on partial multi-class models: pairFailed[p] marks the
	// p-th pairwise classifier as non-converged best-effort
	pairFailed []bool
}

// Type returns the formulation the model was trained with.
func (m *Model) Type() SVMType { return m.param.SVMType }

// NumClasses returns the number of classes, which is 2 for regression
// and one-class models.
func (m *Model) NumClasses() int { return m.nrClass }

// Labels returns the class labels in their internal order. The slice
// is a view; callers must not modify it.
func (m *Model) Labels() []int { return m.label }

// NumSupportVectors returns the total support vector count.
func (m *Model) NumSupportVectors() int { return m.l }

// SupportVectorCounts returns the per-class support vector counts, in
// Labels order.
func (m *Model) SupportVectorCounts() []int { return m.nSV }

// SupportVectorIndices returns the positions of the support vectors in
// the original training set.
func (m *Model) SupportVectorIndices() []int { return m.svIndices }

// Coefficients returns the dual coefficient rows. Row r holds, per
// support vector, its coefficient in the r-th of the k-1 classifiers
// that vector participates in. The slices are views; callers must not
// modify them.
func (m *Model) Coefficients() [][]float64 { return m.svCoef }

// Rho returns the intercepts, one per pairwise classifier (a single
// entry for binary, regression and one-class models).
func (m *Model) Rho() []float64 { return m.rho }

// PairFailures reports, for a partial multi-class model, which pairwise
// sub-problems did not converge. It is nil for fully converged models.
func (m *Model) PairFailures() []bool { return m.pairFailed }

// NumPairwise returns the width of the decision-function output.
func (m *Model) NumPairwise() int {
	if m.param.SVMType == OneClass || m.param.SVMType.IsRegression() {
		return 1
	}
	return m.nrClass * (m.nrClass - 1) / 2
}
