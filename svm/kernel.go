package svm

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Kernel evaluates K(a, b) for two sparse feature vectors.
//
// Implementations must be pure: the same pair of inputs always yields
// the same value. The built-in kernels hold no references to caller
// data; the precomputed and user-supplied variants do (see Parameters).
type Kernel interface {
	Evaluate(a, b []Node) float64
}

type linearKernel struct{}

func (linearKernel) Evaluate(a, b []Node) float64 { return dot(a, b) }

type polynomialKernel struct {
	gamma  float64
	coef0  float64
	degree int
}

func (k polynomialKernel) Evaluate(a, b []Node) float64 {
	return powi(k.gamma*dot(a, b)+k.coef0, k.degree)
}

type rbfKernel struct {
	gamma float64
}

func (k rbfKernel) Evaluate(a, b []Node) float64 {
	return math.Exp(-k.gamma * squaredDistance(a, b))
}

type sigmoidKernel struct {
	gamma float64
	coef0 float64
}

func (k sigmoidKernel) Evaluate(a, b []Node) float64 {
	return math.Tanh(k.gamma*dot(a, b) + k.coef0)
}

type userKernel struct {
	fn KernelFunc
}

func (k userKernel) Evaluate(a, b []Node) float64 { return k.fn(a, b) }

// precomputedKernel resolves kernel values by lookup. During training
// both arguments are index stubs into the Gram matrix. At prediction
// time the first argument is a caller-supplied kernel row (built with
// GramRow) and the second a stored stub.
type precomputedKernel struct {
	gram *mat.Dense
}

func (k precomputedKernel) Evaluate(a, b []Node) float64 {
	j := int(b[0].Value)
	if isGramStub(a) {
		return k.gram.At(int(a[0].Value), j)
	}
	return lookupNode(a, j+1)
}

// isGramStub recognizes the single-node placeholder that represents a
// training sample of a precomputed-kernel problem.
func isGramStub(x []Node) bool {
	return len(x) == 1 && x[0].Index == 0
}

func lookupNode(x []Node, index int) float64 {
	i := sort.Search(len(x), func(i int) bool { return x[i].Index >= index })
	if i < len(x) && x[i].Index == index {
		return x[i].Value
	}
	return 0
}

// GramRow converts one row of a test-versus-training kernel matrix into
// the sparse form expected when predicting with a precomputed kernel.
// Entry j of the row must hold K(x, training sample j).
func GramRow(row []float64) []Node {
	nodes := make([]Node, len(row))
	for j, v := range row {
		nodes[j] = Node{Index: j + 1, Value: v}
	}
	return nodes
}

// newKernel builds the evaluator for a checked parameter set.
func newKernel(p *Parameters) Kernel {
	switch p.KernelType {
	case Linear:
		return linearKernel{}
	case Polynomial:
		return polynomialKernel{gamma: p.Gamma, coef0: p.Coef0, degree: p.Degree}
	case RBF:
		return rbfKernel{gamma: p.Gamma}
	case Sigmoid:
		return sigmoidKernel{gamma: p.Gamma, coef0: p.Coef0}
	case Precomputed:
		return precomputedKernel{gram: p.Gram}
	case UserSupplied:
		return userKernel{fn: p.Kernel}
	}
	panic("svm: unchecked kernel type")
}

// powi computes base^exp for small integer exponents by repeated
// squaring.
func powi(base float64, exp int) float64 {
	tmp, ret := base, 1.0
	for t := exp; t > 0; t /= 2 {
		if t%2 == 1 {
			ret *= tmp
		}
		tmp *= tmp
	}
	return ret
}

// kernelMatrix evaluates kernel values by sample index against the
// resident training buffer. It keeps squared norms around for the RBF
// kernel so a single evaluation costs one sparse dot product. The
// sample slice is shared with the caller and never written; swaps only
// permute the index views.
type kernelMatrix struct {
	kernel Kernel
	x      [][]Node
	xsq    []float64
}

func newKernelMatrix(x [][]Node, p *Parameters) *kernelMatrix {
	km := &kernelMatrix{kernel: newKernel(p)}
	km.x = make([][]Node, len(x))
	copy(km.x, x)
	if p.KernelType == RBF {
		km.xsq = make([]float64, len(x))
		for i := range x {
			km.xsq[i] = dot(x[i], x[i])
		}
	}
	return km
}

func (km *kernelMatrix) at(i, j int) float64 {
	if km.xsq != nil {
		d := km.xsq[i] + km.xsq[j] - 2*dot(km.x[i], km.x[j])
		k := km.kernel.(rbfKernel)
		return math.Exp(-k.gamma * d)
	}
	return km.kernel.Evaluate(km.x[i], km.x[j])
}

func (km *kernelMatrix) swap(i, j int) {
	km.x[i], km.x[j] = km.x[j], km.x[i]
	if km.xsq != nil {
		km.xsq[i], km.xsq[j] = km.xsq[j], km.xsq[i]
	}
}
