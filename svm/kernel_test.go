package svm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestLinearKernel(t *testing.T) {
	a := []Node{{Index: 1, Value: 1}, {Index: 3, Value: 2}}
	b := []Node{{Index: 2, Value: 5}, {Index: 3, Value: 4}}
	assert.Equal(t, 8.0, linearKernel{}.Evaluate(a, b))
	assert.Equal(t, 0.0, linearKernel{}.Evaluate(a, nil))
}

func TestRBFKernel(t *testing.T) {
	k := rbfKernel{gamma: 0.5}
	a := DenseVector([]float64{1, 2})
	assert.Equal(t, 1.0, k.Evaluate(a, a))
	b := DenseVector([]float64{1, 4})
	assert.InDelta(t, math.Exp(-0.5*4), k.Evaluate(a, b), 1e-12)
}

func TestPolynomialKernel(t *testing.T) {
	k := polynomialKernel{gamma: 1, coef0: 1, degree: 2}
	a := DenseVector([]float64{1, 1})
	b := DenseVector([]float64{2, 0})
	// (1*2 + 1)^2
	assert.InDelta(t, 9.0, k.Evaluate(a, b), 1e-12)
}

func TestSigmoidKernel(t *testing.T) {
	k := sigmoidKernel{gamma: 0.5, coef0: -1}
	a := DenseVector([]float64{2})
	b := DenseVector([]float64{3})
	assert.InDelta(t, math.Tanh(0.5*6-1), k.Evaluate(a, b), 1e-12)
}

func TestPowi(t *testing.T) {
	assert.Equal(t, 1.0, powi(3, 0))
	assert.Equal(t, 81.0, powi(3, 4))
	assert.Equal(t, -27.0, powi(-3, 3))
}

func TestPrecomputedKernelStubLookup(t *testing.T) {
	gram := mat.NewDense(2, 2, []float64{1, 0.25, 0.25, 1})
	k := precomputedKernel{gram: gram}

	s0 := []Node{{Index: 0, Value: 0}}
	s1 := []Node{{Index: 0, Value: 1}}
	assert.Equal(t, 0.25, k.Evaluate(s0, s1))

	// prediction row against a training stub
	row := GramRow([]float64{0.9, 0.1})
	assert.Equal(t, 0.1, k.Evaluate(row, s1))
}

func TestGramRow(t *testing.T) {
	row := GramRow([]float64{0, 0.5, 0, 2})
	require.Len(t, row, 4)
	assert.Equal(t, Node{Index: 2, Value: 0.5}, row[1])
	assert.Equal(t, Node{Index: 4, Value: 2}, row[3])
}

func TestKernelMatrixSwap(t *testing.T) {
	x := [][]Node{
		DenseVector([]float64{0, 0}),
		DenseVector([]float64{1, 0}),
		DenseVector([]float64{0, 2}),
	}
	p := NewParameters()
	p.KernelType = RBF
	p.Gamma = 1
	km := newKernelMatrix(x, p)

	before := km.at(1, 2)
	km.swap(0, 2)
	assert.Equal(t, before, km.at(1, 0))
	assert.Equal(t, 1.0, km.at(0, 0))
}

func TestDotAndSquaredDistance(t *testing.T) {
	a := []Node{{Index: 1, Value: 3}, {Index: 4, Value: 1}}
	b := []Node{{Index: 1, Value: 2}, {Index: 2, Value: 7}}
	assert.Equal(t, 6.0, dot(a, b))
	// (3-2)^2 + 7^2 + 1^2
	assert.Equal(t, 51.0, squaredDistance(a, b))
	assert.Equal(t, 0.0, squaredDistance(a, a))
}

func TestDenseVectorSkipsZeros(t *testing.T) {
	v := DenseVector([]float64{0, 1.5, 0, -2})
	require.Len(t, v, 2)
	assert.Equal(t, Node{Index: 2, Value: 1.5}, v[0])
	assert.Equal(t, Node{Index: 4, Value: -2}, v[1])
}
