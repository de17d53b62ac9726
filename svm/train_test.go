package svm

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// two well separated clusters in 2D
func separableProblem(t *testing.T) *Problem {
	t.Helper()
	x := [][]Node{
		DenseVector([]float64{2, 2}),
		DenseVector([]float64{3, 3}),
		DenseVector([]float64{2, 3}),
		DenseVector([]float64{3, 2}),
		DenseVector([]float64{-2, -2}),
		DenseVector([]float64{-3, -3}),
		DenseVector([]float64{-2, -3}),
		DenseVector([]float64{-3, -2}),
	}
	y := []float64{1, 1, 1, 1, -1, -1, -1, -1}
	prob, err := NewProblem(x, y)
	require.NoError(t, err)
	return prob
}

func linearCSVCParams() *Parameters {
	p := NewParameters()
	p.KernelType = Linear
	p.C = 10
	return p
}

func TestTrainSeparableBinary(t *testing.T) {
	prob := separableProblem(t)
	model, err := Train(context.Background(), prob, linearCSVCParams())
	require.NoError(t, err)

	assert.Equal(t, 2, model.NumClasses())
	assert.Equal(t, []int{1, -1}, model.Labels())
	for i, x := range prob.X {
		assert.Equal(t, prob.Y[i], model.Predict(x), "sample %d", i)
	}
}

func TestTrainDualConstraints(t *testing.T) {
	prob := separableProblem(t)
	param := linearCSVCParams()
	model, err := Train(context.Background(), prob, param)
	require.NoError(t, err)

	// signed coefficients respect the box and sum to zero
	coef := model.Coefficients()[0]
	sum := 0.0
	for _, a := range coef {
		assert.LessOrEqual(t, math.Abs(a), param.C+1e-9)
		assert.Greater(t, math.Abs(a), 0.0)
		sum += a
	}
	assert.InDelta(t, 0, sum, 1e-9)
}

func TestTrainFreeSupportVectorsOnMargin(t *testing.T) {
	prob := separableProblem(t)
	param := linearCSVCParams()
	model, err := Train(context.Background(), prob, param)
	require.NoError(t, err)

	coef := model.Coefficients()[0]
	idx := model.SupportVectorIndices()
	dec := make([]float64, 1)
	for k, a := range coef {
		if math.Abs(a) >= param.C-1e-9 {
			continue
		}
		model.DecisionValues(prob.X[idx[k]], dec)
		assert.InDelta(t, 1.0, prob.Y[idx[k]]*dec[0], 0.01,
			"free support vector %d should sit on the margin", idx[k])
	}
}

func TestTrainRefitIdempotent(t *testing.T) {
	prob := separableProblem(t)
	param := linearCSVCParams()
	m1, err := Train(context.Background(), prob, param)
	require.NoError(t, err)
	m2, err := Train(context.Background(), prob, param)
	require.NoError(t, err)

	assert.Equal(t, m1.Rho(), m2.Rho())
	assert.Equal(t, m1.Coefficients(), m2.Coefficients())
	assert.Equal(t, m1.SupportVectorIndices(), m2.SupportVectorIndices())
}

func fourClassProblem(t *testing.T) *Problem {
	t.Helper()
	centers := [][2]float64{{5, 5}, {-5, 5}, {-5, -5}, {5, -5}}
	offsets := [][2]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}}
	var x [][]Node
	var y []float64
	for c, center := range centers {
		for _, o := range offsets {
			x = append(x, DenseVector([]float64{center[0] + o[0], center[1] + o[1]}))
			y = append(y, float64(c))
		}
	}
	prob, err := NewProblem(x, y)
	require.NoError(t, err)
	return prob
}

func TestTrainMulticlassVoting(t *testing.T) {
	prob := fourClassProblem(t)
	param := linearCSVCParams()
	model, err := Train(context.Background(), prob, param)
	require.NoError(t, err)

	assert.Equal(t, 4, model.NumClasses())
	assert.Equal(t, 6, model.NumPairwise())
	assert.Equal(t, []int{0, 1, 2, 3}, model.Labels())
	require.Len(t, model.Rho(), 6)

	for i, x := range prob.X {
		assert.Equal(t, prob.Y[i], model.Predict(x), "sample %d", i)
	}

	dec := make([]float64, 6)
	got := model.DecisionValues(DenseVector([]float64{5, 5}), dec)
	assert.Equal(t, 0.0, got)
	// pairs (0,1),(0,2),(0,3) must favor class 0 near its center
	assert.Greater(t, dec[0], 0.0)
	assert.Greater(t, dec[1], 0.0)
	assert.Greater(t, dec[2], 0.0)
}

func TestTrainMulticlassWorkerPoolDeterminism(t *testing.T) {
	prob := fourClassProblem(t)

	p1 := linearCSVCParams()
	p1.Workers = 1
	m1, err := Train(context.Background(), prob, p1)
	require.NoError(t, err)

	p4 := linearCSVCParams()
	p4.Workers = 4
	m4, err := Train(context.Background(), prob, p4)
	require.NoError(t, err)

	assert.Equal(t, m1.Rho(), m4.Rho())
	assert.Equal(t, m1.Coefficients(), m4.Coefficients())
}

func TestTrainNuSVC(t *testing.T) {
	prob := separableProblem(t)
	param := NewParameters()
	param.SVMType = NuSVC
	param.KernelType = Linear
	param.Nu = 0.5
	model, err := Train(context.Background(), prob, param)
	require.NoError(t, err)

	for i, x := range prob.X {
		assert.Equal(t, prob.Y[i], model.Predict(x), "sample %d", i)
	}
}

func TestTrainNuInfeasible(t *testing.T) {
	x := [][]Node{
		DenseVector([]float64{1, 1}),
		DenseVector([]float64{2, 2}),
		DenseVector([]float64{1, 2}),
		DenseVector([]float64{2, 1}),
		DenseVector([]float64{-1, -1}),
	}
	y := []float64{1, 1, 1, 1, -1}
	prob, err := NewProblem(x, y)
	require.NoError(t, err)

	param := NewParameters()
	param.SVMType = NuSVC
	param.KernelType = Linear
	param.Nu = 0.9

	model, err := Train(context.Background(), prob, param)
	assert.Nil(t, model)
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "Nu", cfgErr.Field)
}

func TestTrainOneClass(t *testing.T) {
	var x [][]Node
	for i := -2; i <= 2; i++ {
		for j := -2; j <= 2; j++ {
			x = append(x, DenseVector([]float64{float64(i) / 4, float64(j) / 4}))
		}
	}
	prob, err := NewProblem(x, nil)
	require.NoError(t, err)

	param := NewParameters()
	param.SVMType = OneClass
	param.Nu = 0.1
	param.Gamma = 0.5
	model, err := Train(context.Background(), prob, param)
	require.NoError(t, err)

	assert.Equal(t, 1.0, model.Predict(DenseVector([]float64{0, 0})))
	assert.Equal(t, -1.0, model.Predict(DenseVector([]float64{10, 10})))
}

func TestTrainEpsilonSVR(t *testing.T) {
	var x [][]Node
	var y []float64
	for i := 0; i <= 8; i++ {
		v := float64(i) / 2
		x = append(x, []Node{{Index: 1, Value: v}})
		y = append(y, 2*v+1)
	}
	prob, err := NewProblem(x, y)
	require.NoError(t, err)

	param := NewParameters()
	param.SVMType = EpsilonSVR
	param.KernelType = Linear
	param.C = 100
	param.Epsilon = 0.01
	model, err := Train(context.Background(), prob, param)
	require.NoError(t, err)

	for i, xi := range x {
		assert.InDelta(t, y[i], model.Predict(xi), 0.1, "sample %d", i)
	}
	assert.InDelta(t, 6.0, model.Predict([]Node{{Index: 1, Value: 2.5}}), 0.1)
}

func TestTrainNuSVR(t *testing.T) {
	var x [][]Node
	var y []float64
	for i := 0; i <= 8; i++ {
		v := float64(i) / 2
		x = append(x, []Node{{Index: 1, Value: v}})
		y = append(y, 2*v+1)
	}
	prob, err := NewProblem(x, y)
	require.NoError(t, err)

	param := NewParameters()
	param.SVMType = NuSVR
	param.KernelType = Linear
	param.C = 100
	param.Nu = 0.5
	model, err := Train(context.Background(), prob, param)
	require.NoError(t, err)

	assert.InDelta(t, 6.0, model.Predict([]Node{{Index: 1, Value: 2.5}}), 0.2)
}

func TestTrainPrecomputedMatchesLinear(t *testing.T) {
	prob := separableProblem(t)
	linModel, err := Train(context.Background(), prob, linearCSVCParams())
	require.NoError(t, err)

	gram := mat.NewDense(prob.L, prob.L, nil)
	for i := 0; i < prob.L; i++ {
		for j := 0; j < prob.L; j++ {
			gram.Set(i, j, dot(prob.X[i], prob.X[j]))
		}
	}
	gprob, err := NewProblemFromGram(gram, prob.Y)
	require.NoError(t, err)

	param := linearCSVCParams()
	param.KernelType = Precomputed
	param.Gram = gram
	gModel, err := Train(context.Background(), gprob, param)
	require.NoError(t, err)

	assert.InDelta(t, linModel.Rho()[0], gModel.Rho()[0], 1e-9)
	for i := 0; i < prob.L; i++ {
		row := make([]float64, prob.L)
		for j := 0; j < prob.L; j++ {
			row[j] = dot(prob.X[i], prob.X[j])
		}
		assert.Equal(t, linModel.Predict(prob.X[i]), gModel.Predict(GramRow(row)))
	}
}

func TestTrainUserKernelMatchesLinear(t *testing.T) {
	prob := separableProblem(t)
	linModel, err := Train(context.Background(), prob, linearCSVCParams())
	require.NoError(t, err)

	param := linearCSVCParams()
	param.KernelType = UserSupplied
	param.Kernel = func(a, b []Node) float64 { return dot(a, b) }
	uModel, err := Train(context.Background(), prob, param)
	require.NoError(t, err)

	assert.InDelta(t, linModel.Rho()[0], uModel.Rho()[0], 1e-9)
	for _, x := range prob.X {
		assert.Equal(t, linModel.Predict(x), uModel.Predict(x))
	}
}

func TestTrainShrinkingEquivalence(t *testing.T) {
	prob := fourClassProblem(t)

	on := linearCSVCParams()
	on.Shrinking = true
	mOn, err := Train(context.Background(), prob, on)
	require.NoError(t, err)

	off := linearCSVCParams()
	off.Shrinking = false
	mOff, err := Train(context.Background(), prob, off)
	require.NoError(t, err)

	for _, x := range prob.X {
		assert.Equal(t, mOn.Predict(x), mOff.Predict(x))
	}
}

func TestTrainTinyCacheEquivalence(t *testing.T) {
	prob := fourClassProblem(t)

	big := linearCSVCParams()
	mBig, err := Train(context.Background(), prob, big)
	require.NoError(t, err)

	small := linearCSVCParams()
	small.CacheBytes = 1 // floored to the two resident columns
	mSmall, err := Train(context.Background(), prob, small)
	require.NoError(t, err)

	assert.Equal(t, mBig.Rho(), mSmall.Rho())
	assert.Equal(t, mBig.Coefficients(), mSmall.Coefficients())
}

func TestTrainCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	prob := separableProblem(t)
	model, err := Train(ctx, prob, linearCSVCParams())
	assert.Nil(t, model)
	require.ErrorIs(t, err, context.Canceled)
}

func TestTrainIterationCap(t *testing.T) {
	prob := separableProblem(t)
	param := linearCSVCParams()
	param.MaxIterations = 1

	model, err := Train(context.Background(), prob, param)
	assert.Nil(t, model)
	require.ErrorIs(t, err, ErrNotConverged)
	var convErr *ConvergenceError
	require.True(t, errors.As(err, &convErr))
	assert.Equal(t, 1, convErr.Iterations)
	assert.Equal(t, [2]int{0, 1}, convErr.Pair)
	assert.Greater(t, convErr.Violation, 0.0)
}

func TestTrainRegressionIterationCap(t *testing.T) {
	x := [][]Node{
		DenseVector([]float64{0}),
		DenseVector([]float64{1}),
		DenseVector([]float64{2}),
		DenseVector([]float64{3}),
	}
	prob, err := NewProblem(x, []float64{1, 3, 5, 7})
	require.NoError(t, err)

	param := NewParameters()
	param.SVMType = EpsilonSVR
	param.KernelType = Linear
	param.C = 100
	param.MaxIterations = 1

	model, err := Train(context.Background(), prob, param)
	assert.Nil(t, model)
	require.ErrorIs(t, err, ErrNotConverged)
	var convErr *ConvergenceError
	require.True(t, errors.As(err, &convErr))
	assert.Equal(t, [2]int{-1, -1}, convErr.Pair)
	assert.Equal(t, 1, convErr.Iterations)
}

func TestTrainIterationCapKeepPartial(t *testing.T) {
	prob := separableProblem(t)
	param := linearCSVCParams()
	param.MaxIterations = 1
	param.KeepPartialModels = true

	model, err := Train(context.Background(), prob, param)
	require.ErrorIs(t, err, ErrNotConverged)
	require.NotNil(t, model)
	require.Len(t, model.PairFailures(), 1)
	assert.True(t, model.PairFailures()[0])
}

func TestTrainClassWeights(t *testing.T) {
	prob := separableProblem(t)
	param := linearCSVCParams()
	param.ClassWeights = map[int]float64{1: 0.5, -1: 2}

	model, err := Train(context.Background(), prob, param)
	require.NoError(t, err)
	for i, x := range prob.X {
		assert.Equal(t, prob.Y[i], model.Predict(x), "sample %d", i)
	}
	// the box bound follows the per-class weighted C
	coef := model.Coefficients()[0]
	idx := model.SupportVectorIndices()
	for k, a := range coef {
		if prob.Y[idx[k]] > 0 {
			assert.LessOrEqual(t, a, 0.5*param.C+1e-9)
		} else {
			assert.GreaterOrEqual(t, a, -2*param.C-1e-9)
		}
	}
}

func TestTrainSampleWeights(t *testing.T) {
	prob := separableProblem(t)
	param := linearCSVCParams()
	param.SampleWeights = []float64{0.25, 1, 1, 1, 1, 1, 1, 0.25}

	model, err := Train(context.Background(), prob, param)
	require.NoError(t, err)
	for i, x := range prob.X {
		assert.Equal(t, prob.Y[i], model.Predict(x), "sample %d", i)
	}
	// each coefficient stays inside its per-sample box
	coef := model.Coefficients()[0]
	idx := model.SupportVectorIndices()
	for k, a := range coef {
		bound := param.C * param.SampleWeights[idx[k]]
		assert.LessOrEqual(t, math.Abs(a), bound+1e-9, "sv %d", k)
	}
}

func TestTrainMulticlassSampleWeights(t *testing.T) {
	prob := fourClassProblem(t)
	param := linearCSVCParams()
	// weights tight enough that the box binds in every sub-problem
	param.SampleWeights = make([]float64, prob.L)
	for i := range param.SampleWeights {
		param.SampleWeights[i] = 1e-4
	}
	bound := param.C * 1e-4

	model, err := Train(context.Background(), prob, param)
	require.NoError(t, err)
	for i, x := range prob.X {
		assert.Equal(t, prob.Y[i], model.Predict(x), "sample %d", i)
	}
	// the weights reach every pairwise sub-problem: all dual
	// coefficients stay inside the per-sample box, and some sit on it
	maxCoef := 0.0
	for _, row := range model.Coefficients() {
		for k, a := range row {
			assert.LessOrEqual(t, math.Abs(a), bound+1e-12, "sv %d", k)
			if math.Abs(a) > maxCoef {
				maxCoef = math.Abs(a)
			}
		}
	}
	assert.InDelta(t, bound, maxCoef, 1e-9)
}

func TestCheckRejectsBadSampleWeights(t *testing.T) {
	prob := separableProblem(t)
	var cfgErr *ConfigError

	p := linearCSVCParams()
	p.SampleWeights = []float64{1, 1}
	require.True(t, errors.As(p.Check(prob), &cfgErr))
	assert.Equal(t, "SampleWeights", cfgErr.Field)

	p = linearCSVCParams()
	p.SampleWeights = []float64{1, 1, 1, 1, 1, 1, 1, 0}
	require.True(t, errors.As(p.Check(prob), &cfgErr))
	assert.Equal(t, "SampleWeights", cfgErr.Field)
}

func TestGroupClassesFirstOccurrenceOrder(t *testing.T) {
	x := [][]Node{
		DenseVector([]float64{1}),
		DenseVector([]float64{2}),
		DenseVector([]float64{3}),
		DenseVector([]float64{4}),
	}
	prob, err := NewProblem(x, []float64{3, 1, 3, 2})
	require.NoError(t, err)

	groups := groupClasses(prob)
	assert.Equal(t, []int{3, 1, 2}, groups.labels)
	assert.Equal(t, []int{2, 1, 1}, groups.count)
	assert.Equal(t, []int{0, 2, 3}, groups.start)
	assert.Equal(t, []int{0, 2, 1, 3}, groups.perm)
}

func TestCheckRejectsBadConfig(t *testing.T) {
	prob := separableProblem(t)

	p := NewParameters()
	p.Gamma = 0
	var cfgErr *ConfigError
	require.True(t, errors.As(p.Check(prob), &cfgErr))
	assert.Equal(t, "Gamma", cfgErr.Field)

	p = NewParameters()
	p.KernelType = Polynomial
	p.Degree = 0
	require.True(t, errors.As(p.Check(prob), &cfgErr))
	assert.Equal(t, "Degree", cfgErr.Field)

	p = NewParameters()
	p.C = -1
	require.True(t, errors.As(p.Check(prob), &cfgErr))
	assert.Equal(t, "C", cfgErr.Field)

	p = NewParameters()
	p.KernelType = Precomputed
	require.True(t, errors.As(p.Check(prob), &cfgErr))
	assert.Equal(t, "Gram", cfgErr.Field)
}
