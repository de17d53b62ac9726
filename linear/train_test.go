package linear

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svmlab/gosvm/svm"
)

func denseRows(rows [][]float64) [][]svm.Node {
	out := make([][]svm.Node, len(rows))
	for i, r := range rows {
		out[i] = svm.DenseVector(r)
	}
	return out
}

func binaryProblem(t *testing.T) *Problem {
	t.Helper()
	x := denseRows([][]float64{
		{2, 2}, {3, 3}, {2, 3}, {3, 2},
		{-2, -2}, {-3, -3}, {-2, -3}, {-3, -2},
	})
	y := []float64{1, 1, 1, 1, -1, -1, -1, -1}
	prob, err := NewProblem(x, y, 1)
	require.NoError(t, err)
	return prob
}

func TestTrainBinarySeparable(t *testing.T) {
	rows := [][]float64{
		{2, 2}, {3, 3}, {2, 3}, {3, 2},
		{-2, -2}, {-3, -3}, {-2, -3}, {-3, -2},
	}
	y := []float64{1, 1, 1, 1, -1, -1, -1, -1}
	prob, err := NewProblem(denseRows(rows), y, 1)
	require.NoError(t, err)

	model, err := Train(context.Background(), prob, NewParameters())
	require.NoError(t, err)
	assert.Equal(t, 2, model.NumClass)
	assert.Equal(t, []int{1, -1}, model.Labels)

	for i, r := range rows {
		assert.Equal(t, y[i], model.Predict(svm.DenseVector(r)), "sample %d", i)
	}
}

func TestTrainBinarySwapConvention(t *testing.T) {
	// -1/+1 labels normalize so +1 is the positive class
	prob := binaryProblem(t)
	model, err := Train(context.Background(), prob, NewParameters())
	require.NoError(t, err)

	assert.Equal(t, []int{1, -1}, model.Labels)
	dec := make([]float64, 1)
	got := model.DecisionValues(append(svm.DenseVector([]float64{3, 3}),
		svm.Node{Index: 3, Value: 1}), dec)
	assert.Equal(t, 1.0, got)
	assert.Greater(t, dec[0], 0.0)
}

func TestTrainDeterministicAcrossSeeds(t *testing.T) {
	prob := binaryProblem(t)

	p1 := NewParameters()
	p1.Seed = 7
	m1, err := Train(context.Background(), prob, p1)
	require.NoError(t, err)

	p2 := NewParameters()
	p2.Seed = 7
	m2, err := Train(context.Background(), prob, p2)
	require.NoError(t, err)

	assert.Equal(t, m1.W, m2.W)
}

func TestTrainMulticlassOneVsRest(t *testing.T) {
	var rows [][]float64
	var y []float64
	centers := [][2]float64{{6, 0}, {-3, 5}, {-3, -5}}
	offsets := [][2]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}}
	for c, center := range centers {
		for _, o := range offsets {
			rows = append(rows, []float64{center[0] + o[0], center[1] + o[1]})
			y = append(y, float64(c+1))
		}
	}
	prob, err := NewProblem(denseRows(rows), y, 1)
	require.NoError(t, err)

	param := NewParameters()
	param.C = 10
	model, err := Train(context.Background(), prob, param)
	require.NoError(t, err)
	assert.Equal(t, 3, model.NumClass)
	assert.Equal(t, []int{1, 2, 3}, model.Labels)
	require.Len(t, model.W, prob.N*3)

	for i, r := range rows {
		assert.Equal(t, y[i], model.Predict(svm.DenseVector(r)), "sample %d", i)
	}
}

func TestTrainSVR(t *testing.T) {
	var rows [][]float64
	var y []float64
	for i := 0; i <= 8; i++ {
		v := float64(i) / 2
		rows = append(rows, []float64{v})
		y = append(y, 2*v+1)
	}
	prob, err := NewProblem(denseRows(rows), y, 1)
	require.NoError(t, err)

	param := NewParameters()
	param.SolverType = L2LossSVRDual
	param.C = 100
	param.Epsilon = 0.01
	param.Tolerance = 0.0001
	param.MaxIterations = 10000
	model, err := Train(context.Background(), prob, param)
	require.NoError(t, err)

	assert.InDelta(t, 6.0, model.Predict(svm.DenseVector([]float64{2.5})), 0.2)
}

func TestTrainCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	model, err := Train(ctx, binaryProblem(t), NewParameters())
	assert.Nil(t, model)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewProblemValidation(t *testing.T) {
	_, err := NewProblem(denseRows([][]float64{{1}}), []float64{1, 2}, -1)
	assert.Error(t, err)

	// descending indices rejected
	bad := [][]svm.Node{{{Index: 3, Value: 1}, {Index: 1, Value: 1}}}
	_, err = NewProblem(bad, []float64{1}, -1)
	assert.Error(t, err)
}

func TestGroupClassesSwapsMinusOnePlusOne(t *testing.T) {
	x := denseRows([][]float64{{1}, {2}, {3}})
	prob, err := NewProblem(x, []float64{-1, 1, -1}, -1)
	require.NoError(t, err)

	groups := groupClasses(prob)
	assert.Equal(t, []int{1, -1}, groups.labels)
	assert.Equal(t, []int{1, 2}, groups.count)
}
