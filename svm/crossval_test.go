package svm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCrossValidateSeparable(t *testing.T) {
	prob := fourClassProblem(t)
	param := linearCSVCParams()

	target, err := CrossValidate(context.Background(), prob, param, 4)
	require.NoError(t, err)
	require.Len(t, target, prob.L)

	correct := 0
	for i := range target {
		if target[i] == prob.Y[i] {
			correct++
		}
	}
	// held-out prediction on tight, well separated clusters
	assert.GreaterOrEqual(t, correct, prob.L*3/4)
}

func TestCrossValidateDeterministic(t *testing.T) {
	prob := fourClassProblem(t)
	param := linearCSVCParams()
	param.Seed = 42

	t1, err := CrossValidate(context.Background(), prob, param, 4)
	require.NoError(t, err)
	t2, err := CrossValidate(context.Background(), prob, param, 4)
	require.NoError(t, err)
	assert.Equal(t, t1, t2)
}

func TestCrossValidateRejectsBadFolds(t *testing.T) {
	prob := separableProblem(t)
	param := linearCSVCParams()

	_, err := CrossValidate(context.Background(), prob, param, 1)
	assert.Error(t, err)
	_, err = CrossValidate(context.Background(), prob, param, prob.L+1)
	assert.Error(t, err)
}

func TestFoldAssignmentPartition(t *testing.T) {
	prob := fourClassProblem(t)
	param := linearCSVCParams()
	nFold := 4

	folds := FoldAssignment(prob, param, nFold)
	require.Len(t, folds, prob.L)

	sizes := make([]int, nFold)
	for _, f := range folds {
		require.GreaterOrEqual(t, f, 0)
		require.Less(t, f, nFold)
		sizes[f]++
	}
	// 16 samples over 4 stratified folds
	assert.Equal(t, []int{4, 4, 4, 4}, sizes)
}

func TestFoldAssignmentStratified(t *testing.T) {
	prob := fourClassProblem(t)
	param := linearCSVCParams()
	nFold := 4

	folds := FoldAssignment(prob, param, nFold)
	perClass := make(map[float64][]int)
	for i, f := range folds {
		if perClass[prob.Y[i]] == nil {
			perClass[prob.Y[i]] = make([]int, nFold)
		}
		perClass[prob.Y[i]][f]++
	}
	for label, counts := range perClass {
		assert.Equal(t, []int{1, 1, 1, 1}, counts, "class %g", label)
	}
}
