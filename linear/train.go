package linear

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/svmlab/gosvm/svm"
)

var logger = svm.NewLogger("linear")

// Model is a trained linear predictor. For k > 2 classes W interleaves
// one weight column per class (one-vs-rest); a binary classifier keeps
// a single column signed towards Labels[0].
type Model struct {
	SolverType  SolverType
	NumClass    int
	NumFeatures int
	Labels      []int
	W           []float64
	Bias        float64
}

type classGroups struct {
	labels []int
	start  []int
	count  []int
	perm   []int
}

// groupClasses orders samples by class. Labels keep first-occurrence
// order, except the common -1/+1 binary case which is normalized so
// +1 comes first.
func groupClasses(prob *Problem) *classGroups {
	l := prob.L
	var labels, count []int
	dataLabel := make([]int, l)

	for i := 0; i < l; i++ {
		thisLabel := int(prob.Y[i])
		j := 0
		for ; j < len(labels); j++ {
			if thisLabel == labels[j] {
				count[j]++
				break
			}
		}
		dataLabel[i] = j
		if j == len(labels) {
			labels = append(labels, thisLabel)
			count = append(count, 1)
		}
	}

	if len(labels) == 2 && labels[0] == -1 && labels[1] == 1 {
		labels[0], labels[1] = labels[1], labels[0]
		count[0], count[1] = count[1], count[0]
		for i := 0; i < l; i++ {
			dataLabel[i] = 1 - dataLabel[i]
		}
	}

	nrClass := len(labels)
	start := make([]int, nrClass)
	for i := 1; i < nrClass; i++ {
		start[i] = start[i-1] + count[i-1]
	}
	perm := make([]int, l)
	fill := append([]int(nil), start...)
	for i := 0; i < l; i++ {
		perm[fill[dataLabel[i]]] = i
		fill[dataLabel[i]]++
	}
	return &classGroups{labels: labels, start: start, count: count, perm: perm}
}

// Train fits a linear model. Multi-class problems train one binary
// this-class-vs-rest solver per class over the same grouped view of
// the data. Runs with equal Seed are bit-for-bit reproducible.
func Train(ctx context.Context, prob *Problem, param *Parameters) (*Model, error) {
	if err := param.check(); err != nil {
		return nil, err
	}

	model := &Model{
		SolverType: param.SolverType,
		Bias:       prob.Bias,
	}
	if prob.Bias >= 0 {
		model.NumFeatures = prob.N - 1
	} else {
		model.NumFeatures = prob.N
	}
	rng := rand.New(rand.NewSource(param.Seed))

	if param.SolverType.isRegression() {
		model.NumClass = 2
		model.W = make([]float64, prob.N)
		iters, converged, err := solveSVR(ctx, prob, param, model.W, rng)
		if err != nil {
			return nil, err
		}
		if !converged {
			return model, fmt.Errorf("linear: svr not converged after %d iterations", iters)
		}
		return model, nil
	}

	groups := groupClasses(prob)
	nrClass := len(groups.labels)
	model.NumClass = nrClass
	model.Labels = append([]int(nil), groups.labels...)

	weightedC := make([]float64, nrClass)
	for i := range weightedC {
		weightedC[i] = param.C
	}
	for label, w := range param.ClassWeights {
		for j, cl := range groups.labels {
			if cl == label {
				weightedC[j] *= w
				break
			}
		}
	}

	sub := &Problem{
		L:    prob.L,
		N:    prob.N,
		X:    make([][]svm.Node, prob.L),
		Y:    make([]float64, prob.L),
		Bias: prob.Bias,
	}
	for i := 0; i < prob.L; i++ {
		sub.X[i] = prob.X[groups.perm[i]]
	}

	if nrClass == 2 {
		model.W = make([]float64, prob.N)
		e0 := groups.start[0] + groups.count[0]
		for k := 0; k < prob.L; k++ {
			if k < e0 {
				sub.Y[k] = 1
			} else {
				sub.Y[k] = -1
			}
		}
		iters, _, converged, err := solveSVC(ctx, sub, param, model.W, weightedC[0], weightedC[1], rng)
		if err != nil {
			return nil, err
		}
		if !converged {
			return model, fmt.Errorf("linear: not converged after %d iterations", iters)
		}
		return model, nil
	}

	model.W = make([]float64, prob.N*nrClass)
	w := make([]float64, prob.N)
	for c := 0; c < nrClass; c++ {
		si := groups.start[c]
		ei := si + groups.count[c]
		for k := 0; k < prob.L; k++ {
			if k >= si && k < ei {
				sub.Y[k] = 1
			} else {
				sub.Y[k] = -1
			}
		}
		iters, _, converged, err := solveSVC(ctx, sub, param, w, weightedC[c], param.C, rng)
		if err != nil {
			return nil, err
		}
		if !converged {
			return nil, fmt.Errorf("linear: class %d vs rest not converged after %d iterations", groups.labels[c], iters)
		}
		for j := 0; j < prob.N; j++ {
			model.W[j*nrClass+c] = w[j]
		}
	}
	return model, nil
}

// DecisionValues fills dec with one decision value per weight column
// and returns the predicted label or value. dec needs NumClass entries
// (one suffices for binary and regression models).
func (m *Model) DecisionValues(x []svm.Node, dec []float64) float64 {
	n := m.NumFeatures
	if m.Bias >= 0 {
		n++
	}
	nrW := m.NumClass
	if m.NumClass == 2 {
		nrW = 1
	}
	for i := 0; i < nrW; i++ {
		dec[i] = 0
	}
	for _, node := range x {
		// test data may carry more features than seen in training
		if node.Index <= n {
			for i := 0; i < nrW; i++ {
				dec[i] += m.W[(node.Index-1)*nrW+i] * node.Value
			}
		}
	}

	if m.SolverType.isRegression() {
		return dec[0]
	}
	if m.NumClass == 2 {
		if dec[0] > 0 {
			return float64(m.Labels[0])
		}
		return float64(m.Labels[1])
	}
	best := 0
	for i := 1; i < m.NumClass; i++ {
		if dec[i] > dec[best] {
			best = i
		}
	}
	return float64(m.Labels[best])
}

// Predict returns the label (classification) or value (regression) for
// one sample. Bias-augmented models append the bias feature themselves;
// pass the raw sample.
func (m *Model) Predict(x []svm.Node) float64 {
	if m.Bias >= 0 {
		n := m.NumFeatures + 1
		augmented := make([]svm.Node, len(x)+1)
		copy(augmented, x)
		augmented[len(x)] = svm.Node{Index: n, Value: m.Bias}
		x = augmented
	}
	dec := make([]float64, m.NumClass)
	return m.DecisionValues(x, dec)
}
