package svm

import (
	"gonum.org/v1/gonum/mat"
)

// DecisionValues fills dec with the raw decision values for x and
// returns the prediction. For classification models dec holds the
// k(k-1)/2 pairwise values in lexicographic pair order and the
// prediction is the voted label; for regression and one-class models
// dec holds the single decision value. dec must have NumPairwise
// entries.
func (m *Model) DecisionValues(x []Node, dec []float64) float64 {
	if m.param.SVMType == OneClass || m.param.SVMType.IsRegression() {
		coef := m.svCoef[0]
		sum := 0.0
		for i := 0; i < m.l; i++ {
			sum += coef[i] * m.kernel.Evaluate(x, m.sv[i])
		}
		sum -= m.rho[0]
		dec[0] = sum
		if m.param.SVMType == OneClass {
			if sum > 0 {
				return 1
			}
			return -1
		}
		return sum
	}

	// one kernel evaluation per support vector, shared by all pairs
	kvalue := make([]float64, m.l)
	for i := 0; i < m.l; i++ {
		kvalue[i] = m.kernel.Evaluate(x, m.sv[i])
	}

	start := make([]int, m.nrClass)
	for i := 1; i < m.nrClass; i++ {
		start[i] = start[i-1] + m.nSV[i-1]
	}

	votes := make([]int, m.nrClass)
	p := 0
	for i := 0; i < m.nrClass; i++ {
		for j := i + 1; j < m.nrClass; j++ {
			sum := 0.0
			si, sj := start[i], start[j]
			ci, cj := m.nSV[i], m.nSV[j]
			coef1 := m.svCoef[j-1]
			coef2 := m.svCoef[i]
			for k := 0; k < ci; k++ {
				sum += coef1[si+k] * kvalue[si+k]
			}
			for k := 0; k < cj; k++ {
				sum += coef2[sj+k] * kvalue[sj+k]
			}
			sum -= m.rho[p]
			dec[p] = sum
			if sum > 0 {
				votes[i]++
			} else {
				votes[j]++
			}
			p++
		}
	}

	// argmax votes; ties resolve to the lowest class index
	best := 0
	for i := 1; i < m.nrClass; i++ {
		if votes[i] > votes[best] {
			best = i
		}
	}
	return float64(m.label[best])
}

// Predict returns the label (classification, one-class) or value
// (regression) for one sample.
func (m *Model) Predict(x []Node) float64 {
	dec := make([]float64, m.NumPairwise())
	return m.DecisionValues(x, dec)
}

// PredictAll predicts every sample of a batch.
func (m *Model) PredictAll(xs [][]Node) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = m.Predict(x)
	}
	return out
}

// DecisionFunction returns the raw decision values for a batch as a
// matrix with one row per sample and NumPairwise columns, suitable for
// downstream calibration.
func (m *Model) DecisionFunction(xs [][]Node) *mat.Dense {
	w := m.NumPairwise()
	out := mat.NewDense(len(xs), w, nil)
	dec := make([]float64, w)
	for i, x := range xs {
		m.DecisionValues(x, dec)
		out.SetRow(i, dec)
	}
	return out
}
