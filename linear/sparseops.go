package linear

import "github.com/svmlab/gosvm/svm"

// sparse vector kernels over the dense weight slice

func nrm2Sq(x []svm.Node) float64 {
	var sum float64
	for _, n := range x {
		sum += n.Value * n.Value
	}
	return sum
}

func dotW(w []float64, x []svm.Node) float64 {
	var sum float64
	for _, n := range x {
		sum += w[n.Index-1] * n.Value
	}
	return sum
}

func axpy(a float64, x []svm.Node, w []float64) {
	for _, n := range x {
		w[n.Index-1] += a * n.Value
	}
}
