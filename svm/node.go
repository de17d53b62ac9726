package svm

// Node is one entry of a sparse feature vector. Index is 1-based and
// entries of a vector must be sorted by ascending Index.
type Node struct {
	Index int
	Value float64
}

// DenseVector converts a dense feature slice into sparse form,
// skipping zero entries.
func DenseVector(values []float64) []Node {
	nodes := make([]Node, 0, len(values))
	for i, v := range values {
		if v == 0 {
			continue
		}
		nodes = append(nodes, Node{Index: i + 1, Value: v})
	}
	return nodes
}

// dot computes the inner product of two sparse vectors by merging
// their index sequences.
func dot(x, y []Node) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(x) && j < len(y) {
		switch {
		case x[i].Index == y[j].Index:
			sum += x[i].Value * y[j].Value
			i++
			j++
		case x[i].Index > y[j].Index:
			j++
		default:
			i++
		}
	}
	return sum
}

// squaredDistance computes ||x-y||^2 without materializing the
// difference vector.
func squaredDistance(x, y []Node) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(x) && j < len(y) {
		switch {
		case x[i].Index == y[j].Index:
			d := x[i].Value - y[j].Value
			sum += d * d
			i++
			j++
		case x[i].Index > y[j].Index:
			sum += y[j].Value * y[j].Value
			j++
		default:
			sum += x[i].Value * x[i].Value
			i++
		}
	}
	for ; i < len(x); i++ {
		sum += x[i].Value * x[i].Value
	}
	for ; j < len(y); j++ {
		sum += y[j].Value * y[j].Value
	}
	return sum
}
