package svm

// qMatrix exposes columns of the quadratic term Q of the dual problem.
// Q is never materialized; columns are computed on demand through the
// kernel cache. The diagonal is precomputed once because the working
// set selection reads it every iteration.
type qMatrix interface {
	column(i, n int) []float32
	diagonal() []float64
	swap(i, j int)
}

// svcQ is Q for the classification formulations:
// Q_ij = y_i y_j K(x_i, x_j).
type svcQ struct {
	y     []int8
	km    *kernelMatrix
	cache *columnCache
	qd    []float64
}

func newSVCQ(prob *Problem, p *Parameters, y []int8) *svcQ {
	q := &svcQ{
		y:     append([]int8(nil), y...),
		km:    newKernelMatrix(prob.X, p),
		cache: newColumnCache(prob.L, p.CacheBytes),
		qd:    make([]float64, prob.L),
	}
	for i := 0; i < prob.L; i++ {
		q.qd[i] = q.km.at(i, i)
	}
	return q
}

func (q *svcQ) column(i, n int) []float32 {
	col, filled := q.cache.fetch(i, n)
	for j := filled; j < n; j++ {
		col[j] = float32(q.y[i]*q.y[j]) * float32(q.km.at(i, j))
	}
	return col
}

func (q *svcQ) diagonal() []float64 { return q.qd }

func (q *svcQ) swap(i, j int) {
	q.cache.swap(i, j)
	q.km.swap(i, j)
	q.y[i], q.y[j] = q.y[j], q.y[i]
	q.qd[i], q.qd[j] = q.qd[j], q.qd[i]
}

// oneClassQ is the plain kernel matrix used by one-class training.
type oneClassQ struct {
	km    *kernelMatrix
	cache *columnCache
	qd    []float64
}

func newOneClassQ(prob *Problem, p *Parameters) *oneClassQ {
	q := &oneClassQ{
		km:    newKernelMatrix(prob.X, p),
		cache: newColumnCache(prob.L, p.CacheBytes),
		qd:    make([]float64, prob.L),
	}
	for i := 0; i < prob.L; i++ {
		q.qd[i] = q.km.at(i, i)
	}
	return q
}

func (q *oneClassQ) column(i, n int) []float32 {
	col, filled := q.cache.fetch(i, n)
	for j := filled; j < n; j++ {
		col[j] = float32(q.km.at(i, j))
	}
	return col
}

func (q *oneClassQ) diagonal() []float64 { return q.qd }

func (q *oneClassQ) swap(i, j int) {
	q.cache.swap(i, j)
	q.km.swap(i, j)
	q.qd[i], q.qd[j] = q.qd[j], q.qd[i]
}

// svrQ serves the doubled regression problem of size 2l. Kernel columns
// are cached once per underlying sample and reordered through the
// sign/index maps into one of two rotating buffers, so the solver can
// hold the columns of both working-set members at once.
type svrQ struct {
	l      int
	km     *kernelMatrix
	cache  *columnCache
	sign   []int8
	index  []int
	qd     []float64
	buffer [2][]float32
	next   int
}

func newSVRQ(prob *Problem, p *Parameters) *svrQ {
	l := prob.L
	q := &svrQ{
		l:     l,
		km:    newKernelMatrix(prob.X, p),
		cache: newColumnCache(l, p.CacheBytes),
		sign:  make([]int8, 2*l),
		index: make([]int, 2*l),
		qd:    make([]float64, 2*l),
	}
	for k := 0; k < l; k++ {
		q.sign[k] = 1
		q.sign[k+l] = -1
		q.index[k] = k
		q.index[k+l] = k
		q.qd[k] = q.km.at(k, k)
		q.qd[k+l] = q.qd[k]
	}
	q.buffer[0] = make([]float32, 2*l)
	q.buffer[1] = make([]float32, 2*l)
	return q
}

func (q *svrQ) column(i, n int) []float32 {
	ri := q.index[i]
	col, filled := q.cache.fetch(ri, q.l)
	for j := filled; j < q.l; j++ {
		col[j] = float32(q.km.at(ri, j))
	}

	buf := q.buffer[q.next]
	q.next = 1 - q.next
	si := q.sign[i]
	for j := 0; j < n; j++ {
		buf[j] = float32(si*q.sign[j]) * col[q.index[j]]
	}
	return buf
}

func (q *svrQ) diagonal() []float64 { return q.qd }

func (q *svrQ) swap(i, j int) {
	q.sign[i], q.sign[j] = q.sign[j], q.sign[i]
	q.index[i], q.index[j] = q.index[j], q.index[i]
	q.qd[i], q.qd[j] = q.qd[j], q.qd[i]
}
