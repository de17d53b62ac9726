package svm

import (
	"context"
	"math"
	"runtime"
	"sync"
)

// binaryResult is the outcome of one binary sub-problem: the signed
// dual coefficients, the intercept, and the convergence diagnostics if
// the iteration cap was hit.
type binaryResult struct {
	alpha        []float64
	rho          float64
	iterations   int
	violation    float64
	notConverged bool
}

// noPair marks a convergence failure outside the one-vs-one fan-out.
var noPair = [2]int{-1, -1}

// failure builds the diagnostic error for a sub-problem that hit its
// iteration cap, or nil if it converged. pair identifies the one-vs-one
// sub-problem; single-solve fits pass noPair.
func (r *binaryResult) failure(pair [2]int) *ConvergenceError {
	if !r.notConverged {
		return nil
	}
	return &ConvergenceError{Pair: pair, Iterations: r.iterations, Violation: r.violation}
}

func solveCSVC(ctx context.Context, prob *Problem, param *Parameters, alpha []float64, cp, cn float64, w []float64) (*solutionInfo, error) {
	l := prob.L
	minusOnes := make([]float64, l)
	y := make([]int8, l)
	for i := 0; i < l; i++ {
		alpha[i] = 0
		minusOnes[i] = -1
		if prob.Y[i] > 0 {
			y[i] = +1
		} else {
			y[i] = -1
		}
	}

	var cVec []float64
	if w != nil {
		cVec = make([]float64, l)
		for i := 0; i < l; i++ {
			if y[i] > 0 {
				cVec[i] = cp * w[i]
			} else {
				cVec[i] = cn * w[i]
			}
		}
	}

	s := &solver{}
	si, err := s.solve(ctx, l, newSVCQ(prob, param, y), minusOnes, y, alpha, cp, cn, cVec, param, cSelector{})
	if err != nil {
		return nil, err
	}
	for i := 0; i < l; i++ {
		alpha[i] *= float64(y[i])
	}
	return si, nil
}

func solveNuSVC(ctx context.Context, prob *Problem, param *Parameters, alpha []float64, w []float64) (*solutionInfo, error) {
	l := prob.L
	y := make([]int8, l)
	for i := 0; i < l; i++ {
		if prob.Y[i] > 0 {
			y[i] = +1
		} else {
			y[i] = -1
		}
	}

	// per-sample weights scale the unit box of the nu formulation
	var cVec []float64
	wSum := float64(l)
	if w != nil {
		cVec = make([]float64, l)
		wSum = 0
		for i := 0; i < l; i++ {
			cVec[i] = w[i]
			wSum += w[i]
		}
	}
	bound := func(i int) float64 {
		if cVec != nil {
			return cVec[i]
		}
		return 1
	}

	sumPos := param.Nu * wSum / 2
	sumNeg := param.Nu * wSum / 2
	for i := 0; i < l; i++ {
		if y[i] == +1 {
			alpha[i] = math.Min(bound(i), sumPos)
			sumPos -= alpha[i]
		} else {
			alpha[i] = math.Min(bound(i), sumNeg)
			sumNeg -= alpha[i]
		}
	}

	zeros := make([]float64, l)
	s := &solver{}
	si, err := s.solve(ctx, l, newSVCQ(prob, param, y), zeros, y, alpha, 1.0, 1.0, cVec, param, nuSelector{})
	if err != nil {
		return nil, err
	}

	// rescale the nu solution into C-SVC form
	r := si.r
	for i := 0; i < l; i++ {
		alpha[i] *= float64(y[i]) / r
	}
	si.rho /= r
	si.obj /= r * r
	si.upperBoundP = 1 / r
	si.upperBoundN = 1 / r
	return si, nil
}

func solveOneClass(ctx context.Context, prob *Problem, param *Parameters, alpha []float64, w []float64) (*solutionInfo, error) {
	l := prob.L
	zeros := make([]float64, l)
	ones := make([]int8, l)
	for i := 0; i < l; i++ {
		ones[i] = 1
	}

	// a nu fraction of the total mass starts at the upper bound
	var cVec []float64
	wSum := float64(l)
	if w != nil {
		cVec = make([]float64, l)
		wSum = 0
		for i := 0; i < l; i++ {
			cVec[i] = w[i]
			wSum += w[i]
		}
	}
	remaining := param.Nu * wSum
	for i := 0; i < l; i++ {
		bound := 1.0
		if cVec != nil {
			bound = cVec[i]
		}
		alpha[i] = math.Min(bound, remaining)
		remaining -= alpha[i]
	}

	s := &solver{}
	return s.solve(ctx, l, newOneClassQ(prob, param), zeros, ones, alpha, 1.0, 1.0, cVec, param, cSelector{})
}

func solveEpsilonSVR(ctx context.Context, prob *Problem, param *Parameters, alpha []float64, w []float64) (*solutionInfo, error) {
	l := prob.L
	alpha2 := make([]float64, 2*l)
	linearTerm := make([]float64, 2*l)
	y := make([]int8, 2*l)
	for i := 0; i < l; i++ {
		linearTerm[i] = param.Epsilon - prob.Y[i]
		y[i] = 1
		linearTerm[i+l] = param.Epsilon + prob.Y[i]
		y[i+l] = -1
	}

	var cVec []float64
	if w != nil {
		cVec = make([]float64, 2*l)
		for i := 0; i < l; i++ {
			cVec[i] = param.C * w[i]
			cVec[i+l] = cVec[i]
		}
	}

	s := &solver{}
	si, err := s.solve(ctx, 2*l, newSVRQ(prob, param), linearTerm, y, alpha2, param.C, param.C, cVec, param, cSelector{})
	if err != nil {
		return nil, err
	}
	for i := 0; i < l; i++ {
		alpha[i] = alpha2[i] - alpha2[i+l]
	}
	return si, nil
}

func solveNuSVR(ctx context.Context, prob *Problem, param *Parameters, alpha []float64, w []float64) (*solutionInfo, error) {
	l := prob.L
	c := param.C
	alpha2 := make([]float64, 2*l)
	linearTerm := make([]float64, 2*l)
	y := make([]int8, 2*l)

	var cVec []float64
	cSum := c * float64(l)
	if w != nil {
		cVec = make([]float64, 2*l)
		cSum = 0
		for i := 0; i < l; i++ {
			cVec[i] = c * w[i]
			cVec[i+l] = cVec[i]
			cSum += cVec[i]
		}
	}

	sum := param.Nu * cSum / 2
	for i := 0; i < l; i++ {
		bound := c
		if cVec != nil {
			bound = cVec[i]
		}
		a := math.Min(sum, bound)
		alpha2[i] = a
		alpha2[i+l] = a
		sum -= a
		linearTerm[i] = -prob.Y[i]
		y[i] = 1
		linearTerm[i+l] = prob.Y[i]
		y[i+l] = -1
	}

	s := &solver{}
	si, err := s.solve(ctx, 2*l, newSVRQ(prob, param), linearTerm, y, alpha2, c, c, cVec, param, nuSelector{})
	if err != nil {
		return nil, err
	}
	for i := 0; i < l; i++ {
		alpha[i] = alpha2[i] - alpha2[i+l]
	}
	return si, nil
}

// trainOne solves a single binary (or one-class/regression) problem.
// A non-convergent solve still yields the best-effort coefficients,
// with the failure attached.
func trainOne(ctx context.Context, prob *Problem, param *Parameters, cp, cn float64, w []float64) (*binaryResult, error) {
	alpha := make([]float64, prob.L)
	var si *solutionInfo
	var err error
	switch param.SVMType {
	case CSVC:
		si, err = solveCSVC(ctx, prob, param, alpha, cp, cn, w)
	case NuSVC:
		si, err = solveNuSVC(ctx, prob, param, alpha, w)
	case OneClass:
		si, err = solveOneClass(ctx, prob, param, alpha, w)
	case EpsilonSVR:
		si, err = solveEpsilonSVR(ctx, prob, param, alpha, w)
	case NuSVR:
		si, err = solveNuSVR(ctx, prob, param, alpha, w)
	}
	if err != nil {
		return nil, err
	}

	nSV, nBSV := 0, 0
	for i := 0; i < prob.L; i++ {
		if math.Abs(alpha[i]) > 0 {
			nSV++
			// one-class problems carry no labels; the bounds are symmetric
			if prob.Y == nil || prob.Y[i] > 0 {
				if math.Abs(alpha[i]) >= si.upperBoundP {
					nBSV++
				}
			} else {
				if math.Abs(alpha[i]) >= si.upperBoundN {
					nBSV++
				}
			}
		}
	}
	logger.Debug().Int("nSV", nSV).Int("nBSV", nBSV).Msg("sub-problem solved")

	res := &binaryResult{
		alpha:        alpha,
		rho:          si.rho,
		iterations:   si.iterations,
		violation:    si.violation,
		notConverged: si.notConverged,
	}
	return res, nil
}

// classGroups is the outcome of grouping samples by label: labels in
// order of first occurrence, contiguous start/count ranges, and the
// permutation from grouped position to original index.
type classGroups struct {
	labels []int
	start  []int
	count  []int
	perm   []int
}

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

// Train fits a model. Configuration problems surface before the first
// iteration; non-convergence of any sub-problem aborts the fit unless
// Parameters.KeepPartialModels is set, in which case the error still
// wraps ErrNotConverged and the returned model flags the failed pairs.
// Cancelling the context stops the solve at the next iteration boundary
// and produces no model.
func Train(ctx context.Context, prob *Problem, param *Parameters) (*Model, error) {
	if err := param.Check(prob); err != nil {
		return nil, err
	}
	if param.SVMType != OneClass && prob.Y == nil {
		return nil, &ConfigError{Field: "Y", Reason: "formulation requires labels or targets"}
	}

	if param.SVMType == OneClass || param.SVMType.IsRegression() {
		return trainDistribution(ctx, prob, param)
	}
	return trainClassifier(ctx, prob, param)
}

// trainDistribution handles the single-solve formulations: one-class
// and the two regressions.
func trainDistribution(ctx context.Context, prob *Problem, param *Parameters) (*Model, error) {
	res, err := trainOne(ctx, prob, param, 0, 0, param.SampleWeights)
	if err != nil {
		return nil, err
	}
	fail := res.failure(noPair)
	if fail != nil && !param.KeepPartialModels {
		return nil, fail
	}

	m := &Model{
		param:   param.clone(),
		nrClass: 2,
		rho:     []float64{res.rho},
		svCoef:  make([][]float64, 1),
	}
	nSV := 0
	for i := 0; i < prob.L; i++ {
		if math.Abs(res.alpha[i]) > 0 {
			nSV++
		}
	}
	m.l = nSV
	m.sv = make([][]Node, nSV)
	m.svCoef[0] = make([]float64, nSV)
	m.svIndices = make([]int, nSV)
	j := 0
	for i := 0; i < prob.L; i++ {
		if math.Abs(res.alpha[i]) > 0 {
			m.sv[j] = prob.X[i]
			m.svCoef[0][j] = res.alpha[i]
			m.svIndices[j] = i
			j++
		}
	}
	m.kernel = newKernel(m.param)
	if fail != nil {
		m.pairFailed = []bool{true}
		return m, fail
	}
	return m, nil
}

// pairTask identifies one one-vs-one sub-problem by class indices i<j.
type pairTask struct {
	p    int // position in the lexicographic pair enumeration
	i, j int
}

// trainClassifier runs the one-against-one fan-out: k(k-1)/2
// sub-problems, enumerated (0,1),(0,2),...,(k-2,k-1), dispatched on a
// bounded worker pool. Sub-problems share only the read-only grouped
// sample view; every task owns its solver state and kernel cache.
func trainClassifier(ctx context.Context, prob *Problem, param *Parameters) (*Model, error) {
	l := prob.L
	groups := groupClasses(prob)
	nrClass := len(groups.labels)
	if nrClass == 1 {
		logger.Warn().Msg("training data contains only one class")
	}

	x := make([][]Node, l)
	for i := 0; i < l; i++ {
		x[i] = prob.X[groups.perm[i]]
	}
	var w []float64
	if param.SampleWeights != nil {
		w = make([]float64, l)
		for i := 0; i < l; i++ {
			w[i] = param.SampleWeights[groups.perm[i]]
		}
	}

	weightedC := make([]float64, nrClass)
	for i := range weightedC {
		weightedC[i] = param.C
	}
	for label, mult := range param.ClassWeights {
		found := false
		for j, cl := range groups.labels {
			if cl == label {
				weightedC[j] *= mult
				found = true
				break
			}
		}
		if !found {
			logger.Warn().Int("label", label).Msg("class weight for unknown label ignored")
		}
	}

	nPairs := nrClass * (nrClass - 1) / 2
	tasks := make([]pairTask, 0, nPairs)
	p := 0
	for i := 0; i < nrClass; i++ {
		for j := i + 1; j < nrClass; j++ {
			tasks = append(tasks, pairTask{p: p, i: i, j: j})
			p++
		}
	}

	results := make([]*binaryResult, nPairs)
	errs := make([]error, nPairs)

	workers := param.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > nPairs {
		workers = nPairs
	}
	taskCh := make(chan pairTask)
	var wg sync.WaitGroup
	for n := 0; n < workers; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range taskCh {
				results[t.p], errs[t.p] = trainPair(ctx, x, w, groups, param, weightedC, t)
			}
		}()
	}
	for _, t := range tasks {
		taskCh <- t
	}
	close(taskCh)
	wg.Wait()

	var firstFail *ConvergenceError
	for _, t := range tasks {
		if errs[t.p] != nil {
			// cancellation or other hard failure: no model
			return nil, errs[t.p]
		}
		if f := results[t.p].failure([2]int{t.i, t.j}); f != nil && firstFail == nil {
			firstFail = f
		}
	}
	if firstFail != nil && !param.KeepPartialModels {
		return nil, firstFail
	}

	m := buildClassifierModel(prob, param, groups, x, results)
	if firstFail != nil {
		m.pairFailed = make([]bool, nPairs)
		for _, t := range tasks {
			m.pairFailed[t.p] = results[t.p].notConverged
		}
		return m, firstFail
	}
	return m, nil
}

// trainPair assembles and solves the binary sub-problem for classes
// (i, j), mapping i to +1 and j to -1.
func trainPair(ctx context.Context, x [][]Node, w []float64, groups *classGroups, param *Parameters, weightedC []float64, t pairTask) (*binaryResult, error) {
	si, sj := groups.start[t.i], groups.start[t.j]
	ci, cj := groups.count[t.i], groups.count[t.j]

	sub := &Problem{
		L: ci + cj,
		X: make([][]Node, ci+cj),
		Y: make([]float64, ci+cj),
	}
	var subW []float64
	if w != nil {
		subW = make([]float64, ci+cj)
	}
	for k := 0; k < ci; k++ {
		sub.X[k] = x[si+k]
		sub.Y[k] = +1
		if w != nil {
			subW[k] = w[si+k]
		}
	}
	for k := 0; k < cj; k++ {
		sub.X[ci+k] = x[sj+k]
		sub.Y[ci+k] = -1
		if w != nil {
			subW[ci+k] = w[sj+k]
		}
	}

	return trainOne(ctx, sub, param, weightedC[t.i], weightedC[t.j], subW)
}

// buildClassifierModel extracts the unified support vector set and lays
// the dual coefficients out in k-1 rows: classifier (i,j) reads the
// coefficients of class i members from row j-1 and of class j members
// from row i, offset by the per-class nonzero start.
func buildClassifierModel(prob *Problem, param *Parameters, groups *classGroups, x [][]Node, results []*binaryResult) *Model {
	l := prob.L
	nrClass := len(groups.labels)
	nPairs := nrClass * (nrClass - 1) / 2

	nonzero := make([]bool, l)
	p := 0
	for i := 0; i < nrClass; i++ {
		for j := i + 1; j < nrClass; j++ {
			si, sj := groups.start[i], groups.start[j]
			ci, cj := groups.count[i], groups.count[j]
			f := results[p]
			for k := 0; k < ci; k++ {
				if math.Abs(f.alpha[k]) > 0 {
					nonzero[si+k] = true
				}
			}
			for k := 0; k < cj; k++ {
				if math.Abs(f.alpha[ci+k]) > 0 {
					nonzero[sj+k] = true
				}
			}
			p++
		}
	}

	m := &Model{
		param:   param.clone(),
		nrClass: nrClass,
		label:   append([]int(nil), groups.labels...),
		rho:     make([]float64, nPairs),
	}
	for i := 0; i < nPairs; i++ {
		m.rho[i] = results[i].rho
	}

	nnz := 0
	m.nSV = make([]int, nrClass)
	for i := 0; i < nrClass; i++ {
		for j := 0; j < groups.count[i]; j++ {
			if nonzero[groups.start[i]+j] {
				m.nSV[i]++
				nnz++
			}
		}
	}
	logger.Debug().Int("totalSV", nnz).Msg("model assembled")

	m.l = nnz
	m.sv = make([][]Node, nnz)
	m.svIndices = make([]int, nnz)
	q := 0
	for i := 0; i < l; i++ {
		if nonzero[i] {
			m.sv[q] = x[i]
			m.svIndices[q] = groups.perm[i]
			q++
		}
	}

	nzStart := make([]int, nrClass)
	for i := 1; i < nrClass; i++ {
		nzStart[i] = nzStart[i-1] + m.nSV[i-1]
	}

	m.svCoef = make([][]float64, nrClass-1)
	for i := range m.svCoef {
		m.svCoef[i] = make([]float64, nnz)
	}
	p = 0
	for i := 0; i < nrClass; i++ {
		for j := i + 1; j < nrClass; j++ {
			si, sj := groups.start[i], groups.start[j]
			ci, cj := groups.count[i], groups.count[j]
			f := results[p]

			q := nzStart[i]
			for k := 0; k < ci; k++ {
				if nonzero[si+k] {
					m.svCoef[j-1][q] = f.alpha[k]
					q++
				}
			}
			q = nzStart[j]
			for k := 0; k < cj; k++ {
				if nonzero[sj+k] {
					m.svCoef[i][q] = f.alpha[ci+k]
					q++
				}
			}
			p++
		}
	}
	m.kernel = newKernel(m.param)
	return m
}
