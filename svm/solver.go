package svm

import (
	"context"
	"math"
)

// An SMO-type decomposition method (Fan et al., JMLR 6(2005)) solving
//
//	min 0.5 a^T Q a + p^T a
//	s.t. y^T a = delta, y_i in {+1,-1}, 0 <= a_i <= C_i
//
// The solver owns alpha and the gradient for the duration of a solve;
// the caller sees alpha only after the loop stops. Gradients are
// maintained incrementally from the two working-set columns; gBar keeps
// the contribution of upper-bounded variables so the full gradient can
// be reconstructed when shrunk indices re-enter.

const (
	lowerBound = int8(iota)
	upperBound
	free
)

// tau is the floor for the second-order step denominator; degenerate or
// duplicate samples can drive it to zero.
const tau = 1e-12

type solutionInfo struct {
	obj          float64
	rho          float64
	upperBoundP  float64
	upperBoundN  float64
	r            float64 // nu formulations only
	iterations   int
	violation    float64
	notConverged bool
}

// workingSetSelector picks the pair of dual variables to update, drives
// the shrinking heuristic, and derives the intercept once the loop
// stops. The C and nu formulations differ in all three.
type workingSetSelector interface {
	// selectPair returns the maximal violating pair, or ok=false when
	// the KKT violation over the active set is below tolerance.
	selectPair(s *solver) (i, j int, ok bool)
	doShrinking(s *solver)
	calculateRho(s *solver, si *solutionInfo) float64
}

type solver struct {
	l           int
	activeSize  int
	y           []int8
	g           []float64 // gradient of the objective
	alphaStatus []int8
	alpha       []float64
	q           qMatrix
	qd          []float64
	p           []float64
	activeSet   []int
	gBar        []float64 // gradient if free variables were zero
	tol         float64
	cp, cn      float64
	cVec        []float64 // per-index box bounds; nil means cp/cn by sign
	unshrunk    bool
	// largest KKT violation seen by the last pair selection, kept for
	// convergence diagnostics
	violation float64
}

func (s *solver) c(i int) float64 {
	if s.cVec != nil {
		return s.cVec[i]
	}
	if s.y[i] > 0 {
		return s.cp
	}
	return s.cn
}

func (s *solver) updateAlphaStatus(i int) {
	switch {
	case s.alpha[i] >= s.c(i):
		s.alphaStatus[i] = upperBound
	case s.alpha[i] <= 0:
		s.alphaStatus[i] = lowerBound
	default:
		s.alphaStatus[i] = free
	}
}

func (s *solver) isUpperBound(i int) bool { return s.alphaStatus[i] == upperBound }
func (s *solver) isLowerBound(i int) bool { return s.alphaStatus[i] == lowerBound }
func (s *solver) isFree(i int) bool       { return s.alphaStatus[i] == free }

func (s *solver) swapIndex(i, j int) {
	s.q.swap(i, j)
	s.y[i], s.y[j] = s.y[j], s.y[i]
	s.g[i], s.g[j] = s.g[j], s.g[i]
	s.alphaStatus[i], s.alphaStatus[j] = s.alphaStatus[j], s.alphaStatus[i]
	s.alpha[i], s.alpha[j] = s.alpha[j], s.alpha[i]
	s.p[i], s.p[j] = s.p[j], s.p[i]
	s.activeSet[i], s.activeSet[j] = s.activeSet[j], s.activeSet[i]
	s.gBar[i], s.gBar[j] = s.gBar[j], s.gBar[i]
	if s.cVec != nil {
		s.cVec[i], s.cVec[j] = s.cVec[j], s.cVec[i]
	}
}

// reconstructGradient restores G over the shrunk indices from gBar and
// the free variables. Whichever direction touches fewer kernel entries
// wins.
func (s *solver) reconstructGradient() {
	if s.activeSize == s.l {
		return
	}

	nFree := 0
	for j := s.activeSize; j < s.l; j++ {
		s.g[j] = s.gBar[j] + s.p[j]
	}
	for j := 0; j < s.activeSize; j++ {
		if s.isFree(j) {
			nFree++
		}
	}
	if 2*nFree < s.activeSize {
		logger.Debug().Msg("many bounded variables; disabling shrinking may be faster")
	}

	if nFree*s.l > 2*s.activeSize*(s.l-s.activeSize) {
		for i := s.activeSize; i < s.l; i++ {
			col := s.q.column(i, s.activeSize)
			for j := 0; j < s.activeSize; j++ {
				if s.isFree(j) {
					s.g[i] += s.alpha[j] * float64(col[j])
				}
			}
		}
	} else {
		for i := 0; i < s.activeSize; i++ {
			if s.isFree(i) {
				col := s.q.column(i, s.l)
				ai := s.alpha[i]
				for j := s.activeSize; j < s.l; j++ {
					s.g[j] += ai * float64(col[j])
				}
			}
		}
	}
}

// solve runs the decomposition loop. alpha holds the initial feasible
// point on entry and the solution on return. A context cancellation is
// observed at iteration boundaries only; in that case alpha is left
// untouched and no solution info is produced.
func (s *solver) solve(ctx context.Context, l int, q qMatrix, p []float64, y []int8,
	alpha []float64, cp, cn float64, cVec []float64, param *Parameters, sel workingSetSelector) (*solutionInfo, error) {

	s.l = l
	s.q = q
	s.qd = q.diagonal()
	s.p = append([]float64(nil), p...)
	s.y = append([]int8(nil), y...)
	s.alpha = append([]float64(nil), alpha...)
	s.cp, s.cn = cp, cn
	if cVec != nil {
		s.cVec = append([]float64(nil), cVec...)
	}
	s.tol = param.Tolerance
	s.unshrunk = false

	s.alphaStatus = make([]int8, l)
	for i := 0; i < l; i++ {
		s.updateAlphaStatus(i)
	}

	s.activeSet = make([]int, l)
	for i := 0; i < l; i++ {
		s.activeSet[i] = i
	}
	s.activeSize = l

	s.g = make([]float64, l)
	s.gBar = make([]float64, l)
	copy(s.g, s.p)
	for i := 0; i < l; i++ {
		if !s.isLowerBound(i) {
			col := s.q.column(i, l)
			ai := s.alpha[i]
			for j := 0; j < l; j++ {
				s.g[j] += ai * float64(col[j])
			}
			if s.isUpperBound(i) {
				ci := s.c(i)
				for j := 0; j < l; j++ {
					s.gBar[j] += ci * float64(col[j])
				}
			}
		}
	}

	maxIter := param.MaxIterations
	if maxIter <= 0 {
		maxIter = 10000000
		if l < math.MaxInt32/100 && 100*l > maxIter {
			maxIter = 100 * l
		}
	}
	counter := min(l, 1000) + 1

	iter := 0
	for iter < maxIter {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if counter--; counter == 0 {
			counter = min(l, 1000)
			if param.Shrinking {
				sel.doShrinking(s)
			}
		}

		i, j, ok := sel.selectPair(s)
		if !ok {
			// optimal on the shrunk problem; reconstruct and retry on
			// the full set
			s.reconstructGradient()
			s.activeSize = l
			if i, j, ok = sel.selectPair(s); !ok {
				break
			}
			counter = 1 // shrink again next iteration
		}
		iter++

		// analytic two-variable update, clipped to the feasible box

		qi := s.q.column(i, s.activeSize)
		qj := s.q.column(j, s.activeSize)
		ci := s.c(i)
		cj := s.c(j)
		oldAi := s.alpha[i]
		oldAj := s.alpha[j]

		if s.y[i] != s.y[j] {
			quad := s.qd[i] + s.qd[j] + 2*float64(qi[j])
			if quad <= 0 {
				quad = tau
			}
			delta := (-s.g[i] - s.g[j]) / quad
			diff := s.alpha[i] - s.alpha[j]
			s.alpha[i] += delta
			s.alpha[j] += delta

			if diff > 0 {
				if s.alpha[j] < 0 {
					s.alpha[j] = 0
					s.alpha[i] = diff
				}
			} else {
				if s.alpha[i] < 0 {
					s.alpha[i] = 0
					s.alpha[j] = -diff
				}
			}
			if diff > ci-cj {
				if s.alpha[i] > ci {
					s.alpha[i] = ci
					s.alpha[j] = ci - diff
				}
			} else {
				if s.alpha[j] > cj {
					s.alpha[j] = cj
					s.alpha[i] = cj + diff
				}
			}
		} else {
			quad := s.qd[i] + s.qd[j] - 2*float64(qi[j])
			if quad <= 0 {
				quad = tau
			}
			delta := (s.g[i] - s.g[j]) / quad
			sum := s.alpha[i] + s.alpha[j]
			s.alpha[i] -= delta
			s.alpha[j] += delta

			if sum > ci {
				if s.alpha[i] > ci {
					s.alpha[i] = ci
					s.alpha[j] = sum - ci
				}
			} else {
				if s.alpha[j] < 0 {
					s.alpha[j] = 0
					s.alpha[i] = sum
				}
			}
			if sum > cj {
				if s.alpha[j] > cj {
					s.alpha[j] = cj
					s.alpha[i] = sum - cj
				}
			} else {
				if s.alpha[i] < 0 {
					s.alpha[i] = 0
					s.alpha[j] = sum
				}
			}
		}

		// propagate the step into the active gradient

		dAi := s.alpha[i] - oldAi
		dAj := s.alpha[j] - oldAj
		for k := 0; k < s.activeSize; k++ {
			s.g[k] += float64(qi[k])*dAi + float64(qj[k])*dAj
		}

		// track bound transitions in gBar over the full index range

		ui := s.isUpperBound(i)
		uj := s.isUpperBound(j)
		s.updateAlphaStatus(i)
		s.updateAlphaStatus(j)
		if ui != s.isUpperBound(i) {
			qi = s.q.column(i, l)
			if ui {
				for k := 0; k < l; k++ {
					s.gBar[k] -= ci * float64(qi[k])
				}
			} else {
				for k := 0; k < l; k++ {
					s.gBar[k] += ci * float64(qi[k])
				}
			}
		}
		if uj != s.isUpperBound(j) {
			qj = s.q.column(j, l)
			if uj {
				for k := 0; k < l; k++ {
					s.gBar[k] -= cj * float64(qj[k])
				}
			} else {
				for k := 0; k < l; k++ {
					s.gBar[k] += cj * float64(qj[k])
				}
			}
		}
	}

	si := &solutionInfo{iterations: iter, violation: s.violation}
	if iter >= maxIter {
		if s.activeSize < l {
			s.reconstructGradient()
			s.activeSize = l
		}
		si.notConverged = true
		logger.Warn().Int("iterations", iter).Float64("violation", s.violation).
			Msg("reached iteration cap before convergence")
	}

	si.rho = sel.calculateRho(s, si)

	var obj float64
	for i := 0; i < l; i++ {
		obj += s.alpha[i] * (s.g[i] + s.p[i])
	}
	si.obj = obj / 2

	for i := 0; i < l; i++ {
		alpha[s.activeSet[i]] = s.alpha[i]
	}
	si.upperBoundP = cp
	si.upperBoundN = cn

	logger.Debug().Int("iterations", iter).Float64("obj", si.obj).
		Float64("rho", si.rho).Msg("optimization finished")
	return si, nil
}

// cSelector implements the selection, shrinking and intercept rules of
// the single-constraint formulations (C-SVC, epsilon-SVR, one-class).
type cSelector struct{}

// selectPair returns i maximizing -y_i grad_i over I_up and j in I_low
// minimizing the second-order decrease bound against i. Ties keep the
// lowest index because the scan runs in index order with >= updates on
// i and <= on the objective bound for j.
func (cSelector) selectPair(s *solver) (int, int, bool) {
	gmax := math.Inf(-1)
	gmax2 := math.Inf(-1)
	gmaxIdx := -1
	gminIdx := -1
	objDiffMin := math.Inf(1)

	for t := 0; t < s.activeSize; t++ {
		if s.y[t] == +1 {
			if !s.isUpperBound(t) && -s.g[t] >= gmax {
				gmax = -s.g[t]
				gmaxIdx = t
			}
		} else {
			if !s.isLowerBound(t) && s.g[t] >= gmax {
				gmax = s.g[t]
				gmaxIdx = t
			}
		}
	}

	i := gmaxIdx
	var qi []float32
	if i != -1 {
		qi = s.q.column(i, s.activeSize)
	}

	for j := 0; j < s.activeSize; j++ {
		if s.y[j] == +1 {
			if !s.isLowerBound(j) {
				gradDiff := gmax + s.g[j]
				if s.g[j] >= gmax2 {
					gmax2 = s.g[j]
				}
				if gradDiff > 0 {
					quad := s.qd[i] + s.qd[j] - 2*float64(s.y[i])*float64(qi[j])
					objDiff := -(gradDiff * gradDiff) / tau
					if quad > 0 {
						objDiff = -(gradDiff * gradDiff) / quad
					}
					if objDiff <= objDiffMin {
						gminIdx = j
						objDiffMin = objDiff
					}
				}
			}
		} else {
			if !s.isUpperBound(j) {
				gradDiff := gmax - s.g[j]
				if -s.g[j] >= gmax2 {
					gmax2 = -s.g[j]
				}
				if gradDiff > 0 {
					quad := s.qd[i] + s.qd[j] + 2*float64(s.y[i])*float64(qi[j])
					objDiff := -(gradDiff * gradDiff) / tau
					if quad > 0 {
						objDiff = -(gradDiff * gradDiff) / quad
					}
					if objDiff <= objDiffMin {
						gminIdx = j
						objDiffMin = objDiff
					}
				}
			}
		}
	}

	s.violation = gmax + gmax2
	if s.violation < s.tol {
		return -1, -1, false
	}
	return gmaxIdx, gminIdx, true
}

func (cSelector) beShrunk(s *solver, i int, gmax1, gmax2 float64) bool {
	if s.isUpperBound(i) {
		if s.y[i] == +1 {
			return -s.g[i] > gmax1
		}
		return -s.g[i] > gmax2
	}
	if s.isLowerBound(i) {
		if s.y[i] == +1 {
			return s.g[i] > gmax2
		}
		return s.g[i] > gmax1
	}
	return false
}

func (c cSelector) doShrinking(s *solver) {
	gmax1 := math.Inf(-1) // max { -y_i grad_i | i in I_up }
	gmax2 := math.Inf(-1) // max {  y_i grad_i | i in I_low }

	for i := 0; i < s.activeSize; i++ {
		if s.y[i] == +1 {
			if !s.isUpperBound(i) && -s.g[i] >= gmax1 {
				gmax1 = -s.g[i]
			}
			if !s.isLowerBound(i) && s.g[i] >= gmax2 {
				gmax2 = s.g[i]
			}
		} else {
			if !s.isUpperBound(i) && -s.g[i] >= gmax2 {
				gmax2 = -s.g[i]
			}
			if !s.isLowerBound(i) && s.g[i] >= gmax1 {
				gmax1 = s.g[i]
			}
		}
	}

	if !s.unshrunk && gmax1+gmax2 <= s.tol*10 {
		s.unshrunk = true
		s.reconstructGradient()
		s.activeSize = s.l
	}

	for i := 0; i < s.activeSize; i++ {
		if c.beShrunk(s, i, gmax1, gmax2) {
			s.activeSize--
			for s.activeSize > i {
				if !c.beShrunk(s, s.activeSize, gmax1, gmax2) {
					s.swapIndex(i, s.activeSize)
					break
				}
				s.activeSize--
			}
		}
	}
}

// calculateRho averages y_i grad_i over the free support vectors; with
// none free it falls back to the midpoint of the feasible interval.
func (cSelector) calculateRho(s *solver, _ *solutionInfo) float64 {
	nFree := 0
	ub, lb := math.Inf(1), math.Inf(-1)
	sumFree := 0.0
	for i := 0; i < s.activeSize; i++ {
		yg := float64(s.y[i]) * s.g[i]
		switch {
		case s.isLowerBound(i):
			if s.y[i] > 0 {
				ub = math.Min(ub, yg)
			} else {
				lb = math.Max(lb, yg)
			}
		case s.isUpperBound(i):
			if s.y[i] < 0 {
				ub = math.Min(ub, yg)
			} else {
				lb = math.Max(lb, yg)
			}
		default:
			nFree++
			sumFree += yg
		}
	}
	if nFree > 0 {
		return sumFree / float64(nFree)
	}
	return (ub + lb) / 2
}
