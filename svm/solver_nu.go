package svm

import "math"

// nuSelector adapts the working-set rules to the nu formulations, which
// carry the extra constraint e^T alpha = const. Pairs must share the
// same label, so violations are tracked separately per sign and rho and
// r come from the two class-wise averages.
type nuSelector struct{}

func (nuSelector) selectPair(s *solver) (int, int, bool) {
	gmaxp := math.Inf(-1)
	gmaxp2 := math.Inf(-1)
	gmaxpIdx := -1
	gmaxn := math.Inf(-1)
	gmaxn2 := math.Inf(-1)
	gmaxnIdx := -1
	gminIdx := -1
	objDiffMin := math.Inf(1)

	for t := 0; t < s.activeSize; t++ {
		if s.y[t] == +1 {
			if !s.isUpperBound(t) && -s.g[t] >= gmaxp {
				gmaxp = -s.g[t]
				gmaxpIdx = t
			}
		} else {
			if !s.isLowerBound(t) && s.g[t] >= gmaxn {
				gmaxn = s.g[t]
				gmaxnIdx = t
			}
		}
	}

	ip, in := gmaxpIdx, gmaxnIdx
	var qip, qin []float32
	if ip != -1 {
		qip = s.q.column(ip, s.activeSize)
	}
	if in != -1 {
		qin = s.q.column(in, s.activeSize)
	}

	for j := 0; j < s.activeSize; j++ {
		if s.y[j] == +1 {
			if !s.isLowerBound(j) {
				gradDiff := gmaxp + s.g[j]
				if s.g[j] >= gmaxp2 {
					gmaxp2 = s.g[j]
				}
				if gradDiff > 0 {
					quad := s.qd[ip] + s.qd[j] - 2*float64(qip[j])
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
				gradDiff := gmaxn - s.g[j]
				if -s.g[j] >= gmaxn2 {
					gmaxn2 = -s.g[j]
				}
				if gradDiff > 0 {
					quad := s.qd[in] + s.qd[j] - 2*float64(qin[j])
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

	s.violation = math.Max(gmaxp+gmaxp2, gmaxn+gmaxn2)
	if s.violation < s.tol {
		return -1, -1, false
	}
	if s.y[gminIdx] == +1 {
		return gmaxpIdx, gminIdx, true
	}
	return gmaxnIdx, gminIdx, true
}

func (nuSelector) beShrunk(s *solver, i int, gmax1, gmax2, gmax3, gmax4 float64) bool {
	if s.isUpperBound(i) {
		if s.y[i] == +1 {
			return -s.g[i] > gmax1
		}
		return -s.g[i] > gmax4
	}
	if s.isLowerBound(i) {
		if s.y[i] == +1 {
			return s.g[i] > gmax2
		}
		return s.g[i] > gmax3
	}
	return false
}

func (n nuSelector) doShrinking(s *solver) {
	gmax1 := math.Inf(-1) // max { -y_i grad_i | y_i = +1, i in I_up }
	gmax2 := math.Inf(-1) // max {  y_i grad_i | y_i = +1, i in I_low }
	gmax3 := math.Inf(-1) // max { -y_i grad_i | y_i = -1, i in I_up }
	gmax4 := math.Inf(-1) // max {  y_i grad_i | y_i = -1, i in I_low }

	for i := 0; i < s.activeSize; i++ {
		if !s.isUpperBound(i) {
			if s.y[i] == +1 {
				if -s.g[i] > gmax1 {
					gmax1 = -s.g[i]
				}
			} else if -s.g[i] > gmax4 {
				gmax4 = -s.g[i]
			}
		}
		if !s.isLowerBound(i) {
			if s.y[i] == +1 {
				if s.g[i] > gmax2 {
					gmax2 = s.g[i]
				}
			} else if s.g[i] > gmax3 {
				gmax3 = s.g[i]
			}
		}
	}

	if !s.unshrunk && math.Max(gmax1+gmax2, gmax3+gmax4) <= s.tol*10 {
		s.unshrunk = true
		s.reconstructGradient()
		s.activeSize = s.l
	}

	for i := 0; i < s.activeSize; i++ {
		if n.beShrunk(s, i, gmax1, gmax2, gmax3, gmax4) {
			s.activeSize--
			for s.activeSize > i {
				if !n.beShrunk(s, s.activeSize, gmax1, gmax2, gmax3, gmax4) {
					s.swapIndex(i, s.activeSize)
					break
				}
				s.activeSize--
			}
		}
	}
}

func (nuSelector) calculateRho(s *solver, si *solutionInfo) float64 {
	nFree1, nFree2 := 0, 0
	ub1, ub2 := math.Inf(1), math.Inf(1)
	lb1, lb2 := math.Inf(-1), math.Inf(-1)
	sumFree1, sumFree2 := 0.0, 0.0

	for i := 0; i < s.activeSize; i++ {
		if s.y[i] == +1 {
			switch {
			case s.isLowerBound(i):
				ub1 = math.Min(ub1, s.g[i])
			case s.isUpperBound(i):
				lb1 = math.Max(lb1, s.g[i])
			default:
				nFree1++
				sumFree1 += s.g[i]
			}
		} else {
			switch {
			case s.isLowerBound(i):
				ub2 = math.Min(ub2, s.g[i])
			case s.isUpperBound(i):
				lb2 = math.Max(lb2, s.g[i])
			default:
				nFree2++
				sumFree2 += s.g[i]
			}
		}
	}

	var r1, r2 float64
	if nFree1 > 0 {
		r1 = sumFree1 / float64(nFree1)
	} else {
		r1 = (ub1 + lb1) / 2
	}
	if nFree2 > 0 {
		r2 = sumFree2 / float64(nFree2)
	} else {
		r2 = (ub2 + lb2) / 2
	}

	si.r = (r1 + r2) / 2
	return (r1 - r2) / 2
}
