package linear

import (
	"context"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// Dual coordinate descent (Hsieh et al., ICML 2008). One coordinate is
// updated at a time in a randomly permuted order; variables whose
// projected gradient stayed outside the previous pass's violation
// window are shrunk from the active set, and a pass that converges on
// the shrunk set triggers one full pass before stopping.

// getI maps a label to the per-sign parameter row: diag/upper bounds
// are indexed -1 -> 0, +1 -> 2.
func getI(y []int8, i int) int { return int(y[i] + 1) }

// solveSVC runs the classification dual. w is overwritten with the
// primal solution; the return is the number of iterations used, the
// final dual variables, and whether the tolerance was met.
func solveSVC(ctx context.Context, prob *Problem, param *Parameters, w []float64, cp, cn float64, rng *rand.Rand) (int, []float64, bool, error) {
	l := prob.L
	wSize := prob.N
	eps := param.Tolerance
	maxIter := param.MaxIterations

	qd := make([]float64, l)
	index := make([]int, l)
	alpha := make([]float64, l)
	y := make([]int8, l)
	activeSize := l

	pgMaxOld := math.Inf(1)
	pgMinOld := math.Inf(-1)

	diag := [3]float64{0.5 / cn, 0, 0.5 / cp}
	upperBound := [3]float64{math.Inf(1), 0, math.Inf(1)}
	if param.SolverType == L1LossSVCDual {
		diag[0], diag[2] = 0, 0
		upperBound[0], upperBound[2] = cn, cp
	}

	for i := 0; i < l; i++ {
		if prob.Y[i] > 0 {
			y[i] = 1
		} else {
			y[i] = -1
		}
	}
	for i := 0; i < wSize; i++ {
		w[i] = 0
	}
	for i := 0; i < l; i++ {
		qd[i] = diag[getI(y, i)] + nrm2Sq(prob.X[i])
		index[i] = i
	}

	iter := 0
	converged := false
	for iter < maxIter {
		if err := ctx.Err(); err != nil {
			return iter, nil, false, err
		}
		pgMaxNew := math.Inf(-1)
		pgMinNew := math.Inf(1)

		for i := 0; i < activeSize; i++ {
			j := i + rng.Intn(activeSize-i)
			index[i], index[j] = index[j], index[i]
		}

		for s := 0; s < activeSize; s++ {
			i := index[s]
			yi := y[i]
			xi := prob.X[i]

			g := float64(yi)*dotW(w, xi) - 1
			c := upperBound[getI(y, i)]
			g += alpha[i] * diag[getI(y, i)]

			pg := 0.0
			if alpha[i] == 0 {
				if g > pgMaxOld {
					activeSize--
					index[s], index[activeSize] = index[activeSize], index[s]
					s--
					continue
				} else if g < 0 {
					pg = g
				}
			} else if alpha[i] == c {
				if g < pgMinOld {
					activeSize--
					index[s], index[activeSize] = index[activeSize], index[s]
					s--
					continue
				} else if g > 0 {
					pg = g
				}
			} else {
				pg = g
			}

			pgMaxNew = math.Max(pgMaxNew, pg)
			pgMinNew = math.Min(pgMinNew, pg)

			if math.Abs(pg) > 1e-12 {
				alphaOld := alpha[i]
				alpha[i] = math.Min(math.Max(alpha[i]-g/qd[i], 0.0), c)
				axpy((alpha[i]-alphaOld)*float64(yi), xi, w)
			}
		}
		iter++

		if pgMaxNew-pgMinNew <= eps {
			if activeSize == l {
				converged = true
				break
			}
			// optimal on the shrunk set; re-check everything
			activeSize = l
			pgMaxOld = math.Inf(1)
			pgMinOld = math.Inf(-1)
			continue
		}
		pgMaxOld = pgMaxNew
		pgMinOld = pgMinNew
		if pgMaxOld <= 0 {
			pgMaxOld = math.Inf(1)
		}
		if pgMinOld >= 0 {
			pgMinOld = math.Inf(-1)
		}
	}

	v := floats.Dot(w, w)
	nSV := 0
	for i := 0; i < l; i++ {
		v += alpha[i] * (alpha[i]*diag[getI(y, i)] - 2)
		if alpha[i] > 0 {
			nSV++
		}
	}
	logger.Debug().Int("iterations", iter).Float64("obj", v/2).
		Int("nSV", nSV).Msg("svc coordinate descent finished")
	if !converged {
		logger.Warn().Int("iterations", iter).Msg("reached iteration cap before convergence")
	}
	return iter, alpha, converged, nil
}

// solveSVR runs the epsilon-insensitive regression dual over the
// unconstrained beta in [-U, U].
func solveSVR(ctx context.Context, prob *Problem, param *Parameters, w []float64, rng *rand.Rand) (int, bool, error) {
	l := prob.L
	wSize := prob.N
	eps := param.Tolerance
	p := param.Epsilon
	maxIter := param.MaxIterations
	c := param.C

	lambda := 0.5 / c
	upperBound := math.Inf(1)
	if param.SolverType == L1LossSVRDual {
		lambda = 0
		upperBound = c
	}

	beta := make([]float64, l)
	qd := make([]float64, l)
	index := make([]int, l)
	y := prob.Y
	activeSize := l

	gMaxOld := math.Inf(1)
	gNorm1Init := -1.0

	for i := 0; i < wSize; i++ {
		w[i] = 0
	}
	for i := 0; i < l; i++ {
		qd[i] = nrm2Sq(prob.X[i])
		index[i] = i
	}

	iter := 0
	converged := false
	for iter < maxIter {
		if err := ctx.Err(); err != nil {
			return iter, false, err
		}
		gMaxNew := 0.0
		gNorm1New := 0.0

		for i := 0; i < activeSize; i++ {
			j := i + rng.Intn(activeSize-i)
			index[i], index[j] = index[j], index[i]
		}

		for s := 0; s < activeSize; s++ {
			i := index[s]
			xi := prob.X[i]
			g := -y[i] + lambda*beta[i] + dotW(w, xi)
			h := qd[i] + lambda

			gp := g + p
			gn := g - p
			var violation float64
			if beta[i] == 0 {
				if gp < 0 {
					violation = -gp
				} else if gn > 0 {
					violation = gn
				} else if gp > gMaxOld && gn < -gMaxOld {
					activeSize--
					index[s], index[activeSize] = index[activeSize], index[s]
					s--
					continue
				}
			} else if beta[i] >= upperBound {
				if gp > 0 {
					violation = gp
				} else if gp < -gMaxOld {
					activeSize--
					index[s], index[activeSize] = index[activeSize], index[s]
					s--
					continue
				}
			} else if beta[i] <= -upperBound {
				if gn < 0 {
					violation = -gn
				} else if gn > gMaxOld {
					activeSize--
					index[s], index[activeSize] = index[activeSize], index[s]
					s--
					continue
				}
			} else if beta[i] > 0 {
				violation = math.Abs(gp)
			} else {
				violation = math.Abs(gn)
			}

			gMaxNew = math.Max(gMaxNew, violation)
			gNorm1New += violation

			// Newton direction over the three-piece gradient
			var d float64
			if gp < h*beta[i] {
				d = -gp / h
			} else if gn > h*beta[i] {
				d = -gn / h
			} else {
				d = -beta[i]
			}
			if math.Abs(d) < 1e-12 {
				continue
			}

			betaOld := beta[i]
			beta[i] = math.Min(math.Max(beta[i]+d, -upperBound), upperBound)
			if d = beta[i] - betaOld; d != 0 {
				axpy(d, xi, w)
			}
		}

		if iter == 0 {
			gNorm1Init = gNorm1New
		}
		iter++

		if gNorm1New <= eps*gNorm1Init {
			if activeSize == l {
				converged = true
				break
			}
			activeSize = l
			gMaxOld = math.Inf(1)
			continue
		}
		gMaxOld = gMaxNew
	}

	obj := 0.5 * floats.Dot(w, w)
	nSV := 0
	for i := 0; i < l; i++ {
		obj += p*math.Abs(beta[i]) - y[i]*beta[i] + 0.5*lambda*beta[i]*beta[i]
		if beta[i] != 0 {
			nSV++
		}
	}
	logger.Debug().Int("iterations", iter).Float64("obj", obj).Int("nSV", nSV).
		Msg("svr coordinate descent finished")
	if !converged {
		logger.Warn().Int("iterations", iter).Msg("reached iteration cap before convergence")
	}
	return iter, converged, nil
}
