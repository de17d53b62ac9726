package svm

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// SVMType selects the dual formulation to solve.
type SVMType int

const (
	CSVC SVMType = iota
	NuSVC
	OneClass
	EpsilonSVR
	NuSVR
)

func (t SVMType) String() string {
	switch t {
	case CSVC:
		return "c_svc"
	case NuSVC:
		return "nu_svc"
	case OneClass:
		return "one_class"
	case EpsilonSVR:
		return "epsilon_svr"
	case NuSVR:
		return "nu_svr"
	}
	return "unknown"
}

// IsRegression reports whether the formulation trains on real-valued
// targets.
func (t SVMType) IsRegression() bool {
	return t == EpsilonSVR || t == NuSVR
}

// KernelType selects the kernel family.
type KernelType int

const (
	Linear KernelType = iota
	Polynomial
	RBF
	Sigmoid
	Precomputed
	// UserSupplied evaluates a caller-provided function. The function
	// must be pure and deterministic for a fixed pair of inputs.
	UserSupplied
)

func (k KernelType) String() string {
	switch k {
	case Linear:
		return "linear"
	case Polynomial:
		return "polynomial"
	case RBF:
		return "rbf"
	case Sigmoid:
		return "sigmoid"
	case Precomputed:
		return "precomputed"
	case UserSupplied:
		return "user_supplied"
	}
	return "unknown"
}

const (
	// DefaultTolerance is the stopping tolerance on the maximal KKT
	// violation.
	DefaultTolerance = 1e-3
	// DefaultCacheBytes bounds the kernel column cache per solver.
	DefaultCacheBytes = 200 << 20
)

// KernelFunc computes a kernel value between two sparse vectors.
type KernelFunc func(a, b []Node) float64

// Parameters configures a fit. The zero value is not usable; NewParameters
// fills in the conventional defaults.
type Parameters struct {
	SVMType    SVMType
	KernelType KernelType

	Degree int     // polynomial only, >= 1
	Gamma  float64 // polynomial/rbf/sigmoid, > 0
	Coef0  float64 // polynomial/sigmoid

	C       float64 // c_svc, epsilon_svr, nu_svr
	Nu      float64 // nu_svc, one_class, nu_svr; in (0, 1]
	Epsilon float64 // epsilon_svr tube width, >= 0

	// Tolerance is the convergence threshold on the KKT violation.
	Tolerance float64
	// CacheBytes bounds the per-solver kernel cache. It is the dominant
	// lever on wall-clock time for nonlinear kernels.
	CacheBytes int64
	// MaxIterations caps the decomposition loop per binary sub-problem.
	// Zero selects the original's default of max(10^7, 100*l).
	MaxIterations int
	Shrinking     bool

	// ClassWeights rescales C per class label (c_svc only).
	ClassWeights map[int]float64

	// SampleWeights rescales the box bound per training sample; entry i
	// multiplies the bound of sample i. Must be parallel to the problem
	// and strictly positive.
	SampleWeights []float64

	// Gram supplies the full training Gram matrix for the Precomputed
	// kernel. The engine keeps a reference, not a copy.
	Gram *mat.Dense
	// Kernel supplies the UserSupplied kernel function. Models built
	// with it retain references to the training vectors; the caller
	// must not mutate them while the model is in use.
	Kernel KernelFunc

	// KeepPartialModels retains a multi-class model in which individual
	// pairwise sub-problems failed to converge, with the failures
	// flagged on the model. The default aborts the whole fit instead,
	// so that voting never mixes converged and unconverged classifiers
	// silently.
	KeepPartialModels bool

	// Workers caps the worker pool that trains independent pairwise
	// sub-problems of a multi-class fit. Zero or negative selects
	// runtime.NumCPU(). Sub-problems share only read-only sample data;
	// each owns its solver and cache.
	Workers int

	// Seed fixes the shuffle order used by cross validation.
	Seed int64
}

// NewParameters returns parameters preloaded with the conventional
// defaults: C-SVC with an RBF kernel, C=1, nu=0.5.
func NewParameters() *Parameters {
	return &Parameters{
		SVMType:    CSVC,
		KernelType: RBF,
		Degree:     3,
		Gamma:      1,
		Coef0:      0,
		C:          1,
		Nu:         0.5,
		Epsilon:    0.1,
		Tolerance:  DefaultTolerance,
		CacheBytes: DefaultCacheBytes,
		Shrinking:  true,
	}
}

// clone copies the parameters for the model artifact. References to
// the Gram matrix and the user kernel are shared, per the documented
// aliasing contract.
func (p *Parameters) clone() *Parameters {
	c := *p
	if p.ClassWeights != nil {
		c.ClassWeights = make(map[int]float64, len(p.ClassWeights))
		for k, v := range p.ClassWeights {
			c.ClassWeights[k] = v
		}
	}
	c.SampleWeights = append([]float64(nil), p.SampleWeights...)
	return &c
}

// Check validates the configuration against a problem before any
// iteration runs. All violations are configuration errors; the solver
// never rejects parameters mid-solve.
func (p *Parameters) Check(prob *Problem) error {
	switch p.SVMType {
	case CSVC, NuSVC, OneClass, EpsilonSVR, NuSVR:
	default:
		return &ConfigError{Field: "SVMType", Reason: "unknown svm type"}
	}
	switch p.KernelType {
	case Linear, Sigmoid:
	case Polynomial:
		if p.Gamma <= 0 {
			return &ConfigError{Field: "Gamma", Reason: "must be > 0 for the polynomial kernel"}
		}
		if p.Degree < 1 {
			return &ConfigError{Field: "Degree", Reason: "must be >= 1"}
		}
	case RBF:
		if p.Gamma <= 0 {
			return &ConfigError{Field: "Gamma", Reason: "must be > 0 for the rbf kernel"}
		}
	case Precomputed:
		if p.Gram == nil {
			return &ConfigError{Field: "Gram", Reason: "precomputed kernel requires a Gram matrix"}
		}
		if r, _ := p.Gram.Dims(); prob != nil && r < prob.L {
			return &ConfigError{Field: "Gram", Reason: "Gram matrix smaller than the sample count"}
		}
	case UserSupplied:
		if p.Kernel == nil {
			return &ConfigError{Field: "Kernel", Reason: "user-supplied kernel requires a function"}
		}
	default:
		return &ConfigError{Field: "KernelType", Reason: "unknown kernel type"}
	}

	if p.Tolerance <= 0 {
		return &ConfigError{Field: "Tolerance", Reason: "must be > 0"}
	}
	if p.CacheBytes <= 0 {
		return &ConfigError{Field: "CacheBytes", Reason: "must be > 0"}
	}
	if p.MaxIterations < 0 {
		return &ConfigError{Field: "MaxIterations", Reason: "must be >= 0"}
	}
	switch p.SVMType {
	case CSVC, EpsilonSVR, NuSVR:
		if p.C <= 0 {
			return &ConfigError{Field: "C", Reason: "must be > 0"}
		}
	}
	switch p.SVMType {
	case NuSVC, OneClass, NuSVR:
		if p.Nu <= 0 || p.Nu > 1 {
			return &ConfigError{Field: "Nu", Reason: "must be in (0, 1]"}
		}
	}
	if p.SVMType == EpsilonSVR && p.Epsilon < 0 {
		return &ConfigError{Field: "Epsilon", Reason: "must be >= 0"}
	}
	if p.SampleWeights != nil {
		if prob != nil && len(p.SampleWeights) != prob.L {
			return &ConfigError{Field: "SampleWeights", Reason: "length must match the sample count"}
		}
		for _, w := range p.SampleWeights {
			if w <= 0 {
				return &ConfigError{Field: "SampleWeights", Reason: "weights must be > 0"}
			}
		}
	}

	if p.SVMType == NuSVC && prob != nil {
		if err := p.checkNuFeasibility(prob); err != nil {
			return err
		}
	}
	return nil
}

// checkNuFeasibility rejects nu values for which no feasible alpha
// exists: nu*(m1+m2)/2 must not exceed the mass of either class, where
// a class's mass is its size or, with sample weights, its weight sum.
func (p *Parameters) checkNuFeasibility(prob *Problem) error {
	mass := map[int]float64{}
	for i := 0; i < prob.L; i++ {
		w := 1.0
		if p.SampleWeights != nil {
			w = p.SampleWeights[i]
		}
		mass[int(prob.Y[i])] += w
	}
	labels := make([]int, 0, len(mass))
	for label := range mass {
		labels = append(labels, label)
	}
	for a := 0; a < len(labels); a++ {
		for b := a + 1; b < len(labels); b++ {
			m1 := mass[labels[a]]
			m2 := mass[labels[b]]
			if p.Nu*(m1+m2)/2 > math.Min(m1, m2) {
				return &ConfigError{Field: "Nu", Reason: "infeasible for the class distribution"}
			}
		}
	}
	return nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
