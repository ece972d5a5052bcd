// Package svm provides a kernel support vector classifier trained with SMO.
package svm

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/nidsbench/core/model"
	"github.com/YuminosukeSato/nidsbench/core/parallel"
	"github.com/YuminosukeSato/nidsbench/pkg/errors"
	"github.com/YuminosukeSato/nidsbench/pkg/log"
)

// Kernel names accepted by WithKernel.
const (
	KernelRBF    = "rbf"
	KernelLinear = "linear"
)

// Gamma modes accepted by WithGamma.
const (
	GammaScale = "scale"
	GammaAuto  = "auto"
)

// SVC is a C-support vector classifier. Multiclass problems are reduced to
// one binary machine per class (one-vs-rest); two classes use one machine.
type SVC struct {
	state  *model.StateManager // State management (composition)
	logger log.Logger

	// Hyperparameters
	c           float64
	kernel      string
	gamma       string
	gammaValue  float64 // used when gamma == ""
	tol         float64
	maxIter     int // <= 0 means max(1e7, 100*n_samples)
	cacheSize   float64 // kernel row cache in MB
	probability bool

	// Model parameters
	classes_        []int
	gamma_          float64
	supportVectors_ *mat.Dense
	support_        []int       // training row of every support vector
	dualCoef_       [][]float64 // per machine, alpha_i*y_i for every support vector
	intercept_      []float64   // per machine, -rho
	probA_          []float64
	probB_          []float64
	nIter_          []int
}

// SVCOption is a functional option for SVC
type SVCOption func(*SVC)

// NewSVC creates an RBF SVC with C=1 and gamma="scale"
func NewSVC(opts ...SVCOption) *SVC {
	s := &SVC{
		state:     model.NewStateManager(),
		logger:    log.Nop(),
		c:         1.0,
		kernel:    KernelRBF,
		gamma:     GammaScale,
		tol:       1e-3,
		cacheSize: 200,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithC sets the regularization parameter
func WithC(c float64) SVCOption {
	return func(s *SVC) {
		s.c = c
	}
}

// WithKernel selects "rbf" or "linear"
func WithKernel(kernel string) SVCOption {
	return func(s *SVC) {
		s.kernel = kernel
	}
}

// WithGamma selects the RBF width mode ("scale" or "auto")
func WithGamma(mode string) SVCOption {
	return func(s *SVC) {
		s.gamma = mode
	}
}

// WithGammaValue fixes the RBF width
func WithGammaValue(gamma float64) SVCOption {
	return func(s *SVC) {
		s.gamma = ""
		s.gammaValue = gamma
	}
}

// WithTol sets the KKT violation tolerance
func WithTol(tol float64) SVCOption {
	return func(s *SVC) {
		s.tol = tol
	}
}

// WithMaxIter caps the SMO iterations of every binary machine
func WithMaxIter(n int) SVCOption {
	return func(s *SVC) {
		s.maxIter = n
	}
}

// WithCacheSize sets the kernel row cache size in MB
func WithCacheSize(mb float64) SVCOption {
	return func(s *SVC) {
		s.cacheSize = mb
	}
}

// WithProbability enables Platt-scaled probability estimates
func WithProbability(enabled bool) SVCOption {
	return func(s *SVC) {
		s.probability = enabled
	}
}

// WithSVCLogger sets the logger used for per-machine training summaries
func WithSVCLogger(logger log.Logger) SVCOption {
	return func(s *SVC) {
		s.logger = logger
	}
}

func (s *SVC) validate() error {
	if s.c <= 0 {
		return errors.NewValidationError("C", "must be positive", s.c)
	}
	if s.tol <= 0 {
		return errors.NewValidationError("tol", "must be positive", s.tol)
	}
	if s.kernel != KernelRBF && s.kernel != KernelLinear {
		return errors.NewValidationError("kernel", "must be rbf or linear", s.kernel)
	}
	switch s.gamma {
	case GammaScale, GammaAuto:
	case "":
		if s.gammaValue <= 0 {
			return errors.NewValidationError("gamma", "must be positive", s.gammaValue)
		}
	default:
		return errors.NewValidationError("gamma", "must be scale or auto", s.gamma)
	}
	return nil
}

// resolveGamma returns 1/(n_features*X.var()) for "scale", 1/n_features
// for "auto", or the fixed value.
func (s *SVC) resolveGamma(X *mat.Dense) float64 {
	r, c := X.Dims()
	switch s.gamma {
	case GammaAuto:
		return 1 / float64(c)
	case GammaScale:
		n := float64(r * c)
		mean, sq := 0.0, 0.0
		for i := 0; i < r; i++ {
			row := X.RawRowView(i)
			mean += floats.Sum(row)
			sq += floats.Dot(row, row)
		}
		mean /= n
		variance := sq/n - mean*mean
		if variance <= 0 {
			return 1
		}
		return 1 / (float64(c) * variance)
	default:
		return s.gammaValue
	}
}

// Fit trains one SMO machine per class (a single machine for two classes)
func (s *SVC) Fit(X, y mat.Matrix) error {
	if err := s.validate(); err != nil {
		return err
	}
	labels, classes, err := model.ClassLabels("SVC.Fit", X, y)
	if err != nil {
		return err
	}
	if len(classes) < 2 {
		return errors.NewValueError("SVC.Fit", "the number of classes has to be greater than one")
	}

	s.state.Reset()
	Xd := mat.DenseCopyOf(X)
	nSamples, nFeatures := Xd.Dims()
	s.gamma_ = s.resolveGamma(Xd)
	k := newKernel(Xd, s.kernel, s.gamma_, s.cacheSize)

	nMachines := len(classes)
	if nMachines == 2 {
		nMachines = 1
	}
	maxIter := s.maxIter
	if maxIter <= 0 {
		maxIter = 100 * nSamples
		if maxIter < 10000000 {
			maxIter = 10000000
		}
	}

	alphas := make([][]float64, nMachines)
	rhos := make([]float64, nMachines)
	targets := make([][]float64, nMachines)
	s.nIter_ = make([]int, nMachines)
	for m := 0; m < nMachines; m++ {
		positive := classes[m]
		if len(classes) == 2 {
			positive = classes[1]
		}
		yb := make([]float64, nSamples)
		for i, l := range labels {
			if l == positive {
				yb[i] = 1
			} else {
				yb[i] = -1
			}
		}
		res := solveSMO(k, yb, s.c, s.tol, maxIter)
		if !res.converged {
			errors.Warn(errors.NewConvergenceWarning("SVC", res.iterations, "Maximum number of iterations reached"))
		}
		alphas[m], rhos[m], targets[m] = res.alpha, res.rho, yb
		s.nIter_[m] = res.iterations
		s.logger.Debug("SMO machine trained",
			log.ModelNameKey, "SVC",
			log.IterationKey, res.iterations,
			"positive_class", positive,
			"converged", res.converged,
		)
	}

	// support vectors are shared across machines
	var support []int
	for i := 0; i < nSamples; i++ {
		for m := 0; m < nMachines; m++ {
			if alphas[m][i] > 0 {
				support = append(support, i)
				break
			}
		}
	}
	s.support_ = support
	s.supportVectors_ = mat.NewDense(max(len(support), 1), nFeatures, nil)
	for row, i := range support {
		s.supportVectors_.SetRow(row, Xd.RawRowView(i))
	}
	s.dualCoef_ = make([][]float64, nMachines)
	s.intercept_ = make([]float64, nMachines)
	for m := 0; m < nMachines; m++ {
		coef := make([]float64, len(support))
		for row, i := range support {
			coef[row] = alphas[m][i] * targets[m][i]
		}
		s.dualCoef_[m] = coef
		s.intercept_[m] = -rhos[m]
	}
	s.classes_ = classes

	s.probA_, s.probB_ = nil, nil
	if s.probability {
		dec := s.machineDecisions(Xd)
		s.probA_ = make([]float64, nMachines)
		s.probB_ = make([]float64, nMachines)
		f := make([]float64, nSamples)
		for m := 0; m < nMachines; m++ {
			mat.Col(f, m, dec)
			s.probA_[m], s.probB_[m] = plattScaling(f, targets[m])
		}
	}

	s.state.MarkFitted(nFeatures, nSamples)
	return nil
}

// machineDecisions returns the raw decision value of every machine
func (s *SVC) machineDecisions(X *mat.Dense) *mat.Dense {
	r, _ := X.Dims()
	nMachines := len(s.dualCoef_)
	out := mat.NewDense(r, nMachines, nil)
	nSV := len(s.support_)

	parallel.ParallelizeWithThreshold(r, 256, func(start, end int) {
		kv := make([]float64, nSV)
		for i := start; i < end; i++ {
			x := X.RawRowView(i)
			for j := 0; j < nSV; j++ {
				kv[j] = kernelValue(s.kernel, s.gamma_, x, s.supportVectors_.RawRowView(j))
			}
			for m := 0; m < nMachines; m++ {
				out.Set(i, m, floats.Dot(kv, s.dualCoef_[m])+s.intercept_[m])
			}
		}
	})
	return out
}

// DecisionFunction returns one column per class. For two classes the
// columns are (-f, f) of the single machine.
func (s *SVC) DecisionFunction(X mat.Matrix) (mat.Matrix, error) {
	if err := s.state.RequireFitted("SVC", "DecisionFunction"); err != nil {
		return nil, err
	}
	return s.decisions(X)
}

func (s *SVC) decisions(X mat.Matrix) (*mat.Dense, error) {
	r, c := X.Dims()
	if err := s.state.CheckFeatures("SVC.Predict", c); err != nil {
		return nil, err
	}
	dec := s.machineDecisions(mat.DenseCopyOf(X))
	if len(s.classes_) != 2 {
		return dec, nil
	}
	out := mat.NewDense(r, 2, nil)
	for i := 0; i < r; i++ {
		f := dec.At(i, 0)
		out.Set(i, 0, -f)
		out.Set(i, 1, f)
	}
	return out, nil
}

// Predict returns the class with the largest decision value
func (s *SVC) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := s.state.RequireFitted("SVC", "Predict"); err != nil {
		return nil, err
	}
	dec, err := s.decisions(X)
	if err != nil {
		return nil, err
	}
	return model.ColumnVector(model.ArgmaxRows(dec, s.classes_)), nil
}

// PredictProba returns Platt-scaled probabilities normalised across classes.
// It fails with ErrProbabilityUnavailable unless WithProbability(true) was set.
func (s *SVC) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := s.state.RequireFitted("SVC", "PredictProba"); err != nil {
		return nil, err
	}
	if !s.probability {
		return nil, errors.NewModelError("SVC.PredictProba", "probability=false", errors.ErrProbabilityUnavailable)
	}
	r, c := X.Dims()
	if err := s.state.CheckFeatures("SVC.PredictProba", c); err != nil {
		return nil, err
	}
	dec := s.machineDecisions(mat.DenseCopyOf(X))
	k := len(s.classes_)
	proba := mat.NewDense(r, k, nil)
	for i := 0; i < r; i++ {
		row := proba.RawRowView(i)
		if k == 2 {
			p := sigmoidProbability(dec.At(i, 0), s.probA_[0], s.probB_[0])
			row[0], row[1] = 1-p, p
			continue
		}
		for m := 0; m < k; m++ {
			row[m] = sigmoidProbability(dec.At(i, m), s.probA_[m], s.probB_[m])
		}
		sum := floats.Sum(row)
		if sum <= 0 {
			for m := range row {
				row[m] = 1 / float64(k)
			}
			continue
		}
		floats.Scale(1/sum, row)
	}
	return proba, nil
}

// Classes returns the class labels seen during Fit
func (s *SVC) Classes() []int {
	return append([]int(nil), s.classes_...)
}

// Support returns the training rows that became support vectors
func (s *SVC) Support() []int {
	return append([]int(nil), s.support_...)
}

// NIter returns the SMO iterations used by every machine
func (s *SVC) NIter() []int {
	return append([]int(nil), s.nIter_...)
}

// Gamma returns the RBF width resolved during Fit
func (s *SVC) Gamma() float64 {
	return s.gamma_
}

// GetParams returns the hyperparameters
func (s *SVC) GetParams() map[string]interface{} {
	gamma := interface{}(s.gamma)
	if s.gamma == "" {
		gamma = s.gammaValue
	}
	return map[string]interface{}{
		"C":           s.c,
		"kernel":      s.kernel,
		"gamma":       gamma,
		"tol":         s.tol,
		"max_iter":    s.maxIter,
		"cache_size":  s.cacheSize,
		"probability": s.probability,
	}
}
