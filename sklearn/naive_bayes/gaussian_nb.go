// Package naive_bayes provides naive Bayes classifiers.
package naive_bayes

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/nidsbench/core/model"
	"github.com/YuminosukeSato/nidsbench/pkg/errors"
)

// GaussianNB implements Gaussian Naive Bayes, compatible with
// scikit-learn's GaussianNB
type GaussianNB struct {
	state *model.StateManager // State management (composition)

	// Hyperparameters
	varSmoothing float64   // Portion of the largest feature variance added to every variance
	priors       []float64 // Prior probabilities of the classes; nil means class frequencies

	// Model parameters
	classes_    []int
	classPrior_ []float64
	classCount_ []float64
	theta_      [][]float64 // per-class feature means
	var_        [][]float64 // per-class feature variances
	epsilon_    float64
}

// GaussianNBOption is a functional option for GaussianNB
type GaussianNBOption func(*GaussianNB)

// NewGaussianNB creates a new GaussianNB classifier
func NewGaussianNB(opts ...GaussianNBOption) *GaussianNB {
	nb := &GaussianNB{
		state:        model.NewStateManager(),
		varSmoothing: 1e-9,
	}
	for _, opt := range opts {
		opt(nb)
	}
	return nb
}

// WithVarSmoothing sets the variance smoothing portion
func WithVarSmoothing(v float64) GaussianNBOption {
	return func(nb *GaussianNB) {
		nb.varSmoothing = v
	}
}

// WithPriors fixes the class priors instead of using class frequencies
func WithPriors(priors []float64) GaussianNBOption {
	return func(nb *GaussianNB) {
		nb.priors = priors
	}
}

// Fit estimates per-class feature means and variances
func (nb *GaussianNB) Fit(X, y mat.Matrix) error {
	if nb.varSmoothing < 0 {
		return errors.NewValidationError("var_smoothing", "must not be negative", nb.varSmoothing)
	}
	labels, classes, err := model.ClassLabels("GaussianNB.Fit", X, y)
	if err != nil {
		return err
	}
	if nb.priors != nil {
		if len(nb.priors) != len(classes) {
			return errors.NewValidationError("priors", "number of priors must match number of classes", len(nb.priors))
		}
		sum := 0.0
		for _, p := range nb.priors {
			if p < 0 {
				return errors.NewValidationError("priors", "priors must be non-negative", nb.priors)
			}
			sum += p
		}
		if math.Abs(sum-1) > 1e-8 {
			return errors.NewValidationError("priors", "the sum of the priors should be 1", sum)
		}
	}

	nb.state.Reset()
	nSamples, nFeatures := X.Dims()
	classIdx := model.ClassIndex(classes)

	// rows of every class, feature-major
	columns := make([][][]float64, len(classes))
	for c := range columns {
		columns[c] = make([][]float64, nFeatures)
	}
	counts := make([]float64, len(classes))
	for i := 0; i < nSamples; i++ {
		c := classIdx[labels[i]]
		counts[c]++
		for j := 0; j < nFeatures; j++ {
			columns[c][j] = append(columns[c][j], X.At(i, j))
		}
	}

	maxVar := 0.0
	col := make([]float64, nSamples)
	for j := 0; j < nFeatures; j++ {
		mat.Col(col, j, X)
		_, v := stat.PopMeanVariance(col, nil)
		maxVar = math.Max(maxVar, v)
	}
	epsilon := nb.varSmoothing * maxVar
	if epsilon == 0 {
		epsilon = nb.varSmoothing
	}

	nb.theta_ = make([][]float64, len(classes))
	nb.var_ = make([][]float64, len(classes))
	for c := range classes {
		nb.theta_[c] = make([]float64, nFeatures)
		nb.var_[c] = make([]float64, nFeatures)
		for j := 0; j < nFeatures; j++ {
			mean, variance := stat.PopMeanVariance(columns[c][j], nil)
			nb.theta_[c][j] = mean
			nb.var_[c][j] = variance + epsilon
		}
	}

	nb.classPrior_ = make([]float64, len(classes))
	for c := range classes {
		if nb.priors != nil {
			nb.classPrior_[c] = nb.priors[c]
		} else {
			nb.classPrior_[c] = counts[c] / float64(nSamples)
		}
	}

	nb.classes_ = classes
	nb.classCount_ = counts
	nb.epsilon_ = epsilon
	nb.state.MarkFitted(nFeatures, nSamples)
	return nil
}

// jointLogLikelihood returns log P(c) + log P(x|c) for every row and class
func (nb *GaussianNB) jointLogLikelihood(X mat.Matrix) (*mat.Dense, error) {
	r, c := X.Dims()
	if err := nb.state.CheckFeatures("GaussianNB.Predict", c); err != nil {
		return nil, err
	}

	k := len(nb.classes_)
	norm := make([]float64, k)
	for cls := 0; cls < k; cls++ {
		s := 0.0
		for j := 0; j < c; j++ {
			s += math.Log(2 * math.Pi * nb.var_[cls][j])
		}
		norm[cls] = math.Log(nb.classPrior_[cls]) - 0.5*s
	}

	jll := mat.NewDense(r, k, nil)
	for i := 0; i < r; i++ {
		for cls := 0; cls < k; cls++ {
			s := 0.0
			for j := 0; j < c; j++ {
				d := X.At(i, j) - nb.theta_[cls][j]
				s += d * d / nb.var_[cls][j]
			}
			jll.Set(i, cls, norm[cls]-0.5*s)
		}
	}
	return jll, nil
}

// PredictLogProba returns log-probability estimates
func (nb *GaussianNB) PredictLogProba(X mat.Matrix) (mat.Matrix, error) {
	if err := nb.state.RequireFitted("GaussianNB", "PredictLogProba"); err != nil {
		return nil, err
	}
	jll, err := nb.jointLogLikelihood(X)
	if err != nil {
		return nil, err
	}
	r, _ := jll.Dims()
	for i := 0; i < r; i++ {
		row := jll.RawRowView(i)
		lse := errors.LogSumExp(row)
		for j := range row {
			row[j] -= lse
		}
	}
	return jll, nil
}

// PredictProba returns probability estimates
func (nb *GaussianNB) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := nb.state.RequireFitted("GaussianNB", "PredictProba"); err != nil {
		return nil, err
	}
	jll, err := nb.jointLogLikelihood(X)
	if err != nil {
		return nil, err
	}
	r, _ := jll.Dims()
	for i := 0; i < r; i++ {
		errors.Softmax(jll.RawRowView(i))
	}
	return jll, nil
}

// Predict returns the class with the highest posterior
func (nb *GaussianNB) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := nb.state.RequireFitted("GaussianNB", "Predict"); err != nil {
		return nil, err
	}
	jll, err := nb.jointLogLikelihood(X)
	if err != nil {
		return nil, err
	}
	return model.ColumnVector(model.ArgmaxRows(jll, nb.classes_)), nil
}

// Classes returns the class labels seen during Fit
func (nb *GaussianNB) Classes() []int {
	return append([]int(nil), nb.classes_...)
}

// ClassPrior returns the prior of each class
func (nb *GaussianNB) ClassPrior() []float64 {
	return append([]float64(nil), nb.classPrior_...)
}

// Theta returns the per-class feature means
func (nb *GaussianNB) Theta() [][]float64 {
	return nb.theta_
}

// Var returns the per-class feature variances including smoothing
func (nb *GaussianNB) Var() [][]float64 {
	return nb.var_
}

// GetParams returns the hyperparameters
func (nb *GaussianNB) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"var_smoothing": nb.varSmoothing,
		"priors":        nb.priors,
	}
}
