// Package ensemble provides tree ensembles: a bagged random forest and a
// second-order gradient boosting classifier.
package ensemble

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/nidsbench/core/model"
	"github.com/YuminosukeSato/nidsbench/core/parallel"
	"github.com/YuminosukeSato/nidsbench/pkg/errors"
	"github.com/YuminosukeSato/nidsbench/sklearn/tree"
)

// RandomForestClassifier averages the class probabilities of decision trees
// fitted on bootstrap replicates with random feature subsets.
type RandomForestClassifier struct {
	state *model.StateManager // State management (composition)

	// Hyperparameters
	nEstimators     int
	criterion       string
	maxDepth        int    // -1 means unlimited
	maxFeatures     string // "sqrt", "log2" or "all"
	minSamplesSplit int
	minSamplesLeaf  int
	bootstrap       bool
	classWeight     string
	randomState     int64
	nJobs           int // <= 0 uses every CPU

	// Model parameters
	estimators_ []*tree.DecisionTreeClassifier
	classes_    []int
	nFeatures_  int
}

// RandomForestOption is a functional option for RandomForestClassifier
type RandomForestOption func(*RandomForestClassifier)

// NewRandomForestClassifier creates a forest with scikit-learn's defaults:
// 100 gini trees, bootstrap sampling and sqrt(n_features) per split.
func NewRandomForestClassifier(opts ...RandomForestOption) *RandomForestClassifier {
	rf := &RandomForestClassifier{
		state:           model.NewStateManager(),
		nEstimators:     100,
		criterion:       "gini",
		maxDepth:        -1,
		maxFeatures:     "sqrt",
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		bootstrap:       true,
	}
	for _, opt := range opts {
		opt(rf)
	}
	return rf
}

// WithNEstimators sets the number of trees
func WithNEstimators(n int) RandomForestOption {
	return func(rf *RandomForestClassifier) {
		rf.nEstimators = n
	}
}

// WithForestCriterion sets the split criterion of every tree
func WithForestCriterion(criterion string) RandomForestOption {
	return func(rf *RandomForestClassifier) {
		rf.criterion = criterion
	}
}

// WithForestMaxDepth limits the depth of every tree
func WithForestMaxDepth(depth int) RandomForestOption {
	return func(rf *RandomForestClassifier) {
		rf.maxDepth = depth
	}
}

// WithForestMaxFeatures sets the per-split feature budget ("sqrt", "log2" or "all")
func WithForestMaxFeatures(maxFeatures string) RandomForestOption {
	return func(rf *RandomForestClassifier) {
		rf.maxFeatures = maxFeatures
	}
}

// WithForestMinSamplesLeaf sets the minimum number of samples per leaf
func WithForestMinSamplesLeaf(n int) RandomForestOption {
	return func(rf *RandomForestClassifier) {
		rf.minSamplesLeaf = n
	}
}

// WithBootstrap toggles bootstrap sampling
func WithBootstrap(bootstrap bool) RandomForestOption {
	return func(rf *RandomForestClassifier) {
		rf.bootstrap = bootstrap
	}
}

// WithForestClassWeight sets the class weighting of every tree
func WithForestClassWeight(weight string) RandomForestOption {
	return func(rf *RandomForestClassifier) {
		rf.classWeight = weight
	}
}

// WithForestRandomState sets the seed from which every tree seed is derived
func WithForestRandomState(seed int64) RandomForestOption {
	return func(rf *RandomForestClassifier) {
		rf.randomState = seed
	}
}

// WithNJobs sets the number of trees fitted concurrently; <= 0 uses every CPU
func WithNJobs(n int) RandomForestOption {
	return func(rf *RandomForestClassifier) {
		rf.nJobs = n
	}
}

func (rf *RandomForestClassifier) featuresPerSplit(nFeatures int) (int, error) {
	var n int
	switch rf.maxFeatures {
	case "sqrt":
		n = int(math.Sqrt(float64(nFeatures)))
	case "log2":
		n = int(math.Log2(float64(nFeatures)))
	case "all", "":
		n = nFeatures
	default:
		return 0, errors.NewValidationError("max_features", "must be sqrt, log2 or all", rf.maxFeatures)
	}
	if n < 1 {
		n = 1
	}
	return n, nil
}

// Fit fits nEstimators trees concurrently. Tree seeds are drawn from
// randomState before any tree is fitted, so the result does not depend on
// scheduling.
func (rf *RandomForestClassifier) Fit(X, y mat.Matrix) error {
	if rf.nEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be at least 1", rf.nEstimators)
	}
	labels, classes, err := model.ClassLabels("RandomForestClassifier.Fit", X, y)
	if err != nil {
		return err
	}
	nSamples, nFeatures := X.Dims()
	maxFeatures, err := rf.featuresPerSplit(nFeatures)
	if err != nil {
		return err
	}

	rf.state.Reset()
	Xd := mat.DenseCopyOf(X)

	rng := rand.New(rand.NewSource(rf.randomState))
	seeds := make([]int64, rf.nEstimators)
	for i := range seeds {
		seeds[i] = rng.Int63()
	}

	trees := make([]*tree.DecisionTreeClassifier, rf.nEstimators)
	errs := make([]error, rf.nEstimators)
	fitRange := func(start, end int) {
		for t := start; t < end; t++ {
			treeRng := rand.New(rand.NewSource(seeds[t]))
			var weights []float64
			if rf.bootstrap {
				weights = make([]float64, nSamples)
				for i := 0; i < nSamples; i++ {
					weights[treeRng.Intn(nSamples)]++
				}
			}
			dt := tree.NewDecisionTreeClassifier(
				tree.WithCriterion(rf.criterion),
				tree.WithMaxDepth(rf.maxDepth),
				tree.WithMinSamplesSplit(rf.minSamplesSplit),
				tree.WithMinSamplesLeaf(rf.minSamplesLeaf),
				tree.WithMaxFeatures(maxFeatures),
				tree.WithClassWeight(rf.classWeight),
				tree.WithRandomState(treeRng.Int63()),
			)
			errs[t] = dt.FitSamples(Xd, labels, classes, weights)
			trees[t] = dt
		}
	}
	if rf.nJobs <= 0 {
		parallel.Parallelize(rf.nEstimators, fitRange)
	} else {
		parallel.ParallelizeN(rf.nEstimators, rf.nJobs, fitRange)
	}
	for _, err := range errs {
		if err != nil {
			return errors.Wrap(err, "RandomForestClassifier.Fit")
		}
	}

	rf.estimators_ = trees
	rf.classes_ = classes
	rf.nFeatures_ = nFeatures
	rf.state.MarkFitted(nFeatures, nSamples)
	return nil
}

// PredictProba averages the tree probabilities
func (rf *RandomForestClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := rf.state.RequireFitted("RandomForestClassifier", "PredictProba"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if err := rf.state.CheckFeatures("RandomForestClassifier.PredictProba", c); err != nil {
		return nil, err
	}

	Xd := mat.DenseCopyOf(X)
	sum := mat.NewDense(r, len(rf.classes_), nil)
	for _, dt := range rf.estimators_ {
		p, err := dt.PredictProba(Xd)
		if err != nil {
			return nil, err
		}
		sum.Add(sum, p)
	}
	sum.Scale(1/float64(len(rf.estimators_)), sum)
	return sum, nil
}

// Predict returns the class with the highest averaged probability
func (rf *RandomForestClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := rf.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return model.ColumnVector(model.ArgmaxRows(proba, rf.classes_)), nil
}

// Classes returns the class labels seen during Fit
func (rf *RandomForestClassifier) Classes() []int {
	return append([]int(nil), rf.classes_...)
}

// Estimators returns the fitted trees
func (rf *RandomForestClassifier) Estimators() []*tree.DecisionTreeClassifier {
	return rf.estimators_
}

// GetFeatureImportances averages the normalized importances of the trees
func (rf *RandomForestClassifier) GetFeatureImportances() []float64 {
	out := make([]float64, rf.nFeatures_)
	if len(rf.estimators_) == 0 {
		return out
	}
	total := 0.0
	for _, dt := range rf.estimators_ {
		for j, v := range dt.GetFeatureImportances() {
			out[j] += v
			total += v
		}
	}
	if total > 0 {
		for j := range out {
			out[j] /= total
		}
	}
	return out
}

// GetParams returns the hyperparameters
func (rf *RandomForestClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":      rf.nEstimators,
		"criterion":         rf.criterion,
		"max_depth":         rf.maxDepth,
		"max_features":      rf.maxFeatures,
		"min_samples_split": rf.minSamplesSplit,
		"min_samples_leaf":  rf.minSamplesLeaf,
		"bootstrap":         rf.bootstrap,
		"class_weight":      rf.classWeight,
		"random_state":      rf.randomState,
	}
}
