// Package tree provides a CART decision tree classifier compatible with
// scikit-learn's DecisionTreeClassifier.
package tree

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/nidsbench/core/model"
	"github.com/YuminosukeSato/nidsbench/pkg/errors"
)

// node is one entry of the flat tree array. Leaves have feature == -1.
type node struct {
	feature   int
	threshold float64
	left      int
	right     int
	value     []float64 // class probabilities
	impurity  float64
	weight    float64 // weighted number of samples
	depth     int
}

// DecisionTreeClassifier implements a CART classification tree.
type DecisionTreeClassifier struct {
	state *model.StateManager // State management (composition)

	// Hyperparameters
	criterion       string // "gini" or "entropy"
	maxDepth        int    // -1 means unlimited
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int    // features examined per split, 0 means all
	classWeight     string // "" or "balanced"
	randomState     int64

	// Model parameters
	nodes               []node
	classes_            []int
	nClasses_           int
	nFeatures_          int
	featureImportances_ []float64
}

// DecisionTreeOption is a functional option for DecisionTreeClassifier
type DecisionTreeOption func(*DecisionTreeClassifier)

// NewDecisionTreeClassifier creates a new DecisionTreeClassifier
func NewDecisionTreeClassifier(opts ...DecisionTreeOption) *DecisionTreeClassifier {
	dt := &DecisionTreeClassifier{
		state:           model.NewStateManager(),
		criterion:       "gini",
		maxDepth:        -1,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		randomState:     0,
	}
	for _, opt := range opts {
		opt(dt)
	}
	return dt
}

// WithCriterion sets the impurity measure ("gini" or "entropy")
func WithCriterion(criterion string) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.criterion = criterion
	}
}

// WithMaxDepth limits the depth of the tree; -1 means unlimited
func WithMaxDepth(depth int) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.maxDepth = depth
	}
}

// WithMinSamplesSplit sets the minimum number of samples required to split a node
func WithMinSamplesSplit(n int) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.minSamplesSplit = n
	}
}

// WithMinSamplesLeaf sets the minimum number of samples in each leaf
func WithMinSamplesLeaf(n int) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.minSamplesLeaf = n
	}
}

// WithMaxFeatures sets how many randomly chosen features are examined at
// each split; 0 examines all of them
func WithMaxFeatures(n int) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.maxFeatures = n
	}
}

// WithClassWeight sets the class weighting ("balanced" or "")
func WithClassWeight(weight string) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.classWeight = weight
	}
}

// WithRandomState sets the seed used for feature sampling
func WithRandomState(seed int64) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.randomState = seed
	}
}

func (dt *DecisionTreeClassifier) validateParams() error {
	if dt.criterion != "gini" && dt.criterion != "entropy" {
		return errors.NewValidationError("criterion", "must be gini or entropy", dt.criterion)
	}
	if dt.minSamplesSplit < 2 {
		return errors.NewValidationError("min_samples_split", "must be at least 2", dt.minSamplesSplit)
	}
	if dt.minSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples_leaf", "must be at least 1", dt.minSamplesLeaf)
	}
	if dt.maxDepth == 0 || dt.maxDepth < -1 {
		return errors.NewValidationError("max_depth", "must be positive or -1", dt.maxDepth)
	}
	if dt.maxFeatures < 0 {
		return errors.NewValidationError("max_features", "must not be negative", dt.maxFeatures)
	}
	if dt.classWeight != "" && dt.classWeight != "none" && dt.classWeight != "balanced" {
		return errors.NewValidationError("class_weight", "must be balanced or empty", dt.classWeight)
	}
	return nil
}

// Fit builds the tree from X and the n×1 class column y
func (dt *DecisionTreeClassifier) Fit(X, y mat.Matrix) error {
	labels, classes, err := model.ClassLabels("DecisionTreeClassifier.Fit", X, y)
	if err != nil {
		return err
	}
	return dt.FitSamples(X, labels, classes, nil)
}

// FitSamples builds the tree from labels that must all belong to classes.
// sampleWeight may be nil; zero-weight samples are ignored. Ensembles use it
// to fit bootstrap replicates without copying X.
func (dt *DecisionTreeClassifier) FitSamples(X mat.Matrix, labels, classes []int, sampleWeight []float64) error {
	if err := dt.validateParams(); err != nil {
		return err
	}
	nSamples, nFeatures := X.Dims()
	if len(labels) != nSamples {
		return errors.NewDimensionError("DecisionTreeClassifier.Fit", nSamples, len(labels), 0)
	}
	if sampleWeight != nil && len(sampleWeight) != nSamples {
		return errors.NewDimensionError("DecisionTreeClassifier.Fit", nSamples, len(sampleWeight), 0)
	}

	dt.state.Reset()
	classIdx := model.ClassIndex(classes)
	encoded := make([]int, nSamples)
	for i, l := range labels {
		c, ok := classIdx[l]
		if !ok {
			return errors.NewValidationError("y", "label not in classes", l)
		}
		encoded[i] = c
	}

	weights := make([]float64, nSamples)
	for i := range weights {
		weights[i] = 1
		if sampleWeight != nil {
			weights[i] = sampleWeight[i]
		}
	}
	if dt.classWeight == "balanced" {
		cw := balancedWeights(encoded, len(classes))
		for i := range weights {
			weights[i] *= cw[encoded[i]]
		}
	}

	b := &builder{
		dt:          dt,
		X:           asDense(X),
		y:           encoded,
		w:           weights,
		nClasses:    len(classes),
		nFeatures:   nFeatures,
		importances: make([]float64, nFeatures),
		rng:         rand.New(rand.NewSource(dt.randomState)),
	}

	samples := make([]int, 0, nSamples)
	for i, w := range weights {
		if w > 0 {
			samples = append(samples, i)
		}
	}
	if len(samples) == 0 {
		return errors.NewModelError("DecisionTreeClassifier.Fit", "all sample weights are zero", errors.ErrEmptyData)
	}
	b.build(samples, 0)

	dt.nodes = b.nodes
	dt.classes_ = append([]int(nil), classes...)
	dt.nClasses_ = len(classes)
	dt.nFeatures_ = nFeatures
	dt.featureImportances_ = normalize(b.importances)

	dt.state.MarkFitted(nFeatures, nSamples)
	return nil
}

// balancedWeights returns n / (k * count_c) for every class present.
func balancedWeights(y []int, nClasses int) []float64 {
	counts := make([]float64, nClasses)
	for _, c := range y {
		counts[c]++
	}
	present := 0.0
	for _, c := range counts {
		if c > 0 {
			present++
		}
	}
	weights := make([]float64, nClasses)
	for c, cnt := range counts {
		if cnt > 0 {
			weights[c] = float64(len(y)) / (present * cnt)
		}
	}
	return weights
}

func normalize(v []float64) []float64 {
	out := make([]float64, len(v))
	total := 0.0
	for _, x := range v {
		total += x
	}
	if total == 0 {
		return out
	}
	for i, x := range v {
		out[i] = x / total
	}
	return out
}

func asDense(X mat.Matrix) *mat.Dense {
	if d, ok := X.(*mat.Dense); ok {
		return d
	}
	return mat.DenseCopyOf(X)
}

type builder struct {
	dt          *DecisionTreeClassifier
	X           *mat.Dense
	y           []int
	w           []float64
	nClasses    int
	nFeatures   int
	nodes       []node
	importances []float64
	rng         *rand.Rand
}

func (b *builder) impurity(counts []float64, total float64) float64 {
	if total <= 0 {
		return 0
	}
	if b.dt.criterion == "entropy" {
		e := 0.0
		for _, c := range counts {
			if c > 0 {
				p := c / total
				e -= p * math.Log2(p)
			}
		}
		return e
	}
	g := 1.0
	for _, c := range counts {
		p := c / total
		g -= p * p
	}
	return g
}

type split struct {
	feature   int
	threshold float64
	cost      float64 // weighted impurity of the children
	left      []int
	right     []int
}

// build appends the subtree for samples and returns its node index.
func (b *builder) build(samples []int, depth int) int {
	counts := make([]float64, b.nClasses)
	total := 0.0
	for _, i := range samples {
		counts[b.y[i]] += b.w[i]
		total += b.w[i]
	}
	imp := b.impurity(counts, total)

	idx := len(b.nodes)
	value := make([]float64, b.nClasses)
	for c := range counts {
		value[c] = counts[c] / total
	}
	b.nodes = append(b.nodes, node{
		feature:  -1,
		value:    value,
		impurity: imp,
		weight:   total,
		depth:    depth,
	})

	dt := b.dt
	if imp <= 1e-12 ||
		(dt.maxDepth > 0 && depth >= dt.maxDepth) ||
		len(samples) < dt.minSamplesSplit ||
		len(samples) < 2*dt.minSamplesLeaf {
		return idx
	}

	best, ok := b.bestSplit(samples)
	if !ok {
		return idx
	}
	b.importances[best.feature] += total*imp - best.cost

	left := b.build(best.left, depth+1)
	right := b.build(best.right, depth+1)
	n := &b.nodes[idx]
	n.feature = best.feature
	n.threshold = best.threshold
	n.left = left
	n.right = right
	return idx
}

// bestSplit searches the sampled features for the threshold with the lowest
// weighted child impurity. Constant features do not count toward maxFeatures.
func (b *builder) bestSplit(samples []int) (split, bool) {
	limit := b.dt.maxFeatures
	var features []int
	if limit == 0 || limit >= b.nFeatures {
		limit = b.nFeatures
		features = make([]int, b.nFeatures)
		for i := range features {
			features[i] = i
		}
	} else {
		features = b.rng.Perm(b.nFeatures)
	}

	best := split{feature: -1, cost: math.Inf(1)}
	var bestPos int

	order := make([]sortedSample, len(samples))
	leftCounts := make([]float64, b.nClasses)
	rightCounts := make([]float64, b.nClasses)
	minLeaf := b.dt.minSamplesLeaf

	visited := 0
	for _, f := range features {
		if visited >= limit {
			break
		}
		for k, i := range samples {
			order[k] = sortedSample{index: i, value: b.X.At(i, f)}
		}
		sort.Slice(order, func(a, c int) bool { return order[a].value < order[c].value })
		if order[0].value == order[len(order)-1].value {
			continue
		}
		visited++

		for c := range leftCounts {
			leftCounts[c] = 0
			rightCounts[c] = 0
		}
		leftW, rightW := 0.0, 0.0
		for _, s := range order {
			rightCounts[b.y[s.index]] += b.w[s.index]
			rightW += b.w[s.index]
		}

		for k := 0; k < len(order)-1; k++ {
			i := order[k].index
			leftCounts[b.y[i]] += b.w[i]
			rightCounts[b.y[i]] -= b.w[i]
			leftW += b.w[i]
			rightW -= b.w[i]

			if order[k].value == order[k+1].value {
				continue
			}
			if k+1 < minLeaf || len(order)-k-1 < minLeaf {
				continue
			}
			cost := leftW*b.impurity(leftCounts, leftW) + rightW*b.impurity(rightCounts, rightW)
			if cost < best.cost-1e-12 {
				lo, hi := order[k].value, order[k+1].value
				threshold := lo + (hi-lo)/2
				if threshold >= hi {
					threshold = lo
				}
				best = split{feature: f, threshold: threshold, cost: cost}
				bestPos = k + 1
			}
		}
	}

	if best.feature < 0 {
		return best, false
	}
	best.left = make([]int, 0, bestPos)
	best.right = make([]int, 0, len(samples)-bestPos)
	for _, i := range samples {
		if b.X.At(i, best.feature) <= best.threshold {
			best.left = append(best.left, i)
		} else {
			best.right = append(best.right, i)
		}
	}
	return best, true
}

type sortedSample struct {
	index int
	value float64
}

func (dt *DecisionTreeClassifier) leaf(row []float64) *node {
	n := &dt.nodes[0]
	for n.feature >= 0 {
		if row[n.feature] <= n.threshold {
			n = &dt.nodes[n.left]
		} else {
			n = &dt.nodes[n.right]
		}
	}
	return n
}

// PredictProba returns the class distribution of the leaf each row falls in
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.state.RequireFitted("DecisionTreeClassifier", "PredictProba"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if err := dt.state.CheckFeatures("DecisionTreeClassifier.PredictProba", c); err != nil {
		return nil, err
	}

	proba := mat.NewDense(r, dt.nClasses_, nil)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, X)
		proba.SetRow(i, dt.leaf(row).value)
	}
	return proba, nil
}

// Predict returns the most probable class of each row
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := dt.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return model.ColumnVector(model.ArgmaxRows(proba, dt.classes_)), nil
}

// Score returns the mean accuracy on X and y
func (dt *DecisionTreeClassifier) Score(X, y mat.Matrix) (float64, error) {
	pred, err := dt.Predict(X)
	if err != nil {
		return 0, err
	}
	r, _ := y.Dims()
	if pr, _ := pred.Dims(); pr != r {
		return 0, errors.NewDimensionError("DecisionTreeClassifier.Score", pr, r, 0)
	}
	correct := 0
	for i := 0; i < r; i++ {
		if pred.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(r), nil
}

// Classes returns the class labels seen during Fit
func (dt *DecisionTreeClassifier) Classes() []int {
	return append([]int(nil), dt.classes_...)
}

// GetDepth returns the maximum depth of the fitted tree
func (dt *DecisionTreeClassifier) GetDepth() int {
	depth := 0
	for _, n := range dt.nodes {
		if n.depth > depth {
			depth = n.depth
		}
	}
	return depth
}

// GetNLeaves returns the number of leaves of the fitted tree
func (dt *DecisionTreeClassifier) GetNLeaves() int {
	leaves := 0
	for _, n := range dt.nodes {
		if n.feature < 0 {
			leaves++
		}
	}
	return leaves
}

// GetFeatureImportances returns the normalized impurity decrease per feature
func (dt *DecisionTreeClassifier) GetFeatureImportances() []float64 {
	return append([]float64(nil), dt.featureImportances_...)
}

// GetParams returns the hyperparameters
func (dt *DecisionTreeClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"criterion":         dt.criterion,
		"max_depth":         dt.maxDepth,
		"min_samples_split": dt.minSamplesSplit,
		"min_samples_leaf":  dt.minSamplesLeaf,
		"max_features":      dt.maxFeatures,
		"class_weight":      dt.classWeight,
		"random_state":      dt.randomState,
	}
}

// SetParams updates hyperparameters by name. Nothing is changed when any
// entry is unknown, mistyped or invalid.
func (dt *DecisionTreeClassifier) SetParams(params map[string]interface{}) error {
	next := *dt
	for key, value := range params {
		var ok bool
		switch key {
		case "criterion", "class_weight":
			var v string
			if v, ok = value.(string); ok {
				if key == "criterion" {
					next.criterion = v
				} else {
					next.classWeight = v
				}
			}
		case "max_depth", "min_samples_split", "min_samples_leaf", "max_features":
			var v int
			if v, ok = value.(int); ok {
				*next.intParam(key) = v
			}
		case "random_state":
			var v int64
			if v, ok = value.(int64); ok {
				next.randomState = v
			}
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
		if !ok {
			return errors.NewValidationError(key, fmt.Sprintf("unexpected type %T", value), value)
		}
	}
	if err := next.validateParams(); err != nil {
		return err
	}
	*dt = next
	return nil
}

func (dt *DecisionTreeClassifier) intParam(key string) *int {
	switch key {
	case "max_depth":
		return &dt.maxDepth
	case "min_samples_split":
		return &dt.minSamplesSplit
	case "min_samples_leaf":
		return &dt.minSamplesLeaf
	default:
		return &dt.maxFeatures
	}
}
