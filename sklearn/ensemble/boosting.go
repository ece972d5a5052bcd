package ensemble

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/nidsbench/core/model"
	"github.com/YuminosukeSato/nidsbench/pkg/errors"
	"github.com/YuminosukeSato/nidsbench/pkg/log"
)

// GradientBoostingClassifier is a second-order (Newton) gradient boosted
// tree ensemble with a softmax objective, in the manner of XGBoost's
// multi:softprob. Every round fits one regression tree per class.
type GradientBoostingClassifier struct {
	state  *model.StateManager // State management (composition)
	logger log.Logger

	// Hyperparameters
	nEstimators    int
	learningRate   float64
	maxDepth       int
	lambda         float64 // L2 regularization on leaf weights
	gamma          float64 // minimum gain required to split
	minChildWeight float64 // minimum hessian sum per child

	// Model parameters
	trees_     [][]regressionTree // [round][class]
	classes_   []int
	nFeatures_ int
	trainLoss_ []float64
}

// GradientBoostingOption is a functional option for GradientBoostingClassifier
type GradientBoostingOption func(*GradientBoostingClassifier)

// NewGradientBoostingClassifier creates a booster with XGBoost's defaults:
// 100 rounds, eta 0.3, max_depth 6, lambda 1, gamma 0, min_child_weight 1.
func NewGradientBoostingClassifier(opts ...GradientBoostingOption) *GradientBoostingClassifier {
	gb := &GradientBoostingClassifier{
		state:          model.NewStateManager(),
		logger:         log.Nop(),
		nEstimators:    100,
		learningRate:   0.3,
		maxDepth:       6,
		lambda:         1,
		gamma:          0,
		minChildWeight: 1,
	}
	for _, opt := range opts {
		opt(gb)
	}
	return gb
}

// WithBoostingRounds sets the number of boosting rounds
func WithBoostingRounds(n int) GradientBoostingOption {
	return func(gb *GradientBoostingClassifier) {
		gb.nEstimators = n
	}
}

// WithLearningRate sets the shrinkage applied to every tree
func WithLearningRate(eta float64) GradientBoostingOption {
	return func(gb *GradientBoostingClassifier) {
		gb.learningRate = eta
	}
}

// WithBoostingMaxDepth sets the maximum depth of every tree
func WithBoostingMaxDepth(depth int) GradientBoostingOption {
	return func(gb *GradientBoostingClassifier) {
		gb.maxDepth = depth
	}
}

// WithLambda sets the L2 regularization on leaf weights
func WithLambda(lambda float64) GradientBoostingOption {
	return func(gb *GradientBoostingClassifier) {
		gb.lambda = lambda
	}
}

// WithGamma sets the minimum loss reduction required to split
func WithGamma(gamma float64) GradientBoostingOption {
	return func(gb *GradientBoostingClassifier) {
		gb.gamma = gamma
	}
}

// WithMinChildWeight sets the minimum hessian sum of a child
func WithMinChildWeight(w float64) GradientBoostingOption {
	return func(gb *GradientBoostingClassifier) {
		gb.minChildWeight = w
	}
}

// WithBoostingLogger logs the training loss of every round at debug level
func WithBoostingLogger(logger log.Logger) GradientBoostingOption {
	return func(gb *GradientBoostingClassifier) {
		gb.logger = logger
	}
}

func (gb *GradientBoostingClassifier) validateParams() error {
	if gb.nEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be at least 1", gb.nEstimators)
	}
	if gb.learningRate <= 0 {
		return errors.NewValidationError("learning_rate", "must be positive", gb.learningRate)
	}
	if gb.maxDepth < 1 {
		return errors.NewValidationError("max_depth", "must be at least 1", gb.maxDepth)
	}
	if gb.lambda < 0 || gb.gamma < 0 || gb.minChildWeight < 0 {
		return errors.NewValidationError("regularization", "lambda, gamma and min_child_weight must not be negative",
			[]float64{gb.lambda, gb.gamma, gb.minChildWeight})
	}
	return nil
}

// Fit runs nEstimators boosting rounds
func (gb *GradientBoostingClassifier) Fit(X, y mat.Matrix) error {
	if err := gb.validateParams(); err != nil {
		return err
	}
	labels, classes, err := model.ClassLabels("GradientBoostingClassifier.Fit", X, y)
	if err != nil {
		return err
	}
	if len(classes) < 2 {
		return errors.NewValueError("GradientBoostingClassifier.Fit", "needs samples of at least 2 classes")
	}

	gb.state.Reset()
	nSamples, nFeatures := X.Dims()
	k := len(classes)
	classIdx := model.ClassIndex(classes)
	encoded := make([]int, nSamples)
	for i, l := range labels {
		encoded[i] = classIdx[l]
	}

	Xd := mat.DenseCopyOf(X)
	sorted := presort(Xd)
	objective := newSoftmaxObjective(k)
	logits := make([]float64, nSamples*k)

	g := make([]float64, nSamples)
	h := make([]float64, nSamples)
	trees := make([][]regressionTree, 0, gb.nEstimators)
	losses := make([]float64, 0, gb.nEstimators)
	for round := 0; round < gb.nEstimators; round++ {
		grad, hess := objective.gradients(encoded, logits)
		roundTrees := make([]regressionTree, k)
		for c := 0; c < k; c++ {
			for i := 0; i < nSamples; i++ {
				g[i] = grad[i*k+c]
				h[i] = hess[i*k+c]
			}
			t := gb.buildTree(Xd, sorted, g, h)
			roundTrees[c] = t
			for i := 0; i < nSamples; i++ {
				logits[i*k+c] += t.predictRow(Xd.RawRowView(i))
			}
		}
		trees = append(trees, roundTrees)

		loss := objective.loss(encoded, logits)
		if err := errors.CheckScalar("boosting_loss", loss, round); err != nil {
			return err
		}
		losses = append(losses, loss)
		gb.logger.Debug("Boosting round",
			log.ModelNameKey, "GradientBoostingClassifier",
			log.IterationKey, round,
			"loss", loss,
		)
	}

	gb.trees_ = trees
	gb.classes_ = classes
	gb.nFeatures_ = nFeatures
	gb.trainLoss_ = losses
	gb.state.MarkFitted(nFeatures, nSamples)
	return nil
}

// decisionFunction returns the raw per-class logits
func (gb *GradientBoostingClassifier) decisionFunction(X mat.Matrix) (*mat.Dense, error) {
	r, c := X.Dims()
	if err := gb.state.CheckFeatures("GradientBoostingClassifier.Predict", c); err != nil {
		return nil, err
	}
	k := len(gb.classes_)
	out := mat.NewDense(r, k, nil)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, X)
		for _, round := range gb.trees_ {
			for cls, t := range round {
				out.Set(i, cls, out.At(i, cls)+t.predictRow(row))
			}
		}
	}
	return out, nil
}

// PredictProba applies softmax to the summed tree outputs
func (gb *GradientBoostingClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := gb.state.RequireFitted("GradientBoostingClassifier", "PredictProba"); err != nil {
		return nil, err
	}
	logits, err := gb.decisionFunction(X)
	if err != nil {
		return nil, err
	}
	r, _ := logits.Dims()
	for i := 0; i < r; i++ {
		errors.Softmax(logits.RawRowView(i))
	}
	return logits, nil
}

// Predict returns the class with the highest probability
func (gb *GradientBoostingClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := gb.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return model.ColumnVector(model.ArgmaxRows(proba, gb.classes_)), nil
}

// Classes returns the class labels seen during Fit
func (gb *GradientBoostingClassifier) Classes() []int {
	return append([]int(nil), gb.classes_...)
}

// TrainLoss returns the training log-loss after each round
func (gb *GradientBoostingClassifier) TrainLoss() []float64 {
	return append([]float64(nil), gb.trainLoss_...)
}

// GetParams returns the hyperparameters
func (gb *GradientBoostingClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":     gb.nEstimators,
		"learning_rate":    gb.learningRate,
		"max_depth":        gb.maxDepth,
		"reg_lambda":       gb.lambda,
		"gamma":            gb.gamma,
		"min_child_weight": gb.minChildWeight,
	}
}

// regressionTree is a flat tree whose leaves hold already-shrunk weights.
type regressionTree struct {
	nodes []regNode
}

type regNode struct {
	feature   int // -1 for leaves
	threshold float64
	left      int
	right     int
	weight    float64
}

func (t regressionTree) predictRow(row []float64) float64 {
	n := t.nodes[0]
	for n.feature >= 0 {
		if row[n.feature] <= n.threshold {
			n = t.nodes[n.left]
		} else {
			n = t.nodes[n.right]
		}
	}
	return n.weight
}

// presort returns, for every feature, the sample indices in ascending order
// of that feature.
func presort(X *mat.Dense) [][]int {
	r, c := X.Dims()
	sorted := make([][]int, c)
	for f := 0; f < c; f++ {
		idx := make([]int, r)
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool { return X.At(idx[a], f) < X.At(idx[b], f) })
		sorted[f] = idx
	}
	return sorted
}

type splitCandidate struct {
	gain      float64
	feature   int
	threshold float64
}

type scanState struct {
	gl, hl float64
	last   float64
	seen   bool
}

// buildTree grows a tree level by level with the exact greedy algorithm:
// each level scans every presorted feature once and routes each sample to
// the open node it currently belongs to.
func (gb *GradientBoostingClassifier) buildTree(X *mat.Dense, sorted [][]int, g, h []float64) regressionTree {
	nSamples, nFeatures := X.Dims()
	nodes := []regNode{{feature: -1}}
	sumG := []float64{0}
	sumH := []float64{0}
	for i := 0; i < nSamples; i++ {
		sumG[0] += g[i]
		sumH[0] += h[i]
	}

	nodeOf := make([]int, nSamples)
	open := []int{0}

	score := func(G, H float64) float64 { return G * G / (H + gb.lambda) }

	for depth := 0; depth < gb.maxDepth && len(open) > 0; depth++ {
		slot := make(map[int]int, len(open))
		for s, nd := range open {
			slot[nd] = s
		}
		best := make([]splitCandidate, len(open))
		for s := range best {
			best[s] = splitCandidate{feature: -1}
		}
		states := make([]scanState, len(open))

		for f := 0; f < nFeatures; f++ {
			for s := range states {
				states[s] = scanState{}
			}
			for _, i := range sorted[f] {
				s, ok := slot[nodeOf[i]]
				if !ok {
					continue
				}
				v := X.At(i, f)
				st := &states[s]
				if st.seen && v != st.last {
					nd := open[s]
					gr, hr := sumG[nd]-st.gl, sumH[nd]-st.hl
					if st.hl >= gb.minChildWeight && hr >= gb.minChildWeight {
						gain := 0.5*(score(st.gl, st.hl)+score(gr, hr)-score(sumG[nd], sumH[nd])) - gb.gamma
						if gain > best[s].gain+1e-12 {
							thr := st.last + (v-st.last)/2
							if thr >= v {
								thr = st.last
							}
							best[s] = splitCandidate{gain: gain, feature: f, threshold: thr}
						}
					}
				}
				st.gl += g[i]
				st.hl += h[i]
				st.last = v
				st.seen = true
			}
		}

		var next []int
		for s, nd := range open {
			if best[s].feature < 0 {
				continue
			}
			left, right := len(nodes), len(nodes)+1
			nodes = append(nodes, regNode{feature: -1}, regNode{feature: -1})
			sumG = append(sumG, 0, 0)
			sumH = append(sumH, 0, 0)
			nodes[nd].feature = best[s].feature
			nodes[nd].threshold = best[s].threshold
			nodes[nd].left = left
			nodes[nd].right = right
			next = append(next, left, right)
		}
		if len(next) == 0 {
			break
		}
		for i := 0; i < nSamples; i++ {
			nd := nodeOf[i]
			n := nodes[nd]
			if n.feature < 0 {
				continue
			}
			if _, ok := slot[nd]; !ok {
				continue
			}
			child := n.right
			if X.At(i, n.feature) <= n.threshold {
				child = n.left
			}
			nodeOf[i] = child
			sumG[child] += g[i]
			sumH[child] += h[i]
		}
		open = next
	}

	for nd := range nodes {
		if nodes[nd].feature < 0 {
			nodes[nd].weight = -sumG[nd] / (sumH[nd] + gb.lambda) * gb.learningRate
		}
	}
	return regressionTree{nodes: nodes}
}
