// Package neighbors provides a brute-force k-nearest neighbors classifier.
package neighbors

import (
	"container/heap"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/nidsbench/core/model"
	"github.com/YuminosukeSato/nidsbench/core/parallel"
	"github.com/YuminosukeSato/nidsbench/pkg/errors"
)

// Weighting schemes accepted by WithWeights.
const (
	WeightsUniform  = "uniform"
	WeightsDistance = "distance"
)

// Metrics accepted by WithMetric.
const (
	MetricEuclidean = "euclidean"
	MetricManhattan = "manhattan"
)

// KNeighborsClassifier votes among the k closest training samples.
// The training set is kept as is; every query scans it (brute force),
// with query rows split across workers.
type KNeighborsClassifier struct {
	state *model.StateManager // State management (composition)

	// Hyperparameters
	nNeighbors int
	weights    string
	metric     string
	nJobs      int // <= 0 uses every CPU

	// Model parameters
	fitX_    *mat.Dense
	fitY_    []int // class column of every training row
	classes_ []int
}

// KNeighborsOption is a functional option for KNeighborsClassifier
type KNeighborsOption func(*KNeighborsClassifier)

// NewKNeighborsClassifier creates a classifier with k=5, uniform weights
// and Euclidean distance
func NewKNeighborsClassifier(opts ...KNeighborsOption) *KNeighborsClassifier {
	knn := &KNeighborsClassifier{
		state:      model.NewStateManager(),
		nNeighbors: 5,
		weights:    WeightsUniform,
		metric:     MetricEuclidean,
	}
	for _, opt := range opts {
		opt(knn)
	}
	return knn
}

// WithNNeighbors sets k
func WithNNeighbors(k int) KNeighborsOption {
	return func(knn *KNeighborsClassifier) {
		knn.nNeighbors = k
	}
}

// WithWeights selects "uniform" or "distance" voting
func WithWeights(weights string) KNeighborsOption {
	return func(knn *KNeighborsClassifier) {
		knn.weights = weights
	}
}

// WithMetric selects "euclidean" or "manhattan"
func WithMetric(metric string) KNeighborsOption {
	return func(knn *KNeighborsClassifier) {
		knn.metric = metric
	}
}

// WithNJobs sets the number of query workers; <= 0 uses every CPU
func WithNJobs(n int) KNeighborsOption {
	return func(knn *KNeighborsClassifier) {
		knn.nJobs = n
	}
}

// Fit stores the training set
func (knn *KNeighborsClassifier) Fit(X, y mat.Matrix) error {
	if knn.nNeighbors < 1 {
		return errors.NewValidationError("n_neighbors", "must be at least 1", knn.nNeighbors)
	}
	if knn.weights != WeightsUniform && knn.weights != WeightsDistance {
		return errors.NewValidationError("weights", "must be uniform or distance", knn.weights)
	}
	if knn.metric != MetricEuclidean && knn.metric != MetricManhattan {
		return errors.NewValidationError("metric", "must be euclidean or manhattan", knn.metric)
	}
	labels, classes, err := model.ClassLabels("KNeighborsClassifier.Fit", X, y)
	if err != nil {
		return err
	}
	nSamples, nFeatures := X.Dims()
	if knn.nNeighbors > nSamples {
		return errors.NewValueError("KNeighborsClassifier.Fit",
			"expected n_neighbors <= n_samples")
	}

	knn.state.Reset()
	idx := model.ClassIndex(classes)
	knn.fitY_ = make([]int, nSamples)
	for i, l := range labels {
		knn.fitY_[i] = idx[l]
	}
	knn.fitX_ = mat.DenseCopyOf(X)
	knn.classes_ = classes
	knn.state.MarkFitted(nFeatures, nSamples)
	return nil
}

func (knn *KNeighborsClassifier) distance(a, b []float64) float64 {
	if knn.metric == MetricManhattan {
		return floats.Distance(a, b, 1)
	}
	return floats.Distance(a, b, 2)
}

// KNeighbors returns the distances to and training rows of the k nearest
// neighbors of every query row, nearest first. Equal distances are ordered
// by training row.
func (knn *KNeighborsClassifier) KNeighbors(X mat.Matrix) (*mat.Dense, [][]int, error) {
	if err := knn.state.RequireFitted("KNeighborsClassifier", "KNeighbors"); err != nil {
		return nil, nil, err
	}
	r, c := X.Dims()
	if err := knn.state.CheckFeatures("KNeighborsClassifier.KNeighbors", c); err != nil {
		return nil, nil, err
	}
	Xd := mat.DenseCopyOf(X)
	nTrain, _ := knn.fitX_.Dims()
	k := knn.nNeighbors

	dist := mat.NewDense(r, k, nil)
	ind := make([][]int, r)
	search := func(start, end int) {
		h := make(neighborHeap, 0, k)
		for i := start; i < end; i++ {
			q := Xd.RawRowView(i)
			h = h[:0]
			for j := 0; j < nTrain; j++ {
				d := knn.distance(q, knn.fitX_.RawRowView(j))
				if len(h) < k {
					heap.Push(&h, neighbor{dist: d, index: j})
				} else if less(neighbor{dist: d, index: j}, h[0]) {
					h[0] = neighbor{dist: d, index: j}
					heap.Fix(&h, 0)
				}
			}
			ind[i] = make([]int, k)
			for p := k - 1; p >= 0; p-- {
				nb := heap.Pop(&h).(neighbor)
				dist.Set(i, p, nb.dist)
				ind[i][p] = nb.index
			}
		}
	}
	if knn.nJobs <= 0 {
		parallel.Parallelize(r, search)
	} else {
		parallel.ParallelizeN(r, knn.nJobs, search)
	}
	return dist, ind, nil
}

// PredictProba returns the (weighted) vote share of every class
func (knn *KNeighborsClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := knn.state.RequireFitted("KNeighborsClassifier", "PredictProba"); err != nil {
		return nil, err
	}
	return knn.votes(X)
}

func (knn *KNeighborsClassifier) votes(X mat.Matrix) (*mat.Dense, error) {
	dist, ind, err := knn.KNeighbors(X)
	if err != nil {
		return nil, err
	}
	r := len(ind)
	proba := mat.NewDense(r, len(knn.classes_), nil)
	w := make([]float64, knn.nNeighbors)
	for i := 0; i < r; i++ {
		knn.neighborWeights(dist.RawRowView(i), w)
		row := proba.RawRowView(i)
		for p, j := range ind[i] {
			row[knn.fitY_[j]] += w[p]
		}
		floats.Scale(1/floats.Sum(row), row)
	}
	return proba, nil
}

// neighborWeights fills w with 1 for uniform voting or 1/d for distance
// voting. Exact matches take all the weight when any exist.
func (knn *KNeighborsClassifier) neighborWeights(dist, w []float64) {
	if knn.weights == WeightsUniform {
		for p := range w {
			w[p] = 1
		}
		return
	}
	exact := false
	for _, d := range dist {
		if d == 0 {
			exact = true
			break
		}
	}
	for p, d := range dist {
		switch {
		case exact && d == 0:
			w[p] = 1
		case exact:
			w[p] = 0
		default:
			w[p] = 1 / d
		}
	}
}

// Predict returns the majority class; ties go to the smallest class
func (knn *KNeighborsClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := knn.state.RequireFitted("KNeighborsClassifier", "Predict"); err != nil {
		return nil, err
	}
	proba, err := knn.votes(X)
	if err != nil {
		return nil, err
	}
	return model.ColumnVector(model.ArgmaxRows(proba, knn.classes_)), nil
}

// Classes returns the class labels seen during Fit
func (knn *KNeighborsClassifier) Classes() []int {
	return append([]int(nil), knn.classes_...)
}

// GetParams returns the hyperparameters
func (knn *KNeighborsClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_neighbors": knn.nNeighbors,
		"weights":     knn.weights,
		"metric":      knn.metric,
		"n_jobs":      knn.nJobs,
	}
}

type neighbor struct {
	dist  float64
	index int
}

// less orders by distance, then by training row
func less(a, b neighbor) bool {
	if a.dist != b.dist {
		return a.dist < b.dist
	}
	return a.index < b.index
}

// neighborHeap is a max-heap: the root is the worst of the current k
type neighborHeap []neighbor

func (h neighborHeap) Len() int           { return len(h) }
func (h neighborHeap) Less(i, j int) bool { return less(h[j], h[i]) }
func (h neighborHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *neighborHeap) Push(x any) { *h = append(*h, x.(neighbor)) }

func (h *neighborHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
