package ensemble

import (
	"github.com/YuminosukeSato/nidsbench/core/parallel"
	"github.com/YuminosukeSato/nidsbench/pkg/errors"
)

// minHessian keeps leaf weights finite when a class probability saturates.
const minHessian = 1e-16

// softmaxObjective is the multiclass cross-entropy loss over raw logits.
// Logits, gradients and hessians are stored flattened as [sample*K + class].
type softmaxObjective struct {
	numClasses int
}

func newSoftmaxObjective(numClasses int) *softmaxObjective {
	return &softmaxObjective{numClasses: numClasses}
}

// gradients returns p_k - 1{y == k} and the diagonal hessian 2p_k(1 - p_k),
// the same scaling as XGBoost's multi:softprob.
func (o *softmaxObjective) gradients(yTrue []int, logits []float64) ([]float64, []float64) {
	k := o.numClasses
	n := len(yTrue)
	grad := make([]float64, n*k)
	hess := make([]float64, n*k)

	parallel.ParallelizeWithThreshold(n, 4096, func(start, end int) {
		prob := make([]float64, k)
		for i := start; i < end; i++ {
			copy(prob, logits[i*k:(i+1)*k])
			errors.Softmax(prob)
			for c := 0; c < k; c++ {
				p := prob[c]
				g := p
				if c == yTrue[i] {
					g = p - 1
				}
				h := 2 * p * (1 - p)
				if h < minHessian {
					h = minHessian
				}
				grad[i*k+c] = g
				hess[i*k+c] = h
			}
		}
	})
	return grad, hess
}

// loss returns the mean negative log-likelihood.
func (o *softmaxObjective) loss(yTrue []int, logits []float64) float64 {
	k := o.numClasses
	total := 0.0
	for i, y := range yTrue {
		row := logits[i*k : (i+1)*k]
		total += errors.LogSumExp(row) - row[y]
	}
	return total / float64(len(yTrue))
}
