package neighbors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/nidsbench/pkg/errors"
)

func line() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(6, 1, []float64{0, 1, 2, 10, 11, 12})
	y := mat.NewDense(6, 1, []float64{3, 3, 3, 7, 7, 7})
	return X, y
}

func TestKNeighborsClassifierPredict(t *testing.T) {
	X, y := line()
	knn := NewKNeighborsClassifier(WithNNeighbors(3))
	require.NoError(t, knn.Fit(X, y))
	assert.Equal(t, []int{3, 7}, knn.Classes())

	pred, err := knn.Predict(mat.NewDense(3, 1, []float64{0.5, 11.5, 4}))
	require.NoError(t, err)
	assert.Equal(t, 3.0, pred.At(0, 0))
	assert.Equal(t, 7.0, pred.At(1, 0))
	assert.Equal(t, 3.0, pred.At(2, 0))

	proba, err := knn.PredictProba(mat.NewDense(1, 1, []float64{7}))
	require.NoError(t, err)
	// neighbors of 7: 10, 11 (class 7) and 2 (class 3)
	assert.InDelta(t, 1.0/3, proba.At(0, 0), 1e-12)
	assert.InDelta(t, 2.0/3, proba.At(0, 1), 1e-12)
}

func TestKNeighborsClassifierKNeighbors(t *testing.T) {
	X, y := line()
	knn := NewKNeighborsClassifier(WithNNeighbors(2), WithNJobs(1))
	require.NoError(t, knn.Fit(X, y))

	dist, ind, err := knn.KNeighbors(mat.NewDense(2, 1, []float64{1, 10.4}))
	require.NoError(t, err)
	// 0 and 2 are equally far from 1; the lower row wins
	assert.Equal(t, []int{1, 0}, ind[0])
	assert.Equal(t, []float64{0, 1}, mat.Row(nil, 0, dist))
	assert.Equal(t, []int{3, 4}, ind[1])
	assert.InDelta(t, 0.4, dist.At(1, 0), 1e-12)
}

func TestKNeighborsClassifierTieGoesToSmallestClass(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{-1, 1, -2, 2})
	y := mat.NewDense(4, 1, []float64{5, 2, 5, 2})
	knn := NewKNeighborsClassifier(WithNNeighbors(2))
	require.NoError(t, knn.Fit(X, y))

	pred, err := knn.Predict(mat.NewDense(1, 1, []float64{0}))
	require.NoError(t, err)
	assert.Equal(t, 2.0, pred.At(0, 0))
}

func TestKNeighborsClassifierDistanceWeights(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{0, 3, 4})
	y := mat.NewDense(3, 1, []float64{0, 1, 1})

	uniform := NewKNeighborsClassifier(WithNNeighbors(3))
	require.NoError(t, uniform.Fit(X, y))
	pred, err := uniform.Predict(mat.NewDense(1, 1, []float64{1}))
	require.NoError(t, err)
	assert.Equal(t, 1.0, pred.At(0, 0))

	// weights 1, 1/2, 1/3 favour the closest sample
	weighted := NewKNeighborsClassifier(WithNNeighbors(3), WithWeights(WeightsDistance))
	require.NoError(t, weighted.Fit(X, y))
	pred, err = weighted.Predict(mat.NewDense(1, 1, []float64{1}))
	require.NoError(t, err)
	assert.Equal(t, 0.0, pred.At(0, 0))

	// an exact match takes every vote
	proba, err := weighted.PredictProba(mat.NewDense(1, 1, []float64{3}))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, mat.Row(nil, 0, proba))
}

func TestKNeighborsClassifierManhattan(t *testing.T) {
	X := mat.NewDense(2, 2, []float64{0, 0, 3, 3})
	y := mat.NewDense(2, 1, []float64{0, 1})
	knn := NewKNeighborsClassifier(WithNNeighbors(1), WithMetric(MetricManhattan))
	require.NoError(t, knn.Fit(X, y))

	dist, _, err := knn.KNeighbors(mat.NewDense(1, 2, []float64{1, 1}))
	require.NoError(t, err)
	assert.Equal(t, 2.0, dist.At(0, 0))
}

func TestKNeighborsClassifierErrors(t *testing.T) {
	X, y := line()

	_, err := NewKNeighborsClassifier().Predict(X)
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	err = NewKNeighborsClassifier(WithNNeighbors(7)).Fit(X, y)
	var ve *errors.ValueError
	assert.True(t, errors.As(err, &ve))

	err = NewKNeighborsClassifier(WithWeights("gaussian")).Fit(X, y)
	var val *errors.ValidationError
	assert.True(t, errors.As(err, &val))

	knn := NewKNeighborsClassifier()
	require.NoError(t, knn.Fit(X, y))
	_, err = knn.Predict(mat.NewDense(1, 2, nil))
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))
}
