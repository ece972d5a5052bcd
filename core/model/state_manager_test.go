package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/nidsbench/pkg/errors"
)

func TestStateManager(t *testing.T) {
	s := NewStateManager()
	assert.False(t, s.IsFitted())

	err := s.RequireFitted("GaussianNB", "Predict")
	var nf *errors.NotFittedError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "Predict", nf.Method)

	s.MarkFitted(4, 100)
	assert.True(t, s.IsFitted())
	assert.NoError(t, s.RequireFitted("GaussianNB", "Predict"))
	assert.NoError(t, s.CheckFeatures("Predict", 4))

	var dimErr *errors.DimensionError
	assert.True(t, errors.As(s.CheckFeatures("Predict", 3), &dimErr))

	s.Reset()
	nFeatures, nSamples := s.Dimensions()
	assert.False(t, s.IsFitted())
	assert.Zero(t, nFeatures)
	assert.Zero(t, nSamples)
}

func TestClassLabels(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})

	labels, classes, err := ClassLabels("Fit", X, mat.NewDense(4, 1, []float64{2, 0, 2, 5}))
	require.NoError(t, err)
	assert.Equal(t, []int{2, 0, 2, 5}, labels)
	assert.Equal(t, []int{0, 2, 5}, classes)
	assert.Equal(t, map[int]int{0: 0, 2: 1, 5: 2}, ClassIndex(classes))

	_, _, err = ClassLabels("Fit", X, mat.NewDense(3, 1, []float64{0, 1, 0}))
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))

	_, _, err = ClassLabels("Fit", X, mat.NewDense(4, 1, []float64{0, 1.5, 0, 1}))
	var valErr *errors.ValidationError
	assert.True(t, errors.As(err, &valErr))

	_, _, err = ClassLabels("Fit", &mat.Dense{}, &mat.Dense{})
	assert.True(t, errors.Is(err, errors.ErrEmptyData))
}

func TestArgmaxRows(t *testing.T) {
	proba := mat.NewDense(3, 3, []float64{
		0.2, 0.5, 0.3,
		0.4, 0.4, 0.2,
		0.1, 0.1, 0.8,
	})
	assert.Equal(t, []int{3, 1, 7}, ArgmaxRows(proba, []int{1, 3, 7}))

	col := ColumnVector([]int{1, 3})
	r, c := col.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 1, c)
	assert.Equal(t, 3.0, col.At(1, 0))
}
