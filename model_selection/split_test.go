package model_selection

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/nidsbench/pkg/errors"
)

func TestTrainTestSplit(t *testing.T) {
	tests := []struct {
		n        int
		testSize float64
		wantTest int
	}{
		{n: 10, testSize: 0.2, wantTest: 2},
		{n: 11, testSize: 0.2, wantTest: 3},
		{n: 1000, testSize: 0.2, wantTest: 200},
		{n: 2, testSize: 0.2, wantTest: 1},
	}

	for _, tt := range tests {
		s, err := TrainTestSplit(tt.n, tt.testSize, DefaultRandomState)
		require.NoError(t, err)
		assert.Len(t, s.Test, tt.wantTest)
		assert.Len(t, s.Train, tt.n-tt.wantTest)

		all := append(append([]int{}, s.Train...), s.Test...)
		sort.Ints(all)
		for i, v := range all {
			assert.Equal(t, i, v, "partitions must be disjoint and cover every row")
		}
	}
}

func TestTrainTestSplitDeterministic(t *testing.T) {
	a, err := TrainTestSplit(500, 0.2, 42)
	require.NoError(t, err)
	b, err := TrainTestSplit(500, 0.2, 42)
	require.NoError(t, err)
	c, err := TrainTestSplit(500, 0.2, 7)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a.Test, c.Test)
}

func TestTrainTestSplitErrors(t *testing.T) {
	_, err := TrainTestSplit(0, 0.2, 42)
	assert.True(t, errors.Is(err, errors.ErrEmptyData))

	for _, size := range []float64{0, 1, -0.1, 1.5} {
		_, err = TrainTestSplit(10, size, 42)
		var valErr *errors.ValidationError
		assert.True(t, errors.As(err, &valErr), "test size %v", size)
	}

	_, err = TrainTestSplit(1, 0.2, 42)
	var valueErr *errors.ValueError
	assert.True(t, errors.As(err, &valueErr))
}

func TestTake(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	got := TakeRows(X, []int{2, 0})
	assert.Equal(t, []float64{5, 6, 1, 2}, got.RawMatrix().Data)

	assert.Equal(t, []string{"c", "a"}, TakeStrings([]string{"a", "b", "c"}, []int{2, 0}))
	assert.Equal(t, []int{30, 10}, TakeInts([]int{10, 20, 30}, []int{2, 0}))
}
