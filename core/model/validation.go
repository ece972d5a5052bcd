package model

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/nidsbench/pkg/errors"
)

// ClassLabels validates a classification training set and returns y as
// integer class indices together with the sorted distinct classes.
func ClassLabels(op string, X, y mat.Matrix) ([]int, []int, error) {
	nSamples, nFeatures := X.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return nil, nil, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	yRows, yCols := y.Dims()
	if yRows != nSamples {
		return nil, nil, errors.NewDimensionError(op, nSamples, yRows, 0)
	}
	if yCols != 1 {
		return nil, nil, errors.NewValidationError("y", "must be a column vector", yCols)
	}

	labels := make([]int, nSamples)
	seen := make(map[int]struct{})
	for i := 0; i < nSamples; i++ {
		v := y.At(i, 0)
		if v < 0 || v != math.Trunc(v) {
			return nil, nil, errors.NewValidationError("y", "class labels must be non-negative integers", v)
		}
		labels[i] = int(v)
		seen[labels[i]] = struct{}{}
	}

	classes := make([]int, 0, len(seen))
	for c := range seen {
		classes = append(classes, c)
	}
	sort.Ints(classes)
	return labels, classes, nil
}

// ClassIndex maps each class value to its column in PredictProba output.
func ClassIndex(classes []int) map[int]int {
	idx := make(map[int]int, len(classes))
	for i, c := range classes {
		idx[c] = i
	}
	return idx
}

// ColumnVector wraps predictions as an n×1 matrix.
func ColumnVector(values []int) *mat.Dense {
	data := make([]float64, len(values))
	for i, v := range values {
		data[i] = float64(v)
	}
	return mat.NewDense(len(values), 1, data)
}

// ArgmaxRows picks classes[argmax] for every row of proba; ties resolve to
// the lowest column.
func ArgmaxRows(proba mat.Matrix, classes []int) []int {
	rows, cols := proba.Dims()
	out := make([]int, rows)
	for i := 0; i < rows; i++ {
		best := 0
		for j := 1; j < cols; j++ {
			if proba.At(i, j) > proba.At(i, best) {
				best = j
			}
		}
		out[i] = classes[best]
	}
	return out
}
