// Package model_selection provides train/test partitioning of row indices.
package model_selection

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/nidsbench/pkg/errors"
)

// DefaultTestSize と DefaultRandomState はベンチマークの既定値
const (
	DefaultTestSize    = 0.2
	DefaultRandomState = 42
)

// Split は学習用とテスト用の行インデックス
type Split struct {
	Train []int
	Test  []int
}

// TrainTestSplit は 0..n-1 をシードで決まる順にシャッフルし、先頭
// ceil(testSize*n) 件をテスト、残りを学習用にする。
// 同じ (n, testSize, seed) からは常に同じ分割が得られる。
func TrainTestSplit(n int, testSize float64, seed int64) (Split, error) {
	if n <= 0 {
		return Split{}, errors.NewModelError("TrainTestSplit", "empty data", errors.ErrEmptyData)
	}
	if !(testSize > 0 && testSize < 1) {
		return Split{}, errors.NewValidationError("test_size", "must be in the open interval (0, 1)", testSize)
	}

	nTest := int(math.Ceil(testSize * float64(n)))
	if nTest >= n {
		return Split{}, errors.NewValueError("TrainTestSplit",
			"the resulting train set would be empty; increase the number of samples or decrease test_size")
	}

	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(n)

	return Split{
		Test:  perm[:nTest],
		Train: perm[nTest:],
	}, nil
}

// TakeRows は X から idx の行を順に取り出した新しい行列を返す
func TakeRows(X mat.Matrix, idx []int) *mat.Dense {
	_, c := X.Dims()
	if len(idx) == 0 {
		return &mat.Dense{}
	}
	out := mat.NewDense(len(idx), c, nil)
	row := make([]float64, c)
	for i, r := range idx {
		mat.Row(row, r, X)
		out.SetRow(i, row)
	}
	return out
}

// TakeStrings は values から idx の要素を順に取り出す
func TakeStrings(values []string, idx []int) []string {
	out := make([]string, len(idx))
	for i, r := range idx {
		out[i] = values[r]
	}
	return out
}

// TakeInts は values から idx の要素を順に取り出す
func TakeInts(values []int, idx []int) []int {
	out := make([]int, len(idx))
	for i, r := range idx {
		out[i] = values[r]
	}
	return out
}
