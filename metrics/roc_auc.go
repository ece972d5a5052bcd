package metrics

import (
	"fmt"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/nidsbench/pkg/errors"
)

// Score is a metric value that may be undefined for the given inputs.
type Score struct {
	Value  float64 `json:"value"`
	Valid  bool    `json:"valid"`
	Reason string  `json:"reason,omitempty"`
}

// Scored wraps a defined metric value.
func Scored(v float64) Score {
	return Score{Value: v, Valid: true}
}

// NotApplicable marks a metric that could not be computed.
func NotApplicable(reason string) Score {
	return Score{Reason: reason}
}

// String formats the value with five decimals, or "N/A".
func (s Score) String() string {
	if !s.Valid {
		return "N/A"
	}
	return strconv.FormatFloat(s.Value, 'f', 5, 64)
}

// AUC は二値ラベル（0/1）とスコアから ROC 曲線下面積を計算する。
// 同順位は平均順位で扱う（Mann–Whitney U）。
func AUC(yTrue, yScore []float64) (float64, error) {
	n := len(yTrue)
	if n == 0 {
		return 0, errors.NewValueError("AUC", "empty input")
	}
	if len(yScore) != n {
		return 0, errors.NewDimensionError("AUC", n, len(yScore), 0)
	}

	var nPos, nNeg float64
	for _, y := range yTrue {
		switch y {
		case 1:
			nPos++
		case 0:
			nNeg++
		default:
			return 0, errors.NewValueError("AUC", fmt.Sprintf("labels must be 0 or 1, got %v", y))
		}
	}
	if nPos == 0 || nNeg == 0 {
		return 0, errors.NewValueError("AUC", "only one class present in y_true; ROC AUC is not defined")
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return yScore[order[a]] < yScore[order[b]]
	})

	var rankSumPos float64
	for i := 0; i < n; {
		j := i
		for j+1 < n && yScore[order[j+1]] == yScore[order[i]] {
			j++
		}
		// ranks i+1..j+1 share their mean
		rank := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			if yTrue[order[k]] == 1 {
				rankSumPos += rank
			}
		}
		i = j + 1
	}

	return (rankSumPos - nPos*(nPos+1)/2) / (nPos * nNeg), nil
}

// ROCAUCScore computes the ROC AUC from class probabilities, where column j
// of proba belongs to classes[j]. Two classes use the second column as the
// positive score; more classes use the unweighted one-vs-rest mean.
//
// The score is NotApplicable when yTrue holds fewer than two classes, when
// the classes in yTrue are not exactly the probability columns, or when the
// shapes disagree.
func ROCAUCScore(yTrue []int, proba mat.Matrix, classes []int) Score {
	rows, cols := proba.Dims()
	if rows != len(yTrue) {
		return NotApplicable(fmt.Sprintf("y_true has %d samples but y_score has %d rows", len(yTrue), rows))
	}
	if cols != len(classes) {
		return NotApplicable(fmt.Sprintf("y_score has %d columns for %d classes", cols, len(classes)))
	}

	present := UniqueLabels(yTrue)
	if len(present) < 2 {
		return NotApplicable("only one class present in y_true")
	}
	if len(present) != cols {
		return NotApplicable(fmt.Sprintf("number of classes in y_true (%d) not equal to the number of columns in y_score (%d)", len(present), cols))
	}
	col := make(map[int]int, len(classes))
	for j, c := range classes {
		col[c] = j
	}
	for _, c := range present {
		if _, ok := col[c]; !ok {
			return NotApplicable(fmt.Sprintf("class %d in y_true has no probability column", c))
		}
	}

	binary := make([]float64, rows)
	score := make([]float64, rows)
	oneVsRest := func(j int) (float64, error) {
		for i := range yTrue {
			binary[i] = 0
			if yTrue[i] == classes[j] {
				binary[i] = 1
			}
			score[i] = proba.At(i, j)
		}
		return AUC(binary, score)
	}

	if cols == 2 {
		auc, err := oneVsRest(1)
		if err != nil {
			return NotApplicable(err.Error())
		}
		return Scored(auc)
	}

	sum := 0.0
	for j := 0; j < cols; j++ {
		auc, err := oneVsRest(j)
		if err != nil {
			return NotApplicable(err.Error())
		}
		sum += auc
	}
	return Scored(sum / float64(cols))
}
