// Package metrics は分類モデルの評価指標を提供する。
// 入力はクラスインデックス（[]int）で、scikit-learn と同じ定義に従う。
package metrics

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/nidsbench/pkg/errors"
)

// Averaging strategies for PrecisionScore, RecallScore and F1Score.
const (
	AverageWeighted = "weighted"
	AverageMacro    = "macro"
	AverageMicro    = "micro"
)

type options struct {
	average      string
	zeroDivision float64
}

// Option configures the averaged classification scores.
type Option func(*options)

// WithAverage selects "weighted" (default), "macro" or "micro" averaging.
func WithAverage(average string) Option {
	return func(o *options) {
		o.average = average
	}
}

// WithZeroDivision sets the value used for a class whose score has a zero
// denominator. The default is 0.
func WithZeroDivision(v float64) Option {
	return func(o *options) {
		o.zeroDivision = v
	}
}

func buildOptions(opts []Option) (options, error) {
	o := options{average: AverageWeighted}
	for _, opt := range opts {
		opt(&o)
	}
	switch o.average {
	case AverageWeighted, AverageMacro, AverageMicro:
		return o, nil
	default:
		return o, errors.NewValidationError("average", "must be weighted, macro or micro", o.average)
	}
}

func checkPair(op string, yTrue, yPred []int) error {
	if len(yTrue) == 0 {
		return errors.NewValueError(op, "empty input")
	}
	if len(yPred) != len(yTrue) {
		return errors.NewDimensionError(op, len(yTrue), len(yPred), 0)
	}
	return nil
}

// UniqueLabels returns the sorted union of the labels in the given slices.
func UniqueLabels(ys ...[]int) []int {
	seen := make(map[int]struct{})
	for _, y := range ys {
		for _, v := range y {
			seen[v] = struct{}{}
		}
	}
	labels := make([]int, 0, len(seen))
	for v := range seen {
		labels = append(labels, v)
	}
	sort.Ints(labels)
	return labels
}

// ConfusionMatrix returns the nClasses×nClasses matrix whose (i, j) entry
// counts samples of true class i predicted as class j.
func ConfusionMatrix(yTrue, yPred []int, nClasses int) (*mat.Dense, error) {
	if err := checkPair("ConfusionMatrix", yTrue, yPred); err != nil {
		return nil, err
	}
	if nClasses <= 0 {
		return nil, errors.NewValidationError("n_classes", "must be positive", nClasses)
	}
	cm := mat.NewDense(nClasses, nClasses, nil)
	for i := range yTrue {
		t, p := yTrue[i], yPred[i]
		if t < 0 || t >= nClasses || p < 0 || p >= nClasses {
			return nil, errors.NewValidationError("y", "class index out of range", fmt.Sprintf("(%d, %d)", t, p))
		}
		cm.Set(t, p, cm.At(t, p)+1)
	}
	return cm, nil
}

// AccuracyScore は正解率を計算する
func AccuracyScore(yTrue, yPred []int) (float64, error) {
	if err := checkPair("AccuracyScore", yTrue, yPred); err != nil {
		return 0, err
	}
	correct := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(yTrue)), nil
}

// classCounts holds per-label counts over UniqueLabels(yTrue, yPred).
type classCounts struct {
	labels    []int
	tp        []float64
	predicted []float64
	support   []float64
}

func countPerClass(yTrue, yPred []int) classCounts {
	labels := UniqueLabels(yTrue, yPred)
	pos := make(map[int]int, len(labels))
	for i, l := range labels {
		pos[l] = i
	}
	c := classCounts{
		labels:    labels,
		tp:        make([]float64, len(labels)),
		predicted: make([]float64, len(labels)),
		support:   make([]float64, len(labels)),
	}
	for i := range yTrue {
		c.support[pos[yTrue[i]]]++
		c.predicted[pos[yPred[i]]]++
		if yTrue[i] == yPred[i] {
			c.tp[pos[yTrue[i]]]++
		}
	}
	return c
}

func (c classCounts) total(v []float64) float64 {
	s := 0.0
	for _, x := range v {
		s += x
	}
	return s
}

// average combines per-label scores with the support weights or a plain mean.
func (c classCounts) average(scores []float64, average string) float64 {
	if average == AverageMacro {
		return c.total(scores) / float64(len(scores))
	}
	sum, weight := 0.0, 0.0
	for i, s := range scores {
		sum += s * c.support[i]
		weight += c.support[i]
	}
	return sum / weight
}

func perLabel(metric, condition string, c classCounts, num, den []float64, zeroDivision float64) []float64 {
	scores := make([]float64, len(c.labels))
	var undefined []int
	for i := range scores {
		if den[i] == 0 {
			undefined = append(undefined, c.labels[i])
		}
		scores[i] = errors.SafeDivide(num[i], den[i], zeroDivision)
	}
	if len(undefined) > 0 {
		errors.Warn(errors.NewUndefinedMetricWarning(metric,
			fmt.Sprintf("%s for labels %v", condition, undefined), zeroDivision))
	}
	return scores
}

// PrecisionScore は適合率 tp / (tp + fp) を計算する
func PrecisionScore(yTrue, yPred []int, opts ...Option) (float64, error) {
	if err := checkPair("PrecisionScore", yTrue, yPred); err != nil {
		return 0, err
	}
	o, err := buildOptions(opts)
	if err != nil {
		return 0, err
	}
	c := countPerClass(yTrue, yPred)
	if o.average == AverageMicro {
		return errors.SafeDivide(c.total(c.tp), c.total(c.predicted), o.zeroDivision), nil
	}
	scores := perLabel("precision", "no predicted samples", c, c.tp, c.predicted, o.zeroDivision)
	return c.average(scores, o.average), nil
}

// RecallScore は再現率 tp / (tp + fn) を計算する
func RecallScore(yTrue, yPred []int, opts ...Option) (float64, error) {
	if err := checkPair("RecallScore", yTrue, yPred); err != nil {
		return 0, err
	}
	o, err := buildOptions(opts)
	if err != nil {
		return 0, err
	}
	c := countPerClass(yTrue, yPred)
	if o.average == AverageMicro {
		return errors.SafeDivide(c.total(c.tp), c.total(c.support), o.zeroDivision), nil
	}
	scores := perLabel("recall", "no true samples", c, c.tp, c.support, o.zeroDivision)
	return c.average(scores, o.average), nil
}

// F1Score は F1 = 2tp / (2tp + fp + fn) を計算する
func F1Score(yTrue, yPred []int, opts ...Option) (float64, error) {
	if err := checkPair("F1Score", yTrue, yPred); err != nil {
		return 0, err
	}
	o, err := buildOptions(opts)
	if err != nil {
		return 0, err
	}
	c := countPerClass(yTrue, yPred)
	if o.average == AverageMicro {
		tp := c.total(c.tp)
		return errors.SafeDivide(2*tp, c.total(c.predicted)+c.total(c.support), o.zeroDivision), nil
	}
	num := make([]float64, len(c.labels))
	den := make([]float64, len(c.labels))
	for i := range num {
		num[i] = 2 * c.tp[i]
		den[i] = c.predicted[i] + c.support[i]
	}
	scores := perLabel("f-score", "no true nor predicted samples", c, num, den, o.zeroDivision)
	return c.average(scores, o.average), nil
}

// BalancedAccuracyScore は yTrue に現れるクラスの再現率の平均を計算する
func BalancedAccuracyScore(yTrue, yPred []int) (float64, error) {
	if err := checkPair("BalancedAccuracyScore", yTrue, yPred); err != nil {
		return 0, err
	}
	c := countPerClass(yTrue, yPred)
	sum, n := 0.0, 0
	for i := range c.labels {
		if c.support[i] == 0 {
			continue
		}
		sum += c.tp[i] / c.support[i]
		n++
	}
	return sum / float64(n), nil
}

// MatthewsCorrCoef は多クラスのマシューズ相関係数を計算する。
// 分母が0の場合は0を返す。
func MatthewsCorrCoef(yTrue, yPred []int) (float64, error) {
	if err := checkPair("MatthewsCorrCoef", yTrue, yPred); err != nil {
		return 0, err
	}
	c := countPerClass(yTrue, yPred)

	n := float64(len(yTrue))
	correct := c.total(c.tp)
	var tp, pp, tt float64
	for i := range c.labels {
		tp += c.support[i] * c.predicted[i]
		pp += c.predicted[i] * c.predicted[i]
		tt += c.support[i] * c.support[i]
	}
	covYtYp := correct*n - tp
	covYpYp := n*n - pp
	covYtYt := n*n - tt
	if covYpYp*covYtYt == 0 {
		return 0, nil
	}
	return covYtYp / math.Sqrt(covYtYt*covYpYp), nil
}
