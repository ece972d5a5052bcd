package errors

import (
	"fmt"
	"math"
	"strings"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/floats"
)

// 報告する不正値の上限
const maxReportedValues = 10

// NumericalInstabilityError: NaN / ±Inf が計算結果に現れた。
// 例えばスケーリング後の行列や boosting の損失。
type NumericalInstabilityError struct {
	Operation string
	Values    []float64
	Iteration int
}

func (e *NumericalInstabilityError) Error() string {
	shown := e.Values
	if len(shown) > 5 {
		shown = shown[:5]
	}
	parts := make([]string, len(shown), len(shown)+1)
	for i, v := range shown {
		parts[i] = fmt.Sprintf("%.6g", v)
	}
	if len(e.Values) > len(shown) {
		parts = append(parts, "...")
	}
	return fmt.Sprintf(prefix+"numerical instability detected in %s at iteration %d. Values: [%s]",
		e.Operation, e.Iteration, strings.Join(parts, ", "))
}

func NewNumericalInstabilityError(operation string, values []float64, iteration int) error {
	return errors.WithStack(&NumericalInstabilityError{Operation: operation, Values: values, Iteration: iteration})
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// CheckScalar fails when value is NaN or infinite.
func CheckScalar(operation string, value float64, iteration int) error {
	if finite(value) {
		return nil
	}
	return NewNumericalInstabilityError(operation, []float64{value}, iteration)
}

// CheckMatrix scans rows×cols of m and reports the non-finite values of the
// first offending row.
func CheckMatrix(operation string, m interface{ At(int, int) float64 }, rows, cols, iteration int) error {
	for i := 0; i < rows; i++ {
		var bad []float64
		for j := 0; j < cols && len(bad) < maxReportedValues; j++ {
			if v := m.At(i, j); !finite(v) {
				bad = append(bad, v)
			}
		}
		if len(bad) > 0 {
			return NewNumericalInstabilityError(operation, bad, iteration)
		}
	}
	return nil
}

// ClipValue clamps value into [lo, hi].
func ClipValue(value, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, value))
}

// expLimit: exp(700) は float64 で表現できる
const expLimit = 700.0

// StabilizeExp is exp with the argument clamped to ±700; below -700 it
// returns exactly 0.
func StabilizeExp(value float64) float64 {
	if value < -expLimit {
		return 0
	}
	return math.Exp(math.Min(value, expLimit))
}

// LogSumExp returns log(Σ exp(v)); -Inf for an empty slice.
func LogSumExp(values []float64) float64 {
	if len(values) == 0 {
		return math.Inf(-1)
	}
	return floats.LogSumExp(values)
}

// Softmax turns log-domain scores into probabilities in place.
func Softmax(values []float64) {
	lse := LogSumExp(values)
	for i := range values {
		values[i] = math.Exp(values[i] - lse)
	}
}

// SafeDivide returns num/den, or fallback when den is zero.
func SafeDivide(num, den, fallback float64) float64 {
	if den == 0 {
		return fallback
	}
	return num / den
}
