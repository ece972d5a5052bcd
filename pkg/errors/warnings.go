package errors

import (
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// 警告は処理を止めずに通知だけ行う。log.Setup が呼ばれると zerolog 側へ流れる。
var (
	warnMu      sync.RWMutex
	warnHandler = func(w error) {
		fmt.Fprintf(os.Stderr, "nidsbench warning: %v\n", w)
	}
	warnSink func(error)
)

// SetWarningHandler replaces the fallback handler used when no zerolog sink
// is installed.
func SetWarningHandler(handler func(w error)) {
	warnMu.Lock()
	warnHandler = handler
	warnMu.Unlock()
}

// SetZerologWarnFunc installs the structured sink; nil removes it.
// pkg/log からのみ呼ばれる (import cycle 回避)。
func SetZerologWarnFunc(sink func(w error)) {
	warnMu.Lock()
	warnSink = sink
	warnMu.Unlock()
}

// Warn reports w to the installed sink, falling back to the handler.
func Warn(w error) {
	warnMu.RLock()
	sink, handler := warnSink, warnHandler
	warnMu.RUnlock()

	switch {
	case sink != nil:
		sink(w)
	case handler != nil:
		handler(w)
	}
}

// ConvergenceWarning: 反復上限で最適化を打ち切った。
type ConvergenceWarning struct {
	Algorithm  string
	Iterations int
	Message    string
}

func (w *ConvergenceWarning) Error() string {
	msg := w.Message
	if msg == "" {
		msg = "consider raising the iteration limit"
	}
	return fmt.Sprintf("%s stopped after %d iterations without converging: %s", w.Algorithm, w.Iterations, msg)
}

func (w *ConvergenceWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("type", "ConvergenceWarning").
		Str("algorithm", w.Algorithm).
		Int("iterations", w.Iterations).
		Str("message", w.Message)
}

func NewConvergenceWarning(algorithm string, iterations int, message string) *ConvergenceWarning {
	return &ConvergenceWarning{Algorithm: algorithm, Iterations: iterations, Message: message}
}

// UndefinedMetricWarning is raised when a per-class metric has a zero
// denominator and Result is substituted.
type UndefinedMetricWarning struct {
	Metric    string
	Condition string
	Result    float64
}

func (w *UndefinedMetricWarning) Error() string {
	return fmt.Sprintf("'%s' is ill-defined and being set to %f due to %s.", w.Metric, w.Result, w.Condition)
}

func (w *UndefinedMetricWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("type", "UndefinedMetricWarning").
		Str("metric", w.Metric).
		Str("condition", w.Condition).
		Float64("result", w.Result)
}

func NewUndefinedMetricWarning(metric, condition string, result float64) *UndefinedMetricWarning {
	return &UndefinedMetricWarning{Metric: metric, Condition: condition, Result: result}
}

// MissingColumnWarning: 前処理ステップの対象列がデータセットに無いためスキップした。
type MissingColumnWarning struct {
	Step    string
	Columns []string
}

func (w *MissingColumnWarning) Error() string {
	return fmt.Sprintf("%s skipped: required column(s) %v not present", w.Step, w.Columns)
}

func (w *MissingColumnWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("type", "MissingColumnWarning").
		Str("step", w.Step).
		Strs("columns", w.Columns)
}

func NewMissingColumnWarning(step string, columns ...string) *MissingColumnWarning {
	return &MissingColumnWarning{Step: step, Columns: columns}
}

// DataConversionWarning: CSV の列を別の型として読み替えた。
type DataConversionWarning struct {
	FromType string
	ToType   string
	Reason   string
}

func (w *DataConversionWarning) Error() string {
	return fmt.Sprintf("data converted from %s to %s: %s", w.FromType, w.ToType, w.Reason)
}

func (w *DataConversionWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("type", "DataConversionWarning").
		Str("from_type", w.FromType).
		Str("to_type", w.ToType).
		Str("reason", w.Reason)
}

func NewDataConversionWarning(from, to, reason string) *DataConversionWarning {
	return &DataConversionWarning{FromType: from, ToType: to, Reason: reason}
}
