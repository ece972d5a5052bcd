// Package errors defines the typed errors and warnings shared by the
// estimators, the preprocessing pipeline and the CLI. Constructors attach a
// stack trace through cockroachdb/errors; callers match with Is and As.
package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// 共通の sentinel。Wrap されても Is で判定できる。
var (
	ErrEmptyData              = New("empty data")
	ErrProbabilityUnavailable = New("probability estimates are not available for this model")
)

const prefix = "nidsbench: "

// NotFittedError: Fit 前に Predict / Transform が呼ばれた。
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf(prefix+"%s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

func (e *NotFittedError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", "NotFittedError").Str("model_name", e.ModelName).Str("method", e.Method)
}

func NewNotFittedError(modelName, method string) error {
	return errors.WithStack(&NotFittedError{ModelName: modelName, Method: method})
}

// DimensionError reports a shape mismatch. Axis 0 counts rows, axis 1 counts
// feature columns.
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int
}

func (e *DimensionError) axisName() string {
	if e.Axis == 0 {
		return "rows"
	}
	return "features"
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf(prefix+"%s: dimension mismatch on axis %d (%s). Expected %d, got %d",
		e.Op, e.Axis, e.axisName(), e.Expected, e.Got)
}

func (e *DimensionError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", "DimensionError").
		Str("operation", e.Op).
		Int("axis", e.Axis).
		Str("axis_name", e.axisName()).
		Int("expected", e.Expected).
		Int("got", e.Got)
}

func NewDimensionError(op string, expected, got, axis int) error {
	return errors.WithStack(&DimensionError{Op: op, Expected: expected, Got: got, Axis: axis})
}

// ValidationError: 設定値やハイパーパラメータが範囲外。
type ValidationError struct {
	ParamName string
	Reason    string
	Value     any
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf(prefix+"validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

func (e *ValidationError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", "ValidationError").
		Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value)
}

func NewValidationError(param, reason string, value any) error {
	return errors.WithStack(&ValidationError{ParamName: param, Reason: reason, Value: value})
}

// ValueError is returned when the data itself cannot be processed, e.g. a
// single class left after filtering.
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string { return prefix + e.Op + ": " + e.Message }

func NewValueError(op, message string) error {
	return errors.WithStack(&ValueError{Op: op, Message: message})
}

// ModelError wraps a failure inside an estimator with the operation and a
// short kind such as "probability disabled".
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

func (e *ModelError) Error() string {
	if e.Err == nil {
		return prefix + e.Op + ": " + e.Kind
	}
	return fmt.Sprintf(prefix+"%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

func NewModelError(op, kind string, err error) error {
	return errors.WithStack(&ModelError{Op: op, Kind: kind, Err: err})
}

// 以下 cockroachdb/errors の薄いラッパー。呼び出し側は本パッケージだけを import する。

func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }

func New(message string) error { return errors.New(message) }

func Newf(format string, args ...any) error { return errors.Newf(format, args...) }

func Wrap(err error, message string) error { return errors.Wrap(err, message) }

func Wrapf(err error, format string, args ...any) error { return errors.Wrapf(err, format, args...) }

func WithStack(err error) error { return errors.WithStack(err) }

// StackTrace returns the first recorded safe detail (the stack captured by
// cockroachdb/errors), or "" when err carries none.
func StackTrace(err error) string {
	if err == nil {
		return ""
	}
	if d := errors.GetSafeDetails(err).SafeDetails; len(d) > 0 {
		return d[0]
	}
	return ""
}
