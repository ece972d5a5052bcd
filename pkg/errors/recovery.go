package errors

import (
	"fmt"
	"runtime/debug"
)

// PanicError は recover した panic を error として保持します。
// Cause は panic 発生前に関数が既に返そうとしていたエラーです。
type PanicError struct {
	Operation  string
	PanicValue any
	StackTrace string
	Cause      error
}

func (e *PanicError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("panic in %s: %v (pending error: %v)", e.Operation, e.PanicValue, e.Cause)
	}
	return fmt.Sprintf("panic in %s: %v", e.Operation, e.PanicValue)
}

// Unwrap returns the pending error, if any.
func (e *PanicError) Unwrap() error { return e.Cause }

// String は Error にスタックトレースを付けたものです。
func (e *PanicError) String() string {
	return e.Error() + "\nStack trace:\n" + e.StackTrace
}

// NewPanicError captures the current goroutine stack.
func NewPanicError(operation string, value any) *PanicError {
	return &PanicError{
		Operation:  operation,
		PanicValue: value,
		StackTrace: string(debug.Stack()),
	}
}

// Recover は defer で使い、panic を *err に PanicError として書き込みます。
//
//	func (s *Scorer) Score() (err error) {
//	    defer errors.Recover(&err, "Scorer.Score")
//	    ...
//	}
func Recover(err *error, operation string) {
	r := recover()
	if r == nil {
		return
	}
	pe := NewPanicError(operation, r)
	pe.Cause = *err
	*err = pe
}

// SafeExecute runs fn and turns a panic inside it into a *PanicError.
// スコア計算のように入力次第で index out of range が起き得る処理を包みます。
func SafeExecute(operation string, fn func() error) (err error) {
	defer Recover(&err, operation)
	return fn()
}
