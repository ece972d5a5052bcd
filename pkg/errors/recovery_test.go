package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecover(t *testing.T) {
	t.Run("panic becomes PanicError", func(t *testing.T) {
		fn := func() (err error) {
			defer Recover(&err, "KNeighborsClassifier.Predict")
			var rows [][]float64
			_ = rows[3]
			return nil
		}

		err := fn()
		require.Error(t, err)

		var panicErr *PanicError
		require.True(t, stderrors.As(err, &panicErr))
		assert.Equal(t, "KNeighborsClassifier.Predict", panicErr.Operation)
		assert.NotEmpty(t, panicErr.StackTrace)
		assert.Contains(t, panicErr.String(), "Stack trace:")
	})

	t.Run("no panic leaves error untouched", func(t *testing.T) {
		fn := func() (err error) {
			defer Recover(&err, "noop")
			return nil
		}
		assert.NoError(t, fn())
	})

	t.Run("existing error is wrapped", func(t *testing.T) {
		original := fmt.Errorf("original error")
		fn := func() (err error) {
			defer Recover(&err, "fit")
			err = original
			panic("after error")
		}

		err := fn()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "panic in fit")
		assert.Contains(t, err.Error(), "original error")
		assert.True(t, stderrors.Is(err, original))
	})
}

func TestSafeExecute(t *testing.T) {
	tests := []struct {
		name      string
		fn        func() error
		wantPanic bool
		wantErr   error
	}{
		{name: "success", fn: func() error { return nil }},
		{name: "returned error", fn: func() error { return ErrEmptyData }, wantErr: ErrEmptyData},
		{name: "string panic", fn: func() error { panic("degenerate probabilities") }, wantPanic: true},
		{name: "error panic", fn: func() error { panic(fmt.Errorf("boom")) }, wantPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SafeExecute("roc_auc", tt.fn)
			switch {
			case tt.wantPanic:
				var panicErr *PanicError
				require.True(t, stderrors.As(err, &panicErr))
				assert.Equal(t, "roc_auc", panicErr.Operation)
			case tt.wantErr != nil:
				assert.True(t, Is(err, tt.wantErr))
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func BenchmarkSafeExecute_NoPanic(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = SafeExecute("bench", func() error { return nil })
	}
}
