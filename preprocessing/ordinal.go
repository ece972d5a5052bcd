package preprocessing

import (
	"sort"

	"github.com/YuminosukeSato/nidsbench/core/model"
	"github.com/YuminosukeSato/nidsbench/pkg/errors"
)

// UnknownValue is the code assigned to categories not seen during Fit.
const UnknownValue = -1

// OrdinalEncoder は文字列カテゴリを列ごとに 0..k-1 の整数コードへ変換する。
// コードは Fit 時に最初に出現した順で割り当てられ、列同士は独立。
type OrdinalEncoder struct {
	state *model.StateManager

	// Categories[j] は列 j のカテゴリ（コード順）
	Categories [][]string
	codes      []map[string]int
}

// NewOrdinalEncoder は新しいOrdinalEncoderを作成する
func NewOrdinalEncoder() *OrdinalEncoder {
	return &OrdinalEncoder{state: model.NewStateManager()}
}

// Fit learns the categories of each column. columns is column-major:
// columns[j][i] is row i of column j.
func (e *OrdinalEncoder) Fit(columns [][]string) error {
	if len(columns) == 0 {
		return errors.NewModelError("OrdinalEncoder.Fit", "empty data", errors.ErrEmptyData)
	}
	nRows := len(columns[0])

	e.state.Reset()
	e.Categories = make([][]string, len(columns))
	e.codes = make([]map[string]int, len(columns))
	for j, col := range columns {
		if len(col) != nRows {
			return errors.NewDimensionError("OrdinalEncoder.Fit", nRows, len(col), 0)
		}
		codes := make(map[string]int)
		var cats []string
		for _, v := range col {
			if _, ok := codes[v]; !ok {
				codes[v] = len(cats)
				cats = append(cats, v)
			}
		}
		e.codes[j] = codes
		e.Categories[j] = cats
	}

	e.state.MarkFitted(len(columns), nRows)
	return nil
}

// Transform encodes columns with the learned categories. Unseen values
// become UnknownValue.
func (e *OrdinalEncoder) Transform(columns [][]string) ([][]float64, error) {
	if err := e.state.RequireFitted("OrdinalEncoder", "Transform"); err != nil {
		return nil, err
	}
	if err := e.state.CheckFeatures("OrdinalEncoder.Transform", len(columns)); err != nil {
		return nil, err
	}

	out := make([][]float64, len(columns))
	for j, col := range columns {
		enc := make([]float64, len(col))
		for i, v := range col {
			code, ok := e.codes[j][v]
			if !ok {
				code = UnknownValue
			}
			enc[i] = float64(code)
		}
		out[j] = enc
	}
	return out, nil
}

// FitTransform fits on columns and encodes them.
func (e *OrdinalEncoder) FitTransform(columns [][]string) ([][]float64, error) {
	if err := e.Fit(columns); err != nil {
		return nil, err
	}
	return e.Transform(columns)
}

// LabelEncoder maps class names to indices 0..k-1 in sorted name order.
type LabelEncoder struct {
	state *model.StateManager

	classes []string
	index   map[string]int
}

// NewLabelEncoder は新しいLabelEncoderを作成する
func NewLabelEncoder() *LabelEncoder {
	return &LabelEncoder{state: model.NewStateManager()}
}

// Fit learns the sorted set of distinct labels.
func (e *LabelEncoder) Fit(labels []string) error {
	if len(labels) == 0 {
		return errors.NewModelError("LabelEncoder.Fit", "empty data", errors.ErrEmptyData)
	}

	e.state.Reset()
	e.index = make(map[string]int)
	for _, l := range labels {
		e.index[l] = 0
	}
	e.classes = make([]string, 0, len(e.index))
	for l := range e.index {
		e.classes = append(e.classes, l)
	}
	sort.Strings(e.classes)
	for i, l := range e.classes {
		e.index[l] = i
	}

	e.state.MarkFitted(1, len(labels))
	return nil
}

// Transform encodes labels. A label not seen during Fit is an error.
func (e *LabelEncoder) Transform(labels []string) ([]int, error) {
	if err := e.state.RequireFitted("LabelEncoder", "Transform"); err != nil {
		return nil, err
	}
	out := make([]int, len(labels))
	for i, l := range labels {
		code, ok := e.index[l]
		if !ok {
			return nil, errors.NewValueError("LabelEncoder.Transform", "y contains previously unseen label "+l)
		}
		out[i] = code
	}
	return out, nil
}

// FitTransform fits on labels and encodes them.
func (e *LabelEncoder) FitTransform(labels []string) ([]int, error) {
	if err := e.Fit(labels); err != nil {
		return nil, err
	}
	return e.Transform(labels)
}

// InverseTransform maps class indices back to names.
func (e *LabelEncoder) InverseTransform(codes []int) ([]string, error) {
	if err := e.state.RequireFitted("LabelEncoder", "InverseTransform"); err != nil {
		return nil, err
	}
	out := make([]string, len(codes))
	for i, c := range codes {
		if c < 0 || c >= len(e.classes) {
			return nil, errors.NewValidationError("y", "class index out of range", c)
		}
		out[i] = e.classes[c]
	}
	return out, nil
}

// Classes returns the class names in index order.
func (e *LabelEncoder) Classes() []string {
	return append([]string(nil), e.classes...)
}
