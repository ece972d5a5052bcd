package preprocessing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/nidsbench/core/model"
	"github.com/YuminosukeSato/nidsbench/pkg/errors"
)

// Scaler names accepted by NewScaler.
const (
	ScalerStandard = "standard"
	ScalerMinMax   = "minmax"
)

// scaleEpsilon 未満の標準偏差・範囲は定数列として扱う
const scaleEpsilon = 1e-12

// NewScaler returns the scaler registered under name. "" means standard.
func NewScaler(name string) (model.InvertibleTransformer, error) {
	switch name {
	case "", ScalerStandard:
		return NewStandardScalerDefault(), nil
	case ScalerMinMax:
		return NewMinMaxScalerDefault(), nil
	}
	return nil, errors.NewValidationError("scaler", "unknown scaler", name)
}

// affine は列 j を (v - shift[j]) / div[j] * width + lo に写す。
// 両スケーラーの Transform / InverseTransform はこれを共有する。
type affine struct {
	name  string
	state *model.StateManager
	shift []float64
	div   []float64
	lo    float64
	width float64
}

func (a *affine) reset(c int) {
	a.state.Reset()
	a.shift = make([]float64, c)
	a.div = make([]float64, c)
}

func (a *affine) apply(method string, X mat.Matrix, inverse bool) (mat.Matrix, error) {
	if err := a.state.RequireFitted(a.name, method); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if err := a.state.CheckFeatures(a.name+"."+method, c); err != nil {
		return nil, err
	}

	out := mat.NewDense(r, c, nil)
	if inverse {
		out.Apply(func(_, j int, v float64) float64 {
			return (v-a.lo)/a.width*a.div[j] + a.shift[j]
		}, X)
	} else {
		out.Apply(func(_, j int, v float64) float64 {
			return (v-a.shift[j])/a.div[j]*a.width + a.lo
		}, X)
	}
	return out, nil
}

func checkNonEmpty(op string, X mat.Matrix) (int, int, error) {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return 0, 0, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	return r, c, nil
}

// StandardScaler は各列を平均0・分散1にする。分散は母分散 (ddof=0)。
// 分散0の列はスケール1で中心化だけ行う。
type StandardScaler struct {
	affine

	// Mean and Scale are exposed after Fit. Scale is 1 for constant columns.
	Mean  []float64
	Scale []float64

	WithMean bool
	WithStd  bool
}

// NewStandardScaler は新しいStandardScalerを作成する
//
//	scaler := preprocessing.NewStandardScaler(true, true)
//	XScaled, err := scaler.FitTransform(XTrain)
func NewStandardScaler(withMean, withStd bool) *StandardScaler {
	return &StandardScaler{
		affine:   affine{name: "StandardScaler", state: model.NewStateManager(), width: 1},
		WithMean: withMean,
		WithStd:  withStd,
	}
}

func NewStandardScalerDefault() *StandardScaler {
	return NewStandardScaler(true, true)
}

// Fit computes per-column mean and population standard deviation.
func (s *StandardScaler) Fit(X mat.Matrix) error {
	r, c, err := checkNonEmpty("StandardScaler.Fit", X)
	if err != nil {
		return err
	}
	s.reset(c)

	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		mean, variance := stat.PopMeanVariance(col, nil)
		s.div[j] = 1
		if s.WithMean {
			s.shift[j] = mean
		}
		if std := math.Sqrt(variance); s.WithStd && std > scaleEpsilon {
			s.div[j] = std
		}
	}
	s.Mean, s.Scale = s.shift, s.div
	s.state.MarkFitted(c, r)
	return nil
}

func (s *StandardScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	return s.apply("Transform", X, false)
}

func (s *StandardScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// InverseTransform undoes Transform.
func (s *StandardScaler) InverseTransform(X mat.Matrix) (mat.Matrix, error) {
	return s.apply("InverseTransform", X, true)
}

func (s *StandardScaler) IsFitted() bool { return s.state.IsFitted() }

func (s *StandardScaler) GetParams() map[string]interface{} {
	return map[string]interface{}{"with_mean": s.WithMean, "with_std": s.WithStd}
}

func (s *StandardScaler) String() string {
	if nFeatures, _ := s.state.Dimensions(); s.IsFitted() {
		return fmt.Sprintf("StandardScaler(with_mean=%t, with_std=%t, n_features=%d)", s.WithMean, s.WithStd, nFeatures)
	}
	return fmt.Sprintf("StandardScaler(with_mean=%t, with_std=%t)", s.WithMean, s.WithStd)
}

// MinMaxScaler maps each column linearly onto FeatureRange.
type MinMaxScaler struct {
	affine

	DataMin []float64
	DataMax []float64
	// Scale は max - min (定数列は1)
	Scale []float64

	FeatureRange [2]float64
}

func NewMinMaxScaler(featureRange [2]float64) *MinMaxScaler {
	return &MinMaxScaler{
		affine:       affine{name: "MinMaxScaler", state: model.NewStateManager()},
		FeatureRange: featureRange,
	}
}

// NewMinMaxScalerDefault は [0, 1] に写す
func NewMinMaxScalerDefault() *MinMaxScaler {
	return NewMinMaxScaler([2]float64{0, 1})
}

func (m *MinMaxScaler) Fit(X mat.Matrix) error {
	r, c, err := checkNonEmpty("MinMaxScaler.Fit", X)
	if err != nil {
		return err
	}
	if m.FeatureRange[0] >= m.FeatureRange[1] {
		return errors.NewValidationError("feature_range", "minimum must be smaller than maximum", m.FeatureRange)
	}
	m.reset(c)
	m.lo, m.width = m.FeatureRange[0], m.FeatureRange[1]-m.FeatureRange[0]
	m.DataMax = make([]float64, c)

	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		lo, hi := col[0], col[0]
		for _, v := range col[1:] {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
		m.shift[j], m.DataMax[j] = lo, hi
		m.div[j] = 1
		if hi-lo > scaleEpsilon {
			m.div[j] = hi - lo
		}
	}
	m.DataMin, m.Scale = m.shift, m.div
	m.state.MarkFitted(c, r)
	return nil
}

func (m *MinMaxScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	return m.apply("Transform", X, false)
}

func (m *MinMaxScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := m.Fit(X); err != nil {
		return nil, err
	}
	return m.Transform(X)
}

func (m *MinMaxScaler) InverseTransform(X mat.Matrix) (mat.Matrix, error) {
	return m.apply("InverseTransform", X, true)
}

func (m *MinMaxScaler) IsFitted() bool { return m.state.IsFitted() }

func (m *MinMaxScaler) GetParams() map[string]interface{} {
	return map[string]interface{}{"feature_range": m.FeatureRange}
}

func (m *MinMaxScaler) String() string {
	return fmt.Sprintf("MinMaxScaler(feature_range=[%g, %g])", m.FeatureRange[0], m.FeatureRange[1])
}
