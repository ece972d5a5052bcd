package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる。y は n×1 のクラスインデックス列。
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を行う（n×1 のクラスインデックス）
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// ProbabilityPredictor is implemented by models that estimate class
// membership probabilities. Column j corresponds to Classes()[j].
type ProbabilityPredictor interface {
	PredictProba(X mat.Matrix) (mat.Matrix, error)
}

// Classifier is the capability set every benchmarked model provides.
// PredictProba may return errors.ErrProbabilityUnavailable when the model
// was configured without probability estimates.
type Classifier interface {
	Fitter
	Predictor
	ProbabilityPredictor

	// Classes returns the class indices seen during fitting, sorted.
	Classes() []int
}

// ParameterGetter is the interface for models that expose their parameters.
type ParameterGetter interface {
	GetParams() map[string]interface{}
}
