package log

// 属性キー。ドット区切りで「対象.項目」とし、zerolog の JSON 出力でそのままフィールド名になる。
const (
	RunIDKey     = "run.id"
	ComponentKey = "ml.component" // "preprocessing", "evaluation", ...
	PhaseKey     = "ml.phase"
	OperationKey = "ml.operation"
	StepKey      = "ml.step" // preprocessing step: derive, drop, drop_constant

	ModelNameKey   = "model.name" // registry name, e.g. "Random Forest"
	HyperParamsKey = "model.hyperparams"
	RandomSeedKey  = "config.random_seed"

	PathKey     = "data.path"
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"
	ClassesKey  = "data.classes"
	ColumnsKey  = "data.columns"

	DurationMsKey = "perf.duration_ms"
	IterationKey  = "training.iteration" // boosting round or SMO iteration count
	AccuracyKey   = "metrics.accuracy"
	F1Key         = "metrics.f1"
	ROCAUCKey     = "metrics.roc_auc" // float or "N/A"

	ErrorKey      = "error"
	StacktraceKey = "error.stacktrace"
)

// PhaseKey values, in run order.
const (
	PhaseLoading       = "loading"
	PhasePreprocessing = "preprocessing"
	PhaseTraining      = "training"
	PhaseEvaluation    = "evaluation"
	PhaseReporting     = "reporting"
)

// OperationKey values.
const (
	OperationFit          = "fit"
	OperationPredict      = "predict"
	OperationTransform    = "transform"
	OperationFitTransform = "fit_transform"
	OperationScore        = "score"
)
