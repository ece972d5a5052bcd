package evaluation

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/nidsbench/core/model"
	"github.com/YuminosukeSato/nidsbench/metrics"
	"github.com/YuminosukeSato/nidsbench/pkg/errors"
	"github.com/YuminosukeSato/nidsbench/pkg/log"
	"github.com/YuminosukeSato/nidsbench/preprocessing"
)

// Result is the metrics record of one model. It is not modified after
// Evaluate returns it.
type Result struct {
	Name             string        `json:"name"`
	Accuracy         float64       `json:"accuracy"`
	Precision        float64       `json:"precision"`
	Recall           float64       `json:"recall"`
	F1               float64       `json:"f1"`
	BalancedAccuracy float64       `json:"balanced_accuracy"`
	MCC              float64       `json:"mcc"`
	ROCAUC           metrics.Score `json:"roc_auc"`
	FitDuration      time.Duration `json:"fit_duration"`

	// Predictions holds the predicted class index of every test row.
	Predictions []int `json:"-"`
}

// Evaluator fits and scores every model of a Registry.
type Evaluator struct {
	logger      log.Logger
	parallelism int
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithLogger sets the logger for per-model progress.
func WithLogger(logger log.Logger) EvaluatorOption {
	return func(e *Evaluator) {
		e.logger = logger
	}
}

// WithParallelism sets how many models are trained at the same time.
// 1 (the default) evaluates strictly in registry order.
func WithParallelism(n int) EvaluatorOption {
	return func(e *Evaluator) {
		e.parallelism = n
	}
}

// NewEvaluator creates a sequential Evaluator.
func NewEvaluator(opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		logger:      log.Nop(),
		parallelism: 1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate fits every model on the training partition and scores it on the
// test partition. Results follow registry order regardless of parallelism.
// The first fit or predict failure aborts the run and is returned wrapped
// with the model name.
func (e *Evaluator) Evaluate(ctx context.Context, registry Registry, data *preprocessing.Prepared) ([]Result, error) {
	if err := registry.Validate(); err != nil {
		return nil, err
	}
	if data == nil || data.XTrain == nil || data.XTest == nil {
		return nil, errors.NewModelError("Evaluator.Evaluate", "no prepared data", errors.ErrEmptyData)
	}
	if e.parallelism < 1 {
		return nil, errors.NewValidationError("parallelism", "must be at least 1", e.parallelism)
	}

	yTrue := data.YTestClasses()
	results := make([]Result, len(registry))

	if e.parallelism == 1 {
		for i, entry := range registry {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			res, err := e.evaluateOne(entry, data, yTrue)
			if err != nil {
				return nil, err
			}
			results[i] = res
		}
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)
	for i, entry := range registry {
		i, entry := i, entry
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := e.evaluateOne(entry, data, yTrue)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (e *Evaluator) evaluateOne(entry Entry, data *preprocessing.Prepared, yTrue []int) (Result, error) {
	logger := e.logger.With(log.ModelNameKey, entry.Name)
	fields := []any{
		log.PhaseKey, log.PhaseTraining,
		log.OperationKey, log.OperationFit,
		log.SamplesKey, rowsOf(data.XTrain),
	}
	if pg, ok := entry.Model.(model.ParameterGetter); ok {
		fields = append(fields, log.HyperParamsKey, pg.GetParams())
	}
	logger.Info("Training model", fields...)

	start := time.Now()
	if err := entry.Model.Fit(data.XTrain, data.YTrain); err != nil {
		return Result{}, errors.Wrapf(err, "fit %s", entry.Name)
	}
	fitDuration := time.Since(start)

	pred, err := entry.Model.Predict(data.XTest)
	if err != nil {
		return Result{}, errors.Wrapf(err, "predict %s", entry.Name)
	}
	yPred := classIndices(pred)
	logger.Debug("Predicted test set", log.OperationKey, log.OperationPredict, log.SamplesKey, len(yPred))

	res := Result{Name: entry.Name, FitDuration: fitDuration, Predictions: yPred}
	if err := scoreInto(&res, yTrue, yPred); err != nil {
		return Result{}, errors.Wrapf(err, "score %s", entry.Name)
	}
	res.ROCAUC = rocAUC(entry.Model, data.XTest, yTrue)

	logger.Info("Model evaluated",
		log.PhaseKey, log.PhaseEvaluation,
		log.OperationKey, log.OperationScore,
		log.DurationMsKey, fitDuration.Milliseconds(),
		log.AccuracyKey, res.Accuracy,
		log.F1Key, res.F1,
		log.ROCAUCKey, res.ROCAUC.String(),
	)
	if !res.ROCAUC.Valid {
		logger.Debug("ROC AUC not applicable", "reason", res.ROCAUC.Reason)
	}
	return res, nil
}

// scoreInto fills the label-based metrics of res.
func scoreInto(res *Result, yTrue, yPred []int) error {
	var err error
	if res.Accuracy, err = metrics.AccuracyScore(yTrue, yPred); err != nil {
		return err
	}
	if res.Precision, err = metrics.PrecisionScore(yTrue, yPred,
		metrics.WithAverage(metrics.AverageWeighted), metrics.WithZeroDivision(1)); err != nil {
		return err
	}
	if res.Recall, err = metrics.RecallScore(yTrue, yPred,
		metrics.WithAverage(metrics.AverageWeighted), metrics.WithZeroDivision(0)); err != nil {
		return err
	}
	if res.F1, err = metrics.F1Score(yTrue, yPred, metrics.WithAverage(metrics.AverageWeighted)); err != nil {
		return err
	}
	if res.BalancedAccuracy, err = metrics.BalancedAccuracyScore(yTrue, yPred); err != nil {
		return err
	}
	res.MCC, err = metrics.MatthewsCorrCoef(yTrue, yPred)
	return err
}

// rocAUC scores the model's probabilities. Any failure, including a panic
// inside PredictProba, yields a NotApplicable score.
func rocAUC(m model.Classifier, X mat.Matrix, yTrue []int) metrics.Score {
	var score metrics.Score
	err := errors.SafeExecute("roc_auc", func() error {
		proba, err := m.PredictProba(X)
		if err != nil {
			return err
		}
		score = metrics.ROCAUCScore(yTrue, proba, m.Classes())
		return nil
	})
	if err != nil {
		return metrics.NotApplicable(err.Error())
	}
	return score
}

func classIndices(m mat.Matrix) []int {
	r, _ := m.Dims()
	out := make([]int, r)
	for i := range out {
		out[i] = int(m.At(i, 0))
	}
	return out
}

func rowsOf(m mat.Matrix) int {
	r, _ := m.Dims()
	return r
}
