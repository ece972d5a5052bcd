package evaluation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/nidsbench/core/model"
	"github.com/YuminosukeSato/nidsbench/pkg/errors"
	"github.com/YuminosukeSato/nidsbench/pkg/log"
	"github.com/YuminosukeSato/nidsbench/preprocessing"
	"github.com/YuminosukeSato/nidsbench/sklearn/naive_bayes"
	"github.com/YuminosukeSato/nidsbench/sklearn/tree"
)

// prepared returns three well separated classes with four training and two
// test rows each.
func prepared() *preprocessing.Prepared {
	var xTrain, yTrain, xTest, yTest []float64
	for c := 0; c < 3; c++ {
		center := float64(10 * c)
		for i := 0; i < 4; i++ {
			xTrain = append(xTrain, center+0.1*float64(i), float64(i%2))
			yTrain = append(yTrain, float64(c))
		}
		for i := 0; i < 2; i++ {
			xTest = append(xTest, center+0.05+0.1*float64(i), float64(i))
			yTest = append(yTest, float64(c))
		}
	}
	return &preprocessing.Prepared{
		FeatureNames: []string{"bytes", "flag"},
		ClassNames:   []string{"Normal", "Probe", "DoS"},
		XTrain:       mat.NewDense(12, 2, xTrain),
		YTrain:       mat.NewDense(12, 1, yTrain),
		XTest:        mat.NewDense(6, 2, xTest),
		YTest:        mat.NewDense(6, 1, yTest),
	}
}

// stubModel predicts class 0 for everything and fails on demand.
type stubModel struct {
	fitErr     error
	probaErr   error
	panicProba bool
	classes    []int
}

func (s *stubModel) Fit(X, y mat.Matrix) error {
	if s.fitErr != nil {
		return s.fitErr
	}
	_, classes, err := model.ClassLabels("stubModel.Fit", X, y)
	s.classes = classes
	return err
}

func (s *stubModel) Predict(X mat.Matrix) (mat.Matrix, error) {
	r, _ := X.Dims()
	return model.ColumnVector(make([]int, r)), nil
}

func (s *stubModel) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if s.panicProba {
		panic("index out of range")
	}
	return nil, s.probaErr
}

func (s *stubModel) Classes() []int { return s.classes }

func TestEvaluateRegistryOrder(t *testing.T) {
	registry := Registry{
		{Name: NaiveBayes, Model: naive_bayes.NewGaussianNB()},
		{Name: "No Probabilities", Model: &stubModel{probaErr: errors.ErrProbabilityUnavailable}},
		{Name: DecisionTree, Model: tree.NewDecisionTreeClassifier()},
	}

	results, err := NewEvaluator().Evaluate(context.Background(), registry, prepared())
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, []string{NaiveBayes, "No Probabilities", DecisionTree},
		[]string{results[0].Name, results[1].Name, results[2].Name})

	nb := results[0]
	assert.Equal(t, 1.0, nb.Accuracy)
	assert.Equal(t, 1.0, nb.Precision)
	assert.Equal(t, 1.0, nb.Recall)
	assert.Equal(t, 1.0, nb.F1)
	assert.Equal(t, 1.0, nb.BalancedAccuracy)
	assert.InDelta(t, 1.0, nb.MCC, 1e-12)
	require.True(t, nb.ROCAUC.Valid)
	assert.InDelta(t, 1.0, nb.ROCAUC.Value, 1e-12)
	assert.Equal(t, []int{0, 0, 1, 1, 2, 2}, nb.Predictions)

	stub := results[1]
	assert.False(t, stub.ROCAUC.Valid)
	assert.Equal(t, "N/A", stub.ROCAUC.String())
	assert.InDelta(t, 1.0/3, stub.Accuracy, 1e-12)
	// classes 1 and 2 are never predicted: precision falls back to 1 for them
	assert.InDelta(t, 1.0/3*(1.0/3)+2.0/3, stub.Precision, 1e-12)
	assert.InDelta(t, 1.0/3, stub.Recall, 1e-12)
	assert.Equal(t, 0.0, stub.MCC)
}

func TestEvaluateRecoversProbabilityPanic(t *testing.T) {
	registry := Registry{{Name: "Panics", Model: &stubModel{panicProba: true}}}
	results, err := NewEvaluator().Evaluate(context.Background(), registry, prepared())
	require.NoError(t, err)
	assert.False(t, results[0].ROCAUC.Valid)
	assert.Contains(t, results[0].ROCAUC.Reason, "panic")
}

func TestEvaluateFitFailure(t *testing.T) {
	registry := Registry{{Name: "Broken", Model: &stubModel{fitErr: errors.New("singular matrix")}}}
	_, err := NewEvaluator().Evaluate(context.Background(), registry, prepared())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fit Broken")
	assert.Contains(t, err.Error(), "singular matrix")
}

func TestEvaluateParallelMatchesSequential(t *testing.T) {
	build := func() Registry {
		return Registry{
			{Name: DecisionTree, Model: tree.NewDecisionTreeClassifier(tree.WithRandomState(1))},
			{Name: NaiveBayes, Model: naive_bayes.NewGaussianNB()},
			{Name: "Stub", Model: &stubModel{probaErr: errors.ErrProbabilityUnavailable}},
		}
	}
	seq, err := NewEvaluator().Evaluate(context.Background(), build(), prepared())
	require.NoError(t, err)
	par, err := NewEvaluator(WithParallelism(3)).Evaluate(context.Background(), build(), prepared())
	require.NoError(t, err)

	require.Len(t, par, len(seq))
	for i := range seq {
		assert.Equal(t, seq[i].Name, par[i].Name)
		assert.Equal(t, seq[i].Accuracy, par[i].Accuracy)
		assert.Equal(t, seq[i].ROCAUC, par[i].ROCAUC)
		assert.Equal(t, seq[i].Predictions, par[i].Predictions)
	}
}

func TestEvaluateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewEvaluator().Evaluate(ctx, Registry{{Name: NaiveBayes, Model: naive_bayes.NewGaussianNB()}}, prepared())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEvaluateInvalidInput(t *testing.T) {
	_, err := NewEvaluator().Evaluate(context.Background(), nil, prepared())
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))

	registry := Registry{{Name: NaiveBayes, Model: naive_bayes.NewGaussianNB()}}
	_, err = NewEvaluator().Evaluate(context.Background(), registry, nil)
	assert.True(t, errors.Is(err, errors.ErrEmptyData))

	_, err = NewEvaluator(WithParallelism(0)).Evaluate(context.Background(), registry, prepared())
	assert.True(t, errors.As(err, &ve))
}

func TestEvaluateLogs(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelInfo)
	registry := Registry{{Name: NaiveBayes, Model: naive_bayes.NewGaussianNB()}}
	_, err := NewEvaluator(WithLogger(logger)).Evaluate(context.Background(), registry, prepared())
	require.NoError(t, err)

	assert.True(t, logger.ContainsMessage("Model evaluated"))
	assert.True(t, logger.ContainsField(log.ModelNameKey, NaiveBayes))
	assert.True(t, logger.ContainsField(log.AccuracyKey, 1.0))
}
