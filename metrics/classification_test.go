package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/nidsbench/pkg/errors"
)

func TestAccuracyScore(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   []int
		yPred   []int
		want    float64
		wantErr bool
	}{
		{
			name:  "Perfect accuracy",
			yTrue: []int{0, 1, 2, 1, 0},
			yPred: []int{0, 1, 2, 1, 0},
			want:  1.0,
		},
		{
			name:  "80% accuracy",
			yTrue: []int{0, 1, 2, 1, 0},
			yPred: []int{0, 1, 1, 1, 0},
			want:  0.8,
		},
		{
			name:  "Zero accuracy",
			yTrue: []int{0, 0, 0},
			yPred: []int{1, 1, 1},
			want:  0.0,
		},
		{
			name:    "Empty vectors",
			yTrue:   []int{},
			yPred:   []int{},
			wantErr: true,
		},
		{
			name:    "Length mismatch",
			yTrue:   []int{0, 1},
			yPred:   []int{0},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AccuracyScore(tt.yTrue, tt.yPred)
			if (err != nil) != tt.wantErr {
				t.Errorf("AccuracyScore() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("AccuracyScore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfusionMatrix(t *testing.T) {
	cm, err := ConfusionMatrix([]int{0, 0, 1, 2, 2}, []int{0, 1, 1, 2, 0}, 3)
	require.NoError(t, err)
	want := mat.NewDense(3, 3, []float64{
		1, 1, 0,
		0, 1, 0,
		1, 0, 1,
	})
	assert.True(t, mat.Equal(want, cm))

	_, err = ConfusionMatrix([]int{0, 3}, []int{0, 0}, 3)
	var valErr *errors.ValidationError
	assert.True(t, errors.As(err, &valErr))
}

// yTrue/yPred where class 2 is never predicted.
var (
	partialTrue = []int{0, 0, 1, 1, 2, 2}
	partialPred = []int{0, 0, 1, 1, 1, 1}
)

func TestAveragedScores(t *testing.T) {
	errors.SetWarningHandler(func(error) {})

	tests := []struct {
		name  string
		score func([]int, []int, ...Option) (float64, error)
		opts  []Option
		want  float64
	}{
		{"precision weighted zero_division=1", PrecisionScore, []Option{WithZeroDivision(1)}, 2.5 / 3},
		{"precision weighted zero_division=0", PrecisionScore, nil, 0.5},
		{"precision macro zero_division=1", PrecisionScore, []Option{WithAverage(AverageMacro), WithZeroDivision(1)}, 2.5 / 3},
		{"precision micro", PrecisionScore, []Option{WithAverage(AverageMicro)}, 4.0 / 6},
		{"recall weighted", RecallScore, nil, 2.0 / 3},
		{"recall micro", RecallScore, []Option{WithAverage(AverageMicro)}, 4.0 / 6},
		{"f1 weighted", F1Score, nil, (1 + 2.0/3) / 3},
		{"f1 micro", F1Score, []Option{WithAverage(AverageMicro)}, 4.0 / 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.score(partialTrue, partialPred, tt.opts...)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestWeightedScoresUseTrueSupport(t *testing.T) {
	// class 0: support 3, precision 1; class 1: support 1, precision 0.5
	yTrue := []int{0, 0, 0, 1}
	yPred := []int{0, 0, 1, 1}

	got, err := PrecisionScore(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, (3*1.0+1*0.5)/4, got, 1e-12)
}

func TestPrecisionZeroDivisionWarns(t *testing.T) {
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	t.Cleanup(func() { errors.SetWarningHandler(func(error) {}) })

	_, err := PrecisionScore(partialTrue, partialPred, WithZeroDivision(1))
	require.NoError(t, err)

	require.Len(t, warnings, 1)
	var w *errors.UndefinedMetricWarning
	require.True(t, errors.As(warnings[0], &w))
	assert.Equal(t, "precision", w.Metric)
	assert.Equal(t, 1.0, w.Result)
}

func TestInvalidAverage(t *testing.T) {
	_, err := F1Score([]int{0, 1}, []int{0, 1}, WithAverage("samples"))
	var valErr *errors.ValidationError
	assert.True(t, errors.As(err, &valErr))
}

func TestBalancedAccuracyScore(t *testing.T) {
	got, err := BalancedAccuracyScore(partialTrue, partialPred)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3, got, 1e-12)

	// class 2 appears only in the predictions and is not averaged
	got, err = BalancedAccuracyScore([]int{0, 0, 1}, []int{0, 2, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.75, got, 1e-12)
}

func TestMatthewsCorrCoef(t *testing.T) {
	tests := []struct {
		name  string
		yTrue []int
		yPred []int
		want  float64
	}{
		{"perfect", []int{0, 1, 2, 0}, []int{0, 1, 2, 0}, 1},
		{"binary", []int{1, 1, 0, 0}, []int{1, 0, 0, 0}, 2 / math.Sqrt(12)},
		{"multiclass", partialTrue, partialPred, 12 / math.Sqrt(384)},
		{"constant prediction", []int{0, 1, 0, 1}, []int{0, 0, 0, 0}, 0},
		{"inverted", []int{0, 1, 0, 1}, []int{1, 0, 1, 0}, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MatthewsCorrCoef(tt.yTrue, tt.yPred)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestUniqueLabels(t *testing.T) {
	assert.Equal(t, []int{0, 1, 4}, UniqueLabels([]int{4, 0}, []int{1, 0}))
}
