package preprocessing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/nidsbench/dataset"
	"github.com/YuminosukeSato/nidsbench/pkg/errors"
	"github.com/YuminosukeSato/nidsbench/pkg/log"
)

func toyFrame(t *testing.T) *dataset.Frame {
	t.Helper()
	f := dataset.NewFrame()
	require.NoError(t, f.AddNumeric("table_id", []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}))
	require.NoError(t, f.AddNumeric("packets_looked_up", []float64{10, 11, 12, 13, 14, 15, 16, 17, 18, 19}))
	require.NoError(t, f.AddNumeric("packets_matched", []float64{1, 3, 2, 5, 4, 7, 6, 9, 8, 0}))
	require.NoError(t, f.AddCategorical("proto", []string{"tcp", "udp", "tcp", "udp", "icmp", "tcp", "udp", "tcp", "udp", "tcp"}))
	require.NoError(t, f.AddCategorical("flag", []string{"x", "x", "x", "x", "x", "x", "x", "x", "x", "y"}))
	require.NoError(t, f.AddCategorical("label", []string{"A", "A", "A", "A", "A", "A", "A", "A", "B", "Overflow"}))
	return f
}

func captureWarnings(t *testing.T) *[]error {
	t.Helper()
	var got []error
	errors.SetWarningHandler(func(w error) { got = append(got, w) })
	t.Cleanup(func() { errors.SetWarningHandler(func(error) {}) })
	return &got
}

func TestPipelinePrune(t *testing.T) {
	frame := toyFrame(t)
	p := NewPipeline(DefaultPipelineConfig())

	pruned, err := p.Prune(frame)
	require.NoError(t, err)

	assert.Equal(t, 9, pruned.NRows())
	// flag is constant once the Overflow row is gone
	assert.Equal(t, []string{"packets_looked_up", "packets_matched", "proto", "label", "packets_not_found"}, pruned.Names())

	derived, ok := pruned.Column("packets_not_found")
	require.True(t, ok)
	assert.Equal(t, []float64{9, 8, 10, 8, 10, 8, 10, 8, 10}, derived.Numbers)

	label, _ := pruned.Column("label")
	assert.NotContains(t, label.Strings, "Overflow")

	for _, name := range pruned.Names() {
		c, _ := pruned.Column(name)
		assert.Greater(t, c.NUnique(), 1, name)
	}

	// input is untouched
	assert.Equal(t, 10, frame.NRows())
	assert.True(t, frame.Has("table_id", "flag"))
	assert.False(t, frame.Has("packets_not_found"))
}

func TestPipelineDropsMissingOnlyColumn(t *testing.T) {
	frame := toyFrame(t)
	empty := make([]float64, frame.NRows())
	for i := range empty {
		empty[i] = math.NaN()
	}
	require.NoError(t, frame.AddNumeric("flow_ratio", empty))

	assert.Equal(t, []string{"table_id", "flow_ratio"}, DropConstantColumns(frame, "label"))

	frame = toyFrame(t)
	require.NoError(t, frame.AddNumeric("flow_ratio", empty))
	prepared, err := NewPipeline(DefaultPipelineConfig()).Prepare(frame)
	require.NoError(t, err)
	assert.NotContains(t, prepared.FeatureNames, "flow_ratio")
}

func TestDeriveDifferenceMissingInput(t *testing.T) {
	warnings := captureWarnings(t)

	frame := toyFrame(t)
	frame.Drop("packets_matched")
	assert.False(t, DeriveDifference(frame, *DefaultPipelineConfig().Derived))
	assert.False(t, frame.Has("packets_not_found"))

	require.Len(t, *warnings, 1)
	var mc *errors.MissingColumnWarning
	require.True(t, errors.As((*warnings)[0], &mc))
	assert.Equal(t, []string{"packets_matched"}, mc.Columns)
}

func TestExcludeLabelsMissingColumn(t *testing.T) {
	warnings := captureWarnings(t)

	frame := toyFrame(t)
	out := ExcludeLabels(frame, "class", []string{"Overflow"})
	assert.Equal(t, 10, out.NRows())
	assert.Len(t, *warnings, 1)
}

func TestPipelinePrepare(t *testing.T) {
	for _, scope := range []string{FitScopeTrain, FitScopeFull} {
		t.Run(scope, func(t *testing.T) {
			cfg := DefaultPipelineConfig()
			cfg.FitScope = scope
			logger, _ := log.NewTestLogger(log.LevelDebug)

			prepared, err := NewPipeline(cfg, WithPipelineLogger(logger)).Prepare(toyFrame(t))
			require.NoError(t, err)

			assert.Equal(t, []string{"packets_looked_up", "packets_matched", "proto", "packets_not_found"}, prepared.FeatureNames)
			assert.Equal(t, []string{"A", "B"}, prepared.ClassNames)

			rTrain, cTrain := prepared.XTrain.Dims()
			rTest, cTest := prepared.XTest.Dims()
			assert.Equal(t, 7, rTrain)
			assert.Equal(t, 2, rTest)
			assert.Equal(t, 4, cTrain)
			assert.Equal(t, 4, cTest)
			assert.Len(t, prepared.TrainLabels, 7)
			assert.Len(t, prepared.TestLabels, 2)

			for i, c := range prepared.YTestClasses() {
				assert.Equal(t, prepared.ClassNames[c], prepared.TestLabels[i])
			}
			for i, c := range prepared.YTrainClasses() {
				assert.Equal(t, prepared.ClassNames[c], prepared.TrainLabels[i])
			}

			assert.True(t, logger.ContainsMessage("Prepared dataset"))
			assert.True(t, logger.ContainsField("fit_scope", scope))
		})
	}
}

func TestPipelinePrepareTrainScopeStandardizesTrain(t *testing.T) {
	prepared, err := NewPipeline(DefaultPipelineConfig()).Prepare(toyFrame(t))
	require.NoError(t, err)

	col := make([]float64, 7)
	for j := 0; j < 4; j++ {
		mat.Col(col, j, prepared.XTrain)
		mean, variance := stat.PopMeanVariance(col, nil)
		assert.InDelta(t, 0, mean, 1e-9)
		if variance > 1e-12 {
			assert.InDelta(t, 1, variance, 1e-9)
		}
	}
}

func TestPipelinePrepareFullScopeStandardizesAll(t *testing.T) {
	cfg := DefaultPipelineConfig()
	cfg.FitScope = FitScopeFull
	prepared, err := NewPipeline(cfg).Prepare(toyFrame(t))
	require.NoError(t, err)

	all := mat.NewDense(9, 4, nil)
	all.Stack(prepared.XTrain, prepared.XTest)
	col := make([]float64, 9)
	for j := 0; j < 4; j++ {
		mat.Col(col, j, all)
		mean, variance := stat.PopMeanVariance(col, nil)
		assert.InDelta(t, 0, mean, 1e-9)
		assert.InDelta(t, 1, variance, 1e-9)
	}
}

func TestPipelinePrepareDeterministic(t *testing.T) {
	a, err := NewPipeline(DefaultPipelineConfig()).Prepare(toyFrame(t))
	require.NoError(t, err)
	b, err := NewPipeline(DefaultPipelineConfig()).Prepare(toyFrame(t))
	require.NoError(t, err)

	assert.True(t, mat.Equal(a.XTrain, b.XTrain))
	assert.Equal(t, a.TestLabels, b.TestLabels)
}

func TestPipelinePrepareErrors(t *testing.T) {
	t.Run("missing label", func(t *testing.T) {
		captureWarnings(t)
		cfg := DefaultPipelineConfig()
		cfg.LabelColumn = "class"
		_, err := NewPipeline(cfg).Prepare(toyFrame(t))
		var valErr *errors.ValidationError
		assert.True(t, errors.As(err, &valErr))
	})

	t.Run("label only", func(t *testing.T) {
		captureWarnings(t)
		f := dataset.NewFrame()
		require.NoError(t, f.AddCategorical("label", []string{"A", "B", "A"}))
		_, err := NewPipeline(DefaultPipelineConfig()).Prepare(f)
		var valErr *errors.ValidationError
		assert.True(t, errors.As(err, &valErr))
	})

	t.Run("everything excluded", func(t *testing.T) {
		f := dataset.NewFrame()
		require.NoError(t, f.AddNumeric("x", []float64{1, 2}))
		require.NoError(t, f.AddCategorical("label", []string{"Overflow", "Overflow"}))
		_, err := NewPipeline(DefaultPipelineConfig()).Prepare(f)
		assert.True(t, errors.Is(err, errors.ErrEmptyData))
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := DefaultPipelineConfig()
		cfg.FitScope = "test"
		_, err := NewPipeline(cfg).Prepare(toyFrame(t))
		var valErr *errors.ValidationError
		assert.True(t, errors.As(err, &valErr))
	})
}
