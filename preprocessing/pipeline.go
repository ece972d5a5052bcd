package preprocessing

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/nidsbench/core/model"
	"github.com/YuminosukeSato/nidsbench/dataset"
	"github.com/YuminosukeSato/nidsbench/model_selection"
	"github.com/YuminosukeSato/nidsbench/pkg/errors"
	"github.com/YuminosukeSato/nidsbench/pkg/log"
)

// Fit scopes for the encoder and scaler.
const (
	// FitScopeTrain fits on the training partition and applies to both.
	FitScopeTrain = "train"
	// FitScopeFull fits on every retained row before splitting.
	FitScopeFull = "full"
)

// DerivedColumn describes Name = Minuend - Subtrahend.
type DerivedColumn struct {
	Name       string
	Minuend    string
	Subtrahend string
}

// PipelineConfig controls the preprocessing steps.
type PipelineConfig struct {
	LabelColumn    string
	Derived        *DerivedColumn
	ExcludedLabels []string
	DropColumns    []string
	FitScope       string
	Scaler         string
	TestSize       float64
	RandomState    int64
}

// DefaultPipelineConfig returns the configuration used for the KDD-style
// OpenFlow table dataset.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		LabelColumn: "label",
		Derived: &DerivedColumn{
			Name:       "packets_not_found",
			Minuend:    "packets_looked_up",
			Subtrahend: "packets_matched",
		},
		ExcludedLabels: []string{"Overflow"},
		DropColumns:    []string{"table_id", "max_size", "is_valid"},
		FitScope:       FitScopeTrain,
		Scaler:         ScalerStandard,
		TestSize:       model_selection.DefaultTestSize,
		RandomState:    model_selection.DefaultRandomState,
	}
}

// Validate checks the configuration values.
func (c PipelineConfig) Validate() error {
	if c.LabelColumn == "" {
		return errors.NewValidationError("label_column", "must not be empty", c.LabelColumn)
	}
	if c.FitScope != FitScopeTrain && c.FitScope != FitScopeFull {
		return errors.NewValidationError("fit_scope", "must be \"train\" or \"full\"", c.FitScope)
	}
	if c.Scaler != ScalerStandard && c.Scaler != ScalerMinMax {
		return errors.NewValidationError("scaler", "must be \"standard\" or \"minmax\"", c.Scaler)
	}
	if !(c.TestSize > 0 && c.TestSize < 1) {
		return errors.NewValidationError("test_size", "must be in the open interval (0, 1)", c.TestSize)
	}
	return nil
}

// Prepared holds the model-ready matrices produced by Pipeline.Prepare.
type Prepared struct {
	FeatureNames []string
	// ClassNames[i] is the name of class index i.
	ClassNames []string

	XTrain *mat.Dense
	XTest  *mat.Dense
	YTrain *mat.Dense
	YTest  *mat.Dense

	TrainLabels []string
	TestLabels  []string

	Encoder      *OrdinalEncoder
	LabelEncoder *LabelEncoder
	Scaler       model.InvertibleTransformer
}

// YTestClasses returns YTest as class indices.
func (p *Prepared) YTestClasses() []int {
	return columnInts(p.YTest)
}

// YTrainClasses returns YTrain as class indices.
func (p *Prepared) YTrainClasses() []int {
	return columnInts(p.YTrain)
}

func columnInts(m *mat.Dense) []int {
	r, _ := m.Dims()
	out := make([]int, r)
	for i := range out {
		out[i] = int(m.At(i, 0))
	}
	return out
}

// Pipeline turns a raw Frame into train/test matrices.
type Pipeline struct {
	cfg    PipelineConfig
	logger log.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithPipelineLogger sets the logger used for step diagnostics.
func WithPipelineLogger(logger log.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// NewPipeline creates a Pipeline.
func NewPipeline(cfg PipelineConfig, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{cfg: cfg, logger: log.Nop()}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(log.ComponentKey, "preprocessing")
	return p
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() PipelineConfig {
	return p.cfg
}

// Prune applies the row and column filters (derive, exclude labels, drop
// listed columns, drop constant columns) and returns a new frame. The input
// frame is not modified.
func (p *Pipeline) Prune(frame *dataset.Frame) (*dataset.Frame, error) {
	if err := p.cfg.Validate(); err != nil {
		return nil, err
	}
	out := frame.Clone()

	if d := p.cfg.Derived; d != nil {
		if DeriveDifference(out, *d) {
			p.logger.Debug("Derived column", log.StepKey, "derive", log.ColumnsKey, []string{d.Name})
		}
	}

	out = ExcludeLabels(out, p.cfg.LabelColumn, p.cfg.ExcludedLabels)

	if dropped := out.Drop(p.cfg.DropColumns...); len(dropped) > 0 {
		p.logger.Debug("Dropped columns", log.StepKey, "drop", log.ColumnsKey, dropped)
	}

	if constant := DropConstantColumns(out, p.cfg.LabelColumn); len(constant) > 0 {
		p.logger.Info("Dropped constant columns", log.StepKey, "drop_constant", log.ColumnsKey, constant)
	}

	if out.NRows() == 0 {
		return nil, errors.NewModelError("Pipeline.Prune", "no rows left after filtering", errors.ErrEmptyData)
	}
	return out, nil
}

// Prepare runs the full pipeline: Prune, split, ordinal encoding, label
// encoding and scaling.
func (p *Pipeline) Prepare(frame *dataset.Frame) (*Prepared, error) {
	pruned, err := p.Prune(frame)
	if err != nil {
		return nil, err
	}

	labelCol, ok := pruned.Column(p.cfg.LabelColumn)
	if !ok {
		return nil, errors.NewValidationError("label_column", "column not present in dataset", p.cfg.LabelColumn)
	}
	var features []*dataset.Column
	for _, name := range pruned.Names() {
		if name == p.cfg.LabelColumn {
			continue
		}
		c, _ := pruned.Column(name)
		features = append(features, c)
	}
	if len(features) == 0 {
		return nil, errors.NewValidationError("features", "no feature columns left after filtering", pruned.Names())
	}

	labels := labelCol.Values()
	labelEnc := NewLabelEncoder()
	y, err := labelEnc.FitTransform(labels)
	if err != nil {
		return nil, err
	}

	n := pruned.NRows()
	split, err := model_selection.TrainTestSplit(n, p.cfg.TestSize, p.cfg.RandomState)
	if err != nil {
		return nil, err
	}
	fitRows := split.Train
	if p.cfg.FitScope == FitScopeFull {
		fitRows = allRows(n)
	}

	encoder, X, err := encodeFeatures(features, fitRows)
	if err != nil {
		return nil, err
	}

	scaler, err := NewScaler(p.cfg.Scaler)
	if err != nil {
		return nil, err
	}
	if err := scaler.Fit(model_selection.TakeRows(X, fitRows)); err != nil {
		return nil, err
	}
	scaled, err := scaler.Transform(X)
	if err != nil {
		return nil, err
	}
	if err := errors.CheckMatrix("scale", scaled, n, len(features), 0); err != nil {
		return nil, err
	}
	p.logger.Debug("Scaled features",
		log.OperationKey, log.OperationTransform,
		log.ModelNameKey, fmt.Sprint(scaler),
		log.SamplesKey, len(fitRows),
	)

	names := make([]string, len(features))
	for j, c := range features {
		names[j] = c.Name
	}

	prepared := &Prepared{
		FeatureNames: names,
		ClassNames:   labelEnc.Classes(),
		XTrain:       model_selection.TakeRows(scaled, split.Train),
		XTest:        model_selection.TakeRows(scaled, split.Test),
		YTrain:       model.ColumnVector(model_selection.TakeInts(y, split.Train)),
		YTest:        model.ColumnVector(model_selection.TakeInts(y, split.Test)),
		TrainLabels:  model_selection.TakeStrings(labels, split.Train),
		TestLabels:   model_selection.TakeStrings(labels, split.Test),
		Encoder:      encoder,
		LabelEncoder: labelEnc,
		Scaler:       scaler,
	}

	p.logger.Info("Prepared dataset",
		log.PhaseKey, log.PhasePreprocessing,
		log.OperationKey, log.OperationFitTransform,
		log.SamplesKey, n,
		log.FeaturesKey, len(features),
		log.ClassesKey, len(prepared.ClassNames),
		"fit_scope", p.cfg.FitScope,
	)
	return prepared, nil
}

// encodeFeatures builds the n×d feature matrix. Categorical columns are
// ordinal-encoded with an encoder fitted on fitRows.
func encodeFeatures(features []*dataset.Column, fitRows []int) (*OrdinalEncoder, *mat.Dense, error) {
	n := features[0].Len()
	X := mat.NewDense(n, len(features), nil)

	var catIdx []int
	var catFull, catFit [][]string
	for j, c := range features {
		if c.IsNumeric() {
			X.SetCol(j, c.Numbers)
			continue
		}
		catIdx = append(catIdx, j)
		catFull = append(catFull, c.Strings)
		catFit = append(catFit, model_selection.TakeStrings(c.Strings, fitRows))
	}

	encoder := NewOrdinalEncoder()
	if len(catIdx) == 0 {
		return encoder, X, nil
	}
	if err := encoder.Fit(catFit); err != nil {
		return nil, nil, err
	}
	encoded, err := encoder.Transform(catFull)
	if err != nil {
		return nil, nil, err
	}
	for k, j := range catIdx {
		X.SetCol(j, encoded[k])
	}
	return encoder, X, nil
}

func allRows(n int) []int {
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return rows
}

// DeriveDifference adds d.Name = d.Minuend - d.Subtrahend when both inputs
// exist and are numeric, and reports whether the column was added. Otherwise
// a warning is emitted and the frame is left unchanged.
func DeriveDifference(frame *dataset.Frame, d DerivedColumn) bool {
	const step = "derive"
	a, okA := frame.Column(d.Minuend)
	b, okB := frame.Column(d.Subtrahend)
	if !okA || !okB {
		var missing []string
		if !okA {
			missing = append(missing, d.Minuend)
		}
		if !okB {
			missing = append(missing, d.Subtrahend)
		}
		errors.Warn(errors.NewMissingColumnWarning(step+" "+d.Name, missing...))
		return false
	}
	if !a.IsNumeric() || !b.IsNumeric() {
		errors.Warn(errors.NewDataConversionWarning("string", "float64",
			"derive "+d.Name+": "+d.Minuend+" and "+d.Subtrahend+" must be numeric"))
		return false
	}

	diff := make([]float64, a.Len())
	for i := range diff {
		diff[i] = a.Numbers[i] - b.Numbers[i]
	}
	frame.Drop(d.Name)
	if err := frame.AddNumeric(d.Name, diff); err != nil {
		errors.Warn(err)
		return false
	}
	return true
}

// ExcludeLabels returns the rows whose label is not in excluded. Labels are
// compared by their literal text. A missing label column leaves the frame
// unchanged with a warning.
func ExcludeLabels(frame *dataset.Frame, labelColumn string, excluded []string) *dataset.Frame {
	if len(excluded) == 0 {
		return frame
	}
	label, ok := frame.Column(labelColumn)
	if !ok {
		errors.Warn(errors.NewMissingColumnWarning("exclude labels", labelColumn))
		return frame
	}
	drop := make(map[string]bool, len(excluded))
	for _, e := range excluded {
		drop[e] = true
	}
	return frame.Filter(func(i int) bool {
		return !drop[label.Value(i)]
	})
}

// DropConstantColumns removes every column except keep that has at most one
// distinct value, and returns the removed names.
func DropConstantColumns(frame *dataset.Frame, keep string) []string {
	var constant []string
	for _, name := range frame.Names() {
		if name == keep {
			continue
		}
		if c, _ := frame.Column(name); c.NUnique() <= 1 {
			constant = append(constant, name)
		}
	}
	frame.Drop(constant...)
	return constant
}
