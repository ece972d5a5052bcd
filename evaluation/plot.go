package evaluation

import (
	"fmt"
	"math"
	"strconv"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/nidsbench/metrics"
	"github.com/YuminosukeSato/nidsbench/pkg/errors"
)

// confusionGrid exposes a confusion matrix as a heat map grid. Column c is
// the predicted class, row r the true class; true class 0 is drawn on top.
type confusionGrid struct {
	cm *mat.Dense
	n  int
}

func (g confusionGrid) Dims() (c, r int)   { return g.n, g.n }
func (g confusionGrid) Z(c, r int) float64 { return g.cm.At(g.n-1-r, c) }
func (g confusionGrid) X(c int) float64    { return float64(c) }
func (g confusionGrid) Y(r int) float64    { return float64(r) }

// PlotConfusionMatrix renders the confusion matrix of yTrue against yPred as
// an annotated heat map and saves it to path. Only classes present in yTrue
// or yPred get a row and column. The image format follows the file extension.
func PlotConfusionMatrix(path string, classNames []string, yTrue, yPred []int, title string) error {
	cm, names, err := displayedConfusion(classNames, yTrue, yPred)
	if err != nil {
		return err
	}
	p, err := confusionPlot(cm, names, title)
	if err != nil {
		return err
	}

	side := vg.Length(math.Max(6, 0.6*float64(len(names))+3)) * vg.Inch
	if err := p.Save(side, side, path); err != nil {
		return errors.Wrapf(err, "save confusion matrix to %s", path)
	}
	return nil
}

// displayedConfusion restricts the confusion matrix to the classes observed
// in yTrue or yPred and returns their names in class order.
func displayedConfusion(classNames []string, yTrue, yPred []int) (*mat.Dense, []string, error) {
	labels := metrics.UniqueLabels(yTrue, yPred)
	pos := make(map[int]int, len(labels))
	names := make([]string, len(labels))
	for i, c := range labels {
		if c < 0 || c >= len(classNames) {
			return nil, nil, errors.NewValueError("PlotConfusionMatrix",
				fmt.Sprintf("class %d has no name (%d classes)", c, len(classNames)))
		}
		pos[c] = i
		names[i] = classNames[c]
	}
	remap := func(y []int) []int {
		out := make([]int, len(y))
		for i, c := range y {
			out[i] = pos[c]
		}
		return out
	}
	cm, err := metrics.ConfusionMatrix(remap(yTrue), remap(yPred), len(labels))
	if err != nil {
		return nil, nil, err
	}
	return cm, names, nil
}

func confusionPlot(cm *mat.Dense, classNames []string, title string) (*plot.Plot, error) {
	n := len(classNames)
	grid := confusionGrid{cm: cm, n: n}

	heat := plotter.NewHeatMap(grid, palette.Heat(64, 1))
	if heat.Max <= heat.Min {
		heat.Max = heat.Min + 1
	}

	xys := make(plotter.XYs, 0, n*n)
	labels := make([]string, 0, n*n)
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			xys = append(xys, plotter.XY{X: grid.X(c), Y: grid.Y(r)})
			labels = append(labels, strconv.FormatFloat(grid.Z(c, r), 'f', -1, 64))
		}
	}
	counts, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: labels})
	if err != nil {
		return nil, errors.Wrap(err, "confusion matrix labels")
	}
	for i := range counts.TextStyle {
		counts.TextStyle[i].XAlign = text.XCenter
		counts.TextStyle[i].YAlign = text.YCenter
	}

	xTicks := make([]plot.Tick, n)
	yTicks := make([]plot.Tick, n)
	for i, name := range classNames {
		xTicks[i] = plot.Tick{Value: float64(i), Label: name}
		yTicks[i] = plot.Tick{Value: float64(n - 1 - i), Label: name}
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Predicted label"
	p.Y.Label.Text = "True label"
	p.X.Tick.Marker = plot.ConstantTicks(xTicks)
	p.Y.Tick.Marker = plot.ConstantTicks(yTicks)
	p.X.Tick.Label.Rotation = math.Pi / 2
	p.X.Tick.Label.XAlign = text.XRight
	p.X.Tick.Label.YAlign = text.YCenter
	p.Add(heat, counts)
	return p, nil
}
