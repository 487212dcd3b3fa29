package analysis

import (
	"errors"
	"fmt"
	"image/color"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// ErrNoData is returned when a chart has nothing to draw.
var ErrNoData = errors.New("no data to chart")

// Chart file names written by RenderCharts.
const (
	HistogramFile = "avg_histogram.png"
	ScatterFile   = "stddev_scatterplot.png"
)

// PNG canvas of 1024x768 pixels at the renderer's 96 DPI.
const (
	chartWidth  = 1024 * vg.Inch / 96
	chartHeight = 768 * vg.Inch / 96
)

// scatterMaxY fixes the scatter plot's y range to [0, 15].
const scatterMaxY = 15

var (
	barColor   = color.RGBA{R: 255, A: 128}
	pointColor = color.RGBA{R: 255, A: 255}
)

// RenderHistogram draws the distribution of per-actor mean scores over the
// rating scale and saves it as a PNG at path.
func RenderHistogram(path string, means []float64) error {
	if len(means) == 0 {
		return fmt.Errorf("analysis: histogram: %w", ErrNoData)
	}

	p := plot.New()
	p.Title.Text = "Histogram of Average Trust Scores"
	p.X.Label.Text = "Average Trust Score"
	p.Y.Label.Text = "Count"

	counts := Histogram(means)
	h := &plotter.Histogram{
		Bins:      make([]plotter.HistogramBin, len(counts)),
		Width:     binWidth,
		FillColor: barColor,
		LineStyle: plotter.DefaultLineStyle,
	}
	for i, c := range counts {
		lo := histogramMin + float64(i)*binWidth
		h.Bins[i] = plotter.HistogramBin{Min: lo, Max: lo + binWidth, Weight: float64(c)}
	}
	p.Add(h)
	p.X.Min, p.X.Max = histogramMin, histogramMax
	p.Y.Min = 0

	if err := p.Save(chartWidth, chartHeight, path); err != nil {
		return fmt.Errorf("analysis: save histogram %s: %w", path, err)
	}
	return nil
}

// RenderScatter plots each actor's standard deviation against its row
// position and saves it as a PNG at path.
func RenderScatter(path string, stds []float64) error {
	if len(stds) == 0 {
		return fmt.Errorf("analysis: scatter: %w", ErrNoData)
	}

	p := plot.New()
	p.Title.Text = "Scatter Plot of Standard Deviations"
	p.X.Label.Text = "Node Label"
	p.Y.Label.Text = "Standard Deviation"

	pts := make(plotter.XYs, len(stds))
	for i, s := range stds {
		pts[i].X = float64(i)
		pts[i].Y = s
	}
	sc, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("analysis: scatter points: %w", err)
	}
	sc.GlyphStyle.Color = pointColor
	sc.GlyphStyle.Radius = vg.Points(3)
	sc.GlyphStyle.Shape = draw.CircleGlyph{}
	p.Add(sc)
	p.Y.Min, p.Y.Max = 0, scatterMaxY

	if err := p.Save(chartWidth, chartHeight, path); err != nil {
		return fmt.Errorf("analysis: save scatter %s: %w", path, err)
	}
	return nil
}

// RenderCharts writes both charts for s into dir and returns their paths.
func RenderCharts(dir string, s Summary) ([]string, error) {
	hist := filepath.Join(dir, HistogramFile)
	if err := RenderHistogram(hist, s.Means()); err != nil {
		return nil, err
	}
	scatter := filepath.Join(dir, ScatterFile)
	if err := RenderScatter(scatter, s.StdDevs()); err != nil {
		return []string{hist}, err
	}
	return []string{hist, scatter}, nil
}
