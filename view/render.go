package view

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Formats lists the supported output formats.
var Formats = []string{"png", "svg", "pdf"}

// Render draws the chart to w in the given format (png, svg or pdf).  A
// single-variable chart is drawn as two aligned panels, the lines above
// the weight bars.
func Render(c *Chart, w io.Writer, format string, width, height vg.Length) error {

	format = strings.ToLower(format)
	cw, err := draw.NewFormattedCanvas(width, height, format)
	if err != nil {
		return fmt.Errorf("render %s: %w", format, err)
	}
	dc := draw.New(cw)

	top, err := linePlot(c)
	if err != nil {
		return err
	}

	if c.Bars == nil {
		top.Draw(dc)
	} else {
		bottom, err := barPlot(c, width)
		if err != nil {
			return err
		}
		plots := [][]*plot.Plot{{top}, {bottom}}
		tiles := draw.Tiles{
			Rows:      2,
			Cols:      1,
			PadX:      vg.Millimeter,
			PadY:      vg.Millimeter,
			PadTop:    vg.Points(2),
			PadBottom: vg.Points(2),
			PadLeft:   vg.Points(2),
			PadRight:  vg.Points(2),
		}
		canvases := plot.Align(plots, tiles, dc)
		top.Draw(canvases[0][0])
		bottom.Draw(canvases[1][0])
	}

	if _, err := cw.WriteTo(w); err != nil {
		return fmt.Errorf("render %s: %w", format, err)
	}

	return nil
}

// segments splits a series into runs of finite values.
func segments(y []float64) []plotter.XYs {

	var segs []plotter.XYs
	var cur plotter.XYs
	for j, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			if len(cur) > 0 {
				segs = append(segs, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, plotter.XY{X: float64(j), Y: v})
	}
	if len(cur) > 0 {
		segs = append(segs, cur)
	}

	return segs
}

func linePlot(c *Chart) (*plot.Plot, error) {

	p := plot.New()
	p.Title.Text = c.Title
	p.Y.Label.Text = c.YLabel
	if c.Bars == nil {
		p.X.Label.Text = c.XLabel
	}
	p.NominalX(c.Labels...)
	p.Legend.Top = true

	for _, ln := range c.Lines {
		col := plotutil.Color(ln.Group)
		var legend bool
		for _, seg := range segments(ln.Values) {
			line, pts, err := plotter.NewLinePoints(seg)
			if err != nil {
				return nil, fmt.Errorf("series %s: %w", ln.Name, err)
			}
			line.Color = col
			pts.Color = col
			pts.Shape = plotutil.Shape(ln.Group)
			if ln.Style == Dashed {
				line.Dashes = []vg.Length{vg.Points(6), vg.Points(3)}
			}
			p.Add(line, pts)
			if !legend {
				p.Legend.Add(ln.Name, line, pts)
				legend = true
			}
		}
	}

	return p, nil
}

func barPlot(c *Chart, width vg.Length) (*plot.Plot, error) {

	p := plot.New()
	p.X.Label.Text = c.XLabel
	p.Y.Label.Text = c.Bars.Name
	p.Y.Min = 0
	p.NominalX(c.Labels...)

	bw := width / vg.Length(2*len(c.Labels)+2)
	bars, err := plotter.NewBarChart(plotter.Values(c.Bars.Values), bw)
	if err != nil {
		return nil, fmt.Errorf("series %s: %w", c.Bars.Name, err)
	}
	bars.Color = color.RGBA{R: 70, G: 130, B: 180, A: 128}
	bars.LineStyle.Width = 0
	p.Add(bars)

	return p, nil
}
