// Copyright 2019 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package nbhood

import (
	"errors"
	"fmt"
	"io"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"gonum.org/v1/gonum/floats"
	"rescribe.xyz/nbhood/field"
)

const maxticks = 40

// createLine creates a horizontal line with a particular y value for
// a graph
func createLine(xvalues []float64, y float64, c drawing.Color) chart.ContinuousSeries {
	var yvalues []float64
	for range xvalues {
		yvalues = append(yvalues, y)
	}
	return chart.ContinuousSeries{
		XValues: xvalues,
		YValues: yvalues,
		Style: chart.Style{
			StrokeColor:     c,
			StrokeDashArray: []float64{5.0, 5.0},
		},
	}
}

// profile returns one row of a plane of a field
func profile(f *field.Field, plane, row int) ([]float64, error) {
	if plane < 0 || plane >= f.NumPlanes() {
		return nil, fmt.Errorf("Plane %d out of range, field has %d planes", plane, f.NumPlanes())
	}
	if row < 0 || row >= f.Rows() {
		return nil, fmt.Errorf("Row %d out of range, field has %d rows", row, f.Rows())
	}
	cols := f.Cols()
	return f.Plane(plane)[row*cols : (row+1)*cols], nil
}

// GraphProfile draws one row of a plane of the original and smoothed
// fields as lines, with the mean of the original row marked, and
// writes it to w as a PNG.
func GraphProfile(orig, smoothed *field.Field, plane, row int, w io.Writer) error {
	if orig.Cols() < 2 {
		return errors.New("Not enough columns to graph")
	}
	if smoothed.Cols() != orig.Cols() || smoothed.Rows() != orig.Rows() {
		return errors.New("Original and smoothed fields have different shapes")
	}

	ovals, err := profile(orig, plane, row)
	if err != nil {
		return err
	}
	svals, err := profile(smoothed, plane, row)
	if err != nil {
		return err
	}

	var xvalues []float64
	var ticks []chart.Tick
	tickevery := len(ovals) / maxticks
	if tickevery < 1 {
		tickevery = 1
	}
	for i := range ovals {
		x := float64(i)
		xvalues = append(xvalues, x)
		if i%tickevery == 0 {
			ticks = append(ticks, chart.Tick{Value: x, Label: fmt.Sprintf("%d", i)})
		}
	}
	// Make last tick the final column
	final := float64(len(ovals) - 1)
	ticks[len(ticks)-1] = chart.Tick{Value: final, Label: fmt.Sprintf("%.0f", final)}

	origSeries := chart.ContinuousSeries{
		Name: "Original",
		Style: chart.Style{
			StrokeColor: chart.ColorAlternateGray,
		},
		XValues: xvalues,
		YValues: append([]float64(nil), ovals...),
	}
	smoothSeries := chart.ContinuousSeries{
		Name: "Neighbourhood mean",
		Style: chart.Style{
			StrokeColor: chart.ColorBlue,
			StrokeWidth: 3,
		},
		XValues: xvalues,
		YValues: append([]float64(nil), svals...),
	}
	meanSeries := createLine(xvalues, floats.Sum(ovals)/float64(len(ovals)), chart.ColorOrange)
	meanSeries.Name = "Row mean"

	// a flat row would give a zero y range, which can't be drawn
	min, max := floats.Min(ovals), floats.Max(ovals)
	if smin, smax := floats.Min(svals), floats.Max(svals); smin < min || smax > max {
		min, max = floats.Min([]float64{min, smin}), floats.Max([]float64{max, smax})
	}
	if max == min {
		min, max = min-1, max+1
	}

	title := orig.Name
	if title == "" {
		title = "Profile"
	}
	yname := "Value"
	if orig.Units != "" {
		yname = fmt.Sprintf("Value (%s)", orig.Units)
	}

	graph := chart.Chart{
		Title:  fmt.Sprintf("%s, plane %d, row %d", title, plane, row),
		Width:  1920,
		Height: 1080,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		XAxis: chart.XAxis{
			Name:  "Column",
			Ticks: ticks,
		},
		YAxis: chart.YAxis{
			Name: yname,
			Range: &chart.ContinuousRange{
				Min: min,
				Max: max,
			},
		},
		Series: []chart.Series{
			origSeries,
			smoothSeries,
			meanSeries,
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return graph.Render(chart.PNG, w)
}
