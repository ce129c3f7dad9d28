// Package view turns grouped aggregates of a fitted session into chart
// values, and renders charts to image files or to text.
package view

import (
	"fmt"
	"slices"

	"github.com/kshedden/glmexplore/explore"
)

// ChartKind distinguishes single-variable from interaction charts.
type ChartKind uint8

// The chart kinds.
const (
	VariableKind ChartKind = iota
	InteractionKind
)

// LineStyle is the dash pattern of a line series.
type LineStyle uint8

// The line styles.
const (
	Solid LineStyle = iota
	Dashed
)

// Line is a series of values over the x labels of a chart.  NaN values
// are not drawn.
type Line struct {
	Name   string
	Values []float64
	Style  LineStyle

	// Lines with the same group share a color
	Group int
}

// Bars is a bar series over the x labels of a chart.
type Bars struct {
	Name   string
	Values []float64
}

// Chart is a renderer-independent description of a plot.
type Chart struct {
	Kind   ChartKind
	Title  string
	XLabel string
	YLabel string

	// Category labels along the x axis
	Labels []string

	Lines []Line

	// Only set for single-variable charts
	Bars *Bars
}

// VariableChart returns the mean actual and predicted response at each
// level of a regressor, with the share of rows at each level as bars.
func VariableChart(sess *explore.Session, settings explore.ViewSettings, name string) (*Chart, error) {

	key, err := sess.Key(name, settings)
	if err != nil {
		return nil, err
	}

	gm, err := explore.GroupMeans(sess.Augmented(), key)
	if err != nil {
		return nil, err
	}

	n := len(gm)
	act := make([]float64, n)
	pred := make([]float64, n)
	wgt := make([]float64, n)
	for j, g := range gm {
		act[j] = g.Actual
		pred[j] = g.Predicted
		wgt[j] = g.Weight
	}

	resp := sess.Response().Name()

	return &Chart{
		Kind:   VariableKind,
		Title:  fmt.Sprintf("%s vs. %s", resp, name),
		XLabel: name,
		YLabel: resp,
		Labels: slices.Clone(key.Levels),
		Lines: []Line{
			{Name: "Actual", Values: act, Style: Solid, Group: 0},
			{Name: "Predicted", Values: pred, Style: Solid, Group: 1},
		},
		Bars: &Bars{Name: "Weights", Values: wgt},
	}, nil
}

// SecondaryLevels returns the levels of a regressor that may be chosen
// for an interaction chart.
func SecondaryLevels(sess *explore.Session, settings explore.ViewSettings, secondary string) ([]string, error) {

	key, err := sess.Key(secondary, settings)
	if err != nil {
		return nil, err
	}

	return slices.Clone(key.Levels), nil
}

// InteractionChart returns, for each chosen level of the secondary
// regressor, the mean actual (solid) and predicted (dashed) response
// over the levels of the primary regressor.  If levels is empty all
// secondary levels are drawn.
func InteractionChart(sess *explore.Session, settings explore.ViewSettings, primary, secondary string, levels []string) (*Chart, error) {

	if err := explore.CheckPair(sess, primary, secondary); err != nil {
		return nil, err
	}

	pkey, err := sess.Key(primary, settings)
	if err != nil {
		return nil, err
	}
	skey, err := sess.Key(secondary, settings)
	if err != nil {
		return nil, err
	}

	for _, lev := range levels {
		if !slices.Contains(skey.Levels, lev) {
			return nil, &explore.SelectionError{Reason: fmt.Sprintf("%q is not a level of %s", lev, secondary)}
		}
	}

	series, err := explore.GroupMeans2(sess.Augmented(), pkey, skey)
	if err != nil {
		return nil, err
	}

	resp := sess.Response().Name()
	c := &Chart{
		Kind:   InteractionKind,
		Title:  fmt.Sprintf("Predicted %s by %s and %s", resp, primary, secondary),
		XLabel: primary,
		YLabel: resp,
		Labels: slices.Clone(pkey.Levels),
	}

	for k, s := range series {
		if len(levels) > 0 && !slices.Contains(levels, s.Level) {
			continue
		}
		act := make([]float64, len(s.Cells))
		pred := make([]float64, len(s.Cells))
		for j, cell := range s.Cells {
			act[j] = cell.Actual
			pred[j] = cell.Predicted
		}
		c.Lines = append(c.Lines,
			Line{Name: s.Level + " - Actual", Values: act, Style: Solid, Group: k},
			Line{Name: s.Level + " - Predicted", Values: pred, Style: Dashed, Group: k})
	}

	return c, nil
}

// ForSelection builds the chart for the selection held in a state, or
// returns nil when nothing is selected.
func ForSelection(st explore.State) (*Chart, error) {

	sel := st.Selection
	switch {
	case sel.IsEmpty():
		return nil, nil
	case sel.IsPair():
		return InteractionChart(st.Session, st.Settings, sel.Primary, sel.Secondary, sel.Levels)
	default:
		return VariableChart(st.Session, st.Settings, sel.Primary)
	}
}
