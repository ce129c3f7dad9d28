package view

import (
	"bytes"
	"math"
	"testing"

	"github.com/kshedden/glmexplore/bins"
	"github.com/kshedden/glmexplore/explore"
	"github.com/kshedden/glmexplore/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/vg"
)

func session(t *testing.T) *explore.Session {
	t.Helper()
	regs, err := table.New(
		table.NewNumeric("x1", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}),
		table.NewCategorical("g", []string{"a", "b", "c", "a", "b", "c", "a", "b", "c", "a", "b", "c"}),
	)
	require.NoError(t, err)
	y := table.NewNumeric("y", []float64{1.2, 2.3, 2.1, 3.9, 4.2, 3.5, 5.1, 5.8, 4.9, 6.7, 6.1, 7.4})

	s, err := explore.Fit(regs, y, "x1", explore.Gaussian)
	require.NoError(t, err)
	return s
}

func TestVariableChart(t *testing.T) {

	s := session(t)
	settings := explore.ViewSettings{MaxLevels: 3, BinMethod: bins.MethodQuantile}

	c, err := VariableChart(s, settings, "x1")
	require.NoError(t, err)

	assert.Equal(t, VariableKind, c.Kind)
	assert.Equal(t, "y vs. x1", c.Title)
	assert.Equal(t, []string{"[1, 4.667]", "(4.667, 8.333]", "(8.333, 12]"}, c.Labels)
	require.Len(t, c.Lines, 2)
	assert.Equal(t, "Actual", c.Lines[0].Name)
	assert.Equal(t, "Predicted", c.Lines[1].Name)
	assert.InDeltaSlice(t, []float64{2.375, 4.65, 6.275}, c.Lines[0].Values, 1e-10)

	require.NotNil(t, c.Bars)
	assert.Equal(t, "Weights", c.Bars.Name)
	var w float64
	for _, v := range c.Bars.Values {
		w += v
	}
	assert.InDelta(t, 1, w, 1e-12)
}

func TestVariableChartErrors(t *testing.T) {

	s := session(t)
	for _, na := range []string{"", "nope"} {
		_, err := VariableChart(s, explore.DefaultViewSettings(), na)
		assert.ErrorIs(t, err, explore.ErrSelection)
	}
}

func TestInteractionChart(t *testing.T) {

	s := session(t)
	settings := explore.ViewSettings{MaxLevels: 4, BinMethod: bins.MethodUniform}

	levels, err := SecondaryLevels(s, settings, "g")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, levels)

	c, err := InteractionChart(s, settings, "x1", "g", nil)
	require.NoError(t, err)
	assert.Equal(t, InteractionKind, c.Kind)
	assert.Equal(t, "Predicted y by x1 and g", c.Title)
	assert.Nil(t, c.Bars)
	require.Len(t, c.Lines, 6)
	assert.Equal(t, "a - Actual", c.Lines[0].Name)
	assert.Equal(t, Solid, c.Lines[0].Style)
	assert.Equal(t, "a - Predicted", c.Lines[1].Name)
	assert.Equal(t, Dashed, c.Lines[1].Style)

	c, err = InteractionChart(s, settings, "x1", "g", []string{"b"})
	require.NoError(t, err)
	require.Len(t, c.Lines, 2)
	assert.Equal(t, "b - Actual", c.Lines[0].Name)
}

func TestInteractionChartErrors(t *testing.T) {

	s := session(t)
	settings := explore.DefaultViewSettings()

	for _, pair := range [][2]string{{"x1", "x1"}, {"x1", ""}, {"", "g"}, {"x1", "nope"}} {
		_, err := InteractionChart(s, settings, pair[0], pair[1], nil)
		assert.ErrorIs(t, err, explore.ErrSelection, pair)
	}

	_, err := InteractionChart(s, settings, "x1", "g", []string{"zz"})
	assert.ErrorIs(t, err, explore.ErrSelection)
}

func TestForSelection(t *testing.T) {

	st, err := explore.NewState(session(t), explore.DefaultViewSettings())
	require.NoError(t, err)

	c, err := ForSelection(st)
	require.NoError(t, err)
	assert.Nil(t, c)

	st, err = explore.Reduce(st, explore.SelectPair{Primary: "g", Secondary: "x1"})
	require.NoError(t, err)
	c, err = ForSelection(st)
	require.NoError(t, err)
	assert.Equal(t, "Predicted y by g and x1", c.Title)
}

func TestSegments(t *testing.T) {

	segs := segments([]float64{1, math.NaN(), 2, 3, math.NaN()})
	require.Len(t, segs, 2)
	assert.Len(t, segs[0], 1)
	assert.Equal(t, 2.0, segs[1][0].X)
	assert.Equal(t, 3.0, segs[1][1].Y)

	assert.Empty(t, segments([]float64{math.NaN()}))
}

func TestRender(t *testing.T) {

	s := session(t)

	vc, err := VariableChart(s, explore.DefaultViewSettings(), "x1")
	require.NoError(t, err)

	// Raw x1 levels leave most interaction cells empty.
	ic, err := InteractionChart(s, explore.ViewSettings{MaxLevels: 12, BinMethod: bins.MethodUniform}, "x1", "g", nil)
	require.NoError(t, err)

	magic := map[string]string{"png": "\x89PNG", "svg": "<svg", "pdf": "%PDF"}
	for _, c := range []*Chart{vc, ic} {
		for _, format := range Formats {
			var buf bytes.Buffer
			require.NoError(t, Render(c, &buf, format, 6*vg.Inch, 4*vg.Inch), format)
			assert.Contains(t, buf.String(), magic[format], format)
		}
	}

	var buf bytes.Buffer
	assert.Error(t, Render(vc, &buf, "bmp", 6*vg.Inch, 4*vg.Inch))
}

func TestText(t *testing.T) {

	s := session(t)

	c, err := VariableChart(s, explore.ViewSettings{MaxLevels: 3, BinMethod: bins.MethodUniform}, "x1")
	require.NoError(t, err)
	txt := Text(c)
	for _, v := range []string{"y vs. x1", "(0.989, 4.667]", "Predicted", "Weights", "0.3333", "██████████"} {
		assert.Contains(t, txt, v)
	}

	ic, err := InteractionChart(s, explore.ViewSettings{MaxLevels: 12, BinMethod: bins.MethodUniform}, "x1", "g", nil)
	require.NoError(t, err)
	assert.Contains(t, Text(ic), " - ")
}
