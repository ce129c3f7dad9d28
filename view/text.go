package view

import (
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
)

// Width of a bar for weight one in the text rendering.
const barWidth = 30

var titleStyle = lipgloss.NewStyle().Bold(true)

func fmtValue(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func bar(w float64) string {
	return strings.Repeat("█", int(math.Round(w*barWidth)))
}

// Text renders the chart as a title followed by a table with one row per
// x label.  Weights are shown as horizontal bars.
func Text(c *Chart) string {

	headers := []string{c.XLabel}
	for _, ln := range c.Lines {
		headers = append(headers, ln.Name)
	}
	if c.Bars != nil {
		headers = append(headers, c.Bars.Name, "")
	}

	tb := lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderColumn(true).
		Headers(headers...)

	for j, lab := range c.Labels {
		row := []string{lab}
		for _, ln := range c.Lines {
			row = append(row, fmtValue(ln.Values[j]))
		}
		if c.Bars != nil {
			row = append(row, fmtValue(c.Bars.Values[j]), bar(c.Bars.Values[j]))
		}
		tb.Row(row...)
	}

	return titleStyle.Render(c.Title) + "\n" + tb.Render()
}
