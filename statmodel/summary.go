package statmodel

import (
	"fmt"
	"strings"
)

// Fmter formats the elements of an array of values.  The second
// argument is the column heading.
type Fmter func(interface{}, string) []string

// SummaryTable holds the summary values for a fitted model.
type SummaryTable struct {

	// Title
	Title string

	// Column names
	ColNames []string

	// Formatters for the column values
	ColFmt []Fmter

	// Cols[j] is the j^th column.  It's concrete type should
	// be an array, e.g. of numbers or strings.
	Cols []interface{}

	// Values at the top of the summary, laid out in two columns
	Top []string

	// Messages displayed below the table
	Msg []string

	// Total width of the table
	tw int
}

// StringFmt left-justifies an array of strings to a common width.
func StringFmt(x interface{}, h string) []string {
	y := x.([]string)
	m := len(h)
	for _, s := range y {
		if len(s) > m {
			m = len(s)
		}
	}
	z := make([]string, len(y))
	for i, s := range y {
		z[i] = fmt.Sprintf("%-*s", m, s)
	}
	return z
}

// FloatFmt formats an array of float64 values in fixed width.
func FloatFmt(x interface{}, h string) []string {
	y := x.([]float64)
	s := make([]string, len(y))
	for i, v := range y {
		s[i] = fmt.Sprintf("%10.4f", v)
	}
	return s
}

// line draws a line of the given character filling the width of the table.
func (s *SummaryTable) line(c string) string {
	return strings.Repeat(c, s.tw) + "\n"
}

// top constructs the upper part of the table, which contains summary
// values for the model in two columns.
func (s *SummaryTable) top(gap int) string {

	w := []int{0, 0}
	for j, x := range s.Top {
		if len(x) > w[j%2] {
			w[j%2] = len(x)
		}
	}

	var b strings.Builder
	for j, x := range s.Top {
		fmt.Fprintf(&b, "%-*s", w[j%2], x)
		if j%2 == 1 {
			b.WriteString("\n")
		} else {
			b.WriteString(strings.Repeat(" ", gap))
		}
	}

	if len(s.Top)%2 == 1 {
		b.WriteString("\n")
	}

	return b.String()
}

// String returns the table as a string.
func (s *SummaryTable) String() string {

	var tab [][]string
	var wx []int
	for j, c := range s.Cols {
		u := s.ColFmt[j](c, s.ColNames[j])
		tab = append(tab, u)
		w := len(s.ColNames[j])
		for _, v := range u {
			if len(v) > w {
				w = len(v)
			}
		}
		wx = append(wx, w+1)
	}

	gap := 10

	// Get the total width of the table
	s.tw = 0
	for _, w := range wx {
		s.tw += w
	}
	if s.tw < len(s.Title) {
		s.tw = len(s.Title)
	}
	var topw int
	for _, x := range s.Top {
		if len(x) > topw {
			topw = len(x)
		}
	}
	if s.tw < gap+2*topw {
		s.tw = gap + 2*topw
	}

	var buf strings.Builder

	// Center the title
	kr := (s.tw - len(s.Title)) / 2
	if kr < 0 {
		kr = 0
	}
	buf.WriteString(strings.Repeat(" ", kr))
	buf.WriteString(s.Title)
	buf.WriteString("\n")

	buf.WriteString(s.line("="))
	if len(s.Top) > 0 {
		buf.WriteString(s.top(gap))
		buf.WriteString(s.line("-"))
	}

	for j, c := range s.ColNames {
		if j == 0 {
			fmt.Fprintf(&buf, "%-*s", wx[j], c)
		} else {
			fmt.Fprintf(&buf, "%*s", wx[j], c)
		}
	}
	buf.WriteString("\n")
	buf.WriteString(s.line("-"))

	var nrow int
	if len(tab) > 0 {
		nrow = len(tab[0])
	}
	for i := 0; i < nrow; i++ {
		for j := range tab {
			if j == 0 {
				fmt.Fprintf(&buf, "%-*s", wx[j], tab[j][i])
			} else {
				fmt.Fprintf(&buf, "%*s", wx[j], tab[j][i])
			}
		}
		buf.WriteString("\n")
	}
	buf.WriteString(s.line("-"))

	for _, msg := range s.Msg {
		buf.WriteString(msg + "\n")
	}

	return buf.String()
}
