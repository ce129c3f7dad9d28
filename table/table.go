// Package table holds the in-memory tabular data explored by the tool:
// named, row-aligned columns that are either numeric or categorical.
package table

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// Kind distinguishes numeric from categorical columns.
type Kind uint8

// Numeric columns hold float64 values, Categorical columns hold strings.
const (
	Numeric Kind = iota
	Categorical
)

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Categorical:
		return "categorical"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Column is a named sequence of values.  The backing slices are shared,
// callers must not modify them.
type Column struct {
	name   string
	kind   Kind
	floats []float64
	strs   []string
}

// NewNumeric returns a numeric column.
func NewNumeric(name string, x []float64) Column {
	return Column{name: name, kind: Numeric, floats: x}
}

// NewCategorical returns a categorical column.
func NewCategorical(name string, x []string) Column {
	return Column{name: name, kind: Categorical, strs: x}
}

// Name returns the column name.
func (c Column) Name() string {
	return c.name
}

// Kind returns the kind of the column.
func (c Column) Kind() Kind {
	return c.kind
}

// Len returns the number of rows in the column.
func (c Column) Len() int {
	if c.kind == Numeric {
		return len(c.floats)
	}
	return len(c.strs)
}

// Floats returns the values of a numeric column, or nil.
func (c Column) Floats() []float64 {
	return c.floats
}

// Strings returns the values of a categorical column, or nil.
func (c Column) Strings() []string {
	return c.strs
}

// Label returns the i^th value formatted as a string.
func (c Column) Label(i int) string {
	if c.kind == Numeric {
		return strconv.FormatFloat(c.floats[i], 'g', -1, 64)
	}
	return c.strs[i]
}

// Distinct returns the number of distinct values in the column.
func (c Column) Distinct() int {
	if c.kind == Numeric {
		seen := make(map[float64]struct{}, len(c.floats))
		for _, v := range c.floats {
			seen[v] = struct{}{}
		}
		return len(seen)
	}
	seen := make(map[string]struct{}, len(c.strs))
	for _, v := range c.strs {
		seen[v] = struct{}{}
	}
	return len(seen)
}

// Levels returns the sorted distinct values of a categorical column.
func (c Column) Levels() []string {
	seen := make(map[string]struct{})
	var lev []string
	for i := 0; i < c.Len(); i++ {
		v := c.Label(i)
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			lev = append(lev, v)
		}
	}
	sort.Strings(lev)
	return lev
}

// Table is an ordered collection of row-aligned columns with unique names.
// A Table is not modified after construction.
type Table struct {
	cols  []Column
	index map[string]int
	nrow  int
}

// New returns a table holding the given columns.
func New(cols ...Column) (*Table, error) {

	t := &Table{
		cols:  cols,
		index: make(map[string]int, len(cols)),
	}

	for j, c := range cols {
		if c.name == "" {
			return nil, fmt.Errorf("column %d has no name", j)
		}
		if _, ok := t.index[c.name]; ok {
			return nil, fmt.Errorf("duplicate column name %q", c.name)
		}
		t.index[c.name] = j
		if j == 0 {
			t.nrow = c.Len()
		} else if c.Len() != t.nrow {
			return nil, fmt.Errorf("column %q has %d rows, expected %d", c.name, c.Len(), t.nrow)
		}
	}

	return t, nil
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int {
	return t.nrow
}

// NumCols returns the number of columns.
func (t *Table) NumCols() int {
	return len(t.cols)
}

// Names returns the column names in order.
func (t *Table) Names() []string {
	na := make([]string, len(t.cols))
	for j, c := range t.cols {
		na[j] = c.name
	}
	return na
}

// Columns returns the columns in order.
func (t *Table) Columns() []Column {
	return append([]Column(nil), t.cols...)
}

// Column returns the column with the given name.
func (t *Table) Column(name string) (Column, bool) {
	j, ok := t.index[name]
	if !ok {
		return Column{}, false
	}
	return t.cols[j], true
}

// Has reports whether the table has a column with the given name.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// With returns a new table holding the columns of t followed by cols.
func (t *Table) With(cols ...Column) (*Table, error) {
	all := make([]Column, 0, len(t.cols)+len(cols))
	all = append(all, t.cols...)
	all = append(all, cols...)
	return New(all...)
}

// Split separates the named numeric response column from the remaining
// columns, which become the regressors.
func (t *Table) Split(response string) (*Table, Column, error) {

	resp, ok := t.Column(response)
	if !ok {
		return nil, Column{}, fmt.Errorf("response column %q not found", response)
	}
	if resp.kind != Numeric {
		return nil, Column{}, fmt.Errorf("response column %q is not numeric", response)
	}

	var rest []Column
	for _, c := range t.cols {
		if c.name != response {
			rest = append(rest, c)
		}
	}
	if len(rest) == 0 {
		return nil, Column{}, errors.New("no regressor columns")
	}

	regs, err := New(rest...)
	if err != nil {
		return nil, Column{}, err
	}

	return regs, resp, nil
}
