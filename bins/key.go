package bins

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/kshedden/glmexplore/table"
)

// Grouping assigns every row of a column to one of an ordered list of
// levels.
type Grouping struct {

	// The name of the column that was grouped
	Name string

	// Level labels, in display order
	Levels []string

	// Codes[i] is the position in Levels of row i
	Codes []int

	// True if the levels are buckets of a numeric column
	Binned bool

	// The cut used to form the buckets, nil unless Binned is true
	Cut *Cut
}

// NumLevels returns the number of levels.
func (g *Grouping) NumLevels() int {
	return len(g.Levels)
}

// Counts returns the number of rows at each level.
func (g *Grouping) Counts() []int {
	n := make([]int, len(g.Levels))
	for _, c := range g.Codes {
		n[c]++
	}
	return n
}

// Key returns the grouping of col used for aggregation.  Categorical
// columns and numeric columns with at most maxLevels distinct values
// are grouped by their values.  Other numeric columns are cut into
// maxLevels buckets using the given method.  Numeric columns holding
// NaN or infinite values cannot be grouped.
func Key(col table.Column, maxLevels int, method Method) (*Grouping, error) {

	if col.Len() == 0 {
		return nil, fmt.Errorf("column %q: %w", col.Name(), ErrEmpty)
	}

	if col.Kind() == table.Categorical {
		return categorical(col), nil
	}

	if err := finite(col.Floats()); err != nil {
		return nil, fmt.Errorf("column %q: %w", col.Name(), err)
	}

	if col.Distinct() <= maxLevels {
		return rawNumeric(col), nil
	}

	var cut *Cut
	var err error
	switch method {
	case MethodUniform:
		cut, err = Uniform(col.Floats(), maxLevels)
	case MethodQuantile:
		cut, err = Quantile(col.Floats(), maxLevels)
	default:
		err = fmt.Errorf("unknown bin method %q", method)
	}
	if err != nil {
		return nil, fmt.Errorf("column %q: %w", col.Name(), err)
	}

	return binned(col.Name(), col.Floats(), cut), nil
}

// binned groups x by the buckets of cut, leaving out empty buckets.
func binned(name string, x []float64, cut *Cut) *Grouping {

	codes := cut.Assign(x)
	labels := cut.Labels()

	used := make([]bool, len(labels))
	for _, c := range codes {
		used[c] = true
	}

	remap := make([]int, len(labels))
	var levels []string
	for j, u := range used {
		if u {
			remap[j] = len(levels)
			levels = append(levels, labels[j])
		}
	}
	for i, c := range codes {
		codes[i] = remap[c]
	}

	return &Grouping{
		Name:   name,
		Levels: levels,
		Codes:  codes,
		Binned: true,
		Cut:    cut,
	}
}

func rawNumeric(col table.Column) *Grouping {

	x := col.Floats()
	var vals []float64
	seen := make(map[float64]bool)
	for _, v := range x {
		if !seen[v] {
			seen[v] = true
			vals = append(vals, v)
		}
	}
	sort.Float64s(vals)

	pos := make(map[float64]int, len(vals))
	levels := make([]string, len(vals))
	for j, v := range vals {
		pos[v] = j
		levels[j] = strconv.FormatFloat(v, 'g', -1, 64)
	}

	codes := make([]int, len(x))
	for i, v := range x {
		codes[i] = pos[v]
	}

	return &Grouping{Name: col.Name(), Levels: levels, Codes: codes}
}

func categorical(col table.Column) *Grouping {

	levels := col.Levels()
	pos := make(map[string]int, len(levels))
	for j, v := range levels {
		pos[v] = j
	}

	x := col.Strings()
	codes := make([]int, len(x))
	for i, v := range x {
		codes[i] = pos[v]
	}

	return &Grouping{Name: col.Name(), Levels: levels, Codes: codes}
}
