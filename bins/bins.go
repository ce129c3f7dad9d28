// Package bins partitions numeric columns into a small number of
// ordered buckets so that they can be used as grouping keys.
//
// Uniform cuts split the observed range into intervals of equal width,
// quantile cuts place the interval edges at equally spaced quantiles of
// the data.  Intervals are closed on the right, (a, b].  The first
// interval of a quantile cut is also closed on the left.
package bins

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Method names a binning rule.
type Method string

// The supported binning rules.
const (
	MethodUniform  Method = "uniform"
	MethodQuantile Method = "quantile"
)

// ParseMethod returns the Method named by s, ignoring case.
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(s))); m {
	case MethodUniform, MethodQuantile:
		return m, nil
	default:
		return "", fmt.Errorf("unknown bin method %q", s)
	}
}

// ErrEmpty is returned when binning a column with no values.
var ErrEmpty = errors.New("bins: no values")

// Cut is an ordered set of interval edges.  Bucket j covers
// (Edges[j], Edges[j+1]].
type Cut struct {
	Edges []float64

	// If true, the first bucket includes its lower edge.
	ClosedFirst bool
}

// NumBuckets returns the number of intervals in the cut.
func (c *Cut) NumBuckets() int {
	return len(c.Edges) - 1
}

// Uniform returns a cut of the range of x into k intervals of equal
// width.  The lowest edge is moved down by 0.1% of the range so that
// the minimum lies inside the first interval.
func Uniform(x []float64, k int) (*Cut, error) {

	if err := check(x, k); err != nil {
		return nil, err
	}

	mn := floats.Min(x)
	mx := floats.Max(x)

	if mn == mx {
		adj := 0.001 * math.Abs(mn)
		if mn == 0 {
			adj = 0.001
		}
		mn -= adj
		mx += adj
		return &Cut{Edges: span(mn, mx, k)}, nil
	}

	edges := span(mn, mx, k)
	edges[0] -= 0.001 * (mx - mn)

	return &Cut{Edges: edges}, nil
}

// span returns k+1 equally spaced edges from mn to mx.  The last edge
// is exactly mx, so the maximum is never left outside the cut.
func span(mn, mx float64, k int) []float64 {
	edges := make([]float64, k+1)
	floats.Span(edges, mn, mx)
	edges[k] = mx
	return edges
}

// Quantile returns a cut of x at the j/k quantiles, j = 0, ..., k,
// using linear interpolation between order statistics.  Repeated edges
// are collapsed, so fewer than k intervals may result.
func Quantile(x []float64, k int) (*Cut, error) {

	if err := check(x, k); err != nil {
		return nil, err
	}

	s := append([]float64(nil), x...)
	sort.Float64s(s)

	edges := []float64{s[0]}
	for j := 1; j <= k; j++ {
		q := quantile(s, float64(j)/float64(k))
		if q > edges[len(edges)-1] {
			edges = append(edges, q)
		}
	}

	// All values are equal.
	if len(edges) == 1 {
		edges = append(edges, s[0])
	}

	return &Cut{Edges: edges, ClosedFirst: true}, nil
}

// quantile interpolates linearly between the order statistics of the
// sorted values s.
func quantile(s []float64, p float64) float64 {

	pos := p * float64(len(s)-1)
	lo := int(math.Floor(pos))
	if lo >= len(s)-1 {
		return s[len(s)-1]
	}
	frac := pos - float64(lo)

	return s[lo] + frac*(s[lo+1]-s[lo])
}

func check(x []float64, k int) error {

	if k < 1 {
		return fmt.Errorf("bins: number of bins must be positive, got %d", k)
	}
	if len(x) == 0 {
		return ErrEmpty
	}

	return finite(x)
}

func finite(x []float64) error {
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("bins: non-finite value %v at row %d", v, i)
		}
	}
	return nil
}

// Assign returns the bucket index of every value of x.  Values outside
// the cut are assigned -1.
func (c *Cut) Assign(x []float64) []int {

	upper := c.Edges[1:]
	codes := make([]int, len(x))
	for i, v := range x {
		switch {
		case v < c.Edges[0], v > upper[len(upper)-1]:
			codes[i] = -1
		case v == c.Edges[0] && !c.ClosedFirst:
			codes[i] = -1
		default:
			codes[i] = sort.SearchFloat64s(upper, v)
		}
	}

	return codes
}

// Labels returns the interval labels of the cut, e.g. "(0.989, 4.667]".
func (c *Cut) Labels() []string {

	labels := make([]string, c.NumBuckets())
	for j := range labels {
		open := "("
		if j == 0 && c.ClosedFirst {
			open = "["
		}
		labels[j] = fmt.Sprintf("%s%s, %s]", open, FormatEdge(c.Edges[j]), FormatEdge(c.Edges[j+1]))
	}

	return labels
}

// FormatEdge formats an interval edge with three decimals, dropping
// trailing zeros.
func FormatEdge(v float64) string {
	s := strconv.FormatFloat(v, 'f', 3, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" {
		s = "0"
	}
	return s
}
