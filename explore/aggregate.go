package explore

import (
	"fmt"
	"math"

	"github.com/kshedden/glmexplore/bins"
	"github.com/kshedden/glmexplore/table"
)

// GroupMean holds the mean predicted and actual response within one
// level of a grouping.
type GroupMean struct {
	Level     string
	Predicted float64
	Actual    float64
	Count     int

	// Fraction of all rows falling in this level
	Weight float64
}

// Series is the per-primary-level aggregate for one secondary level.
type Series struct {
	Level string

	// One cell per primary level.  Empty cells have a zero count and
	// NaN means.
	Cells []GroupMean
}

func predictedActual(aug *table.Table) ([]float64, []float64, error) {

	pc, ok1 := aug.Column(PredictedName)
	ac, ok2 := aug.Column(ActualName)
	if !ok1 || !ok2 {
		return nil, nil, fmt.Errorf("table lacks %s and %s columns", PredictedName, ActualName)
	}

	return pc.Floats(), ac.Floats(), nil
}

func checkKey(aug *table.Table, key *bins.Grouping) error {
	if len(key.Codes) != aug.NumRows() {
		return fmt.Errorf("grouping of %q has %d rows, table has %d", key.Name, len(key.Codes), aug.NumRows())
	}
	return nil
}

// GroupMeans returns the mean of Predicted and Actual within each level
// of key, in level order.  The weights sum to one.
func GroupMeans(aug *table.Table, key *bins.Grouping) ([]GroupMean, error) {

	pred, act, err := predictedActual(aug)
	if err != nil {
		return nil, err
	}
	if err := checkKey(aug, key); err != nil {
		return nil, err
	}

	gm := make([]GroupMean, key.NumLevels())
	for j := range gm {
		gm[j].Level = key.Levels[j]
	}
	for i, c := range key.Codes {
		gm[c].Predicted += pred[i]
		gm[c].Actual += act[i]
		gm[c].Count++
	}

	n := float64(aug.NumRows())
	for j := range gm {
		finish(&gm[j], n)
	}

	return gm, nil
}

func finish(g *GroupMean, n float64) {
	if g.Count == 0 {
		g.Predicted = math.NaN()
		g.Actual = math.NaN()
		return
	}
	g.Predicted /= float64(g.Count)
	g.Actual /= float64(g.Count)
	g.Weight = float64(g.Count) / n
}

// GroupMeans2 aggregates over the cross-classification of two
// groupings.  There is one Series per secondary level, each holding a
// cell for every primary level.
func GroupMeans2(aug *table.Table, primary, secondary *bins.Grouping) ([]Series, error) {

	pred, act, err := predictedActual(aug)
	if err != nil {
		return nil, err
	}
	for _, key := range []*bins.Grouping{primary, secondary} {
		if err := checkKey(aug, key); err != nil {
			return nil, err
		}
	}

	series := make([]Series, secondary.NumLevels())
	for k := range series {
		series[k].Level = secondary.Levels[k]
		series[k].Cells = make([]GroupMean, primary.NumLevels())
		for j := range series[k].Cells {
			series[k].Cells[j].Level = primary.Levels[j]
		}
	}

	for i := range pred {
		c := &series[secondary.Codes[i]].Cells[primary.Codes[i]]
		c.Predicted += pred[i]
		c.Actual += act[i]
		c.Count++
	}

	n := float64(aug.NumRows())
	for k := range series {
		for j := range series[k].Cells {
			finish(&series[k].Cells[j], n)
		}
	}

	return series, nil
}
