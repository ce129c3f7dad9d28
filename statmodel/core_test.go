package statmodel

import (
	"math"
	"strings"
	"testing"

	"gonum.org/v1/gonum/floats"
)

func data1() ([]string, [][]float64) {
	x := [][]float64{
		{0, 1, 3, 2, 1, 1, 0},
		{1, 1, 1, 1, 1, 1, 1},
		{4, 1, -1, 3, 5, -5, 3},
	}
	return []string{"y", "x1", "x2"}, x
}

func data1b() ([]string, [][]float64) {
	x := [][]float64{
		{0, 1, 3, 2, 1, 1, 0},
		{1, 1, 1, 1, 1, 1, 1},
		{8, 2, -2, 6, 10, -10, 6},
	}
	return []string{"y", "x1", "x2"}, x
}

// A mock model for testing
type Mock struct {
	data [][]float64
	xpos []int
	hess []float64
}

func (m *Mock) Dataset() [][]float64 {
	return m.data
}

func (m *Mock) LogLike(params Parameter, exact bool) float64 {
	return 0
}

func (m *Mock) Score(params Parameter, score []float64) {
}

func (m *Mock) Hessian(params Parameter, ht HessType, hess []float64) {
	copy(hess, m.hess)
}

func (m *Mock) NumParams() int {
	return len(m.xpos)
}

func (m *Mock) NumObs() int {
	return len(m.data[0])
}

func (m *Mock) Xpos() []int {
	return m.xpos
}

type mockParam struct {
	coeff []float64
}

func (p *mockParam) GetCoeff() []float64  { return p.coeff }
func (p *mockParam) SetCoeff(x []float64) { copy(p.coeff, x) }
func (p *mockParam) Clone() Parameter {
	return &mockParam{coeff: append([]float64(nil), p.coeff...)}
}

func TestResult1(t *testing.T) {

	_, da := data1()
	model := &Mock{
		data: da,
		xpos: []int{1, 2},
	}

	params := []float64{1, 2}
	xnames := []string{"x1", "x2"}
	vcov := []float64{0, 0, 0, 0}

	r := NewBaseResults(model, 0, params, xnames, vcov)

	// Fitted values on the training data.
	fv := []float64{9, 3, -1, 7, 11, -9, 7}
	got, err := r.FittedValues(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !floats.Equal(fv, got) {
		t.Fail()
	}

	// Fitted values for new data with the same layout.
	_, da2 := data1b()
	fv = []float64{17, 5, -3, 13, 21, -19, 13}
	got, err = r.FittedValues(da2)
	if err != nil {
		t.Fatal(err)
	}
	if !floats.Equal(fv, got) {
		t.Fail()
	}

	// Wrong number of columns
	if _, err := r.FittedValues(da2[0:2]); err == nil {
		t.Fail()
	}
}

func TestVcovAndPValues(t *testing.T) {

	_, da := data1()
	model := &Mock{
		data: da,
		xpos: []int{1, 2},
		hess: []float64{-4, 0, 0, -1},
	}

	vcov, err := GetVcov(model, &mockParam{coeff: []float64{1, 1}})
	if err != nil {
		t.Fatal(err)
	}
	if !floats.EqualApprox(vcov, []float64{0.25, 0, 0, 1}, 1e-12) {
		t.Errorf("unexpected vcov %v", vcov)
	}

	r := NewBaseResults(model, 0, []float64{1, 1.96}, []string{"a", "b"}, vcov)
	if !floats.EqualApprox(r.StdErr(), []float64{0.5, 1}, 1e-12) {
		t.Errorf("unexpected stderr %v", r.StdErr())
	}
	if !floats.EqualApprox(r.ZScores(), []float64{2, 1.96}, 1e-12) {
		t.Errorf("unexpected zscores %v", r.ZScores())
	}
	pv := r.PValues()
	if math.Abs(pv[1]-0.05) > 1e-3 {
		t.Errorf("unexpected p-value %v", pv[1])
	}
}

func TestSingularVcov(t *testing.T) {

	_, da := data1()
	model := &Mock{
		data: da,
		xpos: []int{1, 2},
		hess: []float64{-1, -1, -1, -1},
	}

	if _, err := GetVcov(model, &mockParam{coeff: []float64{0, 0}}); err == nil {
		t.Fail()
	}
}

func TestSummaryTable(t *testing.T) {

	st := &SummaryTable{
		Title:    "Test table",
		Top:      []string{"A: 1", "B: 22", "C: 333"},
		ColNames: []string{"Variable", "Value"},
		ColFmt:   []Fmter{StringFmt, FloatFmt},
		Cols:     []interface{}{[]string{"x", "long_name"}, []float64{1, -2.5}},
		Msg:      []string{"note"},
	}

	s1 := st.String()
	s2 := st.String()
	if s1 != s2 {
		t.Errorf("summary table is not deterministic")
	}

	lines := strings.Split(strings.TrimRight(s1, "\n"), "\n")
	if strings.TrimSpace(lines[0]) != "Test table" {
		t.Errorf("unexpected title line %q", lines[0])
	}
	if !strings.Contains(s1, "long_name") || !strings.Contains(s1, "-2.5000") {
		t.Errorf("missing table content:\n%s", s1)
	}
	if lines[len(lines)-1] != "note" {
		t.Errorf("expected trailing message, got %q", lines[len(lines)-1])
	}
}
