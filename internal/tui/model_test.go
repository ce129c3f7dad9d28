package tui

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kshedden/glmexplore/bins"
	"github.com/kshedden/glmexplore/config"
	"github.com/kshedden/glmexplore/explore"
	"github.com/kshedden/glmexplore/table"
)

func newTestModel(t *testing.T) Model {
	t.Helper()

	regs, err := table.New(
		table.NewNumeric("x1", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}),
		table.NewCategorical("g", []string{"a", "b", "c", "a", "b", "c", "a", "b", "c", "a", "b", "c"}),
	)
	if err != nil {
		t.Fatal(err)
	}
	y := table.NewNumeric("y", []float64{1.2, 2.3, 2.1, 3.9, 4.2, 3.5, 5.1, 5.8, 4.9, 6.7, 6.1, 7.4})

	sess, err := explore.Fit(regs, y, "x1", explore.Gaussian)
	if err != nil {
		t.Fatal(err)
	}
	st, err := explore.NewState(sess, explore.DefaultViewSettings())
	if err != nil {
		t.Fatal(err)
	}

	export := config.Default().Export
	export.Dir = t.TempDir()
	m := NewModel(explore.NewStore(st), export)

	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(Model)
}

func press(m Model, msgs ...tea.KeyMsg) Model {
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	down  = tea.KeyMsg{Type: tea.KeyDown}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
	space = tea.KeyMsg{Type: tea.KeySpace}
)

func TestViewBeforeResize(t *testing.T) {

	m := newTestModel(t)
	m.ready = false
	if got := m.View(); got != "Loading..." {
		t.Fatalf("unexpected view %q", got)
	}
}

func TestSummaryShownAtStart(t *testing.T) {

	m := newTestModel(t)
	if !m.showSummary {
		t.Fatal("expected the summary to be shown")
	}
	if !strings.Contains(m.content, "Response") {
		t.Fatalf("summary missing response line:\n%s", m.content)
	}
	if v := m.View(); !strings.Contains(v, "GLM explorer") {
		t.Fatalf("header missing from view:\n%s", v)
	}
}

func TestPlotVariable(t *testing.T) {

	m := press(newTestModel(t), enter)
	if m.chart == nil {
		t.Fatal("expected a chart")
	}
	if m.chart.Title != "y vs. x1" {
		t.Fatalf("unexpected title %q", m.chart.Title)
	}
	if m.showSummary {
		t.Fatal("chart should replace the summary")
	}

	m = press(m, runes("s"))
	if !m.showSummary {
		t.Fatal("s should show the summary")
	}

	m = press(m, esc)
	if m.chart != nil {
		t.Fatal("esc should clear the selection")
	}
}

func TestEditFormula(t *testing.T) {

	m := press(newTestModel(t), runes("f"))
	if m.mode != modeFormula {
		t.Fatalf("expected formula mode, got %v", m.mode)
	}
	if m.input.Value() != "x1" {
		t.Fatalf("input should start from the current formula, got %q", m.input.Value())
	}

	m = press(m, runes(" + g"), enter)
	if m.mode != modeBrowse {
		t.Fatal("enter should leave formula mode")
	}
	if got := m.store.State().Session.Formula(); got != "x1 + g" {
		t.Fatalf("unexpected formula %q", got)
	}
	if m.errorText != "" {
		t.Fatalf("unexpected error %q", m.errorText)
	}

	m = press(m, runes("f"), runes(" + zz"), enter)
	if m.errorText == "" {
		t.Fatal("expected an error for an unknown column")
	}
	if got := m.store.State().Session.Formula(); got != "x1 + g" {
		t.Fatalf("failed refit should keep the model, got %q", got)
	}

	m = press(m, runes("f"), runes(" + x1"), esc)
	if got := m.store.State().Session.Formula(); got != "x1 + g" {
		t.Fatalf("esc should cancel, got %q", got)
	}
}

func TestFamilyKeys(t *testing.T) {

	m := press(newTestModel(t), runes("b"))
	if m.errorText == "" {
		t.Fatal("expected binomial to reject a continuous response")
	}
	if m.store.State().Session.Family() != explore.Gaussian {
		t.Fatal("failed refit should keep the family")
	}

	m = press(m, runes("m"))
	if m.errorText != "" {
		t.Fatalf("unexpected error %q", m.errorText)
	}
	if m.store.State().Session.Family() != explore.Gamma {
		t.Fatal("expected the gamma family")
	}
}

func TestSettings(t *testing.T) {

	m := press(newTestModel(t), runes("o"))
	if m.mode != modeSettings {
		t.Fatal("expected settings mode")
	}
	m.input.SetValue("4 quantile")
	m = press(m, enter)

	want := explore.ViewSettings{MaxLevels: 4, BinMethod: bins.MethodQuantile}
	if got := m.store.State().Settings; got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	m = press(m, runes("o"))
	m.input.SetValue("1 uniform")
	m = press(m, enter)
	if m.errorText == "" {
		t.Fatal("expected a validation error")
	}
}

func TestParseSettings(t *testing.T) {

	vs, err := parseSettings(" 6  Uniform ")
	if err != nil {
		t.Fatal(err)
	}
	if vs.MaxLevels != 6 || vs.BinMethod != bins.MethodUniform {
		t.Fatalf("unexpected settings %+v", vs)
	}

	for _, s := range []string{"", "6", "six uniform", "6 kmeans", "6 uniform x"} {
		if _, err := parseSettings(s); err == nil {
			t.Fatalf("expected an error for %q", s)
		}
	}
}

func TestInteraction(t *testing.T) {

	m := press(newTestModel(t), runes("i"))
	if m.mode != modeSecondary || m.primary != "x1" {
		t.Fatalf("unexpected mode %v primary %q", m.mode, m.primary)
	}

	// The primary cannot also be the secondary.
	m = press(m, enter)
	if m.errorText == "" || m.mode != modeSecondary {
		t.Fatal("expected an error when the secondary equals the primary")
	}

	m = press(m, down, enter)
	if m.mode != modeLevels {
		t.Fatalf("expected level picking, got mode %v (%s)", m.mode, m.errorText)
	}
	if strings.Join(m.levels, ",") != "a,b,c" {
		t.Fatalf("unexpected levels %v", m.levels)
	}

	m = press(m, down, space, enter)
	if m.mode != modeBrowse {
		t.Fatal("enter should leave level picking")
	}
	if m.chart == nil || m.chart.Title != "Predicted y by x1 and g" {
		t.Fatalf("unexpected chart %+v", m.chart)
	}
	if len(m.chart.Lines) != 2 || m.chart.Lines[0].Name != "b - Actual" {
		t.Fatalf("unexpected lines %+v", m.chart.Lines)
	}
}

func TestExport(t *testing.T) {

	m := press(newTestModel(t), runes("e"))
	if m.errorText == "" {
		t.Fatal("expected an error with nothing plotted")
	}

	m = press(m, enter, runes("e"))
	if m.errorText != "" {
		t.Fatalf("unexpected error %q", m.errorText)
	}
	fi, err := os.Stat(filepath.Join(m.export.Dir, "y_vs__x1.png"))
	if err != nil {
		t.Fatal(err)
	}
	if fi.Size() == 0 {
		t.Fatal("empty export")
	}
}

func TestQuit(t *testing.T) {

	m := newTestModel(t)
	_, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatal("expected a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.Quit")
	}
}
