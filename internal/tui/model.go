// Package tui is the terminal shell of glmexplore.
package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/kshedden/glmexplore/bins"
	"github.com/kshedden/glmexplore/config"
	"github.com/kshedden/glmexplore/explore"
	"github.com/kshedden/glmexplore/logging"
	"github.com/kshedden/glmexplore/view"
	"gonum.org/v1/plot/vg"
)

var (
	panelBorder     = lipgloss.Color("#2D6A80")
	accentPrimary   = lipgloss.Color("#50E3C2")
	accentSecondary = lipgloss.Color("#F6AE2D")
	mutedText       = lipgloss.Color("#8CA1AE")
	warningText     = lipgloss.Color("#FF6B6B")
)

var (
	headerStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Bold(true).
			Foreground(accentPrimary)

	subHeaderStyle = lipgloss.NewStyle().
			Foreground(mutedText)

	statusStyle = lipgloss.NewStyle().
			Foreground(accentSecondary).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(warningText).
			Bold(true)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(panelBorder).
			Padding(0, 1)
)

type mode int

const (
	modeBrowse mode = iota
	modeFormula
	modeSettings
	modeSecondary
	modeLevels
)

type item struct {
	name string
	desc string
}

func (i item) Title() string       { return i.name }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.name }

type change struct {
	prev, cur explore.State
}

// changes collects store notifications between Dispatch and rendering.
// It is shared by all copies of a Model.
type changes struct {
	queue []change
}

// Model is the bubbletea model of the shell.
type Model struct {
	store   *explore.Store
	pending *changes
	export  config.ExportConfig

	list  list.Model
	main  viewport.Model
	input textinput.Model
	help  help.Model

	mode        mode
	showSummary bool
	content     string
	chart       *view.Chart

	// interaction picker
	primary     string
	secondary   string
	levels      []string
	picked      []bool
	levelCursor int

	statusText string
	errorText  string

	width  int
	height int
	ready  bool
}

// NewModel returns a shell displaying the state held by store.  Charts
// are exported according to export.
func NewModel(store *explore.Store, export config.ExportConfig) Model {

	pend := &changes{}
	store.Subscribe(func(prev, cur explore.State) {
		pend.queue = append(pend.queue, change{prev: prev, cur: cur})
	})

	var items []list.Item
	for _, c := range store.State().Session.Regressors().Columns() {
		items = append(items, item{
			name: c.Name(),
			desc: fmt.Sprintf("%s, %d distinct", c.Kind(), c.Distinct()),
		})
	}

	d := list.NewDefaultDelegate()
	l := list.New(items, d, 30, 20)
	l.Title = "Regressors"
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.KeyMap.Quit.SetEnabled(false)
	l.KeyMap.ForceQuit.SetEnabled(false)

	ti := textinput.New()
	ti.CharLimit = 512

	m := Model{
		store:       store,
		pending:     pend,
		export:      export,
		list:        l,
		main:        viewport.New(80, 20),
		input:       ti,
		help:        help.New(),
		showSummary: true,
		statusText:  "Select a regressor and press enter to plot it.",
	}
	m.refreshMain()

	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resize()
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeFormula, modeSettings:
			return m.updateInput(msg)
		case modeSecondary:
			return m.updateSecondary(msg)
		case modeLevels:
			return m.updateLevels(msg)
		default:
			return m.updateBrowse(msg)
		}

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.main, cmd = m.main.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {

	st := m.store.State()

	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Plot):
		m.dispatch(explore.SelectVariable{Name: m.selected()})
		return m, nil
	case key.Matches(msg, keys.Summary):
		m.showSummary = true
		m.refreshMain()
		return m, nil
	case key.Matches(msg, keys.Clear):
		m.dispatch(explore.ClearSelection{})
		return m, nil
	case key.Matches(msg, keys.Formula):
		m.openInput(modeFormula, "formula> ", st.Session.Formula())
		m.statusText = "Edit the formula, enter refits, esc cancels."
		return m, textinput.Blink
	case key.Matches(msg, keys.Settings):
		m.openInput(modeSettings, "levels method> ",
			fmt.Sprintf("%d %s", st.Settings.MaxLevels, st.Settings.BinMethod))
		m.statusText = "Enter the maximum number of levels and uniform or quantile."
		return m, textinput.Blink
	case key.Matches(msg, keys.Gaussian):
		m.dispatch(explore.RefitFamily{Family: explore.Gaussian})
		return m, nil
	case key.Matches(msg, keys.Binomial):
		m.dispatch(explore.RefitFamily{Family: explore.Binomial})
		return m, nil
	case key.Matches(msg, keys.Gamma):
		m.dispatch(explore.RefitFamily{Family: explore.Gamma})
		return m, nil
	case key.Matches(msg, keys.Interaction):
		m.primary = m.selected()
		if m.primary == "" {
			m.errorText = "Select the primary variable first."
			return m, nil
		}
		m.mode = modeSecondary
		m.errorText = ""
		m.statusText = fmt.Sprintf("Primary %s, choose the secondary variable and press enter.", m.primary)
		return m, nil
	case key.Matches(msg, keys.Export):
		m.exportChart()
		return m, nil
	case msg.String() == "pgup" || msg.String() == "pgdown":
		var cmd tea.Cmd
		m.main, cmd = m.main.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) openInput(md mode, prompt, value string) {
	m.mode = md
	m.input.Prompt = prompt
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Focus()
	m.errorText = ""
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {

	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.mode = modeBrowse
		m.input.Blur()
		m.statusText = "Cancelled."
		return m, nil
	case "enter":
		md := m.mode
		val := strings.TrimSpace(m.input.Value())
		m.mode = modeBrowse
		m.input.Blur()
		if md == modeFormula {
			m.dispatch(explore.RefitFormula{Formula: val})
			return m, nil
		}
		settings, err := parseSettings(val)
		if err != nil {
			m.errorText = err.Error()
			return m, nil
		}
		m.dispatch(explore.ApplySettings{Settings: settings})
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateSecondary(msg tea.KeyMsg) (tea.Model, tea.Cmd) {

	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Clear):
		m.mode = modeBrowse
		m.statusText = "Interaction cancelled."
		return m, nil
	case key.Matches(msg, keys.Plot):
		st := m.store.State()
		sec := m.selected()
		if err := explore.CheckPair(st.Session, m.primary, sec); err != nil {
			m.errorText = err.Error()
			return m, nil
		}
		levels, err := view.SecondaryLevels(st.Session, st.Settings, sec)
		if err != nil {
			m.errorText = err.Error()
			return m, nil
		}
		m.secondary = sec
		m.levels = levels
		m.picked = make([]bool, len(levels))
		m.levelCursor = 0
		m.mode = modeLevels
		m.errorText = ""
		m.statusText = "Toggle levels with space, enter plots (none chosen plots all)."
		m.refreshMain()
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateLevels(msg tea.KeyMsg) (tea.Model, tea.Cmd) {

	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Clear):
		m.mode = modeBrowse
		m.statusText = "Interaction cancelled."
		m.refreshMain()
	case key.Matches(msg, keys.Up):
		if m.levelCursor > 0 {
			m.levelCursor--
		}
		m.refreshMain()
	case key.Matches(msg, keys.Down):
		if m.levelCursor < len(m.levels)-1 {
			m.levelCursor++
		}
		m.refreshMain()
	case key.Matches(msg, keys.Toggle):
		if len(m.picked) > 0 {
			m.picked[m.levelCursor] = !m.picked[m.levelCursor]
		}
		m.refreshMain()
	case key.Matches(msg, keys.Plot):
		var chosen []string
		for j, p := range m.picked {
			if p {
				chosen = append(chosen, m.levels[j])
			}
		}
		m.mode = modeBrowse
		m.dispatch(explore.SelectPair{Primary: m.primary, Secondary: m.secondary, Levels: chosen})
		m.refreshMain()
	}

	return m, nil
}

func parseSettings(s string) (explore.ViewSettings, error) {

	f := strings.Fields(s)
	if len(f) != 2 {
		return explore.ViewSettings{}, fmt.Errorf("expected a level count and a bin method, got %q", s)
	}
	n, err := strconv.Atoi(f[0])
	if err != nil {
		return explore.ViewSettings{}, fmt.Errorf("invalid level count %q", f[0])
	}
	method, err := bins.ParseMethod(f[1])
	if err != nil {
		return explore.ViewSettings{}, err
	}

	return explore.ViewSettings{MaxLevels: n, BinMethod: method}, nil
}

func (m *Model) selected() string {
	it, ok := m.list.SelectedItem().(item)
	if !ok {
		return ""
	}
	return it.name
}

// dispatch sends the action to the store and renders the resulting
// state changes.
func (m *Model) dispatch(a explore.Action) {

	if err := m.store.Dispatch(a); err != nil {
		m.errorText = err.Error()
		return
	}
	m.errorText = ""

	q := m.pending.queue
	m.pending.queue = nil
	for _, c := range q {
		m.onChange(c.prev, c.cur)
	}
}

func (m *Model) onChange(prev, cur explore.State) {

	if prev.Session != cur.Session {
		m.statusText = fmt.Sprintf("Refit %s model: %s", cur.Session.Family(), formulaLabel(cur.Session.Formula()))
		m.showSummary = true
	}

	m.chart = nil
	if !cur.Selection.IsEmpty() {
		chart, err := view.ForSelection(cur)
		if err != nil {
			m.errorText = err.Error()
		} else {
			m.chart = chart
			m.showSummary = false
			m.statusText = chart.Title
		}
	}
	if prev.Settings != cur.Settings {
		m.statusText = fmt.Sprintf("Settings: %d levels, %s bins", cur.Settings.MaxLevels, cur.Settings.BinMethod)
	}

	m.refreshMain()
}

func formulaLabel(f string) string {
	if strings.TrimSpace(f) == "" {
		return "intercept only"
	}
	return f
}

func (m *Model) refreshMain() {

	switch {
	case m.mode == modeLevels:
		var b strings.Builder
		fmt.Fprintf(&b, "Levels of %s\n\n", m.secondary)
		for j, lev := range m.levels {
			cursor := "  "
			if j == m.levelCursor {
				cursor = "> "
			}
			mark := "[ ]"
			if m.picked[j] {
				mark = "[x]"
			}
			fmt.Fprintf(&b, "%s%s %s\n", cursor, mark, lev)
		}
		m.content = b.String()
	case m.showSummary || m.chart == nil:
		m.content = m.store.State().Session.SummaryText()
	default:
		m.content = view.Text(m.chart)
	}

	m.main.SetContent(m.content)
}

func slug(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return '_'
	}, s)
}

func (m *Model) exportChart() {

	if m.chart == nil {
		m.errorText = "Nothing to export, plot a variable first."
		return
	}

	path := filepath.Join(m.export.Dir, slug(m.chart.Title)+"."+m.export.Format)
	f, err := os.Create(path)
	if err != nil {
		m.errorText = err.Error()
		return
	}

	err = view.Render(m.chart, f, m.export.Format,
		vg.Length(m.export.Width)*vg.Inch, vg.Length(m.export.Height)*vg.Inch)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		m.errorText = err.Error()
		return
	}

	logging.Logger().Info("chart exported", "path", path)
	m.errorText = ""
	m.statusText = "Wrote " + path
}

func (m *Model) resize() {

	listW := max(24, m.width/4)
	h := max(8, m.height-8)
	m.list.SetSize(listW, h)
	m.main.Width = max(20, m.width-listW-8)
	m.main.Height = h
	m.input.Width = max(20, m.width-20)
	m.help.Width = m.width
}

// View implements tea.Model.
func (m Model) View() string {

	if !m.ready {
		return "Loading..."
	}

	st := m.store.State()
	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		headerStyle.Render("GLM explorer"),
		subHeaderStyle.Render(fmt.Sprintf("%s ~ %s  [%s]", st.Session.Response().Name(),
			formulaLabel(st.Session.Formula()), st.Session.Family())))

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		panelStyle.Render(m.list.View()),
		panelStyle.Render(m.main.View()))

	var status string
	if m.errorText != "" {
		status = errorStyle.Render(m.errorText)
	} else {
		status = statusStyle.Render(m.statusText)
	}

	parts := []string{header, body}
	if m.mode == modeFormula || m.mode == modeSettings {
		parts = append(parts, m.input.View())
	}
	parts = append(parts, status, m.help.View(keys))

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
