package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Plot        key.Binding
	Summary     key.Binding
	Formula     key.Binding
	Gaussian    key.Binding
	Binomial    key.Binding
	Gamma       key.Binding
	Interaction key.Binding
	Settings    key.Binding
	Export      key.Binding
	Clear       key.Binding
	Toggle      key.Binding
	Up          key.Binding
	Down        key.Binding
	Quit        key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Plot, k.Summary, k.Formula, k.Gaussian, k.Binomial, k.Gamma,
		k.Interaction, k.Settings, k.Export, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Plot, k.Interaction, k.Summary, k.Clear},
		{k.Formula, k.Gaussian, k.Binomial, k.Gamma},
		{k.Settings, k.Export, k.Quit},
	}
}

var keys = keyMap{
	Plot: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "plot"),
	),
	Summary: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "summary"),
	),
	Formula: key.NewBinding(
		key.WithKeys("f"),
		key.WithHelp("f", "formula"),
	),
	Gaussian: key.NewBinding(
		key.WithKeys("g"),
		key.WithHelp("g", "gaussian"),
	),
	Binomial: key.NewBinding(
		key.WithKeys("b"),
		key.WithHelp("b", "binomial"),
	),
	Gamma: key.NewBinding(
		key.WithKeys("m"),
		key.WithHelp("m", "gamma"),
	),
	Interaction: key.NewBinding(
		key.WithKeys("i"),
		key.WithHelp("i", "interaction"),
	),
	Settings: key.NewBinding(
		key.WithKeys("o"),
		key.WithHelp("o", "settings"),
	),
	Export: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "export"),
	),
	Clear: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "clear"),
	),
	Toggle: key.NewBinding(
		key.WithKeys(" ", "x"),
		key.WithHelp("space", "toggle level"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
