package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Left    key.Binding
	Right   key.Binding
	Select  key.Binding
	Range   key.Binding
	Family  key.Binding
	All     key.Binding
	Expand  key.Binding
	Sort    key.Binding
	Bag     key.Binding
	Mode    key.Binding
	Search  key.Binding
	Params  key.Binding
	Metrics key.Binding
	Deleted key.Binding
	Clear   key.Binding
	Legend  key.Binding
	PlotURL key.Binding
	Help    key.Binding
	Quit    key.Binding
	Commit  key.Binding
	Cancel  key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit, k.Select, k.Sort, k.Search, k.Help}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.Select, k.Range, k.Family, k.All, k.Expand},
		{k.Sort, k.Bag, k.Mode, k.Clear},
		{k.Search, k.Params, k.Metrics, k.Deleted},
		{k.Legend, k.PlotURL, k.Help, k.Quit},
	}
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Left: key.NewBinding(
		key.WithKeys("left", "h"),
		key.WithHelp("←/h", "prev column"),
	),
	Right: key.NewBinding(
		key.WithKeys("right", "l"),
		key.WithHelp("→/l", "next column"),
	),
	Select: key.NewBinding(
		key.WithKeys(" "),
		key.WithHelp("space", "select"),
	),
	Range: key.NewBinding(
		key.WithKeys("x"),
		key.WithHelp("x", "select range"),
	),
	Family: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "select with children"),
	),
	All: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "select all/none"),
	),
	Expand: key.NewBinding(
		key.WithKeys("tab", "e"),
		key.WithHelp("tab/e", "expand"),
	),
	Sort: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "sort"),
	),
	Bag: key.NewBinding(
		key.WithKeys("b"),
		key.WithHelp("b", "bag/unbag column"),
	),
	Mode: key.NewBinding(
		key.WithKeys("m"),
		key.WithHelp("m", "grid/compact"),
	),
	Search: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "search"),
	),
	Params: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "filter params"),
	),
	Metrics: key.NewBinding(
		key.WithKeys("M"),
		key.WithHelp("M", "filter metrics"),
	),
	Deleted: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "active/deleted"),
	),
	Clear: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "clear"),
	),
	Legend: key.NewBinding(
		key.WithKeys("o"),
		key.WithHelp("o/oo", "highlight/isolate in plot"),
	),
	PlotURL: key.NewBinding(
		key.WithKeys("y"),
		key.WithHelp("y", "plot link"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q/ctrl+c", "quit"),
	),
	Commit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "apply"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "cancel"),
	),
}
