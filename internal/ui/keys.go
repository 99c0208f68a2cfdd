package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit    key.Binding
	Help    key.Binding
	Palette key.Binding
	Jump    key.Binding
	Refresh key.Binding
	Theme   key.Binding
	Escape  key.Binding

	// View switching
	ViewDashboard key.Binding
	ViewAgents    key.Binding
	ViewEvents    key.Binding
	ViewGroups    key.Binding

	// Navigation
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Enter    key.Binding
	NextTab  key.Binding
	PrevTab  key.Binding

	// Agents view
	Search      key.Binding
	CycleSort   key.Binding
	ReverseSort key.Binding
	Select      key.Binding
	ClearSelect key.Binding
	Upgrade     key.Binding
	Restart     key.Binding
	Assign      key.Binding

	// Events view
	RawJSON   key.Binding
	Severity  key.Binding
	Interval  key.Binding
	Export    key.Binding
	TextFind  key.Binding
	Component key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Palette: key.NewBinding(
			key.WithKeys("ctrl+p", ":"),
			key.WithHelp(":", "command palette"),
		),
		Jump: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "find agent"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("ctrl+r", "f5"),
			key.WithHelp("ctrl+r", "refresh view"),
		),
		Theme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "cycle theme"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back / close"),
		),

		ViewDashboard: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "dashboard"),
		),
		ViewAgents: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "agents"),
		),
		ViewEvents: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "security events"),
		),
		ViewGroups: key.NewBinding(
			key.WithKeys("4"),
			key.WithHelp("4", "groups"),
		),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "h", "left"),
			key.WithHelp("h/pgup", "previous page"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "l", "right"),
			key.WithHelp("l/pgdn", "next page"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		NextTab: key.NewBinding(
			key.WithKeys("tab", "]"),
			key.WithHelp("tab", "next tab"),
		),
		PrevTab: key.NewBinding(
			key.WithKeys("shift+tab", "["),
			key.WithHelp("shift+tab", "previous tab"),
		),

		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "filter"),
		),
		CycleSort: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "cycle sort"),
		),
		ReverseSort: key.NewBinding(
			key.WithKeys("S"),
			key.WithHelp("S", "reverse sort"),
		),
		Select: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "select"),
		),
		ClearSelect: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear selection"),
		),
		Upgrade: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "upgrade selected"),
		),
		Restart: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "restart selected"),
		),
		Assign: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "assign to group"),
		),

		RawJSON: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "raw json"),
		),
		Severity: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "severity filter"),
		),
		Interval: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "time window"),
		),
		Export: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "export events"),
		),
		TextFind: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "text filter"),
		),
		Component: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "cycle config component"),
		),
	}
}
