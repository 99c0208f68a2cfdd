package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/wardenhq/warden/internal/gateway"
)

// Theme defines the color palette for the dashboard.
type Theme struct {
	Name string

	Background string
	Surface    string

	SelectionBg   string
	SelectionText string

	Border      string
	BorderFocus string

	Text    string
	Muted   string
	Accent  string
	Success string
	Warning string
	Danger  string
	Info    string

	StatusColors   map[gateway.AgentStatus]string
	SeverityColors map[gateway.Severity]string
}

// Styles returns the Lipgloss styles for this theme.
func (t Theme) Styles() Styles {
	return Styles{
		Text:        lipgloss.NewStyle().Foreground(lipgloss.Color(t.Text)),
		MutedText:   lipgloss.NewStyle().Foreground(lipgloss.Color(t.Muted)),
		AccentText:  lipgloss.NewStyle().Foreground(lipgloss.Color(t.Accent)).Bold(true),
		SuccessText: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Success)),
		WarningText: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Warning)),
		DangerText:  lipgloss.NewStyle().Foreground(lipgloss.Color(t.Danger)).Bold(true),
		InfoText:    lipgloss.NewStyle().Foreground(lipgloss.Color(t.Info)),

		Header: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Surface)).
			Foreground(lipgloss.Color(t.Text)).
			Padding(0, 1),

		Footer: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Surface)).
			Foreground(lipgloss.Color(t.Muted)).
			Padding(0, 1),

		Logo: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Accent)).
			Bold(true),

		Selected: lipgloss.NewStyle().
			Background(lipgloss.Color(t.SelectionBg)).
			Foreground(lipgloss.Color(t.SelectionText)),

		TableHeader: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Accent)).
			Bold(true).
			Underline(true),

		Overlay: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(t.BorderFocus)).
			Padding(0, 1),

		Panel: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color(t.Border)).
			Padding(0, 1),

		statusColors:   t.StatusColors,
		severityColors: t.SeverityColors,
		muted:          t.Muted,
	}
}

// Styles contains pre-built Lipgloss styles for the theme.
type Styles struct {
	Text        lipgloss.Style
	MutedText   lipgloss.Style
	AccentText  lipgloss.Style
	SuccessText lipgloss.Style
	WarningText lipgloss.Style
	DangerText  lipgloss.Style
	InfoText    lipgloss.Style

	Header      lipgloss.Style
	Footer      lipgloss.Style
	Logo        lipgloss.Style
	Selected    lipgloss.Style
	TableHeader lipgloss.Style
	Overlay     lipgloss.Style
	Panel       lipgloss.Style

	statusColors   map[gateway.AgentStatus]string
	severityColors map[gateway.Severity]string
	muted          string
}

// StatusStyle returns the style for an agent connection status.
func (s Styles) StatusStyle(status gateway.AgentStatus) lipgloss.Style {
	color := s.statusColors[status]
	if color == "" {
		color = s.muted
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

// SeverityStyle returns the style for an alert severity band.
func (s Styles) SeverityStyle(sev gateway.Severity) lipgloss.Style {
	color := s.severityColors[sev]
	if color == "" {
		color = s.muted
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

// Theme definitions

var themes = map[string]Theme{
	"Dracula": draculaTheme(),
	"Slate":   slateTheme(),
}

var themeOrder = []string{"Dracula", "Slate"}

// ThemeByName returns a theme by name, falling back to Dracula.
func ThemeByName(name string) Theme {
	if t, ok := themes[name]; ok {
		return t
	}
	return draculaTheme()
}

// NextTheme returns the theme after the named one in the cycle order.
func NextTheme(current string) Theme {
	for i, name := range themeOrder {
		if name == current {
			return themes[themeOrder[(i+1)%len(themeOrder)]]
		}
	}
	return themes[themeOrder[0]]
}

func draculaTheme() Theme {
	// Official Dracula palette: https://draculatheme.com/spec
	return Theme{
		Name: "Dracula",

		Background: "#191A21",
		Surface:    "#282A36",

		SelectionBg:   "#44475A",
		SelectionText: "#F8F8F2",

		Border:      "#44475A",
		BorderFocus: "#BD93F9",

		Text:    "#F8F8F2",
		Muted:   "#6272A4",
		Accent:  "#BD93F9",
		Success: "#50FA7B",
		Warning: "#FFB86C",
		Danger:  "#FF5555",
		Info:    "#8BE9FD",

		StatusColors: map[gateway.AgentStatus]string{
			gateway.StatusActive:         "#50FA7B",
			gateway.StatusDisconnected:   "#FF5555",
			gateway.StatusPending:        "#FFB86C",
			gateway.StatusNeverConnected: "#6272A4",
		},
		SeverityColors: map[gateway.Severity]string{
			gateway.SeverityLow:      "#8BE9FD",
			gateway.SeverityMedium:   "#F1FA8C",
			gateway.SeverityHigh:     "#FFB86C",
			gateway.SeverityCritical: "#FF5555",
		},
	}
}

func slateTheme() Theme {
	return Theme{
		Name: "Slate",

		Background: "#0F172A",
		Surface:    "#1E293B",

		SelectionBg:   "#334155",
		SelectionText: "#F1F5F9",

		Border:      "#334155",
		BorderFocus: "#38BDF8",

		Text:    "#E2E8F0",
		Muted:   "#64748B",
		Accent:  "#38BDF8",
		Success: "#4ADE80",
		Warning: "#FBBF24",
		Danger:  "#F87171",
		Info:    "#22D3EE",

		StatusColors: map[gateway.AgentStatus]string{
			gateway.StatusActive:         "#4ADE80",
			gateway.StatusDisconnected:   "#F87171",
			gateway.StatusPending:        "#FBBF24",
			gateway.StatusNeverConnected: "#64748B",
		},
		SeverityColors: map[gateway.Severity]string{
			gateway.SeverityLow:      "#22D3EE",
			gateway.SeverityMedium:   "#FDE047",
			gateway.SeverityHigh:     "#FBBF24",
			gateway.SeverityCritical: "#F87171",
		},
	}
}
