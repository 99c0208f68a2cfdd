package ui

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/wardenhq/warden/internal/bulk"
	"github.com/wardenhq/warden/internal/fuzzy"
	"github.com/wardenhq/warden/internal/gateway"
	"github.com/wardenhq/warden/internal/pipeline"
)

// paletteCommand is one entry in the command palette. run mutates the model
// and may return a command; it executes on the Update goroutine.
type paletteCommand struct {
	Title string
	run   func(m *Model) tea.Cmd
}

func paletteCommands() []paletteCommand {
	return []paletteCommand{
		{Title: "go: dashboard", run: func(m *Model) tea.Cmd { return tea.Batch(m.enterView(ViewDashboard)...) }},
		{Title: "go: agents", run: func(m *Model) tea.Cmd { return tea.Batch(m.enterView(ViewAgents)...) }},
		{Title: "go: events", run: func(m *Model) tea.Cmd { return tea.Batch(m.enterView(ViewEvents)...) }},
		{Title: "go: groups", run: func(m *Model) tea.Cmd { return tea.Batch(m.enterView(ViewGroups)...) }},
		{Title: "refresh current view", run: func(m *Model) tea.Cmd {
			m.invalidateCurrentView()
			m.notify("refreshing", notifyInfo)
			return tea.Batch(m.enterView(m.view)...)
		}},
		{Title: "cycle theme", run: func(m *Model) tea.Cmd {
			m.theme = NextTheme(m.theme.Name)
			m.prefs.Theme = m.theme.Name
			return m.savePrefsCmd()
		}},
		{Title: "agents: clear filter and selection", run: func(m *Model) tea.Cmd {
			m.filter = pipeline.AgentFilter{}
			clear(m.selection)
			m.page = 0
			m.recompute()
			return nil
		}},
		{Title: "events: export filtered page", run: func(m *Model) tea.Cmd { return m.exportCmd() }},
		{Title: "quit", run: func(m *Model) tea.Cmd { m.quitting = true; return tea.Quit }},
	}
}

func (m *Model) openOverlay(o Overlay) (tea.Model, tea.Cmd) {
	m.overlay = o
	m.overlayErr = ""
	switch o {
	case OverlayPalette:
		m.paletteInput.SetValue("")
		m.paletteIndex = 0
		m.paletteInput.Focus()
	case OverlayJump:
		m.jumpInput.SetValue("")
		m.jumpIndex = 0
		m.jumpInput.Focus()
	case OverlayGroupPick:
		m.groupPickIdx = 0
		return *m, m.ensure(groupsKey())
	case OverlaySeverity:
		m.overlayInput.Placeholder = ">=7, 5-10, or critical,high"
		m.overlayInput.SetValue(levelFilterString(m.level))
		m.overlayInput.Focus()
	case OverlayInterval:
		m.overlayInput.Placeholder = "15m, 2h, 1d"
		m.overlayInput.SetValue(fmt.Sprintf("%dm", m.eventWindowMin))
		m.overlayInput.Focus()
	}
	return *m, nil
}

func (m *Model) closeOverlay() {
	m.overlay = OverlayNone
	m.overlayErr = ""
	m.paletteInput.Blur()
	m.jumpInput.Blur()
	m.overlayInput.Blur()
	m.confirm = nil
}

func (m Model) handleOverlayKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "esc" {
		m.closeOverlay()
		return m, nil
	}

	switch m.overlay {
	case OverlayPalette:
		return m.handlePaletteKey(msg)
	case OverlayJump:
		return m.handleJumpKey(msg)
	case OverlayHelp:
		m.closeOverlay()
		return m, nil
	case OverlayConfirm:
		return m.handleConfirmKey(msg)
	case OverlayGroupPick:
		return m.handleGroupPickKey(msg)
	case OverlaySeverity:
		return m.handleSeverityKey(msg)
	case OverlayInterval:
		return m.handleIntervalKey(msg)
	}
	return m, nil
}

func (m Model) handlePaletteKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	matches := m.paletteMatches()
	switch msg.String() {
	case "down", "ctrl+n", "tab":
		if m.paletteIndex+1 < len(matches) {
			m.paletteIndex++
		}
		return m, nil
	case "up", "ctrl+p":
		if m.paletteIndex > 0 {
			m.paletteIndex--
		}
		return m, nil
	case "enter":
		if m.paletteIndex < len(matches) {
			run := matches[m.paletteIndex].run
			m.closeOverlay()
			cmd := run(&m)
			return m, cmd
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.paletteInput, cmd = m.paletteInput.Update(msg)
	m.paletteIndex = 0
	return m, cmd
}

// paletteMatches ranks the command list against the palette query.
func (m Model) paletteMatches() []paletteCommand {
	query := m.paletteInput.Value()
	if query == "" {
		return m.paletteCorpus
	}
	titles := make([]string, len(m.paletteCorpus))
	for i, c := range m.paletteCorpus {
		titles[i] = c.Title
	}
	ranked := fuzzy.Rank(titles, query)
	out := make([]paletteCommand, 0, len(ranked))
	for _, e := range ranked {
		out = append(out, m.paletteCorpus[e.Index])
	}
	return out
}

// rankJump ranks the jump corpus and returns original indices in rank order.
func rankJump(query string, corpus []string) []int {
	ranked := fuzzy.Rank(corpus, query)
	out := make([]int, len(ranked))
	for i, e := range ranked {
		out[i] = e.Index
	}
	return out
}

func (m Model) handleJumpKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ranked := rankJump(m.jumpInput.Value(), m.jumpCorpus)
	switch msg.String() {
	case "down", "ctrl+n", "tab":
		if m.jumpIndex+1 < len(ranked) {
			m.jumpIndex++
		}
		return m, nil
	case "up", "ctrl+p":
		if m.jumpIndex > 0 {
			m.jumpIndex--
		}
		return m, nil
	case "enter":
		if m.jumpIndex < len(ranked) {
			idx := ranked[m.jumpIndex]
			m.inspectID = m.jumpAgentIDs[idx]
			m.inspectName = jumpEntryName(m.jumpCorpus[idx])
			m.tab = TabHardware
			m.closeOverlay()
			cmds := m.enterView(ViewInspector)
			return m, tea.Batch(cmds...)
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.jumpInput, cmd = m.jumpInput.Update(msg)
	m.jumpIndex = 0
	return m, cmd
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "enter":
		c := m.confirm
		m.closeOverlay()
		if c == nil {
			return m, nil
		}
		m.bulkRunning = true
		m.notify(fmt.Sprintf("%s: %d agent(s) queued", c.action, len(c.ids)), notifyInfo)
		return m, m.bulkCmd(c.action, c.ids, c.group)
	case "n":
		m.closeOverlay()
		return m, nil
	}
	return m, nil
}

func (m Model) handleGroupPickKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	groups := m.groupSnapshot()
	switch msg.String() {
	case "down", "j":
		if m.groupPickIdx+1 < len(groups) {
			m.groupPickIdx++
		}
		return m, nil
	case "up", "k":
		if m.groupPickIdx > 0 {
			m.groupPickIdx--
		}
		return m, nil
	case "enter":
		if m.groupPickIdx < len(groups) {
			group := groups[m.groupPickIdx].Name
			m.closeOverlay()
			return m.confirmBulk(bulk.ActionAssignGroup, group)
		}
		return m, nil
	}
	return m, nil
}

// handleSeverityKey accepts either a numeric rule-level constraint, which
// travels to the indexer, or a comma list of severity names ("critical,high"),
// which filters the cached page locally.
func (m Model) handleSeverityKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "enter" {
		input := strings.TrimSpace(m.overlayInput.Value())
		if sevs, ok := parseSeverityList(input); ok {
			m.sevFilter = sevs
			m.eventCursor = 0
			m.closeOverlay()
			return m, nil
		}
		lf, err := parseLevelFilter(input)
		if err != nil {
			m.overlayErr = err.Error()
			return m, nil
		}
		m.level = lf
		if lf == nil {
			m.sevFilter = nil
		}
		m.eventOffset = 0
		m.eventCursor = 0
		m.closeOverlay()
		return m, m.ensureEvents(m.eventQuery())
	}
	var cmd tea.Cmd
	m.overlayInput, cmd = m.overlayInput.Update(msg)
	return m, cmd
}

// parseSeverityList reads a comma list of severity names. Returns false when
// the input is not a name list at all, letting the level grammar have a try.
func parseSeverityList(s string) (map[gateway.Severity]bool, bool) {
	if s == "" || strings.IndexFunc(s, func(r rune) bool { return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' }) < 0 {
		return nil, false
	}
	out := make(map[gateway.Severity]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		switch part {
		case "critical", "high", "medium", "low":
			out[gateway.SeverityFromLabel(part)] = true
		default:
			return nil, false
		}
	}
	return out, len(out) > 0
}

func (m Model) handleIntervalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "enter" {
		minutes, err := parseInterval(m.overlayInput.Value())
		if err != nil {
			m.overlayErr = err.Error()
			return m, nil
		}
		m.eventWindowMin = minutes
		m.eventOffset = 0
		m.eventCursor = 0
		m.closeOverlay()
		m.prefs.EventWindowMin = minutes
		return m, tea.Batch(m.ensureEvents(m.eventQuery()), m.savePrefsCmd())
	}
	var cmd tea.Cmd
	m.overlayInput, cmd = m.overlayInput.Update(msg)
	return m, cmd
}

// jumpEntryName recovers the agent name from a "name id ip" corpus entry.
func jumpEntryName(entry string) string {
	name, _, _ := strings.Cut(entry, " ")
	return name
}

// savePrefsCmd persists preferences off the Update goroutine.
func (m Model) savePrefsCmd() tea.Cmd {
	path, p := m.prefsPath, m.prefs
	return func() tea.Msg {
		_ = savePrefs(path, p)
		return nil
	}
}

// parseLevelFilter reads a rule-level constraint: ">=7", "<=12", "=10",
// "5-10", or a bare number (exact match). Empty input clears the filter.
func parseLevelFilter(s string) (*gateway.LevelFilter, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	switch {
	case strings.HasPrefix(s, ">="):
		n, err := parseLevel(s[2:])
		if err != nil {
			return nil, err
		}
		return &gateway.LevelFilter{Mode: gateway.LevelMin, V1: n}, nil
	case strings.HasPrefix(s, "<="):
		n, err := parseLevel(s[2:])
		if err != nil {
			return nil, err
		}
		return &gateway.LevelFilter{Mode: gateway.LevelMax, V1: n}, nil
	case strings.HasPrefix(s, "="):
		n, err := parseLevel(s[1:])
		if err != nil {
			return nil, err
		}
		return &gateway.LevelFilter{Mode: gateway.LevelExact, V1: n}, nil
	case strings.Contains(s, "-"):
		lo, hi, _ := strings.Cut(s, "-")
		low, err := parseLevel(lo)
		if err != nil {
			return nil, err
		}
		high, err := parseLevel(hi)
		if err != nil {
			return nil, err
		}
		if high < low {
			return nil, fmt.Errorf("range %d-%d is inverted", low, high)
		}
		return &gateway.LevelFilter{Mode: gateway.LevelRange, V1: low, V2: high}, nil
	default:
		n, err := parseLevel(s)
		if err != nil {
			return nil, err
		}
		return &gateway.LevelFilter{Mode: gateway.LevelExact, V1: n}, nil
	}
}

func parseLevel(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("not a rule level: %q", strings.TrimSpace(s))
	}
	if n < 0 || n > 16 {
		return 0, fmt.Errorf("rule level %d out of range", n)
	}
	return n, nil
}

func levelFilterString(lf *gateway.LevelFilter) string {
	if lf == nil {
		return ""
	}
	switch lf.Mode {
	case gateway.LevelMin:
		return fmt.Sprintf(">=%d", lf.V1)
	case gateway.LevelMax:
		return fmt.Sprintf("<=%d", lf.V1)
	case gateway.LevelRange:
		return fmt.Sprintf("%d-%d", lf.V1, lf.V2)
	default:
		return fmt.Sprintf("=%d", lf.V1)
	}
}

// parseInterval reads a time window like "15m", "2h", or "1d" and returns
// minutes. A bare number is taken as minutes.
func parseInterval(s string) (int, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0, fmt.Errorf("empty interval")
	}
	mult := 1
	switch s[len(s)-1] {
	case 'm':
		s = s[:len(s)-1]
	case 'h':
		mult = 60
		s = s[:len(s)-1]
	case 'd':
		mult = 1440
		s = s[:len(s)-1]
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("not an interval: use 15m, 2h, or 1d")
	}
	return n * mult, nil
}
